package repository

import (
	"context"
	"database/sql"
	"time"

	"chargelens/backend/services/telemetry-service/internal/models"
)

// VehicleHistoryRepo persists vehicle readings in Postgres.
type VehicleHistoryRepo struct {
	db *sql.DB
}

// NewVehicleHistoryRepo returns repository.
func NewVehicleHistoryRepo(db *sql.DB) *VehicleHistoryRepo {
	return &VehicleHistoryRepo{db: db}
}

// Append stores a new reading and fills its ID.
func (r *VehicleHistoryRepo) Append(ctx context.Context, reading *models.VehicleReading) error {
	const query = `
		INSERT INTO vehicle_telemetry_history (vehicle_id, soc, kwh_delivered_dc, battery_temp, timestamp)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`
	return r.db.QueryRowContext(ctx, query,
		reading.VehicleID,
		reading.StateOfCharge,
		reading.DCEnergyDeliveredKWh,
		reading.BatteryTempC,
		reading.Timestamp,
	).Scan(&reading.ID)
}

// Range returns the vehicle's readings inside [from, to].
func (r *VehicleHistoryRepo) Range(ctx context.Context, vehicleID string, from, to time.Time) ([]models.VehicleReading, error) {
	const query = `
		SELECT id, vehicle_id, soc, kwh_delivered_dc, battery_temp, timestamp
		FROM vehicle_telemetry_history
		WHERE vehicle_id = $1 AND timestamp >= $2 AND timestamp <= $3
		ORDER BY timestamp ASC, id ASC
	`
	rows, err := r.db.QueryContext(ctx, query, vehicleID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var readings []models.VehicleReading
	for rows.Next() {
		var v models.VehicleReading
		if err := rows.Scan(
			&v.ID,
			&v.VehicleID,
			&v.StateOfCharge,
			&v.DCEnergyDeliveredKWh,
			&v.BatteryTempC,
			&v.Timestamp,
		); err != nil {
			return nil, err
		}
		v.Timestamp = v.Timestamp.UTC()
		readings = append(readings, v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return readings, nil
}

// MeterHistoryRepo persists meter readings in Postgres.
type MeterHistoryRepo struct {
	db *sql.DB
}

// NewMeterHistoryRepo returns repository.
func NewMeterHistoryRepo(db *sql.DB) *MeterHistoryRepo {
	return &MeterHistoryRepo{db: db}
}

// Append stores a new reading and fills its ID.
func (r *MeterHistoryRepo) Append(ctx context.Context, reading *models.MeterReading) error {
	const query = `
		INSERT INTO meter_telemetry_history (meter_id, kwh_consumed_ac, voltage, timestamp)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`
	return r.db.QueryRowContext(ctx, query,
		reading.MeterID,
		reading.ACEnergyConsumedKWh,
		reading.Voltage,
		reading.Timestamp,
	).Scan(&reading.ID)
}

// Range returns the meter's readings inside [from, to].
func (r *MeterHistoryRepo) Range(ctx context.Context, meterID string, from, to time.Time) ([]models.MeterReading, error) {
	const query = `
		SELECT id, meter_id, kwh_consumed_ac, voltage, timestamp
		FROM meter_telemetry_history
		WHERE meter_id = $1 AND timestamp >= $2 AND timestamp <= $3
		ORDER BY timestamp ASC, id ASC
	`
	rows, err := r.db.QueryContext(ctx, query, meterID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var readings []models.MeterReading
	for rows.Next() {
		var m models.MeterReading
		if err := rows.Scan(
			&m.ID,
			&m.MeterID,
			&m.ACEnergyConsumedKWh,
			&m.Voltage,
			&m.Timestamp,
		); err != nil {
			return nil, err
		}
		m.Timestamp = m.Timestamp.UTC()
		readings = append(readings, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return readings, nil
}
