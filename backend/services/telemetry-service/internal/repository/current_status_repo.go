package repository

import (
	"context"
	"database/sql"
	"errors"

	"chargelens/backend/services/telemetry-service/internal/models"
)

// CurrentStatusRepo is the Postgres-backed entity store.
type CurrentStatusRepo struct {
	db *sql.DB
}

// NewCurrentStatusRepo returns repository.
func NewCurrentStatusRepo(db *sql.DB) *CurrentStatusRepo {
	return &CurrentStatusRepo{db: db}
}

// UpsertVehicle overwrites the vehicle row regardless of reading timestamp ordering.
func (r *CurrentStatusRepo) UpsertVehicle(ctx context.Context, status models.VehicleCurrentStatus) (models.VehicleCurrentStatus, error) {
	const query = `
		INSERT INTO vehicle_current_status (vehicle_id, soc, battery_temp, last_kwh_delivered_dc, last_seen, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (vehicle_id) DO UPDATE SET
			soc = EXCLUDED.soc,
			battery_temp = EXCLUDED.battery_temp,
			last_kwh_delivered_dc = EXCLUDED.last_kwh_delivered_dc,
			last_seen = EXCLUDED.last_seen,
			updated_at = NOW()
		RETURNING updated_at
	`
	err := r.db.QueryRowContext(ctx, query,
		status.VehicleID,
		status.StateOfCharge,
		status.BatteryTempC,
		status.LastDCEnergyDeliveredKWh,
		status.LastSeen,
	).Scan(&status.UpdatedAt)
	if err != nil {
		return models.VehicleCurrentStatus{}, err
	}
	status.UpdatedAt = status.UpdatedAt.UTC()
	return status, nil
}

// UpsertMeter overwrites the meter row regardless of reading timestamp ordering.
func (r *CurrentStatusRepo) UpsertMeter(ctx context.Context, status models.MeterCurrentStatus) (models.MeterCurrentStatus, error) {
	const query = `
		INSERT INTO meter_current_status (meter_id, last_kwh_consumed_ac, last_voltage, last_seen, updated_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (meter_id) DO UPDATE SET
			last_kwh_consumed_ac = EXCLUDED.last_kwh_consumed_ac,
			last_voltage = EXCLUDED.last_voltage,
			last_seen = EXCLUDED.last_seen,
			updated_at = NOW()
		RETURNING updated_at
	`
	err := r.db.QueryRowContext(ctx, query,
		status.MeterID,
		status.LastACEnergyConsumedKWh,
		status.LastVoltage,
		status.LastSeen,
	).Scan(&status.UpdatedAt)
	if err != nil {
		return models.MeterCurrentStatus{}, err
	}
	status.UpdatedAt = status.UpdatedAt.UTC()
	return status, nil
}

// GetVehicle returns the current row or ErrNotFound.
func (r *CurrentStatusRepo) GetVehicle(ctx context.Context, vehicleID string) (*models.VehicleCurrentStatus, error) {
	const query = `
		SELECT vehicle_id, soc, battery_temp, last_kwh_delivered_dc, last_seen, updated_at
		FROM vehicle_current_status
		WHERE vehicle_id = $1
	`
	var s models.VehicleCurrentStatus
	err := r.db.QueryRowContext(ctx, query, vehicleID).Scan(
		&s.VehicleID,
		&s.StateOfCharge,
		&s.BatteryTempC,
		&s.LastDCEnergyDeliveredKWh,
		&s.LastSeen,
		&s.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	s.LastSeen = s.LastSeen.UTC()
	s.UpdatedAt = s.UpdatedAt.UTC()
	return &s, nil
}

// GetMeter returns the current row or ErrNotFound.
func (r *CurrentStatusRepo) GetMeter(ctx context.Context, meterID string) (*models.MeterCurrentStatus, error) {
	const query = `
		SELECT meter_id, last_kwh_consumed_ac, last_voltage, last_seen, updated_at
		FROM meter_current_status
		WHERE meter_id = $1
	`
	var s models.MeterCurrentStatus
	err := r.db.QueryRowContext(ctx, query, meterID).Scan(
		&s.MeterID,
		&s.LastACEnergyConsumedKWh,
		&s.LastVoltage,
		&s.LastSeen,
		&s.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	s.LastSeen = s.LastSeen.UTC()
	s.UpdatedAt = s.UpdatedAt.UTC()
	return &s, nil
}
