package repository

import (
	"context"
	"database/sql"

	"chargelens/backend/services/telemetry-service/internal/models"
)

// MappingRepo persists vehicle/meter associations.
type MappingRepo struct {
	db *sql.DB
}

// NewMappingRepo returns repository.
func NewMappingRepo(db *sql.DB) *MappingRepo {
	return &MappingRepo{db: db}
}

// Upsert registers the pair. A repeated pair returns the existing row, created_at untouched.
func (r *MappingRepo) Upsert(ctx context.Context, vehicleID, meterID string) (*models.VehicleMeterMapping, error) {
	const query = `
		INSERT INTO vehicle_meter_map (vehicle_id, meter_id, created_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (vehicle_id, meter_id) DO UPDATE SET
			vehicle_id = EXCLUDED.vehicle_id
		RETURNING id, created_at
	`
	m := &models.VehicleMeterMapping{VehicleID: vehicleID, MeterID: meterID}
	if err := r.db.QueryRowContext(ctx, query, vehicleID, meterID).Scan(&m.ID, &m.CreatedAt); err != nil {
		return nil, err
	}
	m.CreatedAt = m.CreatedAt.UTC()
	return m, nil
}

// ListByVehicle returns every mapping for the vehicle, oldest first.
func (r *MappingRepo) ListByVehicle(ctx context.Context, vehicleID string) ([]models.VehicleMeterMapping, error) {
	const query = `
		SELECT id, vehicle_id, meter_id, created_at
		FROM vehicle_meter_map
		WHERE vehicle_id = $1
		ORDER BY created_at ASC, id ASC
	`
	rows, err := r.db.QueryContext(ctx, query, vehicleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var mappings []models.VehicleMeterMapping
	for rows.Next() {
		var m models.VehicleMeterMapping
		if err := rows.Scan(&m.ID, &m.VehicleID, &m.MeterID, &m.CreatedAt); err != nil {
			return nil, err
		}
		m.CreatedAt = m.CreatedAt.UTC()
		mappings = append(mappings, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return mappings, nil
}
