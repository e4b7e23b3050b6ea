package repository

import (
	"context"
	"errors"
	"time"

	"chargelens/backend/services/telemetry-service/internal/models"
)

// ErrNotFound indicates the requested key has no row.
var ErrNotFound = errors.New("record not found")

// VehicleHistoryRepository is the append-only vehicle telemetry log.
type VehicleHistoryRepository interface {
	Append(ctx context.Context, reading *models.VehicleReading) error
	// Range returns readings with from <= timestamp <= to, oldest first.
	Range(ctx context.Context, vehicleID string, from, to time.Time) ([]models.VehicleReading, error)
}

// MeterHistoryRepository is the append-only meter telemetry log.
type MeterHistoryRepository interface {
	Append(ctx context.Context, reading *models.MeterReading) error
	// Range returns readings with from <= timestamp <= to, oldest first.
	Range(ctx context.Context, meterID string, from, to time.Time) ([]models.MeterReading, error)
}

// CurrentStatusStore keeps one overwritable row per vehicle and per meter.
// Upserts are atomic per key; the last completed write wins.
type CurrentStatusStore interface {
	UpsertVehicle(ctx context.Context, status models.VehicleCurrentStatus) (models.VehicleCurrentStatus, error)
	UpsertMeter(ctx context.Context, status models.MeterCurrentStatus) (models.MeterCurrentStatus, error)
	GetVehicle(ctx context.Context, vehicleID string) (*models.VehicleCurrentStatus, error)
	GetMeter(ctx context.Context, meterID string) (*models.MeterCurrentStatus, error)
}

// MappingRepository stores vehicle to meter associations.
type MappingRepository interface {
	// Upsert inserts the pair or returns the existing row unchanged.
	Upsert(ctx context.Context, vehicleID, meterID string) (*models.VehicleMeterMapping, error)
	ListByVehicle(ctx context.Context, vehicleID string) ([]models.VehicleMeterMapping, error)
}
