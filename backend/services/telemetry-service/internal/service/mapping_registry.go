package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"chargelens/backend/services/telemetry-service/internal/models"
	"chargelens/backend/services/telemetry-service/internal/repository"
)

// MappingResult confirms a registered pair.
type MappingResult struct {
	Status    string `json:"status"`
	VehicleID string `json:"vehicleId"`
	MeterID   string `json:"meterId"`
}

// MappingRegistry declares which meters feed which vehicles.
type MappingRegistry struct {
	repo   repository.MappingRepository
	logger *zap.Logger
}

// NewMappingRegistry returns registry.
func NewMappingRegistry(repo repository.MappingRepository, logger *zap.Logger) *MappingRegistry {
	return &MappingRegistry{repo: repo, logger: logger}
}

// RegisterMapping is idempotent. Neither id needs prior telemetry.
func (r *MappingRegistry) RegisterMapping(ctx context.Context, vehicleID, meterID string) (*MappingResult, error) {
	vehicleID = strings.TrimSpace(vehicleID)
	meterID = strings.TrimSpace(meterID)

	var fe fieldErrors
	if vehicleID == "" {
		fe.add("vehicleId", "must be a non-empty string")
	}
	if meterID == "" {
		fe.add("meterId", "must be a non-empty string")
	}
	if err := fe.err(); err != nil {
		return nil, err
	}

	mapping, err := r.repo.Upsert(ctx, vehicleID, meterID)
	if err != nil {
		return nil, storeFailure("upsert mapping", err)
	}
	r.logger.Debug("mapping registered",
		zap.String("vehicle_id", mapping.VehicleID),
		zap.String("meter_id", mapping.MeterID),
		zap.Int64("mapping_id", mapping.ID),
	)

	return &MappingResult{
		Status:    StatusMappingRegistered,
		VehicleID: vehicleID,
		MeterID:   meterID,
	}, nil
}

// Mappings lists the vehicle's mapping rows.
func (r *MappingRegistry) Mappings(ctx context.Context, vehicleID string) ([]models.VehicleMeterMapping, error) {
	vehicleID = strings.TrimSpace(vehicleID)
	if vehicleID == "" {
		return nil, &ValidationError{Fields: []FieldError{{Field: "vehicleId", Reason: "must be a non-empty string"}}}
	}
	mappings, err := r.repo.ListByVehicle(ctx, vehicleID)
	if err != nil {
		return nil, storeFailure("list mappings", err)
	}
	if mappings == nil {
		mappings = []models.VehicleMeterMapping{}
	}
	return mappings, nil
}

// MetersForVehicle resolves the distinct meter ids mapped to the vehicle. Possibly empty.
func (r *MappingRegistry) MetersForVehicle(ctx context.Context, vehicleID string) ([]string, error) {
	mappings, err := r.repo.ListByVehicle(ctx, vehicleID)
	if err != nil {
		return nil, storeFailure("resolve meters", err)
	}
	seen := make(map[string]struct{}, len(mappings))
	meters := make([]string, 0, len(mappings))
	for _, m := range mappings {
		if _, dup := seen[m.MeterID]; dup {
			continue
		}
		seen[m.MeterID] = struct{}{}
		meters = append(meters, m.MeterID)
	}
	return meters, nil
}
