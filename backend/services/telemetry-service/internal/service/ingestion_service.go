package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"chargelens/backend/services/telemetry-service/internal/models"
	"chargelens/backend/services/telemetry-service/internal/repository"
)

// Ingest result statuses.
const (
	StatusVehicleSaved      = "vehicle data saved"
	StatusMeterSaved        = "meter data saved"
	StatusMappingRegistered = "mapping registered"
)

// StatusPublisher receives every successful current-status upsert.
type StatusPublisher interface {
	PublishStatus(event models.StatusEvent)
}

// IngestResult is returned for a successfully stored reading.
type IngestResult struct {
	Status    string    `json:"status"`
	Kind      string    `json:"-"`
	VehicleID string    `json:"vehicleId,omitempty"`
	MeterID   string    `json:"meterId,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// EntityID returns the identifier of the stored entity.
func (r *IngestResult) EntityID() string {
	if r.Kind == models.KindMeter {
		return r.MeterID
	}
	return r.VehicleID
}

// IngestionService routes readings to the history log and the entity store.
type IngestionService struct {
	vehicleHistory repository.VehicleHistoryRepository
	meterHistory   repository.MeterHistoryRepository
	statuses       repository.CurrentStatusStore
	publisher      StatusPublisher
	logger         *zap.Logger
}

// NewIngestionService builds service. publisher may be nil.
func NewIngestionService(
	vehicleHistory repository.VehicleHistoryRepository,
	meterHistory repository.MeterHistoryRepository,
	statuses repository.CurrentStatusStore,
	publisher StatusPublisher,
	logger *zap.Logger,
) *IngestionService {
	return &IngestionService{
		vehicleHistory: vehicleHistory,
		meterHistory:   meterHistory,
		statuses:       statuses,
		publisher:      publisher,
		logger:         logger,
	}
}

// Ingest classifies an untyped payload and stores it on the matching path.
func (s *IngestionService) Ingest(ctx context.Context, raw map[string]interface{}) (*IngestResult, error) {
	payload, err := ClassifyPayload(raw)
	if err != nil {
		return nil, err
	}
	switch p := payload.(type) {
	case VehiclePayload:
		return s.IngestVehicle(ctx, p.Reading)
	case MeterPayload:
		return s.IngestMeter(ctx, p.Reading)
	default:
		return nil, ErrInvalidPayload
	}
}

// IngestVehicle appends the reading to history, then overwrites the vehicle's current status.
// A failed upsert fails the call; the history row stays.
func (s *IngestionService) IngestVehicle(ctx context.Context, reading models.VehicleReading) (*IngestResult, error) {
	if err := ValidateVehicleReading(reading); err != nil {
		return nil, err
	}
	reading.Timestamp = reading.Timestamp.UTC()

	if err := s.vehicleHistory.Append(ctx, &reading); err != nil {
		return nil, storeFailure("append vehicle history", err)
	}

	status, err := s.statuses.UpsertVehicle(ctx, reading.Status(time.Now().UTC()))
	if err != nil {
		s.logger.Warn("vehicle history appended but current status upsert failed",
			zap.String("vehicle_id", reading.VehicleID),
			zap.Int64("history_id", reading.ID),
			zap.Error(err),
		)
		return nil, storeFailure("upsert vehicle status", err)
	}
	s.publish(models.StatusEvent{Kind: models.KindVehicle, EntityID: reading.VehicleID, Status: status})

	return &IngestResult{
		Status:    StatusVehicleSaved,
		Kind:      models.KindVehicle,
		VehicleID: reading.VehicleID,
		Timestamp: reading.Timestamp,
	}, nil
}

// IngestMeter appends the reading to history, then overwrites the meter's current status.
// A failed upsert fails the call; the history row stays.
func (s *IngestionService) IngestMeter(ctx context.Context, reading models.MeterReading) (*IngestResult, error) {
	if err := ValidateMeterReading(reading); err != nil {
		return nil, err
	}
	reading.Timestamp = reading.Timestamp.UTC()

	if err := s.meterHistory.Append(ctx, &reading); err != nil {
		return nil, storeFailure("append meter history", err)
	}

	status, err := s.statuses.UpsertMeter(ctx, reading.Status(time.Now().UTC()))
	if err != nil {
		s.logger.Warn("meter history appended but current status upsert failed",
			zap.String("meter_id", reading.MeterID),
			zap.Int64("history_id", reading.ID),
			zap.Error(err),
		)
		return nil, storeFailure("upsert meter status", err)
	}
	s.publish(models.StatusEvent{Kind: models.KindMeter, EntityID: reading.MeterID, Status: status})

	return &IngestResult{
		Status:    StatusMeterSaved,
		Kind:      models.KindMeter,
		MeterID:   reading.MeterID,
		Timestamp: reading.Timestamp,
	}, nil
}

func (s *IngestionService) publish(event models.StatusEvent) {
	if s.publisher == nil {
		return
	}
	s.publisher.PublishStatus(event)
}

// IsPartialWrite reports whether err came from a status upsert that followed a stored history row.
func IsPartialWrite(err error) bool {
	var storeErr *StoreError
	if !errors.As(err, &storeErr) {
		return false
	}
	return storeErr.Op == "upsert vehicle status" || storeErr.Op == "upsert meter status"
}
