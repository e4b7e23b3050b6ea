package redisstore

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"chargelens/backend/services/telemetry-service/internal/models"
	"chargelens/backend/services/telemetry-service/internal/repository"
)

// StatusChannel carries every current-status upsert as a JSON StatusEvent.
const StatusChannel = "telemetry:status"

// StatusStore is a Redis-backed entity store: one hash per entity, written with a single
// MULTI/EXEC so the overwrite and its announcement land together.
type StatusStore struct {
	client *redis.Client
	now    func() time.Time
}

// NewStatusStore returns redis-backed store.
func NewStatusStore(client *redis.Client) *StatusStore {
	return &StatusStore{
		client: client,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func vehicleKey(vehicleID string) string {
	return fmt.Sprintf("telemetry:vehicle:%s:status", vehicleID)
}

func meterKey(meterID string) string {
	return fmt.Sprintf("telemetry:meter:%s:status", meterID)
}

// UpsertVehicle overwrites the vehicle hash.
func (s *StatusStore) UpsertVehicle(ctx context.Context, status models.VehicleCurrentStatus) (models.VehicleCurrentStatus, error) {
	status.UpdatedAt = s.now()
	fields := map[string]interface{}{
		"vehicle_id":            status.VehicleID,
		"soc":                   status.StateOfCharge,
		"battery_temp":          status.BatteryTempC,
		"last_kwh_delivered_dc": status.LastDCEnergyDeliveredKWh,
		"last_seen":             status.LastSeen.UTC().Format(time.RFC3339Nano),
		"updated_at":            status.UpdatedAt.Format(time.RFC3339Nano),
	}
	event := models.StatusEvent{Kind: models.KindVehicle, EntityID: status.VehicleID, Status: status}
	if err := s.write(ctx, vehicleKey(status.VehicleID), fields, event); err != nil {
		return models.VehicleCurrentStatus{}, err
	}
	return status, nil
}

// UpsertMeter overwrites the meter hash.
func (s *StatusStore) UpsertMeter(ctx context.Context, status models.MeterCurrentStatus) (models.MeterCurrentStatus, error) {
	status.UpdatedAt = s.now()
	fields := map[string]interface{}{
		"meter_id":             status.MeterID,
		"last_kwh_consumed_ac": status.LastACEnergyConsumedKWh,
		"last_voltage":         status.LastVoltage,
		"last_seen":            status.LastSeen.UTC().Format(time.RFC3339Nano),
		"updated_at":           status.UpdatedAt.Format(time.RFC3339Nano),
	}
	event := models.StatusEvent{Kind: models.KindMeter, EntityID: status.MeterID, Status: status}
	if err := s.write(ctx, meterKey(status.MeterID), fields, event); err != nil {
		return models.MeterCurrentStatus{}, err
	}
	return status, nil
}

func (s *StatusStore) write(ctx context.Context, key string, fields map[string]interface{}, event models.StatusEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, key, fields)
	pipe.Publish(ctx, StatusChannel, payload)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis status upsert: %w", err)
	}
	return nil
}

// GetVehicle returns the cached vehicle status or repository.ErrNotFound.
func (s *StatusStore) GetVehicle(ctx context.Context, vehicleID string) (*models.VehicleCurrentStatus, error) {
	values, err := s.client.HGetAll(ctx, vehicleKey(vehicleID)).Result()
	if err != nil {
		return nil, err
	}
	if len(values) == 0 {
		return nil, repository.ErrNotFound
	}
	p := fieldParser{values: values}
	status := &models.VehicleCurrentStatus{
		VehicleID:                values["vehicle_id"],
		StateOfCharge:            p.float("soc"),
		BatteryTempC:             p.float("battery_temp"),
		LastDCEnergyDeliveredKWh: p.float("last_kwh_delivered_dc"),
		LastSeen:                 p.timestamp("last_seen"),
		UpdatedAt:                p.timestamp("updated_at"),
	}
	if p.err != nil {
		return nil, fmt.Errorf("decode vehicle status %s: %w", vehicleID, p.err)
	}
	return status, nil
}

// GetMeter returns the cached meter status or repository.ErrNotFound.
func (s *StatusStore) GetMeter(ctx context.Context, meterID string) (*models.MeterCurrentStatus, error) {
	values, err := s.client.HGetAll(ctx, meterKey(meterID)).Result()
	if err != nil {
		return nil, err
	}
	if len(values) == 0 {
		return nil, repository.ErrNotFound
	}
	p := fieldParser{values: values}
	status := &models.MeterCurrentStatus{
		MeterID:                 values["meter_id"],
		LastACEnergyConsumedKWh: p.float("last_kwh_consumed_ac"),
		LastVoltage:             p.float("last_voltage"),
		LastSeen:                p.timestamp("last_seen"),
		UpdatedAt:               p.timestamp("updated_at"),
	}
	if p.err != nil {
		return nil, fmt.Errorf("decode meter status %s: %w", meterID, p.err)
	}
	return status, nil
}

// fieldParser decodes hash fields and keeps the first error.
type fieldParser struct {
	values map[string]string
	err    error
}

func (p *fieldParser) float(field string) float64 {
	if p.err != nil {
		return 0
	}
	v, err := strconv.ParseFloat(p.values[field], 64)
	if err != nil {
		p.err = fmt.Errorf("field %s: %w", field, err)
	}
	return v
}

func (p *fieldParser) timestamp(field string) time.Time {
	if p.err != nil {
		return time.Time{}
	}
	v, err := time.Parse(time.RFC3339Nano, p.values[field])
	if err != nil {
		p.err = fmt.Errorf("field %s: %w", field, err)
	}
	return v.UTC()
}
