package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"chargelens/backend/services/telemetry-service/internal/models"
	"chargelens/backend/services/telemetry-service/internal/repository"
	"chargelens/backend/services/telemetry-service/internal/repository/memory"
)

// faults switches store failures on for the wrapped memory store and counts writes that got through.
type faults struct {
	mu             sync.Mutex
	appendErr      error
	rangeErr       error
	upsertErr      error
	getErr         error
	mappingErr     error
	vehicleAppends int
	meterAppends   int
	mappingUpserts int
}

func (f *faults) fail(pick func(*faults) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return pick(f)
}

func (f *faults) count(bump func(*faults)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	bump(f)
}

func (f *faults) appends() (vehicles, meters int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.vehicleAppends, f.meterAppends
}

type faultyVehicleHistory struct {
	repository.VehicleHistoryRepository
	faults *faults
}

func (r faultyVehicleHistory) Append(ctx context.Context, reading *models.VehicleReading) error {
	if err := r.faults.fail(func(f *faults) error { return f.appendErr }); err != nil {
		return err
	}
	if err := r.VehicleHistoryRepository.Append(ctx, reading); err != nil {
		return err
	}
	r.faults.count(func(f *faults) { f.vehicleAppends++ })
	return nil
}

func (r faultyVehicleHistory) Range(ctx context.Context, vehicleID string, from, to time.Time) ([]models.VehicleReading, error) {
	if err := r.faults.fail(func(f *faults) error { return f.rangeErr }); err != nil {
		return nil, err
	}
	return r.VehicleHistoryRepository.Range(ctx, vehicleID, from, to)
}

type faultyMeterHistory struct {
	repository.MeterHistoryRepository
	faults *faults
}

func (r faultyMeterHistory) Append(ctx context.Context, reading *models.MeterReading) error {
	if err := r.faults.fail(func(f *faults) error { return f.appendErr }); err != nil {
		return err
	}
	if err := r.MeterHistoryRepository.Append(ctx, reading); err != nil {
		return err
	}
	r.faults.count(func(f *faults) { f.meterAppends++ })
	return nil
}

func (r faultyMeterHistory) Range(ctx context.Context, meterID string, from, to time.Time) ([]models.MeterReading, error) {
	if err := r.faults.fail(func(f *faults) error { return f.rangeErr }); err != nil {
		return nil, err
	}
	return r.MeterHistoryRepository.Range(ctx, meterID, from, to)
}

type faultyStatuses struct {
	repository.CurrentStatusStore
	faults *faults
}

func (s faultyStatuses) UpsertVehicle(ctx context.Context, status models.VehicleCurrentStatus) (models.VehicleCurrentStatus, error) {
	if err := s.faults.fail(func(f *faults) error { return f.upsertErr }); err != nil {
		return models.VehicleCurrentStatus{}, err
	}
	return s.CurrentStatusStore.UpsertVehicle(ctx, status)
}

func (s faultyStatuses) UpsertMeter(ctx context.Context, status models.MeterCurrentStatus) (models.MeterCurrentStatus, error) {
	if err := s.faults.fail(func(f *faults) error { return f.upsertErr }); err != nil {
		return models.MeterCurrentStatus{}, err
	}
	return s.CurrentStatusStore.UpsertMeter(ctx, status)
}

func (s faultyStatuses) GetVehicle(ctx context.Context, vehicleID string) (*models.VehicleCurrentStatus, error) {
	if err := s.faults.fail(func(f *faults) error { return f.getErr }); err != nil {
		return nil, err
	}
	return s.CurrentStatusStore.GetVehicle(ctx, vehicleID)
}

func (s faultyStatuses) GetMeter(ctx context.Context, meterID string) (*models.MeterCurrentStatus, error) {
	if err := s.faults.fail(func(f *faults) error { return f.getErr }); err != nil {
		return nil, err
	}
	return s.CurrentStatusStore.GetMeter(ctx, meterID)
}

type faultyMappings struct {
	repository.MappingRepository
	faults *faults
}

func (m faultyMappings) Upsert(ctx context.Context, vehicleID, meterID string) (*models.VehicleMeterMapping, error) {
	if err := m.faults.fail(func(f *faults) error { return f.mappingErr }); err != nil {
		return nil, err
	}
	row, err := m.MappingRepository.Upsert(ctx, vehicleID, meterID)
	if err != nil {
		return nil, err
	}
	m.faults.count(func(f *faults) { f.mappingUpserts++ })
	return row, nil
}

func (m faultyMappings) ListByVehicle(ctx context.Context, vehicleID string) ([]models.VehicleMeterMapping, error) {
	if err := m.faults.fail(func(f *faults) error { return f.mappingErr }); err != nil {
		return nil, err
	}
	return m.MappingRepository.ListByVehicle(ctx, vehicleID)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []models.StatusEvent
}

func (p *recordingPublisher) PublishStatus(event models.StatusEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

type fixture struct {
	store     *memory.Store
	faults    *faults
	publisher *recordingPublisher
	ingest    *IngestionService
	registry  *MappingRegistry
	analytics *AnalyticsService
	now       time.Time
}

func newFixture() *fixture {
	f := &fixture{
		store:     memory.NewStore(),
		faults:    &faults{},
		publisher: &recordingPublisher{},
		now:       time.Date(2026, 2, 9, 12, 0, 0, 0, time.UTC),
	}
	logger := zap.NewNop()
	vehicles := faultyVehicleHistory{VehicleHistoryRepository: f.store.VehicleHistory(), faults: f.faults}
	meters := faultyMeterHistory{MeterHistoryRepository: f.store.MeterHistory(), faults: f.faults}
	statuses := faultyStatuses{CurrentStatusStore: f.store, faults: f.faults}

	f.ingest = NewIngestionService(vehicles, meters, statuses, f.publisher, logger)
	f.registry = NewMappingRegistry(faultyMappings{MappingRepository: f.store, faults: f.faults}, logger)
	f.analytics = NewAnalyticsService(vehicles, meters, statuses, f.registry, DefaultPerformanceOptions(), logger)
	f.analytics.now = func() time.Time { return f.now }
	return f
}

func (f *fixture) vehicleAt(id string, ago time.Duration, dc, temp float64) models.VehicleReading {
	return models.VehicleReading{
		VehicleID:            id,
		StateOfCharge:        50,
		DCEnergyDeliveredKWh: dc,
		BatteryTempC:         temp,
		Timestamp:            f.now.Add(-ago),
	}
}

func (f *fixture) meterAt(id string, ago time.Duration, ac float64) models.MeterReading {
	return models.MeterReading{
		MeterID:             id,
		ACEnergyConsumedKWh: ac,
		Voltage:             230,
		Timestamp:           f.now.Add(-ago),
	}
}
