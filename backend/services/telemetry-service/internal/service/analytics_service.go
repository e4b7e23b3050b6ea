package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"chargelens/backend/services/telemetry-service/internal/models"
	"chargelens/backend/services/telemetry-service/internal/repository"
)

// Analytics defaults.
const (
	DefaultLookback            = 24 * time.Hour
	DefaultMatchTolerance      = 5 * time.Minute
	DefaultEfficiencyThreshold = 0.85

	maxEfficiencyThreshold = 10
)

// PerformanceOptions tunes one performance query. Zero fields take the service defaults.
type PerformanceOptions struct {
	Lookback            time.Duration
	MatchTolerance      time.Duration
	EfficiencyThreshold float64
}

// DefaultPerformanceOptions returns 24h lookback, 5m tolerance and a 0.85 threshold.
func DefaultPerformanceOptions() PerformanceOptions {
	return PerformanceOptions{
		Lookback:            DefaultLookback,
		MatchTolerance:      DefaultMatchTolerance,
		EfficiencyThreshold: DefaultEfficiencyThreshold,
	}
}

func (o PerformanceOptions) withDefaults(d PerformanceOptions) PerformanceOptions {
	if o.Lookback == 0 {
		o.Lookback = d.Lookback
	}
	if o.MatchTolerance == 0 {
		o.MatchTolerance = d.MatchTolerance
	}
	if o.EfficiencyThreshold == 0 {
		o.EfficiencyThreshold = d.EfficiencyThreshold
	}
	return o
}

func (o PerformanceOptions) validate() error {
	var fe fieldErrors
	if o.Lookback <= 0 {
		fe.add("lookback", "must be a positive duration")
	}
	if o.MatchTolerance <= 0 {
		fe.add("tolerance", "must be a positive duration")
	}
	if !finite(o.EfficiencyThreshold) || o.EfficiencyThreshold <= 0 || o.EfficiencyThreshold > maxEfficiencyThreshold {
		fe.add("threshold", fmt.Sprintf("must be within (0, %d]", maxEfficiencyThreshold))
	}
	return fe.err()
}

// AnalyticsService serves current status, history and efficiency reports.
type AnalyticsService struct {
	vehicleHistory repository.VehicleHistoryRepository
	meterHistory   repository.MeterHistoryRepository
	statuses       repository.CurrentStatusStore
	mappings       *MappingRegistry
	defaults       PerformanceOptions
	now            func() time.Time
	logger         *zap.Logger
}

// NewAnalyticsService builds service.
func NewAnalyticsService(
	vehicleHistory repository.VehicleHistoryRepository,
	meterHistory repository.MeterHistoryRepository,
	statuses repository.CurrentStatusStore,
	mappings *MappingRegistry,
	defaults PerformanceOptions,
	logger *zap.Logger,
) *AnalyticsService {
	return &AnalyticsService{
		vehicleHistory: vehicleHistory,
		meterHistory:   meterHistory,
		statuses:       statuses,
		mappings:       mappings,
		defaults:       defaults.withDefaults(DefaultPerformanceOptions()),
		now:            func() time.Time { return time.Now().UTC() },
		logger:         logger,
	}
}

// Defaults returns the options applied to zero fields of a query.
func (s *AnalyticsService) Defaults() PerformanceOptions {
	return s.defaults
}

// GetPerformance correlates the vehicle's history in [now-lookback, now] with its mapped
// meters and reports the DC/AC efficiency. No vehicle readings in the window is ErrNotFound;
// no mapped meters is a valid report with zero AC energy.
func (s *AnalyticsService) GetPerformance(ctx context.Context, vehicleID string, opts PerformanceOptions) (*models.PerformanceReport, error) {
	vehicleID = strings.TrimSpace(vehicleID)
	if vehicleID == "" {
		return nil, &ValidationError{Fields: []FieldError{{Field: "vehicleId", Reason: "must be a non-empty string"}}}
	}
	opts = opts.withDefaults(s.defaults)
	if err := opts.validate(); err != nil {
		return nil, err
	}

	windowEnd := s.now()
	windowStart := windowEnd.Add(-opts.Lookback)

	vehicleReadings, err := s.vehicleHistory.Range(ctx, vehicleID, windowStart, windowEnd)
	if err != nil {
		return nil, storeFailure("load vehicle history", err)
	}
	if len(vehicleReadings) == 0 {
		return nil, fmt.Errorf("%w: no telemetry data for vehicle %s in the last %s", ErrNotFound, vehicleID, opts.Lookback)
	}

	meterIDs, err := s.mappings.MetersForVehicle(ctx, vehicleID)
	if err != nil {
		return nil, err
	}

	meterReadings, err := s.loadMeterReadings(ctx, meterIDs, vehicleReadings, opts.MatchTolerance)
	if err != nil {
		return nil, err
	}

	c := Correlate(vehicleReadings, meterReadings, opts.MatchTolerance)
	report := &models.PerformanceReport{
		VehicleID:            vehicleID,
		TotalDCKWh:           c.TotalDCKWh,
		TotalACKWh:           c.TotalACKWh,
		EfficiencyRatio:      c.EfficiencyRatio(),
		AvgBatteryTempC:      c.AvgBatteryTempC(),
		RecordCount:          c.RecordCount,
		Alert:                c.Alert(opts.EfficiencyThreshold),
		MeterIDs:             meterIDs,
		MatchedMeterReadings: c.MatchedPairs,
		WindowStart:          windowStart,
		WindowEnd:            windowEnd,
	}
	if report.Alert != nil {
		s.logger.Warn("low charging efficiency",
			zap.String("vehicle_id", vehicleID),
			zap.Float64("efficiency_ratio", report.EfficiencyRatio),
			zap.Float64("threshold", opts.EfficiencyThreshold),
			zap.Strings("meter_ids", meterIDs),
		)
	}
	return report, nil
}

// loadMeterReadings fetches, per mapped meter and concurrently, only the readings that can
// fall within tolerance of some vehicle reading.
func (s *AnalyticsService) loadMeterReadings(
	ctx context.Context,
	meterIDs []string,
	vehicleReadings []models.VehicleReading,
	tolerance time.Duration,
) ([]models.MeterReading, error) {
	if len(meterIDs) == 0 {
		return nil, nil
	}

	first, last := vehicleReadings[0].Timestamp, vehicleReadings[0].Timestamp
	for _, v := range vehicleReadings[1:] {
		if v.Timestamp.Before(first) {
			first = v.Timestamp
		}
		if v.Timestamp.After(last) {
			last = v.Timestamp
		}
	}
	from, to := first.Add(-tolerance), last.Add(tolerance)

	perMeter := make([][]models.MeterReading, len(meterIDs))
	g, gctx := errgroup.WithContext(ctx)
	for i, meterID := range meterIDs {
		i, meterID := i, meterID
		g.Go(func() error {
			readings, err := s.meterHistory.Range(gctx, meterID, from, to)
			if err != nil {
				return storeFailure("load meter history "+meterID, err)
			}
			perMeter[i] = readings
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var all []models.MeterReading
	for _, readings := range perMeter {
		all = append(all, readings...)
	}
	return all, nil
}

// GetVehicleStatus is a point lookup against the entity store.
func (s *AnalyticsService) GetVehicleStatus(ctx context.Context, vehicleID string) (*models.VehicleCurrentStatus, error) {
	vehicleID = strings.TrimSpace(vehicleID)
	if vehicleID == "" {
		return nil, &ValidationError{Fields: []FieldError{{Field: "vehicleId", Reason: "must be a non-empty string"}}}
	}
	status, err := s.statuses.GetVehicle(ctx, vehicleID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("%w: no current status found for vehicle %s", ErrNotFound, vehicleID)
	}
	if err != nil {
		return nil, storeFailure("get vehicle status", err)
	}
	return status, nil
}

// GetMeterStatus is a point lookup against the entity store.
func (s *AnalyticsService) GetMeterStatus(ctx context.Context, meterID string) (*models.MeterCurrentStatus, error) {
	meterID = strings.TrimSpace(meterID)
	if meterID == "" {
		return nil, &ValidationError{Fields: []FieldError{{Field: "meterId", Reason: "must be a non-empty string"}}}
	}
	status, err := s.statuses.GetMeter(ctx, meterID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("%w: no current status found for meter %s", ErrNotFound, meterID)
	}
	if err != nil {
		return nil, storeFailure("get meter status", err)
	}
	return status, nil
}

// VehicleHistory returns the vehicle's readings in [from, to]. Zero bounds default to the
// lookback window ending now.
func (s *AnalyticsService) VehicleHistory(ctx context.Context, vehicleID string, from, to time.Time) ([]models.VehicleReading, error) {
	vehicleID = strings.TrimSpace(vehicleID)
	from, to, err := s.historyWindow("vehicleId", vehicleID, from, to)
	if err != nil {
		return nil, err
	}
	readings, err := s.vehicleHistory.Range(ctx, vehicleID, from, to)
	if err != nil {
		return nil, storeFailure("load vehicle history", err)
	}
	if readings == nil {
		readings = []models.VehicleReading{}
	}
	return readings, nil
}

// MeterHistory returns the meter's readings in [from, to]. Zero bounds default to the
// lookback window ending now.
func (s *AnalyticsService) MeterHistory(ctx context.Context, meterID string, from, to time.Time) ([]models.MeterReading, error) {
	meterID = strings.TrimSpace(meterID)
	from, to, err := s.historyWindow("meterId", meterID, from, to)
	if err != nil {
		return nil, err
	}
	readings, err := s.meterHistory.Range(ctx, meterID, from, to)
	if err != nil {
		return nil, storeFailure("load meter history", err)
	}
	if readings == nil {
		readings = []models.MeterReading{}
	}
	return readings, nil
}

func (s *AnalyticsService) historyWindow(idField, id string, from, to time.Time) (time.Time, time.Time, error) {
	var fe fieldErrors
	if id == "" {
		fe.add(idField, "must be a non-empty string")
	}
	if to.IsZero() {
		to = s.now()
	}
	if from.IsZero() {
		from = to.Add(-s.defaults.Lookback)
	}
	if from.After(to) {
		fe.add("from", "must not be after to")
	}
	if err := fe.err(); err != nil {
		return time.Time{}, time.Time{}, err
	}
	return from.UTC(), to.UTC(), nil
}
