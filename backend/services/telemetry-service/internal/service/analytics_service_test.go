package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedPair(t *testing.T, f *fixture, dc, ac float64, meterOffset time.Duration) {
	t.Helper()
	ctx := context.Background()
	_, err := f.registry.RegisterMapping(ctx, "v-1", "m-1")
	require.NoError(t, err)
	_, err = f.ingest.IngestVehicle(ctx, f.vehicleAt("v-1", time.Hour, dc, 35))
	require.NoError(t, err)
	_, err = f.ingest.IngestMeter(ctx, f.meterAt("m-1", time.Hour-meterOffset, ac))
	require.NoError(t, err)
}

func TestGetPerformanceLowEfficiency(t *testing.T) {
	f := newFixture()
	seedPair(t, f, 120, 150, time.Minute)

	report, err := f.analytics.GetPerformance(context.Background(), "v-1", PerformanceOptions{})
	require.NoError(t, err)

	assert.Equal(t, "v-1", report.VehicleID)
	assert.InDelta(t, 120.0, report.TotalDCKWh, 1e-9)
	assert.InDelta(t, 150.0, report.TotalACKWh, 1e-9)
	assert.InDelta(t, 0.8, report.EfficiencyRatio, 1e-9)
	assert.InDelta(t, 35.0, report.AvgBatteryTempC, 1e-9)
	assert.Equal(t, 1, report.RecordCount)
	assert.Equal(t, 1, report.MatchedMeterReadings)
	assert.Equal(t, []string{"m-1"}, report.MeterIDs)
	require.NotNil(t, report.Alert)
	assert.Contains(t, *report.Alert, "efficiency below 85%")
	assert.True(t, report.WindowEnd.Equal(f.now))
	assert.True(t, report.WindowStart.Equal(f.now.Add(-DefaultLookback)))
}

func TestGetPerformanceAtThreshold(t *testing.T) {
	f := newFixture()
	seedPair(t, f, 127.5, 150, time.Minute)

	report, err := f.analytics.GetPerformance(context.Background(), "v-1", PerformanceOptions{})
	require.NoError(t, err)
	assert.InDelta(t, 0.85, report.EfficiencyRatio, 1e-9)
	assert.Nil(t, report.Alert)
}

func TestGetPerformanceToleranceWindow(t *testing.T) {
	f := newFixture()
	seedPair(t, f, 120, 150, 4*time.Minute)

	report, err := f.analytics.GetPerformance(context.Background(), "v-1", PerformanceOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, report.MatchedMeterReadings)

	f = newFixture()
	seedPair(t, f, 120, 150, 6*time.Minute)

	report, err = f.analytics.GetPerformance(context.Background(), "v-1", PerformanceOptions{})
	require.NoError(t, err)
	assert.Zero(t, report.MatchedMeterReadings)
	assert.Zero(t, report.TotalACKWh)
	assert.Zero(t, report.EfficiencyRatio)
	assert.Nil(t, report.Alert)

	report, err = f.analytics.GetPerformance(context.Background(), "v-1", PerformanceOptions{MatchTolerance: 10 * time.Minute})
	require.NoError(t, err)
	assert.Equal(t, 1, report.MatchedMeterReadings)
}

func TestGetPerformanceMatchesReadingsAroundVehicleReading(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	_, err := f.registry.RegisterMapping(ctx, "v-1", "m-1")
	require.NoError(t, err)
	_, err = f.ingest.IngestVehicle(ctx, f.vehicleAt("v-1", time.Hour, 40, 30))
	require.NoError(t, err)

	// -2m and +2m sit inside the window, +6m does not.
	for offset, ac := range map[time.Duration]float64{
		-2 * time.Minute: 20,
		2 * time.Minute:  25,
		6 * time.Minute:  100,
	} {
		_, err = f.ingest.IngestMeter(ctx, f.meterAt("m-1", time.Hour-offset, ac))
		require.NoError(t, err)
	}

	report, err := f.analytics.GetPerformance(ctx, "v-1", PerformanceOptions{})
	require.NoError(t, err)
	assert.Equal(t, 2, report.MatchedMeterReadings)
	assert.InDelta(t, 45.0, report.TotalACKWh, 1e-9)
	assert.InDelta(t, 40.0, report.TotalDCKWh, 1e-9)
	assert.InDelta(t, 0.8889, report.EfficiencyRatio, 1e-9)
	assert.Nil(t, report.Alert)
}

func TestGetPerformanceWithoutMapping(t *testing.T) {
	f := newFixture()
	_, err := f.ingest.IngestVehicle(context.Background(), f.vehicleAt("v-1", time.Hour, 50, 30))
	require.NoError(t, err)
	_, err = f.ingest.IngestMeter(context.Background(), f.meterAt("m-1", time.Hour, 60))
	require.NoError(t, err)

	report, err := f.analytics.GetPerformance(context.Background(), "v-1", PerformanceOptions{})
	require.NoError(t, err)
	assert.InDelta(t, 50.0, report.TotalDCKWh, 1e-9)
	assert.Zero(t, report.TotalACKWh)
	assert.Zero(t, report.EfficiencyRatio)
	assert.Nil(t, report.Alert)
	assert.NotNil(t, report.MeterIDs)
	assert.Empty(t, report.MeterIDs)
}

func TestGetPerformanceEmptyWindow(t *testing.T) {
	f := newFixture()
	_, err := f.ingest.IngestVehicle(context.Background(), f.vehicleAt("v-1", 30*time.Hour, 50, 30))
	require.NoError(t, err)

	_, err = f.analytics.GetPerformance(context.Background(), "v-1", PerformanceOptions{})
	require.ErrorIs(t, err, ErrNotFound)

	_, err = f.analytics.GetPerformance(context.Background(), "never-seen", PerformanceOptions{})
	require.ErrorIs(t, err, ErrNotFound)

	report, err := f.analytics.GetPerformance(context.Background(), "v-1", PerformanceOptions{Lookback: 48 * time.Hour})
	require.NoError(t, err)
	assert.Equal(t, 1, report.RecordCount)
}

func TestGetPerformanceIgnoresReadingsOutsideTheMatchRange(t *testing.T) {
	f := newFixture()
	seedPair(t, f, 100, 100, 0)
	// Far from any vehicle reading; must not be fetched into the join.
	_, err := f.ingest.IngestMeter(context.Background(), f.meterAt("m-1", 5*time.Hour, 500))
	require.NoError(t, err)

	report, err := f.analytics.GetPerformance(context.Background(), "v-1", PerformanceOptions{})
	require.NoError(t, err)
	assert.InDelta(t, 100.0, report.TotalACKWh, 1e-9)
	assert.InDelta(t, 1.0, report.EfficiencyRatio, 1e-9)
}

func TestGetPerformanceOptionsValidation(t *testing.T) {
	f := newFixture()

	_, err := f.analytics.GetPerformance(context.Background(), "v-1", PerformanceOptions{
		Lookback:            -time.Hour,
		MatchTolerance:      -time.Minute,
		EfficiencyThreshold: 11,
	})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []string{"lookback", "tolerance", "threshold"}, verr.FieldNames())

	_, err = f.analytics.GetPerformance(context.Background(), " ", PerformanceOptions{})
	require.ErrorAs(t, err, &verr)
}

func TestGetPerformanceCustomThreshold(t *testing.T) {
	f := newFixture()
	seedPair(t, f, 120, 150, 0)

	report, err := f.analytics.GetPerformance(context.Background(), "v-1", PerformanceOptions{EfficiencyThreshold: 0.75})
	require.NoError(t, err)
	assert.Nil(t, report.Alert)
}

func TestGetPerformanceStoreUnavailable(t *testing.T) {
	f := newFixture()
	f.faults.rangeErr = errors.New("read timeout")

	_, err := f.analytics.GetPerformance(context.Background(), "v-1", PerformanceOptions{})
	require.ErrorIs(t, err, ErrStoreUnavailable)
}

func TestStatusLookups(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.analytics.GetVehicleStatus(ctx, "v-404")
	require.ErrorIs(t, err, ErrNotFound)
	_, err = f.analytics.GetMeterStatus(ctx, "m-404")
	require.ErrorIs(t, err, ErrNotFound)

	f.faults.getErr = errors.New("conn reset")
	_, err = f.analytics.GetVehicleStatus(ctx, "v-1")
	require.ErrorIs(t, err, ErrStoreUnavailable)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestHistoryWindow(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	_, err := f.ingest.IngestVehicle(ctx, f.vehicleAt("v-1", 3*time.Hour, 1, 20))
	require.NoError(t, err)
	_, err = f.ingest.IngestVehicle(ctx, f.vehicleAt("v-1", time.Hour, 1, 20))
	require.NoError(t, err)

	readings, err := f.analytics.VehicleHistory(ctx, "v-1", f.now.Add(-2*time.Hour), f.now)
	require.NoError(t, err)
	assert.Len(t, readings, 1)

	readings, err = f.analytics.VehicleHistory(ctx, "nobody", time.Time{}, time.Time{})
	require.NoError(t, err)
	assert.NotNil(t, readings)
	assert.Empty(t, readings)

	_, err = f.analytics.MeterHistory(ctx, "m-1", f.now, f.now.Add(-time.Hour))
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []string{"from"}, verr.FieldNames())
}
