package repository

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chargelens/backend/libs/db"
	"chargelens/backend/services/telemetry-service/internal/models"
)

// openTestDB connects to TELEMETRY_TEST_POSTGRES_DSN or skips.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	dsn := os.Getenv("TELEMETRY_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TELEMETRY_TEST_POSTGRES_DSN not set")
	}
	sqlDB, err := db.NewPostgresDB(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, db.Migrate(context.Background(), sqlDB, Migrations...))
	// Migrations are idempotent.
	require.NoError(t, db.Migrate(context.Background(), sqlDB, Migrations...))
	return sqlDB
}

func TestPostgresHistoryRange(t *testing.T) {
	sqlDB := openTestDB(t)
	ctx := context.Background()
	repo := NewVehicleHistoryRepo(sqlDB)
	vehicleID := "v-" + uuid.NewString()
	base := time.Now().UTC().Truncate(time.Second)

	for _, offset := range []time.Duration{0, time.Minute, 2 * time.Minute} {
		r := models.VehicleReading{VehicleID: vehicleID, StateOfCharge: 50, DCEnergyDeliveredKWh: 1, BatteryTempC: 20, Timestamp: base.Add(offset)}
		require.NoError(t, repo.Append(ctx, &r))
		assert.NotZero(t, r.ID)
	}

	got, err := repo.Range(ctx, vehicleID, base, base.Add(time.Minute))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.True(t, got[0].Timestamp.Equal(base))
	assert.True(t, got[1].Timestamp.Equal(base.Add(time.Minute)))

	meters := NewMeterHistoryRepo(sqlDB)
	none, err := meters.Range(ctx, vehicleID, base, base.Add(time.Hour))
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestPostgresCurrentStatus(t *testing.T) {
	sqlDB := openTestDB(t)
	ctx := context.Background()
	repo := NewCurrentStatusRepo(sqlDB)
	meterID := "m-" + uuid.NewString()

	_, err := repo.GetMeter(ctx, meterID)
	require.ErrorIs(t, err, ErrNotFound)

	seen := time.Now().UTC().Truncate(time.Second)
	_, err = repo.UpsertMeter(ctx, models.MeterCurrentStatus{MeterID: meterID, LastACEnergyConsumedKWh: 1, LastVoltage: 230, LastSeen: seen})
	require.NoError(t, err)
	saved, err := repo.UpsertMeter(ctx, models.MeterCurrentStatus{MeterID: meterID, LastACEnergyConsumedKWh: 2, LastVoltage: 231, LastSeen: seen.Add(-time.Hour)})
	require.NoError(t, err)
	assert.False(t, saved.UpdatedAt.IsZero())

	got, err := repo.GetMeter(ctx, meterID)
	require.NoError(t, err)
	assert.InDelta(t, 2.0, got.LastACEnergyConsumedKWh, 1e-9)
	assert.True(t, got.LastSeen.Equal(seen.Add(-time.Hour)))
}

func TestPostgresMappingUpsert(t *testing.T) {
	sqlDB := openTestDB(t)
	ctx := context.Background()
	repo := NewMappingRepo(sqlDB)
	vehicleID := "v-" + uuid.NewString()

	first, err := repo.Upsert(ctx, vehicleID, "m-1")
	require.NoError(t, err)
	second, err := repo.Upsert(ctx, vehicleID, "m-1")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.True(t, first.CreatedAt.Equal(second.CreatedAt))

	_, err = repo.Upsert(ctx, vehicleID, "m-2")
	require.NoError(t, err)
	list, err := repo.ListByVehicle(ctx, vehicleID)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}
