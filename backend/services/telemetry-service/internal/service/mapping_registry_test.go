package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterMappingIdempotent(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		res, err := f.registry.RegisterMapping(ctx, " v-1 ", "m-1")
		require.NoError(t, err)
		assert.Equal(t, StatusMappingRegistered, res.Status)
		assert.Equal(t, "v-1", res.VehicleID)
	}

	mappings, err := f.registry.Mappings(ctx, "v-1")
	require.NoError(t, err)
	assert.Len(t, mappings, 1)

	meters, err := f.registry.MetersForVehicle(ctx, "v-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"m-1"}, meters)
}

func TestRegisterMappingFanIn(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.registry.RegisterMapping(ctx, "v-1", "m-1")
	require.NoError(t, err)
	_, err = f.registry.RegisterMapping(ctx, "v-1", "m-2")
	require.NoError(t, err)
	_, err = f.registry.RegisterMapping(ctx, "v-2", "m-1")
	require.NoError(t, err)

	meters, err := f.registry.MetersForVehicle(ctx, "v-1")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"m-1", "m-2"}, meters)
}

func TestRegisterMappingValidation(t *testing.T) {
	f := newFixture()

	_, err := f.registry.RegisterMapping(context.Background(), "", "  ")
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []string{"vehicleId", "meterId"}, verr.FieldNames())
	assert.Zero(t, f.faults.mappingUpserts)
}

func TestMappingsEmptyAndFailures(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	mappings, err := f.registry.Mappings(ctx, "unknown")
	require.NoError(t, err)
	assert.NotNil(t, mappings)
	assert.Empty(t, mappings)

	f.faults.mappingErr = errors.New("timeout")
	_, err = f.registry.RegisterMapping(ctx, "v-1", "m-1")
	require.ErrorIs(t, err, ErrStoreUnavailable)
	_, err = f.registry.MetersForVehicle(ctx, "v-1")
	require.ErrorIs(t, err, ErrStoreUnavailable)
}
