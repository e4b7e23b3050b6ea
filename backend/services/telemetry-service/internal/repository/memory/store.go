// Package memory is a process-local store for development runs and tests. Nothing survives a restart.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"chargelens/backend/services/telemetry-service/internal/models"
	"chargelens/backend/services/telemetry-service/internal/repository"
)

// Store implements every telemetry repository behind one mutex.
type Store struct {
	mu       sync.RWMutex
	nextID   int64
	vehicles []models.VehicleReading
	meters   []models.MeterReading
	vStatus  map[string]models.VehicleCurrentStatus
	mStatus  map[string]models.MeterCurrentStatus
	mappings []models.VehicleMeterMapping
	now      func() time.Time
}

// NewStore returns empty store.
func NewStore() *Store {
	return &Store{
		vStatus: make(map[string]models.VehicleCurrentStatus),
		mStatus: make(map[string]models.MeterCurrentStatus),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// VehicleHistory returns the vehicle log view.
func (s *Store) VehicleHistory() repository.VehicleHistoryRepository { return vehicleHistory{s} }

// MeterHistory returns the meter log view.
func (s *Store) MeterHistory() repository.MeterHistoryRepository { return meterHistory{s} }

type vehicleHistory struct{ s *Store }

func (h vehicleHistory) Append(_ context.Context, reading *models.VehicleReading) error {
	h.s.mu.Lock()
	defer h.s.mu.Unlock()
	h.s.nextID++
	reading.ID = h.s.nextID
	h.s.vehicles = append(h.s.vehicles, *reading)
	return nil
}

func (h vehicleHistory) Range(_ context.Context, vehicleID string, from, to time.Time) ([]models.VehicleReading, error) {
	h.s.mu.RLock()
	defer h.s.mu.RUnlock()
	var out []models.VehicleReading
	for _, v := range h.s.vehicles {
		if v.VehicleID == vehicleID && inRange(v.Timestamp, from, to) {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].ID < out[j].ID
		}
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out, nil
}

type meterHistory struct{ s *Store }

func (h meterHistory) Append(_ context.Context, reading *models.MeterReading) error {
	h.s.mu.Lock()
	defer h.s.mu.Unlock()
	h.s.nextID++
	reading.ID = h.s.nextID
	h.s.meters = append(h.s.meters, *reading)
	return nil
}

func (h meterHistory) Range(_ context.Context, meterID string, from, to time.Time) ([]models.MeterReading, error) {
	h.s.mu.RLock()
	defer h.s.mu.RUnlock()
	var out []models.MeterReading
	for _, m := range h.s.meters {
		if m.MeterID == meterID && inRange(m.Timestamp, from, to) {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].ID < out[j].ID
		}
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out, nil
}

func inRange(ts, from, to time.Time) bool {
	return !ts.Before(from) && !ts.After(to)
}

// UpsertVehicle overwrites the vehicle status.
func (s *Store) UpsertVehicle(_ context.Context, status models.VehicleCurrentStatus) (models.VehicleCurrentStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	status.UpdatedAt = s.now()
	s.vStatus[status.VehicleID] = status
	return status, nil
}

// UpsertMeter overwrites the meter status.
func (s *Store) UpsertMeter(_ context.Context, status models.MeterCurrentStatus) (models.MeterCurrentStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	status.UpdatedAt = s.now()
	s.mStatus[status.MeterID] = status
	return status, nil
}

// GetVehicle returns the vehicle status or repository.ErrNotFound.
func (s *Store) GetVehicle(_ context.Context, vehicleID string) (*models.VehicleCurrentStatus, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	status, ok := s.vStatus[vehicleID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &status, nil
}

// GetMeter returns the meter status or repository.ErrNotFound.
func (s *Store) GetMeter(_ context.Context, meterID string) (*models.MeterCurrentStatus, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	status, ok := s.mStatus[meterID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &status, nil
}

// Upsert inserts the pair once.
func (s *Store) Upsert(_ context.Context, vehicleID, meterID string) (*models.VehicleMeterMapping, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.mappings {
		if m.VehicleID == vehicleID && m.MeterID == meterID {
			existing := m
			return &existing, nil
		}
	}
	s.nextID++
	m := models.VehicleMeterMapping{ID: s.nextID, VehicleID: vehicleID, MeterID: meterID, CreatedAt: s.now()}
	s.mappings = append(s.mappings, m)
	return &m, nil
}

// ListByVehicle returns the vehicle's mappings in insertion order.
func (s *Store) ListByVehicle(_ context.Context, vehicleID string) ([]models.VehicleMeterMapping, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.VehicleMeterMapping
	for _, m := range s.mappings {
		if m.VehicleID == vehicleID {
			out = append(out, m)
		}
	}
	return out, nil
}
