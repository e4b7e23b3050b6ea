package models

import "time"

// VehicleMeterMapping declares that a meter feeds a vehicle. Unique per (vehicle, meter) pair.
type VehicleMeterMapping struct {
	ID        int64     `db:"id" json:"id,omitempty"`
	VehicleID string    `db:"vehicle_id" json:"vehicleId"`
	MeterID   string    `db:"meter_id" json:"meterId"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}
