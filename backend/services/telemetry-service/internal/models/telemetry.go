package models

import "time"

// VehicleReading is a single battery telemetry sample. Immutable once appended to history.
type VehicleReading struct {
	ID                   int64     `db:"id" json:"id,omitempty"`
	VehicleID            string    `db:"vehicle_id" json:"vehicleId"`
	StateOfCharge        float64   `db:"soc" json:"stateOfCharge"`
	DCEnergyDeliveredKWh float64   `db:"kwh_delivered_dc" json:"dcEnergyDeliveredKwh"`
	BatteryTempC         float64   `db:"battery_temp" json:"batteryTempC"`
	Timestamp            time.Time `db:"timestamp" json:"timestamp"`
}

// MeterReading is a single grid meter sample. Immutable once appended to history.
type MeterReading struct {
	ID                  int64     `db:"id" json:"id,omitempty"`
	MeterID             string    `db:"meter_id" json:"meterId"`
	ACEnergyConsumedKWh float64   `db:"kwh_consumed_ac" json:"kwhConsumedAc"`
	Voltage             float64   `db:"voltage" json:"voltage"`
	Timestamp           time.Time `db:"timestamp" json:"timestamp"`
}

// VehicleCurrentStatus is the latest ingested reading per vehicle.
type VehicleCurrentStatus struct {
	VehicleID                string    `db:"vehicle_id" json:"vehicleId"`
	StateOfCharge            float64   `db:"soc" json:"stateOfCharge"`
	BatteryTempC             float64   `db:"battery_temp" json:"batteryTempC"`
	LastDCEnergyDeliveredKWh float64   `db:"last_kwh_delivered_dc" json:"lastDcEnergyDeliveredKwh"`
	LastSeen                 time.Time `db:"last_seen" json:"lastSeen"`
	UpdatedAt                time.Time `db:"updated_at" json:"updatedAt"`
}

// MeterCurrentStatus is the latest ingested reading per meter.
type MeterCurrentStatus struct {
	MeterID                 string    `db:"meter_id" json:"meterId"`
	LastACEnergyConsumedKWh float64   `db:"last_kwh_consumed_ac" json:"lastKwhConsumedAc"`
	LastVoltage             float64   `db:"last_voltage" json:"lastVoltage"`
	LastSeen                time.Time `db:"last_seen" json:"lastSeen"`
	UpdatedAt               time.Time `db:"updated_at" json:"updatedAt"`
}

// Status builds the current-status row a reading overwrites.
func (r VehicleReading) Status(updatedAt time.Time) VehicleCurrentStatus {
	return VehicleCurrentStatus{
		VehicleID:                r.VehicleID,
		StateOfCharge:            r.StateOfCharge,
		BatteryTempC:             r.BatteryTempC,
		LastDCEnergyDeliveredKWh: r.DCEnergyDeliveredKWh,
		LastSeen:                 r.Timestamp,
		UpdatedAt:                updatedAt,
	}
}

// Status builds the current-status row a reading overwrites.
func (r MeterReading) Status(updatedAt time.Time) MeterCurrentStatus {
	return MeterCurrentStatus{
		MeterID:                 r.MeterID,
		LastACEnergyConsumedKWh: r.ACEnergyConsumedKWh,
		LastVoltage:             r.Voltage,
		LastSeen:                r.Timestamp,
		UpdatedAt:               updatedAt,
	}
}
