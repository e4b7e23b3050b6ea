package models

import "time"

// PerformanceReport is the derived efficiency summary for one vehicle over a lookback window.
// It is never persisted.
type PerformanceReport struct {
	VehicleID            string    `json:"vehicleId"`
	TotalDCKWh           float64   `json:"totalDcKwh"`
	TotalACKWh           float64   `json:"totalAcKwh"`
	EfficiencyRatio      float64   `json:"efficiencyRatio"`
	AvgBatteryTempC      float64   `json:"avgBatteryTempC"`
	RecordCount          int       `json:"recordCount"`
	Alert                *string   `json:"alert"`
	MeterIDs             []string  `json:"meterIds"`
	MatchedMeterReadings int       `json:"matchedMeterReadings"`
	WindowStart          time.Time `json:"windowStart"`
	WindowEnd            time.Time `json:"windowEnd"`
}
