package service

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"chargelens/backend/services/telemetry-service/internal/models"
)

// quotientPrecision keeps intermediate quotients well past the reported places so the
// final Round is the only rounding step.
const quotientPrecision = 16

// Correlation holds the aggregates of a tolerance join between one vehicle's readings
// and its mapped meters' readings.
type Correlation struct {
	TotalDCKWh   float64
	TotalACKWh   float64
	TempSumC     float64
	RecordCount  int
	MatchedPairs int
}

// Correlate joins every vehicle reading with every meter reading whose timestamp lies within
// ±tolerance (inclusive). DC energy and temperature are summed once per vehicle reading;
// AC energy is summed once per matched pair, so a meter reading close to several vehicle
// readings contributes several times.
// TODO: confirm with fleet ops whether AC fan-out should be deduplicated per meter reading.
func Correlate(vehicle []models.VehicleReading, meter []models.MeterReading, tolerance time.Duration) Correlation {
	sorted := make([]models.MeterReading, len(meter))
	copy(sorted, meter)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})

	var c Correlation
	for _, v := range vehicle {
		c.RecordCount++
		c.TotalDCKWh += v.DCEnergyDeliveredKWh
		c.TempSumC += v.BatteryTempC

		lo := v.Timestamp.Add(-tolerance)
		hi := v.Timestamp.Add(tolerance)
		start := sort.Search(len(sorted), func(i int) bool {
			return !sorted[i].Timestamp.Before(lo)
		})
		for j := start; j < len(sorted) && !sorted[j].Timestamp.After(hi); j++ {
			c.TotalACKWh += sorted[j].ACEnergyConsumedKWh
			c.MatchedPairs++
		}
	}
	return c
}

// EfficiencyRatio is DC/AC rounded to 4 places, or 0 when no AC energy was matched.
func (c Correlation) EfficiencyRatio() float64 {
	if c.TotalACKWh <= 0 {
		return 0
	}
	return decimal.NewFromFloat(c.TotalDCKWh).
		DivRound(decimal.NewFromFloat(c.TotalACKWh), quotientPrecision).
		Round(4).
		InexactFloat64()
}

// AvgBatteryTempC is the mean temperature rounded to 2 places.
func (c Correlation) AvgBatteryTempC() float64 {
	if c.RecordCount == 0 {
		return 0
	}
	return decimal.NewFromFloat(c.TempSumC).
		DivRound(decimal.NewFromInt(int64(c.RecordCount)), quotientPrecision).
		Round(2).
		InexactFloat64()
}

// Alert returns the warning when AC energy was matched and the ratio is strictly below threshold.
func (c Correlation) Alert(threshold float64) *string {
	if c.TotalACKWh <= 0 || c.EfficiencyRatio() >= threshold {
		return nil
	}
	msg := EfficiencyAlertMessage(threshold)
	return &msg
}

// EfficiencyAlertMessage formats the low-efficiency warning for a threshold.
func EfficiencyAlertMessage(threshold float64) string {
	pct := decimal.NewFromFloat(threshold).Shift(2)
	return fmt.Sprintf("WARNING: efficiency below %s%% — possible hardware fault or energy leakage", pct.String())
}
