package service

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"chargelens/backend/services/telemetry-service/internal/models"
)

// Wire field names. The first name of each group is canonical; the rest are accepted aliases.
var (
	vehicleIDFields  = []string{"vehicleId"}
	socFields        = []string{"stateOfCharge", "soc"}
	dcEnergyFields   = []string{"dcEnergyDeliveredKwh", "kwhDeliveredDc"}
	batteryTmpFields = []string{"batteryTempC", "batteryTemp"}
	meterIDFields    = []string{"meterId"}
	acEnergyFields   = []string{"kwhConsumedAc", "acEnergyConsumedKwh"}
	voltageFields    = []string{"voltage"}
	timestampFields  = []string{"timestamp"}
)

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
}

// Payload is a classified ingest payload: either VehiclePayload or MeterPayload.
type Payload interface {
	Kind() string
}

// VehiclePayload carries a validated vehicle reading.
type VehiclePayload struct {
	Reading models.VehicleReading
}

// Kind implements Payload.
func (VehiclePayload) Kind() string { return models.KindVehicle }

// MeterPayload carries a validated meter reading.
type MeterPayload struct {
	Reading models.MeterReading
}

// Kind implements Payload.
func (MeterPayload) Kind() string { return models.KindMeter }

// ClassifyPayload inspects an untyped record once and returns the matching variant.
// Shape mismatches yield ErrInvalidPayload, bad field values a *ValidationError.
func ClassifyPayload(raw map[string]interface{}) (Payload, error) {
	isMeter := present(raw, meterIDFields) && present(raw, acEnergyFields)
	isVehicle := present(raw, vehicleIDFields) && present(raw, dcEnergyFields)

	switch {
	case isMeter && isVehicle:
		return nil, fmt.Errorf("%w: both meter and vehicle fields present", ErrInvalidPayload)
	case isMeter:
		reading, err := decodeMeter(raw)
		if err != nil {
			return nil, err
		}
		return MeterPayload{Reading: reading}, nil
	case isVehicle:
		reading, err := decodeVehicle(raw)
		if err != nil {
			return nil, err
		}
		return VehiclePayload{Reading: reading}, nil
	default:
		return nil, fmt.Errorf("%w: must contain either meterId with kwhConsumedAc or vehicleId with dcEnergyDeliveredKwh", ErrInvalidPayload)
	}
}

func decodeVehicle(raw map[string]interface{}) (models.VehicleReading, error) {
	var fe fieldErrors
	r := models.VehicleReading{
		VehicleID:            stringField(raw, vehicleIDFields, &fe),
		StateOfCharge:        numberField(raw, socFields, &fe),
		DCEnergyDeliveredKWh: numberField(raw, dcEnergyFields, &fe),
		BatteryTempC:         numberField(raw, batteryTmpFields, &fe),
		Timestamp:            timeField(raw, timestampFields, &fe),
	}
	if err := fe.err(); err != nil {
		return models.VehicleReading{}, err
	}
	if err := ValidateVehicleReading(r); err != nil {
		return models.VehicleReading{}, err
	}
	return r, nil
}

func decodeMeter(raw map[string]interface{}) (models.MeterReading, error) {
	var fe fieldErrors
	r := models.MeterReading{
		MeterID:             stringField(raw, meterIDFields, &fe),
		ACEnergyConsumedKWh: numberField(raw, acEnergyFields, &fe),
		Voltage:             numberField(raw, voltageFields, &fe),
		Timestamp:           timeField(raw, timestampFields, &fe),
	}
	if err := fe.err(); err != nil {
		return models.MeterReading{}, err
	}
	if err := ValidateMeterReading(r); err != nil {
		return models.MeterReading{}, err
	}
	return r, nil
}

// ValidateVehicleReading checks identifier, finiteness and ranges of a typed reading.
func ValidateVehicleReading(r models.VehicleReading) error {
	var fe fieldErrors
	if strings.TrimSpace(r.VehicleID) == "" {
		fe.add("vehicleId", "must be a non-empty string")
	}
	switch {
	case !finite(r.StateOfCharge):
		fe.add("stateOfCharge", "must be a finite number")
	case r.StateOfCharge < 0 || r.StateOfCharge > 100:
		fe.add("stateOfCharge", "must be within [0, 100]")
	}
	switch {
	case !finite(r.DCEnergyDeliveredKWh):
		fe.add("dcEnergyDeliveredKwh", "must be a finite number")
	case r.DCEnergyDeliveredKWh < 0:
		fe.add("dcEnergyDeliveredKwh", "must not be negative")
	}
	if !finite(r.BatteryTempC) {
		fe.add("batteryTempC", "must be a finite number")
	}
	if r.Timestamp.IsZero() {
		fe.add("timestamp", "must be a valid ISO-8601 instant")
	}
	return fe.err()
}

// ValidateMeterReading checks identifier, finiteness and ranges of a typed reading.
func ValidateMeterReading(r models.MeterReading) error {
	var fe fieldErrors
	if strings.TrimSpace(r.MeterID) == "" {
		fe.add("meterId", "must be a non-empty string")
	}
	switch {
	case !finite(r.ACEnergyConsumedKWh):
		fe.add("kwhConsumedAc", "must be a finite number")
	case r.ACEnergyConsumedKWh < 0:
		fe.add("kwhConsumedAc", "must not be negative")
	}
	switch {
	case !finite(r.Voltage):
		fe.add("voltage", "must be a finite number")
	case r.Voltage < 0:
		fe.add("voltage", "must not be negative")
	}
	if r.Timestamp.IsZero() {
		fe.add("timestamp", "must be a valid ISO-8601 instant")
	}
	return fe.err()
}

func present(raw map[string]interface{}, names []string) bool {
	_, _, ok := lookup(raw, names)
	return ok
}

// lookup returns the first non-null value among a field's names.
func lookup(raw map[string]interface{}, names []string) (string, interface{}, bool) {
	for _, name := range names {
		if v, ok := raw[name]; ok && v != nil {
			return name, v, true
		}
	}
	return names[0], nil, false
}

func stringField(raw map[string]interface{}, names []string, fe *fieldErrors) string {
	name, v, ok := lookup(raw, names)
	if !ok {
		fe.add(name, "is required")
		return ""
	}
	s, isString := v.(string)
	if !isString || strings.TrimSpace(s) == "" {
		fe.add(name, "must be a non-empty string")
		return ""
	}
	return strings.TrimSpace(s)
}

func numberField(raw map[string]interface{}, names []string, fe *fieldErrors) float64 {
	name, v, ok := lookup(raw, names)
	if !ok {
		fe.add(name, "is required")
		return 0
	}
	var f float64
	switch n := v.(type) {
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			fe.add(name, "must be a finite number")
			return 0
		}
		f = parsed
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	default:
		fe.add(name, "must be a number")
		return 0
	}
	if !finite(f) {
		fe.add(name, "must be a finite number")
		return 0
	}
	return f
}

func timeField(raw map[string]interface{}, names []string, fe *fieldErrors) time.Time {
	name, v, ok := lookup(raw, names)
	if !ok {
		fe.add(name, "is required")
		return time.Time{}
	}
	s, isString := v.(string)
	if !isString {
		fe.add(name, "must be an ISO-8601 string")
		return time.Time{}
	}
	ts, err := ParseTimestamp(s)
	if err != nil {
		fe.add(name, "must be a valid ISO-8601 instant")
		return time.Time{}
	}
	return ts
}

// ParseTimestamp accepts RFC 3339 instants; values without an offset are read as UTC.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	var lastErr error
	for _, layout := range timestampLayouts {
		ts, err := time.Parse(layout, s)
		if err == nil {
			return ts.UTC(), nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
