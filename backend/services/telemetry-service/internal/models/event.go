package models

// Entity kinds carried in status events and ingest results.
const (
	KindVehicle = "vehicle"
	KindMeter   = "meter"
)

// StatusEvent announces a successful current-status upsert.
type StatusEvent struct {
	Kind     string      `json:"kind"`
	EntityID string      `json:"entityId"`
	Status   interface{} `json:"status"`
}
