package ws

import (
	"encoding/json"
	"sync"

	"go.uber.org/zap"

	"chargelens/backend/services/telemetry-service/internal/models"
)

// MsgTypeStatusUpdate tags every pushed current-status change.
const MsgTypeStatusUpdate = "status_update"

// Message is the envelope written to subscribers.
type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// Hub fans status events out to the connected subscribers.
type Hub struct {
	mu          sync.RWMutex
	connections map[string]*Connection
	logger      *zap.Logger
}

// NewHub builds hub.
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		connections: make(map[string]*Connection),
		logger:      logger,
	}
}

// Add registers new connection.
func (h *Hub) Add(conn *Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.connections[conn.ID()] = conn
}

// Remove removes connection.
func (h *Hub) Remove(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.connections, id)
}

// ClientCount returns the number of live subscribers.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections)
}

// PublishStatus pushes the event to every subscriber whose filter matches.
func (h *Hub) PublishStatus(event models.StatusEvent) {
	data, err := json.Marshal(Message{Type: MsgTypeStatusUpdate, Data: event})
	if err != nil {
		h.logger.Error("failed to marshal status update", zap.Error(err))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, conn := range h.connections {
		if conn.filter.matches(event.Kind, event.EntityID) {
			conn.Send(data)
		}
	}
}
