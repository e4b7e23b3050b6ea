package ws

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"chargelens/backend/services/telemetry-service/internal/models"
)

// Server upgrades HTTP connections to status stream subscriptions.
type Server struct {
	hub          *Hub
	logger       *zap.Logger
	writeTimeout time.Duration
	upgrader     websocket.Upgrader
}

// NewServer builds ws server.
func NewServer(hub *Hub, writeTimeout time.Duration, logger *zap.Logger) *Server {
	if writeTimeout <= 0 {
		writeTimeout = 10 * time.Second
	}
	return &Server{
		hub:          hub,
		logger:       logger,
		writeTimeout: writeTimeout,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// HandleWS serves the status stream. Optional query params kind (vehicle|meter) and id
// restrict the events delivered.
func (s *Server) HandleWS(w http.ResponseWriter, r *http.Request) {
	filter := Filter{
		Kind:     strings.TrimSpace(r.URL.Query().Get("kind")),
		EntityID: strings.TrimSpace(r.URL.Query().Get("id")),
	}
	if filter.Kind != "" && filter.Kind != models.KindVehicle && filter.Kind != models.KindMeter {
		http.Error(w, "kind must be vehicle or meter", http.StatusBadRequest)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	connection := NewConnection(uuid.NewString(), filter, conn, s.writeTimeout, s.logger, func(id string) {
		s.hub.Remove(id)
		cancel()
	})
	s.hub.Add(connection)

	go connection.Start(ctx)
	s.logger.Info("status subscriber connected",
		zap.String("subscriber_id", connection.ID()),
		zap.String("kind", filter.Kind),
		zap.String("entity_id", filter.EntityID),
	)
}
