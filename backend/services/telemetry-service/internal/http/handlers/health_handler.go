package handlers

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
)

const healthCheckTimeout = 2 * time.Second

// HealthCheck pings one dependency.
type HealthCheck func(ctx context.Context) error

// HealthHandler reports liveness plus the state of the configured stores.
type HealthHandler struct {
	checks  map[string]HealthCheck
	clients func() int
}

// NewHealthHandler returns handler. clients may be nil.
func NewHealthHandler(checks map[string]HealthCheck, clients func() int) *HealthHandler {
	return &HealthHandler{checks: checks, clients: clients}
}

// Health handles GET /health.
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
	defer cancel()

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	status := http.StatusOK
	results := make(map[string]string, len(names))
	for _, name := range names {
		if err := h.checks[name](ctx); err != nil {
			results[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		results[name] = "ok"
	}

	body := gin.H{"status": "ok", "checks": results}
	if status != http.StatusOK {
		body["status"] = "degraded"
	}
	if h.clients != nil {
		body["ws_clients"] = h.clients()
	}
	c.JSON(status, body)
}
