package httpserver

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"chargelens/backend/services/telemetry-service/internal/http/handlers"
	"chargelens/backend/services/telemetry-service/internal/http/middleware"
)

// Routes defines HTTP endpoints.
type Routes struct {
	Ingestion *handlers.IngestionHandler
	Analytics *handlers.AnalyticsHandler
	Health    *handlers.HealthHandler
	// Stream serves the websocket status stream.
	Stream http.HandlerFunc
	// IngestLimiter throttles POST /v1/ingestion; nil disables throttling.
	IngestLimiter *rate.Limiter
}

// NewRouter sets up HTTP routing.
func NewRouter(routes Routes, logger *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(middleware.RequestID(), middleware.Logging(logger), middleware.Recovery(logger))
	r.HandleMethodNotAllowed = true

	v1 := r.Group("/v1")
	if routes.Ingestion != nil {
		ingestion := v1.Group("/ingestion")
		ingestion.POST("", middleware.RateLimit(routes.IngestLimiter), routes.Ingestion.Ingest)
		ingestion.POST("/mapping", routes.Ingestion.RegisterMapping)
		ingestion.GET("/mapping/:vehicleId", routes.Ingestion.ListMappings)
	}
	if routes.Analytics != nil {
		analytics := v1.Group("/analytics")
		analytics.GET("/performance/:vehicleId", routes.Analytics.Performance)
		analytics.GET("/status/vehicles/:vehicleId", routes.Analytics.VehicleStatus)
		analytics.GET("/status/meters/:meterId", routes.Analytics.MeterStatus)
		analytics.GET("/history/vehicles/:vehicleId", routes.Analytics.VehicleHistory)
		analytics.GET("/history/meters/:meterId", routes.Analytics.MeterHistory)
	}
	if routes.Stream != nil {
		v1.GET("/status/stream", gin.WrapF(routes.Stream))
	}
	if routes.Health != nil {
		r.GET("/health", routes.Health.Health)
	}
	return r
}
