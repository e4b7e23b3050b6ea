package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"chargelens/backend/services/telemetry-service/internal/service"
)

// AnalyticsHandler serves status, history and efficiency queries.
type AnalyticsHandler struct {
	svc    *service.AnalyticsService
	logger *zap.Logger
}

// NewAnalyticsHandler returns handler.
func NewAnalyticsHandler(svc *service.AnalyticsService, logger *zap.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{svc: svc, logger: logger}
}

// Performance handles GET /v1/analytics/performance/:vehicleId.
// Optional query: lookback and tolerance as Go durations, threshold as a ratio.
func (h *AnalyticsHandler) Performance(c *gin.Context) {
	opts, err := performanceOptions(c)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	report, err := h.svc.GetPerformance(c.Request.Context(), c.Param("vehicleId"), opts)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func performanceOptions(c *gin.Context) (service.PerformanceOptions, error) {
	var opts service.PerformanceOptions
	var err error
	if opts.Lookback, err = durationQuery(c, "lookback"); err != nil {
		return opts, err
	}
	if opts.MatchTolerance, err = durationQuery(c, "tolerance"); err != nil {
		return opts, err
	}
	if raw := strings.TrimSpace(c.Query("threshold")); raw != "" {
		opts.EfficiencyThreshold, err = strconv.ParseFloat(raw, 64)
		if err != nil || opts.EfficiencyThreshold <= 0 {
			return opts, fieldError("threshold", "must be a positive number")
		}
	}
	return opts, nil
}

func durationQuery(c *gin.Context, name string) (time.Duration, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return 0, fieldError(name, "must be a positive duration such as 24h or 5m")
	}
	return d, nil
}

// VehicleStatus handles GET /v1/analytics/status/vehicles/:vehicleId.
func (h *AnalyticsHandler) VehicleStatus(c *gin.Context) {
	status, err := h.svc.GetVehicleStatus(c.Request.Context(), c.Param("vehicleId"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

// MeterStatus handles GET /v1/analytics/status/meters/:meterId.
func (h *AnalyticsHandler) MeterStatus(c *gin.Context) {
	status, err := h.svc.GetMeterStatus(c.Request.Context(), c.Param("meterId"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

// VehicleHistory handles GET /v1/analytics/history/vehicles/:vehicleId?from=&to=.
func (h *AnalyticsHandler) VehicleHistory(c *gin.Context) {
	from, to, err := historyBounds(c)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	vehicleID := c.Param("vehicleId")
	readings, err := h.svc.VehicleHistory(c.Request.Context(), vehicleID, from, to)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"vehicleId": vehicleID,
		"readings":  readings,
	})
}

// MeterHistory handles GET /v1/analytics/history/meters/:meterId?from=&to=.
func (h *AnalyticsHandler) MeterHistory(c *gin.Context) {
	from, to, err := historyBounds(c)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	meterID := c.Param("meterId")
	readings, err := h.svc.MeterHistory(c.Request.Context(), meterID, from, to)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"meterId":  meterID,
		"readings": readings,
	})
}

func historyBounds(c *gin.Context) (time.Time, time.Time, error) {
	var from, to time.Time
	if raw := strings.TrimSpace(c.Query("from")); raw != "" {
		ts, err := service.ParseTimestamp(raw)
		if err != nil {
			return from, to, fieldError("from", "must be a valid ISO-8601 instant")
		}
		from = ts
	}
	if raw := strings.TrimSpace(c.Query("to")); raw != "" {
		ts, err := service.ParseTimestamp(raw)
		if err != nil {
			return from, to, fieldError("to", "must be a valid ISO-8601 instant")
		}
		to = ts
	}
	return from, to, nil
}
