package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"chargelens/backend/services/telemetry-service/internal/http/middleware"
	"chargelens/backend/services/telemetry-service/internal/service"
)

// IngestionHandler accepts readings and mapping declarations.
type IngestionHandler struct {
	ingest   *service.IngestionService
	registry *service.MappingRegistry
	logger   *zap.Logger
}

// NewIngestionHandler returns handler.
func NewIngestionHandler(ingest *service.IngestionService, registry *service.MappingRegistry, logger *zap.Logger) *IngestionHandler {
	return &IngestionHandler{
		ingest:   ingest,
		registry: registry,
		logger:   logger,
	}
}

// Ingest handles POST /v1/ingestion.
func (h *IngestionHandler) Ingest(c *gin.Context) {
	raw, err := decodeObject(c.Request.Body)
	if err != nil {
		writeError(c, h.logger, fmt.Errorf("%w: %v", service.ErrInvalidPayload, err))
		return
	}

	res, err := h.ingest.Ingest(c.Request.Context(), raw)
	if err != nil {
		if service.IsPartialWrite(err) {
			h.logger.Warn("reading kept in history without a current status update",
				zap.String("request_id", c.GetString(middleware.RequestIDKey)),
				zap.Error(err),
			)
		}
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

// decodeObject reads exactly one JSON object, keeping numbers as json.Number.
func decodeObject(body io.Reader) (map[string]interface{}, error) {
	dec := json.NewDecoder(body)
	dec.UseNumber()

	var raw map[string]interface{}
	if err := dec.Decode(&raw); err != nil || raw == nil {
		return nil, errors.New("invalid json")
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return nil, errors.New("trailing data after json object")
	}
	return raw, nil
}

type mappingRequest struct {
	VehicleID string `json:"vehicleId"`
	MeterID   string `json:"meterId"`
}

// RegisterMapping handles POST /v1/ingestion/mapping.
func (h *IngestionHandler) RegisterMapping(c *gin.Context) {
	var req mappingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, h.logger, fmt.Errorf("%w: invalid json", service.ErrInvalidPayload))
		return
	}

	res, err := h.registry.RegisterMapping(c.Request.Context(), req.VehicleID, req.MeterID)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

// ListMappings handles GET /v1/ingestion/mapping/:vehicleId.
func (h *IngestionHandler) ListMappings(c *gin.Context) {
	vehicleID := c.Param("vehicleId")
	mappings, err := h.registry.Mappings(c.Request.Context(), vehicleID)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"vehicleId": vehicleID,
		"mappings":  mappings,
	})
}
