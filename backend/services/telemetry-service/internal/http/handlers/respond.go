package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"chargelens/backend/services/telemetry-service/internal/service"
)

// Error kinds reported in error bodies.
const (
	KindValidation       = "validation"
	KindInvalidPayload   = "invalid_payload"
	KindNotFound         = "not_found"
	KindStoreUnavailable = "store_unavailable"
	KindRateLimited      = "rate_limited"
	KindInternal         = "internal"
)

// ErrorBody is the JSON shape of every failed request.
type ErrorBody struct {
	Error  string               `json:"error"`
	Kind   string               `json:"kind"`
	Fields []service.FieldError `json:"fields,omitempty"`
}

// writeError maps service error kinds to HTTP statuses.
func writeError(c *gin.Context, logger *zap.Logger, err error) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, ErrorBody{Error: err.Error(), Kind: KindValidation, Fields: verr.Fields})
	case errors.Is(err, service.ErrInvalidPayload):
		c.JSON(http.StatusBadRequest, ErrorBody{Error: err.Error(), Kind: KindInvalidPayload})
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, ErrorBody{Error: err.Error(), Kind: KindNotFound})
	case errors.Is(err, service.ErrStoreUnavailable):
		logger.Error("store unavailable", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, ErrorBody{Error: "store unavailable", Kind: KindStoreUnavailable})
	default:
		logger.Error("unhandled request error", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorBody{Error: "internal error", Kind: KindInternal})
	}
}

func fieldError(field, reason string) error {
	return &service.ValidationError{Fields: []service.FieldError{{Field: field, Reason: reason}}}
}
