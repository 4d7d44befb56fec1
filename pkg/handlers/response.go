// Package handlers exposes the engine over HTTP: per-shipment status and
// approval lookups, global dashboards, audit histories, and event
// ingestion.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/gets-logistics/gets-engine/pkg/apperrors"
)

// ErrorResponse writes a JSON error response and returns any encoding error.
func ErrorResponse(w http.ResponseWriter, statusCode int, errorCode, message string) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(map[string]string{
		"error":   errorCode,
		"message": message,
	})
}

// WriteJSON writes a JSON response and returns any encoding error.
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	if statusCode != http.StatusOK {
		w.WriteHeader(statusCode)
	}
	return json.NewEncoder(w).Encode(data)
}

// writeServiceError maps a service error onto an HTTP status: unknown
// shipment is 404, a schema validation failure is 400 with the rename
// suggestions attached, an unconfigured or exhausted store dependency is
// 503/502, and anything else is 500.
func writeServiceError(w http.ResponseWriter, logger *zap.Logger, err error) {
	var verr *apperrors.ValidationError
	var rerr *apperrors.RetryExhaustedError
	var serr *apperrors.StoreError

	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		_ = ErrorResponse(w, http.StatusNotFound, "not_found", err.Error())
	case errors.As(err, &verr):
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error":         "invalid_fields",
			"message":       verr.Error(),
			"table":         verr.Table,
			"invalidFields": verr.InvalidFields,
			"suggestions":   verr.Suggestions,
		})
	case errors.Is(err, apperrors.ErrUpstreamUnavailable),
		errors.Is(err, apperrors.ErrSchemaLockMissing):
		_ = ErrorResponse(w, http.StatusServiceUnavailable, "dependency_unavailable", err.Error())
	case errors.As(err, &rerr), errors.As(err, &serr):
		logger.Error("record store request failed", zap.Error(err))
		_ = ErrorResponse(w, http.StatusBadGateway, "record_store_error", err.Error())
	default:
		logger.Error("request failed", zap.Error(err))
		_ = ErrorResponse(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}
