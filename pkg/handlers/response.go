package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/querypilot/querypilot-engine/pkg/apperrors"
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

// WriteServiceError maps application errors onto HTTP status codes.
func WriteServiceError(w http.ResponseWriter, err error) error {
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		return ErrorResponse(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, apperrors.ErrConflict):
		return ErrorResponse(w, http.StatusConflict, "conflict", err.Error())
	case errors.Is(err, apperrors.ErrInvalidInput),
		errors.Is(err, apperrors.ErrConnectionRequired),
		errors.Is(err, apperrors.ErrUnsupportedProvider),
		errors.Is(err, apperrors.ErrUnsupportedDatabase):
		return ErrorResponse(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, apperrors.ErrConnectionInUse):
		return ErrorResponse(w, http.StatusConflict, "connection_in_use", err.Error())
	case errors.Is(err, apperrors.ErrExportNothingToWrite):
		return ErrorResponse(w, http.StatusUnprocessableEntity, "nothing_to_export", err.Error())
	case errors.Is(err, apperrors.ErrWorkflowNotReady):
		return ErrorResponse(w, http.StatusServiceUnavailable, "workflow_not_ready", err.Error())
	default:
		return ErrorResponse(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}
