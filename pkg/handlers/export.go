package handlers

import (
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/querypilot/querypilot-engine/pkg/services"
)

// ExportHandler serves spreadsheet export of thread results.
type ExportHandler struct {
	export services.ExportService
	logger *zap.Logger
}

// NewExportHandler creates a new ExportHandler.
func NewExportHandler(export services.ExportService, logger *zap.Logger) *ExportHandler {
	return &ExportHandler{export: export, logger: logger}
}

// RegisterRoutes registers the export routes on the given mux.
func (h *ExportHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/threads/{id}/export", h.ExportThread)
}

// ExportThread handles POST /api/threads/{id}/export.
func (h *ExportHandler) ExportThread(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", "thread id must be a valid UUID")
		return
	}

	result, err := h.export.ExportThread(r.Context(), id)
	if err != nil {
		_ = WriteServiceError(w, err)
		return
	}
	if err := WriteJSON(w, http.StatusOK, result); err != nil {
		h.logger.Error("Failed to encode export response", zap.Error(err))
	}
}
