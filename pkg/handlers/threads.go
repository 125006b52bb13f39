package handlers

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/querypilot/querypilot-engine/pkg/services"
)

// ThreadHandler serves thread read and delete endpoints.
type ThreadHandler struct {
	threads services.ThreadService
	logger  *zap.Logger
}

// NewThreadHandler creates a new ThreadHandler.
func NewThreadHandler(threads services.ThreadService, logger *zap.Logger) *ThreadHandler {
	return &ThreadHandler{threads: threads, logger: logger}
}

// RegisterRoutes registers the thread routes on the given mux.
func (h *ThreadHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/threads", h.List)
	mux.HandleFunc("GET /api/threads/{id}", h.Get)
	mux.HandleFunc("DELETE /api/threads/{id}", h.Delete)
}

// List handles GET /api/threads?limit=N.
func (h *ThreadHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", "limit must be an integer")
			return
		}
		limit = parsed
	}

	threads, err := h.threads.ListThreads(r.Context(), limit)
	if err != nil {
		_ = WriteServiceError(w, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, threads); err != nil {
		h.logger.Error("Failed to encode threads response", zap.Error(err))
	}
}

// Get handles GET /api/threads/{id}. ?deep=true loads nested interactions
// with results and visualizations.
func (h *ThreadHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", "thread id must be a valid UUID")
		return
	}

	deep := r.URL.Query().Get("deep") == "true"
	thread, err := h.threads.GetThread(r.Context(), id, deep)
	if err != nil {
		_ = WriteServiceError(w, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, thread); err != nil {
		h.logger.Error("Failed to encode thread response", zap.Error(err))
	}
}

// Delete handles DELETE /api/threads/{id}.
func (h *ThreadHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", "thread id must be a valid UUID")
		return
	}

	if err := h.threads.DeleteThread(r.Context(), id); err != nil {
		_ = WriteServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
