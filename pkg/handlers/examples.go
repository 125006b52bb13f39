package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/querypilot/querypilot-engine/pkg/repositories"
	"github.com/querypilot/querypilot-engine/pkg/services/retrieval"
)

// ExampleRequest is the curation payload for POST /api/examples.
type ExampleRequest struct {
	Question     string  `json:"question"`
	SQL          string  `json:"sql"`
	QualityScore float64 `json:"quality_score,omitempty"`
	Verified     bool    `json:"verified,omitempty"`
}

// ExampleHandler serves example curation endpoints.
type ExampleHandler struct {
	retriever   retrieval.Retriever
	exampleRepo repositories.ExampleRepository
	logger      *zap.Logger
}

// NewExampleHandler creates a new ExampleHandler.
func NewExampleHandler(retriever retrieval.Retriever, exampleRepo repositories.ExampleRepository, logger *zap.Logger) *ExampleHandler {
	return &ExampleHandler{retriever: retriever, exampleRepo: exampleRepo, logger: logger}
}

// RegisterRoutes registers the example routes on the given mux.
func (h *ExampleHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/examples", h.List)
	mux.HandleFunc("POST /api/examples", h.Create)
	mux.HandleFunc("DELETE /api/examples/{id}", h.Delete)
	mux.HandleFunc("GET /api/examples/search", h.Search)
}

// List handles GET /api/examples?limit=N.
func (h *ExampleHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", "limit must be an integer")
			return
		}
		limit = parsed
	}

	examples, err := h.exampleRepo.List(r.Context(), limit)
	if err != nil {
		_ = WriteServiceError(w, err)
		return
	}
	if err := WriteJSON(w, http.StatusOK, examples); err != nil {
		h.logger.Error("Failed to encode examples response", zap.Error(err))
	}
}

// Create handles POST /api/examples for manual curation.
func (h *ExampleHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req ExampleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.Question == "" || req.SQL == "" {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", "question and sql are required")
		return
	}
	if req.QualityScore == 0 {
		req.QualityScore = 1.0
	}

	id, err := h.retriever.AddExample(r.Context(), req.Question, req.SQL, req.QualityScore, req.Verified)
	if err != nil {
		_ = WriteServiceError(w, err)
		return
	}
	if err := WriteJSON(w, http.StatusCreated, map[string]string{"id": id.String()}); err != nil {
		h.logger.Error("Failed to encode example response", zap.Error(err))
	}
}

// Delete handles DELETE /api/examples/{id}.
func (h *ExampleHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", "example id must be a valid UUID")
		return
	}

	if err := h.exampleRepo.Delete(r.Context(), id); err != nil {
		_ = WriteServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Search handles GET /api/examples/search?q=...&limit=N. Exposes the
// retrieval path used for prompt context.
func (h *ExampleHandler) Search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", "q is required")
		return
	}

	limit := retrieval.DefaultLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", "limit must be an integer")
			return
		}
		limit = parsed
	}

	results, err := h.retriever.FindSimilar(r.Context(), query, limit, retrieval.PromptThreshold)
	if err != nil {
		_ = WriteServiceError(w, err)
		return
	}
	if err := WriteJSON(w, http.StatusOK, results); err != nil {
		h.logger.Error("Failed to encode search response", zap.Error(err))
	}
}
