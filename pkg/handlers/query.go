package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/querypilot/querypilot-engine/pkg/services"
)

// QueryRequest is the POST /api/query payload. thread_id empty starts a
// new thread; connection_id is mandatory.
type QueryRequest struct {
	Query        string  `json:"query"`
	ThreadID     *string `json:"thread_id,omitempty"`
	ConnectionID string  `json:"connection_id"`
	LLMProvider  string  `json:"llm_provider,omitempty"`
	Locale       string  `json:"locale,omitempty"`
	Timezone     string  `json:"timezone,omitempty"`
}

// RateRequest is the POST /api/query/rate payload.
type RateRequest struct {
	ThreadID      string  `json:"thread_id"`
	InteractionID string  `json:"interaction_id"`
	IsHelpful     bool    `json:"is_helpful"`
	Feedback      *string `json:"feedback,omitempty"`
}

// QueryHandler serves the natural-language query entry point and the
// result rating endpoint.
type QueryHandler struct {
	threads services.ThreadService
	logger  *zap.Logger
}

// NewQueryHandler creates a new QueryHandler.
func NewQueryHandler(threads services.ThreadService, logger *zap.Logger) *QueryHandler {
	return &QueryHandler{threads: threads, logger: logger}
}

// RegisterRoutes registers the query routes on the given mux.
func (h *QueryHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/query", h.ProcessQuery)
	mux.HandleFunc("POST /api/query/rate", h.RateQueryResult)
}

// ProcessQuery handles POST /api/query.
func (h *QueryHandler) ProcessQuery(w http.ResponseWriter, r *http.Request) {
	var req QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.Query == "" {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", "query is required")
		return
	}

	connectionID, err := uuid.Parse(req.ConnectionID)
	if err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", "connection_id must be a valid UUID")
		return
	}

	svcReq := &services.ProcessQueryRequest{
		Query:        req.Query,
		ConnectionID: connectionID,
		LLMProvider:  req.LLMProvider,
		Locale:       req.Locale,
		Timezone:     req.Timezone,
	}
	if req.ThreadID != nil && *req.ThreadID != "" {
		threadID, err := uuid.Parse(*req.ThreadID)
		if err != nil {
			_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", "thread_id must be a valid UUID")
			return
		}
		svcReq.ThreadID = &threadID
	}

	thread, err := h.threads.ProcessQuery(r.Context(), svcReq)
	if err != nil {
		h.logger.Error("query processing failed", zap.Error(err))
		_ = WriteServiceError(w, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, thread); err != nil {
		h.logger.Error("Failed to encode query response", zap.Error(err))
	}
}

// RateQueryResult handles POST /api/query/rate.
func (h *QueryHandler) RateQueryResult(w http.ResponseWriter, r *http.Request) {
	var req RateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	threadID, err := uuid.Parse(req.ThreadID)
	if err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", "thread_id must be a valid UUID")
		return
	}
	interactionID, err := uuid.Parse(req.InteractionID)
	if err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", "interaction_id must be a valid UUID")
		return
	}

	ok, err := h.threads.RateQueryResult(r.Context(), threadID, interactionID, req.IsHelpful, req.Feedback)
	if err != nil {
		_ = WriteServiceError(w, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, map[string]bool{"success": ok}); err != nil {
		h.logger.Error("Failed to encode rate response", zap.Error(err))
	}
}
