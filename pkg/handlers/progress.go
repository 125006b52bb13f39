package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/querypilot/querypilot-engine/pkg/services/progress"
)

// ProgressHandler streams workflow progress events over SSE. Events for
// all threads share one redis topic; this handler filters by thread id.
type ProgressHandler struct {
	redis  *redis.Client
	logger *zap.Logger
}

// NewProgressHandler creates a new ProgressHandler. A nil redis client
// disables the endpoint.
func NewProgressHandler(redisClient *redis.Client, logger *zap.Logger) *ProgressHandler {
	return &ProgressHandler{redis: redisClient, logger: logger}
}

// RegisterRoutes registers the progress routes on the given mux.
func (h *ProgressHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/progress/{threadId}", h.Stream)
}

// Stream handles GET /api/progress/{threadId} as a server-sent event
// stream. The stream ends when the client disconnects or a terminal
// completed event for the thread arrives.
func (h *ProgressHandler) Stream(w http.ResponseWriter, r *http.Request) {
	threadID, err := uuid.Parse(r.PathValue("threadId"))
	if err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", "thread id must be a valid UUID")
		return
	}

	if h.redis == nil {
		_ = ErrorResponse(w, http.StatusServiceUnavailable, "progress_unavailable", "progress channel is not configured")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		_ = ErrorResponse(w, http.StatusInternalServerError, "internal_error", "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	sub := h.redis.Subscribe(r.Context(), progress.Topic)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-r.Context().Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}

			var event progress.Event
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				h.logger.Warn("unparseable progress event", zap.Error(err))
				continue
			}
			if event.ThreadID != threadID {
				continue
			}

			if _, err := fmt.Fprintf(w, "data: %s\n\n", msg.Payload); err != nil {
				return
			}
			flusher.Flush()

			if event.Step == progress.StepCompleted {
				return
			}
		}
	}
}
