package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/querypilot/querypilot-engine/pkg/models"
	"github.com/querypilot/querypilot-engine/pkg/services"
)

// ConnectionRequest is the create/update payload. Password is accepted on
// write but never echoed back.
type ConnectionRequest struct {
	Name        string `json:"name"`
	Host        string `json:"host"`
	Port        int    `json:"port"`
	Database    string `json:"database"`
	Username    string `json:"username"`
	Password    string `json:"password"`
	Type        string `json:"type"`
	Active      *bool  `json:"active,omitempty"`
	Description string `json:"description,omitempty"`
}

// ConnectionHandler serves target database connection management.
type ConnectionHandler struct {
	connections services.ConnectionService
	logger      *zap.Logger
}

// NewConnectionHandler creates a new ConnectionHandler.
func NewConnectionHandler(connections services.ConnectionService, logger *zap.Logger) *ConnectionHandler {
	return &ConnectionHandler{connections: connections, logger: logger}
}

// RegisterRoutes registers the connection routes on the given mux.
func (h *ConnectionHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/connections", h.List)
	mux.HandleFunc("POST /api/connections", h.Create)
	mux.HandleFunc("GET /api/connections/{id}", h.Get)
	mux.HandleFunc("PUT /api/connections/{id}", h.Update)
	mux.HandleFunc("DELETE /api/connections/{id}", h.Delete)
	mux.HandleFunc("POST /api/connections/{id}/test", h.Test)
}

func (req *ConnectionRequest) toModel() *models.Connection {
	conn := &models.Connection{
		Name:        req.Name,
		Host:        req.Host,
		Port:        req.Port,
		Database:    req.Database,
		Username:    req.Username,
		Password:    req.Password,
		Type:        models.DatabaseType(req.Type),
		Active:      true,
		Description: req.Description,
	}
	if req.Active != nil {
		conn.Active = *req.Active
	}
	return conn
}

// List handles GET /api/connections.
func (h *ConnectionHandler) List(w http.ResponseWriter, r *http.Request) {
	connections, err := h.connections.List(r.Context())
	if err != nil {
		_ = WriteServiceError(w, err)
		return
	}
	if err := WriteJSON(w, http.StatusOK, connections); err != nil {
		h.logger.Error("Failed to encode connections response", zap.Error(err))
	}
}

// Create handles POST /api/connections.
func (h *ConnectionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req ConnectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	conn, err := h.connections.Create(r.Context(), req.toModel())
	if err != nil {
		_ = WriteServiceError(w, err)
		return
	}
	if err := WriteJSON(w, http.StatusCreated, conn); err != nil {
		h.logger.Error("Failed to encode connection response", zap.Error(err))
	}
}

// Get handles GET /api/connections/{id}.
func (h *ConnectionHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", "connection id must be a valid UUID")
		return
	}

	conn, err := h.connections.Get(r.Context(), id)
	if err != nil {
		_ = WriteServiceError(w, err)
		return
	}
	if err := WriteJSON(w, http.StatusOK, conn); err != nil {
		h.logger.Error("Failed to encode connection response", zap.Error(err))
	}
}

// Update handles PUT /api/connections/{id}.
func (h *ConnectionHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", "connection id must be a valid UUID")
		return
	}

	var req ConnectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	conn := req.toModel()
	conn.ID = id
	updated, err := h.connections.Update(r.Context(), conn)
	if err != nil {
		_ = WriteServiceError(w, err)
		return
	}
	if err := WriteJSON(w, http.StatusOK, updated); err != nil {
		h.logger.Error("Failed to encode connection response", zap.Error(err))
	}
}

// Delete handles DELETE /api/connections/{id}.
func (h *ConnectionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", "connection id must be a valid UUID")
		return
	}

	if err := h.connections.Delete(r.Context(), id); err != nil {
		_ = WriteServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Test handles POST /api/connections/{id}/test.
func (h *ConnectionHandler) Test(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", "connection id must be a valid UUID")
		return
	}

	if err := h.connections.Test(r.Context(), id); err != nil {
		_ = WriteJSON(w, http.StatusOK, map[string]any{"success": false, "error": err.Error()})
		return
	}
	if err := WriteJSON(w, http.StatusOK, map[string]any{"success": true}); err != nil {
		h.logger.Error("Failed to encode test response", zap.Error(err))
	}
}
