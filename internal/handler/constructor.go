package handler

import (
	"log/slog"
	"net/http"

	"vitrina/internal/domain/services"
	"vitrina/internal/httputil"
)

// ConstructorHandler handles the agent-assembly conversation endpoints.
type ConstructorHandler struct {
	constructor services.ConstructorService
	logger      *slog.Logger
}

// NewConstructorHandler creates a new constructor handler.
func NewConstructorHandler(constructor services.ConstructorService, logger *slog.Logger) *ConstructorHandler {
	return &ConstructorHandler{
		constructor: constructor,
		logger:      logger,
	}
}

// Chat handles one constructor message.
// POST /api/constructor/chat
func (h *ConstructorHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var req services.ChatRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.UserID = requestUserID(r, req.UserID)
	if req.UserID == "" {
		httputil.RespondError(w, http.StatusUnauthorized, "user identity is required")
		return
	}

	result, err := h.constructor.HandleMessage(r.Context(), &req)
	if err != nil {
		h.logger.Error("constructor chat failed", "user_id", req.UserID, "error", err)
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, result)
}

// ResetSession discards the caller's constructor conversation.
// DELETE /api/constructor/session
func (h *ConstructorHandler) ResetSession(w http.ResponseWriter, r *http.Request) {
	userID := requestUserID(r, r.URL.Query().Get("user_id"))
	if userID == "" {
		httputil.RespondError(w, http.StatusUnauthorized, "user identity is required")
		return
	}
	agentID := r.URL.Query().Get("agent_id")

	if err := h.constructor.ResetSession(r.Context(), userID, agentID); err != nil {
		handleError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
