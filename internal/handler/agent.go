package handler

import (
	"log/slog"
	"net/http"

	"vitrina/internal/domain/services"
	"vitrina/internal/httputil"
)

// AgentHandler handles seller agent management endpoints.
type AgentHandler struct {
	agents services.AgentService
	logger *slog.Logger
}

// NewAgentHandler creates a new agent handler.
func NewAgentHandler(agents services.AgentService, logger *slog.Logger) *AgentHandler {
	return &AgentHandler{
		agents: agents,
		logger: logger,
	}
}

// ListAgents returns all agents owned by the caller.
// GET /api/agents
func (h *AgentHandler) ListAgents(w http.ResponseWriter, r *http.Request) {
	userID := requestUserID(r, r.URL.Query().Get("user_id"))
	if userID == "" {
		httputil.RespondError(w, http.StatusUnauthorized, "user identity is required")
		return
	}

	agents, err := h.agents.ListAgents(r.Context(), userID)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, agents)
}

// GetAgent returns one agent.
// GET /api/agents/{id}
func (h *AgentHandler) GetAgent(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	userID := requestUserID(r, r.URL.Query().Get("user_id"))
	if userID == "" {
		httputil.RespondError(w, http.StatusUnauthorized, "user identity is required")
		return
	}

	agent, err := h.agents.GetAgent(r.Context(), id, userID)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, agent)
}

// DeleteAgent removes an agent.
// DELETE /api/agents/{id}
func (h *AgentHandler) DeleteAgent(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	userID := requestUserID(r, r.URL.Query().Get("user_id"))
	if userID == "" {
		httputil.RespondError(w, http.StatusUnauthorized, "user identity is required")
		return
	}

	if err := h.agents.DeleteAgent(r.Context(), id, userID); err != nil {
		handleError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ActivateAgent moves an agent to active status.
// POST /api/agents/{id}/activate
func (h *AgentHandler) ActivateAgent(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	userID := requestUserID(r, r.URL.Query().Get("user_id"))
	if userID == "" {
		httputil.RespondError(w, http.StatusUnauthorized, "user identity is required")
		return
	}

	agent, err := h.agents.ActivateAgent(r.Context(), id, userID)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, agent)
}

// testChatBody is the request body for TestChat; it carries the dev-mode
// user_id fallback alongside the message.
type testChatBody struct {
	UserID  string `json:"user_id,omitempty"`
	Message string `json:"message"`
}

// TestChat sends one message to the seller agent.
// POST /api/agents/{id}/test
func (h *AgentHandler) TestChat(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var body testChatBody
	if err := httputil.ParseJSON(w, r, &body); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	userID := requestUserID(r, body.UserID)
	if userID == "" {
		httputil.RespondError(w, http.StatusUnauthorized, "user identity is required")
		return
	}

	result, err := h.agents.TestChat(r.Context(), id, userID, &services.TestChatRequest{Message: body.Message})
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, result)
}

// HealthCheck reports liveness.
// GET /health
func (h *AgentHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	httputil.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
