package services

import (
	"context"

	"vitrina/internal/domain/models"
)

// SiteExtractor fetches a business website and asks the completion
// capability to summarize it as structured facts. Failures are non-fatal to
// the conversation; callers log and continue.
type SiteExtractor interface {
	FetchAndExtract(ctx context.Context, url string) (*models.SiteInfo, error)
}

// UploadedFile is a file the user attached to a constructor message, already
// read into memory by the transport layer.
type UploadedFile struct {
	Name    string `json:"name"`
	Content string `json:"content"`
}

// ChatRequest is one user message to the meta-agent.
type ChatRequest struct {
	UserID  string         `json:"user_id"`
	Message string         `json:"message"`
	AgentID string         `json:"agent_id,omitempty"` // set for update-mode sessions
	Files   []UploadedFile `json:"files,omitempty"`
}

// ChatResult is the meta-agent's reply plus what happened to the agent
// record, if anything.
type ChatResult struct {
	Response     string `json:"response"`
	AgentCreated bool   `json:"agent_created"`
	AgentUpdated bool   `json:"agent_updated"`
	AgentID      string `json:"agent_id,omitempty"`
	TokensUsed   int    `json:"tokens_used,omitempty"`
}

// ConstructorService drives the agent-assembly conversation.
type ConstructorService interface {
	// HandleMessage appends the user message to the session, runs one
	// completion round-trip and, when the meta-agent signals readiness,
	// persists the assembled agent.
	HandleMessage(ctx context.Context, req *ChatRequest) (*ChatResult, error)

	// ResetSession discards the session's turn history.
	ResetSession(ctx context.Context, userID, agentID string) error
}

// TestChatRequest is a single-shot message to a seller agent.
type TestChatRequest struct {
	Message string `json:"message"`
}

// TestChatResult is the seller agent's reply.
type TestChatResult struct {
	Response   string `json:"response"`
	AgentName  string `json:"agent_name"`
	TokensUsed int    `json:"tokens_used"`
}

// AgentService manages assembled seller agents.
type AgentService interface {
	ListAgents(ctx context.Context, userID string) ([]models.Agent, error)
	GetAgent(ctx context.Context, id, userID string) (*models.Agent, error)
	DeleteAgent(ctx context.Context, id, userID string) error
	ActivateAgent(ctx context.Context, id, userID string) (*models.Agent, error)
	TestChat(ctx context.Context, id, userID string, req *TestChatRequest) (*TestChatResult, error)
}
