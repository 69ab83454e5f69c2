package models

import "time"

// AgentStatus is the lifecycle state of a seller agent.
type AgentStatus string

const (
	StatusDraft    AgentStatus = "draft"
	StatusTest     AgentStatus = "test"
	StatusActive   AgentStatus = "active"
	StatusArchived AgentStatus = "archived"
)

// Agent is a deployed (or deployable) seller chatbot assembled by the
// constructor. The knowledge base and system prompt are regenerated together
// on every create/update signal.
type Agent struct {
	ID            string        `json:"id"`
	UserID        string        `json:"user_id"`
	AgentName     string        `json:"agent_name"`
	BusinessType  string        `json:"business_type"`
	Persona       string        `json:"persona"`
	SystemPrompt  string        `json:"system_prompt,omitempty"`
	KnowledgeBase KnowledgeBase `json:"knowledge_base,omitempty"`
	Status        AgentStatus   `json:"status"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// Conversation is a logged exchange between a seller agent and a customer
// (or the test console).
type Conversation struct {
	ID        string    `json:"id"`
	AgentID   string    `json:"agent_id"`
	Channel   string    `json:"channel"`
	Messages  []Turn    `json:"messages"`
	CreatedAt time.Time `json:"created_at"`
}
