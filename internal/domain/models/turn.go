package models

// Role identifies who produced a conversation turn.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one message in a constructor conversation. Turns are append-only
// within a session; their order defines the context the completion provider
// sees.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}
