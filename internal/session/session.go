// Package session holds per-user constructor conversation state behind a
// narrow store interface, so the in-memory map the product started with can
// be swapped for a durable backend without touching the core logic.
package session

import (
	"context"
	"time"

	"vitrina/internal/domain/models"
)

// Mode distinguishes first-time agent assembly from editing an existing one.
type Mode string

const (
	ModeCreate Mode = "create"
	ModeUpdate Mode = "update"
)

// Session is one user's constructor conversation. Turns are append-only;
// the whole history is cleared once a ready/update signal has been
// persisted.
type Session struct {
	Key             string        `json:"key"`
	Mode            Mode          `json:"mode"`
	AgentID         string        `json:"agent_id,omitempty"`
	Turns           []models.Turn `json:"turns"`
	ContextInjected bool          `json:"context_injected"` // existing-agent summary already prepended
	UpdatedAt       time.Time     `json:"updated_at"`
}

// Key derives the store key for a user, optionally scoped to the agent
// being updated so create and update conversations do not interleave.
func Key(userID, agentID string) string {
	if agentID == "" {
		return userID
	}
	return userID + ":" + agentID
}

// Store is the injected session backend.
type Store interface {
	// Get returns the session for a key, or nil when none exists.
	Get(ctx context.Context, key string) (*Session, error)

	// Put stores a session under its key, replacing any previous value.
	Put(ctx context.Context, sess *Session) error

	// Clear removes the session for a key. Clearing a missing key is not an
	// error.
	Clear(ctx context.Context, key string) error
}
