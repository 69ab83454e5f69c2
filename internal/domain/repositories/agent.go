package repositories

import (
	"context"

	"vitrina/internal/domain/models"
)

// AgentRepository is the persistence collaborator for seller agents.
// The constructor core never issues raw storage queries itself.
type AgentRepository interface {
	// Create inserts a new agent and fills in its generated fields.
	Create(ctx context.Context, agent *models.Agent) error

	// GetByID returns an agent or domain.ErrNotFound.
	GetByID(ctx context.Context, id string) (*models.Agent, error)

	// GetByUser returns the user's agent, or nil without error when the user
	// has none yet (one agent per user in the current product).
	GetByUser(ctx context.Context, userID string) (*models.Agent, error)

	// ListByUser returns all agents owned by a user, newest first.
	ListByUser(ctx context.Context, userID string) ([]models.Agent, error)

	// Update overwrites the mutable fields of an existing agent.
	Update(ctx context.Context, agent *models.Agent) error

	// UpdateStatus changes only the lifecycle status.
	UpdateStatus(ctx context.Context, id string, status models.AgentStatus) error

	// Delete removes an agent permanently.
	Delete(ctx context.Context, id string) error
}

// ConversationRepository logs agent/customer exchanges.
type ConversationRepository interface {
	Save(ctx context.Context, conv *models.Conversation) error
}
