package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"vitrina/internal/domain/models"
	"vitrina/internal/domain/repositories"
)

// PostgresConversationRepository implements the ConversationRepository
// interface. Messages are stored as a JSONB array.
type PostgresConversationRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
}

// NewConversationRepository creates a new conversation repository.
func NewConversationRepository(config *RepositoryConfig) repositories.ConversationRepository {
	return &PostgresConversationRepository{
		pool:   config.Pool,
		tables: config.Tables,
	}
}

// Save inserts a conversation log entry.
func (r *PostgresConversationRepository) Save(ctx context.Context, conv *models.Conversation) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, agent_id, channel, messages, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, r.tables.Conversations)

	_, err := r.pool.Exec(ctx, query,
		conv.ID,
		conv.AgentID,
		conv.Channel,
		conv.Messages,
		conv.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("save conversation: %w", err)
	}

	return nil
}
