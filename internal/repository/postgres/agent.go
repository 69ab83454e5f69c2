package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"vitrina/internal/domain"
	"vitrina/internal/domain/models"
	"vitrina/internal/domain/repositories"
)

// PostgresAgentRepository implements the AgentRepository interface.
// The knowledge base lives in a JSONB column; pgx encodes map values on the
// extended protocol, see CreateConnectionPool.
type PostgresAgentRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
}

// NewAgentRepository creates a new agent repository.
func NewAgentRepository(config *RepositoryConfig) repositories.AgentRepository {
	return &PostgresAgentRepository{
		pool:   config.Pool,
		tables: config.Tables,
	}
}

// Create inserts a new agent.
func (r *PostgresAgentRepository) Create(ctx context.Context, agent *models.Agent) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, user_id, agent_name, business_type, persona, system_prompt, knowledge_base, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at, updated_at
	`, r.tables.Agents)

	err := r.pool.QueryRow(ctx, query,
		agent.ID,
		agent.UserID,
		agent.AgentName,
		agent.BusinessType,
		agent.Persona,
		agent.SystemPrompt,
		map[string]any(agent.KnowledgeBase),
		agent.Status,
		agent.CreatedAt,
		agent.UpdatedAt,
	).Scan(&agent.CreatedAt, &agent.UpdatedAt)

	if err != nil {
		if isPgDuplicateError(err) {
			return fmt.Errorf("agent %s already exists: %w", agent.ID, domain.ErrConflict)
		}
		return fmt.Errorf("create agent: %w", err)
	}

	return nil
}

// GetByID retrieves an agent by ID.
func (r *PostgresAgentRepository) GetByID(ctx context.Context, id string) (*models.Agent, error) {
	query := fmt.Sprintf(`
		SELECT id, user_id, agent_name, business_type, persona, system_prompt, knowledge_base, status, created_at, updated_at
		FROM %s
		WHERE id = $1
	`, r.tables.Agents)

	agent, err := scanAgent(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if isPgNoRowsError(err) {
			return nil, fmt.Errorf("agent %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get agent: %w", err)
	}

	return agent, nil
}

// GetByUser returns the user's most recently updated agent, or nil when the
// user has none.
func (r *PostgresAgentRepository) GetByUser(ctx context.Context, userID string) (*models.Agent, error) {
	query := fmt.Sprintf(`
		SELECT id, user_id, agent_name, business_type, persona, system_prompt, knowledge_base, status, created_at, updated_at
		FROM %s
		WHERE user_id = $1
		ORDER BY updated_at DESC
		LIMIT 1
	`, r.tables.Agents)

	agent, err := scanAgent(r.pool.QueryRow(ctx, query, userID))
	if err != nil {
		if isPgNoRowsError(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get agent by user: %w", err)
	}

	return agent, nil
}

// ListByUser retrieves all agents for a user, ordered by updated_at DESC.
func (r *PostgresAgentRepository) ListByUser(ctx context.Context, userID string) ([]models.Agent, error) {
	query := fmt.Sprintf(`
		SELECT id, user_id, agent_name, business_type, persona, system_prompt, knowledge_base, status, created_at, updated_at
		FROM %s
		WHERE user_id = $1
		ORDER BY updated_at DESC
	`, r.tables.Agents)

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list agents: %w", err)
	}
	defer rows.Close()

	var agents []models.Agent
	for rows.Next() {
		agent, err := scanAgent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan agent: %w", err)
		}
		agents = append(agents, *agent)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate agents: %w", err)
	}

	// Return empty slice instead of nil if no agents
	if agents == nil {
		agents = []models.Agent{}
	}

	return agents, nil
}

// Update overwrites the mutable fields of an existing agent.
func (r *PostgresAgentRepository) Update(ctx context.Context, agent *models.Agent) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET agent_name = $1, business_type = $2, persona = $3, system_prompt = $4, knowledge_base = $5, updated_at = $6
		WHERE id = $7
	`, r.tables.Agents)

	result, err := r.pool.Exec(ctx, query,
		agent.AgentName,
		agent.BusinessType,
		agent.Persona,
		agent.SystemPrompt,
		map[string]any(agent.KnowledgeBase),
		agent.UpdatedAt,
		agent.ID,
	)

	if err != nil {
		return fmt.Errorf("update agent: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("agent %s: %w", agent.ID, domain.ErrNotFound)
	}

	return nil
}

// UpdateStatus changes only the lifecycle status.
func (r *PostgresAgentRepository) UpdateStatus(ctx context.Context, id string, status models.AgentStatus) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET status = $1, updated_at = now()
		WHERE id = $2
	`, r.tables.Agents)

	result, err := r.pool.Exec(ctx, query, status, id)
	if err != nil {
		return fmt.Errorf("update agent status: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("agent %s: %w", id, domain.ErrNotFound)
	}

	return nil
}

// Delete removes an agent permanently.
func (r *PostgresAgentRepository) Delete(ctx context.Context, id string) error {
	query := fmt.Sprintf(`
		DELETE FROM %s
		WHERE id = $1
	`, r.tables.Agents)

	result, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete agent: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("agent %s: %w", id, domain.ErrNotFound)
	}

	return nil
}

// rowScanner covers both pgx.Row and pgx.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanAgent(row rowScanner) (*models.Agent, error) {
	var agent models.Agent
	var kb map[string]any
	err := row.Scan(
		&agent.ID,
		&agent.UserID,
		&agent.AgentName,
		&agent.BusinessType,
		&agent.Persona,
		&agent.SystemPrompt,
		&kb,
		&agent.Status,
		&agent.CreatedAt,
		&agent.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	agent.KnowledgeBase = models.KnowledgeBase(kb)
	return &agent, nil
}
