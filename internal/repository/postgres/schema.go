package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// EnsureSchema creates the agent tables if they do not exist. Idempotent;
// called once at startup.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool, tables *TableNames) error {
	statements := []string{
		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				id             UUID PRIMARY KEY,
				user_id        TEXT NOT NULL,
				agent_name     TEXT NOT NULL,
				business_type  TEXT NOT NULL,
				persona        TEXT NOT NULL DEFAULT '',
				system_prompt  TEXT NOT NULL DEFAULT '',
				knowledge_base JSONB NOT NULL DEFAULT '{}'::jsonb,
				status         TEXT NOT NULL DEFAULT 'draft',
				created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
				updated_at     TIMESTAMPTZ NOT NULL DEFAULT now()
			)
		`, tables.Agents),
		fmt.Sprintf(`
			CREATE INDEX IF NOT EXISTS %s_user_id_idx ON %s (user_id, updated_at DESC)
		`, tables.Agents, tables.Agents),
		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				id         UUID PRIMARY KEY,
				agent_id   UUID NOT NULL REFERENCES %s (id) ON DELETE CASCADE,
				channel    TEXT NOT NULL,
				messages   JSONB NOT NULL DEFAULT '[]'::jsonb,
				created_at TIMESTAMPTZ NOT NULL DEFAULT now()
			)
		`, tables.Conversations, tables.Agents),
		fmt.Sprintf(`
			CREATE INDEX IF NOT EXISTS %s_agent_id_idx ON %s (agent_id, created_at DESC)
		`, tables.Conversations, tables.Conversations),
	}

	for _, stmt := range statements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
