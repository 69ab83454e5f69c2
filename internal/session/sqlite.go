package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"vitrina/internal/domain/models"
)

// SQLiteStore persists sessions to a local SQLite database so constructor
// conversations survive process restarts.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (creating if needed) a SQLite-backed session store.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// WAL mode for better concurrency under parallel requests.
	dsn := dbPath + "?_journal=WAL&_sync=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	CREATE TABLE IF NOT EXISTS constructor_sessions (
		key TEXT PRIMARY KEY,
		mode TEXT NOT NULL,
		agent_id TEXT,
		context_injected INTEGER DEFAULT 0,
		turns_json TEXT NOT NULL,
		updated_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_constructor_sessions_updated ON constructor_sessions(updated_at);
	`
	if _, err := s.db.Exec(query); err != nil {
		return err
	}
	return nil
}

func (s *SQLiteStore) Get(ctx context.Context, key string) (*Session, error) {
	query := `
		SELECT key, mode, agent_id, context_injected, turns_json, updated_at
		FROM constructor_sessions WHERE key = ?
	`

	var (
		sess            Session
		agentID         sql.NullString
		contextInjected int
		turnsJSON       string
		updatedAt       int64
	)
	err := s.db.QueryRowContext(ctx, query, key).Scan(
		&sess.Key, &sess.Mode, &agentID, &contextInjected, &turnsJSON, &updatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get session: %w", err)
	}

	sess.AgentID = agentID.String
	sess.ContextInjected = contextInjected != 0
	sess.UpdatedAt = time.Unix(updatedAt, 0)
	if err := json.Unmarshal([]byte(turnsJSON), &sess.Turns); err != nil {
		return nil, fmt.Errorf("decode session turns: %w", err)
	}

	return &sess, nil
}

func (s *SQLiteStore) Put(ctx context.Context, sess *Session) error {
	turns := sess.Turns
	if turns == nil {
		turns = []models.Turn{}
	}
	turnsJSON, err := json.Marshal(turns)
	if err != nil {
		return fmt.Errorf("encode session turns: %w", err)
	}

	query := `
		INSERT INTO constructor_sessions (key, mode, agent_id, context_injected, turns_json, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			mode = excluded.mode,
			agent_id = excluded.agent_id,
			context_injected = excluded.context_injected,
			turns_json = excluded.turns_json,
			updated_at = excluded.updated_at
	`

	injected := 0
	if sess.ContextInjected {
		injected = 1
	}
	_, err = s.db.ExecContext(ctx, query,
		sess.Key, string(sess.Mode), sess.AgentID, injected, string(turnsJSON), time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("put session: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Clear(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM constructor_sessions WHERE key = ?`, key); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
