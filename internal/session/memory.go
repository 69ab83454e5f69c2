package session

import (
	"context"
	"sync"

	"vitrina/internal/domain/models"
)

// MemoryStore keeps sessions in a process-local map. Sessions live for the
// process lifetime unless cleared. Copies are stored and returned so callers
// never alias the map's values.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewMemoryStore creates an empty in-memory session store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*Session),
	}
}

func (s *MemoryStore) Get(_ context.Context, key string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[key]
	if !ok {
		return nil, nil
	}
	return copySession(sess), nil
}

func (s *MemoryStore) Put(_ context.Context, sess *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[sess.Key] = copySession(sess)
	return nil
}

func (s *MemoryStore) Clear(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, key)
	return nil
}

func copySession(sess *Session) *Session {
	dup := *sess
	dup.Turns = append([]models.Turn(nil), sess.Turns...)
	return &dup
}
