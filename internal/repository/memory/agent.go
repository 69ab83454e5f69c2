// Package memory holds in-memory repository implementations used by the dev
// CLI and tests. Not safe for production: nothing survives a restart.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"vitrina/internal/domain"
	"vitrina/internal/domain/models"
)

// AgentRepository is a map-backed implementation of
// repositories.AgentRepository.
type AgentRepository struct {
	mu     sync.RWMutex
	agents map[string]models.Agent
}

// NewAgentRepository creates an empty in-memory agent repository.
func NewAgentRepository() *AgentRepository {
	return &AgentRepository{agents: make(map[string]models.Agent)}
}

func (r *AgentRepository) Create(ctx context.Context, agent *models.Agent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.agents[agent.ID]; exists {
		return fmt.Errorf("agent %s already exists: %w", agent.ID, domain.ErrConflict)
	}
	r.agents[agent.ID] = cloneAgent(agent)
	return nil
}

func (r *AgentRepository) GetByID(ctx context.Context, id string) (*models.Agent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	agent, ok := r.agents[id]
	if !ok {
		return nil, fmt.Errorf("agent %s: %w", id, domain.ErrNotFound)
	}
	out := cloneAgent(&agent)
	return &out, nil
}

func (r *AgentRepository) GetByUser(ctx context.Context, userID string) (*models.Agent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var latest *models.Agent
	for id := range r.agents {
		agent := r.agents[id]
		if agent.UserID != userID {
			continue
		}
		if latest == nil || agent.UpdatedAt.After(latest.UpdatedAt) {
			copied := cloneAgent(&agent)
			latest = &copied
		}
	}
	return latest, nil
}

func (r *AgentRepository) ListByUser(ctx context.Context, userID string) ([]models.Agent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	agents := []models.Agent{}
	for id := range r.agents {
		agent := r.agents[id]
		if agent.UserID == userID {
			agents = append(agents, cloneAgent(&agent))
		}
	}
	sort.Slice(agents, func(i, j int) bool {
		return agents[i].UpdatedAt.After(agents[j].UpdatedAt)
	})
	return agents, nil
}

func (r *AgentRepository) Update(ctx context.Context, agent *models.Agent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.agents[agent.ID]; !ok {
		return fmt.Errorf("agent %s: %w", agent.ID, domain.ErrNotFound)
	}
	r.agents[agent.ID] = cloneAgent(agent)
	return nil
}

func (r *AgentRepository) UpdateStatus(ctx context.Context, id string, status models.AgentStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	agent, ok := r.agents[id]
	if !ok {
		return fmt.Errorf("agent %s: %w", id, domain.ErrNotFound)
	}
	agent.Status = status
	r.agents[id] = agent
	return nil
}

func (r *AgentRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.agents[id]; !ok {
		return fmt.Errorf("agent %s: %w", id, domain.ErrNotFound)
	}
	delete(r.agents, id)
	return nil
}

func cloneAgent(a *models.Agent) models.Agent {
	out := *a
	out.KnowledgeBase = a.KnowledgeBase.Clone()
	return out
}

// ConversationRepository is a slice-backed implementation of
// repositories.ConversationRepository.
type ConversationRepository struct {
	mu            sync.Mutex
	conversations []models.Conversation
}

// NewConversationRepository creates an empty in-memory conversation log.
func NewConversationRepository() *ConversationRepository {
	return &ConversationRepository{}
}

func (r *ConversationRepository) Save(ctx context.Context, conv *models.Conversation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *conv
	copied.Messages = append([]models.Turn(nil), conv.Messages...)
	r.conversations = append(r.conversations, copied)
	return nil
}

// All returns the logged conversations, for tests and the dev CLI.
func (r *ConversationRepository) All() []models.Conversation {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.Conversation(nil), r.conversations...)
}
