// Package agents manages assembled seller agents: listing, lifecycle and
// test conversations.
package agents

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"

	"vitrina/internal/config"
	"vitrina/internal/domain"
	"vitrina/internal/domain/models"
	"vitrina/internal/domain/repositories"
	"vitrina/internal/domain/services"
	domainllm "vitrina/internal/domain/services/llm"
)

// Service implements the AgentService interface.
type Service struct {
	agents        repositories.AgentRepository
	conversations repositories.ConversationRepository
	completer     domainllm.Completer
	model         string
	logger        *slog.Logger
}

// NewService creates the agent management service.
func NewService(
	agents repositories.AgentRepository,
	conversations repositories.ConversationRepository,
	completer domainllm.Completer,
	model string,
	logger *slog.Logger,
) *Service {
	return &Service{
		agents:        agents,
		conversations: conversations,
		completer:     completer,
		model:         model,
		logger:        logger,
	}
}

// ListAgents returns all agents owned by the user, newest first.
func (s *Service) ListAgents(ctx context.Context, userID string) ([]models.Agent, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user_id is required", domain.ErrValidation)
	}
	return s.agents.ListByUser(ctx, userID)
}

// GetAgent returns a single agent, enforcing ownership.
func (s *Service) GetAgent(ctx context.Context, id, userID string) (*models.Agent, error) {
	return s.ownedAgent(ctx, id, userID)
}

// DeleteAgent removes an agent after an ownership check.
func (s *Service) DeleteAgent(ctx context.Context, id, userID string) error {
	if _, err := s.ownedAgent(ctx, id, userID); err != nil {
		return err
	}
	if err := s.agents.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete agent: %w", err)
	}
	s.logger.Info("agent deleted", "agent_id", id)
	return nil
}

// ActivateAgent moves a draft or test agent to active. An agent without a
// rendered system prompt cannot serve customers and stays inactive.
func (s *Service) ActivateAgent(ctx context.Context, id, userID string) (*models.Agent, error) {
	agent, err := s.ownedAgent(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if agent.SystemPrompt == "" {
		return nil, fmt.Errorf("%w: agent has no system prompt yet", domain.ErrValidation)
	}
	if agent.Status == models.StatusActive {
		return agent, nil
	}
	if err := s.agents.UpdateStatus(ctx, id, models.StatusActive); err != nil {
		return nil, fmt.Errorf("activate agent: %w", err)
	}
	agent.Status = models.StatusActive
	agent.UpdatedAt = time.Now()
	s.logger.Info("agent activated", "agent_id", id)
	return agent, nil
}

// TestChat sends one message to the seller agent using its rendered system
// prompt and records the exchange as a test conversation.
func (s *Service) TestChat(ctx context.Context, id, userID string, req *services.TestChatRequest) (*services.TestChatResult, error) {
	if err := validation.ValidateStruct(req,
		validation.Field(&req.Message,
			validation.Required,
			validation.Length(1, config.MaxMessageLength),
		),
	); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	agent, err := s.ownedAgent(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if agent.SystemPrompt == "" {
		return nil, fmt.Errorf("%w: agent has no system prompt yet", domain.ErrValidation)
	}

	resp, err := s.completer.Complete(ctx, &domainllm.CompletionRequest{
		Model: s.model,
		Messages: []models.Turn{
			{Role: models.RoleSystem, Content: agent.SystemPrompt},
			{Role: models.RoleUser, Content: req.Message},
		},
		Temperature: 0.8,
		MaxTokens:   config.MetaAgentMaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("completion call: %w", err)
	}

	conv := &models.Conversation{
		ID:      uuid.NewString(),
		AgentID: agent.ID,
		Channel: "test",
		Messages: []models.Turn{
			{Role: models.RoleUser, Content: req.Message},
			{Role: models.RoleAssistant, Content: resp.Content},
		},
		CreatedAt: time.Now(),
	}
	if err := s.conversations.Save(ctx, conv); err != nil {
		// The reply is still useful; recording is best effort.
		s.logger.Warn("test conversation save failed", "agent_id", agent.ID, "error", err)
	}

	return &services.TestChatResult{
		Response:   resp.Content,
		AgentName:  agent.AgentName,
		TokensUsed: resp.TokensUsed,
	}, nil
}

// ownedAgent loads an agent and verifies the caller owns it. A foreign
// agent reads as not found so ownership probing leaks nothing.
func (s *Service) ownedAgent(ctx context.Context, id, userID string) (*models.Agent, error) {
	if id == "" || userID == "" {
		return nil, fmt.Errorf("%w: agent id and user_id are required", domain.ErrValidation)
	}
	agent, err := s.agents.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if agent.UserID != userID {
		return nil, domain.ErrNotFound
	}
	return agent, nil
}
