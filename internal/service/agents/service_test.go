package agents

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"vitrina/internal/domain"
	"vitrina/internal/domain/models"
	"vitrina/internal/domain/services"
	domainllm "vitrina/internal/domain/services/llm"
	"vitrina/internal/repository/memory"
)

type stubCompleter struct {
	lastReq  *domainllm.CompletionRequest
	response string
	err      error
}

func (s *stubCompleter) Complete(ctx context.Context, req *domainllm.CompletionRequest) (*domainllm.CompletionResponse, error) {
	s.lastReq = req
	if s.err != nil {
		return nil, s.err
	}
	return &domainllm.CompletionResponse{Content: s.response, TokensUsed: 7}, nil
}

func newTestService(t *testing.T) (*Service, *memory.AgentRepository, *memory.ConversationRepository, *stubCompleter) {
	t.Helper()
	agents := memory.NewAgentRepository()
	convs := memory.NewConversationRepository()
	completer := &stubCompleter{response: "Hello! How can I help?"}
	svc := NewService(agents, convs, completer, "test-model", slog.New(slog.NewTextHandler(io.Discard, nil)))
	return svc, agents, convs, completer
}

func seedAgent(t *testing.T, repo *memory.AgentRepository, status models.AgentStatus, prompt string) *models.Agent {
	t.Helper()
	agent := &models.Agent{
		ID:           "agent-1",
		UserID:       "u1",
		AgentName:    "victoria",
		BusinessType: "salon",
		SystemPrompt: prompt,
		Status:       status,
	}
	if err := repo.Create(context.Background(), agent); err != nil {
		t.Fatalf("seed agent: %v", err)
	}
	return agent
}

func TestGetAgentOwnership(t *testing.T) {
	svc, repo, _, _ := newTestService(t)
	seedAgent(t, repo, models.StatusDraft, "prompt")

	if _, err := svc.GetAgent(context.Background(), "agent-1", "u1"); err != nil {
		t.Errorf("owner GetAgent() error = %v", err)
	}

	// A foreign agent reads as not found.
	_, err := svc.GetAgent(context.Background(), "agent-1", "intruder")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("foreign GetAgent() error = %v, want ErrNotFound", err)
	}
}

func TestActivateAgent(t *testing.T) {
	ctx := context.Background()

	t.Run("draft with prompt activates", func(t *testing.T) {
		svc, repo, _, _ := newTestService(t)
		seedAgent(t, repo, models.StatusDraft, "You are Victoria...")

		agent, err := svc.ActivateAgent(ctx, "agent-1", "u1")
		if err != nil {
			t.Fatalf("ActivateAgent() error = %v", err)
		}
		if agent.Status != models.StatusActive {
			t.Errorf("Status = %q", agent.Status)
		}

		stored, _ := repo.GetByID(ctx, "agent-1")
		if stored.Status != models.StatusActive {
			t.Errorf("stored Status = %q", stored.Status)
		}
	})

	t.Run("no system prompt rejected", func(t *testing.T) {
		svc, repo, _, _ := newTestService(t)
		seedAgent(t, repo, models.StatusDraft, "")

		_, err := svc.ActivateAgent(ctx, "agent-1", "u1")
		if !errors.Is(err, domain.ErrValidation) {
			t.Errorf("error = %v, want ErrValidation", err)
		}
	})

	t.Run("already active is a no-op", func(t *testing.T) {
		svc, repo, _, _ := newTestService(t)
		seedAgent(t, repo, models.StatusActive, "prompt")

		agent, err := svc.ActivateAgent(ctx, "agent-1", "u1")
		if err != nil || agent.Status != models.StatusActive {
			t.Errorf("ActivateAgent() = %v, %v", agent, err)
		}
	})
}

func TestDeleteAgent(t *testing.T) {
	ctx := context.Background()
	svc, repo, _, _ := newTestService(t)
	seedAgent(t, repo, models.StatusDraft, "prompt")

	if err := svc.DeleteAgent(ctx, "agent-1", "intruder"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("foreign delete error = %v, want ErrNotFound", err)
	}

	if err := svc.DeleteAgent(ctx, "agent-1", "u1"); err != nil {
		t.Fatalf("DeleteAgent() error = %v", err)
	}
	if _, err := repo.GetByID(ctx, "agent-1"); !errors.Is(err, domain.ErrNotFound) {
		t.Error("agent still present after delete")
	}
}

func TestTestChat(t *testing.T) {
	ctx := context.Background()
	svc, repo, convs, completer := newTestService(t)
	seedAgent(t, repo, models.StatusDraft, "You are Victoria, a sales assistant.")

	result, err := svc.TestChat(ctx, "agent-1", "u1", &services.TestChatRequest{Message: "How much is a haircut?"})
	if err != nil {
		t.Fatalf("TestChat() error = %v", err)
	}
	if result.Response != "Hello! How can I help?" {
		t.Errorf("Response = %q", result.Response)
	}
	if result.AgentName != "victoria" {
		t.Errorf("AgentName = %q", result.AgentName)
	}

	// The seller prompt drives the completion, not the constructor prompt.
	if completer.lastReq.Messages[0].Role != models.RoleSystem ||
		completer.lastReq.Messages[0].Content != "You are Victoria, a sales assistant." {
		t.Errorf("system turn = %#v", completer.lastReq.Messages[0])
	}

	// The exchange is logged as a test conversation.
	logged := convs.All()
	if len(logged) != 1 || logged[0].Channel != "test" || len(logged[0].Messages) != 2 {
		t.Errorf("conversations = %#v", logged)
	}
}

func TestTestChatWithoutPrompt(t *testing.T) {
	svc, repo, _, _ := newTestService(t)
	seedAgent(t, repo, models.StatusDraft, "")

	_, err := svc.TestChat(context.Background(), "agent-1", "u1", &services.TestChatRequest{Message: "hi"})
	if !errors.Is(err, domain.ErrValidation) {
		t.Errorf("error = %v, want ErrValidation", err)
	}
}

func TestTestChatValidation(t *testing.T) {
	svc, repo, _, _ := newTestService(t)
	seedAgent(t, repo, models.StatusDraft, "prompt")

	_, err := svc.TestChat(context.Background(), "agent-1", "u1", &services.TestChatRequest{})
	if !errors.Is(err, domain.ErrValidation) {
		t.Errorf("error = %v, want ErrValidation", err)
	}
}
