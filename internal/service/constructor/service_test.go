package constructor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"

	"vitrina/internal/domain"
	"vitrina/internal/domain/models"
	"vitrina/internal/domain/services"
	domainllm "vitrina/internal/domain/services/llm"
	"vitrina/internal/persona"
	"vitrina/internal/repository/memory"
	"vitrina/internal/session"
)

// scriptedCompleter returns queued responses in order and records requests.
type scriptedCompleter struct {
	responses []string
	err       error
	requests  []*domainllm.CompletionRequest
}

func (c *scriptedCompleter) Complete(ctx context.Context, req *domainllm.CompletionRequest) (*domainllm.CompletionResponse, error) {
	c.requests = append(c.requests, req)
	if c.err != nil {
		return nil, c.err
	}
	if len(c.responses) == 0 {
		return &domainllm.CompletionResponse{Content: "Tell me more about your business."}, nil
	}
	resp := c.responses[0]
	c.responses = c.responses[1:]
	return &domainllm.CompletionResponse{Content: resp, TokensUsed: 42}, nil
}

// fakeExtractor returns a fixed SiteInfo or error.
type fakeExtractor struct {
	info  *models.SiteInfo
	err   error
	calls []string
}

func (f *fakeExtractor) FetchAndExtract(ctx context.Context, url string) (*models.SiteInfo, error) {
	f.calls = append(f.calls, url)
	if f.err != nil {
		return nil, f.err
	}
	return f.info, nil
}

type fixture struct {
	svc       *Service
	store     *session.MemoryStore
	agents    *memory.AgentRepository
	completer *scriptedCompleter
	extractor *fakeExtractor
}

func newFixture(t *testing.T, responses ...string) *fixture {
	t.Helper()
	personas, err := persona.NewRegistry()
	if err != nil {
		t.Fatalf("load personas: %v", err)
	}

	f := &fixture{
		store:     session.NewMemoryStore(),
		agents:    memory.NewAgentRepository(),
		completer: &scriptedCompleter{responses: responses},
		extractor: &fakeExtractor{info: &models.SiteInfo{}},
	}
	f.svc = NewService(
		f.store,
		f.agents,
		f.extractor,
		f.completer,
		personas,
		"test-model",
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	)
	return f
}

const readyResponse = `Your assistant is ready!

---AGENT-READY---
NAME: Victoria
TYPE: Beauty salon
DATA: {"services": [{"name": "Haircut", "price": "500"}], "contacts": {"phone": "+7 900"}}
---`

func TestHandleMessageGathering(t *testing.T) {
	f := newFixture(t, "What services do you offer?")

	result, err := f.svc.HandleMessage(context.Background(), &services.ChatRequest{
		UserID:  "u1",
		Message: "I run a beauty salon",
	})
	if err != nil {
		t.Fatalf("HandleMessage() error = %v", err)
	}

	if result.AgentCreated || result.AgentUpdated {
		t.Error("no agent action expected while gathering")
	}
	if result.Response != "What services do you offer?" {
		t.Errorf("Response = %q", result.Response)
	}
	if result.TokensUsed != 42 {
		t.Errorf("TokensUsed = %d", result.TokensUsed)
	}

	sess, _ := f.store.Get(context.Background(), session.Key("u1", ""))
	if sess == nil || len(sess.Turns) != 2 {
		t.Fatalf("session turns = %#v, want user+assistant", sess)
	}
	if sess.Turns[0].Role != models.RoleUser || sess.Turns[1].Role != models.RoleAssistant {
		t.Errorf("turn roles = %v, %v", sess.Turns[0].Role, sess.Turns[1].Role)
	}

	// The completion request starts with the instruction turn.
	req := f.completer.requests[0]
	if req.Messages[0].Role != models.RoleSystem || !strings.Contains(req.Messages[0].Content, "AGENT-READY") {
		t.Error("completion request missing instruction turn")
	}
}

func TestHandleMessageCreatesAgent(t *testing.T) {
	f := newFixture(t, readyResponse)

	result, err := f.svc.HandleMessage(context.Background(), &services.ChatRequest{
		UserID:  "u1",
		Message: "Yes, everything is correct, create it",
	})
	if err != nil {
		t.Fatalf("HandleMessage() error = %v", err)
	}

	if !result.AgentCreated {
		t.Fatal("AgentCreated = false")
	}
	if strings.Contains(result.Response, "AGENT-READY") {
		t.Errorf("marker leaked into response: %q", result.Response)
	}

	agent, err := f.agents.GetByID(context.Background(), result.AgentID)
	if err != nil {
		t.Fatalf("created agent not found: %v", err)
	}
	if agent.AgentName != "victoria" {
		t.Errorf("AgentName = %q, want lower-cased", agent.AgentName)
	}
	if agent.BusinessType != "Beauty salon" {
		t.Errorf("BusinessType = %q", agent.BusinessType)
	}
	if agent.Status != models.StatusDraft {
		t.Errorf("Status = %q, want draft", agent.Status)
	}
	if agent.Persona != "victoria" {
		t.Errorf("Persona = %q", agent.Persona)
	}
	if !strings.Contains(agent.SystemPrompt, "Haircut") {
		t.Errorf("system prompt missing services:\n%s", agent.SystemPrompt)
	}

	// Session resets after persistence.
	sess, _ := f.store.Get(context.Background(), session.Key("u1", ""))
	if sess != nil {
		t.Errorf("session not cleared: %#v", sess)
	}
}

func TestHandleMessageSecondReadyUpdatesExistingAgent(t *testing.T) {
	f := newFixture(t, readyResponse, `---AGENT-READY---
NAME: Victoria
TYPE: Beauty salon
DATA: {"services": [{"name": "Manicure", "price": "700"}]}
---`)

	ctx := context.Background()
	first, err := f.svc.HandleMessage(ctx, &services.ChatRequest{UserID: "u1", Message: "create it"})
	if err != nil {
		t.Fatalf("first HandleMessage() error = %v", err)
	}
	second, err := f.svc.HandleMessage(ctx, &services.ChatRequest{UserID: "u1", Message: "add manicure"})
	if err != nil {
		t.Fatalf("second HandleMessage() error = %v", err)
	}

	if !second.AgentUpdated || second.AgentCreated {
		t.Errorf("second signal should update, got created=%v updated=%v", second.AgentCreated, second.AgentUpdated)
	}
	if second.AgentID != first.AgentID {
		t.Errorf("agent IDs differ: %q vs %q", first.AgentID, second.AgentID)
	}

	agent, _ := f.agents.GetByID(ctx, first.AgentID)
	prompt := agent.SystemPrompt
	if !strings.Contains(prompt, "Haircut") || !strings.Contains(prompt, "Manicure") {
		t.Errorf("merge lost services:\n%s", prompt)
	}
}

func TestHandleMessageUpdateMode(t *testing.T) {
	f := newFixture(t, `Done!

---AGENT-UPDATE---
DATA: {"services": [{"name": "Manicure", "price": "700"}]}
---`)

	ctx := context.Background()
	existing := &models.Agent{
		ID:           "agent-1",
		UserID:       "u1",
		AgentName:    "victoria",
		BusinessType: "Beauty salon",
		Persona:      "victoria",
		KnowledgeBase: models.KnowledgeBase{
			"services": []models.ServiceEntry{{Name: "Haircut", Price: "500"}},
		},
		Status: models.StatusActive,
	}
	if err := f.agents.Create(ctx, existing); err != nil {
		t.Fatalf("seed agent: %v", err)
	}

	result, err := f.svc.HandleMessage(ctx, &services.ChatRequest{
		UserID:  "u1",
		AgentID: "agent-1",
		Message: "add manicure for 700",
	})
	if err != nil {
		t.Fatalf("HandleMessage() error = %v", err)
	}

	if !result.AgentUpdated {
		t.Fatal("AgentUpdated = false")
	}

	agent, _ := f.agents.GetByID(ctx, "agent-1")
	if !strings.Contains(agent.SystemPrompt, "Haircut") || !strings.Contains(agent.SystemPrompt, "Manicure") {
		t.Errorf("merge lost services:\n%s", agent.SystemPrompt)
	}

	// The meta-agent saw the existing agent's summary, injected once.
	req := f.completer.requests[0]
	var summaries int
	for _, turn := range req.Messages {
		if turn.Role == models.RoleSystem && strings.Contains(turn.Content, "editing an existing assistant") {
			summaries++
		}
	}
	if summaries != 1 {
		t.Errorf("agent context injected %d times, want 1", summaries)
	}
}

func TestHandleMessageInjectsSiteContext(t *testing.T) {
	f := newFixture(t, "Got it, I studied your site.")
	f.extractor.info = &models.SiteInfo{
		BusinessType: "bakery",
		About:        "Family bakery since 1990",
	}

	_, err := f.svc.HandleMessage(context.Background(), &services.ChatRequest{
		UserID:  "u1",
		Message: "Here is our website: https://bakery.example/about, have a look!",
	})
	if err != nil {
		t.Fatalf("HandleMessage() error = %v", err)
	}

	if len(f.extractor.calls) != 1 || f.extractor.calls[0] != "https://bakery.example/about" {
		t.Fatalf("extractor calls = %v", f.extractor.calls)
	}

	var found bool
	for _, turn := range f.completer.requests[0].Messages {
		if turn.Role == models.RoleSystem && strings.Contains(turn.Content, "Family bakery since 1990") {
			found = true
		}
	}
	if !found {
		t.Error("site facts not injected into completion request")
	}
}

func TestHandleMessageExtractionFailureIsNonFatal(t *testing.T) {
	f := newFixture(t, "Could not open the site, tell me about the business yourself.")
	f.extractor.err = errors.New("timeout")

	result, err := f.svc.HandleMessage(context.Background(), &services.ChatRequest{
		UserID:  "u1",
		Message: "see https://slow.example",
	})
	if err != nil {
		t.Fatalf("HandleMessage() error = %v", err)
	}
	if result.Response == "" {
		t.Error("conversation should continue after extraction failure")
	}
}

func TestHandleMessageProviderFailureKeepsUserTurn(t *testing.T) {
	f := newFixture(t)
	f.completer.err = errors.New("provider down")

	_, err := f.svc.HandleMessage(context.Background(), &services.ChatRequest{
		UserID:  "u1",
		Message: "hello",
	})
	if err == nil {
		t.Fatal("HandleMessage() error = nil, want failure")
	}

	sess, _ := f.store.Get(context.Background(), session.Key("u1", ""))
	if sess == nil || len(sess.Turns) != 1 || sess.Turns[0].Content != "hello" {
		t.Errorf("user turn not retained for retry: %#v", sess)
	}
}

func TestHandleMessageValidation(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name string
		req  *services.ChatRequest
	}{
		{"empty user", &services.ChatRequest{Message: "hi"}},
		{"empty message", &services.ChatRequest{UserID: "u1"}},
		{"oversized message", &services.ChatRequest{UserID: "u1", Message: strings.Repeat("x", 16001)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.HandleMessage(context.Background(), tt.req)
			if !errors.Is(err, domain.ErrValidation) {
				t.Errorf("error = %v, want ErrValidation", err)
			}
		})
	}
}

func TestHandleMessageAttachments(t *testing.T) {
	f := newFixture(t, "Thanks, noted your price list.")

	_, err := f.svc.HandleMessage(context.Background(), &services.ChatRequest{
		UserID:  "u1",
		Message: "here is our price list",
		Files: []services.UploadedFile{
			{Name: "prices.txt", Content: "Haircut 500\nManicure 700"},
		},
	})
	if err != nil {
		t.Fatalf("HandleMessage() error = %v", err)
	}

	sess, _ := f.store.Get(context.Background(), session.Key("u1", ""))
	if !strings.Contains(sess.Turns[0].Content, "Haircut 500") {
		t.Errorf("attachment content missing from user turn: %q", sess.Turns[0].Content)
	}
	if !strings.Contains(sess.Turns[0].Content, "prices.txt") {
		t.Errorf("attachment name missing from user turn: %q", sess.Turns[0].Content)
	}
}

func TestResetSession(t *testing.T) {
	f := newFixture(t, "What do you sell?")

	ctx := context.Background()
	if _, err := f.svc.HandleMessage(ctx, &services.ChatRequest{UserID: "u1", Message: "hi"}); err != nil {
		t.Fatalf("HandleMessage() error = %v", err)
	}
	if err := f.svc.ResetSession(ctx, "u1", ""); err != nil {
		t.Fatalf("ResetSession() error = %v", err)
	}

	sess, _ := f.store.Get(ctx, session.Key("u1", ""))
	if sess != nil {
		t.Errorf("session survived reset: %#v", sess)
	}
}

func TestFindURLs(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"check https://a.example/x, please", []string{"https://a.example/x"}},
		{"http://b.example and https://c.example!", []string{"http://b.example", "https://c.example"}},
		{"no links here", nil},
		{"(https://d.example/path)", []string{"https://d.example/path"}},
	}
	for _, tt := range tests {
		got := findURLs(tt.in)
		if fmt.Sprint(got) != fmt.Sprint(tt.want) {
			t.Errorf("findURLs(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
