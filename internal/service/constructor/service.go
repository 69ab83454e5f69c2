// Package constructor drives the conversation that assembles a seller agent:
// it owns per-user turn history, injects scraped website context, detects
// ready/update signals in completion responses and persists the assembled
// agent through the repository.
package constructor

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"sync"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"

	"vitrina/internal/config"
	"vitrina/internal/domain"
	"vitrina/internal/domain/models"
	"vitrina/internal/domain/repositories"
	"vitrina/internal/domain/services"
	domainllm "vitrina/internal/domain/services/llm"
	"vitrina/internal/persona"
	"vitrina/internal/service/kb"
	"vitrina/internal/service/protocol"
	"vitrina/internal/session"
)

// urlRe finds URLs in a user message. Only the first match triggers
// extraction; that is deliberate policy, not an oversight.
var urlRe = regexp.MustCompile(`https?://[^\s<>"{}|\\^` + "`" + `\[\]]+`)

// Service implements the ConstructorService interface.
type Service struct {
	store       session.Store
	agents      repositories.AgentRepository
	extractor   services.SiteExtractor
	completer   domainllm.Completer
	personas    *persona.Registry
	attachments *attachmentConverter
	model       string
	logger      *slog.Logger
	locks       keyedMutex
}

// NewService creates the constructor service.
func NewService(
	store session.Store,
	agents repositories.AgentRepository,
	extractor services.SiteExtractor,
	completer domainllm.Completer,
	personas *persona.Registry,
	model string,
	logger *slog.Logger,
) *Service {
	return &Service{
		store:       store,
		agents:      agents,
		extractor:   extractor,
		completer:   completer,
		personas:    personas,
		attachments: newAttachmentConverter(logger),
		model:       model,
		logger:      logger,
	}
}

// HandleMessage runs one constructor round-trip for a user message.
//
// Requests for the same session key are serialized: two overlapping turns
// interleaving into the same history would corrupt ordering and could
// double-append the user's message.
func (s *Service) HandleMessage(ctx context.Context, req *services.ChatRequest) (*services.ChatResult, error) {
	if err := validateChatRequest(req); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	key := session.Key(req.UserID, req.AgentID)
	unlock := s.locks.lock(key)
	defer unlock()

	sess, err := s.store.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if sess == nil {
		sess = &session.Session{
			Key:  key,
			Mode: session.ModeCreate,
		}
		if req.AgentID != "" {
			sess.Mode = session.ModeUpdate
			sess.AgentID = req.AgentID
		}
	}

	if err := s.injectAgentContext(ctx, sess); err != nil {
		return nil, err
	}

	message := req.Message + s.attachments.render(req.Files)
	sess.Turns = append(sess.Turns, models.Turn{Role: models.RoleUser, Content: message})

	s.injectSiteContext(ctx, sess, req.Message)

	// Commit the user turn before any completion call: a failed call must
	// leave the history consistent for retry.
	sess.UpdatedAt = time.Now()
	if err := s.store.Put(ctx, sess); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}

	resp, err := s.completer.Complete(ctx, &domainllm.CompletionRequest{
		Model:       s.model,
		Messages:    s.assemblePrompt(sess),
		Temperature: 0.7,
		MaxTokens:   config.MetaAgentMaxTokens,
	})
	if err != nil {
		// The user's message stays in the session so a retry keeps context.
		return nil, fmt.Errorf("completion call: %w", err)
	}

	sess.Turns = append(sess.Turns, models.Turn{Role: models.RoleAssistant, Content: resp.Content})
	sess.UpdatedAt = time.Now()
	if err := s.store.Put(ctx, sess); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}

	result := s.parseSignal(resp.Content, sess)
	if result == nil {
		// Steady state: still gathering information.
		return &services.ChatResult{
			Response:   resp.Content,
			TokensUsed: resp.TokensUsed,
		}, nil
	}

	return s.persistAgent(ctx, sess, req.UserID, result, resp)
}

// ResetSession discards a session's turn history.
func (s *Service) ResetSession(ctx context.Context, userID, agentID string) error {
	if userID == "" {
		return fmt.Errorf("%w: user_id is required", domain.ErrValidation)
	}
	key := session.Key(userID, agentID)
	unlock := s.locks.lock(key)
	defer unlock()

	return s.store.Clear(ctx, key)
}

// injectAgentContext prepends, once per update-mode session, a system turn
// summarizing the agent being edited so the meta-agent references what
// exists instead of re-asking.
func (s *Service) injectAgentContext(ctx context.Context, sess *session.Session) error {
	if sess.Mode != session.ModeUpdate || sess.ContextInjected {
		return nil
	}

	agent, err := s.agents.GetByID(ctx, sess.AgentID)
	if err != nil {
		return fmt.Errorf("load agent for update: %w", err)
	}

	kbJSON, err := json.MarshalIndent(agent.KnowledgeBase, "", "  ")
	if err != nil {
		kbJSON = []byte("{}")
	}
	summary := fmt.Sprintf(
		"[SYSTEM: The owner is editing an existing assistant.\nName: %s\nBusiness type: %s\nCurrent knowledge base:\n%s]",
		agent.AgentName, agent.BusinessType, kbJSON,
	)

	sess.Turns = append([]models.Turn{{Role: models.RoleSystem, Content: summary}}, sess.Turns...)
	sess.ContextInjected = true
	return nil
}

// injectSiteContext scrapes the first URL in the user message, if any, and
// appends the extracted facts as a system turn. Extraction failures are
// logged and ignored: site parsing never blocks the conversation.
func (s *Service) injectSiteContext(ctx context.Context, sess *session.Session, message string) {
	urls := findURLs(message)
	if len(urls) == 0 {
		return
	}
	url := urls[0]

	info, err := s.extractor.FetchAndExtract(ctx, url)
	if err != nil {
		s.logger.Warn("site extraction failed", "url", url, "error", err)
		return
	}
	if info.IsEmpty() {
		s.logger.Debug("site extraction returned nothing", "url", url)
		return
	}

	infoJSON, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		s.logger.Warn("site info encoding failed", "url", url, "error", err)
		return
	}

	sess.Turns = append(sess.Turns, models.Turn{
		Role:    models.RoleSystem,
		Content: fmt.Sprintf("[SYSTEM: Studied website %s.\nExtracted facts:\n%s]", url, infoJSON),
	})
	s.logger.Info("site context injected", "url", url)
}

// assemblePrompt builds the completion input: the fixed meta-agent
// instruction turn followed by the session history, in that order.
func (s *Service) assemblePrompt(sess *session.Session) []models.Turn {
	messages := make([]models.Turn, 0, len(sess.Turns)+1)
	messages = append(messages, models.Turn{Role: models.RoleSystem, Content: MetaAgentPrompt})
	messages = append(messages, sess.Turns...)
	return messages
}

// parseSignal checks the completion response for a ready/update signal.
// In update mode a bare ---AGENT-UPDATE--- block (no NAME/TYPE) is also
// accepted; the missing fields come from the stored agent during persist.
func (s *Service) parseSignal(response string, sess *session.Session) *models.ProtocolResult {
	if result := protocol.ParseReady(response); result != nil {
		return result
	}
	if sess.Mode != session.ModeUpdate {
		return nil
	}
	payload := protocol.ParseUpdate(response)
	if payload == nil {
		return nil
	}
	return &models.ProtocolResult{KnowledgeBase: payload}
}

// persistAgent normalizes and merges the parsed knowledge base, renders the
// seller prompt and writes the agent through the repository. The session is
// cleared only after a confirmed create/update, so a storage failure lets a
// retry re-derive the same result without re-asking the user.
func (s *Service) persistAgent(
	ctx context.Context,
	sess *session.Session,
	userID string,
	result *models.ProtocolResult,
	resp *domainllm.CompletionResponse,
) (*services.ChatResult, error) {
	incoming := kb.Normalize(result.KnowledgeBase)

	var existing *models.Agent
	var err error
	if sess.Mode == session.ModeUpdate {
		existing, err = s.agents.GetByID(ctx, sess.AgentID)
		if err != nil {
			return nil, fmt.Errorf("load agent for update: %w", err)
		}
	} else {
		// One agent per user: a second AGENT-READY updates the existing one.
		existing, err = s.agents.GetByUser(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("look up existing agent: %w", err)
		}
	}

	created := false
	var agent *models.Agent
	if existing != nil {
		merged := kb.Merge(kb.Normalize(existing.KnowledgeBase), incoming)

		name := result.AgentName
		if name == "" {
			name = existing.AgentName
		}
		businessType := result.BusinessType
		if businessType == "" {
			businessType = existing.BusinessType
		}

		p := s.personas.ForAgentName(name)
		existing.AgentName = name
		existing.BusinessType = businessType
		existing.Persona = p.ID
		existing.KnowledgeBase = merged
		existing.SystemPrompt = RenderSellerPrompt(name, businessType, merged, p)
		existing.UpdatedAt = time.Now()

		if err := s.agents.Update(ctx, existing); err != nil {
			return nil, fmt.Errorf("update agent: %w", err)
		}
		agent = existing
	} else {
		p := s.personas.ForAgentName(result.AgentName)
		agent = &models.Agent{
			ID:            uuid.NewString(),
			UserID:        userID,
			AgentName:     result.AgentName,
			BusinessType:  result.BusinessType,
			Persona:       p.ID,
			KnowledgeBase: incoming,
			SystemPrompt:  RenderSellerPrompt(result.AgentName, result.BusinessType, incoming, p),
			Status:        models.StatusDraft,
			CreatedAt:     time.Now(),
			UpdatedAt:     time.Now(),
		}
		if err := s.agents.Create(ctx, agent); err != nil {
			return nil, fmt.Errorf("create agent: %w", err)
		}
		created = true
	}

	// Confirmed persistence: now it is safe to reset the conversation.
	if err := s.store.Clear(ctx, sess.Key); err != nil {
		s.logger.Warn("session clear failed after persist", "key", sess.Key, "error", err)
	}

	response := protocol.CleanTags(resp.Content)
	if response == "" {
		if created {
			response = fmt.Sprintf("Your assistant %q is ready! You can test it and turn it on from the dashboard.", titleCase(agent.AgentName))
		} else {
			response = fmt.Sprintf("Your assistant %q has been updated.", titleCase(agent.AgentName))
		}
	}

	s.logger.Info("agent persisted",
		"agent_id", agent.ID,
		"created", created,
		"persona", agent.Persona,
	)

	return &services.ChatResult{
		Response:     response,
		AgentCreated: created,
		AgentUpdated: !created,
		AgentID:      agent.ID,
		TokensUsed:   resp.TokensUsed,
	}, nil
}

func validateChatRequest(req *services.ChatRequest) error {
	return validation.ValidateStruct(req,
		validation.Field(&req.UserID, validation.Required),
		validation.Field(&req.Message,
			validation.Required,
			validation.Length(1, config.MaxMessageLength),
		),
	)
}

// findURLs extracts URLs from a message, trimming trailing punctuation the
// regexp swallows.
func findURLs(text string) []string {
	matches := urlRe.FindAllString(text, -1)
	urls := make([]string, 0, len(matches))
	for _, m := range matches {
		urls = append(urls, strings.TrimRight(m, ".,!?;:)"))
	}
	return urls
}

// keyedMutex serializes work per session key. Entries are never removed;
// the map grows with the number of distinct active users, which is fine for
// the constructor's traffic.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func (k *keyedMutex) lock(key string) func() {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[string]*sync.Mutex)
	}
	l, ok := k.locks[key]
	if !ok {
		l = &sync.Mutex{}
		k.locks[key] = l
	}
	k.mu.Unlock()

	l.Lock()
	return l.Unlock
}
