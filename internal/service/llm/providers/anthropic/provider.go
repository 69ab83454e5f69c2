package anthropic

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"vitrina/internal/domain/models"
	domainllm "vitrina/internal/domain/services/llm"
)

// Provider implements the CompletionProvider interface for Anthropic
// (Claude) models.
type Provider struct {
	client *anthropic.Client
}

// NewProvider creates a new Anthropic provider with the given API key.
func NewProvider(apiKey string) (*Provider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("anthropic API key is required")
	}

	client := anthropic.NewClient(option.WithAPIKey(apiKey))

	return &Provider{
		client: &client,
	}, nil
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return "anthropic"
}

// SupportsModel returns true if this provider supports the given model.
// Anthropic models start with "claude-"
func (p *Provider) SupportsModel(model string) bool {
	return strings.HasPrefix(model, "claude-")
}

// Complete sends the conversation to Claude and returns the text completion.
func (p *Provider) Complete(ctx context.Context, req *domainllm.CompletionRequest) (*domainllm.CompletionResponse, error) {
	if !p.SupportsModel(req.Model) {
		return nil, fmt.Errorf("model '%s' is not supported by Anthropic provider", req.Model)
	}

	// The Anthropic API takes system text separately from the message list,
	// so system turns (meta-agent instruction, injected site context) are
	// folded into the system parameter in their original order.
	var systemParts []string
	var messages []anthropic.MessageParam
	for _, turn := range req.Messages {
		switch turn.Role {
		case models.RoleSystem:
			systemParts = append(systemParts, turn.Content)
		case models.RoleUser:
			messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(turn.Content)))
		case models.RoleAssistant:
			messages = append(messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(turn.Content)))
		default:
			return nil, fmt.Errorf("unsupported turn role: %s", turn.Role)
		}
	}

	maxTokens := int64(req.MaxTokens)
	if maxTokens == 0 {
		maxTokens = 4096
	}

	apiParams := anthropic.MessageNewParams{
		Model:     anthropic.Model(req.Model),
		Messages:  messages,
		MaxTokens: maxTokens,
	}
	if req.Temperature > 0 {
		apiParams.Temperature = anthropic.Float(req.Temperature)
	}
	if len(systemParts) > 0 {
		apiParams.System = []anthropic.TextBlockParam{
			{
				Type: "text",
				Text: strings.Join(systemParts, "\n\n"),
			},
		}
	}

	message, err := p.client.Messages.New(ctx, apiParams)
	if err != nil {
		return nil, fmt.Errorf("anthropic API call failed: %w", err)
	}

	var sb strings.Builder
	for _, block := range message.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}

	return &domainllm.CompletionResponse{
		Content:    sb.String(),
		TokensUsed: int(message.Usage.InputTokens + message.Usage.OutputTokens),
		Model:      req.Model,
	}, nil
}
