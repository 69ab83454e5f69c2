package lorem

import (
	"context"
	"fmt"
	"strings"

	loremgen "github.com/bozaro/golorem"

	domainllm "vitrina/internal/domain/services/llm"
)

// Provider is a mock completion provider that generates lorem ipsum text.
// Used for testing and development without requiring real API keys. It never
// emits protocol markers, so constructor sessions against it stay in the
// gathering state.
type Provider struct {
	generator *loremgen.Lorem
}

// NewProvider creates a new lorem ipsum provider.
func NewProvider() *Provider {
	return &Provider{
		generator: loremgen.New(),
	}
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return "lorem"
}

// SupportsModel returns true if the model name starts with "lorem-".
func (p *Provider) SupportsModel(model string) bool {
	return strings.HasPrefix(model, "lorem-")
}

// Complete generates a short lorem ipsum paragraph.
func (p *Provider) Complete(ctx context.Context, req *domainllm.CompletionRequest) (*domainllm.CompletionResponse, error) {
	if !p.SupportsModel(req.Model) {
		return nil, fmt.Errorf("model '%s' is not supported by lorem provider", req.Model)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	text := p.generator.Paragraph(2, 4)

	inputWords := 0
	for _, turn := range req.Messages {
		inputWords += len(strings.Fields(turn.Content))
	}

	return &domainllm.CompletionResponse{
		Content:    text,
		TokensUsed: inputWords + len(strings.Fields(text)),
		Model:      req.Model,
	}, nil
}
