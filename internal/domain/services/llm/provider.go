package llm

import (
	"context"

	"vitrina/internal/domain/models"
)

// CompletionRequest is the input to the completion capability: an ordered
// list of role/content turns plus sampling parameters.
type CompletionRequest struct {
	Model       string
	Messages    []models.Turn
	Temperature float64
	MaxTokens   int
}

// CompletionResponse is a single text completion plus a token-usage count.
type CompletionResponse struct {
	Content    string
	TokensUsed int
	Model      string
}

// Completer is the narrow interface the constructor core depends on. The
// provider registry implements it by routing on the model name.
type Completer interface {
	Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error)
}

// CompletionProvider is one backing implementation of the completion
// capability (anthropic, lorem, ...).
type CompletionProvider interface {
	Completer

	// Name returns the provider name.
	Name() string

	// SupportsModel returns true if this provider serves the given model.
	SupportsModel(model string) bool
}
