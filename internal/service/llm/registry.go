// Package llm wires completion providers behind the Completer interface the
// constructor core depends on.
package llm

import (
	"context"
	"fmt"
	"log/slog"

	"vitrina/internal/config"
	domainllm "vitrina/internal/domain/services/llm"
	"vitrina/internal/service/llm/providers/anthropic"
	"vitrina/internal/service/llm/providers/lorem"
)

// Registry routes completion requests to the provider that supports the
// requested model. Implements domainllm.Completer.
type Registry struct {
	providers []domainllm.CompletionProvider
	logger    *slog.Logger
}

// NewRegistry creates an empty provider registry.
func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{logger: logger}
}

// Register adds a provider.
func (r *Registry) Register(p domainllm.CompletionProvider) {
	r.providers = append(r.providers, p)
	r.logger.Info("completion provider registered", "provider", p.Name())
}

// Complete routes the request by model name.
func (r *Registry) Complete(ctx context.Context, req *domainllm.CompletionRequest) (*domainllm.CompletionResponse, error) {
	if req.Model == "" {
		return nil, fmt.Errorf("model is required")
	}
	for _, p := range r.providers {
		if p.SupportsModel(req.Model) {
			return p.Complete(ctx, req)
		}
	}
	return nil, fmt.Errorf("no provider supports model %q", req.Model)
}

// SetupProviders builds the registry from configuration: anthropic when an
// API key is present, plus the lorem mock provider for dev and tests.
func SetupProviders(cfg *config.Config, logger *slog.Logger) (*Registry, error) {
	registry := NewRegistry(logger)

	if cfg.AnthropicAPIKey != "" {
		provider, err := anthropic.NewProvider(cfg.AnthropicAPIKey)
		if err != nil {
			return nil, fmt.Errorf("setup anthropic provider: %w", err)
		}
		registry.Register(provider)
	} else {
		logger.Warn("ANTHROPIC_API_KEY not set, anthropic provider disabled")
	}

	registry.Register(lorem.NewProvider())

	return registry, nil
}
