package services

import (
	"context"
	"fmt"

	"coach-backend/internal/config"
	"coach-backend/internal/models"
)

// CompletionSource produces one reply for one chat turn. Implementations
// keep no per-request state and are safe for concurrent use.
type CompletionSource interface {
	Complete(ctx context.Context, req models.ChatRequest) (string, error)
	Name() string
}

// NewCompletionSource builds the source selected by cfg.Provider.
func NewCompletionSource(ctx context.Context, cfg *config.Config) (CompletionSource, error) {
	switch cfg.Provider {
	case config.ProviderOpenAI:
		return NewOpenAISource(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.Model, cfg.SystemPrompt), nil
	case config.ProviderGemini:
		return NewGeminiSource(ctx, cfg.GeminiAPIKey, cfg.Model, cfg.SystemPrompt)
	case config.ProviderAnthropic:
		return NewAnthropicSource(cfg.AnthropicAPIKey, cfg.AnthropicBaseURL, cfg.Model, cfg.SystemPrompt), nil
	case config.ProviderProxy:
		return NewProxySource(cfg.BackendURL), nil
	default:
		return nil, fmt.Errorf("unknown chat provider %q", cfg.Provider)
	}
}
