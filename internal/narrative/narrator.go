package narrative

import (
	"context"
	"errors"
	"log/slog"

	"stockdesk/internal/config"
)

// ErrNoNarrator is returned by New when no remote model is usable
var ErrNoNarrator = errors.New("narrative: no remote model configured")

// Request is a single chat exchange: a system persona and one user message
type Request struct {
	System string
	User   string
}

// Narrator produces analysis text from a bounded request
type Narrator interface {
	Narrate(ctx context.Context, req Request) (string, error)
}

// NarratorFunc adapts a function to Narrator
type NarratorFunc func(ctx context.Context, req Request) (string, error)

// Narrate implements Narrator
func (f NarratorFunc) Narrate(ctx context.Context, req Request) (string, error) {
	return f(ctx, req)
}

// New selects a client for the configured provider. It returns ErrNoNarrator
// when the provider is "none" or the API key is missing, in which case
// callers use Fallback directly.
func New(cfg config.LLMConfig, logger *slog.Logger) (Narrator, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Provider == "none" {
		return nil, ErrNoNarrator
	}
	if !cfg.HasAPIKey() {
		logger.Warn("LLM API key missing; local narrative will be used",
			slog.String("provider", cfg.Provider))
		return nil, ErrNoNarrator
	}

	switch cfg.Provider {
	case "anthropic":
		return NewAnthropicClient(cfg), nil
	default:
		return NewChatClient(cfg), nil
	}
}
