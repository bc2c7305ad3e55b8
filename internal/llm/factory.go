package llm

import (
	"context"
	"fmt"

	"github.com/rebootlabs/mastery/internal/logger"
	"github.com/rebootlabs/mastery/internal/store"
)

// NewProvider creates a Provider from configuration, wrapped as
// caller → retry → logging → base. It returns (nil, nil) for ProviderNone
// so callers can skip generation entirely.
func NewProvider(ctx context.Context, cfg Config, events store.EventRepo, log *logger.Logger) (Provider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var base Provider
	var err error

	switch cfg.Provider {
	case ProviderNone:
		return nil, nil
	case ProviderMock:
		return NewMockProvider(), nil
	case ProviderAnthropic:
		base, err = NewAnthropicProvider(cfg.Anthropic)
	case ProviderOpenAI:
		base, err = NewOpenAIProvider(cfg.OpenAI)
	case ProviderOpenRouter:
		base, err = NewOpenRouterProvider(cfg.OpenRouter)
	case ProviderGemini:
		base, err = NewGeminiProvider(ctx, cfg.Gemini)
	}
	if err != nil {
		return nil, fmt.Errorf("initializing %s provider: %w", cfg.Provider, err)
	}

	logged := WithLogging(base, cfg.Provider, events, log)
	return WithTimeout(WithRetry(logged, cfg.Retry), cfg.Timeout), nil
}
