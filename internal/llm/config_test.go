package llm

import (
	"context"
	"testing"
	"time"

	"github.com/spf13/viper"
)

func clearKeyEnv(t *testing.T) {
	for _, k := range []string{"GEMINI_API_KEY", "OPENAI_API_KEY", "ANTHROPIC_API_KEY", "OPENROUTER_API_KEY"} {
		t.Setenv(k, "")
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"anthropic without key", Config{Provider: ProviderAnthropic}, true},
		{"anthropic with key", Config{Provider: ProviderAnthropic, Anthropic: AnthropicConfig{APIKey: "k"}}, false},
		{"openai without key", Config{Provider: ProviderOpenAI}, true},
		{"gemini without key", Config{Provider: ProviderGemini}, true},
		{"openrouter with key", Config{Provider: ProviderOpenRouter, OpenRouter: OpenRouterConfig{APIKey: "k"}}, false},
		{"mock needs no key", Config{Provider: ProviderMock}, false},
		{"none needs no key", Config{Provider: ProviderNone}, false},
		{"unknown provider", Config{Provider: "unknown"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfigFromViper_Defaults(t *testing.T) {
	clearKeyEnv(t)
	v := viper.New()
	SetDefaults(v)

	cfg := ConfigFromViper(v)
	if cfg.Provider != ProviderNone {
		t.Fatalf("expected provider none without keys, got %q", cfg.Provider)
	}
	if cfg.Timeout != 20*time.Second {
		t.Fatalf("expected 20s timeout, got %s", cfg.Timeout)
	}
	if cfg.Retry.MaxAttempts != 2 {
		t.Fatalf("expected 2 attempts, got %d", cfg.Retry.MaxAttempts)
	}
	if cfg.Anthropic.Model != "claude-haiku" {
		t.Fatalf("expected claude-haiku, got %q", cfg.Anthropic.Model)
	}
}

func TestConfigFromViper_DiscoversKey(t *testing.T) {
	clearKeyEnv(t)
	t.Setenv("OPENAI_API_KEY", "sk-test")
	v := viper.New()
	SetDefaults(v)

	cfg := ConfigFromViper(v)
	if cfg.Provider != ProviderOpenAI {
		t.Fatalf("expected openai, got %q", cfg.Provider)
	}
	if cfg.OpenAI.APIKey != "sk-test" {
		t.Fatalf("expected discovered key, got %q", cfg.OpenAI.APIKey)
	}
}

func TestConfigFromViper_ExplicitProviderWins(t *testing.T) {
	clearKeyEnv(t)
	t.Setenv("GEMINI_API_KEY", "g")
	v := viper.New()
	SetDefaults(v)
	v.Set("llm.provider", ProviderMock)

	if cfg := ConfigFromViper(v); cfg.Provider != ProviderMock {
		t.Fatalf("expected mock, got %q", cfg.Provider)
	}
}

func TestNewProvider(t *testing.T) {
	p, err := NewProvider(context.Background(), Config{Provider: ProviderNone}, nil, nil)
	if err != nil || p != nil {
		t.Fatalf("none: expected (nil, nil), got (%v, %v)", p, err)
	}

	p, err = NewProvider(context.Background(), Config{Provider: ProviderMock}, nil, nil)
	if err != nil {
		t.Fatalf("mock: %v", err)
	}
	if _, ok := p.(*MockProvider); !ok {
		t.Fatalf("mock: expected *MockProvider, got %T", p)
	}

	if _, err := NewProvider(context.Background(), Config{Provider: ProviderOpenAI}, nil, nil); err == nil {
		t.Fatal("openai without key: expected error")
	}

	cfg := DefaultConfig()
	cfg.Provider = ProviderOpenAI
	cfg.OpenAI.APIKey = "sk-test"
	p, err = NewProvider(context.Background(), cfg, nil, nil)
	if err != nil {
		t.Fatalf("openai: %v", err)
	}
	if p.ModelID() != "gpt-4o-mini" {
		t.Fatalf("expected gpt-4o-mini through the decorators, got %q", p.ModelID())
	}
}
