package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
)

// Config selects and configures an inference provider.
type Config struct {
	Provider     string
	OpenAIAPIKey string
	OpenAIModel  string
	OpenAIURL    string
	GeminiAPIKey string
	GeminiModel  string
	MaxTokens    int
	Temperature  float32
	Logger       zerolog.Logger
}

// NewClient returns the client for the configured provider. A nil client with a nil
// error means no provider credentials were supplied; callers run on fallbacks only.
func NewClient(ctx context.Context, cfg Config) (Client, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "", ProviderOpenAI:
		if cfg.OpenAIAPIKey == "" {
			return nil, nil
		}
		client, err := NewOpenAIClient(OpenAIConfig{
			APIKey:      cfg.OpenAIAPIKey,
			Model:       cfg.OpenAIModel,
			BaseURL:     cfg.OpenAIURL,
			MaxTokens:   cfg.MaxTokens,
			Temperature: cfg.Temperature,
			Logger:      cfg.Logger,
		})
		if err != nil {
			return nil, err
		}
		return client, nil
	case ProviderGemini:
		if cfg.GeminiAPIKey == "" {
			return nil, nil
		}
		client, err := NewGeminiClient(ctx, GeminiConfig{
			APIKey:      cfg.GeminiAPIKey,
			Model:       cfg.GeminiModel,
			MaxTokens:   cfg.MaxTokens,
			Temperature: cfg.Temperature,
			Logger:      cfg.Logger,
		})
		if err != nil {
			return nil, err
		}
		return client, nil
	default:
		return nil, fmt.Errorf("unsupported ai provider %q", cfg.Provider)
	}
}
