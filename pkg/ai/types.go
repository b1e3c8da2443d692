package ai

import (
	"context"
	"errors"
)

// ErrInferenceUnavailable covers transport failures, timeouts, non-2xx responses and empty completions.
var ErrInferenceUnavailable = errors.New("inference unavailable")

// ErrInferenceMalformed indicates the completion could not be parsed into the expected structure.
var ErrInferenceMalformed = errors.New("inference response malformed")

// Client sends a text prompt to a language model and returns its free-form reply.
// Implementations make no guarantee about the shape of the reply.
type Client interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Provider names accepted by NewClient.
const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)
