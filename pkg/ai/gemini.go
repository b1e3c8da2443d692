package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/genai"
)

const defaultGeminiModel = "gemini-2.5-flash"

// GeminiConfig defines configuration options for the Gemini client.
type GeminiConfig struct {
	APIKey      string
	Model       string
	MaxTokens   int
	Temperature float32
	Logger      zerolog.Logger
}

// GeminiClient implements Client on top of the Google GenAI SDK.
type GeminiClient struct {
	client *genai.Client
	model  string
	config *genai.GenerateContentConfig
	tracer trace.Tracer
	logger zerolog.Logger
}

// NewGeminiClient creates a client configured for the Gemini API backend.
func NewGeminiClient(ctx context.Context, cfg GeminiConfig) (*GeminiClient, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = defaultGeminiModel
	}

	generation := &genai.GenerateContentConfig{}
	if cfg.MaxTokens > 0 {
		generation.MaxOutputTokens = int32(cfg.MaxTokens)
	}
	if cfg.Temperature > 0 {
		generation.Temperature = genai.Ptr(cfg.Temperature)
	}

	return &GeminiClient{
		client: client,
		model:  model,
		config: generation,
		tracer: otel.Tracer("github.com/noah-isme/interview-eval-api/pkg/ai/gemini"),
		logger: cfg.Logger.With().Str("component", "gemini_client").Logger(),
	}, nil
}

// Complete sends the prompt to Gemini and joins the textual parts of every candidate.
func (g *GeminiClient) Complete(parent context.Context, prompt string) (string, error) {
	ctx, span := g.tracer.Start(parent, "gemini.complete", trace.WithAttributes(
		attribute.String("model", g.model),
	))
	defer span.End()

	start := time.Now()
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), g.config)
	observeInference(ProviderGemini, g.model, time.Since(start), err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		g.logger.Debug().Err(err).Str("model", g.model).Msg("generate content failed")
		return "", fmt.Errorf("%w: gemini: %v", ErrInferenceUnavailable, err)
	}

	output := joinCandidateText(resp)
	if output == "" {
		err := fmt.Errorf("%w: gemini api returned empty response", ErrInferenceUnavailable)
		inferenceFailures.WithLabelValues(ProviderGemini, g.model).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}

	return output, nil
}

func joinCandidateText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}

	var builder strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part == nil {
				continue
			}
			text := strings.TrimSpace(part.Text)
			if text == "" {
				continue
			}
			if builder.Len() > 0 {
				builder.WriteString("\n")
			}
			builder.WriteString(text)
		}
	}

	return strings.TrimSpace(builder.String())
}
