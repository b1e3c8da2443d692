package service

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/interview-eval-api/internal/models"
	"github.com/noah-isme/interview-eval-api/pkg/ai"
)

// Score sources reported alongside every ScoreResult.
const (
	ScoreSourceInference = "inference"
	ScoreSourceFallback  = "fallback"
)

const (
	detailedAnswerWords  = 30
	maxFeedbackListItems = 5
)

const rubricSchemaDocument = `{
  "type": "object",
  "required": ["technical_score", "clarity_score", "depth_score", "confidence_score"],
  "properties": {
    "technical_score": {"type": "number"},
    "clarity_score": {"type": "number"},
    "depth_score": {"type": "number"},
    "confidence_score": {"type": "number"},
    "feedback": {"type": "string"},
    "strengths": {"type": "array", "items": {"type": "string"}},
    "weaknesses": {"type": "array", "items": {"type": "string"}}
  }
}`

var rubricSchema = ai.MustCompileSchema("answer_rubric.json", rubricSchemaDocument)

var (
	fallbackStrengths = []string{
		"Engaged directly with the question",
		"Expressed ideas in your own words",
	}
	fallbackWeaknesses = []string{
		"Could include more concrete examples",
		"Could explain the reasoning behind the answer in more depth",
	}
)

const (
	fallbackFeedbackDetailed = "Your answer covered the question with a reasonable level of detail. Adding concrete examples and trade-offs would make it stronger."
	fallbackFeedbackBrief    = "Your answer was brief and lacked detail. Expand on the key concepts and support them with examples."
)

var voiceDeliveryNotes = map[string]string{
	"excellent": "Voice delivery: excellent. You used very few filler words and sounded composed.",
	"good":      "Voice delivery: good. A few filler words crept in, but your delivery stayed clear.",
	"fair":      "Voice delivery: fair. Frequent filler words distracted from the content; try a short pause instead.",
}

// ScoreInput is everything the scorer needs to grade one answer.
type ScoreInput struct {
	Prompt     string
	Answer     string
	Subject    string
	Difficulty string
	IsFollowUp bool
	Voice      *models.VoiceMetrics
}

// ScoreResult is a complete score for one answer. Every field is populated
// whichever path produced it.
type ScoreResult struct {
	Technical  int
	Clarity    int
	Depth      int
	Confidence int
	Feedback   string
	Strengths  []string
	Weaknesses []string
	Source     string
}

// AnswerScorer grades a single interview answer. It never fails.
type AnswerScorer interface {
	Score(ctx context.Context, input ScoreInput) ScoreResult
}

type answerScorer struct {
	client  ai.Client
	timeout time.Duration
	logger  zerolog.Logger
}

// NewAnswerScorer builds a scorer. A nil client makes every score come from the local heuristic.
func NewAnswerScorer(client ai.Client, timeout time.Duration, logger zerolog.Logger) AnswerScorer {
	return &answerScorer{
		client:  client,
		timeout: timeout,
		logger:  logger.With().Str("component", "answer_scorer").Logger(),
	}
}

type rubricPayload struct {
	TechnicalScore  float64  `json:"technical_score"`
	ClarityScore    float64  `json:"clarity_score"`
	DepthScore      float64  `json:"depth_score"`
	ConfidenceScore float64  `json:"confidence_score"`
	Feedback        string   `json:"feedback"`
	Strengths       []string `json:"strengths"`
	Weaknesses      []string `json:"weaknesses"`
}

func (s *answerScorer) Score(ctx context.Context, input ScoreInput) ScoreResult {
	result, err := s.scoreWithInference(ctx, input)
	if err != nil {
		s.logger.Warn().Err(err).Msg("falling back to heuristic score")
		result = fallbackScore(input)
	}

	if note := voiceDeliveryNote(input.Voice); note != "" {
		result.Feedback = strings.TrimSpace(result.Feedback + "\n\n" + note)
	}

	return result
}

func (s *answerScorer) scoreWithInference(ctx context.Context, input ScoreInput) (ScoreResult, error) {
	if s.client == nil {
		return ScoreResult{}, fmt.Errorf("%w: no inference client configured", ai.ErrInferenceUnavailable)
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	completion, err := s.client.Complete(ctx, buildRubricPrompt(input))
	if err != nil {
		return ScoreResult{}, err
	}

	var payload rubricPayload
	if err := rubricSchema.Decode(completion, &payload); err != nil {
		return ScoreResult{}, err
	}

	fallback := fallbackScore(input)
	result := ScoreResult{
		Technical:  clampScore(payload.TechnicalScore),
		Clarity:    clampScore(payload.ClarityScore),
		Depth:      clampScore(payload.DepthScore),
		Confidence: clampScore(payload.ConfidenceScore),
		Feedback:   strings.TrimSpace(payload.Feedback),
		Strengths:  cleanList(payload.Strengths),
		Weaknesses: cleanList(payload.Weaknesses),
		Source:     ScoreSourceInference,
	}
	if result.Feedback == "" {
		result.Feedback = fallback.Feedback
	}
	if len(result.Strengths) == 0 {
		result.Strengths = fallback.Strengths
	}
	if len(result.Weaknesses) == 0 {
		result.Weaknesses = fallback.Weaknesses
	}

	return result, nil
}

// fallbackScore grades an answer from its word count and filler word count only.
func fallbackScore(input ScoreInput) ScoreResult {
	words := wordCount(input.Answer)
	fillers := 0
	if input.Voice != nil {
		fillers = input.Voice.FillerWordCount
	}

	result := ScoreResult{
		Technical:  60,
		Clarity:    65,
		Depth:      55,
		Confidence: max(30, 100-fillers*5),
		Feedback:   fallbackFeedbackBrief,
		Strengths:  append([]string(nil), fallbackStrengths...),
		Weaknesses: append([]string(nil), fallbackWeaknesses...),
		Source:     ScoreSourceFallback,
	}
	if words >= detailedAnswerWords {
		result.Technical = 75
		result.Depth = 70
		result.Feedback = fallbackFeedbackDetailed
	}
	if fillers <= 5 {
		result.Clarity = 80
	}
	result.Confidence = min(result.Confidence, 100)

	return result
}

func voiceDeliveryNote(voice *models.VoiceMetrics) string {
	if voice == nil {
		return ""
	}
	switch {
	case voice.FillerWordCount <= 3:
		return voiceDeliveryNotes["excellent"]
	case voice.FillerWordCount <= 7:
		return voiceDeliveryNotes["good"]
	default:
		return voiceDeliveryNotes["fair"]
	}
}

func buildRubricPrompt(input ScoreInput) string {
	builder := strings.Builder{}
	builder.WriteString("You are a senior technical interviewer grading a candidate's spoken answer.\n")
	builder.WriteString(fmt.Sprintf("Interview subject: %s\nDifficulty: %s\n", fallbackText(input.Subject, "general"), fallbackText(input.Difficulty, "unspecified")))
	if input.IsFollowUp {
		builder.WriteString("This is a follow-up question.\n")
	}
	builder.WriteString("\n## Question\n")
	builder.WriteString(input.Prompt)
	builder.WriteString("\n\n## Candidate Answer (transcribed)\n")
	builder.WriteString(input.Answer)
	if input.Voice != nil {
		builder.WriteString("\n\n## Delivery Metrics\n")
		builder.WriteString(fmt.Sprintf("Words per minute: %.0f\nFiller words: %d\nPauses: %d\nLongest pause: %.1fs\n",
			input.Voice.WordsPerMinute, input.Voice.FillerWordCount, input.Voice.PauseCount, input.Voice.LongestPause))
	}
	builder.WriteString("\n\nScore the answer from 0 to 100 on technical accuracy, clarity, depth and confidence.\n")
	builder.WriteString("Respond with ONLY a JSON object of the form:\n")
	builder.WriteString(`{"technical_score": 0, "clarity_score": 0, "depth_score": 0, "confidence_score": 0, "feedback": "2-3 sentences", "strengths": ["..."], "weaknesses": ["..."]}`)
	builder.WriteString("\nList two or three strengths and two or three weaknesses.")
	return builder.String()
}

// clampScore pins a parsed inference score into 0..100. An out-of-range number is
// still a usable answer, so it is clamped rather than sent to the fallback rules;
// only missing or non-numeric fields trigger the fallback.
func clampScore(value float64) int {
	switch {
	case math.IsNaN(value), value <= 0:
		return 0
	case value >= 100:
		return 100
	}
	return int(math.Round(value))
}

func cleanList(values []string) []string {
	result := make([]string, 0, len(values))
	for _, value := range values {
		trimmed := strings.TrimSpace(value)
		if trimmed == "" {
			continue
		}
		result = append(result, trimmed)
		if len(result) == maxFeedbackListItems {
			break
		}
	}
	return result
}

func wordCount(text string) int {
	return len(strings.Fields(text))
}

func fallbackText(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
