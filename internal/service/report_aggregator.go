package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/interview-eval-api/internal/models"
	"github.com/noah-isme/interview-eval-api/internal/observability"
	"github.com/noah-isme/interview-eval-api/internal/repository"
	"github.com/noah-isme/interview-eval-api/pkg/ai"
)

// Narrative sources reported alongside every Report.
const (
	NarrativeSourceInference = "inference"
	NarrativeSourceFallback  = "fallback"
)

// ReportSections are the fixed headings of every interview narrative, in order.
var ReportSections = []string{
	"Performance Summary",
	"Key Strengths",
	"Areas for Improvement",
	"Technical Recommendations",
	"Study Focus Areas",
}

// CategoryAverages are the unrounded per-category means over scored questions.
type CategoryAverages struct {
	Technical  float64
	Clarity    float64
	Depth      float64
	Confidence float64
}

// Overall is the rounded mean of the four category averages.
func (a CategoryAverages) Overall() int {
	return int(math.Round((a.Technical + a.Clarity + a.Depth + a.Confidence) / 4))
}

// Report is the interview-level outcome written by the aggregator.
type Report struct {
	InterviewID     uint
	Averages        CategoryAverages
	OverallScore    int
	Duration        int
	Narrative       string
	NarrativeSource string
	ScoredQuestions int
}

// ReportAggregator combines per-question scores into the interview report.
type ReportAggregator interface {
	Summarize(ctx context.Context, interviewID uint) (Report, error)
}

type reportAggregator struct {
	interviews repository.InterviewRepository
	client     ai.Client
	timeout    time.Duration
	logger     zerolog.Logger
}

// NewReportAggregator builds an aggregator. A nil client always uses the fallback narrative.
func NewReportAggregator(interviews repository.InterviewRepository, client ai.Client, timeout time.Duration, logger zerolog.Logger) ReportAggregator {
	return &reportAggregator{
		interviews: interviews,
		client:     client,
		timeout:    timeout,
		logger:     logger.With().Str("component", "report_aggregator").Logger(),
	}
}

func (a *reportAggregator) Summarize(ctx context.Context, interviewID uint) (Report, error) {
	interview, err := a.interviews.GetWithQuestions(ctx, interviewID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Report{}, ErrInterviewNotFound
		}
		return Report{}, fmt.Errorf("load interview %d: %w", interviewID, err)
	}

	averages, scored := computeAverages(interview.Questions)
	report := Report{
		InterviewID:     interview.ID,
		Averages:        averages,
		OverallScore:    averages.Overall(),
		Duration:        totalSpeakingDuration(interview.Questions),
		ScoredQuestions: scored,
	}

	narrative, err := a.generateNarrative(ctx, interview, averages)
	if err != nil {
		a.logger.Warn().Err(err).Uint("interview_id", interviewID).Msg("falling back to templated narrative")
		report.Narrative = fallbackNarrative(interview, averages, report.OverallScore)
		report.NarrativeSource = NarrativeSourceFallback
	} else {
		report.Narrative = narrative
		report.NarrativeSource = NarrativeSourceInference
	}

	err = a.interviews.SaveReport(ctx, interviewID, repository.InterviewReport{
		Feedback:           report.Narrative,
		OverallScore:       report.OverallScore,
		TechnicalAccuracy:  roundAverage(averages.Technical),
		CommunicationScore: roundAverage(averages.Clarity),
		DepthScore:         roundAverage(averages.Depth),
		ConfidenceScore:    roundAverage(averages.Confidence),
		Duration:           report.Duration,
	})
	if err != nil {
		return Report{}, fmt.Errorf("save report for interview %d: %w", interviewID, err)
	}

	observability.ReportsGenerated().WithLabelValues(report.NarrativeSource).Inc()
	return report, nil
}

func (a *reportAggregator) generateNarrative(ctx context.Context, interview models.Interview, averages CategoryAverages) (string, error) {
	if a.client == nil {
		return "", fmt.Errorf("%w: no inference client configured", ai.ErrInferenceUnavailable)
	}

	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	completion, err := a.client.Complete(ctx, buildNarrativePrompt(interview, averages))
	if err != nil {
		return "", err
	}

	narrative := ai.CleanJSONBlock(completion)
	if narrative == "" {
		return "", fmt.Errorf("%w: empty narrative", ai.ErrInferenceMalformed)
	}
	return narrative, nil
}

// computeAverages averages each category over the questions that carry a score block.
// Unscored questions are excluded rather than counted as zero.
func computeAverages(questions []models.Question) (CategoryAverages, int) {
	var sum CategoryAverages
	scored := 0
	for _, question := range questions {
		if !question.IsScored() || question.ClarityScore == nil || question.DepthScore == nil || question.ConfidenceScore == nil {
			continue
		}
		sum.Technical += float64(*question.TechnicalScore)
		sum.Clarity += float64(*question.ClarityScore)
		sum.Depth += float64(*question.DepthScore)
		sum.Confidence += float64(*question.ConfidenceScore)
		scored++
	}

	if scored == 0 {
		return CategoryAverages{}, 0
	}

	n := float64(scored)
	return CategoryAverages{
		Technical:  sum.Technical / n,
		Clarity:    sum.Clarity / n,
		Depth:      sum.Depth / n,
		Confidence: sum.Confidence / n,
	}, scored
}

func totalSpeakingDuration(questions []models.Question) int {
	total := 0.0
	for _, question := range questions {
		if question.SpeakingDurationSeconds != nil {
			total += *question.SpeakingDurationSeconds
		}
	}
	return int(math.Round(total))
}

func roundAverage(value float64) int {
	return int(math.Round(value))
}

func buildNarrativePrompt(interview models.Interview, averages CategoryAverages) string {
	builder := strings.Builder{}
	builder.WriteString("You are an experienced technical interview coach writing a performance report.\n")
	builder.WriteString(fmt.Sprintf("Subject: %s\nDifficulty: %s\n\n", fallbackText(interview.Subject, "general"), fallbackText(interview.Difficulty, "unspecified")))
	builder.WriteString("## Average Scores (0-100)\n")
	builder.WriteString(fmt.Sprintf("Technical accuracy: %.1f\nClarity: %.1f\nDepth: %.1f\nConfidence: %.1f\n",
		averages.Technical, averages.Clarity, averages.Depth, averages.Confidence))

	builder.WriteString("\n## Transcript\n")
	for i, question := range interview.Questions {
		builder.WriteString(fmt.Sprintf("\n### Question %d\n%s\n", i+1, question.Prompt))
		if !question.IsAnswered() {
			builder.WriteString("Answer: (no answer)\n")
			continue
		}
		builder.WriteString("Answer: ")
		builder.WriteString(question.Answer())
		builder.WriteString("\n")
		if question.IsScored() && question.ClarityScore != nil && question.DepthScore != nil && question.ConfidenceScore != nil {
			builder.WriteString(fmt.Sprintf("Scores: technical %d, clarity %d, depth %d, confidence %d\n",
				*question.TechnicalScore, *question.ClarityScore, *question.DepthScore, *question.ConfidenceScore))
		}
	}

	builder.WriteString("\nWrite the report in markdown using exactly these level-two headings, in this order:\n")
	for _, section := range ReportSections {
		builder.WriteString("## ")
		builder.WriteString(section)
		builder.WriteString("\n")
	}
	builder.WriteString("Address the candidate directly and keep each section concise and actionable.")
	return builder.String()
}

// fallbackNarrative renders the five report sections from threshold rules on the averages.
func fallbackNarrative(interview models.Interview, averages CategoryAverages, overall int) string {
	subject := fallbackText(interview.Subject, "technical")
	difficulty := fallbackText(interview.Difficulty, "standard")

	var level string
	switch {
	case overall >= 80:
		level = "a strong performance"
	case overall >= 65:
		level = "a solid performance with room to grow"
	default:
		level = "a developing performance"
	}

	var strengths []string
	if averages.Technical >= 75 {
		strengths = append(strengths, fmt.Sprintf("Strong technical foundation in %s", subject))
	}
	if averages.Clarity >= 75 {
		strengths = append(strengths, "Clear and well-organised communication")
	}
	if averages.Depth >= 70 {
		strengths = append(strengths, "Good depth when explaining concepts")
	}
	if averages.Confidence >= 75 {
		strengths = append(strengths, "Confident, steady delivery")
	}
	if len(strengths) == 0 {
		strengths = append(strengths, "Willingness to engage with every question")
	}

	var improvements []string
	if averages.Technical < 70 {
		improvements = append(improvements, fmt.Sprintf("Strengthen core %s fundamentals", subject))
	}
	if averages.Clarity < 70 {
		improvements = append(improvements, "Structure responses more systematically")
	}
	if averages.Depth < 65 {
		improvements = append(improvements, "Go deeper into the reasoning behind each answer")
	}
	if averages.Confidence < 70 {
		improvements = append(improvements, "Reduce filler words and speak with more conviction")
	}
	if len(improvements) == 0 {
		improvements = append(improvements, "Keep practising to stay consistent across topics")
	}

	var recommendations []string
	if averages.Technical < 75 {
		recommendations = append(recommendations, fmt.Sprintf("Review core %s concepts and practise explaining them aloud", subject))
	} else {
		recommendations = append(recommendations, fmt.Sprintf("Attempt harder %s problems than %s difficulty", subject, difficulty))
	}
	if averages.Depth < 70 {
		recommendations = append(recommendations, "Discuss trade-offs, edge cases and complexity in every answer")
	}
	if averages.Clarity < 70 {
		recommendations = append(recommendations, "Answer in three steps: state the answer, justify it, give an example")
	}

	var focus []string
	if averages.Technical < 75 {
		focus = append(focus, fmt.Sprintf("%s fundamentals", subject))
	}
	if averages.Depth < 70 {
		focus = append(focus, "Design trade-offs and real-world examples")
	}
	if averages.Clarity < 70 || averages.Confidence < 70 {
		focus = append(focus, "Mock interviews focused on structured, confident delivery")
	}
	if len(focus) == 0 {
		focus = append(focus, fmt.Sprintf("Advanced %s topics", subject))
	}

	builder := strings.Builder{}
	writeSection := func(title string, lines []string, bullets bool) {
		builder.WriteString("## ")
		builder.WriteString(title)
		builder.WriteString("\n\n")
		for _, line := range lines {
			if bullets {
				builder.WriteString("- ")
			}
			builder.WriteString(line)
			builder.WriteString("\n")
		}
		builder.WriteString("\n")
	}

	writeSection(ReportSections[0], []string{
		fmt.Sprintf("You scored %d/100 overall on this %s %s interview, %s.", overall, difficulty, subject, level),
		fmt.Sprintf("Technical %.0f, clarity %.0f, depth %.0f, confidence %.0f.", averages.Technical, averages.Clarity, averages.Depth, averages.Confidence),
	}, false)
	writeSection(ReportSections[1], strengths, true)
	writeSection(ReportSections[2], improvements, true)
	writeSection(ReportSections[3], recommendations, true)
	writeSection(ReportSections[4], focus, true)

	return strings.TrimSpace(builder.String())
}
