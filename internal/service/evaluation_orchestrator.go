package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/noah-isme/interview-eval-api/internal/models"
	"github.com/noah-isme/interview-eval-api/internal/observability"
	"github.com/noah-isme/interview-eval-api/internal/repository"
)

// RunSummary counts what one orchestrator run did to the questions of an interview.
type RunSummary struct {
	Scored     int
	Fallbacks  int
	Skipped    int
	Unanswered int
	Failed     int
	Report     Report
}

// EvaluationOrchestrator brings every answered question of an interview to a scored
// state and then produces the interview report.
type EvaluationOrchestrator interface {
	Run(ctx context.Context, interviewID uint) (RunSummary, error)
}

type evaluationOrchestrator struct {
	interviews repository.InterviewRepository
	questions  repository.QuestionRepository
	scorer     AnswerScorer
	aggregator ReportAggregator
	logger     zerolog.Logger
	tracer     trace.Tracer
}

// NewEvaluationOrchestrator constructs the orchestrator.
func NewEvaluationOrchestrator(interviews repository.InterviewRepository, questions repository.QuestionRepository, scorer AnswerScorer, aggregator ReportAggregator, logger zerolog.Logger) EvaluationOrchestrator {
	return &evaluationOrchestrator{
		interviews: interviews,
		questions:  questions,
		scorer:     scorer,
		aggregator: aggregator,
		logger:     logger.With().Str("component", "evaluation_orchestrator").Logger(),
		tracer:     otel.Tracer("github.com/noah-isme/interview-eval-api/internal/service/evaluation"),
	}
}

// Run scores questions one at a time in order. Questions that already carry a
// score are left untouched, so a run can be repeated safely.
func (o *evaluationOrchestrator) Run(ctx context.Context, interviewID uint) (RunSummary, error) {
	ctx, span := o.tracer.Start(ctx, "evaluation.run", trace.WithAttributes(
		attribute.Int64("interview.id", int64(interviewID)),
	))
	defer span.End()

	logger := o.logger.With().Uint("interview_id", interviewID).Logger()

	interview, err := o.interviews.GetWithQuestions(ctx, interviewID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			err = ErrInterviewNotFound
		} else {
			err = fmt.Errorf("load interview %d: %w", interviewID, err)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return RunSummary{}, err
	}

	var summary RunSummary
	for _, question := range interview.Questions {
		switch {
		case !question.IsAnswered():
			summary.Unanswered++
			continue
		case question.IsScored():
			summary.Skipped++
			continue
		}

		result := o.scorer.Score(ctx, scoreInputFor(interview, question))
		applied, err := o.questions.SaveScore(ctx, question.ID, repository.QuestionScore{
			TechnicalScore:  result.Technical,
			ClarityScore:    result.Clarity,
			DepthScore:      result.Depth,
			ConfidenceScore: result.Confidence,
			Feedback:        result.Feedback,
			Strengths:       result.Strengths,
			Weaknesses:      result.Weaknesses,
		})
		if err != nil {
			summary.Failed++
			observability.QuestionWriteFailures().Inc()
			logger.Error().Err(err).Uint("question_id", question.ID).Msg("failed to persist question score")
			continue
		}
		if !applied {
			summary.Skipped++
			logger.Debug().Uint("question_id", question.ID).Msg("question already scored by another run")
			continue
		}

		summary.Scored++
		if result.Source == ScoreSourceFallback {
			summary.Fallbacks++
		}
		observability.QuestionsScored().WithLabelValues(result.Source).Inc()
	}

	span.SetAttributes(
		attribute.Int("questions.scored", summary.Scored),
		attribute.Int("questions.failed", summary.Failed),
	)

	report, err := o.aggregator.Summarize(ctx, interviewID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return summary, err
	}
	summary.Report = report

	logger.Info().
		Int("scored", summary.Scored).
		Int("fallbacks", summary.Fallbacks).
		Int("skipped", summary.Skipped).
		Int("unanswered", summary.Unanswered).
		Int("failed", summary.Failed).
		Int("overall_score", report.OverallScore).
		Str("narrative_source", report.NarrativeSource).
		Msg("interview evaluation finished")

	return summary, nil
}

func scoreInputFor(interview models.Interview, question models.Question) ScoreInput {
	input := ScoreInput{
		Prompt:     question.Prompt,
		Answer:     question.Answer(),
		Subject:    interview.Subject,
		Difficulty: interview.Difficulty,
		IsFollowUp: question.IsFollowUp,
	}
	if voice, ok := question.Voice(); ok {
		input.Voice = &voice
	}
	return input
}
