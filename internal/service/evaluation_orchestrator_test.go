package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/noah-isme/interview-eval-api/internal/models"
	"github.com/noah-isme/interview-eval-api/internal/repository"
	"github.com/noah-isme/interview-eval-api/pkg/ai"
)

type failingQuestionRepo struct {
	repository.QuestionRepository
	failFor map[uint]bool
}

func (f *failingQuestionRepo) SaveScore(ctx context.Context, id uint, score repository.QuestionScore) (bool, error) {
	if f.failFor[id] {
		return false, errors.New("write rejected")
	}
	return f.QuestionRepository.SaveScore(ctx, id, score)
}

type recordingAggregator struct {
	calls []uint
}

func (r *recordingAggregator) Summarize(ctx context.Context, interviewID uint) (Report, error) {
	r.calls = append(r.calls, interviewID)
	return Report{InterviewID: interviewID}, nil
}

func newTestOrchestrator(db *gorm.DB, client ai.Client, questions repository.QuestionRepository) EvaluationOrchestrator {
	interviews := repository.NewInterviewRepository(db)
	if questions == nil {
		questions = repository.NewQuestionRepository(db)
	}
	scorer := NewAnswerScorer(client, time.Second, zerolog.Nop())
	aggregator := NewReportAggregator(interviews, client, time.Second, zerolog.Nop())
	return NewEvaluationOrchestrator(interviews, questions, scorer, aggregator, zerolog.Nop())
}

func loadQuestion(t *testing.T, db *gorm.DB, id uint) models.Question {
	t.Helper()
	var question models.Question
	require.NoError(t, db.First(&question, id).Error)
	return question
}

func TestEvaluationOrchestratorEndToEndWithUnavailableInference(t *testing.T) {
	db := setupServiceDB(t)
	interview := createInterview(t, db, "Go", "medium")

	q1 := models.Question{
		InterviewID:             interview.ID,
		OrderIndex:              1,
		Prompt:                  "Explain the Go scheduler",
		UserAnswer:              stringPtr(answerOfLength(40)),
		FillerWordCount:         intPtr(1),
		WordsPerMinute:          floatPtr(130),
		SpeakingDurationSeconds: floatPtr(18.5),
	}
	q2 := models.Question{InterviewID: interview.ID, OrderIndex: 2, Prompt: "Explain escape analysis"}
	require.NoError(t, db.Create(&q1).Error)
	require.NoError(t, db.Create(&q2).Error)

	client := &stubInferenceClient{err: ai.ErrInferenceUnavailable}
	orchestrator := newTestOrchestrator(db, client, nil)

	summary, err := orchestrator.Run(context.Background(), interview.ID)
	require.NoError(t, err)
	require.Equal(t, 1, summary.Scored)
	require.Equal(t, 1, summary.Fallbacks)
	require.Equal(t, 1, summary.Unanswered)
	require.Zero(t, summary.Failed)

	scored := loadQuestion(t, db, q1.ID)
	require.Equal(t, 75, *scored.TechnicalScore)
	require.Equal(t, 80, *scored.ClarityScore)
	require.Equal(t, 70, *scored.DepthScore)
	require.Equal(t, 95, *scored.ConfidenceScore)
	require.NotEmpty(t, scored.Feedback)
	require.Len(t, scored.Strengths, 2)
	require.Len(t, scored.Weaknesses, 2)

	unanswered := loadQuestion(t, db, q2.ID)
	require.Nil(t, unanswered.TechnicalScore)
	require.Nil(t, unanswered.ClarityScore)
	require.Nil(t, unanswered.DepthScore)
	require.Nil(t, unanswered.ConfidenceScore)

	var stored models.Interview
	require.NoError(t, db.First(&stored, interview.ID).Error)
	require.True(t, stored.HasReport())
	require.Equal(t, 80, *stored.OverallScore)
	require.Equal(t, 19, stored.Duration)

	second, err := orchestrator.Run(context.Background(), interview.ID)
	require.NoError(t, err)
	require.Zero(t, second.Scored)
	require.Equal(t, 1, second.Skipped)
	require.Equal(t, 1, second.Unanswered)

	rescored := loadQuestion(t, db, q1.ID)
	require.Equal(t, scored.TechnicalScore, rescored.TechnicalScore)
	require.Equal(t, scored.ClarityScore, rescored.ClarityScore)
	require.Equal(t, scored.DepthScore, rescored.DepthScore)
	require.Equal(t, scored.ConfidenceScore, rescored.ConfidenceScore)
	require.Equal(t, scored.Feedback, rescored.Feedback)
	require.Equal(t, scored.Strengths, rescored.Strengths)
	require.Equal(t, scored.Weaknesses, rescored.Weaknesses)
	require.Nil(t, loadQuestion(t, db, q2.ID).TechnicalScore)
}

func TestEvaluationOrchestratorDoesNotRescoreWithDifferentInference(t *testing.T) {
	db := setupServiceDB(t)
	interview := createInterview(t, db, "Go", "medium")
	question := models.Question{InterviewID: interview.ID, OrderIndex: 1, Prompt: "What is a slice?", UserAnswer: stringPtr("A view over an array.")}
	require.NoError(t, db.Create(&question).Error)

	first := &stubInferenceClient{responses: []string{`{"technical_score": 91, "clarity_score": 82, "depth_score": 73, "confidence_score": 64, "feedback": "Precise."}`, "## Performance Summary"}}
	_, err := newTestOrchestrator(db, first, nil).Run(context.Background(), interview.ID)
	require.NoError(t, err)

	second := &stubInferenceClient{responses: []string{`{"technical_score": 10, "clarity_score": 10, "depth_score": 10, "confidence_score": 10}`}}
	_, err = newTestOrchestrator(db, second, nil).Run(context.Background(), interview.ID)
	require.NoError(t, err)

	stored := loadQuestion(t, db, question.ID)
	require.Equal(t, 91, *stored.TechnicalScore)
	require.Equal(t, 82, *stored.ClarityScore)
	require.Equal(t, 73, *stored.DepthScore)
	require.Equal(t, 64, *stored.ConfidenceScore)
	require.Equal(t, "Precise.", stored.Feedback)

	for _, prompt := range second.prompts {
		require.NotContains(t, prompt, "grading a candidate's spoken answer")
	}
}

func TestEvaluationOrchestratorIsolatesWriteFailures(t *testing.T) {
	db := setupServiceDB(t)
	interview := createInterview(t, db, "Go", "easy")
	broken := models.Question{InterviewID: interview.ID, OrderIndex: 1, Prompt: "first", UserAnswer: stringPtr(answerOfLength(10))}
	healthy := models.Question{InterviewID: interview.ID, OrderIndex: 2, Prompt: "second", UserAnswer: stringPtr(answerOfLength(35))}
	require.NoError(t, db.Create(&broken).Error)
	require.NoError(t, db.Create(&healthy).Error)

	questions := &failingQuestionRepo{QuestionRepository: repository.NewQuestionRepository(db), failFor: map[uint]bool{broken.ID: true}}
	summary, err := newTestOrchestrator(db, nil, questions).Run(context.Background(), interview.ID)
	require.NoError(t, err)
	require.Equal(t, 1, summary.Failed)
	require.Equal(t, 1, summary.Scored)
	require.Equal(t, 1, summary.Report.ScoredQuestions)

	require.Nil(t, loadQuestion(t, db, broken.ID).TechnicalScore)
	require.Equal(t, 75, *loadQuestion(t, db, healthy.ID).TechnicalScore)

	retry, err := newTestOrchestrator(db, nil, nil).Run(context.Background(), interview.ID)
	require.NoError(t, err)
	require.Equal(t, 1, retry.Scored)
	require.Equal(t, 1, retry.Skipped)
	require.Equal(t, 60, *loadQuestion(t, db, broken.ID).TechnicalScore)
	require.Equal(t, 2, retry.Report.ScoredQuestions)
}

func TestEvaluationOrchestratorScoresInOrder(t *testing.T) {
	db := setupServiceDB(t)
	interview := createInterview(t, db, "Go", "easy")
	require.NoError(t, db.Create(&models.Question{InterviewID: interview.ID, OrderIndex: 3, Prompt: "third prompt", UserAnswer: stringPtr("c")}).Error)
	require.NoError(t, db.Create(&models.Question{InterviewID: interview.ID, OrderIndex: 1, Prompt: "first prompt", UserAnswer: stringPtr("a")}).Error)
	require.NoError(t, db.Create(&models.Question{InterviewID: interview.ID, OrderIndex: 2, Prompt: "second prompt", UserAnswer: stringPtr("b")}).Error)

	client := &stubInferenceClient{err: ai.ErrInferenceUnavailable}
	interviews := repository.NewInterviewRepository(db)
	aggregator := &recordingAggregator{}
	orchestrator := NewEvaluationOrchestrator(interviews, repository.NewQuestionRepository(db), NewAnswerScorer(client, time.Second, zerolog.Nop()), aggregator, zerolog.Nop())

	_, err := orchestrator.Run(context.Background(), interview.ID)
	require.NoError(t, err)
	require.Len(t, client.prompts, 3)
	require.Contains(t, client.prompts[0], "first prompt")
	require.Contains(t, client.prompts[1], "second prompt")
	require.Contains(t, client.prompts[2], "third prompt")
	require.Equal(t, []uint{interview.ID}, aggregator.calls)
}

func TestEvaluationOrchestratorAbortsOnMissingInterview(t *testing.T) {
	db := setupServiceDB(t)
	aggregator := &recordingAggregator{}
	interviews := repository.NewInterviewRepository(db)
	orchestrator := NewEvaluationOrchestrator(interviews, repository.NewQuestionRepository(db), NewAnswerScorer(nil, 0, zerolog.Nop()), aggregator, zerolog.Nop())

	_, err := orchestrator.Run(context.Background(), 777)
	require.ErrorIs(t, err, ErrInterviewNotFound)
	require.Empty(t, aggregator.calls)
}
