package dto

import (
	"time"

	"github.com/noah-isme/interview-eval-api/internal/models"
)

// Results statuses returned by the results endpoint.
const (
	ResultsStatusProcessing = "processing"
	ResultsStatusCompleted  = "completed"
)

// CompleteInterviewRequest identifies the interview whose answers should be evaluated.
type CompleteInterviewRequest struct {
	InterviewID uint `json:"interview_id" validate:"required,gt=0"`
}

// CompleteInterviewResponse acknowledges the trigger before evaluation finishes.
type CompleteInterviewResponse struct {
	InterviewID uint   `json:"interview_id"`
	JobID       string `json:"job_id"`
	JobStatus   string `json:"job_status"`
}

// AverageScores are the rounded per-category averages.
type AverageScores struct {
	Technical  int `json:"technical"`
	Clarity    int `json:"clarity"`
	Depth      int `json:"depth"`
	Confidence int `json:"confidence"`
}

// VoiceMetricsResponse describes the delivery metrics of an answer.
type VoiceMetricsResponse struct {
	WordsPerMinute          float64 `json:"words_per_minute"`
	FillerWordCount         int     `json:"filler_word_count"`
	PauseCount              int     `json:"pause_count"`
	LongestPause            float64 `json:"longest_pause"`
	SpeakingDurationSeconds float64 `json:"speaking_duration_seconds"`
}

// QuestionResultResponse is one question of a results payload.
type QuestionResultResponse struct {
	Number          int                   `json:"number"`
	Prompt          string                `json:"prompt"`
	Answer          *string               `json:"answer"`
	IsFollowUp      bool                  `json:"is_follow_up"`
	TechnicalScore  *int                  `json:"technical_score"`
	ClarityScore    *int                  `json:"clarity_score"`
	DepthScore      *int                  `json:"depth_score"`
	ConfidenceScore *int                  `json:"confidence_score"`
	Feedback        string                `json:"feedback"`
	Strengths       []string              `json:"strengths"`
	Weaknesses      []string              `json:"weaknesses"`
	VoiceMetrics    *VoiceMetricsResponse `json:"voice_metrics"`
}

// InterviewResultsResponse is the polling view of an interview evaluation.
// While nothing is scored only Status is set.
type InterviewResultsResponse struct {
	Status        string                   `json:"status"`
	OverallScore  *int                     `json:"overall_score,omitempty"`
	AverageScores *AverageScores           `json:"average_scores,omitempty"`
	Duration      *int                     `json:"duration,omitempty"`
	Feedback      string                   `json:"feedback,omitempty"`
	Questions     []QuestionResultResponse `json:"questions,omitempty"`
}

// ProcessingResults is the response returned before any question is scored.
func ProcessingResults() InterviewResultsResponse {
	return InterviewResultsResponse{Status: ResultsStatusProcessing}
}

// NewInterviewResultsResponse builds the results payload from an interview and its computed scores.
func NewInterviewResultsResponse(interview models.Interview, averages AverageScores, overall int) InterviewResultsResponse {
	status := ResultsStatusProcessing
	if interview.HasReport() {
		status = ResultsStatusCompleted
	}

	duration := interview.Duration
	response := InterviewResultsResponse{
		Status:        status,
		OverallScore:  &overall,
		AverageScores: &averages,
		Duration:      &duration,
		Feedback:      interview.Feedback,
		Questions:     make([]QuestionResultResponse, 0, len(interview.Questions)),
	}

	for i, question := range interview.Questions {
		response.Questions = append(response.Questions, NewQuestionResultResponse(i+1, question))
	}

	return response
}

// NewQuestionResultResponse converts a question model into its results DTO.
func NewQuestionResultResponse(number int, question models.Question) QuestionResultResponse {
	response := QuestionResultResponse{
		Number:          number,
		Prompt:          question.Prompt,
		Answer:          question.UserAnswer,
		IsFollowUp:      question.IsFollowUp,
		TechnicalScore:  question.TechnicalScore,
		ClarityScore:    question.ClarityScore,
		DepthScore:      question.DepthScore,
		ConfidenceScore: question.ConfidenceScore,
		Feedback:        question.Feedback,
		Strengths:       stringSlice(question.Strengths),
		Weaknesses:      stringSlice(question.Weaknesses),
	}

	if voice, ok := question.Voice(); ok {
		response.VoiceMetrics = &VoiceMetricsResponse{
			WordsPerMinute:          voice.WordsPerMinute,
			FillerWordCount:         voice.FillerWordCount,
			PauseCount:              voice.PauseCount,
			LongestPause:            voice.LongestPause,
			SpeakingDurationSeconds: voice.SpeakingDurationSeconds,
		}
	}

	return response
}

// EvaluationJobResponse exposes the progress of a background evaluation.
type EvaluationJobResponse struct {
	ID              string     `json:"id"`
	InterviewID     uint       `json:"interview_id"`
	Status          string     `json:"status"`
	Attempts        int        `json:"attempts"`
	MaxAttempts     int        `json:"max_attempts"`
	ScoredQuestions int        `json:"scored_questions"`
	FailedQuestions int        `json:"failed_questions"`
	StartedAt       *time.Time `json:"started_at,omitempty"`
	FinishedAt      *time.Time `json:"finished_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

// NewEvaluationJobResponse converts an evaluation job into its DTO.
func NewEvaluationJobResponse(job models.EvaluationJob) EvaluationJobResponse {
	return EvaluationJobResponse{
		ID:              job.ID,
		InterviewID:     job.InterviewID,
		Status:          job.Status,
		Attempts:        job.Attempts,
		MaxAttempts:     job.MaxAttempts,
		ScoredQuestions: job.ScoredQuestions,
		FailedQuestions: job.FailedQuestions,
		StartedAt:       job.StartedAt,
		FinishedAt:      job.FinishedAt,
		CreatedAt:       job.CreatedAt,
	}
}

func stringSlice[T ~[]string](values T) []string {
	if values == nil {
		return []string{}
	}
	return []string(values)
}
