package models

import "time"

// EvaluationJob status values.
const (
	EvaluationJobStatusPending   = "pending"
	EvaluationJobStatusRunning   = "running"
	EvaluationJobStatusCompleted = "completed"
	EvaluationJobStatusFailed    = "failed"
)

// EvaluationJob tracks one background evaluation run for an interview so that an
// interrupted run can be discovered and resumed.
type EvaluationJob struct {
	ID              string     `gorm:"primaryKey;size:36" json:"id"`
	InterviewID     uint       `gorm:"not null;index" json:"interview_id"`
	Status          string     `gorm:"size:32;not null;index" json:"status"`
	Attempts        int        `gorm:"default:0" json:"attempts"`
	MaxAttempts     int        `gorm:"default:3" json:"max_attempts"`
	LastError       string     `gorm:"type:text" json:"last_error"`
	ScoredQuestions int        `gorm:"default:0" json:"scored_questions"`
	FailedQuestions int        `gorm:"default:0" json:"failed_questions"`
	StartedAt       *time.Time `json:"started_at"`
	FinishedAt      *time.Time `json:"finished_at"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// IsActive reports whether the job may still make progress.
func (j EvaluationJob) IsActive() bool {
	return j.Status == EvaluationJobStatusPending || j.Status == EvaluationJobStatusRunning
}

// IsTerminal reports whether the job reached a final state.
func (j EvaluationJob) IsTerminal() bool {
	return j.Status == EvaluationJobStatusCompleted || j.Status == EvaluationJobStatusFailed
}
