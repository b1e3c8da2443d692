package models

import "time"

// Interview status values. Transitions only move forward.
const (
	InterviewStatusInProgress = "in_progress"
	InterviewStatusCompleted  = "completed"
)

// Interview is a candidate's interview session together with its aggregated report.
type Interview struct {
	ID                 uint       `gorm:"primaryKey" json:"id"`
	Subject            string     `gorm:"size:128;not null" json:"subject"`
	Difficulty         string     `gorm:"size:32;not null" json:"difficulty"`
	Status             string     `gorm:"size:32;not null;default:in_progress" json:"status"`
	StartedAt          time.Time  `json:"started_at"`
	CompletedAt        *time.Time `json:"completed_at"`
	Duration           int        `gorm:"default:0" json:"duration"`
	OverallScore       *int       `json:"overall_score"`
	TechnicalAccuracy  *int       `json:"technical_accuracy"`
	CommunicationScore *int       `json:"communication_score"`
	DepthScore         *int       `json:"depth_score"`
	ConfidenceScore    *int       `json:"confidence_score"`
	Feedback           string     `gorm:"type:text" json:"feedback"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
	Questions          []Question `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"questions"`
}

// IsCompleted reports whether the trigger already closed the interview.
func (i Interview) IsCompleted() bool {
	return i.Status == InterviewStatusCompleted
}

// HasReport reports whether the aggregated narrative has been written.
func (i Interview) HasReport() bool {
	return i.Feedback != ""
}
