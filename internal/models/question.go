package models

import (
	"strings"
	"time"

	"gorm.io/datatypes"
)

// VoiceMetrics are delivery features of a spoken answer supplied by the transcription pipeline.
type VoiceMetrics struct {
	WordsPerMinute          float64 `json:"words_per_minute"`
	FillerWordCount         int     `json:"filler_word_count"`
	PauseCount              int     `json:"pause_count"`
	LongestPause            float64 `json:"longest_pause"`
	SpeakingDurationSeconds float64 `json:"speaking_duration_seconds"`
}

// Question is a single interview prompt with the candidate's answer and its evaluation.
// The four score columns are written together or not at all.
type Question struct {
	ID          uint    `gorm:"primaryKey" json:"id"`
	InterviewID uint    `gorm:"not null;index" json:"interview_id"`
	OrderIndex  int     `gorm:"not null" json:"order_index"`
	Prompt      string  `gorm:"type:text;not null" json:"prompt"`
	UserAnswer  *string `gorm:"type:text" json:"user_answer"`
	IsFollowUp  bool    `gorm:"default:false" json:"is_follow_up"`

	WordsPerMinute          *float64 `json:"words_per_minute"`
	FillerWordCount         *int     `json:"filler_word_count"`
	PauseCount              *int     `json:"pause_count"`
	LongestPause            *float64 `json:"longest_pause"`
	SpeakingDurationSeconds *float64 `json:"speaking_duration_seconds"`

	TechnicalScore  *int                        `json:"technical_score"`
	ClarityScore    *int                        `json:"clarity_score"`
	DepthScore      *int                        `json:"depth_score"`
	ConfidenceScore *int                        `json:"confidence_score"`
	Feedback        string                      `gorm:"type:text" json:"feedback"`
	Strengths       datatypes.JSONSlice[string] `json:"strengths"`
	Weaknesses      datatypes.JSONSlice[string] `json:"weaknesses"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsAnswered reports whether the candidate provided an answer.
func (q Question) IsAnswered() bool {
	return q.UserAnswer != nil
}

// IsScored reports whether the score block has been written.
func (q Question) IsScored() bool {
	return q.TechnicalScore != nil
}

// Answer returns the trimmed answer text or an empty string.
func (q Question) Answer() string {
	if q.UserAnswer == nil {
		return ""
	}
	return strings.TrimSpace(*q.UserAnswer)
}

// Voice assembles the voice metrics block. The boolean is false when the
// collaborator never supplied metrics for this question.
func (q Question) Voice() (VoiceMetrics, bool) {
	if q.WordsPerMinute == nil && q.FillerWordCount == nil && q.PauseCount == nil &&
		q.LongestPause == nil && q.SpeakingDurationSeconds == nil {
		return VoiceMetrics{}, false
	}

	var metrics VoiceMetrics
	if q.WordsPerMinute != nil {
		metrics.WordsPerMinute = *q.WordsPerMinute
	}
	if q.FillerWordCount != nil {
		metrics.FillerWordCount = *q.FillerWordCount
	}
	if q.PauseCount != nil {
		metrics.PauseCount = *q.PauseCount
	}
	if q.LongestPause != nil {
		metrics.LongestPause = *q.LongestPause
	}
	if q.SpeakingDurationSeconds != nil {
		metrics.SpeakingDurationSeconds = *q.SpeakingDurationSeconds
	}
	return metrics, true
}
