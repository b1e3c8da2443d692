package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/noah-isme/interview-eval-api/internal/models"
)

// InterviewReport is the aggregated result written to an interview row.
type InterviewReport struct {
	Feedback           string
	OverallScore       int
	TechnicalAccuracy  int
	CommunicationScore int
	DepthScore         int
	ConfidenceScore    int
	Duration           int
}

// InterviewRepository exposes point reads and writes of interviews.
type InterviewRepository interface {
	GetWithQuestions(ctx context.Context, id uint) (models.Interview, error)
	MarkCompleted(ctx context.Context, id uint, completedAt time.Time, duration int) error
	SaveReport(ctx context.Context, id uint, report InterviewReport) error
}

// NewInterviewRepository constructs an interview repository.
func NewInterviewRepository(db *gorm.DB) InterviewRepository {
	return &interviewRepository{db: db}
}

type interviewRepository struct {
	db *gorm.DB
}

func (r *interviewRepository) GetWithQuestions(ctx context.Context, id uint) (models.Interview, error) {
	var interview models.Interview
	err := r.db.WithContext(ctx).
		Preload("Questions", func(db *gorm.DB) *gorm.DB {
			return db.Order("order_index ASC").Order("id ASC")
		}).
		First(&interview, id).Error
	if err != nil {
		return models.Interview{}, err
	}
	return interview, nil
}

// MarkCompleted moves an in-progress interview to completed. Interviews that are
// already completed keep their original completion time.
func (r *interviewRepository) MarkCompleted(ctx context.Context, id uint, completedAt time.Time, duration int) error {
	return r.db.WithContext(ctx).
		Model(&models.Interview{}).
		Where("id = ? AND status = ?", id, models.InterviewStatusInProgress).
		Updates(map[string]interface{}{
			"status":       models.InterviewStatusCompleted,
			"completed_at": completedAt,
			"duration":     duration,
		}).Error
}

func (r *interviewRepository) SaveReport(ctx context.Context, id uint, report InterviewReport) error {
	result := r.db.WithContext(ctx).
		Model(&models.Interview{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"feedback":            report.Feedback,
			"overall_score":       report.OverallScore,
			"technical_accuracy":  report.TechnicalAccuracy,
			"communication_score": report.CommunicationScore,
			"depth_score":         report.DepthScore,
			"confidence_score":    report.ConfidenceScore,
			"duration":            report.Duration,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
