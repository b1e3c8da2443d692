package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/noah-isme/interview-eval-api/internal/models"
)

// EvaluationJobRepository persists evaluation job records.
type EvaluationJobRepository interface {
	Create(ctx context.Context, job *models.EvaluationJob) error
	Finish(ctx context.Context, job *models.EvaluationJob) (bool, error)
	GetByID(ctx context.Context, id string) (models.EvaluationJob, error)
	LatestForInterview(ctx context.Context, interviewID uint) (models.EvaluationJob, error)
	FindActive(ctx context.Context, interviewID uint) (models.EvaluationJob, error)
	Claim(ctx context.Context, id string, now time.Time) (bool, error)
	Heartbeat(ctx context.Context, id string, attempt int, now time.Time) (bool, error)
	ListRecoverable(ctx context.Context, staleBefore time.Time) ([]models.EvaluationJob, error)
}

// NewEvaluationJobRepository constructs an evaluation job repository.
func NewEvaluationJobRepository(db *gorm.DB) EvaluationJobRepository {
	return &evaluationJobRepository{db: db}
}

type evaluationJobRepository struct {
	db *gorm.DB
}

func (r *evaluationJobRepository) Create(ctx context.Context, job *models.EvaluationJob) error {
	return r.db.WithContext(ctx).Create(job).Error
}

// Finish records the outcome of the run that claimed job.Attempts. It returns false
// when the job was reclaimed in the meantime, leaving the row to the newer run.
func (r *evaluationJobRepository) Finish(ctx context.Context, job *models.EvaluationJob) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.EvaluationJob{}).
		Where("id = ? AND status = ? AND attempts = ?", job.ID, models.EvaluationJobStatusRunning, job.Attempts).
		Updates(map[string]interface{}{
			"status":           job.Status,
			"last_error":       job.LastError,
			"scored_questions": job.ScoredQuestions,
			"failed_questions": job.FailedQuestions,
			"finished_at":      job.FinishedAt,
			"updated_at":       time.Now(),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *evaluationJobRepository) GetByID(ctx context.Context, id string) (models.EvaluationJob, error) {
	var job models.EvaluationJob
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&job).Error; err != nil {
		return models.EvaluationJob{}, err
	}
	return job, nil
}

func (r *evaluationJobRepository) LatestForInterview(ctx context.Context, interviewID uint) (models.EvaluationJob, error) {
	var job models.EvaluationJob
	err := r.db.WithContext(ctx).
		Where("interview_id = ?", interviewID).
		Order("created_at DESC").
		First(&job).Error
	if err != nil {
		return models.EvaluationJob{}, err
	}
	return job, nil
}

func (r *evaluationJobRepository) FindActive(ctx context.Context, interviewID uint) (models.EvaluationJob, error) {
	var job models.EvaluationJob
	err := r.db.WithContext(ctx).
		Where("interview_id = ? AND status IN ?", interviewID, []string{
			models.EvaluationJobStatusPending,
			models.EvaluationJobStatusRunning,
		}).
		Order("created_at DESC").
		First(&job).Error
	if err != nil {
		return models.EvaluationJob{}, err
	}
	return job, nil
}

// Claim atomically moves a pending job to running and counts the attempt.
// It returns false when another consumer claimed the job first or the job is no longer pending.
func (r *evaluationJobRepository) Claim(ctx context.Context, id string, now time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.EvaluationJob{}).
		Where("id = ? AND status = ?", id, models.EvaluationJobStatusPending).
		Updates(map[string]interface{}{
			"status":     models.EvaluationJobStatusRunning,
			"attempts":   gorm.Expr("attempts + 1"),
			"started_at": now,
			"updated_at": now,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// Heartbeat marks a running attempt as alive. It returns false once the attempt no
// longer owns the job.
func (r *evaluationJobRepository) Heartbeat(ctx context.Context, id string, attempt int, now time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.EvaluationJob{}).
		Where("id = ? AND status = ? AND attempts = ?", id, models.EvaluationJobStatusRunning, attempt).
		Update("updated_at", now)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// ListRecoverable returns pending jobs and running jobs whose last heartbeat is older
// than staleBefore. Stale running jobs are reset to pending.
func (r *evaluationJobRepository) ListRecoverable(ctx context.Context, staleBefore time.Time) ([]models.EvaluationJob, error) {
	err := r.db.WithContext(ctx).
		Model(&models.EvaluationJob{}).
		Where("status = ? AND updated_at < ?", models.EvaluationJobStatusRunning, staleBefore).
		Update("status", models.EvaluationJobStatusPending).Error
	if err != nil {
		return nil, err
	}

	var jobs []models.EvaluationJob
	err = r.db.WithContext(ctx).
		Where("status = ?", models.EvaluationJobStatusPending).
		Order("created_at ASC").
		Find(&jobs).Error
	if err != nil {
		return nil, err
	}
	return jobs, nil
}
