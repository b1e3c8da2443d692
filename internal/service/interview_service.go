package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/interview-eval-api/internal/dto"
	"github.com/noah-isme/interview-eval-api/internal/models"
	"github.com/noah-isme/interview-eval-api/internal/queue"
	"github.com/noah-isme/interview-eval-api/internal/repository"
)

// ErrInterviewNotFound indicates the interview cannot be located.
var ErrInterviewNotFound = errors.New("interview not found")

// ErrEvaluationJobNotFound indicates no evaluation was ever started for the interview.
var ErrEvaluationJobNotFound = errors.New("evaluation job not found")

const defaultMaxAttempts = 3

// InterviewService exposes the evaluation trigger and the polling reads.
type InterviewService interface {
	Complete(ctx context.Context, payload dto.CompleteInterviewRequest) (dto.CompleteInterviewResponse, error)
	GetResults(ctx context.Context, interviewID uint) (dto.InterviewResultsResponse, error)
	GetEvaluationJob(ctx context.Context, interviewID uint) (dto.EvaluationJobResponse, error)
}

// InterviewServiceConfig tunes job creation and result caching.
type InterviewServiceConfig struct {
	MaxAttempts int
	CacheTTL    time.Duration
}

type interviewService struct {
	interviews repository.InterviewRepository
	jobs       repository.EvaluationJobRepository
	queue      queue.JobQueue
	cache      *redis.Client
	validator  *validator.Validate
	logger     zerolog.Logger
	config     InterviewServiceConfig
	now        func() time.Time
}

// NewInterviewService constructs the interview service. The cache client may be nil.
func NewInterviewService(interviews repository.InterviewRepository, jobs repository.EvaluationJobRepository, jobQueue queue.JobQueue, cache *redis.Client, validate *validator.Validate, logger zerolog.Logger, cfg InterviewServiceConfig) InterviewService {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaultMaxAttempts
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 10 * time.Minute
	}

	return &interviewService{
		interviews: interviews,
		jobs:       jobs,
		queue:      jobQueue,
		cache:      cache,
		validator:  validate,
		logger:     logger.With().Str("component", "interview_service").Logger(),
		config:     cfg,
		now:        time.Now,
	}
}

// Complete closes the interview and schedules its evaluation. It returns as soon
// as the job is recorded; scoring happens on the worker pool.
func (s *interviewService) Complete(ctx context.Context, payload dto.CompleteInterviewRequest) (dto.CompleteInterviewResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.CompleteInterviewResponse{}, err
	}

	interview, err := s.interviews.GetWithQuestions(ctx, payload.InterviewID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.CompleteInterviewResponse{}, ErrInterviewNotFound
		}
		return dto.CompleteInterviewResponse{}, err
	}

	if err := s.interviews.MarkCompleted(ctx, interview.ID, s.now(), totalSpeakingDuration(interview.Questions)); err != nil {
		return dto.CompleteInterviewResponse{}, fmt.Errorf("mark interview %d completed: %w", interview.ID, err)
	}

	job, err := s.jobs.FindActive(ctx, interview.ID)
	switch {
	case err == nil:
		s.logger.Info().Uint("interview_id", interview.ID).Str("job_id", job.ID).Msg("evaluation already scheduled")
	case errors.Is(err, gorm.ErrRecordNotFound):
		job = models.EvaluationJob{
			ID:          uuid.NewString(),
			InterviewID: interview.ID,
			Status:      models.EvaluationJobStatusPending,
			MaxAttempts: s.config.MaxAttempts,
		}
		if err := s.jobs.Create(ctx, &job); err != nil {
			return dto.CompleteInterviewResponse{}, fmt.Errorf("create evaluation job: %w", err)
		}
	default:
		return dto.CompleteInterviewResponse{}, err
	}

	if job.Status == models.EvaluationJobStatusPending {
		if err := s.queue.Enqueue(ctx, job.ID); err != nil {
			// The job row stays pending and is picked up by the worker's recovery sweep.
			s.logger.Warn().Err(err).Str("job_id", job.ID).Msg("failed to enqueue evaluation job")
		}
	}

	return dto.CompleteInterviewResponse{
		InterviewID: interview.ID,
		JobID:       job.ID,
		JobStatus:   job.Status,
	}, nil
}

func (s *interviewService) GetResults(ctx context.Context, interviewID uint) (dto.InterviewResultsResponse, error) {
	cacheKey := resultsCacheKey(interviewID)

	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, cacheKey).Result(); err == nil {
			var response dto.InterviewResultsResponse
			if unmarshalErr := json.Unmarshal([]byte(cached), &response); unmarshalErr == nil {
				s.logger.Debug().Uint("interview_id", interviewID).Msg("results cache hit")
				return response, nil
			}
		} else if !errors.Is(err, redis.Nil) {
			s.logger.Warn().Err(err).Msg("failed to read results cache")
		}
	}

	interview, err := s.interviews.GetWithQuestions(ctx, interviewID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.InterviewResultsResponse{}, ErrInterviewNotFound
		}
		return dto.InterviewResultsResponse{}, err
	}

	averages, scored := computeAverages(interview.Questions)
	if scored == 0 {
		return dto.ProcessingResults(), nil
	}

	overall := averages.Overall()
	if interview.OverallScore != nil && interview.HasReport() {
		overall = *interview.OverallScore
	}

	response := dto.NewInterviewResultsResponse(interview, dto.AverageScores{
		Technical:  roundAverage(averages.Technical),
		Clarity:    roundAverage(averages.Clarity),
		Depth:      roundAverage(averages.Depth),
		Confidence: roundAverage(averages.Confidence),
	}, overall)

	if s.cache != nil && response.Status == dto.ResultsStatusCompleted && !s.evaluationActive(ctx, interviewID) {
		if payload, err := json.Marshal(response); err == nil {
			if err := s.cache.Set(ctx, cacheKey, payload, s.config.CacheTTL).Err(); err != nil {
				s.logger.Warn().Err(err).Msg("failed to store results cache")
			}
		}
	}

	return response, nil
}

func (s *interviewService) GetEvaluationJob(ctx context.Context, interviewID uint) (dto.EvaluationJobResponse, error) {
	job, err := s.jobs.LatestForInterview(ctx, interviewID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.EvaluationJobResponse{}, ErrEvaluationJobNotFound
		}
		return dto.EvaluationJobResponse{}, err
	}
	return dto.NewEvaluationJobResponse(job), nil
}

// evaluationActive reports whether a job may still rewrite the interview's scores.
// Lookup errors count as active so a possibly stale payload is never cached.
func (s *interviewService) evaluationActive(ctx context.Context, interviewID uint) bool {
	job, err := s.jobs.LatestForInterview(ctx, interviewID)
	if err != nil {
		return !errors.Is(err, gorm.ErrRecordNotFound)
	}
	return job.IsActive()
}

func resultsCacheKey(interviewID uint) string {
	return fmt.Sprintf("interview:results:%d", interviewID)
}
