package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/noah-isme/interview-eval-api/internal/models"
	"github.com/noah-isme/interview-eval-api/internal/observability"
	"github.com/noah-isme/interview-eval-api/internal/queue"
	"github.com/noah-isme/interview-eval-api/internal/repository"
)

// EvaluationWorkerConfig tunes the worker pool.
type EvaluationWorkerConfig struct {
	Concurrency     int
	StaleAfter      time.Duration
	RecoverInterval time.Duration
	EventsSubject   string
}

// EvaluationCompletedEvent is published once an interview report is written.
type EvaluationCompletedEvent struct {
	JobID           string    `json:"job_id"`
	InterviewID     uint      `json:"interview_id"`
	OverallScore    int       `json:"overall_score"`
	ScoredQuestions int       `json:"scored_questions"`
	NarrativeSource string    `json:"narrative_source"`
	CompletedAt     time.Time `json:"completed_at"`
}

// EvaluationWorker consumes evaluation jobs and drives the orchestrator for each one.
type EvaluationWorker struct {
	jobs         repository.EvaluationJobRepository
	queue        queue.JobQueue
	orchestrator EvaluationOrchestrator
	cache        *redis.Client
	nats         *nats.Conn
	config       EvaluationWorkerConfig
	logger       zerolog.Logger
	now          func() time.Time
}

// NewEvaluationWorker builds the worker pool. cache and natsConn may be nil.
func NewEvaluationWorker(jobs repository.EvaluationJobRepository, jobQueue queue.JobQueue, orchestrator EvaluationOrchestrator, cache *redis.Client, natsConn *nats.Conn, logger zerolog.Logger, cfg EvaluationWorkerConfig) *EvaluationWorker {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	if cfg.StaleAfter <= 0 {
		cfg.StaleAfter = 15 * time.Minute
	}
	if cfg.RecoverInterval <= 0 {
		cfg.RecoverInterval = time.Minute
	}

	return &EvaluationWorker{
		jobs:         jobs,
		queue:        jobQueue,
		orchestrator: orchestrator,
		cache:        cache,
		nats:         natsConn,
		config:       cfg,
		logger:       logger.With().Str("component", "evaluation_worker").Logger(),
		now:          time.Now,
	}
}

// Start recovers unfinished jobs and runs the consumers until ctx is cancelled.
func (w *EvaluationWorker) Start(ctx context.Context) error {
	group, ctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		w.recoverLoop(ctx)
		return nil
	})

	for i := 0; i < w.config.Concurrency; i++ {
		consumer := i
		group.Go(func() error {
			w.consume(ctx, consumer)
			return nil
		})
	}

	w.logger.Info().Int("concurrency", w.config.Concurrency).Msg("evaluation worker started")
	return group.Wait()
}

// Recover re-enqueues pending jobs and jobs whose run went stale.
func (w *EvaluationWorker) Recover(ctx context.Context) (int, error) {
	jobs, err := w.jobs.ListRecoverable(ctx, w.now().Add(-w.config.StaleAfter))
	if err != nil {
		return 0, fmt.Errorf("list recoverable jobs: %w", err)
	}

	enqueued := 0
	for _, job := range jobs {
		if err := w.queue.Enqueue(ctx, job.ID); err != nil {
			w.logger.Warn().Err(err).Str("job_id", job.ID).Msg("failed to re-enqueue job")
			continue
		}
		enqueued++
	}
	return enqueued, nil
}

func (w *EvaluationWorker) recoverLoop(ctx context.Context) {
	ticker := time.NewTicker(w.config.RecoverInterval)
	defer ticker.Stop()

	for {
		if count, err := w.Recover(ctx); err != nil {
			if ctx.Err() == nil {
				w.logger.Error().Err(err).Msg("job recovery failed")
			}
		} else if count > 0 {
			w.logger.Info().Int("jobs", count).Msg("re-enqueued unfinished evaluation jobs")
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (w *EvaluationWorker) consume(ctx context.Context, consumer int) {
	logger := w.logger.With().Int("consumer", consumer).Logger()

	for {
		if ctx.Err() != nil {
			return
		}

		jobID, err := w.queue.Dequeue(ctx)
		if err != nil {
			if errors.Is(err, queue.ErrEmpty) || ctx.Err() != nil {
				continue
			}
			logger.Error().Err(err).Msg("failed to dequeue evaluation job")
			select {
			case <-ctx.Done():
			case <-time.After(time.Second):
			}
			continue
		}

		if err := w.ProcessJob(ctx, jobID); err != nil {
			logger.Error().Err(err).Str("job_id", jobID).Msg("evaluation job bookkeeping failed")
		}
	}
}

// ProcessJob claims the job and runs the orchestrator for its interview. Jobs that
// are unknown, finished or already claimed elsewhere are ignored.
func (w *EvaluationWorker) ProcessJob(ctx context.Context, jobID string) error {
	logger := w.logger.With().Str("job_id", jobID).Logger()

	job, err := w.jobs.GetByID(ctx, jobID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Warn().Msg("dropping unknown evaluation job")
			return nil
		}
		return fmt.Errorf("load job: %w", err)
	}
	if job.IsTerminal() {
		return nil
	}

	claimed, err := w.jobs.Claim(ctx, jobID, w.now())
	if err != nil {
		return fmt.Errorf("claim job: %w", err)
	}
	if !claimed {
		return nil
	}

	job, err = w.jobs.GetByID(ctx, jobID)
	if err != nil {
		return fmt.Errorf("reload job: %w", err)
	}

	runCtx, cancelRun := context.WithCancel(ctx)
	heartbeatDone := make(chan struct{})
	go func() {
		defer close(heartbeatDone)
		w.heartbeat(runCtx, cancelRun, job, logger)
	}()

	start := w.now()
	summary, runErr := w.orchestrator.Run(runCtx, job.InterviewID)
	observability.EvaluationRunDuration().Observe(w.now().Sub(start).Seconds())
	cancelRun()
	<-heartbeatDone

	// Bookkeeping must survive shutdown of the consumer context.
	saveCtx := context.WithoutCancel(ctx)
	finished := w.now()
	job.ScoredQuestions = summary.Report.ScoredQuestions
	job.FailedQuestions = summary.Failed

	// Any run may have written scores or a report, whatever the job outcome.
	w.invalidateResults(saveCtx, job.InterviewID)

	switch {
	case errors.Is(runErr, ErrInterviewNotFound):
		job.Status = models.EvaluationJobStatusFailed
		job.LastError = runErr.Error()
		job.FinishedAt = &finished
	case runErr != nil || summary.Failed > 0:
		if runErr != nil {
			job.LastError = runErr.Error()
		} else {
			job.LastError = fmt.Sprintf("%d question score writes failed", summary.Failed)
		}
		if job.Attempts < job.MaxAttempts {
			job.Status = models.EvaluationJobStatusPending
		} else {
			job.Status = models.EvaluationJobStatusFailed
			job.FinishedAt = &finished
		}
	default:
		job.Status = models.EvaluationJobStatusCompleted
		job.LastError = ""
		job.FinishedAt = &finished
	}

	applied, err := w.jobs.Finish(saveCtx, &job)
	if err != nil {
		return fmt.Errorf("update job: %w", err)
	}
	if !applied {
		logger.Warn().Int("attempt", job.Attempts).Msg("evaluation job was reclaimed, discarding outcome")
		return nil
	}
	observability.EvaluationJobs().WithLabelValues(jobOutcome(job.Status)).Inc()

	switch job.Status {
	case models.EvaluationJobStatusPending:
		logger.Warn().Str("last_error", job.LastError).Int("attempt", job.Attempts).Msg("evaluation incomplete, retrying")
		if err := w.queue.Enqueue(saveCtx, job.ID); err != nil {
			logger.Warn().Err(err).Msg("failed to re-enqueue job; recovery sweep will retry")
		}
	case models.EvaluationJobStatusFailed:
		logger.Error().Str("last_error", job.LastError).Int("attempts", job.Attempts).Msg("evaluation job failed")
	case models.EvaluationJobStatusCompleted:
		w.publishCompleted(job, summary.Report, finished)
	}

	return nil
}

// heartbeat keeps the claimed attempt fresh so the recovery sweep leaves it alone.
// The run is cancelled once the attempt loses the job.
func (w *EvaluationWorker) heartbeat(ctx context.Context, cancelRun context.CancelFunc, job models.EvaluationJob, logger zerolog.Logger) {
	interval := w.config.StaleAfter / 3
	if interval <= 0 {
		interval = w.config.StaleAfter
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		alive, err := w.jobs.Heartbeat(ctx, job.ID, job.Attempts, w.now())
		if err != nil {
			if ctx.Err() == nil {
				logger.Warn().Err(err).Msg("failed to record job heartbeat")
			}
			continue
		}
		if !alive {
			logger.Warn().Int("attempt", job.Attempts).Msg("evaluation job claim lost, stopping run")
			cancelRun()
			return
		}
	}
}

func (w *EvaluationWorker) invalidateResults(ctx context.Context, interviewID uint) {
	if w.cache == nil {
		return
	}
	if err := w.cache.Del(ctx, resultsCacheKey(interviewID)).Err(); err != nil {
		w.logger.Warn().Err(err).Uint("interview_id", interviewID).Msg("failed to invalidate results cache")
	}
}

func (w *EvaluationWorker) publishCompleted(job models.EvaluationJob, report Report, completedAt time.Time) {
	if w.nats == nil || w.config.EventsSubject == "" {
		return
	}

	payload, err := json.Marshal(EvaluationCompletedEvent{
		JobID:           job.ID,
		InterviewID:     job.InterviewID,
		OverallScore:    report.OverallScore,
		ScoredQuestions: report.ScoredQuestions,
		NarrativeSource: report.NarrativeSource,
		CompletedAt:     completedAt.UTC(),
	})
	if err != nil {
		w.logger.Warn().Err(err).Msg("failed to encode evaluation event")
		return
	}

	if err := w.nats.Publish(w.config.EventsSubject, payload); err != nil {
		w.logger.Warn().Err(err).Str("job_id", job.ID).Msg("failed to publish evaluation event")
	}
}

func jobOutcome(status string) string {
	switch status {
	case models.EvaluationJobStatusPending:
		return "retry"
	case models.EvaluationJobStatusFailed:
		return "failed"
	default:
		return "completed"
	}
}
