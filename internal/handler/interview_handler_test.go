package handler_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/interview-eval-api/internal/config"
	"github.com/noah-isme/interview-eval-api/internal/dto"
	"github.com/noah-isme/interview-eval-api/internal/handler"
	"github.com/noah-isme/interview-eval-api/internal/models"
	"github.com/noah-isme/interview-eval-api/internal/queue"
	"github.com/noah-isme/interview-eval-api/internal/repository"
	"github.com/noah-isme/interview-eval-api/internal/router"
	"github.com/noah-isme/interview-eval-api/internal/service"
)

type interviewTestEnv struct {
	app    *fiber.App
	db     *gorm.DB
	queue  *queue.MemoryQueue
	worker *service.EvaluationWorker
}

func setupInterviewApp(t *testing.T) interviewTestEnv {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Interview{}, &models.Question{}, &models.EvaluationJob{}))

	logger := zerolog.New(io.Discard)
	jobQueue := queue.NewMemoryQueue(16, 10*time.Millisecond)

	interviews := repository.NewInterviewRepository(db)
	questions := repository.NewQuestionRepository(db)
	jobs := repository.NewEvaluationJobRepository(db)

	scorer := service.NewAnswerScorer(nil, 0, logger)
	aggregator := service.NewReportAggregator(interviews, nil, 0, logger)
	orchestrator := service.NewEvaluationOrchestrator(interviews, questions, scorer, aggregator, logger)
	interviewService := service.NewInterviewService(interviews, jobs, jobQueue, nil, validator.New(), logger, service.InterviewServiceConfig{})
	worker := service.NewEvaluationWorker(jobs, jobQueue, orchestrator, nil, nil, logger, service.EvaluationWorkerConfig{})

	app := fiber.New()
	router.Register(app, config.Config{AppName: "Test", TriggerLimit: 100}, router.Dependencies{
		InterviewHandler: handler.NewInterviewHandler(interviewService, logger),
	})

	return interviewTestEnv{app: app, db: db, queue: jobQueue, worker: worker}
}

func createAnsweredInterview(t *testing.T, db *gorm.DB) models.Interview {
	t.Helper()
	interview := models.Interview{Subject: "Go", Difficulty: "medium", Status: models.InterviewStatusInProgress, StartedAt: time.Now()}
	require.NoError(t, db.Create(&interview).Error)

	answer := "Goroutines are multiplexed onto OS threads by the runtime scheduler which parks them on blocking operations and resumes them later so thousands can run cheaply with small growable stacks in practice."
	fillers := 1
	seconds := 21.0
	require.NoError(t, db.Create(&models.Question{
		InterviewID:             interview.ID,
		OrderIndex:              1,
		Prompt:                  "How are goroutines scheduled?",
		UserAnswer:              &answer,
		FillerWordCount:         &fillers,
		SpeakingDurationSeconds: &seconds,
	}).Error)
	require.NoError(t, db.Create(&models.Question{InterviewID: interview.ID, OrderIndex: 2, Prompt: "What is a data race?"}).Error)
	return interview
}

func doRequest(t *testing.T, app *fiber.App, method, target string) *http.Response {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest(method, target, nil))
	require.NoError(t, err)
	return resp
}

func decodeEnvelope(t *testing.T, resp *http.Response, data interface{}) (bool, string) {
	t.Helper()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())

	var envelope struct {
		Success bool            `json:"success"`
		Message string          `json:"message"`
		Data    json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(body, &envelope))
	if data != nil && len(envelope.Data) > 0 {
		require.NoError(t, json.Unmarshal(envelope.Data, data))
	}
	return envelope.Success, envelope.Message
}

func TestInterviewHandlerEvaluationLifecycle(t *testing.T) {
	env := setupInterviewApp(t)
	interview := createAnsweredInterview(t, env.db)
	base := fmt.Sprintf("/api/v1/interviews/%d", interview.ID)

	resp := doRequest(t, env.app, http.MethodPost, base+"/complete")
	require.Equal(t, fiber.StatusAccepted, resp.StatusCode)
	var scheduled dto.CompleteInterviewResponse
	success, message := decodeEnvelope(t, resp, &scheduled)
	require.True(t, success)
	require.Equal(t, "evaluation scheduled", message)
	require.NotEmpty(t, scheduled.JobID)

	resp = doRequest(t, env.app, http.MethodGet, base+"/results")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var pending map[string]interface{}
	decodeEnvelope(t, resp, &pending)
	require.Equal(t, map[string]interface{}{"status": "processing"}, pending)

	jobID, err := env.queue.Dequeue(context.Background())
	require.NoError(t, err)
	require.NoError(t, env.worker.ProcessJob(context.Background(), jobID))

	resp = doRequest(t, env.app, http.MethodGet, base+"/results")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var results dto.InterviewResultsResponse
	decodeEnvelope(t, resp, &results)
	require.Equal(t, dto.ResultsStatusCompleted, results.Status)
	require.Equal(t, 80, *results.OverallScore)
	require.Equal(t, 21, *results.Duration)
	require.Len(t, results.Questions, 2)
	require.Equal(t, 95, *results.Questions[0].ConfidenceScore)
	require.NotNil(t, results.Questions[0].VoiceMetrics)
	require.Nil(t, results.Questions[1].TechnicalScore)

	resp = doRequest(t, env.app, http.MethodGet, base+"/evaluation")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var job dto.EvaluationJobResponse
	decodeEnvelope(t, resp, &job)
	require.Equal(t, scheduled.JobID, job.ID)
	require.Equal(t, models.EvaluationJobStatusCompleted, job.Status)
	require.Equal(t, 1, job.ScoredQuestions)
}

func TestInterviewHandlerErrors(t *testing.T) {
	env := setupInterviewApp(t)

	cases := []struct {
		name   string
		method string
		target string
		status int
	}{
		{"non numeric id", http.MethodPost, "/api/v1/interviews/abc/complete", fiber.StatusBadRequest},
		{"zero id", http.MethodGet, "/api/v1/interviews/0/results", fiber.StatusBadRequest},
		{"unknown interview trigger", http.MethodPost, "/api/v1/interviews/999/complete", fiber.StatusNotFound},
		{"unknown interview results", http.MethodGet, "/api/v1/interviews/999/results", fiber.StatusNotFound},
		{"no evaluation job", http.MethodGet, "/api/v1/interviews/999/evaluation", fiber.StatusNotFound},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := doRequest(t, env.app, tc.method, tc.target)
			require.Equal(t, tc.status, resp.StatusCode)
			success, _ := decodeEnvelope(t, resp, nil)
			require.False(t, success)
		})
	}
}

func TestHealthReportsFallbackInference(t *testing.T) {
	app := fiber.New()
	router.Register(app, config.Config{AppName: "Test", AppEnv: "test"}, router.Dependencies{
		Health: handler.HealthStatus{QueueBackend: "memory"},
	})

	resp := doRequest(t, app, http.MethodGet, "/api/v1/health")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, "Test", resp.Header.Get("X-Application"))

	var health handler.HealthResponse
	success, _ := decodeEnvelope(t, resp, &health)
	require.True(t, success)
	require.Equal(t, "fallback-only", health.Inference)
	require.Equal(t, "memory", health.Queue)
}
