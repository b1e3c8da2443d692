package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/interview-eval-api/internal/config"
	"github.com/noah-isme/interview-eval-api/internal/database"
	"github.com/noah-isme/interview-eval-api/internal/handler"
	"github.com/noah-isme/interview-eval-api/internal/middleware"
	"github.com/noah-isme/interview-eval-api/internal/observability"
	"github.com/noah-isme/interview-eval-api/internal/queue"
	"github.com/noah-isme/interview-eval-api/internal/repository"
	"github.com/noah-isme/interview-eval-api/internal/router"
	"github.com/noah-isme/interview-eval-api/internal/service"
	"github.com/noah-isme/interview-eval-api/pkg/ai"
)

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load configuration")
	}
	logger = logger.With().Str("service", cfg.AppName).Str("env", cfg.AppEnv).Logger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	if err := database.Migrate(db); err != nil {
		logger.Fatal().Err(err).Msg("failed to migrate database")
	}

	var redisClient *redis.Client
	var jobQueue queue.JobQueue
	queueBackend := "memory"
	if cfg.RedisURL != "" {
		redisClient, err = database.ConnectRedis(ctx, cfg.RedisURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to redis")
		}
		defer redisClient.Close()
		jobQueue = queue.NewRedisQueue(redisClient, cfg.QueueKey, 0)
		queueBackend = "redis"
	} else {
		logger.Warn().Msg("redis not configured, using in-process queue without results cache")
		jobQueue = queue.NewMemoryQueue(0, 0)
	}

	var natsConn *nats.Conn
	if cfg.NATSURL != "" {
		natsConn, err = database.ConnectNATS(cfg.NATSURL, cfg.AppName, logger)
		if err != nil {
			logger.Warn().Err(err).Msg("nats unavailable, evaluation events disabled")
			natsConn = nil
		} else {
			defer natsConn.Drain()
		}
	}

	inference, err := ai.NewClient(ctx, ai.Config{
		Provider:     cfg.AIProvider,
		OpenAIAPIKey: cfg.OpenAIAPIKey,
		OpenAIModel:  cfg.OpenAIModel,
		OpenAIURL:    cfg.OpenAIBaseURL,
		GeminiAPIKey: cfg.GeminiAPIKey,
		GeminiModel:  cfg.GeminiModel,
		MaxTokens:    cfg.AIMaxTokens,
		Temperature:  cfg.AITemperature,
		Logger:       logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create inference client")
	}
	inferenceProvider := cfg.AIProvider
	if inference == nil {
		inferenceProvider = ""
		logger.Warn().Str("provider", cfg.AIProvider).Msg("no inference credentials, scoring with fallback rules only")
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	interviewRepo := repository.NewInterviewRepository(db)
	questionRepo := repository.NewQuestionRepository(db)
	jobRepo := repository.NewEvaluationJobRepository(db)

	scorer := service.NewAnswerScorer(inference, cfg.AITimeout, logger)
	aggregator := service.NewReportAggregator(interviewRepo, inference, cfg.AITimeout, logger)
	orchestrator := service.NewEvaluationOrchestrator(interviewRepo, questionRepo, scorer, aggregator, logger)
	interviewService := service.NewInterviewService(interviewRepo, jobRepo, jobQueue, redisClient, validate, logger, service.InterviewServiceConfig{
		MaxAttempts: cfg.MaxAttempts,
		CacheTTL:    cfg.ResultsTTL,
	})
	worker := service.NewEvaluationWorker(jobRepo, jobQueue, orchestrator, redisClient, natsConn, logger, service.EvaluationWorkerConfig{
		Concurrency:     cfg.WorkerCount,
		StaleAfter:      cfg.StaleAfter,
		RecoverInterval: cfg.RecoverEvery,
		EventsSubject:   cfg.NATSSubject,
	})

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: &logger, AllowOrigin: cfg.AllowOrigins})

	var jwtMiddleware fiber.Handler
	if cfg.JWTSecret != "" {
		jwtMiddleware = middleware.JWTProtected(cfg.JWTSecret)
	}

	router.Register(app, cfg, router.Dependencies{
		InterviewHandler: handler.NewInterviewHandler(interviewService, logger),
		Health:           handler.HealthStatus{InferenceProvider: inferenceProvider, QueueBackend: queueBackend},
		MetricsHandler:   observability.MetricsHandler(prometheus.DefaultGatherer),
		JWTMiddleware:    jwtMiddleware,
	})

	workerDone := make(chan struct{})
	go func() {
		defer close(workerDone)
		if err := worker.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error().Err(err).Msg("evaluation worker stopped")
		}
	}()

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			logger.Error().Err(err).Msg("http server stopped")
			stop()
		}
	}()

	<-ctx.Done()
	waitForShutdown(app, workerDone, cfg.ShutdownBudget, logger)
}

func waitForShutdown(app *fiber.App, workerDone <-chan struct{}, budget time.Duration, logger zerolog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), budget)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}

	select {
	case <-workerDone:
	case <-ctx.Done():
		logger.Warn().Msg("evaluation worker did not stop in time; unfinished jobs will be recovered on restart")
	}

	logger.Info().Msg("server stopped")
}
