package handler

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/interview-eval-api/internal/config"
	"github.com/noah-isme/interview-eval-api/internal/utils"
)

// HealthResponse represents the payload returned by the health endpoint.
type HealthResponse struct {
	Status      string    `json:"status"`
	Timestamp   time.Time `json:"timestamp"`
	Service     string    `json:"service"`
	Environment string    `json:"environment"`
	Inference   string    `json:"inference"`
	Queue       string    `json:"queue"`
}

// HealthStatus describes the optional collaborators wired at startup.
type HealthStatus struct {
	InferenceProvider string
	QueueBackend      string
}

// HealthCheck returns a handler that reports application health information.
func HealthCheck(cfg config.Config, status HealthStatus) fiber.Handler {
	inference := status.InferenceProvider
	if inference == "" {
		inference = "fallback-only"
	}

	return func(c *fiber.Ctx) error {
		payload := HealthResponse{
			Status:      "ok",
			Timestamp:   time.Now().UTC(),
			Service:     cfg.AppName,
			Environment: cfg.AppEnv,
			Inference:   inference,
			Queue:       status.QueueBackend,
		}

		return utils.SendSuccess(c, "service healthy", payload)
	}
}
