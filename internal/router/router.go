package router

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/interview-eval-api/internal/config"
	"github.com/noah-isme/interview-eval-api/internal/handler"
	"github.com/noah-isme/interview-eval-api/internal/middleware"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	InterviewHandler *handler.InterviewHandler
	Health           handler.HealthStatus
	MetricsHandler   fiber.Handler
	JWTMiddleware    fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg, deps.Health))

	if deps.MetricsHandler != nil {
		app.Get("/metrics", deps.MetricsHandler)
	}

	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}

	if deps.InterviewHandler != nil {
		interviews := api.Group("/interviews", jwtMiddleware)
		interviews.Post("/:id/complete", middleware.RateLimit("complete", cfg.TriggerLimit, time.Minute))
		deps.InterviewHandler.Register(interviews)
	}
}
