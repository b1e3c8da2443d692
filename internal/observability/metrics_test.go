package observability

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

func TestMetricsHandlerExposesEvaluationCollectors(t *testing.T) {
	QuestionsScored().WithLabelValues("fallback").Inc()
	EvaluationJobs().WithLabelValues("completed").Inc()

	app := fiber.New()
	app.Get("/metrics", MetricsHandler(prometheus.DefaultGatherer))

	resp, err := app.Test(httptest.NewRequest("GET", "/metrics", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), `interview_eval_questions_scored_total{source="fallback"}`)
	require.Contains(t, string(body), `interview_eval_jobs_total{outcome="completed"}`)
}

func TestRegisterMetricsIsIdempotent(t *testing.T) {
	require.NotPanics(t, func() {
		RegisterMetrics()
		RegisterMetrics()
	})
	require.Same(t, HTTPRequests(), HTTPRequests())
}
