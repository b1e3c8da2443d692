package ai

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	inferenceDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "interview_eval",
		Subsystem: "ai",
		Name:      "inference_duration_seconds",
		Help:      "Duration of inference requests",
	}, []string{"provider", "model"})

	inferenceFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "interview_eval",
		Subsystem: "ai",
		Name:      "inference_failures_total",
		Help:      "Number of failed inference requests",
	}, []string{"provider", "model"})
)

func observeInference(provider, model string, duration time.Duration, err error) {
	inferenceDuration.WithLabelValues(provider, model).Observe(duration.Seconds())
	if err != nil {
		inferenceFailures.WithLabelValues(provider, model).Inc()
	}
}
