package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce            sync.Once
	httpRequestsTotal       *prometheus.CounterVec
	httpLatencySeconds      *prometheus.HistogramVec
	questionsScoredTotal    *prometheus.CounterVec
	reportsGeneratedTotal   *prometheus.CounterVec
	evaluationJobsTotal     *prometheus.CounterVec
	evaluationRunSeconds    prometheus.Histogram
	questionWriteFailsTotal prometheus.Counter
)

// RegisterMetrics initialises the Prometheus collectors used by the API and the evaluation pipeline.
func RegisterMetrics() {
	registerOnce.Do(func() {
		httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "interview_eval_http_requests_total",
			Help: "Total number of interview API requests served.",
		}, []string{"method", "route", "status"})

		httpLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "interview_eval_http_latency_seconds",
			Help:    "Latency distribution for interview API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		questionsScoredTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "interview_eval_questions_scored_total",
			Help: "Questions scored, labelled by the path that produced the score.",
		}, []string{"source"})

		reportsGeneratedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "interview_eval_reports_generated_total",
			Help: "Interview reports generated, labelled by the narrative source.",
		}, []string{"source"})

		evaluationJobsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "interview_eval_jobs_total",
			Help: "Evaluation job outcomes.",
		}, []string{"outcome"})

		evaluationRunSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "interview_eval_run_duration_seconds",
			Help:    "Duration of a full evaluation run for one interview.",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
		})

		questionWriteFailsTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "interview_eval_question_write_failures_total",
			Help: "Score writes rejected by the database.",
		})

		prometheus.MustRegister(
			httpRequestsTotal,
			httpLatencySeconds,
			questionsScoredTotal,
			reportsGeneratedTotal,
			evaluationJobsTotal,
			evaluationRunSeconds,
			questionWriteFailsTotal,
		)
	})
}

// HTTPRequests exposes the counter for API requests.
func HTTPRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return httpRequestsTotal
}

// HTTPLatency exposes the latency histogram for API requests.
func HTTPLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return httpLatencySeconds
}

// QuestionsScored exposes the scored-question counter.
func QuestionsScored() *prometheus.CounterVec {
	RegisterMetrics()
	return questionsScoredTotal
}

// ReportsGenerated exposes the report counter.
func ReportsGenerated() *prometheus.CounterVec {
	RegisterMetrics()
	return reportsGeneratedTotal
}

// EvaluationJobs exposes the job outcome counter.
func EvaluationJobs() *prometheus.CounterVec {
	RegisterMetrics()
	return evaluationJobsTotal
}

// EvaluationRunDuration exposes the run duration histogram.
func EvaluationRunDuration() prometheus.Histogram {
	RegisterMetrics()
	return evaluationRunSeconds
}

// QuestionWriteFailures exposes the score write failure counter.
func QuestionWriteFailures() prometheus.Counter {
	RegisterMetrics()
	return questionWriteFailsTotal
}
