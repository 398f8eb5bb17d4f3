package observability

import (
	"time"

	"github.com/medassist/clinic-bfa-go/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

// Metrics holds all Prometheus metrics for the relay.
type Metrics struct {
	// Registry is the Prometheus registry that owns these metrics.
	// Exposed so the /metrics endpoint can use it.
	Registry *prometheus.Registry

	requestDuration  *prometheus.HistogramVec
	downstreamErrors *prometheus.CounterVec
	tokensUsed       *prometheus.CounterVec
	requestsTotal    *prometheus.CounterVec
	partialSuccesses *prometheus.CounterVec
}

// NewMetrics creates a dedicated Prometheus registry and registers all
// application metrics in it. Using a private registry avoids "duplicate
// collector" panics when NewMetrics is called more than once (e.g. in tests).
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "relay_request_duration_seconds",
				Help:    "Duration of relay operations.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		downstreamErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "relay_downstream_errors_total",
				Help: "Total errors from downstream services.",
			},
			[]string{"service"},
		),
		tokensUsed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "relay_llm_tokens_total",
				Help: "Total LLM tokens consumed by the exam pipeline.",
			},
			[]string{"type"},
		),
		requestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "relay_requests_total",
				Help: "Total relay operations processed.",
			},
			[]string{"status"},
		),
		partialSuccesses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "relay_partial_success_total",
				Help: "Operations that succeeded with a degraded side effect.",
			},
			[]string{"operation"},
		),
	}
}

// RecordRequestDuration records the duration of an operation.
func (m *Metrics) RecordRequestDuration(operation string, d time.Duration) {
	m.requestDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// IncrDownstreamError increments the downstream error counter.
func (m *Metrics) IncrDownstreamError(service string) {
	m.downstreamErrors.WithLabelValues(service).Inc()
}

// RecordTokens records prompt and completion token usage.
func (m *Metrics) RecordTokens(prompt, completion int) {
	m.tokensUsed.WithLabelValues("prompt").Add(float64(prompt))
	m.tokensUsed.WithLabelValues("completion").Add(float64(completion))
}

// IncrRequest increments the request counter with a status label.
func (m *Metrics) IncrRequest(status string) {
	m.requestsTotal.WithLabelValues(status).Inc()
}

// IncrPartialSuccess counts operations where the main call succeeded but a
// secondary write (e.g. the conversation log) failed.
func (m *Metrics) IncrPartialSuccess(operation string) {
	m.partialSuccesses.WithLabelValues(operation).Inc()
}

// GetRelaySnapshot returns a snapshot suitable for GET /v1/metrics/relay.
func (m *Metrics) GetRelaySnapshot() *domain.RelayMetrics {
	promptTokens := getCounterValue(m.tokensUsed, "prompt")
	completionTokens := getCounterValue(m.tokensUsed, "completion")
	totalRequests := getCounterValue(m.requestsTotal, "success") +
		getCounterValue(m.requestsTotal, "error")
	errorCount := getCounterValue(m.requestsTotal, "error")

	totalTokens := promptTokens + completionTokens
	avgTokens := float64(0)
	errorRate := float64(0)

	if totalRequests > 0 {
		avgTokens = totalTokens / totalRequests
		errorRate = errorCount / totalRequests
	}

	// Estimated cost: ~$0.15/1M prompt tokens, ~$0.60/1M completion tokens (gpt-4o-mini)
	estimatedCost := (promptTokens/1_000_000)*0.15 + (completionTokens/1_000_000)*0.60

	return &domain.RelayMetrics{
		TotalRequests:       int64(totalRequests),
		ErrorRate:           errorRate,
		AvgTokensPerRequest: avgTokens,
		EstimatedCostUsd:    estimatedCost,
		Period:              "all_time",
	}
}

// getCounterValue extracts the current float64 value from a CounterVec for a given label.
func getCounterValue(cv *prometheus.CounterVec, label string) float64 {
	counter := cv.WithLabelValues(label)
	m := &dto.Metric{}
	if err := counter.(prometheus.Metric).Write(m); err != nil {
		return 0
	}
	if m.Counter != nil && m.Counter.Value != nil {
		return *m.Counter.Value
	}
	return 0
}
