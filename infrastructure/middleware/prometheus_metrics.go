// Package middleware provides cross-cutting concerns for the query
// generation pipeline.
package middleware

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/sentinelworks/splgen/internal/ports"
)

// PrometheusMetrics implements ports.MetricsCollector over Prometheus.
// It tracks pipeline request outcomes, admission denials, provider
// latency, and token consumption.
type PrometheusMetrics struct {
	queryRequests   *prometheus.CounterVec
	rateDenials     *prometheus.CounterVec
	llmRequests     *prometheus.CounterVec
	llmTokens       *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	genericCounter  *prometheus.CounterVec
}

// Compile-time verification that PrometheusMetrics implements MetricsCollector.
var _ ports.MetricsCollector = (*PrometheusMetrics)(nil)

// NewPrometheusMetrics registers the pipeline metric families in the
// default Prometheus registry.
func NewPrometheusMetrics() *PrometheusMetrics {
	return NewPrometheusMetricsWith(prometheus.DefaultRegisterer)
}

// NewPrometheusMetricsWith registers the metric families with reg.
// Tests pass a private registry to avoid duplicate registration.
func NewPrometheusMetricsWith(reg prometheus.Registerer) *PrometheusMetrics {
	factory := promauto.With(reg)

	return &PrometheusMetrics{
		queryRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "query_requests_total",
				Help: "Completed query generation requests by channel and status.",
			},
			[]string{"channel", "status"},
		),
		rateDenials: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rate_limit_denials_total",
				Help: "Requests denied by the per-identity admission limiter.",
			},
			[]string{"channel"},
		),
		llmRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "llm_requests_total",
				Help: "Outbound provider requests by provider, model, and status.",
			},
			[]string{"provider", "model", "status"},
		),
		llmTokens: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "llm_tokens_total",
				Help: "Token consumption by provider, model, and direction.",
			},
			[]string{"provider", "model", "token_type"},
		),
		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "request_duration_seconds",
				Help:    "Duration of pipeline operations and provider calls.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		genericCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pipeline_operations_total",
				Help: "Catch-all counter for operations without a dedicated family.",
			},
			[]string{"operation"},
		),
	}
}

// RecordLatency records an operation duration in the shared histogram.
func (pm *PrometheusMetrics) RecordLatency(operation string, duration time.Duration, labels map[string]string) {
	pm.requestDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordCounter routes named counters to their metric family. Unknown
// names land in the catch-all so no signal is silently dropped.
func (pm *PrometheusMetrics) RecordCounter(metric string, value float64, labels map[string]string) {
	switch metric {
	case "query_requests_total":
		pm.queryRequests.WithLabelValues(labels["channel"], labels["status"]).Add(value)
	case "rate_limit_denials_total":
		pm.rateDenials.WithLabelValues(labels["channel"]).Add(value)
	case "llm_requests_total":
		pm.llmRequests.WithLabelValues(labels["provider"], labels["model"], labels["status"]).Add(value)
	case "llm_tokens_total":
		pm.llmTokens.WithLabelValues(labels["provider"], labels["model"], labels["token_type"]).Add(value)
	default:
		pm.genericCounter.WithLabelValues(metric).Add(value)
	}
}

// RecordHistogram records a raw value, in seconds, against the shared
// duration histogram.
func (pm *PrometheusMetrics) RecordHistogram(metric string, value float64, labels map[string]string) {
	pm.requestDuration.WithLabelValues(metric).Observe(value)
}
