package middleware

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheusMetrics_RecordCounter(t *testing.T) {
	reg := prometheus.NewRegistry()
	pm := NewPrometheusMetricsWith(reg)

	pm.RecordCounter("query_requests_total", 1, map[string]string{"channel": "cli", "status": "success"})
	pm.RecordCounter("query_requests_total", 1, map[string]string{"channel": "cli", "status": "success"})
	pm.RecordCounter("rate_limit_denials_total", 1, map[string]string{"channel": "cli"})
	pm.RecordCounter("llm_tokens_total", 42, map[string]string{"provider": "openai", "model": "m", "token_type": "input"})

	assert.Equal(t, float64(2), testutil.ToFloat64(pm.queryRequests.WithLabelValues("cli", "success")))
	assert.Equal(t, float64(1), testutil.ToFloat64(pm.rateDenials.WithLabelValues("cli")))
	assert.Equal(t, float64(42), testutil.ToFloat64(pm.llmTokens.WithLabelValues("openai", "m", "input")))
}

func TestPrometheusMetrics_UnknownCounterLandsInCatchAll(t *testing.T) {
	reg := prometheus.NewRegistry()
	pm := NewPrometheusMetricsWith(reg)

	pm.RecordCounter("something_novel", 3, nil)

	assert.Equal(t, float64(3), testutil.ToFloat64(pm.genericCounter.WithLabelValues("something_novel")))
}

func TestPrometheusMetrics_RecordLatency(t *testing.T) {
	reg := prometheus.NewRegistry()
	pm := NewPrometheusMetricsWith(reg)

	pm.RecordLatency("handle", 50*time.Millisecond, nil)
	pm.RecordHistogram("llm_call", 0.25, nil)

	families, err := reg.Gather()
	require.NoError(t, err)

	var found bool
	for _, mf := range families {
		if mf.GetName() == "request_duration_seconds" {
			found = true
			var samples uint64
			for _, m := range mf.GetMetric() {
				samples += m.GetHistogram().GetSampleCount()
			}
			assert.Equal(t, uint64(2), samples)
		}
	}
	assert.True(t, found, "duration histogram must be registered")
}
