package llm

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimeoutMiddleware_CancelsSlowRequests(t *testing.T) {
	mock := NewMockCoreLLM("m", "ok")
	mock.Delay = 200 * time.Millisecond

	wrapped := TimeoutMiddleware(20 * time.Millisecond)(mock)

	_, _, _, err := wrapped.DoRequest(context.Background(), "p", nil)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestTimeoutMiddleware_PassesFastRequests(t *testing.T) {
	mock := NewMockCoreLLM("m", "ok")

	wrapped := TimeoutMiddleware(time.Second)(mock)

	response, _, _, err := wrapped.DoRequest(context.Background(), "p", nil)
	require.NoError(t, err)
	assert.Equal(t, "ok", response)
}

func TestRetryMiddleware_RetriesTransientFailures(t *testing.T) {
	mock := NewMockCoreLLM("m", "ok")
	mock.FailuresBeforeSuccess = 2
	mock.FailureErr = NewProviderError("p", ErrorTypeServerError, 503, "unavailable", nil)

	wrapped := RetryMiddleware(3, time.Millisecond, 10*time.Millisecond)(mock)

	response, _, _, err := wrapped.DoRequest(context.Background(), "p", nil)
	require.NoError(t, err)
	assert.Equal(t, "ok", response)
	assert.Equal(t, 3, mock.Calls())
}

func TestRetryMiddleware_StopsOnTerminalErrors(t *testing.T) {
	mock := NewMockCoreLLM("m", "ok")
	mock.Err = NewProviderError("p", ErrorTypeAuthentication, 401, "bad key", nil)

	wrapped := RetryMiddleware(3, time.Millisecond, 10*time.Millisecond)(mock)

	_, _, _, err := wrapped.DoRequest(context.Background(), "p", nil)
	require.Error(t, err)
	assert.Equal(t, 1, mock.Calls(), "authentication failures must not be retried")
}

func TestRetryMiddleware_GivesUpAfterMaxRetries(t *testing.T) {
	mock := NewMockCoreLLM("m", "ok")
	mock.Err = NewProviderError("p", ErrorTypeServerError, 500, "boom", nil)

	wrapped := RetryMiddleware(2, time.Millisecond, 10*time.Millisecond)(mock)

	_, _, _, err := wrapped.DoRequest(context.Background(), "p", nil)
	require.Error(t, err)
	assert.Equal(t, 3, mock.Calls(), "initial attempt plus two retries")
}

func TestCircuitBreaker_OpensAfterConsecutiveFailures(t *testing.T) {
	mock := NewMockCoreLLM("m", "ok")
	mock.Err = NewProviderError("p", ErrorTypeServerError, 500, "boom", nil)

	wrapped := CircuitBreakerMiddleware(2, time.Minute)(mock)

	for i := 0; i < 2; i++ {
		_, _, _, err := wrapped.DoRequest(context.Background(), "p", nil)
		require.Error(t, err)
		require.NotErrorIs(t, err, ErrCircuitOpen)
	}

	_, _, _, err := wrapped.DoRequest(context.Background(), "p", nil)
	require.ErrorIs(t, err, ErrCircuitOpen)
	assert.Equal(t, 2, mock.Calls(), "open circuit must not reach the provider")
}

func TestCircuitBreaker_RecoversAfterCooldown(t *testing.T) {
	cb := NewCircuitBreaker(1, 10*time.Millisecond)

	require.Error(t, cb.Call(func() error {
		return NewProviderError("p", ErrorTypeServerError, 500, "boom", nil)
	}))
	require.Equal(t, StateOpen, cb.State())

	time.Sleep(20 * time.Millisecond)

	require.NoError(t, cb.Call(func() error { return nil }))
	assert.Equal(t, StateClosed, cb.State())
}

func TestCircuitBreaker_ClosedCallsRunConcurrently(t *testing.T) {
	cb := NewCircuitBreaker(5, time.Minute)

	start := time.Now()
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, cb.Call(func() error {
				time.Sleep(100 * time.Millisecond)
				return nil
			}))
		}()
	}
	wg.Wait()

	assert.Less(t, time.Since(start), 180*time.Millisecond,
		"closed-state calls must not serialize on the breaker")
}

func TestCircuitBreaker_HalfOpenAdmitsSingleProbe(t *testing.T) {
	cb := NewCircuitBreaker(1, 5*time.Millisecond)

	require.Error(t, cb.Call(func() error {
		return NewProviderError("p", ErrorTypeServerError, 500, "boom", nil)
	}))
	require.Equal(t, StateOpen, cb.State())

	time.Sleep(10 * time.Millisecond)

	probeStarted := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- cb.Call(func() error {
			close(probeStarted)
			<-release
			return nil
		})
	}()

	<-probeStarted
	require.Equal(t, StateHalfOpen, cb.State())
	require.ErrorIs(t, cb.Call(func() error { return nil }), ErrCircuitOpen,
		"only one probe may be in flight while half open")

	close(release)
	require.NoError(t, <-done)
	assert.Equal(t, StateClosed, cb.State())
}

// countingCollector records metric calls for assertions.
type countingCollector struct {
	counters   map[string]float64
	histograms map[string]int
}

func newCountingCollector() *countingCollector {
	return &countingCollector{
		counters:   make(map[string]float64),
		histograms: make(map[string]int),
	}
}

func (c *countingCollector) RecordLatency(name string, _ time.Duration, _ map[string]string) {
	c.histograms[name]++
}

func (c *countingCollector) RecordCounter(name string, value float64, _ map[string]string) {
	c.counters[name] += value
}

func (c *countingCollector) RecordHistogram(name string, _ float64, _ map[string]string) {
	c.histograms[name]++
}

func TestMetricsMiddleware_RecordsSuccess(t *testing.T) {
	mock := NewMockCoreLLM("m", "response")
	collector := newCountingCollector()

	wrapped := MetricsMiddleware("testprov", collector)(mock)

	_, _, _, err := wrapped.DoRequest(context.Background(), "prompt", nil)
	require.NoError(t, err)

	assert.Equal(t, float64(1), collector.counters["llm_requests_total"])
	assert.Equal(t, 1, collector.histograms["llm_request_duration_seconds"])
	assert.Positive(t, collector.counters["llm_tokens_total"])
}

func TestMetricsMiddleware_SkipsTokensOnFailure(t *testing.T) {
	mock := NewMockCoreLLM("m", "")
	mock.Err = NewProviderError("p", ErrorTypeServerError, 500, "boom", nil)
	collector := newCountingCollector()

	wrapped := MetricsMiddleware("testprov", collector)(mock)

	_, _, _, err := wrapped.DoRequest(context.Background(), "prompt", nil)
	require.Error(t, err)

	assert.Equal(t, float64(1), collector.counters["llm_requests_total"])
	assert.Zero(t, collector.counters["llm_tokens_total"])
}

func TestRateLimitMiddleware_PacesRequests(t *testing.T) {
	mock := NewMockCoreLLM("m", "ok")

	// 1 request per second with burst 1: the second call must wait.
	wrapped := RateLimitMiddleware(1, 1)(mock)

	_, _, _, err := wrapped.DoRequest(context.Background(), "p", nil)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, _, _, err = wrapped.DoRequest(ctx, "p", nil)
	require.Error(t, err, "second immediate call exceeds the pacing budget")
	assert.Equal(t, 1, mock.Calls())
}

func TestTracingMiddleware_PassesThrough(t *testing.T) {
	mock := NewMockCoreLLM("m", "traced response")

	wrapped := TracingMiddleware("splgen-test")(mock)

	response, _, _, err := wrapped.DoRequest(context.Background(), "prompt", nil)
	require.NoError(t, err)
	assert.Equal(t, "traced response", response)
}
