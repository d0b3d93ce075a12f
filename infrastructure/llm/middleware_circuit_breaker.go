package llm

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrCircuitOpen is returned when the circuit breaker rejects a request
// without calling the provider.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// CircuitState is the breaker's current disposition toward requests.
type CircuitState int

const (
	// StateClosed passes requests through normally.
	StateClosed CircuitState = iota
	// StateOpen rejects requests immediately until the cooldown elapses.
	StateOpen
	// StateHalfOpen lets a probe request through to test recovery.
	StateHalfOpen
)

// CircuitBreaker opens after maxFailures consecutive errors and probes
// recovery after a cooldown. It keeps a failing provider from absorbing
// every in-flight request. The lock guards state transitions only; fn
// runs unlocked so concurrent requests do not serialize on the breaker.
type CircuitBreaker struct {
	mu          sync.RWMutex
	state       CircuitState
	failures    int
	maxFailures int
	cooldown    time.Duration
	lastFailure time.Time
	probing     bool
}

// NewCircuitBreaker creates a closed breaker with the given thresholds.
func NewCircuitBreaker(maxFailures int, cooldown time.Duration) *CircuitBreaker {
	return &CircuitBreaker{state: StateClosed, maxFailures: maxFailures, cooldown: cooldown}
}

// Call runs fn through the breaker, returning ErrCircuitOpen without
// invoking fn when the circuit is open and inside its cooldown.
func (cb *CircuitBreaker) Call(fn func() error) error {
	if err := cb.admit(); err != nil {
		return err
	}
	err := fn()
	cb.observe(err)
	return err
}

// admit decides whether a request may proceed. While half open, only a
// single probe is admitted at a time.
func (cb *CircuitBreaker) admit() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateOpen:
		if time.Since(cb.lastFailure) < cb.cooldown {
			return ErrCircuitOpen
		}
		cb.state = StateHalfOpen
		cb.probing = true
		return nil
	case StateHalfOpen:
		if cb.probing {
			return ErrCircuitOpen
		}
		cb.probing = true
		return nil
	default:
		return nil
	}
}

// observe records the outcome of an admitted request.
func (cb *CircuitBreaker) observe(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == StateHalfOpen {
		cb.probing = false
		if err != nil {
			cb.failures++
			cb.lastFailure = time.Now()
			cb.state = StateOpen
			return
		}
		cb.failures = 0
		cb.state = StateClosed
		return
	}

	if err != nil {
		cb.failures++
		cb.lastFailure = time.Now()
		if cb.failures >= cb.maxFailures && cb.state == StateClosed {
			cb.state = StateOpen
		}
		return
	}
	cb.failures = 0
}

// State returns the breaker's current state.
func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	return cb.state
}

type circuitBreakerLLM struct {
	next CoreLLM
	cb   *CircuitBreaker
}

// CircuitBreakerMiddleware wraps requests in a circuit breaker that opens
// after maxFailures consecutive errors and stays open for cooldown.
func CircuitBreakerMiddleware(maxFailures int, cooldown time.Duration) Middleware {
	cb := NewCircuitBreaker(maxFailures, cooldown)
	return func(next CoreLLM) CoreLLM {
		return &circuitBreakerLLM{next: next, cb: cb}
	}
}

func (c *circuitBreakerLLM) DoRequest(ctx context.Context, prompt string, opts map[string]any) (string, int, int, error) {
	var (
		response            string
		tokensIn, tokensOut int
	)
	err := c.cb.Call(func() error {
		var err error
		response, tokensIn, tokensOut, err = c.next.DoRequest(ctx, prompt, opts)
		return err
	})
	return response, tokensIn, tokensOut, err
}

func (c *circuitBreakerLLM) GetModel() string  { return c.next.GetModel() }
func (c *circuitBreakerLLM) SetModel(m string) { c.next.SetModel(m) }
