package llm

import (
	"context"
	"sync"
	"time"
)

// MockCoreLLM is a configurable CoreLLM test double. It records calls and
// can return canned responses, fail a set number of times, or delay to
// exercise timeout paths.
type MockCoreLLM struct {
	mu sync.Mutex

	// Response is returned on success.
	Response string
	// Err is returned on every call when set.
	Err error
	// FailuresBeforeSuccess fails this many calls before succeeding.
	FailuresBeforeSuccess int
	// FailureErr is the error used for FailuresBeforeSuccess failures.
	FailureErr error
	// Delay is slept (context-aware) before responding.
	Delay time.Duration

	model string
	calls int
}

// NewMockCoreLLM returns a mock that answers every request with response.
func NewMockCoreLLM(model, response string) *MockCoreLLM {
	return &MockCoreLLM{model: model, Response: response}
}

func (m *MockCoreLLM) DoRequest(ctx context.Context, prompt string, opts map[string]any) (string, int, int, error) {
	m.mu.Lock()
	m.calls++
	calls := m.calls
	m.mu.Unlock()

	if m.Delay > 0 {
		select {
		case <-ctx.Done():
			return "", 0, 0, ctx.Err()
		case <-time.After(m.Delay):
		}
	}

	if m.Err != nil {
		return "", 0, 0, m.Err
	}
	if calls <= m.FailuresBeforeSuccess {
		return "", 0, 0, m.FailureErr
	}

	return m.Response, (len(prompt) + 3) / 4, (len(m.Response) + 3) / 4, nil
}

// Calls returns how many times DoRequest ran.
func (m *MockCoreLLM) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *MockCoreLLM) GetModel() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.model
}

func (m *MockCoreLLM) SetModel(model string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.model = model
}
