package domain

import (
	"errors"
	"fmt"
)

// Caller-visible pipeline errors. Only these three classes escape the
// orchestrator; everything else degrades into the result object.
var (
	// ErrEmptyRequest indicates the request text was empty or
	// whitespace-only. No generation is attempted.
	ErrEmptyRequest = errors.New("request text cannot be empty")

	// ErrRequestTooLong indicates the request text exceeded the
	// configured maximum length. No generation is attempted.
	ErrRequestTooLong = errors.New("request text exceeds maximum length")

	// ErrRateLimited indicates the identity was denied admission by the
	// sliding-window limiter. No generation is attempted.
	ErrRateLimited = errors.New("rate limit exceeded, try again shortly")
)

// Error kinds recorded on failed RequestRecords. These classify the failure
// for later inspection without storing upstream error text.
const (
	ErrorKindTimeout    = "timeout"
	ErrorKindRateLimit  = "rate_limit"
	ErrorKindQuota      = "quota"
	ErrorKindNetwork    = "network"
	ErrorKindGeneration = "generation"
)

// GenerationError reports that the generation boundary failed. Its message
// is deliberately generic: upstream error text, credentials, and stack
// information must never reach the caller. The underlying error remains
// reachable via Unwrap for structured logging.
type GenerationError struct {
	// Kind classifies the failure (timeout, quota, network, ...).
	Kind string

	// Err is the underlying provider error.
	Err error
}

// Error returns a generic user-facing message that names only the
// failure kind.
func (e *GenerationError) Error() string {
	if e.Kind == "" {
		return "query generation failed"
	}
	return fmt.Sprintf("query generation failed (%s)", e.Kind)
}

// Unwrap returns the underlying provider error for logging and
// errors.Is/As inspection.
func (e *GenerationError) Unwrap() error { return e.Err }

// NewGenerationError creates a GenerationError with the given kind.
func NewGenerationError(kind string, err error) *GenerationError {
	return &GenerationError{Kind: kind, Err: err}
}
