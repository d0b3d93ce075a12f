package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sentinelworks/splgen/internal/domain"
)

// Sentinel errors shared across providers.
var (
	// ErrEmptyAPIKey indicates a required API key was not provided.
	ErrEmptyAPIKey = errors.New("API key cannot be empty")
	// ErrEmptyResponse indicates the provider returned no usable content.
	ErrEmptyResponse = errors.New("empty response from provider")
	// ErrNoResponseChoice indicates the response envelope carried no choices.
	ErrNoResponseChoice = errors.New("no response choices returned")
)

// ErrorType categorizes provider failures for retryability decisions and
// for mapping into the pipeline's error kinds.
type ErrorType int

const (
	ErrorTypeUnknown ErrorType = iota
	ErrorTypeAuthentication
	ErrorTypeRateLimit
	ErrorTypeQuota
	ErrorTypeBadRequest
	ErrorTypeNotFound
	ErrorTypeServerError
	ErrorTypeContentPolicy
	ErrorTypeNetwork
	ErrorTypeTimeout
)

// ProviderError normalizes provider-specific failures into one shape so
// middleware and the pipeline can handle all providers uniformly.
type ProviderError struct {
	Type       ErrorType
	Provider   string
	StatusCode int
	Message    string
	Wrapped    error
}

func (e *ProviderError) Error() string {
	base := fmt.Sprintf("%s error", e.Provider)
	if e.StatusCode > 0 {
		base += fmt.Sprintf(" (HTTP %d)", e.StatusCode)
	}
	if s := e.typeString(); s != "" {
		base += fmt.Sprintf(" [%s]", s)
	}
	if e.Message != "" {
		base += ": " + e.Message
	}
	if e.Wrapped != nil {
		base += fmt.Sprintf(": %v", e.Wrapped)
	}
	return base
}

func (e *ProviderError) Unwrap() error { return e.Wrapped }

// IsRetryable reports whether a request failing with this error is worth
// retrying. Quota exhaustion is deliberately not retryable: it does not
// clear on a backoff timescale.
func (e *ProviderError) IsRetryable() bool {
	switch e.Type {
	case ErrorTypeRateLimit, ErrorTypeServerError, ErrorTypeNetwork, ErrorTypeTimeout:
		return true
	default:
		return false
	}
}

func (e *ProviderError) typeString() string {
	switch e.Type {
	case ErrorTypeAuthentication:
		return "authentication"
	case ErrorTypeRateLimit:
		return "rate_limit"
	case ErrorTypeQuota:
		return "quota"
	case ErrorTypeBadRequest:
		return "bad_request"
	case ErrorTypeNotFound:
		return "not_found"
	case ErrorTypeServerError:
		return "server_error"
	case ErrorTypeContentPolicy:
		return "content_policy"
	case ErrorTypeNetwork:
		return "network"
	case ErrorTypeTimeout:
		return "timeout"
	default:
		return ""
	}
}

// NewProviderError builds a ProviderError wrapping the original failure.
func NewProviderError(provider string, errType ErrorType, statusCode int, message string, wrapped error) *ProviderError {
	return &ProviderError{
		Type:       errType,
		Provider:   provider,
		StatusCode: statusCode,
		Message:    message,
		Wrapped:    wrapped,
	}
}

// ErrorClassifier turns raw provider failures into ProviderError values
// using HTTP status codes and context state.
type ErrorClassifier struct {
	Provider string
}

// ClassifyHTTPError maps an HTTP status code onto an ErrorType. A 429
// whose message mentions quota or billing is treated as quota exhaustion
// rather than a transient rate limit.
func (ec *ErrorClassifier) ClassifyHTTPError(statusCode int, message string, err error) *ProviderError {
	var errType ErrorType
	userMessage := message

	switch statusCode {
	case 401, 403:
		errType = ErrorTypeAuthentication
		userMessage = fmt.Sprintf("%s authentication failed", ec.Provider)
	case 402:
		errType = ErrorTypeQuota
		userMessage = fmt.Sprintf("%s quota exhausted", ec.Provider)
	case 429:
		if mentionsQuota(message) {
			errType = ErrorTypeQuota
			userMessage = fmt.Sprintf("%s quota exhausted", ec.Provider)
		} else {
			errType = ErrorTypeRateLimit
			userMessage = fmt.Sprintf("%s rate limit exceeded", ec.Provider)
		}
	case 400:
		errType = ErrorTypeBadRequest
	case 404:
		errType = ErrorTypeNotFound
	case 500, 502, 503, 504:
		errType = ErrorTypeServerError
	default:
		switch {
		case statusCode >= 400 && statusCode < 500:
			errType = ErrorTypeBadRequest
		case statusCode >= 500:
			errType = ErrorTypeServerError
		default:
			errType = ErrorTypeUnknown
		}
	}

	return NewProviderError(ec.Provider, errType, statusCode, userMessage, err)
}

// ClassifyContextError maps context cancellation and deadline expiry.
// Deadline expiry is a timeout in the pipeline's taxonomy, not a generic
// network failure.
func (ec *ErrorClassifier) ClassifyContextError(err error) *ProviderError {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return NewProviderError(ec.Provider, ErrorTypeTimeout, 0, "request timed out", err)
	case errors.Is(err, context.Canceled):
		return NewProviderError(ec.Provider, ErrorTypeNetwork, 0, "request canceled", err)
	default:
		return NewProviderError(ec.Provider, ErrorTypeUnknown, 0, "", err)
	}
}

func mentionsQuota(message string) bool {
	lower := strings.ToLower(message)
	return strings.Contains(lower, "quota") || strings.Contains(lower, "billing")
}

// Kind maps a generation failure onto the pipeline's error kind
// vocabulary for recording and caller-visible classification.
func Kind(err error) string {
	var pe *ProviderError
	if errors.As(err, &pe) {
		switch pe.Type {
		case ErrorTypeTimeout:
			return domain.ErrorKindTimeout
		case ErrorTypeRateLimit:
			return domain.ErrorKindRateLimit
		case ErrorTypeQuota:
			return domain.ErrorKindQuota
		case ErrorTypeNetwork:
			return domain.ErrorKindNetwork
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return domain.ErrorKindTimeout
	}
	return domain.ErrorKindGeneration
}
