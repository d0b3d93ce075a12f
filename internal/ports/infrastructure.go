// Package ports defines the boundary interfaces between the query pipeline
// and its infrastructure collaborators: the LLM provider, the request record
// sink, and the metrics backend. The pipeline depends only on these
// interfaces; infrastructure packages provide the implementations.
package ports

import (
	"context"
	"time"

	"github.com/sentinelworks/splgen/internal/domain"
)

// LLMClient defines the interface for interacting with text-generation
// providers. Implementations handle provider-specific details like
// authentication, request formatting, and response extraction.
type LLMClient interface {
	// Complete sends a completion request to the provider and returns the
	// raw generated text. The implementation is expected to handle rate
	// limiting, retries, and timeouts internally; the ctx carries the
	// caller's cancellation and deadline.
	//
	// The options map allows provider flexibility without changing the
	// interface. Common options include:
	//   - "temperature": float64
	//   - "top_p": float64
	//   - "max_tokens": int
	//   - "model": string (specific model version)
	Complete(ctx context.Context, prompt string, options map[string]any) (string, error)

	// EstimateTokens calculates the approximate token count for a given
	// text. Used for cost estimation and staying within model limits.
	EstimateTokens(text string) (int, error)

	// GetModel returns the model identifier being used by this client.
	GetModel() string
}

// RecordStore is the append-only sink for request audit records plus the
// read contract for per-identity aggregates. Implementations may be backed
// by SQLite, memory, or any keyed append-only storage; retention and
// rotation are outside the pipeline's responsibility.
type RecordStore interface {
	// Append writes one record. Records are never updated or deleted
	// through this interface.
	Append(ctx context.Context, rec domain.RequestRecord) error

	// Stats returns aggregate counts for an identity. RecentCount covers
	// records created after the since cutoff.
	Stats(ctx context.Context, identity string, since time.Time) (domain.RecordStats, error)
}

// MetricsCollector defines the interface for collecting operational metrics.
// Implementations should integrate with observability platforms like
// Prometheus or custom monitoring solutions.
type MetricsCollector interface {
	// RecordLatency records the execution time of an operation.
	// The labels map provides additional context for the metric.
	RecordLatency(operation string, duration time.Duration, labels map[string]string)

	// RecordCounter increments a counter metric.
	// Useful for tracking events like admissions, denials, and errors.
	RecordCounter(metric string, value float64, labels map[string]string)

	// RecordHistogram records a value in a histogram.
	// Useful for tracking distributions like response sizes.
	RecordHistogram(metric string, value float64, labels map[string]string)
}
