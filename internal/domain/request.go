// Package domain defines the core types that flow through the query
// generation pipeline: the incoming request, the generated result, the
// validation outcome, and the audit record written for every completed
// request. Types in this package carry no behavior beyond construction
// and simple derived values; they are immutable once built.
package domain

import "time"

// GenerationRequest is a single operator request entering the pipeline.
// It is immutable once created; the orchestrator builds one per call.
type GenerationRequest struct {
	// Identity is the opaque caller key used for rate limiting
	// and record attribution.
	Identity string

	// Channel identifies the conversational context the request
	// arrived from (e.g. a chat channel ID).
	Channel string

	// Text is the free-text request, already length-bounded by the
	// orchestrator before the request object is constructed.
	Text string

	// SubmittedAt is the time the request entered the pipeline.
	SubmittedAt time.Time
}

// GeneratedResult is the structured output of a successful pipeline run.
// It is produced once by the response parser and never mutated afterwards,
// except that the orchestrator attaches validator warnings before returning
// it to the caller.
type GeneratedResult struct {
	// Query is the generated SPL search, bounded by the configured
	// maximum query length.
	Query string `json:"query"`

	// Explanation describes what the query does. May be empty.
	Explanation string `json:"explanation"`

	// Suggestions are ordered follow-up hints produced by the model.
	// May be empty.
	Suggestions []string `json:"suggestions"`

	// Warnings are validator warnings attached by the orchestrator.
	// Warnings never make a result unusable on their own.
	Warnings []string `json:"warnings,omitempty"`

	// Valid reports whether the query passed validation. An invalid
	// result is still returned so its errors can be shown, but the
	// query must not be presented as usable.
	Valid bool `json:"valid"`

	// ValidationErrors lists hard rule violations when Valid is false.
	ValidationErrors []string `json:"validation_errors,omitempty"`

	// Model is the model identifier that produced the raw response.
	Model string `json:"model,omitempty"`

	// Latency is the time from just before generation to just after
	// parsing and validation completed.
	Latency time.Duration `json:"latency,omitempty"`
}

// RequestRecord is the append-only audit record written once per completed
// request, successful or not. Records are never updated or deleted by the
// pipeline; retention is an external concern.
type RequestRecord struct {
	// Identity is the caller the record is attributed to.
	Identity string

	// Channel is the conversational context identifier.
	Channel string

	// RequestText is the original free-text request.
	RequestText string

	// Query is the generated query, empty when generation failed.
	Query string

	// Success reports whether the pipeline produced a usable result.
	Success bool

	// ErrorKind classifies the failure when Success is false;
	// empty otherwise.
	ErrorKind string

	// Latency is the measured response latency for the request.
	Latency time.Duration

	// CreatedAt is when the record was created.
	CreatedAt time.Time
}

// RecordStats aggregates a single identity's request history for reporting.
// Stats are informational only and never used for admission decisions.
type RecordStats struct {
	// Total is the number of records attributed to the identity.
	Total int

	// Successful is the number of records with Success set.
	Successful int

	// SuccessRate is Successful divided by Total, zero when Total is zero.
	SuccessRate float64

	// RecentCount is the number of records created after the caller's
	// cutoff time.
	RecentCount int
}
