package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/sentinelworks/splgen/internal/domain"
	"github.com/sentinelworks/splgen/internal/parse"
	"github.com/sentinelworks/splgen/internal/ports"
	"github.com/sentinelworks/splgen/internal/prompt"
	"github.com/sentinelworks/splgen/internal/ratelimit"
	"github.com/sentinelworks/splgen/internal/spl"
)

// recordWindow is the trailing period Stats reports RecentCount over.
const recordWindow = 7 * 24 * time.Hour

// Dependencies carries the collaborators the pipeline is assembled from.
// All fields except Metrics, Logger, and Classify are required.
type Dependencies struct {
	Limiter   *ratelimit.SlidingWindow
	Builder   *prompt.Builder
	Client    ports.LLMClient
	Validator *spl.Validator
	Store     ports.RecordStore

	// Metrics is optional; nil disables metric collection.
	Metrics ports.MetricsCollector

	// Logger is optional; nil selects a no-op logger.
	Logger *zap.Logger

	// Classify maps a generation failure to an error kind for recording.
	// Nil selects a minimal context-based classifier; the llm package
	// provides a full one.
	Classify func(error) string
}

// Pipeline orchestrates a query generation request end to end: admission,
// prompt construction, generation, parsing, validation, and recording.
type Pipeline struct {
	limiter   *ratelimit.SlidingWindow
	builder   *prompt.Builder
	client    ports.LLMClient
	parser    *parse.Parser
	validator *spl.Validator
	store     ports.RecordStore
	metrics   ports.MetricsCollector
	logger    *zap.Logger
	classify  func(error) string
	tracer    trace.Tracer

	sampling         map[string]any
	maxRequestLength int

	// now is swappable for tests.
	now func() time.Time
}

// NewPipeline assembles a pipeline from configuration and dependencies.
func NewPipeline(config Config, deps Dependencies) (*Pipeline, error) {
	if deps.Limiter == nil || deps.Builder == nil || deps.Client == nil ||
		deps.Validator == nil || deps.Store == nil {
		return nil, errors.New("limiter, builder, client, validator, and store are required")
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	classify := deps.Classify
	if classify == nil {
		classify = defaultClassify
	}

	return &Pipeline{
		limiter:          deps.Limiter,
		builder:          deps.Builder,
		client:           deps.Client,
		parser:           parse.NewParser(),
		validator:        deps.Validator,
		store:            deps.Store,
		metrics:          deps.Metrics,
		logger:           logger,
		classify:         classify,
		tracer:           otel.Tracer("splgen/pipeline"),
		sampling:         config.Sampling.Options(),
		maxRequestLength: config.MaxRequestLength,
		now:              time.Now,
	}, nil
}

// Handle runs one request through the pipeline. Only input errors,
// rate-limit denials, and generation failures surface as errors; parse
// and validation problems degrade into the returned result.
func (p *Pipeline) Handle(ctx context.Context, identity, channel, text string) (domain.GeneratedResult, error) {
	ctx, span := p.tracer.Start(ctx, "pipeline.handle",
		trace.WithAttributes(attribute.String("channel", channel)))
	defer span.End()

	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return domain.GeneratedResult{}, domain.ErrEmptyRequest
	}
	if len(trimmed) > p.maxRequestLength {
		return domain.GeneratedResult{}, domain.ErrRequestTooLong
	}

	if !p.limiter.Allow(identity, p.now()) {
		p.count("rate_limit_denials_total", map[string]string{"channel": channel})
		return domain.GeneratedResult{}, domain.ErrRateLimited
	}

	promptText, err := p.builder.Build(trimmed)
	if err != nil {
		p.logger.Error("prompt construction failed", zap.Error(err))
		return domain.GeneratedResult{}, domain.NewGenerationError(domain.ErrorKindGeneration, err)
	}

	start := p.now()
	raw, err := p.client.Complete(ctx, promptText, p.sampling)
	if err != nil {
		kind := p.classify(err)
		latency := p.now().Sub(start)
		p.logger.Warn("generation failed",
			zap.String("identity", identity),
			zap.String("kind", kind),
			zap.Duration("latency", latency),
			zap.Error(err))

		p.record(ctx, domain.RequestRecord{
			Identity:    identity,
			Channel:     channel,
			RequestText: trimmed,
			Success:     false,
			ErrorKind:   kind,
			Latency:     latency,
			CreatedAt:   p.now(),
		})
		p.count("query_requests_total", map[string]string{"channel": channel, "status": kind})
		return domain.GeneratedResult{}, domain.NewGenerationError(kind, err)
	}

	result, parseErr := p.parser.Parse(raw)
	if parseErr != nil {
		// A parse crash must not fail the request; fall back to the
		// safe default result.
		p.logger.Warn("response parsing failed, using default result", zap.Error(parseErr))
		result = parse.DefaultResult()
	}

	maxQuery := p.builder.MaxQueryLength()
	overLength := len(result.Query) > maxQuery
	if overLength {
		p.logger.Warn("generated query exceeds maximum length",
			zap.Int("length", len(result.Query)),
			zap.Int("max", maxQuery))
		result.Query = strings.TrimSpace(result.Query[:maxQuery])
	}

	outcome := p.validator.Validate(result.Query)
	result.Valid = outcome.IsValid
	result.ValidationErrors = outcome.Errors
	result.Warnings = outcome.Warnings
	if overLength {
		result.Valid = false
		result.ValidationErrors = append(result.ValidationErrors,
			fmt.Sprintf("query exceeds the maximum length of %d characters and was truncated", maxQuery))
	}
	result.Model = p.client.GetModel()
	result.Latency = p.now().Sub(start)

	p.record(ctx, domain.RequestRecord{
		Identity:    identity,
		Channel:     channel,
		RequestText: trimmed,
		Query:       result.Query,
		Success:     true,
		Latency:     result.Latency,
		CreatedAt:   p.now(),
	})
	p.count("query_requests_total", map[string]string{"channel": channel, "status": "success"})
	if p.metrics != nil {
		p.metrics.RecordLatency("handle", result.Latency, nil)
	}

	return result, nil
}

// SuggestOptimizations exposes the validator's advisory suggestions for a
// query, independent of Handle.
func (p *Pipeline) SuggestOptimizations(query string) []string {
	return p.validator.SuggestOptimizations(query)
}

// Stats reports an identity's request history over the trailing record
// window. Informational only; never used for admission.
func (p *Pipeline) Stats(ctx context.Context, identity string) (domain.RecordStats, error) {
	stats, err := p.store.Stats(ctx, identity, p.now().Add(-recordWindow))
	if err != nil {
		return domain.RecordStats{}, fmt.Errorf("load stats: %w", err)
	}
	return stats, nil
}

// record appends fire-and-forget: a store failure is logged and
// swallowed, since failing to record must not fail the user-facing
// operation. The append survives cancellation of the request context.
func (p *Pipeline) record(ctx context.Context, rec domain.RequestRecord) {
	if err := p.store.Append(context.WithoutCancel(ctx), rec); err != nil {
		p.logger.Error("failed to append request record",
			zap.String("identity", rec.Identity),
			zap.Error(err))
	}
}

func (p *Pipeline) count(name string, labels map[string]string) {
	if p.metrics != nil {
		p.metrics.RecordCounter(name, 1, labels)
	}
}

// defaultClassify is the fallback error-kind classifier used when none is
// injected.
func defaultClassify(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return domain.ErrorKindTimeout
	}
	return domain.ErrorKindGeneration
}
