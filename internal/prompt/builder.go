// Package prompt turns an operator's free-text request into the single
// generation prompt sent to the LLM. Building is deterministic and pure:
// the same request text and configuration always produce the same prompt.
package prompt

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"github.com/go-playground/validator/v10"
)

// Config holds the prompt builder settings, fixed at construction.
type Config struct {
	// MaxQueryLength is the maximum permissible generated query length,
	// embedded into the instruction so the model bounds its own output.
	MaxQueryLength int `yaml:"max_query_length" json:"max_query_length" validate:"required,min=32,max=10000"`
}

// DefaultConfig returns the builder settings used when no configuration
// is supplied.
func DefaultConfig() Config {
	return Config{MaxQueryLength: 1000}
}

// instructionTemplate is the fixed generation instruction. It asks for three
// labeled outputs and enumerates SPL vocabulary so the model stays inside
// the query language the validator understands.
const instructionTemplate = `You are an expert at writing SPL (Search Processing Language) queries.

Convert the following request into a single SPL search query.

Request: {{.Request}}

Rules:
- The query must be at most {{.MaxLength}} characters.
- Always scope the search with an index (for example index=main).
- Always bound the time range (for example earliest=-24h).
- Prefer read-only search commands: search, stats, timechart, chart, top,
  rare, table, fields, eval, where, rex, dedup, sort, head, tail.
- Never use mutating or administrative commands.

Respond in exactly this format:

QUERY:
<the SPL query>

EXPLANATION:
<one or two sentences describing what the query does>

SUGGESTIONS:
- <an optional refinement the user might want>
- <another optional refinement>`

// Builder renders the fixed instruction template around a request.
// It is stateless after construction and safe for concurrent use.
type Builder struct {
	config Config
	tmpl   *template.Template
}

// templateData carries the values substituted into the instruction.
type templateData struct {
	Request   string
	MaxLength int
}

// NewBuilder compiles the instruction template with the given configuration.
// Returns an error if the configuration fails validation.
func NewBuilder(cfg Config) (*Builder, error) {
	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("prompt configuration invalid: %w", err)
	}

	tmpl, err := template.New("generation").Parse(instructionTemplate)
	if err != nil {
		return nil, fmt.Errorf("failed to parse instruction template: %w", err)
	}

	return &Builder{config: cfg, tmpl: tmpl}, nil
}

// Build embeds the trimmed request text and the configured maximum query
// length into the instruction template. Empty request text is permitted to
// pass through; rejecting empty input is the orchestrator's responsibility.
func (b *Builder) Build(requestText string) (string, error) {
	var buf bytes.Buffer
	err := b.tmpl.Execute(&buf, templateData{
		Request:   strings.TrimSpace(requestText),
		MaxLength: b.config.MaxQueryLength,
	})
	if err != nil {
		return "", fmt.Errorf("failed to render generation prompt: %w", err)
	}
	return buf.String(), nil
}

// MaxQueryLength exposes the configured bound for callers that need to
// truncate or validate generated queries against it.
func (b *Builder) MaxQueryLength() int { return b.config.MaxQueryLength }
