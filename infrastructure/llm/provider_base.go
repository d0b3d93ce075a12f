package llm

import "sync"

// DefaultMaxTokens bounds output size when the caller does not specify
// max_tokens. Generated queries are short, so the default is modest.
const DefaultMaxTokens = 1024

// BaseProvider supplies thread-safe model management shared by all
// provider implementations.
type BaseProvider struct {
	mu    sync.RWMutex
	model string
}

// GetModel returns the configured model name. Safe for concurrent use.
func (b *BaseProvider) GetModel() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.model
}

// SetModel switches the model for subsequent requests. Safe for
// concurrent use.
func (b *BaseProvider) SetModel(model string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.model = model
}

// RequestOptions is the normalized sampling configuration shared across
// providers. Nil pointer fields mean "use the provider default".
type RequestOptions struct {
	MaxTokens   int
	Model       string
	Temperature *float64
	TopP        *float64
	TopK        *int
	System      string

	// Extra carries provider-specific options outside the common set.
	Extra map[string]any
}

// ParseRequestOptions normalizes a raw options map into RequestOptions,
// substituting defaults for missing or out-of-range values. Unrecognized
// keys land in Extra.
func ParseRequestOptions(opts map[string]any, defaultModel string) RequestOptions {
	options := RequestOptions{
		MaxTokens: ExtractOptionalInt(opts, "max_tokens", DefaultMaxTokens, IsPositiveInt),
		Model:     ExtractOptionalString(opts, "model", defaultModel, IsNonEmptyString),
		System:    ExtractOptionalString(opts, "system", "", nil),
		Extra:     make(map[string]any),
	}

	if temp := ExtractOptionalFloat64(opts, "temperature", -1, IsValidTemperature); temp != -1 {
		options.Temperature = &temp
	}
	if topP := ExtractOptionalFloat64(opts, "top_p", -1, IsValidTopP); topP != -1 {
		options.TopP = &topP
	}
	if topK := ExtractOptionalInt(opts, "top_k", -1, IsPositiveInt); topK != -1 {
		options.TopK = &topK
	}

	for k, v := range opts {
		switch k {
		case "max_tokens", "model", "system", "temperature", "top_p", "top_k":
			// Already normalized above.
		default:
			options.Extra[k] = v
		}
	}

	return options
}

// TokenCounter estimates token counts when the provider response does
// not report usage.
type TokenCounter struct {
	// CharactersPerToken is the assumed average token width.
	CharactersPerToken float64
}

// NewTokenCounter returns a counter tuned for English text.
func NewTokenCounter() *TokenCounter {
	return &TokenCounter{CharactersPerToken: 4.0}
}

// EstimateTokens approximates the token count of text.
func (tc *TokenCounter) EstimateTokens(text string) int {
	if len(text) == 0 {
		return 0
	}
	return int(float64(len(text)) / tc.CharactersPerToken)
}

// GetTokenCount prefers the provider-reported count, falling back to
// estimation when the report is missing or zero.
func (tc *TokenCounter) GetTokenCount(actual int, text string) int {
	if actual > 0 {
		return actual
	}
	return tc.EstimateTokens(text)
}
