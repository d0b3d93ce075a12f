// Package llm abstracts the generation capability boundary behind a common
// interface. Multiple providers (OpenAI, Anthropic, Google) are hidden
// behind CoreLLM, and cross-cutting concerns such as timeouts, retries,
// pacing, metrics, and tracing compose through a middleware chain.
//
// The query pipeline treats this boundary as "text in, text out, may
// fail": it sends one prompt with fixed sampling parameters and receives
// raw text that the parser then structures.
//
// Basic usage:
//
//	client, err := llm.NewClient("anthropic", llm.ClientConfig{
//	    APIKey: os.Getenv("ANTHROPIC_API_KEY"),
//	    Model:  "claude-3-5-sonnet-20241022",
//	    Middleware: []llm.Middleware{
//	        llm.TimeoutMiddleware(30 * time.Second),
//	        llm.RetryMiddleware(2, 500*time.Millisecond, 5*time.Second),
//	    },
//	})
package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/sentinelworks/splgen/internal/ports"
)

// CoreLLM is the minimal surface a provider must implement. Middleware
// wraps any conforming implementation, so providers stay free of
// cross-cutting logic.
type CoreLLM interface {
	// DoRequest sends one prompt and returns the response text along with
	// input and output token counts. The opts map carries sampling
	// parameters such as temperature, top_p, top_k, and max_tokens.
	DoRequest(ctx context.Context, prompt string, opts map[string]any) (response string, tokensIn, tokensOut int, err error)

	// GetModel returns the configured model name.
	GetModel() string

	// SetModel switches the model for subsequent requests.
	SetModel(model string)
}

// TokenEstimator approximates token counts before a request is made,
// for prompt budgeting when exact counts are unavailable.
type TokenEstimator interface {
	EstimateTokens(text string) int
}

// Middleware wraps a CoreLLM to add cross-cutting behavior. Middleware
// composes: the first entry in a chain becomes the outermost wrapper.
type Middleware func(CoreLLM) CoreLLM

// ClientConfig configures a provider-backed client.
type ClientConfig struct {
	// APIKey authenticates against the provider.
	APIKey string

	// Model selects the provider model. Empty selects the provider default.
	Model string

	// BaseURL overrides the provider endpoint. Empty uses the default.
	BaseURL string

	// Timeout bounds individual HTTP requests at the transport level.
	// Zero means no transport timeout; use TimeoutMiddleware for a
	// request-level bound.
	Timeout time.Duration

	// TokenEstimator overrides the default character-based estimator.
	TokenEstimator TokenEstimator

	// Middleware is applied in order, first entry outermost.
	Middleware []Middleware
}

// Client adapts a middleware-wrapped CoreLLM to the ports.LLMClient
// interface the pipeline consumes.
type Client struct {
	core      CoreLLM
	estimator TokenEstimator
}

var _ ports.LLMClient = (*Client)(nil)

// NewClient builds a client for the named provider, applying the
// configured middleware chain.
func NewClient(providerType string, config ClientConfig) (*Client, error) {
	if config.APIKey == "" {
		return nil, ErrEmptyAPIKey
	}

	factory, ok := providerFactories[providerType]
	if !ok {
		return nil, fmt.Errorf("unknown provider: %s", providerType)
	}

	core, err := factory(config)
	if err != nil {
		return nil, fmt.Errorf("create %s provider: %w", providerType, err)
	}

	// Reverse application so the first middleware ends up outermost.
	for i := len(config.Middleware) - 1; i >= 0; i-- {
		core = config.Middleware[i](core)
	}

	estimator := config.TokenEstimator
	if estimator == nil {
		estimator = &CharTokenEstimator{}
	}

	return &Client{core: core, estimator: estimator}, nil
}

// Complete sends a prompt and returns the raw response text, discarding
// token usage.
func (c *Client) Complete(ctx context.Context, prompt string, options map[string]any) (string, error) {
	response, _, _, err := c.core.DoRequest(ctx, prompt, options)
	return response, err
}

// CompleteWithUsage sends a prompt and additionally returns input and
// output token counts.
func (c *Client) CompleteWithUsage(ctx context.Context, prompt string, options map[string]any) (string, int, int, error) {
	return c.core.DoRequest(ctx, prompt, options)
}

// EstimateTokens approximates the token count of text without calling
// the provider.
func (c *Client) EstimateTokens(text string) (int, error) {
	return c.estimator.EstimateTokens(text), nil
}

// GetModel reports the model of the underlying provider.
func (c *Client) GetModel() string { return c.core.GetModel() }

// CharTokenEstimator approximates tokens at four characters per token,
// a reasonable heuristic for English text.
type CharTokenEstimator struct{}

func (e *CharTokenEstimator) EstimateTokens(text string) int {
	return (len(text) + 3) / 4
}

// ProviderFactory builds a CoreLLM from configuration. Providers register
// a factory from init so NewClient can construct them by name.
type ProviderFactory func(ClientConfig) (CoreLLM, error)

var providerFactories = map[string]ProviderFactory{}

// RegisterProviderFactory registers a provider under a name. Later
// registrations with the same name replace earlier ones.
func RegisterProviderFactory(providerType string, factory ProviderFactory) {
	providerFactories[providerType] = factory
}
