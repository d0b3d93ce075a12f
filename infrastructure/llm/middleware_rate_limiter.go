package llm

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

// pacedLLM paces outbound requests with a token bucket so the process
// stays inside the provider's rate limits regardless of how many
// pipeline requests are in flight. This is distinct from the
// per-identity admission limiter, which protects the service itself.
type pacedLLM struct {
	next    CoreLLM
	limiter *rate.Limiter
}

// RateLimitMiddleware paces requests at limit per second with the given
// burst allowance. Callers block until a token is available or their
// context expires.
func RateLimitMiddleware(limit rate.Limit, burst int) Middleware {
	limiter := rate.NewLimiter(limit, burst)
	return func(next CoreLLM) CoreLLM {
		return &pacedLLM{next: next, limiter: limiter}
	}
}

func (r *pacedLLM) DoRequest(ctx context.Context, prompt string, opts map[string]any) (string, int, int, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return "", 0, 0, fmt.Errorf("outbound pacing: %w", err)
	}
	return r.next.DoRequest(ctx, prompt, opts)
}

func (r *pacedLLM) GetModel() string  { return r.next.GetModel() }
func (r *pacedLLM) SetModel(m string) { r.next.SetModel(m) }
