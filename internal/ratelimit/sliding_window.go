// Package ratelimit implements per-identity sliding-window admission
// control for the query pipeline. Each identity owns an independent window
// of admitted-request timestamps; admission decisions for one identity are
// totally ordered while different identities proceed in parallel.
package ratelimit

import (
	"fmt"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config holds the externally configurable limiter thresholds. Both values
// are loaded once at process start; changes do not affect in-flight windows.
type Config struct {
	// MaxRequests is the number of admissions allowed per identity
	// within one trailing window.
	MaxRequests int `yaml:"max_requests" json:"max_requests" validate:"required,min=1"`

	// Window is the trailing window duration.
	Window time.Duration `yaml:"window" json:"window" validate:"required,gt=0"`
}

// DefaultConfig returns the limiter thresholds used when no configuration
// is supplied: 10 requests per identity per minute.
func DefaultConfig() Config {
	return Config{MaxRequests: 10, Window: time.Minute}
}

// window holds one identity's admitted-request timestamps. The mutex
// serializes admission decisions for that identity so two concurrent calls
// can never both observe the same stale state and jointly over-admit.
type window struct {
	mu     sync.Mutex
	stamps []time.Time
}

// SlidingWindow is a per-identity sliding-window rate limiter. Entries are
// created lazily on first use and can be pruned with Sweep. It is safe for
// concurrent use across identities; contention is limited to per-identity
// serialization plus a short map lookup.
type SlidingWindow struct {
	maxRequests int
	windowSize  time.Duration

	mu         sync.RWMutex
	identities map[string]*window
}

// NewSlidingWindow creates a limiter from the given configuration.
// Returns an error if the configuration fails validation.
func NewSlidingWindow(cfg Config) (*SlidingWindow, error) {
	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("rate limit configuration invalid: %w", err)
	}
	return &SlidingWindow{
		maxRequests: cfg.MaxRequests,
		windowSize:  cfg.Window,
		identities:  make(map[string]*window),
	}, nil
}

// Allow decides admission for one request from identity at time now.
// Timestamps older than now minus the window are discarded first; if the
// remaining count has reached the limit the request is denied without
// recording now, otherwise now is recorded and the request admitted.
// Denial has no side effect on the window.
func (l *SlidingWindow) Allow(identity string, now time.Time) bool {
	w := l.entry(identity)

	w.mu.Lock()
	defer w.mu.Unlock()

	w.stamps = pruneBefore(w.stamps, now.Add(-l.windowSize))
	if len(w.stamps) >= l.maxRequests {
		return false
	}
	w.stamps = append(w.stamps, now)
	return true
}

// entry returns the identity's window, creating it on first use.
func (l *SlidingWindow) entry(identity string) *window {
	l.mu.RLock()
	w, ok := l.identities[identity]
	l.mu.RUnlock()
	if ok {
		return w
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if w, ok = l.identities[identity]; ok {
		return w
	}
	w = &window{}
	l.identities[identity] = w
	return w
}

// Sweep removes identities whose windows hold no timestamp newer than now
// minus the window duration. It returns the number of entries removed.
// Callers may run it periodically to bound memory for churning identities.
func (l *SlidingWindow) Sweep(now time.Time) int {
	cutoff := now.Add(-l.windowSize)

	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for identity, w := range l.identities {
		w.mu.Lock()
		w.stamps = pruneBefore(w.stamps, cutoff)
		empty := len(w.stamps) == 0
		w.mu.Unlock()
		if empty {
			delete(l.identities, identity)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked identities.
func (l *SlidingWindow) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.identities)
}

// pruneBefore drops timestamps strictly older than cutoff, preserving order.
func pruneBefore(stamps []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(stamps) && stamps[i].Before(cutoff) {
		i++
	}
	if i == 0 {
		return stamps
	}
	out := make([]time.Time, len(stamps)-i)
	copy(out, stamps[i:])
	return out
}
