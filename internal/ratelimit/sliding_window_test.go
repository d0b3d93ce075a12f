package ratelimit

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSlidingWindow_ValidatesConfig(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{
			name:    "valid config",
			cfg:     Config{MaxRequests: 10, Window: time.Minute},
			wantErr: false,
		},
		{
			name:    "zero max requests",
			cfg:     Config{MaxRequests: 0, Window: time.Minute},
			wantErr: true,
		},
		{
			name:    "negative window",
			cfg:     Config{MaxRequests: 5, Window: -time.Second},
			wantErr: true,
		},
		{
			name:    "zero window",
			cfg:     Config{MaxRequests: 5},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSlidingWindow(tt.cfg)
			if tt.wantErr {
				assert.Error(t, err, "invalid config should be rejected")
			} else {
				assert.NoError(t, err, "valid config should be accepted")
			}
		})
	}
}

func TestSlidingWindow_AdmitsUpToLimitThenDenies(t *testing.T) {
	// Given a limiter allowing 10 requests per 60 seconds
	limiter, err := NewSlidingWindow(Config{MaxRequests: 10, Window: 60 * time.Second})
	require.NoError(t, err)

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	// When 10 requests arrive at t=0
	for i := range 10 {
		assert.True(t, limiter.Allow("user-1", base), "request %d should be admitted", i+1)
	}

	// Then the 11th within the window is denied
	assert.False(t, limiter.Allow("user-1", base.Add(time.Second)), "11th request should be denied")

	// And a request after the window has passed the earliest timestamp is admitted
	assert.True(t, limiter.Allow("user-1", base.Add(61*time.Second)), "request after window should be admitted")
}

func TestSlidingWindow_DenialHasNoSideEffect(t *testing.T) {
	// Given a limiter at capacity
	limiter, err := NewSlidingWindow(Config{MaxRequests: 2, Window: time.Minute})
	require.NoError(t, err)

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	require.True(t, limiter.Allow("user-1", base))
	require.True(t, limiter.Allow("user-1", base.Add(time.Second)))

	// When denied requests hammer the window
	for i := range 5 {
		require.False(t, limiter.Allow("user-1", base.Add(time.Duration(2+i)*time.Second)))
	}

	// Then the window clears exactly when the original entries expire,
	// proving denials recorded nothing.
	assert.True(t, limiter.Allow("user-1", base.Add(61*time.Second)),
		"denied requests must not extend the window")
}

func TestSlidingWindow_IdentitiesAreIndependent(t *testing.T) {
	limiter, err := NewSlidingWindow(Config{MaxRequests: 1, Window: time.Minute})
	require.NoError(t, err)

	now := time.Now()
	assert.True(t, limiter.Allow("alice", now), "alice's first request should be admitted")
	assert.False(t, limiter.Allow("alice", now), "alice's second request should be denied")
	assert.True(t, limiter.Allow("bob", now), "bob should be unaffected by alice's window")
}

func TestSlidingWindow_ConcurrentSameIdentityNeverOverAdmits(t *testing.T) {
	// Given a limiter allowing 10 requests
	limiter, err := NewSlidingWindow(Config{MaxRequests: 10, Window: time.Minute})
	require.NoError(t, err)

	// When 100 goroutines race on the same identity
	const attempts = 100
	now := time.Now()
	var wg sync.WaitGroup
	results := make(chan bool, attempts)

	for range attempts {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- limiter.Allow("shared", now)
		}()
	}
	wg.Wait()
	close(results)

	// Then exactly the limit is admitted
	admitted := 0
	for ok := range results {
		if ok {
			admitted++
		}
	}
	assert.Equal(t, 10, admitted, "concurrent admissions must not exceed the limit")
}

func TestSlidingWindow_SweepRemovesIdleIdentities(t *testing.T) {
	limiter, err := NewSlidingWindow(Config{MaxRequests: 5, Window: time.Minute})
	require.NoError(t, err)

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	require.True(t, limiter.Allow("stale", base))
	require.True(t, limiter.Allow("fresh", base.Add(59*time.Second)))
	require.Equal(t, 2, limiter.Len())

	// Sweeping after the stale entry expired removes only that identity.
	removed := limiter.Sweep(base.Add(70 * time.Second))
	assert.Equal(t, 1, removed, "one idle identity should be swept")
	assert.Equal(t, 1, limiter.Len(), "active identity should survive the sweep")
}
