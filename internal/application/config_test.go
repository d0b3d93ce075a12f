package application

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_DefaultsWhenPathEmpty(t *testing.T) {
	config, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "anthropic", config.Provider.Name)
	assert.Equal(t, 30*time.Second, config.Provider.Timeout)
	assert.Equal(t, 10, config.RateLimit.MaxRequests)
	assert.Equal(t, time.Minute, config.RateLimit.Window)
	assert.Equal(t, 2000, config.MaxRequestLength)
}

func TestLoadConfig_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
provider:
  name: openai
  model: gpt-4o-mini
  timeout: 10s
rate_limit:
  max_requests: 5
  window: 30s
`), 0o644))

	config, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "openai", config.Provider.Name)
	assert.Equal(t, "gpt-4o-mini", config.Provider.Model)
	assert.Equal(t, 10*time.Second, config.Provider.Timeout)
	assert.Equal(t, 5, config.RateLimit.MaxRequests)
	assert.Equal(t, 30*time.Second, config.RateLimit.Window)

	// Untouched sections keep their defaults.
	assert.Equal(t, 1024, config.Sampling.MaxTokens)
	assert.Equal(t, 2000, config.MaxRequestLength)
}

func TestLoadConfig_RejectsUnknownProvider(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
provider:
  name: homebrew
  timeout: 10s
`), 0o644))

	_, err := LoadConfig(path)
	require.Error(t, err)
}

func TestSamplingConfig_Options(t *testing.T) {
	s := SamplingConfig{Temperature: 0.2, TopP: 0.9, TopK: 40, MaxTokens: 512}

	opts := s.Options()
	assert.Equal(t, 0.2, opts["temperature"])
	assert.Equal(t, 0.9, opts["top_p"])
	assert.Equal(t, 40, opts["top_k"])
	assert.Equal(t, 512, opts["max_tokens"])

	s.TopK = 0
	_, hasTopK := s.Options()["top_k"]
	assert.False(t, hasTopK, "zero top_k defers to the provider default")
}

func TestProviderConfig_APIKeyFallsBackToConventionalEnv(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "from-convention")
	t.Setenv("CUSTOM_KEY", "from-custom")

	p := ProviderConfig{Name: "openai"}
	assert.Equal(t, "from-convention", p.APIKey())

	p.APIKeyEnv = "CUSTOM_KEY"
	assert.Equal(t, "from-custom", p.APIKey())
}
