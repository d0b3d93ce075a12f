// Package application wires the pipeline components together and exposes
// the orchestrator that handles query generation requests end to end.
package application

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/sentinelworks/splgen/internal/prompt"
	"github.com/sentinelworks/splgen/internal/ratelimit"
)

// ProviderConfig selects and configures the generation provider.
type ProviderConfig struct {
	// Name selects the provider implementation.
	Name string `yaml:"name" validate:"required,oneof=openai anthropic google"`

	// APIKeyEnv names the environment variable holding the API key.
	// Empty selects the provider's conventional variable.
	APIKeyEnv string `yaml:"api_key_env"`

	// Model overrides the provider default model.
	Model string `yaml:"model"`

	// BaseURL overrides the provider endpoint.
	BaseURL string `yaml:"base_url"`

	// Timeout bounds each generation call. This is the pipeline's only
	// cancellation semantic: a call exceeding it fails as a timeout.
	Timeout time.Duration `yaml:"timeout" validate:"required,gt=0"`
}

// APIKey resolves the provider API key from the environment.
func (p ProviderConfig) APIKey() string {
	env := p.APIKeyEnv
	if env == "" {
		switch p.Name {
		case "openai":
			env = "OPENAI_API_KEY"
		case "anthropic":
			env = "ANTHROPIC_API_KEY"
		case "google":
			env = "GEMINI_API_KEY"
		}
	}
	return os.Getenv(env)
}

// SamplingConfig holds the fixed generation parameters. They are
// configuration, not request-dependent, so output format stays
// consistent for the parser.
type SamplingConfig struct {
	Temperature float64 `yaml:"temperature" validate:"min=0,max=2"`
	TopP        float64 `yaml:"top_p" validate:"min=0,max=1"`
	TopK        int     `yaml:"top_k" validate:"min=0"`
	MaxTokens   int     `yaml:"max_tokens" validate:"required,min=1"`
}

// Options renders the sampling parameters as the options map the
// generation client consumes.
func (s SamplingConfig) Options() map[string]any {
	opts := map[string]any{
		"temperature": s.Temperature,
		"top_p":       s.TopP,
		"max_tokens":  s.MaxTokens,
	}
	if s.TopK > 0 {
		opts["top_k"] = s.TopK
	}
	return opts
}

// LoggingConfig controls the process logger.
type LoggingConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// Config is the full pipeline configuration, loaded once at process
// start. Changing it mid-process has no effect on in-flight windows.
type Config struct {
	Provider  ProviderConfig   `yaml:"provider" validate:"required"`
	Sampling  SamplingConfig   `yaml:"sampling" validate:"required"`
	RateLimit ratelimit.Config `yaml:"rate_limit" validate:"required"`
	Prompt    prompt.Config    `yaml:"prompt" validate:"required"`

	// MaxRequestLength bounds incoming request text; longer requests are
	// rejected before any external call.
	MaxRequestLength int `yaml:"max_request_length" validate:"required,min=1"`

	// RulesPath points at a YAML validator rule set. Empty selects the
	// compiled defaults.
	RulesPath string `yaml:"rules_path"`

	// StorePath is the SQLite database for request records. Empty keeps
	// records in memory only.
	StorePath string `yaml:"store_path"`

	Logging LoggingConfig `yaml:"logging"`
}

// DefaultConfig returns the configuration used when no file overrides it.
func DefaultConfig() Config {
	return Config{
		Provider: ProviderConfig{
			Name:    "anthropic",
			Timeout: 30 * time.Second,
		},
		Sampling: SamplingConfig{
			Temperature: 0.2,
			TopP:        0.9,
			MaxTokens:   1024,
		},
		RateLimit:        ratelimit.DefaultConfig(),
		Prompt:           prompt.DefaultConfig(),
		MaxRequestLength: 2000,
	}
}

// LoadConfig reads a YAML file over the defaults and validates the
// result. An empty path returns the validated defaults.
func LoadConfig(path string) (Config, error) {
	config := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &config); err != nil {
			return Config{}, fmt.Errorf("decode config: %w", err)
		}
	}

	if err := validator.New().Struct(&config); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return config, nil
}
