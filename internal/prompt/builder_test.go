package prompt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBuilder_ValidatesConfig(t *testing.T) {
	_, err := NewBuilder(Config{MaxQueryLength: 0})
	assert.Error(t, err, "zero max length should be rejected")

	_, err = NewBuilder(Config{MaxQueryLength: 10})
	assert.Error(t, err, "max length below floor should be rejected")

	_, err = NewBuilder(DefaultConfig())
	assert.NoError(t, err, "default config should be valid")
}

func TestBuilder_EmbedsRequestAndMaxLength(t *testing.T) {
	builder, err := NewBuilder(Config{MaxQueryLength: 500})
	require.NoError(t, err)

	prompt, err := builder.Build("show failed logins in the last hour")
	require.NoError(t, err)

	assert.Contains(t, prompt, "show failed logins in the last hour", "request text should be embedded")
	assert.Contains(t, prompt, "at most 500 characters", "max length should be embedded")
	assert.Contains(t, prompt, "QUERY:", "prompt should ask for the query section")
	assert.Contains(t, prompt, "EXPLANATION:", "prompt should ask for the explanation section")
	assert.Contains(t, prompt, "SUGGESTIONS:", "prompt should ask for the suggestions section")
}

func TestBuilder_IsDeterministic(t *testing.T) {
	builder, err := NewBuilder(DefaultConfig())
	require.NoError(t, err)

	first, err := builder.Build("count errors by host")
	require.NoError(t, err)
	second, err := builder.Build("count errors by host")
	require.NoError(t, err)

	assert.Equal(t, first, second, "builds of the same request must be identical")
}

func TestBuilder_TrimsRequestText(t *testing.T) {
	builder, err := NewBuilder(DefaultConfig())
	require.NoError(t, err)

	prompt, err := builder.Build("   list web errors   \n")
	require.NoError(t, err)

	assert.Contains(t, prompt, "Request: list web errors\n", "surrounding whitespace should be trimmed")
	assert.False(t, strings.Contains(prompt, "   list web errors"), "untrimmed text should not appear")
}

func TestBuilder_EmptyRequestPassesThrough(t *testing.T) {
	// Rejecting empty input is the orchestrator's job; the builder stays pure.
	builder, err := NewBuilder(DefaultConfig())
	require.NoError(t, err)

	prompt, err := builder.Build("   ")
	require.NoError(t, err)
	assert.Contains(t, prompt, "Request: \n", "empty request renders an empty slot")
}
