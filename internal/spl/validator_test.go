package spl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidator_EmptyQuery(t *testing.T) {
	v := NewValidator(nil)

	outcome := v.Validate("")

	assert.False(t, outcome.IsValid)
	require.Len(t, outcome.Errors, 1)
	assert.Contains(t, outcome.Errors[0], "empty")
	assert.Empty(t, outcome.Warnings, "empty queries short-circuit remaining checks")
}

func TestValidator_BlankQuery(t *testing.T) {
	v := NewValidator(nil)

	outcome := v.Validate("   \n\t ")

	assert.False(t, outcome.IsValid)
	require.Len(t, outcome.Errors, 1)
}

func TestValidator_DisallowedOperation(t *testing.T) {
	v := NewValidator(nil)

	outcome := v.Validate("index=main | delete")

	assert.False(t, outcome.IsValid)
	require.Len(t, outcome.Errors, 1)
	assert.Contains(t, outcome.Errors[0], "delete")
}

func TestValidator_DisallowedMatchingIsWholeWordAndCaseInsensitive(t *testing.T) {
	v := NewValidator(nil)

	t.Run("uppercase keyword still matches", func(t *testing.T) {
		outcome := v.Validate("index=main | DELETE")
		assert.False(t, outcome.IsValid)
	})

	t.Run("substring does not match", func(t *testing.T) {
		outcome := v.Validate("index=main deleted_user=true earliest=-1h | stats count")
		assert.True(t, outcome.IsValid, "'deleted_user' must not trip the 'delete' rule")
	})
}

func TestValidator_AllViolationsReportedTogether(t *testing.T) {
	v := NewValidator(nil)

	outcome := v.Validate("index=main | delete | collect index=summary")

	assert.False(t, outcome.IsValid)
	require.Len(t, outcome.Errors, 2, "keyword scanning must not short-circuit")
	assert.Contains(t, outcome.Errors[0], "delete", "errors follow rule declaration order")
	assert.Contains(t, outcome.Errors[1], "collect")
}

func TestValidator_CleanQuery(t *testing.T) {
	v := NewValidator(nil)

	outcome := v.Validate("index=main earliest=-1h | stats count by host")

	assert.True(t, outcome.IsValid)
	assert.Empty(t, outcome.Errors)
	assert.Empty(t, outcome.Warnings)
}

func TestValidator_PerformanceWarnings(t *testing.T) {
	v := NewValidator(nil)

	outcome := v.Validate("index=* earliest=0 | head 100")

	assert.True(t, outcome.IsValid, "performance warnings never flip validity")
	assert.Empty(t, outcome.Errors)
	require.GreaterOrEqual(t, len(outcome.Warnings), 2)
	assert.Contains(t, outcome.Warnings[0], "index=*")
	assert.Contains(t, outcome.Warnings[1], "earliest=0")
}

func TestValidator_MissingScopeAndTimeBoundWarnings(t *testing.T) {
	v := NewValidator(nil)

	outcome := v.Validate("error | head 10")

	assert.True(t, outcome.IsValid)
	require.Len(t, outcome.Warnings, 2)
	assert.Contains(t, outcome.Warnings[0], "index")
	assert.Contains(t, outcome.Warnings[1], "time bound")
}

func TestValidator_IsIdempotent(t *testing.T) {
	v := NewValidator(nil)
	query := "index=* | delete"

	first := v.Validate(query)
	second := v.Validate(query)

	assert.Equal(t, first, second, "validation is a pure function of the query")
}

func TestValidator_SuggestOptimizations(t *testing.T) {
	v := NewValidator(nil)

	t.Run("bare term gets scope, time bound, and aggregation advice", func(t *testing.T) {
		suggestions := v.SuggestOptimizations("error")
		require.Len(t, suggestions, 3)
		assert.Contains(t, suggestions[0], "index=")
		assert.Contains(t, suggestions[1], "earliest=")
		assert.Contains(t, suggestions[2], "stats")
	})

	t.Run("well-formed query gets none", func(t *testing.T) {
		suggestions := v.SuggestOptimizations("index=main earliest=-1h | stats count by host")
		assert.Empty(t, suggestions)
	})

	t.Run("blank query gets none", func(t *testing.T) {
		assert.Empty(t, v.SuggestOptimizations("  "))
	})

	t.Run("near-miss pipeline command is corrected", func(t *testing.T) {
		suggestions := v.SuggestOptimizations("index=main earliest=-1h | stat count by host")
		require.Len(t, suggestions, 1)
		assert.Contains(t, suggestions[0], `"stats"`)
	})

	t.Run("advice never affects validity", func(t *testing.T) {
		outcome := v.Validate("error")
		assert.True(t, outcome.IsValid)
	})
}

func TestParseRuleSet(t *testing.T) {
	doc := []byte(`
disallowed:
  - keyword: drop
    message: "drop is not permitted"
patterns:
  - name: all-time
    pattern: 'earliest\s*=\s*0'
    message: "unbounded range"
`)

	rs, err := ParseRuleSet(doc)
	require.NoError(t, err)

	v := NewValidator(rs)
	outcome := v.Validate("index=main earliest=-1h | drop")
	assert.False(t, outcome.IsValid)
	require.Len(t, outcome.Errors, 1)
	assert.Equal(t, "drop is not permitted", outcome.Errors[0])
}

func TestParseRuleSet_RejectsBadPattern(t *testing.T) {
	doc := []byte(`
disallowed:
  - keyword: drop
    message: "no"
patterns:
  - name: broken
    pattern: '['
    message: "x"
`)

	_, err := ParseRuleSet(doc)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken")
}

func TestParseRuleSet_RequiresDisallowedRules(t *testing.T) {
	_, err := ParseRuleSet([]byte(`patterns: []`))
	require.Error(t, err)
}

func TestDefaultRuleSet_CompilesPatterns(t *testing.T) {
	rs := DefaultRuleSet()

	require.NotEmpty(t, rs.Disallowed)
	require.NotEmpty(t, rs.Patterns)
	for _, p := range rs.Patterns {
		assert.NotNil(t, p.re, "pattern %q must be compiled", p.Name)
	}
}
