package spl

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/agnivade/levenshtein"
	"golang.org/x/text/cases"

	"github.com/sentinelworks/splgen/internal/domain"
)

var (
	wordRe      = regexp.MustCompile(`[A-Za-z0-9_]+`)
	indexRe     = regexp.MustCompile(`(?i)\bindex\s*=`)
	timeBoundRe = regexp.MustCompile(`(?i)\b(earliest|latest)\s*=`)
)

// knownCommands is the pipeline command vocabulary used for near-miss
// suggestions. Order matters: ties resolve to the earliest entry.
var knownCommands = []string{
	"search", "stats", "head", "tail", "sort", "table", "fields", "eval",
	"where", "rename", "dedup", "top", "rare", "timechart", "chart", "rex",
	"transaction", "lookup", "append", "join",
}

// maxSuggestDistance bounds how far an unknown pipeline command may be
// from a known one before a near-miss suggestion is offered.
const maxSuggestDistance = 2

// Validator checks queries against a RuleSet. It holds no mutable state,
// so the same query always yields the same outcome and concurrent use
// needs no synchronization.
type Validator struct {
	rules *RuleSet
	fold  cases.Caser
}

// NewValidator creates a Validator over the given rules. A nil rule set
// selects the compiled defaults.
func NewValidator(rules *RuleSet) *Validator {
	if rules == nil {
		rules = DefaultRuleSet()
	}
	return &Validator{rules: rules, fold: cases.Fold()}
}

// Validate checks a query and reports hard errors and soft warnings.
// An empty query short-circuits with a single error. Disallowed-keyword
// scanning does not short-circuit, so all violations are reported
// together, in rule declaration order.
func (v *Validator) Validate(query string) domain.ValidationOutcome {
	outcome := domain.ValidationOutcome{IsValid: true}

	if strings.TrimSpace(query) == "" {
		outcome.AddError("query cannot be empty")
		return outcome
	}

	words := v.foldedWords(query)
	for _, rule := range v.rules.Disallowed {
		if words[v.fold.String(rule.Keyword)] {
			outcome.AddError(rule.Message)
		}
	}

	for _, rule := range v.rules.Patterns {
		if rule.re.MatchString(query) {
			outcome.AddWarning(rule.Message)
		}
	}

	if !indexRe.MatchString(query) {
		outcome.AddWarning("no index specified; the search will run against default indexes")
	}
	if !timeBoundRe.MatchString(query) {
		outcome.AddWarning("no time bound specified; consider earliest= to limit the range")
	}

	return outcome
}

// SuggestOptimizations returns advisory improvements for a query: scoping,
// time bounds, an aggregation stage when the query has no pipeline, and
// near-miss corrections for unknown pipeline commands. Advice only; it
// never affects validity.
func (v *Validator) SuggestOptimizations(query string) []string {
	if strings.TrimSpace(query) == "" {
		return nil
	}

	var suggestions []string
	if !indexRe.MatchString(query) {
		suggestions = append(suggestions, "Add an index=<name> clause to scope the search to a specific index.")
	}
	if !timeBoundRe.MatchString(query) {
		suggestions = append(suggestions, "Add a time bound such as earliest=-24h to limit the search range.")
	}
	if !strings.Contains(query, "|") {
		suggestions = append(suggestions, "Add an aggregation stage such as | stats count to summarize results.")
	}
	suggestions = append(suggestions, v.commandSuggestions(query)...)
	return suggestions
}

// commandSuggestions inspects the first token of each pipeline stage and
// proposes the closest known command for unknown ones.
func (v *Validator) commandSuggestions(query string) []string {
	var suggestions []string
	stages := strings.Split(query, "|")
	for _, stage := range stages[1:] {
		tokens := strings.Fields(stage)
		if len(tokens) == 0 {
			continue
		}
		cmd := wordRe.FindString(v.fold.String(tokens[0]))
		if cmd == "" {
			continue
		}
		if match, ok := v.closestCommand(cmd); ok {
			suggestions = append(suggestions, fmt.Sprintf("Unknown command %q; did you mean %q?", cmd, match))
		}
	}
	return suggestions
}

// closestCommand returns the nearest known command within the suggestion
// distance bound, or false when cmd is already known or nothing is close.
func (v *Validator) closestCommand(cmd string) (string, bool) {
	best := ""
	bestDist := maxSuggestDistance + 1
	for _, known := range knownCommands {
		if cmd == known {
			return "", false
		}
		if d := levenshtein.ComputeDistance(cmd, known); d < bestDist {
			best = known
			bestDist = d
		}
	}
	if best == "" {
		return "", false
	}
	return best, true
}

// foldedWords tokenizes the query into a case-folded whole-word set.
func (v *Validator) foldedWords(query string) map[string]bool {
	words := make(map[string]bool)
	for _, w := range wordRe.FindAllString(query, -1) {
		words[v.fold.String(w)] = true
	}
	return words
}
