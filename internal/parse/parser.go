// Package parse converts raw LLM output into a structured generation
// result. It tries a strict JSON decoding first and falls back to a
// line-oriented section scanner when the output is not valid JSON.
// Parsing never fails: malformed input degrades to a safe default result
// so a bad model response can never take down the request pipeline.
package parse

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/sentinelworks/splgen/internal/domain"
)

// section is the fallback scanner's current state. Lines are routed to the
// result field matching the active section; lines seen before any section
// label are discarded.
type section int

const (
	sectionNone section = iota
	sectionQuery
	sectionExplanation
	sectionSuggestions
)

// Section label and bullet patterns. Labels are matched case-insensitively
// at the start of a line, with any same-line remainder captured.
var (
	queryLabelRe       = regexp.MustCompile(`(?i)^\s*query\s*:\s*(.*)$`)
	explanationLabelRe = regexp.MustCompile(`(?i)^\s*explanation\s*:\s*(.*)$`)
	suggestionsLabelRe = regexp.MustCompile(`(?i)^\s*suggestions\s*:\s*$`)
	bulletRe           = regexp.MustCompile(`^\s*[-*•]\s+(.*)$`)
)

// strictResponse is the shape the strict path decodes into.
type strictResponse struct {
	Query       string   `json:"query"`
	Explanation string   `json:"explanation"`
	Suggestions []string `json:"suggestions"`
}

// Parser converts raw generated text into a GeneratedResult.
// It is stateless and safe for concurrent use.
type Parser struct{}

// NewParser creates a Parser.
func NewParser() *Parser { return &Parser{} }

// Parse converts raw model output into a structured result. A non-nil
// error means neither path could run to completion; callers are expected
// to substitute DefaultResult rather than fail the request, since a bad
// model response must never take down the whole pipeline.
func (p *Parser) Parse(raw string) (result domain.GeneratedResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = domain.GeneratedResult{}
			err = fmt.Errorf("parse response: %v", r)
		}
	}()

	trimmed := strings.TrimSpace(raw)

	if candidate := jsonCandidate(trimmed); candidate != "" {
		var decoded strictResponse
		if jsonErr := json.Unmarshal([]byte(candidate), &decoded); jsonErr == nil {
			return domain.GeneratedResult{
				Query:       strings.TrimSpace(decoded.Query),
				Explanation: strings.TrimSpace(decoded.Explanation),
				Suggestions: decoded.Suggestions,
			}, nil
		}
	}

	return parseSections(trimmed), nil
}

// jsonCandidate returns the JSON object to attempt strict decoding on, or
// empty when the strict path should not be attempted. Raw output counts as
// a candidate when it begins with an object brace, possibly inside a fenced
// code block.
func jsonCandidate(trimmed string) string {
	if strings.HasPrefix(trimmed, "{") {
		return extractObject(trimmed)
	}
	if strings.HasPrefix(trimmed, "```") {
		inner := stripFence(trimmed)
		if strings.HasPrefix(inner, "{") {
			return extractObject(inner)
		}
	}
	return ""
}

// stripFence removes a leading fenced-block marker (with optional language
// tag) and the matching closing fence, returning the trimmed interior.
func stripFence(s string) string {
	nl := strings.Index(s, "\n")
	if nl == -1 {
		return ""
	}
	body := s[nl+1:]
	if end := strings.Index(body, "```"); end != -1 {
		body = body[:end]
	}
	return strings.TrimSpace(body)
}

// extractObject returns the first balanced JSON object in s, honoring
// string literals and escape sequences so braces inside strings do not
// confuse the match. Returns empty when no balanced object is found.
func extractObject(s string) string {
	start := strings.Index(s, "{")
	if start == -1 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if escaped {
			escaped = false
			continue
		}
		switch c {
		case '\\':
			escaped = true
		case '"':
			inString = !inString
		case '{':
			if !inString {
				depth++
			}
		case '}':
			if !inString {
				depth--
				if depth == 0 {
					return s[start : i+1]
				}
			}
		}
	}
	return ""
}

// parseSections is the fallback path: a line scanner with an explicit
// section state machine. Section labels and fence markers switch state
// without being captured themselves; other lines are routed to the field
// of the active section.
func parseSections(raw string) domain.GeneratedResult {
	var (
		state            = sectionNone
		queryLines       []string
		explanationParts []string
		suggestions      []string
	)

	for _, line := range strings.Split(raw, "\n") {
		if m := queryLabelRe.FindStringSubmatch(line); m != nil {
			state = sectionQuery
			if rest := strings.TrimSpace(m[1]); rest != "" {
				queryLines = append(queryLines, rest)
			}
			continue
		}
		if m := explanationLabelRe.FindStringSubmatch(line); m != nil {
			state = sectionExplanation
			if rest := strings.TrimSpace(m[1]); rest != "" {
				explanationParts = append(explanationParts, rest)
			}
			continue
		}
		if suggestionsLabelRe.MatchString(line) {
			state = sectionSuggestions
			continue
		}
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			// Fence markers select the query section but are never
			// captured, whether opening or closing.
			state = sectionQuery
			continue
		}

		switch state {
		case sectionQuery:
			queryLines = append(queryLines, line)
		case sectionExplanation:
			if trimmed := strings.TrimSpace(line); trimmed != "" {
				explanationParts = append(explanationParts, trimmed)
			}
		case sectionSuggestions:
			if m := bulletRe.FindStringSubmatch(line); m != nil {
				suggestions = append(suggestions, strings.TrimSpace(m[1]))
			}
		case sectionNone:
			// Lines before any section label are discarded.
		}
	}

	return domain.GeneratedResult{
		Query:       strings.TrimSpace(strings.Join(queryLines, "\n")),
		Explanation: strings.TrimSpace(strings.Join(explanationParts, " ")),
		Suggestions: suggestions,
	}
}

// DefaultResult is the safe fallback callers substitute when Parse reports
// an error: a minimal catch-all query with a rephrase suggestion.
func DefaultResult() domain.GeneratedResult {
	return domain.GeneratedResult{
		Query:       "index=main | head 10",
		Explanation: "The response could not be parsed; a minimal catch-all query is provided instead.",
		Suggestions: []string{"Try rephrasing your request with more specific terms."},
	}
}
