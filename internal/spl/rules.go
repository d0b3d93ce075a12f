// Package spl validates generated SPL queries against rule sets describing
// disallowed operations and performance-risk patterns. Rule sets are data,
// not code: the compiled defaults can be replaced wholesale from a YAML
// document without touching the validation algorithm.
package spl

import (
	"fmt"
	"os"
	"regexp"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// DisallowedRule blocks a single command keyword that would mutate or
// administer the underlying data store. Keywords match whole words,
// case-insensitively.
type DisallowedRule struct {
	Keyword string `yaml:"keyword" validate:"required"`
	Message string `yaml:"message" validate:"required"`
}

// PatternRule flags a query shape that is syntactically valid but likely
// to be slow or costly. Pattern is a regular expression applied to the
// whole query; matches produce warnings, never errors.
type PatternRule struct {
	Name    string `yaml:"name" validate:"required"`
	Pattern string `yaml:"pattern" validate:"required"`
	Message string `yaml:"message" validate:"required"`

	re *regexp.Regexp
}

// RuleSet is the full validation configuration: hard-blocked keywords and
// soft performance warnings, evaluated in declaration order so message
// ordering is deterministic.
type RuleSet struct {
	Disallowed []DisallowedRule `yaml:"disallowed" validate:"required,min=1,dive"`
	Patterns   []PatternRule    `yaml:"patterns" validate:"dive"`
}

// DefaultRuleSet returns the compiled built-in rules: mutating and
// administrative SPL commands as hard errors, plus the usual expensive
// query shapes as warnings.
func DefaultRuleSet() *RuleSet {
	rs := &RuleSet{
		Disallowed: []DisallowedRule{
			{Keyword: "delete", Message: "query contains disallowed operation: delete"},
			{Keyword: "collect", Message: "query contains disallowed operation: collect"},
			{Keyword: "outputlookup", Message: "query contains disallowed operation: outputlookup"},
			{Keyword: "outputcsv", Message: "query contains disallowed operation: outputcsv"},
			{Keyword: "sendemail", Message: "query contains disallowed operation: sendemail"},
			{Keyword: "script", Message: "query contains disallowed operation: script"},
			{Keyword: "run", Message: "query contains disallowed operation: run"},
			{Keyword: "dump", Message: "query contains disallowed operation: dump"},
			{Keyword: "crawl", Message: "query contains disallowed operation: crawl"},
		},
		Patterns: []PatternRule{
			{
				Name:    "unscoped-full-corpus",
				Pattern: `index\s*=\s*\*`,
				Message: "searching all indexes (index=*) is expensive; scope to a specific index",
			},
			{
				Name:    "unbounded-range",
				Pattern: `earliest\s*=\s*0(\s|$)`,
				Message: "earliest=0 searches all historical data; use a bounded range like earliest=-24h",
			},
			{
				Name:    "leading-wildcard",
				Pattern: `(^|\s)\*\S`,
				Message: "leading wildcards prevent index optimization and scan broadly",
			},
		},
	}
	if err := rs.compile(); err != nil {
		// Built-in patterns are fixed at build time; a bad one is a bug.
		panic(err)
	}
	return rs
}

// LoadRuleSet reads a YAML rule document from path and returns the
// compiled rule set. The document fully replaces the defaults.
func LoadRuleSet(path string) (*RuleSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rule set: %w", err)
	}
	return ParseRuleSet(data)
}

// ParseRuleSet decodes and compiles a YAML rule document.
func ParseRuleSet(data []byte) (*RuleSet, error) {
	var rs RuleSet
	if err := yaml.Unmarshal(data, &rs); err != nil {
		return nil, fmt.Errorf("decode rule set: %w", err)
	}
	if err := validator.New().Struct(&rs); err != nil {
		return nil, fmt.Errorf("invalid rule set: %w", err)
	}
	if err := rs.compile(); err != nil {
		return nil, err
	}
	return &rs, nil
}

func (rs *RuleSet) compile() error {
	for i := range rs.Patterns {
		re, err := regexp.Compile(rs.Patterns[i].Pattern)
		if err != nil {
			return fmt.Errorf("compile pattern %q: %w", rs.Patterns[i].Name, err)
		}
		rs.Patterns[i].re = re
	}
	return nil
}
