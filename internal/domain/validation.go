package domain

// ValidationOutcome is the result of checking a generated query against the
// safety and best-practice rule sets. Errors make the query unusable;
// warnings are advisory and never flip IsValid on their own.
//
// Both slices preserve rule declaration order so callers and tests can rely
// on deterministic message sequences.
type ValidationOutcome struct {
	// IsValid is false when the query is empty or matched at least one
	// disallowed operation.
	IsValid bool `json:"is_valid"`

	// Errors lists hard violations in rule declaration order.
	// Non-empty only when IsValid is false.
	Errors []string `json:"errors"`

	// Warnings lists soft findings (performance risks, missing best
	// practices) in rule declaration order, independent of IsValid.
	Warnings []string `json:"warnings"`
}

// AddError appends a hard violation and marks the outcome invalid.
func (o *ValidationOutcome) AddError(msg string) {
	o.Errors = append(o.Errors, msg)
	o.IsValid = false
}

// AddWarning appends an advisory finding without affecting validity.
func (o *ValidationOutcome) AddWarning(msg string) {
	o.Warnings = append(o.Warnings, msg)
}
