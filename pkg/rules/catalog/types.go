package catalog

import (
	"context"
	"fmt"

	"veridata/gatekeeper/pkg/storage"
)

// Severity controls what a failed rule does to the enclosing write.
type Severity string

const (
	// SeverityError vetoes the write when the rule fails.
	SeverityError Severity = "error"

	// SeverityWarning reports the failure but allows the write.
	SeverityWarning Severity = "warning"
)

// Valid reports whether the severity is a known value.
func (s Severity) Valid() bool {
	return s == SeverityError || s == SeverityWarning
}

// Predicate decides whether a proposed row satisfies a rule. Predicates
// must be pure: given the same row and the same visible store state, they
// return the same result. The reader is provided for cross-entity lookups;
// a reader failure must be returned as an error, never treated as a pass.
type Predicate interface {
	Evaluate(ctx context.Context, row storage.Row, reader storage.Reader) (bool, error)
}

// PredicateFunc adapts a function to the Predicate interface.
type PredicateFunc func(ctx context.Context, row storage.Row, reader storage.Reader) (bool, error)

// Evaluate calls the function.
func (f PredicateFunc) Evaluate(ctx context.Context, row storage.Row, reader storage.Reader) (bool, error) {
	return f(ctx, row, reader)
}

// Rule is one declarative business constraint on an entity's writes.
type Rule struct {
	// ID uniquely identifies the rule across the catalog.
	ID string

	// Entity is the entity whose writes the rule constrains.
	Entity string

	// Order positions the rule in the entity's evaluation sequence.
	// Orders must be unique per entity.
	Order int

	// ErrorCode is the machine-readable code carried by violations of
	// this rule.
	ErrorCode string

	// Message is the human-readable violation message.
	Message string

	// Severity controls whether a failure vetoes the write.
	// Defaults to SeverityError.
	Severity Severity

	// Predicate decides whether a proposed row satisfies the rule.
	Predicate Predicate
}

// Validate checks the rule for structural problems.
func (r *Rule) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("rule id cannot be empty")
	}
	if r.Entity == "" {
		return fmt.Errorf("rule %s: entity cannot be empty", r.ID)
	}
	if r.ErrorCode == "" {
		return fmt.Errorf("rule %s: error code cannot be empty", r.ID)
	}
	if r.Predicate == nil {
		return fmt.Errorf("rule %s: predicate cannot be nil", r.ID)
	}
	if r.Severity != "" && !r.Severity.Valid() {
		return fmt.Errorf("rule %s: unknown severity %q", r.ID, r.Severity)
	}
	return nil
}

// severityOrDefault returns the rule's severity, defaulting to error.
func (r *Rule) severityOrDefault() Severity {
	if r.Severity == "" {
		return SeverityError
	}
	return r.Severity
}
