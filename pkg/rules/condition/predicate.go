package condition

import (
	"context"
	"fmt"

	"veridata/gatekeeper/pkg/storage"
)

// LookupSpec describes a cross-entity existence requirement: rows of
// Entity matching the combined filter must exist (or must not, when Absent
// is set).
type LookupSpec struct {
	// Entity is the entity to look up.
	Entity string `yaml:"entity"`

	// Match maps lookup columns to fields of the row under evaluation.
	// Example: {CustomerID: CustomerID} requires the looked-up row's
	// CustomerID to equal the candidate row's CustomerID.
	Match map[string]string `yaml:"match,omitempty"`

	// Where adds static equality filters on the looked-up rows.
	// Example: {ApprovalStatus: APPROVED}.
	Where map[string]any `yaml:"where,omitempty"`

	// Absent inverts the requirement: no matching row may exist.
	Absent bool `yaml:"absent,omitempty"`
}

// Validate checks the lookup spec for structural problems.
func (l *LookupSpec) Validate() error {
	if l.Entity == "" {
		return fmt.Errorf("lookup entity cannot be empty")
	}
	if len(l.Match) == 0 && len(l.Where) == 0 {
		return fmt.Errorf("lookup on %q needs at least one match or where filter", l.Entity)
	}
	return nil
}

// Requirement is a guarded cross-entity lookup: when the guard condition
// matches the row (or there is no guard), the lookup requirement must
// hold.
type Requirement struct {
	// When guards the requirement. Nil means the requirement always
	// applies.
	When *Condition `yaml:"when,omitempty"`

	// Lookup is the cross-entity requirement to enforce.
	Lookup *LookupSpec `yaml:"lookup"`
}

// Validate checks the requirement for structural problems.
func (r *Requirement) Validate() error {
	if r.When != nil {
		if err := r.When.Validate(); err != nil {
			return fmt.Errorf("invalid guard: %w", err)
		}
	}
	if r.Lookup == nil {
		return fmt.Errorf("requirement needs a lookup")
	}
	return r.Lookup.Validate()
}

// Predicate is the declarative rule predicate: an optional row check plus
// any number of guarded cross-entity requirements. A row satisfies the
// predicate when the check matches and every applicable requirement holds.
//
// Predicate implements catalog.Predicate. A reader failure during a
// requirement lookup is returned as an error so the evaluator can report
// the rule as unevaluable rather than satisfied.
type Predicate struct {
	// Check is the row-local condition. Nil means no row-local check.
	Check *Condition `yaml:"check,omitempty"`

	// Require lists guarded cross-entity requirements.
	Require []Requirement `yaml:"require,omitempty"`
}

// Validate checks the predicate for structural problems.
func (p *Predicate) Validate() error {
	if p.Check == nil && len(p.Require) == 0 {
		return fmt.Errorf("predicate needs a check or at least one requirement")
	}
	if p.Check != nil {
		if err := p.Check.Validate(); err != nil {
			return fmt.Errorf("invalid check: %w", err)
		}
	}
	for i := range p.Require {
		if err := p.Require[i].Validate(); err != nil {
			return fmt.Errorf("invalid requirement %d: %w", i, err)
		}
	}
	return nil
}

// Evaluate reports whether the row satisfies the predicate.
func (p *Predicate) Evaluate(ctx context.Context, row storage.Row, reader storage.Reader) (bool, error) {
	if p.Check != nil {
		ok, err := p.Check.Matches(row)
		if err != nil {
			return false, fmt.Errorf("check failed to evaluate: %w", err)
		}
		if !ok {
			return false, nil
		}
	}

	for i := range p.Require {
		ok, err := p.evaluateRequirement(ctx, &p.Require[i], row, reader)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}

	return true, nil
}

// evaluateRequirement enforces one guarded lookup requirement.
func (p *Predicate) evaluateRequirement(ctx context.Context, req *Requirement, row storage.Row, reader storage.Reader) (bool, error) {
	if req.When != nil {
		applies, err := req.When.Matches(row)
		if err != nil {
			return false, fmt.Errorf("guard failed to evaluate: %w", err)
		}
		if !applies {
			return true, nil
		}
	}

	if reader == nil {
		return false, fmt.Errorf("lookup on %q requires a reader, none configured", req.Lookup.Entity)
	}

	filter := storage.Row{}
	for col, val := range req.Lookup.Where {
		filter[col] = val
	}
	for col, field := range req.Lookup.Match {
		filter[col] = row[field]
	}

	matches, err := reader.Lookup(ctx, req.Lookup.Entity, filter)
	if err != nil {
		return false, fmt.Errorf("lookup on %q failed: %w", req.Lookup.Entity, err)
	}

	if req.Lookup.Absent {
		return len(matches) == 0, nil
	}
	return len(matches) > 0, nil
}
