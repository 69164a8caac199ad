package catalog

import "fmt"

// ConflictError indicates two rules for the same entity share an
// evaluation order. The load that produced it was rejected before
// activation; the previously active ruleset is unchanged.
type ConflictError struct {
	Entity string
	Order  int
	RuleA  string
	RuleB  string
}

// Error returns the error message.
func (e *ConflictError) Error() string {
	return fmt.Sprintf("catalog conflict: rules %q and %q for entity %q both have evaluation order %d",
		e.RuleA, e.RuleB, e.Entity, e.Order)
}
