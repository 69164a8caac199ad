package integrity

import "fmt"

// ViolationError indicates one or more business rules failed for a
// candidate write and the transaction was aborted. The first violation is
// the primary user-facing error; the full ordered list stays available for
// diagnostics.
type ViolationError struct {
	Entity     string
	Violations []Violation
}

// Error returns the primary violation's code and message.
func (e *ViolationError) Error() string {
	if len(e.Violations) == 0 {
		return fmt.Sprintf("business rule violation on entity %q", e.Entity)
	}
	v := e.Violations[0]
	if len(e.Violations) == 1 {
		return fmt.Sprintf("business rule violation on entity %q: %s: %s", e.Entity, v.ErrorCode, v.Message)
	}
	return fmt.Sprintf("business rule violation on entity %q: %s: %s (and %d more)",
		e.Entity, v.ErrorCode, v.Message, len(e.Violations)-1)
}

// ErrorCode returns the primary violation's machine-readable code.
func (e *ViolationError) ErrorCode() string {
	if len(e.Violations) == 0 {
		return ""
	}
	return e.Violations[0].ErrorCode
}

// UnavailableError indicates a rule could not be evaluated because a
// dependency lookup failed or timed out. It is distinct from a rule
// failure so operators can tell "rejected" apart from "could not check";
// the interceptor treats it as an abort (fail-closed).
type UnavailableError struct {
	Entity string
	RuleID string
	RowID  string
	Cause  error
}

// Error returns the error message.
func (e *UnavailableError) Error() string {
	return fmt.Sprintf("rule %s could not be evaluated for %s/%s: %v",
		e.RuleID, e.Entity, e.RowID, e.Cause)
}

// Unwrap returns the underlying cause.
func (e *UnavailableError) Unwrap() error {
	return e.Cause
}
