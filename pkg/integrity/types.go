package integrity

import "veridata/gatekeeper/pkg/storage"

// CandidateWrite is the set of rows proposed for insert/update against one
// entity within a single transaction. It is built from the transaction's
// pending row images and discarded when the transaction ends; it never
// outlives the transaction.
type CandidateWrite struct {
	// Entity is the entity all rows belong to.
	Entity string

	// Rows are the pending changes in staging order.
	Rows []storage.RowImage
}

// Violation is one failed rule against one row. Violations are ephemeral:
// they exist to drive the abort decision and the caller-visible error.
type Violation struct {
	// RuleID identifies the failed rule.
	RuleID string

	// RowID identifies the offending row within the entity.
	RowID string

	// ErrorCode is the rule's machine-readable error code.
	ErrorCode string

	// Message is the rule's human-readable message.
	Message string
}

// VerificationResult is the verdict for one candidate write.
//
// Invariant: Accepted is true exactly when Violations is empty. Warnings
// never affect acceptance; they carry failed warning-severity rules for
// diagnostics.
type VerificationResult struct {
	// Accepted indicates the write passed every error-severity rule.
	Accepted bool

	// Violations lists failed error-severity rules in (evaluation order,
	// row order) sequence.
	Violations []Violation

	// Warnings lists failed warning-severity rules in the same sequence.
	Warnings []Violation
}
