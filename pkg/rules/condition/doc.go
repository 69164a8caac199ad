// Package condition implements the declarative predicate language used by
// rule files.
//
// # Overview
//
// A predicate is a row-local condition tree (field operators composed with
// all/any/not) plus optional guarded cross-entity requirements ("when
// CreditLimit exceeds 1000000, an APPROVED approval row must exist").
// Predicates are pure with respect to the row and the visible store state,
// which keeps rule evaluation deterministic and retry-safe.
//
// # Example (YAML)
//
//	check:
//	  all:
//	    - field: Email
//	      operator: not_empty
//	    - field: Address
//	      operator: present
//	require:
//	  - when: {field: CreditLimit, operator: greater_than, value: 1000000}
//	    lookup:
//	      entity: customer_approvals
//	      match: {CustomerID: CustomerID}
//	      where: {ApprovalStatus: APPROVED}
//
// Lookup failures are returned as errors, never swallowed: an unevaluable
// requirement must not be conflated with a satisfied one.
package condition
