// Package catalog holds the declarative business-rule definitions the
// integrity gate evaluates on every write.
//
// # Overview
//
// A Rule pairs a target entity with a pure Predicate, an error code, a
// severity, and an evaluation order. Rules live in a Catalog whose active
// set is replaced atomically on reload: evaluations running concurrently
// with a reload see either the old set or the new one, never a mix.
//
// Evaluation orders must be unique per entity so evaluation is
// deterministic; Load rejects colliding rule sets with *ConflictError and
// keeps the previous set active.
//
// # Usage
//
//	cat := catalog.NewCatalog()
//	err := cat.Load([]catalog.Rule{{
//	    ID:        "customer-data-valid",
//	    Entity:    "customers",
//	    Order:     1,
//	    ErrorCode: "INVALID_CUSTOMER_DATA",
//	    Message:   "Invalid customer data",
//	    Predicate: pred,
//	}})
//
//	for _, rule := range cat.RulesFor("customers") {
//	    ok, err := rule.Predicate.Evaluate(ctx, row, reader)
//	    ...
//	}
//
// # Thread Safety
//
// Catalog is safe for arbitrarily many concurrent readers and occasional
// reloads. Rulesets are immutable after construction.
package catalog
