package harness

import (
	"context"
	"errors"
	"testing"

	"veridata/gatekeeper/pkg/rules/catalog"
	"veridata/gatekeeper/pkg/rules/condition"
	"veridata/gatekeeper/pkg/storage"
)

func creditRules() []catalog.Rule {
	return []catalog.Rule{
		{
			ID:        "customer-data-valid",
			Entity:    "customers",
			Order:     1,
			ErrorCode: "CUSTOMER_DATA_INVALID",
			Message:   "Invalid customer data",
			Predicate: &condition.Predicate{
				Check: &condition.Condition{All: []*condition.Condition{
					{Field: "Email", Operator: condition.OperatorNotEmpty},
					{Field: "Address", Operator: condition.OperatorPresent},
				}},
			},
		},
		{
			ID:        "credit-limit-approved",
			Entity:    "customers",
			Order:     2,
			ErrorCode: "CREDIT_LIMIT_EXCEEDS_APPROVAL",
			Message:   "Credit limit exceeds approval threshold",
			Predicate: &condition.Predicate{
				Require: []condition.Requirement{{
					When: &condition.Condition{
						Field:    "CreditLimit",
						Operator: condition.OperatorGreaterThan,
						Value:    1000000,
					},
					Lookup: &condition.LookupSpec{
						Entity: "CustomerApprovals",
						Match:  map[string]string{"CustomerID": "CustomerID"},
						Where:  map[string]any{"ApprovalStatus": "APPROVED"},
					},
				}},
			},
		},
	}
}

func TestFakeStoreVetoesInvalidData(t *testing.T) {
	ctx := context.Background()
	store := NewFakeStore(t, creditRules())

	err := store.Submit(ctx, t, "customers", "c-1", storage.Row{
		"Email":   "",
		"Address": nil,
	})
	verr := ExpectViolation(t, err, "^CUSTOMER_DATA_INVALID$")
	if verr.Entity != "customers" {
		t.Errorf("unexpected entity: %s", verr.Entity)
	}
	if store.Has("customers", "c-1") {
		t.Error("vetoed row must not be persisted")
	}
}

func TestFakeStoreAcceptsValidData(t *testing.T) {
	ctx := context.Background()
	store := NewFakeStore(t, creditRules())

	err := store.Submit(ctx, t, "customers", "c-1", storage.Row{
		"Email":       "test@example.com",
		"Address":     "1 Main St",
		"CreditLimit": 500000,
	})
	ExpectAccepted(t, err)
	if !store.Has("customers", "c-1") {
		t.Error("accepted row must be persisted")
	}
}

func TestFakeStoreCreditApprovalLookup(t *testing.T) {
	ctx := context.Background()
	store := NewFakeStore(t, creditRules())

	row := storage.Row{
		"CustomerID":  "c-1",
		"Email":       "test@example.com",
		"Address":     "1 Main St",
		"CreditLimit": 1500000,
	}

	// No approval record: vetoed.
	err := store.Submit(ctx, t, "customers", "c-1", row)
	ExpectViolation(t, err, "CREDIT_LIMIT")

	// With an approved record: accepted.
	store.Seed("CustomerApprovals", "a-1", storage.Row{
		"CustomerID":     "c-1",
		"ApprovalStatus": "APPROVED",
	})
	err = store.Submit(ctx, t, "customers", "c-1", row)
	ExpectAccepted(t, err)
}

func TestExpectNoViolationPassesThroughOtherErrors(t *testing.T) {
	plain := errors.New("disk full")
	ExpectNoViolation(t, plain)
	ExpectNoViolation(t, nil)
}

func TestExpectUnavailable(t *testing.T) {
	store := NewFakeStore(t, []catalog.Rule{{
		ID:        "broken-lookup",
		Entity:    "customers",
		Order:     1,
		ErrorCode: "APPROVAL_REQUIRED",
		Predicate: catalog.PredicateFunc(func(ctx context.Context, row storage.Row, reader storage.Reader) (bool, error) {
			return false, errors.New("store unreachable")
		}),
	}})

	err := store.Submit(context.Background(), t, "customers", "c-1", storage.Row{})
	uerr := ExpectUnavailable(t, err)
	if uerr.RuleID != "broken-lookup" {
		t.Errorf("unexpected rule: %s", uerr.RuleID)
	}
	if store.Has("customers", "c-1") {
		t.Error("unevaluable write must not be persisted")
	}
}

func TestFakeStoreCatalogReload(t *testing.T) {
	ctx := context.Background()
	store := NewFakeStore(t, creditRules())

	// Conflicting reload is rejected; the old rules stay in force.
	conflict := []catalog.Rule{
		creditRules()[0],
		func() catalog.Rule { r := creditRules()[1]; r.Order = 1; return r }(),
	}
	err := store.Catalog().Load(conflict)
	var cerr *catalog.ConflictError
	if !errors.As(err, &cerr) {
		t.Fatalf("expected *catalog.ConflictError, got %v", err)
	}

	err = store.Submit(ctx, t, "customers", "c-x", storage.Row{"Email": ""})
	ExpectViolation(t, err, "CUSTOMER_DATA_INVALID")
}
