package integrity

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"veridata/gatekeeper/pkg/rules/catalog"
	"veridata/gatekeeper/pkg/storage"
)

func fieldRule(id, entity string, order int, code, field string) catalog.Rule {
	return catalog.Rule{
		ID:        id,
		Entity:    entity,
		Order:     order,
		ErrorCode: code,
		Message:   field + " must not be empty",
		Predicate: catalog.PredicateFunc(func(ctx context.Context, row storage.Row, reader storage.Reader) (bool, error) {
			s, _ := row[field].(string)
			return s != "", nil
		}),
	}
}

func insertImage(entity, id string, row storage.Row) storage.RowImage {
	return storage.RowImage{Entity: entity, ID: id, Op: storage.OpInsert, Proposed: row}
}

func newTestCatalog(t *testing.T, rules ...catalog.Rule) *catalog.Catalog {
	t.Helper()
	cat := catalog.NewCatalog()
	if err := cat.Load(rules); err != nil {
		t.Fatalf("failed to load rules: %v", err)
	}
	return cat
}

func TestEvaluateNoRulesAccepts(t *testing.T) {
	cat := newTestCatalog(t)
	eval := NewEvaluator(nil, cat, nil, nil)

	result, err := eval.Evaluate(context.Background(), &CandidateWrite{
		Entity: "customers",
		Rows:   []storage.RowImage{insertImage("customers", "c-1", storage.Row{})},
	})
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if !result.Accepted {
		t.Error("write with zero matching rules must be accepted")
	}
	if len(result.Violations) != 0 {
		t.Errorf("expected no violations, got %d", len(result.Violations))
	}
}

func TestEvaluateCollectsAllViolations(t *testing.T) {
	cat := newTestCatalog(t,
		fieldRule("email", "customers", 1, "EMAIL_REQUIRED", "Email"),
		fieldRule("address", "customers", 2, "ADDRESS_REQUIRED", "Address"),
	)
	eval := NewEvaluator(nil, cat, nil, nil)

	result, err := eval.Evaluate(context.Background(), &CandidateWrite{
		Entity: "customers",
		Rows: []storage.RowImage{
			insertImage("customers", "c-1", storage.Row{"Email": "", "Address": ""}),
			insertImage("customers", "c-2", storage.Row{"Email": "ok@example.com", "Address": ""}),
		},
	})
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}

	if result.Accepted {
		t.Error("expected rejection")
	}
	// All rules against all rows: email fails for c-1 only, address fails
	// for both, in (rule order, row order) sequence.
	want := []Violation{
		{RuleID: "email", RowID: "c-1", ErrorCode: "EMAIL_REQUIRED", Message: "Email must not be empty"},
		{RuleID: "address", RowID: "c-1", ErrorCode: "ADDRESS_REQUIRED", Message: "Address must not be empty"},
		{RuleID: "address", RowID: "c-2", ErrorCode: "ADDRESS_REQUIRED", Message: "Address must not be empty"},
	}
	if !reflect.DeepEqual(result.Violations, want) {
		t.Errorf("violations mismatch:\n got %+v\nwant %+v", result.Violations, want)
	}
}

func TestEvaluateIdempotent(t *testing.T) {
	cat := newTestCatalog(t,
		fieldRule("email", "customers", 1, "EMAIL_REQUIRED", "Email"),
		fieldRule("address", "customers", 2, "ADDRESS_REQUIRED", "Address"),
	)
	eval := NewEvaluator(nil, cat, nil, nil)

	write := &CandidateWrite{
		Entity: "customers",
		Rows:   []storage.RowImage{insertImage("customers", "c-1", storage.Row{"Email": ""})},
	}

	snap := cat.Snapshot()
	first, err := eval.EvaluateSnapshot(context.Background(), snap, write)
	if err != nil {
		t.Fatalf("first EvaluateSnapshot failed: %v", err)
	}
	second, err := eval.EvaluateSnapshot(context.Background(), snap, write)
	if err != nil {
		t.Fatalf("second EvaluateSnapshot failed: %v", err)
	}

	if !reflect.DeepEqual(first, second) {
		t.Errorf("repeated evaluation differs:\n got %+v\nwant %+v", second, first)
	}
}

func TestEvaluateFailClosedOnLookupError(t *testing.T) {
	cause := errors.New("lookup timed out")
	cat := newTestCatalog(t, catalog.Rule{
		ID:        "needs-lookup",
		Entity:    "customers",
		Order:     1,
		ErrorCode: "APPROVAL_REQUIRED",
		Predicate: catalog.PredicateFunc(func(ctx context.Context, row storage.Row, reader storage.Reader) (bool, error) {
			return false, cause
		}),
	})
	eval := NewEvaluator(nil, cat, nil, nil)

	_, err := eval.Evaluate(context.Background(), &CandidateWrite{
		Entity: "customers",
		Rows:   []storage.RowImage{insertImage("customers", "c-1", storage.Row{})},
	})

	var uerr *UnavailableError
	if !errors.As(err, &uerr) {
		t.Fatalf("expected *UnavailableError, got %v", err)
	}
	if uerr.RuleID != "needs-lookup" || uerr.RowID != "c-1" {
		t.Errorf("unexpected unavailable details: %+v", uerr)
	}
	if !errors.Is(err, cause) {
		t.Error("expected cause to be wrapped")
	}
}

func TestEvaluateLookupTimeout(t *testing.T) {
	cat := newTestCatalog(t, catalog.Rule{
		ID:        "slow",
		Entity:    "customers",
		Order:     1,
		ErrorCode: "SLOW",
		Predicate: catalog.PredicateFunc(func(ctx context.Context, row storage.Row, reader storage.Reader) (bool, error) {
			select {
			case <-ctx.Done():
				return false, ctx.Err()
			case <-time.After(time.Second):
				return true, nil
			}
		}),
	})
	eval := NewEvaluator(&EvaluatorConfig{LookupTimeout: 5 * time.Millisecond}, cat, nil, nil)

	_, err := eval.Evaluate(context.Background(), &CandidateWrite{
		Entity: "customers",
		Rows:   []storage.RowImage{insertImage("customers", "c-1", storage.Row{})},
	})

	var uerr *UnavailableError
	if !errors.As(err, &uerr) {
		t.Fatalf("timeout must surface as *UnavailableError, got %v", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded cause, got %v", err)
	}
}

func TestEvaluateWarningSeverityDoesNotReject(t *testing.T) {
	warning := fieldRule("note", "customers", 1, "NOTE_MISSING", "Note")
	warning.Severity = catalog.SeverityWarning
	cat := newTestCatalog(t, warning)
	eval := NewEvaluator(nil, cat, nil, nil)

	result, err := eval.Evaluate(context.Background(), &CandidateWrite{
		Entity: "customers",
		Rows:   []storage.RowImage{insertImage("customers", "c-1", storage.Row{})},
	})
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}

	if !result.Accepted {
		t.Error("warning-severity failures must not reject the write")
	}
	if len(result.Warnings) != 1 {
		t.Fatalf("expected 1 warning, got %d", len(result.Warnings))
	}
	if result.Warnings[0].ErrorCode != "NOTE_MISSING" {
		t.Errorf("unexpected warning: %+v", result.Warnings[0])
	}
}

func TestEvaluateEmptyWrite(t *testing.T) {
	cat := newTestCatalog(t, fieldRule("email", "customers", 1, "EMAIL_REQUIRED", "Email"))
	eval := NewEvaluator(nil, cat, nil, nil)

	result, err := eval.Evaluate(context.Background(), &CandidateWrite{Entity: "customers"})
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if !result.Accepted {
		t.Error("empty candidate write must be accepted")
	}
}
