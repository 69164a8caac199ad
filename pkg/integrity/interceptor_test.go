package integrity

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"veridata/gatekeeper/pkg/rules/catalog"
	"veridata/gatekeeper/pkg/storage"
)

// recordingMetrics captures interceptor instrumentation calls.
type recordingMetrics struct {
	mu            sync.Mutex
	verifications []string
	violations    []string
}

func (m *recordingMetrics) RecordVerification(entity, decision string, duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.verifications = append(m.verifications, entity+":"+decision)
}

func (m *recordingMetrics) RecordViolation(ruleID, errorCode string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.violations = append(m.violations, ruleID+":"+errorCode)
}

func newGatedEngine(t *testing.T, metrics MetricsRecorder, rules ...catalog.Rule) *storage.MemoryEngine {
	t.Helper()

	engine := storage.NewMemoryEngine()
	cat := newTestCatalog(t, rules...)
	eval := NewEvaluator(nil, cat, engine, nil)
	engine.RegisterHook(NewInterceptor(eval, metrics, nil))
	return engine
}

func TestInterceptorVetoesInvalidWrite(t *testing.T) {
	ctx := context.Background()
	metrics := &recordingMetrics{}
	engine := newGatedEngine(t, metrics,
		fieldRule("email", "customers", 1, "CUSTOMER_DATA_INVALID", "Email"),
	)

	txn, _ := engine.Begin(ctx)
	if err := txn.Insert(ctx, "customers", "c-1", storage.Row{"Email": "", "Address": nil}); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	err := txn.Commit(ctx)
	var verr *ViolationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected *ViolationError, got %v", err)
	}
	if verr.ErrorCode() != "CUSTOMER_DATA_INVALID" {
		t.Errorf("expected primary error code CUSTOMER_DATA_INVALID, got %q", verr.ErrorCode())
	}

	// Vetoed row must not be persisted.
	if len(engine.Rows("customers")) != 0 {
		t.Error("vetoed row was persisted")
	}

	if len(metrics.verifications) != 1 || metrics.verifications[0] != "customers:rejected" {
		t.Errorf("unexpected verification metrics: %v", metrics.verifications)
	}
	if len(metrics.violations) != 1 || metrics.violations[0] != "email:CUSTOMER_DATA_INVALID" {
		t.Errorf("unexpected violation metrics: %v", metrics.violations)
	}
}

func TestInterceptorAllowsValidWrite(t *testing.T) {
	ctx := context.Background()
	metrics := &recordingMetrics{}
	engine := newGatedEngine(t, metrics,
		fieldRule("email", "customers", 1, "CUSTOMER_DATA_INVALID", "Email"),
	)

	txn, _ := engine.Begin(ctx)
	txn.Insert(ctx, "customers", "c-1", storage.Row{"Email": "test@example.com", "Address": "1 Main St"})
	if err := txn.Commit(ctx); err != nil {
		t.Fatalf("valid write must commit: %v", err)
	}

	if len(engine.Rows("customers")) != 1 {
		t.Error("accepted row was not persisted")
	}
	if len(metrics.verifications) != 1 || metrics.verifications[0] != "customers:allowed" {
		t.Errorf("unexpected verification metrics: %v", metrics.verifications)
	}
}

func TestInterceptorUnavailableVetoes(t *testing.T) {
	ctx := context.Background()
	cause := errors.New("store unreachable")
	engine := newGatedEngine(t, nil, catalog.Rule{
		ID:        "needs-lookup",
		Entity:    "customers",
		Order:     1,
		ErrorCode: "APPROVAL_REQUIRED",
		Predicate: catalog.PredicateFunc(func(ctx context.Context, row storage.Row, reader storage.Reader) (bool, error) {
			return false, cause
		}),
	})

	txn, _ := engine.Begin(ctx)
	txn.Insert(ctx, "customers", "c-1", storage.Row{})

	err := txn.Commit(ctx)
	var uerr *UnavailableError
	if !errors.As(err, &uerr) {
		t.Fatalf("unevaluable rule must veto with *UnavailableError, got %v", err)
	}
	if len(engine.Rows("customers")) != 0 {
		t.Error("write must not go through when the check could not run")
	}
}

func TestInterceptorMultiEntityTransaction(t *testing.T) {
	ctx := context.Background()
	engine := newGatedEngine(t, nil,
		fieldRule("email", "customers", 1, "CUSTOMER_DATA_INVALID", "Email"),
		fieldRule("customer", "orders", 1, "ORDER_CUSTOMER_REQUIRED", "CustomerID"),
	)

	// One entity valid, the other not: whole transaction is vetoed.
	txn, _ := engine.Begin(ctx)
	txn.Insert(ctx, "customers", "c-1", storage.Row{"Email": "a@example.com"})
	txn.Insert(ctx, "orders", "o-1", storage.Row{"CustomerID": ""})

	err := txn.Commit(ctx)
	var verr *ViolationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected *ViolationError, got %v", err)
	}
	if verr.Entity != "orders" {
		t.Errorf("expected veto from orders, got %q", verr.Entity)
	}
	if len(engine.Rows("customers")) != 0 || len(engine.Rows("orders")) != 0 {
		t.Error("vetoed transaction must persist nothing")
	}
}

func TestGroupByEntityPreservesOrder(t *testing.T) {
	pending := []storage.RowImage{
		{Entity: "orders", ID: "o-1"},
		{Entity: "customers", ID: "c-1"},
		{Entity: "orders", ID: "o-2"},
	}

	groups := groupByEntity(pending)
	if len(groups) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(groups))
	}
	if groups[0].Entity != "orders" || groups[1].Entity != "customers" {
		t.Errorf("expected first-seen order, got %s then %s", groups[0].Entity, groups[1].Entity)
	}
	if len(groups[0].Rows) != 2 {
		t.Errorf("expected 2 order rows, got %d", len(groups[0].Rows))
	}
	if groups[0].Rows[0].ID != "o-1" || groups[0].Rows[1].ID != "o-2" {
		t.Error("staging order within entity not preserved")
	}
}

func TestViolationErrorMessage(t *testing.T) {
	err := &ViolationError{
		Entity: "customers",
		Violations: []Violation{
			{RuleID: "email", ErrorCode: "EMAIL_REQUIRED", Message: "Email must not be empty"},
			{RuleID: "address", ErrorCode: "ADDRESS_REQUIRED", Message: "Address must not be empty"},
		},
	}

	msg := err.Error()
	if want := "EMAIL_REQUIRED"; !strings.Contains(msg, want) {
		t.Errorf("message %q should carry primary code %q", msg, want)
	}
	if want := "and 1 more"; !strings.Contains(msg, want) {
		t.Errorf("message %q should mention remaining violations", msg)
	}
}
