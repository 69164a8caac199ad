package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
)

func newTestSQLiteEngine(t *testing.T) *SQLiteEngine {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test.db")
	engine, err := NewSQLiteEngine(path)
	if err != nil {
		t.Fatalf("failed to create SQLite engine: %v", err)
	}
	t.Cleanup(func() { engine.Close() })
	return engine
}

func TestSQLiteInsertCommit(t *testing.T) {
	ctx := context.Background()
	engine := newTestSQLiteEngine(t)

	txn, err := engine.Begin(ctx)
	if err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	if err := txn.Insert(ctx, "customers", "c-1", Row{"Email": "a@example.com"}); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if err := txn.Commit(ctx); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}

	rows, err := engine.Lookup(ctx, "customers", Row{"Email": "a@example.com"})
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
}

func TestSQLiteInsertDuplicate(t *testing.T) {
	ctx := context.Background()
	engine := newTestSQLiteEngine(t)

	if err := engine.Seed(ctx, "customers", "c-1", Row{"Email": "a@example.com"}); err != nil {
		t.Fatalf("Seed failed: %v", err)
	}

	txn, _ := engine.Begin(ctx)
	err := txn.Insert(ctx, "customers", "c-1", Row{"Email": "b@example.com"})
	if !errors.Is(err, ErrDuplicateRow) {
		t.Fatalf("expected ErrDuplicateRow, got %v", err)
	}
}

func TestSQLiteUpdateMissing(t *testing.T) {
	ctx := context.Background()
	engine := newTestSQLiteEngine(t)

	txn, _ := engine.Begin(ctx)
	err := txn.Update(ctx, "customers", "missing", Row{"Email": "x@example.com"})
	if !errors.Is(err, ErrRowNotFound) {
		t.Fatalf("expected ErrRowNotFound, got %v", err)
	}
}

func TestSQLiteHookVetoRollsBack(t *testing.T) {
	ctx := context.Background()
	engine := newTestSQLiteEngine(t)

	veto := errors.New("rejected")
	engine.RegisterHook(&vetoHook{reason: veto})

	txn, _ := engine.Begin(ctx)
	if err := txn.Insert(ctx, "customers", "c-1", Row{"Email": ""}); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if err := txn.Commit(ctx); !errors.Is(err, veto) {
		t.Fatalf("expected veto reason from Commit, got %v", err)
	}

	rows, err := engine.Lookup(ctx, "customers", nil)
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if len(rows) != 0 {
		t.Error("vetoed row must not be persisted")
	}
}

func TestSQLiteUpdateRoundTrip(t *testing.T) {
	ctx := context.Background()
	engine := newTestSQLiteEngine(t)

	if err := engine.Seed(ctx, "customers", "c-1", Row{"CreditLimit": float64(100)}); err != nil {
		t.Fatalf("Seed failed: %v", err)
	}

	txn, _ := engine.Begin(ctx)
	if err := txn.Update(ctx, "customers", "c-1", Row{"CreditLimit": float64(200)}); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	pending := txn.Pending()
	if len(pending) != 1 || pending[0].Op != OpUpdate {
		t.Fatalf("unexpected pending images: %+v", pending)
	}
	if pending[0].Prior["CreditLimit"] != float64(100) {
		t.Errorf("expected prior CreditLimit 100, got %v", pending[0].Prior["CreditLimit"])
	}

	if err := txn.Commit(ctx); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}

	rows, err := engine.Lookup(ctx, "customers", Row{"CreditLimit": float64(200)})
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected updated row to match, got %d rows", len(rows))
	}
}

func TestSQLiteInvalidIdentifier(t *testing.T) {
	ctx := context.Background()
	engine := newTestSQLiteEngine(t)

	txn, _ := engine.Begin(ctx)
	err := txn.Insert(ctx, "customers; DROP TABLE", "c-1", Row{})
	if !errors.Is(err, ErrInvalidIdentifier) {
		t.Fatalf("expected ErrInvalidIdentifier, got %v", err)
	}
}

func TestSQLiteUsageCounters(t *testing.T) {
	ctx := context.Background()
	engine := newTestSQLiteEngine(t)

	if err := engine.Seed(ctx, "customers", "c-1", Row{"Email": "a@example.com"}); err != nil {
		t.Fatalf("Seed failed: %v", err)
	}

	engine.Lookup(ctx, "customers", nil)
	engine.Lookup(ctx, "customers", Row{"Email": "a@example.com"})

	usage, err := engine.IndexUsage(ctx)
	if err != nil {
		t.Fatalf("IndexUsage failed: %v", err)
	}

	byIndex := make(map[string]IndexUsage)
	for _, u := range usage {
		if u.Object == "customers" {
			byIndex[u.Index] = u
		}
	}
	if byIndex["primary"].Scans != 1 {
		t.Errorf("expected 1 primary scan, got %d", byIndex["primary"].Scans)
	}
	if byIndex["idx_email"].Seeks != 1 {
		t.Errorf("expected 1 seek on idx_email, got %d", byIndex["idx_email"].Seeks)
	}
}

func TestSQLiteCloseIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "close.db")
	engine, err := NewSQLiteEngine(path)
	if err != nil {
		t.Fatalf("failed to create SQLite engine: %v", err)
	}

	if err := engine.Close(); err != nil {
		t.Fatalf("first Close failed: %v", err)
	}
	if err := engine.Close(); err != nil {
		t.Fatalf("second Close failed: %v", err)
	}
}
