package harness

import (
	"context"
	"testing"

	"veridata/gatekeeper/pkg/integrity"
	"veridata/gatekeeper/pkg/rules/catalog"
	"veridata/gatekeeper/pkg/storage"
)

// FakeStore is an in-memory storage engine with the integrity gate
// pre-wired, for exercising rules without a live store. Rows staged
// through Insert/Update/Submit go through the full verification path;
// rows seeded with Seed bypass it.
type FakeStore struct {
	engine  *storage.MemoryEngine
	catalog *catalog.Catalog
}

// NewFakeStore creates a fake store enforcing the given rules. Fails the
// test when the rules themselves do not load (order conflicts, invalid
// definitions).
func NewFakeStore(t *testing.T, rules []catalog.Rule) *FakeStore {
	t.Helper()

	engine := storage.NewMemoryEngine()
	cat := catalog.NewCatalog()
	if err := cat.Load(rules); err != nil {
		t.Fatalf("failed to load rules into fake store: %v", err)
	}

	evaluator := integrity.NewEvaluator(nil, cat, engine, nil)
	engine.RegisterHook(integrity.NewInterceptor(evaluator, nil, nil))

	return &FakeStore{
		engine:  engine,
		catalog: cat,
	}
}

// Engine returns the underlying engine for direct transaction control.
func (f *FakeStore) Engine() *storage.MemoryEngine {
	return f.engine
}

// Catalog returns the catalog, so tests can reload rules mid-scenario.
func (f *FakeStore) Catalog() *catalog.Catalog {
	return f.catalog
}

// Seed inserts a row directly, bypassing verification. Use it for
// reference data that rules look up (e.g. approval records).
func (f *FakeStore) Seed(entity, id string, row storage.Row) {
	f.engine.Seed(entity, id, row)
}

// Submit stages one row in a fresh transaction and commits it, returning
// whatever the commit returned. The verification verdict arrives as the
// commit error.
func (f *FakeStore) Submit(ctx context.Context, t *testing.T, entity, id string, row storage.Row) error {
	t.Helper()

	txn, err := f.engine.Begin(ctx)
	if err != nil {
		t.Fatalf("failed to begin transaction: %v", err)
	}

	if err := txn.Put(ctx, entity, id, row); err != nil {
		txn.Rollback()
		return err
	}
	return txn.Commit(ctx)
}

// Rows returns the committed rows of an entity, keyed by row identifier.
func (f *FakeStore) Rows(entity string) map[string]storage.Row {
	return f.engine.Rows(entity)
}

// Has reports whether a committed row exists.
func (f *FakeStore) Has(entity, id string) bool {
	_, ok := f.engine.Rows(entity)[id]
	return ok
}
