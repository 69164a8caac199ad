package storage

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryEngine implements Engine using in-memory tables. This is the
// default backend for tests and single-process embedding; all data is lost
// when the process exits.
//
// MemoryEngine is thread-safe. Commits are serialized, but reads may run
// concurrently with an in-flight commit's hook evaluation, relying on the
// snapshot the hook was given.
type MemoryEngine struct {
	// tables maps entity name to row identifier to row.
	tables map[string]map[string]Row

	// mu protects tables.
	mu sync.RWMutex

	// hooks are the registered before-commit veto hooks.
	hooks   []CommitHook
	hooksMu sync.RWMutex

	// commitMu serializes commit hook evaluation and apply.
	commitMu sync.Mutex

	// usage accumulates access-pattern counters.
	usage *usageTracker

	logger *slog.Logger
}

// NewMemoryEngine creates an empty in-memory engine.
func NewMemoryEngine() *MemoryEngine {
	return &MemoryEngine{
		tables: make(map[string]map[string]Row),
		usage:  newUsageTracker(),
		logger: slog.Default().With("component", "storage.memory"),
	}
}

// RegisterHook adds a before-commit veto hook.
func (e *MemoryEngine) RegisterHook(hook CommitHook) {
	e.hooksMu.Lock()
	defer e.hooksMu.Unlock()
	e.hooks = append(e.hooks, hook)
}

// Lookup returns all rows of the entity matching the filter. A nil or
// empty filter returns every row.
func (e *MemoryEngine) Lookup(ctx context.Context, entity string, filter Row) ([]Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()

	e.mu.RLock()
	table := e.tables[entity]
	var out []Row
	var examined int64
	for _, row := range table {
		examined++
		if matchesFilter(row, filter) {
			out = append(out, row.Clone())
		}
	}
	e.mu.RUnlock()

	if len(filter) == 0 {
		e.usage.RecordScan(entity, "primary")
	} else {
		e.usage.RecordSeek(entity, indexFor(filter))
	}
	e.usage.RecordStatement(lookupFingerprint(entity, filter), examined, 0, time.Since(start))

	return out, nil
}

// Rows returns a snapshot copy of all rows currently stored for the
// entity, keyed by row identifier. Intended for assertions and debugging;
// it does not touch the usage counters.
func (e *MemoryEngine) Rows(entity string) map[string]Row {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make(map[string]Row, len(e.tables[entity]))
	for id, row := range e.tables[entity] {
		out[id] = row.Clone()
	}
	return out
}

// Seed stores a row directly, bypassing transactions and commit hooks.
// Intended for bootstrapping reference data and test fixtures.
func (e *MemoryEngine) Seed(entity, id string, row Row) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.tables[entity] == nil {
		e.tables[entity] = make(map[string]Row)
	}
	e.tables[entity][id] = row.Clone()
}

// IndexUsage returns the current per-(object, index) counters.
func (e *MemoryEngine) IndexUsage(ctx context.Context) ([]IndexUsage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return e.usage.IndexUsage(), nil
}

// StatementStats returns the current per-statement counters.
func (e *MemoryEngine) StatementStats(ctx context.Context) ([]StatementStat, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return e.usage.StatementStats(), nil
}

// Begin opens a new write transaction.
func (e *MemoryEngine) Begin(ctx context.Context) (Txn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &memTxn{
		engine: e,
		id:     uuid.NewString(),
		staged: make(map[stageKey]int),
	}, nil
}

// Close releases engine resources. The memory engine holds none.
func (e *MemoryEngine) Close() error {
	return nil
}

// exists reports whether the row is present, recording the internal point
// read on the usage counters.
func (e *MemoryEngine) exists(entity, id string) (Row, bool) {
	e.mu.RLock()
	row, ok := e.tables[entity][id]
	e.mu.RUnlock()

	e.usage.RecordLookup(entity, "primary")
	if !ok {
		return nil, false
	}
	return row.Clone(), true
}

// apply writes the staged images to the tables. Called with commitMu held.
func (e *MemoryEngine) apply(images []RowImage) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, img := range images {
		if e.tables[img.Entity] == nil {
			e.tables[img.Entity] = make(map[string]Row)
		}
		e.tables[img.Entity][img.ID] = img.Proposed.Clone()
	}
}

// stageKey identifies a staged row within a transaction.
type stageKey struct {
	entity string
	id     string
}

// memTxn is a pending write transaction against a MemoryEngine.
type memTxn struct {
	engine *MemoryEngine
	id     string

	mu      sync.Mutex
	images  []RowImage
	staged  map[stageKey]int
	done    bool
}

// ID returns the transaction identifier.
func (t *memTxn) ID() string {
	return t.id
}

// Insert stages a new row.
func (t *memTxn) Insert(ctx context.Context, entity, id string, row Row) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.done {
		return ErrTxnDone
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	key := stageKey{entity: entity, id: id}
	if _, staged := t.staged[key]; staged {
		return fmt.Errorf("%w: %s/%s", ErrDuplicateRow, entity, id)
	}
	if _, ok := t.engine.exists(entity, id); ok {
		return fmt.Errorf("%w: %s/%s", ErrDuplicateRow, entity, id)
	}

	t.stage(key, RowImage{
		Entity:   entity,
		ID:       id,
		Op:       OpInsert,
		Proposed: row.Clone(),
	})
	return nil
}

// Update stages a change to an existing row.
func (t *memTxn) Update(ctx context.Context, entity, id string, row Row) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.done {
		return ErrTxnDone
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	key := stageKey{entity: entity, id: id}
	if idx, staged := t.staged[key]; staged {
		// Re-staging an already-staged row keeps its original op and
		// prior image; only the proposed state changes.
		t.images[idx].Proposed = row.Clone()
		return nil
	}

	prior, ok := t.engine.exists(entity, id)
	if !ok {
		return fmt.Errorf("%w: %s/%s", ErrRowNotFound, entity, id)
	}

	t.stage(key, RowImage{
		Entity:   entity,
		ID:       id,
		Op:       OpUpdate,
		Prior:    prior,
		Proposed: row.Clone(),
	})
	return nil
}

// Put stages an insert or an update depending on whether the row exists.
func (t *memTxn) Put(ctx context.Context, entity, id string, row Row) error {
	t.mu.Lock()
	key := stageKey{entity: entity, id: id}
	_, staged := t.staged[key]
	t.mu.Unlock()

	if staged {
		return t.Update(ctx, entity, id, row)
	}
	if _, ok := t.engine.exists(entity, id); ok {
		return t.Update(ctx, entity, id, row)
	}
	return t.Insert(ctx, entity, id, row)
}

// stage records a new row image. Called with t.mu held.
func (t *memTxn) stage(key stageKey, img RowImage) {
	t.staged[key] = len(t.images)
	t.images = append(t.images, img)
}

// Pending returns the staged row images in staging order.
func (t *memTxn) Pending() []RowImage {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]RowImage, len(t.images))
	copy(out, t.images)
	return out
}

// Commit runs commit hooks and applies the staged changes if all allow.
func (t *memTxn) Commit(ctx context.Context) error {
	t.mu.Lock()
	if t.done {
		t.mu.Unlock()
		return ErrTxnDone
	}
	images := make([]RowImage, len(t.images))
	copy(images, t.images)
	t.mu.Unlock()

	// Serialize commits so hooks observe a stable store. Hooks may still
	// perform reads through the engine; only the apply takes the table
	// write lock.
	t.engine.commitMu.Lock()
	defer t.engine.commitMu.Unlock()

	t.engine.hooksMu.RLock()
	hooks := t.engine.hooks
	t.engine.hooksMu.RUnlock()

	for _, hook := range hooks {
		decision := hook.BeforeCommit(ctx, images)
		if !decision.Allow {
			t.finish()
			t.engine.logger.Debug("commit vetoed",
				"txn_id", t.id,
				"pending", len(images),
				"reason", decision.Reason,
			)
			return decision.Reason
		}
	}

	start := time.Now()
	t.engine.apply(images)
	elapsed := time.Since(start)
	for _, img := range images {
		fp := "INSERT " + img.Entity
		if img.Op == OpUpdate {
			fp = "UPDATE " + img.Entity
		}
		t.engine.usage.RecordStatement(fp, 0, 1, elapsed/time.Duration(len(images)))
	}

	t.finish()
	return nil
}

// Rollback discards all staged changes. Safe to call after Commit.
func (t *memTxn) Rollback() error {
	t.finish()
	return nil
}

func (t *memTxn) finish() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.done = true
	t.images = nil
	t.staged = make(map[stageKey]int)
}

// matchesFilter reports whether every filter column matches the row value.
func matchesFilter(row, filter Row) bool {
	for col, want := range filter {
		got, ok := row[col]
		if !ok || !valuesEqual(got, want) {
			return false
		}
	}
	return true
}

// valuesEqual compares two values, treating numeric types of different
// widths as equal when their values match.
func valuesEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	an, aok := asFloat64(a)
	bn, bok := asFloat64(b)
	if aok && bok {
		return an == bn
	}
	return reflect.DeepEqual(a, b)
}

func asFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}
