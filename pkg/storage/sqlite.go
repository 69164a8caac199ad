package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver
)

// SQLiteEngine implements Engine using SQLite for persistence. Rows are
// stored as JSON documents keyed by (entity, id), so arbitrary entities can
// be written without schema migrations.
//
// SQLiteEngine uses a write-ahead log (WAL) for better concurrent
// performance and periodic passive checkpoints to balance write performance
// with durability.
type SQLiteEngine struct {
	db     *sql.DB
	dbPath string

	snapshotInterval time.Duration
	done             chan struct{}
	closeOnce        sync.Once

	// hooks are the registered before-commit veto hooks.
	hooks   []CommitHook
	hooksMu sync.RWMutex

	// commitMu serializes commit hook evaluation and apply.
	commitMu sync.Mutex

	// usage accumulates access-pattern counters. SQLite exposes no
	// per-index DMVs, so the adapter tracks its own counters.
	usage *usageTracker

	// preparedStatements for the hot paths.
	upsertStmt *sql.Stmt
	getStmt    *sql.Stmt
	listStmt   *sql.Stmt

	logger *slog.Logger
}

// SQLiteEngineConfig configures the SQLite engine.
type SQLiteEngineConfig struct {
	// Path is the path to the SQLite database file.
	Path string

	// BusyTimeout is how long to wait for locks before failing.
	// Default: 5 seconds
	BusyTimeout time.Duration

	// SnapshotInterval is how often to checkpoint the WAL.
	// Default: 5 minutes
	SnapshotInterval time.Duration
}

// NewSQLiteEngine opens a SQLite-backed engine with default settings.
func NewSQLiteEngine(path string) (*SQLiteEngine, error) {
	return NewSQLiteEngineWithConfig(SQLiteEngineConfig{Path: path})
}

// NewSQLiteEngineWithConfig opens a SQLite-backed engine with custom
// configuration.
func NewSQLiteEngineWithConfig(cfg SQLiteEngineConfig) (*SQLiteEngine, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("db path cannot be empty")
	}
	if cfg.BusyTimeout == 0 {
		cfg.BusyTimeout = 5 * time.Second
	}
	if cfg.SnapshotInterval == 0 {
		cfg.SnapshotInterval = 5 * time.Minute
	}

	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=%d&_synchronous=NORMAL",
		cfg.Path, int(cfg.BusyTimeout.Milliseconds()))

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	e := &SQLiteEngine{
		db:               db,
		dbPath:           cfg.Path,
		snapshotInterval: cfg.SnapshotInterval,
		done:             make(chan struct{}),
		usage:            newUsageTracker(),
		logger:           slog.Default().With("component", "storage.sqlite"),
	}

	if err := e.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	if err := e.prepareStatements(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to prepare statements: %w", err)
	}

	go e.checkpointLoop()

	return e, nil
}

// initSchema creates the database schema if it doesn't exist.
func (e *SQLiteEngine) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS entity_rows (
		entity TEXT NOT NULL,
		id TEXT NOT NULL,
		data TEXT NOT NULL,
		updated_at INTEGER NOT NULL,
		created_at INTEGER NOT NULL,
		PRIMARY KEY (entity, id)
	);

	CREATE INDEX IF NOT EXISTS idx_entity ON entity_rows(entity);
	`

	_, err := e.db.Exec(schema)
	return err
}

// prepareStatements prepares SQL statements for reuse.
func (e *SQLiteEngine) prepareStatements() error {
	var err error

	e.upsertStmt, err = e.db.Prepare(`
		INSERT INTO entity_rows (entity, id, data, updated_at, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (entity, id) DO UPDATE SET
			data = excluded.data,
			updated_at = excluded.updated_at
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare upsert statement: %w", err)
	}

	e.getStmt, err = e.db.Prepare(`
		SELECT data FROM entity_rows WHERE entity = ? AND id = ?
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare get statement: %w", err)
	}

	e.listStmt, err = e.db.Prepare(`
		SELECT id, data FROM entity_rows WHERE entity = ? ORDER BY id
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare list statement: %w", err)
	}

	return nil
}

// RegisterHook adds a before-commit veto hook.
func (e *SQLiteEngine) RegisterHook(hook CommitHook) {
	e.hooksMu.Lock()
	defer e.hooksMu.Unlock()
	e.hooks = append(e.hooks, hook)
}

// Lookup returns all rows of the entity matching the filter.
func (e *SQLiteEngine) Lookup(ctx context.Context, entity string, filter Row) ([]Row, error) {
	if !ValidIdentifier(entity) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidIdentifier, entity)
	}

	start := time.Now()

	rows, err := e.listStmt.QueryContext(ctx, entity)
	if err != nil {
		return nil, fmt.Errorf("failed to query entity %q: %w", entity, err)
	}
	defer rows.Close()

	var out []Row
	var examined int64
	for rows.Next() {
		var id, data string
		if err := rows.Scan(&id, &data); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		examined++

		row := Row{}
		if err := json.Unmarshal([]byte(data), &row); err != nil {
			return nil, fmt.Errorf("failed to unmarshal row %s/%s: %w", entity, id, err)
		}
		if matchesFilter(row, filter) {
			out = append(out, row)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	if len(filter) == 0 {
		e.usage.RecordScan(entity, "primary")
	} else {
		e.usage.RecordSeek(entity, indexFor(filter))
	}
	e.usage.RecordStatement(lookupFingerprint(entity, filter), examined, 0, time.Since(start))

	return out, nil
}

// IndexUsage returns the current per-(object, index) counters.
func (e *SQLiteEngine) IndexUsage(ctx context.Context) ([]IndexUsage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return e.usage.IndexUsage(), nil
}

// StatementStats returns the current per-statement counters.
func (e *SQLiteEngine) StatementStats(ctx context.Context) ([]StatementStat, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return e.usage.StatementStats(), nil
}

// Begin opens a new write transaction.
func (e *SQLiteEngine) Begin(ctx context.Context) (Txn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &sqliteTxn{
		engine: e,
		id:     uuid.NewString(),
		staged: make(map[stageKey]int),
	}, nil
}

// Seed stores a row directly, bypassing transactions and commit hooks.
// Intended for bootstrapping reference data and test fixtures.
func (e *SQLiteEngine) Seed(ctx context.Context, entity, id string, row Row) error {
	data, err := json.Marshal(row)
	if err != nil {
		return fmt.Errorf("failed to marshal row %s/%s: %w", entity, id, err)
	}
	now := time.Now().Unix()
	_, err = e.upsertStmt.ExecContext(ctx, entity, id, string(data), now, now)
	if err != nil {
		return fmt.Errorf("failed to seed row %s/%s: %w", entity, id, err)
	}
	return nil
}

// get fetches one row, recording the internal point read.
func (e *SQLiteEngine) get(ctx context.Context, entity, id string) (Row, bool, error) {
	e.usage.RecordLookup(entity, "primary")

	var data string
	err := e.getStmt.QueryRowContext(ctx, entity, id).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to load row %s/%s: %w", entity, id, err)
	}

	row := Row{}
	if err := json.Unmarshal([]byte(data), &row); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal row %s/%s: %w", entity, id, err)
	}
	return row, true, nil
}

// apply writes the staged images inside a single SQL transaction.
func (e *SQLiteEngine) apply(ctx context.Context, images []RowImage) error {
	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	now := time.Now().Unix()
	for _, img := range images {
		data, err := json.Marshal(img.Proposed)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to marshal row %s/%s: %w", img.Entity, img.ID, err)
		}
		if _, err := tx.StmtContext(ctx, e.upsertStmt).ExecContext(ctx,
			img.Entity, img.ID, string(data), now, now); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to write row %s/%s: %w", img.Entity, img.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Close releases engine resources. Close is idempotent.
func (e *SQLiteEngine) Close() error {
	var closeErr error

	e.closeOnce.Do(func() {
		close(e.done)

		if e.upsertStmt != nil {
			e.upsertStmt.Close()
		}
		if e.getStmt != nil {
			e.getStmt.Close()
		}
		if e.listStmt != nil {
			e.listStmt.Close()
		}

		if e.db != nil {
			_, _ = e.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
			closeErr = e.db.Close()
		}
	})

	return closeErr
}

// checkpointLoop runs periodic WAL checkpoints.
func (e *SQLiteEngine) checkpointLoop() {
	ticker := time.NewTicker(e.snapshotInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			_, _ = e.db.Exec("PRAGMA wal_checkpoint(PASSIVE)")
		case <-e.done:
			return
		}
	}
}

// sqliteTxn is a pending write transaction against a SQLiteEngine.
type sqliteTxn struct {
	engine *SQLiteEngine
	id     string

	mu     sync.Mutex
	images []RowImage
	staged map[stageKey]int
	done   bool
}

// ID returns the transaction identifier.
func (t *sqliteTxn) ID() string {
	return t.id
}

// Insert stages a new row.
func (t *sqliteTxn) Insert(ctx context.Context, entity, id string, row Row) error {
	if !ValidIdentifier(entity) {
		return fmt.Errorf("%w: %q", ErrInvalidIdentifier, entity)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.done {
		return ErrTxnDone
	}

	key := stageKey{entity: entity, id: id}
	if _, staged := t.staged[key]; staged {
		return fmt.Errorf("%w: %s/%s", ErrDuplicateRow, entity, id)
	}
	_, ok, err := t.engine.get(ctx, entity, id)
	if err != nil {
		return err
	}
	if ok {
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
func (t *sqliteTxn) Update(ctx context.Context, entity, id string, row Row) error {
	if !ValidIdentifier(entity) {
		return fmt.Errorf("%w: %q", ErrInvalidIdentifier, entity)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.done {
		return ErrTxnDone
	}

	key := stageKey{entity: entity, id: id}
	if idx, staged := t.staged[key]; staged {
		t.images[idx].Proposed = row.Clone()
		return nil
	}

	prior, ok, err := t.engine.get(ctx, entity, id)
	if err != nil {
		return err
	}
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
func (t *sqliteTxn) Put(ctx context.Context, entity, id string, row Row) error {
	t.mu.Lock()
	_, staged := t.staged[stageKey{entity: entity, id: id}]
	t.mu.Unlock()

	if staged {
		return t.Update(ctx, entity, id, row)
	}
	_, ok, err := t.engine.get(ctx, entity, id)
	if err != nil {
		return err
	}
	if ok {
		return t.Update(ctx, entity, id, row)
	}
	return t.Insert(ctx, entity, id, row)
}

// stage records a new row image. Called with t.mu held.
func (t *sqliteTxn) stage(key stageKey, img RowImage) {
	t.staged[key] = len(t.images)
	t.images = append(t.images, img)
}

// Pending returns the staged row images in staging order.
func (t *sqliteTxn) Pending() []RowImage {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]RowImage, len(t.images))
	copy(out, t.images)
	return out
}

// Commit runs commit hooks and applies the staged changes if all allow.
func (t *sqliteTxn) Commit(ctx context.Context) error {
	t.mu.Lock()
	if t.done {
		t.mu.Unlock()
		return ErrTxnDone
	}
	images := make([]RowImage, len(t.images))
	copy(images, t.images)
	t.mu.Unlock()

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
	if err := t.engine.apply(ctx, images); err != nil {
		t.finish()
		return err
	}
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
func (t *sqliteTxn) Rollback() error {
	t.finish()
	return nil
}

func (t *sqliteTxn) finish() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.done = true
	t.images = nil
	t.staged = make(map[stageKey]int)
}
