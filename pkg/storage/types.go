package storage

import (
	"context"
	"errors"
	"regexp"
	"time"
)

// Common sentinel errors returned by engine implementations.
var (
	// ErrTxnDone indicates the transaction has already been committed or rolled back.
	ErrTxnDone = errors.New("transaction already finished")

	// ErrDuplicateRow indicates an insert for a row identifier that already exists.
	ErrDuplicateRow = errors.New("row already exists")

	// ErrRowNotFound indicates an update for a row identifier that does not exist.
	ErrRowNotFound = errors.New("row not found")

	// ErrInvalidIdentifier indicates an entity or column name that is not a
	// valid identifier and cannot be used safely.
	ErrInvalidIdentifier = errors.New("invalid identifier")
)

// validIdentifier matches valid entity and column names. Only alphanumeric
// and underscore, starting with a letter or underscore. This prevents
// injection via identifier interpolation in SQL-backed engines.
var validIdentifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ValidIdentifier reports whether name is safe to use as an entity or
// column name.
func ValidIdentifier(name string) bool {
	return validIdentifier.MatchString(name)
}

// Row is a single row image, mapping column names to values.
type Row map[string]any

// Clone returns a shallow copy of the row. Values are shared; callers must
// not mutate nested structures of a cloned row.
func (r Row) Clone() Row {
	if r == nil {
		return nil
	}
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Op identifies the kind of pending change inside a transaction.
type Op string

const (
	// OpInsert is a proposed new row.
	OpInsert Op = "insert"

	// OpUpdate is a proposed change to an existing row.
	OpUpdate Op = "update"
)

// RowImage is one pending change inside a transaction: the prior state of
// the row (nil for inserts) and the proposed state. Row images exist only
// for the lifetime of their transaction.
type RowImage struct {
	// Entity is the logical table the row belongs to.
	Entity string

	// ID is the row identifier within the entity.
	ID string

	// Op is the kind of change (insert or update).
	Op Op

	// Prior is the row state before the change. Nil for inserts.
	Prior Row

	// Proposed is the row state after the change.
	Proposed Row
}

// Decision is the outcome of a before-commit hook: either the transaction
// may proceed, or it must abort with the given reason.
type Decision struct {
	// Allow indicates the transaction may proceed to commit.
	Allow bool

	// Reason explains the abort. Nil when Allow is true.
	Reason error
}

// Allow returns a decision permitting the commit.
func Allow() Decision {
	return Decision{Allow: true}
}

// Abort returns a decision vetoing the commit with the given reason.
func Abort(reason error) Decision {
	return Decision{Allow: false, Reason: reason}
}

// CommitHook is a veto callback invoked by the engine before a transaction
// commits. A hook must not mutate the pending row images. If any hook
// returns an abort decision, the engine rolls back the transaction and
// Commit returns the decision's reason.
type CommitHook interface {
	BeforeCommit(ctx context.Context, pending []RowImage) Decision
}

// Reader provides read access for cross-entity lookups. A nil or empty
// filter returns all rows of the entity; otherwise all filter columns must
// match exactly.
type Reader interface {
	Lookup(ctx context.Context, entity string, filter Row) ([]Row, error)
}

// IndexUsage is a point-in-time read of the engine's per-(object, index)
// access counters.
type IndexUsage struct {
	// Object is the entity the index belongs to.
	Object string

	// Index is the index name within the object.
	Index string

	// Seeks counts keyed index accesses.
	Seeks int64

	// Scans counts full scans of the index.
	Scans int64

	// Lookups counts internal point reads (e.g. prior-image fetches).
	Lookups int64
}

// StatementStat is the engine's per-statement resource consumption, keyed
// by a statement fingerprint.
type StatementStat struct {
	// Fingerprint identifies the statement shape, with literals stripped.
	Fingerprint string

	// Executions counts how many times the statement ran.
	Executions int64

	// LogicalReads counts rows examined across all executions.
	LogicalReads int64

	// LogicalWrites counts rows written across all executions.
	LogicalWrites int64

	// CPUTime is cumulative CPU time. Engines that do not expose CPU
	// accounting leave it zero.
	CPUTime time.Duration

	// Elapsed is cumulative wall-clock time.
	Elapsed time.Duration
}

// StatsProvider exposes engine usage counters. Implementations must serve
// reads from snapshots or internal short-lived locks only; a stats read
// must never block a write transaction.
type StatsProvider interface {
	// IndexUsage returns the current per-(object, index) counters.
	IndexUsage(ctx context.Context) ([]IndexUsage, error)

	// StatementStats returns the current per-statement counters.
	StatementStats(ctx context.Context) ([]StatementStat, error)
}

// Txn is a pending write transaction. Staged changes are invisible to
// readers until Commit succeeds; Commit first runs all registered commit
// hooks and rolls everything back if any hook vetoes.
type Txn interface {
	// ID returns the transaction identifier.
	ID() string

	// Insert stages a new row. Fails with ErrDuplicateRow if the
	// identifier already exists.
	Insert(ctx context.Context, entity, id string, row Row) error

	// Update stages a change to an existing row. Fails with
	// ErrRowNotFound if the identifier does not exist.
	Update(ctx context.Context, entity, id string, row Row) error

	// Put stages an insert or an update depending on whether the row
	// identifier already exists.
	Put(ctx context.Context, entity, id string, row Row) error

	// Pending returns the staged row images in staging order.
	Pending() []RowImage

	// Commit runs commit hooks and, if all allow, applies the staged
	// changes. On veto the transaction is rolled back and the hook's
	// reason is returned.
	Commit(ctx context.Context) error

	// Rollback discards all staged changes. Safe to call after Commit.
	Rollback() error
}

// Engine is the storage engine surface consumed by the integrity gate and
// the telemetry sampler: transactional writes with veto hooks, reads for
// cross-entity lookups, and usage counters.
type Engine interface {
	Reader
	StatsProvider

	// Begin opens a new write transaction.
	Begin(ctx context.Context) (Txn, error)

	// RegisterHook adds a before-commit veto hook. Hooks run in
	// registration order on every subsequent commit.
	RegisterHook(hook CommitHook)

	// Close releases engine resources.
	Close() error
}
