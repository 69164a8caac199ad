package storage

import (
	"sort"
	"strings"
	"sync"
	"time"
)

// usageTracker accumulates per-(object, index) access counters and
// per-statement resource counters. It is shared by the engine
// implementations so both expose the same counter semantics.
//
// Counter reads copy the current values under a short-lived lock; they
// never hold locks across engine operations, so a stats read cannot block
// a write transaction.
type usageTracker struct {
	mu      sync.Mutex
	indexes map[indexKey]*indexCounters
	stmts   map[string]*stmtCounters
}

type indexKey struct {
	object string
	index  string
}

type indexCounters struct {
	seeks   int64
	scans   int64
	lookups int64
}

type stmtCounters struct {
	executions    int64
	logicalReads  int64
	logicalWrites int64
	elapsed       time.Duration
}

func newUsageTracker() *usageTracker {
	return &usageTracker{
		indexes: make(map[indexKey]*indexCounters),
		stmts:   make(map[string]*stmtCounters),
	}
}

// indexFor derives the virtual index name used to record an access for a
// filtered lookup: the primary index for unfiltered or id-keyed access,
// otherwise a per-column index named after the lexicographically smallest
// filter column.
func indexFor(filter Row) string {
	if len(filter) == 0 {
		return "primary"
	}
	cols := make([]string, 0, len(filter))
	for col := range filter {
		cols = append(cols, col)
	}
	sort.Strings(cols)
	return "idx_" + strings.ToLower(cols[0])
}

func (t *usageTracker) counters(object, index string) *indexCounters {
	key := indexKey{object: object, index: index}
	c, ok := t.indexes[key]
	if !ok {
		c = &indexCounters{}
		t.indexes[key] = c
	}
	return c
}

// RecordSeek records a keyed access on an index.
func (t *usageTracker) RecordSeek(object, index string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.counters(object, index).seeks++
}

// RecordScan records a full scan of an index.
func (t *usageTracker) RecordScan(object, index string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.counters(object, index).scans++
}

// RecordLookup records an internal point read, such as a prior-image fetch
// during update staging.
func (t *usageTracker) RecordLookup(object, index string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.counters(object, index).lookups++
}

// RecordStatement records one execution of a statement.
func (t *usageTracker) RecordStatement(fingerprint string, reads, writes int64, elapsed time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.stmts[fingerprint]
	if !ok {
		s = &stmtCounters{}
		t.stmts[fingerprint] = s
	}
	s.executions++
	s.logicalReads += reads
	s.logicalWrites += writes
	s.elapsed += elapsed
}

// IndexUsage returns a copy of the current per-(object, index) counters in
// unspecified order.
func (t *usageTracker) IndexUsage() []IndexUsage {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]IndexUsage, 0, len(t.indexes))
	for key, c := range t.indexes {
		out = append(out, IndexUsage{
			Object:  key.object,
			Index:   key.index,
			Seeks:   c.seeks,
			Scans:   c.scans,
			Lookups: c.lookups,
		})
	}
	return out
}

// StatementStats returns a copy of the current per-statement counters in
// unspecified order.
func (t *usageTracker) StatementStats() []StatementStat {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]StatementStat, 0, len(t.stmts))
	for fp, s := range t.stmts {
		out = append(out, StatementStat{
			Fingerprint:   fp,
			Executions:    s.executions,
			LogicalReads:  s.logicalReads,
			LogicalWrites: s.logicalWrites,
			Elapsed:       s.elapsed,
		})
	}
	return out
}

// lookupFingerprint builds the statement fingerprint for a filtered read,
// with filter values stripped so executions aggregate by shape.
func lookupFingerprint(entity string, filter Row) string {
	if len(filter) == 0 {
		return "SELECT " + entity
	}
	cols := make([]string, 0, len(filter))
	for col := range filter {
		cols = append(cols, col)
	}
	sort.Strings(cols)
	return "SELECT " + entity + " WHERE " + strings.Join(cols, ",")
}
