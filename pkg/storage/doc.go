// Package storage defines the storage engine surface the integrity gate
// sits on, plus two engine implementations.
//
// # Overview
//
// The gate treats the storage engine as an external collaborator with
// three capabilities:
//
//   - Transactional writes with before-commit veto hooks (Engine, Txn,
//     CommitHook)
//   - Read access for cross-entity rule lookups (Reader)
//   - Access-pattern and per-statement usage counters (StatsProvider)
//
// Two implementations are provided:
//
//   - MemoryEngine: in-memory tables, no persistence (default, and the
//     backing store for the test harness)
//   - SQLiteEngine: JSON rows in SQLite with WAL and periodic checkpoints
//
// # Usage
//
//	engine := storage.NewMemoryEngine()
//	engine.RegisterHook(interceptor)
//
//	txn, _ := engine.Begin(ctx)
//	txn.Insert(ctx, "customers", "c-1", storage.Row{"Email": "a@b.c"})
//	err := txn.Commit(ctx) // runs hooks; veto rolls back
//
// # Thread Safety
//
// Both engines are safe for concurrent use. Commits are serialized;
// lookups and counter reads never block an in-flight write transaction.
package storage
