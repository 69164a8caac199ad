// Package integrity implements the write-path enforcement core: the rule
// evaluator and the write interceptor.
//
// # Overview
//
// The Evaluator checks a candidate write (the pending row images of one
// entity within a transaction) against the active rule catalog. Policy is
// collect-all: every rule runs against every row and the complete ordered
// violation list is returned.
//
// The Interceptor plugs the evaluator into the storage engine as a
// before-commit veto hook. Rejected writes abort the transaction with a
// *ViolationError carrying machine-readable error codes; rules that could
// not be checked (lookup failure or timeout) abort with an
// *UnavailableError — the gate fails closed.
//
// # Usage
//
//	evaluator := integrity.NewEvaluator(nil, cat, engine, logger)
//	interceptor := integrity.NewInterceptor(evaluator, collector, logger)
//	engine.RegisterHook(interceptor)
//
// # Concurrency
//
// The interceptor executes synchronously inside the committing
// transaction and introduces no locking of its own. The catalog snapshot
// is taken once per evaluation, so reloads never produce mixed verdicts.
package integrity
