// Package history persists telemetry sampling reports to SQLite.
//
// The Store implements sampler.ReportSink: each completed cycle is
// appended as one row with its usage samples and query stats encoded as
// JSON. Prune enforces the configured retention window; callers run it
// opportunistically after appends, so a missed prune only delays cleanup.
package history
