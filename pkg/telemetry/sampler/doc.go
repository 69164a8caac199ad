// Package sampler reads storage engine usage counters and aggregates them
// into ranked telemetry reports.
//
// # Overview
//
// A Sampler takes one point-in-time read of the engine's counters per
// cycle and produces a Report:
//
//   - UsageSamples: one entry per tracked (object, index) pair, ordered by
//     descending seek count with deterministic tie-breaking
//   - QueryStats: the top-K statements by logical reads, re-ranked fresh
//     each cycle
//
// If one counter section cannot be read the sampler omits it, marks the
// report degraded, and keeps the rest. Sampling never touches the write
// path and never fails a write.
//
// The Scheduler drives cycles from a cron expression, skips a tick when
// the previous cycle is still running, bounds each cycle with a timeout,
// and hands completed reports to an optional ReportSink for persistence.
//
// # Usage
//
//	sam := sampler.NewSampler(&sampler.Config{TopK: 100}, engine, logger)
//	sched := sampler.NewScheduler(&sampler.SchedulerConfig{
//		Schedule: "@every 1m",
//	}, sam, historyStore, collector, logger)
//	if err := sched.Start(ctx); err != nil {
//		return err
//	}
//
// # Thread Safety
//
// Sampler and Scheduler are safe for concurrent use. Latest may be called
// from any goroutine while cycles run.
package sampler
