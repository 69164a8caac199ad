package integrity

import (
	"context"
	"log/slog"
	"time"

	"veridata/gatekeeper/pkg/storage"
)

// MetricsRecorder receives operational metrics from the interceptor. It is
// satisfied by the telemetry metrics collector; a nil recorder disables
// recording.
type MetricsRecorder interface {
	// RecordVerification records one per-entity verification and its
	// decision ("allowed", "rejected", "unavailable").
	RecordVerification(entity, decision string, duration time.Duration)

	// RecordViolation records one rule violation.
	RecordViolation(ruleID, errorCode string)
}

// Interceptor is the write-path integrity gate. It registers as a
// before-commit veto hook on the storage engine: it materializes the
// transaction's pending row images into per-entity candidate writes, runs
// the evaluator, and either allows the commit or vetoes it.
//
// The interceptor runs synchronously inside the committing transaction and
// holds no locks of its own; cross-entity lookups see whatever the
// enclosing transaction's isolation level guarantees. It never mutates
// candidate rows and never commits — it only vetoes.
type Interceptor struct {
	evaluator *Evaluator
	metrics   MetricsRecorder
	logger    *slog.Logger
}

// NewInterceptor creates an interceptor over the given evaluator. The
// metrics recorder may be nil.
func NewInterceptor(evaluator *Evaluator, metrics MetricsRecorder, logger *slog.Logger) *Interceptor {
	if logger == nil {
		logger = slog.Default().With("component", "integrity.interceptor")
	}
	return &Interceptor{
		evaluator: evaluator,
		metrics:   metrics,
		logger:    logger,
	}
}

// BeforeCommit implements storage.CommitHook. Any entity whose
// verification is not accepted vetoes the whole transaction with a
// *ViolationError. An *UnavailableError from the evaluator also vetoes:
// a write must never go through because the check could not run.
func (i *Interceptor) BeforeCommit(ctx context.Context, pending []storage.RowImage) storage.Decision {
	for _, write := range groupByEntity(pending) {
		start := time.Now()

		result, err := i.evaluator.Evaluate(ctx, write)
		if err != nil {
			i.record(write.Entity, "unavailable", time.Since(start))
			i.logger.Error("verification unavailable, vetoing write",
				"entity", write.Entity,
				"rows", len(write.Rows),
				"error", err,
			)
			return storage.Abort(err)
		}

		for _, w := range result.Warnings {
			i.logger.Warn("rule warning on accepted write",
				"entity", write.Entity,
				"rule_id", w.RuleID,
				"row_id", w.RowID,
				"error_code", w.ErrorCode,
			)
		}

		if !result.Accepted {
			i.record(write.Entity, "rejected", time.Since(start))
			if i.metrics != nil {
				for _, v := range result.Violations {
					i.metrics.RecordViolation(v.RuleID, v.ErrorCode)
				}
			}
			i.logger.Info("write vetoed",
				"entity", write.Entity,
				"rows", len(write.Rows),
				"violations", len(result.Violations),
				"primary_error_code", result.Violations[0].ErrorCode,
			)
			return storage.Abort(&ViolationError{
				Entity:     write.Entity,
				Violations: result.Violations,
			})
		}

		i.record(write.Entity, "allowed", time.Since(start))
	}

	return storage.Allow()
}

func (i *Interceptor) record(entity, decision string, duration time.Duration) {
	if i.metrics != nil {
		i.metrics.RecordVerification(entity, decision, duration)
	}
}

// groupByEntity splits pending row images into per-entity candidate
// writes, preserving first-seen entity order and staging order within each
// entity so verdicts are deterministic.
func groupByEntity(pending []storage.RowImage) []*CandidateWrite {
	var order []string
	byEntity := make(map[string]*CandidateWrite)

	for _, img := range pending {
		write, ok := byEntity[img.Entity]
		if !ok {
			write = &CandidateWrite{Entity: img.Entity}
			byEntity[img.Entity] = write
			order = append(order, img.Entity)
		}
		write.Rows = append(write.Rows, img)
	}

	out := make([]*CandidateWrite, 0, len(order))
	for _, entity := range order {
		out = append(out, byEntity[entity])
	}
	return out
}
