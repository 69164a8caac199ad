package integrity

import (
	"context"
	"log/slog"
	"time"

	"veridata/gatekeeper/pkg/rules/catalog"
	"veridata/gatekeeper/pkg/storage"
)

// EvaluatorConfig contains configuration for the evaluator.
type EvaluatorConfig struct {
	// LookupTimeout bounds each cross-entity lookup a predicate performs.
	// A lookup that exceeds it surfaces as *UnavailableError, not a hang.
	// Default: 5 seconds
	LookupTimeout time.Duration
}

// DefaultEvaluatorConfig returns the default evaluator configuration.
func DefaultEvaluatorConfig() *EvaluatorConfig {
	return &EvaluatorConfig{
		LookupTimeout: 5 * time.Second,
	}
}

// Evaluator checks candidate writes against the rule catalog.
//
// Evaluation is collect-all, not fail-fast: every rule is evaluated
// against every row and all violations are gathered before returning, so
// callers get the complete diagnostic set rather than just the first
// failure. Given the same catalog snapshot and candidate write, Evaluate
// is pure and returns identical results on repeated calls.
type Evaluator struct {
	catalog *catalog.Catalog
	reader  storage.Reader
	config  *EvaluatorConfig
	logger  *slog.Logger
}

// NewEvaluator creates an evaluator over the given catalog. The reader is
// used for cross-entity lookups inside rule predicates; it may be nil when
// no rule needs lookups.
func NewEvaluator(cfg *EvaluatorConfig, cat *catalog.Catalog, reader storage.Reader, logger *slog.Logger) *Evaluator {
	if cfg == nil {
		cfg = DefaultEvaluatorConfig()
	}
	if cfg.LookupTimeout <= 0 {
		cfg.LookupTimeout = 5 * time.Second
	}
	if logger == nil {
		logger = slog.Default().With("component", "integrity.evaluator")
	}
	return &Evaluator{
		catalog: cat,
		reader:  reader,
		config:  cfg,
		logger:  logger,
	}
}

// Evaluate checks the candidate write against the currently active
// ruleset. The ruleset is snapshotted once at the start, so a concurrent
// catalog reload never produces a mixed verdict.
func (e *Evaluator) Evaluate(ctx context.Context, write *CandidateWrite) (*VerificationResult, error) {
	return e.EvaluateSnapshot(ctx, e.catalog.Snapshot(), write)
}

// EvaluateSnapshot checks the candidate write against a fixed ruleset
// snapshot. An *UnavailableError is returned when a rule's dependency
// lookup fails or times out; an unevaluable rule is never treated as
// satisfied.
func (e *Evaluator) EvaluateSnapshot(ctx context.Context, rs *catalog.Ruleset, write *CandidateWrite) (*VerificationResult, error) {
	result := &VerificationResult{Accepted: true}
	if write == nil || len(write.Rows) == 0 {
		return result, nil
	}

	rules := rs.RulesFor(write.Entity)
	if len(rules) == 0 {
		return result, nil
	}

	start := time.Now()
	for i := range rules {
		rule := &rules[i]
		for _, row := range write.Rows {
			ok, err := e.evaluateRule(ctx, rule, row.Proposed)
			if err != nil {
				return nil, &UnavailableError{
					Entity: write.Entity,
					RuleID: rule.ID,
					RowID:  row.ID,
					Cause:  err,
				}
			}
			if ok {
				continue
			}

			v := Violation{
				RuleID:    rule.ID,
				RowID:     row.ID,
				ErrorCode: rule.ErrorCode,
				Message:   rule.Message,
			}
			if rule.Severity == catalog.SeverityWarning {
				result.Warnings = append(result.Warnings, v)
			} else {
				result.Violations = append(result.Violations, v)
			}
		}
	}

	result.Accepted = len(result.Violations) == 0

	e.logger.Debug("candidate write evaluated",
		"entity", write.Entity,
		"rows", len(write.Rows),
		"rules", len(rules),
		"accepted", result.Accepted,
		"violations", len(result.Violations),
		"warnings", len(result.Warnings),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return result, nil
}

// evaluateRule runs one rule predicate against one proposed row, bounding
// any cross-entity lookups with the configured timeout.
func (e *Evaluator) evaluateRule(ctx context.Context, rule *catalog.Rule, proposed storage.Row) (bool, error) {
	lookupCtx, cancel := context.WithTimeout(ctx, e.config.LookupTimeout)
	defer cancel()

	return rule.Predicate.Evaluate(lookupCtx, proposed, e.reader)
}
