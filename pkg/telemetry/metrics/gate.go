package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"veridata/gatekeeper/pkg/config"
)

// GateMetrics tracks metrics for the write verification gate.
//
// Metrics:
//   - veridata_gatekeeper_verifications_total: verification outcomes by entity and decision
//   - veridata_gatekeeper_verification_duration_seconds: time spent verifying a batch
//   - veridata_gatekeeper_violations_total: rule violations by rule and error code
//   - veridata_gatekeeper_catalog_reloads_total: catalog reload attempts by status
type GateMetrics struct {
	// Verification outcomes per entity
	verificationsTotal *prometheus.CounterVec

	// Verification duration histogram
	verificationDuration *prometheus.HistogramVec

	// Rule violations per rule and error code
	violationsTotal *prometheus.CounterVec

	// Catalog reload attempts
	catalogReloadsTotal *prometheus.CounterVec
}

// NewGateMetrics creates and registers gate metrics with the provided registry.
func NewGateMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *GateMetrics {
	gm := &GateMetrics{
		verificationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "verifications_total",
				Help:      "Total number of write verifications",
			},
			[]string{"entity", "decision"},
		),

		verificationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "verification_duration_seconds",
				Help:      "Duration of write verification in seconds",
				// Rule evaluation should be fast (< 10ms) unless a
				// predicate does a cross-entity lookup.
				Buckets: prometheus.ExponentialBuckets(0.000001, 2, 15), // 1µs to 16ms
			},
			[]string{"entity"},
		),

		violationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "violations_total",
				Help:      "Total number of business rule violations",
			},
			[]string{"rule_id", "error_code"},
		),

		catalogReloadsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "catalog_reloads_total",
				Help:      "Total number of rule catalog reload attempts",
			},
			[]string{"status"},
		),
	}

	registry.MustRegister(
		gm.verificationsTotal,
		gm.verificationDuration,
		gm.violationsTotal,
		gm.catalogReloadsTotal,
	)

	return gm
}

// RecordVerification records a write verification outcome.
func (gm *GateMetrics) RecordVerification(entity, decision string, duration time.Duration) {
	gm.verificationsTotal.WithLabelValues(entity, decision).Inc()
	gm.verificationDuration.WithLabelValues(entity).Observe(duration.Seconds())
}

// RecordViolation records a single rule violation.
func (gm *GateMetrics) RecordViolation(ruleID, errorCode string) {
	gm.violationsTotal.WithLabelValues(ruleID, errorCode).Inc()
}

// RecordCatalogReload records a catalog reload attempt with its status
// ("success" or "failure").
func (gm *GateMetrics) RecordCatalogReload(status string) {
	gm.catalogReloadsTotal.WithLabelValues(status).Inc()
}
