package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"veridata/gatekeeper/pkg/config"
)

// Collector is the orchestrator for all Prometheus metrics in the
// gatekeeper. It owns the registry and the per-subsystem metric groups,
// and provides the recording interface the rest of the service uses.
//
// All recording methods are cheap and safe for concurrent use; when the
// collector is disabled they are no-ops.
type Collector struct {
	config   *config.MetricsConfig
	registry *prometheus.Registry

	// Verification gate metrics
	gateMetrics *GateMetrics

	// Telemetry sampler metrics
	samplerMetrics *SamplerMetrics
}

// NewCollector creates a new metrics collector with the specified
// configuration and Prometheus registry. If registry is nil, a fresh
// registry is created.
//
// Example:
//
//	cfg := &config.MetricsConfig{
//		Enabled:   true,
//		Namespace: "veridata",
//		Subsystem: "gatekeeper",
//	}
//	collector := metrics.NewCollector(cfg, nil)
func NewCollector(cfg *config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	if cfg.Namespace == "" {
		cfg.Namespace = "veridata"
	}
	if cfg.Subsystem == "" {
		cfg.Subsystem = "gatekeeper"
	}

	c := &Collector{
		config:   cfg,
		registry: registry,
	}

	c.gateMetrics = NewGateMetrics(cfg, registry)
	c.samplerMetrics = NewSamplerMetrics(cfg, registry)

	return c
}

// RecordVerification records one write verification outcome.
//
// Parameters:
//   - entity: the entity whose pending writes were verified
//   - decision: verification decision ("allowed", "rejected", "unavailable")
//   - duration: time spent evaluating all rules for the batch
func (c *Collector) RecordVerification(entity, decision string, duration time.Duration) {
	if !c.config.Enabled {
		return
	}

	c.gateMetrics.RecordVerification(entity, decision, duration)
}

// RecordViolation records one business rule violation.
//
// Parameters:
//   - ruleID: identifier of the violated rule
//   - errorCode: the rule's stable error code
func (c *Collector) RecordViolation(ruleID, errorCode string) {
	if !c.config.Enabled {
		return
	}

	c.gateMetrics.RecordViolation(ruleID, errorCode)
}

// RecordCatalogReload records a rule catalog reload attempt.
//
// Parameters:
//   - status: "success" or "failure"
func (c *Collector) RecordCatalogReload(status string) {
	if !c.config.Enabled {
		return
	}

	c.gateMetrics.RecordCatalogReload(status)
}

// RecordSamplingCycle records one telemetry sampling cycle.
//
// Parameters:
//   - status: "complete", "degraded", or "skipped"
//   - duration: wall time of the cycle
func (c *Collector) RecordSamplingCycle(status string, duration time.Duration) {
	if !c.config.Enabled {
		return
	}

	c.samplerMetrics.RecordCycle(status, duration)
}

// UpdateSamplerDegraded sets the sampler degradation gauge (1=degraded).
func (c *Collector) UpdateSamplerDegraded(degraded bool) {
	if !c.config.Enabled {
		return
	}

	c.samplerMetrics.UpdateDegraded(degraded)
}

// Registry returns the Prometheus registry used by this collector. It can
// be used to mount a /metrics endpoint:
//
//	http.Handle("/metrics", promhttp.HandlerFor(
//		collector.Registry(),
//		promhttp.HandlerOpts{},
//	))
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}
