// Package metrics provides Prometheus instrumentation for the gatekeeper.
//
// # Overview
//
// The Collector owns a prometheus.Registry and two metric groups:
//
//   - GateMetrics: verification outcomes, violation counts, and catalog
//     reload attempts for the write verification gate
//   - SamplerMetrics: sampling cycle outcomes and degradation state for
//     the telemetry sampler
//
// # Usage
//
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
//	collector.RecordVerification("orders", "rejected", 850*time.Microsecond)
//	http.Handle("/metrics", collector.Handler())
//
// # Thread Safety
//
// All recording methods are safe for concurrent use. When metrics are
// disabled in configuration every recording method is a no-op, so callers
// never need to guard instrumentation sites.
package metrics
