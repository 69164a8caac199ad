package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"veridata/gatekeeper/pkg/config"
)

// SamplerMetrics tracks metrics for the telemetry sampler.
//
// Metrics:
//   - veridata_gatekeeper_sampling_cycles_total: sampling cycles by status
//   - veridata_gatekeeper_sampling_duration_seconds: sampling cycle duration
//   - veridata_gatekeeper_sampler_degraded: 1 when the last cycle was partial
type SamplerMetrics struct {
	// Sampling cycles by outcome
	cyclesTotal *prometheus.CounterVec

	// Cycle duration histogram
	cycleDuration prometheus.Histogram

	// Degradation gauge for the most recent cycle
	degraded prometheus.Gauge
}

// NewSamplerMetrics creates and registers sampler metrics with the provided registry.
func NewSamplerMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *SamplerMetrics {
	sm := &SamplerMetrics{
		cyclesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "sampling_cycles_total",
				Help:      "Total number of telemetry sampling cycles",
			},
			[]string{"status"},
		),

		cycleDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "sampling_duration_seconds",
				Help:      "Duration of a telemetry sampling cycle in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 10), // 100µs to ~26s
			},
		),

		degraded: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "sampler_degraded",
				Help:      "Whether the most recent sampling cycle was partial (1=degraded)",
			},
		),
	}

	registry.MustRegister(
		sm.cyclesTotal,
		sm.cycleDuration,
		sm.degraded,
	)

	return sm
}

// RecordCycle records a sampling cycle with its status ("complete",
// "degraded", or "skipped").
func (sm *SamplerMetrics) RecordCycle(status string, duration time.Duration) {
	sm.cyclesTotal.WithLabelValues(status).Inc()
	sm.cycleDuration.Observe(duration.Seconds())
}

// UpdateDegraded sets the degradation gauge.
func (sm *SamplerMetrics) UpdateDegraded(degraded bool) {
	if degraded {
		sm.degraded.Set(1)
	} else {
		sm.degraded.Set(0)
	}
}
