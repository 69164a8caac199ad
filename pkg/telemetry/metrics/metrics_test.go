package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"veridata/gatekeeper/pkg/config"
)

func testConfig() *config.MetricsConfig {
	return &config.MetricsConfig{
		Enabled:   true,
		Namespace: "test",
		Subsystem: "gatekeeper",
	}
}

func TestNewCollector(t *testing.T) {
	cfg := testConfig()
	registry := prometheus.NewRegistry()

	collector := NewCollector(cfg, registry)

	if collector == nil {
		t.Fatal("expected non-nil collector")
	}
	if collector.registry != registry {
		t.Error("collector registry not set correctly")
	}
	if collector.gateMetrics == nil || collector.samplerMetrics == nil {
		t.Error("metric groups not initialized")
	}
}

func TestNewCollectorDefaultsNamespace(t *testing.T) {
	cfg := &config.MetricsConfig{Enabled: true}
	collector := NewCollector(cfg, nil)

	if cfg.Namespace != "veridata" || cfg.Subsystem != "gatekeeper" {
		t.Errorf("expected default namespace/subsystem, got %q/%q",
			cfg.Namespace, cfg.Subsystem)
	}
	if collector.Registry() == nil {
		t.Error("expected a fresh registry when nil is passed")
	}
}

func TestRecordVerification(t *testing.T) {
	collector := NewCollector(testConfig(), prometheus.NewRegistry())

	tests := []struct {
		name     string
		entity   string
		decision string
	}{
		{"allowed write", "customers", "allowed"},
		{"rejected write", "customers", "rejected"},
		{"unavailable rule", "orders", "unavailable"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			collector.RecordVerification(tt.entity, tt.decision, 2*time.Millisecond)

			count := testutil.ToFloat64(
				collector.gateMetrics.verificationsTotal.WithLabelValues(tt.entity, tt.decision))
			if count != 1 {
				t.Errorf("expected counter 1, got %f", count)
			}
		})
	}
}

func TestRecordViolation(t *testing.T) {
	collector := NewCollector(testConfig(), prometheus.NewRegistry())

	collector.RecordViolation("credit-limit-approved", "CREDIT_LIMIT_EXCEEDS_APPROVAL")
	collector.RecordViolation("credit-limit-approved", "CREDIT_LIMIT_EXCEEDS_APPROVAL")

	count := testutil.ToFloat64(
		collector.gateMetrics.violationsTotal.WithLabelValues(
			"credit-limit-approved", "CREDIT_LIMIT_EXCEEDS_APPROVAL"))
	if count != 2 {
		t.Errorf("expected counter 2, got %f", count)
	}
}

func TestRecordCatalogReload(t *testing.T) {
	collector := NewCollector(testConfig(), prometheus.NewRegistry())

	collector.RecordCatalogReload("success")
	collector.RecordCatalogReload("failure")

	if got := testutil.ToFloat64(collector.gateMetrics.catalogReloadsTotal.WithLabelValues("success")); got != 1 {
		t.Errorf("expected success counter 1, got %f", got)
	}
	if got := testutil.ToFloat64(collector.gateMetrics.catalogReloadsTotal.WithLabelValues("failure")); got != 1 {
		t.Errorf("expected failure counter 1, got %f", got)
	}
}

func TestRecordSamplingCycle(t *testing.T) {
	collector := NewCollector(testConfig(), prometheus.NewRegistry())

	collector.RecordSamplingCycle("complete", 50*time.Millisecond)
	collector.RecordSamplingCycle("degraded", 30*time.Millisecond)

	if got := testutil.ToFloat64(collector.samplerMetrics.cyclesTotal.WithLabelValues("complete")); got != 1 {
		t.Errorf("expected complete counter 1, got %f", got)
	}
	if got := testutil.ToFloat64(collector.samplerMetrics.cyclesTotal.WithLabelValues("degraded")); got != 1 {
		t.Errorf("expected degraded counter 1, got %f", got)
	}
}

func TestUpdateSamplerDegraded(t *testing.T) {
	collector := NewCollector(testConfig(), prometheus.NewRegistry())

	collector.UpdateSamplerDegraded(true)
	if got := testutil.ToFloat64(collector.samplerMetrics.degraded); got != 1 {
		t.Errorf("expected gauge 1, got %f", got)
	}

	collector.UpdateSamplerDegraded(false)
	if got := testutil.ToFloat64(collector.samplerMetrics.degraded); got != 0 {
		t.Errorf("expected gauge 0, got %f", got)
	}
}

func TestDisabledCollectorIsNoop(t *testing.T) {
	cfg := testConfig()
	cfg.Enabled = false
	collector := NewCollector(cfg, prometheus.NewRegistry())

	collector.RecordVerification("customers", "allowed", time.Millisecond)
	collector.RecordViolation("r", "CODE")
	collector.RecordCatalogReload("success")
	collector.RecordSamplingCycle("complete", time.Millisecond)
	collector.UpdateSamplerDegraded(true)

	if got := testutil.ToFloat64(collector.gateMetrics.verificationsTotal.WithLabelValues("customers", "allowed")); got != 0 {
		t.Errorf("disabled collector recorded verification: %f", got)
	}
	if got := testutil.ToFloat64(collector.samplerMetrics.degraded); got != 0 {
		t.Errorf("disabled collector set degraded gauge: %f", got)
	}
}

func TestHandlerServesRegisteredMetrics(t *testing.T) {
	collector := NewCollector(testConfig(), prometheus.NewRegistry())
	collector.RecordVerification("customers", "allowed", time.Millisecond)

	if collector.Handler() == nil {
		t.Fatal("expected non-nil handler")
	}

	families, err := collector.Registry().Gather()
	if err != nil {
		t.Fatalf("Gather failed: %v", err)
	}
	found := false
	for _, mf := range families {
		if mf.GetName() == "test_gatekeeper_verifications_total" {
			found = true
		}
	}
	if !found {
		t.Error("verifications_total not exported by the registry")
	}
}
