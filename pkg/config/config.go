package config

import "time"

// Config is the root configuration for the gatekeeper service.
type Config struct {
	// Logging configures structured log output.
	Logging LoggingConfig `yaml:"logging"`

	// Rules configures the rule catalog source.
	Rules RulesConfig `yaml:"rules"`

	// Storage configures the storage engine adapter.
	Storage StorageConfig `yaml:"storage"`

	// Telemetry configures sampling, history, and metrics.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// LoggingConfig configures structured log output.
type LoggingConfig struct {
	// Level is the minimum log level ("debug", "info", "warn", "error").
	Level string `yaml:"level"`

	// Format is the output format ("json", "text").
	Format string `yaml:"format"`
}

// RulesConfig configures the rule catalog source.
type RulesConfig struct {
	// Path is the rule file or directory of rule files.
	Path string `yaml:"path"`

	// Watch enables hot reload when rule files change.
	Watch bool `yaml:"watch"`

	// DebounceInterval is how long to coalesce file events before
	// reloading.
	DebounceInterval time.Duration `yaml:"debounce_interval"`

	// LookupTimeout bounds each cross-entity lookup inside a rule
	// predicate.
	LookupTimeout time.Duration `yaml:"lookup_timeout"`
}

// StorageConfig configures the storage engine adapter.
type StorageConfig struct {
	// Backend selects the engine: "memory" or "sqlite".
	Backend string `yaml:"backend"`

	// Path is the SQLite database file (sqlite backend only).
	Path string `yaml:"path"`

	// BusyTimeout is how long SQLite waits for locks before failing.
	BusyTimeout time.Duration `yaml:"busy_timeout"`
}

// TelemetryConfig configures sampling, history, and metrics.
type TelemetryConfig struct {
	// Sampling configures the usage sampler.
	Sampling SamplingConfig `yaml:"sampling"`

	// History configures persisted sample history.
	History HistoryConfig `yaml:"history"`

	// Metrics configures the Prometheus exporter.
	Metrics MetricsConfig `yaml:"metrics"`
}

// SamplingConfig configures the usage sampler.
type SamplingConfig struct {
	// Schedule is the cron expression for sampling cycles.
	// Examples: "@every 1m", "*/5 * * * *".
	Schedule string `yaml:"schedule"`

	// TopK is how many statements to keep in each query-stat ranking.
	TopK int `yaml:"top_k"`

	// Timeout bounds one sampling cycle; a cycle that exceeds it is
	// skipped, not retried.
	Timeout time.Duration `yaml:"timeout"`
}

// HistoryConfig configures persisted sample history.
type HistoryConfig struct {
	// Enabled turns on history persistence.
	Enabled bool `yaml:"enabled"`

	// Path is the history database file.
	Path string `yaml:"path"`

	// RetentionDays is how many days of samples to keep.
	RetentionDays int `yaml:"retention_days"`
}

// MetricsConfig configures the Prometheus exporter.
type MetricsConfig struct {
	// Enabled turns on metric recording and the /metrics endpoint.
	Enabled bool `yaml:"enabled"`

	// Namespace is the metric namespace prefix.
	Namespace string `yaml:"namespace"`

	// Subsystem is the metric subsystem prefix.
	Subsystem string `yaml:"subsystem"`

	// ListenAddress is the address of the /metrics HTTP endpoint.
	ListenAddress string `yaml:"listen_address"`
}
