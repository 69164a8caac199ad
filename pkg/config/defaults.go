package config

import "time"

// ApplyDefaults fills in default values for any unset fields.
func ApplyDefaults(cfg *Config) {
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}

	if cfg.Rules.Path == "" {
		cfg.Rules.Path = "rules.yaml"
	}
	if cfg.Rules.DebounceInterval == 0 {
		cfg.Rules.DebounceInterval = 100 * time.Millisecond
	}
	if cfg.Rules.LookupTimeout == 0 {
		cfg.Rules.LookupTimeout = 5 * time.Second
	}

	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = "memory"
	}
	if cfg.Storage.Path == "" {
		cfg.Storage.Path = "data/gatekeeper.db"
	}
	if cfg.Storage.BusyTimeout == 0 {
		cfg.Storage.BusyTimeout = 5 * time.Second
	}

	if cfg.Telemetry.Sampling.Schedule == "" {
		cfg.Telemetry.Sampling.Schedule = "@every 1m"
	}
	if cfg.Telemetry.Sampling.TopK == 0 {
		cfg.Telemetry.Sampling.TopK = 100
	}
	if cfg.Telemetry.Sampling.Timeout == 0 {
		cfg.Telemetry.Sampling.Timeout = 10 * time.Second
	}

	if cfg.Telemetry.History.Path == "" {
		cfg.Telemetry.History.Path = "data/telemetry.db"
	}
	if cfg.Telemetry.History.RetentionDays == 0 {
		cfg.Telemetry.History.RetentionDays = 30
	}

	if cfg.Telemetry.Metrics.Namespace == "" {
		cfg.Telemetry.Metrics.Namespace = "veridata"
	}
	if cfg.Telemetry.Metrics.Subsystem == "" {
		cfg.Telemetry.Metrics.Subsystem = "gatekeeper"
	}
	if cfg.Telemetry.Metrics.ListenAddress == "" {
		cfg.Telemetry.Metrics.ListenAddress = ":9090"
	}
}

// Default returns a configuration with every field at its default value.
func Default() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}
