package config

import "fmt"

var validLevels = map[string]struct{}{
	"debug": {}, "info": {}, "warn": {}, "error": {},
}

var validFormats = map[string]struct{}{
	"json": {}, "text": {},
}

var validBackends = map[string]struct{}{
	"memory": {}, "sqlite": {},
}

// Validate checks the configuration for invalid values. It assumes
// defaults have already been applied.
func Validate(cfg *Config) error {
	if _, ok := validLevels[cfg.Logging.Level]; !ok {
		return fmt.Errorf("invalid logging.level %q (want debug, info, warn, or error)", cfg.Logging.Level)
	}
	if _, ok := validFormats[cfg.Logging.Format]; !ok {
		return fmt.Errorf("invalid logging.format %q (want json or text)", cfg.Logging.Format)
	}

	if cfg.Rules.Path == "" {
		return fmt.Errorf("rules.path cannot be empty")
	}
	if cfg.Rules.DebounceInterval < 0 {
		return fmt.Errorf("rules.debounce_interval cannot be negative")
	}
	if cfg.Rules.LookupTimeout <= 0 {
		return fmt.Errorf("rules.lookup_timeout must be positive")
	}

	if _, ok := validBackends[cfg.Storage.Backend]; !ok {
		return fmt.Errorf("invalid storage.backend %q (want memory or sqlite)", cfg.Storage.Backend)
	}
	if cfg.Storage.Backend == "sqlite" && cfg.Storage.Path == "" {
		return fmt.Errorf("storage.path is required for the sqlite backend")
	}

	if cfg.Telemetry.Sampling.Schedule == "" {
		return fmt.Errorf("telemetry.sampling.schedule cannot be empty")
	}
	if cfg.Telemetry.Sampling.TopK <= 0 {
		return fmt.Errorf("telemetry.sampling.top_k must be positive")
	}
	if cfg.Telemetry.Sampling.Timeout <= 0 {
		return fmt.Errorf("telemetry.sampling.timeout must be positive")
	}

	if cfg.Telemetry.History.Enabled {
		if cfg.Telemetry.History.Path == "" {
			return fmt.Errorf("telemetry.history.path is required when history is enabled")
		}
		if cfg.Telemetry.History.RetentionDays <= 0 {
			return fmt.Errorf("telemetry.history.retention_days must be positive")
		}
	}

	return nil
}
