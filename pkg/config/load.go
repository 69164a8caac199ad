package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Load reads configuration from a YAML file, applies defaults, and
// validates the result. Environment variables are not consulted; use
// LoadWithEnvOverrides for that.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// LoadWithEnvOverrides loads configuration from a YAML file and applies
// environment variable overrides. Variables follow the naming convention
// GATEKEEPER_SECTION_FIELD (e.g. GATEKEEPER_RULES_PATH) and always take
// precedence over file-based configuration.
//
// The loading sequence is:
//  1. Load YAML from file
//  2. Apply default values
//  3. Apply environment variable overrides
//  4. Validate final configuration
func LoadWithEnvOverrides(path string) (*Config, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed after environment overrides: %w", err)
	}

	return cfg, nil
}

// applyEnvOverrides applies GATEKEEPER_* environment variable overrides.
func applyEnvOverrides(cfg *Config) {
	if val := os.Getenv("GATEKEEPER_LOGGING_LEVEL"); val != "" {
		cfg.Logging.Level = val
	}
	if val := os.Getenv("GATEKEEPER_LOGGING_FORMAT"); val != "" {
		cfg.Logging.Format = val
	}

	if val := os.Getenv("GATEKEEPER_RULES_PATH"); val != "" {
		cfg.Rules.Path = val
	}
	if val := os.Getenv("GATEKEEPER_RULES_WATCH"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Rules.Watch = b
		}
	}
	if val := os.Getenv("GATEKEEPER_RULES_LOOKUP_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Rules.LookupTimeout = d
		}
	}

	if val := os.Getenv("GATEKEEPER_STORAGE_BACKEND"); val != "" {
		cfg.Storage.Backend = val
	}
	if val := os.Getenv("GATEKEEPER_STORAGE_PATH"); val != "" {
		cfg.Storage.Path = val
	}

	if val := os.Getenv("GATEKEEPER_SAMPLING_SCHEDULE"); val != "" {
		cfg.Telemetry.Sampling.Schedule = val
	}
	if val := os.Getenv("GATEKEEPER_SAMPLING_TOP_K"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			cfg.Telemetry.Sampling.TopK = i
		}
	}
	if val := os.Getenv("GATEKEEPER_SAMPLING_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Telemetry.Sampling.Timeout = d
		}
	}

	if val := os.Getenv("GATEKEEPER_HISTORY_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Telemetry.History.Enabled = b
		}
	}
	if val := os.Getenv("GATEKEEPER_HISTORY_PATH"); val != "" {
		cfg.Telemetry.History.Path = val
	}

	if val := os.Getenv("GATEKEEPER_METRICS_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Telemetry.Metrics.Enabled = b
		}
	}
	if val := os.Getenv("GATEKEEPER_METRICS_LISTEN_ADDRESS"); val != "" {
		cfg.Telemetry.Metrics.ListenAddress = val
	}
}
