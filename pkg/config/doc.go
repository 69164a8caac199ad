// Package config loads, defaults, and validates the gatekeeper service
// configuration from YAML, with GATEKEEPER_* environment overrides.
//
// # Usage
//
//	cfg, err := config.LoadWithEnvOverrides("config.yaml")
//
// Programmatic embedders can start from config.Default() and adjust
// fields directly.
package config
