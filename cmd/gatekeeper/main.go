// Gatekeeper is a write-path integrity enforcement service.
//
// It sits between callers and a storage engine, verifying every proposed
// write against a catalog of business rules before the transaction is
// allowed to commit:
//   - Declarative YAML rule catalog with atomic hot reload
//   - Collect-all rule evaluation with fail-closed semantics
//   - Commit veto via storage engine before-commit hooks
//   - Telemetry sampling of engine usage counters with ranked reports
//
// Usage:
//
//	# Start the service with default configuration
//	gatekeeper run
//
//	# Start with a custom configuration file
//	gatekeeper run --config /path/to/config.yaml
//
//	# Validate rule files without starting the service
//	gatekeeper lint --rules rules/
//
//	# Take a one-shot telemetry sample
//	gatekeeper report
//
//	# Show version information
//	gatekeeper version
package main

func main() {
	Execute()
}
