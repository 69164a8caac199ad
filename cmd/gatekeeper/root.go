package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "gatekeeper",
	Short: "Gatekeeper - write-path integrity enforcement service",
	Long: `Gatekeeper verifies proposed writes against a catalog of business rules
before they commit.

It registers as a before-commit hook on the storage engine, providing:
  - Declarative YAML rule catalog with atomic hot reload
  - Collect-all rule evaluation with fail-closed semantics
  - Commit veto for writes that violate business rules
  - Telemetry sampling of engine usage counters`,
	Version: Version,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "config.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
