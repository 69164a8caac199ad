package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"veridata/gatekeeper/pkg/config"
	"veridata/gatekeeper/pkg/service"
)

var reportFlags struct {
	jsonOutput bool
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Take a one-shot telemetry sample",
	Long: `Take a one-shot telemetry sample of storage engine usage counters and
print the ranked report.

Starts the service against the configured storage backend, runs a single
sampling cycle, and prints usage samples (ordered by seek count) and the
top-K statement ranking.

Examples:
  # Human-readable report
  gatekeeper report

  # JSON output for scripting
  gatekeeper report --json`,
	RunE: runReport,
}

func init() {
	rootCmd.AddCommand(reportCmd)

	reportCmd.Flags().BoolVar(&reportFlags.jsonOutput, "json", false, "print the report as JSON")
}

func runReport(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfigQuiet()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// One-shot runs never need the rule watcher.
	cfg.Rules.Watch = false

	logger := newLogger(&config.LoggingConfig{Level: "warn", Format: "text"})

	svc, err := service.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to build service: %w", err)
	}
	defer svc.Close()

	if err := svc.Start(cmd.Context()); err != nil {
		return fmt.Errorf("failed to start service: %w", err)
	}

	report, err := svc.GetPerformanceReport(cmd.Context())
	if err != nil {
		return fmt.Errorf("sampling failed: %w", err)
	}

	if reportFlags.jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}

	fmt.Printf("Sample %s at %s\n", report.ID, report.SampledAt.Format("2006-01-02 15:04:05 MST"))
	if report.Degraded {
		fmt.Println("⚠ degraded sample:")
		for _, w := range report.Warnings {
			fmt.Printf("  %s\n", w)
		}
	}

	fmt.Printf("\nUsage samples (%d):\n", len(report.UsageSamples))
	for _, u := range report.UsageSamples {
		fmt.Printf("  %-24s %-24s seeks=%-8d scans=%-8d lookups=%d\n",
			u.Object, u.Index, u.Seeks, u.Scans, u.Lookups)
	}

	fmt.Printf("\nTop statements by logical reads (%d):\n", len(report.QueryStats))
	for _, q := range report.QueryStats {
		fmt.Printf("  %-48s execs=%-8d reads=%-8d writes=%-8d elapsed=%s\n",
			q.Fingerprint, q.Executions, q.LogicalReads, q.LogicalWrites, q.Elapsed)
	}

	return nil
}

// loadConfigQuiet loads configuration for one-shot commands.
func loadConfigQuiet() (*config.Config, error) {
	return config.LoadWithEnvOverrides(cfgFile)
}
