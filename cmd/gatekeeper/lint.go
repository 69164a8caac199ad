package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"veridata/gatekeeper/pkg/rules/catalog"
	"veridata/gatekeeper/pkg/rules/source"
)

var lintFlags struct {
	rulesPath string
}

var lintCmd = &cobra.Command{
	Use:   "lint",
	Short: "Validate rule files",
	Long: `Validate rule files without starting the service.

Checks YAML syntax, predicate definitions, and catalog-level constraints
(unique evaluation order per entity). Exits non-zero when any rule file
is invalid.

Examples:
  # Validate a rules directory
  gatekeeper lint --rules rules/

  # Validate a single file
  gatekeeper lint --rules rules/customers.yaml`,
	RunE: runLint,
}

func init() {
	rootCmd.AddCommand(lintCmd)

	lintCmd.Flags().StringVarP(&lintFlags.rulesPath, "rules", "r", "", "rule file or directory (defaults to rules.path from config)")
}

func runLint(cmd *cobra.Command, args []string) error {
	path := lintFlags.rulesPath
	if path == "" {
		cfg, err := loadConfigQuiet()
		if err != nil {
			return fmt.Errorf("no --rules given and config could not be loaded: %w", err)
		}
		path = cfg.Rules.Path
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	src := source.NewFileSource(path, logger)
	rules, err := src.LoadRules(cmd.Context())
	if err != nil {
		return fmt.Errorf("rule validation failed: %w", err)
	}

	rs, err := catalog.NewRuleset(rules)
	if err != nil {
		return fmt.Errorf("rule validation failed: %w", err)
	}

	fmt.Printf("✓ %d rules valid across %d entities\n", rs.Len(), len(rs.Entities()))
	for _, entity := range rs.Entities() {
		fmt.Printf("  %s: %d rules\n", entity, len(rs.RulesFor(entity)))
	}
	return nil
}
