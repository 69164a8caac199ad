package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestMain(m *testing.M) {
	// Tests invoke runLint directly rather than through cobra's Execute,
	// which is what normally sets the command context.
	lintCmd.SetContext(context.Background())
	os.Exit(m.Run())
}

const lintTestRules = `
rules:
  - id: customer-data-valid
    entity: customers
    order: 1
    error_code: CUSTOMER_DATA_INVALID
    check:
      field: Email
      operator: not_empty
`

func writeLintFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write rule file: %v", err)
	}
	return path
}

func TestRunLintValidFile(t *testing.T) {
	lintFlags.rulesPath = writeLintFile(t, "rules.yaml", lintTestRules)

	if err := runLint(lintCmd, nil); err != nil {
		t.Errorf("runLint() with valid file returned error: %v", err)
	}
}

func TestRunLintInvalidYAML(t *testing.T) {
	lintFlags.rulesPath = writeLintFile(t, "rules.yaml", "rules: [")

	if err := runLint(lintCmd, nil); err == nil {
		t.Error("runLint() with malformed YAML should return error")
	}
}

func TestRunLintUnknownOperator(t *testing.T) {
	lintFlags.rulesPath = writeLintFile(t, "rules.yaml", `
rules:
  - id: bad
    entity: customers
    order: 1
    error_code: BAD
    check:
      field: Email
      operator: like
`)

	if err := runLint(lintCmd, nil); err == nil {
		t.Error("runLint() with unknown operator should return error")
	}
}

func TestRunLintOrderConflict(t *testing.T) {
	lintFlags.rulesPath = writeLintFile(t, "rules.yaml", `
rules:
  - id: a
    entity: customers
    order: 1
    error_code: A
    check:
      field: Email
      operator: not_empty
  - id: b
    entity: customers
    order: 1
    error_code: B
    check:
      field: Address
      operator: present
`)

	if err := runLint(lintCmd, nil); err == nil {
		t.Error("runLint() with duplicate evaluation order should return error")
	}
}

func TestRunLintNonexistentPath(t *testing.T) {
	lintFlags.rulesPath = filepath.Join(t.TempDir(), "nope.yaml")

	if err := runLint(lintCmd, nil); err == nil {
		t.Error("runLint() with nonexistent path should return error")
	}
}
