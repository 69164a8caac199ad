package source

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"veridata/gatekeeper/pkg/rules/catalog"
	"veridata/gatekeeper/pkg/rules/condition"
)

// FileSource loads rule definitions from YAML files on disk.
type FileSource struct {
	path   string
	logger *slog.Logger
}

// NewFileSource creates a file-based rule source. The path can be either a
// single file or a directory; for a directory, all .yaml and .yml files
// are loaded.
func NewFileSource(path string, logger *slog.Logger) *FileSource {
	if logger == nil {
		logger = slog.Default().With("component", "rules.source")
	}
	return &FileSource{
		path:   path,
		logger: logger,
	}
}

// LoadRules loads all rules from the configured path. Any unreadable or
// invalid file fails the whole load: a partially loaded rule set would
// silently weaken enforcement.
func (s *FileSource) LoadRules(ctx context.Context) ([]catalog.Rule, error) {
	info, err := os.Stat(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat path %q: %w", s.path, err)
	}

	var rules []catalog.Rule
	if info.IsDir() {
		rules, err = s.loadDirectory(ctx)
	} else {
		rules, err = s.loadFile(ctx, s.path)
	}
	if err != nil {
		return nil, err
	}

	s.logger.Info("loaded rules from source",
		"path", s.path,
		"rule_count", len(rules),
	)

	return rules, nil
}

// loadDirectory loads all rule files from a directory.
func (s *FileSource) loadDirectory(ctx context.Context) ([]catalog.Rule, error) {
	var rules []catalog.Rule

	err := filepath.Walk(s.path, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}

		ext := filepath.Ext(path)
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}

		fileRules, err := s.loadFile(ctx, path)
		if err != nil {
			return err
		}
		rules = append(rules, fileRules...)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load rules from directory %q: %w", s.path, err)
	}

	return rules, nil
}

// loadFile loads a single rule file.
func (s *FileSource) loadFile(ctx context.Context, path string) ([]catalog.Rule, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %q: %w", path, err)
	}

	rules, err := ParseRules(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse rule file %q: %w", path, err)
	}

	s.logger.Debug("loaded rule file",
		"path", path,
		"rule_count", len(rules),
	)

	return rules, nil
}

// ruleFile is the YAML document shape of a rule file.
type ruleFile struct {
	Rules []ruleSpec `yaml:"rules"`
}

// ruleSpec is one YAML rule definition.
type ruleSpec struct {
	ID        string                  `yaml:"id"`
	Entity    string                  `yaml:"entity"`
	Order     int                     `yaml:"order"`
	ErrorCode string                  `yaml:"error_code"`
	Message   string                  `yaml:"message"`
	Severity  string                  `yaml:"severity"`
	Check     *condition.Condition    `yaml:"check,omitempty"`
	Require   []condition.Requirement `yaml:"require,omitempty"`
}

// ParseRules parses YAML rule definitions into catalog rules. Each rule's
// declarative predicate is validated; catalog-level validation (order
// uniqueness) happens at load time.
func ParseRules(data []byte) ([]catalog.Rule, error) {
	var file ruleFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("invalid YAML: %w", err)
	}

	rules := make([]catalog.Rule, 0, len(file.Rules))
	for i, spec := range file.Rules {
		pred := &condition.Predicate{
			Check:   spec.Check,
			Require: spec.Require,
		}
		if err := pred.Validate(); err != nil {
			return nil, fmt.Errorf("rule %d (%s): %w", i, spec.ID, err)
		}

		rule := catalog.Rule{
			ID:        spec.ID,
			Entity:    spec.Entity,
			Order:     spec.Order,
			ErrorCode: spec.ErrorCode,
			Message:   spec.Message,
			Severity:  catalog.Severity(spec.Severity),
			Predicate: pred,
		}
		if err := rule.Validate(); err != nil {
			return nil, fmt.Errorf("rule %d: %w", i, err)
		}
		rules = append(rules, rule)
	}

	return rules, nil
}
