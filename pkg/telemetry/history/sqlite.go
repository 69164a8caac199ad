package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"veridata/gatekeeper/pkg/telemetry/sampler"
)

// Config contains configuration for the history store.
type Config struct {
	// Path is the database file path.
	Path string

	// RetentionDays is how many days of reports Prune keeps (default: 30).
	RetentionDays int

	// BusyTimeout is how long to wait when the database is locked
	// (default: 5s).
	BusyTimeout time.Duration
}

// DefaultConfig returns the default history store configuration.
func DefaultConfig() *Config {
	return &Config{
		Path:          "data/telemetry.db",
		RetentionDays: 30,
		BusyTimeout:   5 * time.Second,
	}
}

const schema = `
CREATE TABLE IF NOT EXISTS sample_reports (
	id            TEXT PRIMARY KEY,
	sampled_at    TIMESTAMP NOT NULL,
	degraded      INTEGER NOT NULL DEFAULT 0,
	usage_samples TEXT NOT NULL,
	query_stats   TEXT NOT NULL,
	warnings      TEXT NOT NULL DEFAULT '[]'
);

CREATE INDEX IF NOT EXISTS idx_sample_reports_sampled_at
	ON sample_reports(sampled_at);
`

// Store persists sampling reports to SQLite. Reports are append-only;
// Prune enforces the retention window.
type Store struct {
	db     *sql.DB
	config *Config
	logger *slog.Logger

	insertStmt *sql.Stmt
	recentStmt *sql.Stmt
	pruneStmt  *sql.Stmt

	closeOnce sync.Once
	closeErr  error
}

// NewStore opens (or creates) the history database at the configured path.
func NewStore(config *Config, logger *slog.Logger) (*Store, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if config.RetentionDays <= 0 {
		config.RetentionDays = 30
	}
	if config.BusyTimeout <= 0 {
		config.BusyTimeout = 5 * time.Second
	}
	if logger == nil {
		logger = slog.Default().With("component", "telemetry.history")
	}

	db, err := sql.Open("sqlite3", config.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}

	// The history store is written by one scheduler goroutine; a single
	// connection avoids lock contention with concurrent readers.
	db.SetMaxOpenConns(1)

	s := &Store{
		db:     db,
		config: config,
		logger: logger,
	}

	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("telemetry history store initialized",
		"path", config.Path,
		"retention_days", config.RetentionDays,
	)

	return s, nil
}

func (s *Store) initialize() error {
	if _, err := s.db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		return fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if _, err := s.db.Exec(fmt.Sprintf("PRAGMA busy_timeout=%d;", s.config.BusyTimeout.Milliseconds())); err != nil {
		return fmt.Errorf("failed to set busy timeout: %w", err)
	}
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create history schema: %w", err)
	}

	var err error
	s.insertStmt, err = s.db.Prepare(`
		INSERT INTO sample_reports (id, sampled_at, degraded, usage_samples, query_stats, warnings)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert statement: %w", err)
	}

	s.recentStmt, err = s.db.Prepare(`
		SELECT id, sampled_at, degraded, usage_samples, query_stats, warnings
		FROM sample_reports
		ORDER BY sampled_at DESC
		LIMIT ?`)
	if err != nil {
		return fmt.Errorf("failed to prepare recent statement: %w", err)
	}

	s.pruneStmt, err = s.db.Prepare(`
		DELETE FROM sample_reports WHERE sampled_at < ?`)
	if err != nil {
		return fmt.Errorf("failed to prepare prune statement: %w", err)
	}

	return nil
}

// Append persists one sampling report. It satisfies sampler.ReportSink.
func (s *Store) Append(ctx context.Context, report *sampler.Report) error {
	usage, err := json.Marshal(report.UsageSamples)
	if err != nil {
		return fmt.Errorf("failed to encode usage samples: %w", err)
	}
	stats, err := json.Marshal(report.QueryStats)
	if err != nil {
		return fmt.Errorf("failed to encode query stats: %w", err)
	}
	warnings, err := json.Marshal(report.Warnings)
	if err != nil {
		return fmt.Errorf("failed to encode warnings: %w", err)
	}

	degraded := 0
	if report.Degraded {
		degraded = 1
	}

	if _, err := s.insertStmt.ExecContext(ctx,
		report.ID,
		report.SampledAt.UTC(),
		degraded,
		string(usage),
		string(stats),
		string(warnings),
	); err != nil {
		return fmt.Errorf("failed to store sampling report: %w", err)
	}

	return nil
}

// Recent returns the most recent reports, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]*sampler.Report, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := s.recentStmt.QueryContext(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent reports: %w", err)
	}
	defer rows.Close()

	var reports []*sampler.Report
	for rows.Next() {
		var (
			report   sampler.Report
			degraded int
			usage    string
			stats    string
			warnings string
		)
		if err := rows.Scan(&report.ID, &report.SampledAt, &degraded, &usage, &stats, &warnings); err != nil {
			return nil, fmt.Errorf("failed to scan report row: %w", err)
		}

		report.Degraded = degraded != 0
		if err := json.Unmarshal([]byte(usage), &report.UsageSamples); err != nil {
			return nil, fmt.Errorf("failed to decode usage samples for report %s: %w", report.ID, err)
		}
		if err := json.Unmarshal([]byte(stats), &report.QueryStats); err != nil {
			return nil, fmt.Errorf("failed to decode query stats for report %s: %w", report.ID, err)
		}
		if err := json.Unmarshal([]byte(warnings), &report.Warnings); err != nil {
			return nil, fmt.Errorf("failed to decode warnings for report %s: %w", report.ID, err)
		}

		reports = append(reports, &report)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate report rows: %w", err)
	}

	return reports, nil
}

// Prune deletes reports older than the retention window and returns how
// many were removed.
func (s *Store) Prune(ctx context.Context) (int64, error) {
	cutoff := time.Now().UTC().AddDate(0, 0, -s.config.RetentionDays)

	res, err := s.pruneStmt.ExecContext(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune reports: %w", err)
	}

	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count pruned reports: %w", err)
	}

	if deleted > 0 {
		s.logger.Info("pruned sampling reports",
			"deleted_count", deleted,
			"cutoff", cutoff,
		)
	}

	return deleted, nil
}

// Close releases database resources. Safe to call more than once.
func (s *Store) Close() error {
	s.closeOnce.Do(func() {
		for _, stmt := range []*sql.Stmt{s.insertStmt, s.recentStmt, s.pruneStmt} {
			if stmt != nil {
				stmt.Close()
			}
		}
		s.closeErr = s.db.Close()
	})
	return s.closeErr
}
