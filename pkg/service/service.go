package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"veridata/gatekeeper/pkg/config"
	"veridata/gatekeeper/pkg/integrity"
	"veridata/gatekeeper/pkg/rules/catalog"
	"veridata/gatekeeper/pkg/rules/source"
	"veridata/gatekeeper/pkg/storage"
	"veridata/gatekeeper/pkg/telemetry/history"
	"veridata/gatekeeper/pkg/telemetry/metrics"
	"veridata/gatekeeper/pkg/telemetry/sampler"
)

// WriteRequest is one proposed row change submitted through the service.
type WriteRequest struct {
	// ID is the row identifier within the entity.
	ID string

	// Row is the proposed row state.
	Row storage.Row
}

// Service wires the storage engine, rule catalog, integrity gate, and
// telemetry into one façade. Callers submit writes through it and receive
// either success or the gate's veto error; telemetry runs orthogonally.
type Service struct {
	config    *config.Config
	logger    *slog.Logger
	engine    storage.Engine
	catalog   *catalog.Catalog
	evaluator *integrity.Evaluator
	collector *metrics.Collector
	source    *source.FileSource
	watcher   *source.FileWatcher
	history   *history.Store
	sampler   *sampler.Sampler
	scheduler *sampler.Scheduler

	mu      sync.Mutex
	started bool
}

// New builds a service from configuration. Nothing is started yet; call
// Start to load rules and begin background work.
func New(cfg *config.Config, logger *slog.Logger) (*Service, error) {
	if logger == nil {
		logger = slog.Default()
	}

	engine, err := newEngine(cfg)
	if err != nil {
		return nil, err
	}

	cat := catalog.NewCatalog()
	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)

	evaluator := integrity.NewEvaluator(
		&integrity.EvaluatorConfig{LookupTimeout: cfg.Rules.LookupTimeout},
		cat,
		engine,
		logger.With("component", "integrity.evaluator"),
	)

	interceptor := integrity.NewInterceptor(evaluator, collector,
		logger.With("component", "integrity.interceptor"))
	engine.RegisterHook(interceptor)

	s := &Service{
		config:    cfg,
		logger:    logger,
		engine:    engine,
		catalog:   cat,
		evaluator: evaluator,
		collector: collector,
		source:    source.NewFileSource(cfg.Rules.Path, logger.With("component", "rules.source")),
	}

	var sink sampler.ReportSink
	if cfg.Telemetry.History.Enabled {
		store, err := history.NewStore(&history.Config{
			Path:          cfg.Telemetry.History.Path,
			RetentionDays: cfg.Telemetry.History.RetentionDays,
		}, logger.With("component", "telemetry.history"))
		if err != nil {
			engine.Close()
			return nil, fmt.Errorf("failed to open telemetry history: %w", err)
		}
		s.history = store
		sink = &pruningSink{store: store}
	}

	sam := sampler.NewSampler(
		&sampler.Config{TopK: cfg.Telemetry.Sampling.TopK},
		engine,
		logger.With("component", "telemetry.sampler"),
	)
	s.sampler = sam
	s.scheduler = sampler.NewScheduler(
		&sampler.SchedulerConfig{
			Schedule: cfg.Telemetry.Sampling.Schedule,
			Timeout:  cfg.Telemetry.Sampling.Timeout,
		},
		sam,
		sink,
		collector,
		logger.With("component", "telemetry.scheduler"),
	)

	return s, nil
}

// newEngine builds the configured storage engine.
func newEngine(cfg *config.Config) (storage.Engine, error) {
	switch cfg.Storage.Backend {
	case "memory":
		return storage.NewMemoryEngine(), nil
	case "sqlite":
		return storage.NewSQLiteEngineWithConfig(storage.SQLiteEngineConfig{
			Path:        cfg.Storage.Path,
			BusyTimeout: cfg.Storage.BusyTimeout,
		})
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}

// Start loads the rule catalog, starts the rule file watcher when
// configured, and starts the sampling scheduler.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return fmt.Errorf("service already started")
	}

	if err := s.reloadFromSource(ctx); err != nil {
		return fmt.Errorf("failed to load initial rules: %w", err)
	}

	if s.config.Rules.Watch {
		watcher, err := source.NewFileWatcher(&source.FileWatcherConfig{
			Path:             s.config.Rules.Path,
			DebounceInterval: s.config.Rules.DebounceInterval,
		}, s.logger.With("component", "rules.watcher"))
		if err != nil {
			return fmt.Errorf("failed to create rule watcher: %w", err)
		}
		s.watcher = watcher

		go func() {
			if err := watcher.Watch(ctx, func() error {
				return s.reloadFromSource(ctx)
			}); err != nil {
				s.logger.Error("rule watcher exited", "error", err)
			}
		}()
	}

	if err := s.scheduler.Start(ctx); err != nil {
		return fmt.Errorf("failed to start sampling scheduler: %w", err)
	}

	s.started = true
	s.logger.Info("gatekeeper service started",
		"storage_backend", s.config.Storage.Backend,
		"rules_path", s.config.Rules.Path,
		"watch", s.config.Rules.Watch,
	)
	return nil
}

// reloadFromSource loads rules from the configured source and activates
// them. A failed load (including a *catalog.ConflictError) leaves the
// previously active catalog in effect.
func (s *Service) reloadFromSource(ctx context.Context) error {
	rules, err := s.source.LoadRules(ctx)
	if err != nil {
		s.collector.RecordCatalogReload("failure")
		return err
	}
	if err := s.catalog.Load(rules); err != nil {
		s.collector.RecordCatalogReload("failure")
		return err
	}
	s.collector.RecordCatalogReload("success")
	return nil
}

// SubmitWrite stages the given rows for the entity in one transaction and
// commits it. If the integrity gate vetoes, the transaction is rolled back
// and the veto error is returned: a *integrity.ViolationError for rule
// failures, a *integrity.UnavailableError when a rule could not be
// checked.
func (s *Service) SubmitWrite(ctx context.Context, entity string, writes []WriteRequest) error {
	if len(writes) == 0 {
		return nil
	}

	txn, err := s.engine.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	for _, w := range writes {
		if err := txn.Put(ctx, entity, w.ID, w.Row); err != nil {
			txn.Rollback()
			return fmt.Errorf("failed to stage row %s/%s: %w", entity, w.ID, err)
		}
	}

	return txn.Commit(ctx)
}

// ReloadRules validates the rules and atomically replaces the active
// catalog. On conflict the old catalog remains active and usable.
func (s *Service) ReloadRules(ctx context.Context, rules []catalog.Rule) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.catalog.Load(rules); err != nil {
		s.collector.RecordCatalogReload("failure")
		return err
	}
	s.collector.RecordCatalogReload("success")
	return nil
}

// GetPerformanceReport takes an on-demand sample and returns the report.
// Read-only and safe to call anytime; it never blocks writes and, unlike
// scheduled cycles, is not persisted to the history store.
func (s *Service) GetPerformanceReport(ctx context.Context) (*sampler.Report, error) {
	if timeout := s.config.Telemetry.Sampling.Timeout; timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return s.sampler.Sample(ctx)
}

// RecentReports returns persisted sampling reports, newest first. Returns
// nil when history is disabled.
func (s *Service) RecentReports(ctx context.Context, limit int) ([]*sampler.Report, error) {
	if s.history == nil {
		return nil, nil
	}
	return s.history.Recent(ctx, limit)
}

// Catalog exposes the rule catalog for introspection.
func (s *Service) Catalog() *catalog.Catalog {
	return s.catalog
}

// Engine exposes the storage engine, mainly for seeding test fixtures and
// reference data.
func (s *Service) Engine() storage.Engine {
	return s.engine
}

// Metrics exposes the metrics collector so callers can mount its HTTP
// handler.
func (s *Service) Metrics() *metrics.Collector {
	return s.collector
}

// Close stops background work and releases resources.
func (s *Service) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.scheduler.Stop()

	if s.watcher != nil {
		if err := s.watcher.Stop(); err != nil {
			s.logger.Warn("failed to stop rule watcher", "error", err)
		}
	}

	var firstErr error
	if s.history != nil {
		if err := s.history.Close(); err != nil {
			firstErr = err
		}
	}
	if err := s.engine.Close(); err != nil && firstErr == nil {
		firstErr = err
	}

	s.started = false
	return firstErr
}

// pruningSink persists reports and opportunistically enforces retention
// after each append.
type pruningSink struct {
	store *history.Store
}

func (p *pruningSink) Append(ctx context.Context, report *sampler.Report) error {
	if err := p.store.Append(ctx, report); err != nil {
		return err
	}
	if _, err := p.store.Prune(ctx); err != nil {
		return err
	}
	return nil
}
