package sampler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
)

// ReportSink receives completed sampling reports, typically for
// persistence. Sink failures are logged and never fail a cycle.
type ReportSink interface {
	Append(ctx context.Context, report *Report) error
}

// CycleRecorder receives per-cycle instrumentation. A nil recorder
// disables instrumentation.
type CycleRecorder interface {
	RecordSamplingCycle(status string, duration time.Duration)
	UpdateSamplerDegraded(degraded bool)
}

// SchedulerConfig contains scheduler configuration.
type SchedulerConfig struct {
	// Schedule is the cron expression for sampling cycles.
	// Examples: "@every 1m", "*/5 * * * *".
	Schedule string

	// Timeout bounds one sampling cycle (default: 10s).
	Timeout time.Duration
}

// Scheduler runs sampling cycles on a cron schedule. Cycles that overrun
// into the next tick are skipped rather than stacked, and a cycle that
// exceeds its timeout is abandoned, not retried.
type Scheduler struct {
	sampler  *Sampler
	sink     ReportSink
	recorder CycleRecorder
	config   *SchedulerConfig
	cron     *cron.Cron
	logger   *slog.Logger

	mu      sync.Mutex
	running bool

	// inFlight guards against overlapping cycles.
	inFlight atomic.Bool

	// last holds the most recent report for on-demand reads.
	last   *Report
	lastMu sync.RWMutex
}

// NewScheduler creates a sampling scheduler. The sink and recorder may be
// nil to disable persistence and instrumentation respectively.
func NewScheduler(config *SchedulerConfig, sampler *Sampler, sink ReportSink, recorder CycleRecorder, logger *slog.Logger) *Scheduler {
	if config.Timeout <= 0 {
		config.Timeout = 10 * time.Second
	}
	if logger == nil {
		logger = slog.Default().With("component", "telemetry.scheduler")
	}
	return &Scheduler{
		sampler:  sampler,
		sink:     sink,
		recorder: recorder,
		config:   config,
		cron:     cron.New(),
		logger:   logger,
	}
}

// Start begins scheduled sampling. If no schedule is configured the
// scheduler does nothing; on-demand sampling via RunOnce still works.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.config.Schedule == "" {
		s.logger.Info("sampling schedule not configured, skipping scheduler")
		return nil
	}

	if _, err := cron.ParseStandard(s.config.Schedule); err != nil {
		return fmt.Errorf("invalid sampling schedule %q: %w", s.config.Schedule, err)
	}

	_, err := s.cron.AddFunc(s.config.Schedule, func() {
		s.runCycle(ctx)
	})
	if err != nil {
		return fmt.Errorf("failed to schedule sampling: %w", err)
	}

	s.cron.Start()
	s.running = true

	s.logger.Info("sampling scheduler started",
		"schedule", s.config.Schedule,
		"timeout", s.config.Timeout,
	)

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	return nil
}

// runCycle executes one scheduled sampling cycle.
func (s *Scheduler) runCycle(ctx context.Context) {
	if !s.inFlight.CompareAndSwap(false, true) {
		s.logger.Warn("previous sampling cycle still running, skipping")
		s.record("skipped", 0)
		return
	}
	defer s.inFlight.Store(false)

	start := time.Now()

	cycleCtx, cancel := context.WithTimeout(ctx, s.config.Timeout)
	defer cancel()

	report, err := s.sampler.Sample(cycleCtx)
	if err != nil {
		s.logger.Error("sampling cycle failed", "error", err)
		s.record("skipped", time.Since(start))
		return
	}

	s.setLast(report)

	status := "complete"
	if report.Degraded {
		status = "degraded"
	}
	s.record(status, time.Since(start))
	if s.recorder != nil {
		s.recorder.UpdateSamplerDegraded(report.Degraded)
	}

	if s.sink != nil {
		if err := s.sink.Append(cycleCtx, report); err != nil {
			s.logger.Error("failed to persist sampling report",
				"sample_id", report.ID,
				"error", err,
			)
		}
	}
}

// RunOnce runs an on-demand sampling cycle outside the schedule. The
// report is stored as the latest and persisted like a scheduled cycle.
func (s *Scheduler) RunOnce(ctx context.Context) (*Report, error) {
	cycleCtx, cancel := context.WithTimeout(ctx, s.config.Timeout)
	defer cancel()

	report, err := s.sampler.Sample(cycleCtx)
	if err != nil {
		return nil, err
	}

	s.setLast(report)

	if s.sink != nil {
		if err := s.sink.Append(cycleCtx, report); err != nil {
			s.logger.Error("failed to persist sampling report",
				"sample_id", report.ID,
				"error", err,
			)
		}
	}

	return report, nil
}

// Latest returns the most recent report, or nil if no cycle has run yet.
func (s *Scheduler) Latest() *Report {
	s.lastMu.RLock()
	defer s.lastMu.RUnlock()
	return s.last
}

// Stop stops the scheduler and waits for a running cycle to complete.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron != nil && s.running {
		stopCtx := s.cron.Stop()
		<-stopCtx.Done()
		s.running = false
		s.logger.Info("sampling scheduler stopped")
	}
}

// IsRunning returns true if the scheduler is running.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// NextRun returns the next scheduled sampling time, or nil if nothing is
// scheduled.
func (s *Scheduler) NextRun() *time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.cron.Entries()
	if len(entries) == 0 {
		return nil
	}
	next := entries[0].Next
	return &next
}

func (s *Scheduler) setLast(report *Report) {
	s.lastMu.Lock()
	s.last = report
	s.lastMu.Unlock()
}

func (s *Scheduler) record(status string, duration time.Duration) {
	if s.recorder != nil {
		s.recorder.RecordSamplingCycle(status, duration)
	}
}
