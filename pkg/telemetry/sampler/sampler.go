package sampler

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"veridata/gatekeeper/pkg/storage"
)

// Config contains sampler configuration.
type Config struct {
	// TopK is how many statements to keep in each query-stat ranking
	// (default: 100).
	TopK int
}

// Sampler reads storage engine usage counters and aggregates them into
// ranked reports. It only reads snapshot counters and never takes locks
// that could block a write transaction.
type Sampler struct {
	stats  storage.StatsProvider
	config *Config
	logger *slog.Logger
}

// NewSampler creates a sampler over the given stats provider.
func NewSampler(config *Config, stats storage.StatsProvider, logger *slog.Logger) *Sampler {
	if config == nil {
		config = &Config{}
	}
	if config.TopK <= 0 {
		config.TopK = 100
	}
	if logger == nil {
		logger = slog.Default().With("component", "telemetry.sampler")
	}
	return &Sampler{
		stats:  stats,
		config: config,
		logger: logger,
	}
}

// Sample runs one sampling cycle and returns the report.
//
// A counter section that cannot be read is omitted rather than failing the
// whole sample: the report is marked Degraded and carries a warning per
// omitted section. Sample only returns an error when the context is
// already cancelled.
func (s *Sampler) Sample(ctx context.Context) (*Report, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	report := &Report{
		ID:        uuid.NewString(),
		SampledAt: now,
	}

	usage, err := s.stats.IndexUsage(ctx)
	if err != nil {
		s.logger.Warn("index usage counters unavailable, omitting from sample",
			"sample_id", report.ID,
			"error", err,
		)
		report.Degraded = true
		report.Warnings = append(report.Warnings, "usage samples omitted: "+err.Error())
	} else {
		report.UsageSamples = rankUsage(usage, now)
	}

	stmts, err := s.stats.StatementStats(ctx)
	if err != nil {
		s.logger.Warn("statement stats unavailable, omitting from sample",
			"sample_id", report.ID,
			"error", err,
		)
		report.Degraded = true
		report.Warnings = append(report.Warnings, "query stats omitted: "+err.Error())
	} else {
		report.QueryStats = rankStatements(stmts, s.config.TopK)
	}

	s.logger.Debug("sampling cycle complete",
		"sample_id", report.ID,
		"usage_samples", len(report.UsageSamples),
		"query_stats", len(report.QueryStats),
		"degraded", report.Degraded,
	)

	return report, nil
}

// rankUsage orders counter snapshots by descending seek count, breaking
// ties by object then index name ascending so output is deterministic.
func rankUsage(usage []storage.IndexUsage, at time.Time) []UsageSample {
	samples := make([]UsageSample, 0, len(usage))
	for _, u := range usage {
		samples = append(samples, usageSampleFrom(u, at))
	}

	sort.Slice(samples, func(i, j int) bool {
		if samples[i].Seeks != samples[j].Seeks {
			return samples[i].Seeks > samples[j].Seeks
		}
		if samples[i].Object != samples[j].Object {
			return samples[i].Object < samples[j].Object
		}
		return samples[i].Index < samples[j].Index
	})

	return samples
}

// rankStatements returns the top-K statements by logical reads descending.
// The ranking is computed fresh from the current counters; nothing carries
// over between cycles.
func rankStatements(stmts []storage.StatementStat, topK int) []QueryStat {
	stats := make([]QueryStat, 0, len(stmts))
	for _, st := range stmts {
		stats = append(stats, queryStatFrom(st))
	}

	sort.Slice(stats, func(i, j int) bool {
		if stats[i].LogicalReads != stats[j].LogicalReads {
			return stats[i].LogicalReads > stats[j].LogicalReads
		}
		return stats[i].Fingerprint < stats[j].Fingerprint
	})

	if len(stats) > topK {
		stats = stats[:topK]
	}
	return stats
}
