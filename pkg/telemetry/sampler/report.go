package sampler

import (
	"time"

	"veridata/gatekeeper/pkg/storage"
)

// UsageSample is a point-in-time read of one (object, index) counter pair.
type UsageSample struct {
	// Object is the entity the index belongs to.
	Object string `json:"object"`

	// Index is the index name within the object.
	Index string `json:"index"`

	// Seeks counts keyed index accesses at sample time.
	Seeks int64 `json:"seeks"`

	// Scans counts full index scans at sample time.
	Scans int64 `json:"scans"`

	// Lookups counts internal point reads at sample time.
	Lookups int64 `json:"lookups"`

	// SampledAt is when the counters were read.
	SampledAt time.Time `json:"sampled_at"`
}

// QueryStat is one entry of the per-cycle top-K statement ranking.
type QueryStat struct {
	// Fingerprint identifies the statement shape, with literals stripped.
	Fingerprint string `json:"fingerprint"`

	// Executions counts how many times the statement ran.
	Executions int64 `json:"executions"`

	// LogicalReads counts rows examined across all executions.
	LogicalReads int64 `json:"logical_reads"`

	// LogicalWrites counts rows written across all executions.
	LogicalWrites int64 `json:"logical_writes"`

	// CPUTime is cumulative CPU time, zero when the engine does not
	// account CPU.
	CPUTime time.Duration `json:"cpu_time"`

	// Elapsed is cumulative wall-clock time.
	Elapsed time.Duration `json:"elapsed"`
}

// Report is the output of one sampling cycle.
//
// UsageSamples are ordered by descending seek count, ties broken by object
// name then index name ascending. QueryStats hold the top-K statements by
// logical reads descending, re-ranked fresh each cycle.
type Report struct {
	// ID uniquely identifies this sampling cycle.
	ID string `json:"id"`

	// SampledAt is when the cycle started.
	SampledAt time.Time `json:"sampled_at"`

	// UsageSamples is the ordered per-(object, index) counter snapshot.
	UsageSamples []UsageSample `json:"usage_samples"`

	// QueryStats is the top-K statement ranking for this cycle.
	QueryStats []QueryStat `json:"query_stats"`

	// Degraded is true when part of the sample could not be collected.
	Degraded bool `json:"degraded"`

	// Warnings describes which sections were omitted and why.
	Warnings []string `json:"warnings,omitempty"`
}

func usageSampleFrom(u storage.IndexUsage, at time.Time) UsageSample {
	return UsageSample{
		Object:    u.Object,
		Index:     u.Index,
		Seeks:     u.Seeks,
		Scans:     u.Scans,
		Lookups:   u.Lookups,
		SampledAt: at,
	}
}

func queryStatFrom(s storage.StatementStat) QueryStat {
	return QueryStat{
		Fingerprint:   s.Fingerprint,
		Executions:    s.Executions,
		LogicalReads:  s.LogicalReads,
		LogicalWrites: s.LogicalWrites,
		CPUTime:       s.CPUTime,
		Elapsed:       s.Elapsed,
	}
}
