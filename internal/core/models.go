package core

import (
	"context"
	"time"
)

// Report is the sampler's terminal output: the largest observed excursion of
// the target's resident memory above the baseline captured at attach time.
// It is produced exactly once, when the sampler is signaled to terminate (or
// when the target vanishes mid-session).
//
// Fields:
//   - PeakDeltaKB: The maximum observed delta over the baseline, in kilobytes. Never negative.
//   - BaselineKB: The resident memory reading captured once at sampler start, in kilobytes.
//
// Notes:
//   - A target that never grows past its baseline yields a PeakDeltaKB of exactly 0.
//   - The report reflects a statistical sample, not an exact trace: spikes shorter
//     than the sampling interval may be missed entirely.
type Report struct {
	PeakDeltaKB int64 `json:"peak_delta_kb"`
	BaselineKB  int64 `json:"baseline_kb"`
}

// WorkloadStats captures the measured process's own runtime allocation
// counters across the workload, as a complement to the OS-level view the
// sampler provides.
type WorkloadStats struct {
	// AllocDeltaKB is the change in live heap allocation across the workload.
	// It can be negative when the collector reclaims more than the workload retained.
	AllocDeltaKB int64 `json:"alloc_delta_kb"`
	// TotalAllocKB is the cumulative allocation performed during the workload.
	TotalAllocKB int64 `json:"total_alloc_kb"`
	// NumGC is the number of garbage collections that ran during the workload.
	NumGC uint32 `json:"num_gc"`
}

// RunResult is the merged outcome of one measured run: the workload's own
// timing and allocation statistics plus the sampler's report.
//
// Fields:
//   - RunID: Unique identifier of the run, used as artifact and sink key material.
//   - StartedAt: Wall-clock time at which the workload began.
//   - WallTime: Total workload execution time.
//   - Workload: Runtime allocation statistics recorded around the workload.
//   - Report: The sampler's report. May carry partial data if the workload failed.
//   - WorkloadErr: The workload's error message, if any. Kept as a string so the
//     result stays JSON-serializable for sinks and the history store.
type RunResult struct {
	RunID       string         `json:"run_id"`
	StartedAt   time.Time      `json:"started_at"`
	WallTime    time.Duration  `json:"wall_time"`
	Workload    *WorkloadStats `json:"workload,omitempty"`
	Report      *Report        `json:"report,omitempty"`
	WorkloadErr string         `json:"workload_err,omitempty"`
}

// Sink defines the interface for a handler that persists run results.
//
// Methods:
//   - Info: Returns a unique identifier or description of the sink instance.
//   - Type: Returns the kind of sink (e.g., "LocalDir", "S3").
//   - Store: Persists a run result and returns the destination it was written to.
//
// Notes:
//   - Sink failures must not invalidate the measurement itself; callers log and
//     continue with the remaining sinks.
type Sink interface {
	Info() string
	Type() string
	Store(ctx context.Context, run *RunResult) (string, error)
}
