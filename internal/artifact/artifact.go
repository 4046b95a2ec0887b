// Package artifact implements the single piece of shared state between the
// orchestrator and the sampler: a small text file through which the sampler
// first publishes its own pid and finally its report. The file is written
// only by the sampler and read and deleted only by the orchestrator, so the
// blocking waits here are the only ordering the protocol needs.
package artifact

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.hedera.com/solo-peakwatch/internal/core"
	"golang.hedera.com/solo-peakwatch/pkg/fsx"
	"golang.hedera.com/solo-peakwatch/pkg/logx"
)

// DefaultPollInterval is how often the bounded waits re-check the artifact.
const DefaultPollInterval = 10 * time.Millisecond

// WritePid publishes the sampler's own process identifier as the first line
// of the artifact. It must be the first thing the sampler does, before any
// blocking work, so the orchestrator's handshake wait is bounded.
func WritePid(path string, pid int) error {
	return fsx.WriteFileAtomic(path, []byte(fmt.Sprintf("%d\n", pid)), 0644)
}

// ReadPid reads the pid line published by the sampler. It fails if the file
// already holds a report instead of a pid.
func ReadPid(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("failed to read handshake artifact: %w", err)
	}

	line, _, _ := strings.Cut(strings.TrimSpace(string(data)), "\n")
	if strings.Contains(line, "\t") {
		return 0, fmt.Errorf("artifact %s holds a report, not a pid", path)
	}

	pid, err := strconv.Atoi(line)
	if err != nil {
		return 0, fmt.Errorf("artifact %s holds no valid pid: %w", path, err)
	}

	return pid, nil
}

// WriteReport replaces the artifact's content with the final report: two
// tab-separated integer fields, peak delta and baseline, both in kilobytes.
func WriteReport(path string, report core.Report) error {
	line := fmt.Sprintf("%d\t%d\n", report.PeakDeltaKB, report.BaselineKB)
	return fsx.WriteFileAtomic(path, []byte(line), 0644)
}

// ReadReport parses the two-field report the sampler wrote on termination.
func ReadReport(path string) (core.Report, error) {
	var report core.Report

	data, err := os.ReadFile(path)
	if err != nil {
		return report, fmt.Errorf("failed to read report artifact: %w", err)
	}

	line, _, _ := strings.Cut(strings.TrimSpace(string(data)), "\n")
	fields := strings.Split(line, "\t")
	if len(fields) != 2 {
		return report, fmt.Errorf("artifact %s holds no report yet", path)
	}

	report.PeakDeltaKB, err = strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		return report, fmt.Errorf("invalid peak delta in artifact %s: %w", path, err)
	}

	report.BaselineKB, err = strconv.ParseInt(fields[1], 10, 64)
	if err != nil {
		return report, fmt.Errorf("invalid baseline in artifact %s: %w", path, err)
	}

	return report, nil
}

// WaitForPid polls the artifact until the sampler has published its pid or
// the timeout elapses. This replaces a fixed sleep-then-read handshake so
// the orchestrator never guesses at the sampler's startup latency.
func WaitForPid(ctx context.Context, path string, timeout time.Duration) (int, error) {
	var lastErr error
	deadline := time.Now().Add(timeout)

	for {
		if _, exists := fsx.PathExists(path); exists {
			pid, err := ReadPid(path)
			if err == nil {
				return pid, nil
			}
			lastErr = err
		}

		if time.Now().After(deadline) {
			if lastErr != nil {
				return 0, fmt.Errorf("sampler did not publish its pid within %s: %w", timeout, lastErr)
			}
			return 0, fmt.Errorf("sampler did not publish its pid within %s", timeout)
		}

		if ctx.Err() != nil {
			return 0, ctx.Err()
		}

		core.ApplyDelay(ctx, DefaultPollInterval)
	}
}

// WaitForReport polls the artifact until the sampler has flushed its report
// or the timeout elapses. Called only after the termination signal was sent.
func WaitForReport(ctx context.Context, path string, timeout time.Duration) (core.Report, error) {
	var lastErr error
	deadline := time.Now().Add(timeout)

	for {
		report, err := ReadReport(path)
		if err == nil {
			return report, nil
		}
		lastErr = err

		if time.Now().After(deadline) {
			return core.Report{}, fmt.Errorf("sampler did not flush its report within %s: %w", timeout, lastErr)
		}

		if ctx.Err() != nil {
			return core.Report{}, ctx.Err()
		}

		core.ApplyDelay(ctx, DefaultPollInterval)
	}
}

// Remove deletes the artifact. Stale artifacts are a nuisance, not a
// correctness violation, so failure is logged rather than returned.
func Remove(path string) {
	if _, exists := fsx.PathExists(path); !exists {
		return
	}

	if err := os.Remove(path); err != nil {
		logx.As().Warn().Err(err).Str("artifact", path).Msg("Failed to remove artifact")
	}
}
