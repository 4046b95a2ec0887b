// Package sampler implements the watchdog's sampling session: a
// self-contained loop that polls a target process's resident memory and
// tracks the largest excursion over a baseline captured at session start.
package sampler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.hedera.com/solo-peakwatch/internal/core"
	"golang.hedera.com/solo-peakwatch/internal/rss"
	"golang.hedera.com/solo-peakwatch/pkg/logx"
)

// Session holds the state of one sampling run against a single target.
// The peak delta is monotonically non-decreasing: it only moves when a fresh
// sample exceeds it, and negative deltas (the target shrinking below its
// baseline) are tolerated without effect.
type Session struct {
	reader      rss.Reader
	interval    time.Duration
	baselineKB  int64
	peakDeltaKB int64
}

// NewSession captures the target's baseline and returns a ready session.
//
// Parameters:
//   - reader: The RSS reader attached to the target process.
//   - interval: The sampling interval. Must be strictly positive; intervals near
//     the OS scheduling granularity degrade accuracy but are accepted.
//
// Returns:
//   - A session with a zero peak delta, or an error if the interval is invalid
//     or the baseline read fails.
func NewSession(reader rss.Reader, interval time.Duration) (*Session, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("sampling interval must be positive, got %s", interval)
	}

	baseline, err := reader.ReadKB()
	if err != nil {
		return nil, fmt.Errorf("failed to capture baseline: %w", err)
	}

	logx.As().Debug().
		Int32("target", reader.Pid()).
		Int64("baseline_kb", baseline).
		Dur("interval", interval).
		Msg("Baseline captured")

	return &Session{
		reader:     reader,
		interval:   interval,
		baselineKB: baseline,
	}, nil
}

// Run executes the sampling loop until the context is cancelled. The loop has
// no notion of the workload being done; termination is entirely event-driven
// through ctx. A spike shorter than the interval may fall between two samples
// and be missed entirely; that resolution bias is inherent to polling and is
// reported as-is rather than interpolated away.
//
// Returns:
//   - nil after cancellation.
//   - rss.ErrTargetVanished if the target exited mid-loop; the peak accumulated
//     up to that point remains valid and must still be reported by the caller.
func (s *Session) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			// no further reads once the termination request is observed
			return nil
		default:
		}

		current, err := s.reader.ReadKB()
		if err != nil {
			if errors.Is(err, rss.ErrTargetVanished) {
				logx.As().Warn().
					Int32("target", s.reader.Pid()).
					Int64("peak_delta_kb", s.peakDeltaKB).
					Msg("Target process exited, ending session early")
				return err
			}
			return fmt.Errorf("sampling failed: %w", err)
		}

		if delta := current - s.baselineKB; delta > s.peakDeltaKB {
			s.peakDeltaKB = delta
			logx.As().Trace().
				Int32("target", s.reader.Pid()).
				Int64("current_kb", current).
				Int64("peak_delta_kb", s.peakDeltaKB).
				Msg("New peak observed")
		}

		core.ApplyDelay(ctx, s.interval)
	}
}

// Report returns the session's terminal output. Valid at any point; final
// once Run has returned.
func (s *Session) Report() core.Report {
	return core.Report{
		PeakDeltaKB: s.peakDeltaKB,
		BaselineKB:  s.baselineKB,
	}
}
