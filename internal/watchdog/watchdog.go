// Package watchdog owns the coordination protocol around a measured
// workload: spawn the sampler process, handshake to learn its pid, run the
// workload, and guarantee that the sampler is signaled and its report
// collected on every exit path. No code path leaves a sampler running
// unattended.
package watchdog

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"golang.hedera.com/solo-peakwatch/internal/artifact"
	"golang.hedera.com/solo-peakwatch/internal/core"
	"golang.hedera.com/solo-peakwatch/pkg/logx"
	"golang.hedera.com/solo-peakwatch/pkg/sniff"
)

const (
	DefaultInterval         = 10 * time.Millisecond
	DefaultHandshakeTimeout = 5 * time.Second
	DefaultFlushWait        = 2 * time.Second
)

// Workload is the opaque unit of work to execute under measurement. The
// watchdog does not prescribe anything beyond "executes and either completes
// or returns an error".
type Workload func(ctx context.Context) error

// Options configures one measured run.
type Options struct {
	// Interval is the sampling interval forwarded to the sampler.
	Interval time.Duration
	// HandshakeTimeout bounds the wait for the sampler to publish its pid.
	HandshakeTimeout time.Duration
	// FlushWait bounds the wait for the sampler to flush its report after
	// being signaled.
	FlushWait time.Duration
	// ArtifactDir is where the handshake/report artifact is created.
	ArtifactDir string
	// SamplerPath overrides the sampler executable. When empty the watchdog
	// re-executes its own binary with the "sample" subcommand.
	SamplerPath string
}

func (o Options) withDefaults() Options {
	if o.Interval <= 0 {
		o.Interval = DefaultInterval
	}
	if o.HandshakeTimeout <= 0 {
		o.HandshakeTimeout = DefaultHandshakeTimeout
	}
	if o.FlushWait <= 0 {
		o.FlushWait = DefaultFlushWait
	}
	if o.ArtifactDir == "" {
		o.ArtifactDir = os.TempDir()
	}
	return o
}

// state tracks the orchestration state machine of one run. Running always
// passes through Terminating on the way out; AwaitingHandshake may end in
// Failed without the workload ever starting.
type state string

const (
	stateIdle              state = "Idle"
	stateSpawning          state = "Spawning"
	stateAwaitingHandshake state = "AwaitingHandshake"
	stateRunning           state = "Running"
	stateTerminating       state = "Terminating"
	stateDone              state = "Done"
	stateFailed            state = "Failed"
)

// watched is a sampler acquired as a scoped resource: created by attach,
// released exactly once by teardown.
type watched struct {
	opts         Options
	runID        string
	artifactPath string
	samplerPid   int
	cmd          *exec.Cmd
	state        state
	released     bool
}

func (w *watched) setState(next state) {
	logx.As().Debug().
		Str("run_id", w.runID).
		Str("from", string(w.state)).
		Str("to", string(next)).
		Msg("Watchdog state transition")
	w.state = next
}

// Measure executes fn under a freshly attached sampler watching this
// process, and returns the merged result: workload outcome plus the
// sampler's report.
//
// Behavior:
//   - The runtime's collector is forced once before measurement so pre-existing
//     garbage does not pollute the baseline.
//   - A handshake timeout is a startup error: the workload never runs.
//   - Teardown (signal, report collection, artifact removal) is guaranteed on
//     every exit path out of the workload, including panics.
//   - A workload error is returned after cleanup, together with whatever report
//     the sampler produced; it is never swallowed.
func Measure(ctx context.Context, opts Options, fn Workload) (*core.RunResult, error) {
	opts = opts.withDefaults()

	run := &core.RunResult{
		RunID:     uuid.NewString(),
		StartedAt: time.Now(),
	}

	// keep earlier allocations of this process out of the baseline
	runtime.GC()

	w, err := attach(ctx, opts, run.RunID, os.Getpid())
	if err != nil {
		return nil, err
	}

	return w.run(ctx, run, fn)
}

// MeasureCommand spawns the given command and measures it under a sampler
// attached to the child's pid. The child's exit error is the workload error.
// The baseline is captured at sampler attach, shortly after the child has
// started, so allocations made before the handshake completes are part of
// the baseline rather than the delta.
func MeasureCommand(ctx context.Context, opts Options, name string, args ...string) (*core.RunResult, error) {
	opts = opts.withDefaults()

	run := &core.RunResult{
		RunID:     uuid.NewString(),
		StartedAt: time.Now(),
	}

	child := exec.CommandContext(ctx, name, args...)
	child.Stdout = os.Stdout
	child.Stderr = os.Stderr
	if err := child.Start(); err != nil {
		return nil, fmt.Errorf("failed to start workload command: %w", err)
	}

	w, err := attach(ctx, opts, run.RunID, child.Process.Pid)
	if err != nil {
		// the workload must not outlive a failed watchdog startup
		_ = child.Process.Kill()
		_ = child.Wait()
		return nil, err
	}

	return w.run(ctx, run, func(context.Context) error {
		return child.Wait()
	})
}

// attach spawns the sampler against the target pid and completes the
// handshake. On any failure the partially started sampler is torn down and a
// startup error is returned.
func attach(ctx context.Context, opts Options, runID string, targetPid int) (*watched, error) {
	w := &watched{
		opts:         opts,
		runID:        runID,
		artifactPath: filepath.Join(opts.ArtifactDir, fmt.Sprintf("peakwatch-%s.hs", runID)),
		state:        stateIdle,
	}

	w.setState(stateSpawning)

	cmd, err := samplerCommand(opts, targetPid, w.artifactPath)
	if err != nil {
		w.setState(stateFailed)
		return nil, err
	}

	if err := cmd.Start(); err != nil {
		w.setState(stateFailed)
		return nil, fmt.Errorf("failed to spawn sampler: %w", err)
	}
	w.cmd = cmd

	w.setState(stateAwaitingHandshake)

	pid, err := artifact.WaitForPid(ctx, w.artifactPath, opts.HandshakeTimeout)
	if err != nil {
		// never proceed to the workload with an unverified watchdog
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
		artifact.Remove(w.artifactPath)
		w.setState(stateFailed)
		return nil, fmt.Errorf("sampler handshake failed: %w", err)
	}
	w.samplerPid = pid

	logx.As().Info().
		Str("run_id", runID).
		Int("sampler_pid", pid).
		Int("target_pid", targetPid).
		Dur("interval", opts.Interval).
		Msg("Sampler attached")

	return w, nil
}

func samplerCommand(opts Options, targetPid int, artifactPath string) (*exec.Cmd, error) {
	seconds := strconv.FormatFloat(opts.Interval.Seconds(), 'f', -1, 64)
	args := []string{strconv.Itoa(targetPid), seconds, artifactPath}

	path := opts.SamplerPath
	if path == "" {
		self, err := os.Executable()
		if err != nil {
			return nil, fmt.Errorf("failed to locate own executable: %w", err)
		}
		path = self
		args = append([]string{"sample"}, args...)
	}

	cmd := exec.Command(path, args...)
	cmd.Stderr = os.Stderr
	return cmd, nil
}

// run executes the workload with teardown deferred, so the cleanup phase
// runs on success, on error, and on panic alike.
func (w *watched) run(ctx context.Context, run *core.RunResult, fn Workload) (res *core.RunResult, err error) {
	defer func() {
		report, terr := w.teardown()
		if report != nil {
			run.Report = report
		}
		if terr != nil {
			err = multierror.Append(err, terr).ErrorOrNil()
		}
		res = run
	}()

	w.setState(stateRunning)

	before := sniff.Snapshot()
	start := time.Now()

	werr := fn(ctx)

	run.WallTime = time.Since(start)
	after := sniff.Snapshot()
	run.Workload = workloadStats(before, after)

	if werr != nil {
		run.WorkloadErr = werr.Error()
		err = fmt.Errorf("workload failed: %w", werr)
	}

	return run, err
}

// teardown releases the sampler: termination signal, bounded wait for the
// report, artifact removal. It is idempotent and ignores the caller's
// context: cleanup must complete even when the surrounding run was
// cancelled. A sampler that is already gone is benign.
func (w *watched) teardown() (*core.Report, error) {
	if w.released {
		return nil, nil
	}
	w.released = true

	w.setState(stateTerminating)

	var errs *multierror.Error

	if err := syscall.Kill(w.samplerPid, syscall.SIGTERM); err != nil {
		if errors.Is(err, syscall.ESRCH) {
			// the sampler exited on its own (e.g. target vanished); its report
			// may still be waiting in the artifact
			logx.As().Debug().
				Int("sampler_pid", w.samplerPid).
				Msg("Sampler already gone at teardown")
		} else {
			errs = multierror.Append(errs, fmt.Errorf("failed to signal sampler: %w", err))
		}
	}

	var report *core.Report
	r, err := artifact.WaitForReport(context.Background(), w.artifactPath, w.opts.FlushWait)
	if err != nil {
		errs = multierror.Append(errs, err)
	} else {
		report = &r
	}

	w.reap()
	artifact.Remove(w.artifactPath)

	if errs.ErrorOrNil() != nil {
		w.setState(stateFailed)
		return report, errs.ErrorOrNil()
	}

	w.setState(stateDone)
	return report, nil
}

// reap waits for the sampler process so it never lingers as a zombie. A
// sampler that ignores SIGTERM past the flush window is killed outright.
func (w *watched) reap() {
	if w.cmd == nil {
		return
	}

	done := make(chan error, 1)
	go func() { done <- w.cmd.Wait() }()

	select {
	case <-done:
	case <-time.After(w.opts.FlushWait):
		logx.As().Warn().
			Int("sampler_pid", w.samplerPid).
			Msg("Sampler did not exit after SIGTERM, killing it")
		_ = w.cmd.Process.Kill()
		<-done
	}
}

func workloadStats(before, after *sniff.Stats) *core.WorkloadStats {
	return &core.WorkloadStats{
		AllocDeltaKB: int64(after.MemStats.AllocKB) - int64(before.MemStats.AllocKB),
		TotalAllocKB: int64(after.MemStats.TotalAllocKB - before.MemStats.TotalAllocKB),
		NumGC:        after.MemStats.NumGC - before.MemStats.NumGC,
	}
}
