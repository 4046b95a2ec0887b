package commands

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.hedera.com/solo-peakwatch/internal/config"
	"golang.hedera.com/solo-peakwatch/internal/core"
	"golang.hedera.com/solo-peakwatch/internal/history"
	"golang.hedera.com/solo-peakwatch/internal/sink"
	"golang.hedera.com/solo-peakwatch/internal/watchdog"
	"golang.hedera.com/solo-peakwatch/pkg/logx"
	"golang.hedera.com/solo-peakwatch/pkg/sniff"
)

var (
	flagInterval string

	measureCmd = &cobra.Command{
		Use:   "measure -- <command> [args...]",
		Short: "Run a command under the peak-memory watchdog",
		Long: "Run a command with a sampler attached to it, and report its peak " +
			"resident-memory excursion over the baseline together with wall-clock time",
		Args: cobra.MinimumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			if err := runMeasure(cmd.Context(), args); err != nil {
				logx.As().Error().Stack().Err(err).Msg("Measurement failed")
				os.Exit(1)
			}
		},
	}
)

func init() {
	measureCmd.Flags().StringVar(&flagInterval, "interval", "",
		"sampling interval (e.g. 10ms, 0.5s); overrides the configured value")
}

func watchdogOptions() (watchdog.Options, error) {
	cfg := *config.Get().Watchdog
	if flagInterval != "" {
		cfg.Interval = flagInterval
	}

	if err := config.ValidateWatchdogConfig(cfg); err != nil {
		return watchdog.Options{}, err
	}

	opts := watchdog.Options{
		ArtifactDir: cfg.ArtifactDir,
		SamplerPath: cfg.SamplerPath,
	}

	// durations validated above
	opts.Interval, _ = time.ParseDuration(cfg.Interval)
	if cfg.HandshakeTimeout != "" {
		opts.HandshakeTimeout, _ = time.ParseDuration(cfg.HandshakeTimeout)
	}
	if cfg.FlushWait != "" {
		opts.FlushWait, _ = time.ParseDuration(cfg.FlushWait)
	}

	return opts, nil
}

func runMeasure(ctx context.Context, args []string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	logx.StartTimer()

	opts, err := watchdogOptions()
	if err != nil {
		return err
	}

	if err := sniff.Start(ctx, *config.Get().Profiling); err != nil {
		return fmt.Errorf("failed to start profiling: %w", err)
	}

	run, measureErr := watchdog.MeasureCommand(ctx, opts, args[0], args[1:]...)
	if run != nil {
		logSummary(run)
		persistRun(ctx, run)
	}

	return measureErr
}

func logSummary(run *core.RunResult) {
	ev := logx.As().Info().
		Str("run_id", run.RunID).
		Dur("wall_time", run.WallTime)

	if run.Report != nil {
		ev = ev.
			Int64("peak_delta_kb", run.Report.PeakDeltaKB).
			Int64("baseline_kb", run.Report.BaselineKB)
	}
	if run.WorkloadErr != "" {
		ev = ev.Str("workload_err", run.WorkloadErr)
	}

	ev.Msg("Measurement complete")
}

// persistRun stores the run in the history database and the configured
// sinks. Persistence failures are logged but never override the measurement
// outcome.
func persistRun(ctx context.Context, run *core.RunResult) {
	cfg := config.Get()

	if cfg.History.Enabled {
		if err := config.ValidateHistoryConfig(*cfg.History); err != nil {
			logx.As().Warn().Err(err).Msg("Skipping history persistence")
		} else if err := storeInHistory(cfg.History.Path, run); err != nil {
			logx.As().Warn().Err(err).Msg("Failed to store run in history")
		}
	}

	for _, s := range prepareSinks(cfg) {
		dest, err := s.Store(ctx, run)
		if err != nil {
			logx.As().Warn().
				Err(err).
				Str("sink", s.Info()).
				Str("type", s.Type()).
				Msg("Failed to store run result")
			continue
		}

		logx.As().Debug().
			Str("sink", s.Info()).
			Str("dest", dest).
			Msg("Run result stored")
	}
}

func storeInHistory(path string, run *core.RunResult) error {
	store, err := history.Open(path)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	return store.Put(run)
}

func prepareSinks(cfg config.Config) []core.Sink {
	var sinks []core.Sink

	if cfg.Sinks.LocalDir.Enabled {
		localDir, err := sink.NewLocalDir("dir-0", *cfg.Sinks.LocalDir)
		if err != nil {
			logx.As().Warn().Err(err).Msg("Failed to create LocalDir sink")
		} else {
			sinks = append(sinks, localDir)
		}
	}

	if cfg.Sinks.S3.Enabled {
		s3, err := sink.NewS3("s3-0", *cfg.Sinks.S3)
		if err != nil {
			logx.As().Warn().Err(err).Msg("Failed to create S3 sink")
		} else {
			sinks = append(sinks, s3)
		}
	}

	return sinks
}
