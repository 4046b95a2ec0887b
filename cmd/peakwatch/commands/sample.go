package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.hedera.com/solo-peakwatch/internal/artifact"
	"golang.hedera.com/solo-peakwatch/internal/rss"
	"golang.hedera.com/solo-peakwatch/internal/sampler"
	"golang.hedera.com/solo-peakwatch/pkg/logx"
)

var (
	flagTargetName string

	sampleCmd = &cobra.Command{
		Use:   "sample <target-pid> <interval-seconds> <artifact-path>",
		Short: "Run the sampler process against a target pid",
		Long: "Run the sampler process: publish own pid to the artifact, capture the target's " +
			"resident-memory baseline, then sample until SIGTERM/SIGINT and write the final " +
			"report (peak delta and baseline, tab-separated kilobytes) back to the artifact",
		Args: cobra.RangeArgs(2, 3),
		Run: func(cmd *cobra.Command, args []string) {
			if err := runSample(cmd.Context(), args); err != nil {
				logx.As().Error().Err(err).Msg("Sampler failed")
				os.Exit(1)
			}
		},
	}
)

func init() {
	sampleCmd.Flags().StringVar(&flagTargetName, "name", "",
		"resolve the target by process-name glob instead of a pid argument")
}

func parseSampleArgs(args []string) (int32, time.Duration, string, error) {
	var targetPid int32

	if flagTargetName != "" {
		if len(args) != 2 {
			return 0, 0, "", fmt.Errorf("with --name, expected arguments: <interval-seconds> <artifact-path>")
		}
		pid, err := rss.FindPidByName(flagTargetName)
		if err != nil {
			return 0, 0, "", err
		}
		targetPid = pid
	} else {
		if len(args) != 3 {
			return 0, 0, "", fmt.Errorf("expected arguments: <target-pid> <interval-seconds> <artifact-path>")
		}
		pid, err := strconv.ParseInt(args[0], 10, 32)
		if err != nil {
			return 0, 0, "", fmt.Errorf("invalid target pid '%s': %w", args[0], err)
		}
		targetPid = int32(pid)
		args = args[1:]
	}

	seconds, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		return 0, 0, "", fmt.Errorf("invalid sampling interval '%s': %w", args[0], err)
	}

	interval := time.Duration(seconds * float64(time.Second))
	if interval <= 0 {
		return 0, 0, "", fmt.Errorf("sampling interval must be positive, got %s", args[0])
	}

	return targetPid, interval, args[1], nil
}

func runSample(ctx context.Context, args []string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	targetPid, interval, artifactPath, err := parseSampleArgs(args)
	if err != nil {
		return err
	}

	// install the termination handlers before any other work; a signal that
	// lands during startup must still drain through the report path
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// publish identity before anything blocking, so the orchestrator's
	// handshake wait is bounded
	if err := artifact.WritePid(artifactPath, logx.GetPid()); err != nil {
		return fmt.Errorf("failed to publish pid: %w", err)
	}

	reader, err := rss.NewProcessReader(targetPid)
	if err != nil {
		return err
	}

	session, err := sampler.NewSession(reader, interval)
	if err != nil {
		return err
	}

	logx.As().Info().
		Int32("target", targetPid).
		Dur("interval", interval).
		Str("artifact", artifactPath).
		Msg("Sampler started")

	runErr := session.Run(ctx)
	if runErr != nil && !errors.Is(runErr, rss.ErrTargetVanished) {
		// still flush what we have before surfacing the failure
		if werr := artifact.WriteReport(artifactPath, session.Report()); werr != nil {
			logx.As().Error().Err(werr).Msg("Failed to flush report")
		}
		return runErr
	}

	report := session.Report()
	if err := artifact.WriteReport(artifactPath, report); err != nil {
		return fmt.Errorf("failed to flush report: %w", err)
	}

	logx.As().Info().
		Int64("peak_delta_kb", report.PeakDeltaKB).
		Int64("baseline_kb", report.BaselineKB).
		Msg("Sampler reported and exiting")

	return nil
}
