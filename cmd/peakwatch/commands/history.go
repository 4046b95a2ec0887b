package commands

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.hedera.com/solo-peakwatch/internal/config"
	"golang.hedera.com/solo-peakwatch/internal/history"
	"golang.hedera.com/solo-peakwatch/pkg/logx"
)

var (
	flagLimit int

	historyCmd = &cobra.Command{
		Use:   "history",
		Short: "List stored measurement runs, newest first",
		Run: func(cmd *cobra.Command, args []string) {
			if err := runHistory(); err != nil {
				logx.As().Error().Err(err).Msg("Failed to list history")
				os.Exit(1)
			}
		},
	}
)

func init() {
	historyCmd.Flags().IntVar(&flagLimit, "limit", 20, "maximum number of runs to list (0 for all)")
}

func runHistory() error {
	cfg := config.Get().History
	if err := config.ValidateHistoryConfig(*cfg); err != nil {
		return err
	}
	if !cfg.Enabled {
		return fmt.Errorf("history is not enabled in the configuration")
	}

	store, err := history.Open(cfg.Path)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	runs, err := store.List(flagLimit)
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs recorded")
		return nil
	}

	fmt.Printf("%-38s %-26s %12s %14s %14s\n",
		"RUN", "STARTED", "WALL TIME", "PEAK (KB)", "BASELINE (KB)")
	for _, run := range runs {
		peak, baseline := "-", "-"
		if run.Report != nil {
			peak = fmt.Sprintf("%d", run.Report.PeakDeltaKB)
			baseline = fmt.Sprintf("%d", run.Report.BaselineKB)
		}

		fmt.Printf("%-38s %-26s %12s %14s %14s\n",
			run.RunID,
			run.StartedAt.Format("2006-01-02T15:04:05.000Z07:00"),
			run.WallTime.Round(time.Millisecond).String(),
			peak,
			baseline)

		if run.WorkloadErr != "" {
			fmt.Printf("    workload error: %s\n", run.WorkloadErr)
		}
	}

	return nil
}
