package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"golang.hedera.com/solo-peakwatch/internal/config"
	"golang.hedera.com/solo-peakwatch/pkg/logx"
)

var (
	// Used for flags.
	flagConfig string

	rootCmd = &cobra.Command{
		Use:   "peakwatch",
		Short: "A peak-memory watchdog for processes under measurement",
		Long: "Solo Peakwatch - attaches a sampler process to a target, tracks the peak " +
			"resident-memory excursion over a baseline, and reports it on termination",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	// the config file is optional: the sampler process in particular runs
	// from positional arguments alone
	rootCmd.PersistentFlags().StringVarP(&flagConfig, "config", "d", "", "config file path")

	rootCmd.AddCommand(sampleCmd)
	rootCmd.AddCommand(measureCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(versionCmd)
}

func initConfig() {
	var err error
	err = config.Initialize(flagConfig)
	if err != nil {
		fmt.Println("failed to initialize config")
		cobra.CheckErr(err)
	}

	err = logx.Initialize(config.Get().Log)
	if err != nil {
		fmt.Println(err)
		cobra.CheckErr(err)
	}
}
