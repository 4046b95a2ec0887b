package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"golang.hedera.com/solo-peakwatch/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version and commit",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("peakwatch %s (%s)\n", version.Number(), version.Commit())
	},
}
