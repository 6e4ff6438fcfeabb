// Package cli implements the multisig command-line interface using Cobra.
// Commands open the local daemon state directly; mutating commands act as
// the voter named by --as.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var jsonOutput bool

var rootCmd = &cobra.Command{
	Use:   "multisig",
	Short: "Fixed-membership weighted multisig",
	Long: `multisig lets a fixed set of weighted voters jointly authorize batches
of actions. Proposals pass once the configured threshold is met and are then
executed exactly once, as the multisig's own identity.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Print results as JSON")
}

// Execute runs the root command. Called from main.go.
func Execute(version string) {
	rootCmd.Version = version

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
