// Package cli implements the lingoleap command-line interface using Cobra.
// serve runs the API; the other subcommands inspect and maintain learner data.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "lingoleap",
	Short: "lingoleap: progression and economy engine for language lessons",
	Long: `lingoleap tracks learners through lessons with XP levels, hearts,
gems, daily goals, streaks and achievements.

Run 'lingoleap serve' to start the JSON API.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command. Called from main.go.
func Execute(version string) {
	rootCmd.Version = version

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
