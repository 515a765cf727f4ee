package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	leaderboardCmd.Flags().IntVarP(&leaderboardLimit, "limit", "n", 0, "Number of learners (default from config)")
	rootCmd.AddCommand(leaderboardCmd)
}

var leaderboardLimit int

var leaderboardCmd = &cobra.Command{
	Use:   "leaderboard",
	Short: "Show the top learners by XP",
	Args:  cobra.NoArgs,
	RunE:  runLeaderboard,
}

func runLeaderboard(cmd *cobra.Command, args []string) error {
	d, err := openDaemon()
	if err != nil {
		return err
	}
	defer d.Close()

	board, err := d.Learners.Leaderboard(cmd.Context(), leaderboardLimit)
	if err != nil {
		return err
	}
	if len(board) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No learners yet.")
		return nil
	}

	w := newTable(cmd.OutOrStdout())
	fmt.Fprintln(w, "RANK\tNAME\tXP\tLEVEL\tSTREAK")
	for _, e := range board {
		fmt.Fprintf(w, "%d\t%s\t%d\t%d\t%d\n", e.Rank, e.Name, e.XP, e.Level, e.Streak)
	}
	return w.Flush()
}
