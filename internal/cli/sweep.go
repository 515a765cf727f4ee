package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(sweepCmd)
}

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Run the streak and daily-goal sweep once",
	Long: `Apply the passive check to every learner: roll daily progress over
and zero streaks that lapsed. serve runs this nightly.`,
	Args: cobra.NoArgs,
	RunE: runSweep,
}

func runSweep(cmd *cobra.Command, args []string) error {
	d, err := openDaemon()
	if err != nil {
		return err
	}
	defer d.Close()

	res, err := d.Scheduler.RunSweep(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "checked %d learner(s): %d daily reset(s), %d streak reset(s), %d failed\n",
		res.Checked, res.DailyResets, res.StreakResets, res.Failed)
	if res.Failed > 0 {
		return fmt.Errorf("%d learner(s) could not be checked: %v", res.Failed, res.FailedEmails)
	}
	return nil
}
