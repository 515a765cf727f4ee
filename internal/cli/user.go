package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	userCmd.Flags().StringVar(&userLang, "lang", "", "Language for the lesson list (default from config)")
	rootCmd.AddCommand(userCmd)
}

var userLang string

var userCmd = &cobra.Command{
	Use:   "user EMAIL",
	Short: "Show a learner's progress",
	Long: `Show hearts, gems, XP, streak, daily goal and lessons for one learner.
The same passive streak check as a login runs first.`,
	Args: cobra.ExactArgs(1),
	RunE: runUser,
}

func runUser(cmd *cobra.Command, args []string) error {
	d, err := openDaemon()
	if err != nil {
		return err
	}
	defer d.Close()

	dash, err := d.Learners.Dashboard(cmd.Context(), args[0], userLang)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Name:     %s (%s)\n", dash.Name, dash.ProfileColor)
	fmt.Fprintf(out, "Hearts:   %s  next in %s\n",
		hearts(dash.Hearts, dash.MaxHearts), formatWait(dash.SecondsUntilNext))
	fmt.Fprintf(out, "Gems:     %d\n", dash.Gems)
	fmt.Fprintf(out, "XP:       %d (level %d) %s\n", dash.XP, dash.Level.Level, renderBar(dash.Level.Percent))
	fmt.Fprintf(out, "Streak:   %d day(s)\n", dash.Streak)
	fmt.Fprintf(out, "Today:    %d/%d XP %s\n", dash.DailyProgress, dash.DailyGoal, renderBar(dash.GoalPercent))

	fmt.Fprintf(out, "\n%s lessons:\n", dash.Language)
	w := newTable(out)
	fmt.Fprintln(w, "  #\tTITLE\tXP\tSTATUS")
	for _, l := range dash.Lessons {
		status := "locked"
		switch {
		case l.Completed:
			status = "done"
		case l.Unlocked:
			status = "open"
		}
		fmt.Fprintf(w, "  %d\t%s\t%d\t%s\n", l.ID, l.Title, l.XP, status)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if len(dash.Achievements) > 0 {
		fmt.Fprintln(out, "\nAchievements:")
		for _, a := range dash.Achievements {
			fmt.Fprintf(out, "  %s %s (%s)\n", a.Icon, a.Name, a.EarnedAt)
		}
	}
	return nil
}
