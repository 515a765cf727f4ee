package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	achievementsCmd.Flags().StringVar(&achievementsEmail, "email", "", "Mark the achievements this learner has earned")
	rootCmd.AddCommand(achievementsCmd)
}

var achievementsEmail string

var achievementsCmd = &cobra.Command{
	Use:   "achievements",
	Short: "List the achievement catalog",
	Args:  cobra.NoArgs,
	RunE:  runAchievements,
}

func runAchievements(cmd *cobra.Command, args []string) error {
	d, err := openDaemon()
	if err != nil {
		return err
	}
	defer d.Close()

	earned := map[string]string{}
	if achievementsEmail != "" {
		list, err := d.Learners.EarnedAchievements(cmd.Context(), achievementsEmail)
		if err != nil {
			return err
		}
		for _, a := range list {
			earned[a.Key] = a.EarnedAt
		}
	}

	w := newTable(cmd.OutOrStdout())
	fmt.Fprintln(w, "KEY\tNAME\tREQUIRES\tREWARD\tEARNED")
	for _, def := range d.Engine.Achievements() {
		requires := fmt.Sprintf("%s >= %d", def.Criteria, def.Value)
		if def.Language != "" {
			requires = fmt.Sprintf("%d %s lessons", def.Value, def.Language)
		}
		fmt.Fprintf(w, "%s %s\t%s\t%s\t+%d XP +%d gems\t%s\n",
			def.Icon, def.Key, def.Name, requires, def.RewardXP, def.RewardGems, earned[def.Key])
	}
	return w.Flush()
}
