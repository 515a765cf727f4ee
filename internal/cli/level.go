package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/lingoleap/lingoleap/internal/app/engagement"
	"github.com/lingoleap/lingoleap/internal/daemon"
)

func init() {
	rootCmd.AddCommand(levelCmd)
}

var levelCmd = &cobra.Command{
	Use:   "level XP",
	Short: "Show the level reached with a given amount of XP",
	Args:  cobra.ExactArgs(1),
	RunE:  runLevel,
}

func runLevel(cmd *cobra.Command, args []string) error {
	xp, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || xp < 0 {
		return fmt.Errorf("XP must be a non-negative integer, got %q", args[0])
	}

	cfg, err := daemon.LoadConfig()
	if err != nil {
		return err
	}
	ec, err := cfg.Engagement()
	if err != nil {
		return err
	}

	info := engagement.LevelFor(xp, ec.Levels)
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "XP:       %d\n", xp)
	fmt.Fprintf(out, "Level:    %d\n", info.Level)
	if info.MaxLevel {
		fmt.Fprintf(out, "Progress: %s (max level)\n", renderBar(100))
		return nil
	}
	fmt.Fprintf(out, "Progress: %s\n", renderBar(info.Percent))
	fmt.Fprintf(out, "Next:     level %d at %d XP (%d to go)\n",
		info.Level+1, info.NextThreshold, info.NextThreshold-xp)
	return nil
}
