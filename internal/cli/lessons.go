package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(lessonsCmd)
}

var lessonsCmd = &cobra.Command{
	Use:   "lessons [LANG]",
	Short: "List the lessons of a language, or the available languages",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runLessons,
}

func runLessons(cmd *cobra.Command, args []string) error {
	d, err := openDaemon()
	if err != nil {
		return err
	}
	defer d.Close()

	out := cmd.OutOrStdout()
	if len(args) == 0 {
		for _, lang := range d.Catalog.Languages() {
			lessons, _ := d.Catalog.Lessons(lang)
			fmt.Fprintf(out, "%s (%d lessons)\n", lang, len(lessons))
		}
		return nil
	}

	lessons, err := d.Catalog.Lessons(args[0])
	if err != nil {
		return err
	}
	w := newTable(out)
	fmt.Fprintln(w, "#\tTITLE\tXP\tGEMS\tQUESTIONS")
	for _, l := range lessons {
		fmt.Fprintf(w, "%d\t%s\t%d\t%d\t%d\n", l.ID, l.Title, l.XP, l.Gems, len(l.Questions))
	}
	return w.Flush()
}
