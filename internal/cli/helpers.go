package cli

import (
	"io"
	"text/tabwriter"

	"github.com/lingoleap/lingoleap/internal/daemon"
)

// openDaemon loads the config and wires every service without serving.
// Callers must Close the result.
func openDaemon() (*daemon.Daemon, error) {
	return daemon.New()
}

// newTable returns a tabwriter laid out like the other list commands.
func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}
