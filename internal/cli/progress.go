package cli

import (
	"fmt"
	"strings"
)

// ─── Progress Bar ───────────────────────────────────────────────────────────
// Renders level and daily-goal progress in the terminal:
//   [==========>.........]  52%

const barWidth = 20 // Characters for the progress bar

// renderBar draws pct (clamped to 0..100) as a fixed-width bar.
func renderBar(pct int) string {
	pct = min(max(pct, 0), 100)

	filled := pct * barWidth / 100
	empty := barWidth - filled

	var bar string
	switch {
	case filled == barWidth:
		bar = strings.Repeat("=", filled)
	case filled > 0:
		bar = strings.Repeat("=", filled-1) + ">" + strings.Repeat(".", empty)
	default:
		bar = strings.Repeat(".", barWidth)
	}
	return fmt.Sprintf("[%s] %3d%%", bar, pct)
}

// hearts draws filled and empty hearts.
func hearts(n, maxHearts int) string {
	n = min(max(n, 0), maxHearts)
	return strings.Repeat("♥", n) + strings.Repeat("♡", maxHearts-n)
}

// formatWait renders a countdown as m:ss.
func formatWait(seconds int) string {
	if seconds <= 0 {
		return "-"
	}
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}
