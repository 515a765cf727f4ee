package engagement

import "github.com/lingoleap/lingoleap/internal/domain"

// LevelFor maps cumulative XP onto a threshold table where thresholds[i] is
// the XP needed to reach level i+1. A learner is never below level 1.
func LevelFor(xp int64, thresholds []int64) domain.LevelInfo {
	n := len(thresholds)
	if n == 0 {
		return domain.LevelInfo{Level: 1, Percent: 100, MaxLevel: true}
	}

	level := 0
	for _, t := range thresholds {
		if xp >= t {
			level++
		} else {
			break
		}
	}

	if level >= n {
		return domain.LevelInfo{Level: n, Percent: 100, NextThreshold: thresholds[n-1], MaxLevel: true}
	}

	if level == 0 {
		// Only reachable when thresholds[0] > 0; progress runs toward level 1.
		return domain.LevelInfo{Level: 1, Percent: clampPct(xp, 0, thresholds[0]), NextThreshold: thresholds[0]}
	}

	return domain.LevelInfo{
		Level:         level,
		Percent:       clampPct(xp, thresholds[level-1], thresholds[level]),
		NextThreshold: thresholds[level],
	}
}

// XPForLevel returns the cumulative XP required to reach level, or 0 for
// levels at or below 1. Levels beyond the table return the last threshold.
func XPForLevel(level int, thresholds []int64) int64 {
	if level <= 1 || len(thresholds) == 0 {
		return 0
	}
	if level > len(thresholds) {
		level = len(thresholds)
	}
	return thresholds[level-1]
}

// clampPct is floor(100*(xp-lo)/(hi-lo)) clamped to [0,100].
func clampPct(xp, lo, hi int64) int {
	span := hi - lo
	if span <= 0 {
		return 100
	}
	pct := (xp - lo) * 100 / span
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return int(pct)
}
