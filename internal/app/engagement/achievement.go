package engagement

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/lingoleap/lingoleap/internal/domain"
)

// Evaluator checks a stats snapshot against an immutable achievement catalog.
type Evaluator struct {
	definitions []domain.AchievementDef
}

// NewEvaluator copies defs; later changes to the slice do not leak in.
func NewEvaluator(defs []domain.AchievementDef) *Evaluator {
	return &Evaluator{definitions: append([]domain.AchievementDef(nil), defs...)}
}

// Definitions returns the catalog (for display).
func (a *Evaluator) Definitions() []domain.AchievementDef {
	return append([]domain.AchievementDef(nil), a.definitions...)
}

// Evaluate returns every catalog entry not in earned whose predicate holds,
// plus their summed reward. Thresholds are monotonic, so a single pass over
// a fixed snapshot finds everything.
func (a *Evaluator) Evaluate(s domain.StatsSnapshot, earned map[string]bool) ([]domain.AchievementDef, domain.Reward) {
	var (
		newly  []domain.AchievementDef
		reward domain.Reward
	)
	for _, def := range a.definitions {
		if earned[def.Key] {
			continue
		}
		if def.Satisfied(s) {
			newly = append(newly, def)
			reward.XP += def.RewardXP
			reward.Gems += def.RewardGems
		}
	}
	return newly, reward
}

// CheckAndUnlock evaluates inside tx and records each newly earned
// achievement. Entries that lose an insert race are dropped from the result
// and do not contribute to the reward.
func (a *Evaluator) CheckAndUnlock(ctx context.Context, tx domain.ProgressTx, email string, s domain.StatsSnapshot, at time.Time) ([]domain.AchievementDef, domain.Reward, error) {
	earned, err := tx.EarnedAchievements(ctx, email)
	if err != nil {
		return nil, domain.Reward{}, fmt.Errorf("load earned achievements: %w", err)
	}

	candidates, _ := a.Evaluate(s, earned)
	var (
		unlocked []domain.AchievementDef
		reward   domain.Reward
	)
	for _, def := range candidates {
		isNew, err := tx.InsertUserAchievement(ctx, domain.UserAchievement{Email: email, Key: def.Key, EarnedAt: at})
		if err != nil {
			return nil, domain.Reward{}, fmt.Errorf("record achievement %s: %w", def.Key, err)
		}
		if isNew {
			unlocked = append(unlocked, def)
			reward.XP += def.RewardXP
			reward.Gems += def.RewardGems
		}
	}
	return unlocked, reward, nil
}

// ─── Achievement Definitions ────────────────────────────────────────────────
// Four criteria families. Nothing fires on a single first lesson.

// DefaultAchievements returns the stock achievement catalog.
func DefaultAchievements() []domain.AchievementDef {
	defs := []domain.AchievementDef{
		// ── Lessons ──
		{Key: "lessons_5", Name: "Getting Started", Description: "Complete 5 lessons",
			Icon: "📘", Criteria: domain.CriteriaTotalLessons, Value: 5, RewardXP: 20, RewardGems: 5},
		{Key: "lessons_10", Name: "Dedicated Learner", Description: "Complete 10 lessons",
			Icon: "📚", Criteria: domain.CriteriaTotalLessons, Value: 10, RewardXP: 50, RewardGems: 10},
		{Key: "lessons_25", Name: "Bookworm", Description: "Complete 25 lessons",
			Icon: "🎓", Criteria: domain.CriteriaTotalLessons, Value: 25, RewardXP: 100, RewardGems: 20},

		// ── Streaks ──
		{Key: "streak_3", Name: "On Fire", Description: "Reach a 3-day streak",
			Icon: "🔥", Criteria: domain.CriteriaStreak, Value: 3, RewardXP: 15, RewardGems: 5},
		{Key: "streak_7", Name: "Week Warrior", Description: "Reach a 7-day streak",
			Icon: "📅", Criteria: domain.CriteriaStreak, Value: 7, RewardXP: 50, RewardGems: 15},
		{Key: "streak_30", Name: "Unstoppable", Description: "Reach a 30-day streak",
			Icon: "🏆", Criteria: domain.CriteriaStreak, Value: 30, RewardXP: 200, RewardGems: 50},

		// ── Levels ──
		{Key: "level_3", Name: "Rising Star", Description: "Reach level 3",
			Icon: "⭐", Criteria: domain.CriteriaLevel, Value: 3, RewardGems: 10},
		{Key: "level_5", Name: "Scholar", Description: "Reach level 5",
			Icon: "🌟", Criteria: domain.CriteriaLevel, Value: 5, RewardGems: 25},
		{Key: "level_7", Name: "Master", Description: "Reach the top level",
			Icon: "👑", Criteria: domain.CriteriaLevel, Value: 7, RewardGems: 50},
	}

	// ── Languages ──
	for _, lang := range []struct{ name, icon string }{
		{"Spanish", "🇪🇸"}, {"French", "🇫🇷"}, {"German", "🇩🇪"}, {"Japanese", "🇯🇵"},
	} {
		defs = append(defs, domain.AchievementDef{
			Key:         strings.ToLower(lang.name) + "_5",
			Name:        lang.name + " Explorer",
			Description: fmt.Sprintf("Complete 5 %s lessons", lang.name),
			Icon:        lang.icon,
			Criteria:    domain.CriteriaLanguageLessons,
			Value:       5,
			Language:    lang.name,
			RewardXP:    25,
			RewardGems:  10,
		})
	}
	return defs
}
