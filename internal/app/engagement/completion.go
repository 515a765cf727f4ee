package engagement

import (
	"context"
	"fmt"
	"time"

	"github.com/lingoleap/lingoleap/internal/domain"
	"github.com/lingoleap/lingoleap/internal/infra/metrics"
)

// AchievementView is a newly earned achievement as shown to the learner.
type AchievementView struct {
	Key         string `json:"key"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
	RewardXP    int64  `json:"reward_xp"`
	RewardGems  int64  `json:"reward_gems"`
}

// CompletionResult is the outcome of one lesson completion.
type CompletionResult struct {
	LessonID         int               `json:"lesson_id"`
	Language         string            `json:"language"`
	AlreadyCompleted bool              `json:"already_completed"`
	XPEarned         int64             `json:"xp_earned"`
	GemsEarned       int64             `json:"gems_earned"`
	TotalXP          int64             `json:"new_total_xp"`
	Gems             int64             `json:"gems"`
	Streak           int               `json:"new_streak"`
	StreakTransition StreakTransition  `json:"streak_transition"`
	Level            domain.LevelInfo  `json:"level"`
	LeveledUp        bool              `json:"leveled_up"`
	DailyProgress    int64             `json:"daily_progress"`
	DailyGoal        int64             `json:"daily_goal"`
	CompletedLessons []int             `json:"completed_lessons"`
	NewAchievements  []AchievementView `json:"new_achievements"`
}

// CompleteLesson records that email finished lessonID in language.
//
// The lesson is validated before anything is written. Everything after that
// runs in one unit of work: progress upsert, daily rollover, lesson rewards,
// streak update, level-up bonus, and achievement rewards. Lesson rewards are
// granted only when the lesson was not already complete; a repeat still
// counts as activity for the streak.
func (e *Engine) CompleteLesson(ctx context.Context, email string, lessonID int, language string) (CompletionResult, error) {
	start := time.Now()
	res, err := e.completeLesson(ctx, email, lessonID, language)
	metrics.CompletionLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.CompletionFailures.WithLabelValues(domain.ErrorKind(err)).Inc()
		e.log.Warn("lesson completion failed", "email", email, "lesson", lessonID,
			"language", language, "error", err)
		return CompletionResult{}, err
	}
	return res, nil
}

func (e *Engine) completeLesson(ctx context.Context, email string, lessonID int, language string) (CompletionResult, error) {
	lesson, err := e.lessons.Lesson(language, lessonID)
	if err != nil {
		return CompletionResult{}, err
	}

	defer e.locks.lock(email)()

	now := e.now()
	today := domain.DateOf(now.In(e.cfg.Location))

	var (
		res            CompletionResult
		lessonGems     int64
		levelUpGems    int64
		achievementXP  int64
		achievementGem int64
		passive        PassiveResult
		streakBefore   int
	)
	err = e.store.InTx(ctx, func(tx domain.ProgressTx) error {
		u, err := tx.GetUser(ctx, email)
		if err != nil {
			return err
		}

		// 1. progress
		wasCompleted, err := tx.UpsertProgress(ctx, email, lesson.ID, lesson.Language)
		if err != nil {
			return err
		}

		// A stale daily counter rolls over before today's XP lands on it.
		streakBefore = u.Streak
		passive = ApplyPassive(u, today)

		// 2. lesson rewards
		before := LevelFor(u.XP, e.cfg.Levels)
		if !wasCompleted {
			u.XP += lesson.XP
			u.DailyProgress += lesson.XP
			if lesson.Gems > 0 {
				u.Gems += lesson.Gems
				lessonGems = lesson.Gems
				reason := fmt.Sprintf("%s lesson %d", lesson.Language, lesson.ID)
				if err := tx.InsertGemEntry(ctx, e.gemEntry(u, domain.GemLesson, lesson.Gems, reason, now)); err != nil {
					return err
				}
			}
		}

		// 3. streak
		transition := e.applyActive(u, today)

		// 4. level-up bonus
		after := LevelFor(u.XP, e.cfg.Levels)
		leveledUp := after.Level > before.Level
		if leveledUp && e.cfg.LevelUpGems > 0 {
			u.Gems += e.cfg.LevelUpGems
			levelUpGems = e.cfg.LevelUpGems
			reason := fmt.Sprintf("reached level %d", after.Level)
			if err := tx.InsertGemEntry(ctx, e.gemEntry(u, domain.GemLevelUp, e.cfg.LevelUpGems, reason, now)); err != nil {
				return err
			}
		}

		// 5. persist
		if err := tx.SaveUser(ctx, u); err != nil {
			return err
		}

		// 6. achievements against the updated stats
		total, perLanguage, err := tx.CompletionCounts(ctx, email)
		if err != nil {
			return err
		}
		snapshot := domain.StatsSnapshot{
			Streak:         u.Streak,
			Level:          after.Level,
			TotalCompleted: total,
			PerLanguage:    perLanguage,
		}
		unlocked, reward, err := e.achievements.CheckAndUnlock(ctx, tx, email, snapshot, now)
		if err != nil {
			return err
		}
		if len(unlocked) > 0 {
			u.XP += reward.XP
			for _, def := range unlocked {
				if def.RewardGems <= 0 {
					continue
				}
				u.Gems += def.RewardGems
				if err := tx.InsertGemEntry(ctx, e.gemEntry(u, domain.GemAchievement, def.RewardGems, def.Name, now)); err != nil {
					return err
				}
			}
			if err := tx.SaveUser(ctx, u); err != nil {
				return err
			}
			achievementXP, achievementGem = reward.XP, reward.Gems
		}

		completed, err := tx.CompletedLessons(ctx, email, lesson.Language)
		if err != nil {
			return err
		}

		var lessonXP int64
		if !wasCompleted {
			lessonXP = lesson.XP
		}
		res = CompletionResult{
			LessonID:         lesson.ID,
			Language:         lesson.Language,
			AlreadyCompleted: wasCompleted,
			XPEarned:         lessonXP + achievementXP,
			GemsEarned:       lessonGems + levelUpGems + achievementGem,
			TotalXP:          u.XP,
			Gems:             u.Gems,
			Streak:           u.Streak,
			StreakTransition: transition,
			Level:            LevelFor(u.XP, e.cfg.Levels),
			LeveledUp:        leveledUp,
			DailyProgress:    u.DailyProgress,
			DailyGoal:        u.DailyGoal,
			CompletedLessons: completed,
			NewAchievements:  views(unlocked),
		}
		return nil
	})
	if err != nil {
		return CompletionResult{}, err
	}

	if passive.StreakReset {
		metrics.StreakResets.Inc()
		e.log.Info("streak reset", "email", email, "previous", streakBefore)
	}
	e.record(res, lessonGems, levelUpGems, achievementXP)
	e.log.Info("lesson completed",
		"email", email,
		"lesson", res.LessonID,
		"language", res.Language,
		"repeat", res.AlreadyCompleted,
		"xp", res.TotalXP,
		"streak", res.Streak,
		"transition", res.StreakTransition,
		"leveled_up", res.LeveledUp,
		"achievements", len(res.NewAchievements),
	)
	return res, nil
}

// record publishes metrics for a committed completion.
func (e *Engine) record(res CompletionResult, lessonGems, levelUpGems, achievementXP int64) {
	kind := "first"
	if res.AlreadyCompleted {
		kind = "repeat"
	}
	metrics.LessonsCompleted.WithLabelValues(res.Language, kind).Inc()
	metrics.StreakTransitions.WithLabelValues(string(res.StreakTransition)).Inc()

	if lessonXP := res.XPEarned - achievementXP; lessonXP > 0 {
		metrics.XPAwarded.WithLabelValues("lesson").Add(float64(lessonXP))
	}
	if achievementXP > 0 {
		metrics.XPAwarded.WithLabelValues("achievement").Add(float64(achievementXP))
	}
	if lessonGems > 0 {
		metrics.GemsAwarded.WithLabelValues(string(domain.GemLesson)).Add(float64(lessonGems))
	}
	if levelUpGems > 0 {
		metrics.GemsAwarded.WithLabelValues(string(domain.GemLevelUp)).Add(float64(levelUpGems))
	}
	if res.LeveledUp {
		metrics.LevelUps.Inc()
	}
	for _, a := range res.NewAchievements {
		metrics.AchievementsUnlocked.WithLabelValues(a.Key).Inc()
		if a.RewardGems > 0 {
			metrics.GemsAwarded.WithLabelValues(string(domain.GemAchievement)).Add(float64(a.RewardGems))
		}
	}
}

func views(defs []domain.AchievementDef) []AchievementView {
	out := make([]AchievementView, 0, len(defs))
	for _, d := range defs {
		out = append(out, AchievementView{
			Key:         d.Key,
			Name:        d.Name,
			Description: d.Description,
			Icon:        d.Icon,
			RewardXP:    d.RewardXP,
			RewardGems:  d.RewardGems,
		})
	}
	return out
}
