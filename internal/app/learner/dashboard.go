package learner

import (
	"context"
	"crypto/md5"
	"fmt"
	"slices"

	"github.com/lingoleap/lingoleap/internal/domain"
)

// LessonSummary is one row of the lesson list.
type LessonSummary struct {
	ID        int    `json:"lesson"`
	Title     string `json:"title"`
	XP        int64  `json:"xp"`
	Completed bool   `json:"completed"`
	Unlocked  bool   `json:"unlocked"`
}

// EarnedAchievement pairs a stored unlock with its definition.
type EarnedAchievement struct {
	Key      string `json:"key"`
	Name     string `json:"name"`
	Icon     string `json:"icon"`
	EarnedAt string `json:"earned_at"`
}

// Dashboard is everything the home screen shows.
type Dashboard struct {
	Name             string              `json:"name"`
	ProfileColor     string              `json:"profile_color"`
	Hearts           int                 `json:"hearts"`
	MaxHearts        int                 `json:"max_hearts"`
	SecondsUntilNext int                 `json:"seconds_until_next"`
	Gems             int64               `json:"gems"`
	XP               int64               `json:"xp"`
	Streak           int                 `json:"streak"`
	Level            domain.LevelInfo    `json:"level"`
	DailyProgress    int64               `json:"daily_progress"`
	DailyGoal        int64               `json:"daily_goal"`
	GoalPercent      int                 `json:"goal_percent"`
	Language         string              `json:"language"`
	Languages        []string            `json:"languages"`
	Lessons          []LessonSummary     `json:"lessons"`
	CompletedLessons []int               `json:"completed_lessons"`
	Achievements     []EarnedAchievement `json:"achievements"`
}

// Dashboard runs the passive checks and assembles the home screen for lang.
func (s *Service) Dashboard(ctx context.Context, email, lang string) (*Dashboard, error) {
	lang, err := s.language(lang)
	if err != nil {
		return nil, err
	}
	if _, err := s.engine.PassiveCheck(ctx, email); err != nil {
		return nil, err
	}
	hearts, err := s.engine.Hearts(ctx, email)
	if err != nil {
		return nil, err
	}
	u, err := s.store.GetUser(ctx, email)
	if err != nil {
		return nil, err
	}
	lessons, completed, err := s.LessonList(ctx, email, lang)
	if err != nil {
		return nil, err
	}
	achievements, err := s.EarnedAchievements(ctx, email)
	if err != nil {
		return nil, err
	}

	return &Dashboard{
		Name:             u.DisplayName(),
		ProfileColor:     ProfileColor(u.DisplayName()),
		Hearts:           hearts.Hearts,
		MaxHearts:        hearts.MaxHearts,
		SecondsUntilNext: hearts.SecondsUntilNext,
		Gems:             u.Gems,
		XP:               u.XP,
		Streak:           u.Streak,
		Level:            s.engine.Level(u.XP),
		DailyProgress:    u.DailyProgress,
		DailyGoal:        u.DailyGoal,
		GoalPercent:      u.GoalPercent(),
		Language:         lang,
		Languages:        s.catalog.Languages(),
		Lessons:          lessons,
		CompletedLessons: completed,
		Achievements:     achievements,
	}, nil
}

// EarnedAchievements lists the learner's unlocks, oldest first. Keys no
// longer in the catalog are shown by key alone.
func (s *Service) EarnedAchievements(ctx context.Context, email string) ([]EarnedAchievement, error) {
	earned, err := s.store.UserAchievements(ctx, email)
	if err != nil {
		return nil, err
	}
	defs := make(map[string]domain.AchievementDef)
	for _, d := range s.engine.Achievements() {
		defs[d.Key] = d
	}
	out := make([]EarnedAchievement, 0, len(earned))
	for _, ua := range earned {
		d, ok := defs[ua.Key]
		if !ok {
			d = domain.AchievementDef{Key: ua.Key, Name: ua.Key}
		}
		out = append(out, EarnedAchievement{
			Key:      d.Key,
			Name:     d.Name,
			Icon:     d.Icon,
			EarnedAt: ua.EarnedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
		})
	}
	return out, nil
}

// ProfileColor derives a stable avatar colour from a display name. Each
// channel comes from the name's MD5 digest, clamped to [50,200] so the
// colour is never too dark or too light.
func ProfileColor(name string) string {
	sum := md5.Sum([]byte(name))
	clamp := func(b byte) int { return min(max(int(b), 50), 200) }
	return fmt.Sprintf("#%02x%02x%02x", clamp(sum[0]), clamp(sum[1]), clamp(sum[2]))
}

// LessonList returns the language's lessons annotated with completion and
// lock state, plus the completed ids.
func (s *Service) LessonList(ctx context.Context, email, lang string) ([]LessonSummary, []int, error) {
	lang, err := s.language(lang)
	if err != nil {
		return nil, nil, err
	}
	lessons, err := s.catalog.Lessons(lang)
	if err != nil {
		return nil, nil, err
	}
	completed, err := s.store.CompletedLessons(ctx, email, lang)
	if err != nil {
		return nil, nil, err
	}

	out := make([]LessonSummary, 0, len(lessons))
	prevDone := true
	for _, l := range lessons {
		done := slices.Contains(completed, l.ID)
		out = append(out, LessonSummary{
			ID:        l.ID,
			Title:     l.Title,
			XP:        l.XP,
			Completed: done,
			Unlocked:  done || prevDone,
		})
		prevDone = done
	}
	return out, completed, nil
}
