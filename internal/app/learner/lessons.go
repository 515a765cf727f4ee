package learner

import (
	"context"
	"fmt"
	"slices"

	"github.com/lingoleap/lingoleap/internal/app/engagement"
	"github.com/lingoleap/lingoleap/internal/domain"
)

// LessonView is a lesson opened for play.
type LessonView struct {
	domain.Lesson
	Hearts           int  `json:"hearts"`
	SecondsUntilNext int  `json:"seconds_until_next"`
	Completed        bool `json:"completed"`
}

// OpenLesson applies the entry gate and returns the lesson content.
// A learner needs at least one heart, and every lesson after the first in a
// language needs the one before it completed.
func (s *Service) OpenLesson(ctx context.Context, email, lang string, id int) (*LessonView, error) {
	lesson, completed, hearts, err := s.gate(ctx, email, lang, id)
	if err != nil {
		return nil, err
	}
	return &LessonView{
		Lesson:           lesson,
		Hearts:           hearts.Hearts,
		SecondsUntilNext: hearts.SecondsUntilNext,
		Completed:        slices.Contains(completed, lesson.ID),
	}, nil
}

// Complete applies the entry gate and then records the completion.
func (s *Service) Complete(ctx context.Context, email, lang string, id int) (engagement.CompletionResult, error) {
	lesson, _, _, err := s.gate(ctx, email, lang, id)
	if err != nil {
		return engagement.CompletionResult{}, err
	}
	return s.engine.CompleteLesson(ctx, email, lesson.ID, lesson.Language)
}

func (s *Service) gate(ctx context.Context, email, lang string, id int) (domain.Lesson, []int, engagement.HeartStatus, error) {
	lang, err := s.language(lang)
	if err != nil {
		return domain.Lesson{}, nil, engagement.HeartStatus{}, err
	}
	lesson, err := s.catalog.Lesson(lang, id)
	if err != nil {
		return domain.Lesson{}, nil, engagement.HeartStatus{}, err
	}

	hearts, err := s.engine.Hearts(ctx, email)
	if err != nil {
		return domain.Lesson{}, nil, engagement.HeartStatus{}, err
	}
	if hearts.Hearts <= 0 {
		return domain.Lesson{}, nil, hearts, fmt.Errorf("%w (next heart in %ds)", domain.ErrNoHearts, hearts.SecondsUntilNext)
	}

	completed, err := s.store.CompletedLessons(ctx, email, lesson.Language)
	if err != nil {
		return domain.Lesson{}, nil, hearts, err
	}
	prev, ok, err := s.previousLesson(lesson)
	if err != nil {
		return domain.Lesson{}, nil, hearts, err
	}
	if ok && !slices.Contains(completed, prev) {
		return domain.Lesson{}, nil, hearts, fmt.Errorf("%w: complete %s lesson %d", domain.ErrLessonLocked, lesson.Language, prev)
	}
	return lesson, completed, hearts, nil
}

// previousLesson returns the id ordered just before l in its language.
func (s *Service) previousLesson(l domain.Lesson) (int, bool, error) {
	lessons, err := s.catalog.Lessons(l.Language)
	if err != nil {
		return 0, false, err
	}
	i := slices.IndexFunc(lessons, func(x domain.Lesson) bool { return x.ID == l.ID })
	if i <= 0 {
		return 0, false, nil
	}
	return lessons[i-1].ID, true, nil
}

// ─── Leaderboard ────────────────────────────────────────────────────────────

// Leaderboard ranks learners by XP. limit <= 0 uses the configured size.
func (s *Service) Leaderboard(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error) {
	if limit <= 0 {
		limit = s.cfg.LeaderboardSize
	}
	users, err := s.store.TopUsersByXP(ctx, limit)
	if err != nil {
		return nil, err
	}
	out := make([]domain.LeaderboardEntry, 0, len(users))
	for i, u := range users {
		out = append(out, domain.LeaderboardEntry{
			Rank:   i + 1,
			Name:   u.DisplayName(),
			XP:     u.XP,
			Streak: u.Streak,
			Level:  s.engine.Level(u.XP).Level,
		})
	}
	return out, nil
}
