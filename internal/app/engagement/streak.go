package engagement

import (
	"context"
	"errors"
	"time"

	"github.com/lingoleap/lingoleap/internal/domain"
	"github.com/lingoleap/lingoleap/internal/infra/metrics"
)

// StreakTransition names the branch taken by an active streak update.
type StreakTransition string

const (
	// StreakFirstActivity: no activity was ever recorded.
	StreakFirstActivity StreakTransition = "first_activity"
	// StreakSameDayFirst: today was already stamped but the streak had been
	// zeroed (signup day, or a passive reset earlier today).
	StreakSameDayFirst StreakTransition = "same_day_first"
	// StreakSameDayRepeat: already credited today.
	StreakSameDayRepeat StreakTransition = "same_day_repeat"
	// StreakContinued: last activity was yesterday.
	StreakContinued StreakTransition = "continued"
	// StreakBroken: last activity was before yesterday.
	StreakBroken StreakTransition = "broken"
)

// daysBetween returns whole calendar days from a to b. Both must be DateOf values.
func daysBetween(a, b time.Time) int {
	return int(b.Sub(a) / (24 * time.Hour))
}

// NextStreak applies the active-update rule for an activity on today.
// last is the previous activity day (zero if none). A last day in the future
// is treated as today.
func NextStreak(streak int, last, today time.Time) (int, StreakTransition) {
	if last.IsZero() {
		return 1, StreakFirstActivity
	}
	switch gap := daysBetween(last, today); {
	case gap <= 0 && streak <= 0:
		return 1, StreakSameDayFirst
	case gap <= 0:
		return streak, StreakSameDayRepeat
	case gap == 1:
		return streak + 1, StreakContinued
	default:
		return 1, StreakBroken
	}
}

// PassiveResult reports what a passive check changed.
type PassiveResult struct {
	DailyReset  bool
	StreakReset bool
}

// Changed reports whether the user row needs persisting.
func (r PassiveResult) Changed() bool { return r.DailyReset || r.StreakReset }

// ApplyPassive rolls daily progress over and zeroes a lapsed streak.
// It never touches LastStreakDate, so a later active update the same day
// sees the old date and restarts the streak at 1.
func ApplyPassive(u *domain.User, today time.Time) PassiveResult {
	var r PassiveResult

	if u.LastDailyReset.IsZero() || u.LastDailyReset.Before(today) {
		u.DailyProgress = 0
		u.LastDailyReset = today
		r.DailyReset = true
	}

	if u.Streak > 0 && (u.LastStreakDate.IsZero() || daysBetween(u.LastStreakDate, today) > 1) {
		u.Streak = 0
		r.StreakReset = true
	}
	return r
}

// applyActive performs the completion-time streak update on u.
func (e *Engine) applyActive(u *domain.User, today time.Time) StreakTransition {
	next, tr := NextStreak(u.Streak, u.LastStreakDate, today)
	u.Streak = next
	u.LastStreakDate = today
	return tr
}

// PassiveCheck runs the login/dashboard check and returns the current streak.
func (e *Engine) PassiveCheck(ctx context.Context, email string) (int, error) {
	streak, _, err := e.passiveCheck(ctx, email)
	return streak, err
}

func (e *Engine) passiveCheck(ctx context.Context, email string) (int, PassiveResult, error) {
	defer e.locks.lock(email)()

	today := e.Today()
	var (
		streak, before int
		res            PassiveResult
	)
	err := e.store.InTx(ctx, func(tx domain.ProgressTx) error {
		u, err := tx.GetUser(ctx, email)
		if err != nil {
			return err
		}
		before = u.Streak
		res = ApplyPassive(u, today)
		streak = u.Streak
		if !res.Changed() {
			return nil
		}
		return tx.SaveUser(ctx, u)
	})
	if err != nil {
		return 0, PassiveResult{}, err
	}

	if res.StreakReset {
		metrics.StreakResets.Inc()
		e.log.Info("streak reset", "email", email, "previous", before)
	}
	return streak, res, nil
}

// SweepResult summarizes a maintenance pass.
type SweepResult struct {
	Checked      int
	DailyResets  int
	StreakResets int
	Failed       int
	// FailedEmails lists the learners whose check did not complete.
	FailedEmails []string
}

// Sweep applies the passive check to every email. Individual failures are
// counted and logged; the sweep keeps going until ctx is done or the sweep
// breaker opens on storage failures.
func (e *Engine) Sweep(ctx context.Context, emails []string) SweepResult {
	start := time.Now()
	defer func() { metrics.SweepDuration.Observe(time.Since(start).Seconds()) }()

	var r SweepResult
	for i, email := range emails {
		if ctx.Err() != nil {
			break
		}
		if e.breaker != nil {
			if err := e.breaker.Allow(); err != nil {
				rest := emails[i:]
				r.Failed += len(rest)
				r.FailedEmails = append(r.FailedEmails, rest...)
				e.log.Warn("sweep: deferring learners", "remaining", len(rest), "error", err)
				break
			}
		}
		r.Checked++
		_, res, err := e.passiveCheck(ctx, email)
		if err != nil {
			r.Failed++
			r.FailedEmails = append(r.FailedEmails, email)
			e.log.Warn("sweep: passive check failed", "email", email, "error", err)
			if e.breaker != nil && errors.Is(err, domain.ErrStorage) {
				e.breaker.RecordFailure()
			}
			continue
		}
		if e.breaker != nil {
			e.breaker.RecordSuccess()
		}
		if res.DailyReset {
			r.DailyResets++
		}
		if res.StreakReset {
			r.StreakResets++
		}
	}
	e.log.Info("sweep finished", "checked", r.Checked, "daily_resets", r.DailyResets,
		"streak_resets", r.StreakResets, "failed", r.Failed)
	return r
}
