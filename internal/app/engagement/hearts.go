package engagement

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/lingoleap/lingoleap/internal/domain"
	"github.com/lingoleap/lingoleap/internal/infra/metrics"
)

// HeartState is the outcome of a regeneration step.
type HeartState struct {
	Hearts           int
	Anchor           time.Time // time the last regenerated heart was granted
	SecondsUntilNext int
	Gained           int
	Changed          bool // hearts or anchor moved and must be persisted
}

// Regenerate brings a heart count up to date.
// One heart is granted per full period elapsed since anchor; the anchor
// advances by exactly the granted periods so repeated polling never drifts.
func Regenerate(hearts int, anchor, now time.Time, period time.Duration, maxHearts int) HeartState {
	if hearts >= maxHearts {
		return HeartState{Hearts: maxHearts, Anchor: anchor, Changed: hearts != maxHearts}
	}

	st := HeartState{Hearts: hearts, Anchor: anchor}
	if hearts < 0 {
		st.Hearts = 0
		st.Changed = true
	}

	elapsed := now.Sub(anchor)
	if elapsed >= period {
		gained := int(elapsed / period)
		st.Hearts = min(st.Hearts+gained, maxHearts)
		st.Gained = st.Hearts - max(hearts, 0)
		st.Anchor = anchor.Add(time.Duration(gained) * period)
		if st.Anchor.After(now) {
			st.Anchor = now
		}
		st.Changed = true
	}

	if st.Hearts < maxHearts {
		st.SecondsUntilNext = secondsUntilNext(st.Anchor, now, period)
	}
	return st
}

// secondsUntilNext is ceil(period - (now - anchor)) clamped to [0, period].
func secondsUntilNext(anchor, now time.Time, period time.Duration) int {
	since := now.Sub(anchor)
	if since < 0 {
		since = 0
	}
	left := int(math.Ceil((period - since).Seconds()))
	if left < 0 {
		return 0
	}
	return min(left, int(period/time.Second))
}

// HeartStatus is the up-to-date hearts view of one learner.
type HeartStatus struct {
	Hearts           int `json:"hearts"`
	MaxHearts        int `json:"max_hearts"`
	SecondsUntilNext int `json:"seconds_until_next"`
}

// RefillResult reports balances after a shop refill.
type RefillResult struct {
	Gems   int64 `json:"gems"`
	Hearts int   `json:"hearts"`
}

// regenerate applies Regenerate to u in place.
func (e *Engine) regenerate(u *domain.User, now time.Time) HeartState {
	st := Regenerate(u.Hearts, u.LastHeartChange, now, e.cfg.RegenPeriod, e.cfg.MaxHearts)
	if st.Changed {
		u.Hearts = st.Hearts
		u.LastHeartChange = st.Anchor
	}
	if st.Gained > 0 {
		metrics.HeartsRegenerated.Add(float64(st.Gained))
		e.log.Debug("hearts regenerated", "email", u.Email, "gained", st.Gained, "hearts", st.Hearts)
	}
	return st
}

func (e *Engine) status(st HeartState) HeartStatus {
	return HeartStatus{Hearts: st.Hearts, MaxHearts: e.cfg.MaxHearts, SecondsUntilNext: st.SecondsUntilNext}
}

// Hearts returns the learner's current hearts, persisting regeneration only
// when something changed.
func (e *Engine) Hearts(ctx context.Context, email string) (HeartStatus, error) {
	defer e.locks.lock(email)()

	var out HeartStatus
	err := e.store.InTx(ctx, func(tx domain.ProgressTx) error {
		u, err := tx.GetUser(ctx, email)
		if err != nil {
			return err
		}
		st := e.regenerate(u, e.now())
		out = e.status(st)
		if !st.Changed {
			return nil
		}
		return tx.SaveUser(ctx, u)
	})
	return out, err
}

// SpendHeart removes one heart after a wrong answer. Pending regeneration is
// credited first; the timer then restarts from now. At zero hearts it is a
// no-op.
func (e *Engine) SpendHeart(ctx context.Context, email string) (HeartStatus, error) {
	defer e.locks.lock(email)()

	var out HeartStatus
	err := e.store.InTx(ctx, func(tx domain.ProgressTx) error {
		u, err := tx.GetUser(ctx, email)
		if err != nil {
			return err
		}
		now := e.now()
		st := e.regenerate(u, now)

		if u.Hearts > 0 {
			u.Hearts--
			u.LastHeartChange = now
			st = HeartState{
				Hearts:           u.Hearts,
				Anchor:           now,
				SecondsUntilNext: int(e.cfg.RegenPeriod / time.Second),
				Changed:          true,
			}
			metrics.HeartsLost.Inc()
		}
		out = e.status(st)
		if !st.Changed {
			return nil
		}
		return tx.SaveUser(ctx, u)
	})
	return out, err
}

// RefillHearts buys a full set of hearts. A cost <= 0 uses the configured
// refill price.
func (e *Engine) RefillHearts(ctx context.Context, email string, cost int64) (RefillResult, error) {
	if cost <= 0 {
		cost = e.cfg.RefillCost
	}
	defer e.locks.lock(email)()

	var out RefillResult
	err := e.store.InTx(ctx, func(tx domain.ProgressTx) error {
		u, err := tx.GetUser(ctx, email)
		if err != nil {
			return err
		}
		now := e.now()
		e.regenerate(u, now)

		if u.Hearts >= e.cfg.MaxHearts {
			return domain.ErrHeartsFull
		}
		if u.Gems < cost {
			return fmt.Errorf("%w: have %d, need %d", domain.ErrInsufficientGems, u.Gems, cost)
		}

		u.Gems -= cost
		u.Hearts = e.cfg.MaxHearts
		u.LastHeartChange = now
		if err := tx.SaveUser(ctx, u); err != nil {
			return err
		}
		if err := tx.InsertGemEntry(ctx, e.gemEntry(u, domain.GemRefill, -cost, "hearts refill", now)); err != nil {
			return err
		}
		out = RefillResult{Gems: u.Gems, Hearts: u.Hearts}
		return nil
	})
	if err != nil {
		return RefillResult{}, err
	}

	metrics.HeartRefills.Inc()
	metrics.GemsSpent.WithLabelValues(string(domain.GemRefill)).Add(float64(cost))
	e.log.Info("hearts refilled", "email", email, "cost", cost, "gems", out.Gems)
	return out, nil
}
