// Package engagement implements the lingoleap progression engine.
// Hearts, XP levels, gems, daily goals, streaks and achievements are updated
// here; every mutation for one learner runs inside a single unit of work and
// under that learner's lock.
package engagement

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/lingoleap/lingoleap/internal/domain"
	"github.com/lingoleap/lingoleap/internal/infra/healing"
	"github.com/lingoleap/lingoleap/internal/infra/logger"
)

// Config holds the economy parameters.
type Config struct {
	MaxHearts   int
	RegenPeriod time.Duration
	Levels      []int64 // cumulative XP thresholds, strictly increasing
	LevelUpGems int64
	RefillCost  int64
	// Location decides where calendar days begin. Defaults to UTC.
	Location *time.Location
}

// DefaultConfig returns the stock economy.
func DefaultConfig() Config {
	return Config{
		MaxHearts:   domain.DefaultMaxHearts,
		RegenPeriod: domain.DefaultHeartRegen,
		Levels:      domain.DefaultXPLevels(),
		LevelUpGems: domain.DefaultLevelUpGems,
		RefillCost:  domain.DefaultRefillCost,
		Location:    time.UTC,
	}
}

// Validate rejects configurations the engine cannot run with.
func (c Config) Validate() error {
	if c.MaxHearts <= 0 {
		return fmt.Errorf("max hearts must be positive, got %d", c.MaxHearts)
	}
	if c.RegenPeriod < time.Second {
		return fmt.Errorf("heart regen period must be at least 1s, got %s", c.RegenPeriod)
	}
	if len(c.Levels) == 0 {
		return fmt.Errorf("xp level table is empty")
	}
	for i := 1; i < len(c.Levels); i++ {
		if c.Levels[i] <= c.Levels[i-1] {
			return fmt.Errorf("xp level table must be strictly increasing at index %d", i)
		}
	}
	if c.LevelUpGems < 0 || c.RefillCost < 0 {
		return fmt.Errorf("gem amounts must not be negative")
	}
	return nil
}

// Engine is the progression state machine.
type Engine struct {
	store        domain.ProgressStore
	lessons      domain.LessonCatalog
	achievements *Evaluator
	cfg          Config
	now          domain.Clock
	newID        func() string
	log          *logger.Logger
	locks        *userLocks
	breaker      *healing.CircuitBreaker // optional; guards Sweep
}

// Option customizes an Engine.
type Option func(*Engine)

// WithClock pins the engine's notion of "now".
func WithClock(c domain.Clock) Option {
	return func(e *Engine) { e.now = c }
}

// WithLogger sets the engine logger.
func WithLogger(l *logger.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// WithAchievements replaces the default achievement catalog.
func WithAchievements(defs []domain.AchievementDef) Option {
	return func(e *Engine) { e.achievements = NewEvaluator(defs) }
}

// WithSweepBreaker stops a sweep from hammering storage once failures pile up.
// Learners skipped while the breaker is open are reported as failed.
func WithSweepBreaker(cb *healing.CircuitBreaker) Option {
	return func(e *Engine) { e.breaker = cb }
}

// NewEngine wires an engine. cfg must pass Validate.
func NewEngine(store domain.ProgressStore, lessons domain.LessonCatalog, cfg Config, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	cfg.Levels = append([]int64(nil), cfg.Levels...)

	e := &Engine{
		store:        store,
		lessons:      lessons,
		achievements: NewEvaluator(DefaultAchievements()),
		cfg:          cfg,
		now:          time.Now,
		newID:        uuid.NewString,
		log:          logger.Nop(),
		locks:        newUserLocks(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Config returns the engine's economy parameters.
func (e *Engine) Config() Config { return e.cfg }

// Achievements returns the achievement catalog in use.
func (e *Engine) Achievements() []domain.AchievementDef { return e.achievements.Definitions() }

// Level maps xp onto the configured level table.
func (e *Engine) Level(xp int64) domain.LevelInfo { return LevelFor(xp, e.cfg.Levels) }

// Today returns the current calendar day in the configured location.
func (e *Engine) Today() time.Time {
	return domain.DateOf(e.now().In(e.cfg.Location))
}

// gemEntry builds a ledger row for a gem movement that has already been
// applied to u.Gems.
func (e *Engine) gemEntry(u *domain.User, src domain.GemSource, amount int64, reason string, at time.Time) domain.GemEntry {
	return domain.GemEntry{
		ID:        e.newID(),
		Email:     u.Email,
		Timestamp: at,
		Source:    src,
		Amount:    amount,
		Reason:    reason,
		Balance:   u.Gems,
	}
}
