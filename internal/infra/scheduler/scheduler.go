// Package scheduler runs the nightly maintenance sweep.
// Once a day every learner gets the passive check (daily-progress rollover
// and lapsed-streak reset) so stored state matches the calendar even for
// learners who never log in. Learners whose check fails are retried with
// exponential backoff.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/lingoleap/lingoleap/internal/app/engagement"
	"github.com/lingoleap/lingoleap/internal/infra/logger"
)

// ─── Configuration ──────────────────────────────────────────────────────────

// RetryConfig configures how failed sweep entries are retried.
type RetryConfig struct {
	MaxRetries int           // attempts after the first pass
	BaseDelay  time.Duration // initial backoff delay (doubles each retry)
	MaxDelay   time.Duration // cap on backoff delay
}

// Config configures the maintenance scheduler.
type Config struct {
	SweepAt  string // "HH:MM" in Location
	Location *time.Location
	Retry    RetryConfig
}

// DefaultConfig returns production scheduler defaults.
func DefaultConfig() Config {
	return Config{
		SweepAt:  "00:05",
		Location: time.UTC,
		Retry: RetryConfig{
			MaxRetries: 3,
			BaseDelay:  5 * time.Second,
			MaxDelay:   time.Minute,
		},
	}
}

// Backoff returns the delay before retry attempt n (1-based):
// BaseDelay * 2^(n-1), capped at MaxDelay.
func (c RetryConfig) Backoff(attempt int) time.Duration {
	delay := c.BaseDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
		if c.MaxDelay > 0 && delay > c.MaxDelay {
			return c.MaxDelay
		}
	}
	if c.MaxDelay > 0 && delay > c.MaxDelay {
		return c.MaxDelay
	}
	return delay
}

// ─── Scheduler ──────────────────────────────────────────────────────────────

// Sweeper applies the passive check to a list of learners.
type Sweeper interface {
	Sweep(ctx context.Context, emails []string) engagement.SweepResult
}

// Lister enumerates every registered learner.
type Lister interface {
	UserEmails(ctx context.Context) ([]string, error)
}

// Scheduler owns the gocron job for the nightly sweep.
type Scheduler struct {
	cron    *gocron.Scheduler
	sweeper Sweeper
	lister  Lister
	cfg     Config
	log     *logger.Logger
	sleep   func(ctx context.Context, d time.Duration) error

	mu   sync.Mutex
	last *Run
}

// Run records one completed sweep.
type Run struct {
	StartedAt time.Time              `json:"started_at"`
	Duration  time.Duration          `json:"duration"`
	Result    engagement.SweepResult `json:"result"`
	Retries   int                    `json:"retries"`
}

// New validates cfg and builds a stopped scheduler.
func New(sweeper Sweeper, lister Lister, cfg Config, log *logger.Logger) (*Scheduler, error) {
	if _, err := time.Parse("15:04", cfg.SweepAt); err != nil {
		return nil, fmt.Errorf("invalid sweep time %q: want HH:MM", cfg.SweepAt)
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.Retry.MaxRetries < 0 {
		cfg.Retry.MaxRetries = 0
	}
	if log == nil {
		log = logger.Nop()
	}
	cron := gocron.NewScheduler(cfg.Location)
	cron.SingletonModeAll()
	return &Scheduler{
		cron:    cron,
		sweeper: sweeper,
		lister:  lister,
		cfg:     cfg,
		log:     log,
		sleep:   sleepCtx,
	}, nil
}

// Start registers the daily job and starts the scheduler without blocking.
func (s *Scheduler) Start(ctx context.Context) error {
	_, err := s.cron.Every(1).Day().At(s.cfg.SweepAt).Do(func() {
		if _, err := s.RunSweep(ctx); err != nil {
			s.log.Error("scheduled sweep failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("schedule sweep: %w", err)
	}
	s.cron.StartAsync()
	s.log.Info("maintenance scheduler started", "sweep_at", s.cfg.SweepAt, "tz", s.cfg.Location.String())
	return nil
}

// Stop terminates the scheduler.
func (s *Scheduler) Stop() {
	s.cron.Stop()
}

// NextRun reports when the sweep fires next. Zero before Start.
func (s *Scheduler) NextRun() time.Time {
	_, next := s.cron.NextRun()
	return next
}

// LastRun returns the most recent completed sweep, if any.
func (s *Scheduler) LastRun() (Run, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil {
		return Run{}, false
	}
	return *s.last, true
}

// RunSweep sweeps every learner now, retrying failures with backoff.
// Counts from retries are folded into the returned result; Failed and
// FailedEmails describe what was still failing at the end.
func (s *Scheduler) RunSweep(ctx context.Context) (engagement.SweepResult, error) {
	started := time.Now()
	emails, err := s.lister.UserEmails(ctx)
	if err != nil {
		return engagement.SweepResult{}, fmt.Errorf("list learners: %w", err)
	}

	total := s.sweeper.Sweep(ctx, emails)
	retries := 0
	for attempt := 1; attempt <= s.cfg.Retry.MaxRetries && len(total.FailedEmails) > 0; attempt++ {
		delay := s.cfg.Retry.Backoff(attempt)
		s.log.Warn("retrying failed sweep entries", "count", len(total.FailedEmails),
			"attempt", attempt, "delay", delay.String())
		if err := s.sleep(ctx, delay); err != nil {
			break
		}
		retries++
		again := s.sweeper.Sweep(ctx, total.FailedEmails)
		total.DailyResets += again.DailyResets
		total.StreakResets += again.StreakResets
		total.Failed = again.Failed
		total.FailedEmails = again.FailedEmails
	}

	run := Run{StartedAt: started, Duration: time.Since(started), Result: total, Retries: retries}
	s.mu.Lock()
	s.last = &run
	s.mu.Unlock()

	if total.Failed > 0 {
		s.log.Error("sweep left learners unchecked", "failed", total.Failed, "retries", retries)
	}
	return total, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
