// Package learner serves the learner-facing flows around the progression
// engine: accounts, sessions, the dashboard, the lesson entry gate and the
// leaderboard.
package learner

import (
	"context"
	"time"

	"github.com/lingoleap/lingoleap/internal/app/engagement"
	"github.com/lingoleap/lingoleap/internal/domain"
	"github.com/lingoleap/lingoleap/internal/infra/logger"
	"github.com/lingoleap/lingoleap/internal/security"
)

// Store is the account and read-model storage the service needs.
type Store interface {
	CreateUser(ctx context.Context, u *domain.User, opening *domain.GemEntry) error
	GetUser(ctx context.Context, email string) (*domain.User, error)
	DeleteUser(ctx context.Context, email string) error
	CountUsers(ctx context.Context) (int, error)
	TopUsersByXP(ctx context.Context, limit int) ([]domain.User, error)
	CompletedLessons(ctx context.Context, email, language string) ([]int, error)
	UserAchievements(ctx context.Context, email string) ([]domain.UserAchievement, error)
}

// Catalog is the lesson catalog as browsed by learners.
type Catalog interface {
	domain.LessonCatalog
	Resolve(lang string) (string, error)
	Languages() []string
	Lessons(lang string) ([]domain.Lesson, error)
}

// Config holds account defaults.
type Config struct {
	StartingGems    int64
	DailyGoal       int64
	LeaderboardSize int
	// DefaultLanguage is used when a request names none.
	DefaultLanguage string
}

// DefaultConfig returns the stock account settings.
func DefaultConfig() Config {
	return Config{
		StartingGems:    domain.DefaultStartingGems,
		DailyGoal:       domain.DefaultDailyGoal,
		LeaderboardSize: domain.DefaultLeaderboardSz,
		DefaultLanguage: "Spanish",
	}
}

// Service implements the learner flows.
type Service struct {
	store   Store
	catalog Catalog
	engine  *engagement.Engine
	tokens  *security.Tokens
	cfg     Config
	now     domain.Clock
	log     *logger.Logger
}

// NewService wires a learner service. log may be nil.
func NewService(store Store, catalog Catalog, engine *engagement.Engine, tokens *security.Tokens, cfg Config, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	if cfg.LeaderboardSize <= 0 {
		cfg.LeaderboardSize = domain.DefaultLeaderboardSz
	}
	if cfg.DailyGoal <= 0 {
		cfg.DailyGoal = domain.DefaultDailyGoal
	}
	return &Service{
		store:   store,
		catalog: catalog,
		engine:  engine,
		tokens:  tokens,
		cfg:     cfg,
		now:     time.Now,
		log:     log,
	}
}

// WithClock pins the service clock. It should match the engine's.
func (s *Service) WithClock(c domain.Clock) *Service {
	s.now = c
	return s
}

// Engine exposes the progression engine behind the service.
func (s *Service) Engine() *engagement.Engine { return s.engine }

// Tokens exposes the session token issuer.
func (s *Service) Tokens() *security.Tokens { return s.tokens }

// Languages lists the catalog languages.
func (s *Service) Languages() []string { return s.catalog.Languages() }

// language resolves lang, falling back to the configured default.
func (s *Service) language(lang string) (string, error) {
	if lang == "" {
		lang = s.cfg.DefaultLanguage
	}
	return s.catalog.Resolve(lang)
}
