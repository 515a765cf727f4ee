package daemon

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lingoleap/lingoleap/internal/api"
	"github.com/lingoleap/lingoleap/internal/app/engagement"
	"github.com/lingoleap/lingoleap/internal/app/gems"
	"github.com/lingoleap/lingoleap/internal/app/learner"
	"github.com/lingoleap/lingoleap/internal/health"
	"github.com/lingoleap/lingoleap/internal/infra/catalog"
	"github.com/lingoleap/lingoleap/internal/infra/healing"
	"github.com/lingoleap/lingoleap/internal/infra/logger"
	"github.com/lingoleap/lingoleap/internal/infra/scheduler"
	"github.com/lingoleap/lingoleap/internal/infra/sqlite"
	"github.com/lingoleap/lingoleap/internal/security"
)

// Daemon is the lingoleap runtime. It wires together all services.
type Daemon struct {
	Config    Config
	Log       *logger.Logger
	DB        *sqlite.DB
	Catalog   *catalog.Catalog
	Engine    *engagement.Engine
	Learners  *learner.Service
	Gems      *gems.Service
	Health    *health.Checker
	Scheduler *scheduler.Scheduler
	Server    *api.Server
	cancel    context.CancelFunc
}

// New loads the config and creates a Daemon with all services wired.
func New() (*Daemon, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return NewWithConfig(cfg)
}

// NewWithConfig creates a Daemon with the given configuration.
func NewWithConfig(cfg Config) (*Daemon, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log, err := logger.New(cfg.Logging.Mode, logger.Options{
		Level:    cfg.Logging.Level,
		HashSalt: cfg.Logging.HashSalt,
	})
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	home := Home()
	if err := os.MkdirAll(home, 0700); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	// Storage
	db, err := sqlite.OpenWith(sqlite.Options{
		Driver: cfg.Database.Driver,
		Dir:    home,
		DSN:    cfg.Database.DSN,
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	d := &Daemon{Config: cfg, Log: log, DB: db}
	if err := d.wire(home); err != nil {
		_ = db.Close()
		return nil, err
	}
	return d, nil
}

func (d *Daemon) wire(home string) error {
	cfg := d.Config

	// Lesson catalog
	if path := cfg.Catalog.LessonsFile; path != "" {
		cat, err := catalog.Load(path, cfg.Progression.LessonGems)
		if err != nil {
			return fmt.Errorf("load catalog: %w", err)
		}
		d.Catalog = cat
	} else {
		d.Catalog = catalog.Default(cfg.Progression.LessonGems)
	}

	// Engagement engine
	ec, err := cfg.Engagement()
	if err != nil {
		return err
	}
	sweepBreaker := healing.NewCircuitBreaker("sweep-storage", healing.DefaultCircuitBreakerConfig())
	d.Engine, err = engagement.NewEngine(d.DB, d.Catalog, ec,
		engagement.WithLogger(d.Log),
		engagement.WithSweepBreaker(sweepBreaker),
	)
	if err != nil {
		return fmt.Errorf("init engine: %w", err)
	}

	// Session tokens
	secret := []byte(cfg.Auth.JWTSecret)
	if len(secret) == 0 {
		secret, err = security.LoadOrCreateSecret(home)
		if err != nil {
			return fmt.Errorf("load jwt secret: %w", err)
		}
	}
	tokens, err := security.NewTokens(secret, cfg.TokenTTL())
	if err != nil {
		return fmt.Errorf("init tokens: %w", err)
	}

	// Services
	d.Learners = learner.NewService(d.DB, d.Catalog, d.Engine, tokens, cfg.Learner(), d.Log)
	d.Gems = gems.NewService(d.DB)

	// Health checker
	d.Health = health.NewChecker(d.DB, d.Catalog, home, d.Log).
		WithInterval(parseDuration(cfg.Maintenance.HealthInterval, time.Minute))

	// Nightly sweep
	d.Scheduler, err = scheduler.New(d.Engine, d.DB, cfg.Scheduler(), d.Log)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}

	// API server
	d.Server = api.NewServer(d.Learners, d.Gems, d.Log)
	d.Server.SetHealth(d.Health)
	d.Server.SetCORSOrigin(cfg.Server.CORSOrigin)
	if cfg.Telemetry.Prometheus {
		d.Server.EnableMetrics()
	}
	return nil
}

// Serve starts the HTTP server and background jobs and blocks until shutdown.
func (d *Daemon) Serve(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	if err := d.Learners.SyncUserGauge(ctx); err != nil {
		d.Log.Warn("sync user gauge failed", "error", err)
	}

	go d.Health.Run(ctx)
	if err := d.Scheduler.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}

	addr := d.Config.Addr()
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      d.Server.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 45 * time.Second,
		IdleTimeout:  2 * time.Minute,
	}

	// Graceful shutdown on signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	go func() {
		select {
		case <-sigCh:
			d.Log.Info("shutdown signal received")
		case <-ctx.Done():
		}

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		d.Scheduler.Stop()
		_ = httpServer.Shutdown(shutdownCtx)
		cancel()
	}()

	d.Log.Info("lingoleap serving",
		"addr", addr,
		"driver", d.DB.Driver(),
		"languages", len(d.Catalog.Languages()),
		"metrics", d.Config.Telemetry.Prometheus,
		"next_sweep", d.Scheduler.NextRun(),
	)

	if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Close shuts down all daemon resources.
func (d *Daemon) Close() {
	if d.cancel != nil {
		d.cancel()
	}
	if d.Scheduler != nil {
		d.Scheduler.Stop()
	}
	if d.DB != nil {
		_ = d.DB.Close()
	}
	if d.Log != nil {
		d.Log.Sync()
	}
}
