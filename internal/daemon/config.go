// Package daemon manages the lingoleap server lifecycle and configuration.
package daemon

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/lingoleap/lingoleap/internal/app/engagement"
	"github.com/lingoleap/lingoleap/internal/app/learner"
	"github.com/lingoleap/lingoleap/internal/domain"
	"github.com/lingoleap/lingoleap/internal/infra/scheduler"
	"github.com/lingoleap/lingoleap/internal/infra/sqlite"
)

// Config holds all server configuration.
type Config struct {
	Server      ServerConfig      `toml:"server"`
	Database    DatabaseConfig    `toml:"database"`
	Auth        AuthConfig        `toml:"auth"`
	Progression ProgressionConfig `toml:"progression"`
	Catalog     CatalogConfig     `toml:"catalog"`
	Logging     LoggingConfig     `toml:"logging"`
	Maintenance MaintenanceConfig `toml:"maintenance"`
	Telemetry   TelemetryConfig   `toml:"telemetry"`
}

// ServerConfig controls the HTTP API server.
type ServerConfig struct {
	Host       string `toml:"host"`
	Port       int    `toml:"port"`
	CORSOrigin string `toml:"cors_origin"`
}

// DatabaseConfig selects the storage engine.
type DatabaseConfig struct {
	Driver string `toml:"driver"` // sqlite or postgres
	DSN    string `toml:"dsn"`
}

// AuthConfig controls session tokens.
type AuthConfig struct {
	// JWTSecret signs session tokens. Empty means use $LINGOLEAP_HOME/keys/jwt.key.
	JWTSecret string `toml:"jwt_secret"`
	TokenTTL  string `toml:"token_ttl"`
}

// ProgressionConfig holds the economy parameters.
type ProgressionConfig struct {
	MaxHearts         int     `toml:"max_hearts"`
	HeartRegenSeconds int     `toml:"heart_regen_seconds"`
	XPLevels          []int64 `toml:"xp_levels"`
	StartingGems      int64   `toml:"starting_gems"`
	DailyGoal         int64   `toml:"daily_goal"`
	LessonGems        int64   `toml:"lesson_gems"`
	LevelUpGems       int64   `toml:"level_up_gems"`
	RefillCost        int64   `toml:"refill_cost"`
	Timezone          string  `toml:"timezone"`
	DefaultLanguage   string  `toml:"default_language"`
	LeaderboardSize   int     `toml:"leaderboard_size"`
}

// CatalogConfig points at an optional lessons file. Empty uses the built-in catalog.
type CatalogConfig struct {
	LessonsFile string `toml:"lessons_file"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Mode     string `toml:"mode"` // dev or prod
	Level    string `toml:"level"`
	HashSalt string `toml:"hash_salt"`
}

// MaintenanceConfig controls background jobs.
type MaintenanceConfig struct {
	SweepAt        string `toml:"sweep_at"` // HH:MM in the progression timezone
	SweepRetries   int    `toml:"sweep_retries"`
	HealthInterval string `toml:"health_interval"`
}

// TelemetryConfig controls the /metrics endpoint.
type TelemetryConfig struct {
	Prometheus bool `toml:"prometheus"`
}

// DefaultConfig returns the stock configuration.
func DefaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Host:       "127.0.0.1",
			Port:       8080,
			CORSOrigin: "*",
		},
		Database: DatabaseConfig{
			Driver: sqlite.DriverSQLite,
		},
		Auth: AuthConfig{
			TokenTTL: "72h",
		},
		Progression: ProgressionConfig{
			MaxHearts:         domain.DefaultMaxHearts,
			HeartRegenSeconds: int(domain.DefaultHeartRegen / time.Second),
			XPLevels:          domain.DefaultXPLevels(),
			StartingGems:      domain.DefaultStartingGems,
			DailyGoal:         domain.DefaultDailyGoal,
			LessonGems:        domain.DefaultLessonGems,
			LevelUpGems:       domain.DefaultLevelUpGems,
			RefillCost:        domain.DefaultRefillCost,
			Timezone:          "UTC",
			DefaultLanguage:   "Spanish",
			LeaderboardSize:   domain.DefaultLeaderboardSz,
		},
		Logging: LoggingConfig{
			Mode:  "dev",
			Level: "info",
		},
		Maintenance: MaintenanceConfig{
			SweepAt:        "00:05",
			SweepRetries:   3,
			HealthInterval: "60s",
		},
		Telemetry: TelemetryConfig{
			Prometheus: true,
		},
	}
}

// LoadConfig reads .env, then $LINGOLEAP_HOME/config.toml, falling back to
// defaults, then applies environment overrides.
func LoadConfig() (Config, error) {
	// A missing .env is normal.
	_ = godotenv.Load()

	cfg := DefaultConfig()
	path := ConfigPath()

	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config: %w", err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return cfg, fmt.Errorf("stat config: %w", err)
	}

	applyEnv(&cfg)
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("LINGOLEAP_JWT_SECRET"); v != "" {
		cfg.Auth.JWTSecret = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Database.DSN = v
		if strings.HasPrefix(v, "postgres://") || strings.HasPrefix(v, "postgresql://") {
			cfg.Database.Driver = sqlite.DriverPostgres
		}
	}
	if v := os.Getenv("LINGOLEAP_LOG_MODE"); v != "" {
		cfg.Logging.Mode = v
	}
}

// Validate checks the parts of the config that cannot be defaulted.
func (c Config) Validate() error {
	switch c.Database.Driver {
	case sqlite.DriverSQLite, "":
	case sqlite.DriverPostgres:
		if c.Database.DSN == "" {
			return errors.New("database: postgres driver needs a dsn")
		}
	default:
		return fmt.Errorf("database: unknown driver %q", c.Database.Driver)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if _, err := time.ParseDuration(c.Auth.TokenTTL); c.Auth.TokenTTL != "" && err != nil {
		return fmt.Errorf("auth: token_ttl: %w", err)
	}
	if _, err := c.Engagement(); err != nil {
		return err
	}
	return nil
}

// SaveConfig writes the config to $LINGOLEAP_HOME/config.toml.
func SaveConfig(cfg Config) error {
	path := ConfigPath()
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}

// ─── Conversions ────────────────────────────────────────────────────────────

// Location resolves the progression timezone.
func (c Config) Location() (*time.Location, error) {
	if c.Progression.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(c.Progression.Timezone)
	if err != nil {
		return nil, fmt.Errorf("progression: timezone %q: %w", c.Progression.Timezone, err)
	}
	return loc, nil
}

// Engagement builds and validates the engine config.
func (c Config) Engagement() (engagement.Config, error) {
	loc, err := c.Location()
	if err != nil {
		return engagement.Config{}, err
	}
	p := c.Progression
	ec := engagement.Config{
		MaxHearts:   p.MaxHearts,
		RegenPeriod: time.Duration(p.HeartRegenSeconds) * time.Second,
		Levels:      p.XPLevels,
		LevelUpGems: p.LevelUpGems,
		RefillCost:  p.RefillCost,
		Location:    loc,
	}
	if err := ec.Validate(); err != nil {
		return engagement.Config{}, fmt.Errorf("progression: %w", err)
	}
	return ec, nil
}

// Learner builds the account config.
func (c Config) Learner() learner.Config {
	p := c.Progression
	return learner.Config{
		StartingGems:    p.StartingGems,
		DailyGoal:       p.DailyGoal,
		LeaderboardSize: p.LeaderboardSize,
		DefaultLanguage: p.DefaultLanguage,
	}
}

// Scheduler builds the maintenance config.
func (c Config) Scheduler() scheduler.Config {
	sc := scheduler.DefaultConfig()
	if c.Maintenance.SweepAt != "" {
		sc.SweepAt = c.Maintenance.SweepAt
	}
	if c.Maintenance.SweepRetries >= 0 {
		sc.Retry.MaxRetries = c.Maintenance.SweepRetries
	}
	if loc, err := c.Location(); err == nil {
		sc.Location = loc
	}
	return sc
}

// TokenTTL returns the session lifetime.
func (c Config) TokenTTL() time.Duration {
	return parseDuration(c.Auth.TokenTTL, 72*time.Hour)
}

// Addr is the listen address.
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// parseDuration parses a duration string, returning a fallback on error.
func parseDuration(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}

// ─── Paths ──────────────────────────────────────────────────────────────────

// Home returns the lingoleap data directory.
func Home() string {
	if env := os.Getenv("LINGOLEAP_HOME"); env != "" {
		return env
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".lingoleap")
}

// ConfigPath returns the location of config.toml.
func ConfigPath() string {
	return filepath.Join(Home(), "config.toml")
}
