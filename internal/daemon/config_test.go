package daemon

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Server.Host != "127.0.0.1" {
		t.Errorf("Server.Host = %q, want %q", cfg.Server.Host, "127.0.0.1")
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want %d", cfg.Server.Port, 8080)
	}
	if cfg.Database.Driver != "sqlite" {
		t.Errorf("Database.Driver = %q, want sqlite", cfg.Database.Driver)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}

	ec, err := cfg.Engagement()
	if err != nil {
		t.Fatal(err)
	}
	if ec.MaxHearts != 5 || ec.RegenPeriod != 2*time.Minute || ec.RefillCost != 30 {
		t.Errorf("engagement config = %+v", ec)
	}
	if lc := cfg.Learner(); lc.StartingGems != 50 || lc.DailyGoal != 10 {
		t.Errorf("learner config = %+v", lc)
	}
}

func TestLoadConfig_FileAndEnv(t *testing.T) {
	home := t.TempDir()
	t.Setenv("LINGOLEAP_HOME", home)
	t.Setenv("LINGOLEAP_LOG_MODE", "prod")
	t.Setenv("LINGOLEAP_JWT_SECRET", "")
	t.Setenv("DATABASE_URL", "")

	doc := `
[server]
port = 9090

[progression]
max_hearts = 3
heart_regen_seconds = 60
timezone = "Asia/Tokyo"

[maintenance]
sweep_at = "03:30"
`
	if err := os.WriteFile(filepath.Join(home, "config.toml"), []byte(doc), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Server.Port != 9090 || cfg.Server.Host != "127.0.0.1" {
		t.Errorf("server = %+v", cfg.Server)
	}
	if cfg.Logging.Mode != "prod" {
		t.Errorf("log mode = %q, want env override prod", cfg.Logging.Mode)
	}

	ec, err := cfg.Engagement()
	if err != nil {
		t.Fatal(err)
	}
	if ec.MaxHearts != 3 || ec.RegenPeriod != time.Minute || ec.Location.String() != "Asia/Tokyo" {
		t.Errorf("engagement = %+v", ec)
	}
	sc := cfg.Scheduler()
	if sc.SweepAt != "03:30" || sc.Location.String() != "Asia/Tokyo" {
		t.Errorf("scheduler = %+v", sc)
	}
}

func TestLoadConfig_DatabaseURLSelectsPostgres(t *testing.T) {
	t.Setenv("LINGOLEAP_HOME", t.TempDir())
	t.Setenv("DATABASE_URL", "postgres://u:p@localhost:5432/lingoleap")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Database.Driver != "postgres" {
		t.Errorf("driver = %q, want postgres", cfg.Database.Driver)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown driver", func(c *Config) { c.Database.Driver = "oracle" }},
		{"postgres without dsn", func(c *Config) { c.Database.Driver = "postgres" }},
		{"bad timezone", func(c *Config) { c.Progression.Timezone = "Mars/Olympus" }},
		{"bad ttl", func(c *Config) { c.Auth.TokenTTL = "forever" }},
		{"zero hearts", func(c *Config) { c.Progression.MaxHearts = 0 }},
		{"unsorted levels", func(c *Config) { c.Progression.XPLevels = []int64{0, 100, 50} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestSaveConfig_RoundTrip(t *testing.T) {
	t.Setenv("LINGOLEAP_HOME", t.TempDir())
	t.Setenv("LINGOLEAP_LOG_MODE", "")
	t.Setenv("DATABASE_URL", "")

	cfg := DefaultConfig()
	cfg.Progression.RefillCost = 45
	cfg.Maintenance.SweepAt = "01:15"
	if err := SaveConfig(cfg); err != nil {
		t.Fatal(err)
	}

	got, err := LoadConfig()
	if err != nil {
		t.Fatal(err)
	}
	if got.Progression.RefillCost != 45 || got.Maintenance.SweepAt != "01:15" {
		t.Errorf("round trip lost values: %+v", got.Progression)
	}
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		input string
		want  time.Duration
	}{
		{"90s", 90 * time.Second},
		{"2h", 2 * time.Hour},
		{"", time.Minute},
		{"soon", time.Minute},
	}
	for _, tt := range tests {
		if got := parseDuration(tt.input, time.Minute); got != tt.want {
			t.Errorf("parseDuration(%q) = %s, want %s", tt.input, got, tt.want)
		}
	}
}

func TestNewWithConfig_Wires(t *testing.T) {
	t.Setenv("LINGOLEAP_HOME", t.TempDir())

	cfg := DefaultConfig()
	cfg.Auth.JWTSecret = "daemon-test-secret-0123456789"
	d, err := NewWithConfig(cfg)
	if err != nil {
		t.Fatalf("NewWithConfig: %v", err)
	}
	defer d.Close()

	if d.Catalog.Len() == 0 {
		t.Error("catalog not loaded")
	}
	if d.Server == nil || d.Learners == nil || d.Gems == nil || d.Scheduler == nil {
		t.Error("services not wired")
	}
	if d.Engine.Level(60).Level != 2 {
		t.Errorf("engine level(60) = %+v", d.Engine.Level(60))
	}
}
