// Package sqlite provides SQL persistence for lingoleap.
// SQLite (pure Go, WAL mode) is the default engine; the same schema and
// queries also run on PostgreSQL through the pgx stdlib driver.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver, registered as "pgx"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite" // Pure-Go SQLite driver (no CGO required)

	"github.com/lingoleap/lingoleap/internal/domain"
)

// Supported drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Options selects the engine and location of the database.
type Options struct {
	Driver string // "sqlite" (default) or "postgres"
	Dir    string // sqlite: directory holding lingoleap.db
	DSN    string // postgres: connection URL; sqlite: optional explicit DSN
	// Now is used when a stored timestamp cannot be parsed.
	// Defaults to time.Now.
	Now func() time.Time
}

// DB wraps a SQL connection pool with migrations and repositories.
type DB struct {
	db     *sqlx.DB
	driver string
	now    func() time.Time
}

// Open creates or opens the SQLite database at dir/lingoleap.db.
// Enables WAL mode, foreign keys, and 5-second busy timeout.
func Open(dir string) (*DB, error) {
	return OpenWith(Options{Driver: DriverSQLite, Dir: dir})
}

// OpenWith opens the database described by opts and runs migrations.
func OpenWith(opts Options) (*DB, error) {
	if opts.Now == nil {
		opts.Now = time.Now
	}

	var (
		driverName string
		dsn        string
	)
	switch strings.ToLower(opts.Driver) {
	case "", DriverSQLite:
		driverName = "sqlite"
		dsn = opts.DSN
		if dsn == "" {
			if err := os.MkdirAll(opts.Dir, 0700); err != nil {
				return nil, fmt.Errorf("create data dir: %w", err)
			}
			dsn = filepath.Join(opts.Dir, "lingoleap.db")
		}
		dsn = withSQLitePragmas(dsn)
	case DriverPostgres, "pgx":
		driverName = "pgx"
		dsn = opts.DSN
		if dsn == "" {
			return nil, fmt.Errorf("postgres driver requires a DSN")
		}
	default:
		return nil, fmt.Errorf("unsupported database driver %q", opts.Driver)
	}

	db, err := sqlx.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driverName, err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s: %w", driverName, err)
	}

	if driverName == "sqlite" {
		// SQLite is single-writer
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}

	d := &DB{db: db, driver: driverName, now: opts.Now}
	if err := d.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return d, nil
}

// Close cleanly shuts down the database.
func (d *DB) Close() error {
	return d.db.Close()
}

// Ping checks database connectivity.
func (d *DB) Ping() error {
	return d.db.Ping()
}

// PingContext checks database connectivity with a deadline.
func (d *DB) PingContext(ctx context.Context) error {
	return d.db.PingContext(ctx)
}

// Driver returns the underlying driver name ("sqlite" or "pgx").
func (d *DB) Driver() string { return d.driver }

// migrate runs idempotent schema migrations.
// Types are chosen to be valid on both SQLite and PostgreSQL.
func (d *DB) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS users (
			email             TEXT PRIMARY KEY,
			name              TEXT NOT NULL DEFAULT '',
			password_hash     TEXT NOT NULL,
			hearts            INTEGER NOT NULL DEFAULT 5,
			last_heart_change TEXT,
			xp                BIGINT NOT NULL DEFAULT 0,
			gems              BIGINT NOT NULL DEFAULT 0,
			streak            INTEGER NOT NULL DEFAULT 0,
			last_streak_date  TEXT,
			daily_progress    BIGINT NOT NULL DEFAULT 0,
			daily_goal        BIGINT NOT NULL DEFAULT 10,
			last_daily_reset  TEXT,
			joined_at         TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_users_xp ON users(xp)`,

		`CREATE TABLE IF NOT EXISTS progress (
			user_email TEXT NOT NULL REFERENCES users(email) ON DELETE CASCADE,
			lesson_id  INTEGER NOT NULL,
			language   TEXT NOT NULL,
			completed  BOOLEAN NOT NULL DEFAULT FALSE,
			PRIMARY KEY (user_email, lesson_id, language)
		)`,

		`CREATE TABLE IF NOT EXISTS user_achievements (
			user_email      TEXT NOT NULL REFERENCES users(email) ON DELETE CASCADE,
			achievement_key TEXT NOT NULL,
			earned_at       TEXT NOT NULL,
			PRIMARY KEY (user_email, achievement_key)
		)`,

		// Gem ledger: one row per gem movement with running balance
		`CREATE TABLE IF NOT EXISTS gem_ledger (
			id         TEXT PRIMARY KEY,
			user_email TEXT NOT NULL REFERENCES users(email) ON DELETE CASCADE,
			seq        BIGINT NOT NULL,
			ts         TEXT NOT NULL,
			source     TEXT NOT NULL,
			amount     BIGINT NOT NULL,
			reason     TEXT NOT NULL DEFAULT '',
			balance    BIGINT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_gem_ledger_user ON gem_ledger(user_email, seq)`,
	}

	for _, m := range migrations {
		if _, err := d.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w\nSQL: %s", err, m)
		}
	}
	return nil
}

// ─── Unit of Work ───────────────────────────────────────────────────────────

// InTx runs fn inside a single transaction. Any error returned by fn, or a
// failure to commit, rolls back every write made through the Tx.
func (d *DB) InTx(ctx context.Context, fn func(tx domain.ProgressTx) error) error {
	sqlTx, err := d.db.BeginTxx(ctx, nil)
	if err != nil {
		return storageErr("begin", err)
	}
	tx := &Tx{tx: sqlTx, now: d.now}

	committed := false
	defer func() {
		if !committed {
			_ = sqlTx.Rollback()
		}
	}()

	if err := fn(tx); err != nil {
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return storageErr("commit", err)
	}
	committed = true
	return nil
}

// ─── Helpers ────────────────────────────────────────────────────────────────

// Fixed-width UTC layout so stored timestamps sort lexicographically.
const tsLayout = "2006-01-02T15:04:05.000000000Z07:00"

const dateLayout = "2006-01-02"

// legacyLayouts are accepted when reading rows written by older tooling
// (e.g. SQLite CURRENT_TIMESTAMP).
var legacyLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(tsLayout)
}

// parseTimestamp reads a stored timestamp. NULL or unparseable values are
// recovered as fallback rather than failing the request.
func parseTimestamp(raw sql.NullString, fallback time.Time) time.Time {
	if !raw.Valid || strings.TrimSpace(raw.String) == "" {
		return fallback
	}
	s := strings.TrimSpace(raw.String)
	if t, err := time.Parse(tsLayout, s); err == nil {
		return t
	}
	for _, layout := range legacyLayouts {
		// SQLite may append fractional seconds to CURRENT_TIMESTAMP values
		candidate := s
		if layout != time.RFC3339Nano {
			candidate = strings.SplitN(s, ".", 2)[0]
		}
		if t, err := time.Parse(layout, candidate); err == nil {
			return t
		}
	}
	return fallback
}

func nullableDate(t time.Time) sql.NullString {
	if t.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: t.Format(dateLayout), Valid: true}
}

// parseDate returns the zero time for NULL or malformed dates, which the
// streak rules treat as "no recorded activity".
func parseDate(raw sql.NullString) time.Time {
	if !raw.Valid {
		return time.Time{}
	}
	s := strings.TrimSpace(raw.String)
	if len(s) > len(dateLayout) {
		s = s[:len(dateLayout)]
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// sqlitePragmas are required on every connection. foreign_keys drives the
// account-deletion cascade.
var sqlitePragmas = []struct{ name, value string }{
	{"journal_mode", "WAL"},
	{"busy_timeout", "5000"},
	{"foreign_keys", "1"},
}

// withSQLitePragmas appends each required pragma the DSN does not already set.
// Values an operator chose are left alone.
func withSQLitePragmas(dsn string) string {
	for _, p := range sqlitePragmas {
		if strings.Contains(dsn, "_pragma="+p.name+"(") {
			continue
		}
		sep := "?"
		if strings.Contains(dsn, "?") {
			sep = "&"
		}
		dsn += sep + "_pragma=" + p.name + "(" + p.value + ")"
	}
	return dsn
}

// storageErr tags a driver error as a storage failure.
func storageErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, domain.ErrStorage, err)
}
