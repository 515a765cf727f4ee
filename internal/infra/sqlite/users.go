package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lingoleap/lingoleap/internal/domain"
)

// ─── Accounts ───────────────────────────────────────────────────────────────

// CreateUser inserts a new account together with its opening ledger entry.
// Returns domain.ErrEmailTaken if the email is already registered.
func (d *DB) CreateUser(ctx context.Context, u *domain.User, opening *domain.GemEntry) error {
	sqlTx, err := d.db.BeginTxx(ctx, nil)
	if err != nil {
		return storageErr("begin", err)
	}
	defer sqlTx.Rollback() //nolint:errcheck // no-op after commit

	res, err := sqlTx.ExecContext(ctx, sqlTx.Rebind(
		`INSERT INTO users (`+userColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (email) DO NOTHING`),
		u.Email, u.Name, u.PasswordHash, u.Hearts, formatTimestamp(u.LastHeartChange),
		u.XP, u.Gems, u.Streak, nullableDate(u.LastStreakDate),
		u.DailyProgress, u.DailyGoal, nullableDate(u.LastDailyReset),
		formatTimestamp(u.JoinedAt),
	)
	if err != nil {
		return storageErr("create user", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrEmailTaken
	}

	if opening != nil {
		tx := &Tx{tx: sqlTx, now: d.now}
		if err := tx.InsertGemEntry(ctx, *opening); err != nil {
			return err
		}
	}

	if err := sqlTx.Commit(); err != nil {
		return storageErr("commit", err)
	}
	return nil
}

// GetUser loads a user outside any unit of work.
func (d *DB) GetUser(ctx context.Context, email string) (*domain.User, error) {
	var row userRow
	err := d.db.GetContext(ctx, &row,
		d.db.Rebind(`SELECT `+userColumns+` FROM users WHERE email = ?`), email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, storageErr("get user", err)
	}
	return row.toDomain(d.now()), nil
}

// DeleteUser removes an account; progress, achievements and ledger rows cascade.
func (d *DB) DeleteUser(ctx context.Context, email string) error {
	res, err := d.db.ExecContext(ctx, d.db.Rebind(`DELETE FROM users WHERE email = ?`), email)
	if err != nil {
		return storageErr("delete user", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

// UserEmails lists every registered email, sorted.
func (d *DB) UserEmails(ctx context.Context) ([]string, error) {
	emails := []string{}
	if err := d.db.SelectContext(ctx, &emails, `SELECT email FROM users ORDER BY email`); err != nil {
		return nil, storageErr("list users", err)
	}
	return emails, nil
}

// CountUsers returns the number of registered accounts.
func (d *DB) CountUsers(ctx context.Context) (int, error) {
	var n int
	if err := d.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM users`); err != nil {
		return 0, storageErr("count users", err)
	}
	return n, nil
}

// TopUsersByXP returns up to limit users ordered by XP descending.
// Ties are broken by email so the ordering is stable.
func (d *DB) TopUsersByXP(ctx context.Context, limit int) ([]domain.User, error) {
	var rows []userRow
	err := d.db.SelectContext(ctx, &rows, d.db.Rebind(
		`SELECT `+userColumns+` FROM users ORDER BY xp DESC, email ASC LIMIT ?`), limit)
	if err != nil {
		return nil, storageErr("leaderboard", err)
	}
	now := d.now()
	users := make([]domain.User, 0, len(rows))
	for _, r := range rows {
		users = append(users, *r.toDomain(now))
	}
	return users, nil
}

// ─── Read Models ────────────────────────────────────────────────────────────

// CompletedLessons returns completed lesson ids for one language outside any
// unit of work.
func (d *DB) CompletedLessons(ctx context.Context, email, language string) ([]int, error) {
	return completedLessons(ctx, d.db, email, language)
}

// UserAchievements returns a user's earned achievements, oldest first.
func (d *DB) UserAchievements(ctx context.Context, email string) ([]domain.UserAchievement, error) {
	var rows []struct {
		Key      string         `db:"achievement_key"`
		EarnedAt sql.NullString `db:"earned_at"`
	}
	err := d.db.SelectContext(ctx, &rows, d.db.Rebind(
		`SELECT achievement_key, earned_at FROM user_achievements
		 WHERE user_email = ? ORDER BY earned_at, achievement_key`), email)
	if err != nil {
		return nil, storageErr("list achievements", err)
	}
	now := d.now()
	out := make([]domain.UserAchievement, 0, len(rows))
	for _, r := range rows {
		out = append(out, domain.UserAchievement{
			Email:    email,
			Key:      r.Key,
			EarnedAt: parseTimestamp(r.EarnedAt, now),
		})
	}
	return out, nil
}

// gemRow mirrors the gem_ledger table.
type gemRow struct {
	ID      string         `db:"id"`
	Email   string         `db:"user_email"`
	TS      sql.NullString `db:"ts"`
	Source  string         `db:"source"`
	Amount  int64          `db:"amount"`
	Reason  string         `db:"reason"`
	Balance int64          `db:"balance"`
}

// GemEntries returns the most recent ledger rows for a user, newest first.
// A limit <= 0 returns every row.
func (d *DB) GemEntries(ctx context.Context, email string, limit int) ([]domain.GemEntry, error) {
	q := `SELECT id, user_email, ts, source, amount, reason, balance FROM gem_ledger
		  WHERE user_email = ? ORDER BY seq DESC`
	args := []any{email}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}

	var rows []gemRow
	if err := d.db.SelectContext(ctx, &rows, d.db.Rebind(q), args...); err != nil {
		return nil, storageErr("gem history", err)
	}
	now := d.now()
	out := make([]domain.GemEntry, 0, len(rows))
	for _, r := range rows {
		out = append(out, domain.GemEntry{
			ID:        r.ID,
			Email:     r.Email,
			Timestamp: parseTimestamp(r.TS, now),
			Source:    domain.GemSource(r.Source),
			Amount:    r.Amount,
			Reason:    r.Reason,
			Balance:   r.Balance,
		})
	}
	return out, nil
}

// GemLedgerSum returns the signed sum of a user's ledger amounts.
func (d *DB) GemLedgerSum(ctx context.Context, email string) (int64, error) {
	var sum int64
	err := d.db.GetContext(ctx, &sum, d.db.Rebind(
		`SELECT CAST(COALESCE(SUM(amount), 0) AS BIGINT) FROM gem_ledger WHERE user_email = ?`), email)
	if err != nil {
		return 0, storageErr("gem ledger sum", err)
	}
	return sum, nil
}
