package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/lingoleap/lingoleap/internal/domain"
)

// Tx is one unit of work. It implements domain.ProgressTx.
type Tx struct {
	tx  *sqlx.Tx
	now func() time.Time
}

var _ domain.ProgressTx = (*Tx)(nil)

// userRow mirrors the users table for sqlx scanning.
type userRow struct {
	Email           string         `db:"email"`
	Name            string         `db:"name"`
	PasswordHash    string         `db:"password_hash"`
	Hearts          int            `db:"hearts"`
	LastHeartChange sql.NullString `db:"last_heart_change"`
	XP              int64          `db:"xp"`
	Gems            int64          `db:"gems"`
	Streak          int            `db:"streak"`
	LastStreakDate  sql.NullString `db:"last_streak_date"`
	DailyProgress   int64          `db:"daily_progress"`
	DailyGoal       int64          `db:"daily_goal"`
	LastDailyReset  sql.NullString `db:"last_daily_reset"`
	JoinedAt        sql.NullString `db:"joined_at"`
}

const userColumns = `email, name, password_hash, hearts, last_heart_change, xp, gems,
	streak, last_streak_date, daily_progress, daily_goal, last_daily_reset, joined_at`

func (r userRow) toDomain(now time.Time) *domain.User {
	return &domain.User{
		Email:           r.Email,
		Name:            r.Name,
		PasswordHash:    r.PasswordHash,
		Hearts:          r.Hearts,
		LastHeartChange: parseTimestamp(r.LastHeartChange, now),
		XP:              r.XP,
		Gems:            r.Gems,
		Streak:          r.Streak,
		LastStreakDate:  parseDate(r.LastStreakDate),
		DailyProgress:   r.DailyProgress,
		DailyGoal:       r.DailyGoal,
		LastDailyReset:  parseDate(r.LastDailyReset),
		JoinedAt:        parseTimestamp(r.JoinedAt, now),
	}
}

// ─── Users ──────────────────────────────────────────────────────────────────

// GetUser loads a user inside the transaction.
func (t *Tx) GetUser(ctx context.Context, email string) (*domain.User, error) {
	var row userRow
	err := t.tx.GetContext(ctx, &row,
		t.tx.Rebind(`SELECT `+userColumns+` FROM users WHERE email = ?`), email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, storageErr("get user", err)
	}
	return row.toDomain(t.now()), nil
}

// SaveUser writes back every mutable progression field.
func (t *Tx) SaveUser(ctx context.Context, u *domain.User) error {
	res, err := t.tx.ExecContext(ctx, t.tx.Rebind(
		`UPDATE users SET
			name = ?, hearts = ?, last_heart_change = ?, xp = ?, gems = ?,
			streak = ?, last_streak_date = ?, daily_progress = ?, daily_goal = ?,
			last_daily_reset = ?
		 WHERE email = ?`),
		u.Name, u.Hearts, formatTimestamp(u.LastHeartChange), u.XP, u.Gems,
		u.Streak, nullableDate(u.LastStreakDate), u.DailyProgress, u.DailyGoal,
		nullableDate(u.LastDailyReset),
		u.Email,
	)
	if err != nil {
		return storageErr("save user", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

// ─── Progress ───────────────────────────────────────────────────────────────

// UpsertProgress marks a lesson completed and reports its previous state.
func (t *Tx) UpsertProgress(ctx context.Context, email string, lessonID int, language string) (bool, error) {
	was, err := t.IsCompleted(ctx, email, lessonID, language)
	if err != nil {
		return false, err
	}
	_, err = t.tx.ExecContext(ctx, t.tx.Rebind(
		`INSERT INTO progress (user_email, lesson_id, language, completed)
		 VALUES (?, ?, ?, TRUE)
		 ON CONFLICT (user_email, lesson_id, language) DO UPDATE SET completed = TRUE`),
		email, lessonID, language,
	)
	if err != nil {
		return false, storageErr("upsert progress", err)
	}
	return was, nil
}

// IsCompleted reports whether a lesson is completed.
func (t *Tx) IsCompleted(ctx context.Context, email string, lessonID int, language string) (bool, error) {
	var completed bool
	err := t.tx.GetContext(ctx, &completed, t.tx.Rebind(
		`SELECT completed FROM progress WHERE user_email = ? AND lesson_id = ? AND language = ?`),
		email, lessonID, language,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, storageErr("read progress", err)
	}
	return completed, nil
}

// CompletedLessons returns the completed lesson ids for one language.
func (t *Tx) CompletedLessons(ctx context.Context, email, language string) ([]int, error) {
	return completedLessons(ctx, t.tx, email, language)
}

// queryer is satisfied by both *sqlx.DB and *sqlx.Tx.
type queryer interface {
	sqlx.QueryerContext
	Rebind(query string) string
}

func completedLessons(ctx context.Context, q queryer, email, language string) ([]int, error) {
	ids := []int{}
	err := sqlx.SelectContext(ctx, q, &ids, q.Rebind(
		`SELECT lesson_id FROM progress
		 WHERE user_email = ? AND language = ? AND completed = TRUE
		 ORDER BY lesson_id`),
		email, language,
	)
	if err != nil {
		return nil, storageErr("list completed", err)
	}
	return ids, nil
}

// CompletionCounts returns completed lesson counts overall and per language.
func (t *Tx) CompletionCounts(ctx context.Context, email string) (int, map[string]int, error) {
	var rows []struct {
		Language string `db:"language"`
		N        int    `db:"n"`
	}
	err := t.tx.SelectContext(ctx, &rows, t.tx.Rebind(
		`SELECT language, COUNT(*) AS n FROM progress
		 WHERE user_email = ? AND completed = TRUE
		 GROUP BY language`),
		email,
	)
	if err != nil {
		return 0, nil, storageErr("count completed", err)
	}
	total := 0
	per := make(map[string]int, len(rows))
	for _, r := range rows {
		per[r.Language] = r.N
		total += r.N
	}
	return total, per, nil
}

// ─── Achievements ───────────────────────────────────────────────────────────

// EarnedAchievements returns the keys a user has already earned.
func (t *Tx) EarnedAchievements(ctx context.Context, email string) (map[string]bool, error) {
	var keys []string
	err := t.tx.SelectContext(ctx, &keys, t.tx.Rebind(
		`SELECT achievement_key FROM user_achievements WHERE user_email = ?`), email)
	if err != nil {
		return nil, storageErr("list achievements", err)
	}
	earned := make(map[string]bool, len(keys))
	for _, k := range keys {
		earned[k] = true
	}
	return earned, nil
}

// InsertUserAchievement records an achievement.
// Returns false if already earned (idempotent).
func (t *Tx) InsertUserAchievement(ctx context.Context, ua domain.UserAchievement) (bool, error) {
	res, err := t.tx.ExecContext(ctx, t.tx.Rebind(
		`INSERT INTO user_achievements (user_email, achievement_key, earned_at)
		 VALUES (?, ?, ?)
		 ON CONFLICT (user_email, achievement_key) DO NOTHING`),
		ua.Email, ua.Key, formatTimestamp(ua.EarnedAt),
	)
	if err != nil {
		return false, storageErr("insert achievement", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil // true = newly earned
}

// ─── Gem Ledger ─────────────────────────────────────────────────────────────

// InsertGemEntry appends one ledger row. Rows are ordered per user by seq.
func (t *Tx) InsertGemEntry(ctx context.Context, e domain.GemEntry) error {
	_, err := t.tx.ExecContext(ctx, t.tx.Rebind(
		`INSERT INTO gem_ledger (id, user_email, seq, ts, source, amount, reason, balance)
		 VALUES (?, ?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM gem_ledger WHERE user_email = ?), ?, ?, ?, ?, ?)`),
		e.ID, e.Email, e.Email, formatTimestamp(e.Timestamp), string(e.Source), e.Amount, e.Reason, e.Balance,
	)
	if err != nil {
		return storageErr("insert gem entry", err)
	}
	return nil
}
