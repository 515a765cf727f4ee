package domain

import (
	"context"
	"time"
)

// ─── Storage Interfaces ─────────────────────────────────────────────────────
// These interfaces define boundaries between layers.
// Infrastructure implements them; application layer depends on them.

// ProgressTx is the set of reads and writes available inside one unit of work.
// Every method runs against the same transaction; nothing is visible to other
// callers until the enclosing ProgressStore.InTx returns nil.
type ProgressTx interface {
	// GetUser loads the full user row. Returns ErrUserNotFound if absent.
	GetUser(ctx context.Context, email string) (*User, error)

	// SaveUser persists every mutable progression field of u.
	SaveUser(ctx context.Context, u *User) error

	// UpsertProgress marks (email, lessonID, language) completed.
	// wasCompleted reports whether it already was before the call.
	UpsertProgress(ctx context.Context, email string, lessonID int, language string) (wasCompleted bool, err error)

	// IsCompleted reports whether a lesson is completed.
	IsCompleted(ctx context.Context, email string, lessonID int, language string) (bool, error)

	// CompletedLessons returns completed lesson ids for one language, ascending.
	CompletedLessons(ctx context.Context, email, language string) ([]int, error)

	// CompletionCounts returns the distinct completed lesson count overall and per language.
	CompletionCounts(ctx context.Context, email string) (total int, perLanguage map[string]int, err error)

	// EarnedAchievements returns the set of achievement keys already earned.
	EarnedAchievements(ctx context.Context, email string) (map[string]bool, error)

	// InsertUserAchievement records an achievement. Returns false if it already existed.
	InsertUserAchievement(ctx context.Context, ua UserAchievement) (bool, error)

	// InsertGemEntry appends to the user's gem ledger.
	InsertGemEntry(ctx context.Context, e GemEntry) error
}

// ProgressStore opens units of work. If fn returns an error the transaction
// is rolled back and the error is returned; otherwise it is committed.
type ProgressStore interface {
	InTx(ctx context.Context, fn func(tx ProgressTx) error) error
}

// LessonCatalog is the read-only lesson lookup consumed by the engine.
type LessonCatalog interface {
	// Lesson returns ErrInvalidLanguage for an unknown language and
	// ErrLessonNotFound for an unknown id within a known language.
	Lesson(language string, id int) (Lesson, error)
}

// Clock returns the current time. Services take one so tests can pin time.
type Clock func() time.Time
