// Package domain holds progression and economy types.
// The engagement engine drives learner retention through hearts, XP levels,
// gems, daily goals, streaks and achievements.
package domain

import "time"

// ─── Economy Defaults ───────────────────────────────────────────────────────

const (
	DefaultMaxHearts     = 5
	DefaultHeartRegen    = 120 * time.Second // one heart every 2 minutes
	DefaultStartingGems  = 50
	DefaultDailyGoal     = 10
	DefaultLessonXP      = 10
	DefaultLessonGems    = 1
	DefaultLevelUpGems   = 5
	DefaultRefillCost    = 30
	DefaultLeaderboardSz = 10
)

// DefaultXPLevels is the cumulative XP needed to reach level i+1.
func DefaultXPLevels() []int64 {
	return []int64{0, 50, 120, 250, 500, 1000, 2000}
}

// ─── User ───────────────────────────────────────────────────────────────────

// User is one learner account. Email is the identity.
type User struct {
	Email        string `json:"email"`
	Name         string `json:"name"`
	PasswordHash string `json:"-"`

	Hearts          int       `json:"hearts"`
	LastHeartChange time.Time `json:"last_heart_change"`

	XP     int64 `json:"xp"`
	Gems   int64 `json:"gems"`
	Streak int   `json:"streak"`
	// LastStreakDate is the calendar day of the last credited activity.
	// Zero means no activity has ever been recorded.
	LastStreakDate time.Time `json:"last_streak_date"`

	DailyProgress  int64     `json:"daily_progress"`
	DailyGoal      int64     `json:"daily_goal"`
	LastDailyReset time.Time `json:"last_daily_reset"`

	JoinedAt time.Time `json:"joined_at"`
}

// DisplayName falls back to the email when no name was given.
func (u User) DisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	return u.Email
}

// GoalPercent returns daily progress against the goal, floored and capped at 100.
func (u User) GoalPercent() int {
	if u.DailyGoal <= 0 {
		return 0
	}
	pct := u.DailyProgress * 100 / u.DailyGoal
	if pct > 100 {
		pct = 100
	}
	return int(pct)
}

// Progress is the completion status of one (user, lesson, language) triple.
type Progress struct {
	Email     string `json:"email"`
	LessonID  int    `json:"lesson_id"`
	Language  string `json:"language"`
	Completed bool   `json:"completed"`
}

// Lesson is one read-only catalog entry.
type Lesson struct {
	ID       int    `json:"lesson" yaml:"lesson"`
	Language string `json:"language" yaml:"-"`
	Title    string `json:"title" yaml:"title"`
	XP       int64  `json:"xp" yaml:"xp"`
	Gems     int64  `json:"gems,omitempty" yaml:"gems"`
	// Questions is opaque lesson content passed through to clients.
	Questions []map[string]any `json:"questions,omitempty" yaml:"questions"`
}

// ─── Calendar Days ──────────────────────────────────────────────────────────

// DateOf truncates t to its calendar day in t's own location.
// The result is midnight UTC so day values compare with ==.
func DateOf(t time.Time) time.Time {
	if t.IsZero() {
		return time.Time{}
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ─── Level Types ────────────────────────────────────────────────────────────

// LevelInfo describes where an XP total sits on the level table.
type LevelInfo struct {
	Level         int   `json:"level"`
	Percent       int   `json:"percent"`
	NextThreshold int64 `json:"next_threshold"`
	MaxLevel      bool  `json:"max_level"`
}

// ─── Achievement Types ──────────────────────────────────────────────────────

// CriteriaType selects which stat an achievement is measured against.
type CriteriaType string

const (
	CriteriaStreak          CriteriaType = "streak"
	CriteriaLevel           CriteriaType = "level"
	CriteriaTotalLessons    CriteriaType = "total_lessons"
	CriteriaLanguageLessons CriteriaType = "language_lessons"
)

// AchievementDef is one entry of the static achievement catalog.
type AchievementDef struct {
	Key         string       `json:"key"`
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Icon        string       `json:"icon"`
	Criteria    CriteriaType `json:"criteria"`
	Value       int          `json:"value"`
	Language    string       `json:"language,omitempty"` // only for language_lessons
	RewardXP    int64        `json:"reward_xp"`
	RewardGems  int64        `json:"reward_gems"`
}

// Satisfied reports whether the snapshot meets this achievement's threshold.
func (d AchievementDef) Satisfied(s StatsSnapshot) bool {
	switch d.Criteria {
	case CriteriaStreak:
		return s.Streak >= d.Value
	case CriteriaLevel:
		return s.Level >= d.Value
	case CriteriaTotalLessons:
		return s.TotalCompleted >= d.Value
	case CriteriaLanguageLessons:
		return s.PerLanguage[d.Language] >= d.Value
	}
	return false
}

// UserAchievement records when a user earned an achievement. Write-once.
type UserAchievement struct {
	Email    string    `json:"email"`
	Key      string    `json:"key"`
	EarnedAt time.Time `json:"earned_at"`
}

// StatsSnapshot is the user state fed to achievement predicates.
type StatsSnapshot struct {
	Streak         int            `json:"streak"`
	Level          int            `json:"level"`
	TotalCompleted int            `json:"total_completed"`
	PerLanguage    map[string]int `json:"per_language"`
}

// Reward is an aggregate XP/gem payout.
type Reward struct {
	XP   int64 `json:"xp"`
	Gems int64 `json:"gems"`
}

// ─── Gem Ledger ─────────────────────────────────────────────────────────────

// GemSource categorizes how gems moved.
type GemSource string

const (
	GemSignup      GemSource = "SIGNUP"
	GemLesson      GemSource = "LESSON"
	GemLevelUp     GemSource = "LEVEL_UP"
	GemAchievement GemSource = "ACHIEVEMENT"
	GemRefill      GemSource = "HEART_REFILL"
)

// GemEntry is one row of a user's gem ledger. Amount is signed;
// Balance is the user's gem total after the entry was applied.
type GemEntry struct {
	ID        string    `json:"id"`
	Email     string    `json:"-"`
	Timestamp time.Time `json:"timestamp"`
	Source    GemSource `json:"source"`
	Amount    int64     `json:"amount"`
	Reason    string    `json:"reason"`
	Balance   int64     `json:"balance"`
}

// ─── Leaderboard ────────────────────────────────────────────────────────────

// LeaderboardEntry is one ranked row.
type LeaderboardEntry struct {
	Rank   int    `json:"rank"`
	Name   string `json:"name"`
	XP     int64  `json:"xp"`
	Streak int    `json:"streak"`
	Level  int    `json:"level"`
}
