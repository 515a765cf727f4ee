package learner_test

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/lingoleap/lingoleap/internal/app/engagement"
	"github.com/lingoleap/lingoleap/internal/app/learner"
	"github.com/lingoleap/lingoleap/internal/domain"
	"github.com/lingoleap/lingoleap/internal/infra/catalog"
	"github.com/lingoleap/lingoleap/internal/infra/sqlite"
	"github.com/lingoleap/lingoleap/internal/security"
)

var start = time.Date(2025, 9, 14, 8, 30, 0, 0, time.UTC)

type fixture struct {
	svc   *learner.Service
	db    *sqlite.DB
	clock *time.Time
}

func (f *fixture) advance(d time.Duration) { *f.clock = f.clock.Add(d) }

func newFixture(t *testing.T) *fixture {
	t.Helper()
	now := start
	clock := func() time.Time { return now }

	db, err := sqlite.OpenWith(sqlite.Options{Dir: t.TempDir(), Now: clock})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	cat := catalog.Default(domain.DefaultLessonGems)
	eng, err := engagement.NewEngine(db, cat, engagement.DefaultConfig(), engagement.WithClock(clock))
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	tokens, err := security.NewTokens([]byte("test-secret-test-secret-test-sec"), time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	tokens.WithClock(clock)

	svc := learner.NewService(db, cat, eng, tokens, learner.DefaultConfig(), nil).WithClock(clock)
	return &fixture{svc: svc, db: db, clock: &now}
}

func (f *fixture) signup(t *testing.T, name, email string) *domain.User {
	t.Helper()
	u, err := f.svc.Signup(context.Background(), learner.SignupRequest{Name: name, Email: email, Password: "hunter2hunter2"})
	if err != nil {
		t.Fatalf("signup %s: %v", email, err)
	}
	return u
}

// ═══════════════════════════════════════════════════════════════════════════
// Accounts
// ═══════════════════════════════════════════════════════════════════════════

func TestSignup_StartingState(t *testing.T) {
	f := newFixture(t)
	u := f.signup(t, "Ana", "  Ana@Example.com ")

	if u.Email != "ana@example.com" {
		t.Errorf("email = %q, want normalized", u.Email)
	}
	stored, err := f.db.GetUser(context.Background(), "ana@example.com")
	if err != nil {
		t.Fatal(err)
	}
	if stored.Hearts != 5 || stored.XP != 0 || stored.Gems != 50 || stored.Streak != 0 || stored.DailyGoal != 10 {
		t.Errorf("fresh user = %+v", stored)
	}
	today := domain.DateOf(start)
	if !stored.LastStreakDate.Equal(today) || !stored.LastDailyReset.Equal(today) {
		t.Errorf("dates = %v / %v, want %v", stored.LastStreakDate, stored.LastDailyReset, today)
	}
	if stored.PasswordHash == "hunter2hunter2" {
		t.Error("password stored in clear")
	}

	sum, _ := f.db.GemLedgerSum(context.Background(), "ana@example.com")
	if sum != 50 {
		t.Errorf("ledger sum = %d, want 50", sum)
	}
}

func TestSignup_Rejects(t *testing.T) {
	f := newFixture(t)
	f.signup(t, "Ana", "ana@example.com")
	ctx := context.Background()

	tests := []struct {
		name string
		req  learner.SignupRequest
		want error
	}{
		{"duplicate", learner.SignupRequest{Name: "Ana", Email: "ANA@example.com", Password: "longenough"}, domain.ErrEmailTaken},
		{"bad email", learner.SignupRequest{Name: "Bo", Email: "not-an-email", Password: "longenough"}, domain.ErrInvalidInput},
		{"no name", learner.SignupRequest{Name: " ", Email: "bo@example.com", Password: "longenough"}, domain.ErrInvalidInput},
		{"short password", learner.SignupRequest{Name: "Bo", Email: "bo@example.com", Password: "short"}, domain.ErrInvalidInput},
	}
	for _, tt := range tests {
		if _, err := f.svc.Signup(ctx, tt.req); !errors.Is(err, tt.want) {
			t.Errorf("%s: err = %v, want %v", tt.name, err, tt.want)
		}
	}
}

func TestLogin(t *testing.T) {
	f := newFixture(t)
	f.signup(t, "Ana", "ana@example.com")
	ctx := context.Background()

	sess, err := f.svc.Login(ctx, "Ana@example.com", "hunter2hunter2")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	email, err := f.svc.Authenticate(sess.Token)
	if err != nil || email != "ana@example.com" {
		t.Errorf("Authenticate() = %q, %v", email, err)
	}

	if _, err := f.svc.Login(ctx, "ana@example.com", "wrong-password"); !errors.Is(err, domain.ErrInvalidCredential) {
		t.Errorf("wrong password err = %v", err)
	}
	if _, err := f.svc.Login(ctx, "ghost@example.com", "hunter2hunter2"); !errors.Is(err, domain.ErrInvalidCredential) {
		t.Errorf("unknown email err = %v", err)
	}
}

func TestLogin_ResetsLapsedStreak(t *testing.T) {
	f := newFixture(t)
	f.signup(t, "Ana", "ana@example.com")
	ctx := context.Background()

	if _, err := f.svc.Complete(ctx, "ana@example.com", "Spanish", 1); err != nil {
		t.Fatal(err)
	}
	f.advance(3 * 24 * time.Hour)

	sess, err := f.svc.Login(ctx, "ana@example.com", "hunter2hunter2")
	if err != nil {
		t.Fatal(err)
	}
	if sess.User.Streak != 0 || sess.User.DailyProgress != 0 {
		t.Errorf("after login: streak=%d daily=%d, want 0/0", sess.User.Streak, sess.User.DailyProgress)
	}
}

func TestDeleteAccount(t *testing.T) {
	f := newFixture(t)
	f.signup(t, "Ana", "ana@example.com")
	ctx := context.Background()

	if err := f.svc.DeleteAccount(ctx, "ana@example.com"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := f.svc.Profile(ctx, "ana@example.com"); !errors.Is(err, domain.ErrUserNotFound) {
		t.Errorf("profile after delete err = %v", err)
	}
	if err := f.svc.DeleteAccount(ctx, "ana@example.com"); !errors.Is(err, domain.ErrUserNotFound) {
		t.Errorf("second delete err = %v", err)
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Lesson Gate
// ═══════════════════════════════════════════════════════════════════════════

func TestOpenLesson_Gate(t *testing.T) {
	f := newFixture(t)
	f.signup(t, "Ana", "ana@example.com")
	ctx := context.Background()

	if _, err := f.svc.OpenLesson(ctx, "ana@example.com", "Spanish", 2); !errors.Is(err, domain.ErrLessonLocked) {
		t.Fatalf("lesson 2 before 1: err = %v, want ErrLessonLocked", err)
	}
	view, err := f.svc.OpenLesson(ctx, "ana@example.com", "Spanish-English", 1)
	if err != nil {
		t.Fatalf("open lesson 1: %v", err)
	}
	if view.ID != 1 || view.Language != "Spanish" || len(view.Questions) == 0 || view.Completed {
		t.Errorf("view = %+v", view)
	}

	if _, err := f.svc.Complete(ctx, "ana@example.com", "Spanish", 1); err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.OpenLesson(ctx, "ana@example.com", "Spanish", 2); err != nil {
		t.Errorf("lesson 2 after 1: %v", err)
	}

	if _, err := f.svc.OpenLesson(ctx, "ana@example.com", "Klingon", 1); !errors.Is(err, domain.ErrInvalidLanguage) {
		t.Errorf("unknown language err = %v", err)
	}
	if _, err := f.svc.OpenLesson(ctx, "ana@example.com", "Spanish", 99); !errors.Is(err, domain.ErrLessonNotFound) {
		t.Errorf("unknown lesson err = %v", err)
	}
}

func TestComplete_NoHeartsBlocks(t *testing.T) {
	f := newFixture(t)
	f.signup(t, "Ana", "ana@example.com")
	ctx := context.Background()
	eng := f.svc.Engine()

	for i := 0; i < 5; i++ {
		if _, err := eng.SpendHeart(ctx, "ana@example.com"); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := f.svc.Complete(ctx, "ana@example.com", "Spanish", 1); !errors.Is(err, domain.ErrNoHearts) {
		t.Fatalf("err = %v, want ErrNoHearts", err)
	}
	u, _ := f.db.GetUser(ctx, "ana@example.com")
	if u.XP != 0 {
		t.Errorf("xp = %d after blocked completion", u.XP)
	}

	f.advance(2 * time.Minute)
	if _, err := f.svc.Complete(ctx, "ana@example.com", "Spanish", 1); err != nil {
		t.Errorf("after regeneration: %v", err)
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Dashboard & Leaderboard
// ═══════════════════════════════════════════════════════════════════════════

func TestDashboard(t *testing.T) {
	f := newFixture(t)
	f.signup(t, "Ana", "ana@example.com")
	ctx := context.Background()

	for id := 1; id <= 2; id++ {
		if _, err := f.svc.Complete(ctx, "ana@example.com", "French", id); err != nil {
			t.Fatal(err)
		}
	}

	d, err := f.svc.Dashboard(ctx, "ana@example.com", "French")
	if err != nil {
		t.Fatalf("dashboard: %v", err)
	}
	if d.XP != 20 || d.Gems != 52 || d.Streak != 1 || d.Hearts != 5 {
		t.Errorf("dashboard stats = %+v", d)
	}
	if d.DailyProgress != 20 || d.GoalPercent != 100 {
		t.Errorf("daily = %d (%d%%), want 20 capped at 100%%", d.DailyProgress, d.GoalPercent)
	}
	if len(d.CompletedLessons) != 2 || len(d.Languages) != 4 || d.Language != "French" {
		t.Errorf("lessons = %v languages = %v", d.CompletedLessons, d.Languages)
	}
	if !d.Lessons[2].Unlocked || d.Lessons[3].Unlocked || !d.Lessons[0].Completed {
		t.Errorf("lesson states = %+v", d.Lessons)
	}
	if d.ProfileColor != learner.ProfileColor("Ana") {
		t.Errorf("profile color = %s", d.ProfileColor)
	}
}

func TestDashboard_DefaultLanguage(t *testing.T) {
	f := newFixture(t)
	f.signup(t, "Ana", "ana@example.com")
	d, err := f.svc.Dashboard(context.Background(), "ana@example.com", "")
	if err != nil {
		t.Fatal(err)
	}
	if d.Language != "Spanish" {
		t.Errorf("language = %q, want Spanish", d.Language)
	}
}

func TestProfileColor(t *testing.T) {
	hex := regexp.MustCompile(`^#[0-9a-f]{6}$`)
	for _, name := range []string{"Ana", "", "Zoë", "a very long display name indeed"} {
		c := learner.ProfileColor(name)
		if !hex.MatchString(c) {
			t.Fatalf("ProfileColor(%q) = %q", name, c)
		}
		for i := 1; i < 7; i += 2 {
			var v int
			for _, ch := range c[i : i+2] {
				v *= 16
				if ch >= 'a' {
					v += int(ch-'a') + 10
				} else {
					v += int(ch - '0')
				}
			}
			if v < 50 || v > 200 {
				t.Errorf("ProfileColor(%q) channel %d = %d out of [50,200]", name, i/2, v)
			}
		}
		if learner.ProfileColor(name) != c {
			t.Errorf("ProfileColor(%q) not stable", name)
		}
	}
}

func TestLeaderboard(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.signup(t, "Ana", "ana@example.com")
	f.signup(t, "Bo", "bo@example.com")
	f.signup(t, "Cy", "cy@example.com")

	for id := 1; id <= 3; id++ {
		if _, err := f.svc.Complete(ctx, "bo@example.com", "German", id); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := f.svc.Complete(ctx, "cy@example.com", "German", 1); err != nil {
		t.Fatal(err)
	}

	board, err := f.svc.Leaderboard(ctx, 2)
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	if len(board) != 2 {
		t.Fatalf("len = %d, want 2", len(board))
	}
	if board[0].Name != "Bo" || board[0].Rank != 1 || board[0].XP != 30 {
		t.Errorf("first = %+v", board[0])
	}
	if board[1].Name != "Cy" || board[1].Rank != 2 {
		t.Errorf("second = %+v", board[1])
	}
}

func TestEarnedAchievements(t *testing.T) {
	f := newFixture(t)
	f.signup(t, "Ana", "ana@example.com")
	ctx := context.Background()

	for id := 1; id <= 5; id++ {
		if _, err := f.svc.Complete(ctx, "ana@example.com", "Japanese", id); err != nil {
			t.Fatal(err)
		}
	}
	list, err := f.svc.EarnedAchievements(ctx, "ana@example.com")
	if err != nil {
		t.Fatal(err)
	}
	keys := map[string]bool{}
	for _, a := range list {
		keys[a.Key] = true
	}
	if len(list) != 2 || !keys["lessons_5"] || !keys["japanese_5"] {
		t.Errorf("achievements = %+v", list)
	}
}
