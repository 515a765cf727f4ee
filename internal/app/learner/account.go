package learner

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/lingoleap/lingoleap/internal/domain"
	"github.com/lingoleap/lingoleap/internal/infra/metrics"
	"github.com/lingoleap/lingoleap/internal/security"
)

// SignupRequest carries the fields a new account needs.
type SignupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Session is a signed-in learner.
type Session struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      *domain.User `json:"user"`
}

// NormalizeEmail trims and lowercases an address and checks its shape.
func NormalizeEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", fmt.Errorf("%w: malformed email", domain.ErrInvalidInput)
	}
	return email, nil
}

// Signup creates an account with a full set of hearts and the starting gem
// grant. Returns ErrEmailTaken for a registered address.
func (s *Service) Signup(ctx context.Context, req SignupRequest) (*domain.User, error) {
	email, err := NormalizeEmail(req.Email)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", domain.ErrInvalidInput)
	}
	hash, err := security.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	now := s.now()
	today := s.engine.Today()
	u := &domain.User{
		Email:           email,
		Name:            name,
		PasswordHash:    hash,
		Hearts:          s.engine.Config().MaxHearts,
		LastHeartChange: now,
		Gems:            s.cfg.StartingGems,
		DailyGoal:       s.cfg.DailyGoal,
		LastStreakDate:  today,
		LastDailyReset:  today,
		JoinedAt:        now,
	}

	var opening *domain.GemEntry
	if s.cfg.StartingGems > 0 {
		opening = &domain.GemEntry{
			ID:        uuid.NewString(),
			Email:     email,
			Timestamp: now,
			Source:    domain.GemSignup,
			Amount:    s.cfg.StartingGems,
			Reason:    "welcome bonus",
			Balance:   s.cfg.StartingGems,
		}
	}
	if err := s.store.CreateUser(ctx, u, opening); err != nil {
		return nil, err
	}

	metrics.Signups.Inc()
	metrics.RegisteredUsers.Inc()
	if opening != nil {
		metrics.GemsAwarded.WithLabelValues(string(domain.GemSignup)).Add(float64(opening.Amount))
	}
	s.log.Info("account created", "email", email)
	return u, nil
}

// Login verifies credentials, runs the passive streak check and issues a
// session token. Unknown emails and wrong passwords look the same.
func (s *Service) Login(ctx context.Context, email, password string) (*Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	u, err := s.store.GetUser(ctx, email)
	if errors.Is(err, domain.ErrUserNotFound) {
		return nil, domain.ErrInvalidCredential
	}
	if err != nil {
		return nil, err
	}
	if err := security.CheckPassword(u.PasswordHash, password); err != nil {
		s.log.Warn("login rejected", "email", email)
		return nil, err
	}

	if _, err := s.engine.PassiveCheck(ctx, email); err != nil {
		return nil, err
	}
	u, err = s.store.GetUser(ctx, email)
	if err != nil {
		return nil, err
	}

	token, exp, err := s.tokens.Issue(u.Email, u.DisplayName())
	if err != nil {
		return nil, err
	}
	s.log.Info("login", "email", email, "streak", u.Streak)
	return &Session{Token: token, ExpiresAt: exp, User: u}, nil
}

// Authenticate resolves a bearer token to the learner's email.
func (s *Service) Authenticate(token string) (string, error) {
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

// Profile returns the learner with hearts brought up to date.
func (s *Service) Profile(ctx context.Context, email string) (*domain.User, error) {
	if _, err := s.engine.Hearts(ctx, email); err != nil {
		return nil, err
	}
	return s.store.GetUser(ctx, email)
}

// DeleteAccount removes the learner and everything that hangs off it.
func (s *Service) DeleteAccount(ctx context.Context, email string) error {
	if err := s.store.DeleteUser(ctx, email); err != nil {
		return err
	}
	metrics.RegisteredUsers.Dec()
	s.log.Info("account deleted", "email", email)
	return nil
}

// SyncUserGauge sets the registered-users gauge from storage.
func (s *Service) SyncUserGauge(ctx context.Context) error {
	n, err := s.store.CountUsers(ctx)
	if err != nil {
		return err
	}
	metrics.RegisteredUsers.Set(float64(n))
	return nil
}
