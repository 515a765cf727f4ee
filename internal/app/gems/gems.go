// Package gems exposes the learner gem ledger.
// Every gem movement is appended as a signed entry carrying the running
// balance, so SUM(amount) == users.gems is an invariant per learner.
package gems

import (
	"context"
	"fmt"

	"github.com/lingoleap/lingoleap/internal/domain"
)

// Store is the read side of the ledger.
type Store interface {
	GetUser(ctx context.Context, email string) (*domain.User, error)
	GemEntries(ctx context.Context, email string, limit int) ([]domain.GemEntry, error)
	GemLedgerSum(ctx context.Context, email string) (int64, error)
}

// Service reads balances and ledger history.
type Service struct {
	store Store
}

// NewService creates a gem service.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// Balance returns the learner's current gem balance.
func (s *Service) Balance(ctx context.Context, email string) (int64, error) {
	u, err := s.store.GetUser(ctx, email)
	if err != nil {
		return 0, err
	}
	return u.Gems, nil
}

// History returns recent ledger entries, newest first. limit <= 0 returns all.
func (s *Service) History(ctx context.Context, email string, limit int) ([]domain.GemEntry, error) {
	if _, err := s.store.GetUser(ctx, email); err != nil {
		return nil, err
	}
	return s.store.GemEntries(ctx, email, limit)
}

// ─── Summary ────────────────────────────────────────────────────────────────

// Summary totals ledger movements by source.
type Summary struct {
	Earned   int64                      `json:"earned"`
	Spent    int64                      `json:"spent"`
	BySource map[domain.GemSource]int64 `json:"by_source"`
}

// Summarize folds entries into per-source totals.
func Summarize(entries []domain.GemEntry) Summary {
	s := Summary{BySource: make(map[domain.GemSource]int64)}
	for _, e := range entries {
		s.BySource[e.Source] += e.Amount
		if e.Amount >= 0 {
			s.Earned += e.Amount
		} else {
			s.Spent -= e.Amount
		}
	}
	return s
}

// ─── Audit ──────────────────────────────────────────────────────────────────

// AuditReport compares the stored balance with the ledger.
type AuditReport struct {
	Email     string `json:"-"`
	Balance   int64  `json:"balance"`
	LedgerSum int64  `json:"ledger_sum"`
	// LastBalance is the running balance on the newest entry.
	LastBalance int64 `json:"last_balance"`
	Entries     int   `json:"entries"`
}

// OK reports whether balance, ledger sum and the newest running balance agree.
func (r AuditReport) OK() bool {
	return r.Balance == r.LedgerSum && (r.Entries == 0 || r.LastBalance == r.Balance)
}

// Audit verifies the ledger invariant for one learner.
func (s *Service) Audit(ctx context.Context, email string) (AuditReport, error) {
	u, err := s.store.GetUser(ctx, email)
	if err != nil {
		return AuditReport{}, err
	}
	sum, err := s.store.GemLedgerSum(ctx, email)
	if err != nil {
		return AuditReport{}, fmt.Errorf("ledger sum: %w", err)
	}
	entries, err := s.store.GemEntries(ctx, email, 0)
	if err != nil {
		return AuditReport{}, fmt.Errorf("ledger entries: %w", err)
	}

	r := AuditReport{Email: email, Balance: u.Gems, LedgerSum: sum, Entries: len(entries)}
	if len(entries) > 0 {
		r.LastBalance = entries[0].Balance
	}
	return r, nil
}
