// services/ledger.go
package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"agentgift-economy/economy"
	"agentgift-economy/metrics"
	"agentgift-economy/models"
	"agentgift-economy/store"
)

// DebitResult reports a spend. Success is false, with nothing changed,
// when the balance did not cover the amount.
type DebitResult struct {
	Success   bool                  `json:"success"`
	Balance   int64                 `json:"balance"`
	Amount    int64                 `json:"amount"`
	XPGained  int64                 `json:"xp_gained"`
	XP        int64                 `json:"xp"`
	Level     int                   `json:"level"`
	LeveledUp bool                  `json:"leveled_up"`
	Unlocked  []string              `json:"badges_unlocked,omitempty"`
	Prestige  *economy.PrestigeRank `json:"prestige,omitempty"`
}

type LedgerService struct {
	Store       store.Store
	Accounts    *AccountService
	Progression *ProgressionService
	Now         func() time.Time
}

func NewLedgerService(st store.Store, accounts *AccountService, progression *ProgressionService) *LedgerService {
	return &LedgerService{Store: st, Accounts: accounts, Progression: progression, Now: time.Now}
}

func (s *LedgerService) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

// Debit spends amount credits. Spending earns CreditsToXP(amount) XP,
// scaled by the active season.
func (s *LedgerService) Debit(ctx context.Context, userID string, amount int64, reason string) (*DebitResult, error) {
	if amount <= 0 {
		return nil, economy.ErrInvalidAmount
	}

	at := s.now()
	gain := store.XPGain{
		Amount:     economy.ApplyMultiplier(economy.CreditsToXP(amount), at),
		Reason:     "spend:" + reason,
		Multiplier: economy.MultiplierAt(at),
	}

	acct, err := s.Store.Debit(ctx, userID, amount, reason, gain)
	if errors.Is(err, store.ErrInsufficientCredits) {
		metrics.LedgerOps.WithLabelValues("debit", metrics.OutcomeDenied).Inc()
		current, lerr := s.Accounts.Fresh(ctx, userID)
		if lerr != nil {
			return nil, lerr
		}
		log.Printf("💸 [LEDGER] Debit of %d for %s refused, balance %d", amount, userID, current.Credits)
		return &DebitResult{Success: false, Balance: current.Credits, Amount: amount, XP: current.XP, Level: economy.Level(current.XP)}, nil
	}
	if err != nil {
		metrics.LedgerOps.WithLabelValues("debit", metrics.OutcomeError).Inc()
		return nil, fmt.Errorf("debit %d from %s: %w", amount, userID, err)
	}

	s.Accounts.Invalidate(ctx, userID)
	metrics.LedgerOps.WithLabelValues("debit", metrics.OutcomeOK).Inc()
	metrics.CreditsMoved.WithLabelValues("debit").Add(float64(amount))
	if gain.Amount > 0 {
		metrics.XPAwarded.Add(float64(gain.Amount))
	}

	res := &DebitResult{
		Success:   true,
		Balance:   acct.Credits,
		Amount:    amount,
		XPGained:  gain.Amount,
		XP:        acct.XP,
		Level:     economy.Level(acct.XP),
		LeveledUp: economy.Level(acct.XP-gain.Amount) < economy.Level(acct.XP),
	}
	log.Printf("💳 [LEDGER] %s spent %d on %s, balance %d, +%d XP", userID, amount, reason, acct.Credits, gain.Amount)

	if gain.Amount > 0 {
		s.settleInto(ctx, userID, res)
	}
	return res, nil
}

// settleInto runs badges and prestige after a committed spend. Failures
// are logged; the spend stands.
func (s *LedgerService) settleInto(ctx context.Context, userID string, res *DebitResult) {
	if s.Progression == nil {
		return
	}
	p, err := s.Progression.Settle(ctx, userID)
	if err != nil {
		log.Printf("⚠️ [LEDGER] Progress settle failed for %s: %v", userID, err)
		return
	}
	res.Unlocked = p.Unlocked
	res.Prestige = p.Prestige
	if p.Account != nil {
		res.XP = p.Account.XP
		res.Level = economy.Level(p.Account.XP)
	}
}

// Credit grants amount credits (purchase, refund, reward, admin grant).
func (s *LedgerService) Credit(ctx context.Context, userID string, amount int64, reason string) (*models.UserAccount, error) {
	if amount <= 0 {
		return nil, economy.ErrInvalidAmount
	}
	acct, err := s.Store.Credit(ctx, userID, amount, reason)
	if err != nil {
		metrics.LedgerOps.WithLabelValues("credit", metrics.OutcomeError).Inc()
		return nil, fmt.Errorf("credit %d to %s: %w", amount, userID, err)
	}
	s.Accounts.Invalidate(ctx, userID)
	metrics.LedgerOps.WithLabelValues("credit", metrics.OutcomeOK).Inc()
	metrics.CreditsMoved.WithLabelValues("credit").Add(float64(amount))
	log.Printf("💰 [LEDGER] %s credited %d (%s), balance %d", userID, amount, reason, acct.Credits)
	return acct, nil
}

// AwardXP adds xp as-is (no seasonal multiplier) and settles progress.
func (s *LedgerService) AwardXP(ctx context.Context, userID string, xp int64, reason string) (*Progress, error) {
	if xp <= 0 {
		return nil, economy.ErrInvalidAmount
	}
	acct, err := s.Store.AddXP(ctx, userID, store.XPGain{Amount: xp, Reason: reason, Multiplier: 1})
	if err != nil {
		return nil, fmt.Errorf("award %d XP to %s: %w", xp, userID, err)
	}
	s.Accounts.Invalidate(ctx, userID)
	metrics.XPAwarded.Add(float64(xp))
	log.Printf("🎮 [LEDGER] XP Awarded: %s → XP=%d, Lvl=%d (reason: %s)", userID, acct.XP, economy.Level(acct.XP), reason)

	if s.Progression == nil {
		return &Progress{Account: acct}, nil
	}
	return s.Progression.Settle(ctx, userID)
}

// History lists the newest transactions first.
func (s *LedgerService) History(ctx context.Context, userID string, limit int) ([]models.CreditTransaction, error) {
	txs, err := s.Store.ListTransactions(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list transactions for %s: %w", userID, err)
	}
	return txs, nil
}

func (s *LedgerService) Since(ctx context.Context, userID string, since time.Time) ([]models.CreditTransaction, error) {
	return s.Store.ListTransactionsSince(ctx, userID, since)
}
