// Package store persists accounts and the append-only economy logs.
package store

import (
	"context"
	"errors"
	"time"

	"agentgift-economy/economy"
	"agentgift-economy/models"
)

var (
	ErrAccountNotFound     = errors.New("account not found")
	ErrInsufficientCredits = errors.New("insufficient credits")
	ErrBadgeNotFound       = errors.New("badge not found")
)

// XPGain is one XP award. Amount is the final (already multiplied) value;
// Multiplier is recorded in xp_logs for auditing.
type XPGain struct {
	Amount     int64
	Reason     string
	Multiplier float64
}

// Store is the datastore boundary of the economy. Every mutating method
// commits its balance change and its log rows together.
type Store interface {
	Migrate(ctx context.Context) error

	GetAccount(ctx context.Context, userID string) (*models.UserAccount, error)
	// EnsureAccount inserts the signup row if missing; never touches an existing row.
	EnsureAccount(ctx context.Context, userID string, startingCredits int64) (*models.UserAccount, bool, error)
	SetTier(ctx context.Context, userID string, tier economy.Tier) (*models.UserAccount, error)

	// Debit returns ErrInsufficientCredits without mutating anything when
	// the balance is below amount.
	Debit(ctx context.Context, userID string, amount int64, reason string, gain XPGain) (*models.UserAccount, error)
	Credit(ctx context.Context, userID string, amount int64, reason string) (*models.UserAccount, error)
	AddXP(ctx context.Context, userID string, gain XPGain) (*models.UserAccount, error)
	ListTransactions(ctx context.Context, userID string, limit int) ([]models.CreditTransaction, error)
	// ListTransactionsSince returns rows created at or after since, oldest first.
	ListTransactionsSince(ctx context.Context, userID string, since time.Time) ([]models.CreditTransaction, error)

	GetBadge(ctx context.Context, badgeID string) (*models.Badge, error)
	ListBadges(ctx context.Context) ([]models.Badge, error)
	SeedBadges(ctx context.Context, badges []models.Badge) error
	UpsertBadge(ctx context.Context, badge *models.Badge) error
	SetBadgeIcon(ctx context.Context, badgeID, iconURL string) error
	// GrantBadge returns false when the user already holds the badge.
	GrantBadge(ctx context.Context, userID string, badge *models.Badge) (bool, *models.UserAccount, error)

	// AutoPrestige stamps silver when the level ceiling is reached and no rank is held.
	AutoPrestige(ctx context.Context, userID string) (*models.UserAccount, bool, error)
	SetPrestige(ctx context.Context, userID string, rank economy.PrestigeRank) (*models.UserAccount, error)

	// RecordSocialProof returns false when the url was already rewarded for the user.
	RecordSocialProof(ctx context.Context, userID, url string, confidence float64) (bool, error)
	// ReconcileLevels rewrites stale cached levels and returns the rows fixed.
	ReconcileLevels(ctx context.Context) (int64, error)
}
