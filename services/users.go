// services/users.go
package services

import (
	"context"
	"errors"
	"fmt"
	"log"

	"agentgift-economy/economy"
	"agentgift-economy/models"
	"agentgift-economy/store"
)

// AccountService loads accounts through the cache and provisions missing
// ones with the signup grant.
type AccountService struct {
	Store           store.Store
	Cache           *AccountCache
	StartingCredits int64

	// onProvision runs once for every account this service creates.
	onProvision func(ctx context.Context, userID string)
}

func NewAccountService(st store.Store, cache *AccountCache, startingCredits int64) *AccountService {
	return &AccountService{Store: st, Cache: cache, StartingCredits: startingCredits}
}

// Load returns the caller's account, creating it on first sight.
func (s *AccountService) Load(ctx context.Context, userID string) (*models.UserAccount, error) {
	acct, err := s.Cache.Get(ctx, userID, func(ctx context.Context) (*models.UserAccount, error) {
		acct, err := s.Store.GetAccount(ctx, userID)
		if errors.Is(err, store.ErrAccountNotFound) {
			acct, _, err = s.Provision(ctx, userID)
			return acct, err
		}
		if err != nil {
			return nil, fmt.Errorf("load account %s: %w", userID, err)
		}
		return acct, nil
	})
	if err != nil {
		return nil, err
	}
	acct.Level = economy.Level(acct.XP)
	return acct, nil
}

// Provision inserts the signup row when userID has none and runs the
// signup hooks. It reports whether the account was created.
func (s *AccountService) Provision(ctx context.Context, userID string) (*models.UserAccount, bool, error) {
	acct, created, err := s.Store.EnsureAccount(ctx, userID, s.StartingCredits)
	if err != nil {
		return nil, false, fmt.Errorf("provision account %s: %w", userID, err)
	}
	if !created {
		return acct, false, nil
	}
	log.Printf("🆕 [ACCOUNT] Provisioned %s with %d starting credits", userID, s.StartingCredits)
	if s.onProvision == nil {
		return acct, true, nil
	}
	s.onProvision(ctx, userID)
	acct, err = s.Store.GetAccount(ctx, userID)
	if err != nil {
		return nil, true, fmt.Errorf("reload account %s: %w", userID, err)
	}
	return acct, true, nil
}

// Fresh bypasses the cache.
func (s *AccountService) Fresh(ctx context.Context, userID string) (*models.UserAccount, error) {
	acct, err := s.Store.GetAccount(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load account %s: %w", userID, err)
	}
	acct.Level = economy.Level(acct.XP)
	return acct, nil
}

func (s *AccountService) SetTier(ctx context.Context, userID, tier string) (*models.UserAccount, error) {
	t, ok := economy.ParseTier(tier)
	if !ok {
		return nil, fmt.Errorf("%w: %q", economy.ErrUnknownTier, tier)
	}
	acct, err := s.Store.SetTier(ctx, userID, t)
	if err != nil {
		return nil, fmt.Errorf("set tier for %s: %w", userID, err)
	}
	s.Invalidate(ctx, userID)
	log.Printf("🎟️ [ACCOUNT] %s moved to %s", userID, t.DisplayName())
	return acct, nil
}

func (s *AccountService) Invalidate(ctx context.Context, userID string) {
	s.Cache.Invalidate(ctx, userID)
}
