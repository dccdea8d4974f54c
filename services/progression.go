package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"agentgift-economy/economy"
	"agentgift-economy/metrics"
	"agentgift-economy/models"
	"agentgift-economy/store"

	"github.com/gosimple/slug"
)

var ErrInvalidBadge = errors.New("invalid badge")

// Progress is the account after badges and prestige were settled.
type Progress struct {
	Account  *models.UserAccount   `json:"account"`
	Unlocked []string              `json:"badges_unlocked,omitempty"`
	Prestige *economy.PrestigeRank `json:"prestige,omitempty"`
}

// ProgressionService owns badge unlocks and prestige.
type ProgressionService struct {
	Store    store.Store
	Accounts *AccountService
	Notifier Notifier
}

// NewProgressionService also hooks the welcome badge into accounts' signup path.
func NewProgressionService(st store.Store, accounts *AccountService, notifier Notifier) *ProgressionService {
	s := &ProgressionService{Store: st, Accounts: accounts, Notifier: notifier}
	if accounts != nil {
		accounts.onProvision = s.welcome
	}
	return s
}

func (s *ProgressionService) welcome(ctx context.Context, userID string) {
	if _, err := s.Award(ctx, userID, economy.BadgeWelcome); err != nil {
		log.Printf("⚠️ [BADGE] Welcome badge for %s failed: %v", userID, err)
	}
}

func (s *ProgressionService) notify(m Milestone) {
	if s.Notifier != nil {
		s.Notifier.Notify(m)
	}
}

// EnsureCatalog seeds the built-in badges; existing rows are untouched.
func (s *ProgressionService) EnsureCatalog(ctx context.Context) error {
	rows := make([]models.Badge, 0, len(economy.DefaultBadges))
	for _, def := range economy.DefaultBadges {
		rows = append(rows, models.BadgeFromDef(def))
	}
	if err := s.Store.SeedBadges(ctx, rows); err != nil {
		return fmt.Errorf("seed badge catalog: %w", err)
	}
	return nil
}

// CreateBadge adds or replaces a catalog badge; the id is the slug of name.
func (s *ProgressionService) CreateBadge(ctx context.Context, name, description, rarity string, xpReward int64) (*models.Badge, error) {
	name = strings.TrimSpace(name)
	id := slug.Make(name)
	if id == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidBadge)
	}
	if rarity == "" {
		rarity = "common"
	}
	if !models.ValidRarity(rarity) {
		return nil, fmt.Errorf("%w: unknown rarity %q", ErrInvalidBadge, rarity)
	}
	if xpReward < 0 {
		return nil, fmt.Errorf("%w: negative xp reward", ErrInvalidBadge)
	}

	badge := &models.Badge{
		ID:          id,
		Name:        name,
		Description: description,
		Rarity:      rarity,
		XPReward:    xpReward,
	}
	if err := s.Store.UpsertBadge(ctx, badge); err != nil {
		return nil, fmt.Errorf("save badge %s: %w", id, err)
	}
	log.Printf("🎖️ [BADGE] Catalog entry %s saved (%s, %d XP)", id, rarity, xpReward)
	return badge, nil
}

func (s *ProgressionService) SetBadgeIcon(ctx context.Context, badgeID, iconURL string) error {
	if err := s.Store.SetBadgeIcon(ctx, badgeID, iconURL); err != nil {
		return fmt.Errorf("set icon for %s: %w", badgeID, err)
	}
	return nil
}

func (s *ProgressionService) Catalog(ctx context.Context) ([]models.Badge, error) {
	return s.Store.ListBadges(ctx)
}

// Unlock grants badgeID once. It returns false, without reward, when the
// badge is already held.
func (s *ProgressionService) Unlock(ctx context.Context, userID, badgeID string) (bool, *models.UserAccount, error) {
	badge, err := s.Store.GetBadge(ctx, badgeID)
	if err != nil {
		return false, nil, fmt.Errorf("unlock %s: %w", badgeID, err)
	}

	granted, acct, err := s.Store.GrantBadge(ctx, userID, badge)
	if err != nil {
		return false, nil, fmt.Errorf("unlock %s for %s: %w", badgeID, userID, err)
	}
	if !granted {
		return false, acct, nil
	}

	s.Accounts.Invalidate(ctx, userID)
	metrics.BadgeUnlocks.WithLabelValues(badge.ID).Inc()
	if badge.XPReward > 0 {
		metrics.XPAwarded.Add(float64(badge.XPReward))
	}
	log.Printf("🎖️ [BADGE] %s unlocked %s (+%d XP, level %d)", userID, badge.ID, badge.XPReward, economy.Level(acct.XP))
	s.notify(Milestone{Event: EventBadgeUnlocked, UserID: userID, BadgeID: badge.ID, XPReward: badge.XPReward})
	return true, acct, nil
}

// Award unlocks a milestone badge and settles whatever its XP reached.
// A badge missing from the catalog is skipped.
func (s *ProgressionService) Award(ctx context.Context, userID, badgeID string) (*Progress, error) {
	granted, _, err := s.Unlock(ctx, userID, badgeID)
	if errors.Is(err, store.ErrBadgeNotFound) {
		log.Printf("⚠️ [BADGE] Milestone badge %s missing from catalog", badgeID)
	} else if err != nil {
		return nil, err
	}
	p, err := s.Settle(ctx, userID)
	if err != nil {
		return nil, err
	}
	if granted {
		p.Unlocked = append([]string{badgeID}, p.Unlocked...)
	}
	return p, nil
}

// CheckLevelBadges unlocks every level badge the account qualifies for.
// Badge XP can lift the level again, so it repeats until nothing new unlocks.
func (s *ProgressionService) CheckLevelBadges(ctx context.Context, userID string) ([]string, *models.UserAccount, error) {
	acct, err := s.Store.GetAccount(ctx, userID)
	if err != nil {
		return nil, nil, fmt.Errorf("check level badges for %s: %w", userID, err)
	}

	var unlocked []string
	for pass := 0; pass <= len(economy.LevelBadges); pass++ {
		progressed := false
		for _, badgeID := range economy.BadgesForLevel(economy.Level(acct.XP)) {
			if acct.HasBadge(badgeID) {
				continue
			}
			granted, updated, err := s.Unlock(ctx, userID, badgeID)
			if errors.Is(err, store.ErrBadgeNotFound) {
				log.Printf("⚠️ [BADGE] Level badge %s missing from catalog", badgeID)
				continue
			}
			if err != nil {
				return unlocked, acct, err
			}
			acct = updated
			if granted {
				unlocked = append(unlocked, badgeID)
				progressed = true
			}
		}
		if !progressed {
			break
		}
	}
	return unlocked, acct, nil
}

// MaybePrestige stamps silver once the level ceiling is reached.
func (s *ProgressionService) MaybePrestige(ctx context.Context, userID string) (*economy.PrestigeRank, *models.UserAccount, error) {
	acct, prestiged, err := s.Store.AutoPrestige(ctx, userID)
	if err != nil {
		return nil, nil, fmt.Errorf("prestige check for %s: %w", userID, err)
	}
	if !prestiged {
		return nil, acct, nil
	}
	rank := economy.PrestigeSilver
	s.afterPrestige(ctx, userID, rank)
	return &rank, acct, nil
}

// PrestigeTo is the admin path; ranks only move upward.
func (s *ProgressionService) PrestigeTo(ctx context.Context, userID string, rank economy.PrestigeRank) (*models.UserAccount, error) {
	acct, err := s.Store.SetPrestige(ctx, userID, rank)
	if err != nil {
		return nil, fmt.Errorf("prestige %s to %s: %w", userID, rank, err)
	}
	s.afterPrestige(ctx, userID, rank)
	return acct, nil
}

func (s *ProgressionService) afterPrestige(ctx context.Context, userID string, rank economy.PrestigeRank) {
	s.Accounts.Invalidate(ctx, userID)
	metrics.Prestiges.WithLabelValues(string(rank)).Inc()
	log.Printf("👑 [PRESTIGE] %s reached %s, XP reset to 0", userID, rank)
	s.notify(Milestone{Event: EventPrestige, UserID: userID, Rank: string(rank)})
}

// Settle runs the level badge check and then the prestige trigger.
func (s *ProgressionService) Settle(ctx context.Context, userID string) (*Progress, error) {
	unlocked, acct, err := s.CheckLevelBadges(ctx, userID)
	if err != nil {
		return nil, err
	}
	rank, after, err := s.MaybePrestige(ctx, userID)
	if err != nil {
		return nil, err
	}
	if after != nil {
		acct = after
	}
	return &Progress{Account: acct, Unlocked: unlocked, Prestige: rank}, nil
}
