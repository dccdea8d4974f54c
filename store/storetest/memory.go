// Package storetest provides an in-memory store.Store for tests.
package storetest

import (
	"context"
	"sort"
	"sync"
	"time"

	"agentgift-economy/economy"
	"agentgift-economy/models"
	"agentgift-economy/store"

	"github.com/google/uuid"
)

// MemoryStore keeps everything in maps behind one mutex. Every method
// returns copies so callers cannot mutate stored state.
type MemoryStore struct {
	mu           sync.Mutex
	accounts     map[string]*models.UserAccount
	badges       map[string]models.Badge
	transactions []models.CreditTransaction
	xpLogs       []models.XPLogEntry
	unlocks      []models.BadgeUnlock
	prestigeLogs []models.PrestigeLog
	socialProofs map[string]bool

	// Err, when set, is returned by every method.
	Err error
	now func() time.Time
}

var _ store.Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		accounts:     make(map[string]*models.UserAccount),
		badges:       make(map[string]models.Badge),
		socialProofs: make(map[string]bool),
		now:          time.Now,
	}
}

// SetClock fixes the timestamps stamped on new rows.
func (m *MemoryStore) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}

// Put stores a copy of acct as-is, bypassing signup defaults.
func (m *MemoryStore) Put(acct *models.UserAccount) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts[acct.ID] = cloneAccount(acct)
}

func (m *MemoryStore) Transactions(userID string) []models.CreditTransaction {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.CreditTransaction
	for _, t := range m.transactions {
		if t.UserID == userID {
			out = append(out, t)
		}
	}
	return out
}

func (m *MemoryStore) XPLogs(userID string) []models.XPLogEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.XPLogEntry
	for _, l := range m.xpLogs {
		if l.UserID == userID {
			out = append(out, l)
		}
	}
	return out
}

func (m *MemoryStore) Unlocks(userID string) []models.BadgeUnlock {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.BadgeUnlock
	for _, u := range m.unlocks {
		if u.UserID == userID {
			out = append(out, u)
		}
	}
	return out
}

func (m *MemoryStore) PrestigeLogs(userID string) []models.PrestigeLog {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.PrestigeLog
	for _, p := range m.prestigeLogs {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	return out
}

func cloneAccount(a *models.UserAccount) *models.UserAccount {
	c := *a
	c.Badges = append([]string{}, a.Badges...)
	if a.PrestigeLevel != nil {
		p := *a.PrestigeLevel
		c.PrestigeLevel = &p
	}
	return &c
}

func (m *MemoryStore) Migrate(ctx context.Context) error { return m.Err }

func (m *MemoryStore) GetAccount(ctx context.Context, userID string) (*models.UserAccount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	a, ok := m.accounts[userID]
	if !ok {
		return nil, store.ErrAccountNotFound
	}
	return cloneAccount(a), nil
}

func (m *MemoryStore) EnsureAccount(ctx context.Context, userID string, startingCredits int64) (*models.UserAccount, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, false, m.Err
	}
	if a, ok := m.accounts[userID]; ok {
		return cloneAccount(a), false, nil
	}
	a := models.NewUserAccount(userID, startingCredits)
	a.CreatedAt = m.now()
	a.UpdatedAt = a.CreatedAt
	m.accounts[userID] = a
	if startingCredits > 0 {
		m.appendTx(userID, startingCredits, "signup_grant", startingCredits)
	}
	return cloneAccount(a), true, nil
}

func (m *MemoryStore) SetTier(ctx context.Context, userID string, tier economy.Tier) (*models.UserAccount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	a, ok := m.accounts[userID]
	if !ok {
		return nil, store.ErrAccountNotFound
	}
	a.Tier = string(tier)
	return cloneAccount(a), nil
}

func (m *MemoryStore) appendTx(userID string, amount int64, reason string, balance int64) {
	m.transactions = append(m.transactions, models.CreditTransaction{
		ID:           uuid.NewString(),
		UserID:       userID,
		Amount:       amount,
		Reason:       reason,
		BalanceAfter: balance,
		CreatedAt:    m.now(),
	})
}

func (m *MemoryStore) addXPLocked(a *models.UserAccount, gain store.XPGain) {
	a.XP += gain.Amount
	a.Level = economy.Level(a.XP)
	mult := gain.Multiplier
	if mult == 0 {
		mult = 1
	}
	m.xpLogs = append(m.xpLogs, models.XPLogEntry{
		ID:         uuid.NewString(),
		UserID:     a.ID,
		Amount:     gain.Amount,
		Reason:     gain.Reason,
		Multiplier: mult,
		CreatedAt:  m.now(),
	})
}

func (m *MemoryStore) Debit(ctx context.Context, userID string, amount int64, reason string, gain store.XPGain) (*models.UserAccount, error) {
	if amount <= 0 {
		return nil, economy.ErrInvalidAmount
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	a, ok := m.accounts[userID]
	if !ok {
		return nil, store.ErrAccountNotFound
	}
	if a.Credits < amount {
		return nil, store.ErrInsufficientCredits
	}
	a.Credits -= amount
	m.appendTx(userID, -amount, reason, a.Credits)
	if gain.Amount > 0 {
		m.addXPLocked(a, gain)
	}
	return cloneAccount(a), nil
}

func (m *MemoryStore) Credit(ctx context.Context, userID string, amount int64, reason string) (*models.UserAccount, error) {
	if amount <= 0 {
		return nil, economy.ErrInvalidAmount
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	a, ok := m.accounts[userID]
	if !ok {
		return nil, store.ErrAccountNotFound
	}
	a.Credits += amount
	m.appendTx(userID, amount, reason, a.Credits)
	return cloneAccount(a), nil
}

func (m *MemoryStore) AddXP(ctx context.Context, userID string, gain store.XPGain) (*models.UserAccount, error) {
	if gain.Amount <= 0 {
		return nil, economy.ErrInvalidAmount
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	a, ok := m.accounts[userID]
	if !ok {
		return nil, store.ErrAccountNotFound
	}
	m.addXPLocked(a, gain)
	return cloneAccount(a), nil
}

func (m *MemoryStore) ListTransactions(ctx context.Context, userID string, limit int) ([]models.CreditTransaction, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	txs := m.Transactions(userID)
	out := make([]models.CreditTransaction, 0, len(txs))
	for i := len(txs) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, txs[i])
	}
	return out, nil
}

func (m *MemoryStore) ListTransactionsSince(ctx context.Context, userID string, since time.Time) ([]models.CreditTransaction, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	var out []models.CreditTransaction
	for _, t := range m.Transactions(userID) {
		if !t.CreatedAt.Before(since) {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *MemoryStore) GetBadge(ctx context.Context, badgeID string) (*models.Badge, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	b, ok := m.badges[badgeID]
	if !ok {
		return nil, store.ErrBadgeNotFound
	}
	return &b, nil
}

func (m *MemoryStore) ListBadges(ctx context.Context) ([]models.Badge, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	out := make([]models.Badge, 0, len(m.badges))
	for _, b := range m.badges {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemoryStore) SeedBadges(ctx context.Context, badges []models.Badge) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	for _, b := range badges {
		if _, ok := m.badges[b.ID]; !ok {
			m.badges[b.ID] = b
		}
	}
	return nil
}

func (m *MemoryStore) UpsertBadge(ctx context.Context, badge *models.Badge) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	if existing, ok := m.badges[badge.ID]; ok {
		badge.IconURL = existing.IconURL
		badge.CreatedAt = existing.CreatedAt
	}
	m.badges[badge.ID] = *badge
	return nil
}

func (m *MemoryStore) SetBadgeIcon(ctx context.Context, badgeID, iconURL string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	b, ok := m.badges[badgeID]
	if !ok {
		return store.ErrBadgeNotFound
	}
	b.IconURL = iconURL
	m.badges[badgeID] = b
	return nil
}

func (m *MemoryStore) GrantBadge(ctx context.Context, userID string, badge *models.Badge) (bool, *models.UserAccount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return false, nil, m.Err
	}
	a, ok := m.accounts[userID]
	if !ok {
		return false, nil, store.ErrAccountNotFound
	}
	if a.HasBadge(badge.ID) {
		return false, cloneAccount(a), nil
	}
	a.Badges = append(a.Badges, badge.ID)
	m.unlocks = append(m.unlocks, models.BadgeUnlock{
		ID:        uuid.NewString(),
		UserID:    userID,
		BadgeID:   badge.ID,
		XPReward:  badge.XPReward,
		CreatedAt: m.now(),
	})
	if badge.XPReward > 0 {
		m.addXPLocked(a, store.XPGain{Amount: badge.XPReward, Reason: "badge:" + badge.ID, Multiplier: 1})
	}
	return true, cloneAccount(a), nil
}

func (m *MemoryStore) applyPrestigeLocked(a *models.UserAccount, rank economy.PrestigeRank) {
	m.prestigeLogs = append(m.prestigeLogs, models.PrestigeLog{
		ID:              uuid.NewString(),
		UserID:          a.ID,
		Rank:            string(rank),
		LevelAtPrestige: economy.Level(a.XP),
		XPAtPrestige:    a.XP,
		CreatedAt:       m.now(),
	})
	r := string(rank)
	a.XP = 0
	a.Level = 1
	a.PrestigeLevel = &r
}

func (m *MemoryStore) AutoPrestige(ctx context.Context, userID string) (*models.UserAccount, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, false, m.Err
	}
	a, ok := m.accounts[userID]
	if !ok {
		return nil, false, store.ErrAccountNotFound
	}
	if !economy.ShouldAutoPrestige(a.XP, a.Prestige()) {
		return cloneAccount(a), false, nil
	}
	m.applyPrestigeLocked(a, economy.PrestigeSilver)
	return cloneAccount(a), true, nil
}

func (m *MemoryStore) SetPrestige(ctx context.Context, userID string, rank economy.PrestigeRank) (*models.UserAccount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	a, ok := m.accounts[userID]
	if !ok {
		return nil, store.ErrAccountNotFound
	}
	if !economy.CanAdvance(a.Prestige(), rank) {
		return nil, economy.ErrPrestigeDowngrade
	}
	m.applyPrestigeLocked(a, rank)
	return cloneAccount(a), nil
}

func (m *MemoryStore) RecordSocialProof(ctx context.Context, userID, url string, confidence float64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return false, m.Err
	}
	key := userID + "\x00" + url
	if m.socialProofs[key] {
		return false, nil
	}
	m.socialProofs[key] = true
	return true, nil
}

func (m *MemoryStore) ReconcileLevels(ctx context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return 0, m.Err
	}
	var fixed int64
	for _, a := range m.accounts {
		if want := economy.Level(a.XP); a.Level != want {
			a.Level = want
			fixed++
		}
	}
	return fixed, nil
}
