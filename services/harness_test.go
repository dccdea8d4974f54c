package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"agentgift-economy/economy"
	"agentgift-economy/models"
	"agentgift-economy/store/storetest"

	"github.com/stretchr/testify/require"
)

// offSeason has no active gifting season.
var offSeason = time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)

type recordingNotifier struct {
	mu     sync.Mutex
	events []Milestone
}

func (r *recordingNotifier) Notify(m Milestone) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, m)
}

func (r *recordingNotifier) Events() []Milestone {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Milestone(nil), r.events...)
}

type harness struct {
	store       *storetest.MemoryStore
	accounts    *AccountService
	progression *ProgressionService
	ledger      *LedgerService
	access      *AccessService
	notifier    *recordingNotifier
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{store: storetest.NewMemoryStore(), notifier: &recordingNotifier{}}
	h.accounts = NewAccountService(h.store, nil, 10)
	h.progression = NewProgressionService(h.store, h.accounts, h.notifier)
	h.ledger = NewLedgerService(h.store, h.accounts, h.progression)
	h.ledger.Now = func() time.Time { return offSeason }
	h.access = NewAccessService(h.accounts, h.ledger, economy.DefaultRules())
	require.NoError(t, h.progression.EnsureCatalog(context.Background()))
	return h
}

func (h *harness) put(id string, tier economy.Tier, credits, xp int64, badges ...string) {
	acct := models.NewUserAccount(id, credits)
	acct.Tier = string(tier)
	acct.XP = xp
	acct.Level = economy.Level(xp)
	acct.Badges = append([]string{}, badges...)
	h.store.Put(acct)
}

func (h *harness) account(t *testing.T, id string) *models.UserAccount {
	t.Helper()
	acct, err := h.store.GetAccount(context.Background(), id)
	require.NoError(t, err)
	return acct
}
