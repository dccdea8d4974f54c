package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"agentgift-economy/economy"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLedger_DebitAwardsXP(t *testing.T) {
	h := newHarness(t)
	h.put("u1", economy.TierFree, 10, 0)

	res, err := h.ledger.Debit(context.Background(), "u1", 4, "feature:gift_concierge")
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, int64(6), res.Balance)
	assert.Equal(t, int64(2), res.XPGained)
	assert.Equal(t, int64(2), res.XP)
	assert.False(t, res.LeveledUp)

	txs := h.store.Transactions("u1")
	require.Len(t, txs, 1)
	assert.Equal(t, int64(-4), txs[0].Amount)
	assert.Equal(t, int64(6), txs[0].BalanceAfter)
	assert.Equal(t, "feature:gift_concierge", txs[0].Reason)

	logs := h.store.XPLogs("u1")
	require.Len(t, logs, 1)
	assert.Equal(t, 1.0, logs[0].Multiplier)
}

func TestLedger_DebitInsufficientLeavesAccountAlone(t *testing.T) {
	h := newHarness(t)
	h.put("u1", economy.TierFree, 3, 40)

	res, err := h.ledger.Debit(context.Background(), "u1", 5, "feature:x")
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, int64(3), res.Balance)

	acct := h.account(t, "u1")
	assert.Equal(t, int64(3), acct.Credits)
	assert.Equal(t, int64(40), acct.XP)
	assert.Empty(t, h.store.Transactions("u1"))
	assert.Empty(t, h.store.XPLogs("u1"))
}

func TestLedger_RejectsNonPositiveAmounts(t *testing.T) {
	h := newHarness(t)
	h.put("u1", economy.TierFree, 10, 0)
	ctx := context.Background()

	_, err := h.ledger.Debit(ctx, "u1", 0, "x")
	assert.ErrorIs(t, err, economy.ErrInvalidAmount)
	_, err = h.ledger.Debit(ctx, "u1", -2, "x")
	assert.ErrorIs(t, err, economy.ErrInvalidAmount)
	_, err = h.ledger.Credit(ctx, "u1", 0, "x")
	assert.ErrorIs(t, err, economy.ErrInvalidAmount)
	_, err = h.ledger.AwardXP(ctx, "u1", 0, "x")
	assert.ErrorIs(t, err, economy.ErrInvalidAmount)

	assert.Equal(t, int64(10), h.account(t, "u1").Credits)
}

func TestLedger_SeasonalMultiplierOnSpend(t *testing.T) {
	h := newHarness(t)
	h.ledger.Now = func() time.Time { return time.Date(2026, time.December, 1, 0, 0, 0, 0, time.UTC) }
	h.put("u1", economy.TierFree, 20, 0)

	res, err := h.ledger.Debit(context.Background(), "u1", 10, "feature:bulk_gifting")
	require.NoError(t, err)
	assert.Equal(t, int64(10), res.XPGained)

	logs := h.store.XPLogs("u1")
	require.Len(t, logs, 1)
	assert.Equal(t, 2.0, logs[0].Multiplier)
	assert.Equal(t, "spend:feature:bulk_gifting", logs[0].Reason)
}

func TestLedger_LevelTransitionOnSpend(t *testing.T) {
	h := newHarness(t)
	h.put("u1", economy.TierFree, 100, 140)

	res, err := h.ledger.Debit(context.Background(), "u1", 40, "feature:x")
	require.NoError(t, err)
	assert.Equal(t, int64(160), res.XP)
	assert.Equal(t, 2, res.Level)
	assert.True(t, res.LeveledUp)
}

func TestLedger_SpendUnlocksLevelBadge(t *testing.T) {
	h := newHarness(t)
	h.put("u1", economy.TierFree, 100, 595)

	res, err := h.ledger.Debit(context.Background(), "u1", 10, "feature:x")
	require.NoError(t, err)
	assert.Equal(t, []string{"level-5"}, res.Unlocked)
	assert.Equal(t, int64(650), res.XP)
	assert.Equal(t, 5, res.Level)
	assert.True(t, h.account(t, "u1").HasBadge("level-5"))
}

func TestLedger_CreditAndHistory(t *testing.T) {
	h := newHarness(t)
	h.put("u1", economy.TierFree, 0, 0)
	ctx := context.Background()

	acct, err := h.ledger.Credit(ctx, "u1", 25, "purchase")
	require.NoError(t, err)
	assert.Equal(t, int64(25), acct.Credits)

	_, err = h.ledger.Debit(ctx, "u1", 5, "feature:a")
	require.NoError(t, err)

	txs, err := h.ledger.History(ctx, "u1", 10)
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.Equal(t, int64(-5), txs[0].Amount, "newest first")
	assert.Equal(t, int64(25), txs[1].Amount)
}

func TestLedger_AwardXPIsNotMultiplied(t *testing.T) {
	h := newHarness(t)
	h.ledger.Now = func() time.Time { return time.Date(2026, time.December, 24, 0, 0, 0, 0, time.UTC) }
	h.put("u1", economy.TierFree, 0, 0)

	p, err := h.ledger.AwardXP(context.Background(), "u1", 100, "admin_grant")
	require.NoError(t, err)
	assert.Equal(t, int64(100), p.Account.XP)
	assert.Empty(t, p.Unlocked)
}

func TestLedger_UnknownAccount(t *testing.T) {
	h := newHarness(t)
	_, err := h.ledger.Credit(context.Background(), "ghost", 5, "x")
	assert.Error(t, err)
}

func TestLedger_DatastoreErrorsAreWrapped(t *testing.T) {
	h := newHarness(t)
	h.put("u1", economy.TierFree, 10, 0)
	boom := errors.New("connection reset")
	h.store.Err = boom

	_, err := h.ledger.Debit(context.Background(), "u1", 1, "x")
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "debit 1 from u1")
}
