package store

import (
	"context"
	"testing"

	"agentgift-economy/economy"
	"agentgift-economy/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newMockStore(t *testing.T) (*GormStore, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return NewGormStore(db), mock
}

func accountRows(id string, credits, xp int64) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "tier", "xp", "level", "credits", "badges"}).
		AddRow(id, "free", xp, economy.Level(xp), credits, []byte("[]"))
}

func TestGormStore_DebitIsConditionalDecrement(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "user_profiles" SET "credits"=credits - \$1 WHERE .*id = \$2 AND credits >= \$3`).
		WithArgs(int64(4), "u1", int64(4)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT \* FROM "user_profiles" WHERE id = \$1`).
		WillReturnRows(accountRows("u1", 6, 0))
	mock.ExpectExec(`INSERT INTO "credit_transactions"`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	acct, err := s.Debit(context.Background(), "u1", 4, "feature:gift_recommendation", XPGain{})
	require.NoError(t, err)
	assert.Equal(t, int64(6), acct.Credits)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormStore_DebitInsufficientFundsRollsBack(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "user_profiles" SET "credits"=credits - \$1 WHERE .*id = \$2 AND credits >= \$3`).
		WithArgs(int64(5), "u1", int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT count\(\*\) FROM "user_profiles"`).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectRollback()

	_, err := s.Debit(context.Background(), "u1", 5, "feature:x", XPGain{Amount: 2})
	assert.ErrorIs(t, err, ErrInsufficientCredits)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormStore_DebitUnknownAccount(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "user_profiles" SET "credits"=credits - \$1`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT count\(\*\) FROM "user_profiles"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectRollback()

	_, err := s.Debit(context.Background(), "ghost", 1, "feature:x", XPGain{})
	assert.ErrorIs(t, err, ErrAccountNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormStore_RejectsNonPositiveAmounts(t *testing.T) {
	s, mock := newMockStore(t)

	_, err := s.Debit(context.Background(), "u1", 0, "x", XPGain{})
	assert.ErrorIs(t, err, economy.ErrInvalidAmount)
	_, err = s.Credit(context.Background(), "u1", -3, "x")
	assert.ErrorIs(t, err, economy.ErrInvalidAmount)
	_, err = s.AddXP(context.Background(), "u1", XPGain{})
	assert.ErrorIs(t, err, economy.ErrInvalidAmount)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormStore_GetAccountNotFound(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT \* FROM "user_profiles" WHERE id = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := s.GetAccount(context.Background(), "nobody")
	assert.ErrorIs(t, err, ErrAccountNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormStore_ReconcileLevels(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(`UPDATE user_profiles SET level = xp / \$1 \+ 1`).
		WithArgs(economy.XPPerLevel, sqlmock.AnyArg(), economy.XPPerLevel).
		WillReturnResult(sqlmock.NewResult(0, 3))

	fixed, err := s.ReconcileLevels(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), fixed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func lockedAccountRows(id string, xp int64, prestige interface{}, badges string) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "tier", "xp", "level", "credits", "prestige_level", "badges"}).
		AddRow(id, "free", xp, economy.Level(xp), int64(0), prestige, []byte(badges))
}

func TestGormStore_CreditIncrementsAndRecords(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "user_profiles" SET "credits"=credits \+ \$1 WHERE .*id = \$2`).
		WithArgs(int64(7), "u1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT \* FROM "user_profiles" WHERE id = \$1`).
		WillReturnRows(accountRows("u1", 17, 0))
	mock.ExpectExec(`INSERT INTO "credit_transactions"`).
		WithArgs(sqlmock.AnyArg(), "u1", int64(7), "purchase", int64(17), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	acct, err := s.Credit(context.Background(), "u1", 7, "purchase")
	require.NoError(t, err)
	assert.Equal(t, int64(17), acct.Credits)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormStore_CreditUnknownAccount(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "user_profiles" SET "credits"=credits \+ \$1`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	_, err := s.Credit(context.Background(), "ghost", 1, "purchase")
	assert.ErrorIs(t, err, ErrAccountNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormStore_AddXPRewritesLevelInSQL(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "user_profiles" SET "level"=\(xp \+ \$1\) / \$2 \+ 1,"xp"=xp \+ \$3 WHERE .*id = \$4`).
		WithArgs(int64(50), economy.XPPerLevel, int64(50), "u1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO "xp_logs"`).
		WithArgs(sqlmock.AnyArg(), "u1", int64(50), "admin_grant", float64(1), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT \* FROM "user_profiles" WHERE id = \$1`).
		WillReturnRows(accountRows("u1", 0, 150))
	mock.ExpectCommit()

	acct, err := s.AddXP(context.Background(), "u1", XPGain{Amount: 50, Reason: "admin_grant"})
	require.NoError(t, err)
	assert.Equal(t, int64(150), acct.XP)
	assert.Equal(t, 2, acct.Level)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormStore_AddXPUnknownAccount(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "user_profiles" SET "level"=`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	_, err := s.AddXP(context.Background(), "ghost", XPGain{Amount: 5, Multiplier: 2})
	assert.ErrorIs(t, err, ErrAccountNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormStore_GrantBadgeLocksAndRecords(t *testing.T) {
	s, mock := newMockStore(t)
	badge := &models.Badge{ID: "first-gift", XPReward: 25}

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT \* FROM "user_profiles" WHERE id = \$1 .*FOR UPDATE`).
		WillReturnRows(lockedAccountRows("u1", 140, nil, `["welcome"]`))
	mock.ExpectExec(`UPDATE "user_profiles" SET .*"badges"=`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO "badge_unlocks"`).
		WithArgs(sqlmock.AnyArg(), "u1", "first-gift", int64(25), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO "xp_logs"`).
		WithArgs(sqlmock.AnyArg(), "u1", int64(25), "badge:first-gift", float64(1), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	granted, acct, err := s.GrantBadge(context.Background(), "u1", badge)
	require.NoError(t, err)
	assert.True(t, granted)
	assert.Equal(t, []string{"welcome", "first-gift"}, acct.Badges)
	assert.Equal(t, int64(165), acct.XP)
	assert.Equal(t, 2, acct.Level)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormStore_GrantBadgeAlreadyHeld(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT \* FROM "user_profiles" WHERE id = \$1 .*FOR UPDATE`).
		WillReturnRows(lockedAccountRows("u1", 10, nil, `["welcome"]`))
	mock.ExpectCommit()

	granted, acct, err := s.GrantBadge(context.Background(), "u1", &models.Badge{ID: "welcome", XPReward: 10})
	require.NoError(t, err)
	assert.False(t, granted)
	assert.Equal(t, int64(10), acct.XP)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormStore_GrantBadgeWithoutRewardSkipsXPLog(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT \* FROM "user_profiles" WHERE id = \$1 .*FOR UPDATE`).
		WillReturnRows(lockedAccountRows("u1", 0, nil, `[]`))
	mock.ExpectExec(`UPDATE "user_profiles" SET `).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO "badge_unlocks"`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	granted, _, err := s.GrantBadge(context.Background(), "u1", &models.Badge{ID: "holiday-hero"})
	require.NoError(t, err)
	assert.True(t, granted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormStore_AutoPrestigeResetsAndLogs(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT \* FROM "user_profiles" WHERE id = \$1 .*FOR UPDATE`).
		WillReturnRows(lockedAccountRows("u1", 15000, nil, `[]`))
	mock.ExpectExec(`UPDATE "user_profiles" SET "level"=.*"prestige_level"=.*"xp"=`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO "prestige_logs"`).
		WithArgs(sqlmock.AnyArg(), "u1", "silver", economy.Level(15000), int64(15000), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	acct, promoted, err := s.AutoPrestige(context.Background(), "u1")
	require.NoError(t, err)
	assert.True(t, promoted)
	assert.Equal(t, int64(0), acct.XP)
	assert.Equal(t, 1, acct.Level)
	require.NotNil(t, acct.Prestige())
	assert.Equal(t, economy.PrestigeSilver, *acct.Prestige())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormStore_AutoPrestigeBelowCeiling(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT \* FROM "user_profiles" WHERE id = \$1 .*FOR UPDATE`).
		WillReturnRows(lockedAccountRows("u1", 900, nil, `[]`))
	mock.ExpectCommit()

	acct, promoted, err := s.AutoPrestige(context.Background(), "u1")
	require.NoError(t, err)
	assert.False(t, promoted)
	assert.Equal(t, int64(900), acct.XP)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormStore_SetPrestigeAdvances(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT \* FROM "user_profiles" WHERE id = \$1 .*FOR UPDATE`).
		WillReturnRows(lockedAccountRows("u1", 600, "silver", `[]`))
	mock.ExpectExec(`UPDATE "user_profiles" SET "level"=.*"prestige_level"=.*"xp"=`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO "prestige_logs"`).
		WithArgs(sqlmock.AnyArg(), "u1", "gold", economy.Level(600), int64(600), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	acct, err := s.SetPrestige(context.Background(), "u1", economy.PrestigeGold)
	require.NoError(t, err)
	assert.Equal(t, economy.PrestigeGold, *acct.Prestige())
	assert.Equal(t, int64(0), acct.XP)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormStore_SetPrestigeDowngradeRollsBack(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT \* FROM "user_profiles" WHERE id = \$1 .*FOR UPDATE`).
		WillReturnRows(lockedAccountRows("u1", 600, "gold", `[]`))
	mock.ExpectRollback()

	_, err := s.SetPrestige(context.Background(), "u1", economy.PrestigeSilver)
	assert.ErrorIs(t, err, economy.ErrPrestigeDowngrade)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormStore_EnsureAccountCreatesWithGrant(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO "user_profiles" .*ON CONFLICT DO NOTHING`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO "credit_transactions"`).
		WithArgs(sqlmock.AnyArg(), "u1", int64(10), "signup_grant", int64(10), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	acct, created, err := s.EnsureAccount(context.Background(), "u1", 10)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, int64(10), acct.Credits)
	assert.Equal(t, "free", acct.Tier)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormStore_EnsureAccountExistingRowIsReread(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO "user_profiles" .*ON CONFLICT DO NOTHING`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()
	mock.ExpectQuery(`SELECT \* FROM "user_profiles" WHERE id = \$1`).
		WillReturnRows(accountRows("u1", 42, 300))

	acct, created, err := s.EnsureAccount(context.Background(), "u1", 10)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, int64(42), acct.Credits)
	assert.Equal(t, int64(300), acct.XP)
	assert.NoError(t, mock.ExpectationsWereMet())
}
