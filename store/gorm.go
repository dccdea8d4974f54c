// store/gorm.go
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"agentgift-economy/economy"
	"agentgift-economy/models"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStore is the Postgres-backed Store.
type GormStore struct {
	DB *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{DB: db}
}

// Open connects to Postgres.
func Open(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

func (s *GormStore) Migrate(ctx context.Context) error {
	return s.DB.WithContext(ctx).AutoMigrate(
		&models.UserAccount{},
		&models.CreditTransaction{},
		&models.XPLogEntry{},
		&models.Badge{},
		&models.BadgeUnlock{},
		&models.PrestigeLog{},
		&models.SocialProof{},
	)
}

func (s *GormStore) GetAccount(ctx context.Context, userID string) (*models.UserAccount, error) {
	return loadAccount(s.DB.WithContext(ctx), userID, false)
}

func loadAccount(tx *gorm.DB, userID string, forUpdate bool) (*models.UserAccount, error) {
	var acct models.UserAccount
	q := tx
	if forUpdate {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	if err := q.Where("id = ?", userID).First(&acct).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return &acct, nil
}

func (s *GormStore) EnsureAccount(ctx context.Context, userID string, startingCredits int64) (*models.UserAccount, bool, error) {
	acct := models.NewUserAccount(userID, startingCredits)
	created := false
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(acct)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		created = true
		if startingCredits <= 0 {
			return nil
		}
		return tx.Create(&models.CreditTransaction{
			ID:           uuid.NewString(),
			UserID:       userID,
			Amount:       startingCredits,
			Reason:       "signup_grant",
			BalanceAfter: startingCredits,
		}).Error
	})
	if err != nil {
		return nil, false, err
	}
	if !created {
		existing, err := s.GetAccount(ctx, userID)
		return existing, false, err
	}
	return acct, true, nil
}

func (s *GormStore) SetTier(ctx context.Context, userID string, tier economy.Tier) (*models.UserAccount, error) {
	res := s.DB.WithContext(ctx).Model(&models.UserAccount{}).
		Where("id = ?", userID).
		Update("tier", string(tier))
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrAccountNotFound
	}
	return s.GetAccount(ctx, userID)
}

// Debit is a single conditional decrement; the balance check and the write
// cannot interleave with another debit.
func (s *GormStore) Debit(ctx context.Context, userID string, amount int64, reason string, gain XPGain) (*models.UserAccount, error) {
	if amount <= 0 {
		return nil, economy.ErrInvalidAmount
	}
	var acct *models.UserAccount
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.UserAccount{}).
			Where("id = ? AND credits >= ?", userID, amount).
			UpdateColumn("credits", gorm.Expr("credits - ?", amount))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			var count int64
			if err := tx.Model(&models.UserAccount{}).Where("id = ?", userID).Count(&count).Error; err != nil {
				return err
			}
			if count == 0 {
				return ErrAccountNotFound
			}
			return ErrInsufficientCredits
		}

		var err error
		if acct, err = loadAccount(tx, userID, false); err != nil {
			return err
		}
		if err := tx.Create(&models.CreditTransaction{
			ID:           uuid.NewString(),
			UserID:       userID,
			Amount:       -amount,
			Reason:       reason,
			BalanceAfter: acct.Credits,
		}).Error; err != nil {
			return err
		}
		if gain.Amount > 0 {
			acct, err = addXP(tx, userID, gain)
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return acct, nil
}

func (s *GormStore) Credit(ctx context.Context, userID string, amount int64, reason string) (*models.UserAccount, error) {
	if amount <= 0 {
		return nil, economy.ErrInvalidAmount
	}
	var acct *models.UserAccount
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.UserAccount{}).
			Where("id = ?", userID).
			UpdateColumn("credits", gorm.Expr("credits + ?", amount))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrAccountNotFound
		}
		var err error
		if acct, err = loadAccount(tx, userID, false); err != nil {
			return err
		}
		return tx.Create(&models.CreditTransaction{
			ID:           uuid.NewString(),
			UserID:       userID,
			Amount:       amount,
			Reason:       reason,
			BalanceAfter: acct.Credits,
		}).Error
	})
	if err != nil {
		return nil, err
	}
	return acct, nil
}

func (s *GormStore) AddXP(ctx context.Context, userID string, gain XPGain) (*models.UserAccount, error) {
	if gain.Amount <= 0 {
		return nil, economy.ErrInvalidAmount
	}
	var acct *models.UserAccount
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		acct, err = addXP(tx, userID, gain)
		return err
	})
	if err != nil {
		return nil, err
	}
	return acct, nil
}

// addXP raises xp and rewrites the cached level in the same statement.
func addXP(tx *gorm.DB, userID string, gain XPGain) (*models.UserAccount, error) {
	res := tx.Model(&models.UserAccount{}).
		Where("id = ?", userID).
		UpdateColumns(map[string]interface{}{
			"xp":    gorm.Expr("xp + ?", gain.Amount),
			"level": gorm.Expr("(xp + ?) / ? + 1", gain.Amount, economy.XPPerLevel),
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrAccountNotFound
	}
	mult := gain.Multiplier
	if mult == 0 {
		mult = 1
	}
	if err := tx.Create(&models.XPLogEntry{
		ID:         uuid.NewString(),
		UserID:     userID,
		Amount:     gain.Amount,
		Reason:     gain.Reason,
		Multiplier: mult,
	}).Error; err != nil {
		return nil, err
	}
	return loadAccount(tx, userID, false)
}

func (s *GormStore) ListTransactions(ctx context.Context, userID string, limit int) ([]models.CreditTransaction, error) {
	if limit < 1 || limit > 100 {
		limit = 20
	}
	var txs []models.CreditTransaction
	err := s.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&txs).Error
	return txs, err
}

func (s *GormStore) ListTransactionsSince(ctx context.Context, userID string, since time.Time) ([]models.CreditTransaction, error) {
	var txs []models.CreditTransaction
	err := s.DB.WithContext(ctx).
		Where("user_id = ? AND created_at >= ?", userID, since).
		Order("created_at ASC, id ASC").
		Find(&txs).Error
	return txs, err
}

func (s *GormStore) GetBadge(ctx context.Context, badgeID string) (*models.Badge, error) {
	var b models.Badge
	if err := s.DB.WithContext(ctx).Where("id = ?", badgeID).First(&b).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBadgeNotFound
		}
		return nil, err
	}
	return &b, nil
}

func (s *GormStore) ListBadges(ctx context.Context) ([]models.Badge, error) {
	var badges []models.Badge
	err := s.DB.WithContext(ctx).Order("id ASC").Find(&badges).Error
	return badges, err
}

// SeedBadges inserts catalog rows that are missing; existing rows keep admin edits.
func (s *GormStore) SeedBadges(ctx context.Context, badges []models.Badge) error {
	if len(badges) == 0 {
		return nil
	}
	return s.DB.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&badges).Error
}

func (s *GormStore) UpsertBadge(ctx context.Context, badge *models.Badge) error {
	return s.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "description", "rarity", "xp_reward"}),
	}).Create(badge).Error
}

func (s *GormStore) SetBadgeIcon(ctx context.Context, badgeID, iconURL string) error {
	res := s.DB.WithContext(ctx).Model(&models.Badge{}).Where("id = ?", badgeID).Update("icon_url", iconURL)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrBadgeNotFound
	}
	return nil
}

func (s *GormStore) GrantBadge(ctx context.Context, userID string, badge *models.Badge) (bool, *models.UserAccount, error) {
	granted := false
	var acct *models.UserAccount
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if acct, err = loadAccount(tx, userID, true); err != nil {
			return err
		}
		if acct.HasBadge(badge.ID) {
			return nil
		}

		acct.Badges = append(acct.Badges, badge.ID)
		acct.XP += badge.XPReward
		acct.Level = economy.Level(acct.XP)
		if err := tx.Model(acct).Select("badges", "xp", "level").Updates(acct).Error; err != nil {
			return err
		}
		if err := tx.Create(&models.BadgeUnlock{
			ID:       uuid.NewString(),
			UserID:   userID,
			BadgeID:  badge.ID,
			XPReward: badge.XPReward,
		}).Error; err != nil {
			return err
		}
		if badge.XPReward > 0 {
			if err := tx.Create(&models.XPLogEntry{
				ID:         uuid.NewString(),
				UserID:     userID,
				Amount:     badge.XPReward,
				Reason:     "badge:" + badge.ID,
				Multiplier: 1,
			}).Error; err != nil {
				return err
			}
		}
		granted = true
		return nil
	})
	if err != nil {
		return false, nil, err
	}
	return granted, acct, nil
}

func (s *GormStore) AutoPrestige(ctx context.Context, userID string) (*models.UserAccount, bool, error) {
	promoted := false
	var acct *models.UserAccount
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if acct, err = loadAccount(tx, userID, true); err != nil {
			return err
		}
		if !economy.ShouldAutoPrestige(acct.XP, acct.Prestige()) {
			return nil
		}
		if err := applyPrestige(tx, acct, economy.PrestigeSilver); err != nil {
			return err
		}
		promoted = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return acct, promoted, nil
}

func (s *GormStore) SetPrestige(ctx context.Context, userID string, rank economy.PrestigeRank) (*models.UserAccount, error) {
	var acct *models.UserAccount
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if acct, err = loadAccount(tx, userID, true); err != nil {
			return err
		}
		if !economy.CanAdvance(acct.Prestige(), rank) {
			return economy.ErrPrestigeDowngrade
		}
		return applyPrestige(tx, acct, rank)
	})
	if err != nil {
		return nil, err
	}
	return acct, nil
}

// applyPrestige resets progression on a locked account and logs the transition.
func applyPrestige(tx *gorm.DB, acct *models.UserAccount, rank economy.PrestigeRank) error {
	entry := &models.PrestigeLog{
		ID:              uuid.NewString(),
		UserID:          acct.ID,
		Rank:            string(rank),
		LevelAtPrestige: economy.Level(acct.XP),
		XPAtPrestige:    acct.XP,
	}
	r := string(rank)
	acct.XP = 0
	acct.Level = 1
	acct.PrestigeLevel = &r
	if err := tx.Model(acct).Updates(map[string]interface{}{
		"xp":             0,
		"level":          1,
		"prestige_level": r,
	}).Error; err != nil {
		return err
	}
	return tx.Create(entry).Error
}

func (s *GormStore) RecordSocialProof(ctx context.Context, userID, url string, confidence float64) (bool, error) {
	res := s.DB.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&models.SocialProof{
		ID:         uuid.NewString(),
		UserID:     userID,
		URL:        url,
		Confidence: confidence,
	})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (s *GormStore) ReconcileLevels(ctx context.Context) (int64, error) {
	res := s.DB.WithContext(ctx).Exec(
		`UPDATE user_profiles SET level = xp / ? + 1, updated_at = ? WHERE level <> xp / ? + 1 AND deleted_at IS NULL`,
		economy.XPPerLevel, time.Now(), economy.XPPerLevel,
	)
	return res.RowsAffected, res.Error
}
