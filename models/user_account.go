package models

import (
	"time"

	"agentgift-economy/economy"

	"gorm.io/gorm"
)

// UserAccount is the economy row for one user, keyed by the auth provider id.
// Level is a cached copy of economy.Level(XP); the reconcile job repairs drift.
type UserAccount struct {
	ID            string   `gorm:"primaryKey;type:text" json:"id"`
	Tier          string   `gorm:"type:varchar(16);not null;default:'free';index" json:"tier"`
	XP            int64    `gorm:"column:xp;not null;default:0" json:"xp"`
	Level         int      `gorm:"not null;default:1" json:"level"`
	Credits       int64    `gorm:"not null;default:0;check:chk_user_profiles_credits,credits >= 0" json:"credits"`
	PrestigeLevel *string  `gorm:"type:varchar(16)" json:"prestige_level"`
	Badges        []string `gorm:"type:jsonb;serializer:json" json:"badges"`

	Timestamps
}

func (UserAccount) TableName() string { return "user_profiles" }

// Timestamps adds GORM auto-times
type Timestamps struct {
	CreatedAt time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}

// NewUserAccount is the signup state: free tier, level 1, starting grant.
func NewUserAccount(id string, startingCredits int64) *UserAccount {
	return &UserAccount{
		ID:      id,
		Tier:    string(economy.TierFree),
		XP:      0,
		Level:   1,
		Credits: startingCredits,
		Badges:  []string{},
	}
}

func (a *UserAccount) HasBadge(badgeID string) bool {
	for _, b := range a.Badges {
		if b == badgeID {
			return true
		}
	}
	return false
}

// Prestige returns the stamped rank, nil when the account never prestiged.
func (a *UserAccount) Prestige() *economy.PrestigeRank {
	if a.PrestigeLevel == nil || *a.PrestigeLevel == "" {
		return nil
	}
	r := economy.PrestigeRank(*a.PrestigeLevel)
	return &r
}

// Subject is what the access checker needs from the account.
func (a *UserAccount) Subject() *economy.Subject {
	return &economy.Subject{UserID: a.ID, Tier: a.Tier, Credits: a.Credits}
}
