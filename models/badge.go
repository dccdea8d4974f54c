package models

import (
	"time"

	"agentgift-economy/economy"
)

// Badge: catalog row (seeded from economy.DefaultBadges, extendable by admins).
// ID is a slug such as "level-5"; IconURL points at R2.
type Badge struct {
	ID          string    `gorm:"primaryKey;type:text" json:"id"`
	Name        string    `gorm:"not null" json:"name"`
	Description string    `json:"description"`
	IconURL     string    `gorm:"type:text" json:"icon_url"`
	Rarity      string    `gorm:"type:varchar(16);default:'common'" json:"rarity"`
	XPReward    int64     `gorm:"column:xp_reward;not null;default:0" json:"xp_reward"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// BadgeUnlock: grant log (at most one per user and badge)
type BadgeUnlock struct {
	ID        string    `gorm:"primaryKey;type:uuid" json:"id"`
	UserID    string    `gorm:"uniqueIndex:idx_badge_unlock_user_badge;not null" json:"user_id"`
	BadgeID   string    `gorm:"uniqueIndex:idx_badge_unlock_user_badge;not null" json:"badge_id"`
	XPReward  int64     `gorm:"column:xp_reward" json:"xp_reward"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// BadgeFromDef converts a built-in catalog entry into a row.
func BadgeFromDef(d economy.BadgeDef) Badge {
	return Badge{
		ID:          d.ID,
		Name:        d.Name,
		Description: d.Description,
		Rarity:      d.Rarity,
		XPReward:    d.XPReward,
	}
}

var validRarities = map[string]bool{"common": true, "rare": true, "epic": true, "legendary": true}

// ValidRarity reports whether r is one of common, rare, epic, legendary.
func ValidRarity(r string) bool { return validRarities[r] }
