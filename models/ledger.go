package models

import "time"

// CreditTransaction is an append-only credit ledger row.
// Amount is negative for debits and positive for grants.
type CreditTransaction struct {
	ID           string    `gorm:"primaryKey;type:uuid" json:"id"`
	UserID       string    `gorm:"index;not null" json:"user_id"`
	Amount       int64     `gorm:"not null" json:"amount"`
	Reason       string    `gorm:"type:text" json:"reason"`
	BalanceAfter int64     `json:"balance_after"`
	CreatedAt    time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}

// XPLogEntry records every XP gain, including the seasonal multiplier used.
type XPLogEntry struct {
	ID         string    `gorm:"primaryKey;type:uuid" json:"id"`
	UserID     string    `gorm:"index;not null" json:"user_id"`
	Amount     int64     `gorm:"not null" json:"amount"`
	Reason     string    `gorm:"type:text" json:"reason"`
	Multiplier float64   `gorm:"not null" json:"multiplier"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (XPLogEntry) TableName() string { return "xp_logs" }

// PrestigeLog stamps each prestige transition.
type PrestigeLog struct {
	ID              string    `gorm:"primaryKey;type:uuid" json:"id"`
	UserID          string    `gorm:"index;not null" json:"user_id"`
	Rank            string    `gorm:"type:varchar(16);not null" json:"rank"`
	LevelAtPrestige int       `json:"level_at_prestige"`
	XPAtPrestige    int64     `gorm:"column:xp_at_prestige" json:"xp_at_prestige"`
	CreatedAt       time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// SocialProof marks a share URL as rewarded for a user.
type SocialProof struct {
	ID         string    `gorm:"primaryKey;type:uuid" json:"id"`
	UserID     string    `gorm:"uniqueIndex:idx_social_proof_user_url;not null" json:"user_id"`
	URL        string    `gorm:"uniqueIndex:idx_social_proof_user_url;type:text;not null" json:"url"`
	Confidence float64   `json:"confidence"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
}
