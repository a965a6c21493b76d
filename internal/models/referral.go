package models

import (
	"time"
)

// ReferralRelationship is the durable link from a referred user to the
// referrer whose code they registered with. Unique per (referrer, referred).
// BonusPaid guards the one-time first-completion bonus.
type ReferralRelationship struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	ReferrerID  uint       `gorm:"not null;index;uniqueIndex:idx_referrer_referred" json:"referrer_id"`
	Referrer    *User      `gorm:"foreignKey:ReferrerID" json:"referrer,omitempty"`
	ReferredID  uint       `gorm:"not null;index;uniqueIndex:idx_referrer_referred" json:"referred_id"`
	Referred    *User      `gorm:"foreignKey:ReferredID" json:"referred,omitempty"`
	Code        string     `gorm:"size:20;not null" json:"code"`
	Status      string     `gorm:"size:20;default:active" json:"status"` // active, inactive
	BonusAmount int64      `gorm:"default:0" json:"bonus_amount"`
	BonusPaid   bool       `gorm:"default:false" json:"bonus_paid"`
	BonusPaidAt *time.Time `json:"bonus_paid_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func (ReferralRelationship) TableName() string {
	return "referral_relationships"
}
