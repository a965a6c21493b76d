package models

import (
	"time"
)

// UserTier classifies a customer by lifetime points earned and drives
// the point-earning multiplier.
type UserTier string

const (
	TierBronze   UserTier = "bronze"
	TierSilver   UserTier = "silver"
	TierGold     UserTier = "gold"
	TierPlatinum UserTier = "platinum"
	TierDiamond  UserTier = "diamond"
)

// UserStatus represents the account state of a user.
type UserStatus string

const (
	UserStatusActive    UserStatus = "active"
	UserStatusSuspended UserStatus = "suspended"
	UserStatusDeleted   UserStatus = "deleted"
)

// UserRole controls which reservation transitions an actor may perform.
type UserRole string

const (
	RoleCustomer  UserRole = "customer"
	RoleShopOwner UserRole = "shop_owner"
	RoleAdmin     UserRole = "admin"
)

// User represents a user in the system
type User struct {
	ID                uint       `gorm:"primaryKey" json:"id"`
	Email             string     `gorm:"uniqueIndex;not null" json:"email"`
	Nickname          string     `gorm:"uniqueIndex;not null" json:"nickname"`
	PhoneNumber       *string    `json:"phone_number,omitempty"`
	Role              UserRole   `gorm:"size:20;default:customer;index" json:"role"`
	ReferralCode      string     `gorm:"uniqueIndex;size:20;not null" json:"referral_code"`
	ReferredByCode    *string    `gorm:"size:20;index" json:"referred_by_code,omitempty"`
	ReferrerSetAt     *time.Time `json:"referrer_set_at,omitempty"`
	Tier              UserTier   `gorm:"size:20;default:bronze" json:"tier"`
	IsInfluencer      bool       `gorm:"default:false" json:"is_influencer"`
	TotalPointsEarned int64      `gorm:"default:0" json:"total_points_earned"`
	AvailablePoints   int64      `gorm:"default:0" json:"available_points"`
	Status            UserStatus `gorm:"size:20;default:active;index" json:"status"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// TableName specifies the table name for User model
func (User) TableName() string {
	return "users"
}

// IsActive reports whether the user can participate in bookings and rewards.
func (u *User) IsActive() bool {
	return u.Status == UserStatusActive
}
