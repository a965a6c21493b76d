package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ServiceCategory enumerates the beauty service categories offered by shops.
type ServiceCategory string

const (
	CategoryNail          ServiceCategory = "nail"
	CategoryEyelash       ServiceCategory = "eyelash"
	CategoryWaxing        ServiceCategory = "waxing"
	CategoryEyebrowTattoo ServiceCategory = "eyebrow_tattoo"
	CategoryHair          ServiceCategory = "hair"
)

// ShopStatus represents the lifecycle state of a shop.
type ShopStatus string

const (
	ShopStatusActive    ShopStatus = "active"
	ShopStatusInactive  ShopStatus = "inactive"
	ShopStatusSuspended ShopStatus = "suspended"
)

// Shop represents a beauty shop accepting reservations
type Shop struct {
	ID           uint            `gorm:"primaryKey" json:"id"`
	OwnerID      uint            `gorm:"not null;index" json:"owner_id"`
	Owner        *User           `gorm:"foreignKey:OwnerID" json:"owner,omitempty"`
	Name         string          `gorm:"size:255;not null" json:"name"`
	MainCategory ServiceCategory `gorm:"size:30;not null;index" json:"main_category"`
	PhoneNumber  *string         `json:"phone_number,omitempty"`
	Address      string          `gorm:"size:500" json:"address"`
	Status       ShopStatus      `gorm:"size:20;default:active;index" json:"status"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

func (Shop) TableName() string {
	return "shops"
}

// OperatingHour defines a shop's booking window for one weekday.
// Weekday follows time.Weekday (0 = Sunday).
type OperatingHour struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ShopID    uint      `gorm:"not null;index:idx_shop_weekday,unique" json:"shop_id"`
	Weekday   int       `gorm:"not null;index:idx_shop_weekday,unique" json:"weekday"`
	OpenTime  string    `gorm:"size:5;not null" json:"open_time"`  // HH:MM
	CloseTime string    `gorm:"size:5;not null" json:"close_time"` // HH:MM
	Closed    bool      `gorm:"default:false" json:"closed"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (OperatingHour) TableName() string {
	return "shop_operating_hours"
}

// ShopService represents a bookable service offered by a shop
type ShopService struct {
	ID              uint            `gorm:"primaryKey" json:"id"`
	ShopID          uint            `gorm:"not null;index" json:"shop_id"`
	Shop            *Shop           `gorm:"foreignKey:ShopID" json:"shop,omitempty"`
	Name            string          `gorm:"size:255;not null" json:"name"`
	Category        ServiceCategory `gorm:"size:30;not null" json:"category"`
	DurationMinutes int             `gorm:"not null" json:"duration_minutes"`
	BufferMinutes   int             `gorm:"default:0" json:"buffer_minutes"`
	Price           decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"price"`
	IsActive        bool            `gorm:"default:true;index" json:"is_active"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

func (ShopService) TableName() string {
	return "shop_services"
}
