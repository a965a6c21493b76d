package models

import (
	"time"
)

// NotificationStatus tracks delivery handoff for a queued notification.
type NotificationStatus string

const (
	NotificationQueued NotificationStatus = "queued"
	NotificationSent   NotificationStatus = "sent"
	NotificationFailed NotificationStatus = "failed"
)

// Notification is an outbound payload handed to the delivery collaborator.
// Delivery mechanics live outside this service; we persist the handoff.
type Notification struct {
	ID        uint               `gorm:"primaryKey" json:"id"`
	UserID    uint               `gorm:"not null;index" json:"user_id"`
	Type      string             `gorm:"size:50;not null;index" json:"type"`
	Title     string             `gorm:"size:255;not null" json:"title"`
	Body      string             `gorm:"type:text" json:"body"`
	Payload   string             `gorm:"type:text" json:"payload,omitempty"`
	Status    NotificationStatus `gorm:"size:20;default:queued;index" json:"status"`
	CreatedAt time.Time          `json:"created_at"`
	UpdatedAt time.Time          `json:"updated_at"`
}

func (Notification) TableName() string {
	return "notifications"
}
