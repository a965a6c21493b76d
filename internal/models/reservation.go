package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ReservationStatus represents the lifecycle state of a reservation.
type ReservationStatus string

const (
	ReservationRequested       ReservationStatus = "requested"
	ReservationConfirmed       ReservationStatus = "confirmed"
	ReservationInProgress      ReservationStatus = "in_progress"
	ReservationCompleted       ReservationStatus = "completed"
	ReservationCancelledByUser ReservationStatus = "cancelled_by_user"
	ReservationCancelledByShop ReservationStatus = "cancelled_by_shop"
	ReservationNoShow          ReservationStatus = "no_show"
)

// statusTransitions holds the legal state machine edges.
var statusTransitions = map[ReservationStatus][]ReservationStatus{
	ReservationRequested: {
		ReservationConfirmed,
		ReservationCompleted,
		ReservationCancelledByUser,
		ReservationCancelledByShop,
	},
	ReservationConfirmed: {
		ReservationInProgress,
		ReservationCompleted,
		ReservationCancelledByUser,
		ReservationCancelledByShop,
		ReservationNoShow,
	},
	ReservationInProgress: {
		ReservationCompleted,
	},
}

// IsTerminal reports whether no further transitions are permitted.
func (s ReservationStatus) IsTerminal() bool {
	switch s {
	case ReservationCompleted, ReservationCancelledByUser, ReservationCancelledByShop, ReservationNoShow:
		return true
	}
	return false
}

// IsCancelled reports whether the reservation no longer occupies its slot.
// Cancelled and no-show reservations are ignored by the overlap filter.
func (s ReservationStatus) IsCancelled() bool {
	switch s {
	case ReservationCancelledByUser, ReservationCancelledByShop, ReservationNoShow:
		return true
	}
	return false
}

// CanTransition reports whether the state machine allows from -> to.
func CanTransition(from, to ReservationStatus) bool {
	for _, next := range statusTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// ActiveReservationStatuses lists statuses that block a time slot.
func ActiveReservationStatuses() []ReservationStatus {
	return []ReservationStatus{
		ReservationRequested,
		ReservationConfirmed,
		ReservationInProgress,
		ReservationCompleted,
	}
}

// Reservation represents a time-boxed booking at a shop. Rows are never
// deleted; a reservation leaves its slot only through a cancelled status.
// Date is YYYY-MM-DD and times are zero-padded HH:MM so string comparison
// matches chronological order.
type Reservation struct {
	ID            uuid.UUID         `gorm:"type:uuid;primaryKey" json:"id"`
	UserID        uint              `gorm:"not null;index" json:"user_id"`
	User          *User             `gorm:"foreignKey:UserID" json:"user,omitempty"`
	ShopID        uint              `gorm:"not null;index:idx_resv_shop_date" json:"shop_id"`
	Shop          *Shop             `gorm:"foreignKey:ShopID" json:"shop,omitempty"`
	Date          string            `gorm:"size:10;not null;index:idx_resv_shop_date" json:"date"`
	StartTime     string            `gorm:"size:5;not null" json:"start_time"`
	EndTime       string            `gorm:"size:5;not null" json:"end_time"`
	Status        ReservationStatus `gorm:"size:30;default:requested;index" json:"status"`
	TotalAmount   decimal.Decimal   `gorm:"type:decimal(12,2);not null" json:"total_amount"`
	PointsUsed    int64             `gorm:"default:0" json:"points_used"`
	PointsEarned  int64             `gorm:"default:0" json:"points_earned"`
	Preferences   string            `gorm:"type:text" json:"preferences,omitempty"` // snapshot, copied at creation
	CustomerNotes string            `gorm:"type:text" json:"customer_notes,omitempty"`
	StatusReason  string            `gorm:"size:500" json:"status_reason,omitempty"`
	CompletedAt   *time.Time        `json:"completed_at,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`

	LineItems []ReservationLineItem `gorm:"foreignKey:ReservationID" json:"line_items,omitempty"`
}

func (Reservation) TableName() string {
	return "reservations"
}

// ReservationLineItem is a snapshot of one booked service. It is owned by
// the reservation and immune to later catalog edits.
type ReservationLineItem struct {
	ID              uint            `gorm:"primaryKey" json:"id"`
	ReservationID   uuid.UUID       `gorm:"type:uuid;not null;index" json:"reservation_id"`
	ServiceID       uint            `gorm:"not null" json:"service_id"`
	ServiceName     string          `gorm:"size:255;not null" json:"service_name"`
	Quantity        int             `gorm:"not null" json:"quantity"`
	DurationMinutes int             `gorm:"not null" json:"duration_minutes"`
	UnitPrice       decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"unit_price"`
}

func (ReservationLineItem) TableName() string {
	return "reservation_line_items"
}
