package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// PointTransactionType enumerates ledger entry types. Earn types carry a
// positive amount, use types a negative one.
type PointTransactionType string

const (
	PointEarnPurchase           PointTransactionType = "earn_purchase"
	PointEarnReferral           PointTransactionType = "earn_referral"
	PointEarnReferralCompletion PointTransactionType = "earn_referral_completion"
	PointUseRedeem              PointTransactionType = "use_redeem"
	PointAdjustment             PointTransactionType = "adjustment"
)

// IsEarn reports whether the type credits points.
func (t PointTransactionType) IsEarn() bool {
	switch t {
	case PointEarnPurchase, PointEarnReferral, PointEarnReferralCompletion:
		return true
	}
	return false
}

// PointTransactionStatus is the lifecycle state of one ledger entry.
type PointTransactionStatus string

const (
	PointStatusPending   PointTransactionStatus = "pending"
	PointStatusAvailable PointTransactionStatus = "available"
	PointStatusUsed      PointTransactionStatus = "used"
	PointStatusExpired   PointTransactionStatus = "expired"
	PointStatusCancelled PointTransactionStatus = "cancelled"
)

// PointTransaction is one ledger entry. Balances are derived by summing
// entries by status, never by mutating a cached counter. Redeeming consumes
// earn entries expiring-first: consumed entries move to the used status and
// a partial spend books the unspent remainder as a fresh available entry on
// the source's schedule, so expiry only ever touches unspent points. The
// unique index on (reservation_id, type) makes earn entries idempotent per
// reservation even under retries.
type PointTransaction struct {
	ID            uuid.UUID              `gorm:"type:uuid;primaryKey" json:"id"`
	UserID        uint                   `gorm:"not null;index" json:"user_id"`
	User          *User                  `gorm:"foreignKey:UserID" json:"user,omitempty"`
	ReservationID *uuid.UUID             `gorm:"type:uuid;uniqueIndex:idx_point_resv_type" json:"reservation_id,omitempty"`
	Type          PointTransactionType   `gorm:"size:40;not null;uniqueIndex:idx_point_resv_type" json:"type"`
	Status        PointTransactionStatus `gorm:"size:20;not null;index" json:"status"`
	Amount        int64                  `gorm:"not null" json:"amount"`
	AvailableFrom *time.Time             `gorm:"index" json:"available_from,omitempty"`
	ExpiresAt     *time.Time             `gorm:"index" json:"expires_at,omitempty"`
	Description   string                 `gorm:"size:500" json:"description,omitempty"`
	Metadata      string                 `gorm:"type:text" json:"metadata,omitempty"`
	CreatedAt     time.Time              `gorm:"index" json:"created_at"`
	UpdatedAt     time.Time              `json:"updated_at"`
}

func (PointTransaction) TableName() string {
	return "point_transactions"
}

// Current metadata schema version. Records without a recognized version are
// decoded as the legacy variant instead of being forced into one shape.
const PointMetadataSchema = "v3.2"

// PurchaseMetadata describes an earn_purchase entry.
type PurchaseMetadata struct {
	PaymentAmount  string `json:"payment_amount"`
	EligibleAmount string `json:"eligible_amount"`
	Tier           string `json:"tier"`
	Influencer     bool   `json:"influencer"`
	ClampedByCap   bool   `json:"clamped_by_cap,omitempty"`
}

// ReferralMetadata describes an earn_referral / earn_referral_completion entry.
type ReferralMetadata struct {
	ReferrerID uint   `json:"referrer_id"`
	ReferredID uint   `json:"referred_id"`
	Code       string `json:"code"`
}

// PointMetadata is the tagged variant stored in PointTransaction.Metadata.
type PointMetadata struct {
	Schema   string            `json:"schema"`
	Purchase *PurchaseMetadata `json:"purchase,omitempty"`
	Referral *ReferralMetadata `json:"referral,omitempty"`
	Legacy   json.RawMessage   `json:"legacy,omitempty"`
}

// EncodePointMetadata serializes metadata with the current schema tag.
func EncodePointMetadata(m PointMetadata) (string, error) {
	if m.Schema == "" {
		m.Schema = PointMetadataSchema
	}
	b, err := json.Marshal(m)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// DecodePointMetadata parses stored metadata. Historical records that predate
// the schema tag are preserved verbatim under Legacy.
func DecodePointMetadata(raw string) PointMetadata {
	if raw == "" {
		return PointMetadata{Schema: PointMetadataSchema}
	}
	var m PointMetadata
	if err := json.Unmarshal([]byte(raw), &m); err != nil || m.Schema == "" {
		return PointMetadata{Legacy: json.RawMessage(raw)}
	}
	return m
}
