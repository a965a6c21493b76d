package services

import (
	"context"
	"crypto/rand"
	"encoding/base32"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ModawnAI/everything-backend-sub023/internal/apperrors"
	"github.com/ModawnAI/everything-backend-sub023/internal/models"
	"github.com/ModawnAI/everything-backend-sub023/internal/policy"
)

// ReferralService manages referral codes, relationships, and the
// completion-triggered referrer rewards. Reward processing is a best-effort
// side channel: failures are logged and never surface to the booking
// request that triggered them.
type ReferralService struct {
	db            *gorm.DB
	notifications *NotificationService
	queue         chan uuid.UUID
	now           func() time.Time
}

func NewReferralService(db *gorm.DB, notifications *NotificationService) *ReferralService {
	return &ReferralService{
		db:            db,
		notifications: notifications,
		queue:         make(chan uuid.UUID, 1000),
		now:           time.Now,
	}
}

// StartRewardWorker launches the background reward processor.
func (s *ReferralService) StartRewardWorker() {
	go s.rewardLoop()
}

// GenerateCode generates a random 8-character referral code.
func GenerateCode() (string, error) {
	b := make([]byte, 5)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(b)[:8], nil
}

// ValidateCode reports whether an active referrer owns the given code.
// Used at signup, independent of the reward pipeline.
func (s *ReferralService) ValidateCode(ctx context.Context, code string) (bool, *models.User, error) {
	var referrer models.User
	err := s.db.WithContext(ctx).
		Where("referral_code = ? AND status = ?", code, models.UserStatusActive).
		First(&referrer).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil, nil
	}
	if err != nil {
		return false, nil, err
	}
	return true, &referrer, nil
}

// ApplyReferralCode records who referred a user. The referred-by fields are
// set at most once; only an explicit admin reset can change them after.
func (s *ReferralService) ApplyReferralCode(ctx context.Context, referredUserID uint, code string) error {
	var referred models.User
	if err := s.db.WithContext(ctx).Where("id = ?", referredUserID).First(&referred).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.NotFoundf("USER_NOT_FOUND", "user %d not found", referredUserID)
		}
		return err
	}
	if referred.ReferredByCode != nil {
		return apperrors.Validationf("REFERRER_ALREADY_SET", "user already has a referrer")
	}

	ok, referrer, err := s.ValidateCode(ctx, code)
	if err != nil {
		return err
	}
	if !ok {
		return apperrors.Validationf("INVALID_REFERRAL_CODE", "referral code is not valid")
	}
	if referrer.ID == referredUserID {
		return apperrors.Validationf("SELF_REFERRAL", "cannot use your own referral code")
	}

	now := s.now()
	if err := s.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ? AND referred_by_code IS NULL", referredUserID).
		Updates(map[string]interface{}{
			"referred_by_code": code,
			"referrer_set_at":  now,
		}).Error; err != nil {
		return fmt.Errorf("failed to set referrer: %w", err)
	}

	relationship := models.ReferralRelationship{
		ReferrerID: referrer.ID,
		ReferredID: referredUserID,
		Code:       code,
		Status:     "active",
	}
	if err := s.db.WithContext(ctx).Create(&relationship).Error; err != nil {
		return fmt.Errorf("failed to create referral relationship: %w", err)
	}

	log.Printf("Applied referral code %s: user %d referred by user %d", code, referredUserID, referrer.ID)
	return nil
}

// GetUserReferrals returns the relationships where the user is the referrer.
func (s *ReferralService) GetUserReferrals(ctx context.Context, userID uint) ([]models.ReferralRelationship, error) {
	var relationships []models.ReferralRelationship
	err := s.db.WithContext(ctx).
		Where("referrer_id = ?", userID).
		Preload("Referred").
		Order("created_at DESC").
		Find(&relationships).Error
	if err != nil {
		return nil, err
	}
	return relationships, nil
}

// EnqueueCompletionReward hands a completed reservation to the reward
// worker without blocking the completion request.
func (s *ReferralService) EnqueueCompletionReward(reservationID uuid.UUID) {
	select {
	case s.queue <- reservationID:
	default:
		log.Printf("Warning: referral reward queue full, reservation %s skipped", reservationID)
	}
}

func (s *ReferralService) rewardLoop() {
	for reservationID := range s.queue {
		if err := s.ProcessCompletionReward(context.Background(), reservationID); err != nil {
			log.Printf("Referral reward for reservation %s failed: %v", reservationID, err)
		}
	}
}

// ProcessCompletionReward issues the referrer bonuses for one completed
// reservation. The base bonus is keyed by (reservation, type) so retries
// award at most once; the completion bonus additionally requires flipping
// bonus_paid on the relationship, so it fires only for the referred user's
// first completed reservation. A missing or inactive referrer is a logged
// skip, not an error.
func (s *ReferralService) ProcessCompletionReward(ctx context.Context, reservationID uuid.UUID) error {
	var reservation models.Reservation
	if err := s.db.WithContext(ctx).Where("id = ?", reservationID).First(&reservation).Error; err != nil {
		return fmt.Errorf("failed to load reservation: %w", err)
	}

	var referred models.User
	if err := s.db.WithContext(ctx).Where("id = ?", reservation.UserID).First(&referred).Error; err != nil {
		return fmt.Errorf("failed to load user %d: %w", reservation.UserID, err)
	}
	if referred.ReferredByCode == nil {
		return nil
	}

	ok, referrer, err := s.ValidateCode(ctx, *referred.ReferredByCode)
	if err != nil {
		return fmt.Errorf("failed to resolve referrer: %w", err)
	}
	if !ok {
		log.Printf("Referral reward skipped: no active referrer for code %s", *referred.ReferredByCode)
		return nil
	}

	if err := s.awardBonus(ctx, referrer, &referred, &reservation,
		models.PointEarnReferral, policy.ReferralBaseBonus); err != nil {
		return err
	}

	if err := s.awardFirstCompletionBonus(ctx, referrer, &referred, &reservation); err != nil {
		return err
	}

	return nil
}

// awardBonus inserts one referrer point transaction for the reservation.
// An existing row for the same (reservation, type) means a retry already
// paid out; that is a no-op.
func (s *ReferralService) awardBonus(ctx context.Context, referrer, referred *models.User, reservation *models.Reservation, txType models.PointTransactionType, amount int64) error {
	var existing models.PointTransaction
	err := s.db.WithContext(ctx).
		Where("reservation_id = ? AND type = ?", reservation.ID, txType).
		First(&existing).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	now := s.now()
	availableFrom, expiresAt := policy.EarnSchedule(now)
	metadata, err := models.EncodePointMetadata(models.PointMetadata{
		Referral: &models.ReferralMetadata{
			ReferrerID: referrer.ID,
			ReferredID: referred.ID,
			Code:       referrer.ReferralCode,
		},
	})
	if err != nil {
		return fmt.Errorf("failed to encode referral metadata: %w", err)
	}

	reservationID := reservation.ID
	tx := models.PointTransaction{
		ID:            uuid.New(),
		UserID:        referrer.ID,
		ReservationID: &reservationID,
		Type:          txType,
		Status:        models.PointStatusPending,
		Amount:        amount,
		AvailableFrom: &availableFrom,
		ExpiresAt:     &expiresAt,
		Description:   fmt.Sprintf("Referral bonus for %s", referred.Nickname),
		Metadata:      metadata,
	}
	if err := s.db.WithContext(ctx).Create(&tx).Error; err != nil {
		return fmt.Errorf("failed to create referral bonus: %w", err)
	}

	if err := creditLifetimePoints(ctx, s.db, referrer.ID, amount); err != nil {
		log.Printf("Error updating lifetime points for referrer %d: %v", referrer.ID, err)
	}

	if s.notifications != nil {
		s.notifications.Enqueue(models.Notification{
			UserID: referrer.ID,
			Type:   "referral_bonus",
			Title:  "Referral bonus earned",
			Body:   fmt.Sprintf("You earned %d points from %s's visit.", amount, referred.Nickname),
		})
	}

	log.Printf("Referral bonus: %d points to referrer %d for reservation %s", amount, referrer.ID, reservation.ID)
	return nil
}

// awardFirstCompletionBonus pays the one-time completion bonus. Flipping
// bonus_paid with a guarded update makes it at-most-once even if two
// completions of different reservations race.
func (s *ReferralService) awardFirstCompletionBonus(ctx context.Context, referrer, referred *models.User, reservation *models.Reservation) error {
	now := s.now()
	result := s.db.WithContext(ctx).Model(&models.ReferralRelationship{}).
		Where("referrer_id = ? AND referred_id = ? AND bonus_paid = ?", referrer.ID, referred.ID, false).
		Updates(map[string]interface{}{
			"bonus_paid":    true,
			"bonus_paid_at": now,
			"bonus_amount":  policy.ReferralBaseBonus + policy.ReferralCompletionBonus,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to mark completion bonus: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil
	}

	return s.awardBonus(ctx, referrer, referred, reservation,
		models.PointEarnReferralCompletion, policy.ReferralCompletionBonus)
}
