package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ModawnAI/everything-backend-sub023/internal/apperrors"
	"github.com/ModawnAI/everything-backend-sub023/internal/models"
	"github.com/ModawnAI/everything-backend-sub023/internal/policy"
)

// PointService maintains the point ledger. The spendable balance is always
// the sum of available entries: redeeming consumes source entries
// (expiring-first) in the same transaction that records the redemption, so
// spent points leave the available bucket immediately. The denormalized
// counters on users are advanced only with atomic increments, never
// read-modify-write.
type PointService struct {
	db  *gorm.DB
	now func() time.Time
}

func NewPointService(db *gorm.DB) *PointService {
	return &PointService{db: db, now: time.Now}
}

// PointBalance summarizes a user's ledger by status.
type PointBalance struct {
	Available int64 `json:"available"`
	Pending   int64 `json:"pending"`
	Used      int64 `json:"used"`
	Expired   int64 `json:"expired"`
}

// AwardPurchasePoints issues the purchase-point transaction for a completed
// reservation. The award is idempotent per reservation: an existing
// earn_purchase row for the same reservation is returned unchanged. Daily
// and monthly caps clamp the amount to remaining headroom instead of
// erroring.
func (s *PointService) AwardPurchasePoints(ctx context.Context, reservation *models.Reservation) (*models.PointTransaction, error) {
	var existing models.PointTransaction
	err := s.db.WithContext(ctx).
		Where("reservation_id = ? AND type = ?", reservation.ID, models.PointEarnPurchase).
		First(&existing).Error
	if err == nil {
		return &existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	var user models.User
	if err := s.db.WithContext(ctx).Where("id = ?", reservation.UserID).First(&user).Error; err != nil {
		return nil, fmt.Errorf("failed to load user %d: %w", reservation.UserID, err)
	}

	points := policy.CalculatePurchasePoints(reservation.TotalAmount, user.IsInfluencer, user.Tier)
	if points == 0 {
		return nil, nil
	}

	now := s.now()
	clamped := false
	headroom, err := s.earningHeadroom(ctx, user.ID, now)
	if err != nil {
		return nil, err
	}
	if headroom <= 0 {
		return nil, nil
	}
	if points > headroom {
		points = headroom
		clamped = true
	}

	availableFrom, expiresAt := policy.EarnSchedule(now)
	metadata, err := models.EncodePointMetadata(models.PointMetadata{
		Purchase: &models.PurchaseMetadata{
			PaymentAmount:  reservation.TotalAmount.String(),
			EligibleAmount: decimal.Min(reservation.TotalAmount, policy.MaxEligibleAmount).String(),
			Tier:           string(user.Tier),
			Influencer:     user.IsInfluencer,
			ClampedByCap:   clamped,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode point metadata: %w", err)
	}

	reservationID := reservation.ID
	tx := models.PointTransaction{
		ID:            uuid.New(),
		UserID:        user.ID,
		ReservationID: &reservationID,
		Type:          models.PointEarnPurchase,
		Status:        models.PointStatusPending,
		Amount:        points,
		AvailableFrom: &availableFrom,
		ExpiresAt:     &expiresAt,
		Description:   fmt.Sprintf("Points for reservation on %s", reservation.Date),
		Metadata:      metadata,
	}

	if err := s.db.WithContext(ctx).Create(&tx).Error; err != nil {
		return nil, fmt.Errorf("failed to create point transaction: %w", err)
	}

	if err := creditLifetimePoints(ctx, s.db, user.ID, points); err != nil {
		log.Printf("Error updating lifetime points for user %d: %v", user.ID, err)
	}

	log.Printf("Awarded %d purchase points to user %d for reservation %s", points, user.ID, reservation.ID)
	return &tx, nil
}

// earningHeadroom returns how many more purchase points the user may earn
// right now under the daily and monthly caps.
func (s *PointService) earningHeadroom(ctx context.Context, userID uint, now time.Time) (int64, error) {
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())

	earnedToday, err := s.sumEarnedSince(ctx, userID, dayStart)
	if err != nil {
		return 0, err
	}
	earnedThisMonth, err := s.sumEarnedSince(ctx, userID, monthStart)
	if err != nil {
		return 0, err
	}

	dailyHeadroom := policy.MaxDailyEarningLimit - earnedToday
	monthlyHeadroom := policy.MaxMonthlyEarningLimit - earnedThisMonth
	if monthlyHeadroom < dailyHeadroom {
		return monthlyHeadroom, nil
	}
	return dailyHeadroom, nil
}

func (s *PointService) sumEarnedSince(ctx context.Context, userID uint, since time.Time) (int64, error) {
	var total int64
	err := s.db.WithContext(ctx).Model(&models.PointTransaction{}).
		Where("user_id = ? AND type = ? AND created_at >= ?", userID, models.PointEarnPurchase, since).
		Where("status NOT IN ?", []models.PointTransactionStatus{models.PointStatusCancelled}).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&total).Error
	if err != nil {
		return 0, fmt.Errorf("failed to sum earned points: %w", err)
	}
	return total, nil
}

// creditLifetimePoints bumps a user's lifetime counter atomically and
// recomputes the tier from the new total. Every earn path goes through here
// so tier promotion cannot be skipped.
func creditLifetimePoints(ctx context.Context, db *gorm.DB, userID uint, points int64) error {
	if err := db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).
		Update("total_points_earned", gorm.Expr("total_points_earned + ?", points)).Error; err != nil {
		return err
	}

	var user models.User
	if err := db.WithContext(ctx).Where("id = ?", userID).First(&user).Error; err != nil {
		return err
	}
	tier := policy.TierForPoints(user.TotalPointsEarned)
	if tier != user.Tier {
		if err := db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).
			Update("tier", tier).Error; err != nil {
			return err
		}
		log.Printf("User %d promoted to tier %s", userID, tier)
	}
	return nil
}

// UsePoints redeems points against a reservation. Source entries are
// consumed expiring-first in the same transaction that records the
// redemption, so spent points leave the available bucket immediately and
// cannot be redeemed twice. An insufficient balance is a validation error.
func (s *PointService) UsePoints(ctx context.Context, userID uint, amount int64, reservationID uuid.UUID) (*models.PointTransaction, error) {
	if amount <= 0 {
		return nil, apperrors.Validationf("INVALID_POINT_AMOUNT", "point amount must be positive, got %d", amount)
	}

	var redemption models.PointTransaction
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		query := tx.
			Where("user_id = ? AND status = ?", userID, models.PointStatusAvailable).
			Order("expires_at ASC, created_at ASC")
		if tx.Dialector.Name() == "postgres" {
			query = query.Clauses(clause.Locking{Strength: "UPDATE"})
		}
		var sources []models.PointTransaction
		if err := query.Find(&sources).Error; err != nil {
			return fmt.Errorf("failed to load available points: %w", err)
		}

		var available int64
		for _, src := range sources {
			available += src.Amount
		}
		if available < amount {
			return apperrors.Validationf("INSUFFICIENT_POINTS",
				"available balance %d is less than requested %d", available, amount)
		}

		remaining := amount
		for _, src := range sources {
			if remaining == 0 {
				break
			}
			result := tx.Model(&models.PointTransaction{}).
				Where("id = ? AND status = ?", src.ID, models.PointStatusAvailable).
				Update("status", models.PointStatusUsed)
			if result.Error != nil {
				return fmt.Errorf("failed to consume point entry %s: %w", src.ID, result.Error)
			}
			if result.RowsAffected == 0 {
				return apperrors.Conflictf("POINT_BALANCE_CONFLICT",
					"point entry %s changed during redemption", src.ID)
			}
			if src.Amount > remaining {
				// Partial spend: the unspent remainder stays available on the
				// source entry's original schedule.
				remainder := models.PointTransaction{
					ID:            uuid.New(),
					UserID:        userID,
					Type:          models.PointAdjustment,
					Status:        models.PointStatusAvailable,
					Amount:        src.Amount - remaining,
					AvailableFrom: src.AvailableFrom,
					ExpiresAt:     src.ExpiresAt,
					Description:   "Unspent remainder from partial redemption",
				}
				if err := tx.Create(&remainder).Error; err != nil {
					return fmt.Errorf("failed to create remainder entry: %w", err)
				}
				remaining = 0
			} else {
				remaining -= src.Amount
			}
		}

		redemption = models.PointTransaction{
			ID:            uuid.New(),
			UserID:        userID,
			ReservationID: &reservationID,
			Type:          models.PointUseRedeem,
			Status:        models.PointStatusUsed,
			Amount:        -amount,
			Description:   "Points redeemed at booking",
		}
		if err := tx.Create(&redemption).Error; err != nil {
			return fmt.Errorf("failed to create redemption: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).
		Update("available_points", gorm.Expr("available_points - ?", amount)).Error; err != nil {
		log.Printf("Error decrementing available points for user %d: %v", userID, err)
	}

	return &redemption, nil
}

// GetBalance sums the ledger by status. Used is derived from redemption
// entries; consumed earn entries carry the used status too but their spend is
// already recorded by the redemption row. Used and expired are reported as
// positive magnitudes.
func (s *PointService) GetBalance(ctx context.Context, userID uint) (*PointBalance, error) {
	balance := &PointBalance{}

	rows := []struct {
		Status models.PointTransactionStatus
		Type   models.PointTransactionType
		Total  int64
	}{}
	err := s.db.WithContext(ctx).Model(&models.PointTransaction{}).
		Where("user_id = ?", userID).
		Select("status, type, COALESCE(SUM(amount), 0) AS total").
		Group("status, type").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to sum ledger: %w", err)
	}

	for _, row := range rows {
		switch row.Status {
		case models.PointStatusAvailable:
			balance.Available += row.Total
		case models.PointStatusPending:
			balance.Pending += row.Total
		case models.PointStatusUsed:
			if row.Type == models.PointUseRedeem {
				balance.Used += -row.Total
			}
		case models.PointStatusExpired:
			balance.Expired += row.Total
		}
	}
	return balance, nil
}

// GetTransactions returns a user's ledger entries, newest first.
func (s *PointService) GetTransactions(ctx context.Context, userID uint, limit, offset int) ([]models.PointTransaction, error) {
	var txs []models.PointTransaction
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&txs).Error
	if err != nil {
		return nil, err
	}
	return txs, nil
}

// ActivateDuePoints advances pending entries whose availability date has
// passed and credits the owners' available balance. Each row is advanced
// with a guarded update so a concurrent sweep cannot double-credit.
func (s *PointService) ActivateDuePoints(ctx context.Context, now time.Time) (int, error) {
	var due []models.PointTransaction
	err := s.db.WithContext(ctx).
		Where("status = ? AND available_from <= ?", models.PointStatusPending, now).
		Find(&due).Error
	if err != nil {
		return 0, fmt.Errorf("failed to list due points: %w", err)
	}

	activated := 0
	for _, tx := range due {
		result := s.db.WithContext(ctx).Model(&models.PointTransaction{}).
			Where("id = ? AND status = ?", tx.ID, models.PointStatusPending).
			Update("status", models.PointStatusAvailable)
		if result.Error != nil {
			log.Printf("Error activating point transaction %s: %v", tx.ID, result.Error)
			continue
		}
		if result.RowsAffected == 0 {
			continue
		}
		if err := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", tx.UserID).
			Update("available_points", gorm.Expr("available_points + ?", tx.Amount)).Error; err != nil {
			log.Printf("Error crediting available points for user %d: %v", tx.UserID, err)
		}
		activated++
	}
	return activated, nil
}

// ExpireDuePoints expires available entries past their expiry date and
// debits the owners' available balance. Redemption already removed spent
// points from the available bucket, so only the unspent remainder expires.
func (s *PointService) ExpireDuePoints(ctx context.Context, now time.Time) (int, error) {
	var due []models.PointTransaction
	err := s.db.WithContext(ctx).
		Where("status = ? AND expires_at <= ?", models.PointStatusAvailable, now).
		Find(&due).Error
	if err != nil {
		return 0, fmt.Errorf("failed to list expiring points: %w", err)
	}

	expired := 0
	for _, tx := range due {
		result := s.db.WithContext(ctx).Model(&models.PointTransaction{}).
			Where("id = ? AND status = ?", tx.ID, models.PointStatusAvailable).
			Update("status", models.PointStatusExpired)
		if result.Error != nil {
			log.Printf("Error expiring point transaction %s: %v", tx.ID, result.Error)
			continue
		}
		if result.RowsAffected == 0 {
			continue
		}
		if err := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", tx.UserID).
			Update("available_points", gorm.Expr("available_points - ?", tx.Amount)).Error; err != nil {
			log.Printf("Error debiting available points for user %d: %v", tx.UserID, err)
		}
		expired++
	}
	return expired, nil
}
