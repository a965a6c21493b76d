package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ModawnAI/everything-backend-sub023/internal/apperrors"
	"github.com/ModawnAI/everything-backend-sub023/internal/models"
)

// DefaultLockTimeout bounds how long a booking attempt may wait for the
// shop calendar lock before it is surfaced as a retryable conflict.
const DefaultLockTimeout = 3 * time.Second

type Repository struct {
	db          *gorm.DB
	lockTimeout time.Duration
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db, lockTimeout: DefaultLockTimeout}
}

// WithLockTimeout returns a copy of the repository with a different calendar
// lock acquisition bound. The receiver is left untouched.
func (r *Repository) WithLockTimeout(d time.Duration) *Repository {
	clone := *r
	clone.lockTimeout = d
	return &clone
}

// calendarLockKey scopes the advisory lock to one shop's calendar day.
func calendarLockKey(shopID uint, date string) string {
	return fmt.Sprintf("reservation:%d:%s", shopID, date)
}

// CreateReservationExclusive atomically claims a time slot: acquire the
// per-(shop, date) calendar lock, re-validate that no active reservation
// overlaps [start, end), and insert, all inside one transaction. Exactly
// one of two concurrent overlapping attempts succeeds; the loser gets a
// retryable conflict.
func (r *Repository) CreateReservationExclusive(ctx context.Context, res *models.Reservation) error {
	ctx, cancel := context.WithTimeout(ctx, r.lockTimeout)
	defer cancel()

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		postgres := tx.Dialector.Name() == "postgres"
		if postgres {
			timeoutMs := int(r.lockTimeout / time.Millisecond)
			if err := tx.Exec(fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", timeoutMs)).Error; err != nil {
				return fmt.Errorf("failed to set lock timeout: %w", err)
			}
			if err := tx.Exec(
				"SELECT pg_advisory_xact_lock(hashtext(?))",
				calendarLockKey(res.ShopID, res.Date),
			).Error; err != nil {
				return lockError(err)
			}
		}

		// Re-validate under the lock: the availability snapshot the client
		// saw may be stale by now. Row locking is a postgres construct;
		// sqlite serializes the whole transaction anyway.
		check := tx
		if postgres {
			check = check.Clauses(clause.Locking{Strength: "UPDATE"})
		}

		var conflicts []models.Reservation
		if err := check.
			Where("shop_id = ? AND date = ?", res.ShopID, res.Date).
			Where("start_time < ? AND end_time > ?", res.EndTime, res.StartTime).
			Where("status IN ?", models.ActiveReservationStatuses()).
			Find(&conflicts).Error; err != nil {
			return fmt.Errorf("failed to check slot conflicts: %w", err)
		}
		if len(conflicts) > 0 {
			return apperrors.Conflictf("SLOT_CONFLICT",
				"slot %s-%s on %s is no longer available", res.StartTime, res.EndTime, res.Date)
		}

		if err := tx.Create(res).Error; err != nil {
			return fmt.Errorf("failed to create reservation: %w", err)
		}
		return nil
	})

	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return apperrors.Wrap(err, apperrors.Conflictf("LOCK_TIMEOUT",
			"timed out waiting for the shop calendar, retry after refreshing availability"))
	}
	return err
}

// lockError converts a lock acquisition failure into the taxonomy. A lock
// timeout (SQLSTATE 55P03) is retryable; anything else propagates as-is.
func lockError(err error) error {
	if strings.Contains(err.Error(), "55P03") || strings.Contains(err.Error(), "lock timeout") {
		return apperrors.Wrap(err, apperrors.Conflictf("LOCK_TIMEOUT",
			"timed out waiting for the shop calendar, retry after refreshing availability"))
	}
	return fmt.Errorf("failed to acquire calendar lock: %w", err)
}

// GetReservationByID retrieves a reservation with its line items.
func (r *Repository) GetReservationByID(ctx context.Context, id uuid.UUID) (*models.Reservation, error) {
	var res models.Reservation
	err := r.db.WithContext(ctx).Preload("LineItems").Where("id = ?", id).First(&res).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFoundf("RESERVATION_NOT_FOUND", "reservation %s not found", id)
		}
		return nil, err
	}
	return &res, nil
}

// ListActiveByShopDate returns the non-cancelled reservations occupying a
// shop's calendar on one date, ordered by start time.
func (r *Repository) ListActiveByShopDate(ctx context.Context, shopID uint, date string) ([]models.Reservation, error) {
	var reservations []models.Reservation
	err := r.db.WithContext(ctx).
		Where("shop_id = ? AND date = ?", shopID, date).
		Where("status IN ?", models.ActiveReservationStatuses()).
		Order("start_time ASC").
		Find(&reservations).Error
	if err != nil {
		return nil, err
	}
	return reservations, nil
}

// ListByUser returns a user's reservations, newest first.
func (r *Repository) ListByUser(ctx context.Context, userID uint, limit, offset int) ([]models.Reservation, error) {
	var reservations []models.Reservation
	err := r.db.WithContext(ctx).
		Preload("LineItems").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&reservations).Error
	if err != nil {
		return nil, err
	}
	return reservations, nil
}

// TransitionStatus performs a guarded status update: the row is only
// touched when its stored status still equals from. The returned flag is
// false when another request already moved the reservation on, which lets
// callers treat repeated completion submissions as a no-op.
func (r *Repository) TransitionStatus(ctx context.Context, id uuid.UUID, from, to models.ReservationStatus, updates map[string]interface{}) (bool, error) {
	if updates == nil {
		updates = map[string]interface{}{}
	}
	updates["status"] = to

	result := r.db.WithContext(ctx).
		Model(&models.Reservation{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if result.Error != nil {
		return false, fmt.Errorf("failed to transition reservation %s: %w", id, result.Error)
	}
	return result.RowsAffected > 0, nil
}
