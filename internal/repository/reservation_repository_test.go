package repository

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/ModawnAI/everything-backend-sub023/internal/apperrors"
	"github.com/ModawnAI/everything-backend-sub023/internal/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	if err := db.AutoMigrate(&models.Reservation{}, &models.ReservationLineItem{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return db
}

func newReservation(shopID uint, date, start, end string, status models.ReservationStatus) *models.Reservation {
	return &models.Reservation{
		ID:          uuid.New(),
		UserID:      1,
		ShopID:      shopID,
		Date:        date,
		StartTime:   start,
		EndTime:     end,
		Status:      status,
		TotalAmount: decimal.NewFromInt(50000),
	}
}

func TestWithLockTimeoutLeavesOriginal(t *testing.T) {
	db := setupTestDB(t)

	base := NewRepository(db)
	tuned := base.WithLockTimeout(10 * time.Second)

	if base.lockTimeout != DefaultLockTimeout {
		t.Errorf("base lock timeout = %v, want %v", base.lockTimeout, DefaultLockTimeout)
	}
	if tuned.lockTimeout != 10*time.Second {
		t.Errorf("tuned lock timeout = %v, want 10s", tuned.lockTimeout)
	}
	if tuned == base {
		t.Error("WithLockTimeout must return a distinct repository")
	}
}

func TestCreateReservationExclusiveRejectsOverlap(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	first := newReservation(1, "2025-06-02", "10:00", "11:15", models.ReservationRequested)
	if err := repo.CreateReservationExclusive(ctx, first); err != nil {
		t.Fatalf("first create failed: %v", err)
	}

	cases := []struct {
		name       string
		start, end string
		wantErr    bool
	}{
		{"identical", "10:00", "11:15", true},
		{"starts inside", "10:30", "11:45", true},
		{"ends inside", "09:30", "10:30", true},
		{"engulfing", "09:00", "12:00", true},
		{"back to back before", "09:00", "10:00", false},
		{"back to back after", "11:15", "12:00", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := newReservation(1, "2025-06-02", tc.start, tc.end, models.ReservationRequested)
			err := repo.CreateReservationExclusive(ctx, res)
			if tc.wantErr {
				if apperrors.CodeOf(err) != "SLOT_CONFLICT" {
					t.Errorf("got %v, want SLOT_CONFLICT", err)
				}
				if !apperrors.IsRetryable(err) {
					t.Error("slot conflict must be retryable")
				}
			} else if err != nil {
				t.Errorf("create failed: %v", err)
			}
		})
	}
}

func TestCreateReservationExclusiveScope(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	base := newReservation(1, "2025-06-02", "10:00", "11:00", models.ReservationRequested)
	if err := repo.CreateReservationExclusive(ctx, base); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	// Another shop's calendar is independent.
	otherShop := newReservation(2, "2025-06-02", "10:00", "11:00", models.ReservationRequested)
	if err := repo.CreateReservationExclusive(ctx, otherShop); err != nil {
		t.Errorf("different shop must not conflict: %v", err)
	}

	// And so is another date.
	otherDate := newReservation(1, "2025-06-03", "10:00", "11:00", models.ReservationRequested)
	if err := repo.CreateReservationExclusive(ctx, otherDate); err != nil {
		t.Errorf("different date must not conflict: %v", err)
	}
}

func TestCreateReservationExclusiveIgnoresCancelled(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	cancelled := newReservation(1, "2025-06-02", "10:00", "11:00", models.ReservationCancelledByUser)
	if err := db.Create(cancelled).Error; err != nil {
		t.Fatalf("failed to seed cancelled reservation: %v", err)
	}

	res := newReservation(1, "2025-06-02", "10:00", "11:00", models.ReservationRequested)
	if err := repo.CreateReservationExclusive(ctx, res); err != nil {
		t.Errorf("cancelled reservations must not block the slot: %v", err)
	}
}

func TestTransitionStatusGuarded(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	res := newReservation(1, "2025-06-02", "10:00", "11:00", models.ReservationRequested)
	if err := db.Create(res).Error; err != nil {
		t.Fatalf("failed to seed reservation: %v", err)
	}

	moved, err := repo.TransitionStatus(ctx, res.ID, models.ReservationRequested, models.ReservationConfirmed, nil)
	if err != nil || !moved {
		t.Fatalf("transition failed: moved=%v err=%v", moved, err)
	}

	// The guard sees the stale precondition and declines.
	moved, err = repo.TransitionStatus(ctx, res.ID, models.ReservationRequested, models.ReservationCancelledByShop, nil)
	if err != nil {
		t.Fatalf("guarded transition errored: %v", err)
	}
	if moved {
		t.Error("stale transition must not apply")
	}

	var stored models.Reservation
	db.Where("id = ?", res.ID).First(&stored)
	if stored.Status != models.ReservationConfirmed {
		t.Errorf("status = %s, want confirmed", stored.Status)
	}
}

func TestGetReservationByIDNotFound(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db)

	_, err := repo.GetReservationByID(context.Background(), uuid.New())
	if apperrors.CodeOf(err) != "RESERVATION_NOT_FOUND" {
		t.Errorf("got %v, want RESERVATION_NOT_FOUND", err)
	}
	if apperrors.KindOf(err) != apperrors.KindNotFound {
		t.Errorf("kind = %v, want not found", apperrors.KindOf(err))
	}
}
