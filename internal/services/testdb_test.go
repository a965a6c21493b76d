package services

import (
	"fmt"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/ModawnAI/everything-backend-sub023/internal/models"
	"github.com/ModawnAI/everything-backend-sub023/internal/repository"
)

func setupTestDB(t *testing.T) *gorm.DB {
	// A named shared-cache DB survives across pooled connections; the test
	// name keeps each test's data isolated.
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to connect database: %v", err)
	}

	err = db.AutoMigrate(
		&models.User{},
		&models.Shop{},
		&models.OperatingHour{},
		&models.ShopService{},
		&models.Reservation{},
		&models.ReservationLineItem{},
		&models.PointTransaction{},
		&models.ReferralRelationship{},
		&models.Notification{},
	)
	if err != nil {
		t.Fatalf("failed to migrate database: %v", err)
	}

	return db
}

func createTestUser(t *testing.T, db *gorm.DB, id uint, code string) *models.User {
	user := &models.User{
		ID:           id,
		Email:        code + "@example.com",
		Nickname:     "user-" + code,
		ReferralCode: code,
		Role:         models.RoleCustomer,
		Tier:         models.TierBronze,
		Status:       models.UserStatusActive,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create user: %v", err)
	}
	return user
}

func createTestShop(t *testing.T, db *gorm.DB, id, ownerID uint) *models.Shop {
	shop := &models.Shop{
		ID:           id,
		OwnerID:      ownerID,
		Name:         "Test Nail Shop",
		MainCategory: models.CategoryNail,
		Status:       models.ShopStatusActive,
	}
	if err := db.Create(shop).Error; err != nil {
		t.Fatalf("failed to create shop: %v", err)
	}
	return shop
}

func createTestService(t *testing.T, db *gorm.DB, id, shopID uint, duration, buffer int, price int64) *models.ShopService {
	svc := &models.ShopService{
		ID:              id,
		ShopID:          shopID,
		Name:            "Gel Nails",
		Category:        models.CategoryNail,
		DurationMinutes: duration,
		BufferMinutes:   buffer,
		Price:           decimal.NewFromInt(price),
		IsActive:        true,
	}
	if err := db.Create(svc).Error; err != nil {
		t.Fatalf("failed to create service: %v", err)
	}
	return svc
}

// newTestStack wires the service graph against one in-memory DB. Background
// workers are not started, so reward processing is driven explicitly.
func newTestStack(t *testing.T, db *gorm.DB) (*ReservationService, *AvailabilityService, *PointService, *ReferralService) {
	repo := repository.NewRepository(db)
	notifications := NewNotificationService(db)
	points := NewPointService(db)
	referrals := NewReferralService(db, notifications)
	availabilitySvc := NewAvailabilityService(db, repo)
	reservations := NewReservationService(db, repo, availabilitySvc, points, referrals, notifications)
	return reservations, availabilitySvc, points, referrals
}
