package services

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/google/uuid"

	"github.com/ModawnAI/everything-backend-sub023/internal/apperrors"
	"github.com/ModawnAI/everything-backend-sub023/internal/models"
)

func TestCreateReservationComputesEndTime(t *testing.T) {
	db := setupTestDB(t)
	reservations, _, _, _ := newTestStack(t, db)
	ctx := context.Background()

	owner := createTestUser(t, db, 1, "OWNER111")
	customer := createTestUser(t, db, 2, "CUST1111")
	shop := createTestShop(t, db, 1, owner.ID)
	createTestService(t, db, 1, shop.ID, 60, 15, 80000)

	res, err := reservations.CreateReservation(ctx, CreateReservationRequest{
		UserID:    customer.ID,
		ShopID:    shop.ID,
		Date:      "2025-06-02",
		StartTime: "10:00",
		Services:  []ServiceQuantity{{ServiceID: 1, Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("CreateReservation failed: %v", err)
	}

	if res.Status != models.ReservationRequested {
		t.Errorf("status = %s, want requested", res.Status)
	}
	// 60 minutes of service plus the 15-minute buffer.
	if res.EndTime != "11:15" {
		t.Errorf("end time = %s, want 11:15", res.EndTime)
	}
	if !res.TotalAmount.Equal(decimal.NewFromInt(80000)) {
		t.Errorf("total amount = %s, want 80000", res.TotalAmount)
	}
	if len(res.LineItems) != 1 {
		t.Fatalf("expected 1 line item, got %d", len(res.LineItems))
	}
	if res.LineItems[0].ServiceName != "Gel Nails" {
		t.Errorf("line item snapshot name = %s", res.LineItems[0].ServiceName)
	}
}

func TestCreateReservationRespectsOperatingHours(t *testing.T) {
	db := setupTestDB(t)
	reservations, _, _, _ := newTestStack(t, db)
	ctx := context.Background()

	owner := createTestUser(t, db, 1, "OWNER111")
	customer := createTestUser(t, db, 2, "CUST1111")
	shop := createTestShop(t, db, 1, owner.ID)
	createTestService(t, db, 1, shop.ID, 60, 15, 80000)

	// Monday runs a short day; Tuesday is closed.
	hours := []models.OperatingHour{
		{ShopID: shop.ID, Weekday: 1, OpenTime: "10:00", CloseTime: "14:00"},
		{ShopID: shop.ID, Weekday: 2, OpenTime: "10:00", CloseTime: "14:00", Closed: true},
	}
	for _, h := range hours {
		if err := db.Create(&h).Error; err != nil {
			t.Fatalf("failed to seed operating hours: %v", err)
		}
	}

	base := CreateReservationRequest{
		UserID:   customer.ID,
		ShopID:   shop.ID,
		Services: []ServiceQuantity{{ServiceID: 1, Quantity: 1}},
	}

	before := base
	before.Date = "2025-06-02" // Monday
	before.StartTime = "09:00"
	if _, err := reservations.CreateReservation(ctx, before); apperrors.CodeOf(err) != "OUTSIDE_OPERATING_HOURS" {
		t.Errorf("booking before opening: got %v, want OUTSIDE_OPERATING_HOURS", err)
	}

	overrun := base
	overrun.Date = "2025-06-02"
	overrun.StartTime = "13:30" // ends 14:45, past closing
	if _, err := reservations.CreateReservation(ctx, overrun); apperrors.CodeOf(err) != "OUTSIDE_OPERATING_HOURS" {
		t.Errorf("booking past closing: got %v, want OUTSIDE_OPERATING_HOURS", err)
	}

	closedDay := base
	closedDay.Date = "2025-06-03" // Tuesday
	closedDay.StartTime = "11:00"
	if _, err := reservations.CreateReservation(ctx, closedDay); apperrors.CodeOf(err) != "SHOP_CLOSED" {
		t.Errorf("booking on a closed day: got %v, want SHOP_CLOSED", err)
	}

	// Weekdays without configured hours fall back to the default window.
	night := base
	night.Date = "2025-06-04" // Wednesday
	night.StartTime = "03:00"
	if _, err := reservations.CreateReservation(ctx, night); apperrors.CodeOf(err) != "OUTSIDE_OPERATING_HOURS" {
		t.Errorf("small-hours booking: got %v, want OUTSIDE_OPERATING_HOURS", err)
	}

	ok := base
	ok.Date = "2025-06-02"
	ok.StartTime = "10:00" // ends 11:15, inside the short day
	if _, err := reservations.CreateReservation(ctx, ok); err != nil {
		t.Fatalf("in-window booking failed: %v", err)
	}
}

func TestCreateReservationSlotContention(t *testing.T) {
	db := setupTestDB(t)
	reservations, _, _, _ := newTestStack(t, db)
	ctx := context.Background()

	owner := createTestUser(t, db, 1, "OWNER111")
	first := createTestUser(t, db, 2, "CUST1111")
	second := createTestUser(t, db, 3, "CUST2222")
	shop := createTestShop(t, db, 1, owner.ID)
	createTestService(t, db, 1, shop.ID, 60, 15, 50000)

	req := CreateReservationRequest{
		UserID:    first.ID,
		ShopID:    shop.ID,
		Date:      "2025-06-02",
		StartTime: "10:00",
		Services:  []ServiceQuantity{{ServiceID: 1, Quantity: 1}},
	}
	if _, err := reservations.CreateReservation(ctx, req); err != nil {
		t.Fatalf("first booking failed: %v", err)
	}

	req.UserID = second.ID
	_, err := reservations.CreateReservation(ctx, req)
	if err == nil {
		t.Fatal("expected conflict for identical slot")
	}
	if apperrors.KindOf(err) != apperrors.KindConflict {
		t.Errorf("expected conflict error, got %v", err)
	}
	if !apperrors.IsRetryable(err) {
		t.Error("slot contention must be retryable")
	}

	// Partial overlap loses too: 10:30 starts inside 10:00-11:15.
	req.StartTime = "10:30"
	if _, err := reservations.CreateReservation(ctx, req); apperrors.KindOf(err) != apperrors.KindConflict {
		t.Errorf("expected conflict for overlapping slot, got %v", err)
	}

	// Back-to-back is legal under half-open semantics.
	req.StartTime = "11:15"
	if _, err := reservations.CreateReservation(ctx, req); err != nil {
		t.Errorf("back-to-back booking should succeed: %v", err)
	}
}

func TestCancelledSlotIsReusable(t *testing.T) {
	db := setupTestDB(t)
	reservations, _, _, _ := newTestStack(t, db)
	ctx := context.Background()

	owner := createTestUser(t, db, 1, "OWNER111")
	customer := createTestUser(t, db, 2, "CUST1111")
	shop := createTestShop(t, db, 1, owner.ID)
	createTestService(t, db, 1, shop.ID, 60, 15, 50000)

	req := CreateReservationRequest{
		UserID:    customer.ID,
		ShopID:    shop.ID,
		Date:      "2025-06-02",
		StartTime: "10:00",
		Services:  []ServiceQuantity{{ServiceID: 1, Quantity: 1}},
	}
	res, err := reservations.CreateReservation(ctx, req)
	if err != nil {
		t.Fatalf("booking failed: %v", err)
	}

	customerActor := Actor{UserID: customer.ID, Role: models.RoleCustomer}
	if _, err := reservations.TransitionStatus(ctx, res.ID, models.ReservationCancelledByUser, customerActor, "changed plans"); err != nil {
		t.Fatalf("cancellation failed: %v", err)
	}

	if _, err := reservations.CreateReservation(ctx, req); err != nil {
		t.Errorf("slot should be reusable after cancellation: %v", err)
	}
}

func TestStateMachineGuards(t *testing.T) {
	db := setupTestDB(t)
	reservations, _, _, _ := newTestStack(t, db)
	ctx := context.Background()

	owner := createTestUser(t, db, 1, "OWNER111")
	customer := createTestUser(t, db, 2, "CUST1111")
	stranger := createTestUser(t, db, 3, "STRNG111")
	shop := createTestShop(t, db, 1, owner.ID)
	createTestService(t, db, 1, shop.ID, 60, 15, 50000)

	res, err := reservations.CreateReservation(ctx, CreateReservationRequest{
		UserID:    customer.ID,
		ShopID:    shop.ID,
		Date:      "2025-06-02",
		StartTime: "10:00",
		Services:  []ServiceQuantity{{ServiceID: 1, Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("booking failed: %v", err)
	}

	ownerActor := Actor{UserID: owner.ID, Role: models.RoleShopOwner}
	customerActor := Actor{UserID: customer.ID, Role: models.RoleCustomer}
	strangerActor := Actor{UserID: stranger.ID, Role: models.RoleCustomer}

	// A customer may not confirm their own booking.
	if _, err := reservations.TransitionStatus(ctx, res.ID, models.ReservationConfirmed, customerActor, ""); apperrors.KindOf(err) != apperrors.KindAuthorization {
		t.Errorf("expected authorization error for customer confirm, got %v", err)
	}
	// A stranger may not cancel someone else's booking.
	if _, err := reservations.TransitionStatus(ctx, res.ID, models.ReservationCancelledByUser, strangerActor, ""); apperrors.KindOf(err) != apperrors.KindAuthorization {
		t.Errorf("expected authorization error for stranger cancel, got %v", err)
	}
	// requested cannot jump to no_show.
	if _, err := reservations.TransitionStatus(ctx, res.ID, models.ReservationNoShow, ownerActor, ""); apperrors.KindOf(err) != apperrors.KindValidation {
		t.Errorf("expected validation error for requested->no_show, got %v", err)
	}

	if _, err := reservations.TransitionStatus(ctx, res.ID, models.ReservationConfirmed, ownerActor, ""); err != nil {
		t.Fatalf("owner confirm failed: %v", err)
	}
	if _, err := reservations.TransitionStatus(ctx, res.ID, models.ReservationInProgress, ownerActor, ""); err != nil {
		t.Fatalf("owner in_progress failed: %v", err)
	}
	if _, err := reservations.TransitionStatus(ctx, res.ID, models.ReservationCompleted, ownerActor, ""); err != nil {
		t.Fatalf("owner complete failed: %v", err)
	}

	// Terminal states admit no further transitions...
	if _, err := reservations.TransitionStatus(ctx, res.ID, models.ReservationCancelledByShop, ownerActor, ""); apperrors.KindOf(err) != apperrors.KindValidation {
		t.Errorf("expected validation error out of terminal state, got %v", err)
	}
	// ...but re-submitting the current status is a quiet no-op.
	if _, err := reservations.TransitionStatus(ctx, res.ID, models.ReservationCompleted, ownerActor, ""); err != nil {
		t.Errorf("repeat completion should be a no-op, got %v", err)
	}
}

func TestIdempotentCompletionRewards(t *testing.T) {
	db := setupTestDB(t)
	reservations, _, _, referrals := newTestStack(t, db)
	ctx := context.Background()

	owner := createTestUser(t, db, 1, "OWNER111")
	referrer := createTestUser(t, db, 2, "REFER111")
	customer := createTestUser(t, db, 3, "CUST1111")
	shop := createTestShop(t, db, 1, owner.ID)
	createTestService(t, db, 1, shop.ID, 60, 15, 80000)

	if err := referrals.ApplyReferralCode(ctx, customer.ID, referrer.ReferralCode); err != nil {
		t.Fatalf("failed to apply referral code: %v", err)
	}

	res, err := reservations.CreateReservation(ctx, CreateReservationRequest{
		UserID:    customer.ID,
		ShopID:    shop.ID,
		Date:      "2025-06-02",
		StartTime: "10:00",
		Services:  []ServiceQuantity{{ServiceID: 1, Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("booking failed: %v", err)
	}

	ownerActor := Actor{UserID: owner.ID, Role: models.RoleShopOwner}
	if _, err := reservations.TransitionStatus(ctx, res.ID, models.ReservationConfirmed, ownerActor, ""); err != nil {
		t.Fatalf("confirm failed: %v", err)
	}

	// Complete twice; process the referral reward twice. Workers are not
	// running, so the pipeline is driven explicitly here.
	for i := 0; i < 2; i++ {
		if _, err := reservations.TransitionStatus(ctx, res.ID, models.ReservationCompleted, ownerActor, ""); err != nil {
			t.Fatalf("completion %d failed: %v", i+1, err)
		}
		if err := referrals.ProcessCompletionReward(ctx, res.ID); err != nil {
			t.Fatalf("referral processing %d failed: %v", i+1, err)
		}
	}

	countByType := func(txType models.PointTransactionType) int64 {
		var n int64
		db.Model(&models.PointTransaction{}).
			Where("reservation_id = ? AND type = ?", res.ID, txType).
			Count(&n)
		return n
	}

	if n := countByType(models.PointEarnPurchase); n != 1 {
		t.Errorf("expected exactly 1 purchase transaction, got %d", n)
	}
	if n := countByType(models.PointEarnReferral); n != 1 {
		t.Errorf("expected exactly 1 referral bonus, got %d", n)
	}
	if n := countByType(models.PointEarnReferralCompletion); n > 1 {
		t.Errorf("expected at most 1 completion bonus, got %d", n)
	}

	// The purchase award landed on the reservation row.
	updated, err := reservations.GetReservation(ctx, res.ID)
	if err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if updated.PointsEarned != 2000 {
		t.Errorf("points_earned = %d, want 2000", updated.PointsEarned)
	}
}

func TestCompletionSurvivesRewardPipelineFailure(t *testing.T) {
	db := setupTestDB(t)
	reservations, _, _, _ := newTestStack(t, db)
	ctx := context.Background()

	owner := createTestUser(t, db, 1, "OWNER111")
	customer := createTestUser(t, db, 2, "CUST1111")
	shop := createTestShop(t, db, 1, owner.ID)
	createTestService(t, db, 1, shop.ID, 60, 15, 80000)

	res, err := reservations.CreateReservation(ctx, CreateReservationRequest{
		UserID:    customer.ID,
		ShopID:    shop.ID,
		Date:      "2025-06-02",
		StartTime: "10:00",
		Services:  []ServiceQuantity{{ServiceID: 1, Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("booking failed: %v", err)
	}

	ownerActor := Actor{UserID: owner.ID, Role: models.RoleShopOwner}
	if _, err := reservations.TransitionStatus(ctx, res.ID, models.ReservationConfirmed, ownerActor, ""); err != nil {
		t.Fatalf("confirm failed: %v", err)
	}

	// Break the ledger so every reward insert fails.
	if err := db.Migrator().DropTable(&models.PointTransaction{}); err != nil {
		t.Fatalf("failed to drop ledger table: %v", err)
	}

	if _, err := reservations.TransitionStatus(ctx, res.ID, models.ReservationCompleted, ownerActor, ""); err != nil {
		t.Fatalf("completion must succeed despite reward failure: %v", err)
	}

	var stored models.Reservation
	if err := db.Where("id = ?", res.ID).First(&stored).Error; err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if stored.Status != models.ReservationCompleted {
		t.Errorf("status = %s, want completed (durably persisted)", stored.Status)
	}
}

func TestBatchTransitionPartialFailure(t *testing.T) {
	db := setupTestDB(t)
	reservations, _, _, _ := newTestStack(t, db)
	ctx := context.Background()

	owner := createTestUser(t, db, 1, "OWNER111")
	customer := createTestUser(t, db, 2, "CUST1111")
	shop := createTestShop(t, db, 1, owner.ID)
	createTestService(t, db, 1, shop.ID, 60, 15, 50000)

	adminActor := Actor{UserID: 99, Role: models.RoleAdmin}

	var ids []uuid.UUID
	for _, start := range []string{"09:00", "11:00", "13:00"} {
		res, err := reservations.CreateReservation(ctx, CreateReservationRequest{
			UserID:    customer.ID,
			ShopID:    shop.ID,
			Date:      "2025-06-02",
			StartTime: start,
			Services:  []ServiceQuantity{{ServiceID: 1, Quantity: 1}},
		})
		if err != nil {
			t.Fatalf("booking at %s failed: %v", start, err)
		}
		ids = append(ids, res.ID)
	}

	// Cancel the middle one so confirming it later fails.
	if _, err := reservations.TransitionStatus(ctx, ids[1], models.ReservationCancelledByShop, adminActor, "closed"); err != nil {
		t.Fatalf("cancellation failed: %v", err)
	}

	results := reservations.BatchTransition(ctx, ids, models.ReservationConfirmed, adminActor, "")
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}

	succeeded := 0
	for _, r := range results {
		if r.Success {
			succeeded++
		} else if r.ReservationID != ids[1] {
			t.Errorf("unexpected failure for %s: %s", r.ReservationID, r.Error)
		}
	}
	if succeeded != 2 {
		t.Errorf("expected 2 successes, got %d", succeeded)
	}

	// The failed unit did not roll back its neighbours.
	var confirmed int64
	db.Model(&models.Reservation{}).
		Where("status = ?", models.ReservationConfirmed).
		Count(&confirmed)
	if confirmed != 2 {
		t.Errorf("expected 2 confirmed rows, got %d", confirmed)
	}
}
