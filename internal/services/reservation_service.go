package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/ModawnAI/everything-backend-sub023/internal/apperrors"
	"github.com/ModawnAI/everything-backend-sub023/internal/availability"
	"github.com/ModawnAI/everything-backend-sub023/internal/models"
	"github.com/ModawnAI/everything-backend-sub023/internal/repository"
)

// Actor identifies who is driving a reservation transition.
type Actor struct {
	UserID uint
	Role   models.UserRole
}

func (a Actor) isAdmin() bool {
	return a.Role == models.RoleAdmin
}

// RefundRequester is the external collaborator that computes refunds for
// cancelled reservations. Refund mechanics are out of scope here.
type RefundRequester interface {
	RequestRefundCalculation(ctx context.Context, reservationID uuid.UUID) error
}

// ReservationService owns the reservation lifecycle: slot-exclusive
// creation, the status state machine, and the completion-triggered reward
// handoff.
type ReservationService struct {
	db              *gorm.DB
	repo            *repository.Repository
	availabilitySvc *AvailabilityService
	points          *PointService
	referrals       *ReferralService
	notifications   *NotificationService
	refunds         RefundRequester
	now             func() time.Time
}

func NewReservationService(
	db *gorm.DB,
	repo *repository.Repository,
	availabilitySvc *AvailabilityService,
	points *PointService,
	referrals *ReferralService,
	notifications *NotificationService,
) *ReservationService {
	return &ReservationService{
		db:              db,
		repo:            repo,
		availabilitySvc: availabilitySvc,
		points:          points,
		referrals:       referrals,
		notifications:   notifications,
		now:             time.Now,
	}
}

// WithRefundRequester wires the refund collaborator.
func (s *ReservationService) WithRefundRequester(r RefundRequester) *ReservationService {
	s.refunds = r
	return s
}

// CreateReservationRequest is a booking submission.
type CreateReservationRequest struct {
	UserID        uint
	ShopID        uint
	Date          string // YYYY-MM-DD
	StartTime     string // HH:MM
	Services      []ServiceQuantity
	PointsToUse   int64
	Preferences   map[string]interface{}
	CustomerNotes string
}

// CreateReservation books a slot under the calendar exclusivity guarantee.
// Contention surfaces as a retryable conflict; the caller should re-query
// availability and resubmit.
func (s *ReservationService) CreateReservation(ctx context.Context, req CreateReservationRequest) (*models.Reservation, error) {
	if req.UserID == 0 || req.ShopID == 0 || req.Date == "" || req.StartTime == "" || len(req.Services) == 0 {
		return nil, apperrors.Validationf("MISSING_REQUIRED_PARAMETERS",
			"user, shop, date, start time and services are required")
	}
	weekday, err := availability.ParseDate(req.Date)
	if err != nil {
		return nil, apperrors.Validationf("INVALID_DATE_FORMAT", "date must be YYYY-MM-DD, got %q", req.Date)
	}
	startMin, err := availability.ParseTimeOfDay(req.StartTime)
	if err != nil {
		return nil, apperrors.Validationf("INVALID_START_TIME", "start time must be HH:MM, got %q", req.StartTime)
	}

	totalDuration, servicesByID, err := s.availabilitySvc.TotalDuration(ctx, req.ShopID, req.Services)
	if err != nil {
		return nil, err
	}
	endMin := startMin + totalDuration
	if endMin >= 24*60 {
		return nil, apperrors.Validationf("INVALID_START_TIME",
			"booking starting at %s would run past midnight", req.StartTime)
	}

	openMin, closeMin, closed, err := s.availabilitySvc.operatingWindow(ctx, req.ShopID, int(weekday))
	if err != nil {
		return nil, err
	}
	if closed {
		return nil, apperrors.Validationf("SHOP_CLOSED", "shop is closed on %s", req.Date)
	}
	if startMin < openMin || endMin > closeMin {
		return nil, apperrors.Validationf("OUTSIDE_OPERATING_HOURS",
			"booking %s-%s falls outside the %s-%s operating window",
			availability.FormatTimeOfDay(startMin), availability.FormatTimeOfDay(endMin),
			availability.FormatTimeOfDay(openMin), availability.FormatTimeOfDay(closeMin))
	}

	totalAmount := decimal.Zero
	lineItems := make([]models.ReservationLineItem, 0, len(req.Services))
	for _, item := range req.Services {
		svc := servicesByID[item.ServiceID]
		totalAmount = totalAmount.Add(svc.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
		lineItems = append(lineItems, models.ReservationLineItem{
			ServiceID:       svc.ID,
			ServiceName:     svc.Name,
			Quantity:        item.Quantity,
			DurationMinutes: svc.DurationMinutes,
			UnitPrice:       svc.Price,
		})
	}

	if req.PointsToUse > 0 {
		balance, err := s.points.GetBalance(ctx, req.UserID)
		if err != nil {
			return nil, err
		}
		if balance.Available < req.PointsToUse {
			return nil, apperrors.Validationf("INSUFFICIENT_POINTS",
				"available balance %d is less than requested %d", balance.Available, req.PointsToUse)
		}
		if decimal.NewFromInt(req.PointsToUse).GreaterThan(totalAmount) {
			return nil, apperrors.Validationf("INVALID_POINT_AMOUNT",
				"points used cannot exceed the reservation total")
		}
	}

	// Snapshot preferences at creation; later profile edits must not leak in.
	preferences := ""
	if len(req.Preferences) > 0 {
		raw, err := json.Marshal(req.Preferences)
		if err != nil {
			return nil, apperrors.Validationf("INVALID_PREFERENCES", "preferences are not serializable")
		}
		preferences = string(raw)
	}

	reservation := &models.Reservation{
		ID:            uuid.New(),
		UserID:        req.UserID,
		ShopID:        req.ShopID,
		Date:          req.Date,
		StartTime:     availability.FormatTimeOfDay(startMin),
		EndTime:       availability.FormatTimeOfDay(endMin),
		Status:        models.ReservationRequested,
		TotalAmount:   totalAmount,
		PointsUsed:    req.PointsToUse,
		Preferences:   preferences,
		CustomerNotes: req.CustomerNotes,
		LineItems:     lineItems,
	}

	if err := s.repo.CreateReservationExclusive(ctx, reservation); err != nil {
		return nil, err
	}

	if req.PointsToUse > 0 {
		if _, err := s.points.UsePoints(ctx, req.UserID, req.PointsToUse, reservation.ID); err != nil {
			// The slot is already claimed; drop the redemption instead of
			// unwinding the booking.
			log.Printf("Error redeeming %d points for reservation %s: %v", req.PointsToUse, reservation.ID, err)
			reservation.PointsUsed = 0
			if dbErr := s.db.WithContext(ctx).Model(reservation).Update("points_used", 0).Error; dbErr != nil {
				log.Printf("Error clearing points_used on reservation %s: %v", reservation.ID, dbErr)
			}
		}
	}

	if s.notifications != nil {
		s.notifications.Enqueue(models.Notification{
			UserID: req.UserID,
			Type:   "reservation_requested",
			Title:  "Reservation requested",
			Body:   fmt.Sprintf("Your booking on %s at %s is awaiting confirmation.", reservation.Date, reservation.StartTime),
		})
	}

	log.Printf("Reservation %s created: shop %d on %s %s-%s", reservation.ID, req.ShopID, req.Date, reservation.StartTime, reservation.EndTime)
	return reservation, nil
}

// TransitionStatus moves a reservation through the state machine. Repeating
// a transition into the current status is a no-op, not an error, and never
// re-fires completion side effects.
func (s *ReservationService) TransitionStatus(ctx context.Context, id uuid.UUID, target models.ReservationStatus, actor Actor, reason string) (*models.Reservation, error) {
	reservation, err := s.repo.GetReservationByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if reservation.Status == target {
		return reservation, nil
	}
	if reservation.Status.IsTerminal() {
		return nil, apperrors.Validationf("INVALID_TRANSITION",
			"reservation is already %s", reservation.Status)
	}
	if !models.CanTransition(reservation.Status, target) {
		return nil, apperrors.Validationf("INVALID_TRANSITION",
			"cannot transition from %s to %s", reservation.Status, target)
	}
	if err := s.authorizeTransition(ctx, reservation, target, actor); err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if reason != "" {
		updates["status_reason"] = reason
	}
	now := s.now()
	if target == models.ReservationCompleted {
		updates["completed_at"] = now
	}

	moved, err := s.repo.TransitionStatus(ctx, id, reservation.Status, target, updates)
	if err != nil {
		return nil, err
	}
	if !moved {
		// Someone else won the transition race. Re-read and treat an
		// identical outcome as a no-op so retries stay safe.
		current, err := s.repo.GetReservationByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if current.Status == target {
			return current, nil
		}
		return nil, apperrors.Conflictf("TRANSITION_CONFLICT",
			"reservation moved to %s concurrently", current.Status)
	}

	reservation.Status = target
	reservation.StatusReason = reason
	if target == models.ReservationCompleted {
		reservation.CompletedAt = &now
		s.onCompleted(ctx, reservation)
	}
	if target.IsCancelled() && target != models.ReservationNoShow {
		s.onCancelled(ctx, reservation)
	}

	if s.notifications != nil {
		s.notifications.Enqueue(models.Notification{
			UserID: reservation.UserID,
			Type:   "reservation_" + string(target),
			Title:  "Reservation update",
			Body:   fmt.Sprintf("Your booking on %s is now %s.", reservation.Date, target),
		})
	}

	log.Printf("Reservation %s: %s (by user %d)", id, target, actor.UserID)
	return reservation, nil
}

// onCompleted fires the reward pipeline. Purchase points are issued in the
// request; the referral reward is handed to the worker so its latency or
// failure cannot touch this response. Neither can undo the transition,
// which is already durable.
func (s *ReservationService) onCompleted(ctx context.Context, reservation *models.Reservation) {
	if s.points != nil {
		tx, err := s.points.AwardPurchasePoints(ctx, reservation)
		if err != nil {
			log.Printf("Error awarding purchase points for reservation %s: %v", reservation.ID, err)
		} else if tx != nil {
			reservation.PointsEarned = tx.Amount
			if dbErr := s.db.WithContext(ctx).Model(reservation).
				Update("points_earned", tx.Amount).Error; dbErr != nil {
				log.Printf("Error recording points_earned on reservation %s: %v", reservation.ID, dbErr)
			}
		}
	}

	if s.referrals != nil {
		s.referrals.EnqueueCompletionReward(reservation.ID)
	}
}

// onCancelled hands the reservation to the refund collaborator. Cancellation
// never enters the reward pipeline.
func (s *ReservationService) onCancelled(ctx context.Context, reservation *models.Reservation) {
	if s.refunds == nil {
		return
	}
	if err := s.refunds.RequestRefundCalculation(ctx, reservation.ID); err != nil {
		log.Printf("Error requesting refund calculation for reservation %s: %v", reservation.ID, err)
	}
}

// authorizeTransition enforces who may drive each edge: customers may only
// cancel their own bookings; everything else needs the shop owner or an
// admin.
func (s *ReservationService) authorizeTransition(ctx context.Context, reservation *models.Reservation, target models.ReservationStatus, actor Actor) error {
	if actor.isAdmin() {
		return nil
	}

	if target == models.ReservationCancelledByUser {
		if actor.UserID == reservation.UserID {
			return nil
		}
		return apperrors.Authorizationf("NOT_RESERVATION_OWNER",
			"only the booking customer may cancel this reservation")
	}

	var shop models.Shop
	if err := s.db.WithContext(ctx).Where("id = ?", reservation.ShopID).First(&shop).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.NotFoundf("SHOP_NOT_FOUND", "shop %d not found", reservation.ShopID)
		}
		return err
	}
	if shop.OwnerID != actor.UserID {
		return apperrors.Authorizationf("NOT_SHOP_OWNER",
			"only the shop owner or an admin may perform this transition")
	}
	return nil
}

// BatchTransitionResult reports one unit of a bulk transition.
type BatchTransitionResult struct {
	ReservationID uuid.UUID `json:"reservation_id"`
	Success       bool      `json:"success"`
	Error         string    `json:"error,omitempty"`
}

// BatchTransition applies one target status to many reservations. Each unit
// succeeds or fails independently; there is no all-or-nothing transaction
// across unrelated bookings.
func (s *ReservationService) BatchTransition(ctx context.Context, ids []uuid.UUID, target models.ReservationStatus, actor Actor, reason string) []BatchTransitionResult {
	results := make([]BatchTransitionResult, 0, len(ids))
	for _, id := range ids {
		_, err := s.TransitionStatus(ctx, id, target, actor, reason)
		result := BatchTransitionResult{ReservationID: id, Success: err == nil}
		if err != nil {
			result.Error = err.Error()
		}
		results = append(results, result)
	}
	return results
}

// GetReservation loads one reservation with line items.
func (s *ReservationService) GetReservation(ctx context.Context, id uuid.UUID) (*models.Reservation, error) {
	return s.repo.GetReservationByID(ctx, id)
}

// ListUserReservations returns a customer's bookings, newest first.
func (s *ReservationService) ListUserReservations(ctx context.Context, userID uint, limit, offset int) ([]models.Reservation, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.repo.ListByUser(ctx, userID, limit, offset)
}
