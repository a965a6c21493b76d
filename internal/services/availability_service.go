package services

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/ModawnAI/everything-backend-sub023/internal/apperrors"
	"github.com/ModawnAI/everything-backend-sub023/internal/availability"
	"github.com/ModawnAI/everything-backend-sub023/internal/models"
	"github.com/ModawnAI/everything-backend-sub023/internal/repository"
)

// AvailabilityService answers "which slots can this shop still accept".
// The answer is a point-in-time snapshot; claiming a slot is the
// repository's concurrency-safe create, not this query.
type AvailabilityService struct {
	db   *gorm.DB
	repo *repository.Repository
}

func NewAvailabilityService(db *gorm.DB, repo *repository.Repository) *AvailabilityService {
	return &AvailabilityService{db: db, repo: repo}
}

// ServiceQuantity selects one catalog service and how many units of it.
type ServiceQuantity struct {
	ServiceID uint `json:"service_id"`
	Quantity  int  `json:"quantity"`
}

// SlotQuery is a validated available-slots request.
type SlotQuery struct {
	ShopID    uint
	Date      string // YYYY-MM-DD
	Services  []ServiceQuantity
	StartTime string // optional HH:MM bound
	EndTime   string // optional HH:MM bound
	Interval  int    // minutes, 0 means default
}

// SlotList is the available-slots response shape.
type SlotList struct {
	Slots          []availability.Slot `json:"slots"`
	TotalSlots     int                 `json:"totalSlots"`
	AvailableCount int                 `json:"availableCount"`
}

// GetAvailableSlots validates the query, generates candidate slots from the
// shop's operating window, and flags each candidate against existing
// non-cancelled reservations.
func (s *AvailabilityService) GetAvailableSlots(ctx context.Context, q SlotQuery) (*SlotList, error) {
	if q.ShopID == 0 || q.Date == "" || len(q.Services) == 0 {
		return nil, apperrors.Validationf("MISSING_REQUIRED_PARAMETERS",
			"shop id, date and at least one service are required")
	}

	weekday, err := availability.ParseDate(q.Date)
	if err != nil {
		return nil, apperrors.Validationf("INVALID_DATE_FORMAT", "date must be YYYY-MM-DD, got %q", q.Date)
	}

	interval := q.Interval
	if interval == 0 {
		interval = availability.DefaultInterval
	}
	if err := availability.ValidateInterval(interval); err != nil {
		return nil, err
	}

	startBound := -1
	if q.StartTime != "" {
		startBound, err = availability.ParseTimeOfDay(q.StartTime)
		if err != nil {
			return nil, apperrors.Validationf("INVALID_START_TIME", "start time must be HH:MM, got %q", q.StartTime)
		}
	}
	endBound := -1
	if q.EndTime != "" {
		endBound, err = availability.ParseTimeOfDay(q.EndTime)
		if err != nil {
			return nil, apperrors.Validationf("INVALID_END_TIME", "end time must be HH:MM, got %q", q.EndTime)
		}
	}

	var shop models.Shop
	if err := s.db.WithContext(ctx).Where("id = ?", q.ShopID).First(&shop).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFoundf("SHOP_NOT_FOUND", "shop %d not found", q.ShopID)
		}
		return nil, err
	}

	totalDuration, _, err := s.TotalDuration(ctx, q.ShopID, q.Services)
	if err != nil {
		return nil, err
	}

	openMin, closeMin, closed, err := s.operatingWindow(ctx, q.ShopID, int(weekday))
	if err != nil {
		return nil, err
	}
	if closed {
		return &SlotList{Slots: []availability.Slot{}}, nil
	}

	slots := availability.GenerateSlots(openMin, closeMin, totalDuration, interval)
	slots = availability.FilterBounds(slots, startBound, endBound)

	existing, err := s.repo.ListActiveByShopDate(ctx, q.ShopID, q.Date)
	if err != nil {
		return nil, fmt.Errorf("failed to load reservations: %w", err)
	}
	busy := make([]availability.Interval, 0, len(existing))
	for _, res := range existing {
		start, err := availability.ParseTimeOfDay(res.StartTime)
		if err != nil {
			continue
		}
		end, err := availability.ParseTimeOfDay(res.EndTime)
		if err != nil {
			continue
		}
		busy = append(busy, availability.Interval{StartMin: start, EndMin: end})
	}

	slots = availability.MarkUnavailable(slots, busy)

	return &SlotList{
		Slots:          slots,
		TotalSlots:     len(slots),
		AvailableCount: availability.CountAvailable(slots),
	}, nil
}

// TotalDuration computes the booked duration in minutes plus the trailing
// buffer, and returns the loaded services keyed by id. The buffer is the
// largest configured among the selected services, defaulting when none set.
func (s *AvailabilityService) TotalDuration(ctx context.Context, shopID uint, items []ServiceQuantity) (int, map[uint]models.ShopService, error) {
	ids := make([]uint, 0, len(items))
	for _, item := range items {
		if item.Quantity <= 0 {
			return 0, nil, apperrors.Validationf("INVALID_QUANTITY", "service quantity must be positive")
		}
		ids = append(ids, item.ServiceID)
	}

	var services []models.ShopService
	if err := s.db.WithContext(ctx).
		Where("shop_id = ? AND id IN ? AND is_active = ?", shopID, ids, true).
		Find(&services).Error; err != nil {
		return 0, nil, fmt.Errorf("failed to load services: %w", err)
	}
	byID := make(map[uint]models.ShopService, len(services))
	for _, svc := range services {
		byID[svc.ID] = svc
	}

	total := 0
	buffer := 0
	for _, item := range items {
		svc, ok := byID[item.ServiceID]
		if !ok {
			return 0, nil, apperrors.NotFoundf("SERVICE_NOT_FOUND",
				"service %d not found for shop %d", item.ServiceID, shopID)
		}
		total += svc.DurationMinutes * item.Quantity
		if svc.BufferMinutes > buffer {
			buffer = svc.BufferMinutes
		}
	}
	if buffer == 0 {
		buffer = availability.DefaultBufferMinutes
	}
	return total + buffer, byID, nil
}

// operatingWindow resolves the shop's booking window for a weekday, falling
// back to the default window when none is configured.
func (s *AvailabilityService) operatingWindow(ctx context.Context, shopID uint, weekday int) (openMin, closeMin int, closed bool, err error) {
	var hours models.OperatingHour
	dbErr := s.db.WithContext(ctx).
		Where("shop_id = ? AND weekday = ?", shopID, weekday).
		First(&hours).Error

	openTime, closeTime := availability.DefaultOpenTime, availability.DefaultCloseTime
	if dbErr == nil {
		if hours.Closed {
			return 0, 0, true, nil
		}
		openTime, closeTime = hours.OpenTime, hours.CloseTime
	} else if !errors.Is(dbErr, gorm.ErrRecordNotFound) {
		return 0, 0, false, dbErr
	}

	openMin, err = availability.ParseTimeOfDay(openTime)
	if err != nil {
		return 0, 0, false, fmt.Errorf("invalid open time for shop %d: %w", shopID, err)
	}
	closeMin, err = availability.ParseTimeOfDay(closeTime)
	if err != nil {
		return 0, 0, false, fmt.Errorf("invalid close time for shop %d: %w", shopID, err)
	}
	return openMin, closeMin, false, nil
}
