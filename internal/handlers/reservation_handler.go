package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ModawnAI/everything-backend-sub023/internal/auth"
	"github.com/ModawnAI/everything-backend-sub023/internal/models"
	"github.com/ModawnAI/everything-backend-sub023/internal/services"
)

type ReservationHandler struct {
	service *services.ReservationService
}

func NewReservationHandler(service *services.ReservationService) *ReservationHandler {
	return &ReservationHandler{service: service}
}

// CreateReservation books a slot for the authenticated user.
// POST /api/reservations
func (h *ReservationHandler) CreateReservation(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req struct {
		ShopID        uint                       `json:"shop_id" binding:"required"`
		Date          string                     `json:"date" binding:"required"`
		StartTime     string                     `json:"start_time" binding:"required"`
		Services      []services.ServiceQuantity `json:"services" binding:"required"`
		PointsToUse   int64                      `json:"points_to_use"`
		Preferences   map[string]interface{}     `json:"preferences"`
		CustomerNotes string                     `json:"customer_notes"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	reservation, err := h.service.CreateReservation(c.Request.Context(), services.CreateReservationRequest{
		UserID:        userID,
		ShopID:        req.ShopID,
		Date:          req.Date,
		StartTime:     req.StartTime,
		Services:      req.Services,
		PointsToUse:   req.PointsToUse,
		Preferences:   req.Preferences,
		CustomerNotes: req.CustomerNotes,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    reservation,
	})
}

// GetReservation returns one reservation with line items.
// GET /api/reservations/:id
func (h *ReservationHandler) GetReservation(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid reservation ID"})
		return
	}

	reservation, err := h.service.GetReservation(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    reservation,
	})
}

// GetMyReservations lists the authenticated user's bookings.
// GET /api/reservations
func (h *ReservationHandler) GetMyReservations(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	reservations, err := h.service.ListUserReservations(c.Request.Context(), userID, limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    reservations,
		"count":   len(reservations),
	})
}

// UpdateStatus drives the reservation state machine.
// PUT /api/reservations/:id/status
func (h *ReservationHandler) UpdateStatus(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}
	role, _ := auth.GetRole(c)

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid reservation ID"})
		return
	}

	var req struct {
		Status string `json:"status" binding:"required"`
		Reason string `json:"reason"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	actor := services.Actor{UserID: userID, Role: role}
	reservation, err := h.service.TransitionStatus(c.Request.Context(), id,
		models.ReservationStatus(req.Status), actor, req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    reservation,
	})
}
