package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ModawnAI/everything-backend-sub023/internal/auth"
	"github.com/ModawnAI/everything-backend-sub023/internal/models"
	"github.com/ModawnAI/everything-backend-sub023/internal/services"
)

type AdminHandler struct {
	db           *gorm.DB
	reservations *services.ReservationService
}

func NewAdminHandler(db *gorm.DB, reservations *services.ReservationService) *AdminHandler {
	return &AdminHandler{db: db, reservations: reservations}
}

// BatchUpdateStatus applies one status transition to many reservations.
// Each unit succeeds or fails on its own; the response is an aggregate
// report, not an all-or-nothing result.
// POST /api/admin/reservations/status
func (h *AdminHandler) BatchUpdateStatus(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}
	role, _ := auth.GetRole(c)

	var req struct {
		ReservationIDs []string `json:"reservation_ids" binding:"required"`
		Status         string   `json:"status" binding:"required"`
		Reason         string   `json:"reason"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ids := make([]uuid.UUID, 0, len(req.ReservationIDs))
	for _, raw := range req.ReservationIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid reservation ID: " + raw})
			return
		}
		ids = append(ids, id)
	}

	actor := services.Actor{UserID: userID, Role: role}
	results := h.reservations.BatchTransition(c.Request.Context(), ids,
		models.ReservationStatus(req.Status), actor, req.Reason)

	succeeded := 0
	for _, r := range results {
		if r.Success {
			succeeded++
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"data":      results,
		"succeeded": succeeded,
		"failed":    len(results) - succeeded,
	})
}

// ResetReferrer clears a user's referrer fields. This is the only path that
// may change them once set.
// POST /api/admin/users/:id/reset-referrer
func (h *AdminHandler) ResetReferrer(c *gin.Context) {
	var user models.User
	if err := h.db.Where("id = ?", c.Param("id")).First(&user).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	err := h.db.Model(&models.User{}).Where("id = ?", user.ID).
		Updates(map[string]interface{}{
			"referred_by_code": nil,
			"referrer_set_at":  nil,
		}).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to reset referrer"})
		return
	}

	if err := h.db.Model(&models.ReferralRelationship{}).
		Where("referred_id = ?", user.ID).
		Update("status", "inactive").Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to deactivate referral relationship"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Referrer reset",
	})
}
