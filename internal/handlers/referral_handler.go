package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/ModawnAI/everything-backend-sub023/internal/auth"
	"github.com/ModawnAI/everything-backend-sub023/internal/models"
	"github.com/ModawnAI/everything-backend-sub023/internal/services"
)

type ReferralHandler struct {
	db      *gorm.DB
	service *services.ReferralService
}

func NewReferralHandler(db *gorm.DB, service *services.ReferralService) *ReferralHandler {
	return &ReferralHandler{db: db, service: service}
}

// GetReferralCode returns the authenticated user's own referral code.
// GET /api/referral/code
func (h *ReferralHandler) GetReferralCode(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var user models.User
	if err := h.db.Where("id = ?", userID).First(&user).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get referral code"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    gin.H{"code": user.ReferralCode},
	})
}

// ValidateCode reports whether an active referrer owns the code. Used at
// signup, so it is reachable without authentication.
// GET /api/referral/validate?code=...
func (h *ReferralHandler) ValidateCode(c *gin.Context) {
	code := c.Query("code")
	if code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "code is required", "code": "MISSING_REQUIRED_PARAMETERS"})
		return
	}

	valid, _, err := h.service.ValidateCode(c.Request.Context(), code)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    gin.H{"valid": valid},
	})
}

// ApplyReferralCode records who referred the authenticated user.
// POST /api/referral/apply
func (h *ReferralHandler) ApplyReferralCode(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req struct {
		Code string `json:"code" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.service.ApplyReferralCode(c.Request.Context(), userID, req.Code); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Referral code applied successfully",
	})
}

// GetReferrals returns the users referred by the authenticated user.
// GET /api/referral/referrals
func (h *ReferralHandler) GetReferrals(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	referrals, err := h.service.GetUserReferrals(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    referrals,
		"count":   len(referrals),
	})
}
