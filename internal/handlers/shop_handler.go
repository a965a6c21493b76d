package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/ModawnAI/everything-backend-sub023/internal/auth"
	"github.com/ModawnAI/everything-backend-sub023/internal/availability"
	"github.com/ModawnAI/everything-backend-sub023/internal/models"
)

type ShopHandler struct {
	db *gorm.DB
}

func NewShopHandler(db *gorm.DB) *ShopHandler {
	return &ShopHandler{db: db}
}

// loadOwnedShop resolves the shop and enforces owner-or-admin access.
func (h *ShopHandler) loadOwnedShop(c *gin.Context) (*models.Shop, bool) {
	shopID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid shop ID"})
		return nil, false
	}

	var shop models.Shop
	if err := h.db.Where("id = ?", shopID).First(&shop).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Shop not found"})
		return nil, false
	}

	userID, _ := auth.GetUserID(c)
	role, _ := auth.GetRole(c)
	if shop.OwnerID != userID && role != models.RoleAdmin {
		c.JSON(http.StatusForbidden, gin.H{"error": "Only the shop owner may manage this shop"})
		return nil, false
	}
	return &shop, true
}

// GetOperatingHours returns a shop's weekly booking windows.
// GET /api/shops/:id/hours
func (h *ShopHandler) GetOperatingHours(c *gin.Context) {
	shopID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid shop ID"})
		return
	}

	var hours []models.OperatingHour
	if err := h.db.Where("shop_id = ?", shopID).Order("weekday ASC").Find(&hours).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get operating hours"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    hours,
	})
}

// UpdateOperatingHours replaces the shop's window for one weekday.
// PUT /api/shops/:id/hours
func (h *ShopHandler) UpdateOperatingHours(c *gin.Context) {
	shop, ok := h.loadOwnedShop(c)
	if !ok {
		return
	}

	var req struct {
		Weekday   int    `json:"weekday"`
		OpenTime  string `json:"open_time"`
		CloseTime string `json:"close_time"`
		Closed    bool   `json:"closed"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.Weekday < 0 || req.Weekday > 6 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "weekday must be 0 (Sunday) through 6 (Saturday)"})
		return
	}
	if !req.Closed {
		open, err := availability.ParseTimeOfDay(req.OpenTime)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "open_time must be HH:MM", "code": "INVALID_START_TIME"})
			return
		}
		closeMin, err := availability.ParseTimeOfDay(req.CloseTime)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "close_time must be HH:MM", "code": "INVALID_END_TIME"})
			return
		}
		if closeMin <= open {
			c.JSON(http.StatusBadRequest, gin.H{"error": "close_time must be after open_time"})
			return
		}
	}

	hour := models.OperatingHour{
		ShopID:    shop.ID,
		Weekday:   req.Weekday,
		OpenTime:  req.OpenTime,
		CloseTime: req.CloseTime,
		Closed:    req.Closed,
	}

	err := h.db.Where("shop_id = ? AND weekday = ?", shop.ID, req.Weekday).
		Assign(map[string]interface{}{
			"open_time":  req.OpenTime,
			"close_time": req.CloseTime,
			"closed":     req.Closed,
		}).
		FirstOrCreate(&hour).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update operating hours"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    hour,
	})
}

// GetServices lists a shop's active services.
// GET /api/shops/:id/services
func (h *ShopHandler) GetServices(c *gin.Context) {
	shopID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid shop ID"})
		return
	}

	var shopServices []models.ShopService
	if err := h.db.Where("shop_id = ? AND is_active = ?", shopID, true).
		Order("id ASC").Find(&shopServices).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get services"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    shopServices,
		"count":   len(shopServices),
	})
}

// CreateService adds a bookable service to the shop catalog.
// POST /api/shops/:id/services
func (h *ShopHandler) CreateService(c *gin.Context) {
	shop, ok := h.loadOwnedShop(c)
	if !ok {
		return
	}

	var req struct {
		Name            string          `json:"name" binding:"required"`
		Category        string          `json:"category" binding:"required"`
		DurationMinutes int             `json:"duration_minutes" binding:"required"`
		BufferMinutes   int             `json:"buffer_minutes"`
		Price           decimal.Decimal `json:"price" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.DurationMinutes <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "duration_minutes must be positive"})
		return
	}

	service := models.ShopService{
		ShopID:          shop.ID,
		Name:            req.Name,
		Category:        models.ServiceCategory(req.Category),
		DurationMinutes: req.DurationMinutes,
		BufferMinutes:   req.BufferMinutes,
		Price:           req.Price,
		IsActive:        true,
	}
	if err := h.db.Create(&service).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create service"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    service,
	})
}
