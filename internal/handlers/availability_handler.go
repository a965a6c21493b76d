package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ModawnAI/everything-backend-sub023/internal/services"
)

type AvailabilityHandler struct {
	service *services.AvailabilityService
}

func NewAvailabilityHandler(service *services.AvailabilityService) *AvailabilityHandler {
	return &AvailabilityHandler{service: service}
}

// GetAvailableSlots returns candidate time slots for a shop and date.
// GET /api/shops/:id/available-slots?date=...&services=1,2x2&start=&end=&interval=
func (h *AvailabilityHandler) GetAvailableSlots(c *gin.Context) {
	shopID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid shop ID"})
		return
	}

	query := services.SlotQuery{
		ShopID:    uint(shopID),
		Date:      c.Query("date"),
		StartTime: c.Query("start"),
		EndTime:   c.Query("end"),
	}

	if raw := c.Query("interval"); raw != "" {
		interval, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid interval", "code": "INVALID_INTERVAL"})
			return
		}
		query.Interval = interval
	}

	query.Services = parseServiceList(c.Query("services"))

	result, err := h.service.GetAvailableSlots(c.Request.Context(), query)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    result,
	})
}

// parseServiceList parses "3,5x2" into service selections: a bare id means
// quantity 1, idxN means quantity N. Malformed entries are dropped and
// caught by the service's required-parameter validation.
func parseServiceList(raw string) []services.ServiceQuantity {
	var items []services.ServiceQuantity
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		qty := 1
		if i := strings.IndexByte(part, 'x'); i > 0 {
			n, err := strconv.Atoi(part[i+1:])
			if err != nil {
				continue
			}
			qty = n
			part = part[:i]
		}
		id, err := strconv.ParseUint(part, 10, 32)
		if err != nil {
			continue
		}
		items = append(items, services.ServiceQuantity{ServiceID: uint(id), Quantity: qty})
	}
	return items
}
