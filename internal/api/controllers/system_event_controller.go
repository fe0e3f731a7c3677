package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"futures_engine/internal/common"
	"futures_engine/internal/interfaces/repository"
)

// SystemEventController exposes the operational audit log (SUPPLEMENT,
// models.SystemEvent) every supervised loop writes to on panic or other
// notable occurrence, read-only.
type SystemEventController struct {
	events repository.SystemEventRepository
}

func NewSystemEventController(events repository.SystemEventRepository) *SystemEventController {
	return &SystemEventController{events: events}
}

// GetRecent returns the most recent system events, newest first.
// @Summary Recent system events
// @Tags System
// @Produce json
// @Param limit query int false "max rows to return"
// @Success 200 {object} map[string]interface{} "events ([]models.SystemEvent) and count"
// @Router /api/v1/system/events [get]
func (sc *SystemEventController) GetRecent(c *gin.Context) {
	limit := 100
	if raw := c.Query("limit"); raw != "" {
		if l, err := strconv.Atoi(raw); err == nil && l > 0 {
			limit = l
		}
	}

	events, err := sc.events.Recent(c.Request.Context(), limit)
	if err != nil {
		common.JSON(c, http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	common.JSON(c, http.StatusOK, gin.H{"events": events, "count": len(events)})
}
