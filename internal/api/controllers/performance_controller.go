package controllers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"futures_engine/internal/common"
	"futures_engine/internal/interfaces/repository"
)

// PerformanceController exposes the daily PerformanceMetric rollup
// (SUPPLEMENT, SPEC_FULL.md §3) read-only over an optional day-count window.
type PerformanceController struct {
	exchangeID uint
	metrics    repository.PerformanceMetricRepository
}

func NewPerformanceController(exchangeID uint, metrics repository.PerformanceMetricRepository) *PerformanceController {
	return &PerformanceController{exchangeID: exchangeID, metrics: metrics}
}

// GetRange returns the last `days` daily rollups (default 30).
// @Summary Daily performance rollups
// @Tags Performance
// @Produce json
// @Param days query int false "lookback window in days"
// @Success 200 {object} map[string]interface{} "performance ([]models.PerformanceMetric) and count"
// @Router /api/v1/performance [get]
func (pc *PerformanceController) GetRange(c *gin.Context) {
	days := 30
	if raw := c.Query("days"); raw != "" {
		if d, err := strconv.Atoi(raw); err == nil && d > 0 {
			days = d
		}
	}
	now := time.Now().UTC()
	from := now.AddDate(0, 0, -days)

	rows, err := pc.metrics.Range(c.Request.Context(), pc.exchangeID, from, now)
	if err != nil {
		common.JSON(c, http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	common.JSON(c, http.StatusOK, gin.H{"performance": rows, "count": len(rows)})
}
