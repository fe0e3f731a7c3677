package controllers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"futures_engine/internal/common"
	"futures_engine/internal/coordinator"
	"futures_engine/internal/interfaces/repository"
)

// TradingController exposes the engine's read-only trading state: open
// positions, the closed-position ledger, the current regime, and recent
// signals. Grounded on the teacher's TradingController, narrowed from
// order-placement endpoints (the engine places orders autonomously, not on
// operator request) to observability endpoints.
type TradingController struct {
	exchangeID uint
	coord      *coordinator.Coordinator
	positions  repository.PositionRepository
	closed     repository.ClosedPositionRepository
	signals    repository.TradingSignalRepository
}

func NewTradingController(
	exchangeID uint,
	coord *coordinator.Coordinator,
	positions repository.PositionRepository,
	closed repository.ClosedPositionRepository,
	signals repository.TradingSignalRepository,
) *TradingController {
	return &TradingController{
		exchangeID: exchangeID,
		coord:      coord,
		positions:  positions,
		closed:     closed,
		signals:    signals,
	}
}

// GetOpenPositions lists every currently open position.
// @Summary List open positions
// @Tags Trading
// @Produce json
// @Success 200 {object} map[string]interface{} "positions ([]models.Position) and count"
// @Router /api/v1/positions [get]
func (tc *TradingController) GetOpenPositions(c *gin.Context) {
	positions, err := tc.positions.ListOpen(c.Request.Context(), tc.exchangeID)
	if err != nil {
		common.JSON(c, http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	common.JSON(c, http.StatusOK, gin.H{"positions": positions, "count": len(positions)})
}

// GetClosedPositions lists realized closures since an optional `hours`
// lookback (default 24h).
// @Summary List recently closed positions
// @Tags Trading
// @Produce json
// @Param hours query int false "lookback window in hours"
// @Success 200 {object} map[string]interface{} "closed_positions ([]models.ClosedPosition) and count"
// @Router /api/v1/positions/closed [get]
func (tc *TradingController) GetClosedPositions(c *gin.Context) {
	hours := 24
	if raw := c.Query("hours"); raw != "" {
		if h, err := strconv.Atoi(raw); err == nil && h > 0 {
			hours = h
		}
	}
	since := time.Now().Add(-time.Duration(hours) * time.Hour)

	closed, err := tc.closed.ListRecent(c.Request.Context(), tc.exchangeID, since)
	if err != nil {
		common.JSON(c, http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	common.JSON(c, http.StatusOK, gin.H{"closed_positions": closed, "count": len(closed)})
}

// GetCurrentRegime returns the Strategist's current in-memory regime, or
// 404 if no cycle has completed yet.
// @Summary Current market regime
// @Tags Trading
// @Produce json
// @Success 200 {object} models.MarketRegime
// @Router /api/v1/regime [get]
func (tc *TradingController) GetCurrentRegime(c *gin.Context) {
	regime := tc.coord.CurrentRegime()
	if regime == nil {
		common.JSON(c, http.StatusNotFound, gin.H{"error": "no regime generated yet"})
		return
	}
	common.JSON(c, http.StatusOK, regime)
}

// GetRecentSignals lists Trader signals generated since an optional
// `minutes` lookback (default 60m).
// @Summary Recent trading signals
// @Tags Trading
// @Produce json
// @Param minutes query int false "lookback window in minutes"
// @Success 200 {object} map[string]interface{} "signals ([]models.TradingSignal) and count"
// @Router /api/v1/signals [get]
func (tc *TradingController) GetRecentSignals(c *gin.Context) {
	minutes := 60
	if raw := c.Query("minutes"); raw != "" {
		if m, err := strconv.Atoi(raw); err == nil && m > 0 {
			minutes = m
		}
	}
	since := time.Now().Add(-time.Duration(minutes) * time.Minute)

	signals, err := tc.signals.ListRecent(c.Request.Context(), since, 200)
	if err != nil {
		common.JSON(c, http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	common.JSON(c, http.StatusOK, gin.H{"signals": signals, "count": len(signals)})
}
