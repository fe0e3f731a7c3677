package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"futures_engine/internal/common"
	"futures_engine/internal/interfaces/repository"
)

// StrategyController exposes the prompt-style/config catalogue (SUPPLEMENT,
// models.Strategy) Strategist/Trader cycles can be configured to run under.
type StrategyController struct {
	strategies repository.StrategyRepository
}

func NewStrategyController(strategies repository.StrategyRepository) *StrategyController {
	return &StrategyController{strategies: strategies}
}

// ListStrategies returns every known strategy profile.
// @Summary List strategy profiles
// @Tags Strategies
// @Produce json
// @Success 200 {object} map[string]interface{} "strategies ([]models.Strategy) and count"
// @Router /api/v1/strategies [get]
func (sc *StrategyController) ListStrategies(c *gin.Context) {
	strategies, err := sc.strategies.List(c.Request.Context())
	if err != nil {
		common.JSON(c, http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	common.JSON(c, http.StatusOK, gin.H{"strategies": strategies, "count": len(strategies)})
}

// GetActiveStrategy returns the strategy profile currently driving the
// coordinator's prompt style, or 404 if none is marked active.
// @Summary Active strategy profile
// @Tags Strategies
// @Produce json
// @Success 200 {object} models.Strategy
// @Router /api/v1/strategies/active [get]
func (sc *StrategyController) GetActiveStrategy(c *gin.Context) {
	active, err := sc.strategies.Active(c.Request.Context())
	if err != nil {
		common.JSON(c, http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if active == nil {
		common.JSON(c, http.StatusNotFound, gin.H{"error": "no active strategy configured"})
		return
	}
	common.JSON(c, http.StatusOK, active)
}
