package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"futures_engine/internal/accountsync"
	"futures_engine/internal/common"
)

// SyncController exposes the Account Sync Service's loop health and latest
// in-memory portfolio view (§4.6).
type SyncController struct {
	sync *accountsync.Service
}

func NewSyncController(sync *accountsync.Service) *SyncController {
	return &SyncController{sync: sync}
}

// GetStats reports sync_count, error_count, last_sync_time, is_running.
// @Summary Account sync loop stats
// @Tags Sync
// @Produce json
// @Success 200 {object} accountsync.Stats
// @Router /api/v1/sync/stats [get]
func (sc *SyncController) GetStats(c *gin.Context) {
	common.JSON(c, http.StatusOK, sc.sync.Stats())
}

// GetLatestSnapshot returns the most recent reconciled portfolio view
// without touching the exchange.
// @Summary Latest portfolio snapshot
// @Tags Sync
// @Produce json
// @Success 200 {object} portfolio.Snapshot
// @Success 404 {object} map[string]string
// @Router /api/v1/sync/snapshot [get]
func (sc *SyncController) GetLatestSnapshot(c *gin.Context) {
	snap := sc.sync.LatestSnapshot()
	if snap == nil {
		common.JSON(c, http.StatusNotFound, gin.H{"error": "no sync has completed yet"})
		return
	}
	common.JSON(c, http.StatusOK, snap)
}
