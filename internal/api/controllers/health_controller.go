package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"futures_engine/internal/accountsync"
	"futures_engine/internal/common"
)

// HealthController reports liveness and dependency health (grounded on the
// teacher's HealthController, generalized from EventBus/Hedera dependencies
// to the account-sync loop's freshness).
type HealthController struct {
	db        *gorm.DB
	sync      *accountsync.Service
	startTime time.Time
}

func NewHealthController(db *gorm.DB, sync *accountsync.Service) *HealthController {
	return &HealthController{db: db, sync: sync, startTime: time.Now()}
}

type detailedHealthResponse struct {
	Service       string            `json:"service"`
	Status        string            `json:"status"`
	UptimeSeconds int64             `json:"uptime_seconds"`
	Dependencies  map[string]string `json:"dependencies"`
	LastCheck     string            `json:"last_check"`
}

// GetHealth is a liveness probe: does the process respond and can it reach
// the database.
func (hc *HealthController) GetHealth(c *gin.Context) {
	status := "healthy"
	if sqlDB, err := hc.db.DB(); err != nil || sqlDB.Ping() != nil {
		status = "unhealthy"
	}
	common.JSON(c, http.StatusOK, gin.H{"service": "futures-engine", "status": status})
}

// GetDetailedHealth additionally reports account-sync loop freshness: if
// the last successful sync is older than five minutes the dependency is
// flagged degraded.
func (hc *HealthController) GetDetailedHealth(c *gin.Context) {
	deps := make(map[string]string)

	if sqlDB, err := hc.db.DB(); err != nil || sqlDB.Ping() != nil {
		deps["database"] = "unhealthy"
	} else {
		deps["database"] = "healthy"
	}

	if hc.sync != nil {
		stats := hc.sync.Stats()
		switch {
		case !stats.IsRunning:
			deps["account_sync"] = "not_running"
		case stats.LastSyncTime.IsZero():
			deps["account_sync"] = "pending_first_sync"
		case time.Since(stats.LastSyncTime) > 5*time.Minute:
			deps["account_sync"] = "degraded (stale)"
		default:
			deps["account_sync"] = "healthy"
		}
	} else {
		deps["account_sync"] = "not_configured"
	}

	overall := "healthy"
	if deps["database"] == "unhealthy" {
		overall = "unhealthy"
	}

	common.JSON(c, http.StatusOK, detailedHealthResponse{
		Service:       "futures-engine",
		Status:        overall,
		UptimeSeconds: int64(time.Since(hc.startTime).Seconds()),
		Dependencies:  deps,
		LastCheck:     time.Now().Format(time.RFC3339),
	})
}
