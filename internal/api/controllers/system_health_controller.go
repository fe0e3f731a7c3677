package controllers

import (
	"net/http"
	"os"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
	"gorm.io/gorm"

	"futures_engine/internal/common"
)

// SystemHealthController reports host resource usage, grounded on the
// teacher's SystemHealthController (trimmed to the metrics that matter for
// an unattended process: no network throughput, no Windows-only sensors).
type SystemHealthController struct {
	db *gorm.DB
}

func NewSystemHealthController(db *gorm.DB) *SystemHealthController {
	return &SystemHealthController{db: db}
}

type systemHealthResponse struct {
	Timestamp time.Time       `json:"timestamp"`
	CPU       cpuMetrics      `json:"cpu"`
	Memory    memoryMetrics   `json:"memory"`
	Disk      diskMetrics     `json:"disk"`
	Postgres  postgresMetrics `json:"postgres"`
	System    systemInfo      `json:"system"`
}

type cpuMetrics struct {
	UsagePercent float64 `json:"usage_percent"`
	Cores        int     `json:"cores"`
}

type memoryMetrics struct {
	TotalBytes  uint64  `json:"total_bytes"`
	UsedBytes   uint64  `json:"used_bytes"`
	UsedPercent float64 `json:"used_percent"`
}

type diskMetrics struct {
	TotalBytes  uint64  `json:"total_bytes"`
	UsedBytes   uint64  `json:"used_bytes"`
	UsedPercent float64 `json:"used_percent"`
}

type postgresMetrics struct {
	ConnectionCount int `json:"connection_count"`
	ActiveQueries   int `json:"active_queries"`
}

type systemInfo struct {
	Hostname  string `json:"hostname"`
	OS        string `json:"os"`
	Platform  string `json:"platform"`
	UptimeSec uint64 `json:"uptime_seconds"`
	GoVersion string `json:"go_version"`
}

// GetHealth returns host-level resource metrics.
// @Summary System resource metrics
// @Tags System
// @Produce json
// @Success 200 {object} systemHealthResponse
// @Router /api/v1/system/health [get]
func (ctrl *SystemHealthController) GetHealth(c *gin.Context) {
	resp := systemHealthResponse{Timestamp: time.Now()}

	if pct, err := cpu.Percent(200*time.Millisecond, false); err == nil && len(pct) > 0 {
		resp.CPU.UsagePercent = pct[0]
	}
	resp.CPU.Cores = runtime.NumCPU()

	if vm, err := mem.VirtualMemory(); err == nil {
		resp.Memory.TotalBytes = vm.Total
		resp.Memory.UsedBytes = vm.Used
		resp.Memory.UsedPercent = vm.UsedPercent
	}

	if du, err := disk.Usage("/"); err == nil {
		resp.Disk.TotalBytes = du.Total
		resp.Disk.UsedBytes = du.Used
		resp.Disk.UsedPercent = du.UsedPercent
	}

	if ctrl.db != nil {
		ctrl.db.Raw("SELECT COUNT(*) FROM pg_stat_activity").Scan(&resp.Postgres.ConnectionCount)
		ctrl.db.Raw("SELECT COUNT(*) FROM pg_stat_activity WHERE state = 'active'").Scan(&resp.Postgres.ActiveQueries)
	}

	hostname, _ := os.Hostname()
	resp.System.Hostname = hostname
	resp.System.OS = runtime.GOOS
	resp.System.GoVersion = runtime.Version()
	if hi, err := host.Info(); err == nil {
		resp.System.Platform = hi.Platform
		resp.System.UptimeSec = hi.Uptime
	}

	common.JSON(c, http.StatusOK, resp)
}
