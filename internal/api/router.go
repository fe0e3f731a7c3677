// Package api wires the read-only HTTP surface: liveness/health, open
// positions and realized-PnL ledger, current regime, recent signals,
// account-sync stats, the strategy catalogue, and a websocket push channel
// — grounded on the teacher's RegisterRoutes/gin.Default() bootstrap,
// narrowed from a full CRUD+chat surface to the subset an unattended
// trading engine needs to expose for observability.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/gorm"

	"futures_engine/internal/accountsync"
	"futures_engine/internal/api/controllers"
	"futures_engine/internal/coordinator"
	"futures_engine/internal/interfaces/repository"
	"futures_engine/internal/middleware"
)

// Dependencies bundles everything the router needs to build its
// controllers, so main wiring stays a single call.
type Dependencies struct {
	DB          *gorm.DB
	ExchangeID  uint
	Coordinator *coordinator.Coordinator
	Sync        *accountsync.Service
	Positions   repository.PositionRepository
	Closed      repository.ClosedPositionRepository
	Signals     repository.TradingSignalRepository
	Strategies  repository.StrategyRepository
	Performance repository.PerformanceMetricRepository
	Events      repository.SystemEventRepository
}

// NewRouter builds the gin engine with CORS, rate limiting, swagger, and
// every read-API route mounted.
func NewRouter(deps Dependencies) *gin.Engine {
	r := gin.Default()
	r.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:    []string{"Origin", "Content-Type", "Authorization"},
		MaxAge:          12 * time.Hour,
	}))
	r.Use(middleware.RateLimiter(120, time.Minute))

	health := controllers.NewHealthController(deps.DB, deps.Sync)
	sysHealth := controllers.NewSystemHealthController(deps.DB)
	trading := controllers.NewTradingController(deps.ExchangeID, deps.Coordinator, deps.Positions, deps.Closed, deps.Signals)
	sync := controllers.NewSyncController(deps.Sync)
	strategies := controllers.NewStrategyController(deps.Strategies)
	performance := controllers.NewPerformanceController(deps.ExchangeID, deps.Performance)
	events := controllers.NewSystemEventController(deps.Events)

	r.GET("/health", health.GetHealth)
	r.GET("/health/detailed", health.GetDetailedHealth)
	r.GET("/ws", controllers.WebSocketHandler)
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	v1 := r.Group("/api/v1")
	v1.Use(middleware.AuthMiddleware())
	{
		v1.GET("/system/health", sysHealth.GetHealth)
		v1.GET("/system/events", events.GetRecent)

		v1.GET("/positions", trading.GetOpenPositions)
		v1.GET("/positions/closed", trading.GetClosedPositions)
		v1.GET("/regime", trading.GetCurrentRegime)
		v1.GET("/signals", trading.GetRecentSignals)

		v1.GET("/sync/stats", sync.GetStats)
		v1.GET("/sync/snapshot", sync.GetLatestSnapshot)

		v1.GET("/strategies", strategies.ListStrategies)
		v1.GET("/strategies/active", strategies.GetActiveStrategy)

		v1.GET("/performance", performance.GetRange)
	}

	return r
}

// Run starts the HTTP server and blocks until ctx is canceled, then shuts
// down gracefully (one of the Supervisor's five long-running loops, §4.0).
func Run(ctx context.Context, addr string, router *gin.Engine) error {
	srv := &http.Server{Addr: addr, Handler: router}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
