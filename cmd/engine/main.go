// Command engine is the Supervisor (§4.0): it wires every component and
// drives five long-running loops behind one shared context — the
// Coordinator's tactical decision cycle, the Account Sync reconciliation
// loop, the market-data poller, the daily performance rollup, and the
// read-only HTTP API — restarting any of them on panic with backoff
// instead of bringing the whole process down. Grounded on the teacher's
// cmd/main.go bootstrap: load env, open DB, migrate, wire observability,
// start the server.
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/shopspring/decimal"

	"futures_engine/internal/accountsync"
	"futures_engine/internal/api"
	"futures_engine/internal/binance"
	"futures_engine/internal/cache"
	"futures_engine/internal/coordinator"
	"futures_engine/internal/concurrency"
	"futures_engine/internal/config"
	"futures_engine/internal/database"
	"futures_engine/internal/executor"
	"futures_engine/internal/interfaces"
	"futures_engine/internal/interfaces/repository"
	"futures_engine/internal/llm"
	"futures_engine/internal/marketdata"
	"futures_engine/internal/models"
	"futures_engine/internal/observability"
	"futures_engine/internal/performance"
	"futures_engine/internal/portfolio"
	"futures_engine/internal/repositories"
	"futures_engine/internal/risk"
	"futures_engine/internal/strategist"
	"futures_engine/internal/trader"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("engine: config load failed: %v", err)
	}

	db := database.InitDB(cfg.DatabaseURL)
	if err := database.AutoMigrateAll(db); err != nil {
		log.Fatalf("engine: migration failed: %v", err)
	}

	otelShutdown, err := observability.SetupOTelSDK(context.Background())
	if err != nil {
		log.Printf("engine: otel setup failed, continuing without tracing: %v", err)
		otelShutdown = func(context.Context) error { return nil }
	}
	defer otelShutdown(context.Background())

	writeQueue := database.NewWriteQueue(db, 1000)

	exchangeRepo := repositories.NewExchangeRepository(db)
	exRow, err := exchangeRepo.GetByName(context.Background(), cfg.DataSourceExchange)
	if err != nil {
		log.Fatalf("engine: failed to load exchange row: %v", err)
	}
	if exRow == nil {
		exRow = &models.Exchange{Name: cfg.DataSourceExchange, Testnet: cfg.BinanceTestnet}
		if err := exchangeRepo.Create(context.Background(), exRow); err != nil {
			log.Fatalf("engine: failed to register exchange row: %v", err)
		}
	}

	orders := repositories.NewOrderRepository(db)
	trades := repositories.NewTradeRepository(db)
	positions := repositories.NewPositionRepository(db)
	closed := repositories.NewClosedPositionRepository(db)
	snapshots := repositories.NewPortfolioSnapshotRepository(db)
	regimes := repositories.NewMarketRegimeRepository(db)
	signals := repositories.NewTradingSignalRepository(db)
	decisions := repositories.NewDecisionRecordRepository(db)
	klines := repositories.NewKlineRepository(db)
	strategies := repositories.NewStrategyRepository(db)
	performanceMetrics := repositories.NewPerformanceMetricRepository(db)
	systemEvents := repositories.NewSystemEventRepository(db)
	accountSettingsRepo := repositories.NewAccountSettingsRepository(db)

	accountSettings, err := accountSettingsRepo.GetByExchange(context.Background(), exRow.ID)
	if err != nil {
		log.Fatalf("engine: failed to load account settings: %v", err)
	}
	if accountSettings == nil {
		accountSettings = &models.AccountSettings{
			ExchangeID:              exRow.ID,
			PaperMode:               !cfg.EnableTrading,
			EnableTrading:           cfg.EnableTrading,
			InitialCapital:          cfg.InitialCapital,
			MaxPositionSizePct:      cfg.MaxPositionSize,
			MaxLeverage:             cfg.MaxLeverageMainstream,
			MaxOpenPositions:        len(cfg.DataSourceSymbols),
			MaxPortfolioExposurePct: cfg.MaxPositionSize,
			DefaultStopLossPct:      cfg.StopLossPercentage,
			DefaultTakeProfitPct:    cfg.TakeProfitPercentage,
			MaxDailyLossPct:         cfg.MaxDailyLoss,
		}
		if err := accountSettingsRepo.Update(context.Background(), accountSettings); err != nil {
			log.Fatalf("engine: failed to seed account settings: %v", err)
		}
	}

	var exchange interfaces.Exchange = binance.NewFuturesClient(cfg.BinanceAPIKey, cfg.BinanceAPISecret, cfg.BinanceTestnet)

	tradeCache, err := cache.NewRedisCache(cfg.RedisURL)
	if err != nil {
		log.Fatalf("engine: cache setup failed: %v", err)
	}

	llmClient, err := llm.New(cfg.AIProvider, cfg.AIBaseURL, cfg.AIAPIKey, cfg.AIModel)
	if err != nil {
		log.Fatalf("engine: llm client setup failed: %v", err)
	}

	strat := strategist.New(llmClient, cfg.AIModel, 0.3, 2000)
	trd := trader.New(llmClient, cfg.AIModel, 0.2, 1500)
	if active, err := strategies.Active(context.Background()); err != nil {
		log.Printf("engine: failed to load active strategy, trader falls back to default source: %v", err)
	} else if active != nil {
		trd.SetStrategyName(active.Name)
	}
	coord := coordinator.New(strat, trd, regimes, decisions, cfg.TraderInterval, cfg.StrategistInterval)

	poller := marketdata.NewPoller(exRow.ID, exchange, klines, cfg.DataSourceSymbols)

	limits := risk.Limits{
		MaxLeverageMainstream: cfg.MaxLeverageMainstream,
		MaxLeverageAltcoin:    cfg.MaxLeverageAltcoin,
		HighLeverageWarning:   cfg.HighLeverageWarning,
		MaxPositionSize:       cfg.MaxPositionSize,
		MaxDailyLoss:          cfg.MaxDailyLoss,
		DefaultStopLossPct:    cfg.StopLossPercentage,
		DefaultTakeProfitPct:  cfg.TakeProfitPercentage,
	}

	var portfolioMgr *portfolio.Manager
	var syncService *accountsync.Service
	expected := executor.NewExpectedCloseStore()

	if cfg.EnableTrading {
		portfolioMgr = portfolio.NewLive(exchange, cfg.DataCollectionInterval)
		syncService = accountsync.New(exRow.ID, exchange, orders, positions, closed, snapshots, expected)
	} else {
		portfolioMgr = portfolio.NewPaper(cfg.InitialCapital)
	}

	exec := executor.New(exchange, tradeCache, orders, trades, positions, expected, portfolioMgr, limits)
	perfService := performance.New(exRow.ID, closed, snapshots, performanceMetrics, accountSettingsRepo)

	router := api.NewRouter(api.Dependencies{
		DB:          db,
		ExchangeID:  exRow.ID,
		Coordinator: coord,
		Sync:        syncService,
		Positions:   positions,
		Closed:      closed,
		Signals:     signals,
		Strategies:  strategies,
		Performance: performanceMetrics,
		Events:      systemEvents,
	})

	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("engine: shutdown signal received")
		cancel()
	}()

	var wg sync.WaitGroup

	backoffConfig := concurrency.BackoffConfig{
		InitialDelay: time.Second,
		MaxDelay:     2 * time.Minute,
		Multiplier:   2.0,
		Jitter:       true,
		MaxRetries:   -1,
	}

	runSupervised(ctx, &wg, writeQueue, backoffConfig, "marketdata_poller", func(ctx context.Context) {
		poller.Run(ctx, cfg.DataCollectionInterval)
	})

	if cfg.EnableTrading && syncService != nil {
		runSupervised(ctx, &wg, writeQueue, backoffConfig, "account_sync", func(ctx context.Context) {
			syncService.Run(ctx, cfg.DataCollectionInterval)
		})
	}

	runSupervised(ctx, &wg, writeQueue, backoffConfig, "decision_loop", func(ctx context.Context) {
		runDecisionLoop(ctx, cfg, exRow.ID, coord, poller, exec, portfolioMgr, signals, limits)
	})

	runSupervised(ctx, &wg, writeQueue, backoffConfig, "performance_rollup", func(ctx context.Context) {
		perfService.Run(ctx, time.Hour)
	})

	runSupervised(ctx, &wg, writeQueue, backoffConfig, "http_api", func(ctx context.Context) {
		addr := ":" + cfg.Port
		log.Printf("engine: http api listening on %s", addr)
		if err := api.Run(ctx, addr, router); err != nil && err != http.ErrServerClosed {
			panic(err)
		}
	})

	wg.Wait()
	log.Println("engine: shutdown complete")
}

// runSupervised runs fn in its own goroutine, recovering from panics and
// restarting fn with exponential backoff instead of letting one loop's
// bug take the whole process down (§4.0). A SystemEvent is recorded for
// every panic via the write queue so a crash loop is visible without
// tailing logs.
func runSupervised(ctx context.Context, wg *sync.WaitGroup, wq *database.WriteQueue, backoffConfig concurrency.BackoffConfig, name string, fn func(context.Context)) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		backoff := concurrency.NewExponentialBackoff(backoffConfig)
		for {
			if ctx.Err() != nil {
				return
			}
			runOnce(ctx, wq, name, fn, backoff)
			if ctx.Err() != nil {
				return
			}
			if !backoff.Wait(ctx) {
				return
			}
		}
	}()
}

func runOnce(ctx context.Context, wq *database.WriteQueue, name string, fn func(context.Context), backoff *concurrency.ExponentialBackoff) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("engine: %s panicked: %v", name, r)
			recordSystemEvent(wq, name, models.SeverityCritical, "loop panicked and is restarting")
		}
	}()
	fn(ctx)
	backoff.Reset()
}

func recordSystemEvent(wq *database.WriteQueue, source string, severity models.EventSeverity, message string) {
	ev := &models.SystemEvent{Source: source, Severity: severity, Message: message}
	if err := wq.Enqueue("create", "system_events", ev); err != nil {
		log.Printf("engine: failed to enqueue system event: %v", err)
	}
}

// runDecisionLoop drives the tactical tick: a strategist cycle on its own
// cadence (gated by ShouldRunStrategistThisTick), then a trader cycle every
// tick, then the risk-constrained executor for every non-hold signal
// (§4.1, §4.4).
func runDecisionLoop(
	ctx context.Context,
	cfg *config.Config,
	exchangeID uint,
	coord *coordinator.Coordinator,
	poller *marketdata.Poller,
	exec *executor.Executor,
	portfolioMgr *portfolio.Manager,
	signalsRepo repository.TradingSignalRepository,
	limits risk.Limits,
) {
	ticker := time.NewTicker(cfg.TraderInterval)
	defer ticker.Stop()

	tick := func() {
		if coord.ShouldRunStrategistThisTick() {
			env := strategist.MarketEnvironment{
				DataCompletenessPct: 1.0,
				Snapshots:           poller.AllStrategistSnapshots(),
			}
			coord.RunStrategistCycle(ctx, env)
		}

		regime := regimeSummary(coord)
		regime.TradingMode = "paper"
		if cfg.EnableTrading {
			regime.TradingMode = "live"
		}

		snap, err := portfolioMgr.GetCurrentPortfolio(ctx, false)
		account := trader.AccountSummary{}
		positionsBySymbol := map[string]*models.Position{}
		if err != nil {
			log.Printf("engine: portfolio refresh failed: %v", err)
		} else {
			account = accountSummary(snap)
			for i := range snap.Positions {
				positionsBySymbol[snap.Positions[i].Symbol] = &snap.Positions[i]
			}
		}

		in := trader.Input{
			Regime:                regime,
			Account:               account,
			RiskLimits:            riskLimitsSummary(limits),
			Snapshots:             poller.AllTraderSnapshots(),
			Positions:             positionsBySymbol,
			TraderIntervalSec:     int(cfg.TraderInterval.Seconds()),
			StrategistIntervalSec: int(cfg.StrategistInterval.Seconds()),
		}

		results := coord.RunTraderCycle(ctx, in)
		for symbol, sig := range results {
			if sig == nil {
				continue
			}
			sig.Symbol = symbol
			sig.GeneratedAt = time.Now()
			if err := signalsRepo.Create(ctx, sig); err != nil {
				log.Printf("engine: failed to persist signal for %s: %v", symbol, err)
			}
			if sig.SignalType == models.SignalHold {
				continue
			}

			snap, ok := poller.TraderSnapshot(symbol)
			price := decimal.Zero
			if ok {
				price = snap.Price
			}

			res, err := exec.Process(ctx, executor.Input{
				ExchangeID: exchangeID,
				Symbol:     symbol,
				Signal:     sig,
				Snapshot:   executor.MarketSnapshot{Price: price},
				Portfolio:  risk.PortfolioState{TotalValue: account.WalletBalance},
				PaperMode:  !cfg.EnableTrading,
			})
			if err != nil {
				log.Printf("engine: executor failed for %s: %v", symbol, err)
				continue
			}
			if !res.Approved {
				log.Printf("engine: signal for %s rejected: %s", symbol, res.Reason)
			}
		}
	}

	tick()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			tick()
		}
	}
}

func regimeSummary(coord *coordinator.Coordinator) trader.RegimeSummary {
	regime := coord.CurrentRegime()
	if regime == nil {
		regime = models.DefaultMarketRegime(time.Now())
	}
	return trader.RegimeSummary{
		Label:                  regime.Label,
		RiskPosture:            regime.RiskPosture,
		PositionSizeMultiplier: regime.PositionSizeMultiplier,
		Rationale:              regime.Rationale,
		KeyDrivers:             []string(regime.KeyDrivers),
		CashRatio:              regime.CashRatio,
		Recommended:            []string(regime.Recommended),
	}
}

// accountSummary folds a portfolio snapshot into the Trader's prompt-facing
// AccountSummary. Daily PnL and cumulative return aren't tracked by the
// paper/live snapshot itself (that's the closed_positions ledger's job, not
// this hot path), so they're left at zero here.
func accountSummary(snap *portfolio.Snapshot) trader.AccountSummary {
	var positionValue decimal.Decimal
	for _, p := range snap.Positions {
		positionValue = positionValue.Add(p.Value())
	}
	riskExposure := decimal.Zero
	if snap.WalletBalance.IsPositive() {
		riskExposure = positionValue.Div(snap.WalletBalance)
	}
	return trader.AccountSummary{
		WalletBalance:      snap.WalletBalance,
		AvailableBalance:   snap.AvailableBalance,
		MarginBalance:      snap.MarginBalance,
		TotalPositionValue: positionValue,
		RiskExposurePct:    riskExposure,
	}
}

func riskLimitsSummary(limits risk.Limits) trader.RiskLimitsSummary {
	return trader.RiskLimitsSummary{
		MaxPositionSizePct: limits.MaxPositionSize,
		StopLossPct:        limits.DefaultStopLossPct,
		TakeProfitPct:      limits.DefaultTakeProfitPct,
		SingleTradeCapPct:  limits.MaxPositionSize,
	}
}
