// Package repository declares the persistence ports every domain component
// depends on, so coordinator/risk/executor/portfolio/accountsync code can be
// exercised against an in-memory or sqlite-backed fake without touching
// gorm directly.
package repository

import (
	"context"
	"time"

	"futures_engine/internal/models"
)

type ExchangeRepository interface {
	GetByName(ctx context.Context, name string) (*models.Exchange, error)
	Create(ctx context.Context, ex *models.Exchange) error
}

type OrderRepository interface {
	Upsert(ctx context.Context, order *models.Order) error
	GetByID(ctx context.Context, id string) (*models.Order, error)
	GetByClientID(ctx context.Context, clientID string) (*models.Order, error)
	ListOpen(ctx context.Context, exchangeID uint, symbol string) ([]models.Order, error)
	ListBySymbol(ctx context.Context, exchangeID uint, symbol string, limit int) ([]models.Order, error)
}

type TradeRepository interface {
	Create(ctx context.Context, trade *models.Trade) error
	ExistsForOrder(ctx context.Context, orderID string) (bool, error)
	ListByOrder(ctx context.Context, orderID string) ([]models.Trade, error)
	SumAmountForOrder(ctx context.Context, orderID string) (string, error)
}

type PositionRepository interface {
	GetOpen(ctx context.Context, exchangeID uint, symbol string, side models.OrderSide) (*models.Position, error)
	ListOpen(ctx context.Context, exchangeID uint) ([]models.Position, error)
	Upsert(ctx context.Context, pos *models.Position) error
	Close(ctx context.Context, id uint) error
}

type ClosedPositionRepository interface {
	Create(ctx context.Context, cp *models.ClosedPosition) error
	ListRecent(ctx context.Context, exchangeID uint, since time.Time) ([]models.ClosedPosition, error)
}

type PortfolioSnapshotRepository interface {
	Create(ctx context.Context, snap *models.PortfolioSnapshot) error
	// Upsert mutates the one latest-row per exchange in place, called on
	// every sync tick regardless of whether an archive row is also written
	// this tick (§4.6).
	Upsert(ctx context.Context, snap *models.PortfolioSnapshot) error
	Latest(ctx context.Context, exchangeID uint) (*models.PortfolioSnapshot, error)
}

type MarketRegimeRepository interface {
	Create(ctx context.Context, regime *models.MarketRegime) error
	Latest(ctx context.Context) (*models.MarketRegime, error)
}

type TradingSignalRepository interface {
	Create(ctx context.Context, sig *models.TradingSignal) error
	LatestForSymbol(ctx context.Context, symbol string, since time.Time) (*models.TradingSignal, error)
	ListRecent(ctx context.Context, since time.Time, limit int) ([]models.TradingSignal, error)
}

type DecisionRecordRepository interface {
	Create(ctx context.Context, rec *models.DecisionRecord) error
}

type KlineRepository interface {
	Upsert(ctx context.Context, k *models.Kline) error
	Recent(ctx context.Context, exchangeID uint, symbol, timeframe string, limit int) ([]models.Kline, error)
	DeleteOlderThan(ctx context.Context, timeframe string, before time.Time) (int64, error)
}

type AccountSettingsRepository interface {
	GetByExchange(ctx context.Context, exchangeID uint) (*models.AccountSettings, error)
	Update(ctx context.Context, settings *models.AccountSettings) error
}

type SystemEventRepository interface {
	Create(ctx context.Context, ev *models.SystemEvent) error
	Recent(ctx context.Context, limit int) ([]models.SystemEvent, error)
}

type PerformanceMetricRepository interface {
	Upsert(ctx context.Context, m *models.PerformanceMetric) error
	Range(ctx context.Context, exchangeID uint, from, to time.Time) ([]models.PerformanceMetric, error)
}

type StrategyRepository interface {
	Active(ctx context.Context) (*models.Strategy, error)
	List(ctx context.Context) ([]models.Strategy, error)
}

type ExperienceRepository interface {
	Create(ctx context.Context, exp *models.Experience) error
	RecentForSymbol(ctx context.Context, symbol string, limit int) ([]models.Experience, error)
}
