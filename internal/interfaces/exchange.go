// Package interfaces declares the external-system ports the domain core
// depends on: the exchange adapter, the LLM client, and the short-term
// cache. Concrete implementations live under internal/binance, internal/llm
// and internal/cache; the coordinator/executor/portfolio/accountsync
// packages only ever see these interfaces.
package interfaces

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"futures_engine/internal/models"
)

// OrderRequest is the adapter-agnostic shape the Executor submits (§4.4).
type OrderRequest struct {
	Symbol          string
	Side            models.OrderSide
	Type            models.OrderType
	Amount          decimal.Decimal
	Price           *decimal.Decimal
	StopPrice       *decimal.Decimal
	ReduceOnly      bool
	PositionSide    string // "LONG", "SHORT", or "" in one-way mode
	ClientOrderID   string
}

// Balance is a single-asset balance line from the exchange account endpoint.
type Balance struct {
	Asset     string
	Free      decimal.Decimal
	Used      decimal.Decimal
	Total     decimal.Decimal
}

// Exchange is the port every futures venue adapter implements (§4.4, §4.6,
// §6 External Interfaces). All methods are context-bound so the Supervisor
// can cancel in-flight calls on shutdown.
type Exchange interface {
	PlaceOrder(ctx context.Context, req OrderRequest) (*models.Order, error)
	CancelOrder(ctx context.Context, symbol, orderID string) error
	FetchOrder(ctx context.Context, symbol, orderID string) (*models.Order, error)
	FetchOpenOrders(ctx context.Context, symbol string) ([]models.Order, error)
	FetchMyTrades(ctx context.Context, symbol, orderID string, since time.Time) ([]models.Trade, error)
	FetchPositions(ctx context.Context) ([]models.Position, error)
	FetchBalance(ctx context.Context) ([]Balance, error)
	FetchTicker(ctx context.Context, symbol string) (decimal.Decimal, error)
	FetchOHLCV(ctx context.Context, symbol, timeframe string, limit int) ([]models.Kline, error)
	SetLeverage(ctx context.Context, symbol string, leverage int) error
	Name() string
}
