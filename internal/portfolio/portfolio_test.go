package portfolio_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"futures_engine/internal/interfaces"
	"futures_engine/internal/models"
	"futures_engine/internal/portfolio"
)

func TestPaperManager_ApplyFill_OpensAndDebitsCash(t *testing.T) {
	m := portfolio.NewPaper(decimal.NewFromInt(10000))

	if err := m.ApplyFill(context.Background(), "BTC/USDT:USDT", models.OrderSideBuy, decimal.NewFromFloat(0.1), decimal.NewFromInt(50000)); err != nil {
		t.Fatalf("ApplyFill failed: %v", err)
	}

	snap, err := m.GetCurrentPortfolio(context.Background(), false)
	if err != nil {
		t.Fatalf("GetCurrentPortfolio failed: %v", err)
	}
	if len(snap.Positions) != 1 {
		t.Fatalf("expected 1 open position, got %d", len(snap.Positions))
	}
	if !snap.AvailableBalance.Equal(decimal.NewFromInt(5000)) {
		t.Errorf("expected available balance 5000 after buying 0.1 BTC @ 50000, got %s", snap.AvailableBalance)
	}
	if !snap.WalletBalance.Equal(decimal.NewFromInt(10000)) {
		t.Errorf("expected wallet balance to stay at 10000 (cash + position value), got %s", snap.WalletBalance)
	}
}

func TestPaperManager_ApplyFill_AveragesEntryPriceOnAdd(t *testing.T) {
	m := portfolio.NewPaper(decimal.NewFromInt(10000))
	ctx := context.Background()

	if err := m.ApplyFill(ctx, "BTC/USDT:USDT", models.OrderSideBuy, decimal.NewFromFloat(0.1), decimal.NewFromInt(50000)); err != nil {
		t.Fatalf("first ApplyFill failed: %v", err)
	}
	if err := m.ApplyFill(ctx, "BTC/USDT:USDT", models.OrderSideBuy, decimal.NewFromFloat(0.1), decimal.NewFromInt(60000)); err != nil {
		t.Fatalf("second ApplyFill failed: %v", err)
	}

	snap, err := m.GetCurrentPortfolio(ctx, false)
	if err != nil {
		t.Fatalf("GetCurrentPortfolio failed: %v", err)
	}
	if len(snap.Positions) != 1 {
		t.Fatalf("expected the two buys to merge into 1 position, got %d", len(snap.Positions))
	}
	if !snap.Positions[0].Amount.Equal(decimal.NewFromFloat(0.2)) {
		t.Errorf("expected combined amount 0.2, got %s", snap.Positions[0].Amount)
	}
	if !snap.Positions[0].EntryPrice.Equal(decimal.NewFromInt(55000)) {
		t.Errorf("expected averaged entry price 55000, got %s", snap.Positions[0].EntryPrice)
	}
}

func TestPaperManager_ApplyFill_ClosesLongOnOppositeFill(t *testing.T) {
	m := portfolio.NewPaper(decimal.NewFromInt(10000))
	ctx := context.Background()

	if err := m.ApplyFill(ctx, "BTC/USDT:USDT", models.OrderSideBuy, decimal.NewFromFloat(0.1), decimal.NewFromInt(50000)); err != nil {
		t.Fatalf("open ApplyFill failed: %v", err)
	}
	// A sell against an open long closes it, not opens a phantom short.
	if err := m.ApplyFill(ctx, "BTC/USDT:USDT", models.OrderSideSell, decimal.NewFromFloat(0.1), decimal.NewFromInt(51000)); err != nil {
		t.Fatalf("close ApplyFill failed: %v", err)
	}

	snap, err := m.GetCurrentPortfolio(ctx, false)
	if err != nil {
		t.Fatalf("GetCurrentPortfolio failed: %v", err)
	}
	if len(snap.Positions) != 0 {
		t.Fatalf("expected the closing fill to leave no open positions, got %d: %+v", len(snap.Positions), snap.Positions)
	}
	// cash: -5000 (open) + 5100 (close) = 10100
	if !snap.AvailableBalance.Equal(decimal.NewFromInt(10100)) {
		t.Errorf("expected available balance 10100 after the round trip, got %s", snap.AvailableBalance)
	}
}

func TestPaperManager_ApplyFill_PartiallyReducesLongOnOppositeFill(t *testing.T) {
	m := portfolio.NewPaper(decimal.NewFromInt(10000))
	ctx := context.Background()

	if err := m.ApplyFill(ctx, "BTC/USDT:USDT", models.OrderSideBuy, decimal.NewFromFloat(0.1), decimal.NewFromInt(50000)); err != nil {
		t.Fatalf("open ApplyFill failed: %v", err)
	}
	if err := m.ApplyFill(ctx, "BTC/USDT:USDT", models.OrderSideSell, decimal.NewFromFloat(0.04), decimal.NewFromInt(51000)); err != nil {
		t.Fatalf("partial close ApplyFill failed: %v", err)
	}

	snap, err := m.GetCurrentPortfolio(ctx, false)
	if err != nil {
		t.Fatalf("GetCurrentPortfolio failed: %v", err)
	}
	if len(snap.Positions) != 1 {
		t.Fatalf("expected the residual position to remain open, got %d", len(snap.Positions))
	}
	if snap.Positions[0].Side != models.OrderSideBuy {
		t.Errorf("expected the residual position to still be a long, got side=%s", snap.Positions[0].Side)
	}
	if !snap.Positions[0].Amount.Equal(decimal.NewFromFloat(0.06)) {
		t.Errorf("expected residual amount 0.06, got %s", snap.Positions[0].Amount)
	}
	if !snap.Positions[0].EntryPrice.Equal(decimal.NewFromInt(50000)) {
		t.Errorf("expected entry price to stay at the original 50000 on a reduce, got %s", snap.Positions[0].EntryPrice)
	}
}

type fakeLiveExchange struct {
	calls int
}

func (f *fakeLiveExchange) PlaceOrder(ctx context.Context, req interfaces.OrderRequest) (*models.Order, error) {
	return nil, nil
}
func (f *fakeLiveExchange) CancelOrder(ctx context.Context, symbol, orderID string) error { return nil }
func (f *fakeLiveExchange) FetchOrder(ctx context.Context, symbol, orderID string) (*models.Order, error) {
	return nil, nil
}
func (f *fakeLiveExchange) FetchOpenOrders(ctx context.Context, symbol string) ([]models.Order, error) {
	return nil, nil
}
func (f *fakeLiveExchange) FetchMyTrades(ctx context.Context, symbol, orderID string, since time.Time) ([]models.Trade, error) {
	return nil, nil
}
func (f *fakeLiveExchange) FetchPositions(ctx context.Context) ([]models.Position, error) {
	return nil, nil
}
func (f *fakeLiveExchange) FetchBalance(ctx context.Context) ([]interfaces.Balance, error) {
	f.calls++
	return []interfaces.Balance{{Asset: "USDT", Total: decimal.NewFromInt(1000), Free: decimal.NewFromInt(800)}}, nil
}
func (f *fakeLiveExchange) FetchTicker(ctx context.Context, symbol string) (decimal.Decimal, error) {
	return decimal.Zero, nil
}
func (f *fakeLiveExchange) FetchOHLCV(ctx context.Context, symbol, timeframe string, limit int) ([]models.Kline, error) {
	return nil, nil
}
func (f *fakeLiveExchange) SetLeverage(ctx context.Context, symbol string, leverage int) error { return nil }
func (f *fakeLiveExchange) Name() string                                                      { return "fake" }

func TestLiveManager_DebounceWindow_SkipsExchangeCall(t *testing.T) {
	exchange := &fakeLiveExchange{}
	m := portfolio.NewLive(exchange, time.Hour)
	ctx := context.Background()

	if _, err := m.GetCurrentPortfolio(ctx, true); err != nil {
		t.Fatalf("first refresh failed: %v", err)
	}
	if exchange.calls != 1 {
		t.Fatalf("expected 1 exchange call after the first refresh, got %d", exchange.calls)
	}

	// A force-sync immediately after should be absorbed by the 2s debounce.
	if _, err := m.GetCurrentPortfolio(ctx, true); err != nil {
		t.Fatalf("debounced refresh failed: %v", err)
	}
	if exchange.calls != 1 {
		t.Fatalf("expected the debounce window to suppress the second exchange call, got %d calls", exchange.calls)
	}
}
