package accountsync

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"futures_engine/internal/executor"
	"futures_engine/internal/interfaces"
	"futures_engine/internal/models"
	"futures_engine/internal/portfolio"
)

func dec(v float64) decimal.Decimal { return decimal.NewFromFloat(v) }

func TestDiffSnapshots_DetectsClosedReducedIncreased(t *testing.T) {
	prev := &portfolio.Snapshot{Positions: []models.Position{
		{Symbol: "BTC/USDT:USDT", Side: models.OrderSideBuy, Amount: dec(1.0), CurrentPrice: dec(50000)},
		{Symbol: "ETH/USDT:USDT", Side: models.OrderSideBuy, Amount: dec(2.0), CurrentPrice: dec(3000)},
		{Symbol: "SOL/USDT:USDT", Side: models.OrderSideSell, Amount: dec(5.0), CurrentPrice: dec(150)},
	}}
	curr := &portfolio.Snapshot{Positions: []models.Position{
		{Symbol: "ETH/USDT:USDT", Side: models.OrderSideBuy, Amount: dec(1.0), CurrentPrice: dec(3100)},
		{Symbol: "SOL/USDT:USDT", Side: models.OrderSideSell, Amount: dec(6.0), CurrentPrice: dec(140)},
	}}

	changes := diffSnapshots(prev, curr)
	byKey := map[string]PositionChange{}
	for _, c := range changes {
		byKey[positionKey(c.Symbol, c.Side)] = c
	}

	if len(changes) != 3 {
		t.Fatalf("expected 3 changes, got %d", len(changes))
	}
	if byKey["BTC/USDT:USDT|buy"].Type != ChangeClosed {
		t.Errorf("expected BTC position to be classified closed, got %s", byKey["BTC/USDT:USDT|buy"].Type)
	}
	if byKey["ETH/USDT:USDT|buy"].Type != ChangeReduced {
		t.Errorf("expected ETH position to be classified reduced, got %s", byKey["ETH/USDT:USDT|buy"].Type)
	}
	if byKey["SOL/USDT:USDT|sell"].Type != ChangeIncreased {
		t.Errorf("expected SOL position to be classified increased, got %s", byKey["SOL/USDT:USDT|sell"].Type)
	}
}

func TestDiffSnapshots_IgnoresSubToleranceDrift(t *testing.T) {
	prev := &portfolio.Snapshot{Positions: []models.Position{
		{Symbol: "BTC/USDT:USDT", Side: models.OrderSideBuy, Amount: dec(1.0)},
	}}
	curr := &portfolio.Snapshot{Positions: []models.Position{
		{Symbol: "BTC/USDT:USDT", Side: models.OrderSideBuy, Amount: dec(1.00001)},
	}}
	if changes := diffSnapshots(prev, curr); len(changes) != 0 {
		t.Fatalf("expected drift below 1e-4 to be ignored, got %d changes", len(changes))
	}
}

func TestDiffSnapshots_NilPreviousProducesNoChanges(t *testing.T) {
	curr := &portfolio.Snapshot{Positions: []models.Position{
		{Symbol: "BTC/USDT:USDT", Side: models.OrderSideBuy, Amount: dec(1.0)},
	}}
	if changes := diffSnapshots(nil, curr); changes != nil {
		t.Fatalf("expected no changes against a nil baseline, got %v", changes)
	}
}

func TestClassifyOrderType(t *testing.T) {
	cases := map[models.OrderType]models.CloseReason{
		models.OrderTypeStopLoss:        models.CloseReasonStopLoss,
		models.OrderTypeStopLossLimit:   models.CloseReasonStopLoss,
		models.OrderTypeTakeProfit:      models.CloseReasonTakeProfit,
		models.OrderTypeTakeProfitLimit: models.CloseReasonTakeProfit,
		models.OrderTypeLimit:           models.CloseReasonTakeProfit,
		models.OrderTypeMarket:          models.CloseReasonManual,
	}
	for orderType, want := range cases {
		if got := classifyOrderType(orderType); got != want {
			t.Errorf("classifyOrderType(%s) = %s, want %s", orderType, got, want)
		}
	}
}

type fakeExchange struct {
	balance   []interfaces.Balance
	positions []models.Position
	trades    map[string][]models.Trade // keyed by symbol
}

func (f *fakeExchange) PlaceOrder(ctx context.Context, req interfaces.OrderRequest) (*models.Order, error) {
	return nil, nil
}
func (f *fakeExchange) CancelOrder(ctx context.Context, symbol, orderID string) error { return nil }
func (f *fakeExchange) FetchOrder(ctx context.Context, symbol, orderID string) (*models.Order, error) {
	return nil, nil
}
func (f *fakeExchange) FetchOpenOrders(ctx context.Context, symbol string) ([]models.Order, error) {
	return nil, nil
}
func (f *fakeExchange) FetchMyTrades(ctx context.Context, symbol, orderID string, since time.Time) ([]models.Trade, error) {
	return f.trades[symbol], nil
}
func (f *fakeExchange) FetchPositions(ctx context.Context) ([]models.Position, error) {
	return f.positions, nil
}
func (f *fakeExchange) FetchBalance(ctx context.Context) ([]interfaces.Balance, error) {
	return f.balance, nil
}
func (f *fakeExchange) FetchTicker(ctx context.Context, symbol string) (decimal.Decimal, error) {
	return decimal.Zero, nil
}
func (f *fakeExchange) FetchOHLCV(ctx context.Context, symbol, timeframe string, limit int) ([]models.Kline, error) {
	return nil, nil
}
func (f *fakeExchange) SetLeverage(ctx context.Context, symbol string, leverage int) error { return nil }
func (f *fakeExchange) Name() string                                                      { return "fake" }

type fakeOrderRepo struct{ orders map[string]*models.Order }

func (r *fakeOrderRepo) Upsert(ctx context.Context, o *models.Order) error {
	if r.orders == nil {
		r.orders = map[string]*models.Order{}
	}
	r.orders[o.ID] = o
	return nil
}
func (r *fakeOrderRepo) GetByID(ctx context.Context, id string) (*models.Order, error) {
	return r.orders[id], nil
}
func (r *fakeOrderRepo) GetByClientID(ctx context.Context, clientID string) (*models.Order, error) {
	return nil, nil
}
func (r *fakeOrderRepo) ListOpen(ctx context.Context, exchangeID uint, symbol string) ([]models.Order, error) {
	return nil, nil
}
func (r *fakeOrderRepo) ListBySymbol(ctx context.Context, exchangeID uint, symbol string, limit int) ([]models.Order, error) {
	return nil, nil
}

type fakePositionRepo struct {
	open map[string]*models.Position // keyed by "symbol|side"
	next uint
}

func (r *fakePositionRepo) key(symbol string, side models.OrderSide) string {
	return symbol + "|" + string(side)
}
func (r *fakePositionRepo) GetOpen(ctx context.Context, exchangeID uint, symbol string, side models.OrderSide) (*models.Position, error) {
	return r.open[r.key(symbol, side)], nil
}
func (r *fakePositionRepo) ListOpen(ctx context.Context, exchangeID uint) ([]models.Position, error) {
	out := make([]models.Position, 0, len(r.open))
	for _, p := range r.open {
		out = append(out, *p)
	}
	return out, nil
}
func (r *fakePositionRepo) Upsert(ctx context.Context, pos *models.Position) error {
	if r.open == nil {
		r.open = map[string]*models.Position{}
	}
	if pos.ID == 0 {
		r.next++
		pos.ID = r.next
	}
	cp := *pos
	r.open[r.key(pos.Symbol, pos.Side)] = &cp
	return nil
}
func (r *fakePositionRepo) Close(ctx context.Context, id uint) error {
	for k, p := range r.open {
		if p.ID == id {
			delete(r.open, k)
			return nil
		}
	}
	return nil
}

type fakeClosedPositionRepo struct{ created []*models.ClosedPosition }

func (r *fakeClosedPositionRepo) Create(ctx context.Context, cp *models.ClosedPosition) error {
	r.created = append(r.created, cp)
	return nil
}
func (r *fakeClosedPositionRepo) ListRecent(ctx context.Context, exchangeID uint, since time.Time) ([]models.ClosedPosition, error) {
	return nil, nil
}

type fakeSnapshotRepo struct {
	created  []*models.PortfolioSnapshot
	upserted int
	latest   *models.PortfolioSnapshot
}

func (r *fakeSnapshotRepo) Create(ctx context.Context, snap *models.PortfolioSnapshot) error {
	r.created = append(r.created, snap)
	return nil
}
func (r *fakeSnapshotRepo) Upsert(ctx context.Context, snap *models.PortfolioSnapshot) error {
	r.upserted++
	r.latest = snap
	return nil
}
func (r *fakeSnapshotRepo) Latest(ctx context.Context, exchangeID uint) (*models.PortfolioSnapshot, error) {
	if len(r.created) == 0 {
		return nil, nil
	}
	return r.created[len(r.created)-1], nil
}

func TestSync_ClosesPositionViaExpectedClosure(t *testing.T) {
	ctx := context.Background()
	exchange := &fakeExchange{
		balance:   []interfaces.Balance{{Asset: "USDT", Total: dec(10000), Free: dec(10000)}},
		positions: []models.Position{}, // the exchange no longer reports the BTC long
	}
	orders := &fakeOrderRepo{}
	positions := &fakePositionRepo{open: map[string]*models.Position{
		"BTC/USDT:USDT|buy": {ID: 1, ExchangeID: 1, Symbol: "BTC/USDT:USDT", Side: models.OrderSideBuy, Amount: dec(0.5), EntryPrice: dec(50000), EntryFee: dec(2), OpenedAt: time.Now().Add(-time.Hour), IsOpen: true},
	}}
	closedRepo := &fakeClosedPositionRepo{}
	snapshotRepo := &fakeSnapshotRepo{}
	expected := executor.NewExpectedCloseStore()
	expected.Register(executor.ExpectedClose{
		Symbol: "BTC/USDT:USDT", Side: models.OrderSideBuy, Amount: dec(0.5),
		ExitPrice: dec(52000), ExitTime: time.Now(), OrderID: "order-1", Reason: models.CloseReasonTakeProfit,
	})

	svc := New(1, exchange, orders, positions, closedRepo, snapshotRepo, expected)

	// Seed a baseline snapshot with the position still open so the next
	// Sync call sees it disappear and reconstructs the closure.
	svc.prev = &portfolio.Snapshot{Positions: []models.Position{
		{Symbol: "BTC/USDT:USDT", Side: models.OrderSideBuy, Amount: dec(0.5), CurrentPrice: dec(51000)},
	}}

	if err := svc.Sync(ctx); err != nil {
		t.Fatalf("Sync failed: %v", err)
	}

	if len(closedRepo.created) != 1 {
		t.Fatalf("expected 1 closed position to be persisted, got %d", len(closedRepo.created))
	}
	cp := closedRepo.created[0]
	if !cp.ExitPrice.Equal(dec(52000)) {
		t.Errorf("expected exit price 52000 from the expected closure, got %s", cp.ExitPrice)
	}
	if cp.CloseReason != models.CloseReasonTakeProfit {
		t.Errorf("expected take_profit close reason from the expected closure, got %s", cp.CloseReason)
	}
	if _, ok := positions.open["BTC/USDT:USDT|buy"]; ok {
		t.Errorf("expected the live position to be deleted after a full close")
	}
	if _, ok := expected.Pop("BTC/USDT:USDT", models.OrderSideBuy); ok {
		t.Errorf("expected the closure to be popped exactly once")
	}
}

func TestSync_InsertsNewPositionWithoutExpectedClosure(t *testing.T) {
	ctx := context.Background()
	exchange := &fakeExchange{
		balance: []interfaces.Balance{{Asset: "USDT", Total: dec(10000), Free: dec(9000)}},
		positions: []models.Position{
			{Symbol: "ETH/USDT:USDT", Side: models.OrderSideBuy, Amount: dec(2.0), EntryPrice: dec(3000), CurrentPrice: dec(3050)},
		},
	}
	positions := &fakePositionRepo{}
	svc := New(1, exchange, &fakeOrderRepo{}, positions, &fakeClosedPositionRepo{}, &fakeSnapshotRepo{}, executor.NewExpectedCloseStore())

	if err := svc.Sync(ctx); err != nil {
		t.Fatalf("Sync failed: %v", err)
	}

	stored, ok := positions.open["ETH/USDT:USDT|buy"]
	if !ok {
		t.Fatalf("expected the new ETH position to be upserted")
	}
	if !stored.Amount.Equal(dec(2.0)) {
		t.Errorf("expected stored amount 2.0, got %s", stored.Amount)
	}

	stats := svc.Stats()
	if stats.SyncCount != 1 {
		t.Errorf("expected sync_count 1, got %d", stats.SyncCount)
	}
}
