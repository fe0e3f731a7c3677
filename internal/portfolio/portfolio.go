// Package portfolio implements the §4.5 Portfolio Manager: a consistent,
// rate-limited get_current_portfolio() with a paper-mode in-memory
// emulation and a debounced, lock-serialized live-mode exchange refresh.
package portfolio

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"futures_engine/internal/interfaces"
	"futures_engine/internal/models"
)

const debounceWindow = 2 * time.Second

// Protection is the (stop_loss, take_profit) pair reconstructed from open
// reduce-only/closePosition orders for one (symbol, side) (§4.5 fetch_open_orders).
type Protection struct {
	StopLoss   *decimal.Decimal `json:"stop_loss,omitempty"`
	TakeProfit *decimal.Decimal `json:"take_profit,omitempty"`
}

// Snapshot is one refreshed view of account state.
type Snapshot struct {
	WalletBalance    decimal.Decimal         `json:"wallet_balance"`
	AvailableBalance decimal.Decimal         `json:"available_balance"`
	MarginBalance    decimal.Decimal         `json:"margin_balance"`
	Positions        []models.Position       `json:"positions"`
	Protections      map[string]Protection   `json:"protections"` // keyed by "<symbol>|<side>"
	TakenAt          time.Time               `json:"taken_at"`
}

func protectionKey(symbol string, side models.OrderSide) string {
	return fmt.Sprintf("%s|%s", symbol, side)
}

// Manager is the Portfolio Manager. Construct with NewPaper for paper-mode
// emulation or NewLive for a real exchange-backed account.
type Manager struct {
	exchange     interfaces.Exchange
	paperMode    bool
	syncInterval time.Duration

	mu       sync.Mutex
	cash     decimal.Decimal
	paperPos map[string]*models.Position // keyed by "<symbol>|<side>"
	cached   *Snapshot
	lastSync time.Time
}

func NewPaper(initialCash decimal.Decimal) *Manager {
	return &Manager{
		paperMode: true,
		cash:      initialCash,
		paperPos:  make(map[string]*models.Position),
	}
}

func NewLive(exchange interfaces.Exchange, syncInterval time.Duration) *Manager {
	if syncInterval <= 0 {
		syncInterval = 10 * time.Second
	}
	return &Manager{
		exchange:     exchange,
		paperMode:    false,
		syncInterval: syncInterval,
	}
}

// GetCurrentPortfolio implements §4.5's contract: paper mode always returns
// the in-memory state; live mode serializes exchange refreshes under a
// lock, gated by the sync interval unless forceSync is set, with a 2-second
// debounce window that wins over forceSync to absorb bursts.
func (m *Manager) GetCurrentPortfolio(ctx context.Context, forceSync bool) (*Snapshot, error) {
	if m.paperMode {
		return m.paperSnapshot(), nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	if m.cached != nil && now.Sub(m.lastSync) < debounceWindow {
		return m.cached, nil
	}
	// Double-check idiom: re-evaluate the gate now that the lock is held,
	// in case a concurrent caller already refreshed while we were waiting.
	if m.cached != nil && !forceSync && now.Sub(m.lastSync) < m.syncInterval {
		return m.cached, nil
	}

	snap, err := m.refreshFromExchange(ctx)
	if err != nil {
		if m.cached != nil {
			return m.cached, nil
		}
		return nil, fmt.Errorf("portfolio: initial refresh failed: %w", err)
	}
	m.cached = snap
	m.lastSync = now
	return snap, nil
}

func (m *Manager) refreshFromExchange(ctx context.Context) (*Snapshot, error) {
	return FetchSnapshot(ctx, m.exchange)
}

// FetchSnapshot implements the §4.5 fetch composition, parallelizing
// balance, positions, and per-symbol open orders inside one refresh. It is
// exported so the Account Sync Service (§4.6) can reuse the exact same
// extraction logic against its own prior-snapshot diff.
func FetchSnapshot(ctx context.Context, exchange interfaces.Exchange) (*Snapshot, error) {
	var balances []interfaces.Balance
	var positions []models.Position

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		b, err := exchange.FetchBalance(gctx)
		if err != nil {
			return fmt.Errorf("fetch_balance: %w", err)
		}
		balances = b
		return nil
	})
	g.Go(func() error {
		p, err := exchange.FetchPositions(gctx)
		if err != nil {
			return fmt.Errorf("fetch_positions: %w", err)
		}
		positions = p
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	symbols := make([]string, 0, len(positions))
	seen := make(map[string]bool)
	for _, p := range positions {
		if !seen[p.Symbol] {
			seen[p.Symbol] = true
			symbols = append(symbols, p.Symbol)
		}
	}

	protections := make(map[string]Protection)
	var protMu sync.Mutex
	og, ogctx := errgroup.WithContext(ctx)
	for _, symbol := range symbols {
		symbol := symbol
		og.Go(func() error {
			orders, err := exchange.FetchOpenOrders(ogctx, symbol)
			if err != nil {
				return fmt.Errorf("fetch_open_orders(%s): %w", symbol, err)
			}
			protMu.Lock()
			defer protMu.Unlock()
			for _, o := range orders {
				applyProtection(protections, o)
			}
			return nil
		})
	}
	if err := og.Wait(); err != nil {
		return nil, err
	}

	wallet, available, margin := extractBalances(balances)

	snap := &Snapshot{
		WalletBalance:    wallet,
		AvailableBalance: available,
		MarginBalance:    margin,
		Positions:        positions,
		Protections:      protections,
		TakenAt:          time.Now(),
	}
	return snap, nil
}

// applyProtection folds one open order into the protection map: the
// stop/take-profit side is the opposite of the order's own side, since a
// reduce-only SELL protects a LONG (§4.5).
func applyProtection(protections map[string]Protection, o models.Order) {
	if o.StopPrice == nil || o.StopPrice.IsZero() {
		return
	}
	protectedSide := models.OrderSideBuy
	if o.Side == models.OrderSideBuy {
		protectedSide = models.OrderSideSell
	}
	key := protectionKey(o.Symbol, protectedSide)
	p := protections[key]
	switch {
	case isStopOrderType(o.Type):
		sl := *o.StopPrice
		p.StopLoss = &sl
	case isTakeProfitOrderType(o.Type):
		tp := *o.StopPrice
		p.TakeProfit = &tp
	}
	protections[key] = p
}

func isStopOrderType(t models.OrderType) bool {
	return t == models.OrderTypeStopLoss || t == models.OrderTypeStopLossLimit
}

func isTakeProfitOrderType(t models.OrderType) bool {
	return t == models.OrderTypeTakeProfit || t == models.OrderTypeTakeProfitLimit
}

// extractBalances picks the futures-relevant fields off the USDT balance
// line: wallet_balance and available_balance, never CCXT's normalized
// "total" (which is margin balance, §4.5).
func extractBalances(balances []interfaces.Balance) (wallet, available, margin decimal.Decimal) {
	for _, b := range balances {
		if strings.EqualFold(b.Asset, "USDT") {
			wallet = b.Total
			available = b.Free
			margin = wallet.Sub(available)
			if margin.IsNegative() {
				margin = decimal.Zero
			}
			return
		}
	}
	return decimal.Zero, decimal.Zero, decimal.Zero
}

// paperSnapshot assembles the in-memory view; paper mode never touches the
// exchange.
func (m *Manager) paperSnapshot() *Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	positions := make([]models.Position, 0, len(m.paperPos))
	var positionValue decimal.Decimal
	for _, p := range m.paperPos {
		positions = append(positions, *p)
		positionValue = positionValue.Add(p.Value())
	}

	return &Snapshot{
		WalletBalance:    m.cash.Add(positionValue),
		AvailableBalance: m.cash,
		MarginBalance:    positionValue,
		Positions:        positions,
		Protections:      map[string]Protection{},
		TakenAt:          time.Now(),
	}
}

// positionBySymbol finds the open paper position on symbol regardless of
// which map key it lives under, keyed by the position's own side (not
// whatever action side a closing order happens to carry).
func (m *Manager) positionBySymbol(symbol string) *models.Position {
	for _, p := range m.paperPos {
		if p.Symbol == symbol && p.IsOpen {
			return p
		}
	}
	return nil
}

// ApplyFill updates the paper-mode ledger: a buy opens/adds to a long (or
// reduces a short) and debits cash; a sell mirrors it (§4.5 apply_fill). The
// existing position, if any, is looked up by symbol and keyed by its own
// side — an order whose action side opposes the held position's side
// reduces or closes it instead of opening a new position on that side.
// Satisfies executor.PortfolioUpdater.
func (m *Manager) ApplyFill(ctx context.Context, symbol string, side models.OrderSide, amount, price decimal.Decimal) error {
	if !m.paperMode {
		return fmt.Errorf("portfolio: ApplyFill called on a live-mode manager")
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	cost := amount.Mul(price)

	if side == models.OrderSideBuy {
		m.cash = m.cash.Sub(cost)
	} else {
		m.cash = m.cash.Add(cost)
	}

	existing := m.positionBySymbol(symbol)
	if existing == nil {
		key := protectionKey(symbol, side)
		m.paperPos[key] = &models.Position{
			Symbol: symbol, Side: side, Amount: amount,
			EntryPrice: price, CurrentPrice: price, IsOpen: true, OpenedAt: time.Now(),
		}
		return nil
	}

	key := protectionKey(symbol, existing.Side)
	if side == existing.Side {
		totalCost := existing.EntryPrice.Mul(existing.Amount).Add(cost)
		existing.Amount = existing.Amount.Add(amount)
		if existing.Amount.IsPositive() {
			existing.EntryPrice = totalCost.Div(existing.Amount)
		}
		existing.Recalculate(price)
		return nil
	}

	remaining := existing.Amount.Sub(amount)
	if !remaining.IsPositive() {
		delete(m.paperPos, key)
		return nil
	}
	existing.Amount = remaining
	existing.Recalculate(price)
	return nil
}

// ForceSync satisfies executor.PortfolioUpdater for live-mode calls: it
// discards the debounce/interval gate and pulls fresh exchange state.
func (m *Manager) ForceSync(ctx context.Context) error {
	if m.paperMode {
		return nil
	}
	_, err := m.GetCurrentPortfolio(ctx, true)
	return err
}
