// Package accountsync implements the §4.6 Account Synchronization Service:
// the sole writer of positions, closed_positions, and the latest portfolio
// snapshot, reconciling exchange truth against the durable store every
// sync interval.
package accountsync

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"futures_engine/internal/executor"
	"futures_engine/internal/interfaces"
	"futures_engine/internal/interfaces/repository"
	"futures_engine/internal/models"
	"futures_engine/internal/portfolio"
	"futures_engine/internal/websocket"
)

const changeTolerance = "0.0001"
const archiveInterval = time.Hour
const entryFeeWalkWindow = 10 * time.Minute

// ChangeType classifies one (symbol, side) position between two snapshots.
type ChangeType string

const (
	ChangeClosed    ChangeType = "closed"
	ChangeReduced   ChangeType = "reduced"
	ChangeIncreased ChangeType = "increased"
)

// PositionChange is one diffed (symbol, side) slot between snapshots (§4.6
// step 3).
type PositionChange struct {
	Symbol    string
	Side      models.OrderSide
	Type      ChangeType
	OldAmount decimal.Decimal
	NewAmount decimal.Decimal
	MarkPrice decimal.Decimal
}

// Stats is what Service exposes to the read API (§4.6).
type Stats struct {
	SyncCount    int64     `json:"sync_count"`
	ErrorCount   int64     `json:"error_count"`
	LastSyncTime time.Time `json:"last_sync_time"`
	IsRunning    bool      `json:"is_running"`
}

// Service is the Account Sync Service. One instance per exchange account.
type Service struct {
	exchangeID uint
	exchange   interfaces.Exchange
	orders     repository.OrderRepository
	positions  repository.PositionRepository
	closed     repository.ClosedPositionRepository
	snapshots  repository.PortfolioSnapshotRepository
	expected   *executor.ExpectedCloseStore

	mu            sync.Mutex
	prev          *portfolio.Snapshot
	latest        *portfolio.Snapshot
	lastArchiveAt time.Time
	syncCount     int64
	errorCount    int64
	lastSyncTime  time.Time
	running       bool
}

func New(
	exchangeID uint,
	exchange interfaces.Exchange,
	orders repository.OrderRepository,
	positions repository.PositionRepository,
	closed repository.ClosedPositionRepository,
	snapshots repository.PortfolioSnapshotRepository,
	expected *executor.ExpectedCloseStore,
) *Service {
	return &Service{
		exchangeID: exchangeID,
		exchange:   exchange,
		orders:     orders,
		positions:  positions,
		closed:     closed,
		snapshots:  snapshots,
		expected:   expected,
	}
}

// Run drives Sync on a ticker until ctx is canceled.
func (s *Service) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	s.mu.Lock()
	s.running = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	if err := s.Sync(ctx); err != nil {
		log.Printf("accountsync: initial sync failed: %v", err)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.Sync(ctx); err != nil {
				log.Printf("accountsync: sync failed: %v", err)
			}
		}
	}
}

// Sync runs one reconciliation pass (§4.6 steps 1-8), under the service
// mutex so diffs and DB writes of one iteration complete before the next
// begins (§5 ordering guarantees).
func (s *Service) Sync(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, err := portfolio.FetchSnapshot(ctx, s.exchange)
	if err != nil {
		s.errorCount++
		return fmt.Errorf("accountsync: fetch snapshot: %w", err)
	}

	since := s.lastSyncTime
	changes := diffSnapshots(s.prev, snap)
	for _, change := range changes {
		websocket.BroadcastPositionChange(change.Symbol, string(change.Side), string(change.Type),
			change.OldAmount.String(), change.NewAmount.String(), change.MarkPrice.String())
		if change.Type == ChangeIncreased {
			continue
		}
		closedAmount := change.OldAmount.Sub(change.NewAmount)
		if err := s.processClosure(ctx, change.Symbol, change.Side, closedAmount, change.MarkPrice, since); err != nil {
			log.Printf("accountsync: closure reconciliation failed for %s %s: %v", change.Symbol, change.Side, err)
		}
	}

	currentByKey := positionsByKey(snap.Positions)
	for key, pos := range currentByKey {
		prot := snap.Protections[key]
		if err := s.upsertOpenPosition(ctx, pos, prot); err != nil {
			log.Printf("accountsync: upsert open position failed for %s: %v", pos.Symbol, err)
		}
	}

	if err := s.sweepOrphans(ctx, currentByKey, since); err != nil {
		log.Printf("accountsync: orphan sweep failed: %v", err)
	}

	positionCountChanged := s.prev == nil || len(s.prev.Positions) != len(snap.Positions)
	s.updateSnapshotRow(ctx, snap, positionCountChanged)

	s.prev = snap
	s.latest = snap
	s.syncCount++
	s.lastSyncTime = time.Now()
	return nil
}

// Stats reports sync_count, error_count, last_sync_time, is_running.
func (s *Service) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Stats{
		SyncCount:    s.syncCount,
		ErrorCount:   s.errorCount,
		LastSyncTime: s.lastSyncTime,
		IsRunning:    s.running,
	}
}

// LatestSnapshot returns the most recent in-memory portfolio view without
// touching the exchange (§4.6 step 8's "single row overwrite").
func (s *Service) LatestSnapshot() *portfolio.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latest
}

func diffSnapshots(prev, curr *portfolio.Snapshot) []PositionChange {
	if prev == nil {
		return nil
	}
	tolerance, _ := decimal.NewFromString(changeTolerance)
	oldMap := positionsByKey(prev.Positions)
	newMap := positionsByKey(curr.Positions)

	var changes []PositionChange
	for key, old := range oldMap {
		nw, ok := newMap[key]
		if !ok {
			changes = append(changes, PositionChange{
				Symbol: old.Symbol, Side: old.Side, Type: ChangeClosed,
				OldAmount: old.Amount, NewAmount: decimal.Zero, MarkPrice: old.CurrentPrice,
			})
			continue
		}
		delta := nw.Amount.Sub(old.Amount)
		if delta.Abs().LessThanOrEqual(tolerance) {
			continue
		}
		change := PositionChange{Symbol: old.Symbol, Side: old.Side, OldAmount: old.Amount, NewAmount: nw.Amount, MarkPrice: nw.CurrentPrice}
		if delta.IsNegative() {
			change.Type = ChangeReduced
		} else {
			change.Type = ChangeIncreased
		}
		changes = append(changes, change)
	}
	return changes
}

func positionsByKey(positions []models.Position) map[string]models.Position {
	m := make(map[string]models.Position, len(positions))
	for _, p := range positions {
		m[positionKey(p.Symbol, p.Side)] = p
	}
	return m
}

func positionKey(symbol string, side models.OrderSide) string {
	return symbol + "|" + string(side)
}

func oppositeSide(side models.OrderSide) models.OrderSide {
	if side == models.OrderSideBuy {
		return models.OrderSideSell
	}
	return models.OrderSideBuy
}

// processClosure reconstructs and persists a closed-position ledger row for
// a full (closed) or partial (reduced) exit, then deletes or shrinks the
// live DB position (§4.6 steps 4-5).
func (s *Service) processClosure(ctx context.Context, symbol string, side models.OrderSide, closedAmount, markPrice decimal.Decimal, since time.Time) error {
	dbPos, err := s.positions.GetOpen(ctx, s.exchangeID, symbol, side)
	if err != nil || dbPos == nil {
		return nil
	}
	if closedAmount.GreaterThan(dbPos.Amount) {
		closedAmount = dbPos.Amount
	}

	exitPrice, fee, orderID, reason, exitTime := s.reconstructClosure(ctx, symbol, side, since, markPrice)

	entryFeeShare := decimal.Zero
	if dbPos.Amount.IsPositive() {
		entryFeeShare = dbPos.EntryFee.Mul(closedAmount).Div(dbPos.Amount)
	}
	totalFee := fee.Add(entryFeeShare)

	var orderIDPtr *string
	if orderID != "" {
		orderIDPtr = &orderID
	}
	cp := models.NewClosedPosition(dbPos, closedAmount, exitPrice, totalFee, exitTime, orderIDPtr, reason)
	if err := s.closed.Create(ctx, cp); err != nil {
		return fmt.Errorf("persist closed position: %w", err)
	}

	if closedAmount.GreaterThanOrEqual(dbPos.Amount) {
		return s.positions.Close(ctx, dbPos.ID)
	}
	dbPos.Amount = dbPos.Amount.Sub(closedAmount)
	dbPos.EntryFee = dbPos.EntryFee.Sub(entryFeeShare)
	return s.positions.Upsert(ctx, dbPos)
}

// reconstructClosure implements §4.6 step 4: the expected-closure
// short-circuit, falling back to trade-history aggregation, falling back
// again to the mark price when no fills match.
func (s *Service) reconstructClosure(ctx context.Context, symbol string, side models.OrderSide, since time.Time, markPrice decimal.Decimal) (exitPrice, totalFee decimal.Decimal, orderID string, reason models.CloseReason, exitTime time.Time) {
	if c, ok := s.expected.Pop(symbol, side); ok {
		return c.ExitPrice, decimal.Zero, c.OrderID, c.Reason, c.ExitTime
	}

	closingSide := oppositeSide(side)
	trades, err := s.exchange.FetchMyTrades(ctx, symbol, "", since)
	if err != nil {
		log.Printf("accountsync: fetch_my_trades failed for %s: %v", symbol, err)
		return markPrice, decimal.Zero, "", models.CloseReasonSystem, time.Now()
	}

	var sumAmount, sumCost, sumFee decimal.Decimal
	var firstOrderID string
	reasonCounts := make(map[models.CloseReason]int)
	for _, t := range trades {
		if !t.Timestamp.After(since) || t.Side != closingSide {
			continue
		}
		sumAmount = sumAmount.Add(t.Amount)
		sumCost = sumCost.Add(t.Price.Mul(t.Amount))
		if t.Fee != nil {
			sumFee = sumFee.Add(*t.Fee)
		}
		if firstOrderID == "" {
			firstOrderID = t.OrderID
		}
		reasonCounts[s.classifyTradeReason(ctx, t.OrderID)]++
	}
	if sumAmount.IsZero() {
		return markPrice, decimal.Zero, "", models.CloseReasonSystem, time.Now()
	}
	return sumCost.Div(sumAmount), sumFee, firstOrderID, dominantReason(reasonCounts), time.Now()
}

func (s *Service) classifyTradeReason(ctx context.Context, orderID string) models.CloseReason {
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil || order == nil {
		return models.CloseReasonManual
	}
	return classifyOrderType(order.Type)
}

// classifyOrderType derives a close reason from an order type label, per
// §4.6 step 4's substring rules.
func classifyOrderType(t models.OrderType) models.CloseReason {
	s := strings.ToLower(string(t))
	switch {
	case strings.Contains(s, "stop"):
		return models.CloseReasonStopLoss
	case strings.Contains(s, "take_profit"), strings.Contains(s, "limit"):
		return models.CloseReasonTakeProfit
	case strings.Contains(s, "liquidation"):
		return models.CloseReasonLiquidation
	default:
		return models.CloseReasonManual
	}
}

func dominantReason(counts map[models.CloseReason]int) models.CloseReason {
	best := models.CloseReasonManual
	bestCount := -1
	for reason, count := range counts {
		if count > bestCount {
			bestCount = count
			best = reason
		}
	}
	return best
}

// upsertOpenPosition implements §4.6 step 6: UPSERT by (exchange_id, symbol,
// side, is_open=true), estimating the open-fee on insert only.
func (s *Service) upsertOpenPosition(ctx context.Context, pos models.Position, prot portfolio.Protection) error {
	existing, _ := s.positions.GetOpen(ctx, s.exchangeID, pos.Symbol, pos.Side)
	pos.ExchangeID = s.exchangeID
	pos.IsOpen = true
	pos.StopLoss = prot.StopLoss
	pos.TakeProfit = prot.TakeProfit
	pos.Recalculate(pos.CurrentPrice)

	if existing == nil {
		if pos.OpenedAt.IsZero() {
			pos.OpenedAt = time.Now()
		}
		pos.EntryFee = s.estimateOpenFee(ctx, pos.Symbol, pos.Side, pos.Amount, pos.OpenedAt)
	} else {
		pos.ID = existing.ID
		pos.OpenedAt = existing.OpenedAt
		pos.EntryFee = existing.EntryFee
		pos.EntryOrderID = existing.EntryOrderID
	}
	return s.positions.Upsert(ctx, &pos)
}

// estimateOpenFee fetches trade history from opened_at-10m onward and sums
// the fees of same-side fills, in the order the exchange returns them, until
// their cumulative amount covers the position (§4.6 step 6).
func (s *Service) estimateOpenFee(ctx context.Context, symbol string, side models.OrderSide, amount decimal.Decimal, openedAt time.Time) decimal.Decimal {
	trades, err := s.exchange.FetchMyTrades(ctx, symbol, "", openedAt.Add(-entryFeeWalkWindow))
	if err != nil {
		log.Printf("accountsync: entry-fee trade walk failed for %s: %v", symbol, err)
		return decimal.Zero
	}
	var cumulative, fee decimal.Decimal
	for _, t := range trades {
		if t.Side != side {
			continue
		}
		cumulative = cumulative.Add(t.Amount)
		if t.Fee != nil {
			fee = fee.Add(*t.Fee)
		}
		if cumulative.GreaterThanOrEqual(amount) {
			break
		}
	}
	return fee
}

// sweepOrphans closes every DB-live position that exchange truth no longer
// reports (§4.6 step 7).
func (s *Service) sweepOrphans(ctx context.Context, currentByKey map[string]models.Position, since time.Time) error {
	dbOpen, err := s.positions.ListOpen(ctx, s.exchangeID)
	if err != nil {
		return fmt.Errorf("list open positions: %w", err)
	}
	for _, pos := range dbOpen {
		key := positionKey(pos.Symbol, pos.Side)
		if _, ok := currentByKey[key]; ok {
			continue
		}
		if err := s.processClosure(ctx, pos.Symbol, pos.Side, pos.Amount, pos.CurrentPrice, since); err != nil {
			log.Printf("accountsync: orphan closure failed for %s: %v", pos.Symbol, err)
		}
	}
	return nil
}

// updateSnapshotRow implements §4.6 step 8's dual write: the single
// is_latest row is mutated on every iteration, and a separate archive row
// is additionally inserted on the conditions that keep portfolio_snapshots
// from growing unbounded (first sync, hourly, or a position-count change).
func (s *Service) updateSnapshotRow(ctx context.Context, snap *portfolio.Snapshot, positionCountChanged bool) {
	row := func() *models.PortfolioSnapshot {
		return &models.PortfolioSnapshot{
			ExchangeID:       s.exchangeID,
			TotalEquity:      snap.WalletBalance,
			AvailableBalance: snap.AvailableBalance,
			UnrealizedPnl:    sumUnrealizedPnl(snap.Positions),
			OpenPositions:    len(snap.Positions),
			MarginUsed:       snap.MarginBalance,
			Timestamp:        snap.TakenAt,
		}
	}

	if err := s.snapshots.Upsert(ctx, row()); err != nil {
		log.Printf("accountsync: failed to update latest portfolio snapshot: %v", err)
	}

	shouldArchive := s.lastArchiveAt.IsZero() || time.Since(s.lastArchiveAt) >= archiveInterval || positionCountChanged
	if !shouldArchive {
		return
	}
	if err := s.snapshots.Create(ctx, row()); err != nil {
		log.Printf("accountsync: failed to archive portfolio snapshot: %v", err)
		return
	}
	s.lastArchiveAt = time.Now()
}

func sumUnrealizedPnl(positions []models.Position) decimal.Decimal {
	var total decimal.Decimal
	for _, p := range positions {
		total = total.Add(p.UnrealizedPnl)
	}
	return total
}
