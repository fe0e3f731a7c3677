// Package executor implements process_trading_signal (§4.4 Trading
// Executor): the one function that turns a TradingSignal into real orders,
// constrained by the risk pipeline, with stop-loss/take-profit brackets and
// fill reconciliation.
package executor

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/shopspring/decimal"

	"futures_engine/internal/cache"
	"futures_engine/internal/interfaces"
	"futures_engine/internal/interfaces/repository"
	"futures_engine/internal/models"
	"futures_engine/internal/risk"
)

const dedupWindow = 10 * time.Minute
const dedupAmountTolerance = "0.000001"

// MarketSnapshot is the current-price reference the executor falls back to
// whenever a signal omits an explicit price (§4.4 step 1).
type MarketSnapshot struct {
	Price decimal.Decimal
}

// PortfolioUpdater is the §4.5 Portfolio Manager's write-side contract, as
// seen by the Executor's step 8.
type PortfolioUpdater interface {
	ApplyFill(ctx context.Context, symbol string, side models.OrderSide, amount, price decimal.Decimal) error
	ForceSync(ctx context.Context) error
}

// Input is one process_trading_signal invocation.
type Input struct {
	ExchangeID uint
	Symbol     string
	Signal     *models.TradingSignal
	Snapshot   MarketSnapshot
	Portfolio  risk.PortfolioState
	PaperMode  bool
	// Reason overrides the expected-close reason handed to Account Sync;
	// zero value defaults to CloseReasonManual (signal-driven exits).
	Reason models.CloseReason
}

// Result is what the pipeline actually did, for the caller and for logging.
type Result struct {
	Approved        bool
	Reason          string
	Warnings        []string
	MainOrder       *models.Order
	StopOrder       *models.Order
	TakeProfitOrder *models.Order
}

type Executor struct {
	exchange  interfaces.Exchange
	cache     interfaces.Cache
	orders    repository.OrderRepository
	trades    repository.TradeRepository
	positions repository.PositionRepository
	expected  *ExpectedCloseStore
	portfolio PortfolioUpdater
	limits    risk.Limits
}

func New(
	exchange interfaces.Exchange,
	c interfaces.Cache,
	orders repository.OrderRepository,
	trades repository.TradeRepository,
	positions repository.PositionRepository,
	expected *ExpectedCloseStore,
	portfolio PortfolioUpdater,
	limits risk.Limits,
) *Executor {
	return &Executor{
		exchange:  exchange,
		cache:     c,
		orders:    orders,
		trades:    trades,
		positions: positions,
		expected:  expected,
		portfolio: portfolio,
		limits:    limits,
	}
}

// Process runs the full pipeline, aborting on the first negative step.
func (e *Executor) Process(ctx context.Context, in Input) (*Result, error) {
	sig := in.Signal
	if sig == nil || sig.SignalType == models.SignalHold {
		return &Result{Approved: true, Reason: "hold"}, nil
	}

	exiting := sig.SignalType == models.SignalCloseLong || sig.SignalType == models.SignalCloseShort

	if exiting {
		return e.processExit(ctx, in)
	}
	return e.processEntry(ctx, in)
}

func (e *Executor) processEntry(ctx context.Context, in Input) (*Result, error) {
	sig := in.Signal
	side := intendedSide(sig.SignalType)
	price := in.Snapshot.Price

	// Step 1: validate & repair — entries need both amount and price.
	amount := sig.SuggestedSize
	if amount.IsZero() || amount.IsNegative() || price.IsZero() || price.IsNegative() {
		return &Result{Approved: false, Reason: "entry signal dropped: missing suggested_amount or market price"}, nil
	}

	// Step 2: risk check, including conflicting-direction detection.
	opposite, _ := e.positions.GetOpen(ctx, in.ExchangeID, in.Symbol, oppositeSide(side))
	result := risk.CheckOrderRisk(risk.OrderRiskInput{
		Symbol:            in.Symbol,
		SignalType:        sig.SignalType,
		SuggestedAmount:   amount,
		SuggestedPrice:    price,
		SuggestedLeverage: leverageOrOne(sig.SuggestedLeverage),
		ExistingPosition:  opposite,
	}, in.Portfolio, e.limits)
	if !result.Approved {
		return &Result{Approved: false, Reason: result.Reason, Warnings: result.Warnings}, nil
	}

	// Step 3: protective prices — prefer the signal's own stop_loss/
	// take_profit when it supplied them, falling back to the configured
	// defaults otherwise (§4.3 TradingSignal, §4.4 step 3).
	stopLoss, takeProfit := risk.CalculateStopLossTakeProfit(price, side, e.limits)
	if sig.StopLoss != nil && sig.StopLoss.IsPositive() {
		stopLoss = *sig.StopLoss
	}
	if sig.TakeProfit != nil && sig.TakeProfit.IsPositive() {
		takeProfit = *sig.TakeProfit
	}

	// Step 6: atomic order group.
	if sig.SuggestedLeverage != nil && sig.SuggestedLeverage.GreaterThan(decimal.NewFromInt(1)) {
		if err := e.exchange.SetLeverage(ctx, in.Symbol, int(sig.SuggestedLeverage.IntPart())); err != nil {
			log.Printf("executor: set_leverage failed for %s: %v", in.Symbol, err)
		}
	}

	mainPositionSide := inferPositionSide(side, false)
	mainOrder, err := e.exchange.PlaceOrder(ctx, interfaces.OrderRequest{
		Symbol:       in.Symbol,
		Side:         side,
		Type:         models.OrderTypeMarket,
		Amount:       amount,
		PositionSide: mainPositionSide,
	})
	if err != nil {
		return nil, fmt.Errorf("executor: main order failed for %s: %w", in.Symbol, err)
	}

	protSide := oppositeSide(side)
	protPositionSide := inferPositionSide(protSide, true)

	var stopOrder, takeOrder *models.Order
	if sl, err := e.exchange.PlaceOrder(ctx, interfaces.OrderRequest{
		Symbol:       in.Symbol,
		Side:         protSide,
		Type:         models.OrderTypeStopLoss,
		Amount:       amount,
		StopPrice:    &stopLoss,
		ReduceOnly:   true,
		PositionSide: protPositionSide,
	}); err != nil {
		log.Printf("executor: stop-loss placement failed for %s: %v", in.Symbol, err)
	} else {
		stopOrder = sl
	}
	if tp, err := e.exchange.PlaceOrder(ctx, interfaces.OrderRequest{
		Symbol:       in.Symbol,
		Side:         protSide,
		Type:         models.OrderTypeTakeProfit,
		Amount:       amount,
		StopPrice:    &takeProfit,
		ReduceOnly:   true,
		PositionSide: protPositionSide,
	}); err != nil {
		log.Printf("executor: take-profit placement failed for %s: %v", in.Symbol, err)
	} else {
		takeOrder = tp
	}

	// Step 7: persist orders and resolve fills.
	e.persistOrderAndFills(ctx, mainOrder, in.PaperMode)
	if stopOrder != nil {
		e.persistOrderAndFills(ctx, stopOrder, in.PaperMode)
	}
	if takeOrder != nil {
		e.persistOrderAndFills(ctx, takeOrder, in.PaperMode)
	}

	// Step 8: update portfolio.
	e.updatePortfolio(ctx, in.Symbol, side, amount, price, in.PaperMode)

	// Step 11: context update.
	e.writeTradingContext(ctx, in, side, amount, price)
	e.rememberTradeAction(ctx, in.Symbol, sig.SignalType, amount)

	return &Result{Approved: true, MainOrder: mainOrder, StopOrder: stopOrder, TakeProfitOrder: takeOrder, Warnings: result.Warnings}, nil
}

func (e *Executor) processExit(ctx context.Context, in Input) (*Result, error) {
	sig := in.Signal
	positionSide := targetPositionSide(sig.SignalType)

	// Step 1: validate & repair — require an existing position, default/
	// clamp the amount, fall back to the market snapshot's price.
	pos, err := e.positions.GetOpen(ctx, in.ExchangeID, in.Symbol, positionSide)
	if err != nil || pos == nil {
		return &Result{Approved: false, Reason: "no open position to close on " + in.Symbol}, nil
	}

	amount := sig.SuggestedSize
	if amount.IsZero() || amount.IsNegative() {
		amount = pos.Amount
	}
	if amount.GreaterThan(pos.Amount) {
		amount = pos.Amount
	}
	isPartial := amount.LessThan(pos.Amount)
	if isPartial {
		pct := amount.Div(pos.Amount).Mul(decimal.NewFromInt(100))
		log.Printf("executor: partial exit on %s: closing %s%% of the open position", in.Symbol, pct.StringFixed(1))
	}

	price := in.Snapshot.Price
	if price.IsZero() {
		price = pos.CurrentPrice
	}

	// Step 2: risk check — exits always pass check_order_risk (§4.7), so
	// there is nothing to branch on here.

	// Step 4: deduplicate.
	if e.isDuplicateAction(ctx, in.Symbol, sig.SignalType, amount) {
		return &Result{Approved: true, Reason: "deduplicated: identical exit within the last 10 minutes"}, nil
	}

	// Step 5: cancel stale protections.
	e.cancelProtectiveOrders(ctx, in.Symbol)

	// Step 6: place the closing order.
	orderSide := exitOrderSide(sig.SignalType)
	mainOrder, err := e.exchange.PlaceOrder(ctx, interfaces.OrderRequest{
		Symbol:       in.Symbol,
		Side:         orderSide,
		Type:         models.OrderTypeMarket,
		Amount:       amount,
		ReduceOnly:   true,
		PositionSide: inferPositionSide(orderSide, true),
	})
	if err != nil {
		return nil, fmt.Errorf("executor: exit order failed for %s: %w", in.Symbol, err)
	}

	// Step 7: persist and resolve fills.
	e.persistOrderAndFills(ctx, mainOrder, in.PaperMode)

	// Step 8: update portfolio.
	e.updatePortfolio(ctx, in.Symbol, orderSide, amount, price, in.PaperMode)

	// Step 9: post-exit re-protection on the residual amount. Prefer the
	// exit signal's own stop_loss/take_profit over the configured defaults
	// when it supplied them (§4.4 step 9).
	if isPartial {
		e.reprotectResidual(ctx, pos, amount, price, sig.StopLoss, sig.TakeProfit)
	}

	// Step 10: expected-close registration.
	reason := in.Reason
	if reason == "" {
		reason = models.CloseReasonManual
	}
	exitPrice := price
	if mainOrder.Average != nil {
		exitPrice = *mainOrder.Average
	} else if mainOrder.Price != nil {
		exitPrice = *mainOrder.Price
	}
	e.expected.Register(ExpectedClose{
		Symbol:    in.Symbol,
		Side:      pos.Side,
		Amount:    amount,
		ExitPrice: exitPrice,
		ExitTime:  time.Now(),
		OrderID:   mainOrder.ID,
		Reason:    reason,
	})

	// Step 11: context update.
	e.writeTradingContext(ctx, in, orderSide, amount, price)
	e.rememberTradeAction(ctx, in.Symbol, sig.SignalType, amount)

	return &Result{Approved: true, MainOrder: mainOrder}, nil
}

// reprotectResidual places fresh reduceOnly stop/take-profit orders on what
// is left of a position after a partial exit, skipping any level that would
// sit on the wrong side of the current price (§4.4 step 9). signalStopLoss
// and signalTakeProfit, when supplied by the exit signal, take precedence
// over the computed config defaults.
func (e *Executor) reprotectResidual(ctx context.Context, pos *models.Position, closedAmount, currentPrice decimal.Decimal, signalStopLoss, signalTakeProfit *decimal.Decimal) {
	residual := pos.Amount.Sub(closedAmount)
	if residual.LessThanOrEqual(decimal.Zero) {
		return
	}
	stopLoss, takeProfit := risk.CalculateStopLossTakeProfit(pos.EntryPrice, pos.Side, e.limits)
	if signalStopLoss != nil && signalStopLoss.IsPositive() {
		stopLoss = *signalStopLoss
	}
	if signalTakeProfit != nil && signalTakeProfit.IsPositive() {
		takeProfit = *signalTakeProfit
	}

	protSide := oppositeSide(pos.Side)
	protPositionSide := inferPositionSide(protSide, true)

	stopValid := (pos.Side == models.OrderSideBuy && stopLoss.LessThan(currentPrice)) ||
		(pos.Side == models.OrderSideSell && stopLoss.GreaterThan(currentPrice))
	takeValid := (pos.Side == models.OrderSideBuy && takeProfit.GreaterThan(currentPrice)) ||
		(pos.Side == models.OrderSideSell && takeProfit.LessThan(currentPrice))

	if stopValid {
		if _, err := e.exchange.PlaceOrder(ctx, interfaces.OrderRequest{
			Symbol: pos.Symbol, Side: protSide, Type: models.OrderTypeStopLoss,
			Amount: residual, StopPrice: &stopLoss, ReduceOnly: true, PositionSide: protPositionSide,
		}); err != nil {
			log.Printf("executor: residual stop-loss placement failed for %s: %v", pos.Symbol, err)
		}
	}
	if takeValid {
		if _, err := e.exchange.PlaceOrder(ctx, interfaces.OrderRequest{
			Symbol: pos.Symbol, Side: protSide, Type: models.OrderTypeTakeProfit,
			Amount: residual, StopPrice: &takeProfit, ReduceOnly: true, PositionSide: protPositionSide,
		}); err != nil {
			log.Printf("executor: residual take-profit placement failed for %s: %v", pos.Symbol, err)
		}
	}
}

func (e *Executor) cancelProtectiveOrders(ctx context.Context, symbol string) {
	open, err := e.exchange.FetchOpenOrders(ctx, symbol)
	if err != nil {
		log.Printf("executor: fetch_open_orders failed for %s: %v", symbol, err)
		return
	}
	for _, o := range open {
		if isProtectiveOrderType(o.Type) {
			if err := e.exchange.CancelOrder(ctx, symbol, o.ID); err != nil {
				log.Printf("executor: cancel stale protective order %s failed: %v", o.ID, err)
			}
		}
	}
}

func isProtectiveOrderType(t models.OrderType) bool {
	switch t {
	case models.OrderTypeStopLoss, models.OrderTypeStopLossLimit, models.OrderTypeTakeProfit, models.OrderTypeTakeProfitLimit:
		return true
	default:
		return false
	}
}

func (e *Executor) persistOrderAndFills(ctx context.Context, order *models.Order, paperMode bool) {
	order.NormalizeStatus()
	if err := e.orders.Upsert(ctx, order); err != nil {
		log.Printf("executor: failed to persist order %s: %v", order.ID, err)
	}
	for _, t := range resolveFills(ctx, e.exchange, order, paperMode) {
		if err := e.trades.Create(ctx, t); err != nil {
			log.Printf("executor: failed to persist trade %s: %v", t.ID, err)
		}
	}
}

func (e *Executor) updatePortfolio(ctx context.Context, symbol string, side models.OrderSide, amount, price decimal.Decimal, paperMode bool) {
	if e.portfolio == nil {
		return
	}
	var err error
	if paperMode {
		err = e.portfolio.ApplyFill(ctx, symbol, side, amount, price)
	} else {
		err = e.portfolio.ForceSync(ctx)
	}
	if err != nil {
		log.Printf("executor: portfolio update failed for %s: %v", symbol, err)
	}
}

type tradeActionRecord struct {
	SignalType models.SignalType `json:"signal_type"`
	Amount     string            `json:"amount"`
	At         time.Time         `json:"at"`
}

// isDuplicateAction implements §4.4 step 4: skip an exit identical to the
// last one taken on this symbol within the last 10 minutes.
func (e *Executor) isDuplicateAction(ctx context.Context, symbol string, signalType models.SignalType, amount decimal.Decimal) bool {
	raw, ok, err := e.cache.Get(ctx, cache.TradeActionKey(symbol))
	if err != nil || !ok {
		return false
	}
	var rec tradeActionRecord
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return false
	}
	if rec.SignalType != signalType {
		return false
	}
	if time.Since(rec.At) > dedupWindow {
		return false
	}
	tolerance, _ := decimal.NewFromString(dedupAmountTolerance)
	prevAmount, err := decimal.NewFromString(rec.Amount)
	if err != nil {
		return false
	}
	return prevAmount.Sub(amount).Abs().LessThanOrEqual(tolerance)
}

func (e *Executor) rememberTradeAction(ctx context.Context, symbol string, signalType models.SignalType, amount decimal.Decimal) {
	rec := tradeActionRecord{SignalType: signalType, Amount: amount.String(), At: time.Now()}
	blob, err := json.Marshal(rec)
	if err != nil {
		return
	}
	if err := e.cache.Set(ctx, cache.TradeActionKey(symbol), string(blob), cache.TTLTradeAction); err != nil {
		log.Printf("executor: failed to write trade-action cache for %s: %v", symbol, err)
	}
}

type tradingContextRecord struct {
	Symbol     string          `json:"symbol"`
	SignalType models.SignalType `json:"signal_type"`
	Side       models.OrderSide `json:"side"`
	Amount     string          `json:"amount"`
	Price      string          `json:"price"`
	PaperMode  bool            `json:"paper_mode"`
	At         time.Time       `json:"at"`
}

func (e *Executor) writeTradingContext(ctx context.Context, in Input, side models.OrderSide, amount, price decimal.Decimal) {
	rec := tradingContextRecord{
		Symbol:     in.Symbol,
		SignalType: in.Signal.SignalType,
		Side:       side,
		Amount:     amount.String(),
		Price:      price.String(),
		PaperMode:  in.PaperMode,
		At:         time.Now(),
	}
	blob, err := json.Marshal(rec)
	if err != nil {
		return
	}
	if err := e.cache.Set(ctx, cache.TradingContextKey, string(blob), cache.TTLTradingContext); err != nil {
		log.Printf("executor: failed to write trading context cache: %v", err)
	}
}

func leverageOrOne(leverage *decimal.Decimal) decimal.Decimal {
	if leverage == nil {
		return decimal.NewFromInt(1)
	}
	return *leverage
}
