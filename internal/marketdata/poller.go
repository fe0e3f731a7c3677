package marketdata

import (
	"context"
	"log"
	"sync"
	"time"

	"futures_engine/internal/interfaces"
	"futures_engine/internal/interfaces/repository"
	"futures_engine/internal/models"
	"futures_engine/internal/strategist"
	"futures_engine/internal/trader"
)

const (
	tacticalTimeframe     = "15m"
	strategicTimeframe1h  = "1h"
	strategicTimeframe4h  = "4h"
	strategicTimeframe1d  = "1d"
	klineWindow           = 200
	retentionSweepWindow  = 30 * 24 * time.Hour
)

// Poller implements §4.8: periodic fetch_ohlcv polling, Kline persistence,
// and an in-process cache holding the latest fetched kline window per
// symbol/timeframe (replaced on every poll) that the Strategist/Trader read
// from synchronously instead of hitting the DB on every decision cycle.
type Poller struct {
	exchangeID uint
	exchange   interfaces.Exchange
	klines     repository.KlineRepository
	symbols    []string

	mu    sync.RWMutex
	cache map[string][]models.Kline // keyed by "<symbol>|<timeframe>"
}

func NewPoller(exchangeID uint, exchange interfaces.Exchange, klines repository.KlineRepository, symbols []string) *Poller {
	return &Poller{
		exchangeID: exchangeID,
		exchange:   exchange,
		klines:     klines,
		symbols:    symbols,
		cache:      make(map[string][]models.Kline),
	}
}

func cacheKey(symbol, timeframe string) string { return symbol + "|" + timeframe }

// Run polls every interval until ctx is canceled, sweeping retention once
// per hour.
func (p *Poller) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 60 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	retentionTicker := time.NewTicker(time.Hour)
	defer retentionTicker.Stop()

	p.PollOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.PollOnce(ctx)
		case <-retentionTicker.C:
			p.sweepRetention(ctx)
		}
	}
}

// sweepRetention prunes the tactical timeframe per §3 Kline ("retention is
// per-timeframe and optional"); strategic timeframes are kept indefinitely
// since the Strategist reasons over months of 1d/4h history.
func (p *Poller) sweepRetention(ctx context.Context) {
	n, err := p.klines.DeleteOlderThan(ctx, tacticalTimeframe, time.Now().Add(-retentionSweepWindow))
	if err != nil {
		log.Printf("marketdata: retention sweep failed for %s: %v", tacticalTimeframe, err)
		return
	}
	if n > 0 {
		log.Printf("marketdata: retention sweep removed %d %s klines", n, tacticalTimeframe)
	}
}

// PollOnce fetches and caches every configured symbol across the tactical
// and strategic timeframes. Each symbol's fetch is independent so one
// failing request never blocks the rest (§5: fresh session per batch).
func (p *Poller) PollOnce(ctx context.Context) {
	timeframes := []string{tacticalTimeframe, strategicTimeframe1h, strategicTimeframe4h, strategicTimeframe1d}
	for _, symbol := range p.symbols {
		for _, tf := range timeframes {
			if err := p.pollSymbolTimeframe(ctx, symbol, tf); err != nil {
				log.Printf("marketdata: poll failed for %s/%s: %v", symbol, tf, err)
			}
		}
	}
}

func (p *Poller) pollSymbolTimeframe(ctx context.Context, symbol, timeframe string) error {
	klines, err := p.exchange.FetchOHLCV(ctx, symbol, timeframe, klineWindow)
	if err != nil {
		return err
	}
	for i := range klines {
		klines[i].ExchangeID = p.exchangeID
		klines[i].Symbol = symbol
		klines[i].Timeframe = timeframe
		if err := p.klines.Upsert(ctx, &klines[i]); err != nil {
			log.Printf("marketdata: upsert kline failed for %s/%s: %v", symbol, timeframe, err)
		}
	}

	p.mu.Lock()
	p.cache[cacheKey(symbol, timeframe)] = klines
	p.mu.Unlock()
	return nil
}

func (p *Poller) window(symbol, timeframe string) []models.Kline {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.cache[cacheKey(symbol, timeframe)]
}

// TraderSnapshot builds the Trader's MarketSnapshot for symbol off the
// cached tactical-timeframe window; ok is false if nothing has been polled
// yet.
func (p *Poller) TraderSnapshot(symbol string) (trader.MarketSnapshot, bool) {
	klines := p.window(symbol, tacticalTimeframe)
	if len(klines) == 0 {
		return trader.MarketSnapshot{}, false
	}
	price := klines[len(klines)-1].Close
	return BuildMarketSnapshot(symbol, price, klines), true
}

// StrategistSnapshot builds the Strategist's multi-timeframe SymbolSnapshot
// for symbol off the cached 1h/4h/1d windows.
func (p *Poller) StrategistSnapshot(symbol string) (strategist.SymbolSnapshot, bool) {
	k1h := p.window(symbol, strategicTimeframe1h)
	if len(k1h) == 0 {
		return strategist.SymbolSnapshot{}, false
	}
	k4h := p.window(symbol, strategicTimeframe4h)
	k1d := p.window(symbol, strategicTimeframe1d)
	return BuildSymbolSnapshot(symbol, k1h, k4h, k1d), true
}

// AllStrategistSnapshots builds a SymbolSnapshot for every configured
// symbol that has data cached, for the Strategist's MarketEnvironment.
func (p *Poller) AllStrategistSnapshots() []strategist.SymbolSnapshot {
	out := make([]strategist.SymbolSnapshot, 0, len(p.symbols))
	for _, symbol := range p.symbols {
		if snap, ok := p.StrategistSnapshot(symbol); ok {
			out = append(out, snap)
		}
	}
	return out
}

// AllTraderSnapshots builds a MarketSnapshot for every configured symbol
// that has data cached, keyed by symbol, for the Trader's Input.
func (p *Poller) AllTraderSnapshots() map[string]trader.MarketSnapshot {
	out := make(map[string]trader.MarketSnapshot, len(p.symbols))
	for _, symbol := range p.symbols {
		if snap, ok := p.TraderSnapshot(symbol); ok {
			out[symbol] = snap
		}
	}
	return out
}
