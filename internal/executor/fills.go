package executor

import (
	"context"
	"time"

	"futures_engine/internal/interfaces"
	"futures_engine/internal/models"
)

// resolveFills implements §4.4.1: try the order's own trade list first,
// then ask the exchange for matching trades, and only synthesize a fill
// when neither source has anything to offer for a filled order.
func resolveFills(ctx context.Context, exchange interfaces.Exchange, order *models.Order, paperMode bool) []*models.Trade {
	if len(order.RawBlob) > 0 {
		if raw, ok := order.RawBlob["trades"]; ok {
			if trades := tradesFromRaw(order, raw); len(trades) > 0 {
				return trades
			}
		}
	}

	if order.Filled.IsZero() {
		return nil
	}

	if !paperMode {
		fetched, err := exchange.FetchMyTrades(ctx, order.Symbol, order.ID, time.Time{})
		if err == nil {
			matching := make([]*models.Trade, 0, len(fetched))
			for i := range fetched {
				if fetched[i].OrderID == order.ID {
					t := fetched[i]
					matching = append(matching, &t)
				}
			}
			if len(matching) > 0 {
				return matching
			}
		}
	}

	return []*models.Trade{models.SyntheticTrade(order)}
}

// tradesFromRaw tolerates whatever loose shape order.info.trades arrived in;
// it is never populated by the Binance adapter today, but a future
// exchange adapter or a replayed raw blob may carry it.
func tradesFromRaw(order *models.Order, raw interface{}) []*models.Trade {
	items, ok := raw.([]interface{})
	if !ok {
		return nil
	}
	trades := make([]*models.Trade, 0, len(items))
	for _, item := range items {
		m, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		id, _ := m["id"].(string)
		if id == "" {
			continue
		}
		t := models.SyntheticTrade(order)
		t.ID = id
		trades = append(trades, t)
	}
	return trades
}
