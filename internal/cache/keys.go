package cache

import (
	"fmt"
	"time"
)

// Namespaces and TTLs for the short-term cache (SPEC_FULL §4.8, §4.4.1).
const (
	TTLMarketContext  = 300 * time.Second
	TTLTradingContext = 3600 * time.Second
	TTLTradeAction    = 900 * time.Second
	TTLMarketPrice    = 3600 * time.Second
)

func MarketContextKey(symbol string) string { return fmt.Sprintf("market:context:%s", symbol) }

const TradingContextKey = "trading:context"

func TradeActionKey(symbol string) string { return fmt.Sprintf("trade:action:%s", symbol) }

func MarketPriceKey(symbol string) string { return fmt.Sprintf("market:prices:%s", symbol) }
