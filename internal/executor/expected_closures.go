package executor

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"futures_engine/internal/models"
)

// ExpectedClose is the tuple the Executor hands to the Account Sync Service
// on every exit so the next sync iteration can short-circuit its
// exit-price reconstruction (§4.4 step 10, §4.6 step 4).
type ExpectedClose struct {
	Symbol    string
	Side      models.OrderSide
	Amount    decimal.Decimal
	ExitPrice decimal.Decimal
	ExitTime  time.Time
	OrderID   string
	Reason    models.CloseReason
}

// ExpectedCloseStore is the in-memory map keyed by (symbol, side); one-shot
// — the consumer pops an entry on use so it is never replayed (§5 Shared-
// resource policy: "_expected_closures").
type ExpectedCloseStore struct {
	mu      sync.Mutex
	entries map[string]ExpectedClose
}

func NewExpectedCloseStore() *ExpectedCloseStore {
	return &ExpectedCloseStore{entries: make(map[string]ExpectedClose)}
}

func closureKey(symbol string, side models.OrderSide) string {
	return symbol + "|" + string(side)
}

func (s *ExpectedCloseStore) Register(c ExpectedClose) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[closureKey(c.Symbol, c.Side)] = c
}

// Pop returns the registered closure for (symbol, side), if any, and
// removes it so a later sync iteration never reconsumes it.
func (s *ExpectedCloseStore) Pop(symbol string, side models.OrderSide) (ExpectedClose, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := closureKey(symbol, side)
	c, ok := s.entries[key]
	if ok {
		delete(s.entries, key)
	}
	return c, ok
}
