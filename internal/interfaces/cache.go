package interfaces

import (
	"context"
	"time"
)

// Cache is the short-term TTL-keyed store backing market/trading context
// and the 10-minute trade-action dedup window (§4.4.1, SPEC_FULL §4.8).
type Cache interface {
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, bool, error)
	Delete(ctx context.Context, key string) error
}
