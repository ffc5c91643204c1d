package db

import (
	"context"
	"time"
)

// Pinger checks backend connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// KVStore provides the key-value operations the cache layer needs.
// Implementations must be safe for concurrent use.
type KVStore interface {
	Pinger
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}
