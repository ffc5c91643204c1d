package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/openshelf/bookdex/internal/db"
)

// KV is the consumer interface for the cache backend (ISP).
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Cache is a read-through/write-through helper over a key-value backend.
// Every operation is advisory: backend failures and corrupt payloads
// degrade to a miss, never to a caller-visible error.
type Cache struct {
	kv     KV
	total  *prometheus.CounterVec
	logger *zap.Logger
}

// New creates a cache helper.
// total is a counter vec with labels ("namespace", "result"), may be nil.
func New(kv KV, total *prometheus.CounterVec, logger *zap.Logger) *Cache {
	return &Cache{kv: kv, total: total, logger: logger}
}

// Get retrieves and decodes a cached value. The second return reports a hit.
func Get[T any](ctx context.Context, c *Cache, namespace, key string) (T, bool) {
	var zero T
	if c == nil || c.kv == nil {
		return zero, false
	}

	data, err := c.kv.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, db.ErrKeyNotFound) {
			c.logger.Warn("Cache get failed, treating as miss",
				zap.String("namespace", namespace), zap.Error(err))
		}
		c.count(namespace, "miss")
		return zero, false
	}

	var value T
	if err := json.Unmarshal(data, &value); err != nil {
		c.logger.Warn("Failed to decode cached value, treating as miss",
			zap.String("namespace", namespace), zap.Error(err))
		c.count(namespace, "miss")
		return zero, false
	}

	c.count(namespace, "hit")
	return value, true
}

// Set encodes and stores a value with the given expiration. Failures are
// logged and swallowed: the next reader simply misses.
func Set[T any](ctx context.Context, c *Cache, namespace, key string, value T, ttl time.Duration) {
	if c == nil || c.kv == nil {
		return
	}

	data, err := json.Marshal(value)
	if err != nil {
		c.logger.Warn("Failed to encode value for cache",
			zap.String("namespace", namespace), zap.Error(err))
		return
	}
	if err := c.kv.SetWithTTL(ctx, key, data, ttl); err != nil {
		c.logger.Warn("Cache set failed",
			zap.String("namespace", namespace), zap.Error(err))
	}
}

// Through runs the cache-aside pattern once: cached value if present,
// otherwise fetch, optionally validate for cacheability, store, return.
// The bool reports whether the value came from cache. valid gates both
// sides: a cached value failing it is treated as a miss, and a fetched
// value failing it is still returned to the caller but never written back.
func Through[T any](
	ctx context.Context,
	c *Cache,
	namespace, key string,
	ttl time.Duration,
	valid func(T) bool,
	fetch func(context.Context) (T, error),
) (T, bool, error) {
	if value, ok := Get[T](ctx, c, namespace, key); ok {
		if valid == nil || valid(value) {
			return value, true, nil
		}
		c.logger.Warn("Cached value failed validation, refetching",
			zap.String("namespace", namespace))
	}

	value, err := fetch(ctx)
	if err != nil {
		var zero T
		return zero, false, err
	}

	if valid == nil || valid(value) {
		Set(ctx, c, namespace, key, value, ttl)
	}
	return value, false, nil
}

func (c *Cache) count(namespace, result string) {
	if c.total != nil {
		c.total.WithLabelValues(namespace, result).Inc()
	}
}
