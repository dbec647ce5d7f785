package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// TTLs per operation. They bound how stale a cached read may be after an
// ingestion run; there is no invalidation on write.
const (
	ListTTL    = 5 * time.Minute
	SymbolsTTL = time.Hour
	LatestTTL  = 5 * time.Minute
	HistoryTTL = 10 * time.Minute
)

// Absent marks an omitted parameter inside a cache key. It can never
// collide with a symbol (uppercase ticker) or an ISO date.
const Absent = "-"

const keySeparator = ":"

// Key builds a deterministic cache key from an operation name and every
// parameter that affects its result. Identical inputs always produce the
// same key; use Absent for parameters the caller omitted.
func Key(op string, parts ...string) string {
	if len(parts) == 0 {
		return "stocks" + keySeparator + op
	}
	return "stocks" + keySeparator + op + keySeparator + strings.Join(parts, keySeparator)
}

// Cache wraps a Redis client behind a get/set-with-TTL policy. It is never
// authoritative: every failure path degrades to recomputing from the store.
type Cache struct {
	rdb    *redis.Client
	logger *slog.Logger
}

// New creates a Cache on the given Redis address. The connection is not
// verified here; an unreachable backend just means every read computes.
func New(addr, password string, db int, logger *slog.Logger) *Cache {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &Cache{rdb: rdb, logger: logger}
}

// Close shuts down the Redis client.
func (c *Cache) Close() error {
	return c.rdb.Close()
}

// Health checks the Redis connection.
func (c *Cache) Health(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Fetch returns the cached value for key when present and decodable, and
// otherwise computes, stores with the given TTL, and returns the fresh
// value. Cached bytes are decoded with a schema-bound JSON decoder only; a
// corrupt entry is logged, treated as a miss, and overwritten. A cache
// backend failure on either side is logged and bypassed, so the read path
// degrades to the compute function rather than failing.
func Fetch[T any](ctx context.Context, c *Cache, key string, ttl time.Duration, compute func() (T, error)) (T, error) {
	if c != nil {
		cached, err := c.rdb.Get(ctx, key).Bytes()
		switch {
		case err == nil:
			var value T
			decErr := json.Unmarshal(cached, &value)
			if decErr == nil {
				return value, nil
			}
			c.logger.Warn("corrupt cache entry, recomputing", "key", key, "error", decErr)
		case err != redis.Nil:
			c.logger.Warn("cache get failed, bypassing cache", "key", key, "error", err)
		}
	}

	value, err := compute()
	if err != nil {
		return value, err
	}

	if c != nil {
		data, encErr := json.Marshal(value)
		if encErr != nil {
			c.logger.Warn("failed to encode cache entry", "key", key, "error", encErr)
			return value, nil
		}
		if setErr := c.rdb.Set(ctx, key, data, ttl).Err(); setErr != nil {
			c.logger.Warn("cache set failed", "key", key, "error", setErr)
		}
	}
	return value, nil
}

// PageKey builds the key for a listing page. An empty symbol filter is
// recorded as Absent.
func PageKey(symbol string, page, pageSize int) string {
	if symbol == "" {
		symbol = Absent
	}
	return Key("list", symbol, fmt.Sprintf("%d", page), fmt.Sprintf("%d", pageSize))
}

// RangeKey builds the key for a date-range query; nil-equivalent bounds are
// passed as empty strings and recorded as Absent.
func RangeKey(symbol, startDate, endDate string) string {
	if startDate == "" {
		startDate = Absent
	}
	if endDate == "" {
		endDate = Absent
	}
	return Key("history", symbol, startDate, endDate)
}
