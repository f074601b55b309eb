// Package redis provides a Redis implementation of the CacheStore port.
//
// Each cache entry is a hash at prefix:unique:<CATEGORY>:<name> with the fields
// "value" and "last_queried" (unix seconds). Writes made inside a write scope are
// buffered and applied atomically in a MULTI/EXEC block when the scope succeeds.
package redis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/archon-research/stl-oracles/internal/ports/outbound"
)

// Compile-time check that CacheStore implements outbound.CacheStore
var _ outbound.CacheStore = (*CacheStore)(nil)

const (
	fieldValue       = "value"
	fieldLastQueried = "last_queried"
)

// setUniqueScript overwrites the value and keeps the larger of the stored and
// new last_queried stamp.
var setUniqueScript = redis.NewScript(`
local current = tonumber(redis.call('HGET', KEYS[1], 'last_queried'))
local ts = tonumber(ARGV[2])
if current ~= nil and current > ts then
	ts = current
end
redis.call('HSET', KEYS[1], 'value', ARGV[1], 'last_queried', ts)
return ts
`)

// Config holds Redis cache configuration.
type Config struct {
	// Addr is the Redis server address (e.g., "localhost:6379")
	Addr string
	// Password for Redis authentication (empty for no auth)
	Password string
	// DB is the Redis database number (0-15)
	DB int
	// KeyPrefix is prepended to all cache keys
	KeyPrefix string
}

// ConfigDefaults returns sensible defaults for Redis cache configuration.
func ConfigDefaults() Config {
	return Config{
		Addr:      "localhost:6379",
		Password:  "",
		DB:        0,
		KeyPrefix: "stl-oracles",
	}
}

// CacheStore is a Redis implementation of the outbound.CacheStore port.
type CacheStore struct {
	client    *redis.Client
	keyPrefix string
	logger    *slog.Logger
}

// NewCacheStore creates a new Redis cache store.
func NewCacheStore(cfg Config, logger *slog.Logger) (*CacheStore, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("redis address is required")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if logger == nil {
		logger = slog.Default()
	}

	return &CacheStore{
		client:    client,
		keyPrefix: cfg.KeyPrefix,
		logger:    logger.With("component", "redis-cache-store"),
	}, nil
}

// Ping checks the Redis connection.
func (s *CacheStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (s *CacheStore) Close() error {
	return s.client.Close()
}

// key generates the hash key for a cache entry.
func (s *CacheStore) key(k outbound.CacheKey) string {
	if s.keyPrefix == "" {
		return "unique:" + k.String()
	}
	return s.keyPrefix + ":unique:" + k.String()
}

// WithReadScope runs fn against a snapshot-per-key view of the store.
func (s *CacheStore) WithReadScope(ctx context.Context, fn func(r outbound.CacheReader) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(s.newCursor())
}

// WithWriteScope runs fn and, if it succeeds, applies its buffered writes in one transaction.
func (s *CacheStore) WithWriteScope(ctx context.Context, fn func(w outbound.CacheWriter) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c := s.newCursor()
	if err := fn(c); err != nil {
		return err
	}
	if len(c.pending) == 0 {
		return nil
	}

	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, w := range c.pending {
			setUniqueScript.Eval(ctx, pipe, []string{w.key}, w.value, w.at)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to commit cache writes: %w", err)
	}
	return nil
}

type entry struct {
	value       string
	lastQueried int64
	hasValue    bool
	hasStamp    bool
}

type pendingWrite struct {
	key   string
	value string
	at    int64
}

// cursor memoizes each key it reads so that value and last_queried come from
// the same HMGET, and overlays the scope's own pending writes.
type cursor struct {
	store   *CacheStore
	seen    map[string]entry
	pending []pendingWrite
}

func (s *CacheStore) newCursor() *cursor {
	return &cursor{store: s, seen: make(map[string]entry)}
}

func (c *cursor) load(ctx context.Context, k outbound.CacheKey) (entry, error) {
	key := c.store.key(k)
	if e, ok := c.seen[key]; ok {
		return e, nil
	}

	vals, err := c.store.client.HMGet(ctx, key, fieldValue, fieldLastQueried).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return entry{}, fmt.Errorf("failed to read cache entry %s: %w", k, err)
	}

	var e entry
	if len(vals) == 2 {
		if v, ok := vals[0].(string); ok {
			e.value, e.hasValue = v, true
		}
		if v, ok := vals[1].(string); ok {
			ts, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				c.store.logger.Warn("ignoring unparsable last_queried", "key", key, "raw", v)
			} else {
				e.lastQueried, e.hasStamp = ts, true
			}
		}
	}

	c.seen[key] = e
	return e, nil
}

func (c *cursor) GetUniqueValue(ctx context.Context, k outbound.CacheKey) (string, bool, error) {
	e, err := c.load(ctx, k)
	if err != nil {
		return "", false, err
	}
	return e.value, e.hasValue, nil
}

func (c *cursor) GetUniqueLastQueried(ctx context.Context, k outbound.CacheKey) (time.Time, bool, error) {
	e, err := c.load(ctx, k)
	if err != nil {
		return time.Time{}, false, err
	}
	if !e.hasStamp {
		return time.Time{}, false, nil
	}
	return time.Unix(e.lastQueried, 0), true, nil
}

func (c *cursor) SetUniqueValue(ctx context.Context, k outbound.CacheKey, value string, at time.Time) error {
	e, err := c.load(ctx, k)
	if err != nil {
		return err
	}

	ts := at.Unix()
	if e.hasStamp && e.lastQueried > ts {
		ts = e.lastQueried
	}

	key := c.store.key(k)
	c.seen[key] = entry{value: value, lastQueried: ts, hasValue: true, hasStamp: true}
	c.pending = append(c.pending, pendingWrite{key: key, value: value, at: at.Unix()})
	return nil
}
