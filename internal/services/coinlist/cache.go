// Package coinlist caches each oracle's coin list in the unique cache, keyed by
// (COINLIST, oracle name), and serves it back while it is recent enough.
//
// Oracles that expose a coin list embed *Cache to satisfy the cache half of
// outbound.HistoricalPriceOracleWithCoinList.
package coinlist

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/archon-research/stl-oracles/internal/domain/entity"
	"github.com/archon-research/stl-oracles/internal/ports/outbound"
)

// Config holds configuration for the coin-list cache.
type Config struct {
	// OracleName namespaces the cache entry. Required.
	OracleName string

	// Logger is the structured logger for the cache.
	Logger *slog.Logger

	// Metrics records lookup outcomes. Optional.
	Metrics outbound.CacheMetrics

	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time
}

// Cache is the coin-list cache of one oracle.
type Cache struct {
	store   outbound.CacheStore
	key     outbound.CacheKey
	logger  *slog.Logger
	metrics outbound.CacheMetrics
	now     func() time.Time
}

// NewCache creates the coin-list cache for config.OracleName on top of store.
func NewCache(store outbound.CacheStore, config Config) (*Cache, error) {
	if store == nil {
		return nil, fmt.Errorf("cache store cannot be nil")
	}
	if config.OracleName == "" {
		return nil, fmt.Errorf("oracle name is required")
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := config.Now
	if now == nil {
		now = time.Now
	}

	return &Cache{
		store:   store,
		key:     outbound.CacheKey{Category: outbound.CacheCategoryCoinList, Name: config.OracleName},
		logger:  logger.With("component", "coinlist-cache", "oracle", config.OracleName),
		metrics: config.Metrics,
		now:     now,
	}, nil
}

// Key returns the cache key this cache reads and writes.
func (c *Cache) Key() outbound.CacheKey {
	return c.key
}

// MaybeGetCachedCoinList returns the cached coin list if it was written within
// consideredRecent of now, in either direction, so entries stamped in the future
// by a skewed clock still count as recent. The comparison is in whole seconds and
// inclusive. A missing, stale or unparsable entry yields ok=false; only store
// failures are returned as errors.
func (c *Cache) MaybeGetCachedCoinList(ctx context.Context, consideredRecent time.Duration) (entity.CoinList, bool, error) {
	now := c.now()
	var (
		list   entity.CoinList
		result string
	)

	err := c.store.WithReadScope(ctx, func(r outbound.CacheReader) error {
		lastQueried, found, err := r.GetUniqueLastQueried(ctx, c.key)
		if err != nil {
			return fmt.Errorf("reading last queried time: %w", err)
		}
		if !found {
			result = outbound.CacheResultMiss
			return nil
		}

		if ageSeconds(now, lastQueried) > int64(consideredRecent/time.Second) {
			result = outbound.CacheResultStale
			return nil
		}

		raw, found, err := r.GetUniqueValue(ctx, c.key)
		if err != nil {
			return fmt.Errorf("reading cached value: %w", err)
		}
		if !found {
			result = outbound.CacheResultMiss
			return nil
		}

		parsed, ok := entity.ParseCoinList(raw)
		if !ok {
			c.logger.Warn("ignoring corrupt cached coin list", "key", c.key.String(), "bytes", len(raw))
			result = outbound.CacheResultCorrupt
			return nil
		}

		list = parsed
		result = outbound.CacheResultHit
		return nil
	})
	if err != nil {
		return nil, false, fmt.Errorf("looking up cached coin list for %s: %w", c.key.Name, err)
	}

	c.record(ctx, result)
	return list, list != nil, nil
}

// CacheCoinList overwrites the cached coin list, stamped with the current time.
// The write is committed before CacheCoinList returns, or not at all.
func (c *Cache) CacheCoinList(ctx context.Context, data entity.CoinList) error {
	raw, err := data.Encode()
	if err != nil {
		return err
	}

	at := c.now()
	err = c.store.WithWriteScope(ctx, func(w outbound.CacheWriter) error {
		return w.SetUniqueValue(ctx, c.key, raw, at)
	})
	if err != nil {
		return fmt.Errorf("caching coin list for %s: %w", c.key.Name, err)
	}

	c.logger.Debug("cached coin list", "coins", len(data), "at", at.Unix())
	return nil
}

func (c *Cache) record(ctx context.Context, result string) {
	if c.metrics != nil {
		c.metrics.RecordCoinListLookup(ctx, c.key.Name, result)
	}
}

func ageSeconds(now, then time.Time) int64 {
	age := now.Unix() - then.Unix()
	if age < 0 {
		return -age
	}
	return age
}
