package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/archon-research/stl-oracles/internal/ports/outbound"
)

// Compile-time check that CacheStore implements outbound.CacheStore.
var _ outbound.CacheStore = (*CacheStore)(nil)

// CacheStore is a PostgreSQL implementation of the outbound.CacheStore port,
// backed by the unique_cache table. Read scopes run in read-only transactions,
// write scopes in read-write transactions.
type CacheStore struct {
	txm    *TxManager
	logger *slog.Logger
}

// NewCacheStore creates a new PostgreSQL cache store.
func NewCacheStore(txm *TxManager, logger *slog.Logger) (*CacheStore, error) {
	if txm == nil {
		return nil, fmt.Errorf("transaction manager cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CacheStore{
		txm:    txm,
		logger: logger.With("component", "postgres-cache-store"),
	}, nil
}

// WithReadScope runs fn inside a read-only transaction.
func (s *CacheStore) WithReadScope(ctx context.Context, fn func(r outbound.CacheReader) error) error {
	return s.txm.WithReadOnlyTransaction(ctx, func(tx pgx.Tx) error {
		return fn(&cacheCursor{tx: tx})
	})
}

// WithWriteScope runs fn inside a read-write transaction that is committed on success.
func (s *CacheStore) WithWriteScope(ctx context.Context, fn func(w outbound.CacheWriter) error) error {
	return s.txm.WithTransaction(ctx, func(tx pgx.Tx) error {
		return fn(&cacheCursor{tx: tx})
	})
}

type cacheCursor struct {
	tx pgx.Tx
}

func (c *cacheCursor) GetUniqueValue(ctx context.Context, key outbound.CacheKey) (string, bool, error) {
	var value string
	err := c.tx.QueryRow(ctx, `
		SELECT value FROM unique_cache WHERE cache_key = $1
	`, key.String()).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("querying cache value for %s: %w", key, err)
	}
	return value, true, nil
}

func (c *cacheCursor) GetUniqueLastQueried(ctx context.Context, key outbound.CacheKey) (time.Time, bool, error) {
	var ts int64
	err := c.tx.QueryRow(ctx, `
		SELECT last_queried FROM unique_cache WHERE cache_key = $1
	`, key.String()).Scan(&ts)
	if errors.Is(err, pgx.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("querying last queried for %s: %w", key, err)
	}
	return time.Unix(ts, 0), true, nil
}

// SetUniqueValue upserts the entry. last_queried keeps the larger of the stored and new stamp.
func (c *cacheCursor) SetUniqueValue(ctx context.Context, key outbound.CacheKey, value string, at time.Time) error {
	_, err := c.tx.Exec(ctx, `
		INSERT INTO unique_cache (cache_key, value, last_queried)
		VALUES ($1, $2, $3)
		ON CONFLICT (cache_key) DO UPDATE
		SET value = EXCLUDED.value,
		    last_queried = GREATEST(unique_cache.last_queried, EXCLUDED.last_queried)
	`, key.String(), value, at.Unix())
	if err != nil {
		return fmt.Errorf("upserting cache value for %s: %w", key, err)
	}
	return nil
}
