//go:build integration

package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/archon-research/stl-oracles/db/migrations"
	"github.com/archon-research/stl-oracles/db/migrator"
	"github.com/archon-research/stl-oracles/internal/domain/entity"
	"github.com/archon-research/stl-oracles/internal/ports/outbound"
	"github.com/archon-research/stl-oracles/internal/services/coinlist"
)

func setupPostgres(t *testing.T) *pgxpool.Pool {
	t.Helper()
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:17",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "testdb",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("failed to get container host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("failed to get container port: %v", err)
	}

	dsn := fmt.Sprintf("postgres://test:test@%s:%s/testdb?sslmode=disable", host, port.Port())
	pool, err := OpenPool(ctx, DefaultDBConfig(dsn), nil)
	if err != nil {
		t.Fatalf("OpenPool() error = %v", err)
	}
	t.Cleanup(pool.Close)

	if _, err := migrator.New(pool, migrations.Files, nil).ApplyAll(ctx); err != nil {
		t.Fatalf("failed to apply migrations: %v", err)
	}

	return pool
}

func newCacheStore(t *testing.T, pool *pgxpool.Pool) *CacheStore {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	txm, err := NewTxManager(pool, logger)
	if err != nil {
		t.Fatalf("NewTxManager() error = %v", err)
	}
	store, err := NewCacheStore(txm, logger)
	if err != nil {
		t.Fatalf("NewCacheStore() error = %v", err)
	}
	return store
}

var cacheKey = outbound.CacheKey{Category: outbound.CacheCategoryCoinList, Name: "coingecko"}

func TestCacheStore_Integration(t *testing.T) {
	pool := setupPostgres(t)
	store := newCacheStore(t, pool)
	ctx := context.Background()

	t.Run("absent key", func(t *testing.T) {
		err := store.WithReadScope(ctx, func(r outbound.CacheReader) error {
			if _, ok, err := r.GetUniqueValue(ctx, cacheKey); ok || err != nil {
				t.Errorf("GetUniqueValue() ok=%v err=%v", ok, err)
			}
			if _, ok, err := r.GetUniqueLastQueried(ctx, cacheKey); ok || err != nil {
				t.Errorf("GetUniqueLastQueried() ok=%v err=%v", ok, err)
			}
			return nil
		})
		if err != nil {
			t.Fatalf("WithReadScope() error = %v", err)
		}
	})

	t.Run("upsert keeps the newest stamp", func(t *testing.T) {
		later := time.Unix(1_700_000_100, 0)
		earlier := time.Unix(1_700_000_000, 0)

		for _, step := range []struct {
			value string
			at    time.Time
		}{{`{"a":{}}`, later}, {`{"b":{}}`, earlier}} {
			err := store.WithWriteScope(ctx, func(w outbound.CacheWriter) error {
				return w.SetUniqueValue(ctx, cacheKey, step.value, step.at)
			})
			if err != nil {
				t.Fatalf("WithWriteScope() error = %v", err)
			}
		}

		err := store.WithReadScope(ctx, func(r outbound.CacheReader) error {
			v, _, err := r.GetUniqueValue(ctx, cacheKey)
			if err != nil {
				return err
			}
			ts, _, err := r.GetUniqueLastQueried(ctx, cacheKey)
			if err != nil {
				return err
			}
			if v != `{"b":{}}` {
				t.Errorf("value = %s, want the latest write", v)
			}
			if !ts.Equal(later) {
				t.Errorf("last queried = %v, want %v", ts, later)
			}
			return nil
		})
		if err != nil {
			t.Fatalf("WithReadScope() error = %v", err)
		}
	})

	t.Run("failed write scope rolls back", func(t *testing.T) {
		key := outbound.CacheKey{Category: outbound.CacheCategoryCoinList, Name: "rollback"}
		boom := errors.New("boom")
		err := store.WithWriteScope(ctx, func(w outbound.CacheWriter) error {
			if err := w.SetUniqueValue(ctx, key, "{}", time.Now()); err != nil {
				return err
			}
			return boom
		})
		if !errors.Is(err, boom) {
			t.Fatalf("expected boom, got %v", err)
		}

		_ = store.WithReadScope(ctx, func(r outbound.CacheReader) error {
			if _, ok, _ := r.GetUniqueValue(ctx, key); ok {
				t.Error("rolled back write is visible")
			}
			return nil
		})
	})

	t.Run("read scope rejects writes", func(t *testing.T) {
		err := store.WithReadScope(ctx, func(r outbound.CacheReader) error {
			w, ok := r.(outbound.CacheWriter)
			if !ok {
				return errors.New("reader is not a writer")
			}
			return w.SetUniqueValue(ctx, cacheKey, "{}", time.Now())
		})
		if err == nil {
			t.Error("expected a write inside a read-only transaction to fail")
		}
	})
}

func TestCoinListCache_OnPostgres(t *testing.T) {
	pool := setupPostgres(t)
	store := newCacheStore(t, pool)
	ctx := context.Background()

	now := time.Unix(1_700_000_000, 0)
	cache, err := coinlist.NewCache(store, coinlist.Config{OracleName: "coingecko", Now: func() time.Time { return now }})
	if err != nil {
		t.Fatalf("NewCache() error = %v", err)
	}

	list := entity.CoinList{"bitcoin": {"symbol": "btc", "name": "Bitcoin"}}
	if err := cache.CacheCoinList(ctx, list); err != nil {
		t.Fatalf("CacheCoinList() error = %v", err)
	}

	got, ok, err := cache.MaybeGetCachedCoinList(ctx, time.Minute)
	if err != nil || !ok {
		t.Fatalf("MaybeGetCachedCoinList() ok=%v err=%v", ok, err)
	}
	if got["bitcoin"]["symbol"] != "btc" {
		t.Errorf("got %v", got)
	}

	_, err = pool.Exec(ctx, `UPDATE unique_cache SET value = 'garbage' WHERE cache_key = $1`, cache.Key().String())
	if err != nil {
		t.Fatalf("failed to corrupt entry: %v", err)
	}
	if _, ok, err := cache.MaybeGetCachedCoinList(ctx, time.Minute); ok || err != nil {
		t.Errorf("corrupt entry: ok=%v err=%v, want absent without error", ok, err)
	}
}

func TestManualPriceRepository_Integration(t *testing.T) {
	pool := setupPostgres(t)
	repo, err := NewManualPriceRepository(pool, nil)
	if err != nil {
		t.Fatalf("NewManualPriceRepository() error = %v", err)
	}
	ctx := context.Background()

	got, err := repo.GetManualPrice(ctx, "missing")
	if err != nil || got != nil {
		t.Fatalf("GetManualPrice(missing) = %v, %v", got, err)
	}

	expires := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	mp, err := entity.NewManualPrice("eip155:1/erc20:0xabc", decimal.RequireFromString("1.2345"), "USD", expires)
	if err != nil {
		t.Fatalf("NewManualPrice() error = %v", err)
	}
	if err := repo.UpsertManualPrice(ctx, mp); err != nil {
		t.Fatalf("UpsertManualPrice() error = %v", err)
	}

	mp.Price = decimal.RequireFromString("2.5")
	mp.ExpiresAt = time.Time{}
	if err := repo.UpsertManualPrice(ctx, mp); err != nil {
		t.Fatalf("UpsertManualPrice(update) error = %v", err)
	}

	got, err = repo.GetManualPrice(ctx, mp.AssetID)
	if err != nil {
		t.Fatalf("GetManualPrice() error = %v", err)
	}
	if got == nil || !got.Price.Equal(decimal.RequireFromString("2.5")) || got.Currency != "USD" {
		t.Fatalf("GetManualPrice() = %+v", got)
	}
	if !got.ExpiresAt.IsZero() {
		t.Errorf("ExpiresAt = %v, want zero after clearing", got.ExpiresAt)
	}
}
