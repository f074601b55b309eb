package redis

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/archon-research/stl-oracles/internal/domain/entity"
	"github.com/archon-research/stl-oracles/internal/ports/outbound"
)

// Compile-time check that ManualPriceRepository implements outbound.ManualPriceRepository
var _ outbound.ManualPriceRepository = (*ManualPriceRepository)(nil)

const (
	fieldPrice      = "price"
	fieldCurrency   = "currency"
	fieldExpiresAt  = "expires_at"
	fieldUpdatedAt  = "updated_at"
	manualPriceTier = "manual_price"
)

// ManualPriceRepository keeps the latest manual price of each asset in a hash at
// prefix:manual_price:<asset id>. expires_at is unix seconds, 0 for no expiry.
type ManualPriceRepository struct {
	client    *redis.Client
	keyPrefix string
	logger    *slog.Logger
	now       func() time.Time
}

// NewManualPriceRepository creates a repository sharing the connection and key
// prefix of store.
func NewManualPriceRepository(store *CacheStore, logger *slog.Logger) (*ManualPriceRepository, error) {
	if store == nil {
		return nil, fmt.Errorf("cache store cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ManualPriceRepository{
		client:    store.client,
		keyPrefix: store.keyPrefix,
		logger:    logger.With("component", "redis-manual-price-repository"),
		now:       time.Now,
	}, nil
}

func (r *ManualPriceRepository) key(assetID string) string {
	if r.keyPrefix == "" {
		return manualPriceTier + ":" + assetID
	}
	return r.keyPrefix + ":" + manualPriceTier + ":" + assetID
}

// GetManualPrice returns the stored price for assetID, or nil if there is none.
func (r *ManualPriceRepository) GetManualPrice(ctx context.Context, assetID string) (*entity.ManualPrice, error) {
	fields, err := r.client.HGetAll(ctx, r.key(assetID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read manual price for %s: %w", assetID, err)
	}
	if len(fields) == 0 {
		return nil, nil
	}
	mp, err := decodeManualPrice(assetID, fields)
	if err != nil {
		return nil, fmt.Errorf("failed to decode manual price for %s: %w", assetID, err)
	}
	return mp, nil
}

// UpsertManualPrice replaces the stored price for price.AssetID.
func (r *ManualPriceRepository) UpsertManualPrice(ctx context.Context, price *entity.ManualPrice) error {
	if price == nil {
		return fmt.Errorf("manual price cannot be nil")
	}

	key := r.key(price.AssetID)
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, encodeManualPrice(price, r.now()))
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to store manual price for %s: %w", price.AssetID, err)
	}

	r.logger.Debug("stored manual price", "asset", price.AssetID, "currency", price.Currency)
	return nil
}

func encodeManualPrice(mp *entity.ManualPrice, updatedAt time.Time) map[string]any {
	var expiresAt int64
	if !mp.ExpiresAt.IsZero() {
		expiresAt = mp.ExpiresAt.Unix()
	}
	return map[string]any{
		fieldPrice:     mp.Price.String(),
		fieldCurrency:  mp.Currency,
		fieldExpiresAt: expiresAt,
		fieldUpdatedAt: updatedAt.Unix(),
	}
}

func decodeManualPrice(assetID string, fields map[string]string) (*entity.ManualPrice, error) {
	price, err := decimal.NewFromString(fields[fieldPrice])
	if err != nil {
		return nil, fmt.Errorf("invalid price %q: %w", fields[fieldPrice], err)
	}

	var expiresAt time.Time
	if raw := fields[fieldExpiresAt]; raw != "" && raw != "0" {
		secs, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid expires_at %q: %w", raw, err)
		}
		expiresAt = time.Unix(secs, 0)
	}

	return entity.NewManualPrice(assetID, price, fields[fieldCurrency], expiresAt)
}
