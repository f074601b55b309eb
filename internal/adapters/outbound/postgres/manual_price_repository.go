package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/archon-research/stl-oracles/internal/domain/entity"
	"github.com/archon-research/stl-oracles/internal/ports/outbound"
)

// Compile-time check that ManualPriceRepository implements outbound.ManualPriceRepository.
var _ outbound.ManualPriceRepository = (*ManualPriceRepository)(nil)

// ManualPriceRepository stores manual latest prices in manual_current_price.
type ManualPriceRepository struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewManualPriceRepository creates a new PostgreSQL manual price repository.
func NewManualPriceRepository(pool *pgxpool.Pool, logger *slog.Logger) (*ManualPriceRepository, error) {
	if pool == nil {
		return nil, fmt.Errorf("database pool cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ManualPriceRepository{
		pool:   pool,
		logger: logger,
	}, nil
}

// GetManualPrice returns the manual price for assetID, or nil if there is none.
func (r *ManualPriceRepository) GetManualPrice(ctx context.Context, assetID string) (*entity.ManualPrice, error) {
	var (
		price     string
		currency  string
		expiresAt *time.Time
	)
	err := r.pool.QueryRow(ctx, `
		SELECT price, currency, expires_at
		FROM manual_current_price
		WHERE asset_id = $1
	`, assetID).Scan(&price, &currency, &expiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying manual price: %w", err)
	}

	p, err := decimal.NewFromString(price)
	if err != nil {
		return nil, fmt.Errorf("parsing manual price %q for %s: %w", price, assetID, err)
	}

	mp := &entity.ManualPrice{AssetID: assetID, Price: p, Currency: currency}
	if expiresAt != nil {
		mp.ExpiresAt = *expiresAt
	}
	return mp, nil
}

// UpsertManualPrice stores price as the latest manual price for its asset.
func (r *ManualPriceRepository) UpsertManualPrice(ctx context.Context, price *entity.ManualPrice) error {
	if price == nil {
		return fmt.Errorf("manual price cannot be nil")
	}

	var expiresAt *time.Time
	if !price.ExpiresAt.IsZero() {
		expiresAt = &price.ExpiresAt
	}

	_, err := r.pool.Exec(ctx, `
		INSERT INTO manual_current_price (asset_id, price, currency, expires_at, updated_at)
		VALUES ($1, $2::numeric, $3, $4, NOW())
		ON CONFLICT (asset_id) DO UPDATE
		SET price = EXCLUDED.price,
		    currency = EXCLUDED.currency,
		    expires_at = EXCLUDED.expires_at,
		    updated_at = NOW()
	`, price.AssetID, price.Price.String(), price.Currency, expiresAt)
	if err != nil {
		return fmt.Errorf("upserting manual price for %s: %w", price.AssetID, err)
	}
	return nil
}
