package outbound

import (
	"context"
	"time"

	"github.com/archon-research/stl-oracles/internal/domain/entity"
)

// Capability names one layer of the oracle contract.
type Capability string

const (
	CapabilityCurrentPrice    Capability = "current_price"
	CapabilityHistoricalPrice Capability = "historical_price"
	CapabilityCoinList        Capability = "coin_list"
)

// CurrentPriceOracle is the base capability: every oracle can quote a current price.
// Oracles may be rate limited.
type CurrentPriceOracle interface {
	// Name returns the stable oracle name (e.g., "coingecko").
	Name() string

	// RateLimitedInLast reports whether the oracle was rate limited within window.
	// A window <= 0 selects the oracle's default. Must not perform I/O.
	RateLimitedInLast(window time.Duration) bool

	// QueryCurrentPrice returns the price of from denominated in to.
	// If matchMainCurrency is true and the oracle holds a price that is already in
	// the main currency, that price is returned unconverted with inMainCurrency=true.
	//
	// May fail with entity.ErrPriceQueryUnsupportedAsset or entity.ErrRemote.
	QueryCurrentPrice(ctx context.Context, from, to entity.Asset, matchMainCurrency bool) (price entity.Price, inMainCurrency bool, err error)
}

// HistoricalPriceOracle can also quote prices at past timestamps.
type HistoricalPriceOracle interface {
	CurrentPriceOracle

	// CanQueryHistory is a pre-flight check of pair support and rate-limit state.
	CanQueryHistory(from, to entity.Asset, timestamp time.Time, window time.Duration) bool

	// QueryHistoricalPrice returns the price of from in to at timestamp.
	// Support is re-validated here; nothing is retried.
	//
	// May fail with entity.ErrPriceQueryUnsupportedAsset,
	// entity.ErrNoPriceForGivenTimestamp or entity.ErrRemote.
	QueryHistoricalPrice(ctx context.Context, from, to entity.Asset, timestamp time.Time) (entity.Price, error)
}

// HistoricalPriceOracleWithCoinList also exposes a cacheable catalog of every coin it supports.
type HistoricalPriceOracleWithCoinList interface {
	HistoricalPriceOracle

	// MaybeGetCachedCoinList returns the cached coin list if an entry exists and was
	// written within consideredRecent. A corrupt entry is reported as absent.
	MaybeGetCachedCoinList(ctx context.Context, consideredRecent time.Duration) (entity.CoinList, bool, error)

	// CacheCoinList overwrites the cached coin list for this oracle.
	CacheCoinList(ctx context.Context, data entity.CoinList) error

	// AllCoins returns every coin the oracle supports. May fail with entity.ErrRemote.
	AllCoins(ctx context.Context) (entity.CoinList, error)
}

// AsHistorical reports whether o implements the historical capability.
func AsHistorical(o CurrentPriceOracle) (HistoricalPriceOracle, bool) {
	h, ok := o.(HistoricalPriceOracle)
	return h, ok
}

// AsCoinList reports whether o implements the coin-list capability.
func AsCoinList(o CurrentPriceOracle) (HistoricalPriceOracleWithCoinList, bool) {
	c, ok := o.(HistoricalPriceOracleWithCoinList)
	return c, ok
}

// Capabilities lists the capabilities o implements, base layer first.
func Capabilities(o CurrentPriceOracle) []Capability {
	if o == nil {
		return nil
	}
	caps := []Capability{CapabilityCurrentPrice}
	if _, ok := AsHistorical(o); ok {
		caps = append(caps, CapabilityHistoricalPrice)
	}
	if _, ok := AsCoinList(o); ok {
		caps = append(caps, CapabilityCoinList)
	}
	return caps
}

// ManualPriceRepository stores manually entered latest prices.
type ManualPriceRepository interface {
	// GetManualPrice returns the latest manual price for assetID, or nil if there is none.
	GetManualPrice(ctx context.Context, assetID string) (*entity.ManualPrice, error)

	// UpsertManualPrice stores price as the latest manual price for its asset.
	UpsertManualPrice(ctx context.Context, price *entity.ManualPrice) error
}
