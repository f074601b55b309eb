// Package manual serves current prices that were entered by hand, converting them
// into the requested currency through another oracle when needed.
package manual

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/archon-research/stl-oracles/internal/domain/entity"
	"github.com/archon-research/stl-oracles/internal/ports/outbound"
)

// Name is the oracle name.
const Name = "manualcurrent"

// Compile-time check that Oracle implements outbound.CurrentPriceOracle.
var _ outbound.CurrentPriceOracle = (*Oracle)(nil)

// AssetResolver looks up the full asset for an identifier, including its oracle ids.
type AssetResolver func(identifier string) (entity.Asset, bool)

// Config holds configuration for the manual price oracle.
type Config struct {
	// MainCurrency is the identifier of the main currency (e.g. "USD").
	MainCurrency string

	// Converter prices a manual price's currency in the requested target.
	// Without one, only prices already in the target (or main) currency are served.
	Converter outbound.CurrentPriceOracle

	// Assets resolves a manual price's currency to an asset for the converter.
	// Defaults to an asset whose identifier and symbol are the currency itself.
	Assets AssetResolver

	Logger *slog.Logger
	Now    func() time.Time
}

// Oracle serves manual latest prices.
type Oracle struct {
	repo         outbound.ManualPriceRepository
	mainCurrency string
	converter    outbound.CurrentPriceOracle
	assets       AssetResolver
	logger       *slog.Logger
	now          func() time.Time
}

// NewOracle creates a manual price oracle reading from repo.
func NewOracle(repo outbound.ManualPriceRepository, config Config) (*Oracle, error) {
	if repo == nil {
		return nil, fmt.Errorf("manual price repository cannot be nil")
	}
	if config.MainCurrency == "" {
		return nil, fmt.Errorf("main currency is required")
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.Now == nil {
		config.Now = time.Now
	}
	if config.Assets == nil {
		config.Assets = func(identifier string) (entity.Asset, bool) {
			return entity.Asset{Identifier: identifier, Symbol: identifier}, true
		}
	}

	return &Oracle{
		repo:         repo,
		mainCurrency: config.MainCurrency,
		converter:    config.Converter,
		assets:       config.Assets,
		logger:       config.Logger.With("component", "manual-oracle"),
		now:          config.Now,
	}, nil
}

// Name returns the oracle name.
func (o *Oracle) Name() string {
	return Name
}

// RateLimitedInLast is always false; manual prices are never rate limited.
func (o *Oracle) RateLimitedInLast(time.Duration) bool {
	return false
}

// QueryCurrentPrice returns the active manual price of from.
//
// With matchMainCurrency set and a price stored in the main currency, that price is
// returned as is with inMainCurrency=true. A price stored in to is returned as is.
// Any other price is converted from its currency into to.
func (o *Oracle) QueryCurrentPrice(ctx context.Context, from, to entity.Asset, matchMainCurrency bool) (entity.Price, bool, error) {
	unsupported := &entity.UnsupportedAssetError{Oracle: Name, From: from.Identifier, To: to.Identifier}

	mp, err := o.repo.GetManualPrice(ctx, from.Identifier)
	if err != nil {
		return entity.Price{}, false, entity.NewRemoteError(Name, fmt.Errorf("loading manual price for %s: %w", from.Identifier, err))
	}
	if mp == nil || !mp.Active(o.now()) {
		return entity.Price{}, false, unsupported
	}

	if matchMainCurrency && mp.Currency == o.mainCurrency {
		return mp.Price, true, nil
	}
	if mp.Currency == to.Identifier {
		return mp.Price, false, nil
	}

	if o.converter == nil {
		return entity.Price{}, false, unsupported
	}
	currency, ok := o.assets(mp.Currency)
	if !ok {
		o.logger.Warn("manual price currency is unknown", "asset", from.Identifier, "currency", mp.Currency)
		return entity.Price{}, false, unsupported
	}

	rate, _, err := o.converter.QueryCurrentPrice(ctx, currency, to, false)
	if err != nil {
		return entity.Price{}, false, fmt.Errorf("converting manual price of %s from %s to %s: %w",
			from.Identifier, mp.Currency, to.Identifier, err)
	}
	return mp.Price.Mul(rate), false, nil
}
