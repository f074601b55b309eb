// Package defillama implements the current and historical price capabilities on
// the DefiLlama coins API. Prices are quoted in USD only.
package defillama

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	"github.com/archon-research/stl-oracles/internal/domain/entity"
	"github.com/archon-research/stl-oracles/internal/pkg/httpclient"
	"github.com/archon-research/stl-oracles/internal/pkg/ratewindow"
	"github.com/archon-research/stl-oracles/internal/ports/outbound"
)

// Name is the oracle name.
const Name = "defillama"

// Compile-time check that Oracle implements outbound.HistoricalPriceOracle.
var _ outbound.HistoricalPriceOracle = (*Oracle)(nil)

// pricesResponse represents the response from the /prices/current and
// /prices/historical endpoints.
// Example response:
//
//	{
//	  "coins": {
//	    "ethereum:0x6b175474e89094c44da98b954eedeac495271d0f": {
//	      "decimals": 18, "symbol": "DAI", "price": 0.9998,
//	      "timestamp": 1704067200, "confidence": 0.99
//	    }
//	  }
//	}
type pricesResponse struct {
	Coins map[string]struct {
		Price      decimal.Decimal `json:"price"`
		Symbol     string          `json:"symbol"`
		Timestamp  int64           `json:"timestamp"`
		Confidence float64         `json:"confidence"`
	} `json:"coins"`
}

// Config holds configuration for the DefiLlama oracle.
type Config struct {
	// BaseURL is the DefiLlama coins API base URL.
	// Defaults to https://coins.llama.fi
	BaseURL string

	// Timeout is the maximum time to wait for a single HTTP request.
	Timeout time.Duration

	// RateLimitPerMin is the outbound pacing in requests per minute.
	RateLimitPerMin int

	// SearchWidth is how far from the requested timestamp a historical price may be.
	// Default: 6h
	SearchWidth time.Duration

	// RateLimitWindow is the default window for RateLimitedInLast.
	RateLimitWindow time.Duration

	Logger     *slog.Logger
	Metrics    outbound.CacheMetrics
	HTTPClient *http.Client
	Now        func() time.Time
}

// ConfigDefaults returns a config with default values.
func ConfigDefaults() Config {
	return Config{
		BaseURL:         "https://coins.llama.fi",
		Timeout:         30 * time.Second,
		RateLimitPerMin: 300,
		SearchWidth:     6 * time.Hour,
		RateLimitWindow: ratewindow.DefaultWindow,
		Logger:          slog.Default(),
		Now:             time.Now,
	}
}

func applyDefaults(config *Config, defaults Config) {
	if config.BaseURL == "" {
		config.BaseURL = defaults.BaseURL
	}
	if config.Timeout == 0 {
		config.Timeout = defaults.Timeout
	}
	if config.RateLimitPerMin == 0 {
		config.RateLimitPerMin = defaults.RateLimitPerMin
	}
	if config.SearchWidth == 0 {
		config.SearchWidth = defaults.SearchWidth
	}
	if config.RateLimitWindow == 0 {
		config.RateLimitWindow = defaults.RateLimitWindow
	}
	if config.Logger == nil {
		config.Logger = defaults.Logger
	}
	if config.Now == nil {
		config.Now = defaults.Now
	}
}

// Oracle quotes USD prices from DefiLlama.
type Oracle struct {
	config  Config
	client  *httpclient.Client
	tracker *ratewindow.Tracker
	logger  *slog.Logger
	metrics outbound.CacheMetrics
	now     func() time.Time
}

// NewOracle creates a DefiLlama oracle.
func NewOracle(config Config) *Oracle {
	applyDefaults(&config, ConfigDefaults())
	logger := config.Logger.With("component", "defillama-oracle")

	return &Oracle{
		config: config,
		client: httpclient.NewClient(httpclient.Config{
			BaseURL:    config.BaseURL,
			Timeout:    config.Timeout,
			RateLimit:  rate.Limit(float64(config.RateLimitPerMin) / 60.0),
			RateBurst:  1,
			HTTPClient: config.HTTPClient,
		}, logger, nil),
		tracker: ratewindow.NewTracker(config.RateLimitWindow, config.Now),
		logger:  logger,
		metrics: config.Metrics,
		now:     config.Now,
	}
}

// Name returns the oracle name.
func (o *Oracle) Name() string {
	return Name
}

// RateLimitedInLast reports whether DefiLlama answered 429 within window.
func (o *Oracle) RateLimitedInLast(window time.Duration) bool {
	return o.tracker.LimitedInLast(window)
}

// coin returns the DefiLlama coin key of from when to is USD.
func (o *Oracle) coin(from, to entity.Asset) (string, bool) {
	if !strings.EqualFold(to.Symbol, "USD") {
		return "", false
	}
	return from.OracleID(Name)
}

func (o *Oracle) unsupported(from, to entity.Asset) error {
	return &entity.UnsupportedAssetError{Oracle: Name, From: from.Identifier, To: to.Identifier}
}

// QueryCurrentPrice returns the current USD price of from.
func (o *Oracle) QueryCurrentPrice(ctx context.Context, from, to entity.Asset, _ bool) (price entity.Price, inMainCurrency bool, err error) {
	start := o.now()
	defer func() { outbound.RecordQuery(ctx, o.metrics, Name, outbound.QueryKindCurrent, o.now().Sub(start), err) }()

	coin, ok := o.coin(from, to)
	if !ok {
		return entity.Price{}, false, o.unsupported(from, to)
	}

	var response pricesResponse
	if err := o.get(ctx, "/prices/current/"+url.PathEscape(coin), nil, &response); err != nil {
		return entity.Price{}, false, err
	}

	data, ok := response.Coins[coin]
	if !ok || !data.Price.IsPositive() {
		return entity.Price{}, false, o.unsupported(from, to)
	}
	return data.Price, false, nil
}

// CanQueryHistory reports whether the pair is supported, the timestamp is not in
// the future and DefiLlama has not rate limited us within window.
func (o *Oracle) CanQueryHistory(from, to entity.Asset, timestamp time.Time, window time.Duration) bool {
	if _, ok := o.coin(from, to); !ok {
		return false
	}
	if timestamp.After(o.now()) {
		return false
	}
	return !o.RateLimitedInLast(window)
}

// QueryHistoricalPrice returns the USD price of from closest to timestamp within SearchWidth.
func (o *Oracle) QueryHistoricalPrice(ctx context.Context, from, to entity.Asset, timestamp time.Time) (price entity.Price, err error) {
	start := o.now()
	defer func() { outbound.RecordQuery(ctx, o.metrics, Name, outbound.QueryKindHistorical, o.now().Sub(start), err) }()

	coin, ok := o.coin(from, to)
	if !ok {
		return entity.Price{}, o.unsupported(from, to)
	}

	path := "/prices/historical/" + strconv.FormatInt(timestamp.Unix(), 10) + "/" + url.PathEscape(coin)
	params := url.Values{"searchWidth": {fmt.Sprintf("%ds", int64(o.config.SearchWidth/time.Second))}}

	var response pricesResponse
	if err := o.get(ctx, path, params, &response); err != nil {
		return entity.Price{}, err
	}

	data, ok := response.Coins[coin]
	if !ok || !data.Price.IsPositive() {
		return entity.Price{}, &entity.NoPriceError{Oracle: Name, From: from.Identifier, To: to.Identifier, Timestamp: timestamp}
	}
	return data.Price, nil
}

func (o *Oracle) get(ctx context.Context, path string, params url.Values, result any) error {
	err := o.client.Get(ctx, path, params, result)
	if err == nil {
		return nil
	}
	if errors.Is(err, httpclient.ErrRateLimited) {
		o.tracker.Mark()
		o.logger.Warn("rate limited", "path", path)
	}
	return entity.NewRemoteError(Name, fmt.Errorf("GET %s: %w", path, err))
}
