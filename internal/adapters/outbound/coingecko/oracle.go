// Package coingecko implements the price oracle capabilities on CoinGecko's API:
// current prices, historical daily prices and the cached coin list.
package coingecko

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/archon-research/stl-oracles/internal/domain/entity"
	"github.com/archon-research/stl-oracles/internal/pkg/httpclient"
	"github.com/archon-research/stl-oracles/internal/pkg/ratewindow"
	"github.com/archon-research/stl-oracles/internal/ports/outbound"
	"github.com/archon-research/stl-oracles/internal/services/coinlist"
)

// Name is the oracle name, also used as the coin-list cache key.
const Name = "coingecko"

// Compile-time check that Oracle implements the full coin-list capability.
var _ outbound.HistoricalPriceOracleWithCoinList = (*Oracle)(nil)

const (
	publicBaseURL = "https://api.coingecko.com/api/v3"
	proBaseURL    = "https://pro-api.coingecko.com/api/v3"
)

// DefaultVsCurrencies is the subset of CoinGecko's supported vs-currencies the
// oracle will quote in.
var DefaultVsCurrencies = []string{
	"usd", "eur", "gbp", "jpy", "chf", "cad", "aud", "cny", "krw", "inr",
	"btc", "eth", "bnb", "sats",
}

// Config holds configuration for the CoinGecko oracle.
type Config struct {
	// APIKey is the CoinGecko Pro API key. Without one the public API is used.
	APIKey string

	// BaseURL is the CoinGecko API base URL.
	// Defaults to the pro URL when APIKey is set and the public URL otherwise.
	BaseURL string

	// Timeout is the maximum time to wait for a single HTTP request.
	Timeout time.Duration

	// RateLimitPerMin is the outbound pacing in requests per minute.
	// Defaults to 450 to stay safely under CoinGecko Pro's 500/min limit.
	RateLimitPerMin int

	// CoinListRecent is how old a cached coin list may be before AllCoins refetches it.
	// Default: 24h
	CoinListRecent time.Duration

	// RateLimitWindow is the default window for RateLimitedInLast.
	// Default: 10m
	RateLimitWindow time.Duration

	// VsCurrencies lists the lower-case symbols accepted as target assets.
	VsCurrencies []string

	// Logger is the structured logger for the oracle.
	Logger *slog.Logger

	// Metrics records query latency and coin-list cache outcomes. Optional.
	Metrics outbound.CacheMetrics

	// HTTPClient is an optional custom HTTP client.
	HTTPClient *http.Client

	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time
}

// ConfigDefaults returns a config with default values.
func ConfigDefaults() Config {
	return Config{
		Timeout:         30 * time.Second,
		RateLimitPerMin: 450,
		CoinListRecent:  24 * time.Hour,
		RateLimitWindow: ratewindow.DefaultWindow,
		VsCurrencies:    DefaultVsCurrencies,
		Logger:          slog.Default(),
		Now:             time.Now,
	}
}

func applyDefaults(config *Config, defaults Config) {
	if config.BaseURL == "" {
		config.BaseURL = publicBaseURL
		if config.APIKey != "" {
			config.BaseURL = proBaseURL
		}
	}
	if config.Timeout == 0 {
		config.Timeout = defaults.Timeout
	}
	if config.RateLimitPerMin == 0 {
		config.RateLimitPerMin = defaults.RateLimitPerMin
	}
	if config.CoinListRecent == 0 {
		config.CoinListRecent = defaults.CoinListRecent
	}
	if config.RateLimitWindow == 0 {
		config.RateLimitWindow = defaults.RateLimitWindow
	}
	if len(config.VsCurrencies) == 0 {
		config.VsCurrencies = defaults.VsCurrencies
	}
	if config.Logger == nil {
		config.Logger = defaults.Logger
	}
	if config.Now == nil {
		config.Now = defaults.Now
	}
}

// Oracle quotes prices from CoinGecko and caches its coin list in the unique cache.
type Oracle struct {
	*coinlist.Cache

	config  Config
	client  *httpclient.Client
	tracker *ratewindow.Tracker
	vs      map[string]bool
	logger  *slog.Logger
	metrics outbound.CacheMetrics
	now     func() time.Time
}

// NewOracle creates a CoinGecko oracle whose coin list is cached in store.
func NewOracle(store outbound.CacheStore, config Config) (*Oracle, error) {
	applyDefaults(&config, ConfigDefaults())

	cache, err := coinlist.NewCache(store, coinlist.Config{
		OracleName: Name,
		Logger:     config.Logger,
		Metrics:    config.Metrics,
		Now:        config.Now,
	})
	if err != nil {
		return nil, fmt.Errorf("creating coin list cache: %w", err)
	}

	headers := map[string]string{}
	if config.APIKey != "" {
		headers["x-cg-pro-api-key"] = config.APIKey
	}

	logger := config.Logger.With("component", "coingecko-oracle")
	client := httpclient.NewClient(httpclient.Config{
		BaseURL:    config.BaseURL,
		Headers:    headers,
		Timeout:    config.Timeout,
		RateLimit:  rate.Limit(float64(config.RateLimitPerMin) / 60.0),
		RateBurst:  1,
		HTTPClient: config.HTTPClient,
	}, logger, parseError)

	vs := make(map[string]bool, len(config.VsCurrencies))
	for _, c := range config.VsCurrencies {
		vs[strings.ToLower(c)] = true
	}

	return &Oracle{
		Cache:   cache,
		config:  config,
		client:  client,
		tracker: ratewindow.NewTracker(config.RateLimitWindow, config.Now),
		vs:      vs,
		logger:  logger,
		metrics: config.Metrics,
		now:     config.Now,
	}, nil
}

// Name returns the oracle name.
func (o *Oracle) Name() string {
	return Name
}

// RateLimitedInLast reports whether CoinGecko answered 429 within window.
func (o *Oracle) RateLimitedInLast(window time.Duration) bool {
	return o.tracker.LimitedInLast(window)
}

// pair resolves the CoinGecko coin id of from and the vs-currency of to.
func (o *Oracle) pair(from, to entity.Asset) (coinID, vsCurrency string, ok bool) {
	coinID, ok = from.OracleID(Name)
	if !ok {
		return "", "", false
	}
	vsCurrency = strings.ToLower(to.Symbol)
	if !o.vs[vsCurrency] {
		return "", "", false
	}
	return coinID, vsCurrency, true
}

func (o *Oracle) unsupported(from, to entity.Asset) error {
	return &entity.UnsupportedAssetError{Oracle: Name, From: from.Identifier, To: to.Identifier}
}

// unknownCoin turns CoinGecko's 404 for a coin id it does not list into an
// unsupported asset; any other failure is returned unchanged.
func (o *Oracle) unknownCoin(err error, from, to entity.Asset) error {
	if httpclient.StatusCode(err) == http.StatusNotFound {
		o.logger.Debug("coin id unknown to coingecko", "asset", from.Identifier, "error", err)
		return o.unsupported(from, to)
	}
	return err
}

// QueryCurrentPrice returns the current price of from in to. CoinGecko has no
// notion of a main currency, so inMainCurrency is always false.
func (o *Oracle) QueryCurrentPrice(ctx context.Context, from, to entity.Asset, _ bool) (price entity.Price, inMainCurrency bool, err error) {
	start := o.now()
	defer func() { outbound.RecordQuery(ctx, o.metrics, Name, outbound.QueryKindCurrent, o.now().Sub(start), err) }()

	coinID, vsCurrency, ok := o.pair(from, to)
	if !ok {
		return entity.Price{}, false, o.unsupported(from, to)
	}

	params := url.Values{
		"ids":           {coinID},
		"vs_currencies": {vsCurrency},
		"precision":     {"full"},
	}

	var response simplePriceResponse
	if err := o.get(ctx, "/simple/price", params, &response); err != nil {
		return entity.Price{}, false, o.unknownCoin(err, from, to)
	}

	p, ok := response[coinID][vsCurrency]
	if !ok || !p.IsPositive() {
		return entity.Price{}, false, o.unsupported(from, to)
	}
	return p, false, nil
}

// CanQueryHistory reports whether the pair is supported, the timestamp is not in
// the future and CoinGecko has not rate limited us within window.
func (o *Oracle) CanQueryHistory(from, to entity.Asset, timestamp time.Time, window time.Duration) bool {
	if _, _, ok := o.pair(from, to); !ok {
		return false
	}
	if timestamp.After(o.now()) {
		return false
	}
	return !o.RateLimitedInLast(window)
}

// QueryHistoricalPrice returns the daily price of from in to on the UTC day of timestamp.
func (o *Oracle) QueryHistoricalPrice(ctx context.Context, from, to entity.Asset, timestamp time.Time) (price entity.Price, err error) {
	start := o.now()
	defer func() { outbound.RecordQuery(ctx, o.metrics, Name, outbound.QueryKindHistorical, o.now().Sub(start), err) }()

	coinID, vsCurrency, ok := o.pair(from, to)
	if !ok {
		return entity.Price{}, o.unsupported(from, to)
	}

	params := url.Values{
		"date":         {timestamp.UTC().Format("02-01-2006")},
		"localization": {"false"},
	}

	var response historyResponse
	if err := o.get(ctx, "/coins/"+url.PathEscape(coinID)+"/history", params, &response); err != nil {
		return entity.Price{}, o.unknownCoin(err, from, to)
	}

	noPrice := &entity.NoPriceError{Oracle: Name, From: from.Identifier, To: to.Identifier, Timestamp: timestamp}
	if response.MarketData == nil {
		return entity.Price{}, noPrice
	}
	p, ok := response.MarketData.CurrentPrice[vsCurrency]
	if !ok || !p.IsPositive() {
		return entity.Price{}, noPrice
	}
	return p, nil
}

// AllCoins returns CoinGecko's coin list, from the cache when it is recent enough.
// A failing cache is logged and bypassed.
func (o *Oracle) AllCoins(ctx context.Context) (list entity.CoinList, err error) {
	cached, ok, err := o.MaybeGetCachedCoinList(ctx, o.config.CoinListRecent)
	if err != nil {
		o.logger.Warn("coin list cache unavailable, fetching from remote", "error", err)
	} else if ok {
		return cached, nil
	}

	start := o.now()
	defer func() { outbound.RecordQuery(ctx, o.metrics, Name, outbound.QueryKindCoinList, o.now().Sub(start), err) }()

	var entries []coinListEntry
	if err := o.get(ctx, "/coins/list", nil, &entries); err != nil {
		return nil, err
	}

	list = make(entity.CoinList, len(entries))
	for _, e := range entries {
		id, _ := e["id"].(string)
		if id == "" {
			continue
		}
		meta := make(entity.CoinMetadata, len(e)-1)
		for k, v := range e {
			if k != "id" {
				meta[k] = v
			}
		}
		list[id] = meta
	}

	if err := o.CacheCoinList(ctx, list); err != nil {
		o.logger.Warn("failed to cache coin list", "coins", len(list), "error", err)
	}
	return list, nil
}

// get performs one request and maps its failure to the oracle error taxonomy.
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

func parseError(_ int, body []byte) error {
	var apiErr coinGeckoError
	if err := json.Unmarshal(body, &apiErr); err != nil {
		return nil
	}
	if apiErr.Error != "" {
		return fmt.Errorf("coingecko: %s", apiErr.Error)
	}
	if apiErr.Status.ErrorMessage != "" {
		return fmt.Errorf("coingecko: %s (code %d)", apiErr.Status.ErrorMessage, apiErr.Status.ErrorCode)
	}
	return nil
}
