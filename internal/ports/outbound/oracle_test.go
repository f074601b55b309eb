package outbound

import (
	"context"
	"reflect"
	"testing"
	"time"

	"github.com/archon-research/stl-oracles/internal/domain/entity"
)

type currentOnly struct{}

func (currentOnly) Name() string                         { return "current" }
func (currentOnly) RateLimitedInLast(time.Duration) bool { return false }
func (currentOnly) QueryCurrentPrice(context.Context, entity.Asset, entity.Asset, bool) (entity.Price, bool, error) {
	return entity.Price{}, false, nil
}

type historical struct{ currentOnly }

func (historical) CanQueryHistory(entity.Asset, entity.Asset, time.Time, time.Duration) bool {
	return true
}
func (historical) QueryHistoricalPrice(context.Context, entity.Asset, entity.Asset, time.Time) (entity.Price, error) {
	return entity.Price{}, nil
}

type withCoinList struct{ historical }

func (withCoinList) MaybeGetCachedCoinList(context.Context, time.Duration) (entity.CoinList, bool, error) {
	return nil, false, nil
}
func (withCoinList) CacheCoinList(context.Context, entity.CoinList) error { return nil }
func (withCoinList) AllCoins(context.Context) (entity.CoinList, error)    { return nil, nil }

func TestCapabilities(t *testing.T) {
	tests := []struct {
		name   string
		oracle CurrentPriceOracle
		want   []Capability
	}{
		{name: "nil", oracle: nil, want: nil},
		{name: "current only", oracle: currentOnly{}, want: []Capability{CapabilityCurrentPrice}},
		{name: "historical", oracle: historical{}, want: []Capability{CapabilityCurrentPrice, CapabilityHistoricalPrice}},
		{name: "with coin list", oracle: withCoinList{}, want: []Capability{CapabilityCurrentPrice, CapabilityHistoricalPrice, CapabilityCoinList}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Capabilities(tt.oracle); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Capabilities() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAsHistoricalAndAsCoinList(t *testing.T) {
	if _, ok := AsHistorical(currentOnly{}); ok {
		t.Error("current-only oracle reported as historical")
	}
	if _, ok := AsCoinList(historical{}); ok {
		t.Error("historical oracle reported as having a coin list")
	}
	if h, ok := AsHistorical(withCoinList{}); !ok || h == nil {
		t.Error("coin-list oracle should also be historical")
	}
	if c, ok := AsCoinList(withCoinList{}); !ok || c == nil {
		t.Error("AsCoinList() failed on a coin-list oracle")
	}
}

func TestCacheKey_String(t *testing.T) {
	k := CacheKey{Category: CacheCategoryCoinList, Name: "coingecko"}
	if k.String() != "COINLIST:coingecko" {
		t.Errorf("String() = %s", k.String())
	}
}
