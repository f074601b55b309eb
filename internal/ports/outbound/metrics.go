// Package outbound defines the outbound port interfaces.
package outbound

import (
	"context"
	"errors"
	"time"

	"github.com/archon-research/stl-oracles/internal/domain/entity"
)

// Coin-list cache lookup outcomes.
const (
	CacheResultHit     = "hit"
	CacheResultMiss    = "miss"
	CacheResultStale   = "stale"
	CacheResultCorrupt = "corrupt"
)

// Oracle query kinds.
const (
	QueryKindCurrent    = "current"
	QueryKindHistorical = "historical"
	QueryKindCoinList   = "coinlist"
)

// Oracle query outcomes.
const (
	QueryStatusOK          = "ok"
	QueryStatusUnsupported = "unsupported"
	QueryStatusNoPrice     = "no_price"
	QueryStatusError       = "error"
)

// CacheMetrics records oracle and cache metrics without depending on a
// specific telemetry implementation.
type CacheMetrics interface {
	// RecordCoinListLookup records the outcome of one coin-list cache lookup.
	RecordCoinListLookup(ctx context.Context, oracle, result string)

	// RecordOracleQuery records the duration of an oracle query.
	// kind is one of the QueryKind constants and status one of the QueryStatus constants.
	RecordOracleQuery(ctx context.Context, oracle, kind, status string, duration time.Duration)
}

// QueryStatus classifies the error returned by an oracle query.
func QueryStatus(err error) string {
	switch {
	case err == nil:
		return QueryStatusOK
	case errors.Is(err, entity.ErrPriceQueryUnsupportedAsset):
		return QueryStatusUnsupported
	case errors.Is(err, entity.ErrNoPriceForGivenTimestamp):
		return QueryStatusNoPrice
	default:
		return QueryStatusError
	}
}

// RecordQuery records one oracle query on m. A nil m records nothing.
func RecordQuery(ctx context.Context, m CacheMetrics, oracle, kind string, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	m.RecordOracleQuery(ctx, oracle, kind, QueryStatus(err), elapsed)
}
