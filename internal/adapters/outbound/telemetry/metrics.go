package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/archon-research/stl-oracles/internal/ports/outbound"
)

// Compile-time check that Metrics implements outbound.CacheMetrics
var _ outbound.CacheMetrics = (*Metrics)(nil)

const (
	coinListLookupsName = "coinlist_cache_lookups_total"
	queryDurationName   = "oracle_query_duration_seconds"
)

// Metrics records coin-list cache lookups and oracle query latency.
type Metrics struct {
	coinListLookups metric.Int64Counter
	queryDuration   metric.Float64Histogram
}

// NewMetricsWithProvider creates a recorder on the given meter provider.
func NewMetricsWithProvider(provider metric.MeterProvider, meterName string) (*Metrics, error) {
	meter := provider.Meter(meterName)

	lookups, err := meter.Int64Counter(
		coinListLookupsName,
		metric.WithDescription("Coin-list cache lookups by outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create coinlist_cache_lookups_total counter: %w", err)
	}

	duration, err := meter.Float64Histogram(
		queryDurationName,
		metric.WithDescription("Time taken by a price oracle query"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create oracle_query_duration_seconds histogram: %w", err)
	}

	return &Metrics{
		coinListLookups: lookups,
		queryDuration:   duration,
	}, nil
}

// RecordCoinListLookup counts one coin-list cache lookup.
func (m *Metrics) RecordCoinListLookup(ctx context.Context, oracle, result string) {
	m.coinListLookups.Add(ctx, 1, metric.WithAttributes(
		attribute.String("oracle", oracle),
		attribute.String("result", result),
	))
}

// RecordOracleQuery records the duration of one oracle query.
func (m *Metrics) RecordOracleQuery(ctx context.Context, oracle, kind, status string, duration time.Duration) {
	m.queryDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("oracle", oracle),
		attribute.String("kind", kind),
		attribute.String("status", status),
	))
}
