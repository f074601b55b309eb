package telemetry

import (
	"context"
	"reflect"
	"sort"
	"testing"
	"time"

	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/archon-research/stl-oracles/internal/ports/outbound"
)

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect() error = %v", err)
	}
	out := make(map[string]metricdata.Metrics)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m
		}
	}
	return out
}

func TestMetrics_RecordCoinListLookup(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	m, err := NewMetricsWithProvider(provider, "test")
	if err != nil {
		t.Fatalf("NewMetricsWithProvider() error = %v", err)
	}

	ctx := context.Background()
	m.RecordCoinListLookup(ctx, "coingecko", outbound.CacheResultHit)
	m.RecordCoinListLookup(ctx, "coingecko", outbound.CacheResultHit)
	m.RecordCoinListLookup(ctx, "coingecko", outbound.CacheResultStale)

	got, ok := collect(t, reader)["coinlist_cache_lookups_total"]
	if !ok {
		t.Fatal("counter not exported")
	}
	sum, ok := got.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("unexpected data type %T", got.Data)
	}

	counts := make(map[string]int64)
	for _, dp := range sum.DataPoints {
		result, _ := dp.Attributes.Value(attribute.Key("result"))
		counts[result.AsString()] = dp.Value
	}
	if counts[outbound.CacheResultHit] != 2 || counts[outbound.CacheResultStale] != 1 {
		t.Errorf("counts = %v", counts)
	}
}

func TestMetrics_RecordOracleQuery(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	m, err := NewMetricsWithProvider(provider, "test")
	if err != nil {
		t.Fatalf("NewMetricsWithProvider() error = %v", err)
	}

	m.RecordOracleQuery(context.Background(), "defillama", "historical", "ok", 250*time.Millisecond)

	got, ok := collect(t, reader)["oracle_query_duration_seconds"]
	if !ok {
		t.Fatal("histogram not exported")
	}
	hist, ok := got.Data.(metricdata.Histogram[float64])
	if !ok {
		t.Fatalf("unexpected data type %T", got.Data)
	}
	if len(hist.DataPoints) != 1 {
		t.Fatalf("data points = %d, want 1", len(hist.DataPoints))
	}
	dp := hist.DataPoints[0]
	if dp.Count != 1 || dp.Sum != 0.25 {
		t.Errorf("count=%d sum=%v", dp.Count, dp.Sum)
	}
	if kind, _ := dp.Attributes.Value(attribute.Key("kind")); kind.AsString() != "historical" {
		t.Errorf("kind = %s", kind.AsString())
	}
}

func TestSetup_NoEndpoint(t *testing.T) {
	m, shutdown, err := Setup(context.Background(), Config{ServiceName: "test"})
	if err != nil {
		t.Fatalf("Setup() error = %v", err)
	}
	if m == nil {
		t.Fatal("expected a recorder without an endpoint")
	}

	// Recording on the no-op provider must be safe.
	m.RecordCoinListLookup(context.Background(), "coingecko", outbound.CacheResultMiss)
	m.RecordOracleQuery(context.Background(), "coingecko", outbound.QueryKindCurrent, outbound.QueryStatusOK, time.Second)

	if err := shutdown(context.Background()); err != nil {
		t.Errorf("shutdown() error = %v", err)
	}
}

func TestConfig_ApplyDefaults(t *testing.T) {
	var c Config
	c.applyDefaults()
	if c.ExportInterval != 15*time.Second || c.MeterName != DefaultMeterName {
		t.Errorf("defaults = %+v", c)
	}

	c = Config{ExportInterval: time.Minute, MeterName: "custom"}
	c.applyDefaults()
	if c.ExportInterval != time.Minute || c.MeterName != "custom" {
		t.Errorf("explicit values overwritten: %+v", c)
	}
}

func TestViews_QueryDurationBuckets(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader), sdkmetric.WithView(Views()...))

	m, err := NewMetricsWithProvider(provider, "test")
	if err != nil {
		t.Fatalf("NewMetricsWithProvider() error = %v", err)
	}
	m.RecordOracleQuery(context.Background(), "coingecko", outbound.QueryKindCurrent, outbound.QueryStatusOK, 300*time.Millisecond)

	hist, ok := collect(t, reader)[queryDurationName].Data.(metricdata.Histogram[float64])
	if !ok || len(hist.DataPoints) != 1 {
		t.Fatalf("histogram = %+v", hist)
	}
	dp := hist.DataPoints[0]
	if !reflect.DeepEqual(dp.Bounds, queryDurationBuckets) {
		t.Errorf("bounds = %v, want %v", dp.Bounds, queryDurationBuckets)
	}
	// 0.3s falls in the (0.25, 0.5] bucket.
	idx := sort.SearchFloat64s(queryDurationBuckets, 0.3)
	if dp.BucketCounts[idx] != 1 {
		t.Errorf("bucket counts = %v", dp.BucketCounts)
	}
}
