// Package telemetry wires OpenTelemetry metrics for the oracles.
package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.37.0"
)

// DefaultMeterName scopes the oracle instruments.
const DefaultMeterName = "github.com/archon-research/stl-oracles"

// queryDurationBuckets spans a cached answer up to a request hitting the HTTP timeout.
var queryDurationBuckets = []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30}

// Config configures the oracle metrics pipeline.
type Config struct {
	ServiceName    string
	ServiceVersion string
	Environment    string

	// OTLPEndpoint is the OTLP gRPC endpoint. Without one nothing is exported.
	OTLPEndpoint string

	// ExportInterval is how often metrics are pushed. Default: 15s
	ExportInterval time.Duration

	// MeterName scopes the instruments. Default: DefaultMeterName
	MeterName string
}

func (c *Config) applyDefaults() {
	if c.ExportInterval <= 0 {
		c.ExportInterval = 15 * time.Second
	}
	if c.MeterName == "" {
		c.MeterName = DefaultMeterName
	}
}

// Views returns the stream views the oracle instruments are exported with.
func Views() []sdkmetric.View {
	return []sdkmetric.View{
		sdkmetric.NewView(
			sdkmetric.Instrument{Name: queryDurationName},
			sdkmetric.Stream{Aggregation: sdkmetric.AggregationExplicitBucketHistogram{Boundaries: queryDurationBuckets}},
		),
	}
}

// Setup builds the oracle metrics recorder. With an OTLP endpoint it installs a
// pushing meter provider as the global provider and shutdown flushes it; without
// one the recorder is backed by a no-op provider.
func Setup(ctx context.Context, config Config) (*Metrics, func(context.Context) error, error) {
	config.applyDefaults()

	if config.OTLPEndpoint == "" {
		m, err := NewMetricsWithProvider(noop.NewMeterProvider(), config.MeterName)
		if err != nil {
			return nil, nil, err
		}
		return m, func(context.Context) error { return nil }, nil
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(config.ServiceName),
			semconv.ServiceVersion(config.ServiceVersion),
			semconv.DeploymentEnvironmentName(config.Environment),
		),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create resource: %w", err)
	}

	exporter, err := otlpmetricgrpc.New(ctx,
		otlpmetricgrpc.WithEndpoint(config.OTLPEndpoint),
		otlpmetricgrpc.WithInsecure(),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create OTLP metric exporter: %w", err)
	}

	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(config.ExportInterval))),
		sdkmetric.WithView(Views()...),
	)
	otel.SetMeterProvider(provider)

	m, err := NewMetricsWithProvider(provider, config.MeterName)
	if err != nil {
		_ = provider.Shutdown(ctx)
		return nil, nil, err
	}
	return m, provider.Shutdown, nil
}
