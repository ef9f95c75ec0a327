package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/kbukum/clientengine/logger"
)

// MeterConfig configures the OpenTelemetry meter provider.
type MeterConfig struct {
	// ServiceName is the name of the service.
	ServiceName string
	// ServiceVersion is the version of the service.
	ServiceVersion string
	// Environment is the deployment environment (dev, staging, prod).
	Environment string
	// Endpoint is the OTLP HTTP endpoint host:port (e.g., "localhost:4318").
	Endpoint string
	// Insecure allows insecure connections (for development).
	Insecure bool
	// Interval is the metric export interval.
	Interval time.Duration
}

// DefaultMeterConfig returns sensible defaults for development.
func DefaultMeterConfig(serviceName string) MeterConfig {
	return MeterConfig{
		ServiceName:    serviceName,
		ServiceVersion: "1.0.0",
		Environment:    "development",
		Endpoint:       "localhost:4318",
		Insecure:       true,
		Interval:       15 * time.Second,
	}
}

// InitMeter initializes the OpenTelemetry meter provider and installs it
// globally. The provider should be shut down on application exit.
func InitMeter(ctx context.Context, config MeterConfig) (*sdkmetric.MeterProvider, error) {
	opts := []otlpmetrichttp.Option{
		otlpmetrichttp.WithEndpoint(config.Endpoint),
	}
	if config.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}

	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating metric exporter: %w", err)
	}

	res, err := newResource(config.ServiceName, config.ServiceVersion, config.Environment)
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	readerOpts := []sdkmetric.PeriodicReaderOption{}
	if config.Interval > 0 {
		readerOpts = append(readerOpts, sdkmetric.WithInterval(config.Interval))
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, readerOpts...)),
		sdkmetric.WithResource(res),
	)

	otel.SetMeterProvider(mp)

	logger.Info("meter initialized", logger.Fields(
		"service", config.ServiceName,
		"endpoint", config.Endpoint,
		"interval", config.Interval.String(),
	))

	return mp, nil
}

// Meter returns the engine meter from mp, or from the global provider when
// mp is nil.
func Meter(mp metric.MeterProvider) metric.Meter {
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	return mp.Meter(InstrumentationName)
}

// Metric names.
const (
	MetricRequests          = "engine.requests"
	MetricRequestDuration   = "engine.request.duration"
	MetricRequestsActive    = "engine.requests.active"
	MetricConnectionsRetire = "engine.connections.retired"
	MetricBuilds            = "engine.builds"
)

// EngineMetrics holds the instruments recorded by engines and factories.
type EngineMetrics struct {
	requests        metric.Int64Counter
	requestDuration metric.Float64Histogram
	requestsActive  metric.Int64UpDownCounter
	retired         metric.Int64Counter
	builds          metric.Int64Counter
}

// NewEngineMetrics creates the engine instruments on meter.
func NewEngineMetrics(meter metric.Meter) (*EngineMetrics, error) {
	requests, err := meter.Int64Counter(MetricRequests,
		metric.WithDescription("Total number of requests issued by engines"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating %s counter: %w", MetricRequests, err)
	}

	requestDuration, err := meter.Float64Histogram(MetricRequestDuration,
		metric.WithDescription("Duration of engine requests in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating %s histogram: %w", MetricRequestDuration, err)
	}

	requestsActive, err := meter.Int64UpDownCounter(MetricRequestsActive,
		metric.WithDescription("Number of in-flight engine requests"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating %s gauge: %w", MetricRequestsActive, err)
	}

	retired, err := meter.Int64Counter(MetricConnectionsRetire,
		metric.WithDescription("Number of times pooled connections were retired by the connection TTL"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating %s counter: %w", MetricConnectionsRetire, err)
	}

	builds, err := meter.Int64Counter(MetricBuilds,
		metric.WithDescription("Number of engine builds by outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating %s counter: %w", MetricBuilds, err)
	}

	return &EngineMetrics{
		requests:        requests,
		requestDuration: requestDuration,
		requestsActive:  requestsActive,
		retired:         retired,
		builds:          builds,
	}, nil
}

// RecordRequestStart increments the in-flight request count.
func (m *EngineMetrics) RecordRequestStart(ctx context.Context) {
	m.requestsActive.Add(ctx, 1)
}

// RecordRequestEnd decrements the in-flight count and records the completed
// request. status is "ok" or an error code.
func (m *EngineMetrics) RecordRequestEnd(ctx context.Context, method string, statusCode int, status string, duration time.Duration) {
	m.requestsActive.Add(ctx, -1)
	m.requests.Add(ctx, 1, metric.WithAttributes(
		attribute.String("method", method),
		attribute.Int("status_code", statusCode),
		attribute.String("status", status),
	))
	m.requestDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("method", method),
	))
}

// RecordConnectionsRetired counts one TTL-driven retirement of idle connections.
func (m *EngineMetrics) RecordConnectionsRetired(ctx context.Context) {
	m.retired.Add(ctx, 1)
}

// RecordBuild counts a factory build with its outcome ("ok" or "error").
func (m *EngineMetrics) RecordBuild(ctx context.Context, status string) {
	m.builds.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
}
