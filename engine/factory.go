package engine

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/kbukum/clientengine/logger"
	"github.com/kbukum/clientengine/observability"
	"github.com/kbukum/clientengine/transport"
	"github.com/kbukum/clientengine/version"
)

// Factory builds engines. It holds no per-build state and is safe for
// concurrent use.
type Factory struct {
	log       *logger.Logger
	tracer    trace.Tracer
	metrics   *observability.EngineMetrics
	userAgent string
}

type factoryOptions struct {
	log            *logger.Logger
	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider
	userAgent      string
}

// FactoryOption configures a Factory.
type FactoryOption func(*factoryOptions)

// WithLogger sets the logger used by the factory and its engines.
// Defaults to the logger registered as "engine".
func WithLogger(l *logger.Logger) FactoryOption {
	return func(o *factoryOptions) { o.log = l }
}

// WithTracerProvider sets the tracer provider for engine spans.
// Defaults to the global provider.
func WithTracerProvider(tp trace.TracerProvider) FactoryOption {
	return func(o *factoryOptions) { o.tracerProvider = tp }
}

// WithMeterProvider sets the meter provider for engine metrics.
// Defaults to the global provider.
func WithMeterProvider(mp metric.MeterProvider) FactoryOption {
	return func(o *factoryOptions) { o.meterProvider = mp }
}

// WithUserAgent overrides the User-Agent sent by engines. An empty value
// disables injection.
func WithUserAgent(ua string) FactoryOption {
	return func(o *factoryOptions) { o.userAgent = ua }
}

// NewFactory creates a factory.
func NewFactory(opts ...FactoryOption) (*Factory, error) {
	o := factoryOptions{userAgent: version.UserAgent()}
	for _, opt := range opts {
		opt(&o)
	}
	log := logger.Get("engine")
	if o.log != nil {
		log = o.log.WithComponent("engine")
	}

	metrics, err := observability.NewEngineMetrics(observability.Meter(o.meterProvider))
	if err != nil {
		return nil, err
	}

	return &Factory{
		log:       log,
		tracer:    observability.Tracer(o.tracerProvider),
		metrics:   metrics,
		userAgent: o.userAgent,
	}, nil
}

// Build creates a started engine from cfg. Errors from the transport are
// returned unchanged and no engine is returned with them.
func (f *Factory) Build(cfg ClientConfiguration) (*Engine, error) {
	ctx := context.Background()

	client, err := f.configure(cfg)
	if err != nil {
		f.metrics.RecordBuild(ctx, "error")
		f.log.Debug("Engine build failed", logger.ErrorFields("build", err))
		return nil, err
	}
	f.metrics.RecordBuild(ctx, "ok")

	id := uuid.NewString()
	e := &Engine{
		id:            id,
		client:        client,
		readTimeout:   cfg.ReadTimeout,
		connectionTTL: cfg.ConnectionTTL,
		log:           f.log.WithFields(logger.Fields(logger.FieldEngineID, id)),
		tracer:        f.tracer,
		metrics:       f.metrics,
		now:           time.Now,
	}
	e.epoch = e.now()

	e.log.Debug("Engine built", logger.Fields(
		logger.FieldProxy, cfg.proxyAddress(),
		logger.FieldTLS, cfg.TLSConfig != nil,
		logger.FieldSNI, len(cfg.SNIHostNames),
		"connect_timeout_ms", cfg.ConnectionTimeout,
		"read_timeout_ms", cfg.ReadTimeout,
		"connection_ttl_ms", cfg.ConnectionTTL,
		"cookies", cfg.CookieManagementEnabled,
		"follow_redirects", cfg.FollowRedirects,
	))
	return e, nil
}

// configure applies cfg to a fresh transport client, in order, and starts it.
func (f *Factory) configure(cfg ClientConfiguration) (*transport.Client, error) {
	client := transport.NewClient()
	if err := client.SetLogger(f.log); err != nil {
		return nil, err
	}
	if f.userAgent != "" {
		if err := client.SetUserAgent(f.userAgent); err != nil {
			return nil, err
		}
	}

	if cfg.Executor != nil {
		if err := client.SetExecutor(cfg.Executor); err != nil {
			return nil, err
		}
	}

	if cfg.ConnectionTimeout >= 0 {
		if err := client.SetConnectTimeout(millis(cfg.ConnectionTimeout)); err != nil {
			return nil, err
		}
	}

	if cfg.ProxyHost != "" {
		addr, err := transport.NewAddress(cfg.ProxyHost, cfg.ProxyPort)
		if err != nil {
			return nil, err
		}
		secure := strings.EqualFold(cfg.ProxyScheme, "https")
		client.ProxyConfiguration().AddProxy(transport.NewHTTPProxy(addr, secure))
	}

	if cfg.CookieManagementEnabled {
		jar, err := transport.NewMemoryCookieStore()
		if err != nil {
			return nil, err
		}
		if err := client.SetCookieStore(jar); err != nil {
			return nil, err
		}
	}

	if err := client.SetFollowRedirects(cfg.FollowRedirects); err != nil {
		return nil, err
	}

	if cfg.TLSConfig != nil {
		tlsFactory := transport.NewClientTLSFactory()
		tlsFactory.SetTLSConfig(cfg.TLSConfig)
		if len(cfg.SNIHostNames) > 0 {
			provider, err := StaticSNIProvider(cfg.SNIHostNames)
			if err != nil {
				return nil, err
			}
			tlsFactory.SetSNIProvider(provider)
		}
		if err := client.SetTLSFactory(tlsFactory); err != nil {
			return nil, err
		}
	}

	if err := client.Start(); err != nil {
		return nil, err
	}
	return client, nil
}
