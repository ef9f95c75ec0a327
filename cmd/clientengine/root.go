package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/kbukum/clientengine/config"
	"github.com/kbukum/clientengine/engine"
	"github.com/kbukum/clientengine/logger"
	"github.com/kbukum/clientengine/observability"
	"github.com/kbukum/clientengine/version"
)

// rootOptions are the persistent flags and the settings resolved from them.
type rootOptions struct {
	configFile   string
	envFile      string
	logLevel     string
	otlpEndpoint string

	settings config.Settings
}

func newRootCmd(out io.Writer) *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           config.AppName,
		Short:         "Build an HTTP client engine from configuration and issue requests",
		Version:       version.Get().Short(),
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return opts.load()
		},
	}
	cmd.SetOut(out)

	flags := cmd.PersistentFlags()
	flags.StringVarP(&opts.configFile, "config", "c", "",
		fmt.Sprintf("path to the configuration file (default searches ./%s.yml)", config.AppName))
	flags.StringVar(&opts.envFile, "env-file", "", "path to a .env file (default searches ./.env)")
	flags.StringVar(&opts.logLevel, "log-level", "", "override logging.level")
	flags.StringVar(&opts.otlpEndpoint, "otlp-endpoint", "",
		"export traces and metrics to this OTLP HTTP endpoint (host:port)")

	cmd.AddCommand(
		newRequestCmd(opts),
		newDescribeCmd(opts),
		newVersionCmd(),
	)
	return cmd
}

// load resolves settings from file, env file and environment, then installs
// the global logger.
func (o *rootOptions) load() error {
	o.settings = config.DefaultSettings()

	var loadOpts []config.LoaderOption
	if o.configFile != "" {
		loadOpts = append(loadOpts, config.WithConfigFile(o.configFile))
	}
	if o.envFile != "" {
		loadOpts = append(loadOpts, config.WithEnvFile(o.envFile))
	}
	if err := config.Load(&o.settings, loadOpts...); err != nil {
		return err
	}
	if o.logLevel != "" {
		o.settings.Logging.Level = o.logLevel
	}

	o.settings.ApplyDefaults()
	if err := o.settings.Validate(); err != nil {
		return err
	}

	logger.Init(&o.settings.Logging)
	logger.RegisterComponents("engine", "registry", config.ExecutorName)
	return nil
}

// telemetry holds the providers installed for one command run.
type telemetry struct {
	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider
	shutdown       []func(context.Context) error
}

func (o *rootOptions) initTelemetry(ctx context.Context) (*telemetry, error) {
	tel := &telemetry{}
	if o.otlpEndpoint == "" {
		return tel, nil
	}

	tc := observability.DefaultTracerConfig(config.AppName)
	tc.ServiceVersion = version.Version
	tc.Endpoint = o.otlpEndpoint
	tp, err := observability.InitTracer(ctx, tc)
	if err != nil {
		return nil, err
	}
	tel.tracerProvider = tp
	tel.shutdown = append(tel.shutdown, tp.Shutdown)

	mc := observability.DefaultMeterConfig(config.AppName)
	mc.ServiceVersion = version.Version
	mc.Endpoint = o.otlpEndpoint
	mp, err := observability.InitMeter(ctx, mc)
	if err != nil {
		_ = tp.Shutdown(ctx)
		return nil, err
	}
	tel.meterProvider = mp
	tel.shutdown = append(tel.shutdown, mp.Shutdown)
	return tel, nil
}

func (t *telemetry) factoryOptions() []engine.FactoryOption {
	var opts []engine.FactoryOption
	if t.tracerProvider != nil {
		opts = append(opts, engine.WithTracerProvider(t.tracerProvider))
	}
	if t.meterProvider != nil {
		opts = append(opts, engine.WithMeterProvider(t.meterProvider))
	}
	return opts
}

func (t *telemetry) close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for _, fn := range t.shutdown {
		if err := fn(ctx); err != nil {
			logger.Warn("telemetry shutdown failed", logger.ErrorFields("shutdown", err))
		}
	}
}
