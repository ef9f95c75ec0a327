// Package observability provides OpenTelemetry tracing and metrics for
// clientengine engines.
//
// Tracing:
//
//	tp, err := observability.InitTracer(ctx, observability.DefaultTracerConfig("clientengine"))
//	defer tp.Shutdown(ctx)
//
// Metrics:
//
//	mp, err := observability.InitMeter(ctx, observability.DefaultMeterConfig("clientengine"))
//	defer mp.Shutdown(ctx)
//
//	metrics, err := observability.NewEngineMetrics(mp.Meter(observability.InstrumentationName))
//	metrics.RecordRequestEnd(ctx, "GET", 200, "ok", duration)
//
// Engines created without explicit providers use the global otel providers,
// which are no-ops until InitTracer or InitMeter is called.
package observability
