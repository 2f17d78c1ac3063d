// Package observer provides OTEL-based tracing for build lifecycles.
//
// Init autoconfigures trace, metric and log providers from a Config (usually
// ConfigFromEnv) and returns an explicit SDK handle; nothing is installed into
// the OTEL globals. TracingListener plugs the SDK into a buildtrace.Session so
// that every mojo becomes a span. Users export to any OTEL-compatible backend
// by setting the standard OTEL env vars.
package observer

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	otellog "go.opentelemetry.io/otel/log"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const scopeName = "github.com/nevindra/buildtrace/observer"

// ErrAlreadyShutdown is returned by a second SDK.Shutdown.
var ErrAlreadyShutdown = errors.New("observer: sdk already shut down")

// InitOption customizes Init.
type InitOption func(*initOptions)

type initOptions struct {
	resourceProviders []ResourceProvider
	spanProcessors    []sdktrace.SpanProcessor
	metricReaders     []sdkmetric.Reader
	logProcessors     []sdklog.Processor
}

// WithResourceProvider adds a resource provider. Later providers win on
// conflicting keys.
func WithResourceProvider(p ResourceProvider) InitOption {
	return func(o *initOptions) { o.resourceProviders = append(o.resourceProviders, p) }
}

// WithSpanProcessor registers an extra span processor next to the configured exporter.
func WithSpanProcessor(sp sdktrace.SpanProcessor) InitOption {
	return func(o *initOptions) { o.spanProcessors = append(o.spanProcessors, sp) }
}

// WithMetricReader registers an extra metric reader.
func WithMetricReader(r sdkmetric.Reader) InitOption {
	return func(o *initOptions) { o.metricReaders = append(o.metricReaders, r) }
}

// WithLogProcessor registers an extra log record processor.
func WithLogProcessor(p sdklog.Processor) InitOption {
	return func(o *initOptions) { o.logProcessors = append(o.logProcessors, p) }
}

// SDK is an initialized telemetry stack for the lifetime of one build session.
type SDK struct {
	tp  *sdktrace.TracerProvider
	mp  *sdkmetric.MeterProvider
	lp  *sdklog.LoggerProvider
	res *resource.Resource

	mu       sync.Mutex
	shutdown bool
}

// Init sets up trace, metric, and log providers per cfg.
// Returns an SDK whose Shutdown must be called when the session ends.
func Init(ctx context.Context, cfg Config, opts ...InitOption) (*SDK, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	var o initOptions
	for _, opt := range opts {
		opt(&o)
	}

	res, err := NewResource(ctx, cfg, o.resourceProviders...)
	if err != nil {
		return nil, err
	}

	// Trace provider
	spanExp, err := newSpanExporter(ctx, cfg)
	if err != nil {
		return nil, err
	}
	tpOpts := []sdktrace.TracerProviderOption{sdktrace.WithResource(res)}
	switch {
	case spanExp == nil:
	case cfg.TracesExporter == ExporterConsole:
		tpOpts = append(tpOpts, sdktrace.WithSyncer(spanExp))
	default:
		tpOpts = append(tpOpts, sdktrace.WithBatcher(spanExp))
	}
	for _, sp := range o.spanProcessors {
		tpOpts = append(tpOpts, sdktrace.WithSpanProcessor(sp))
	}
	tp := sdktrace.NewTracerProvider(tpOpts...)

	// Metric provider
	reader, err := newMetricReader(ctx, cfg)
	if err != nil {
		_ = tp.Shutdown(ctx)
		return nil, err
	}
	mpOpts := []sdkmetric.Option{sdkmetric.WithResource(res)}
	if reader != nil {
		mpOpts = append(mpOpts, sdkmetric.WithReader(reader))
	}
	for _, r := range o.metricReaders {
		mpOpts = append(mpOpts, sdkmetric.WithReader(r))
	}
	mp := sdkmetric.NewMeterProvider(mpOpts...)

	// Log provider
	proc, err := newLogProcessor(ctx, cfg)
	if err != nil {
		_ = tp.Shutdown(ctx)
		_ = mp.Shutdown(ctx)
		return nil, err
	}
	lpOpts := []sdklog.LoggerProviderOption{sdklog.WithResource(res)}
	if proc != nil {
		lpOpts = append(lpOpts, sdklog.WithProcessor(proc))
	}
	for _, p := range o.logProcessors {
		lpOpts = append(lpOpts, sdklog.WithProcessor(p))
	}
	lp := sdklog.NewLoggerProvider(lpOpts...)

	return &SDK{tp: tp, mp: mp, lp: lp, res: res}, nil
}

// Resource returns the resource attached to every signal.
func (s *SDK) Resource() *resource.Resource { return s.res }

// Tracer returns a tracer from the SDK's provider.
func (s *SDK) Tracer(name string) trace.Tracer { return s.tp.Tracer(name) }

// Meter returns a meter from the SDK's provider.
func (s *SDK) Meter(name string) metric.Meter { return s.mp.Meter(name) }

// Logger returns an OTEL log API logger from the SDK's provider.
func (s *SDK) Logger(name string) otellog.Logger { return s.lp.Logger(name) }

// Slog returns a slog.Logger whose records are exported through the SDK's log provider.
func (s *SDK) Slog(name string) *slog.Logger {
	return otelslog.NewLogger(name, otelslog.WithLoggerProvider(s.lp))
}

// Shutdown flushes and stops all providers. Only the first call does any work.
func (s *SDK) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if s.shutdown {
		s.mu.Unlock()
		return ErrAlreadyShutdown
	}
	s.shutdown = true
	s.mu.Unlock()

	return errors.Join(
		s.tp.Shutdown(ctx),
		s.mp.Shutdown(ctx),
		s.lp.Shutdown(ctx),
	)
}

// Instruments holds the OTEL instruments used by TracingListener.
type Instruments struct {
	Tracer trace.Tracer
	Meter  metric.Meter
	Logger otellog.Logger

	MojoExecutions  metric.Int64Counter
	MojoDuration    metric.Float64Histogram
	SessionDuration metric.Float64Histogram
}

func newInstruments(sdk *SDK, tracerName string) (*Instruments, error) {
	meter := sdk.Meter(scopeName)

	mojoExecutions, err := meter.Int64Counter("mojo.executions",
		metric.WithDescription("Mojo execution count"),
		metric.WithUnit("{execution}"))
	if err != nil {
		return nil, err
	}

	mojoDuration, err := meter.Float64Histogram("mojo.duration",
		metric.WithDescription("Mojo execution duration"),
		metric.WithUnit("ms"))
	if err != nil {
		return nil, err
	}

	sessionDuration, err := meter.Float64Histogram("session.duration",
		metric.WithDescription("Build session duration"),
		metric.WithUnit("ms"))
	if err != nil {
		return nil, err
	}

	return &Instruments{
		Tracer:          sdk.Tracer(tracerName),
		Meter:           meter,
		Logger:          sdk.Logger(scopeName),
		MojoExecutions:  mojoExecutions,
		MojoDuration:    mojoDuration,
		SessionDuration: sessionDuration,
	}, nil
}
