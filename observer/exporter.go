package observer

import (
	"context"
	"os"
	"strings"

	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// newSpanExporter returns nil when traces are not exported.
func newSpanExporter(ctx context.Context, cfg Config) (sdktrace.SpanExporter, error) {
	if cfg.Disabled {
		return nil, nil
	}
	switch cfg.TracesExporter {
	case ExporterOTLP:
		var opts []otlptracehttp.Option
		if cfg.Endpoint != "" {
			opts = append(opts, otlptracehttp.WithEndpointURL(signalURL(cfg.Endpoint, "traces")))
		}
		return otlptracehttp.New(ctx, opts...)
	case ExporterConsole:
		w := cfg.ConsoleWriter
		if w == nil {
			w = os.Stdout
		}
		return stdouttrace.New(stdouttrace.WithWriter(w), stdouttrace.WithPrettyPrint())
	default:
		return nil, nil
	}
}

func newMetricReader(ctx context.Context, cfg Config) (sdkmetric.Reader, error) {
	if cfg.Disabled || cfg.MetricsExporter != ExporterOTLP {
		return nil, nil
	}
	var opts []otlpmetrichttp.Option
	if cfg.Endpoint != "" {
		opts = append(opts, otlpmetrichttp.WithEndpointURL(signalURL(cfg.Endpoint, "metrics")))
	}
	exp, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, err
	}
	return sdkmetric.NewPeriodicReader(exp), nil
}

func newLogProcessor(ctx context.Context, cfg Config) (sdklog.Processor, error) {
	if cfg.Disabled || cfg.LogsExporter != ExporterOTLP {
		return nil, nil
	}
	var opts []otlploghttp.Option
	if cfg.Endpoint != "" {
		opts = append(opts, otlploghttp.WithEndpointURL(signalURL(cfg.Endpoint, "logs")))
	}
	exp, err := otlploghttp.New(ctx, opts...)
	if err != nil {
		return nil, err
	}
	return sdklog.NewBatchProcessor(exp), nil
}

// signalURL appends the per-signal OTLP/HTTP path to a base endpoint.
func signalURL(base, signal string) string {
	return strings.TrimRight(base, "/") + "/v1/" + signal
}
