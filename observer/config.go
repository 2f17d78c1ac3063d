package observer

import (
	"fmt"
	"io"
	"os"
	"strings"
)

// Exporter names accepted in Config.
const (
	ExporterOTLP    = "otlp"
	ExporterConsole = "console"
	ExporterNone    = "none"
)

// Config is the autoconfiguration input for Init.
type Config struct {
	// ServiceName overrides the service.name attribute when non-empty.
	ServiceName string

	TracesExporter  string
	MetricsExporter string
	LogsExporter    string

	// Endpoint is the OTLP/HTTP base URL. Empty means the exporters read
	// OTEL_EXPORTER_OTLP_* themselves.
	Endpoint string

	// Disabled builds providers without any exporter.
	Disabled bool

	// ConsoleWriter receives the console trace exporter output (default os.Stdout).
	ConsoleWriter io.Writer
}

// DefaultConfig exports traces over OTLP and nothing else.
func DefaultConfig() Config {
	return Config{
		TracesExporter:  ExporterOTLP,
		MetricsExporter: ExporterNone,
		LogsExporter:    ExporterNone,
	}
}

// ConfigFromEnv reads the standard OTEL_* variables on top of DefaultConfig.
func ConfigFromEnv() Config {
	cfg := DefaultConfig()
	if v := os.Getenv("OTEL_SERVICE_NAME"); v != "" {
		cfg.ServiceName = v
	}
	if v := os.Getenv("OTEL_TRACES_EXPORTER"); v != "" {
		cfg.TracesExporter = normalizeExporter(v)
	}
	if v := os.Getenv("OTEL_METRICS_EXPORTER"); v != "" {
		cfg.MetricsExporter = normalizeExporter(v)
	}
	if v := os.Getenv("OTEL_LOGS_EXPORTER"); v != "" {
		cfg.LogsExporter = normalizeExporter(v)
	}
	if v := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); v != "" {
		cfg.Endpoint = v
	}
	if v := strings.ToLower(os.Getenv("OTEL_SDK_DISABLED")); v == "true" || v == "1" {
		cfg.Disabled = true
	}
	return cfg
}

// Validate reports unknown exporter names.
func (c Config) Validate() error {
	if err := checkExporter("traces", c.TracesExporter, ExporterOTLP, ExporterConsole, ExporterNone); err != nil {
		return err
	}
	if err := checkExporter("metrics", c.MetricsExporter, ExporterOTLP, ExporterNone); err != nil {
		return err
	}
	return checkExporter("logs", c.LogsExporter, ExporterOTLP, ExporterNone)
}

func checkExporter(signal, name string, allowed ...string) error {
	if name == "" {
		return nil
	}
	for _, a := range allowed {
		if name == a {
			return nil
		}
	}
	return fmt.Errorf("observer: unknown %s exporter %q (want one of %s)", signal, name, strings.Join(allowed, ", "))
}

// normalizeExporter maps the SDK's alias "logging" to console and trims case.
func normalizeExporter(v string) string {
	v = strings.ToLower(strings.TrimSpace(v))
	if v == "logging" {
		return ExporterConsole
	}
	return v
}
