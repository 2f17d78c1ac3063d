package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/nevindra/buildtrace/observer"
)

type Config struct {
	Observer ObserverConfig `toml:"observer"`
	Host     HostConfig     `toml:"host"`
	Build    BuildConfig    `toml:"build"`
	Log      LogConfig      `toml:"log"`
}

type ObserverConfig struct {
	Enabled         bool   `toml:"enabled"`
	ServiceName     string `toml:"service_name"`
	TracesExporter  string `toml:"traces_exporter"`
	MetricsExporter string `toml:"metrics_exporter"`
	LogsExporter    string `toml:"logs_exporter"`
	Endpoint        string `toml:"endpoint"`
}

type HostConfig struct {
	Name    string `toml:"name"`
	Version string `toml:"version"`
}

type BuildConfig struct {
	Plan        string `toml:"plan"`
	Parallelism int    `toml:"parallelism"`
	Shell       string `toml:"shell"`
}

type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Default returns a Config with all defaults applied.
func Default() Config {
	return Config{
		Observer: ObserverConfig{Enabled: true},
		Host:     HostConfig{Name: "buildtrace"},
		Build:    BuildConfig{Plan: "buildtrace.yaml", Parallelism: 1, Shell: "sh"},
		Log:      LogConfig{Level: "info", Format: "text"},
	}
}

// Load reads config: defaults -> TOML file -> env vars (env wins).
// An empty path falls back to BUILDTRACE_CONFIG, then buildtrace.toml.
// A missing file is not an error; a malformed one is.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv("BUILDTRACE_CONFIG")
	}
	if path == "" {
		path = "buildtrace.toml"
	}

	if data, err := os.ReadFile(path); err == nil {
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return cfg, err
		}
	}

	// Env overrides
	if v := os.Getenv("BUILDTRACE_OBSERVER_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Observer.Enabled = b
		}
	}
	if v := os.Getenv("BUILDTRACE_HOST_VERSION"); v != "" {
		cfg.Host.Version = v
	}
	if v := os.Getenv("BUILDTRACE_PLAN"); v != "" {
		cfg.Build.Plan = v
	}
	if v := os.Getenv("BUILDTRACE_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}

	// Fallbacks
	if cfg.Build.Parallelism < 1 {
		cfg.Build.Parallelism = 1
	}
	if cfg.Build.Shell == "" {
		cfg.Build.Shell = "sh"
	}

	return cfg, nil
}

// Telemetry merges the file settings with the standard OTEL_* environment.
// Environment values win over the file, matching the rest of Load.
func (o ObserverConfig) Telemetry() observer.Config {
	cfg := observer.ConfigFromEnv()
	if os.Getenv("OTEL_SERVICE_NAME") == "" && o.ServiceName != "" {
		cfg.ServiceName = o.ServiceName
	}
	if os.Getenv("OTEL_TRACES_EXPORTER") == "" && o.TracesExporter != "" {
		cfg.TracesExporter = strings.ToLower(o.TracesExporter)
	}
	if os.Getenv("OTEL_METRICS_EXPORTER") == "" && o.MetricsExporter != "" {
		cfg.MetricsExporter = strings.ToLower(o.MetricsExporter)
	}
	if os.Getenv("OTEL_LOGS_EXPORTER") == "" && o.LogsExporter != "" {
		cfg.LogsExporter = strings.ToLower(o.LogsExporter)
	}
	if os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT") == "" && o.Endpoint != "" {
		cfg.Endpoint = o.Endpoint
	}
	return cfg
}
