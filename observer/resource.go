package observer

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"github.com/nevindra/buildtrace"
)

// ResourceProvider contributes attributes to the SDK resource. Init calls each
// provider once while building the SDK.
type ResourceProvider interface {
	CreateResource(ctx context.Context, cfg Config) (*resource.Resource, error)
}

// BuildToolResourceProvider describes the host build tool: service.name is the
// tool name and service.version the version its runtime reports.
type BuildToolResourceProvider struct {
	Runtime buildtrace.RuntimeInformation
}

// CreateResource fails when the runtime cannot report a version. There is no
// fallback value.
func (p BuildToolResourceProvider) CreateResource(_ context.Context, _ Config) (*resource.Resource, error) {
	if p.Runtime == nil {
		return nil, fmt.Errorf("observer: build tool resource: %w", buildtrace.ErrVersionUnavailable)
	}
	version, err := p.Runtime.VersionString()
	if err != nil {
		return nil, fmt.Errorf("observer: build tool resource: %w", err)
	}
	return resource.NewSchemaless(
		semconv.ServiceName(p.Runtime.ToolName()),
		semconv.ServiceVersion(version),
	), nil
}

// NewResource merges, in increasing precedence: SDK telemetry attributes, every
// provider in order, cfg.ServiceName, then OTEL_RESOURCE_ATTRIBUTES and
// OTEL_SERVICE_NAME.
func NewResource(ctx context.Context, cfg Config, providers ...ResourceProvider) (*resource.Resource, error) {
	res, err := resource.New(ctx, resource.WithTelemetrySDK())
	if err != nil {
		return nil, err
	}
	for _, p := range providers {
		r, err := p.CreateResource(ctx, cfg)
		if err != nil {
			return nil, err
		}
		if res, err = resource.Merge(res, r); err != nil {
			return nil, err
		}
	}
	if cfg.ServiceName != "" {
		if res, err = resource.Merge(res, resource.NewSchemaless(semconv.ServiceName(cfg.ServiceName))); err != nil {
			return nil, err
		}
	}
	env, err := resource.New(ctx, resource.WithFromEnv())
	if err != nil {
		return nil, err
	}
	return resource.Merge(res, env)
}

var _ ResourceProvider = BuildToolResourceProvider{}
