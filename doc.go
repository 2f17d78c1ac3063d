// Package buildtrace connects a build tool's execution lifecycle to distributed tracing.
//
// The root package defines the host contract: a [Session] with a single
// listener slot on its [Request], the [ExecutionListener] callbacks fired for
// session and mojo (build step) events, and [Register], which installs a
// listener without displacing one that is already there.
//
// # Quick Start
//
//	session := buildtrace.NewSession(buildtrace.NewRequest("package"))
//	observer.NewTracingListener(buildtrace.HostRuntime{Name: "buildtrace"}).Install(session)
//
//	if err := session.Start(ctx); err != nil {
//		return err
//	}
//	err := session.Execute(ctx, buildtrace.MojoExecution{
//		ArtifactID: "go-plugin",
//		Goal:       "compile",
//	}, compile)
//	return errors.Join(err, session.End(ctx))
//
// # Core Interfaces
//
//   - [ExecutionListener]: lifecycle callbacks; embed [BaseListener] for no-op defaults
//   - [ChainedListener]: ordered fan-out over several listeners
//   - [RuntimeInformation]: host tool name and version for resource attributes
//
// The observer package provides the OpenTelemetry-backed listener. The
// cmd/buildtrace directory holds a reference host that runs YAML build plans.
package buildtrace
