package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nevindra/buildtrace"
	"github.com/nevindra/buildtrace/internal/build"
	"github.com/nevindra/buildtrace/internal/config"
	"github.com/nevindra/buildtrace/internal/plan"
	"github.com/nevindra/buildtrace/observer"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "buildtrace",
		Short: "Run build plans with OpenTelemetry tracing",
		Long: `buildtrace runs a YAML build plan and reports every step (mojo)
as an OpenTelemetry span, configured through buildtrace.toml and the
standard OTEL_* environment variables.`,
		Version:       buildtrace.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.AddCommand(newRunCmd(), newVersionCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "buildtrace:", err)
		os.Exit(1)
	}
}

func newRunCmd() *cobra.Command {
	var configPath, planPath string
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a build plan",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if planPath != "" {
				cfg.Build.Plan = planPath
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, cfg)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "config file (default $BUILDTRACE_CONFIG or buildtrace.toml)")
	cmd.Flags().StringVarP(&planPath, "plan", "p", "", "build plan file (overrides [build] plan)")
	return cmd
}

func run(ctx context.Context, cfg config.Config) error {
	console, err := newConsoleHandler(os.Stderr, cfg.Log)
	if err != nil {
		return err
	}
	logger := newLogger(console, nil)

	p, err := plan.Load(cfg.Build.Plan)
	if err != nil {
		return err
	}

	var goals []string
	for _, proj := range p.Projects {
		for _, s := range proj.Steps {
			goals = append(goals, s.ArtifactID+":"+s.Goal)
		}
	}
	session := buildtrace.NewSession(buildtrace.NewRequest(goals...))

	var tracing *observer.TracingListener
	if cfg.Observer.Enabled {
		tracing = observer.NewTracingListener(hostRuntime(cfg.Host),
			observer.WithConfig(cfg.Observer.Telemetry()),
			observer.WithLogger(logger),
		)
		tracing.Install(session)
		// Step output is mirrored to the OTel log pipeline while a session is active.
		logger = newLogger(console, tracing)
	}

	r := &build.Runner{
		Session:     session,
		Plan:        p,
		Exec:        build.ShellExec(cfg.Build.Shell, logger),
		Parallelism: cfg.Build.Parallelism,
		Logger:      logger,
	}
	return r.Run(ctx)
}

// hostRuntime prefers a configured version over the one baked into the binary.
func hostRuntime(h config.HostConfig) buildtrace.RuntimeInformation {
	if h.Version != "" {
		return buildtrace.StaticRuntime{Name: h.Name, Version: h.Version}
	}
	return buildtrace.HostRuntime{Name: h.Name}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, _ []string) {
			out := cmd.OutOrStdout()
			v, err := buildtrace.HostRuntime{Name: "buildtrace"}.VersionString()
			if errors.Is(err, buildtrace.ErrVersionUnavailable) {
				v = buildtrace.Version
			}
			fmt.Fprintf(out, "buildtrace version: %s\n", v)
			if info, ok := debug.ReadBuildInfo(); ok {
				for _, s := range info.Settings {
					if s.Key == "vcs.revision" {
						fmt.Fprintf(out, "  git commit: %s\n", s.Value)
					}
				}
			}
			fmt.Fprintf(out, "  go version: %s\n", runtime.Version())
		},
	}
}
