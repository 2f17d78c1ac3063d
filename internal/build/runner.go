// Package build drives a buildtrace session over a build plan.
package build

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nevindra/buildtrace"
	"github.com/nevindra/buildtrace/internal/plan"
)

// StepFunc executes one plan step. ctx carries whatever the session's
// listener attached in MojoStarted.
type StepFunc func(ctx context.Context, project string, step plan.Step) error

// Runner runs every project of a plan inside one session. Projects run
// concurrently up to Parallelism; steps within a project run in order.
type Runner struct {
	Session     *buildtrace.Session
	Plan        *plan.Plan
	Exec        StepFunc
	Parallelism int
	Logger      *slog.Logger
}

// Run starts the session, executes the plan and ends the session. The first
// failing step cancels the remaining ones. The session is always ended and
// its error joined with the build result.
func (r *Runner) Run(ctx context.Context) error {
	if r.Session == nil || r.Plan == nil || r.Exec == nil {
		return errors.New("build: runner needs a session, a plan and an exec func")
	}
	logger := r.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	if err := r.Session.Start(ctx); err != nil {
		return fmt.Errorf("build: start session: %w", err)
	}
	start := time.Now()
	logger.Info("build started", "session", r.Session.ID, "plan", r.Plan.Name, "projects", len(r.Plan.Projects))

	runErr := r.runProjects(ctx, logger)

	if runErr != nil {
		logger.Error("build failed", "session", r.Session.ID, "duration", time.Since(start), "error", runErr)
	} else {
		logger.Info("build succeeded", "session", r.Session.ID, "duration", time.Since(start))
	}

	// End with a context that survives cancellation of the build.
	endErr := r.Session.End(context.WithoutCancel(ctx))
	if endErr != nil {
		endErr = fmt.Errorf("build: end session: %w", endErr)
	}
	return errors.Join(runErr, endErr)
}

func (r *Runner) runProjects(ctx context.Context, logger *slog.Logger) error {
	limit := r.Parallelism
	if limit < 1 {
		limit = 1
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for _, proj := range r.Plan.Projects {
		g.Go(func() error {
			return r.runProject(gctx, logger, proj)
		})
	}
	return g.Wait()
}

func (r *Runner) runProject(ctx context.Context, logger *slog.Logger, proj plan.Project) error {
	for _, step := range proj.Steps {
		if err := ctx.Err(); err != nil {
			return err
		}
		mojo := step.Mojo(proj.ID)
		logger.Debug("mojo", "project", proj.ID, "mojo", mojo.String())
		err := r.Session.Execute(ctx, mojo, func(ctx context.Context) error {
			return r.Exec(ctx, proj.ID, step)
		})
		if err != nil {
			return fmt.Errorf("%s: %s:%s: %w", proj.ID, step.ArtifactID, step.Goal, err)
		}
	}
	return nil
}
