package buildtrace

import "context"

// ExecutionListener receives build lifecycle callbacks from the host.
//
// The host calls MojoStarted and threads the returned context into the matching
// MojoSucceeded or MojoFailed call, so per-mojo state travels with the context
// instead of living in goroutine-local storage. Session.Execute does this for you.
type ExecutionListener interface {
	// SessionStarted is called once before any mojo runs.
	SessionStarted(ctx context.Context, ev *ExecutionEvent) error
	// SessionEnded is called once after the last mojo finished.
	SessionEnded(ctx context.Context, ev *ExecutionEvent) error
	// MojoStarted is called before a mojo runs. The returned context must be
	// passed to the terminal callback of the same mojo.
	MojoStarted(ctx context.Context, ev *ExecutionEvent) (context.Context, error)
	// MojoSucceeded is called when a mojo completed without error.
	MojoSucceeded(ctx context.Context, ev *ExecutionEvent) error
	// MojoFailed is called when a mojo failed; ev.Err holds the cause.
	MojoFailed(ctx context.Context, ev *ExecutionEvent) error
}

// BaseListener implements ExecutionListener with no-ops. Embed it to override
// only the callbacks you care about.
type BaseListener struct{}

func (BaseListener) SessionStarted(context.Context, *ExecutionEvent) error { return nil }
func (BaseListener) SessionEnded(context.Context, *ExecutionEvent) error   { return nil }
func (BaseListener) MojoStarted(ctx context.Context, _ *ExecutionEvent) (context.Context, error) {
	return ctx, nil
}
func (BaseListener) MojoSucceeded(context.Context, *ExecutionEvent) error { return nil }
func (BaseListener) MojoFailed(context.Context, *ExecutionEvent) error    { return nil }

var _ ExecutionListener = BaseListener{}
