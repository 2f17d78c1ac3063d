package buildtrace

import (
	"context"
	"errors"
)

// Start fires EventSessionStarted on the installed listener.
func (s *Session) Start(ctx context.Context) error {
	l := s.request.ExecutionListener()
	if l == nil {
		return nil
	}
	ev := &ExecutionEvent{Type: EventSessionStarted, Session: s}
	if err := l.SessionStarted(ctx, ev); err != nil {
		return &LifecycleError{Event: ev.Type, Err: err}
	}
	return nil
}

// End fires EventSessionEnded on the installed listener.
func (s *Session) End(ctx context.Context) error {
	l := s.request.ExecutionListener()
	if l == nil {
		return nil
	}
	ev := &ExecutionEvent{Type: EventSessionEnded, Session: s}
	if err := l.SessionEnded(ctx, ev); err != nil {
		return &LifecycleError{Event: ev.Type, Err: err}
	}
	return nil
}

// Execute runs one mojo bracketed by lifecycle events. run receives the
// context returned by MojoStarted, and the same context is handed to
// MojoSucceeded or MojoFailed. The run error is returned joined with any
// listener error. When MojoStarted fails, run is not invoked.
func (s *Session) Execute(ctx context.Context, mojo MojoExecution, run func(context.Context) error) error {
	l := s.request.ExecutionListener()
	if l == nil {
		return run(ctx)
	}

	m := mojo
	started := &ExecutionEvent{Type: EventMojoStarted, Session: s, Mojo: &m}
	mctx, err := l.MojoStarted(ctx, started)
	if err != nil {
		return &LifecycleError{Event: started.Type, Mojo: m.String(), Err: err}
	}
	if mctx == nil {
		mctx = ctx
	}

	runErr := run(mctx)

	done := &ExecutionEvent{Type: EventMojoSucceeded, Session: s, Mojo: &m}
	var lerr error
	if runErr != nil {
		done.Type = EventMojoFailed
		done.Err = runErr
		lerr = l.MojoFailed(mctx, done)
	} else {
		lerr = l.MojoSucceeded(mctx, done)
	}
	if lerr != nil {
		lerr = &LifecycleError{Event: done.Type, Mojo: done.mojoName(), Err: lerr}
	}
	return errors.Join(runErr, lerr)
}
