package buildtrace

import (
	"errors"
	"fmt"
)

var (
	// ErrNoActiveScope is returned when a mojo terminal event arrives without a
	// scope recorded by the matching MojoStarted.
	ErrNoActiveScope = errors.New("buildtrace: no active scope for mojo")

	// ErrScopeClosed is returned when a scope is closed a second time.
	ErrScopeClosed = errors.New("buildtrace: scope already closed")

	// ErrVersionUnavailable is returned when the host runtime cannot report its version.
	ErrVersionUnavailable = errors.New("buildtrace: host version unavailable")

	// ErrSessionNotStarted is returned for events that require a started session.
	ErrSessionNotStarted = errors.New("buildtrace: session not started")

	// ErrSessionActive is returned when a session is started twice.
	ErrSessionActive = errors.New("buildtrace: session already active")
)

// LifecycleError tags an error returned by a listener with the event that produced it.
type LifecycleError struct {
	Event EventType
	Mojo  string
	Err   error
}

func (e *LifecycleError) Error() string {
	if e.Mojo == "" {
		return fmt.Sprintf("%s: %v", e.Event, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Event, e.Mojo, e.Err)
}

func (e *LifecycleError) Unwrap() error { return e.Err }
