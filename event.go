package buildtrace

import (
	"fmt"
	"sync"
	"time"
)

// EventType identifies a lifecycle callback.
type EventType string

const (
	EventSessionStarted EventType = "session_started"
	EventSessionEnded   EventType = "session_ended"
	EventMojoStarted    EventType = "mojo_started"
	EventMojoSucceeded  EventType = "mojo_succeeded"
	EventMojoFailed     EventType = "mojo_failed"
)

// MojoExecution is one build step: a plugin goal bound to a project.
type MojoExecution struct {
	GroupID     string
	ArtifactID  string
	Version     string
	Goal        string
	ExecutionID string
	Phase       string
	Project     string
}

func (m MojoExecution) String() string {
	s := fmt.Sprintf("%s:%s:%s:%s", m.GroupID, m.ArtifactID, m.Version, m.Goal)
	if m.ExecutionID != "" {
		s += " (" + m.ExecutionID + ")"
	}
	return s
}

// Request is the mutable execution request of a session. It owns the single
// execution listener slot. Safe for concurrent use.
type Request struct {
	Goals []string

	mu       sync.RWMutex
	listener ExecutionListener
}

// NewRequest returns a Request for the given goals with an empty listener slot.
func NewRequest(goals ...string) *Request {
	return &Request{Goals: goals}
}

// ExecutionListener returns the listener currently installed, or nil.
func (r *Request) ExecutionListener() ExecutionListener {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.listener
}

// SetExecutionListener replaces the listener slot.
func (r *Request) SetExecutionListener(l ExecutionListener) {
	r.mu.Lock()
	r.listener = l
	r.mu.Unlock()
}

// Session is one end-to-end build invocation.
type Session struct {
	ID        string
	StartTime time.Time

	request *Request
}

// NewSession creates a session over req. A nil req gets an empty Request.
func NewSession(req *Request) *Session {
	if req == nil {
		req = NewRequest()
	}
	return &Session{
		ID:        NewID(),
		StartTime: time.Now(),
		request:   req,
	}
}

// Request returns the session's execution request.
func (s *Session) Request() *Request { return s.request }

// ExecutionEvent is passed to every listener callback. Mojo is nil for session
// events; Err is set only for EventMojoFailed.
type ExecutionEvent struct {
	Type    EventType
	Session *Session
	Mojo    *MojoExecution
	Err     error
}

func (e *ExecutionEvent) mojoName() string {
	if e.Mojo == nil {
		return ""
	}
	return e.Mojo.String()
}
