package observer

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/nevindra/buildtrace"
)

// Scope marks a mojo span as current for the context it travels in. It is
// created by MojoStarted and must be closed exactly once by the terminal event
// of the same mojo.
type Scope struct {
	owner *TracingListener
	span  trace.Span
	name  string
	start time.Time

	closed atomic.Bool
}

func newScope(owner *TracingListener, span trace.Span, name string) *Scope {
	return &Scope{owner: owner, span: span, name: name, start: time.Now()}
}

// Span returns the span the scope brackets.
func (s *Scope) Span() trace.Span { return s.span }

// Name returns the span name.
func (s *Scope) Name() string { return s.name }

// Elapsed returns the time since the scope was opened.
func (s *Scope) Elapsed() time.Duration { return time.Since(s.start) }

// Closed reports whether Close already ran.
func (s *Scope) Closed() bool { return s.closed.Load() }

// Close ends the span. A second call returns buildtrace.ErrScopeClosed and
// leaves the span untouched.
func (s *Scope) Close(opts ...trace.SpanEndOption) error {
	if !s.closed.CompareAndSwap(false, true) {
		return fmt.Errorf("%w: %s", buildtrace.ErrScopeClosed, s.name)
	}
	s.span.End(opts...)
	return nil
}

// scopeKey is per listener so chained listeners keep separate scopes.
type scopeKey struct{ owner *TracingListener }

// ContextWithScope returns ctx carrying s and its span as the current span.
func ContextWithScope(ctx context.Context, s *Scope) context.Context {
	ctx = trace.ContextWithSpan(ctx, s.span)
	return context.WithValue(ctx, scopeKey{s.owner}, s)
}

// ScopeFromContext returns the scope l stored in ctx. Scopes of other
// listeners on the same context are not visible.
func (l *TracingListener) ScopeFromContext(ctx context.Context) (*Scope, bool) {
	s, ok := ctx.Value(scopeKey{l}).(*Scope)
	return s, ok && s != nil
}
