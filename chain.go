package buildtrace

import (
	"context"
	"errors"
	"reflect"
)

// ChainedListener fans every callback out to an ordered list of listeners.
// Each member sees every event even when an earlier member fails; errors are
// joined. MojoStarted threads the context returned by one member into the next.
type ChainedListener struct {
	listeners []ExecutionListener
}

// Chain builds a ChainedListener. Nested chains are flattened, nil entries and
// repeated listeners are dropped, order is preserved.
func Chain(listeners ...ExecutionListener) *ChainedListener {
	c := &ChainedListener{}
	for _, l := range listeners {
		c.add(l)
	}
	return c
}

func (c *ChainedListener) add(l ExecutionListener) {
	if l == nil {
		return
	}
	if inner, ok := l.(*ChainedListener); ok {
		for _, m := range inner.listeners {
			c.add(m)
		}
		return
	}
	if c.Contains(l) {
		return
	}
	c.listeners = append(c.listeners, l)
}

// Contains reports whether l is a member of the chain.
func (c *ChainedListener) Contains(l ExecutionListener) bool {
	for _, m := range c.listeners {
		if sameListener(m, l) {
			return true
		}
	}
	return false
}

// Listeners returns a copy of the members in invocation order.
func (c *ChainedListener) Listeners() []ExecutionListener {
	out := make([]ExecutionListener, len(c.listeners))
	copy(out, c.listeners)
	return out
}

func (c *ChainedListener) SessionStarted(ctx context.Context, ev *ExecutionEvent) error {
	var errs []error
	for _, l := range c.listeners {
		errs = append(errs, l.SessionStarted(ctx, ev))
	}
	return errors.Join(errs...)
}

func (c *ChainedListener) SessionEnded(ctx context.Context, ev *ExecutionEvent) error {
	var errs []error
	for _, l := range c.listeners {
		errs = append(errs, l.SessionEnded(ctx, ev))
	}
	return errors.Join(errs...)
}

func (c *ChainedListener) MojoStarted(ctx context.Context, ev *ExecutionEvent) (context.Context, error) {
	var errs []error
	for _, l := range c.listeners {
		next, err := l.MojoStarted(ctx, ev)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if next != nil {
			ctx = next
		}
	}
	return ctx, errors.Join(errs...)
}

func (c *ChainedListener) MojoSucceeded(ctx context.Context, ev *ExecutionEvent) error {
	var errs []error
	for _, l := range c.listeners {
		errs = append(errs, l.MojoSucceeded(ctx, ev))
	}
	return errors.Join(errs...)
}

func (c *ChainedListener) MojoFailed(ctx context.Context, ev *ExecutionEvent) error {
	var errs []error
	for _, l := range c.listeners {
		errs = append(errs, l.MojoFailed(ctx, ev))
	}
	return errors.Join(errs...)
}

// Register installs l into the session's listener slot.
//
// An empty slot gets l directly. A slot holding another listener is replaced by
// a chain that calls l first and then the previous listener. When l is already
// installed, alone or inside a chain, nothing changes. A chain passed as l is
// taken member by member: only members not yet installed are added, in front.
// Reports whether the slot was modified.
func Register(s *Session, l ExecutionListener) bool {
	if s == nil || l == nil {
		return false
	}
	req := s.Request()
	req.mu.Lock()
	defer req.mu.Unlock()

	cur := req.listener
	var missing []ExecutionListener
	for _, m := range members(l) {
		if !installed(cur, m) {
			missing = append(missing, m)
		}
	}
	switch {
	case len(missing) == 0:
		return false
	case cur == nil:
		req.listener = l
	default:
		req.listener = Chain(append(missing, cur)...)
	}
	return true
}

// members returns the listeners l stands for.
func members(l ExecutionListener) []ExecutionListener {
	if c, ok := l.(*ChainedListener); ok {
		return c.listeners
	}
	return []ExecutionListener{l}
}

// installed reports whether m is cur or a member of cur.
func installed(cur, m ExecutionListener) bool {
	if c, ok := cur.(*ChainedListener); ok {
		return c.Contains(m)
	}
	return sameListener(cur, m)
}

// sameListener compares listeners by identity. Non-comparable dynamic types
// are never equal.
func sameListener(a, b ExecutionListener) bool {
	if a == nil || b == nil {
		return false
	}
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb || !ta.Comparable() {
		return false
	}
	return a == b
}

var _ ExecutionListener = (*ChainedListener)(nil)
