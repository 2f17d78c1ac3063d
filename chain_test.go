package buildtrace

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
)

// ---------------------------------------------------------------------------
// Mock listeners
// ---------------------------------------------------------------------------

type ctxKey string

// recordingListener appends "<name>:<event>" to a shared log for every callback.
type recordingListener struct {
	name string
	log  *eventLog
	err  error // returned from every callback when set
}

type eventLog struct {
	mu      sync.Mutex
	entries []string
}

func (l *eventLog) add(s string) {
	l.mu.Lock()
	l.entries = append(l.entries, s)
	l.mu.Unlock()
}

func (l *eventLog) String() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return fmt.Sprint(l.entries)
}

func (r *recordingListener) SessionStarted(_ context.Context, ev *ExecutionEvent) error {
	r.log.add(r.name + ":" + string(ev.Type))
	return r.err
}

func (r *recordingListener) SessionEnded(_ context.Context, ev *ExecutionEvent) error {
	r.log.add(r.name + ":" + string(ev.Type))
	return r.err
}

func (r *recordingListener) MojoStarted(ctx context.Context, ev *ExecutionEvent) (context.Context, error) {
	r.log.add(r.name + ":" + string(ev.Type))
	if r.err != nil {
		return nil, r.err
	}
	return context.WithValue(ctx, ctxKey(r.name), true), nil
}

func (r *recordingListener) MojoSucceeded(ctx context.Context, ev *ExecutionEvent) error {
	r.log.add(r.name + ":" + string(ev.Type) + seen(ctx))
	return r.err
}

func (r *recordingListener) MojoFailed(ctx context.Context, ev *ExecutionEvent) error {
	r.log.add(r.name + ":" + string(ev.Type) + seen(ctx))
	return r.err
}

// seen lists which listeners marked ctx in MojoStarted.
func seen(ctx context.Context) string {
	out := ""
	for _, n := range []string{"a", "b", "c"} {
		if ctx.Value(ctxKey(n)) != nil {
			out += "+" + n
		}
	}
	return out
}

// funcListener is not comparable; identity checks must not panic on it.
type funcListener struct {
	BaseListener
	fns []func()
}

// ---------------------------------------------------------------------------
// Register
// ---------------------------------------------------------------------------

func TestRegisterEmptySlot(t *testing.T) {
	s := NewSession(nil)
	l := &recordingListener{name: "a", log: &eventLog{}}

	if !Register(s, l) {
		t.Fatal("Register on empty slot returned false")
	}
	if got := s.Request().ExecutionListener(); got != ExecutionListener(l) {
		t.Errorf("slot = %T, want the registered listener itself", got)
	}
}

func TestRegisterTwiceIsNoop(t *testing.T) {
	s := NewSession(nil)
	l := &recordingListener{name: "a", log: &eventLog{}}

	Register(s, l)
	if Register(s, l) {
		t.Error("second Register modified the slot")
	}
	if got := s.Request().ExecutionListener(); got != ExecutionListener(l) {
		t.Errorf("slot = %T, want the listener unchanged", got)
	}
}

func TestRegisterChainsExisting(t *testing.T) {
	log := &eventLog{}
	prev := &recordingListener{name: "b", log: log}
	ours := &recordingListener{name: "a", log: log}
	s := NewSession(nil)
	s.Request().SetExecutionListener(prev)

	if !Register(s, ours) {
		t.Fatal("Register returned false")
	}
	chain, ok := s.Request().ExecutionListener().(*ChainedListener)
	if !ok {
		t.Fatalf("slot = %T, want *ChainedListener", s.Request().ExecutionListener())
	}
	members := chain.Listeners()
	if len(members) != 2 || members[0] != ExecutionListener(ours) || members[1] != ExecutionListener(prev) {
		t.Fatalf("chain members = %v, want [ours prev]", members)
	}

	// Registering again must not add a second copy.
	if Register(s, ours) {
		t.Error("Register of a chain member modified the slot")
	}
	if n := len(s.Request().ExecutionListener().(*ChainedListener).Listeners()); n != 2 {
		t.Errorf("chain size = %d, want 2", n)
	}

	ctx := context.Background()
	if err := s.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := s.End(ctx); err != nil {
		t.Fatalf("End: %v", err)
	}
	want := "[a:session_started b:session_started a:session_ended b:session_ended]"
	if got := log.String(); got != want {
		t.Errorf("events = %s, want %s", got, want)
	}
}

func TestRegisterNewListenerOntoChain(t *testing.T) {
	log := &eventLog{}
	a := &recordingListener{name: "a", log: log}
	b := &recordingListener{name: "b", log: log}
	c := &recordingListener{name: "c", log: log}
	s := NewSession(nil)
	s.Request().SetExecutionListener(Chain(b, c))

	if !Register(s, a) {
		t.Fatal("Register returned false")
	}
	members := s.Request().ExecutionListener().(*ChainedListener).Listeners()
	if len(members) != 3 || members[0] != ExecutionListener(a) {
		t.Errorf("chain members = %v, want a first of 3", members)
	}
}

func TestRegisterEquivalentChainIsNoop(t *testing.T) {
	log := &eventLog{}
	a := &recordingListener{name: "a", log: log}
	b := &recordingListener{name: "b", log: log}
	s := NewSession(nil)
	slot := Chain(b, a)
	s.Request().SetExecutionListener(slot)

	if Register(s, Chain(a)) {
		t.Error("Register of a chain with only installed members modified the slot")
	}
	if Register(s, Chain(a, b)) {
		t.Error("Register of a reordered equivalent chain modified the slot")
	}
	if got := s.Request().ExecutionListener(); got != ExecutionListener(slot) {
		t.Fatalf("slot replaced by %v", got)
	}
	members := slot.Listeners()
	if members[0] != ExecutionListener(b) || members[1] != ExecutionListener(a) {
		t.Errorf("chain members = %v, want [b a]", members)
	}
}

func TestRegisterChainAddsOnlyMissingMembers(t *testing.T) {
	log := &eventLog{}
	a := &recordingListener{name: "a", log: log}
	b := &recordingListener{name: "b", log: log}
	c := &recordingListener{name: "c", log: log}
	s := NewSession(nil)
	s.Request().SetExecutionListener(Chain(b, a))

	if !Register(s, Chain(c, a)) {
		t.Fatal("Register returned false with a new member")
	}
	members := s.Request().ExecutionListener().(*ChainedListener).Listeners()
	want := []ExecutionListener{c, b, a}
	if len(members) != len(want) {
		t.Fatalf("chain members = %v, want [c b a]", members)
	}
	for i := range want {
		if members[i] != want[i] {
			t.Errorf("member %d = %v, want %v", i, members[i], want[i])
		}
	}
}

func TestRegisterChainOnEmptySlot(t *testing.T) {
	a := &recordingListener{name: "a", log: &eventLog{}}
	s := NewSession(nil)

	if Register(s, Chain()) {
		t.Error("Register of an empty chain modified the slot")
	}
	c := Chain(a)
	if !Register(s, c) {
		t.Fatal("Register returned false on an empty slot")
	}
	if Register(s, a) {
		t.Error("Register of a member of the installed chain modified the slot")
	}
	if got := s.Request().ExecutionListener(); got != ExecutionListener(c) {
		t.Errorf("slot = %v, want the registered chain", got)
	}
}

func TestRegisterNil(t *testing.T) {
	if Register(nil, &recordingListener{}) {
		t.Error("Register(nil session) returned true")
	}
	if Register(NewSession(nil), nil) {
		t.Error("Register(nil listener) returned true")
	}
}

func TestRegisterNonComparableListener(t *testing.T) {
	s := NewSession(nil)
	l := funcListener{fns: []func(){func() {}}}
	s.Request().SetExecutionListener(l)

	// Must not panic, and a non-comparable value is never "already registered".
	if !Register(s, l) {
		t.Error("Register returned false for a non-comparable listener")
	}
}

// ---------------------------------------------------------------------------
// ChainedListener
// ---------------------------------------------------------------------------

func TestChainFlattensAndDedupes(t *testing.T) {
	log := &eventLog{}
	a := &recordingListener{name: "a", log: log}
	b := &recordingListener{name: "b", log: log}

	c := Chain(a, nil, Chain(b, a), b)
	if n := len(c.Listeners()); n != 2 {
		t.Fatalf("members = %d, want 2", n)
	}
	if !c.Contains(a) || !c.Contains(b) {
		t.Error("Contains should report both members")
	}
	if c.Contains(&recordingListener{name: "a", log: log}) {
		t.Error("Contains matched a different instance")
	}
}

func TestChainThreadsMojoContext(t *testing.T) {
	log := &eventLog{}
	a := &recordingListener{name: "a", log: log}
	b := &recordingListener{name: "b", log: log}
	c := Chain(a, b)

	m := MojoExecution{ArtifactID: "foo", Goal: "compile"}
	ev := &ExecutionEvent{Type: EventMojoStarted, Mojo: &m}
	ctx, err := c.MojoStarted(context.Background(), ev)
	if err != nil {
		t.Fatalf("MojoStarted: %v", err)
	}
	ev.Type = EventMojoSucceeded
	if err := c.MojoSucceeded(ctx, ev); err != nil {
		t.Fatalf("MojoSucceeded: %v", err)
	}

	want := "[a:mojo_started b:mojo_started a:mojo_succeeded+a+b b:mojo_succeeded+a+b]"
	if got := log.String(); got != want {
		t.Errorf("events = %s, want %s", got, want)
	}
}

func TestChainDeliversAfterError(t *testing.T) {
	log := &eventLog{}
	errA := errors.New("a broke")
	a := &recordingListener{name: "a", log: log, err: errA}
	b := &recordingListener{name: "b", log: log}
	c := Chain(a, b)

	err := c.SessionStarted(context.Background(), &ExecutionEvent{Type: EventSessionStarted})
	if !errors.Is(err, errA) {
		t.Errorf("error = %v, want %v", err, errA)
	}
	if got, want := log.String(), "[a:session_started b:session_started]"; got != want {
		t.Errorf("events = %s, want %s", got, want)
	}

	// A failing MojoStarted does not poison the context for later members.
	ctx, err := c.MojoStarted(context.Background(), &ExecutionEvent{Type: EventMojoStarted})
	if !errors.Is(err, errA) {
		t.Errorf("MojoStarted error = %v, want %v", err, errA)
	}
	if ctx == nil || ctx.Value(ctxKey("b")) == nil {
		t.Error("context from b lost after a failed")
	}
}
