package buildtrace

import (
	"context"
	"errors"
	"testing"
)

func TestExecuteWithoutListener(t *testing.T) {
	s := NewSession(nil)
	called := false
	err := s.Execute(context.Background(), MojoExecution{ArtifactID: "foo", Goal: "compile"}, func(context.Context) error {
		called = true
		return nil
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !called {
		t.Error("run was not invoked")
	}
	if err := s.Start(context.Background()); err != nil {
		t.Errorf("Start without listener: %v", err)
	}
	if err := s.End(context.Background()); err != nil {
		t.Errorf("End without listener: %v", err)
	}
}

func TestExecuteSuccessPassesMojoContext(t *testing.T) {
	log := &eventLog{}
	s := NewSession(nil)
	Register(s, &recordingListener{name: "a", log: log})

	err := s.Execute(context.Background(), MojoExecution{ArtifactID: "foo", Goal: "compile"}, func(ctx context.Context) error {
		if ctx.Value(ctxKey("a")) == nil {
			t.Error("run did not receive the MojoStarted context")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if got, want := log.String(), "[a:mojo_started a:mojo_succeeded+a]"; got != want {
		t.Errorf("events = %s, want %s", got, want)
	}
}

// failCapture records the error carried by MojoFailed.
type failCapture struct {
	BaseListener
	got error
}

func (f *failCapture) MojoFailed(_ context.Context, ev *ExecutionEvent) error {
	f.got = ev.Err
	return nil
}

func TestExecuteFailureReportsError(t *testing.T) {
	s := NewSession(nil)
	fc := &failCapture{}
	Register(s, fc)

	boom := errors.New("compilation failure")
	err := s.Execute(context.Background(), MojoExecution{ArtifactID: "foo", Goal: "compile"}, func(context.Context) error {
		return boom
	})
	if !errors.Is(err, boom) {
		t.Errorf("Execute error = %v, want %v", err, boom)
	}
	if !errors.Is(fc.got, boom) {
		t.Errorf("MojoFailed saw %v, want %v", fc.got, boom)
	}
	var le *LifecycleError
	if errors.As(err, &le) {
		t.Errorf("unexpected lifecycle error %v", le)
	}
}

func TestExecuteStartErrorSkipsRun(t *testing.T) {
	log := &eventLog{}
	refused := errors.New("refused")
	s := NewSession(nil)
	Register(s, &recordingListener{name: "a", log: log, err: refused})

	called := false
	err := s.Execute(context.Background(), MojoExecution{ArtifactID: "foo", Goal: "compile"}, func(context.Context) error {
		called = true
		return nil
	})
	if called {
		t.Error("run invoked after MojoStarted failed")
	}
	var le *LifecycleError
	if !errors.As(err, &le) {
		t.Fatalf("error = %v, want *LifecycleError", err)
	}
	if le.Event != EventMojoStarted || !errors.Is(err, refused) {
		t.Errorf("lifecycle error = %+v", le)
	}
}

func TestExecuteTerminalListenerErrorJoined(t *testing.T) {
	s := NewSession(nil)
	terminal := errors.New("no scope")
	Register(s, &terminalFailer{err: terminal})

	boom := errors.New("test failure")
	err := s.Execute(context.Background(), MojoExecution{ArtifactID: "surefire", Goal: "test"}, func(context.Context) error {
		return boom
	})
	if !errors.Is(err, boom) || !errors.Is(err, terminal) {
		t.Fatalf("error = %v, want both run and listener errors", err)
	}
	var le *LifecycleError
	if !errors.As(err, &le) || le.Event != EventMojoFailed || le.Mojo != ":surefire::test" {
		t.Errorf("lifecycle error = %+v", le)
	}
}

type terminalFailer struct {
	BaseListener
	err error
}

func (f *terminalFailer) MojoFailed(context.Context, *ExecutionEvent) error    { return f.err }
func (f *terminalFailer) MojoSucceeded(context.Context, *ExecutionEvent) error { return f.err }

func TestSessionStartWrapsListenerError(t *testing.T) {
	refused := errors.New("refused")
	s := NewSession(nil)
	Register(s, &recordingListener{name: "a", log: &eventLog{}, err: refused})

	err := s.Start(context.Background())
	var le *LifecycleError
	if !errors.As(err, &le) || le.Event != EventSessionStarted {
		t.Fatalf("Start error = %v, want session_started LifecycleError", err)
	}
	if !errors.Is(err, refused) {
		t.Errorf("Start error does not wrap %v", refused)
	}
}
