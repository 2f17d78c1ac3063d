package observer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	otellog "go.opentelemetry.io/otel/log"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/nevindra/buildtrace"
)

// DefaultTracerName is the instrumentation scope of mojo spans.
const DefaultTracerName = "github.com/nevindra/buildtrace"

var nopLogger = slog.New(slog.DiscardHandler)

// ListenerOption configures a TracingListener.
type ListenerOption func(*TracingListener)

// WithConfig replaces the autoconfiguration input (default: ConfigFromEnv()).
func WithConfig(cfg Config) ListenerOption {
	return func(l *TracingListener) { l.cfg = cfg }
}

// WithLogger sets the structured logger for lifecycle events. If not set, a
// no-op logger is used.
func WithLogger(lg *slog.Logger) ListenerOption {
	return func(l *TracingListener) { l.logger = lg }
}

// WithInitOptions passes extra options to Init at session start.
func WithInitOptions(opts ...InitOption) ListenerOption {
	return func(l *TracingListener) { l.initOpts = append(l.initOpts, opts...) }
}

// WithTracerName sets the instrumentation scope name for mojo spans.
func WithTracerName(name string) ListenerOption {
	return func(l *TracingListener) { l.tracerName = name }
}

// TracingListener turns a build session into OTEL telemetry. The SDK lives
// from SessionStarted to SessionEnded; each mojo between them becomes a span.
//
// Safe for concurrent use: the host may run mojos on several goroutines.
type TracingListener struct {
	runtime    buildtrace.RuntimeInformation
	cfg        Config
	logger     *slog.Logger
	initOpts   []InitOption
	tracerName string

	mu           sync.Mutex
	sdk          *SDK
	inst         *Instruments
	sessionID    string
	sessionStart time.Time
	open         map[*Scope]*buildtrace.MojoExecution
}

// NewTracingListener returns a listener that describes the host through rt.
func NewTracingListener(rt buildtrace.RuntimeInformation, opts ...ListenerOption) *TracingListener {
	l := &TracingListener{
		runtime:    rt,
		cfg:        ConfigFromEnv(),
		tracerName: DefaultTracerName,
		open:       make(map[*Scope]*buildtrace.MojoExecution),
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.logger == nil {
		l.logger = nopLogger
	}
	return l
}

// Install registers l on the session. See buildtrace.Register.
func (l *TracingListener) Install(s *buildtrace.Session) bool {
	if s == nil {
		return false
	}
	if !buildtrace.Register(s, l) {
		l.logger.Debug("observer: tracing listener already registered, skip", "session", s.ID)
		return false
	}
	l.logger.Debug("observer: tracing listener registered", "session", s.ID)
	return true
}

// SDK returns the SDK of the active session, or nil.
func (l *TracingListener) SDK() *SDK {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.sdk
}

// SessionStarted builds the SDK. Fails when a session is already active or
// when the SDK cannot be built, e.g. because the host version is unavailable.
func (l *TracingListener) SessionStarted(ctx context.Context, ev *buildtrace.ExecutionEvent) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.sdk != nil {
		return buildtrace.ErrSessionActive
	}

	opts := make([]InitOption, 0, len(l.initOpts)+1)
	opts = append(opts, WithResourceProvider(BuildToolResourceProvider{Runtime: l.runtime}))
	opts = append(opts, l.initOpts...)
	sdk, err := Init(ctx, l.cfg, opts...)
	if err != nil {
		l.logger.Error("observer: sdk init failed", "error", err)
		return fmt.Errorf("observer: init sdk: %w", err)
	}
	inst, err := newInstruments(sdk, l.tracerName)
	if err != nil {
		return errors.Join(fmt.Errorf("observer: instruments: %w", err), sdk.Shutdown(ctx))
	}

	l.sdk, l.inst = sdk, inst
	l.sessionStart = time.Now()
	l.sessionID = ""
	if ev != nil && ev.Session != nil {
		l.sessionID = ev.Session.ID
	}
	l.logger.Info("observer: session started", "session", l.sessionID)
	return nil
}

// SessionEnded ends mojo spans that never reached a terminal event, then
// flushes and shuts down the SDK. No spans are created afterwards.
func (l *TracingListener) SessionEnded(ctx context.Context, _ *buildtrace.ExecutionEvent) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.sdk == nil {
		return buildtrace.ErrSessionNotStarted
	}

	for sc, mojo := range l.open {
		span := sc.Span()
		span.SetStatus(codes.Error, "mojo did not complete")
		span.SetAttributes(
			AttrMojoStatus.String(StatusIncomplete),
			AttrCICDTaskRunResult.String(cicdResult(StatusIncomplete)),
		)
		elapsed := sc.Elapsed()
		_ = sc.Close()
		l.record(ctx, mojo, StatusIncomplete, elapsed)
		delete(l.open, sc)
		l.logger.Warn("observer: mojo did not complete before session end", "mojo", mojo.String())
	}

	l.inst.SessionDuration.Record(ctx, float64(time.Since(l.sessionStart))/float64(time.Millisecond))

	err := l.sdk.Shutdown(ctx)
	l.sdk, l.inst = nil, nil
	l.logger.Info("observer: session ended", "session", l.sessionID)
	if err != nil {
		return fmt.Errorf("observer: shutdown sdk: %w", err)
	}
	return nil
}

// MojoStarted opens a span named "<artifactId>:<goal>" as a child of ctx and
// returns a context carrying it and its Scope.
func (l *TracingListener) MojoStarted(ctx context.Context, ev *buildtrace.ExecutionEvent) (context.Context, error) {
	if ev == nil || ev.Mojo == nil {
		return ctx, errors.New("observer: mojo event without mojo execution")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.inst == nil {
		return ctx, fmt.Errorf("%w: %s", buildtrace.ErrSessionNotStarted, ev.Mojo)
	}

	name := SpanName(*ev.Mojo)
	attrs := mojoAttrs(ev.Mojo)
	if l.sessionID != "" {
		attrs = append(attrs, AttrSessionID.String(l.sessionID))
	}
	_, span := l.inst.Tracer.Start(ctx, name,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attrs...),
	)
	sc := newScope(l, span, name)
	mojo := *ev.Mojo
	l.open[sc] = &mojo
	return ContextWithScope(ctx, sc), nil
}

// MojoSucceeded ends the span opened by MojoStarted.
func (l *TracingListener) MojoSucceeded(ctx context.Context, ev *buildtrace.ExecutionEvent) error {
	return l.endMojo(ctx, ev, nil)
}

// MojoFailed records ev.Err on the span and ends it.
func (l *TracingListener) MojoFailed(ctx context.Context, ev *buildtrace.ExecutionEvent) error {
	cause := errors.New("mojo failed")
	if ev != nil && ev.Err != nil {
		cause = ev.Err
	}
	return l.endMojo(ctx, ev, cause)
}

func (l *TracingListener) endMojo(ctx context.Context, ev *buildtrace.ExecutionEvent, cause error) error {
	sc, ok := l.ScopeFromContext(ctx)
	if !ok {
		return fmt.Errorf("%w: %s", buildtrace.ErrNoActiveScope, mojoLabel(ev))
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	mojo, open := l.open[sc]
	if !open {
		return fmt.Errorf("%w: %s", buildtrace.ErrScopeClosed, sc.Name())
	}
	delete(l.open, sc)

	status := StatusSuccess
	span := sc.Span()
	if cause != nil {
		status = StatusFailure
		span.RecordError(cause)
		span.SetStatus(codes.Error, cause.Error())
	}
	span.SetAttributes(
		AttrMojoStatus.String(status),
		AttrCICDTaskRunResult.String(cicdResult(status)),
	)
	elapsed := sc.Elapsed()
	if err := sc.Close(); err != nil {
		return err
	}
	l.record(ctx, mojo, status, elapsed)
	return nil
}

// record emits metrics and a log record for a finished mojo. Callers hold l.mu.
func (l *TracingListener) record(ctx context.Context, mojo *buildtrace.MojoExecution, status string, elapsed time.Duration) {
	durationMs := float64(elapsed) / float64(time.Millisecond)

	l.inst.MojoExecutions.Add(ctx, 1, metric.WithAttributes(
		AttrMojoArtifactID.String(mojo.ArtifactID),
		AttrMojoGoal.String(mojo.Goal),
		attribute.String("status", status),
	))
	l.inst.MojoDuration.Record(ctx, durationMs, metric.WithAttributes(
		AttrMojoArtifactID.String(mojo.ArtifactID),
		AttrMojoGoal.String(mojo.Goal),
	))

	// Structured log
	var rec otellog.Record
	rec.SetTimestamp(time.Now())
	rec.SetSeverity(otellog.SeverityInfo)
	if status != StatusSuccess {
		rec.SetSeverity(otellog.SeverityError)
	}
	rec.SetBody(otellog.StringValue("mojo executed"))
	rec.AddAttributes(
		otellog.String("build.mojo.artifact_id", mojo.ArtifactID),
		otellog.String("build.mojo.goal", mojo.Goal),
		otellog.String("build.mojo.status", status),
		otellog.Float64("build.mojo.duration_ms", durationMs),
	)
	l.inst.Logger.Emit(ctx, rec)

	l.logger.Debug("observer: mojo span ended", "mojo", mojo.String(), "status", status, "duration", elapsed)
}

// SpanName returns "<artifactId>:<goal>".
func SpanName(m buildtrace.MojoExecution) string {
	return m.ArtifactID + ":" + m.Goal
}

func mojoAttrs(m *buildtrace.MojoExecution) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		AttrMojoArtifactID.String(m.ArtifactID),
		AttrMojoGoal.String(m.Goal),
		AttrCICDTaskName.String(SpanName(*m)),
	}
	optional := []struct {
		key attribute.Key
		val string
	}{
		{AttrMojoGroupID, m.GroupID},
		{AttrMojoVersion, m.Version},
		{AttrMojoExecutionID, m.ExecutionID},
		{AttrMojoPhase, m.Phase},
		{AttrProject, m.Project},
	}
	for _, o := range optional {
		if o.val != "" {
			attrs = append(attrs, o.key.String(o.val))
		}
	}
	return attrs
}

// cicdResult maps a mojo status onto cicd.pipeline.task.run.result values.
func cicdResult(status string) string {
	switch status {
	case StatusSuccess:
		return "success"
	case StatusFailure:
		return "failure"
	default:
		return "cancellation"
	}
}

func mojoLabel(ev *buildtrace.ExecutionEvent) string {
	if ev == nil || ev.Mojo == nil {
		return "<unknown mojo>"
	}
	return ev.Mojo.String()
}

var _ buildtrace.ExecutionListener = (*TracingListener)(nil)
