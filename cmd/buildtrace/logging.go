package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/nevindra/buildtrace/internal/config"
	"github.com/nevindra/buildtrace/observer"
)

const scopeName = "github.com/nevindra/buildtrace/cmd/buildtrace"

func newConsoleHandler(w io.Writer, c config.LogConfig) (slog.Handler, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Level)); err != nil {
		return nil, fmt.Errorf("log level %q: %w", c.Level, err)
	}
	opts := &slog.HandlerOptions{Level: level}
	switch strings.ToLower(c.Format) {
	case "", "text":
		return slog.NewTextHandler(w, opts), nil
	case "json":
		return slog.NewJSONHandler(w, opts), nil
	default:
		return nil, fmt.Errorf("log format %q: want text or json", c.Format)
	}
}

// newLogger writes to console and, when tracing has an active SDK, also to
// the SDK's log pipeline.
func newLogger(console slog.Handler, tracing *observer.TracingListener) *slog.Logger {
	if tracing == nil {
		return slog.New(console)
	}
	return slog.New(&teeHandler{console: console, tracing: tracing})
}

// teeHandler resolves the OTel handler per record since the SDK only exists
// between SessionStarted and SessionEnded. derive replays WithAttrs and
// WithGroup calls onto it in order.
type teeHandler struct {
	console slog.Handler
	tracing *observer.TracingListener
	derive  []func(slog.Handler) slog.Handler
}

func (h *teeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.console.Enabled(ctx, level) || h.tracing.SDK() != nil
}

func (h *teeHandler) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	if h.console.Enabled(ctx, r.Level) {
		errs = append(errs, h.console.Handle(ctx, r.Clone()))
	}
	if sdk := h.tracing.SDK(); sdk != nil {
		otel := sdk.Slog(scopeName).Handler()
		for _, d := range h.derive {
			otel = d(otel)
		}
		if otel.Enabled(ctx, r.Level) {
			errs = append(errs, otel.Handle(ctx, r.Clone()))
		}
	}
	return errors.Join(errs...)
}

func (h *teeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return h.with(func(s slog.Handler) slog.Handler { return s.WithAttrs(attrs) })
}

func (h *teeHandler) WithGroup(name string) slog.Handler {
	return h.with(func(s slog.Handler) slog.Handler { return s.WithGroup(name) })
}

func (h *teeHandler) with(d func(slog.Handler) slog.Handler) *teeHandler {
	return &teeHandler{
		console: d(h.console),
		tracing: h.tracing,
		derive:  append(append([]func(slog.Handler) slog.Handler(nil), h.derive...), d),
	}
}
