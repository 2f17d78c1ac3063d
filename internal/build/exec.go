package build

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"sync"

	"github.com/nevindra/buildtrace/internal/plan"
)

// ShellExec returns a StepFunc that runs step.Run through shell -c. Output is
// logged line by line with ctx, so a trace-aware handler correlates it with
// the active mojo span. Steps without a command succeed immediately.
func ShellExec(shell string, logger *slog.Logger) StepFunc {
	if shell == "" {
		shell = "sh"
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return func(ctx context.Context, project string, step plan.Step) error {
		if step.Run == "" {
			return nil
		}
		l := logger.With("project", project, "goal", step.ArtifactID+":"+step.Goal)

		cmd := exec.CommandContext(ctx, shell, "-c", step.Run)
		stdout := &lineWriter{ctx: ctx, logger: l, level: slog.LevelInfo}
		stderr := &lineWriter{ctx: ctx, logger: l, level: slog.LevelWarn}
		cmd.Stdout = stdout
		cmd.Stderr = stderr

		err := cmd.Run()
		stdout.flush()
		stderr.flush()
		if err != nil {
			return fmt.Errorf("run %q: %w", step.Run, err)
		}
		return nil
	}
}

// lineWriter logs complete lines as they arrive.
type lineWriter struct {
	ctx    context.Context
	logger *slog.Logger
	level  slog.Level

	mu  sync.Mutex
	buf []byte
}

func (w *lineWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.buf = append(w.buf, p...)
	for {
		i := bytes.IndexByte(w.buf, '\n')
		if i < 0 {
			break
		}
		w.emit(w.buf[:i])
		w.buf = w.buf[i+1:]
	}
	return len(p), nil
}

func (w *lineWriter) flush() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.buf) > 0 {
		w.emit(w.buf)
		w.buf = nil
	}
}

func (w *lineWriter) emit(line []byte) {
	line = bytes.TrimRight(line, "\r")
	w.logger.Log(w.ctx, w.level, string(line))
}
