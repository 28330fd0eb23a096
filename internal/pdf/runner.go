package pdf

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"github.com/joseph-ayodele/studydeck/internal/common"
)

// maxStderr bounds the stderr excerpt kept on a CommandError.
const maxStderr = 512

// Runner executes an external extraction tool and returns its stdout.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// CommandError is a tool that ran and exited unsuccessfully.
type CommandError struct {
	Name   string
	Stderr string
	Err    error
}

func (e *CommandError) Error() string {
	if e.Stderr == "" {
		return fmt.Sprintf("%s: %v", e.Name, e.Err)
	}
	return fmt.Sprintf("%s: %v: %s", e.Name, e.Err, e.Stderr)
}

func (e *CommandError) Unwrap() error { return e.Err }

type execRunner struct {
	logger *slog.Logger
}

// Run returns a configuration error for a missing binary, a wrapped ctx.Err() when ctx ended
// first, and a *CommandError for any other non-zero exit.
func (r execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	start := time.Now()
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.WaitDelay = 2 * time.Second
	var out, errb bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errb

	err := cmd.Run()
	log := r.logger.With("cmd", name, "elapsed_ms", time.Since(start).Milliseconds())
	switch {
	case err == nil:
		log.Debug("pdf.exec.ok", "args", strings.Join(args, " "), "stdout_bytes", out.Len())
		return out.Bytes(), nil
	case errors.Is(err, exec.ErrNotFound):
		log.Error("pdf.exec.missing", "error", err)
		return nil, common.ConfigurationError(fmt.Sprintf("%s is not installed or not on PATH", name), err)
	case ctx.Err() != nil:
		log.Warn("pdf.exec.interrupted", "error", ctx.Err())
		return nil, fmt.Errorf("%s: %w", name, ctx.Err())
	default:
		stderr := truncate(strings.TrimSpace(errb.String()), maxStderr)
		log.Error("pdf.exec.failed", "error", err, "stderr", stderr)
		return nil, &CommandError{Name: name, Stderr: stderr, Err: err}
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "...(truncated)"
}
