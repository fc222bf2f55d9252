// Package executor runs external tools with a timeout and a bounded output
// capture.
package executor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"

	"github.com/breeze-rmm/drvstore/internal/driverpkg"
	"github.com/breeze-rmm/drvstore/internal/logging"
	"github.com/breeze-rmm/drvstore/internal/textdecode"
)

var log = logging.L("executor")

const (
	// DefaultTimeout is the default execution timeout in seconds
	DefaultTimeout = 300 // 5 minutes

	// MinTimeout and MaxTimeout bound configured timeouts, in seconds.
	MinTimeout = 10
	MaxTimeout = 3600 // 1 hour

	// MaxOutputSize is the maximum size of combined stdout/stderr to capture
	MaxOutputSize = 4 * 1024 * 1024
)

// Result is the captured outcome of one run.
type Result struct {
	Output    string
	ExitCode  int
	Truncated bool
	Duration  time.Duration
}

// Runner runs an external tool. The legacy backend takes a Runner so tests
// can substitute canned output.
type Runner interface {
	Run(ctx context.Context, tool string, args ...string) (Result, error)
}

// Executor is the os/exec Runner.
type Executor struct {
	timeout   time.Duration
	maxOutput int
}

// New creates an Executor. timeoutSeconds is clamped to
// [MinTimeout, MaxTimeout]; zero or less means DefaultTimeout.
func New(timeoutSeconds int) *Executor {
	if timeoutSeconds <= 0 {
		timeoutSeconds = DefaultTimeout
	}
	timeoutSeconds = max(MinTimeout, min(timeoutSeconds, MaxTimeout))
	return &Executor{
		timeout:   time.Duration(timeoutSeconds) * time.Second,
		maxOutput: MaxOutputSize,
	}
}

// Timeout reports the effective per-run timeout.
func (e *Executor) Timeout() time.Duration { return e.timeout }

// Run executes tool and returns its decoded combined output. The Result is
// filled even when err is non-nil; err is an *driverpkg.ExternalProcessError
// for launch failures, timeouts and non-zero exits.
func (e *Executor) Run(ctx context.Context, tool string, args ...string) (Result, error) {
	start := time.Now()

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, tool, args...)

	var out bytes.Buffer
	w := &limitedWriter{buf: &out, limit: e.maxOutput}
	cmd.Stdout = w
	cmd.Stderr = w

	// Set process group so children are killed on timeout
	setProcessGroup(cmd)
	cmd.Cancel = func() error { return killProcessGroup(cmd) }
	cmd.WaitDelay = 2 * time.Second

	err := cmd.Run()

	result := Result{
		Output:    textdecode.Decode(out.Bytes()),
		Truncated: w.truncated,
		Duration:  time.Since(start),
	}

	if err == nil {
		log.Debug("tool completed", "tool", tool, "args", args, logging.KeyDurationMs, result.Duration.Milliseconds())
		return result, nil
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		result.ExitCode = -1
		if !errors.Is(ctxErr, context.DeadlineExceeded) {
			return result, &driverpkg.ExternalProcessError{Tool: tool, ExitCode: -1, Err: ctxErr}
		}
		log.Warn("tool timed out", "tool", tool, "timeout", e.timeout)
		return result, &driverpkg.ExternalProcessError{
			Tool:     tool,
			ExitCode: -1,
			Err:      fmt.Errorf("timed out after %s: %w", e.timeout, context.DeadlineExceeded),
		}
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		result.ExitCode = exitErr.ExitCode()
		log.Debug("tool exited non-zero", "tool", tool, "exitCode", result.ExitCode)
		return result, &driverpkg.ExternalProcessError{Tool: tool, ExitCode: result.ExitCode, Err: err}
	}

	result.ExitCode = -1
	log.Error("tool failed to run", "tool", tool, "error", err)
	return result, &driverpkg.ExternalProcessError{Tool: tool, ExitCode: -1, Err: err}
}

// limitedWriter wraps a buffer with a size limit
type limitedWriter struct {
	buf       *bytes.Buffer
	limit     int
	written   int
	truncated bool
}

func (w *limitedWriter) Write(p []byte) (n int, err error) {
	if w.written >= w.limit {
		w.truncated = w.truncated || len(p) > 0
		// Discard additional data but don't error
		return len(p), nil
	}

	chunk := p
	if remaining := w.limit - w.written; len(chunk) > remaining {
		chunk = chunk[:remaining]
		w.truncated = true
	}

	n, err = w.buf.Write(chunk)
	w.written += n
	return len(p), err // Return original length to avoid short write errors
}
