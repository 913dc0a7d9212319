// Package probe runs external media tools and parses what they print.
//
// Every invocation goes through a Runner, which applies a fail-safe timeout
// when the caller's context carries no deadline and kills the process when
// it expires. The tools are ffmpeg (stream identification and frame
// extraction), dcraw (camera raw dimensions and embedded previews) and
// mplayer (DVD title identification).
package probe

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/simonhull/mediaprobe/internal/logger"
	"github.com/simonhull/mediaprobe/internal/metrics"
)

var log = logger.Get("Probe")

var (
	// ErrTimeout is returned when a process is killed by the fail-safe timeout.
	ErrTimeout = errors.New("process timed out")

	// ErrNotFound is returned when the executable cannot be located.
	ErrNotFound = errors.New("executable not found")
)

const (
	DefaultProbeTimeout     = 10 * time.Second
	DefaultThumbnailTimeout = 3 * time.Second

	// waitDelay bounds how long Wait blocks on output pipes held open by
	// children of a killed process.
	waitDelay = 500 * time.Millisecond
)

// Runner executes external commands.
type Runner struct {
	// Timeout applies when the context passed to Run has no deadline.
	// Zero means DefaultProbeTimeout.
	Timeout time.Duration
}

// Result is the captured output of a finished process.
type Result struct {
	Stdout []byte
	Stderr []byte

	// ExitErr is the error returned by the process, usually an *exec.ExitError.
	// Tools such as ffmpeg exit non-zero after printing what was asked for,
	// so callers decide whether it matters.
	ExitErr error
}

// Lines returns the lines of both output streams, stdout first.
func (r *Result) Lines() []string {
	var lines []string
	for _, out := range [][]byte{r.Stdout, r.Stderr} {
		for _, line := range strings.Split(string(out), "\n") {
			lines = append(lines, strings.TrimRight(line, "\r"))
		}
	}
	return lines
}

// Run starts name with args, feeding stdin when it is not nil, and waits for
// it to finish. Failing to start and being killed by the timeout are errors;
// a non-zero exit is reported in Result.ExitErr.
func (r Runner) Run(ctx context.Context, name string, stdin io.Reader, args ...string) (*Result, error) {
	tool := filepath.Base(name)
	bin, err := exec.LookPath(name)
	if err != nil {
		metrics.BackendFailuresTotal.WithLabelValues(tool, "not_found").Inc()
		return nil, fmt.Errorf("%s: %w", name, ErrNotFound)
	}

	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		timeout := r.Timeout
		if timeout <= 0 {
			timeout = DefaultProbeTimeout
		}
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Stdin = stdin
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = waitDelay

	log.Emit(logger.VERBOSE, "Running %s %s\n", tool, strings.Join(args, " "))
	start := time.Now()
	runErr := cmd.Run()

	if ctxErr := ctx.Err(); ctxErr != nil {
		if errors.Is(ctxErr, context.DeadlineExceeded) {
			metrics.SubprocessTimeoutsTotal.WithLabelValues(tool).Inc()
			log.Emit(logger.WARNING, "%s killed after %s\n", tool, time.Since(start).Round(time.Millisecond))
			return nil, fmt.Errorf("%s: %w", tool, ErrTimeout)
		}
		return nil, fmt.Errorf("%s: %w", tool, ctxErr)
	}

	var exitErr *exec.ExitError
	if runErr != nil && !errors.As(runErr, &exitErr) {
		return nil, fmt.Errorf("failed to run %s: %w", tool, runErr)
	}

	return &Result{Stdout: stdout.Bytes(), Stderr: stderr.Bytes(), ExitErr: runErr}, nil
}
