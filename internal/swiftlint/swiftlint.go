// Package swiftlint runs the external swiftlint binary.
package swiftlint

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"
)

// DefaultName is the executable looked up on PATH.
const DefaultName = "swiftlint"

// waitDelay bounds how long a killed invocation may hold its output pipes.
const waitDelay = 2 * time.Second

var (
	// ErrBinaryNotFound is returned when swiftlint cannot be located.
	ErrBinaryNotFound = errors.New("swiftlint binary not found")
	// ErrTimeout is returned when an invocation exceeds Binary.Timeout.
	ErrTimeout = errors.New("swiftlint timed out")
	// ErrInvocation is wrapped by InvocationError.
	ErrInvocation = errors.New("swiftlint invocation failed")
)

// InvocationError reports a swiftlint run that did not complete: it wrote to
// its error stream or was terminated by a signal. Lint findings arrive on
// standard output, so either means the output cannot be trusted.
type InvocationError struct {
	Args   []string
	Stderr string

	// Status is the process state of a run killed by a signal.
	Status string
}

func (e *InvocationError) Error() string {
	msg := strings.TrimSpace(e.Stderr)
	if msg == "" {
		msg = e.Status
	}
	return fmt.Sprintf("swiftlint %s: %s", strings.Join(e.Args, " "), msg)
}

func (e *InvocationError) Unwrap() error { return ErrInvocation }

// Binary is a located swiftlint executable.
type Binary struct {
	Path string

	// Dir is the working directory for every invocation. It should not
	// contain a .swiftlint.yml so that only the generated configuration
	// applies. Defaults to os.TempDir().
	Dir string

	// Timeout bounds each invocation. Zero means no limit.
	Timeout time.Duration

	Logger *slog.Logger
}

// Locate resolves name (a bare command or a path) to a Binary.
func Locate(name string) (*Binary, error) {
	if name == "" {
		name = DefaultName
	}
	path, err := exec.LookPath(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrBinaryNotFound, name, err)
	}
	return &Binary{Path: path}, nil
}

// Rules returns the output of `swiftlint rules`.
func (b *Binary) Rules(ctx context.Context) (string, error) {
	return b.run(ctx, "rules")
}

// Lint runs `swiftlint lint` on target using the configuration at
// configPath and returns the diagnostics printed on standard output.
func (b *Binary) Lint(ctx context.Context, configPath, target string) (string, error) {
	return b.run(ctx, "lint", "--config", configPath, "--quiet", target)
}

func (b *Binary) run(ctx context.Context, args ...string) (string, error) {
	if b.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.Timeout)
		defer cancel()
	}

	dir := b.Dir
	if dir == "" {
		dir = os.TempDir()
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, b.Path, args...)
	cmd.Dir = dir
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = waitDelay

	logger := b.Logger
	if logger == nil {
		logger = slog.Default()
	}
	start := time.Now()
	logger.Debug("running swiftlint", "path", b.Path, "args", args, "dir", dir)

	err := cmd.Run()

	logger.Debug("swiftlint finished", "args", args, "elapsed", time.Since(start),
		"stdout_bytes", stdout.Len(), "stderr_bytes", stderr.Len())

	if ctxErr := ctx.Err(); ctxErr != nil {
		if errors.Is(ctxErr, context.DeadlineExceeded) {
			return "", fmt.Errorf("%w after %s: swiftlint %s", ErrTimeout, b.Timeout, strings.Join(args, " "))
		}
		return "", fmt.Errorf("swiftlint %s: %w", strings.Join(args, " "), ctxErr)
	}
	if stderr.Len() > 0 {
		return "", &InvocationError{Args: args, Stderr: stderr.String()}
	}
	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return "", fmt.Errorf("running swiftlint %s: %w", strings.Join(args, " "), err)
		}
		// swiftlint exits non-zero when it finds error-level violations;
		// that is an ordinary lint result unless a signal ended the run.
		if !exitErr.Exited() {
			return "", &InvocationError{Args: args, Status: exitErr.ProcessState.String()}
		}
	}

	return stdout.String(), nil
}
