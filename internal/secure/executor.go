package secure

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"time"
)

// DefaultExecTimeout bounds an invocation when the caller does not supply
// its own timeout.
const DefaultExecTimeout = 300 * time.Second

// ErrTimedOut is the deterministic error returned when an invocation
// exceeds its timeout.
var ErrTimedOut = errors.New("tool timed out")

// timeNow is a package-level clock to enable deterministic tests.
var timeNow = time.Now

// ExecResult captures the outcome of one process invocation. A non-zero
// ExitCode is not an error at this layer; interpreting it is the caller's
// responsibility.
type ExecResult struct {
	ExitCode        int
	Stdout          string
	Stderr          string
	Elapsed         time.Duration
	StdoutTruncated bool
	StderrTruncated bool
}

// Executor spawns external processes without a shell. Every argument
// vector passes ValidateCommandArgs before a process is created, output is
// captured through bounded buffers, and a hard timeout always applies.
type Executor struct {
	// DefaultTimeout applies when Execute is called with timeout <= 0.
	// Zero selects DefaultExecTimeout.
	DefaultTimeout time.Duration
	// MaxArgs caps the argument vector length; zero selects DefaultMaxArgs.
	MaxArgs int
	// MaxOutputKB caps captured stdout and stderr each; zero selects 64 KiB.
	MaxOutputKB int
	// Logger receives per-invocation records; nil selects slog.Default().
	Logger *slog.Logger
}

func (e *Executor) logger() *slog.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return slog.Default()
}

// Execute runs argv[0] with argv[1:] as arguments in dir (empty means the
// current directory) under a minimal environment extended with extraEnv
// ("KEY=value" entries). It returns a SecurityError when pre-flight
// validation fails, ErrTimedOut when the timeout elapses, and an OS error
// when the process cannot be started. A process that runs to completion
// yields a nil error regardless of its exit code.
func (e *Executor) Execute(ctx context.Context, argv []string, dir string, extraEnv []string, timeout time.Duration) (ExecResult, error) {
	var res ExecResult
	if len(argv) == 0 {
		return res, securityErr("args", "", "empty command")
	}
	if err := ValidateCommandArgs(argv, e.MaxArgs); err != nil {
		return res, err
	}

	if timeout <= 0 {
		timeout = e.DefaultTimeout
	}
	if timeout <= 0 {
		timeout = DefaultExecTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := timeNow()
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = dir
	cmd.Env = minimalEnv(extraEnv)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return res, fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return res, fmt.Errorf("stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return res, fmt.Errorf("start %s: %w", argv[0], err)
	}

	outBuf := NewBoundedBuffer(e.MaxOutputKB)
	errBuf := NewBoundedBuffer(e.MaxOutputKB)
	outDone := make(chan struct{})
	errDone := make(chan struct{})
	go func() { defer close(outDone); drainBounded(outBuf, stdout) }()
	go func() { defer close(errDone); drainBounded(errBuf, stderr) }()

	waitErr := cmd.Wait()
	<-outDone
	<-errDone

	res.Stdout = outBuf.String()
	res.Stderr = errBuf.String()
	res.StdoutTruncated = outBuf.Truncated()
	res.StderrTruncated = errBuf.Truncated()
	res.Elapsed = time.Since(start)

	if ctx.Err() == context.DeadlineExceeded {
		res.ExitCode = -1
		e.logger().Warn("external tool timed out",
			"binary", argv[0], "timeout", timeout, "elapsed", res.Elapsed)
		return res, ErrTimedOut
	}
	if waitErr != nil {
		var ee *exec.ExitError
		if errors.As(waitErr, &ee) && ee.ProcessState != nil {
			res.ExitCode = ee.ProcessState.ExitCode()
		} else {
			res.ExitCode = -1
			return res, fmt.Errorf("wait %s: %w", argv[0], waitErr)
		}
	}
	e.logger().Debug("external tool finished",
		"binary", argv[0], "exit", res.ExitCode, "elapsed", res.Elapsed,
		"stderr_bytes", len(res.Stderr))
	return res, nil
}

// drainBounded copies r into b until EOF, discarding everything past the
// buffer's cap so the child never blocks on a full pipe.
func drainBounded(b *BoundedBuffer, r io.Reader) {
	buf := make([]byte, 4096)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			_, _ = b.Write(buf[:n])
		}
		if err != nil {
			return
		}
	}
}

// minimalEnv builds the child environment: PATH and HOME from the parent
// plus the caller-supplied entries. Nothing else leaks through.
func minimalEnv(extra []string) []string {
	var env []string
	if v := os.Getenv("PATH"); v != "" {
		env = append(env, "PATH="+v)
	}
	if v := os.Getenv("HOME"); v != "" {
		env = append(env, "HOME="+v)
	}
	env = append(env, extra...)
	return env
}
