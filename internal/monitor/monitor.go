package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/hyperifyio/satproc/internal/health"
	"github.com/hyperifyio/satproc/internal/payload"
	"github.com/hyperifyio/satproc/internal/secure"
	"github.com/hyperifyio/satproc/internal/toolerr"
)

const (
	// DefaultRunTimeout bounds a monitored invocation end to end.
	DefaultRunTimeout = 300 * time.Second
	// DefaultPollInterval is how often progress is estimated.
	DefaultPollInterval = 500 * time.Millisecond
	// DefaultGracePeriod is how long a terminated process gets to exit
	// before it is force-killed.
	DefaultGracePeriod = 2 * time.Second
)

// Options configures one monitored run.
type Options struct {
	// Timeout bounds the whole invocation; zero selects DefaultRunTimeout.
	Timeout time.Duration
	// ExpectedOutputSize, in bytes, anchors progress estimation. Zero
	// disables growth-based estimates (progress stays at its last value
	// until completion).
	ExpectedOutputSize int64
	// Progress, when non-nil, receives monotonically non-decreasing
	// fractions in [0, 1]. The final 1 is delivered before Run returns;
	// no call ever happens after Run returns.
	Progress func(float64)
	// Cancel, when non-nil, lets the caller cooperatively stop the run.
	Cancel *CancelToken
	// Env holds extra "KEY=value" entries for the child process.
	Env []string
}

// Handle describes one in-flight invocation. It owns the input and output
// temp files and removes them on every exit path.
type Handle struct {
	PID        int
	StartedAt  time.Time
	InputPath  string
	OutputPath string
}

func (h *Handle) cleanup() {
	_ = os.Remove(h.InputPath)
	_ = os.Remove(h.OutputPath)
}

// Result is the terminal outcome of a monitored run.
type Result struct {
	State    State
	ExitCode int
	Stderr   string
	Elapsed  time.Duration
	// Output holds the produced file's contents when State is Completed.
	// The file itself is removed before Run returns.
	Output []byte
	// Err describes the failure for non-Completed states.
	Err error
}

// Monitor runs tool invocations under supervision. A Monitor is reusable;
// each Run call owns exactly one invocation and its temp files.
type Monitor struct {
	// Health gates every run; nil skips the gate (tests only).
	Health *health.Checker
	// ToolName labels errors and log lines; empty selects "sanchez".
	ToolName string
	// PollInterval, GracePeriod: zero selects the package defaults.
	PollInterval time.Duration
	GracePeriod  time.Duration
	// MaxOutputKB caps captured stdout/stderr; zero selects 64 KiB.
	MaxOutputKB int
	// Logger receives run records; nil selects slog.Default().
	Logger *slog.Logger
}

func (m *Monitor) logger() *slog.Logger {
	if m.Logger != nil {
		return m.Logger
	}
	return slog.Default()
}

func (m *Monitor) toolName() string {
	if m.ToolName != "" {
		return m.ToolName
	}
	return "sanchez"
}

func (m *Monitor) pollInterval() time.Duration {
	if m.PollInterval > 0 {
		return m.PollInterval
	}
	return DefaultPollInterval
}

func (m *Monitor) gracePeriod() time.Duration {
	if m.GracePeriod > 0 {
		return m.GracePeriod
	}
	return DefaultGracePeriod
}

// Run executes argv under supervision. The health gate and input
// validation run before any process is spawned; the progress poller is
// joined before Run returns, so no callback outlives the terminal state.
// The input and output files are removed on every exit path; on Completed
// the produced output is read into the result first.
func (m *Monitor) Run(ctx context.Context, argv []string, inputPath, outputPath string, opts Options) Result {
	start := time.Now()
	handle := &Handle{InputPath: inputPath, OutputPath: outputPath}
	defer handle.cleanup()

	fail := func(state State, err error) Result {
		m.logger().Error("monitored run did not complete",
			"tool", m.toolName(), "state", state.String(),
			"elapsed", time.Since(start), "error", err)
		return Result{State: state, Err: err, Elapsed: time.Since(start)}
	}

	// Health gate: an unhealthy tool fails the run before any spawn.
	if m.Health != nil {
		if st := m.Health.Check(ctx); !st.IsHealthy() {
			return fail(Failed, &toolerr.ConfigurationError{
				Tool:    m.toolName(),
				Message: "tool unhealthy: " + strings.Join(st.Errors, "; "),
			})
		}
	}

	// Input gate: existence, bounded size, decodable header.
	if err := payload.ValidateFile(inputPath); err != nil {
		return fail(Failed, fmt.Errorf("input validation: %w", err))
	}
	if err := secure.ValidateCommandArgs(argv, 0); err != nil {
		return fail(Failed, err)
	}

	// Starting → Running.
	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Env = append(minimalChildEnv(), opts.Env...)
	stdout := secure.NewBoundedBuffer(m.MaxOutputKB)
	stderr := secure.NewBoundedBuffer(m.MaxOutputKB)
	cmd.Stdout = &swallowWriter{b: stdout}
	cmd.Stderr = &swallowWriter{b: stderr}
	if err := cmd.Start(); err != nil {
		return fail(Failed, &toolerr.ExternalToolError{
			Tool: m.toolName(), Message: fmt.Sprintf("spawn failed: %v", err), ExitCode: -1,
		})
	}
	handle.PID = cmd.Process.Pid
	handle.StartedAt = start

	// Progress poller: one goroutine, joined before return.
	var pollWG sync.WaitGroup
	stopPoll := make(chan struct{})
	if opts.Progress != nil {
		tracker := &progressTracker{outputPath: outputPath, expected: opts.ExpectedOutputSize}
		pollWG.Add(1)
		go func() {
			defer pollWG.Done()
			tick := time.NewTicker(m.pollInterval())
			defer tick.Stop()
			for {
				select {
				case <-stopPoll:
					return
				case <-tick.C:
					opts.Progress(tracker.estimate())
				}
			}
		}()
	}
	joinPoller := func() {
		close(stopPoll)
		pollWG.Wait()
	}

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultRunTimeout
	}
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	cancelTick := time.NewTicker(m.pollInterval())
	defer cancelTick.Stop()

	var waitErr error
wait:
	for {
		select {
		case waitErr = <-done:
			break wait
		case <-deadline.C:
			joinPoller()
			m.terminate(cmd, done)
			return fail(TimedOut, &toolerr.ExternalToolError{
				Tool:     m.toolName(),
				Message:  fmt.Sprintf("timed out after %s", timeout),
				ExitCode: -1,
				Stderr:   stderr.String(),
			})
		case <-ctx.Done():
			joinPoller()
			m.terminate(cmd, done)
			return fail(Cancelled, &toolerr.ExternalToolError{
				Tool: m.toolName(), Message: "run cancelled", ExitCode: -1,
			})
		case <-cancelTick.C:
			if opts.Cancel != nil && opts.Cancel.Cancelled() {
				joinPoller()
				m.terminate(cmd, done)
				return fail(Cancelled, &toolerr.ExternalToolError{
					Tool: m.toolName(), Message: "run cancelled", ExitCode: -1,
				})
			}
		}
	}
	joinPoller()

	exitCode := 0
	if waitErr != nil {
		exitCode = cmd.ProcessState.ExitCode()
		return fail(Failed, &toolerr.ExternalToolError{
			Tool:     m.toolName(),
			Message:  "tool exited with an error",
			ExitCode: exitCode,
			Stderr:   stderr.String(),
		})
	}

	output, err := os.ReadFile(outputPath)
	if err != nil {
		return fail(Failed, &toolerr.ExternalToolError{
			Tool:    m.toolName(),
			Message: "tool exited cleanly but produced no output file",
			Stderr:  stderr.String(),
		})
	}

	if opts.Progress != nil {
		opts.Progress(1)
	}
	elapsed := time.Since(start)
	m.logger().Info("monitored run completed",
		"tool", m.toolName(), "pid", handle.PID,
		"elapsed", elapsed, "output_bytes", len(output))
	return Result{State: Completed, Output: output, Elapsed: elapsed}
}

// terminate escalates: graceful interrupt, grace period, force kill. It
// always drains the wait channel so the child is fully reaped.
func (m *Monitor) terminate(cmd *exec.Cmd, done <-chan error) {
	if cmd.Process == nil {
		return
	}
	graceful := true
	if runtime.GOOS == "windows" {
		graceful = false
	} else if err := cmd.Process.Signal(os.Interrupt); err != nil {
		graceful = false
	}
	if graceful {
		select {
		case <-done:
			return
		case <-time.After(m.gracePeriod()):
		}
	}
	_ = cmd.Process.Kill()
	<-done
}

// swallowWriter adapts a BoundedBuffer for use as cmd.Stdout/Stderr:
// overflow truncates silently instead of failing the copy, so a chatty
// child cannot turn a clean exit into an error.
type swallowWriter struct {
	b *secure.BoundedBuffer
}

func (w *swallowWriter) Write(p []byte) (int, error) {
	_, _ = w.b.Write(p)
	return len(p), nil
}

// minimalChildEnv mirrors the executor's policy: PATH and HOME only.
func minimalChildEnv() []string {
	var env []string
	if v := os.Getenv("PATH"); v != "" {
		env = append(env, "PATH="+v)
	}
	if v := os.Getenv("HOME"); v != "" {
		env = append(env, "HOME="+v)
	}
	return env
}
