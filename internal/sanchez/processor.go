package sanchez

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hyperifyio/satproc/internal/health"
	"github.com/hyperifyio/satproc/internal/monitor"
	"github.com/hyperifyio/satproc/internal/payload"
	"github.com/hyperifyio/satproc/internal/secure"
)

// ToolName labels results, errors and audit lines.
const ToolName = "sanchez"

// Result is the tagged outcome of one Process call. Exactly one of the
// two variants holds: a successful run carries the freshly processed
// payload; a degraded run carries the caller's original payload annotated
// with the failure, its pixel buffer untouched.
type Result struct {
	Image    *payload.Image
	Degraded bool
	Reason   string
	State    monitor.State
	Elapsed  time.Duration
}

// Processor orchestrates tool invocations for one owner. Each instance
// has a private temporary directory; concurrent Process calls on the same
// instance are safe because every invocation gets uniquely-named
// input/output files and shares no other mutable state.
type Processor struct {
	cfg     Config
	checker *health.Checker
	runner  *monitor.Monitor
	builder *CommandBuilder
	audit   *auditWriter
	tempDir string
	logger  *slog.Logger
}

// NewProcessor creates a Processor with its private temp directory.
// Close releases the directory.
func NewProcessor(cfg Config, logger *slog.Logger) (*Processor, error) {
	if logger == nil {
		logger = slog.Default()
	}
	tempDir, err := os.MkdirTemp(cfg.TempDir, "satproc-*")
	if err != nil {
		return nil, fmt.Errorf("create processor temp dir: %w", err)
	}
	binPath := toolBinaryPath(cfg.Tool.Dir, cfg.Tool.Binary)
	checker := &health.Checker{
		ToolDir:      cfg.Tool.Dir,
		BinaryName:   filepath.Base(binPath),
		TempDir:      tempDir,
		TTL:          cfg.healthTTL(),
		ProbeTimeout: cfg.probeTimeout(),
		Logger:       logger,
	}
	return &Processor{
		cfg:     cfg,
		checker: checker,
		runner: &monitor.Monitor{
			Health:       checker,
			ToolName:     ToolName,
			PollInterval: cfg.pollInterval(),
			GracePeriod:  cfg.gracePeriod(),
			Logger:       logger,
		},
		builder: &CommandBuilder{BinaryPath: binPath},
		audit:   &auditWriter{dir: cfg.Audit.Dir, enabled: cfg.Audit.Enabled},
		tempDir: tempDir,
		logger:  logger,
	}, nil
}

// Health exposes the processor's checker for status reporting.
func (p *Processor) Health() *health.Checker { return p.checker }

// Close removes the private temp directory.
func (p *Processor) Close() error {
	return os.RemoveAll(p.tempDir)
}

// Process runs the tool over img. It returns an error only when the
// caller-supplied options fail validation, which is a programming error;
// every runtime failure (unhealthy tool, execution failure, unusable
// output) degrades to the original payload flagged with the reason.
func (p *Processor) Process(ctx context.Context, img *payload.Image, opts ProcessOptions) (*Result, error) {
	start := time.Now()
	id := uuid.NewString()[:8]

	inputPath := filepath.Join(p.tempDir, inputFileName(img, id))
	outputPath := filepath.Join(p.tempDir, id+"_out.png")
	defer func() {
		// The monitor removes the pair itself on monitored paths; removal
		// is idempotent so the belt-and-braces here costs nothing.
		_ = os.Remove(inputPath)
		_ = os.Remove(outputPath)
	}()

	degrade := func(state monitor.State, reason string) *Result {
		p.logger.Warn("processing degraded to original payload",
			"tool", ToolName, "id", id, "state", state.String(),
			"reason", reason, "elapsed", time.Since(start))
		out := img.Clone()
		out.Meta[payload.MetaProcessingFailed] = true
		out.Meta[payload.MetaFailureReason] = reason
		return &Result{Image: out, Degraded: true, Reason: reason, State: state, Elapsed: time.Since(start)}
	}

	if err := img.Save(inputPath); err != nil {
		return degrade(monitor.Failed, fmt.Sprintf("persist input: %v", err)), nil
	}

	// Health gate (cached): an unhealthy tool skips execution entirely.
	if st := p.checker.Check(ctx); !st.IsHealthy() {
		res := degrade(monitor.Failed, "tool unhealthy: "+strings.Join(st.Errors, "; "))
		p.writeAudit(id, nil, res, 0, 0)
		return res, nil
	}

	// Command construction failures are fatal: they indicate a programming
	// error in the caller, not an environmental one.
	argv, err := p.builder.Build(inputPath, outputPath, opts.CommandOptions)
	if err != nil {
		return nil, err
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = p.cfg.timeout()
	}
	var expected int64
	if info, err := os.Stat(inputPath); err == nil {
		expected = info.Size()
	}

	// Both modes run through the same state machine; the blocking mode is
	// simply a run with no progress callback.
	runRes := p.runner.Run(ctx, argv, inputPath, outputPath, monitor.Options{
		Timeout:            timeout,
		ExpectedOutputSize: expected,
		Progress:           opts.Progress,
		Cancel:             opts.Cancel,
		Env:                []string{libraryPathEnv(filepath.Dir(p.builder.BinaryPath))},
	})

	if runRes.State != monitor.Completed {
		res := degrade(runRes.State, runRes.Err.Error())
		p.writeAudit(id, argv, res, runRes.ExitCode, len(runRes.Stderr))
		return res, nil
	}

	processed, err := payload.Decode(runRes.Output)
	if err != nil {
		res := degrade(monitor.Failed, fmt.Sprintf("load tool output: %v", err))
		p.writeAudit(id, argv, res, 0, len(runRes.Stderr))
		return res, nil
	}

	// Carry the caller's metadata forward, then stamp execution facts.
	for k, v := range img.Meta {
		processed.Meta[k] = v
	}
	processed.Meta[payload.MetaProcessedBy] = ToolName
	if opts.ResKm != nil {
		processed.Meta[payload.MetaResolutionKm] = *opts.ResKm
	}
	elapsed := time.Since(start)
	processed.Meta[payload.MetaProcessingTimeMS] = elapsed.Milliseconds()

	res := &Result{Image: processed, State: monitor.Completed, Elapsed: elapsed}
	p.writeAudit(id, argv, res, 0, len(runRes.Stderr))
	p.logger.Info("processing completed",
		"tool", ToolName, "id", id, "elapsed", elapsed)
	return res, nil
}

func (p *Processor) writeAudit(id string, argv []string, res *Result, exit, stderrBytes int) {
	err := p.audit.append(auditEntry{
		TS:          timeNow().UTC().Format(time.RFC3339Nano),
		ID:          id,
		Tool:        ToolName,
		Argv:        argv,
		State:       res.State.String(),
		Exit:        exit,
		MS:          res.Elapsed.Milliseconds(),
		Degraded:    res.Degraded,
		StderrBytes: stderrBytes,
	})
	if err != nil {
		p.logger.Debug("audit append failed", "error", err)
	}
}

// inputFileName derives a safe, unique input filename from the payload's
// source name, falling back to a timestamp when the original is unusable.
func inputFileName(img *payload.Image, id string) string {
	base := ""
	if v, ok := img.Meta[payload.MetaSourceFile].(string); ok {
		base = v
	}
	safe := secure.SanitizeFilename(base)
	if safe == "untitled" {
		safe = "input_" + timeNow().UTC().Format("20060102T150405")
	}
	stem := strings.TrimSuffix(safe, filepath.Ext(safe))
	return fmt.Sprintf("%s_%s.png", stem, id)
}
