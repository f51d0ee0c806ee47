package health

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/hyperifyio/satproc/internal/secure"
)

const (
	// DefaultTTL is how long a Status is served from cache before a fresh
	// check runs.
	DefaultTTL = 5 * time.Minute
	// DefaultProbeTimeout bounds the lightweight --version probe.
	DefaultProbeTimeout = 5 * time.Second

	lowMemoryBytes = 512 * 1024 * 1024
	lowDiskBytes   = 1024 * 1024 * 1024
)

// binaryNames maps GOOS/GOARCH to the expected tool binary filename.
// Platforms absent from this table are unsupported.
var binaryNames = map[string]string{
	"linux/amd64":   "sanchez",
	"linux/arm64":   "sanchez",
	"linux/arm":     "sanchez",
	"darwin/amd64":  "sanchez",
	"darwin/arm64":  "sanchez",
	"windows/amd64": "Sanchez.exe",
}

// resourceCategories lists the dependent-resource directories expected
// beside the binary, with the glob each must satisfy.
var resourceCategories = []struct {
	name string
	glob string
}{
	{"Gradients", "*.json"},
	{"Overlays", "*"},
}

// timeNow is a package-level clock to enable deterministic cache tests.
var timeNow = time.Now

// Checker runs the composite health check for one tool installation and
// caches the most recent Status.
//
// The cache fields are deliberately not guarded by a lock: Status
// construction is idempotent and side-effect-free, so two callers racing a
// cache miss merely recompute the same verdict independently.
type Checker struct {
	// ToolDir is the directory containing the tool binary and its
	// Resources directory.
	ToolDir string
	// BinaryName overrides the platform lookup table when non-empty.
	BinaryName string
	// TempDir is probed for writability; empty selects os.TempDir().
	TempDir string
	// TTL controls cache freshness; zero selects DefaultTTL.
	TTL time.Duration
	// ProbeTimeout bounds the execution probe; zero selects
	// DefaultProbeTimeout.
	ProbeTimeout time.Duration
	// Exec runs the execution probe; nil selects a zero-value Executor.
	Exec *secure.Executor
	// Logger receives check summaries; nil selects slog.Default().
	Logger *slog.Logger

	// platform overrides runtime GOOS/GOARCH in tests ("linux/amd64").
	platform string

	lastStatus  *Status
	lastChecked time.Time
}

func (c *Checker) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}

func (c *Checker) ttl() time.Duration {
	if c.TTL > 0 {
		return c.TTL
	}
	return DefaultTTL
}

func (c *Checker) tempDir() string {
	if c.TempDir != "" {
		return c.TempDir
	}
	return os.TempDir()
}

// Check returns the cached Status while it is younger than the TTL and
// runs a fresh check otherwise.
func (c *Checker) Check(ctx context.Context) *Status {
	if s := c.lastStatus; s != nil && timeNow().Sub(c.lastChecked) < c.ttl() {
		return s
	}
	return c.ForceCheck(ctx)
}

// ForceCheck always runs the full health check and replaces the cache.
// The four sub-checks are independent and never abort early: a missing
// binary still lets the resource and system checks contribute diagnostics.
func (c *Checker) ForceCheck(ctx context.Context) *Status {
	s := &Status{CheckedAt: timeNow()}
	c.checkBinary(s)
	c.checkResources(s)
	c.checkExecution(ctx, s)
	c.checkSystem(ctx, s)

	c.logger().Info("tool health check completed",
		"healthy", s.IsHealthy(),
		"binary", s.BinaryPath,
		"errors", len(s.Errors),
		"warnings", len(s.Warnings),
		"probe_elapsed", s.ExecutionTime)

	c.lastStatus = s
	c.lastChecked = s.CheckedAt
	return s
}

// resolveBinaryPath picks the expected binary for the current platform.
func (c *Checker) resolveBinaryPath() (string, error) {
	name := c.BinaryName
	if name == "" {
		plat := c.platform
		if plat == "" {
			plat = runtime.GOOS + "/" + runtime.GOARCH
		}
		var ok bool
		name, ok = binaryNames[plat]
		if !ok {
			return "", fmt.Errorf("unsupported platform %s", plat)
		}
	}
	return filepath.Join(c.ToolDir, name), nil
}

func (c *Checker) checkBinary(s *Status) {
	path, err := c.resolveBinaryPath()
	if err != nil {
		s.addError(err.Error())
		return
	}
	s.BinaryPath = path
	info, err := os.Stat(path)
	if err != nil {
		s.addError(fmt.Sprintf("tool binary not found at %s", path))
		return
	}
	s.BinaryExists = true
	s.BinarySize = info.Size()
	s.BinaryModified = info.ModTime()
	if runtime.GOOS == "windows" {
		s.BinaryExecutable = true
	} else if info.Mode()&0o111 != 0 {
		s.BinaryExecutable = true
	} else {
		s.addError(fmt.Sprintf("tool binary at %s is not executable", path))
	}
}

func (c *Checker) checkResources(s *Status) {
	root := filepath.Join(c.ToolDir, "Resources")
	total := 0
	for _, cat := range resourceCategories {
		matches, err := filepath.Glob(filepath.Join(root, cat.name, cat.glob))
		if err != nil || len(matches) == 0 {
			s.MissingResources = append(s.MissingResources, cat.name)
			continue
		}
		total += len(matches)
		if cat.name == "Gradients" {
			for _, m := range matches {
				s.GradientFiles = append(s.GradientFiles, filepath.Base(m))
			}
		}
	}
	s.ResourcesExist = total > 0 && len(s.MissingResources) == 0
	if !s.ResourcesExist {
		s.addError(fmt.Sprintf("dependent resources missing under %s: %s",
			root, strings.Join(s.MissingResources, ", ")))
	}
}

func (c *Checker) checkExecution(ctx context.Context, s *Status) {
	if !s.BinaryExists {
		s.addError("execution probe skipped: binary missing")
		return
	}
	runner := c.Exec
	if runner == nil {
		runner = &secure.Executor{}
	}
	probeTimeout := c.ProbeTimeout
	if probeTimeout <= 0 {
		probeTimeout = DefaultProbeTimeout
	}

	res, err := runner.Execute(ctx, []string{s.BinaryPath, "--version"}, "", nil, probeTimeout)
	if errors.Is(err, secure.ErrTimedOut) {
		s.addError("execution probe timed out")
		return
	}
	if err != nil {
		s.addError(fmt.Sprintf("execution probe failed: %v", err))
		return
	}
	if res.ExitCode == 0 {
		s.CanExecute = true
		s.ExecutionTime = res.Elapsed
		return
	}

	// Some builds have no --version; accept recognizable usage output from
	// --help as evidence of a working binary.
	help, err := runner.Execute(ctx, []string{s.BinaryPath, "--help"}, "", nil, probeTimeout)
	if err == nil && looksLikeUsage(help.Stdout+help.Stderr) {
		s.CanExecute = true
		s.ExecutionTime = help.Elapsed
		return
	}
	s.addError(fmt.Sprintf("version probe exited %d: %s",
		res.ExitCode, strings.TrimSpace(res.Stderr)))
}

func looksLikeUsage(out string) bool {
	lower := strings.ToLower(out)
	return strings.Contains(lower, "usage") || strings.Contains(lower, "geostationary")
}

func (c *Checker) checkSystem(ctx context.Context, s *Status) {
	dir := c.tempDir()
	probe, err := os.CreateTemp(dir, "satproc-health-*")
	if err != nil {
		s.addError(fmt.Sprintf("temp directory %s not writable: %v", dir, err))
	} else {
		_, werr := probe.WriteString("probe")
		cerr := probe.Close()
		_ = os.Remove(probe.Name())
		if werr != nil || cerr != nil {
			s.addError(fmt.Sprintf("temp directory %s not writable: write=%v close=%v", dir, werr, cerr))
		} else {
			s.TempDirWritable = true
		}
	}

	// Memory and disk readings are advisory: failures and low readings
	// demote to warnings and never flip the verdict.
	if vm, err := mem.VirtualMemoryWithContext(ctx); err != nil {
		s.addWarning(fmt.Sprintf("memory stats unavailable: %v", err))
	} else {
		s.MemoryAvailable = vm.Available
		if vm.Available < lowMemoryBytes {
			s.addWarning(fmt.Sprintf("low available memory: %d bytes", vm.Available))
		}
	}
	if du, err := disk.UsageWithContext(ctx, dir); err != nil {
		s.addWarning(fmt.Sprintf("disk stats unavailable: %v", err))
	} else {
		s.DiskAvailable = du.Free
		if du.Free < lowDiskBytes {
			s.addWarning(fmt.Sprintf("low free disk space: %d bytes", du.Free))
		}
	}
}
