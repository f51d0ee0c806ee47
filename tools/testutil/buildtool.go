// Package testutil compiles helper binaries for integration tests.
package testutil

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sync"
	"testing"
)

// Built binaries are cached per test process so a package's tests compile
// each helper once.
var (
	buildMu    sync.Mutex
	buildCache = map[string]string{}
)

// BuildTool builds the helper binary whose sources live under
// tools/cmd/<name> and returns the absolute path to the produced
// executable. The binary lands in a process-scoped temp directory and is
// reused across tests in the same run.
func BuildTool(t *testing.T, name string) string {
	t.Helper()

	buildMu.Lock()
	defer buildMu.Unlock()
	if path, ok := buildCache[name]; ok {
		return path
	}

	repoRoot, err := findRepoRoot()
	if err != nil {
		t.Fatalf("find repo root: %v", err)
	}
	srcPath := filepath.Join(repoRoot, "tools", "cmd", name)
	if _, err := os.Stat(srcPath); err != nil {
		t.Fatalf("tool sources not found for %q under %s: %v", name, filepath.Join(repoRoot, "tools"), err)
	}

	outDir, err := os.MkdirTemp("", "satproc-tool-")
	if err != nil {
		t.Fatalf("mkdir temp: %v", err)
	}
	binName := name
	if runtime.GOOS == "windows" {
		binName += ".exe"
	}
	outPath := filepath.Join(outDir, binName)

	cmd := exec.Command("go", "build", "-o", outPath, "./"+filepath.ToSlash(filepath.Join("tools", "cmd", name)))
	cmd.Dir = repoRoot
	cmd.Env = append(os.Environ(), "CGO_ENABLED=0")
	if output, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("build %s failed: %v\n%s", name, err, string(output))
	}
	buildCache[name] = outPath
	return outPath
}

// findRepoRoot walks upward from the working directory until it sees
// go.mod.
func findRepoRoot() (string, error) {
	start, err := os.Getwd()
	if err != nil || start == "" {
		return "", errors.New("cannot determine working directory")
	}
	dir := start
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("go.mod not found from %s upward", start)
		}
		dir = parent
	}
}
