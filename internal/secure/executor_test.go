package secure

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"testing"
	"time"
)

// buildHelper compiles a tiny Go program into a test-scoped binary.
func buildHelper(t *testing.T, name, src string) string {
	t.Helper()
	dir := t.TempDir()
	srcPath := filepath.Join(dir, name+".go")
	if err := os.WriteFile(srcPath, []byte(src), 0o644); err != nil {
		t.Fatalf("write helper: %v", err)
	}
	bin := filepath.Join(dir, name)
	if runtime.GOOS == "windows" {
		bin += ".exe"
	}
	cmd := exec.Command("go", "build", "-o", bin, srcPath)
	cmd.Env = append(os.Environ(), "CGO_ENABLED=0")
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("build helper: %v: %s", err, string(out))
	}
	return bin
}

func TestExecute_Success(t *testing.T) {
	bin := buildHelper(t, "echoer", `package main
import "fmt"
func main(){ fmt.Print("ok") }
`)
	var e Executor
	res, err := e.Execute(context.Background(), []string{bin}, "", nil, 5*time.Second)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.ExitCode != 0 {
		t.Fatalf("exit = %d, want 0", res.ExitCode)
	}
	if res.Stdout != "ok" {
		t.Fatalf("stdout = %q, want \"ok\"", res.Stdout)
	}
}

func TestExecute_NonZeroExitIsNotAnError(t *testing.T) {
	bin := buildHelper(t, "failer", `package main
import ("fmt"; "os")
func main(){ fmt.Fprint(os.Stderr, "boom"); os.Exit(3) }
`)
	var e Executor
	res, err := e.Execute(context.Background(), []string{bin}, "", nil, 5*time.Second)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.ExitCode != 3 {
		t.Fatalf("exit = %d, want 3", res.ExitCode)
	}
	if res.Stderr != "boom" {
		t.Fatalf("stderr = %q, want \"boom\"", res.Stderr)
	}
}

func TestExecute_Timeout(t *testing.T) {
	bin := buildHelper(t, "sleeper", `package main
import "time"
func main(){ time.Sleep(5 * time.Second) }
`)
	var e Executor
	_, err := e.Execute(context.Background(), []string{bin}, "", nil, 200*time.Millisecond)
	if !errors.Is(err, ErrTimedOut) {
		t.Fatalf("err = %v, want ErrTimedOut", err)
	}
}

func TestExecute_RejectsInjectionBeforeSpawn(t *testing.T) {
	var e Executor
	_, err := e.Execute(context.Background(), []string{"/bin/echo", "; rm -rf /"}, "", nil, time.Second)
	var se *SecurityError
	if !errors.As(err, &se) {
		t.Fatalf("err = %v, want SecurityError", err)
	}
}

func TestExecute_EmptyCommand(t *testing.T) {
	var e Executor
	_, err := e.Execute(context.Background(), nil, "", nil, time.Second)
	var se *SecurityError
	if !errors.As(err, &se) {
		t.Fatalf("err = %v, want SecurityError", err)
	}
}

func TestExecute_MinimalEnvironment(t *testing.T) {
	bin := buildHelper(t, "envdump", `package main
import ("fmt"; "os")
func main(){ fmt.Print(os.Getenv("SATPROC_SECRET"), "|", os.Getenv("SATPROC_EXTRA")) }
`)
	t.Setenv("SATPROC_SECRET", "leaky")
	var e Executor
	res, err := e.Execute(context.Background(), []string{bin}, "", []string{"SATPROC_EXTRA=yes"}, 5*time.Second)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.Stdout != "|yes" {
		t.Fatalf("stdout = %q, want %q (parent env must not leak)", res.Stdout, "|yes")
	}
}

func TestExecute_BoundedOutput(t *testing.T) {
	bin := buildHelper(t, "spammer", `package main
import ("os"; "strings")
func main(){ os.Stdout.WriteString(strings.Repeat("y", 256*1024)) }
`)
	e := Executor{MaxOutputKB: 4}
	res, err := e.Execute(context.Background(), []string{bin}, "", nil, 10*time.Second)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !res.StdoutTruncated {
		t.Fatalf("expected stdout truncation")
	}
	if len(res.Stdout) != 4*1024 {
		t.Fatalf("stdout length = %d, want %d", len(res.Stdout), 4*1024)
	}
}
