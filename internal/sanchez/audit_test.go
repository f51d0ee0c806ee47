package sanchez

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestAuditWriter_AppendsNDJSON(t *testing.T) {
	dir := t.TempDir()
	w := &auditWriter{dir: dir, enabled: true}

	fixed := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	timeNow = func() time.Time { return fixed }
	defer func() { timeNow = time.Now }()

	for i := 0; i < 2; i++ {
		err := w.append(auditEntry{
			TS:    fixed.Format(time.RFC3339Nano),
			ID:    "abcd1234",
			Tool:  ToolName,
			Argv:  []string{"/opt/sanchez/sanchez", "geostationary"},
			State: "completed",
			MS:    42,
		})
		if err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	f, err := os.Open(filepath.Join(dir, "20240601.log"))
	if err != nil {
		t.Fatalf("open audit file: %v", err)
	}
	defer f.Close()
	scanner := bufio.NewScanner(f)
	lines := 0
	for scanner.Scan() {
		var entry auditEntry
		if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
			t.Fatalf("line %d is not valid JSON: %v", lines, err)
		}
		if entry.Tool != ToolName || entry.State != "completed" {
			t.Fatalf("unexpected entry: %+v", entry)
		}
		lines++
	}
	if lines != 2 {
		t.Fatalf("lines = %d, want 2", lines)
	}
}

func TestAuditWriter_DisabledIsNoOp(t *testing.T) {
	dir := t.TempDir()
	w := &auditWriter{dir: dir, enabled: false}
	if err := w.append(auditEntry{ID: "x"}); err != nil {
		t.Fatalf("append: %v", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("disabled writer created files: %v", entries)
	}
}
