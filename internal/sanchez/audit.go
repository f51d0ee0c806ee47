package sanchez

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// timeNow is a package-level clock to enable deterministic tests.
var timeNow = time.Now

// auditEntry is one NDJSON line describing a completed invocation.
type auditEntry struct {
	TS          string   `json:"ts"`
	ID          string   `json:"id"`
	Tool        string   `json:"tool"`
	Argv        []string `json:"argv"`
	State       string   `json:"state"`
	Exit        int      `json:"exit"`
	MS          int64    `json:"ms"`
	Degraded    bool     `json:"degraded"`
	StderrBytes int      `json:"stderrBytes"`
}

// auditWriter appends invocation records to <dir>/YYYYMMDD.log. Failures
// to write are swallowed: the audit trail is diagnostics, never a reason
// to fail a processing run.
type auditWriter struct {
	dir     string
	enabled bool
}

func (w *auditWriter) append(entry auditEntry) error {
	if !w.enabled || w.dir == "" {
		return nil
	}
	b, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return err
	}
	name := timeNow().UTC().Format("20060102") + ".log"
	f, err := os.OpenFile(filepath.Join(w.dir, name), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		_ = f.Close()
	}()
	if _, err := f.Write(append(b, '\n')); err != nil {
		return fmt.Errorf("append audit line: %w", err)
	}
	return nil
}
