package health

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// syncDirFunc fsyncs a directory after an atomic rename. It is a var so
// tests can assert the directory sync happened.
var syncDirFunc = func(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer func() {
		_ = d.Close()
	}()
	return d.Sync()
}

// SaveStatus persists a Status as JSON at path using a write-to-temp,
// fsync, rename sequence so a crash never leaves a torn report behind.
// The desktop application reads this file on startup to show the last
// known verdict before the first live check completes.
func SaveStatus(path string, s *Status) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal health status: %w", err)
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create status dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".health-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp status file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		_ = os.Remove(tmpName)
	}()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write status: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync status: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close status: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename status into place: %w", err)
	}
	if err := syncDirFunc(dir); err != nil {
		return fmt.Errorf("sync status dir: %w", err)
	}
	return nil
}

// LoadStatus reads a Status previously written by SaveStatus.
func LoadStatus(path string) (*Status, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read health status: %w", err)
	}
	var s Status
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse health status: %w", err)
	}
	return &s, nil
}
