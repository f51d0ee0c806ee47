// Package health verifies that the external image-processing tool is
// installed, runnable, and has its dependent resources, producing a
// cached composite verdict.
package health

import "time"

// Status is the point-in-time verdict produced by one full check. It is
// immutable after construction; the checker retains the most recent
// instance and serves it from cache while fresh.
type Status struct {
	CheckedAt time.Time `json:"checked_at"`

	BinaryPath       string    `json:"binary_path"`
	BinaryExists     bool      `json:"binary_exists"`
	BinaryExecutable bool      `json:"binary_executable"`
	BinarySize       int64     `json:"binary_size"`
	BinaryModified   time.Time `json:"binary_modified"`

	ResourcesExist   bool     `json:"resources_exist"`
	GradientFiles    []string `json:"gradient_files"`
	MissingResources []string `json:"missing_resources"`

	CanExecute    bool          `json:"can_execute"`
	ExecutionTime time.Duration `json:"execution_time"`

	TempDirWritable bool   `json:"temp_dir_writable"`
	MemoryAvailable uint64 `json:"memory_available"`
	DiskAvailable   uint64 `json:"disk_available"`

	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

// IsHealthy reports whether the tool is usable: every required flag set
// and no errors recorded. It is computed, never stored, so a Status can
// never carry a stale verdict that disagrees with its own fields.
func (s *Status) IsHealthy() bool {
	return s.BinaryExists &&
		s.BinaryExecutable &&
		s.ResourcesExist &&
		s.CanExecute &&
		s.TempDirWritable &&
		len(s.Errors) == 0
}

func (s *Status) addError(msg string) {
	s.Errors = append(s.Errors, msg)
}

func (s *Status) addWarning(msg string) {
	s.Warnings = append(s.Warnings, msg)
}
