// Package toolerr defines the error taxonomy shared by the external-tool
// execution layers. Validation failures use secure.SecurityError and are
// always fatal to the caller; the types here describe runtime conditions
// the orchestrator recovers from by degrading to the original payload.
package toolerr

import "fmt"

// ConfigurationError reports that the tool is not in a runnable state
// (missing binary or resources) or that the caller requested an
// unsupported option.
type ConfigurationError struct {
	Tool    string
	Message string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("%s configuration: %s", e.Tool, e.Message)
}

// ExternalToolError reports that a spawned process exited non-zero, timed
// out, or produced no usable output. Stderr carries captured diagnostics
// when available.
type ExternalToolError struct {
	Tool     string
	Message  string
	ExitCode int
	Stderr   string
}

func (e *ExternalToolError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("%s: %s (exit %d): %s", e.Tool, e.Message, e.ExitCode, e.Stderr)
	}
	return fmt.Sprintf("%s: %s (exit %d)", e.Tool, e.Message, e.ExitCode)
}
