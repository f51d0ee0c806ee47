package secure

import "fmt"

// SecurityError reports a caller-supplied value that failed validation.
// It is always surfaced synchronously to the caller and never caught
// internally: a rejected value signals malformed or hostile input that
// must not be silently ignored.
type SecurityError struct {
	Field  string // logical name of the offending input (e.g. "res_km", "path")
	Value  string // the rejected value, possibly truncated for logging
	Reason string // why the value was rejected
}

func (e *SecurityError) Error() string {
	return fmt.Sprintf("security violation in %s: %s (got %q)", e.Field, e.Reason, e.Value)
}

// securityErr builds a SecurityError with the value truncated to a
// loggable length so a hostile megabyte-long argument cannot blow up
// log lines.
func securityErr(field, value, reason string) *SecurityError {
	const maxLogged = 120
	if len(value) > maxLogged {
		value = value[:maxLogged] + "..."
	}
	return &SecurityError{Field: field, Value: value, Reason: reason}
}
