package secure

import (
	"bytes"
	"errors"
)

// ErrOutputLimit is returned when a bounded writer exceeds its configured cap.
var ErrOutputLimit = errors.New("output limit exceeded")

// BoundedBuffer is an io.Writer that caps total bytes written. The external
// tool's stdout/stderr are captured through it so a misbehaving binary
// cannot exhaust memory. When the cap is exceeded the write is truncated
// and ErrOutputLimit is returned; the buffer never grows beyond its cap.
// A zero or negative maxKB defaults to 64 KiB.
type BoundedBuffer struct {
	buf       bytes.Buffer
	capBytes  int
	truncated bool
}

// NewBoundedBuffer creates a BoundedBuffer holding at most maxKB kibibytes.
func NewBoundedBuffer(maxKB int) *BoundedBuffer {
	if maxKB <= 0 {
		maxKB = 64
	}
	return &BoundedBuffer{capBytes: maxKB * 1024}
}

// Write appends p up to the remaining capacity. A write that would exceed
// the cap is truncated and reports ErrOutputLimit.
func (b *BoundedBuffer) Write(p []byte) (int, error) {
	remaining := b.capBytes - b.buf.Len()
	if remaining <= 0 {
		b.truncated = true
		return 0, ErrOutputLimit
	}
	if len(p) > remaining {
		_, _ = b.buf.Write(p[:remaining])
		b.truncated = true
		return remaining, ErrOutputLimit
	}
	return b.buf.Write(p)
}

// String returns the captured contents, possibly truncated.
func (b *BoundedBuffer) String() string { return b.buf.String() }

// Bytes returns the captured contents, possibly truncated.
func (b *BoundedBuffer) Bytes() []byte { return b.buf.Bytes() }

// Truncated reports whether any write exceeded the cap.
func (b *BoundedBuffer) Truncated() bool { return b.truncated }
