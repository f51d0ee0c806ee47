// Package sanchez orchestrates invocations of the external satellite
// image processor: it validates options, verifies tool health, builds the
// whitelisted command line, runs the tool under supervision, and degrades
// to the original payload on any runtime failure.
package sanchez

import (
	"time"

	"github.com/hyperifyio/satproc/internal/monitor"
)

// CommandOptions maps 1:1 to the argument whitelist. Every set field is
// validated before it can reach the command line; nil pointer fields are
// simply omitted.
type CommandOptions struct {
	// ResKm is the output resolution in kilometres per pixel (-r).
	ResKm *float64
	// FalseColour toggles false-colour compositing (--false_colour).
	FalseColour *bool
	// Crop is the pixel crop rectangle (--crop x,y,w,h).
	Crop []int
	// Timestamp selects the capture instant (--timestamp, ISO-8601 UTC).
	Timestamp *time.Time
	// Interpolate toggles temporal interpolation (--interpolate).
	Interpolate *bool
	// Brightness, Contrast, Saturation are signed adjustment factors.
	Brightness *float64
	Contrast   *float64
	Saturation *float64
	// ColourRange and GradientPath select the IR temperature-to-colour
	// mapping (-c <lo>-<hi> -g <gradient.json>). Both must be set together.
	ColourRange  string
	GradientPath string
}

// ProcessOptions configures one Process call: the whitelisted command
// options plus execution knobs.
type ProcessOptions struct {
	CommandOptions

	// Timeout bounds the invocation; zero selects the configured default.
	Timeout time.Duration
	// Progress, when non-nil, selects the monitored mode and receives
	// progress fractions until the run reaches a terminal state.
	Progress func(float64)
	// Cancel lets the caller cooperatively stop a monitored run.
	Cancel *monitor.CancelToken
}
