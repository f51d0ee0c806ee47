package monitor

import "os"

// progressTracker estimates fractional completion from output-file growth
// relative to the expected output size. Estimates are monotonically
// non-decreasing and clamped below 1 until the run actually completes;
// only the monitor forces the final 1.
type progressTracker struct {
	outputPath string
	expected   int64
	last       float64
}

// estimate returns the current progress fraction in [last, 0.99].
func (p *progressTracker) estimate() float64 {
	if p.expected <= 0 {
		return p.last
	}
	info, err := os.Stat(p.outputPath)
	if err != nil {
		// Output not created yet; hold the last estimate.
		return p.last
	}
	frac := float64(info.Size()) / float64(p.expected)
	if frac > 0.99 {
		frac = 0.99
	}
	if frac < p.last {
		return p.last
	}
	p.last = frac
	return frac
}
