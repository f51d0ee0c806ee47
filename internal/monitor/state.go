// Package monitor supervises one external-tool invocation at a time:
// spawn, progress estimation from output growth, timeout with a
// terminate/kill escalation, cooperative cancellation, and guaranteed
// temp-file cleanup.
package monitor

import "sync/atomic"

// State is the lifecycle of one invocation. Transitions are
// Idle → Starting → Running → one of the terminal states.
type State int

const (
	Idle State = iota
	Starting
	Running
	Completed
	Failed
	TimedOut
	Cancelled
)

var stateNames = map[State]string{
	Idle:      "idle",
	Starting:  "starting",
	Running:   "running",
	Completed: "completed",
	Failed:    "failed",
	TimedOut:  "timed_out",
	Cancelled: "cancelled",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}

// Terminal reports whether no further transition can occur.
func (s State) Terminal() bool {
	switch s {
	case Completed, Failed, TimedOut, Cancelled:
		return true
	}
	return false
}

// CancelToken is the cooperative cancellation flag shared between the
// caller and a running monitor. The monitor consults it at each poll
// interval; once observed, the invocation transitions to Cancelled and the
// terminate/kill escalation begins. Setting the flag never preempts a
// syscall in flight.
type CancelToken struct {
	flag atomic.Bool
}

// Cancel requests cancellation. Safe to call from any goroutine, and
// idempotent.
func (t *CancelToken) Cancel() { t.flag.Store(true) }

// Cancelled reports whether cancellation was requested.
func (t *CancelToken) Cancelled() bool { return t.flag.Load() }
