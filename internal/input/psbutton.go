package input

import "time"

// psSecondTapWindow is how long after a PS release the controller waits
// for a second press before falling back to emitting a single remote PS.
const psSecondTapWindow = 300 * time.Millisecond

// psState is the PS-button intercept FSM's three states, preserved as-is
// per the design notes: Idle, WaitingSecondTap, Passthrough.
type psState int

const (
	psIdle psState = iota
	psWaitingSecondTap
	psPassthrough
)

// PSButtonAction is what the FSM wants the caller to do in response to a
// Press, Release or Tick call.
type PSButtonAction int

const (
	PSActionNone PSButtonAction = iota
	PSActionEmitRemotePS          // window expired with no second press
	PSActionEnterLocalPassthrough // second press arrived; stop intercepting while held
	PSActionExitLocalPassthrough  // PS released while in local passthrough
)

// PSButtonFSM implements the PS-button dual-intercept mode: tapping PS and
// releasing starts a window; a second press inside it releases the
// intercept (local PS becomes active while held); otherwise a single remote
// PS is emitted once the window lapses.
type PSButtonFSM struct {
	enabled bool
	state   psState
	windowDeadline time.Time
}

// NewPSButtonFSM creates an FSM with dual-mode interception enabled or
// disabled per the user's config.
func NewPSButtonFSM(enabled bool) *PSButtonFSM {
	return &PSButtonFSM{enabled: enabled}
}

// SetEnabled toggles dual-mode mid-session, canceling any pending window
// and forcing a clean exit from local passthrough if one is in progress.
func (f *PSButtonFSM) SetEnabled(enabled bool) PSButtonAction {
	f.enabled = enabled
	if enabled {
		return PSActionNone
	}
	prev := f.state
	f.state = psIdle
	if prev == psPassthrough {
		return PSActionExitLocalPassthrough
	}
	return PSActionNone
}

// Press handles a PS button press edge.
func (f *PSButtonFSM) Press(now time.Time) PSButtonAction {
	if !f.enabled {
		return PSActionEmitRemotePS
	}
	switch f.state {
	case psIdle:
		// First press is intercepted locally; nothing is emitted yet.
		return PSActionNone
	case psWaitingSecondTap:
		if now.Before(f.windowDeadline) {
			f.state = psPassthrough
			return PSActionEnterLocalPassthrough
		}
		// Window already lapsed; treat as a fresh first press.
		f.state = psIdle
		return PSActionNone
	default: // psPassthrough
		return PSActionNone
	}
}

// Release handles a PS button release edge.
func (f *PSButtonFSM) Release(now time.Time) PSButtonAction {
	if !f.enabled {
		return PSActionNone
	}
	switch f.state {
	case psIdle:
		f.state = psWaitingSecondTap
		f.windowDeadline = now.Add(psSecondTapWindow)
		return PSActionNone
	case psPassthrough:
		f.state = psIdle
		return PSActionExitLocalPassthrough
	default:
		return PSActionNone
	}
}

// Tick must be called once per input tick so an expired second-tap window
// emits the fallback single remote PS even with no further button edges.
func (f *PSButtonFSM) Tick(now time.Time) PSButtonAction {
	if f.state == psWaitingSecondTap && !now.Before(f.windowDeadline) {
		f.state = psIdle
		return PSActionEmitRemotePS
	}
	return PSActionNone
}
