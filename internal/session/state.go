// Package session holds the single SessionState record exclusively owned
// and written by the stream supervisor (C5); every other component gets
// only a read-only Snapshot, copied out under the State's mutex.
package session

import "sync"

// Source identifies what triggered the most recent restart attempt, so the
// coordinator can tell a repeat of the same cause (bump its attempt
// counter) from a new one (reset to 1).
type Source string

// State is SessionState: the lifecycle record C5 exclusively writes.
// C3/C4/the renderer only ever see a Snapshot copy.
type State struct {
	mu sync.Mutex

	isStreaming            bool
	sessionInit            bool
	stopRequested          bool
	fastRestartActive      bool
	reconnectOverlayActive bool
	generation             uint64
	reconnectGeneration    uint64
	autoReconnectCount     int
	nextStreamAllowedUs    int64
	lastRestartSource      Source
	lastRestartFailureUs   int64
	lastRestartCooloffUntilUs int64
	inputsReady            bool
	inputThreadShouldExit  bool
}

// Snapshot is the read-only view handed to C3/C4/the renderer.
type Snapshot struct {
	IsStreaming            bool
	SessionInit            bool
	StopRequested          bool
	FastRestartActive      bool
	ReconnectOverlayActive bool
	Generation             uint64
	ReconnectGeneration    uint64
	AutoReconnectCount     int
	NextStreamAllowedUs    int64
	LastRestartSource      Source
	LastRestartFailureUs   int64
	LastRestartCooloffUntilUs int64
	InputsReady            bool
	InputThreadShouldExit  bool
}

// New creates a fresh, not-yet-streaming State.
func New() *State {
	return &State{}
}

// Snapshot returns a coherent read-only copy of the current state.
func (s *State) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		IsStreaming:               s.isStreaming,
		SessionInit:               s.sessionInit,
		StopRequested:             s.stopRequested,
		FastRestartActive:         s.fastRestartActive,
		ReconnectOverlayActive:    s.reconnectOverlayActive,
		Generation:                s.generation,
		ReconnectGeneration:       s.reconnectGeneration,
		AutoReconnectCount:        s.autoReconnectCount,
		NextStreamAllowedUs:       s.nextStreamAllowedUs,
		LastRestartSource:         s.lastRestartSource,
		LastRestartFailureUs:      s.lastRestartFailureUs,
		LastRestartCooloffUntilUs: s.lastRestartCooloffUntilUs,
		InputsReady:               s.inputsReady,
		InputThreadShouldExit:     s.inputThreadShouldExit,
	}
}

// BeginSession marks a fresh session: bumps generation, clears
// stop-requested/reconnect flags.
func (s *State) BeginSession() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation++
	s.sessionInit = true
	s.isStreaming = true
	s.stopRequested = false
	s.fastRestartActive = false
	s.reconnectOverlayActive = false
}

// RequestStop sets stop_requested; idempotent.
func (s *State) RequestStop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopRequested = true
}

// StopRequested reports whether a stop has been requested, the guard every
// restart-coordinator pass checks first.
func (s *State) StopRequested() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopRequested
}

// SetFastRestartActive toggles the in-flight fast-restart flag.
func (s *State) SetFastRestartActive(active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fastRestartActive = active
}

// FastRestartActive reports the in-flight fast-restart flag.
func (s *State) FastRestartActive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fastRestartActive
}

// SetReconnectOverlayActive toggles the reconnect-overlay flag the renderer
// reads to show/hide the reconnecting UI.
func (s *State) SetReconnectOverlayActive(active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reconnectOverlayActive = active
	if active {
		s.reconnectGeneration++
	}
}

// IncAutoReconnectCount increments and returns the new count.
func (s *State) IncAutoReconnectCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.autoReconnectCount++
	return s.autoReconnectCount
}

// ResetAutoReconnectCount zeroes the count, e.g. after a run of healthy
// windows clears the recovery FSM.
func (s *State) ResetAutoReconnectCount() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.autoReconnectCount = 0
}

// SetCooloffUntil records the restart source and the cooloff deadline after
// a restart attempt eventually fails.
func (s *State) SetCooloffUntil(source Source, nowUs, cooloffUntilUs int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastRestartSource = source
	s.lastRestartFailureUs = nowUs
	s.lastRestartCooloffUntilUs = cooloffUntilUs
}

// SetNextStreamAllowedUs records the cooldown deadline before another
// restart attempt may be coordinated.
func (s *State) SetNextStreamAllowedUs(us int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextStreamAllowedUs = us
}

// SetInputsReady marks the input pipeline ready to publish snapshots.
func (s *State) SetInputsReady(ready bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inputsReady = ready
}

// RequestInputThreadExit sets input_thread_should_exit; the supervisor
// calls this before joining the input thread.
func (s *State) RequestInputThreadExit() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inputThreadShouldExit = true
}

// Finalize marks the session fully torn down.
func (s *State) Finalize() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.isStreaming = false
	s.sessionInit = false
}
