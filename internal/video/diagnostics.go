package video

import (
	"sync"

	"vitarp/internal/metrics"
)

// DiagnosticsSource is the session transport's diagnostics state, guarded
// by its own mutex. C3 never blocks on it — a busy transport just means
// this tick's snapshot is stale.
type DiagnosticsSource interface {
	TryLock() bool
	Unlock()
	Snapshot() metrics.AVDiagnostics
}

// DiagnosticsSampler samples a DiagnosticsSource once per metrics tick,
// tracking the stale-snapshot streak spec'd as C5's AV-distress signal when
// the transport's diagnostics lock stays contended for too long.
type DiagnosticsSampler struct {
	mu sync.Mutex

	last        metrics.AVDiagnostics
	haveLast    bool
	staleStreak uint32
}

// Sample attempts a non-blocking copy of src's diagnostics. On success it
// returns the fresh snapshot and resets the stale streak; on contention it
// returns the last known-good snapshot (if any) and increments the streak.
func (d *DiagnosticsSampler) Sample(src DiagnosticsSource) (snap metrics.AVDiagnostics, fresh bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !src.TryLock() {
		d.staleStreak++
		return d.last, false
	}
	snap = src.Snapshot()
	src.Unlock()
	d.last = snap
	d.haveLast = true
	d.staleStreak = 0
	return snap, true
}

// StaleStreak returns the current count of consecutive contended ticks.
func (d *DiagnosticsSampler) StaleStreak() uint32 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.staleStreak
}

// staleStreakDistressThreshold is the consecutive-stale-tick count at which
// C5 should start treating a sustained-low-FPS session as AV distress
// rather than ordinary jitter, so the supervisor isn't blind under
// sustained lock pressure on the transport's diagnostics mutex.
const staleStreakDistressThreshold = 5

// IsDistressed reports whether the stale streak alone has crossed the
// threshold C5 combines with a low-FPS reading to declare AV distress.
func (d *DiagnosticsSampler) IsDistressed() bool {
	return d.StaleStreak() >= staleStreakDistressThreshold
}
