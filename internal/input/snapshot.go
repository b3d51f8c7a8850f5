package input

// TouchContact is one active touchpad contact in a ControllerSnapshot.
type TouchContact struct {
	ID   int
	X, Y float64
}

// Snapshot is overwritten each input tick and cached across soft restarts
// so the remote end keeps seeing continuous state while the gate is closed
// or the session is mid-reconnect.
type Snapshot struct {
	Buttons  uint32
	AxisLX   int8
	AxisLY   int8
	AxisRX   int8
	AxisRY   int8
	TriggerL2 byte // 0x00 or 0xff, driven by the mapping table's in_l2 slot
	TriggerR2 byte
	MotionX  float64
	MotionY  float64
	MotionZ  float64
	Touches  []TouchContact
}

// Gate gates the input loop behind a controller_gate_open boolean, tracking
// blocked time for diagnostics while closed, and re-using the last valid
// snapshot across soft restarts so the remote end sees continuous state
// instead of a discontinuity.
type Gate struct {
	open         bool
	lastGood     Snapshot
	blockedTicks uint64
}

// SetOpen toggles the gate.
func (g *Gate) SetOpen(open bool) {
	g.open = open
}

// Open reports whether the gate currently permits sending fresh snapshots.
func (g *Gate) Open() bool {
	return g.open
}

// Publish records a freshly sampled snapshot as the last-known-good one,
// returning it only if the gate is open; otherwise it counts one blocked
// tick and returns the previously cached snapshot.
func (g *Gate) Publish(fresh Snapshot) Snapshot {
	if !g.open {
		g.blockedTicks++
		return g.lastGood
	}
	g.lastGood = fresh
	return fresh
}

// BlockedTicks returns the cumulative count of ticks spent with the gate
// closed, for diagnostics.
func (g *Gate) BlockedTicks() uint64 {
	return g.blockedTicks
}
