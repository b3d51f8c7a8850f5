package supervisor

// recoveryWindowUs is the ≈8s span within which a second gate trip is
// treated as stage-2 rather than a fresh stage-1.
const recoveryWindowUs = 8_000_000

// GateStage distinguishes a first gate trip within a recovery window from
// a second one.
type GateStage int

const (
	GateNoTrip GateStage = iota
	GateStage1
	GateStage2
)

// LossGate evaluates the window/burst accumulators against a Profile's
// thresholds and tracks the per-session recovery-gate counter across an
// 8s recovery window.
type LossGate struct {
	window *LossWindow
	burst  *LossBurst

	recoveryGateCount  int
	recoveryWindowStart int64
	haveRecoveryWindow bool
}

// NewLossGate creates a gate backed by the given accumulators.
func NewLossGate(window *LossWindow, burst *LossBurst) *LossGate {
	return &LossGate{window: window, burst: burst}
}

// Record folds one loss event into both accumulators and evaluates whether
// it trips the gate, per the profile's thresholds. On a trip, both
// accumulators are reset and the stage (1 or 2, within the rolling
// recovery window) is returned; restart is never triggered by this
// function alone — loss gate trips only ever request an IDR / resync
// follow-up.
func (g *LossGate) Record(framesLost int, nowUs int64, p Profile) GateStage {
	g.window.Add(framesLost, nowUs)
	g.burst.Add(framesLost, nowUs)

	tripped := g.burst.FrameAccum() >= uint32(p.BurstFrameThreshold) ||
		(g.window.EventCount() >= uint32(p.EventThreshold) && g.window.FrameAccum() >= uint32(p.FrameThreshold))
	if !tripped {
		return GateNoTrip
	}

	g.window.Reset(nowUs)
	g.burst.Reset(nowUs)

	if !g.haveRecoveryWindow || nowUs-g.recoveryWindowStart >= recoveryWindowUs {
		g.recoveryWindowStart = nowUs
		g.haveRecoveryWindow = true
		g.recoveryGateCount = 1
		return GateStage1
	}

	g.recoveryGateCount++
	if g.recoveryGateCount >= 2 {
		// Stage-2 resets to stage-1 bookkeeping for future trips, so a
		// third trip within the same window is stage-1 again; there is no
		// stage-3.
		g.recoveryGateCount = 0
		g.haveRecoveryWindow = false
		return GateStage2
	}
	return GateStage1
}
