package video

import "sync/atomic"

// Pacer implements the fractional rate-control accumulator: given a target
// presentation rate and the measured incoming rate, it decides per-frame
// whether to decode/present or drop, converging on target/incoming over any
// window without needing a fixed-size sampling buffer.
type Pacer struct {
	target   int64 // fixed-point, see acc
	incoming int64
	acc      int64

	force30  atomic.Bool
	needDrop atomic.Uint64 // forced drops requested by the stream supervisor
}

// NewPacer creates a Pacer with the given target and incoming fps.
func NewPacer(targetFPS, incomingFPS int) *Pacer {
	p := &Pacer{target: int64(targetFPS), incoming: int64(incomingFPS)}
	if p.incoming <= 0 {
		p.incoming = p.target
	}
	return p
}

// SetRates updates the target/incoming fps the accumulator paces against.
// Does not reset acc — a rate change mid-stream should bias forward from
// wherever the accumulator currently sits, not restart the cadence.
func (p *Pacer) SetRates(targetFPS, incomingFPS int) {
	p.target = int64(targetFPS)
	if incomingFPS > 0 {
		p.incoming = int64(incomingFPS)
	}
}

// SetForce30FPS toggles force-30fps mode: while the incoming rate exceeds
// the target, Admit paces against 30 fps instead of the target.
func (p *Pacer) SetForce30FPS(on bool) {
	p.force30.Store(on)
}

// RequestDrop queues n forced drops, e.g. after a supervisor-driven resync
// where the next several frames must be discarded regardless of pacing.
func (p *Pacer) RequestDrop(n uint64) {
	p.needDrop.Add(n)
}

// Admit reports whether the next frame should be presented (true) or
// dropped (false), advancing the accumulator exactly once per call. The
// plain acc += target; if acc < incoming drop else acc -= incoming rule is
// already an exact target/incoming decimation over any window, so
// force_30fps only needs to pin target to 30 — it doesn't need a second
// algorithm.
func (p *Pacer) Admit() bool {
	if p.takeForcedDrop() {
		return false
	}
	target := p.target
	if p.force30.Load() && p.incoming > target {
		target = 30
	}
	p.acc += target
	if p.acc < p.incoming {
		return false
	}
	p.acc -= p.incoming
	return true
}

func (p *Pacer) takeForcedDrop() bool {
	for {
		n := p.needDrop.Load()
		if n == 0 {
			return false
		}
		if p.needDrop.CompareAndSwap(n, n-1) {
			return true
		}
	}
}
