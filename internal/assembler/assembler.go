package assembler

import "vitarp/internal/reorder"

// Unit is one FEC-protected video transport unit handed to the assembler in
// arrival order (not necessarily sequence order — that's C1's job).
type Unit struct {
	Seq    uint16
	Data   []byte
	Marker bool // true on the last unit of a frame (RTP marker bit convention)
}

// LossReporter is C2's hook into C5: every declared loss event is reported
// here so the supervisor can drive its saturating window/burst counters.
type LossReporter interface {
	ReportLoss(framesLost int, recovered bool)
}

// Frame is one decode-ready assembled frame.
type Frame struct {
	Bytes     []byte
	Seq       uint16 // sequence number of the frame's first unit
	Recovered bool   // decoder can continue without a fresh keyframe
}

// Assembler reassembles ordered units into frames and tracks gaps through
// the GapReportState FSM, reporting loss to C5 via LossReporter. Not safe
// for concurrent use — callers serialize access, same as the reorder buffer
// it wraps.
type Assembler struct {
	buf      *reorder.Buffer
	gap      *GapReportState
	reporter LossReporter

	accum      []byte
	accumStart uint16
	accumming  bool
}

// New creates an assembler over a reorder ring of the given capacity,
// anchored at initial sequence number base. gapGraceMs is Δ (0 selects the
// 12ms policy default).
func New(capacity int, base uint16, gapGraceMs int64, reporter LossReporter) *Assembler {
	return &Assembler{
		buf:      reorder.New(capacity, base),
		gap:      NewGapReportState(gapGraceMs),
		reporter: reporter,
	}
}

// Feed admits one arriving unit and returns any frames it completes.
// Multiple frames can complete from a single Feed call once a gap's
// follow-up data arrives and the ring drains past it.
func (a *Assembler) Feed(u Unit, nowMs int64) []Frame {
	if !a.buf.Push(u.Seq, u) {
		// Either a duplicate (already consumed or already held) or seq is
		// far enough ahead that it doesn't fit the window at all — force
		// the window forward so forward progress isn't blocked forever by
		// one errant unit.
		if distanceAhead(u.Seq, a.buf.Base(), a.buf.Cap()) {
			// The unit doesn't fit the window at all: declare everything
			// between the current base and it an unrecoverable gap and
			// force the ring forward, rather than dropping the unit.
			base := a.buf.Base()
			if ev := a.gap.Update(base, u.Seq-1, nowMs); ev.Action == ActionFlushPrevious {
				a.reportFlush(ev)
			}
			a.advanceRingTo(u.Seq)
			a.buf.Push(u.Seq, u)
		}
	}

	frames := a.drain()
	a.trackGap(nowMs)

	if ev, ok := a.gap.CheckDeadline(nowMs); ok {
		a.reportFlush(ev)
		a.advanceRingTo(ev.Range.End + 1)
		frames = append(frames, a.drain()...)
	}

	return frames
}

// trackGap notes the hole currently blocking the head of the window (if
// any) in the gap FSM, so CheckDeadline has an accurate range and deadline
// to act on. It never flushes by itself — only CheckDeadline and OnKeyframe
// do that — so a gap that's still within its grace period just gets its
// range tracked, not reported. If the head is no longer blocked (the
// missing unit turned out to just be reordered, not lost), any previously
// tracked gap is cleared silently.
func (a *Assembler) trackGap(nowMs int64) {
	idx, firstSeq, _, ok := a.buf.FindFirstSet()
	if !ok || idx == 0 {
		a.gap.Clear()
		return
	}
	a.gap.Update(a.buf.Base(), firstSeq-1, nowMs)
}

// drain pulls every contiguous unit currently at the head of the window,
// accumulating payload bytes into the in-progress frame and emitting a
// completed Frame whenever a marker unit is consumed.
func (a *Assembler) drain() []Frame {
	var frames []Frame
	for {
		seq, v, ok := a.buf.Pull()
		if !ok {
			return frames
		}
		u := v.(Unit)
		if !a.accumming {
			a.accumStart = seq
			a.accumming = true
		}
		a.accum = append(a.accum, u.Data...)
		if u.Marker {
			frames = append(frames, Frame{Bytes: a.accum, Seq: a.accumStart, Recovered: true})
			a.accum = nil
			a.accumming = false
		}
	}
}

// OnKeyframe notifies the assembler that a keyframe unit arrived, resolving
// any pending gap without waiting for its deadline.
func (a *Assembler) OnKeyframe(nowMs int64) {
	if ev, ok := a.gap.OnKeyframe(); ok {
		a.reportFlush(ev)
	}
}

func (a *Assembler) reportFlush(ev GapEvent) {
	if ev.Action != ActionFlushPrevious || a.reporter == nil {
		return
	}
	a.reporter.ReportLoss(gapLen(ev.Range), true)
}

// advanceRingTo steps the ring forward (releasing whatever it passes over)
// until its base reaches target. Purely mechanical — callers are
// responsible for having already accounted for the skipped range with the
// gap FSM, if that accounting matters.
func (a *Assembler) advanceRingTo(target uint16) {
	base := a.buf.Base()
	steps := int(target - base)
	for i := 0; i < steps && a.buf.Base() != target; i++ {
		a.buf.SkipGap()
	}
}

func gapLen(r GapRange) int {
	return int(int16(r.End-r.Start)) + 1
}

// distanceAhead reports whether seq is ahead of the window entirely (as
// opposed to behind it, which means a plain duplicate/late arrival).
func distanceAhead(seq, base uint16, size int) bool {
	d := int16(seq - base)
	return int(d) >= size
}
