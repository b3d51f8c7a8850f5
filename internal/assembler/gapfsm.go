// Package assembler implements the frame assembler and gap-report FSM (C2):
// it consumes ordered video units out of the C1 reorder buffer, groups them
// into decode-ready frames, and tracks declared sequence-number gaps through
// a small state machine so a burst of loss is reported once, not once per
// missing packet.
package assembler

// GapAction is one of the actions the gap-report FSM can emit on an update.
type GapAction int

const (
	ActionNone GapAction = iota
	ActionSetPending
	ActionExtendPending
	ActionFlushPrevious
)

func (a GapAction) String() string {
	switch a {
	case ActionSetPending:
		return "SET_PENDING"
	case ActionExtendPending:
		return "EXTEND_PENDING"
	case ActionFlushPrevious:
		return "FLUSH_PREVIOUS"
	default:
		return "NONE"
	}
}

// GapRange is an inclusive range of missing sequence numbers.
type GapRange struct {
	Start, End uint16
}

// overlaps reports whether r and o describe "the same" gap — touching or
// overlapping ranges that should be coalesced rather than treated as a fresh
// disjoint loss.
func (r GapRange) overlaps(o GapRange) bool {
	return o.Start <= r.End+1 && r.Start <= o.End+1
}

// GapEvent is one action emitted by Update, carrying the range it concerns.
// For ActionFlushPrevious, Range is the range being flushed (the pending
// range as it stood immediately before this update); for ActionSetPending,
// Range is the newly pending range.
type GapEvent struct {
	Action GapAction
	Range  GapRange
}

// defaultGapGraceMs is the policy default for Δ, the gap grace period.
const defaultGapGraceMs = 12

// GapReportState is the Idle/Pending FSM from the contract: a batch of
// missing sequence numbers arrives, and the state machine decides whether
// it's new, an extension of the current pending gap, or evidence the
// previous gap is over and should be flushed.
type GapReportState struct {
	graceMs int64

	pending  bool
	rng      GapRange
	deadline int64
}

// NewGapReportState creates an Idle FSM. graceMs is Δ; 0 selects the
// policy default (12 ms).
func NewGapReportState(graceMs int64) *GapReportState {
	if graceMs <= 0 {
		graceMs = defaultGapGraceMs
	}
	return &GapReportState{graceMs: graceMs}
}

// Update feeds a newly-declared missing range [s,e] observed at nowMs.
func (g *GapReportState) Update(s, e uint16, nowMs int64) GapEvent {
	incoming := GapRange{Start: s, End: e}

	if !g.pending {
		g.setPending(incoming, nowMs)
		return GapEvent{Action: ActionSetPending, Range: incoming}
	}

	if g.rng.overlaps(incoming) {
		if incoming.End > g.rng.End {
			g.rng.End = incoming.End
		}
		if incoming.Start < g.rng.Start {
			g.rng.Start = incoming.Start
		}
		return GapEvent{Action: ActionExtendPending, Range: g.rng}
	}

	flushed := g.rng
	g.setPending(incoming, nowMs)
	return GapEvent{Action: ActionFlushPrevious, Range: flushed}
}

// OnKeyframe reports a keyframe arrival: any pending gap is flushed and
// forgotten, since a keyframe makes further loss-repair of the old gap
// moot.
func (g *GapReportState) OnKeyframe() (flushed GapEvent, ok bool) {
	if !g.pending {
		return GapEvent{}, false
	}
	flushed = GapEvent{Action: ActionFlushPrevious, Range: g.rng}
	g.clear()
	return flushed, true
}

// CheckDeadline is called opportunistically (on each metrics tick, or
// whenever the caller is idle) to flush a pending gap whose grace period has
// elapsed without a follow-up update.
func (g *GapReportState) CheckDeadline(nowMs int64) (flushed GapEvent, ok bool) {
	if !g.pending || nowMs < g.deadline {
		return GapEvent{}, false
	}
	flushed = GapEvent{Action: ActionFlushPrevious, Range: g.rng}
	g.clear()
	return flushed, true
}

// Pending reports the current pending range, if any.
func (g *GapReportState) Pending() (GapRange, bool) {
	return g.rng, g.pending
}

// Clear resolves a pending gap without flushing it — used when the missing
// data turns out to have just been reordered, not lost, so nothing should be
// reported to the loss accumulators.
func (g *GapReportState) Clear() {
	g.clear()
}

func (g *GapReportState) setPending(r GapRange, nowMs int64) {
	g.pending = true
	g.rng = r
	g.deadline = nowMs + g.graceMs
}

func (g *GapReportState) clear() {
	g.pending = false
	g.rng = GapRange{}
	g.deadline = 0
}
