package assembler

import "testing"

// Gap-extend-then-flush trace. The extend step widens the pending range to
// (10,14); the flush that follows reports that widened range, not the range
// as it stood before the extend — the "may extend e" rule in the contract
// makes (10,14) the only range consistent with a subsequent flush.
func TestGapExtendThenFlush(t *testing.T) {
	g := NewGapReportState(12)

	ev := g.Update(10, 12, 100)
	if ev.Action != ActionSetPending || ev.Range != (GapRange{10, 12}) {
		t.Fatalf("update1 = %v %v, want SET_PENDING(10,12)", ev.Action, ev.Range)
	}

	ev = g.Update(10, 14, 101)
	if ev.Action != ActionExtendPending || ev.Range != (GapRange{10, 14}) {
		t.Fatalf("update2 = %v %v, want EXTEND_PENDING(10,14)", ev.Action, ev.Range)
	}

	ev = g.Update(20, 24, 200)
	if ev.Action != ActionFlushPrevious || ev.Range != (GapRange{10, 14}) {
		t.Fatalf("update3 = %v %v, want FLUSH_PREVIOUS(10,14)", ev.Action, ev.Range)
	}

	pending, ok := g.Pending()
	if !ok || pending != (GapRange{20, 24}) {
		t.Errorf("pending after update3 = %v,%v, want (20,24),true", pending, ok)
	}
}

func TestGapIdleAlwaysSetsPending(t *testing.T) {
	g := NewGapReportState(12)
	ev := g.Update(5, 5, 0)
	if ev.Action != ActionSetPending {
		t.Errorf("first update from Idle = %v, want SET_PENDING", ev.Action)
	}
}

func TestGapDisjointFlushesBeforeSettingNewPending(t *testing.T) {
	g := NewGapReportState(12)
	g.Update(10, 12, 0)
	ev := g.Update(50, 52, 1)
	if ev.Action != ActionFlushPrevious || ev.Range != (GapRange{10, 12}) {
		t.Errorf("disjoint update = %v %v, want FLUSH_PREVIOUS(10,12)", ev.Action, ev.Range)
	}
	pending, ok := g.Pending()
	if !ok || pending != (GapRange{50, 52}) {
		t.Errorf("pending after disjoint update = %v,%v, want (50,52),true", pending, ok)
	}
}

func TestGapKeyframeFlushesAndClears(t *testing.T) {
	g := NewGapReportState(12)
	g.Update(10, 12, 0)
	ev, ok := g.OnKeyframe()
	if !ok || ev.Action != ActionFlushPrevious || ev.Range != (GapRange{10, 12}) {
		t.Errorf("OnKeyframe = %v,%v, want FLUSH_PREVIOUS(10,12),true", ev, ok)
	}
	if _, ok := g.Pending(); ok {
		t.Errorf("state should be Idle after a keyframe flush")
	}
	if _, ok := g.OnKeyframe(); ok {
		t.Errorf("OnKeyframe on an already-Idle FSM should report ok=false")
	}
}

func TestGapDeadlineFlush(t *testing.T) {
	g := NewGapReportState(12)
	g.Update(10, 12, 100)

	if _, ok := g.CheckDeadline(111); ok {
		t.Errorf("deadline check before 112 should not flush")
	}
	ev, ok := g.CheckDeadline(112)
	if !ok || ev.Action != ActionFlushPrevious || ev.Range != (GapRange{10, 12}) {
		t.Errorf("CheckDeadline at deadline = %v,%v, want FLUSH_PREVIOUS(10,12),true", ev, ok)
	}
	if _, ok := g.Pending(); ok {
		t.Errorf("state should be Idle after a deadline flush")
	}
}

func TestGapGraceDefaultsWhenNonPositive(t *testing.T) {
	g := NewGapReportState(0)
	g.Update(1, 1, 0)
	if _, ok := g.CheckDeadline(11); ok {
		t.Errorf("default grace is 12ms; should not flush at 11ms")
	}
	if _, ok := g.CheckDeadline(12); !ok {
		t.Errorf("default grace is 12ms; should flush at 12ms")
	}
}
