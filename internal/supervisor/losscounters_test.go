package supervisor

import "testing"

func TestLossWindowAccumulatesEventsAndFrames(t *testing.T) {
	w := NewLossWindow(8_000_000, 0)
	w.Add(3, 100)
	w.Add(3, 200)
	w.Add(3, 300)
	if w.EventCount() != 3 {
		t.Errorf("EventCount() = %d, want 3", w.EventCount())
	}
	if w.FrameAccum() != 9 {
		t.Errorf("FrameAccum() = %d, want 9", w.FrameAccum())
	}
}

func TestLossWindowRollsOverOnExpiry(t *testing.T) {
	w := NewLossWindow(1_000_000, 0)
	w.Add(5, 100)
	w.Add(5, 1_500_000) // past the 1s window: rolls before accumulating
	if w.EventCount() != 1 {
		t.Errorf("EventCount() after roll = %d, want 1 (only the post-roll event)", w.EventCount())
	}
	if w.FrameAccum() != 5 {
		t.Errorf("FrameAccum() after roll = %d, want 5", w.FrameAccum())
	}
}

func TestLossWindowResetZeroesBothAccumulators(t *testing.T) {
	w := NewLossWindow(8_000_000, 0)
	w.Add(5, 100)
	w.Reset(200)
	if w.EventCount() != 0 || w.FrameAccum() != 0 {
		t.Errorf("after Reset: EventCount=%d FrameAccum=%d, want 0,0", w.EventCount(), w.FrameAccum())
	}
}

func TestLossBurstAccumulatesWithinBurstWindow(t *testing.T) {
	b := NewLossBurst(220_000, 0)
	b.Add(3, 0)
	b.Add(3, 100_000)
	b.Add(3, 200_000)
	if b.FrameAccum() != 9 {
		t.Errorf("FrameAccum() = %d, want 9", b.FrameAccum())
	}
}
