package supervisor

import "testing"

// TestLossGateScenarioSixBurstTrip reproduces spec scenario 6: Balanced
// profile, feeding [lost=3, lost=3, lost=3] within 400ms trips the burst
// gate on the third event.
func TestLossGateScenarioSixBurstTrip(t *testing.T) {
	p := BaselineProfile(Balanced)
	g := NewLossGate(NewLossWindow(p.WindowUs, 0), NewLossBurst(p.BurstWindowUs, 0))

	if got := g.Record(3, 0, p); got != GateNoTrip {
		t.Fatalf("event 1 = %v, want GateNoTrip", got)
	}
	if got := g.Record(3, 220_000, p); got != GateNoTrip {
		t.Fatalf("event 2 = %v, want GateNoTrip", got)
	}
	if got := g.Record(3, 300_000, p); got != GateStage1 {
		t.Fatalf("event 3 = %v, want GateStage1 (burst gate trips: 6 accumulated frames >= threshold 5)", got)
	}
}

func TestLossGateSecondTripWithinRecoveryWindowIsStage2(t *testing.T) {
	p := BaselineProfile(Balanced)
	g := NewLossGate(NewLossWindow(p.WindowUs, 0), NewLossBurst(p.BurstWindowUs, 0))

	// First trip via burst threshold (2+2+2 = 6 >= 5 on the third event).
	g.Record(2, 0, p)
	g.Record(2, 50_000, p)
	if got := g.Record(2, 100_000, p); got != GateStage1 {
		t.Fatalf("first trip = %v, want GateStage1", got)
	}

	// Second trip 1s later, well within the 8s recovery window.
	g.Record(2, 1_100_000, p)
	g.Record(2, 1_150_000, p)
	if got := g.Record(2, 1_200_000, p); got != GateStage2 {
		t.Fatalf("second trip within recovery window = %v, want GateStage2", got)
	}
}

func TestLossGateTripOutsideRecoveryWindowResetsToStage1(t *testing.T) {
	p := BaselineProfile(Balanced)
	g := NewLossGate(NewLossWindow(p.WindowUs, 0), NewLossBurst(p.BurstWindowUs, 0))

	g.Record(2, 0, p)
	g.Record(2, 50_000, p)
	g.Record(2, 100_000, p) // stage 1

	later := int64(100_000) + recoveryWindowUs + 1
	g.Record(2, later, p)
	g.Record(2, later+50_000, p)
	if got := g.Record(2, later+100_000, p); got != GateStage1 {
		t.Errorf("trip after recovery window elapsed = %v, want GateStage1", got)
	}
}
