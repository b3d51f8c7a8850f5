package video

import "testing"

func TestPacerAdmitsExactRatioOverWindow(t *testing.T) {
	p := NewPacer(30, 60)
	admitted := 0
	for i := 0; i < 60; i++ {
		if p.Admit() {
			admitted++
		}
	}
	if admitted != 30 {
		t.Errorf("admitted = %d over 60 frames, want exactly 30", admitted)
	}
}

func TestPacerAdmitsEveryFrameWhenIncomingAtTarget(t *testing.T) {
	p := NewPacer(30, 30)
	for i := 0; i < 10; i++ {
		if !p.Admit() {
			t.Fatalf("frame %d dropped, want admitted (target == incoming)", i)
		}
	}
}

func TestPacerForce30FPSOverridesHigherTarget(t *testing.T) {
	p := NewPacer(60, 120)
	p.SetForce30FPS(true)
	admitted := 0
	for i := 0; i < 120; i++ {
		if p.Admit() {
			admitted++
		}
	}
	if admitted != 30 {
		t.Errorf("admitted = %d over 120 frames with force_30fps, want 30", admitted)
	}
}

func TestPacerRequestDropForcesNextFramesToDrop(t *testing.T) {
	p := NewPacer(30, 30)
	p.RequestDrop(2)
	if p.Admit() {
		t.Error("frame 1 should be forced-dropped")
	}
	if p.Admit() {
		t.Error("frame 2 should be forced-dropped")
	}
	if !p.Admit() {
		t.Error("frame 3 should be admitted once forced drops are exhausted")
	}
}
