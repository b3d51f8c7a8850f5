package input

import "testing"

func TestExitComboFiresOnceAtThreshold(t *testing.T) {
	var c ExitCombo
	fired := 0
	for i := 0; i < exitComboTicks+10; i++ {
		if c.Tick(true) {
			fired++
		}
	}
	if fired != 1 {
		t.Errorf("fired = %d times, want exactly 1", fired)
	}
}

func TestExitComboResetsOnRelease(t *testing.T) {
	var c ExitCombo
	for i := 0; i < exitComboTicks-1; i++ {
		c.Tick(true)
	}
	c.Tick(false) // release just before threshold
	fired := false
	for i := 0; i < exitComboTicks-1; i++ {
		if c.Tick(true) {
			fired = true
		}
	}
	if fired {
		t.Error("combo should not fire before a full re-held threshold after release")
	}
}

func TestExitComboCanFireAgainAfterReleaseAndRehold(t *testing.T) {
	var c ExitCombo
	for i := 0; i < exitComboTicks; i++ {
		c.Tick(true)
	}
	c.Tick(false)
	fired := false
	for i := 0; i < exitComboTicks; i++ {
		if c.Tick(true) {
			fired = true
		}
	}
	if !fired {
		t.Error("combo should be able to fire again after a release and fresh hold")
	}
}
