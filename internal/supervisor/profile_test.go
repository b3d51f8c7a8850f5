package supervisor

import "testing"

func TestBaselineProfileMatchesScenarioSixBalanced(t *testing.T) {
	p := BaselineProfile(Balanced)
	if p.WindowUs != 8_000_000 {
		t.Errorf("Balanced WindowUs = %d, want 8_000_000 (8s)", p.WindowUs)
	}
	if p.EventThreshold != 3 || p.FrameThreshold != 9 || p.BurstFrameThreshold != 5 {
		t.Errorf("Balanced thresholds = %+v, want event=3 frame=9 burst=5", p)
	}
	if p.BurstWindowUs != 220_000 {
		t.Errorf("Balanced BurstWindowUs = %d, want 220_000 (220ms)", p.BurstWindowUs)
	}
}

func TestResolveProfileTightensUnderLowBitrate(t *testing.T) {
	base := BaselineProfile(Balanced)
	got := ResolveProfile(Balanced, float64(base.TargetKbps)*0.5, 30, 30, 1)
	if got.EventThreshold <= base.EventThreshold {
		t.Errorf("EventThreshold = %d, want > baseline %d under low bitrate", got.EventThreshold, base.EventThreshold)
	}
}

func TestResolveProfileLoosensUnderHighBitrate(t *testing.T) {
	base := BaselineProfile(Balanced)
	got := ResolveProfile(Balanced, float64(base.TargetKbps)*1.5, 30, 30, 1)
	if got.EventThreshold >= base.EventThreshold {
		t.Errorf("EventThreshold = %d, want < baseline %d under high bitrate", got.EventThreshold, base.EventThreshold)
	}
}

func TestResolveProfileUltraLowZeroRetriesDropsEventThresholdButNotBelowOne(t *testing.T) {
	got := ResolveProfile(UltraLow, float64(baselineProfiles[UltraLow].TargetKbps), 30, 30, 0)
	if got.EventThreshold < 1 {
		t.Errorf("EventThreshold = %d, must never drop below 1", got.EventThreshold)
	}
}

func TestResolveProfileRaisesThresholdsUnderLowFPS(t *testing.T) {
	base := BaselineProfile(Balanced)
	got := ResolveProfile(Balanced, float64(base.TargetKbps), 20, 30, 1)
	if got.EventThreshold <= base.EventThreshold {
		t.Error("low measured FPS should raise EventThreshold above baseline")
	}
}
