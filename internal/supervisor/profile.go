package supervisor

// LatencyMode selects the loss-gate baseline profile and target bitrate.
type LatencyMode int

const (
	UltraLow LatencyMode = iota
	Low
	Balanced
	High
	Max
)

// Profile is the loss-gate threshold set a LatencyMode resolves to, plus
// its target bitrate.
type Profile struct {
	TargetKbps         int
	WindowUs           int64
	MinFrames          int
	EventThreshold     int
	FrameThreshold     int
	BurstWindowUs      int64
	BurstFrameThreshold int
}

// baselineProfiles are the per-mode starting points for each latency mode.
var baselineProfiles = map[LatencyMode]Profile{
	UltraLow: {TargetKbps: 1200, WindowUs: 6_000_000, MinFrames: 60, EventThreshold: 2, FrameThreshold: 6, BurstWindowUs: 180_000, BurstFrameThreshold: 4},
	Low:      {TargetKbps: 1800, WindowUs: 7_000_000, MinFrames: 70, EventThreshold: 3, FrameThreshold: 8, BurstWindowUs: 200_000, BurstFrameThreshold: 5},
	Balanced: {TargetKbps: 2600, WindowUs: 8_000_000, MinFrames: 80, EventThreshold: 3, FrameThreshold: 9, BurstWindowUs: 220_000, BurstFrameThreshold: 5},
	High:     {TargetKbps: 3200, WindowUs: 9_000_000, MinFrames: 90, EventThreshold: 4, FrameThreshold: 11, BurstWindowUs: 240_000, BurstFrameThreshold: 6},
	Max:      {TargetKbps: 3800, WindowUs: 10_000_000, MinFrames: 100, EventThreshold: 4, FrameThreshold: 12, BurstWindowUs: 260_000, BurstFrameThreshold: 7},
}

// BaselineProfile returns the documented starting profile for mode.
func BaselineProfile(mode LatencyMode) Profile {
	return baselineProfiles[mode]
}

// ResolveProfile applies the measured-condition adjustments on top of
// mode's baseline: bitrate under/over target tightens
// or loosens thresholds; FPS under target raises thresholds; UltraLow with
// zero prior retries drops event_threshold by 1, bounded at 1.
func ResolveProfile(mode LatencyMode, measuredBitrateKbps, measuredFPS, targetFPS float64, priorRetries int) Profile {
	p := BaselineProfile(mode)

	if p.TargetKbps > 0 {
		ratio := measuredBitrateKbps / float64(p.TargetKbps)
		switch {
		case ratio <= 0.85:
			p.EventThreshold++
			p.FrameThreshold += 2
			p.WindowUs += p.WindowUs / 4
		case ratio >= 1.20:
			p.EventThreshold = clampMin(p.EventThreshold-1, 1)
			p.FrameThreshold = clampMin(p.FrameThreshold-2, 1)
			p.WindowUs -= p.WindowUs / 4
			p.BurstWindowUs -= p.BurstWindowUs / 4
		}
	}

	if measuredFPS <= targetFPS {
		p.EventThreshold++
		p.FrameThreshold++
		p.BurstFrameThreshold++
	}

	if mode == UltraLow && priorRetries == 0 {
		p.EventThreshold = clampMin(p.EventThreshold-1, 1)
	}

	return p
}

func clampMin(v, min int) int {
	if v < min {
		return min
	}
	return v
}
