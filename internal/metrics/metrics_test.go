package metrics

import "testing"

func TestDecodeWindowPublish(t *testing.T) {
	r := NewRecorder()
	r.RecordDecode(1000)
	r.RecordDecode(3000)
	r.RecordDecode(2000)
	r.PublishDecodeWindow()

	snap := r.Snapshot()
	if snap.DecodeAvgUs != 2000 {
		t.Errorf("DecodeAvgUs = %d, want 2000", snap.DecodeAvgUs)
	}
	if snap.DecodeMaxUs != 3000 {
		t.Errorf("DecodeMaxUs = %d, want 3000", snap.DecodeMaxUs)
	}

	// The window resets after publish.
	r.PublishDecodeWindow()
	snap = r.Snapshot()
	if snap.DecodeMaxUs != 0 {
		t.Errorf("DecodeMaxUs after empty window = %d, want 0", snap.DecodeMaxUs)
	}
}

func TestBitrateWindowClampsToSanityCeiling(t *testing.T) {
	r := NewRecorder()
	// Absurd sample: 1e9 bytes in a single frame at 30fps should clamp.
	r.RecordBitrateSample(1_000_000_000, 1, 30)
	snap := r.Snapshot()
	if snap.WindowedBitrateMbps != 100 {
		t.Errorf("WindowedBitrateMbps = %f, want clamped to 100", snap.WindowedBitrateMbps)
	}
}

func TestFrameOverwriteCounter(t *testing.T) {
	r := NewRecorder()
	r.IncFrameOverwrite()
	r.IncFrameOverwrite()
	if got := r.Snapshot().FrameOverwriteCount; got != 2 {
		t.Errorf("FrameOverwriteCount = %d, want 2", got)
	}
}
