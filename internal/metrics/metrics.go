// Package metrics holds the shared stream-health counters C1–C3 publish and
// C5 reads: decode timings, bitrate, display FPS, and the session's AV
// diagnostics snapshot. A single Recorder is constructed in client.New
// (internal/client) and threaded into every component that has something
// to report.
package metrics

import "sync"

// Snapshot is the read-only view of StreamMetrics handed to the renderer,
// the supervisor, and the optional Prometheus exporter. All fields are
// copied out under a narrow lock, never shared by pointer.
type Snapshot struct {
	MeasuredRTTMs        float64
	MeasuredBitrateMbps  float64
	WindowedBitrateMbps  float64
	MeasuredIncomingFPS  float64
	TargetFPS            int
	NegotiatedFPS        int
	DecodeTimeUs         int64
	DecodeAvgUs          int64
	DecodeMaxUs          int64
	DisplayFPS           float64
	FrameOverwriteCount  uint64
	TakionDropEvents     uint64
	TakionDropPackets    uint64
	AVMissingRefCount    uint64
	AVCorruptBurstCount  uint64
	AVFecFailCount       uint64
	AVSendbufOverflowCnt uint64
}

// Recorder is the single writer of StreamMetrics. All field groups share
// one mutex, held only for the few assignments of a single update or for
// the copy in Snapshot, so a decode-timing update and a bitrate update
// briefly serialize against each other.
type Recorder struct {
	mu   sync.Mutex
	snap Snapshot

	decodeWindowTotalUs int64
	decodeWindowMaxUs   int64
	decodeWindowCount   int64

	bitrate bitrateRing
}

// NewRecorder creates a zeroed Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Snapshot returns a copy of the current metrics.
func (r *Recorder) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snap
}

// RecordDecode records one decoded frame's cost and accumulates it into the
// rolling 1s window that PublishDecodeWindow later flushes.
func (r *Recorder) RecordDecode(us int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snap.DecodeTimeUs = us
	r.decodeWindowTotalUs += us
	r.decodeWindowCount++
	if us > r.decodeWindowMaxUs {
		r.decodeWindowMaxUs = us
	}
}

// PublishDecodeWindow is called once per ~1s wall-clock tick: it computes
// decode_avg_us/decode_max_us from the accumulated window and resets it.
func (r *Recorder) PublishDecodeWindow() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.decodeWindowCount > 0 {
		r.snap.DecodeAvgUs = r.decodeWindowTotalUs / r.decodeWindowCount
	}
	r.snap.DecodeMaxUs = r.decodeWindowMaxUs
	r.decodeWindowTotalUs = 0
	r.decodeWindowMaxUs = 0
	r.decodeWindowCount = 0
}

// RecordBitrateSample pushes one ~1s window's (bytes, frames) into the
// 3-sample ring and recomputes the windowed Mbps figure, clamped to a
// sanity ceiling.
func (r *Recorder) RecordBitrateSample(bytes int64, frames int64, fps float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bitrate.push(bytes, frames)
	mbps := r.bitrate.windowedMbps(fps)
	const ceilingMbps = 100.0
	if mbps > ceilingMbps {
		mbps = ceilingMbps
	}
	r.snap.WindowedBitrateMbps = mbps
	r.snap.MeasuredBitrateMbps = mbps
}

// SetDisplayFPS records frames actually presented in the last 1s window.
func (r *Recorder) SetDisplayFPS(fps float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snap.DisplayFPS = fps
}

// IncFrameOverwrite increments the counter for a decoded frame arriving
// before the renderer consumed the previous one.
func (r *Recorder) IncFrameOverwrite() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snap.FrameOverwriteCount++
}

// SetIncomingFPS records the measured rate of frames arriving from the
// network, independent of how many are actually displayed.
func (r *Recorder) SetIncomingFPS(fps float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snap.MeasuredIncomingFPS = fps
}

// SetTargetFPS records the negotiated/target frame rate pair.
func (r *Recorder) SetTargetFPS(target, negotiated int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snap.TargetFPS = target
	r.snap.NegotiatedFPS = negotiated
}

// SetRTT records the measured round-trip time.
func (r *Recorder) SetRTT(ms float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snap.MeasuredRTTMs = ms
}

// AVDiagnostics is the subset of the session transport's diagnostics
// mutex-guarded struct that C3 copies on a successful try-lock.
type AVDiagnostics struct {
	DropEvents         uint64
	DropPackets        uint64
	MissingRef         uint64
	CorruptBurst       uint64
	FecFail            uint64
	SendbufOverflow    uint64
	LastCorruptStartUs int64
	LastCorruptEndUs   int64
}

// ApplyAVDiagnostics records a fresh diagnostics snapshot copied under the
// transport's try-lock.
func (r *Recorder) ApplyAVDiagnostics(d AVDiagnostics) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snap.TakionDropEvents = d.DropEvents
	r.snap.TakionDropPackets = d.DropPackets
	r.snap.AVMissingRefCount = d.MissingRef
	r.snap.AVCorruptBurstCount = d.CorruptBurst
	r.snap.AVFecFailCount = d.FecFail
	r.snap.AVSendbufOverflowCnt = d.SendbufOverflow
}
