package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusExporter mirrors a Recorder's snapshot onto Prometheus
// gauges/counters for headless deployments (a kiosk box with no local
// renderer) where an external dashboard watches stream health instead of an
// in-process overlay. Grounded on the nil-safe promauto.With(registry)
// pattern the pack uses for its own optional metrics backends.
type PrometheusExporter struct {
	recorder *Recorder

	bitrateMbps     prometheus.Gauge
	decodeAvgUs     prometheus.Gauge
	decodeMaxUs     prometheus.Gauge
	displayFPS      prometheus.Gauge
	incomingFPS     prometheus.Gauge
	frameOverwrites prometheus.Counter
	dropEvents      prometheus.Counter
	dropPackets     prometheus.Counter
	avMissingRef    prometheus.Counter
	avCorruptBurst  prometheus.Counter
	avFecFail       prometheus.Counter

	// lastX track the cumulative Snapshot values already folded into the
	// corresponding Counter, since prometheus.Counter only supports Add
	// (delta), not Set (absolute).
	lastFrameOverwrites uint64
	lastDropEvents      uint64
	lastDropPackets     uint64
	lastAVMissingRef    uint64
	lastAVCorruptBurst  uint64
	lastAVFecFail       uint64
}

// NewPrometheusExporter registers the stream's gauges/counters against reg
// and returns an exporter that periodically copies Recorder state onto
// them. reg is typically prometheus.NewRegistry(), not the global default,
// so a headless client run embedded in another process doesn't collide with
// that process's own metrics.
func NewPrometheusExporter(reg prometheus.Registerer, recorder *Recorder) *PrometheusExporter {
	factory := promauto.With(reg)
	return &PrometheusExporter{
		recorder: recorder,
		bitrateMbps: factory.NewGauge(prometheus.GaugeOpts{
			Name: "vitarp_stream_bitrate_mbps",
			Help: "Windowed measured video bitrate in megabits per second.",
		}),
		decodeAvgUs: factory.NewGauge(prometheus.GaugeOpts{
			Name: "vitarp_decode_avg_microseconds",
			Help: "Average decode time over the last ~1s window.",
		}),
		decodeMaxUs: factory.NewGauge(prometheus.GaugeOpts{
			Name: "vitarp_decode_max_microseconds",
			Help: "Max decode time over the last ~1s window.",
		}),
		displayFPS: factory.NewGauge(prometheus.GaugeOpts{
			Name: "vitarp_display_fps",
			Help: "Frames actually presented per second.",
		}),
		incomingFPS: factory.NewGauge(prometheus.GaugeOpts{
			Name: "vitarp_incoming_fps",
			Help: "Frames arriving from the session transport per second.",
		}),
		frameOverwrites: factory.NewCounter(prometheus.CounterOpts{
			Name: "vitarp_frame_overwrites_total",
			Help: "Times a newly decoded frame arrived before the renderer consumed the previous one.",
		}),
		dropEvents: factory.NewCounter(prometheus.CounterOpts{
			Name: "vitarp_transport_drop_events_total",
			Help: "Session transport drop events reported by the diagnostics snapshot.",
		}),
		dropPackets: factory.NewCounter(prometheus.CounterOpts{
			Name: "vitarp_transport_drop_packets_total",
			Help: "Session transport dropped packets reported by the diagnostics snapshot.",
		}),
		avMissingRef: factory.NewCounter(prometheus.CounterOpts{
			Name: "vitarp_av_missing_ref_total",
			Help: "Decoder missing-reference events.",
		}),
		avCorruptBurst: factory.NewCounter(prometheus.CounterOpts{
			Name: "vitarp_av_corrupt_burst_total",
			Help: "Decoder corrupt-burst events.",
		}),
		avFecFail: factory.NewCounter(prometheus.CounterOpts{
			Name: "vitarp_av_fec_fail_total",
			Help: "FEC recovery failures.",
		}),
	}
}

// Sync copies the current snapshot onto the registered collectors. Counters
// are monotonic in Snapshot already, so Sync sets them to the absolute
// value via Add(delta) against the last-seen value.
func (e *PrometheusExporter) Sync() {
	snap := e.recorder.Snapshot()
	e.bitrateMbps.Set(snap.WindowedBitrateMbps)
	e.decodeAvgUs.Set(float64(snap.DecodeAvgUs))
	e.decodeMaxUs.Set(float64(snap.DecodeMaxUs))
	e.displayFPS.Set(snap.DisplayFPS)
	e.incomingFPS.Set(snap.MeasuredIncomingFPS)

	addDelta(e.frameOverwrites, &e.lastFrameOverwrites, snap.FrameOverwriteCount)
	addDelta(e.dropEvents, &e.lastDropEvents, snap.TakionDropEvents)
	addDelta(e.dropPackets, &e.lastDropPackets, snap.TakionDropPackets)
	addDelta(e.avMissingRef, &e.lastAVMissingRef, snap.AVMissingRefCount)
	addDelta(e.avCorruptBurst, &e.lastAVCorruptBurst, snap.AVCorruptBurstCount)
	addDelta(e.avFecFail, &e.lastAVFecFail, snap.AVFecFailCount)
}

// addDelta adds the growth of a monotonic Snapshot field since the last
// sync to a Counter, which only exposes Add, not Set.
func addDelta(c prometheus.Counter, last *uint64, current uint64) {
	if current > *last {
		c.Add(float64(current - *last))
		*last = current
	}
}

// RunPeriodicSync blocks, calling Sync every interval until done is closed.
func (e *PrometheusExporter) RunPeriodicSync(interval time.Duration, done <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			e.Sync()
		case <-done:
			return
		}
	}
}
