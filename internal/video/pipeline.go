package video

import (
	"log/slog"
	"time"

	"vitarp/internal/metrics"
)

// Config holds the pipeline's runtime-tunable knobs, set from the session's
// negotiated stream parameters and persisted config.
type Config struct {
	TargetFPS   int
	IncomingFPS int
	Force30FPS  bool
	ScaleMode   ScaleMode
	QueueDepth  int // default 6
}

// Pipeline owns the decoder lifecycle, the bounded decode queue, the
// pacer, the one-shot SPS patch, and the metrics/diagnostics plumbing —
// the full C3 component. A dedicated goroutine (Run) services the queue;
// everything else is safe to call concurrently from the network-receive
// and metrics-tick paths.
type Pipeline struct {
	cfg Config

	lifecycle *Lifecycle
	queue     *FrameQueue
	pacer     *Pacer
	sps       SPSPatcher
	diag      DiagnosticsSampler
	recorder  *metrics.Recorder
	logger    *slog.Logger

	displayed      uint64
	presentedSlot  bool // true when the last presented frame hasn't been consumed by the renderer yet
}

// NewPipeline constructs a Pipeline bound to dec, ready for Init.
func NewPipeline(dec Decoder, cfg Config, recorder *metrics.Recorder, logger *slog.Logger) *Pipeline {
	if cfg.QueueDepth <= 0 {
		cfg.QueueDepth = 6
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		cfg:       cfg,
		lifecycle: NewLifecycle(dec),
		queue:     NewFrameQueue(cfg.QueueDepth),
		pacer:     NewPacer(cfg.TargetFPS, cfg.IncomingFPS),
		recorder:  recorder,
		logger:    logger,
	}
}

// Start walks the decoder init ladder and records the negotiated rates.
func (p *Pipeline) Start() error {
	p.pacer.SetForce30FPS(p.cfg.Force30FPS)
	if p.recorder != nil {
		p.recorder.SetTargetFPS(p.cfg.TargetFPS, p.cfg.IncomingFPS)
	}
	if err := p.lifecycle.Init(); err != nil {
		p.logger.Error("video pipeline init failed", "err", err, "stage", p.lifecycle.Stage())
		return err
	}
	return nil
}

// Stop tears down the decoder, undoing exactly the stages reached.
func (p *Pipeline) Stop() error {
	return p.lifecycle.Teardown()
}

// Submit enqueues an encoded access unit for decoding, dropping the oldest
// pending frame under backpressure.
func (p *Pipeline) Submit(frame EncodedFrame) {
	frame.Data = p.sps.Patch(frame.Data)
	p.queue.Push(frame)
}

// RequestDrop forwards a supervisor-driven forced-drop request (e.g. after
// a recovery resync) to the pacer.
func (p *Pipeline) RequestDrop(n uint64) {
	p.pacer.RequestDrop(n)
}

// QueueDrops returns the cumulative decode_queue_drops counter.
func (p *Pipeline) QueueDrops() uint64 {
	return p.queue.Drops()
}

// Run services the decode queue until done is closed. It is the dedicated
// worker goroutine spec'd for C3 — callers should start it with `go`.
func (p *Pipeline) Run(done <-chan struct{}, present func(decoded []byte, seq uint16)) {
	for {
		select {
		case frame := <-p.queue.Chan():
			p.decodeOne(frame, present)
		case <-done:
			return
		}
	}
}

func (p *Pipeline) decodeOne(frame EncodedFrame, present func([]byte, uint16)) {
	if !p.pacer.Admit() {
		return
	}
	started := time.Now()
	decodedUs, err := p.lifecycle.dec.Decode(frame.Data)
	if err != nil {
		p.logger.Warn("decode failed", "err", err, "seq", frame.SeqOrigin)
		return
	}
	if decodedUs == 0 {
		decodedUs = time.Since(started).Microseconds()
	}
	if p.recorder != nil {
		p.recorder.RecordDecode(decodedUs)
	}
	if p.presentedSlot && p.recorder != nil {
		p.recorder.IncFrameOverwrite()
	}
	p.presentedSlot = true
	p.displayed++
	if present != nil {
		present(frame.Data, frame.SeqOrigin)
	}
}

// SampleDiagnostics performs the once-per-metrics-tick try_lock diagnostics
// copy and folds a fresh sample into the metrics recorder.
func (p *Pipeline) SampleDiagnostics(src DiagnosticsSource) (fresh bool) {
	snap, fresh := p.diag.Sample(src)
	if p.recorder != nil {
		p.recorder.ApplyAVDiagnostics(snap)
	}
	return fresh
}

// AVDistressed reports whether the diagnostics stale streak alone has
// crossed the threshold C5 combines with low FPS to declare AV distress.
func (p *Pipeline) AVDistressed() bool {
	return p.diag.IsDistressed()
}

// Viewport resolves the current scaling mode against a source frame size.
func (p *Pipeline) Viewport(w, h int) Viewport {
	return Resolve(p.cfg.ScaleMode, w, h)
}

// PresentConsumed marks the last presented frame as consumed by the
// renderer, clearing the frame_overwrite_count trigger for the next
// decode.
func (p *Pipeline) PresentConsumed() {
	p.presentedSlot = false
}

// PublishWindow is called once per ~1s wall-clock tick: flushes the decode
// timing window and the display-FPS counter computed from frames presented
// since the previous call.
func (p *Pipeline) PublishWindow(elapsed time.Duration) {
	if p.recorder == nil {
		return
	}
	p.recorder.PublishDecodeWindow()
	fps := float64(p.displayed) / elapsed.Seconds()
	p.recorder.SetDisplayFPS(fps)
	p.displayed = 0
}
