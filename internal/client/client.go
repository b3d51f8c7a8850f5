package client

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"vitarp/internal/assembler"
	"vitarp/internal/audio"
	"vitarp/internal/config"
	"vitarp/internal/input"
	"vitarp/internal/metrics"
	"vitarp/internal/session"
	"vitarp/internal/supervisor"
	"vitarp/internal/transport"
	"vitarp/internal/video"

	"github.com/prometheus/client_golang/prometheus"
)

// resolutionDims is the pixel size behind each supported resolution string
// (720p/1080p, with 1080p downgraded to 720p on
// this target by config.Normalize).
var resolutionDims = map[string]struct{ w, h int }{
	"720p":  {1280, 720},
	"1080p": {1280, 720},
}

var latencyModes = map[string]supervisor.LatencyMode{
	"UltraLow": supervisor.UltraLow,
	"Low":      supervisor.Low,
	"Balanced": supervisor.Balanced,
	"High":     supervisor.High,
	"Max":      supervisor.Max,
}

// Client owns one streaming session end to end: the session transport, the
// C1–C5 core pipeline, and the ambient audio/input/metrics plumbing bound
// to it. Generalized from
// "one struct per Wails-bound method" to "one struct wiring the core to a
// concrete transport."
type Client struct {
	cfg       config.Settings
	logger    *slog.Logger
	transport transport.SessionTransport

	state      *session.State
	recorder   *metrics.Recorder
	assembler  *assembler.Assembler
	video      *video.Pipeline
	input      *input.Pipeline
	audio      *audio.Engine
	supervisor *supervisor.Supervisor

	promExporter *metrics.PrometheusExporter

	done     chan struct{}
	quit     chan struct{}
	quitOnce sync.Once

	mu       sync.Mutex
	fatalErr *FatalError
}

// Option customizes New beyond the config-driven defaults — mainly for
// tests and headless operation, where the real hardware collaborators
// (decoder, controller) don't exist.
type Option func(*options)

type options struct {
	decoder video.Decoder
	source  input.Source
}

// WithDecoder overrides the default video.NewNullDecoder, e.g. with a real
// hardware decoder binding.
func WithDecoder(dec video.Decoder) Option {
	return func(o *options) { o.decoder = dec }
}

// WithInputSource overrides the default input.NullSource, e.g. with a real
// controller/touch backend.
func WithInputSource(src input.Source) Option {
	return func(o *options) { o.source = src }
}

// New wires a Client over an already-constructed transport, ready for Run.
// cfg should already be normalized (config.Normalize).
func New(cfg config.Settings, t transport.SessionTransport, logger *slog.Logger, opts ...Option) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	o := options{
		decoder: video.NewNullDecoder(0),
		source:  input.NullSource{},
	}
	for _, opt := range opts {
		opt(&o)
	}

	dims := resolutionDims[cfg.Resolution]
	if dims.w == 0 {
		dims = resolutionDims["720p"]
	}

	state := session.New()
	recorder := metrics.NewRecorder()

	videoLogger := logger.With("component", "video")
	vp := video.NewPipeline(o.decoder, video.Config{
		TargetFPS:   cfg.FPS,
		IncomingFPS: cfg.FPS,
		Force30FPS:  cfg.Force30FPS,
		ScaleMode:   scaleModeFromConfig(cfg.StretchVideo),
	}, recorder, videoLogger)

	mapping := buildMappingTable(cfg.CustomMaps[clampMapID(cfg.ControllerMapID)])
	ip := input.NewPipeline(mapping, o.source, t, cfg.PSButtonDualMode)

	micSender, _ := t.(audio.MicSender)
	ae := audio.New(micSender)

	mode, ok := latencyModes[cfg.LatencyMode]
	if !ok {
		mode = supervisor.Balanced
	}
	restartCoord := supervisor.NewRestartCoordinator(state, &restartAdapter{t: t, width: dims.w, height: dims.h, fps: cfg.FPS}, wallSleeper{})
	sup := supervisor.NewSupervisor(supervisor.Config{Mode: mode, TickInterval: time.Second}, recorder, state, vp, &idrAdapter{t: t, reason: "supervisor"}, restartCoord, logger.With("component", "supervisor"))

	asm := assembler.New(1024, 0, 0, &lossReporterAdapter{sup: sup})

	c := &Client{
		cfg:        cfg,
		logger:     logger,
		transport:  t,
		state:      state,
		recorder:   recorder,
		assembler:  asm,
		video:      vp,
		input:      ip,
		audio:      ae,
		supervisor: sup,
		done:       make(chan struct{}),
		quit:       make(chan struct{}),
	}
	c.wireCallbacks()
	return c
}

func clampMapID(id int) int {
	if id < 0 || id > 2 {
		return 0
	}
	return id
}

func scaleModeFromConfig(stretch bool) video.ScaleMode {
	if stretch {
		return video.Stretch
	}
	return video.Preserve
}

// EnablePrometheus registers stream metrics onto reg and starts the
// periodic sync loop, for headless/server-mode deployments.
func (c *Client) EnablePrometheus(reg prometheus.Registerer, syncInterval time.Duration) {
	c.promExporter = metrics.NewPrometheusExporter(reg, c.recorder)
	if syncInterval <= 0 {
		syncInterval = 2 * time.Second
	}
	go c.promExporter.RunPeriodicSync(syncInterval, c.done)
}

// wireCallbacks connects the transport's event callbacks to the core
// pipeline and ambient components — the single place an "External
// interfaces" boundary crosses into this process's own goroutines.
func (c *Client) wireCallbacks() {
	c.transport.SetOnVideoUnit(func(vu transport.VideoUnit) {
		frames := c.assembler.Feed(assembler.Unit{Seq: vu.Seq, Data: vu.Bytes, Marker: vu.Marker}, nowMs())
		for _, f := range frames {
			c.video.Submit(video.EncodedFrame{Data: f.Bytes, SeqOrigin: f.Seq})
		}
	})
	c.transport.SetOnAudioFrame(func(af transport.AudioFrame) {
		c.audio.PushPCMFrame(af.Samples)
	})
	c.transport.SetOnQuit(func(reason transport.QuitReason) {
		sr := quitReasonFromTransport(reason)
		c.supervisor.Disconnect(sr, nowUs())
		c.audio.PlayChime(audio.ChimeForQuitReason(sr))
		if sr != supervisor.QuitUserRequested {
			c.mu.Lock()
			c.fatalErr = &FatalError{Reason: sr}
			c.mu.Unlock()
		}
		c.state.RequestStop()
		c.signalQuit()
	})
	c.transport.SetOnRumble(func(left, right byte) {
		c.logger.Debug("rumble", "left", left, "right", right)
	})
	c.input.SetOnExitCombo(func() {
		c.logger.Info("exit combo fired, requesting stop")
		c.state.RequestStop()
		c.signalQuit()
	})
}

// signalQuit wakes Run's select loop the first time either the transport
// ends the session on its own or the local exit combo fires. Guarded by
// sync.Once so a retry storm of onQuit/exit-combo calls can't double-close
// the channel.
func (c *Client) signalQuit() {
	c.quitOnce.Do(func() { close(c.quit) })
}

// Run connects the transport, starts every component's own loop, and
// blocks until ctx is cancelled or the session quits on its own.
func (c *Client) Run(ctx context.Context, target string) error {
	if err := c.transport.Connect(ctx, target); err != nil {
		return fmt.Errorf("client: connect: %w", err)
	}
	defer c.transport.Disconnect()

	if err := c.video.Start(); err != nil {
		return fmt.Errorf("client: video start: %w", err)
	}
	defer c.video.Stop()

	if err := c.audio.Start(); err != nil {
		c.logger.Warn("audio start failed, continuing without local audio", "error", err)
	} else {
		defer c.audio.Stop()
	}

	c.state.BeginSession()

	videoDone := make(chan struct{})
	go func() {
		defer close(videoDone)
		c.video.Run(c.done, func(decoded []byte, seq uint16) {
			c.video.PresentConsumed()
		})
	}()

	go c.input.Run()
	go c.supervisor.Run(c.done, nowUs)
	go c.runMicBitrateAdaptation()

	var runErr error
	select {
	case <-ctx.Done():
		runErr = ctx.Err()
	case <-c.quit:
		c.mu.Lock()
		if c.fatalErr != nil {
			runErr = c.fatalErr
		}
		c.mu.Unlock()
	}

	close(c.done)
	c.state.RequestStop()
	c.input.RequestExit()
	<-videoDone
	return runErr
}

// runMicBitrateAdaptation throttles the mic Opus encoder off the same loss
// rate and RTT the supervisor already tracks for video, so a bad link
// doesn't have the mic channel competing for bandwidth at full quality.
func (c *Client) runMicBitrateAdaptation() {
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			rtt := c.recorder.Snapshot().MeasuredRTTMs
			c.audio.AdjustBitrate(c.supervisor.ApproxLossRate(), rtt)
		}
	}
}

func nowMs() int64 { return time.Now().UnixMilli() }
func nowUs() int64 { return time.Now().UnixMicro() }
