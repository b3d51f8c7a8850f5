// Package supervisor is the stream supervisor (C5): it owns SessionState,
// evaluates the loss gate and post-reconnect recovery FSM on each metrics
// tick, and is the sole caller of the restart coordinator. A single
// ticker-driven loop reads a metrics snapshot and republishes derived
// state, deciding whether the stream needs an IDR, a soft restart, or a
// full restart.
package supervisor

import (
	"log/slog"
	"time"

	"vitarp/internal/metrics"
	"vitarp/internal/session"
)

// AVDistressSource reports the video pipeline's stale-diagnostics
// escalation without the supervisor importing the video package directly.
type AVDistressSource interface {
	AVDistressed() bool
}

// IDRRequester issues an out-of-band IDR request to the host.
type IDRRequester interface {
	RequestIDR() error
}

// Config is the Supervisor's fixed tuning: which latency mode and tick
// cadence to run at.
type Config struct {
	Mode         LatencyMode
	TickInterval time.Duration
}

// Supervisor aggregates the metrics recorder, session state, loss gate,
// recovery FSM, and restart coordinator behind one ticker loop.
type Supervisor struct {
	cfg      Config
	recorder *metrics.Recorder
	state    *session.State
	avSrc    AVDistressSource
	idr      IDRRequester
	restart  *RestartCoordinator
	logger   *slog.Logger

	window *LossWindow
	burst  *LossBurst
	gate   *LossGate

	recovery *RecoveryFSM
	banner   DisconnectBanner
	hints    HintBoard

	priorRetries int
	startUs      int64
}

// NewSupervisor wires a Supervisor over an already-constructed
// RestartCoordinator (it needs its own Requester/Sleeper, supplied by the
// caller) and the shared Recorder/State.
func NewSupervisor(cfg Config, recorder *metrics.Recorder, state *session.State, avSrc AVDistressSource, idr IDRRequester, restart *RestartCoordinator, logger *slog.Logger) *Supervisor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = time.Second
	}
	p := BaselineProfile(cfg.Mode)
	return &Supervisor{
		cfg:      cfg,
		recorder: recorder,
		state:    state,
		avSrc:    avSrc,
		idr:      idr,
		restart:  restart,
		logger:   logger,
		window:   NewLossWindow(p.WindowUs, 0),
		burst:    NewLossBurst(p.BurstWindowUs, 0),
		recovery: NewRecoveryFSM(),
	}
}

func (s *Supervisor) init() {
	if s.gate == nil {
		s.gate = NewLossGate(s.window, s.burst)
	}
}

// RecordLoss folds a loss event (e.g. a retransmit-timeout or decoder
// missing-ref signal from C1/C3) into the loss gate and, on a trip, issues
// an IDR request — restart is never triggered by loss alone.
func (s *Supervisor) RecordLoss(framesLost int, nowUs int64) GateStage {
	s.init()
	m := s.recorder.Snapshot()
	p := ResolveProfile(s.cfg.Mode, m.WindowedBitrateMbps*1000, m.MeasuredIncomingFPS, float64(m.TargetFPS), s.priorRetries)
	stage := s.gate.Record(framesLost, nowUs, p)
	switch stage {
	case GateStage1:
		s.tryIDR(nowUs, "loss gate stage 1")
	case GateStage2:
		s.tryIDR(nowUs, "loss gate stage 2 (decoder resync follow-up)")
	}
	return stage
}

func (s *Supervisor) tryIDR(nowUs int64, reason string) {
	if s.idr == nil {
		return
	}
	if err := s.idr.RequestIDR(); err != nil {
		s.logger.Warn("idr request failed", "reason", reason, "error", err)
		return
	}
	s.logger.Info("idr requested", "reason", reason)
}

// Tick runs the recovery FSM against the latest metrics snapshot and, on a
// soft-restart action, calls the restart coordinator. Call this once per
// TickInterval from the owning loop (see Run).
func (s *Supervisor) Tick(nowUs int64) {
	m := s.recorder.Snapshot()
	distressed := s.avSrc != nil && s.avSrc.AVDistressed()
	snap := s.state.Snapshot()
	inCooloff := nowUs < snap.LastRestartCooloffUntilUs
	sourceBackoff := snap.AutoReconnectCount >= MaxAutoReconnectAttempts

	result := s.recovery.Tick(nowUs, m.MeasuredIncomingFPS, float64(m.TargetFPS), distressed, inCooloff, sourceBackoff)
	switch result.Action {
	case RecoveryActionSendIDR:
		s.hints.ShowInfo(result.Hint, nowUs, 5*time.Second.Microseconds())
		s.tryIDR(nowUs, "recovery fsm")
	case RecoveryActionSoftRestart, RecoveryActionGuardedSoftRestart:
		s.hints.ShowError(result.Hint, result.Hint, nowUs, 5*time.Second.Microseconds())
		out := s.restart.Restart("recovery-fsm", nowUs, result.BitrateKbps, true)
		if out.Attempted && !out.Succeeded {
			s.priorRetries++
		} else if out.Attempted {
			s.priorRetries = 0
		}
	case RecoveryActionClear:
		s.state.ResetAutoReconnectCount()
		s.priorRetries = 0
	}
}

// Disconnect shows the disconnect banner for reason.
func (s *Supervisor) Disconnect(reason QuitReason, nowUs int64) {
	s.banner.Show(reason, nowUs, 0)
}

// BannerActive reports whether the disconnect banner is still showing.
func (s *Supervisor) BannerActive(nowUs int64) (DisconnectBanner, bool) {
	return s.banner, s.banner.Active(nowUs)
}

// CurrentHint returns the active hint, if any.
func (s *Supervisor) CurrentHint(nowUs int64) (Hint, bool) {
	return s.hints.Current(nowUs)
}

// ApproxLossRate estimates the fraction of incoming video frames lost over
// the current mode's loss window, from the same accumulators RecordLoss
// feeds. It's an approximation (frames expected in the window is derived
// from the latest measured FPS, not an exact per-window count) meant for
// ambient consumers like mic bitrate adaptation, not the gate's own trip
// decision.
func (s *Supervisor) ApproxLossRate() float64 {
	if s.window == nil {
		return 0
	}
	windowUs := BaselineProfile(s.cfg.Mode).WindowUs
	fps := s.recorder.Snapshot().MeasuredIncomingFPS
	expected := fps * float64(windowUs) / 1e6
	if expected <= 0 {
		return 0
	}
	rate := float64(s.window.FrameAccum()) / expected
	if rate > 1 {
		rate = 1
	}
	return rate
}

// Run drives Tick on cfg.TickInterval until done is closed, mirroring the
// familiar ticker-and-select loop shape.
func (s *Supervisor) Run(done <-chan struct{}, nowUs func() int64) {
	ticker := time.NewTicker(s.cfg.TickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			s.Tick(nowUs())
		}
	}
}
