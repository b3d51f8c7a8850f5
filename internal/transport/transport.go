// Package transport defines the session-transport capability set the core
// depends on, plus a concrete WebRTC-backed reference implementation. The
// core never depends on the
// concrete type — only on SessionTransport — since the real PlayStation
// Remote Play session protocol (Takion) is external to this repository;
// WebRTCSessionTransport exists so the CLI and integration tests have
// something real to run against.
package transport

import (
	"context"

	"vitarp/internal/input"
	"vitarp/internal/metrics"
)

// VideoUnit is one reassembly-ready unit handed to C1, carrying the
// session transport's own loss accounting for that unit.
type VideoUnit struct {
	Seq        uint16
	Bytes      []byte
	FramesLost int
	Recovered  bool
	Marker     bool // RTP marker bit: last unit of the access unit
}

// AudioFrame is one decoded (or pass-through encoded) audio frame.
type AudioFrame struct {
	Samples []int16
	Count   int
}

// RestartProfile is what a restart/soft-restart renegotiates.
type RestartProfile struct {
	BitrateKbps int
	Width       int
	Height      int
	FPS         int
}

// QuitReason mirrors the quit-reason enum the disconnect banner translates.
type QuitReason int

const (
	QuitUnknown QuitReason = iota
	QuitUserRequested
	QuitNetworkTimeout
	QuitAuthFailed
	QuitHostRejected
	QuitProtocolError
	QuitDecoderFatal
)

// SessionTransport is the capability set required of an external session
// layer. It also satisfies input.Sender directly, so C4's pipeline can be
// wired straight to one without an adapter.
type SessionTransport interface {
	input.Sender

	Connect(ctx context.Context, target string) error
	Disconnect()

	RequestIDR(reason string) error
	RequestRestart(profile RestartProfile) error

	// DiagTryLock is exposed as the three primitives video.DiagnosticsSource
	// expects (TryLock/Unlock/Snapshot) so a SessionTransport can be passed
	// directly to video.DiagnosticsSampler.Sample.
	TryLock() bool
	Unlock()
	Snapshot() metrics.AVDiagnostics

	SetOnVideoUnit(func(VideoUnit))
	SetOnAudioFrame(func(AudioFrame))
	SetOnQuit(func(QuitReason))
	SetOnRumble(func(left, right byte))
}
