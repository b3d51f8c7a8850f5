// Package client wires C1–C5 and the ambient/domain stack into one running
// stream: it owns the transport, the session state, the supervisor, and
// every component's callback plumbing, generalized from "bridge Go to a
// desktop frontend" to "bridge the session transport to the core
// pipeline."
package client

import (
	"fmt"
	"time"

	"vitarp/internal/supervisor"
	"vitarp/internal/transport"
)

// idrAdapter satisfies supervisor.IDRRequester (no-arg RequestIDR) over a
// transport.SessionTransport (which needs a reason string attached to
// every IDR request for its own logging/diagnostics).
type idrAdapter struct {
	t      transport.SessionTransport
	reason string
}

func (a *idrAdapter) RequestIDR() error {
	return a.t.RequestIDR(a.reason)
}

// restartAdapter satisfies supervisor.Requester (RequestStreamRestart with
// just a bitrate) over a transport.SessionTransport (which renegotiates a
// full transport.RestartProfile). The width/height/fps come from the
// client's own negotiated stream config, not from the supervisor, which
// only ever reasons about bitrate.
type restartAdapter struct {
	t      transport.SessionTransport
	width  int
	height int
	fps    int
}

func (a *restartAdapter) RequestStreamRestart(bitrateKbps int) error {
	return a.t.RequestRestart(transport.RestartProfile{
		BitrateKbps: bitrateKbps,
		Width:       a.width,
		Height:      a.height,
		FPS:         a.fps,
	})
}

// wallSleeper is the production supervisor.Sleeper: a real time.Sleep.
// Tests inject their own no-op/virtual-clock Sleeper instead.
type wallSleeper struct{}

func (wallSleeper) Sleep(durationUs int64) {
	time.Sleep(time.Duration(durationUs) * time.Microsecond)
}

// quitReasonFromTransport maps the transport's QuitReason enum onto the
// supervisor's — kept as two separate enums (per their respective
// packages' own dependency boundaries) rather than one shared type, so
// neither package imports the other just for this constant set.
func quitReasonFromTransport(r transport.QuitReason) supervisor.QuitReason {
	switch r {
	case transport.QuitUserRequested:
		return supervisor.QuitUserRequested
	case transport.QuitNetworkTimeout:
		return supervisor.QuitNetworkTimeout
	case transport.QuitAuthFailed:
		return supervisor.QuitAuthFailed
	case transport.QuitHostRejected:
		return supervisor.QuitHostRejected
	case transport.QuitProtocolError:
		return supervisor.QuitProtocolError
	case transport.QuitDecoderFatal:
		return supervisor.QuitDecoderFatal
	default:
		return supervisor.QuitUnknown
	}
}

// lossReporterAdapter satisfies assembler.LossReporter by folding every
// declared gap straight into the supervisor's loss gate.
type lossReporterAdapter struct {
	sup *supervisor.Supervisor
}

func (a *lossReporterAdapter) ReportLoss(framesLost int, recovered bool) {
	a.sup.RecordLoss(framesLost, time.Now().UnixMicro())
}

// FatalError is a typed session-ending fault, letting callers pattern-match
// on Reason instead of string-comparing an error message.
type FatalError struct {
	Reason supervisor.QuitReason
	Err    error
}

func (e *FatalError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("client: fatal session fault (%v): %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("client: fatal session fault (%v)", e.Reason)
}

func (e *FatalError) Unwrap() error { return e.Err }
