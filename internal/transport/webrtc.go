package transport

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pion/rtp"
	"github.com/pion/webrtc/v4"

	"vitarp/internal/input"
	"vitarp/internal/metrics"
)

// signalMsg is the newline-delimited JSON handshake message exchanged over
// the plain TCP signaling connection, the same shape as a ControlMsg
// envelope over a reliable control stream: one envelope type, optional-field
// payloads.
type signalMsg struct {
	Type      string                     `json:"type"`
	SDP       *webrtc.SessionDescription `json:"sdp,omitempty"`
	Candidate *webrtc.ICECandidateInit   `json:"candidate,omitempty"`
}

const connectTimeout = 10 * time.Second

// controlMsg rides the reliable "control" DataChannel for IDR/restart
// requests and their acks, and for rumble events from host to client.
type controlMsg struct {
	Type        string `json:"type"`
	Reason      string `json:"reason,omitempty"`
	BitrateKbps int    `json:"bitrate_kbps,omitempty"`
	Width       int    `json:"width,omitempty"`
	Height      int    `json:"height,omitempty"`
	FPS         int    `json:"fps,omitempty"`
	Left        byte   `json:"left,omitempty"`
	Right       byte   `json:"right,omitempty"`
	QuitReason  int    `json:"quit_reason,omitempty"`
}

// diagState is the diagnostics mutex C3 accesses only via try_lock.
// Writers (the RTP receive loop) take the normal Lock/Unlock path.
type diagState struct {
	mu   sync.Mutex
	snap metrics.AVDiagnostics
}

func (d *diagState) TryLock() bool                     { return d.mu.TryLock() }
func (d *diagState) Unlock()                           { d.mu.Unlock() }
func (d *diagState) Snapshot() metrics.AVDiagnostics    { return d.snap }
func (d *diagState) mutate(fn func(*metrics.AVDiagnostics)) {
	d.mu.Lock()
	fn(&d.snap)
	d.mu.Unlock()
}

// WebRTCSessionTransport is the reference SessionTransport implementation:
// video arrives as RTP on a "video" track (sequence numbers feed C1
// directly), audio on an "audio" track, and control (IDR/restart/rumble)
// rides a reliable "control" DataChannel. Mutex-guarded connection fields,
// a cbMu-guarded callback-setter block, and a Connect/Disconnect lifecycle
// shape generalized from a voice-chat control/datagram protocol onto
// WebRTC tracks and data channels.
type WebRTCSessionTransport struct {
	mu     sync.Mutex
	pc     *webrtc.PeerConnection
	ctrlDC *webrtc.DataChannel
	micDC  *webrtc.DataChannel
	cancel context.CancelFunc

	diag diagState

	expectedPackets atomic.Uint64
	lastSeq         atomic.Uint32
	haveLastSeq     atomic.Bool

	cbMu           sync.RWMutex
	onVideoUnit    func(VideoUnit)
	onAudioFrame   func(AudioFrame)
	onQuit         func(QuitReason)
	onRumble       func(left, right byte)
}

var _ SessionTransport = (*WebRTCSessionTransport)(nil)

// NewWebRTCSessionTransport creates a transport with no active connection.
func NewWebRTCSessionTransport() *WebRTCSessionTransport {
	return &WebRTCSessionTransport{}
}

func (t *WebRTCSessionTransport) SetOnVideoUnit(fn func(VideoUnit)) {
	t.cbMu.Lock()
	t.onVideoUnit = fn
	t.cbMu.Unlock()
}

func (t *WebRTCSessionTransport) SetOnAudioFrame(fn func(AudioFrame)) {
	t.cbMu.Lock()
	t.onAudioFrame = fn
	t.cbMu.Unlock()
}

func (t *WebRTCSessionTransport) SetOnQuit(fn func(QuitReason)) {
	t.cbMu.Lock()
	t.onQuit = fn
	t.cbMu.Unlock()
}

func (t *WebRTCSessionTransport) SetOnRumble(fn func(left, right byte)) {
	t.cbMu.Lock()
	t.onRumble = fn
	t.cbMu.Unlock()
}

// Connect dials target over plain TCP for SDP/ICE signaling, builds the
// peer connection with its control and mic data channels, and sends the
// offer. It returns once the offer is sent: it does not wait for the
// answer or for the control channel to open; the answer and remote ICE
// candidates are applied in the background as they arrive.
func (t *WebRTCSessionTransport) Connect(ctx context.Context, target string) error {
	dialCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	var d net.Dialer
	conn, err := d.DialContext(dialCtx, "tcp", target)
	if err != nil {
		return fmt.Errorf("transport: dial signaling: %w", err)
	}

	pc, err := webrtc.NewPeerConnection(webrtc.Configuration{})
	if err != nil {
		conn.Close()
		return fmt.Errorf("transport: new peer connection: %w", err)
	}

	sessCtx, sessCancel := context.WithCancel(ctx)
	t.mu.Lock()
	t.pc = pc
	t.cancel = sessCancel
	t.mu.Unlock()

	pc.OnTrack(t.handleTrack)
	pc.OnICECandidate(func(c *webrtc.ICECandidate) {
		if c == nil {
			return
		}
		init := c.ToJSON()
		t.writeSignal(conn, signalMsg{Type: "candidate", Candidate: &init})
	})

	ctrlDC, err := pc.CreateDataChannel("control", nil)
	if err != nil {
		pc.Close()
		conn.Close()
		sessCancel()
		return fmt.Errorf("transport: create control channel: %w", err)
	}
	t.mu.Lock()
	t.ctrlDC = ctrlDC
	t.mu.Unlock()
	ctrlDC.OnMessage(t.handleControlMessage)

	// Party-chat mic audio rides its own unordered, unreliable DataChannel
	// rather than a second outbound RTP track: frames are already
	// Opus-encoded and self-contained, so there is nothing an RTP
	// packetizer would add besides the sequencing a lossy, best-effort
	// voice path doesn't need.
	micMaxRetransmits := uint16(0)
	micDC, err := pc.CreateDataChannel("mic", &webrtc.DataChannelInit{
		Ordered:        boolPtr(false),
		MaxRetransmits: &micMaxRetransmits,
	})
	if err != nil {
		pc.Close()
		conn.Close()
		sessCancel()
		return fmt.Errorf("transport: create mic channel: %w", err)
	}
	t.mu.Lock()
	t.micDC = micDC
	t.mu.Unlock()

	offer, err := pc.CreateOffer(nil)
	if err != nil {
		pc.Close()
		conn.Close()
		sessCancel()
		return fmt.Errorf("transport: create offer: %w", err)
	}
	if err := pc.SetLocalDescription(offer); err != nil {
		pc.Close()
		conn.Close()
		sessCancel()
		return fmt.Errorf("transport: set local description: %w", err)
	}
	if err := t.writeSignal(conn, signalMsg{Type: "offer", SDP: &offer}); err != nil {
		pc.Close()
		conn.Close()
		sessCancel()
		return fmt.Errorf("transport: send offer: %w", err)
	}

	go t.readSignal(sessCtx, conn, pc)

	return nil
}

// Disconnect tears down the peer connection and signaling socket.
func (t *WebRTCSessionTransport) Disconnect() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cancel != nil {
		t.cancel()
		t.cancel = nil
	}
	if t.pc != nil {
		t.pc.Close() //nolint:errcheck // best-effort close on teardown
		t.pc = nil
	}
	t.ctrlDC = nil
	t.micDC = nil
}

func (t *WebRTCSessionTransport) writeSignal(conn net.Conn, msg signalMsg) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	data = append(data, '\n')
	_, err = conn.Write(data)
	return err
}

func (t *WebRTCSessionTransport) readSignal(ctx context.Context, conn net.Conn, pc *webrtc.PeerConnection) {
	defer conn.Close()
	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return
		default:
		}
		var msg signalMsg
		if err := json.Unmarshal(scanner.Bytes(), &msg); err != nil {
			continue
		}
		switch msg.Type {
		case "answer":
			if msg.SDP != nil {
				_ = pc.SetRemoteDescription(*msg.SDP)
			}
		case "candidate":
			if msg.Candidate != nil {
				_ = pc.AddICECandidate(*msg.Candidate)
			}
		}
	}
}

// handleTrack demuxes the remote video/audio tracks: video RTP packets feed
// C1 via onVideoUnit (seq number and payload straight off the packet),
// audio samples feed onAudioFrame.
func (t *WebRTCSessionTransport) handleTrack(remote *webrtc.TrackRemote, _ *webrtc.RTPReceiver) {
	switch remote.Kind() {
	case webrtc.RTPCodecTypeVideo:
		go t.pumpVideo(remote)
	case webrtc.RTPCodecTypeAudio:
		go t.pumpAudio(remote)
	}
}

func (t *WebRTCSessionTransport) pumpVideo(remote *webrtc.TrackRemote) {
	for {
		pkt, _, err := remote.ReadRTP()
		if err != nil {
			return
		}
		t.accountLoss(pkt)

		t.cbMu.RLock()
		cb := t.onVideoUnit
		t.cbMu.RUnlock()
		if cb == nil {
			continue
		}
		cb(VideoUnit{
			Seq:        pkt.SequenceNumber,
			Bytes:      append([]byte(nil), pkt.Payload...),
			FramesLost: 0,
			Recovered:  false,
			Marker:     pkt.Marker,
		})
	}
}

func (t *WebRTCSessionTransport) pumpAudio(remote *webrtc.TrackRemote) {
	for {
		pkt, _, err := remote.ReadRTP()
		if err != nil {
			return
		}
		t.cbMu.RLock()
		cb := t.onAudioFrame
		t.cbMu.RUnlock()
		if cb == nil {
			continue
		}
		samples := bytesToSamples(pkt.Payload)
		cb(AudioFrame{Samples: samples, Count: len(samples)})
	}
}

// accountLoss tracks the sequence-number gap between consecutive video
// packets into the diagnostics snapshot C3 samples via try_lock.
func (t *WebRTCSessionTransport) accountLoss(pkt *rtp.Packet) {
	t.expectedPackets.Add(1)
	if !t.haveLastSeq.CompareAndSwap(false, true) {
		last := uint16(t.lastSeq.Load())
		gap := pkt.SequenceNumber - last - 1
		if gap > 0 && gap < 1<<15 {
			t.diag.mutate(func(d *metrics.AVDiagnostics) {
				d.DropEvents++
				d.DropPackets += uint64(gap)
			})
		}
	}
	t.lastSeq.Store(uint32(pkt.SequenceNumber))
}

func bytesToSamples(payload []byte) []int16 {
	n := len(payload) / 2
	out := make([]int16, n)
	for i := 0; i < n; i++ {
		out[i] = int16(payload[2*i]) | int16(payload[2*i+1])<<8
	}
	return out
}

// handleControlMessage dispatches an inbound control-channel message: host
// rumble events and quit notifications are the only server-initiated
// messages on this channel.
func (t *WebRTCSessionTransport) handleControlMessage(msg webrtc.DataChannelMessage) {
	var cm controlMsg
	if err := json.Unmarshal(msg.Data, &cm); err != nil {
		return
	}
	switch cm.Type {
	case "rumble":
		t.cbMu.RLock()
		cb := t.onRumble
		t.cbMu.RUnlock()
		if cb != nil {
			cb(cm.Left, cm.Right)
		}
	case "quit":
		t.cbMu.RLock()
		cb := t.onQuit
		t.cbMu.RUnlock()
		if cb != nil {
			cb(QuitReason(cm.QuitReason))
		}
	}
}

// RequestIDR sends an async IDR hint over the control channel.
func (t *WebRTCSessionTransport) RequestIDR(reason string) error {
	return t.sendControl(controlMsg{Type: "idr", Reason: reason})
}

// RequestRestart sends an async restart/renegotiate request.
func (t *WebRTCSessionTransport) RequestRestart(profile RestartProfile) error {
	return t.sendControl(controlMsg{
		Type:        "restart",
		BitrateKbps: profile.BitrateKbps,
		Width:       profile.Width,
		Height:      profile.Height,
		FPS:         profile.FPS,
	})
}

func (t *WebRTCSessionTransport) sendControl(cm controlMsg) error {
	t.mu.Lock()
	dc := t.ctrlDC
	t.mu.Unlock()
	if dc == nil {
		return fmt.Errorf("transport: control channel not connected")
	}
	data, err := json.Marshal(cm)
	if err != nil {
		return err
	}
	return dc.Send(data)
}

// SendControllerSnapshot satisfies input.Sender: fire-and-forget, matching
// the session_send_controller contract.
func (t *WebRTCSessionTransport) SendControllerSnapshot(snap input.Snapshot) {
	t.mu.Lock()
	dc := t.ctrlDC
	t.mu.Unlock()
	if dc == nil {
		return
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return
	}
	_ = dc.Send(append([]byte(`{"type":"controller","snapshot":`), append(data, '}')...))
}

// SendTouchEvent satisfies input.Sender.
func (t *WebRTCSessionTransport) SendTouchEvent(ev input.TouchEvent) {
	t.mu.Lock()
	dc := t.ctrlDC
	t.mu.Unlock()
	if dc == nil {
		return
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return
	}
	_ = dc.Send(append([]byte(`{"type":"touch","event":`), append(data, '}')...))
}

// SendMicFrame satisfies internal/audio's MicSender, uploading one
// Opus-encoded party-chat frame over the mic DataChannel.
func (t *WebRTCSessionTransport) SendMicFrame(payload []byte) error {
	t.mu.Lock()
	dc := t.micDC
	t.mu.Unlock()
	if dc == nil {
		return fmt.Errorf("transport: mic channel not connected")
	}
	return dc.Send(payload)
}

func boolPtr(b bool) *bool { return &b }

// TryLock/Unlock/Snapshot satisfy video.DiagnosticsSource.
func (t *WebRTCSessionTransport) TryLock() bool                  { return t.diag.TryLock() }
func (t *WebRTCSessionTransport) Unlock()                        { t.diag.Unlock() }
func (t *WebRTCSessionTransport) Snapshot() metrics.AVDiagnostics { return t.diag.Snapshot() }
