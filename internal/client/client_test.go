package client

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"vitarp/internal/config"
	"vitarp/internal/input"
	"vitarp/internal/metrics"
	"vitarp/internal/supervisor"
	"vitarp/internal/transport"
)

type fakeTransport struct {
	mu sync.Mutex

	onVideoUnit func(transport.VideoUnit)
	onAudioFrm  func(transport.AudioFrame)
	onQuit      func(transport.QuitReason)
	onRumble    func(byte, byte)

	connectCalls    int
	disconnectCalls int
	idrReasons      []string
	restartProfiles []transport.RestartProfile
	micFrames       [][]byte
}

func (f *fakeTransport) Connect(ctx context.Context, target string) error {
	f.connectCalls++
	return nil
}
func (f *fakeTransport) Disconnect() { f.disconnectCalls++ }

func (f *fakeTransport) RequestIDR(reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.idrReasons = append(f.idrReasons, reason)
	return nil
}
func (f *fakeTransport) RequestRestart(profile transport.RestartProfile) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.restartProfiles = append(f.restartProfiles, profile)
	return nil
}

func (f *fakeTransport) TryLock() bool                  { return true }
func (f *fakeTransport) Unlock()                        {}
func (f *fakeTransport) Snapshot() metrics.AVDiagnostics { return metrics.AVDiagnostics{} }

func (f *fakeTransport) SetOnVideoUnit(fn func(transport.VideoUnit)) { f.onVideoUnit = fn }
func (f *fakeTransport) SetOnAudioFrame(fn func(transport.AudioFrame)) { f.onAudioFrm = fn }
func (f *fakeTransport) SetOnQuit(fn func(transport.QuitReason))     { f.onQuit = fn }
func (f *fakeTransport) SetOnRumble(fn func(byte, byte))             { f.onRumble = fn }

func (f *fakeTransport) SendControllerSnapshot(input.Snapshot) {}
func (f *fakeTransport) SendTouchEvent(input.TouchEvent)       {}

func (f *fakeTransport) SendMicFrame(payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.micFrames = append(f.micFrames, payload)
	return nil
}

func testSettings() config.Settings {
	s := config.Default()
	config.Normalize(&s)
	return s
}

func TestNewWiresWithoutPanicking(t *testing.T) {
	ft := &fakeTransport{}
	c := New(testSettings(), ft, nil)
	if c == nil {
		t.Fatal("New returned nil")
	}
	if ft.onVideoUnit == nil || ft.onAudioFrm == nil || ft.onQuit == nil || ft.onRumble == nil {
		t.Error("expected all transport callbacks to be wired")
	}
}

func TestOnQuitTranslatesReasonAndStopsSession(t *testing.T) {
	ft := &fakeTransport{}
	c := New(testSettings(), ft, nil)

	ft.onQuit(transport.QuitNetworkTimeout)

	if !c.state.Snapshot().StopRequested {
		t.Error("expected StopRequested after onQuit")
	}
	banner, active := c.supervisor.BannerActive(time.Now().UnixMicro())
	if !active {
		t.Fatal("expected disconnect banner active after onQuit")
	}
	if !banner.RequiresRetry {
		t.Error("expected RequiresRetry for a network-timeout quit")
	}
}

func TestOnVideoUnitFeedsAssemblerAndSubmitsCompleteFrames(t *testing.T) {
	ft := &fakeTransport{}
	c := New(testSettings(), ft, nil)

	ft.onVideoUnit(transport.VideoUnit{Seq: 0, Bytes: []byte{0xAA}, Marker: true})

	if drops := c.video.QueueDrops(); drops != 0 {
		t.Errorf("QueueDrops = %d, want 0 for a single submitted frame", drops)
	}
}

func TestOnAudioFrameDeliversToEngineWithoutDropping(t *testing.T) {
	ft := &fakeTransport{}
	c := New(testSettings(), ft, nil)

	ft.onAudioFrm(transport.AudioFrame{Samples: []int16{1, 2, 3}, Count: 3})

	if _, dropped := c.audio.DroppedFrames(); dropped != 0 {
		t.Errorf("playback dropped = %d, want 0 for a single delivered frame", dropped)
	}
}

func TestIDRAdapterAttachesReason(t *testing.T) {
	ft := &fakeTransport{}
	a := &idrAdapter{t: ft, reason: "test"}
	if err := a.RequestIDR(); err != nil {
		t.Fatalf("RequestIDR: %v", err)
	}
	if len(ft.idrReasons) != 1 || ft.idrReasons[0] != "test" {
		t.Errorf("idrReasons = %v, want [test]", ft.idrReasons)
	}
}

func TestRestartAdapterBuildsProfileFromBitrate(t *testing.T) {
	ft := &fakeTransport{}
	a := &restartAdapter{t: ft, width: 1280, height: 720, fps: 30}
	if err := a.RequestStreamRestart(1500); err != nil {
		t.Fatalf("RequestStreamRestart: %v", err)
	}
	if len(ft.restartProfiles) != 1 {
		t.Fatalf("restartProfiles = %v, want 1 entry", ft.restartProfiles)
	}
	p := ft.restartProfiles[0]
	if p.BitrateKbps != 1500 || p.Width != 1280 || p.Height != 720 || p.FPS != 30 {
		t.Errorf("profile = %+v, want {1500 1280 720 30}", p)
	}
}

func TestQuitReasonFromTransportMapsUserRequested(t *testing.T) {
	if got := quitReasonFromTransport(transport.QuitUserRequested); got != supervisor.QuitUserRequested {
		t.Errorf("quitReasonFromTransport(QuitUserRequested) = %v, want QuitUserRequested", got)
	}
	if got := quitReasonFromTransport(transport.QuitDecoderFatal); got != supervisor.QuitDecoderFatal {
		t.Errorf("quitReasonFromTransport(QuitDecoderFatal) = %v, want QuitDecoderFatal", got)
	}
}

func TestRunReturnsFatalErrorOnNonUserQuit(t *testing.T) {
	ft := &fakeTransport{}
	c := New(testSettings(), ft, nil)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	go func() {
		time.Sleep(10 * time.Millisecond)
		ft.onQuit(transport.QuitDecoderFatal)
	}()

	err := c.Run(ctx, "console:9295")
	var fatal *FatalError
	if err == nil {
		t.Fatal("expected a fatal error, got nil")
	}
	if !errors.As(err, &fatal) {
		t.Fatalf("expected *FatalError, got %T: %v", err, err)
	}
	if fatal.Reason != supervisor.QuitDecoderFatal {
		t.Errorf("fatal.Reason = %v, want QuitDecoderFatal", fatal.Reason)
	}
}

func TestRunReturnsNoErrorOnUserRequestedQuit(t *testing.T) {
	ft := &fakeTransport{}
	c := New(testSettings(), ft, nil)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	go func() {
		time.Sleep(10 * time.Millisecond)
		ft.onQuit(transport.QuitUserRequested)
	}()

	if err := c.Run(ctx, "console:9295"); err != nil {
		t.Errorf("expected nil error for a user-requested quit, got %v", err)
	}
}
