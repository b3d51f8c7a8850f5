package supervisor

import (
	"log/slog"
	"testing"

	"vitarp/internal/metrics"
	"vitarp/internal/session"
)

type fakeIDR struct{ calls int }

func (f *fakeIDR) RequestIDR() error { f.calls++; return nil }

type fakeAVSource struct{ distressed bool }

func (f *fakeAVSource) AVDistressed() bool { return f.distressed }

func newTestSupervisor(t *testing.T) (*Supervisor, *fakeIDR, *fakeRequester) {
	t.Helper()
	rec := metrics.NewRecorder()
	st := session.New()
	idr := &fakeIDR{}
	req := &fakeRequester{}
	restart := NewRestartCoordinator(st, req, &noopSleeper{})
	sup := NewSupervisor(Config{Mode: Balanced}, rec, st, &fakeAVSource{}, idr, restart, slog.Default())
	return sup, idr, req
}

func TestSupervisorRecordLossTripsGateAndRequestsIDR(t *testing.T) {
	sup, idr, _ := newTestSupervisor(t)

	sup.RecordLoss(3, 0)
	sup.RecordLoss(3, 220_000)
	stage := sup.RecordLoss(3, 300_000)
	if stage != GateStage1 {
		t.Fatalf("stage = %v, want GateStage1", stage)
	}
	if idr.calls != 1 {
		t.Errorf("idr.calls = %d, want 1", idr.calls)
	}
}

func TestSupervisorRecordLossBelowThresholdDoesNotRequestIDR(t *testing.T) {
	sup, idr, _ := newTestSupervisor(t)
	sup.RecordLoss(1, 0)
	if idr.calls != 0 {
		t.Errorf("idr.calls = %d, want 0 below threshold", idr.calls)
	}
}

func TestSupervisorTickEscalatesToSoftRestartViaRecoveryFSM(t *testing.T) {
	rec := metrics.NewRecorder()
	rec.SetIncomingFPS(20)
	rec.SetTargetFPS(30, 30)
	st := session.New()
	idr := &fakeIDR{}
	req := &fakeRequester{}
	restart := NewRestartCoordinator(st, req, &noopSleeper{})
	avSrc := &fakeAVSource{distressed: true}
	sup := NewSupervisor(Config{Mode: Balanced}, rec, st, avSrc, idr, restart, slog.Default())

	now := int64(0)
	for i := 0; i < 12; i++ {
		now += 1_000_000
		sup.Tick(now)
	}
	if sup.recovery.State() != RecoveryIdrRequested {
		t.Fatalf("state = %v, want IdrRequested", sup.recovery.State())
	}
	if idr.calls != 1 {
		t.Errorf("idr.calls = %d, want 1", idr.calls)
	}

	now += 2_000_000
	sup.Tick(now)
	if sup.recovery.State() != RecoverySoftRestarted {
		t.Fatalf("state = %v, want SoftRestarted", sup.recovery.State())
	}
	if len(req.calls) != 1 {
		t.Fatalf("restart requester called %d times, want 1", len(req.calls))
	}
	if req.calls[0] > clampSoftRestartBitrateKbps {
		t.Errorf("restart bitrate %d exceeds clamp %d", req.calls[0], clampSoftRestartBitrateKbps)
	}
	if _, ok := sup.CurrentHint(now); !ok {
		t.Error("expected an active hint after soft restart")
	}
}

func TestSupervisorDisconnectShowsBanner(t *testing.T) {
	sup, _, _ := newTestSupervisor(t)
	sup.Disconnect(QuitNetworkTimeout, 0)
	banner, active := sup.BannerActive(1)
	if !active || banner.Label != "Connection lost" {
		t.Errorf("banner = %+v active=%v, want Connection lost/active", banner, active)
	}
}
