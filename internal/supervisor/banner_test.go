package supervisor

import "testing"

func TestDisconnectBannerNetworkTimeoutRequiresRetry(t *testing.T) {
	var b DisconnectBanner
	b.Show(QuitNetworkTimeout, 0, 0)
	if b.Label != "Connection lost" || !b.RequiresRetry {
		t.Errorf("banner = %+v, want Connection lost/requiresRetry", b)
	}
	if !b.Active(1) {
		t.Error("banner should be active immediately after Show")
	}
}

func TestDisconnectBannerUserRequestedDoesNotRequireRetry(t *testing.T) {
	var b DisconnectBanner
	b.Show(QuitUserRequested, 0, 0)
	if b.RequiresRetry {
		t.Error("user-requested disconnect should not require retry")
	}
}

func TestDisconnectBannerExpiresAfterDefaultTTL(t *testing.T) {
	var b DisconnectBanner
	b.Show(QuitHostRejected, 0, 0)
	if !b.Active(2_999_999) {
		t.Error("banner should still be active just under 3s")
	}
	if b.Active(3_000_000) {
		t.Error("banner should have expired at 3s")
	}
}

func TestHintBoardErrorSetsModalText(t *testing.T) {
	var hb HintBoard
	hb.ShowError("Rebuilding session", "Persistent desync detected", 0, 5_000_000)
	h, ok := hb.Current(1_000_000)
	if !ok || h.Level != HintError || h.ModalText != "Persistent desync detected" {
		t.Errorf("hint = %+v ok=%v, want error hint with modal text", h, ok)
	}
}

func TestHintBoardInfoHasNoModalTextAndExpires(t *testing.T) {
	var hb HintBoard
	hb.ShowInfo("Video references unstable", 0, 2_000_000)
	if _, ok := hb.Current(2_000_001); ok {
		t.Error("hint should have expired")
	}
	hb.ShowInfo("still fine", 10_000_000, 2_000_000)
	h, ok := hb.Current(10_500_000)
	if !ok || h.ModalText != "" {
		t.Errorf("info hint should have no modal text, got %+v", h)
	}
}

func TestHintBoardShowReplacesPreviousHint(t *testing.T) {
	var hb HintBoard
	hb.ShowInfo("first", 0, 5_000_000)
	hb.ShowError("second", "modal", 1_000_000, 5_000_000)
	h, ok := hb.Current(1_500_000)
	if !ok || h.Text != "second" {
		t.Errorf("hint = %+v, want replaced with second", h)
	}
}
