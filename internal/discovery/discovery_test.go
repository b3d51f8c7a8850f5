package discovery

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func TestHandleBeaconRecordsConsole(t *testing.T) {
	l := NewListener(nil)
	srv := httptest.NewServer(http.HandlerFunc(l.handleBeacon))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	if err := conn.WriteJSON(Beacon{ID: "console-1", Name: "Living Room PS5", Addr: "192.168.1.50:9295"}); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if len(l.Consoles()) > 0 {
			break
		}
		time.Sleep(time.Millisecond)
	}

	consoles := l.Consoles()
	if len(consoles) != 1 {
		t.Fatalf("len(consoles) = %d, want 1", len(consoles))
	}
	if consoles[0].Addr != "192.168.1.50:9295" {
		t.Errorf("Addr = %q, want 192.168.1.50:9295", consoles[0].Addr)
	}
}

func TestConsolesExpiresStaleBeacons(t *testing.T) {
	l := NewListener(nil)
	l.seen["stale"] = seenBeacon{
		beacon: Beacon{ID: "stale", Addr: "10.0.0.1:9295"},
		atUs:   nowUs() - 2*beaconTTL.Microseconds(),
	}
	if consoles := l.Consoles(); len(consoles) != 0 {
		t.Errorf("len(consoles) = %d, want 0 for an expired beacon", len(consoles))
	}
}

func TestHandleBeaconIgnoresIncompleteBeacons(t *testing.T) {
	l := NewListener(nil)
	srv := httptest.NewServer(http.HandlerFunc(l.handleBeacon))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	_ = conn.WriteJSON(Beacon{Name: "no id or addr"})
	time.Sleep(20 * time.Millisecond)

	if consoles := l.Consoles(); len(consoles) != 0 {
		t.Errorf("len(consoles) = %d, want 0 for a beacon missing id/addr", len(consoles))
	}
}
