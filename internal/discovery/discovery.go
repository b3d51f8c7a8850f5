// Package discovery models the out-of-scope external console-discovery
// collaborator as a thin local beacon listener: consoles on the LAN
// are expected to dial in over a websocket and announce themselves with a
// short JSON envelope, giving the CLI something concrete to select from in
// the absence of the real PSN device-discovery/handshake layer.
package discovery

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Beacon is one console's discovery advertisement.
type Beacon struct {
	Name string `json:"name"`
	Addr string `json:"addr"` // host:port the session transport should dial
	ID   string `json:"id"`
}

// beaconTTL is how long a Beacon is considered live without a refresh
// before Consoles() stops reporting it.
const beaconTTL = 15 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// Listener accepts websocket connections from consoles on the LAN and
// tracks the most recent beacon each one sent.
type Listener struct {
	logger *slog.Logger

	mu   sync.Mutex
	seen map[string]seenBeacon
	srv  *http.Server
}

type seenBeacon struct {
	beacon Beacon
	atUs   int64
}

// NewListener creates a Listener. logger may be nil (falls back to
// slog.Default()).
func NewListener(logger *slog.Logger) *Listener {
	if logger == nil {
		logger = slog.Default()
	}
	return &Listener{
		logger: logger,
		seen:   make(map[string]seenBeacon),
	}
}

// ListenAndServe starts the beacon listener on addr (e.g. ":9302") and
// blocks until ctx is cancelled or the server fails to start.
func (l *Listener) ListenAndServe(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/beacon", l.handleBeacon)
	l.srv = &http.Server{Addr: addr, Handler: mux}

	errCh := make(chan error, 1)
	go func() { errCh <- l.srv.ListenAndServe() }()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return l.srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}

func (l *Listener) handleBeacon(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		l.logger.Warn("discovery: beacon upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	for {
		var b Beacon
		if err := conn.ReadJSON(&b); err != nil {
			return
		}
		if b.ID == "" || b.Addr == "" {
			continue
		}
		l.mu.Lock()
		l.seen[b.ID] = seenBeacon{beacon: b, atUs: nowUs()}
		l.mu.Unlock()
		l.logger.Info("discovery: beacon received", "name", b.Name, "addr", b.Addr)
	}
}

// Consoles returns the set of consoles heard from within the last
// beaconTTL, newest advertisement wins per ID.
func (l *Listener) Consoles() []Beacon {
	l.mu.Lock()
	defer l.mu.Unlock()
	cutoff := nowUs() - beaconTTL.Microseconds()
	out := make([]Beacon, 0, len(l.seen))
	for id, sb := range l.seen {
		if sb.atUs < cutoff {
			delete(l.seen, id)
			continue
		}
		out = append(out, sb.beacon)
	}
	return out
}

func nowUs() int64 {
	return time.Now().UnixMicro()
}
