// Package serveraddr normalizes the loose address shapes a user might type
// at the `--server` flag (bare host, host:port, a bracketed IPv6 literal, a
// URL with a scheme) into the canonical host:port transport.Connect wants.
// Adapted from a launch-arg parser (`normalizeServerAddr`,
// originally tuned for its own `bken://` launch scheme).
package serveraddr

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
)

const defaultPort = "9295"

// Normalize accepts a bare host, host:port, a bracketed IPv6 literal, or a
// scheme-qualified URL (vitarp://, http://, https://) and returns a
// canonical host:port.
func Normalize(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", fmt.Errorf("serveraddr: server address is required")
	}

	if strings.Contains(s, "://") {
		u, err := url.Parse(s)
		if err != nil {
			return "", fmt.Errorf("serveraddr: invalid server address: %w", err)
		}
		if u.Host == "" {
			return "", fmt.Errorf("serveraddr: invalid server address: missing host")
		}
		s = u.Host
	}

	if i := strings.IndexByte(s, '/'); i >= 0 {
		s = s[:i]
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("serveraddr: invalid server address: missing host")
	}

	host := s
	port := defaultPort

	if h, p, err := net.SplitHostPort(s); err == nil {
		host = h
		port = p
	} else if ip := net.ParseIP(s); ip != nil && strings.Contains(s, ":") {
		host = s
	} else if strings.HasPrefix(s, "[") && strings.HasSuffix(s, "]") {
		host = strings.TrimPrefix(strings.TrimSuffix(s, "]"), "[")
	} else if strings.Contains(s, ":") {
		return "", fmt.Errorf("serveraddr: invalid server address: %q", raw)
	}

	if host == "" {
		return "", fmt.Errorf("serveraddr: invalid server address: missing host")
	}

	n, err := strconv.Atoi(port)
	if err != nil || n < 1 || n > 65535 {
		return "", fmt.Errorf("serveraddr: invalid server port: %q", port)
	}

	return net.JoinHostPort(host, strconv.Itoa(n)), nil
}
