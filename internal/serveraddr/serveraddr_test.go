package serveraddr

import "testing"

func TestNormalizePlainHostname(t *testing.T) {
	addr, err := Normalize("myconsole")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if addr != "myconsole:9295" {
		t.Errorf("expected 'myconsole:9295', got %q", addr)
	}
}

func TestNormalizeWithPort(t *testing.T) {
	addr, err := Normalize("myconsole:5000")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if addr != "myconsole:5000" {
		t.Errorf("expected 'myconsole:5000', got %q", addr)
	}
}

func TestNormalizeSchemePrefix(t *testing.T) {
	addr, err := Normalize("vitarp://192.168.1.10:8080")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if addr != "192.168.1.10:8080" {
		t.Errorf("expected '192.168.1.10:8080', got %q", addr)
	}
}

func TestNormalizeSchemePrefixNoPort(t *testing.T) {
	addr, err := Normalize("vitarp://192.168.1.10")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if addr != "192.168.1.10:9295" {
		t.Errorf("expected '192.168.1.10:9295', got %q", addr)
	}
}

func TestNormalizeHttpsPrefix(t *testing.T) {
	addr, err := Normalize("https://example.com:9000")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if addr != "example.com:9000" {
		t.Errorf("expected 'example.com:9000', got %q", addr)
	}
}

func TestNormalizeHttpsPrefixNoPort(t *testing.T) {
	addr, err := Normalize("https://example.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if addr != "example.com:9295" {
		t.Errorf("expected 'example.com:9295', got %q", addr)
	}
}

func TestNormalizeEmpty(t *testing.T) {
	if _, err := Normalize(""); err == nil {
		t.Error("expected error for empty address")
	}
}

func TestNormalizeWhitespaceOnly(t *testing.T) {
	if _, err := Normalize("   "); err == nil {
		t.Error("expected error for whitespace-only address")
	}
}

func TestNormalizeLeadingTrailingWhitespace(t *testing.T) {
	addr, err := Normalize("  myhost:8080  ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if addr != "myhost:8080" {
		t.Errorf("expected 'myhost:8080', got %q", addr)
	}
}

func TestNormalizeIPv4(t *testing.T) {
	addr, err := Normalize("10.0.0.1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if addr != "10.0.0.1:9295" {
		t.Errorf("expected '10.0.0.1:9295', got %q", addr)
	}
}

func TestNormalizeIPv4WithPort(t *testing.T) {
	addr, err := Normalize("10.0.0.1:9000")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if addr != "10.0.0.1:9000" {
		t.Errorf("expected '10.0.0.1:9000', got %q", addr)
	}
}

func TestNormalizeIPv6Bracketed(t *testing.T) {
	addr, err := Normalize("[::1]:8080")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if addr != "[::1]:8080" {
		t.Errorf("expected '[::1]:8080', got %q", addr)
	}
}

func TestNormalizeIPv6BracketedNoPort(t *testing.T) {
	addr, err := Normalize("[::1]")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if addr != "[::1]:9295" {
		t.Errorf("expected '[::1]:9295', got %q", addr)
	}
}

func TestNormalizeIPv6Raw(t *testing.T) {
	addr, err := Normalize("::1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if addr != "[::1]:9295" {
		t.Errorf("expected '[::1]:9295', got %q", addr)
	}
}

func TestNormalizeTrailingSlash(t *testing.T) {
	addr, err := Normalize("myserver:8080/")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if addr != "myserver:8080" {
		t.Errorf("expected 'myserver:8080', got %q", addr)
	}
}

func TestNormalizeTrailingPath(t *testing.T) {
	addr, err := Normalize("myserver:8080/ws")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if addr != "myserver:8080" {
		t.Errorf("expected 'myserver:8080', got %q", addr)
	}
}

func TestNormalizeInvalidPort(t *testing.T) {
	if _, err := Normalize("myserver:0"); err == nil {
		t.Error("expected error for port 0")
	}
}

func TestNormalizePortTooHigh(t *testing.T) {
	if _, err := Normalize("myserver:99999"); err == nil {
		t.Error("expected error for port > 65535")
	}
}

func TestNormalizeNonNumericPort(t *testing.T) {
	if _, err := Normalize("myserver:abc"); err == nil {
		t.Error("expected error for non-numeric port")
	}
}

func TestNormalizeDefaultPort(t *testing.T) {
	if defaultPort != "9295" {
		t.Errorf("expected default port '9295', got %q", defaultPort)
	}
}

func TestNormalizeSchemePrefixWithPath(t *testing.T) {
	addr, err := Normalize("vitarp://192.168.1.10:8080/join")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if addr != "192.168.1.10:8080" {
		t.Errorf("expected '192.168.1.10:8080', got %q", addr)
	}
}

func TestNormalizePort1(t *testing.T) {
	addr, err := Normalize("host:1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if addr != "host:1" {
		t.Errorf("expected 'host:1', got %q", addr)
	}
}

func TestNormalizePort65535(t *testing.T) {
	addr, err := Normalize("host:65535")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if addr != "host:65535" {
		t.Errorf("expected 'host:65535', got %q", addr)
	}
}

func TestNormalizeLocalhostDefault(t *testing.T) {
	addr, err := Normalize("localhost")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if addr != "localhost:9295" {
		t.Errorf("expected 'localhost:9295', got %q", addr)
	}
}
