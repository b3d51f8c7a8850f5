package logging

import (
	"os"
	"path/filepath"
	"testing"
)

func TestOffProfileDiscardsEverything(t *testing.T) {
	logger, ring, file := New(Off, 16, "")
	defer func() {
		if file != nil {
			file.Close()
		}
	}()

	logger.Info("should not appear")
	logger.Error("also should not appear")

	if len(ring.Entries()) != 0 {
		t.Errorf("Entries() = %v, want none under the Off profile", ring.Entries())
	}
}

func TestStandardProfileWritesToRing(t *testing.T) {
	logger, ring, file := New(Standard, 16, "")
	defer func() {
		if file != nil {
			file.Close()
		}
	}()

	logger.Info("hello", "key", "value")

	entries := ring.Entries()
	if len(entries) != 1 {
		t.Fatalf("len(entries) = %d, want 1", len(entries))
	}
	if !contains(entries[0], "hello") || !contains(entries[0], "key=value") {
		t.Errorf("entry = %q, want it to contain the message and structured field", entries[0])
	}
}

func TestErrorsProfileFiltersBelowError(t *testing.T) {
	logger, ring, file := New(Errors, 16, "")
	defer func() {
		if file != nil {
			file.Close()
		}
	}()

	logger.Info("filtered out")
	logger.Error("kept")

	entries := ring.Entries()
	if len(entries) != 1 {
		t.Fatalf("len(entries) = %d, want 1 (only the Error record)", len(entries))
	}
	if !contains(entries[0], "kept") {
		t.Errorf("entry = %q, want it to contain 'kept'", entries[0])
	}
}

func TestNewTeesToFileWhenPathGiven(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vitarp.log")
	logger, _, file := New(Standard, 16, path)
	if file == nil {
		t.Fatal("expected a non-nil file handle when path is given")
	}
	logger.Info("to disk")
	file.Close()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !contains(data, "to disk") {
		t.Errorf("file contents = %q, want it to contain the logged message", data)
	}
}

func contains(haystack []byte, needle string) bool {
	return len(needle) == 0 || indexOf(string(haystack), needle) >= 0
}

func indexOf(s, substr string) int {
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return i
		}
	}
	return -1
}
