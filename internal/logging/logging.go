// Package logging builds the root structured logger from the
// logging.{profile,queue_depth,path} config keys. A single *slog.Logger is
// constructed once in cmd/vitarp-client/main.go and threaded into every
// component constructor — never a package-level global — each component
// deriving its own child with With("component", name), matching the
// "consistent prefix per subsystem" runtime-output requirement.
package logging

import (
	"io"
	"log/slog"
	"os"

	"vitarp/internal/logbuf"
)

// Profile selects a verbosity preset. Off installs a discard handler so a
// hot path never pays for formatting a dropped record.
type Profile string

const (
	Off      Profile = "Off"
	Errors   Profile = "Errors"
	Standard Profile = "Standard"
	Verbose  Profile = "Verbose"
)

func (p Profile) level() slog.Level {
	switch p {
	case Errors:
		return slog.LevelError
	case Verbose:
		return slog.LevelDebug
	default:
		return slog.LevelInfo
	}
}

// New builds the root logger for profile, backed by a bounded drop-oldest
// ring of depth queueDepth. When path is non-empty the same records are also
// appended to the file at path; a file that can't be opened is skipped
// silently (best effort, matching the best-effort control-stream
// writes) and logging falls back to the ring alone.
//
// Returns the logger, its ring buffer (for a diagnostics panel or a
// debug dump command), and the opened log file, if any, so the caller can
// close it on shutdown.
func New(profile Profile, queueDepth int, path string) (*slog.Logger, *logbuf.RingWriter, *os.File) {
	if profile == Off {
		return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 1})), logbuf.New(1), nil
	}

	ring := logbuf.New(queueDepth)
	var dest io.Writer = ring
	var file *os.File
	if path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err == nil {
			file = f
			dest = io.MultiWriter(ring, f)
		}
	}

	handler := slog.NewTextHandler(dest, &slog.HandlerOptions{Level: profile.level()})
	return slog.New(handler), ring, file
}
