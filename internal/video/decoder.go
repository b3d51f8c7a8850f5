// Package video implements the video pipeline (C3): decoder lifecycle, the
// bounded decode queue, pacing, SPS patching, and fill/letterbox scaling.
// The hardware decoder itself is an external collaborator — a platform
// driver is out of scope — represented here only by the Decoder
// interface.
package video

import "fmt"

// Stage is a point in the decoder's strictly-ordered init ladder.
type Stage int

const (
	NotInit Stage = iota
	InitGs
	Framebuffer
	AvcLib
	DecoderMemblock
	AvcDec
	FramePacer
)

func (s Stage) String() string {
	switch s {
	case NotInit:
		return "NotInit"
	case InitGs:
		return "InitGs"
	case Framebuffer:
		return "Framebuffer"
	case AvcLib:
		return "AvcLib"
	case DecoderMemblock:
		return "DecoderMemblock"
	case AvcDec:
		return "AvcDec"
	case FramePacer:
		return "FramePacer"
	default:
		return "Unknown"
	}
}

// stageOrder is the ladder in init order; teardown walks it in reverse.
var stageOrder = []Stage{InitGs, Framebuffer, AvcLib, DecoderMemblock, AvcDec, FramePacer}

// Decoder is the external hardware decoder collaborator. InitStage and
// TeardownStage must be idempotent w.r.t. re-entry at the same stage — the
// ladder calls them exactly once per stage per direction, but a caller
// recovering from a partial failure may retry the same stage.
type Decoder interface {
	InitStage(s Stage) error
	TeardownStage(s Stage) error
	Decode(frame []byte) (decodedUs int64, err error)
}

// Lifecycle walks a Decoder up and down the seven-stage ladder, undoing
// exactly the stages reached on teardown — no double-free, no leaks on a
// partial init.
type Lifecycle struct {
	dec    Decoder
	reached Stage // highest stage successfully initialized; NotInit if none
}

// NewLifecycle creates a Lifecycle bound to dec, not yet initialized.
func NewLifecycle(dec Decoder) *Lifecycle {
	return &Lifecycle{dec: dec, reached: NotInit}
}

// Stage returns the highest stage currently reached.
func (l *Lifecycle) Stage() Stage {
	return l.reached
}

// Init walks the ladder from whatever stage is currently reached up to
// FramePacer. On a stage failure it stops and returns the error, leaving
// reached at the last stage that succeeded: a later Init resumes at the
// failed stage, and Teardown undoes exactly the stages reached.
func (l *Lifecycle) Init() error {
	startIdx := 0
	for i, s := range stageOrder {
		if s == l.reached {
			startIdx = i + 1
			break
		}
	}
	for i := startIdx; i < len(stageOrder); i++ {
		s := stageOrder[i]
		if err := l.dec.InitStage(s); err != nil {
			return fmt.Errorf("video: init stage %s: %w", s, err)
		}
		l.reached = s
	}
	return nil
}

// Teardown walks back down from the reached stage to NotInit, undoing every
// stage that was reached, in reverse init order. Safe to call multiple
// times or on an already-NotInit lifecycle — it's a no-op past that point.
func (l *Lifecycle) Teardown() error {
	reachedIdx := -1
	for i, s := range stageOrder {
		if s == l.reached {
			reachedIdx = i
			break
		}
	}
	for i := reachedIdx; i >= 0; i-- {
		s := stageOrder[i]
		if err := l.dec.TeardownStage(s); err != nil {
			// Stop at the failed stage; reached reflects what's still live
			// so a retry resumes the teardown from here, not from scratch.
			l.reached = s
			return fmt.Errorf("video: teardown stage %s: %w", s, err)
		}
	}
	l.reached = NotInit
	return nil
}
