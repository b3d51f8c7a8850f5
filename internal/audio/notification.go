package audio

import "math"

// Chime identifies a connection-quality audio cue. Adapted from the
// synthesized-tone notification system, remapped from
// voice-chat presence events onto the recovery FSM's state transitions and
// the disconnect banner.
type Chime int

const (
	ChimeStreamConnected Chime = iota // ascending two-tone: C5 → G5
	ChimeStreamDegraded               // single low ping: A4
	ChimeReconnecting                 // descending two-tone: G5 → C5
	ChimeStreamLost                   // descending tone: C5 → A4, lower and longer
)

// chimeVolume is the peak amplitude of notification tones in [-1, 1].
const chimeVolume = 0.18

// PlayChime enqueues synthesized PCM frames for chime onto the notification
// mix bus. Non-blocking: drops trailing frames if the channel is full rather
// than stalling the caller (typically the supervisor's Tick goroutine).
func (e *Engine) PlayChime(chime Chime) {
	frames := generateChimeFrames(chime)
	if len(frames) == 0 {
		return
	}
	go func() {
		stopCh := e.stopCh
		for _, frame := range frames {
			select {
			case <-stopCh:
				return
			case e.notifCh <- frame:
			default:
			}
		}
	}()
}

type tone struct {
	freq int
	dur  int // ms
}

func chimeTones(chime Chime) []tone {
	switch chime {
	case ChimeStreamConnected:
		return []tone{{523, 80}, {784, 120}} // C5, G5
	case ChimeStreamDegraded:
		return []tone{{440, 120}} // A4
	case ChimeReconnecting:
		return []tone{{784, 80}, {523, 120}} // G5, C5
	case ChimeStreamLost:
		return []tone{{523, 100}, {440, 200}} // C5 → A4, longer tail
	default:
		return nil
	}
}

func generateChimeFrames(chime Chime) [][]float32 {
	var frames [][]float32
	for _, t := range chimeTones(chime) {
		frames = append(frames, generateSineTone(float64(t.freq), t.dur)...)
	}
	return frames
}

// generateSineTone generates PCM frames for a sine tone at freq Hz lasting
// durationMs milliseconds, with a 5ms linear fade-in/out to avoid clicks.
func generateSineTone(freq float64, durationMs int) [][]float32 {
	totalSamples := sampleRate * durationMs / 1000
	raw := make([]float32, totalSamples)

	fadeLen := sampleRate * 5 / 1000
	if fadeLen > totalSamples/2 {
		fadeLen = totalSamples / 2
	}

	for i := range raw {
		t := float64(i) / float64(sampleRate)
		s := float32(math.Sin(2 * math.Pi * freq * t))

		var env float32 = 1.0
		if i < fadeLen {
			env = float32(i) / float32(fadeLen)
		} else if i >= totalSamples-fadeLen {
			env = float32(totalSamples-1-i) / float32(fadeLen)
		}
		raw[i] = s * env * chimeVolume
	}

	var frames [][]float32
	for off := 0; off < len(raw); off += FrameSize {
		end := off + FrameSize
		frame := make([]float32, FrameSize)
		if end > len(raw) {
			copy(frame, raw[off:])
		} else {
			copy(frame, raw[off:end])
		}
		frames = append(frames, frame)
	}
	return frames
}
