package video

import "time"

// NullDecoder is a software stand-in for the platform hardware decoder
// (a platform hardware decoder driver is out of scope here). It walks the init
// ladder without touching any real device, and turns every encoded frame
// into a fixed decode latency, so `cmd/vitarp-client` has something to run
// the pipeline against on a box with no decoder — headless soak runs,
// integration tests, CI.
type NullDecoder struct {
	decodeLatency time.Duration
}

// NewNullDecoder returns a NullDecoder that reports latency as its fixed
// per-frame decode cost. latency <= 0 defaults to a nominal 2ms.
func NewNullDecoder(latency time.Duration) *NullDecoder {
	if latency <= 0 {
		latency = 2 * time.Millisecond
	}
	return &NullDecoder{decodeLatency: latency}
}

func (d *NullDecoder) InitStage(Stage) error     { return nil }
func (d *NullDecoder) TeardownStage(Stage) error { return nil }

// Decode reports the configured latency without touching frame's bytes.
func (d *NullDecoder) Decode(frame []byte) (decodedUs int64, err error) {
	return d.decodeLatency.Microseconds(), nil
}
