// Package audio implements the two ambient, non-core audio paths the
// console session exposes: microphone passthrough for party chat, and
// synthesized notification chimes tied to the recovery FSM and disconnect
// banner. Both are adapted from a multi-user voice
// engine (capture → AEC → noise-gate → AGC → VAD → Opus-encode), generalized
// from "encode and send to the voice-chat transport" to "encode and send as
// the session transport's microphone channel," and simplified from a
// per-sender mixer down to the single console audio source this domain has.
package audio

import (
	"math"
	"sync"
	"sync/atomic"

	"github.com/gordonklaus/portaudio"
	"gopkg.in/hraban/opus.v2"

	"vitarp/internal/adapt"
	"vitarp/internal/aec"
	"vitarp/internal/agc"
	"vitarp/internal/jitter"
	"vitarp/internal/noisegate"
	"vitarp/internal/vad"
)

const (
	sampleRate = 48000
	channels   = 1
	FrameSize  = 960 // 20ms @ 48kHz

	micOpusBitrate = 24000
	opusMaxPacketBytes = 1275 // RFC 6716 max Opus packet size

	captureChannelBuf  = 30
	playbackChannelBuf = 30
	notifChannelBuf    = 200

	// consoleSenderID is the fixed jitter-buffer key for the single console
	// audio source; unlike a multi-user chat there is exactly
	// one remote party here.
	consoleSenderID = uint16(0)

	jitterDepth = 2
)

// Device describes an available audio device.
type Device struct {
	ID   int
	Name string
}

// MicSender is the capability internal/audio needs from the session
// transport: pushing an Opus-encoded mic frame out as the console party-chat
// upload. Kept as a narrow local interface (like supervisor's
// AVDistressSource/IDRRequester) so this package never imports
// internal/transport directly.
type MicSender interface {
	SendMicFrame(payload []byte) error
}

// paStream abstracts a PortAudio stream for testing.
type paStream interface {
	Start() error
	Stop() error
	Close() error
	Read() error
	Write() error
}

// opusEncoder abstracts Opus encoding for testing.
type opusEncoder interface {
	Encode(pcm []int16, data []byte) (int, error)
	SetBitrate(bitrate int) error
	SetDTX(dtx bool) error
	SetInBandFEC(fec bool) error
	SetPacketLossPerc(lossPerc int) error
}

// opusDecoder abstracts Opus decoding for testing.
type opusDecoder interface {
	Decode(data []byte, pcm []int16) (int, error)
	DecodeFEC(data []byte, pcm []int16) error
}

// taggedFrame is one inbound console audio frame queued for playback.
type taggedFrame struct {
	seq      uint16
	opusData []byte
}

// Engine owns microphone capture (mic passthrough to the console) and
// speaker playback (mixing of on_audio_frame PCM from the session transport,
// or of raw Opus payloads via PushAudioFrame/DecodeFrame for direct testing),
// plus notification chime mixing.
type Engine struct {
	mu sync.Mutex

	inputDeviceID  int
	outputDeviceID int
	volume         float64

	sender MicSender

	encoder     opusEncoder
	decoder     opusDecoder
	encoderKbps int

	captureStream  paStream
	playbackStream paStream

	captureOut chan []byte
	playbackIn chan taggedFrame
	pcmIn      chan []int16
	notifCh    chan []float32
	notifScale atomic.Uint32

	aecProc    *aec.AEC
	aecEnabled atomic.Bool

	agcProc    *agc.AGC
	agcEnabled atomic.Bool

	vadProc  *vad.VAD
	gateProc *noisegate.Gate

	running   atomic.Bool
	muted     atomic.Bool
	pttMode   atomic.Bool
	pttActive atomic.Bool

	nextPlaySeq atomic.Uint32

	captureDropped  atomic.Uint64
	playbackDropped atomic.Uint64
	micSendFailures atomic.Uint64

	inputLevel atomic.Uint32

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// New returns an Engine that sends encoded mic frames through sender.
func New(sender MicSender) *Engine {
	e := &Engine{
		inputDeviceID:  -1,
		outputDeviceID: -1,
		volume:         1.0,
		sender:         sender,
		aecProc:        aec.New(FrameSize),
		agcProc:        agc.New(),
		vadProc:        vad.New(),
		gateProc:       noisegate.New(),
		captureOut:     make(chan []byte, captureChannelBuf),
		playbackIn:     make(chan taggedFrame, playbackChannelBuf),
		pcmIn:          make(chan []int16, playbackChannelBuf),
		notifCh:        make(chan []float32, notifChannelBuf),
		stopCh:         make(chan struct{}),
	}
	e.notifScale.Store(math.Float32bits(1.0))
	return e
}

// SetInputDevice sets the microphone device by index.
func (e *Engine) SetInputDevice(id int) {
	e.mu.Lock()
	e.inputDeviceID = id
	e.mu.Unlock()
}

// SetOutputDevice sets the speaker device by index.
func (e *Engine) SetOutputDevice(id int) {
	e.mu.Lock()
	e.outputDeviceID = id
	e.mu.Unlock()
}

// SetVolume sets speaker playback volume in [0.0, 1.0].
func (e *Engine) SetVolume(vol float64) {
	if vol < 0 {
		vol = 0
	}
	if vol > 1 {
		vol = 1
	}
	e.mu.Lock()
	e.volume = vol
	e.mu.Unlock()
}

// SetAEC enables or disables acoustic echo cancellation on the mic path.
func (e *Engine) SetAEC(enabled bool) { e.aecProc.SetEnabled(enabled); e.aecEnabled.Store(enabled) }

// SetAGC enables or disables automatic gain control on the mic path.
func (e *Engine) SetAGC(enabled bool) {
	if enabled {
		e.agcProc.Reset()
	}
	e.agcEnabled.Store(enabled)
}

// SetVAD enables or disables voice activity detection on the mic path.
func (e *Engine) SetVAD(enabled bool) { e.vadProc.SetEnabled(enabled) }

// SetNoiseGate enables or disables the hard noise gate on the mic path.
func (e *Engine) SetNoiseGate(enabled bool) { e.gateProc.SetEnabled(enabled) }

// SetMuted mutes or unmutes the microphone.
func (e *Engine) SetMuted(muted bool) { e.muted.Store(muted) }

// SetPTTMode enables or disables push-to-talk. When enabled, the microphone
// only transmits while the PTT key is held.
func (e *Engine) SetPTTMode(enabled bool) {
	e.pttMode.Store(enabled)
	if !enabled {
		e.pttActive.Store(false)
	}
}

// SetPTTActive sets whether the push-to-talk key is currently held.
func (e *Engine) SetPTTActive(active bool) { e.pttActive.Store(active) }

// InputLevel returns the most recent pre-gate RMS mic level (0.0-1.0).
func (e *Engine) InputLevel() float32 { return math.Float32frombits(e.inputLevel.Load()) }

// SetNotificationVolume sets the notification chime volume (0.0-1.0).
func (e *Engine) SetNotificationVolume(vol float32) {
	if vol < 0 {
		vol = 0
	}
	if vol > 1 {
		vol = 1
	}
	e.notifScale.Store(math.Float32bits(vol))
}

// DroppedFrames returns and resets the capture/playback drop counters.
func (e *Engine) DroppedFrames() (capture, playback uint64) {
	return e.captureDropped.Swap(0), e.playbackDropped.Swap(0)
}

// MicSendFailures returns and resets the count of SendMicFrame errors.
func (e *Engine) MicSendFailures() uint64 { return e.micSendFailures.Swap(0) }

// AdjustBitrate steps the mic Opus encoder's target bitrate up or down
// adapt's ladder based on the stream's observed loss rate and RTT, so a
// degrading video link also throttles back the competing mic bandwidth.
// A no-op before Start (no encoder yet).
func (e *Engine) AdjustBitrate(lossRate, rttMs float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.encoder == nil {
		return
	}
	next := adapt.NextBitrate(e.encoderKbps, lossRate, rttMs)
	if next == e.encoderKbps {
		return
	}
	if err := e.encoder.SetBitrate(next * 1000); err != nil {
		return
	}
	e.encoderKbps = next
}

// EncoderBitrateKbps returns the mic encoder's current target bitrate, or 0
// before Start.
func (e *Engine) EncoderBitrateKbps() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.encoderKbps
}

// PushAudioFrame enqueues an Opus-encoded on_audio_frame payload from the
// console for decode and playback. Non-blocking: drops (counted) if the
// playback queue is full.
func (e *Engine) PushAudioFrame(payload []byte) {
	seq := uint16(e.nextPlaySeq.Add(1) - 1)
	frame := taggedFrame{seq: seq, opusData: payload}
	select {
	case e.playbackIn <- frame:
	default:
		e.playbackDropped.Add(1)
	}
}

// PushPCMFrame enqueues a console audio frame that the session transport has
// already decoded to PCM int16 (the audio track delivers decoded samples,
// not an Opus bitstream — the codec, if any, is the transport's concern, not
// this package's). Mixed into the speaker output the same way as a decoded
// Opus frame from PushAudioFrame, just skipping the decode step. Non-blocking:
// drops (counted) if the playback queue is full.
func (e *Engine) PushPCMFrame(samples []int16) {
	select {
	case e.pcmIn <- samples:
	default:
		e.playbackDropped.Add(1)
	}
}

func listDevices(match func(*portaudio.DeviceInfo) bool) []Device {
	devices, err := portaudio.Devices()
	if err != nil {
		return nil
	}
	var out []Device
	for i, d := range devices {
		if match(d) {
			out = append(out, Device{ID: i, Name: d.Name})
		}
	}
	return out
}

// ListInputDevices returns available microphone devices.
func (e *Engine) ListInputDevices() []Device {
	return listDevices(func(d *portaudio.DeviceInfo) bool { return d.MaxInputChannels > 0 })
}

// ListOutputDevices returns available speaker devices.
func (e *Engine) ListOutputDevices() []Device {
	return listDevices(func(d *portaudio.DeviceInfo) bool { return d.MaxOutputChannels > 0 })
}

func resolveDevice(devices []*portaudio.DeviceInfo, idx int, fallback func() (*portaudio.DeviceInfo, error)) (*portaudio.DeviceInfo, error) {
	if idx >= 0 && idx < len(devices) {
		return devices[idx], nil
	}
	return fallback()
}

// Start initializes the Opus codec and starts capture/playback streams.
func (e *Engine) Start() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.running.Load() {
		return nil
	}

	enc, err := opus.NewEncoder(sampleRate, channels, opus.AppVoIP)
	if err != nil {
		return err
	}
	enc.SetBitrate(micOpusBitrate)
	enc.SetDTX(true)
	enc.SetInBandFEC(true)
	enc.SetPacketLossPerc(5)
	e.encoder = enc
	e.encoderKbps = micOpusBitrate / 1000

	dec, err := opus.NewDecoder(sampleRate, channels)
	if err != nil {
		return err
	}
	e.decoder = dec

	devices, err := portaudio.Devices()
	if err != nil {
		return err
	}
	inputDev, err := resolveDevice(devices, e.inputDeviceID, portaudio.DefaultInputDevice)
	if err != nil {
		return err
	}
	outputDev, err := resolveDevice(devices, e.outputDeviceID, portaudio.DefaultOutputDevice)
	if err != nil {
		return err
	}

	captureBuf := make([]float32, FrameSize)
	captureStream, err := portaudio.OpenStream(portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Device: inputDev, Channels: channels, Latency: inputDev.DefaultLowInputLatency,
		},
		SampleRate:      sampleRate,
		FramesPerBuffer: FrameSize,
	}, captureBuf)
	if err != nil {
		return err
	}

	playbackBuf := make([]float32, FrameSize)
	playbackStream, err := portaudio.OpenStream(portaudio.StreamParameters{
		Output: portaudio.StreamDeviceParameters{
			Device: outputDev, Channels: channels, Latency: outputDev.DefaultLowOutputLatency,
		},
		SampleRate:      sampleRate,
		FramesPerBuffer: FrameSize,
	}, playbackBuf)
	if err != nil {
		captureStream.Close()
		return err
	}

	if err := captureStream.Start(); err != nil {
		captureStream.Close()
		playbackStream.Close()
		return err
	}
	if err := playbackStream.Start(); err != nil {
		captureStream.Stop()
		captureStream.Close()
		playbackStream.Close()
		return err
	}

	e.captureStream = captureStream
	e.playbackStream = playbackStream
	e.stopCh = make(chan struct{})
	e.running.Store(true)

	e.wg.Add(3)
	go func() { defer e.wg.Done(); e.captureLoop(captureBuf) }()
	go func() { defer e.wg.Done(); e.sendLoop() }()
	go func() { defer e.wg.Done(); e.playbackLoop(playbackBuf) }()

	return nil
}

// Stop halts capture and playback, waiting for the loop goroutines to exit
// before freeing the native stream objects, matching the safe ordering
// (stop unblocks Read/Write, then wg.Wait, then Close) to avoid touching a
// freed PortAudio stream.
func (e *Engine) Stop() {
	if !e.running.CompareAndSwap(true, false) {
		return
	}
	close(e.stopCh)

	e.mu.Lock()
	if e.captureStream != nil {
		e.captureStream.Stop()
	}
	if e.playbackStream != nil {
		e.playbackStream.Stop()
	}
	e.mu.Unlock()

	e.wg.Wait()

	e.mu.Lock()
	if e.captureStream != nil {
		e.captureStream.Close()
		e.captureStream = nil
	}
	if e.playbackStream != nil {
		e.playbackStream.Close()
		e.playbackStream = nil
	}
	e.mu.Unlock()
}

func zeroFloat32(buf []float32) {
	for i := range buf {
		buf[i] = 0
	}
}

func clampFloat32(v float32) float32 {
	if v > 1.0 {
		return 1.0
	}
	if v < -1.0 {
		return -1.0
	}
	return v
}

func (e *Engine) captureLoop(buf []float32) {
	pcm := make([]int16, FrameSize)
	opusBuf := make([]byte, opusMaxPacketBytes)

	for e.running.Load() {
		if err := e.captureStream.Read(); err != nil {
			return
		}

		if e.aecEnabled.Load() {
			e.aecProc.Process(buf)
		}

		preGateRMS := e.gateProc.Process(buf)
		e.inputLevel.Store(math.Float32bits(preGateRMS))

		if e.agcEnabled.Load() {
			e.agcProc.Process(buf)
		}

		if e.pttMode.Load() && !e.pttActive.Load() {
			continue
		}
		if !e.pttMode.Load() && !e.vadProc.ShouldSend(vad.RMS(buf)) {
			continue
		}
		if e.muted.Load() {
			continue
		}

		for i, s := range buf {
			pcm[i] = int16(clampFloat32(s) * 32767)
		}

		n, err := e.encoder.Encode(pcm, opusBuf)
		if err != nil {
			continue
		}
		encoded := make([]byte, n)
		copy(encoded, opusBuf[:n])

		select {
		case e.captureOut <- encoded:
		default:
			e.captureDropped.Add(1)
		}
	}
}

// sendLoop drains encoded mic frames and hands them to the session
// transport's mic channel, kept as its own goroutine so a slow sender never
// stalls captureLoop's real-time PortAudio read cycle.
func (e *Engine) sendLoop() {
	for {
		select {
		case <-e.stopCh:
			return
		case frame := <-e.captureOut:
			if e.sender == nil {
				continue
			}
			if err := e.sender.SendMicFrame(frame); err != nil {
				e.micSendFailures.Add(1)
			}
		}
	}
}

func (e *Engine) playbackLoop(buf []float32) {
	pcm := make([]int16, FrameSize)
	jb := jitter.New(jitterDepth)

	for {
		select {
		case <-e.stopCh:
			return
		default:
		}

	drain:
		for {
			select {
			case tagged := <-e.playbackIn:
				jb.Push(consoleSenderID, tagged.seq, tagged.opusData)
			default:
				break drain
			}
		}

		zeroFloat32(buf)

		e.mu.Lock()
		vol := e.volume
		e.mu.Unlock()
		scale := float32(vol) / 32768.0

		for _, f := range jb.Pop() {
			var n int
			var err error
			if f.OpusData != nil {
				n, err = e.decoder.Decode(f.OpusData, pcm)
			} else {
				// Packet loss concealment: Opus extrapolates from its
				// internal decoder state to fill the gap.
				n, err = e.decoder.Decode(nil, pcm)
			}
			if err != nil {
				continue
			}
			for i := 0; i < n; i++ {
				buf[i] += float32(pcm[i]) * scale
			}
		}

	pcmDrain:
		for {
			select {
			case samples := <-e.pcmIn:
				for i := 0; i < len(samples) && i < len(buf); i++ {
					buf[i] += float32(samples[i]) * scale
				}
			default:
				break pcmDrain
			}
		}

		for i := range buf {
			buf[i] = clampFloat32(buf[i])
		}

		select {
		case notifFrame := <-e.notifCh:
			ns := math.Float32frombits(e.notifScale.Load())
			for i, s := range notifFrame {
				buf[i] = clampFloat32(buf[i] + s*ns)
			}
		default:
		}

		e.aecProc.FeedFarEnd(buf)

		if err := e.playbackStream.Write(); err != nil {
			return
		}
	}
}

// DecodeFrame decodes a single Opus payload to PCM int16. Exported for
// testing and for a caller that wants to decode without going through the
// jitter-buffered playback loop.
func (e *Engine) DecodeFrame(data []byte) ([]int16, error) {
	pcm := make([]int16, FrameSize)
	n, err := e.decoder.Decode(data, pcm)
	if err != nil {
		return nil, err
	}
	return pcm[:n], nil
}

// DecodeFEC recovers the frame that preceded data using Opus's in-band FEC:
// data is assumed to carry a low-bitrate redundant copy of the previous,
// lost frame (requires the encoder to have SetInBandFEC(true), as this
// package's encoder does).
func (e *Engine) DecodeFEC(data []byte) ([]int16, error) {
	pcm := make([]int16, FrameSize)
	if err := e.decoder.DecodeFEC(data, pcm); err != nil {
		return nil, err
	}
	return pcm, nil
}

// EncodeFrame encodes a PCM int16 frame to Opus. Exported for testing.
func (e *Engine) EncodeFrame(pcm []int16) ([]byte, error) {
	buf := make([]byte, opusMaxPacketBytes)
	n, err := e.encoder.Encode(pcm, buf)
	if err != nil {
		return nil, err
	}
	return buf[:n], nil
}
