package input

import (
	"sync"
	"sync/atomic"
	"time"
)

// tickInterval is the local controller/touch sampling period (spec: 2ms).
const tickInterval = 2 * time.Millisecond

// Well-known analog stick axis IDs a Source reports in its analogs map.
// Unlike button/touch identifiers these never go through the mapping
// table — the two analog sticks always pass through directly.
const (
	StickLeftX  ID = "stick_l_x"
	StickLeftY  ID = "stick_l_y"
	StickRightX ID = "stick_r_x"
	StickRightY ID = "stick_r_y"
)

// Source is the local platform collaborator C4 samples every tick: raw
// button/analog/motion state plus any touch events since the last sample.
// Kept as an interface for dependency injection, the same style used
// uses for its audio/transport collaborators, so the loop is testable
// without real hardware.
type Source interface {
	SampleButtons() (heldIDs []ID, analogs map[ID]int8, motion [3]float64)
	SampleTouchEvents() []RawTouchEvent
}

// RawTouchEvent is a raw contact-state change reported by Source between
// ticks, before it's run through the TouchTracker.
type RawTouchEvent struct {
	VitaTouchID int
	X, Y        float64
	Kind        RawTouchKind
}

// RawTouchKind distinguishes a contact's begin/move/end edges.
type RawTouchKind int

const (
	TouchBegin RawTouchKind = iota
	TouchMove
	TouchEnd
)

// Sender is the session transport capability C4 depends on: pushing a
// controller snapshot and, separately, a touchpad absolute-position event.
type Sender interface {
	SendControllerSnapshot(Snapshot)
	SendTouchEvent(TouchEvent)
}

// Pipeline owns the mapping table, touch tracker, exit-combo detector,
// PS-button FSM, and gate, and runs the dedicated 2ms sampling loop.
type Pipeline struct {
	mapping *MappingTable
	touch   TouchTracker
	combo   ExitCombo
	ps      *PSButtonFSM
	gate    Gate

	src    Source
	sender Sender

	shouldExit atomic.Bool
	mu         sync.Mutex
	stopRequested bool
	psWasHeld     bool // PS level on the previous tick, for edge detection

	onExitCombo func()
}

// NewPipeline constructs a Pipeline. mapping must already be populated by
// the caller from the persisted config.
func NewPipeline(mapping *MappingTable, src Source, sender Sender, psDualMode bool) *Pipeline {
	return &Pipeline{
		mapping: mapping,
		ps:      NewPSButtonFSM(psDualMode),
		src:     src,
		sender:  sender,
	}
}

// SetOnExitCombo registers a callback invoked the one time the exit combo
// is held long enough to request a stream stop.
func (p *Pipeline) SetOnExitCombo(fn func()) {
	p.onExitCombo = fn
}

// SetGateOpen toggles the controller_gate_open boolean.
func (p *Pipeline) SetGateOpen(open bool) {
	p.gate.SetOpen(open)
}

// RequestExit sets input_thread_should_exit; the running loop observes it
// on its next tick and returns, allowing a clean join rather than detaching.
func (p *Pipeline) RequestExit() {
	p.shouldExit.Store(true)
}

// Run is the dedicated sampling loop: reads local state every tickInterval,
// translates it through the mapping table, and forwards the result to the
// transport. Blocks until RequestExit is called; intended to be run in its
// own goroutine and joined via a WaitGroup by the caller.
func (p *Pipeline) Run() {
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	for !p.shouldExit.Load() {
		<-ticker.C
		if !p.gate.Open() {
			time.Sleep(time.Millisecond)
			p.gate.Publish(Snapshot{})
			continue
		}
		p.sampleOnce(time.Now())
	}
}

func (p *Pipeline) sampleOnce(now time.Time) {
	heldIDs, analogs, motion := p.src.SampleButtons()

	var snap Snapshot
	var lHeld, rHeld, startHeld, psHeld bool
	for _, id := range heldIDs {
		if out, ok := p.mapping.IsAnalogTrigger(id); ok {
			switch out {
			case L2:
				snap.TriggerL2 = 0xff
			case R2:
				snap.TriggerR2 = 0xff
			}
			continue
		}
		out := p.mapping.Lookup(id)
		switch out {
		case NONE:
			continue
		case L1:
			lHeld = true
		case R1:
			rHeld = true
		case OPTIONS:
			startHeld = true
		case PS:
			psHeld = true
			if p.ps.enabled {
				// Dual mode: the remote PS bit comes only from handlePS.
				continue
			}
		}
		snap.Buttons |= buttonBit(out)
	}
	snap.AxisLX, snap.AxisLY = analogs[StickLeftX], analogs[StickLeftY]
	snap.AxisRX, snap.AxisRY = analogs[StickRightX], analogs[StickRightY]
	snap.MotionX, snap.MotionY, snap.MotionZ = motion[0], motion[1], motion[2]

	if p.combo.Tick(lHeld && rHeld && startHeld) {
		p.mu.Lock()
		already := p.stopRequested
		p.stopRequested = true
		p.mu.Unlock()
		if !already && p.onExitCombo != nil {
			p.onExitCombo()
		}
	}

	p.handlePS(psHeld, now, &snap)

	for _, raw := range p.src.SampleTouchEvents() {
		p.handleTouch(raw)
	}

	published := p.gate.Publish(snap)
	p.sender.SendControllerSnapshot(published)
}

func (p *Pipeline) handlePS(held bool, now time.Time, snap *Snapshot) {
	var action PSButtonAction
	switch {
	case held && !p.psWasHeld:
		action = p.ps.Press(now)
	case !held && p.psWasHeld:
		action = p.ps.Release(now)
	}
	p.psWasHeld = held
	if tickAction := p.ps.Tick(now); tickAction != PSActionNone {
		action = tickAction
	}
	switch action {
	case PSActionEmitRemotePS:
		snap.Buttons |= buttonBit(PS)
	case PSActionEnterLocalPassthrough:
		// PS is intercepted locally; no bit is set on the remote snapshot.
	}
}

func (p *Pipeline) handleTouch(raw RawTouchEvent) {
	var ev TouchEvent
	var ok bool
	switch raw.Kind {
	case TouchBegin:
		ev, ok = p.touch.Begin(raw.VitaTouchID, raw.X, raw.Y)
	case TouchMove:
		ev, ok = p.touch.Move(raw.VitaTouchID, raw.X, raw.Y)
	case TouchEnd:
		ev, ok = p.touch.End(raw.VitaTouchID)
	}
	if ok {
		p.sender.SendTouchEvent(ev)
	}
}

func buttonBit(out Output) uint32 {
	if out == NONE {
		return 0
	}
	return 1 << uint32(out-1)
}
