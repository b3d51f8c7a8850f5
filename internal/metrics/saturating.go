package metrics

import "sync/atomic"

const saturatingMax = 1<<32 - 1

// Saturating is a 32-bit counter that clamps at its max instead of
// wrapping, with a one-shot "just saturated" edge the caller can consume
// exactly once per saturation event (used by LossWindow/LossBurst and other
// saturation").
type Saturating struct {
	v         atomic.Uint64 // stored as uint64 so a sum past the 32-bit max can't wrap before the clamp
	saturated atomic.Bool
}

// Add adds delta (which must be >= 0) and clamps at saturatingMax.
func (s *Saturating) Add(delta uint32) {
	for {
		cur := s.v.Load()
		next := cur + uint64(delta)
		if next >= saturatingMax {
			next = saturatingMax
			s.v.Store(next)
			s.saturated.Store(true)
			return
		}
		if s.v.CompareAndSwap(cur, next) {
			return
		}
	}
}

// Value returns the current counter value.
func (s *Saturating) Value() uint32 {
	return uint32(s.v.Load())
}

// TakeSaturated reports whether the counter has saturated since the last
// call, clearing the flag — exactly the one-shot edge semantics these counters need.
func (s *Saturating) TakeSaturated() bool {
	return s.saturated.CompareAndSwap(true, false)
}

// Reset zeroes the counter and clears any pending saturation flag, as
// required by the recovery-reset path triggered on saturation.
func (s *Saturating) Reset() {
	s.v.Store(0)
	s.saturated.Store(false)
}
