// Package reorder implements the sliding-window reorder buffer (C1): a
// power-of-two ring keyed by 16-bit sequence number that holds units until a
// contiguous prefix can be consumed.
//
// The ring shape and the signed-distance wraparound handling are adapted
// from a per-sender jitter buffer
// (rustyguts-bken/client/internal/jitter), generalized from a per-sender map
// of small ring buffers to the single flat ring C1 specifies, and from
// caller-opaque byte slices to a caller-opaque `any` payload.
package reorder

import "vitarp/internal/seqnum"

// slot holds one pending unit in the ring.
type slot struct {
	occupied bool
	user     any
}

// Buffer is the C1 reorder buffer. Not safe for concurrent use; callers
// (C2's frame assembler) serialize access.
type Buffer struct {
	slots []slot
	mask  seqnum.Num16
	base  seqnum.Num16
	size  int
}

// New creates a reorder buffer. capacity must be a positive power of two;
// base anchors the initial window.
func New(capacity int, base seqnum.Num16) *Buffer {
	if capacity <= 0 || capacity&(capacity-1) != 0 {
		panic("reorder: capacity must be a positive power of two")
	}
	return &Buffer{
		slots: make([]slot, capacity),
		mask:  seqnum.Num16(capacity - 1),
		base:  base,
		size:  capacity,
	}
}

// Base returns the current logical window base (the next sequence number
// pull expects).
func (b *Buffer) Base() seqnum.Num16 {
	return b.base
}

// Cap returns the ring capacity (window size in sequence numbers).
func (b *Buffer) Cap() int {
	return b.size
}

func (b *Buffer) index(seq seqnum.Num16) int {
	return int(seq & b.mask)
}

// Push places user at the slot for seq iff seq lies inside the active
// window [base, base+N) and the slot is vacant. Returns false (rejected) if
// out-of-window or the slot is already occupied — no overwrite either way.
func (b *Buffer) Push(seq seqnum.Num16, user any) bool {
	if !seqnum.InWindow(seq, b.base, b.size) {
		return false
	}
	idx := b.index(seq)
	if b.slots[idx].occupied {
		return false
	}
	b.slots[idx] = slot{occupied: true, user: user}
	return true
}

// FindFirstSet returns the first occupied slot searching forward from base.
// idx is the position relative to base (0 means "at the head"), not the raw
// ring array index — two callers comparing idx values are comparing how far
// into the window a unit sits, independent of where it physically landed in
// the ring. It does not mutate the buffer. ok is false if no slot is occupied.
func (b *Buffer) FindFirstSet() (idx int, seq seqnum.Num16, user any, ok bool) {
	for i := 0; i < b.size; i++ {
		s := seqnum.Add(b.base, i)
		si := b.index(s)
		if b.slots[si].occupied {
			return i, s, b.slots[si].user, true
		}
	}
	return 0, 0, nil, false
}

// Pull consumes the slot at base if occupied and advances base by one.
// ok is false (and base unchanged) if the head slot is empty.
func (b *Buffer) Pull() (seq seqnum.Num16, user any, ok bool) {
	idx := b.index(b.base)
	s := b.slots[idx]
	if !s.occupied {
		return 0, nil, false
	}
	seq = b.base
	user = s.user
	b.slots[idx] = slot{}
	b.base = seqnum.Add(b.base, 1)
	return seq, user, true
}

// SkipGap advances base by one position, releasing the slot it passes over.
// Used when a gap is declared unrecoverable and the caller wants to step
// past the head-of-line position one sequence number at a time, re-checking
// FindFirstSet after each call rather than jumping straight to the next
// occupied slot — a gap that's partly filled in still surfaces each hole to
// the caller instead of silently swallowing it.
func (b *Buffer) SkipGap() {
	b.slots[b.index(b.base)] = slot{}
	b.base = seqnum.Add(b.base, 1)
}

// Drop advances base by count regardless of occupancy, releasing any slots
// it passes over (used to skip ahead of a declared unrecoverable region).
func (b *Buffer) Drop(count int) {
	for i := 0; i < count; i++ {
		b.slots[b.index(b.base)] = slot{}
		b.base = seqnum.Add(b.base, 1)
	}
}

// Fini releases the ring's storage. The buffer must not be used afterward.
func (b *Buffer) Fini() {
	b.slots = nil
}
