// Package seqnum implements modular ordering for 16-bit sequence numbers.
//
// Sequence numbers wrap at 65536. Two values are compared by signed 16-bit
// distance rather than unsigned subtraction, so a number just after a
// rollover still orders correctly against one just before it.
package seqnum

// Num16 is a 16-bit sequence number with modular ordering.
type Num16 = uint16

// Distance returns the signed distance from b to a, i.e. a-b interpreted as
// an int16. A positive result means a is ahead of b in the window; negative
// means a is behind b.
func Distance(a, b Num16) int16 {
	return int16(a - b)
}

// Less reports whether a precedes b in modular sequence order.
func Less(a, b Num16) bool {
	return Distance(a, b) < 0
}

// LessEqual reports whether a precedes or equals b in modular sequence order.
func LessEqual(a, b Num16) bool {
	return Distance(a, b) <= 0
}

// InWindow reports whether seq lies in the half-open window [base, base+size)
// under modular arithmetic. size must be > 0 and <= 32768 for the result to
// be unambiguous.
func InWindow(seq, base Num16, size int) bool {
	d := Distance(seq, base)
	return d >= 0 && int(d) < size
}

// Add returns base advanced by n positions, wrapping at 65536.
func Add(base Num16, n int) Num16 {
	return Num16(int(base) + n)
}
