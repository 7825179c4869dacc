// Package buffer implements the grow-only send/recv/sendlist scratch
// buffers spec.md §5 "Buffer policy" and §3 "Buffers" describe: monotonic
// growth with a 1.5x hysteresis factor and a small fixed reserve, so a
// buffer that has just grown to fit one message absorbs the next-larger
// one too without another reallocation. Grounded on Comm::grow_send,
// Comm::grow_recv, Comm::grow_list, and Comm::grow_swap.
package buffer

const (
	// bufFactor is the hysteresis growth multiplier (Comm::BUFFACTOR).
	bufFactor = 1.5
	// bufMin is the smallest size a buffer grows to from empty
	// (Comm::BUFMIN).
	bufMin = 1000
	// bufExtra is a small fixed reserve added on top of the requested size
	// so the allocation absorbs minor overshoot without regrowing
	// (Comm::BUFEXTRA).
	bufExtra = 1000
)

// grow returns the new capacity for a buffer currently sized cur that must
// hold at least need elements, applying the hysteresis factor and reserve.
func grow(cur, need int) int {
	if need <= cur {
		return cur
	}
	target := need + bufExtra
	n := cur
	if n < bufMin {
		n = bufMin
	}
	for n < target {
		n = int(float64(n) * bufFactor)
		if n < bufMin {
			n = bufMin
		}
	}
	return n
}

// DoubleBuffer holds the paired buf_send/buf_recv scratch arrays used by
// forward-comm, reverse-comm, exchange, and borders.
type DoubleBuffer struct {
	Send []float64
	Recv []float64
}

// GrowSend ensures Send can hold at least need float64s. If copy is true,
// the existing contents are preserved (the original's "flag=1 path" for
// growing a buffer the caller has already written into); otherwise the
// buffer is reallocated without copying, since any prior contents are
// about to be overwritten anyway.
func (b *DoubleBuffer) GrowSend(need int, copyContents bool) {
	if need <= len(b.Send) {
		return
	}
	n := grow(len(b.Send), need)
	if copyContents {
		grown := make([]float64, n)
		copy(grown, b.Send)
		b.Send = grown
	} else {
		b.Send = make([]float64, n)
	}
}

// GrowRecv ensures Recv can hold at least need float64s. Recv is always
// reallocated without copy: it is only ever written freshly by an
// incoming message, never accumulated into across calls.
func (b *DoubleBuffer) GrowRecv(need int) {
	if need <= len(b.Recv) {
		return
	}
	b.Recv = make([]float64, grow(len(b.Recv), need))
}

// SendList is the per-swap resizable list of local particle indices
// selected during borders, reused every step until the next reneighbor
// (spec.md §3 "sendlist[s]"). Growth preserves contents because borders
// appends to it while building it (spec.md §5 "Buffer policy").
type SendList struct {
	idx []int
	n   int
}

// Reset clears the list to length 0 without releasing its backing array,
// mirroring the original's per-reneighbor sendlist reuse.
func (s *SendList) Reset() { s.n = 0 }

// Append adds i to the list, growing the backing array with hysteresis and
// content preservation if needed.
func (s *SendList) Append(i int) {
	if s.n == len(s.idx) {
		newCap := grow(len(s.idx), s.n+1)
		grown := make([]int, newCap)
		copy(grown, s.idx)
		s.idx = grown
	}
	s.idx[s.n] = i
	s.n++
}

// Len returns the number of indices currently in the list.
func (s *SendList) Len() int { return s.n }

// Indices returns the list's current contents. The returned slice aliases
// SendList's backing array and is only valid until the next Append/Reset.
func (s *SendList) Indices() []int { return s.idx[:s.n] }
