package comm

import "errors"

// Error taxonomy for the communicator's structural failures (spec.md §7).
// BadGrid is grid.ErrBadGrid, reused rather than duplicated, since the grid
// package already owns the "px*py*pz != nprocs" check.
var (
	// ErrDimensionMismatch is returned when a 2D simulation is configured
	// with Pz != 1.
	ErrDimensionMismatch = errors.New("comm: 2D simulation requires pz == 1")

	// ErrBufferTooLarge is returned when a buffer growth request overflows
	// what the process can reasonably allocate.
	ErrBufferTooLarge = errors.New("comm: requested buffer size too large")
)

// LostParticles is a running counter of particles silently dropped by
// Exchange because they moved more than one sub-box in a single step, or
// escaped a non-periodic boundary (spec.md §7 "LostParticle": "silent
// drop (documented)", the one tolerated soft failure — not an error type
// at all, just a count and an optional diagnostic.
type LostParticles struct {
	count int64
}

// Add records n additional lost particles.
func (l *LostParticles) Add(n int) { l.count += int64(n) }

// Count returns the total particles lost so far.
func (l *LostParticles) Count() int64 { return l.count }
