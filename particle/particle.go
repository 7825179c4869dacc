// Package particle describes the particle store contract the communicator
// needs (spec.md §6 "Required capabilities from the particle store") and
// provides a reference implementation exercising the five-operation
// pack/unpack codec family of spec.md §4.9: pack_comm/unpack_comm (forward),
// pack_reverse/unpack_reverse, and pack_border(_vel)/unpack_border(_vel)/
// pack_exchange/unpack_exchange.
package particle

// Store is the capability set the communicator requires from the particle
// store. Implementations own the owned/ghost arrays and the global->local
// index map; the communicator only ever asks for counts, array access
// through the codec methods below, and array bookkeeping (Copy, MapClear,
// MapSet).
type Store interface {
	NLocal() int
	NGhost() int
	SetNGhost(n int)

	// Position returns owned or ghost particle i's coordinates, the direct
	// array-read capability spec.md §6 requires ("arrays x, f, type").
	// Exchange and borders use it to classify particles against sub-box
	// bounds without going through a pack codec.
	Position(i int) [3]float64

	// ParticleType returns owned or ghost particle i's species index, used
	// by the borders engine to pick per-species (multi style) cutoffs.
	ParticleType(i int) int

	// CommXOnly, CommFOnly report whether the forward/reverse pack is the
	// identity copy on positions/forces — the fast-path hint of spec.md §6.
	CommXOnly() bool
	CommFOnly() bool

	// PackComm/UnpackComm move positions (and optionally velocities) out to
	// a swap's sendlist and back in as ghosts. shift is the periodic image
	// displacement to add to each packed position, in the coordinate system
	// Position holds (box coordinates for an orthogonal box, lamda for a
	// triclinic one) — the zero vector when the swap does not cross the
	// global box wrap. The communicator resolves a swap's integer PBC image
	// flags to this shift via the box's edge lengths (unit lamda lengths,
	// if triclinic) before calling Pack*, since the particle store has no
	// box of its own.
	PackComm(indices []int, out []float64, shift [3]float64) int
	UnpackComm(n, firstGhost int, in []float64)

	// PackReverse/UnpackReverse move force accumulations on ghosts back to
	// their owners.
	PackReverse(n, firstGhost int, out []float64) int
	UnpackReverse(indices []int, in []float64)

	// PackBorder/UnpackBorder build new ghosts during the borders engine;
	// the _vel forms additionally carry velocity when ghost-velocity mode
	// is on.
	PackBorder(indices []int, out []float64, vel bool, shift [3]float64) int
	UnpackBorder(n, firstGhost int, in []float64, vel bool)

	// PackExchange/UnpackExchange move a particle's full record across
	// ranks during migration. PackExchange removes the particle from the
	// owned array by swap-with-last, per spec.md §4.7 step 1. Every
	// record's layout is fixed at [length, x, y, z, ...payload...] — the
	// communicator reads record[1:4] directly to classify a particle
	// against sub-box bounds before deciding whether to unpack it, the
	// same way the original Comm class reads buf[m+1..m+3] without going
	// through the atom-style codec for that one check.
	PackExchange(i int, out []float64) int
	UnpackExchange(in []float64) int

	// Copy copies particle src's record onto dst's slot; flag selects
	// whether velocity/bonus data is also copied, mirroring the original's
	// copy(src,dst,flag).
	Copy(src, dst int, flag bool)

	// FirstReorder, MapClear, MapSet are the bookkeeping hooks spec.md §6
	// requires around a borders rebuild.
	FirstReorder()
	MapClear()
	MapSet()
}

// Ref is a minimal in-memory Store used by tests and by cmd/mdrun's demo
// mode: flat x/f/type/v arrays sized to a fixed capacity, grown on demand.
type Ref struct {
	X, V, F  [][3]float64
	Type     []int
	nlocal   int
	nghost   int
	velocity bool

	firstGroupN int
}

// NewRef returns a Ref with n owned particles, positions and types zeroed,
// and capacity for extraGhosts additional slots.
func NewRef(n, extraGhosts int, velocity bool) *Ref {
	size := n + extraGhosts
	return &Ref{
		X:        make([][3]float64, size),
		V:        make([][3]float64, size),
		F:        make([][3]float64, size),
		Type:     make([]int, size),
		nlocal:   n,
		velocity: velocity,
	}
}

func (r *Ref) Position(i int) [3]float64 { return r.X[i] }
func (r *Ref) ParticleType(i int) int    { return r.Type[i] }

func (r *Ref) NLocal() int        { return r.nlocal }
func (r *Ref) NGhost() int        { return r.nghost }
func (r *Ref) SetNGhost(n int)    { r.nghost = n }
func (r *Ref) CommXOnly() bool    { return true }
func (r *Ref) CommFOnly() bool    { return true }

// SetFirstGroupCount configures the bordergroup optimization's prefix
// length (spec.md §4.8 step 3, SUPPLEMENTED FEATURES item 4).
func (r *Ref) SetFirstGroupCount(n int) { r.firstGroupN = n }
func (r *Ref) FirstGroupCount() int     { return r.firstGroupN }

func (r *Ref) grow(need int) {
	if need <= len(r.X) {
		return
	}
	ext := func(s [][3]float64) [][3]float64 {
		g := make([][3]float64, need)
		copy(g, s)
		return g
	}
	r.X = ext(r.X)
	r.V = ext(r.V)
	r.F = ext(r.F)
	t := make([]int, need)
	copy(t, r.Type)
	r.Type = t
}

func (r *Ref) PackComm(indices []int, out []float64, shift [3]float64) int {
	width := 3
	if r.velocity {
		width = 6
	}
	n := 0
	for _, idx := range indices {
		x := r.X[idx]
		x[0] += shift[0]
		x[1] += shift[1]
		x[2] += shift[2]
		out[n*width+0] = x[0]
		out[n*width+1] = x[1]
		out[n*width+2] = x[2]
		if r.velocity {
			v := r.V[idx]
			out[n*width+3] = v[0]
			out[n*width+4] = v[1]
			out[n*width+5] = v[2]
		}
		n++
	}
	return n * width
}

func (r *Ref) UnpackComm(n, firstGhost int, in []float64) {
	width := 3
	if r.velocity {
		width = 6
	}
	r.grow(firstGhost + n)
	for i := 0; i < n; i++ {
		slot := firstGhost + i
		r.X[slot] = [3]float64{in[i*width+0], in[i*width+1], in[i*width+2]}
		if r.velocity {
			r.V[slot] = [3]float64{in[i*width+3], in[i*width+4], in[i*width+5]}
		}
	}
}

func (r *Ref) PackReverse(n, firstGhost int, out []float64) int {
	for i := 0; i < n; i++ {
		f := r.F[firstGhost+i]
		out[i*3+0] = f[0]
		out[i*3+1] = f[1]
		out[i*3+2] = f[2]
	}
	return n * 3
}

func (r *Ref) UnpackReverse(indices []int, in []float64) {
	for i, idx := range indices {
		r.F[idx][0] += in[i*3+0]
		r.F[idx][1] += in[i*3+1]
		r.F[idx][2] += in[i*3+2]
	}
}

func (r *Ref) PackBorder(indices []int, out []float64, vel bool, shift [3]float64) int {
	width := 4
	if vel {
		width = 7
	}
	n := 0
	for _, idx := range indices {
		x := r.X[idx]
		x[0] += shift[0]
		x[1] += shift[1]
		x[2] += shift[2]
		out[n*width+0] = x[0]
		out[n*width+1] = x[1]
		out[n*width+2] = x[2]
		out[n*width+3] = float64(r.Type[idx])
		if vel {
			v := r.V[idx]
			out[n*width+4] = v[0]
			out[n*width+5] = v[1]
			out[n*width+6] = v[2]
		}
		n++
	}
	return n * width
}

func (r *Ref) UnpackBorder(n, firstGhost int, in []float64, vel bool) {
	width := 4
	if vel {
		width = 7
	}
	r.grow(firstGhost + n)
	for i := 0; i < n; i++ {
		slot := firstGhost + i
		r.X[slot] = [3]float64{in[i*width+0], in[i*width+1], in[i*width+2]}
		r.Type[slot] = int(in[i*width+3])
		if vel {
			r.V[slot] = [3]float64{in[i*width+4], in[i*width+5], in[i*width+6]}
		}
	}
}

// exchangeWidth is the fixed record width of the reference store's
// exchange codec: length header, x, v, type.
const exchangeWidth = 1 + 3 + 3 + 1

func (r *Ref) PackExchange(i int, out []float64) int {
	out[0] = float64(exchangeWidth)
	x, v := r.X[i], r.V[i]
	out[1], out[2], out[3] = x[0], x[1], x[2]
	out[4], out[5], out[6] = v[0], v[1], v[2]
	out[7] = float64(r.Type[i])
	r.Copy(r.nlocal-1, i, true)
	r.nlocal--
	return exchangeWidth
}

func (r *Ref) UnpackExchange(in []float64) int {
	r.grow(r.nlocal + 1)
	i := r.nlocal
	r.X[i] = [3]float64{in[1], in[2], in[3]}
	r.V[i] = [3]float64{in[4], in[5], in[6]}
	r.Type[i] = int(in[7])
	r.nlocal++
	return int(in[0])
}

func (r *Ref) Copy(src, dst int, flag bool) {
	if src == dst {
		return
	}
	r.X[dst] = r.X[src]
	r.Type[dst] = r.Type[src]
	if flag {
		r.V[dst] = r.V[src]
		r.F[dst] = r.F[src]
	}
}

func (r *Ref) FirstReorder() {}
func (r *Ref) MapClear()     {}
func (r *Ref) MapSet()       {}
