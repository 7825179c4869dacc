// Package swap compiles the neighbor-cutoff geometry into the static
// sequence of paired send/receive "swaps" that forward-comm, reverse-comm,
// and borders execute every step, per spec.md §3 "Swap descriptor" and
// §4.4 "Swap planner". Grounded on Comm::setup() in the original source.
package swap

import (
	"math"

	"github.com/RJMS-Benchmark/lammps/buffer"
)

// inf stands in for the original's BIG sentinel: an outer slab bound loose
// enough to catch any particle in the incoming half-space, including one
// that landed slightly outside cutghost due to periodic-wrap round-off
// (spec.md §4.4 "Design rationale").
const inf = math.MaxFloat64

// Swap is one paired send/receive along one face of the process grid,
// possibly one hop of a multi-hop sequence if the cutoff exceeds a
// sub-box width (spec.md §3).
type Swap struct {
	SendProc, RecvProc int

	// Slablo, Slabhi bound the single-style selection band. Multilo/Multihi
	// are the per-species (multi style) equivalents, indexed by type;
	// nil when not in multi style.
	Slablo, Slabhi     float64
	Multilo, Multihi   []float64

	// PBCFlag is 1 if this swap crosses the global-box wrap; PBC holds the
	// six image-offset components applied to packed coordinates.
	PBCFlag int
	PBC     [6]int

	SendNum, RecvNum int
	SendList         buffer.SendList
	FirstRecv        int

	SizeForwardRecv int
	SizeReverseSend int
	SizeReverseRecv int

	// dim, ineed record which dimension and hop this swap belongs to, used
	// internally by the borders engine to pick the candidate window
	// (spec.md §4.8 step 1) and are not part of the public descriptor
	// contract, but are exported since borders lives in another package.
	Dim   int
	INeed int
}

// Plan is the ordered sequence of swap descriptors plus the per-dimension
// hop counts that produced it.
type Plan struct {
	Need  [3]int
	Swaps []*Swap
}

// NSwap returns 2*(need[0]+need[1]+need[2]), the total swap count
// (spec.md §3, §8 property 4).
func (p *Plan) NSwap() int { return len(p.Swaps) }

// Params bundles the inputs Build needs: everything derived from topology,
// domain, and the configured cutoff, so this package stays independent of
// both.
type Params struct {
	ProcGrid    [3]int
	MyLoc       [3]int
	ProcNeigh   [3][2]int
	Periodicity [3]bool
	Dimension   int

	Sublo, Subhi [3]float64 // box or lamda coordinates, per domain.Triclinic
	Prd          [3]float64 // or PrdLamda (always (1,1,1)) in triclinic mode

	// CutGhost is the per-dimension ghost cutoff (spec.md §3 "Cutoff
	// geometry"), in the same coordinate system as Sublo/Subhi.
	CutGhost [3]float64

	// Multi, if non-nil, is CutGhostMulti[type][dim] for multi-style
	// per-species cutoffs; when set, swaps carry Multilo/Multihi instead
	// of Slablo/Slabhi.
	Multi [][3]float64

	Triclinic bool
}

// need computes need[d] = ceil(cutghost[d] * Pd / L_d), capped at Pd-1 for
// non-periodic dimensions, and forced to 0 for d=2 in 2D (spec.md §3).
func need(p Params) [3]int {
	var n [3]int
	for d := 0; d < 3; d++ {
		if p.Dimension == 2 && d == 2 {
			n[d] = 0
			continue
		}
		pd := p.ProcGrid[d]
		v := int(math.Ceil(p.CutGhost[d] * float64(pd) / p.Prd[d]))
		if v < 0 {
			v = 0
		}
		if !p.Periodicity[d] && v > pd-1 {
			v = pd - 1
		}
		n[d] = v
	}
	return n
}

// Build computes the swap plan from p, grounded on Comm::setup()'s main
// loop over dimensions and hops.
func Build(p Params) *Plan {
	n := need(p)
	plan := &Plan{Need: n}

	for d := 0; d < 3; d++ {
		for ineed := 0; ineed < 2*n[d]; ineed++ {
			plan.Swaps = append(plan.Swaps, buildSwap(p, d, ineed, n[d]))
		}
	}
	return plan
}

func buildSwap(p Params, d, ineed, needD int) *Swap {
	s := &Swap{Dim: d, INeed: ineed}
	minus := ineed%2 == 0

	if minus {
		s.SendProc = p.ProcNeigh[d][0]
		s.RecvProc = p.ProcNeigh[d][1]
	} else {
		s.SendProc = p.ProcNeigh[d][1]
		s.RecvProc = p.ProcNeigh[d][0]
	}

	firstHop := ineed < 2
	mid := 0.5 * (p.Sublo[d] + p.Subhi[d])

	if p.Multi != nil {
		s.Multilo = make([]float64, len(p.Multi))
		s.Multihi = make([]float64, len(p.Multi))
		for t, cg := range p.Multi {
			lo, hi := slabBounds(p, d, minus, firstHop, mid, cg[d])
			s.Multilo[t], s.Multihi[t] = lo, hi
		}
	} else {
		s.Slablo, s.Slabhi = slabBounds(p, d, minus, firstHop, mid, p.CutGhost[d])
	}

	owns := ownsEdgeForHop(p, d, minus)
	if !p.Periodicity[d] && owns {
		// Non-periodic edge: mark the band empty (spec.md §4.4).
		if s.Multilo != nil {
			for t := range s.Multilo {
				s.Multihi[t] = emptyHi(s.Multilo[t])
			}
		} else {
			s.Slabhi = emptyHi(s.Slablo)
		}
	} else if p.Periodicity[d] && owns {
		s.PBCFlag = 1
		if minus {
			s.PBC[d] = 1
		} else {
			s.PBC[d] = -1
		}
		if p.Triclinic {
			switch d {
			case 1:
				s.PBC[5] = s.PBC[d]
			case 2:
				s.PBC[4] = s.PBC[d]
				s.PBC[3] = s.PBC[d]
			}
		}
	}

	return s
}

// slabBounds computes the half-open selection band for one hop, per
// spec.md §4.4: the first pair per dimension uses an open outer bound,
// later hops use the sub-box midpoint.
func slabBounds(p Params, d int, minus, firstHop bool, mid, cutD float64) (lo, hi float64) {
	if minus {
		if firstHop {
			lo = -inf
		} else {
			lo = mid
		}
		hi = p.Sublo[d] + cutD
		return
	}
	if firstHop {
		hi = inf
	} else {
		hi = mid
	}
	lo = p.Subhi[d] - cutD
	return
}

// emptyHi returns an upper bound strictly below lo, marking an empty band.
// lo-1 is used where it is representable as smaller than lo; at the -inf
// sentinel lo-1 rounds back to lo, so -Inf is returned instead.
func emptyHi(lo float64) float64 {
	if hi := lo - 1; hi < lo {
		return hi
	}
	return math.Inf(-1)
}

// ownsEdgeForHop reports whether this process owns the global-box edge
// that an even (minus) or odd (plus) hop would send across.
func ownsEdgeForHop(p Params, d int, minus bool) bool {
	if minus {
		return p.MyLoc[d] == 0
	}
	return p.MyLoc[d] == p.ProcGrid[d]-1
}
