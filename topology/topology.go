// Package topology builds the rank<->grid-coordinate mapping and the six
// face-neighbor ranks each process needs, from either a plain Cartesian
// process grid or a NUMA-aware one (package grid).
package topology

import (
	"fmt"

	"github.com/RJMS-Benchmark/lammps/fabric"
)

// Topology holds one process's view of the 3D process grid: its own
// coordinate, the dense coordinate->rank map, and its six face neighbors.
// Built once at startup and rebuilt only if the process count changes,
// which this spec does not support (spec §3 Lifecycle).
type Topology struct {
	Me       int
	NProcs   int
	ProcGrid [3]int
	MyLoc    [3]int

	// Grid2Proc[i][j][k] is the rank owning grid coordinate (i,j,k). It is
	// a bijection onto [0, NProcs) — spec §8 property 2.
	Grid2Proc [][][]int

	// ProcNeigh[d][0] / [d][1] are the minus/plus face-neighbor ranks along
	// dimension d, always periodic-wrapped — non-periodic suppression is
	// the swap planner's job (empty slab bands), not topology's (spec §4.3).
	ProcNeigh [3][2]int
}

// locFromRank unravels a rank into grid coordinates using the same
// row-major convention MPI_Cart_create uses by default: the first
// dimension varies slowest.
func locFromRank(rank int, procgrid [3]int) [3]int {
	_, py, pz := procgrid[0], procgrid[1], procgrid[2]
	return [3]int{
		rank / (py * pz),
		(rank / pz) % py,
		rank % pz,
	}
}

func rankFromLoc(loc, procgrid [3]int) int {
	return (loc[0]*procgrid[1]+loc[1])*procgrid[2] + loc[2]
}

func newDenseGrid(procgrid [3]int) [][][]int {
	g := make([][][]int, procgrid[0])
	for i := range g {
		g[i] = make([][]int, procgrid[1])
		for j := range g[i] {
			g[i][j] = make([]int, procgrid[2])
		}
	}
	return g
}

// BuildPlain builds a Topology from a process grid using the formulaic
// Cartesian mapping (spec §4.3 "via the message layer's Cartesian helper"):
// no communication is required because rank<->coordinate is a pure
// row-major bijection.
func BuildPlain(me, nprocs int, procgrid [3]int, periodicity [3]bool) (*Topology, error) {
	if procgrid[0]*procgrid[1]*procgrid[2] != nprocs {
		return nil, fmt.Errorf("topology: procgrid %v does not multiply to nprocs %d", procgrid, nprocs)
	}
	t := &Topology{Me: me, NProcs: nprocs, ProcGrid: procgrid}
	t.MyLoc = locFromRank(me, procgrid)

	t.Grid2Proc = newDenseGrid(procgrid)
	for r := 0; r < nprocs; r++ {
		loc := locFromRank(r, procgrid)
		t.Grid2Proc[loc[0]][loc[1]][loc[2]] = r
	}

	t.computeNeighbors(periodicity)
	return t, nil
}

// BuildFromLoc builds a Topology given a process grid and this rank's
// already-determined coordinate (as produced by the NUMA planner), filling
// Grid2Proc via an Allgather of every rank's coordinate (spec §4.2 step 7).
func BuildFromLoc(f fabric.Fabric, procgrid [3]int, myloc [3]int, periodicity [3]bool) (*Topology, error) {
	nprocs := f.Size()
	if procgrid[0]*procgrid[1]*procgrid[2] != nprocs {
		return nil, fmt.Errorf("topology: procgrid %v does not multiply to nprocs %d", procgrid, nprocs)
	}
	t := &Topology{Me: f.Rank(), NProcs: nprocs, ProcGrid: procgrid, MyLoc: myloc}

	locs, err := fabric.Allgather[[3]int](f, myloc)
	if err != nil {
		return nil, fmt.Errorf("topology: allgather myloc: %w", err)
	}

	t.Grid2Proc = newDenseGrid(procgrid)
	seen := make(map[int]bool, nprocs)
	for r, loc := range locs {
		if seen[loc[0]*1000000+loc[1]*1000+loc[2]] {
			return nil, fmt.Errorf("topology: duplicate grid coordinate %v", loc)
		}
		seen[loc[0]*1000000+loc[1]*1000+loc[2]] = true
		t.Grid2Proc[loc[0]][loc[1]][loc[2]] = r
	}

	t.computeNeighbors(periodicity)
	return t, nil
}

func (t *Topology) computeNeighbors(periodicity [3]bool) {
	for d := 0; d < 3; d++ {
		minus := t.MyLoc
		minus[d] = (t.MyLoc[d] - 1 + t.ProcGrid[d]) % t.ProcGrid[d]
		plus := t.MyLoc
		plus[d] = (t.MyLoc[d] + 1) % t.ProcGrid[d]
		t.ProcNeigh[d][0] = t.Grid2Proc[minus[0]][minus[1]][minus[2]]
		t.ProcNeigh[d][1] = t.Grid2Proc[plus[0]][plus[1]][plus[2]]
		_ = periodicity // non-periodic suppression happens in the swap planner
	}
}

// OwnsMinusEdge reports whether this process owns the d=0 edge of the
// global box along dimension d (myloc[d] == 0).
func (t *Topology) OwnsMinusEdge(d int) bool { return t.MyLoc[d] == 0 }

// OwnsPlusEdge reports whether this process owns the far edge of the global
// box along dimension d (myloc[d] == procgrid[d]-1).
func (t *Topology) OwnsPlusEdge(d int) bool { return t.MyLoc[d] == t.ProcGrid[d]-1 }
