package topology

import (
	"sync"
	"testing"

	"github.com/RJMS-Benchmark/lammps/fabric/fabtest"
)

func TestBuildPlainBijection(t *testing.T) {
	procgrid := [3]int{2, 2, 2}
	seen := make(map[int]bool)
	for r := 0; r < 8; r++ {
		topo, err := BuildPlain(r, 8, procgrid, [3]bool{true, true, true})
		if err != nil {
			t.Fatalf("rank %d: %v", r, err)
		}
		rank := topo.Grid2Proc[topo.MyLoc[0]][topo.MyLoc[1]][topo.MyLoc[2]]
		if rank != r {
			t.Errorf("rank %d: grid2proc at myloc = %d", r, rank)
		}
		seen[rank] = true
	}
	if len(seen) != 8 {
		t.Fatalf("grid2proc is not a bijection onto [0,8): saw %d distinct ranks", len(seen))
	}
}

func TestNeighborConsistency(t *testing.T) {
	procgrid := [3]int{2, 2, 2}
	topos := make([]*Topology, 8)
	for r := 0; r < 8; r++ {
		topo, err := BuildPlain(r, 8, procgrid, [3]bool{true, true, true})
		if err != nil {
			t.Fatalf("rank %d: %v", r, err)
		}
		topos[r] = topo
	}
	for r := 0; r < 8; r++ {
		for d := 0; d < 3; d++ {
			minusNeigh := topos[r].ProcNeigh[d][0]
			if topos[minusNeigh].ProcNeigh[d][1] != r {
				t.Errorf("rank %d dim %d: minus neighbor %d does not see rank %d as its plus neighbor (got %d)",
					r, d, minusNeigh, r, topos[minusNeigh].ProcNeigh[d][1])
			}
		}
	}
}

func TestBuildPlainBadGrid(t *testing.T) {
	_, err := BuildPlain(0, 8, [3]int{2, 2, 1}, [3]bool{true, true, true})
	if err == nil {
		t.Fatal("expected error for procgrid not multiplying to nprocs")
	}
}

// locFor mirrors the row-major unraveling BuildPlain itself uses, so the
// fake NUMA-derived locations below form a genuine bijection onto the grid.
func locFor(rank int, procgrid [3]int) [3]int {
	return locFromRank(rank, procgrid)
}

func TestBuildFromLocMatchesAllgatheredCoordinates(t *testing.T) {
	procgrid := [3]int{2, 2, 2}
	meshes := fabtest.NewMesh(8)

	topos := make([]*Topology, 8)
	errs := make([]error, 8)
	var wg sync.WaitGroup
	wg.Add(8)
	for r := range meshes {
		r := r
		go func() {
			defer wg.Done()
			topos[r], errs[r] = BuildFromLoc(meshes[r], procgrid, locFor(r, procgrid), [3]bool{true, true, true})
		}()
	}
	wg.Wait()

	for r, err := range errs {
		if err != nil {
			t.Fatalf("rank %d: BuildFromLoc: %v", r, err)
		}
	}
	for r := 0; r < 8; r++ {
		loc := topos[r].MyLoc
		if topos[r].Grid2Proc[loc[0]][loc[1]][loc[2]] != r {
			t.Errorf("rank %d: Grid2Proc at own MyLoc = %d, want %d", r, topos[r].Grid2Proc[loc[0]][loc[1]][loc[2]], r)
		}
		for d := 0; d < 3; d++ {
			minusNeigh := topos[r].ProcNeigh[d][0]
			if topos[minusNeigh].ProcNeigh[d][1] != r {
				t.Errorf("rank %d dim %d: minus neighbor %d does not see rank %d as its plus neighbor", r, d, minusNeigh, r)
			}
		}
	}
}

func TestBuildFromLocDuplicateCoordinate(t *testing.T) {
	procgrid := [3]int{2, 1, 1}
	meshes := fabtest.NewMesh(2)
	locs := [][3]int{{0, 0, 0}, {0, 0, 0}} // both ranks claim the same coordinate

	errs := make([]error, 2)
	var wg sync.WaitGroup
	wg.Add(2)
	for r := range meshes {
		r := r
		go func() {
			defer wg.Done()
			_, errs[r] = BuildFromLoc(meshes[r], procgrid, locs[r], [3]bool{true, true, true})
		}()
	}
	wg.Wait()

	for r, err := range errs {
		if err == nil {
			t.Errorf("rank %d: expected error for two ranks claiming the same grid coordinate", r)
		}
	}
}
