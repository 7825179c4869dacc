package grid

import (
	"sync"
	"testing"

	"github.com/RJMS-Benchmark/lammps/fabric/fabtest"
)

// hostsFor returns a per-rank hostname list with procsPerNode ranks sharing
// each of the given node names, in rank order (node 0's ranks first).
func hostsFor(nodeNames []string, procsPerNode int) []string {
	hosts := make([]string, 0, len(nodeNames)*procsPerNode)
	for _, name := range nodeNames {
		for i := 0; i < procsPerNode; i++ {
			hosts = append(hosts, name)
		}
	}
	return hosts
}

// runPlanNuma runs PlanNuma concurrently on every rank of mesh, since the
// hostname Allgather inside it requires every rank to participate at once.
func runPlanNuma(t *testing.T, meshes []*fabtest.Fake, hosts []string, numaNodes int, prdAreas [3]float64, userProcgrid [3]int, dim2D bool) ([]*NumaPlan, []error) {
	t.Helper()
	n := len(meshes)
	plans := make([]*NumaPlan, n)
	errs := make([]error, n)
	var wg sync.WaitGroup
	wg.Add(n)
	for r := range meshes {
		r := r
		go func() {
			defer wg.Done()
			plans[r], errs[r] = PlanNuma(meshes[r], hosts[r], numaNodes, prdAreas, userProcgrid, dim2D)
		}()
	}
	wg.Wait()
	return plans, errs
}

func TestPlanNumaTwoNodesTwoNuma(t *testing.T) {
	// 2 nodes x 6 ranks/node x 2 numa nodes/node = 3 ranks/numa, 12 ranks total.
	hosts := hostsFor([]string{"node0", "node1"}, 6)
	meshes := fabtest.NewMesh(len(hosts))

	plans, errs := runPlanNuma(t, meshes, hosts, 2, [3]float64{1, 1, 1}, [3]int{}, false)
	for r, err := range errs {
		if err != nil {
			t.Fatalf("rank %d: PlanNuma: %v", r, err)
		}
	}

	want := plans[0].ProcGrid
	if want[0]*want[1]*want[2] != len(hosts) {
		t.Fatalf("ProcGrid %v does not multiply to %d ranks", want, len(hosts))
	}

	seen := make(map[[3]int]int)
	for r, p := range plans {
		if p.ProcGrid != want {
			t.Errorf("rank %d: ProcGrid = %v, want %v (every rank must agree)", r, p.ProcGrid, want)
		}
		if prior, dup := seen[p.MyLoc]; dup {
			t.Errorf("rank %d and rank %d both got MyLoc %v", r, prior, p.MyLoc)
		}
		seen[p.MyLoc] = r
	}
	if len(seen) != len(hosts) {
		t.Fatalf("MyLoc is not a bijection onto the ranks: got %d distinct locations, want %d", len(seen), len(hosts))
	}
}

func TestPlanNumaFallsBackOnUnevenNodes(t *testing.T) {
	hosts := []string{"node0", "node0", "node0", "node1", "node1"}
	meshes := fabtest.NewMesh(len(hosts))

	_, errs := runPlanNuma(t, meshes, hosts, 1, [3]float64{1, 1, 1}, [3]int{}, false)
	if errs[0] != ErrNumaFallback {
		t.Fatalf("err = %v, want ErrNumaFallback for uneven node sizes", errs[0])
	}
}

func TestPlanNumaFallsBackOnTooFewProcsPerNuma(t *testing.T) {
	// 4 ranks on one node, 2 numa nodes -> procsPerNuma = 2, below the
	// minimum of 3 the stricter uniformity check requires.
	hosts := hostsFor([]string{"node0"}, 4)
	meshes := fabtest.NewMesh(len(hosts))

	_, errs := runPlanNuma(t, meshes, hosts, 2, [3]float64{1, 1, 1}, [3]int{}, false)
	if errs[0] != ErrNumaFallback {
		t.Fatalf("err = %v, want ErrNumaFallback for procsPerNuma < 3", errs[0])
	}
}

func TestPlanNumaZeroNumaNodesFallsBack(t *testing.T) {
	meshes := fabtest.NewMesh(1)
	_, err := PlanNuma(meshes[0], "onlyhost", 0, [3]float64{1, 1, 1}, [3]int{}, false)
	if err != ErrNumaFallback {
		t.Fatalf("err = %v, want ErrNumaFallback for numaNodes <= 0", err)
	}
}
