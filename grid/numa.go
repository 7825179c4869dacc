package grid

import (
	"errors"
	"sort"

	"github.com/RJMS-Benchmark/lammps/fabric"
)

// ErrNumaFallback is returned by PlanNuma when the run's node layout does
// not satisfy the uniformity assumptions the NUMA plan depends on. Callers
// should fall back to a plain Factor call over the whole world, per spec
// §4.2 step 2 and the §9 open question: this package implements the
// stricter, uniformity-checking condition (the one the original source
// left commented out) rather than the looser always-attempt variant,
// because a partially-applied NUMA plan silently breaks the "ranks sharing
// a NUMA node are contiguous" invariant it exists to provide.
var ErrNumaFallback = errors.New("grid: node layout is not uniform enough for a NUMA-aware plan")

// NumaPlan is the result of PlanNuma: the final process grid (inter-NUMA
// grid composed with intra-NUMA sub-grid) and this rank's coordinate in it.
type NumaPlan struct {
	ProcGrid [3]int
	MyLoc    [3]int
}

// PlanNuma groups ranks by shared host and factors twice — an intra-NUMA
// sub-grid and an inter-NUMA grid scaled by it — composing the two into one
// process grid, per spec §4.2. numaNodes is the compile-time-configured
// count of NUMA domains per node (the NUMA_NODES build setting, spec §6).
//
// PlanNuma performs exactly one collective, an Allgather of hostnames; the
// rest of the procedure (node/numa bucketing, the two factorizations, and
// this rank's coordinate) is deterministic given that gathered list, so
// every rank computes the same answer without further communication.
func PlanNuma(f fabric.Fabric, hostname string, numaNodes int, prdAreas [3]float64, userProcgrid [3]int, dim2D bool) (*NumaPlan, error) {
	if numaNodes <= 0 {
		return nil, ErrNumaFallback
	}

	hostnames, err := fabric.Allgather[string](f, hostname)
	if err != nil {
		return nil, err
	}
	nprocs := len(hostnames)

	nodeOf := make(map[string]int) // hostname -> node id, assigned in sorted order
	sortedHosts := uniqueSorted(hostnames)
	for i, h := range sortedHosts {
		nodeOf[h] = i
	}

	ranksByNode := make(map[int][]int) // node id -> global ranks, ascending
	for r, h := range hostnames {
		id := nodeOf[h]
		ranksByNode[id] = append(ranksByNode[id], r)
	}

	procsPerNode := len(ranksByNode[0])
	for _, ranks := range ranksByNode {
		if len(ranks) != procsPerNode {
			return nil, ErrNumaFallback
		}
	}

	if procsPerNode%numaNodes != 0 {
		return nil, ErrNumaFallback
	}
	procsPerNuma := procsPerNode / numaNodes
	if procsPerNuma < 3 {
		return nil, ErrNumaFallback
	}
	if nprocs%procsPerNuma != 0 {
		return nil, ErrNumaFallback
	}
	if nprocs <= procsPerNuma {
		return nil, ErrNumaFallback
	}

	// Intra-NUMA sub-grid, no scaling (spec §4.2 step 3).
	nx, ny, nz, err := Factor(procsPerNuma, [3]int{}, prdAreas, dim2D)
	if err != nil {
		return nil, err
	}

	// Inter-NUMA grid, scaled by the intra-NUMA sub-grid (step 4).
	nodeCount := nprocs / procsPerNuma
	Nx, Ny, Nz, err := FactorScaled(nodeCount, userProcgrid, prdAreas, float64(nx), float64(ny), float64(nz), dim2D)
	if err != nil {
		return nil, err
	}

	// Refine the intra-NUMA factorization using the inter-NUMA grid as
	// scaling (step 5) — matches numa_set_procs' second numa_factor_box call.
	nx, ny, nz, err = FactorScaled(procsPerNuma, [3]int{}, prdAreas, float64(Nx), float64(Ny), float64(Nz), dim2D)
	if err != nil {
		return nil, err
	}

	me := f.Rank()
	myHost := hostnames[me]
	myNodeID := nodeOf[myHost]
	nodeRanks := ranksByNode[myNodeID]

	nodeRank := indexOf(nodeRanks, me)
	localNuma := nodeRank / procsPerNuma
	numaRank := nodeRank % procsPerNuma
	myGroupLeader := nodeRanks[localNuma*procsPerNuma]

	// Inter-NUMA leader rank: position of this process's (node,numa) group
	// leader among all such group leaders, in ascending global-rank order —
	// mirrors MPI_Comm_split(world, numa_rank, 0, ...)'s rank-preserving
	// semantics for the numa_leaders communicator.
	var leaderRanks []int
	for r, h := range hostnames {
		if indexOf(ranksByNode[nodeOf[h]], r)%procsPerNuma == 0 {
			leaderRanks = append(leaderRanks, r)
		}
	}
	leaderRank := indexOf(leaderRanks, myGroupLeader)

	nodeLoc := locFromRank(leaderRank, [3]int{Nx, Ny, Nz})

	xOff := numaRank % nx
	yOff := (numaRank % (nx * ny)) / nx
	zOff := numaRank / (nx * ny)

	myLoc := [3]int{
		nodeLoc[0]*nx + xOff,
		nodeLoc[1]*ny + yOff,
		nodeLoc[2]*nz + zOff,
	}

	return &NumaPlan{
		ProcGrid: [3]int{Nx * nx, Ny * ny, Nz * nz},
		MyLoc:    myLoc,
	}, nil
}

func uniqueSorted(vs []string) []string {
	set := make(map[string]bool, len(vs))
	for _, v := range vs {
		set[v] = true
	}
	out := make([]string, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
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

func indexOf(vs []int, v int) int {
	for i, x := range vs {
		if x == v {
			return i
		}
	}
	return -1
}
