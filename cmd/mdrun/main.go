/*
Command mdrun drives the spatial-decomposition communicator through a
synthetic simulation loop: it factors a process grid, partitions a periodic
box, scatters a random set of particles into each rank's sub-box, and then
repeatedly runs exchange, borders, forward-comm, and reverse-comm the way a
real integrator would every timestep. It has no physics of its own — there
is nothing pushing particles across boundaries beyond the random initial
scatter — but it exercises every communication primitive spec.md requires
end to end across real sockets.
*/
package main

import (
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"time"

	"github.com/RJMS-Benchmark/lammps/comm"
	"github.com/RJMS-Benchmark/lammps/config"
	"github.com/RJMS-Benchmark/lammps/domain"
	"github.com/RJMS-Benchmark/lammps/fabric"
	"github.com/RJMS-Benchmark/lammps/particle"
)

func main() {
	var (
		boxLen     = flag.Float64("box", 20, "edge length of the cubic periodic box")
		cutoff     = flag.Float64("cutoff", 2.5, "communication cutoff distance")
		nParticles = flag.Int("n", 200, "particles scattered into this rank's sub-box")
		steps      = flag.Int("steps", 5, "number of exchange/borders/forward/reverse cycles to run")
		velocity   = flag.Bool("vel", false, "carry velocities in forward-comm ghosts")
		px         = flag.Int("px", 0, "fixed x extent of the process grid (0 = auto-factor)")
		py         = flag.Int("py", 0, "fixed y extent of the process grid (0 = auto-factor)")
		pz         = flag.Int("pz", 0, "fixed z extent of the process grid (0 = auto-factor)")
		numaNodes  = flag.Int("numa-nodes", 0, "NUMA nodes per host, for the NUMA-aware grid planner")
		verbose    = flag.Bool("v", false, "log setup and per-step diagnostics")
		dump       = flag.Bool("dump", false, "print the swap plan to stderr after setup")
		seed       = flag.Int64("seed", 1, "seed for the random particle scatter")
		workers    = flag.Int("workers", 0, "goroutines for data-parallel pack/unpack (0 = run inline)")
		packChunk  = flag.Int("pack-chunk", 256, "sendlist entries per worker-pool chunk, when -workers > 0")
	)
	flag.Parse()

	net := fabric.NewNetworkFromFlags()
	if err := net.Init(); err != nil {
		log.Fatalf("fabric init: %v", err)
	}
	defer net.Finalize()

	rank := net.Rank()
	rng := rand.New(rand.NewSource(*seed + int64(rank)))

	cfg := config.Default()
	cfg.Cutoff = *cutoff
	cfg.Vel = *velocity
	cfg.NumaNodes = *numaNodes
	config.ApplyProcGrid(*px, *py, *pz, cfg)

	store := particle.NewRef(*nParticles, *nParticles, cfg.Vel)

	c := comm.New(net, store, nil, cfg)
	c.Verbose = *verbose
	c.NumaNodes = *numaNodes
	if h, err := os.Hostname(); err == nil {
		c.Hostname = h
	}
	if *workers > 0 {
		if err := c.EnableWorkers(*workers, *packChunk); err != nil {
			log.Fatalf("rank %d: EnableWorkers: %v", rank, err)
		}
		defer c.Close()
	}

	prd := [3]float64{*boxLen, *boxLen, *boxLen}
	periodicity := [3]bool{true, true, true}
	areas := [3]float64{prd[0] * prd[1], prd[0] * prd[2], prd[1] * prd[2]}

	if err := c.SetProcGrid(periodicity, false, areas); err != nil {
		log.Fatalf("rank %d: SetProcGrid: %v", rank, err)
	}

	box := domain.NewOrthogonal(prd, periodicity, 3, c.Topo.ProcGrid, c.Topo.MyLoc)
	c.Box = box

	sublo, subhi := box.Sublo(), box.Subhi()
	for i := 0; i < *nParticles; i++ {
		for d := 0; d < 3; d++ {
			store.X[i][d] = sublo[d] + rng.Float64()*(subhi[d]-sublo[d])
		}
	}

	if err := c.Setup(comm.ReasonInit, nil); err != nil {
		log.Fatalf("rank %d: Setup: %v", rank, err)
	}
	if *dump {
		c.DumpPlan(os.Stderr)
	}

	for step := 0; step < *steps; step++ {
		start := time.Now()
		if err := c.Exchange(); err != nil {
			log.Fatalf("rank %d: Exchange: %v", rank, err)
		}
		if err := c.Borders(); err != nil {
			log.Fatalf("rank %d: Borders: %v", rank, err)
		}
		if err := c.ForwardComm(); err != nil {
			log.Fatalf("rank %d: ForwardComm: %v", rank, err)
		}
		// A real integrator would compute forces on owned + ghost
		// particles here; mdrun has no force field, so reverse-comm sums
		// back whatever was left in F (zero, on a fresh store).
		if err := c.ReverseComm(); err != nil {
			log.Fatalf("rank %d: ReverseComm: %v", rank, err)
		}
		if *verbose {
			fmt.Printf("rank %d step %d: nlocal=%d nghost=%d lost=%d (%v)\n",
				rank, step, store.NLocal(), store.NGhost(), c.Lost.Count(), time.Since(start))
		}
	}

	if err := net.Barrier(); err != nil {
		log.Fatalf("rank %d: final barrier: %v", rank, err)
	}
	fmt.Printf("rank %d done: nlocal=%d nghost=%d lost=%d\n", rank, store.NLocal(), store.NGhost(), c.Lost.Count())
}
