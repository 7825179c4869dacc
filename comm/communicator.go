// Package comm is the central communicator: it orchestrates the grid
// factorizer, topology, swap planner, buffers, and the three steady-state
// primitives (forward-comm, reverse-comm, exchange+borders) into the
// single explicit object spec.md §9 calls for ("re-architect as an
// explicit object holding all mutable state... pass it to every
// operation. No process-wide state.").
package comm

import (
	"fmt"
	"log"

	"github.com/RJMS-Benchmark/lammps/buffer"
	"github.com/RJMS-Benchmark/lammps/config"
	"github.com/RJMS-Benchmark/lammps/domain"
	"github.com/RJMS-Benchmark/lammps/fabric"
	"github.com/RJMS-Benchmark/lammps/grid"
	"github.com/RJMS-Benchmark/lammps/particle"
	"github.com/RJMS-Benchmark/lammps/swap"
	"github.com/RJMS-Benchmark/lammps/topology"
	"github.com/RJMS-Benchmark/lammps/workerpool"
)

// Reason distinguishes why Setup is being (re)run, per SPEC_FULL.md's
// SUPPLEMENTED FEATURES item 6: the original differentiates an initial
// build, a box-only resize, and an ordinary reneighbor for logging and
// validation purposes even though all three currently recompute the same
// swap plan.
type Reason int

const (
	ReasonInit Reason = iota
	ReasonBoxResize
	ReasonReneighbor
)

func (r Reason) String() string {
	switch r {
	case ReasonInit:
		return "init"
	case ReasonBoxResize:
		return "box-resize"
	case ReasonReneighbor:
		return "reneighbor"
	default:
		return "unknown"
	}
}

// tags reserved for communicator traffic. Per spec.md §5, the communicator
// never calls the message layer concurrently, so a fixed small tag set is
// sufficient — no per-swap tag is needed.
const (
	tagPayload = 0
	tagCount   = 1
)

// Communicator is the central object: all mutable state the steady-state
// primitives need, held explicitly rather than in package-level globals.
type Communicator struct {
	Fabric fabric.Fabric
	Topo   *topology.Topology
	Box    domain.Box
	Store  particle.Store
	Cfg    *config.Config

	plan *swap.Plan
	buf  buffer.DoubleBuffer

	// GhostVelocity toggles whether forward-comm carries velocities as well
	// as positions (SUPPLEMENTED FEATURES item 2); it mirrors Cfg.Vel but
	// is cached on the Communicator since it is read on every step.
	GhostVelocity bool

	// NumaNodes > 0 enables the NUMA-aware grid planner (spec.md §6
	// "NUMA_NODES may be set at build time").
	NumaNodes int
	Hostname  string

	// cutGhostMultiOld remembers the previous reneighbor's per-species
	// cutoffs so Setup can grow-only them (SUPPLEMENTED FEATURES item 3).
	cutGhostMultiOld [][3]float64

	// numaApplied records whether the process grid currently in effect on
	// Topo came from the NUMA planner, so a later SetProcGrid call with an
	// explicit user grid can warn about overriding it (SUPPLEMENTED
	// FEATURES item 1). A later plain-factorizer result replaces it
	// without a warning.
	numaApplied bool

	Lost LostParticles

	Verbose bool
	Log     *log.Logger

	// Workers, if non-nil, runs PackComm/PackBorder data-parallel over
	// chunks of a swap's sendlist (spec.md §5); nil means every pack runs
	// inline on the calling goroutine. PackChunkSize is the chunk width
	// passed to Workers.PackChunks; <= 0 means "don't bother chunking".
	Workers       *workerpool.Pool
	PackChunkSize int
}

// EnableWorkers creates a bounded goroutine pool, capped at size concurrent
// goroutines, and makes ForwardComm/Borders split their per-swap
// PackComm/PackBorder calls into chunks of chunkSize sendlist entries run
// across it. Call Close to release the pool's goroutines when done.
func (c *Communicator) EnableWorkers(size, chunkSize int) error {
	p, err := workerpool.New(size)
	if err != nil {
		return err
	}
	c.Workers = p
	c.PackChunkSize = chunkSize
	return nil
}

// Close releases the worker pool, if one was enabled. Safe to call on a
// Communicator that never called EnableWorkers.
func (c *Communicator) Close() {
	if c.Workers != nil {
		c.Workers.Release()
	}
}

// packComm runs Store.PackComm over indices, data-parallel across Workers
// when enabled and the sendlist is large enough to bother chunking
// (spec.md §5: pack/unpack are data-parallel over the sendlist and must
// not touch communicator state — each chunk writes a disjoint, width-sized
// slice of out, so nothing here is shared across goroutines).
func (c *Communicator) packComm(indices []int, out []float64, shift [3]float64, width int) int {
	n := len(indices)
	if c.Workers == nil || n == 0 {
		return c.Store.PackComm(indices, out, shift)
	}
	c.Workers.PackChunks(n, c.PackChunkSize, func(lo, hi int) {
		c.Store.PackComm(indices[lo:hi], out[lo*width:], shift)
	})
	return n * width
}

// maxBufferFloats bounds how large buf.Send/buf.Recv may grow before a
// request is treated as a configuration or programming error rather than
// legitimate traffic (spec.md §7 BufferTooLarge: "Allocation failure,
// abort all"). 1<<28 float64s is 2GiB, far past any single swap's payload
// in a correctly configured run.
const maxBufferFloats = 1 << 28

// growSend wraps buf.GrowSend with the BufferTooLarge ceiling every caller
// that grows Send on the communicator's behalf must honor.
func (c *Communicator) growSend(need int, copyContents bool) error {
	if need > maxBufferFloats {
		return ErrBufferTooLarge
	}
	c.buf.GrowSend(need, copyContents)
	return nil
}

// growRecv is growSend's counterpart for buf.Recv.
func (c *Communicator) growRecv(need int) error {
	if need > maxBufferFloats {
		return ErrBufferTooLarge
	}
	c.buf.GrowRecv(need)
	return nil
}

// packBorder is packComm's counterpart for Store.PackBorder.
func (c *Communicator) packBorder(indices []int, out []float64, vel bool, shift [3]float64, width int) int {
	n := len(indices)
	if c.Workers == nil || n == 0 {
		return c.Store.PackBorder(indices, out, vel, shift)
	}
	c.Workers.PackChunks(n, c.PackChunkSize, func(lo, hi int) {
		c.Store.PackBorder(indices[lo:hi], out[lo*width:], vel, shift)
	})
	return n * width
}

// New returns a Communicator wired to the given fabric, store, domain, and
// configuration. Topo is nil until SetProcGrid has run or the caller
// assigns it; Setup returns an error while it is nil.
func New(f fabric.Fabric, store particle.Store, box domain.Box, cfg *config.Config) *Communicator {
	return &Communicator{
		Fabric:        f,
		Store:         store,
		Box:           box,
		Cfg:           cfg,
		GhostVelocity: cfg.Vel,
	}
}

// SetProcGrid resolves the process grid from, in order: an explicit user
// grid (Cfg.ProcGrid all non-zero), a NUMA-aware plan (if c.NumaNodes > 0),
// or the plain factorizer — reproducing the original's set_processors
// precedence (SUPPLEMENTED FEATURES item 1). periodicity and dim2D
// describe the global box; areas are the three face areas the factorizer
// minimizes surface over.
func (c *Communicator) SetProcGrid(periodicity [3]bool, dim2D bool, areas [3]float64) error {
	user := c.Cfg.ProcGrid
	nprocs := c.Fabric.Size()

	if user[0] != 0 && user[1] != 0 && user[2] != 0 {
		if user[0]*user[1]*user[2] != nprocs {
			return grid.ErrBadGrid
		}
		if c.numaApplied && c.Verbose {
			c.logf("overriding a NUMA-derived process grid with an explicit user grid")
		}
		topo, err := topology.BuildPlain(c.Fabric.Rank(), nprocs, user, periodicity)
		if err != nil {
			return err
		}
		c.Topo = topo
		c.numaApplied = false
		return nil
	}

	if dim2D && user[2] != 0 && user[2] != 1 {
		return ErrDimensionMismatch
	}

	if c.NumaNodes > 0 {
		plan, err := grid.PlanNuma(c.Fabric, c.Hostname, c.NumaNodes, areas, user, dim2D)
		if err == nil {
			topo, err := topology.BuildFromLoc(c.Fabric, plan.ProcGrid, plan.MyLoc, periodicity)
			if err != nil {
				return err
			}
			c.Topo = topo
			c.numaApplied = true
			return nil
		}
		if err != grid.ErrNumaFallback {
			return err
		}
		if c.Verbose {
			c.logf("NUMA plan unavailable (%v), falling back to the plain factorizer", err)
		}
	}

	px, py, pz, err := grid.Factor(nprocs, user, areas, dim2D)
	if err != nil {
		return err
	}
	topo, err := topology.BuildPlain(c.Fabric.Rank(), nprocs, [3]int{px, py, pz}, periodicity)
	if err != nil {
		return err
	}
	c.Topo = topo
	c.numaApplied = false
	return nil
}

// Setup (re)builds the swap plan from the communicator's current topology,
// box, and configured cutoff. It must run once at startup (ReasonInit) and
// again whenever the neighbor-list builder signals a reneighbor
// (ReasonReneighbor) or the box changes (ReasonBoxResize).
func (c *Communicator) Setup(reason Reason, multiCutoffs [][3]float64) error {
	if c.Topo == nil {
		return fmt.Errorf("comm: Setup called before SetProcGrid")
	}
	if c.Box.Dimension() == 2 && c.Topo.ProcGrid[2] != 1 {
		return ErrDimensionMismatch
	}

	cut := c.Cfg.Cutoff
	cutGhost, err := c.ghostCutoff(cut)
	if err != nil {
		return err
	}

	var multi [][3]float64
	if multiCutoffs != nil {
		multi = c.growMultiCutoffs(multiCutoffs)
	}

	sublo, subhi, prd := c.boxCoords()

	params := swap.Params{
		ProcGrid:    c.Topo.ProcGrid,
		MyLoc:       c.Topo.MyLoc,
		ProcNeigh:   c.Topo.ProcNeigh,
		Periodicity: c.Box.Periodicity(),
		Dimension:   c.Box.Dimension(),
		Sublo:       sublo,
		Subhi:       subhi,
		Prd:         prd,
		CutGhost:    cutGhost,
		Multi:       multi,
		Triclinic:   c.Box.Triclinic(),
	}
	c.plan = swap.Build(params)

	for _, s := range c.plan.Swaps {
		s.SendList.Reset()
	}

	if c.Verbose {
		c.logf("setup (%s): procgrid=%v need=%v nswap=%d", reason, c.Topo.ProcGrid, c.plan.Need, c.plan.NSwap())
	}
	return nil
}

func (c *Communicator) ghostCutoff(cut float64) ([3]float64, error) {
	if p, ok := c.Box.(interface {
		GhostCutoff(float64) ([3]float64, error)
	}); ok {
		return p.GhostCutoff(cut)
	}
	if c.Box.Triclinic() {
		hinv := c.Box.HInv()
		return [3]float64{cut * hinv[0], cut * hinv[1], hinv[2] * cut}, nil
	}
	return [3]float64{cut, cut, cut}, nil
}

// growMultiCutoffs grows this reneighbor's per-species cutoffs monotonically
// against the previous reneighbor's, never shrinking (SUPPLEMENTED
// FEATURES item 3).
func (c *Communicator) growMultiCutoffs(fresh [][3]float64) [][3]float64 {
	if c.cutGhostMultiOld == nil || len(c.cutGhostMultiOld) != len(fresh) {
		c.cutGhostMultiOld = append([][3]float64(nil), fresh...)
		return c.cutGhostMultiOld
	}
	grown := make([][3]float64, len(fresh))
	for t := range fresh {
		for d := 0; d < 3; d++ {
			grown[t][d] = fresh[t][d]
			if c.cutGhostMultiOld[t][d] > grown[t][d] {
				grown[t][d] = c.cutGhostMultiOld[t][d]
			}
		}
	}
	c.cutGhostMultiOld = grown
	return grown
}

// boxCoords returns sublo/subhi/prd in whichever coordinate system the box
// is using: box coordinates for orthogonal, lamda (fractional) for
// triclinic (spec.md §4.7 "Coordinates").
func (c *Communicator) boxCoords() (sublo, subhi, prd [3]float64) {
	if c.Box.Triclinic() {
		return c.Box.SubloLamda(), c.Box.SubhiLamda(), c.Box.PrdLamda()
	}
	return c.Box.Sublo(), c.Box.Subhi(), c.Box.Prd()
}

// pbcShift resolves a swap's integer PBC image flags to the displacement
// PackComm/PackBorder must add to Store.Position() — the particle store
// itself has no box to consult. It must use the same coordinate system
// boxCoords() put Store.Position() in: real box lengths for an orthogonal
// box, or a plain unscaled integer shift for a triclinic one, since
// Exchange/Borders run entirely in fractional lamda coordinates there
// (spec.md §4.7, "the in/out criterion uses fractional sublo_lamda/
// subhi_lamda") and lamda space has no tilt coupling — the h-matrix skew
// is already baked into the lamda<->real transform, not into one more
// image shift on top of it. The coupled tilt components PBC[3:6] only
// matter when shifting real coordinates, so they are unused here.
func (c *Communicator) pbcShift(s *swap.Swap) [3]float64 {
	if s.PBCFlag == 0 {
		return [3]float64{}
	}
	_, _, prd := c.boxCoords()
	return [3]float64{
		float64(s.PBC[0]) * prd[0],
		float64(s.PBC[1]) * prd[1],
		float64(s.PBC[2]) * prd[2],
	}
}

func (c *Communicator) logf(format string, args ...interface{}) {
	if c.Log != nil {
		c.Log.Printf(format, args...)
		return
	}
	log.Printf(format, args...)
}

// Plan exposes the current swap plan for callers that need to inspect it
// (tests, DumpPlan); it is nil until Setup has run at least once.
func (c *Communicator) Plan() *swap.Plan { return c.plan }
