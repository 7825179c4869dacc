package comm

import (
	"fmt"
	"io"
)

// DumpPlan writes a human-readable description of the current swap plan to
// w, grounded on the teacher's own diagnostic printf calls in bounce.go.
// It is SUPPLEMENTED FEATURES item 7: useful for debugging a decomposition
// without attaching a debugger to every rank.
func (c *Communicator) DumpPlan(w io.Writer) {
	if c.plan == nil {
		fmt.Fprintf(w, "rank %d: no swap plan (Setup not yet run)\n", c.Fabric.Rank())
		return
	}
	fmt.Fprintf(w, "rank %d: procgrid=%v myloc=%v need=%v nswap=%d lost=%d\n",
		c.Fabric.Rank(), c.Topo.ProcGrid, c.Topo.MyLoc, c.plan.Need, c.plan.NSwap(), c.Lost.Count())
	for i, s := range c.plan.Swaps {
		fmt.Fprintf(w, "  swap %d: dim=%d ineed=%d send->%d recv<-%d sendnum=%d recvnum=%d firstrecv=%d pbcflag=%d pbc=%v\n",
			i, s.Dim, s.INeed, s.SendProc, s.RecvProc, s.SendNum, s.RecvNum, s.FirstRecv, s.PBCFlag, s.PBC)
	}
}
