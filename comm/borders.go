package comm

import "github.com/RJMS-Benchmark/lammps/swap"

// Borders rebuilds every swap's sendlist and receives fresh ghosts from
// every neighbor, per spec.md §4.8. It must run after Exchange and before
// the next round of ForwardComm/ReverseComm calls, since those read the
// SendList/FirstRecv/RecvNum fields this populates.
//
// Ghosts accumulate dimension by dimension: a particle received as a ghost
// while processing dimension 0 becomes a selection candidate for dimension
// 1's swaps, the mechanism that lets corner and edge ghosts form without
// any process ever talking to a diagonal neighbor directly (spec.md §4.8
// step 1, §5).
func (c *Communicator) Borders() error {
	c.Store.SetNGhost(0)
	nlocal := c.Store.NLocal()

	for d := 0; d < 3; d++ {
		dimStart := nlocal + c.Store.NGhost()
		// prevLo/prevHi hold the ghost range received by the last
		// completed pair of hops in this dimension; pendingLo stashes the
		// minus-hop's range until the plus-hop completes the pair, so a
		// pair's own in-flight hops never see their own partial result as
		// their candidate window (spec.md §4.8 step 1).
		var prevLo, prevHi, pendingLo int

		for _, s := range c.plan.Swaps {
			if s.Dim != d {
				continue
			}

			var lo, hi int
			if s.INeed < 2 {
				lo, hi = 0, dimStart
			} else {
				lo, hi = prevLo, prevHi
			}

			if err := c.borderSwap(s, lo, hi); err != nil {
				return err
			}

			if s.INeed%2 == 0 {
				pendingLo = s.FirstRecv
			} else {
				prevLo, prevHi = pendingLo, s.FirstRecv+s.RecvNum
			}
		}
	}

	c.Store.FirstReorder()
	c.Store.MapClear()
	c.Store.MapSet()
	return nil
}

// firstGrouper is the optional bordergroup optimization capability
// (SUPPLEMENTED FEATURES item 4): a store that keeps its "first group"
// particles in a contiguous owned-array prefix can tell borders to scan
// only that prefix of the owned array on first hops, instead of every
// owned particle. borderSwap uses it only when Cfg.Group is set.
type firstGrouper interface {
	FirstGroupCount() int
}

// typedStore is the species lookup multi style needs to pick per-type
// cutoffs. particle.Store already includes ParticleType, so every Store
// satisfies it.
type typedStore interface {
	ParticleType(i int) int
}

// borderSwap selects candidates from [lo, hi), packs them as new ghosts,
// ships them to s.SendProc, receives s.RecvProc's matching selection back,
// appends the result as new ghosts, and records the swap's
// SendList/FirstRecv/RecvNum/size_* fields (spec.md §4.8 steps 2-4).
func (c *Communicator) borderSwap(s *swap.Swap, lo, hi int) error {
	s.SendList.Reset()

	ownedEnd := hi
	if ownedEnd > c.Store.NLocal() {
		ownedEnd = c.Store.NLocal()
	}
	ownedScanEnd := ownedEnd
	if s.INeed < 2 && c.Cfg.Group != "" {
		if fg, ok := c.Store.(firstGrouper); ok {
			if n := fg.FirstGroupCount(); n < ownedScanEnd {
				ownedScanEnd = n
			}
		}
	}

	for i := lo; i < ownedScanEnd; i++ {
		if c.inSlab(s, i) {
			s.SendList.Append(i)
		}
	}
	ghostStart := ownedEnd
	if lo > ghostStart {
		ghostStart = lo
	}
	for i := ghostStart; i < hi; i++ {
		if c.inSlab(s, i) {
			s.SendList.Append(i)
		}
	}

	indices := s.SendList.Indices()
	width := c.borderWidth()

	need := len(indices) * width
	if err := c.growSend(need, false); err != nil {
		return err
	}
	sendLen := c.packBorder(indices, c.buf.Send, c.GhostVelocity, c.pbcShift(s), width)
	s.SendNum = len(indices)

	if s.SendProc == c.Fabric.Rank() {
		s.RecvNum = s.SendNum
		s.FirstRecv = c.Store.NLocal() + c.Store.NGhost()
		if err := c.growRecv(sendLen); err != nil {
			return err
		}
		copy(c.buf.Recv[:sendLen], c.buf.Send[:sendLen])
		c.Store.UnpackBorder(s.RecvNum, s.FirstRecv, c.buf.Recv[:sendLen], c.GhostVelocity)
		c.Store.SetNGhost(c.Store.NGhost() + s.RecvNum)
		c.recordSwapSizes(s)
		return nil
	}

	var recvLen int
	if err := c.Fabric.Sendrecv(sendLen, s.SendProc, tagCount, &recvLen, s.RecvProc, tagCount); err != nil {
		return err
	}
	if err := c.growRecv(recvLen); err != nil {
		return err
	}
	if err := c.Fabric.Sendrecv(
		c.buf.Send[:sendLen], s.SendProc, tagPayload,
		&c.buf.Recv, s.RecvProc, tagPayload,
	); err != nil {
		return err
	}

	s.RecvNum = recvLen / width
	s.FirstRecv = c.Store.NLocal() + c.Store.NGhost()
	c.Store.UnpackBorder(s.RecvNum, s.FirstRecv, c.buf.Recv[:recvLen], c.GhostVelocity)
	c.Store.SetNGhost(c.Store.NGhost() + s.RecvNum)

	c.recordSwapSizes(s)
	return nil
}

func (c *Communicator) borderWidth() int {
	if c.GhostVelocity {
		return 7
	}
	return 4
}

// recordSwapSizes records the per-swap message sizes forward-comm and
// reverse-comm will use, per spec.md §3 "size_forward_recv,
// size_reverse_send, size_reverse_recv".
func (c *Communicator) recordSwapSizes(s *swap.Swap) {
	s.SizeForwardRecv = s.RecvNum * c.forwardWidth()
	s.SizeReverseSend = s.RecvNum * 3
	s.SizeReverseRecv = s.SendNum * 3
}

// inSlab classifies candidate i against s's selection band (spec.md §4.8
// step 2): single style compares against Slablo/Slabhi; multi style looks
// up the candidate's species and compares against that species' band.
func (c *Communicator) inSlab(s *swap.Swap, i int) bool {
	x := c.Store.Position(i)[s.Dim]

	if s.Multilo != nil {
		ts, ok := c.Store.(typedStore)
		if !ok {
			return false
		}
		t := ts.ParticleType(i)
		if t < 0 || t >= len(s.Multilo) {
			return false
		}
		return x >= s.Multilo[t] && x <= s.Multihi[t]
	}
	return x >= s.Slablo && x <= s.Slabhi
}
