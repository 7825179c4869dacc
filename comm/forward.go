package comm

// forwardWidth is the per-particle field count for the forward-comm pack:
// 3 scalars for positions-only, 6 if ghost-velocity mode is on
// (SUPPLEMENTED FEATURES item 2).
func (c *Communicator) forwardWidth() int {
	if c.GhostVelocity {
		return 6
	}
	return 3
}

// ForwardComm ships ghost positions (and velocities, if GhostVelocity) out
// to every neighbor using the cached swap plan and sendlists, per spec.md
// §4.5. Swaps execute strictly in plan order: halos shipped in dimension d
// become eligible senders for dimension d+1, the corner-propagation
// mechanism spec.md §4.5/§5 calls a structural invariant.
func (c *Communicator) ForwardComm() error {
	width := c.forwardWidth()
	for _, s := range c.plan.Swaps {
		n := s.SendList.Len()
		indices := s.SendList.Indices()

		shift := c.pbcShift(s)

		if s.SendProc == c.Fabric.Rank() {
			// Self-swap: elide the network entirely (spec.md §4.5 step 1,
			// §9 "not an optimization but a correctness requirement for
			// Pd=1 dimensions").
			need := n * width
			if err := c.growSend(need, false); err != nil {
				return err
			}
			c.packComm(indices, c.buf.Send, shift, width)
			c.Store.UnpackComm(s.RecvNum, s.FirstRecv, c.buf.Send)
			continue
		}

		sendLen := n * width
		if err := c.growSend(sendLen, false); err != nil {
			return err
		}
		c.packComm(indices, c.buf.Send, shift, width)

		recvLen := s.RecvNum * width
		if err := c.growRecv(recvLen); err != nil {
			return err
		}

		if err := c.Fabric.Sendrecv(
			c.buf.Send[:sendLen], s.SendProc, tagPayload,
			&c.buf.Recv, s.RecvProc, tagPayload,
		); err != nil {
			return err
		}
		c.Store.UnpackComm(s.RecvNum, s.FirstRecv, c.buf.Recv[:recvLen])
	}
	return nil
}
