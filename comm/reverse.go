package comm

// ReverseComm returns force accumulations on ghosts to their owners,
// iterating swaps in exact reverse plan order of the forward-comm pattern
// that produced the ghosts it is draining (spec.md §4.6, §5). Each swap
// packs the ghosts it holds (received in the matching forward swap from
// RecvProc) and sends them to RecvProc, while receiving from SendProc the
// force return for the particles this process's own sendlist shipped out
// in forward-comm.
func (c *Communicator) ReverseComm() error {
	swaps := c.plan.Swaps
	for i := len(swaps) - 1; i >= 0; i-- {
		s := swaps[i]
		n := s.SendList.Len()
		indices := s.SendList.Indices()

		if s.SendProc == c.Fabric.Rank() {
			// Self-swap: accumulate locally, no network (spec.md §4.6).
			need := s.RecvNum * 3
			if err := c.growSend(need, false); err != nil {
				return err
			}
			c.Store.PackReverse(s.RecvNum, s.FirstRecv, c.buf.Send)
			c.Store.UnpackReverse(indices, c.buf.Send)
			continue
		}

		sendLen := s.RecvNum * 3
		if err := c.growSend(sendLen, false); err != nil {
			return err
		}
		c.Store.PackReverse(s.RecvNum, s.FirstRecv, c.buf.Send)

		recvLen := n * 3
		if err := c.growRecv(recvLen); err != nil {
			return err
		}

		if err := c.Fabric.Sendrecv(
			c.buf.Send[:sendLen], s.RecvProc, tagPayload,
			&c.buf.Recv, s.SendProc, tagPayload,
		); err != nil {
			return err
		}
		c.Store.UnpackReverse(indices, c.buf.Recv[:recvLen])
	}
	return nil
}
