package comm

// Exchange migrates ownership of particles that have drifted across
// sub-box boundaries, one dimension at a time, per spec.md §4.7. It must
// run before every Borders call.
//
// Failure policy: a particle that would travel more than one sub-box in a
// single step (possible when Pd > 3, since the planner only pairs with
// the two immediate face neighbors) is silently dropped — the documented
// policy of spec.md §4.7/§9, recorded in c.Lost rather than surfaced as an
// error.
func (c *Communicator) Exchange() error {
	sublo, subhi, _ := c.boxCoords()

	for d := 0; d < 3; d++ {
		pd := c.Topo.ProcGrid[d]

		sendLen, err := c.packOutOfBounds(d, sublo, subhi)
		if err != nil {
			return err
		}

		var recv []float64
		if pd == 1 {
			recv = append([]float64(nil), c.buf.Send[:sendLen]...)
		} else {
			var err error
			recv, err = c.exchangeWithNeighbors(d, pd, sendLen)
			if err != nil {
				return err
			}
		}

		c.unpackInBounds(d, sublo, subhi, recv)
	}
	return nil
}

// packOutOfBounds scans owned particles for dimension d and packs any
// outside [sublo[d], subhi[d]) into buf.Send, removing them from the
// owned array by swap-with-last (spec.md §4.7 step 1). It returns the
// total number of float64s packed.
func (c *Communicator) packOutOfBounds(d int, sublo, subhi [3]float64) (int, error) {
	offset := 0
	i := 0
	for i < c.Store.NLocal() {
		x := c.Store.Position(i)[d]
		if x >= sublo[d] && x < subhi[d] {
			i++
			continue
		}
		if err := c.growSend(offset+exchangeRecordMax, true); err != nil {
			return 0, err
		}
		width := c.Store.PackExchange(i, c.buf.Send[offset:])
		offset += width
		// PackExchange already removed particle i by swap-with-last; do
		// not advance i, the slot now holds what was the last particle.
	}
	return offset, nil
}

// exchangeRecordMax bounds one packed particle record so GrowSend always
// has headroom for the next PackExchange call without probing the exact
// width in advance.
const exchangeRecordMax = 64

// exchangeWithNeighbors performs the paired send/recv with the minus-d
// neighbor (always) and, if pd > 2, a second paired send/recv with the
// plus-d neighbor, shipping the same packed buffer to both (spec.md §4.7
// step 3).
func (c *Communicator) exchangeWithNeighbors(d, pd, sendLen int) ([]float64, error) {
	var recv []float64

	minus := c.Topo.ProcNeigh[d][0]
	r, err := c.sendrecvCounted(minus, c.buf.Send[:sendLen])
	if err != nil {
		return nil, err
	}
	recv = append(recv, r...)

	if pd > 2 {
		plus := c.Topo.ProcNeigh[d][1]
		r, err := c.sendrecvCounted(plus, c.buf.Send[:sendLen])
		if err != nil {
			return nil, err
		}
		recv = append(recv, r...)
	}
	return recv, nil
}

// sendrecvCounted ships payload to peer and returns what peer sent back,
// negotiating the payload length first (spec.md §6 "Wire format": "one
// integer length header exchanged via sendrecv before each
// variable-length payload").
func (c *Communicator) sendrecvCounted(peer int, payload []float64) ([]float64, error) {
	var recvLen int
	if err := c.Fabric.Sendrecv(len(payload), peer, tagCount, &recvLen, peer, tagCount); err != nil {
		return nil, err
	}
	recv := make([]float64, recvLen)
	if err := c.Fabric.Sendrecv(payload, peer, tagPayload, &recv, peer, tagPayload); err != nil {
		return nil, err
	}
	return recv, nil
}

// unpackInBounds walks recv and, for each variable-width record, unpacks
// it into the owned array if its dimension-d coordinate lies in
// [sublo[d], subhi[d]); otherwise the record is discarded and counted as
// lost (spec.md §4.7 step 4, §7 LostParticle).
func (c *Communicator) unpackInBounds(d int, sublo, subhi [3]float64, recv []float64) {
	offset := 0
	for offset < len(recv) {
		width := int(recv[offset])
		record := recv[offset : offset+width]
		x := record[1+d]
		if x >= sublo[d] && x < subhi[d] {
			c.Store.UnpackExchange(record)
		} else {
			c.Lost.Add(1)
		}
		offset += width
	}
}
