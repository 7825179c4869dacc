package fabric

// tagAllgather and tagBcast are the reserved tags used by the generic
// collectives below. They live in the same negative band as the Network's
// internal barrier tags so they never collide with a caller's tag space.
const (
	tagAllgather = -100
	tagBcast     = -101
)

// Allgather gathers one value of type T from every rank and returns the
// full vector, indexed by rank, identically on every process. It is built
// from Send/Receive rather than a native fan-in primitive, matching the
// point-to-point-only transport this package provides: every process sends
// its value to every other process and receives the rest.
//
// Used by the NUMA planner (hostname gather) and by topology.BuildFromLoc's
// NUMA-coordinate gather.
func Allgather[T any](f Fabric, value T) ([]T, error) {
	size := f.Size()
	me := f.Rank()
	out := make([]T, size)
	out[me] = value

	for r := 0; r < size; r++ {
		if r == me {
			continue
		}
		if err := f.Send(value, r, tagAllgather); err != nil {
			return nil, err
		}
	}
	for r := 0; r < size; r++ {
		if r == me {
			continue
		}
		if err := f.Receive(&out[r], r, tagAllgather); err != nil {
			return nil, err
		}
	}
	for r := 0; r < size; r++ {
		if r == me {
			continue
		}
		if err := f.Wait(r, tagAllgather); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Bcast distributes value from root to every other rank. On root, value is
// the value to send and is returned unchanged; on every other rank, the
// returned value is what root sent.
func Bcast[T any](f Fabric, value T, root int) (T, error) {
	me := f.Rank()
	size := f.Size()
	if me == root {
		for r := 0; r < size; r++ {
			if r == root {
				continue
			}
			if err := f.Send(value, r, tagBcast); err != nil {
				return value, err
			}
		}
		for r := 0; r < size; r++ {
			if r == root {
				continue
			}
			if err := f.Wait(r, tagBcast); err != nil {
				return value, err
			}
		}
		return value, nil
	}
	var out T
	if err := f.Receive(&out, root, tagBcast); err != nil {
		return out, err
	}
	return out, nil
}
