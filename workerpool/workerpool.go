// Package workerpool provides the bounded goroutine pool used to run
// per-subsystem pack/unpack codecs data-parallel over one swap's sendlist,
// per spec.md §5: "intra-process parallelism... operates only inside
// pack/unpack, which are data-parallel over the sendlist and must not
// touch communicator state." It wraps github.com/panjf2000/ants/v2 rather
// than spinning up raw goroutines per call, the way the retrieval pack's
// uniyakcom-beat repo pools goroutines for its async task fan-out.
package workerpool

import (
	"sync"

	"github.com/panjf2000/ants/v2"
)

// Pool runs chunked work items across a bounded number of goroutines.
// It is safe to share across calls but not across concurrent calls into
// the same communicator state — callers must still honor spec.md §5's
// "pack/unpack... must not touch communicator state" rule themselves.
type Pool struct {
	p *ants.Pool
}

// New returns a Pool capped at size concurrent goroutines. A size <= 0
// falls back to ants' default pool size.
func New(size int) (*Pool, error) {
	if size <= 0 {
		size = ants.DefaultAntsPoolSize
	}
	p, err := ants.NewPool(size)
	if err != nil {
		return nil, err
	}
	return &Pool{p: p}, nil
}

// Release frees the pool's goroutines. Call once the communicator is torn
// down.
func (p *Pool) Release() {
	p.p.Release()
}

// PackChunks splits n sendlist indices into chunks of at most chunkSize,
// runs fn over each chunk concurrently, and waits for all chunks to
// finish. fn receives the half-open index range [lo, hi) into the
// sendlist it should pack; it must write only to the disjoint output
// region implied by that range, never to shared communicator state.
//
// Chunking below a minimum size runs fn inline without touching the pool
// at all — most borders/forward-comm sendlists are a few hundred
// particles, well under the point where pool dispatch overhead pays for
// itself.
func (p *Pool) PackChunks(n, chunkSize int, fn func(lo, hi int)) {
	if chunkSize <= 0 || n <= chunkSize {
		fn(0, n)
		return
	}

	var wg sync.WaitGroup
	for lo := 0; lo < n; lo += chunkSize {
		hi := lo + chunkSize
		if hi > n {
			hi = n
		}
		lo, hi := lo, hi
		wg.Add(1)
		err := p.p.Submit(func() {
			defer wg.Done()
			fn(lo, hi)
		})
		if err != nil {
			// Pool is full or closed; fall back to running this chunk
			// inline rather than losing work.
			wg.Done()
			fn(lo, hi)
		}
	}
	wg.Wait()
}
