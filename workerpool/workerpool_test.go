package workerpool

import (
	"sync/atomic"
	"testing"
)

func TestPackChunksCoversEveryIndexExactlyOnce(t *testing.T) {
	p, err := New(4)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer p.Release()

	const n = 997
	var seen [n]int32
	p.PackChunks(n, 64, func(lo, hi int) {
		for i := lo; i < hi; i++ {
			atomic.AddInt32(&seen[i], 1)
		}
	})
	for i, c := range seen {
		if c != 1 {
			t.Fatalf("index %d covered %d times, want 1", i, c)
		}
	}
}

func TestPackChunksSmallRunsInline(t *testing.T) {
	p, err := New(4)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer p.Release()

	var got [2]int
	p.PackChunks(2, 64, func(lo, hi int) {
		got[0], got[1] = lo, hi
	})
	if got[0] != 0 || got[1] != 2 {
		t.Errorf("got range %v, want [0,2)", got)
	}
}
