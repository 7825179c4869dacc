package buffer

import "testing"

func TestGrowMonotonicity(t *testing.T) {
	// spec.md §8 property 9: maxsend/maxrecv never decrease across calls.
	var b DoubleBuffer
	sizes := []int{10, 500, 50, 2000, 1999}
	prevSend, prevRecv := 0, 0
	for _, need := range sizes {
		b.GrowSend(need, false)
		b.GrowRecv(need)
		if len(b.Send) < prevSend {
			t.Fatalf("Send shrank: %d -> %d", prevSend, len(b.Send))
		}
		if len(b.Recv) < prevRecv {
			t.Fatalf("Recv shrank: %d -> %d", prevRecv, len(b.Recv))
		}
		if len(b.Send) < need {
			t.Fatalf("Send len %d does not cover requested %d", len(b.Send), need)
		}
		prevSend, prevRecv = len(b.Send), len(b.Recv)
	}
}

func TestGrowSendPreservesContentsWhenRequested(t *testing.T) {
	var b DoubleBuffer
	b.GrowSend(10, false)
	b.Send[0] = 42
	b.GrowSend(5000, true)
	if b.Send[0] != 42 {
		t.Errorf("GrowSend(copy=true) lost existing contents")
	}
}

func TestGrowSendDropsContentsWhenNotRequested(t *testing.T) {
	var b DoubleBuffer
	b.GrowSend(10, false)
	b.Send[0] = 42
	b.GrowSend(5000, false)
	if b.Send[0] == 42 {
		t.Errorf("GrowSend(copy=false) unexpectedly preserved stale contents (not a correctness bug, just unexpected in this test)")
	}
}

func TestSendListAppendPreservesContentsAcrossGrowth(t *testing.T) {
	var s SendList
	for i := 0; i < 2000; i++ {
		s.Append(i)
	}
	if s.Len() != 2000 {
		t.Fatalf("Len = %d, want 2000", s.Len())
	}
	idx := s.Indices()
	for i := 0; i < 2000; i++ {
		if idx[i] != i {
			t.Fatalf("idx[%d] = %d, want %d (contents lost across growth)", i, idx[i], i)
		}
	}
}

func TestSendListReset(t *testing.T) {
	var s SendList
	s.Append(1)
	s.Append(2)
	s.Reset()
	if s.Len() != 0 {
		t.Fatalf("Len after Reset = %d, want 0", s.Len())
	}
	s.Append(3)
	if s.Indices()[0] != 3 {
		t.Errorf("first index after reset+append = %d, want 3", s.Indices()[0])
	}
}
