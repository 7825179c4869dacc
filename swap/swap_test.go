package swap

import "testing"

func baseParams() Params {
	return Params{
		ProcGrid:    [3]int{2, 2, 1},
		MyLoc:       [3]int{0, 0, 0},
		ProcNeigh:   [3][2]int{{1, 1}, {1, 1}, {0, 0}},
		Periodicity: [3]bool{true, true, true},
		Dimension:   2,
		Sublo:       [3]float64{0, 0, 0},
		Subhi:       [3]float64{5, 5, 10},
		Prd:         [3]float64{10, 10, 10},
		CutGhost:    [3]float64{2, 2, 2},
	}
}

func TestNSwapMatchesNeed(t *testing.T) {
	// spec.md §8 property 4: nswap = 2*(need[0]+need[1]+need[2]).
	p := baseParams()
	plan := Build(p)
	want := 2 * (plan.Need[0] + plan.Need[1] + plan.Need[2])
	if plan.NSwap() != want {
		t.Fatalf("NSwap = %d, want %d", plan.NSwap(), want)
	}
}

func TestNeedZeroInThirdDimFor2D(t *testing.T) {
	p := baseParams()
	plan := Build(p)
	if plan.Need[2] != 0 {
		t.Errorf("Need[2] = %d, want 0 for a 2D simulation", plan.Need[2])
	}
}

func TestS1FourRanksNeed(t *testing.T) {
	// spec.md §8 S1: P=4, (2,2,1), rc=2.0 on a 10x10 box -> need=(1,1,0), nswap=4.
	p := baseParams()
	plan := Build(p)
	if plan.Need != [3]int{1, 1, 0} {
		t.Fatalf("Need = %v, want {1,1,0}", plan.Need)
	}
	if plan.NSwap() != 4 {
		t.Fatalf("NSwap = %d, want 4", plan.NSwap())
	}
}

func TestNonPeriodicEdgeEmptyBand(t *testing.T) {
	// spec.md §8 property 8 / S6: rank at myloc_x=0, non-periodic x, swap 0
	// (send minus) has an empty band.
	p := baseParams()
	p.Periodicity[0] = false
	plan := Build(p)

	var minusSwap *Swap
	for _, s := range plan.Swaps {
		if s.Dim == 0 && s.INeed == 0 {
			minusSwap = s
		}
	}
	if minusSwap == nil {
		t.Fatal("no dim-0 ineed-0 swap found")
	}
	if minusSwap.Slabhi >= minusSwap.Slablo {
		t.Errorf("expected empty band (slabhi < slablo) at the non-periodic edge, got lo=%v hi=%v",
			minusSwap.Slablo, minusSwap.Slabhi)
	}
}

func TestPeriodicWrapSetsPBCFlag(t *testing.T) {
	// S4-style check: an edge-owning process in a periodic dimension sets
	// pbc_flag and the image offset.
	p := baseParams()
	plan := Build(p)

	for _, s := range plan.Swaps {
		if s.Dim == 0 && s.INeed == 0 { // minus hop, myloc_x=0, periodic
			if s.PBCFlag != 1 {
				t.Errorf("PBCFlag = %d, want 1 for edge-owning periodic minus swap", s.PBCFlag)
			}
			if s.PBC[0] != 1 {
				t.Errorf("PBC[0] = %d, want 1", s.PBC[0])
			}
		}
	}
}

func TestMultiStylePerSpeciesBounds(t *testing.T) {
	// S5: border selection on swap s uses distinct multilo/multihi per
	// species.
	p := baseParams()
	p.Multi = [][3]float64{
		{0.5, 0.5, 0.5},
		{1.5, 1.5, 1.5},
	}
	plan := Build(p)

	s := plan.Swaps[0]
	if len(s.Multilo) != 2 || len(s.Multihi) != 2 {
		t.Fatalf("multi-style swap missing per-species bounds")
	}
	if s.Multilo[0] == s.Multilo[1] && s.Multihi[0] == s.Multihi[1] {
		t.Errorf("species with different cutoffs got identical bounds")
	}
}
