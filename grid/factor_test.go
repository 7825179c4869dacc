package grid

import "testing"

func TestFactorCube(t *testing.T) {
	px, py, pz, err := Factor(8, [3]int{}, [3]float64{1, 1, 1}, false)
	if err != nil {
		t.Fatalf("Factor: %v", err)
	}
	if px*py*pz != 8 {
		t.Fatalf("px*py*pz = %d, want 8", px*py*pz)
	}
	if px != 2 || py != 2 || pz != 2 {
		t.Errorf("got (%d,%d,%d), want (2,2,2) for a cube", px, py, pz)
	}
}

func TestFactorUserOverride(t *testing.T) {
	px, py, pz, err := Factor(12, [3]int{2, 0, 0}, [3]float64{1, 1, 1}, false)
	if err != nil {
		t.Fatalf("Factor: %v", err)
	}
	if px != 2 {
		t.Errorf("px = %d, want 2 (user override)", px)
	}
	if px*py*pz != 12 {
		t.Fatalf("px*py*pz = %d, want 12", px*py*pz)
	}
}

func TestFactor2D(t *testing.T) {
	px, py, pz, err := Factor(4, [3]int{}, [3]float64{1, 1, 1}, true)
	if err != nil {
		t.Fatalf("Factor: %v", err)
	}
	if pz != 1 {
		t.Errorf("pz = %d, want 1 for a 2D simulation", pz)
	}
	if px*py*pz != 4 {
		t.Fatalf("px*py*pz = %d, want 4", px*py*pz)
	}
}

func TestFactorBadGrid(t *testing.T) {
	_, _, _, err := Factor(7, [3]int{3, 0, 0}, [3]float64{1, 1, 1}, false)
	if err != ErrBadGrid {
		t.Fatalf("err = %v, want ErrBadGrid", err)
	}
}

func TestFactorMinimizesSurfaceForSlab(t *testing.T) {
	// A thin slab, short in x: areas[0]=xy, areas[1]=xz, areas[2]=yz.
	// The large yz face dominates the surface, so minimal-surface factoring
	// leaves x unsliced and spreads processes evenly over y/z:
	// (1,4,4) gives 1/4 + 1/4 + 100/16 = 6.75, the smallest of all triples.
	px, py, pz, err := Factor(16, [3]int{}, [3]float64{1, 1, 100}, false)
	if err != nil {
		t.Fatalf("Factor: %v", err)
	}
	if px*py*pz != 16 {
		t.Fatalf("px*py*pz = %d, want 16", px*py*pz)
	}
	if px != 1 || py != 4 || pz != 4 {
		t.Errorf("got (%d,%d,%d); want (1,4,4): the large yz area keeps px at 1 and maximizes py*pz", px, py, pz)
	}
}

func TestFactorScaled(t *testing.T) {
	px, py, pz, err := FactorScaled(8, [3]int{}, [3]float64{100, 100, 100}, 2, 2, 2, false)
	if err != nil {
		t.Fatalf("FactorScaled: %v", err)
	}
	if px*py*pz != 8 {
		t.Fatalf("px*py*pz = %d, want 8", px*py*pz)
	}
}
