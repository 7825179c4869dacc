package geom

import "testing"

func TestCross(t *testing.T) {
	got := Cross([3]float64{1, 0, 0}, [3]float64{0, 1, 0})
	want := [3]float64{0, 0, 1}
	if got != want {
		t.Errorf("Cross = %v, want %v", got, want)
	}
}

func TestOrthogonalAreas(t *testing.T) {
	areas := OrthogonalAreas([3]float64{10, 20, 30}, 1, 1, 1)
	want := [3]float64{200, 300, 600}
	if areas != want {
		t.Errorf("OrthogonalAreas = %v, want %v", areas, want)
	}
}

func TestTriclinicAreasReducesToOrthogonal(t *testing.T) {
	h := HMatrix{10, 20, 30, 0, 0, 0}
	areas := TriclinicAreas(h)
	want := OrthogonalAreas([3]float64{10, 20, 30}, 1, 1, 1)
	for i := range areas {
		if diff := areas[i] - want[i]; diff > 1e-9 || diff < -1e-9 {
			t.Errorf("area[%d] = %v, want %v", i, areas[i], want[i])
		}
	}
}

func TestInverseRoundTrip(t *testing.T) {
	h := HMatrix{2, 3, 4, 0.1, 0.2, 0.3}
	hinv := h.Inverse()
	back := hinv.Inverse()
	for i := range h {
		if diff := back[i] - h[i]; diff > 1e-9 || diff < -1e-9 {
			t.Errorf("round trip h[%d] = %v, want %v", i, back[i], h[i])
		}
	}
}

func TestGhostCutoffOrthogonal(t *testing.T) {
	h := HMatrix{10, 10, 10, 0, 0, 0}
	hinv := h.Inverse()
	got := GhostCutoff(hinv, 2.0)
	for i, v := range got {
		want := 0.2
		if diff := v - want; diff > 1e-9 || diff < -1e-9 {
			t.Errorf("GhostCutoff[%d] = %v, want %v", i, v, want)
		}
	}
}
