package particle

import "testing"

func TestPackUnpackCommRoundTrip(t *testing.T) {
	r := NewRef(3, 3, false)
	r.X[0] = [3]float64{1, 2, 3}
	r.X[1] = [3]float64{4, 5, 6}

	buf := make([]float64, 6)
	n := r.PackComm([]int{0, 1}, buf, [3]float64{})
	if n != 6 {
		t.Fatalf("PackComm returned %d, want 6", n)
	}

	r2 := NewRef(0, 5, false)
	r2.UnpackComm(2, 0, buf)
	if r2.X[0] != r.X[0] || r2.X[1] != r.X[1] {
		t.Errorf("round trip mismatch: got %v %v, want %v %v", r2.X[0], r2.X[1], r.X[0], r.X[1])
	}
}

func TestPackUnpackCommAppliesPBC(t *testing.T) {
	r := NewRef(1, 2, false)
	r.X[0] = [3]float64{0.1, 5, 5}

	buf := make([]float64, 3)
	r.PackComm([]int{0}, buf, [3]float64{1, 0, 0})

	r2 := NewRef(0, 2, false)
	r2.UnpackComm(1, 0, buf)
	if r2.X[0][0] != 1.1 {
		t.Errorf("x after pbc shift = %v, want 1.1", r2.X[0][0])
	}
}

func TestForwardReverseSumsOnce(t *testing.T) {
	// forward_comm followed by reverse_comm with identity pack sums every
	// ghost's field back onto its owner exactly once (spec.md §8 property 5).
	owner := NewRef(1, 0, false)
	owner.X[0] = [3]float64{1, 1, 1}

	ghostHolder := NewRef(0, 1, false)
	commBuf := make([]float64, 3)
	owner.PackComm([]int{0}, commBuf, [3]float64{})
	ghostHolder.UnpackComm(1, 0, commBuf)

	ghostHolder.F[0] = [3]float64{2, 2, 2}
	revBuf := make([]float64, 3)
	ghostHolder.PackReverse(1, 0, revBuf)

	owner.F[0] = [3]float64{0, 0, 0}
	owner.UnpackReverse([]int{0}, revBuf)

	want := [3]float64{2, 2, 2}
	if owner.F[0] != want {
		t.Errorf("owner force after reverse-comm = %v, want %v", owner.F[0], want)
	}
}

func TestPackExchangeRemovesParticle(t *testing.T) {
	r := NewRef(2, 1, true)
	r.X[0] = [3]float64{1, 1, 1}
	r.X[1] = [3]float64{2, 2, 2}
	r.V[1] = [3]float64{9, 9, 9}
	r.Type[1] = 7

	buf := make([]float64, exchangeWidth)
	r.PackExchange(0, buf)

	if r.NLocal() != 1 {
		t.Fatalf("NLocal after exchange = %d, want 1", r.NLocal())
	}
	if r.X[0] != [3]float64{2, 2, 2} {
		t.Errorf("swap-with-last left X[0] = %v, want {2,2,2}", r.X[0])
	}
}

func TestUnpackExchangeAppends(t *testing.T) {
	r := NewRef(1, 2, true)
	buf := make([]float64, exchangeWidth)
	buf[0] = exchangeWidth
	buf[1], buf[2], buf[3] = 9, 8, 7
	buf[4], buf[5], buf[6] = 0, 0, 0
	buf[7] = 3

	r.UnpackExchange(buf)
	if r.NLocal() != 2 {
		t.Fatalf("NLocal after unpack = %d, want 2", r.NLocal())
	}
	if r.X[1] != [3]float64{9, 8, 7} {
		t.Errorf("appended particle X = %v, want {9,8,7}", r.X[1])
	}
	if r.Type[1] != 3 {
		t.Errorf("appended particle Type = %d, want 3", r.Type[1])
	}
}
