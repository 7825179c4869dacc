// Package geom provides the small amount of vector and matrix geometry the
// grid factorizer needs: cross products for triclinic face areas, and the
// h/h_inv box-matrix bookkeeping shared by the triclinic coordinate
// transforms used throughout the communicator.
package geom

import "gonum.org/v1/gonum/mat"

// Cross returns the cross product a x b, grounded on the original
// implementation's Comm::cross (three scalar multiply-subtracts, no need
// for a general-purpose vector type here).
func Cross(a, b [3]float64) [3]float64 {
	return [3]float64{
		a[1]*b[2] - a[2]*b[1],
		a[2]*b[0] - a[0]*b[2],
		a[0]*b[1] - a[1]*b[0],
	}
}

// Norm returns the Euclidean length of v.
func Norm(v [3]float64) float64 {
	return mat.Norm(mat.NewVecDense(3, v[:]), 2)
}

// OrthogonalAreas returns the three face areas (xy, xz, yz) of an
// axis-aligned box with edge lengths prd, scaled by sx, sy, sz — the
// scaling used when factoring a sub-grid within a larger NUMA plan (§4.2).
func OrthogonalAreas(prd [3]float64, sx, sy, sz float64) [3]float64 {
	return [3]float64{
		prd[0] * prd[1] / (sx * sy),
		prd[0] * prd[2] / (sx * sz),
		prd[1] * prd[2] / (sy * sz),
	}
}

// HMatrix is the 6-component triclinic box matrix (xx, yy, zz, yz, xz, xy)
// used by LAMMPS-style engines to store a non-orthogonal box without
// carrying a full 3x3 matrix: h[0..2] are the diagonal (axis lengths after
// shear), h[3..5] are the three tilt factors.
type HMatrix [6]float64

// EdgeVectors returns the three box edge vectors implied by h, in the same
// order matrix rows are conventionally written for a lower-triangular box:
// edge a = (h[0], 0, 0), edge b = (h[5], h[1], 0), edge c = (h[4], h[3], h[2]).
func (h HMatrix) EdgeVectors() (a, b, c [3]float64) {
	a = [3]float64{h[0], 0, 0}
	b = [3]float64{h[5], h[1], 0}
	c = [3]float64{h[4], h[3], h[2]}
	return
}

// TriclinicAreas returns the three face areas (xy, xz, yz) of a triclinic
// box described by h, computed as the magnitude of the cross product of
// the two edge vectors spanning each face — grounded on Comm::procs2box's
// triclinic branch.
func TriclinicAreas(h HMatrix) [3]float64 {
	a, b, c := h.EdgeVectors()
	return [3]float64{
		Norm(Cross(a, b)),
		Norm(Cross(a, c)),
		Norm(Cross(b, c)),
	}
}

// Dense returns h as a lower-triangular 3x3 gonum matrix, ordered so that
// row i holds box edge vector i in real-space Cartesian coordinates.
func (h HMatrix) Dense() *mat.Dense {
	return mat.NewDense(3, 3, []float64{
		h[0], 0, 0,
		h[5], h[1], 0,
		h[4], h[3], h[2],
	})
}

// Inverse returns the 6-component h_inv matrix (in the same xx,yy,zz,yz,xz,xy
// layout as h) such that lambda = h_inv * (real - boxlo). It is computed by
// inverting the dense 3x3 form, which keeps the per-component algebra out of
// this package at the cost of a small matrix inversion per box change — box
// changes happen only on reneighbor, never in the steady-state hot path.
func (h HMatrix) Inverse() HMatrix {
	var inv mat.Dense
	if err := inv.Inverse(h.Dense()); err != nil {
		// A degenerate box (zero volume) is a configuration error the
		// caller should have rejected before reaching here.
		return HMatrix{}
	}
	return HMatrix{
		inv.At(0, 0), inv.At(1, 1), inv.At(2, 2),
		inv.At(2, 1), inv.At(2, 0), inv.At(1, 0),
	}
}

// GhostCutoff converts a uniform box-coordinate cutoff into the three
// per-dimension lamda-coordinate cutoffs used to size triclinic swap slabs,
// grounded on Comm::setup's triclinic branch (length0/length1/length2).
func GhostCutoff(hinv HMatrix, cut float64) [3]float64 {
	length0 := Norm([3]float64{hinv[0], hinv[5], hinv[4]})
	length1 := Norm([3]float64{0, hinv[1], hinv[3]})
	length2 := hinv[2]
	return [3]float64{cut * length0, cut * length1, cut * length2}
}
