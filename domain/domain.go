// Package domain describes the simulation box geometry the communicator
// needs from its host engine: sub-box bounds, periodicity, and the
// orthogonal/triclinic coordinate transform. This spec treats the domain as
// an external collaborator referenced only by contract (spec.md §1); this
// package supplies both that contract and a plain reference implementation
// so the rest of the module, and its tests, have something concrete to run
// against.
package domain

import (
	"errors"

	"github.com/RJMS-Benchmark/lammps/geom"
)

// ErrInvalidCutoff is returned when a negative cutoff is supplied to a
// domain operation, matching spec.md §7 InvalidCutoff.
var ErrInvalidCutoff = errors.New("domain: cutoff must be >= 0")

// Box is the capability set the communicator requires from the domain,
// per spec.md §6 "Required capabilities from the domain". Orthogonal boxes
// use Sublo/Subhi/Prd; triclinic boxes additionally populate the lamda
// (fractional) variants and H/HInv.
type Box interface {
	// Sublo, Subhi are this process's sub-box bounds in box coordinates.
	Sublo() [3]float64
	Subhi() [3]float64
	// SubloLamda, SubhiLamda are the triclinic fractional equivalents; only
	// meaningful when Triclinic() is true.
	SubloLamda() [3]float64
	SubhiLamda() [3]float64

	// Prd is the global box edge lengths; PrdLamda is always (1,1,1) for a
	// triclinic box, supplied for symmetry with PrdLamda-consuming callers.
	Prd() [3]float64
	PrdLamda() [3]float64

	// H, HInv are the 6-component triclinic box matrix and its inverse.
	// For an orthogonal box, H is (Prd[0],Prd[1],Prd[2],0,0,0) and HInv its
	// reciprocal diagonal.
	H() geom.HMatrix
	HInv() geom.HMatrix

	Periodicity() [3]bool
	Dimension() int
	Triclinic() bool
}

// Plain is a reference Box: an axis-aligned or triclinic box evenly
// partitioned among a process grid, with no dynamic resizing. It exists for
// tests and for callers (cmd/mdrun) that do not need a richer domain model.
type Plain struct {
	prd         [3]float64
	h           geom.HMatrix
	hinv        geom.HMatrix
	periodicity [3]bool
	dimension   int
	triclinic   bool

	sublo, subhi           [3]float64
	subloLamda, subhiLamda [3]float64
}

// NewOrthogonal builds a Plain orthogonal box of edge lengths prd, evenly
// divided among procgrid, with this process at grid coordinate myloc.
func NewOrthogonal(prd [3]float64, periodicity [3]bool, dimension int, procgrid, myloc [3]int) *Plain {
	b := &Plain{
		prd:         prd,
		h:           geom.HMatrix{prd[0], prd[1], prd[2], 0, 0, 0},
		periodicity: periodicity,
		dimension:   dimension,
	}
	b.hinv = b.h.Inverse()
	for d := 0; d < 3; d++ {
		lo := float64(myloc[d]) / float64(procgrid[d])
		hi := float64(myloc[d]+1) / float64(procgrid[d])
		b.sublo[d] = lo * prd[d]
		b.subhi[d] = hi * prd[d]
		b.subloLamda[d] = lo
		b.subhiLamda[d] = hi
	}
	return b
}

// NewTriclinic builds a Plain triclinic box from the 6-component h matrix,
// evenly divided among procgrid in lamda (fractional) space.
func NewTriclinic(h geom.HMatrix, periodicity [3]bool, dimension int, procgrid, myloc [3]int) *Plain {
	b := &Plain{
		h:           h,
		periodicity: periodicity,
		dimension:   dimension,
		triclinic:   true,
		prd:         [3]float64{h[0], h[1], h[2]},
	}
	b.hinv = h.Inverse()
	for d := 0; d < 3; d++ {
		lo := float64(myloc[d]) / float64(procgrid[d])
		hi := float64(myloc[d]+1) / float64(procgrid[d])
		b.subloLamda[d] = lo
		b.subhiLamda[d] = hi
	}
	b.sublo = b.LamdaToReal(b.subloLamda)
	b.subhi = b.LamdaToReal(b.subhiLamda)
	return b
}

func (b *Plain) Sublo() [3]float64      { return b.sublo }
func (b *Plain) Subhi() [3]float64      { return b.subhi }
func (b *Plain) SubloLamda() [3]float64 { return b.subloLamda }
func (b *Plain) SubhiLamda() [3]float64 { return b.subhiLamda }
func (b *Plain) Prd() [3]float64        { return b.prd }
func (b *Plain) PrdLamda() [3]float64   { return [3]float64{1, 1, 1} }
func (b *Plain) H() geom.HMatrix        { return b.h }
func (b *Plain) HInv() geom.HMatrix     { return b.hinv }
func (b *Plain) Periodicity() [3]bool   { return b.periodicity }
func (b *Plain) Dimension() int         { return b.dimension }
func (b *Plain) Triclinic() bool        { return b.triclinic }

// LamdaToReal converts fractional box coordinates to real (Cartesian)
// coordinates via the lower-triangular h matrix: real = h*lamda.
func (b *Plain) LamdaToReal(lamda [3]float64) [3]float64 {
	return [3]float64{
		b.h[0]*lamda[0] + b.h[5]*lamda[1] + b.h[4]*lamda[2],
		b.h[1]*lamda[1] + b.h[3]*lamda[2],
		b.h[2] * lamda[2],
	}
}

// RealToLamda converts real coordinates to fractional via h_inv.
func (b *Plain) RealToLamda(real [3]float64) [3]float64 {
	return [3]float64{
		b.hinv[0]*real[0] + b.hinv[5]*real[1] + b.hinv[4]*real[2],
		b.hinv[1]*real[1] + b.hinv[3]*real[2],
		b.hinv[2] * real[2],
	}
}

// GhostCutoff returns the per-dimension ghost cutoff for a uniform (single
// style) cutoff cut, in the coordinate system Sublo/Subhi use (box
// coordinates for orthogonal, lamda for triclinic).
func (b *Plain) GhostCutoff(cut float64) ([3]float64, error) {
	if cut < 0 {
		return [3]float64{}, ErrInvalidCutoff
	}
	if !b.triclinic {
		return [3]float64{cut, cut, cut}, nil
	}
	return geom.GhostCutoff(b.hinv, cut), nil
}
