// Package grid factors a process count into a 3D processor grid that
// minimizes per-process communication surface area, and — optionally —
// groups that factorization by shared-memory NUMA node.
package grid

import "errors"

// ErrBadGrid is returned when no factorization of p satisfies the given
// constraints; callers must check for it rather than trust the returned
// grid, mirroring the original's "px*py*pz != nprocs means bad grid"
// convention (spec §4.1, §7 BadGrid).
var ErrBadGrid = errors.New("grid: no factorization of p satisfies the given constraints")

// Factor returns (px, py, pz) such that px*py*pz == p and the estimated
// per-process communication surface
//
//	areas[0]/(px*py) + areas[1]/(px*pz) + areas[2]/(py*pz)
//
// is minimal, subject to: any user[d] > 0 fixes that dimension; if dim2D,
// pz is fixed at 1. Ties are broken by first-discovered, enumerating ipx
// ascending then ipy ascending — grounded on Comm::procs2box's two nested
// while loops.
//
// If no combination satisfies the constraints, Factor returns ErrBadGrid
// and a grid that does not multiply to p.
func Factor(p int, user [3]int, areas [3]float64, dim2D bool) (px, py, pz int, err error) {
	if p <= 0 {
		return 0, 0, 0, ErrBadGrid
	}
	if dim2D && user[2] != 0 && user[2] != 1 {
		return 0, 0, 0, ErrBadGrid
	}

	bestSurf := 2.0 * (areas[0] + areas[1] + areas[2])
	found := false

	for ipx := 1; ipx <= p; ipx++ {
		if p%ipx != 0 {
			continue
		}
		if user[0] != 0 && ipx != user[0] {
			continue
		}
		rem := p / ipx
		for ipy := 1; ipy <= rem; ipy++ {
			if rem%ipy != 0 {
				continue
			}
			if user[1] != 0 && ipy != user[1] {
				continue
			}
			ipz := rem / ipy
			if user[2] != 0 && ipz != user[2] {
				continue
			}
			if dim2D && ipz != 1 {
				continue
			}

			surf := areas[0]/float64(ipx*ipy) + areas[1]/float64(ipx*ipz) + areas[2]/float64(ipy*ipz)
			if !found || surf < bestSurf {
				bestSurf = surf
				px, py, pz = ipx, ipy, ipz
				found = true
			}
		}
	}

	if !found {
		return 0, 0, 0, ErrBadGrid
	}
	return px, py, pz, nil
}

// FactorScaled is Factor with the three face areas pre-divided by the
// sub-grid scaling (sx, sy, sz) — used when factoring an inter-NUMA grid
// whose "cells" are themselves intra-NUMA sub-grids of size sx*sy*sz
// (spec §4.2 step 4).
func FactorScaled(p int, user [3]int, prdAreas [3]float64, sx, sy, sz float64, dim2D bool) (px, py, pz int, err error) {
	scaled := [3]float64{
		prdAreas[0] / (sx * sy),
		prdAreas[1] / (sx * sz),
		prdAreas[2] / (sy * sz),
	}
	return Factor(p, user, scaled, dim2D)
}
