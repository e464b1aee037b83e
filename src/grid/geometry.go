// Package grid describes the single uniform level the solver works on: the
// problem domain, its cells and the cell- and face-centred fields defined
// over them.
package grid

import (
	"errors"
	"fmt"
)

// MaxDim is the largest number of spatial dimensions a Geometry can have.
// Two-dimensional problems leave the third dimension inactive (one cell,
// no ghost layer).
const MaxDim = 3

// ErrShapeMismatch is returned when two fields that must share a layout
// do not.
var ErrShapeMismatch = errors.New("grid: field shape mismatch")

// ErrInvalidGeometry reports a malformed domain description.
var ErrInvalidGeometry = errors.New("grid: invalid geometry")

// IntVect indexes a cell (or a face) in up to MaxDim dimensions.
type IntVect [MaxDim]int

// RealVect is a physical position.
type RealVect [MaxDim]float64

// Geometry is the physical domain, its cell counts and periodicity.
type Geometry struct {
	Dim      int
	NCell    IntVect
	ProbLo   RealVect
	ProbHi   RealVect
	Periodic [MaxDim]bool

	// EB is nil unless part of the domain is covered by an embedded
	// boundary.
	EB *EmbeddedBoundary
}

// NewGeometry builds a Geometry from per-dimension slices, all of length
// dim.
func NewGeometry(
	dim int,
	nCell []int,
	probLo, probHi []float64,
	periodic []bool,
) (*Geometry, error) {
	if dim < 2 || dim > MaxDim {
		return nil, fmt.Errorf("%w: dimension %d not supported", ErrInvalidGeometry, dim)
	}
	if len(nCell) != dim || len(probLo) != dim || len(probHi) != dim || len(periodic) != dim {
		return nil, fmt.Errorf("%w: expected %d entries per dimension", ErrInvalidGeometry, dim)
	}

	g := &Geometry{Dim: dim}
	for d := 0; d < MaxDim; d++ {
		g.NCell[d] = 1
		g.ProbHi[d] = 1
	}
	for d := 0; d < dim; d++ {
		if nCell[d] < 1 {
			return nil, fmt.Errorf("%w: n_cell[%d] = %d", ErrInvalidGeometry, d, nCell[d])
		}
		if !(probHi[d] > probLo[d]) {
			return nil, fmt.Errorf("%w: prob_hi[%d] must exceed prob_lo[%d]", ErrInvalidGeometry, d, d)
		}
		g.NCell[d] = nCell[d]
		g.ProbLo[d] = probLo[d]
		g.ProbHi[d] = probHi[d]
		g.Periodic[d] = periodic[d]
	}
	return g, nil
}

// CellSize returns the mesh spacing in dimension d.
func (g *Geometry) CellSize(d int) float64 {
	return (g.ProbHi[d] - g.ProbLo[d]) / float64(g.NCell[d])
}

// CellCenter returns the physical position of the centre of cell p. Ghost
// indices are allowed.
func (g *Geometry) CellCenter(p IntVect) RealVect {
	var x RealVect
	for d := 0; d < g.Dim; d++ {
		x[d] = g.ProbLo[d] + (float64(p[d])+0.5)*g.CellSize(d)
	}
	return x
}

// NumCells is the number of interior cells.
func (g *Geometry) NumCells() int {
	n := 1
	for d := 0; d < g.Dim; d++ {
		n *= g.NCell[d]
	}
	return n
}

// CanCoarsen reports whether every active dimension can be halved while
// keeping at least two cells.
func (g *Geometry) CanCoarsen() bool {
	for d := 0; d < g.Dim; d++ {
		if g.NCell[d]%2 != 0 || g.NCell[d]/2 < 2 {
			return false
		}
	}
	return true
}

// Coarsen returns the geometry with half the cells in every active
// dimension. The embedded boundary is not carried over.
func (g *Geometry) Coarsen() *Geometry {
	c := *g
	c.EB = nil
	for d := 0; d < g.Dim; d++ {
		c.NCell[d] = g.NCell[d] / 2
	}
	return &c
}

// Center is the index of the cell closest to the middle of the domain.
func (g *Geometry) Center() IntVect {
	var p IntVect
	for d := 0; d < g.Dim; d++ {
		p[d] = g.NCell[d] / 2
	}
	return p
}
