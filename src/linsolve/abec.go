package linsolve

import (
	"fmt"

	"github.com/mohammadijoo/MagnonDiffusion_GO/src/bc"
	"github.com/mohammadijoo/MagnonDiffusion_GO/src/grid"
)

// ABecLaplacian is the cell-centred operator
//
//	L(x) = alpha*A*x - beta*div(B grad x)
//
// with A on cells and B on faces, discretised with the standard 2*dim+1
// point stencil. Boundary faces are closed through ghost cells
// (second-order, max order 2). The embedded variant removes covered cells
// from the domain and imposes a Dirichlet value on the surface between
// covered and regular cells; covered rows reduce to the identity.
//
// Inputs are set in order: domain BC, level BC, scalars, A, B and, for the
// embedded variant, the surface Dirichlet data.
type ABecLaplacian struct {
	geom     *grid.Geometry
	lo, hi   [grid.MaxDim]bc.Kind
	maxOrder int

	alpha, beta float64
	acoef       *grid.Field
	bcoef       [grid.MaxDim]*grid.Field

	// bcData holds, in the ghost cell outside each Dirichlet or Neumann
	// face, the face value or the outward derivative.
	bcData                 *grid.Field
	robinA, robinB, robinF *grid.Field

	eb     *grid.EmbeddedBoundary
	ebSoln *grid.Field
	ebCoef *grid.Field

	diag *grid.Field
}

// NewABecLaplacian returns a Cartesian operator on g. Any embedded boundary
// of g is ignored.
func NewABecLaplacian(g *grid.Geometry) *ABecLaplacian {
	return &ABecLaplacian{geom: g, maxOrder: 2, alpha: 1, beta: 1}
}

// NewEBABecLaplacian returns the cut-cell variant on g, which must carry an
// embedded boundary.
func NewEBABecLaplacian(g *grid.Geometry) (*ABecLaplacian, error) {
	if g.EB == nil {
		return nil, fmt.Errorf("%w: geometry has no embedded boundary", grid.ErrInvalidGeometry)
	}
	op := NewABecLaplacian(g)
	op.eb = g.EB
	return op, nil
}

// Geometry returns the grid the operator is defined on.
func (op *ABecLaplacian) Geometry() *grid.Geometry { return op.geom }

// SetMaxOrder sets the order of the boundary stencil. Only 2 is supported.
func (op *ABecLaplacian) SetMaxOrder(order int) { op.maxOrder = order }

// SetDomainBC sets the kind of every domain face.
func (op *ABecLaplacian) SetDomainBC(lo, hi [grid.MaxDim]bc.Kind) {
	op.lo, op.hi = lo, hi
}

// DomainBC returns the kinds set by SetDomainBC.
func (op *ABecLaplacian) DomainBC() (lo, hi [grid.MaxDim]bc.Kind) { return op.lo, op.hi }

// SetLevelBC reads the boundary data from the ghost cells of phi, filled
// for each face's kind. robin is either empty or the a, b, f scratch
// fields whose Robin face ghosts hold the Robin data. SetDomainBC must be
// called first.
func (op *ABecLaplacian) SetLevelBC(phi *grid.Field, robin ...*grid.Field) {
	op.bcData = grid.NewField(op.geom, 1)
	for d := 0; d < op.geom.Dim; d++ {
		dx := op.geom.CellSize(d)
		for _, high := range []bool{false, true} {
			kind := op.kind(d, high)
			if kind != bc.Dirichlet && kind != bc.Neumann {
				continue
			}
			phi.ForEachBoundaryCell(d, high, func(ghost, adj grid.IntVect) {
				op.bcData.Set(ghost, bc.FaceValue(kind, phi.At(ghost), phi.At(adj), dx))
			})
		}
	}
	op.robinA, op.robinB, op.robinF = nil, nil, nil
	if len(robin) == 3 {
		op.robinA, op.robinB, op.robinF = robin[0], robin[1], robin[2]
	}
	op.diag = nil
}

// HasRobinData reports whether SetLevelBC was given Robin fields.
func (op *ABecLaplacian) HasRobinData() bool { return op.robinA != nil }

// SetScalars sets alpha and beta.
func (op *ABecLaplacian) SetScalars(alpha, beta float64) {
	op.alpha, op.beta = alpha, beta
	op.diag = nil
}

// Scalars returns alpha and beta.
func (op *ABecLaplacian) Scalars() (alpha, beta float64) { return op.alpha, op.beta }

// SetACoeffs sets the cell-centred A.
func (op *ABecLaplacian) SetACoeffs(a *grid.Field) {
	op.acoef = a
	op.diag = nil
}

// ACoeffs returns A.
func (op *ABecLaplacian) ACoeffs() *grid.Field { return op.acoef }

// SetBCoeffs sets the face-centred B, one field per active dimension.
func (op *ABecLaplacian) SetBCoeffs(b [grid.MaxDim]*grid.Field) {
	op.bcoef = b
	op.diag = nil
}

// BCoeffs returns B.
func (op *ABecLaplacian) BCoeffs() [grid.MaxDim]*grid.Field { return op.bcoef }

// SetEBDirichlet imposes soln on the embedded surface, with the cell-centred
// coefficient coef scaling the flux through it.
func (op *ABecLaplacian) SetEBDirichlet(soln, coef *grid.Field) {
	op.ebSoln, op.ebCoef = soln, coef
	op.diag = nil
}

// IsEmbedded reports whether this is the cut-cell variant.
func (op *ABecLaplacian) IsEmbedded() bool { return op.eb != nil }

func (op *ABecLaplacian) kind(d int, high bool) bc.Kind {
	if high {
		return op.hi[d]
	}
	return op.lo[d]
}

// Validate checks every input against the geometry.
func (op *ABecLaplacian) Validate() error {
	g := op.geom
	if op.maxOrder != 2 {
		return fmt.Errorf("linsolve: max order %d not supported", op.maxOrder)
	}
	if op.acoef == nil || op.acoef.Size() != g.NCell {
		return fmt.Errorf("A coefficient: %w", grid.ErrShapeMismatch)
	}
	for d := 0; d < g.Dim; d++ {
		want := g.NCell
		want[d]++
		if op.bcoef[d] == nil || op.bcoef[d].Size() != want || op.bcoef[d].Normal() != d {
			return fmt.Errorf("B coefficient %d: %w", d, grid.ErrShapeMismatch)
		}
		periodic := op.lo[d] == bc.Periodic
		if periodic != (op.hi[d] == bc.Periodic) || periodic != g.Periodic[d] {
			return fmt.Errorf("linsolve: domain BC of dimension %d disagrees with geometry periodicity", d)
		}
	}
	if op.bcData == nil {
		return fmt.Errorf("linsolve: level BC not set")
	}
	for d := 0; d < g.Dim; d++ {
		if (op.lo[d] == bc.Robin || op.hi[d] == bc.Robin) && op.robinA == nil {
			return fmt.Errorf("linsolve: Robin face in dimension %d without Robin data", d)
		}
	}
	if op.robinA != nil {
		for _, f := range []*grid.Field{op.robinA, op.robinB, op.robinF} {
			if f == nil || f.Size() != g.NCell || f.NGhost() != op.bcData.NGhost() {
				return fmt.Errorf("Robin data: %w", grid.ErrShapeMismatch)
			}
		}
	}
	if op.eb != nil {
		if op.ebSoln == nil || op.ebCoef == nil {
			return fmt.Errorf("linsolve: embedded Dirichlet data not set")
		}
		if op.ebSoln.Size() != g.NCell || op.ebCoef.Size() != g.NCell {
			return fmt.Errorf("embedded Dirichlet data: %w", grid.ErrShapeMismatch)
		}
	}
	return nil
}

// fillGhosts closes the domain boundary of x.
func (op *ABecLaplacian) fillGhosts(x *grid.Field, homogeneous bool) {
	x.FillBoundary(op.geom.Periodic)
	for d := 0; d < op.geom.Dim; d++ {
		dx := op.geom.CellSize(d)
		for _, high := range []bool{false, true} {
			kind := op.kind(d, high)
			if kind == bc.Periodic {
				continue
			}
			x.ForEachBoundaryCell(d, high, func(ghost, adj grid.IntVect) {
				xa := x.At(adj)
				data := 0.0
				switch kind {
				case bc.Dirichlet:
					if !homogeneous {
						data = op.bcData.At(ghost)
					}
					x.Set(ghost, bc.DirichletGhost(xa, data))
				case bc.Neumann:
					if !homogeneous {
						data = op.bcData.At(ghost)
					}
					x.Set(ghost, bc.NeumannGhost(xa, data, dx))
				case bc.Robin:
					if !homogeneous {
						data = op.robinF.At(ghost)
					}
					x.Set(ghost, bc.RobinGhost(xa, op.robinA.At(ghost), op.robinB.At(ghost), data, dx))
				}
			})
		}
	}
}

func (op *ABecLaplacian) covered(p grid.IntVect) bool {
	return op.eb != nil && op.eb.IsCovered(p)
}

// applyCell evaluates the stencil at p; ghosts of x must be filled.
func (op *ABecLaplacian) applyCell(x *grid.Field, p grid.IntVect, homogeneous bool) float64 {
	xc := x.At(p)
	if op.covered(p) {
		return xc
	}
	v := op.alpha * op.acoef.At(p) * xc
	for d := 0; d < op.geom.Dim; d++ {
		dx := op.geom.CellSize(d)
		lo, hi := p, p
		lo[d]--
		hi[d]++
		bl, bh := op.bcoef[d].At(p), op.bcoef[d].At(hi)
		xl, xh := x.At(lo), x.At(hi)
		if op.covered(lo) {
			bl, xl = op.ebCoef.At(p), bc.DirichletGhost(xc, op.ebValue(lo, homogeneous))
		}
		if op.covered(hi) {
			bh, xh = op.ebCoef.At(p), bc.DirichletGhost(xc, op.ebValue(hi, homogeneous))
		}
		v -= op.beta * (bh*(xh-xc) - bl*(xc-xl)) / (dx * dx)
	}
	return v
}

func (op *ABecLaplacian) ebValue(q grid.IntVect, homogeneous bool) float64 {
	if homogeneous {
		return 0
	}
	return op.ebSoln.At(q)
}

// Apply sets out = L(x) on the interior.
func (op *ABecLaplacian) Apply(out, x *grid.Field, homogeneous bool) {
	op.fillGhosts(x, homogeneous)
	out.ForEach(func(p grid.IntVect) {
		out.Set(p, op.applyCell(x, p, homogeneous))
	})
}

// Diagonal returns the diagonal of the homogeneous operator, including
// what each cell feeds back into itself through boundary ghosts.
func (op *ABecLaplacian) Diagonal() *grid.Field {
	if op.diag != nil {
		return op.diag
	}
	g := op.geom
	diag := grid.NewField(g, 0)
	diag.ForEach(func(p grid.IntVect) {
		if op.covered(p) {
			diag.Set(p, 1)
			return
		}
		v := op.alpha * op.acoef.At(p)
		for d := 0; d < g.Dim; d++ {
			dx := g.CellSize(d)
			for _, high := range []bool{false, true} {
				q, face := p, p
				if high {
					q[d]++
					face[d]++
				} else {
					q[d]--
				}
				b := op.bcoef[d].At(face)
				slope := 0.0
				switch {
				case q[d] < 0 || q[d] >= g.NCell[d]:
					slope = op.boundarySlope(d, high, q, dx)
				case op.covered(q):
					b, slope = op.ebCoef.At(p), -1
				}
				v += op.beta * b * (1 - slope) / (dx * dx)
			}
		}
		diag.Set(p, v)
	})
	op.diag = diag
	return diag
}

func (op *ABecLaplacian) boundarySlope(d int, high bool, ghost grid.IntVect, dx float64) float64 {
	kind := op.kind(d, high)
	switch kind {
	case bc.Periodic:
		// A single periodic cell is its own neighbour.
		if op.geom.NCell[d] == 1 {
			return 1
		}
		return 0
	case bc.Robin:
		return bc.GhostSlope(kind, op.robinA.At(ghost), op.robinB.At(ghost), dx)
	}
	return bc.GhostSlope(kind, 0, 0, dx)
}

// Smooth runs one red-black Gauss-Seidel sweep on L(x) = rhs with
// homogeneous boundaries.
func (op *ABecLaplacian) Smooth(x, rhs *grid.Field) {
	diag := op.Diagonal()
	for color := 0; color < 2; color++ {
		op.fillGhosts(x, true)
		x.ForEach(func(p grid.IntVect) {
			if (p[0]+p[1]+p[2])%2 != color {
				return
			}
			r := rhs.At(p) - op.applyCell(x, p, true)
			x.Set(p, x.At(p)+r/diag.At(p))
		})
	}
}

// Coarsen returns the homogeneous operator on the grid with half the cells.
// The embedded variant does not coarsen.
func (op *ABecLaplacian) Coarsen() (Operator, bool) {
	if op.eb != nil || !op.geom.CanCoarsen() {
		return nil, false
	}
	cg := op.geom.Coarsen()
	c := &ABecLaplacian{
		geom:     cg,
		lo:       op.lo,
		hi:       op.hi,
		maxOrder: op.maxOrder,
		alpha:    op.alpha,
		beta:     op.beta,
		acoef:    grid.NewField(cg, 0),
		bcData:   grid.NewField(cg, 1),
	}
	restrict(c.acoef, op.acoef, cg.Dim)
	for d := 0; d < cg.Dim; d++ {
		c.bcoef[d] = grid.NewFaceField(cg, d)
		restrictFaces(c.bcoef[d], op.bcoef[d], d, cg.Dim)
	}
	if op.robinA != nil {
		c.robinA = grid.NewField(cg, 1)
		c.robinB = grid.NewField(cg, 1)
		c.robinF = grid.NewField(cg, 1)
		for d := 0; d < cg.Dim; d++ {
			for _, high := range []bool{false, true} {
				if op.kind(d, high) != bc.Robin {
					continue
				}
				restrictGhostLayer(c.robinA, op.robinA, d, high, cg.Dim)
				restrictGhostLayer(c.robinB, op.robinB, d, high, cg.Dim)
			}
		}
	}
	return c, true
}
