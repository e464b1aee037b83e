// Package fill populates the ghost halo of cell-centred fields so that the
// implicit operator sees values consistent with each face's boundary kind.
//
// Ghost cells hold cell-centred values half a cell outside the face. With
// phi_adj the adjacent interior value and dx the spacing normal to the face:
//
//	Dirichlet  phi = f        ghost = 2f - phi_adj
//	Neumann    dphi/dn = f    ghost = phi_adj + f*dx
//	Robin      a*phi + b*dphi/dn = f
//	           ghost = (f - phi_adj*(a/2 - b/dx)) / (a/2 + b/dx)
package fill

import (
	"github.com/mohammadijoo/MagnonDiffusion_GO/src/bc"
	"github.com/mohammadijoo/MagnonDiffusion_GO/src/config"
	"github.com/mohammadijoo/MagnonDiffusion_GO/src/grid"
)

var sides = [2]bc.Side{bc.Lo, bc.Hi}

// RobinCoefs holds the Robin a, b and f data. The values live in the ghost
// layer of each Robin face; interior cells are zero.
type RobinCoefs struct {
	A, B, F *grid.Field
}

// NewRobinCoefs allocates zeroed coefficient fields with one ghost layer.
func NewRobinCoefs(g *grid.Geometry) *RobinCoefs {
	return &RobinCoefs{
		A: grid.NewField(g, 1),
		B: grid.NewField(g, 1),
		F: grid.NewField(g, 1),
	}
}

// InitRobinCoefs writes the per-face a, b and f of every Robin face into
// the ghost layer of that face. It runs once, before the time loop.
func InitRobinCoefs(r *RobinCoefs, set bc.Set, bnd *config.Boundary) {
	for d := 0; d < set.Dim; d++ {
		for _, side := range sides {
			if set.Kind(d, side) != bc.Robin {
				continue
			}
			a, b, f := bnd.A(d, side), bnd.B(d, side), bnd.F(d, side)
			r.A.ForEachBoundaryCell(d, side == bc.Hi, func(ghost, _ grid.IntVect) {
				r.A.Set(ghost, a)
				r.B.Set(ghost, b)
				r.F.Set(ghost, f)
			})
		}
	}
}

// Plot returns copies of a, b and f in which the interior cells next to
// each Robin face also carry that face's coefficients, so that output
// covering the interior only still shows them. Where two Robin faces meet
// the later dimension wins.
func (r *RobinCoefs) Plot(set bc.Set) (a, b, f *grid.Field) {
	a, b, f = r.A.Clone(), r.B.Clone(), r.F.Clone()
	for d := 0; d < set.Dim; d++ {
		for _, side := range sides {
			if set.Kind(d, side) != bc.Robin {
				continue
			}
			a.ForEachBoundaryCell(d, side == bc.Hi, func(ghost, adj grid.IntVect) {
				a.Set(adj, a.At(ghost))
				b.Set(adj, b.At(ghost))
				f.Set(adj, f.At(ghost))
			})
		}
	}
	return a, b, f
}

// Physical fills the ghost cells of every non-periodic face of phi from the
// face's boundary kind. Periodic faces must already have been filled by
// grid.Field.FillBoundary. Robin faces read their coefficients from robin,
// which may be nil when set has no Robin face.
func Physical(
	phi *grid.Field,
	g *grid.Geometry,
	set bc.Set,
	bnd *config.Boundary,
	robin *RobinCoefs,
) {
	for d := 0; d < set.Dim; d++ {
		dx := g.CellSize(d)
		for _, side := range sides {
			kind := set.Kind(d, side)
			high := side == bc.Hi
			f := bnd.F(d, side)

			switch kind {
			case bc.Dirichlet:
				phi.ForEachBoundaryCell(d, high, func(ghost, adj grid.IntVect) {
					phi.Set(ghost, bc.DirichletGhost(phi.At(adj), f))
				})
			case bc.Neumann:
				phi.ForEachBoundaryCell(d, high, func(ghost, adj grid.IntVect) {
					phi.Set(ghost, bc.NeumannGhost(phi.At(adj), f, dx))
				})
			case bc.Robin:
				phi.ForEachBoundaryCell(d, high, func(ghost, adj grid.IntVect) {
					phi.Set(ghost, bc.RobinGhost(
						phi.At(adj),
						robin.A.At(ghost), robin.B.At(ghost), robin.F.At(ghost),
						dx,
					))
				})
			}
		}
	}
}

// Robin copies the Robin face ghost layers of src into the scratch fields
// dst, the form the linear solver consumes. Everything else in dst is set
// to zero.
func Robin(dst, src *RobinCoefs, set bc.Set) {
	dst.A.SetVal(0)
	dst.B.SetVal(0)
	dst.F.SetVal(0)
	for d := 0; d < set.Dim; d++ {
		for _, side := range sides {
			if set.Kind(d, side) != bc.Robin {
				continue
			}
			src.A.ForEachBoundaryCell(d, side == bc.Hi, func(ghost, _ grid.IntVect) {
				dst.A.Set(ghost, src.A.At(ghost))
				dst.B.Set(ghost, src.B.At(ghost))
				dst.F.Set(ghost, src.F.At(ghost))
			})
		}
	}
}

// Ghosts runs the whole fill for one step: periodic exchange, physical
// faces and, when any face is Robin, the Robin scratch fields. scratch may
// be nil when set has no Robin face.
func Ghosts(
	phi *grid.Field,
	g *grid.Geometry,
	set bc.Set,
	bnd *config.Boundary,
	robin, scratch *RobinCoefs,
) {
	phi.FillBoundary(set.Periodicity())
	if set.AnyRobin {
		Robin(scratch, robin, set)
		Physical(phi, g, set, bnd, scratch)
		return
	}
	Physical(phi, g, set, bnd, nil)
}
