package linsolve

import "github.com/mohammadijoo/MagnonDiffusion_GO/src/grid"

// offsets lists every combination of 0/1 over the first dim dimensions,
// holding dimension skip at 0 (skip < 0 skips none).
func offsets(dim, skip int) []grid.IntVect {
	out := []grid.IntVect{{}}
	for d := 0; d < dim; d++ {
		if d == skip {
			continue
		}
		n := len(out)
		for i := 0; i < n; i++ {
			o := out[i]
			o[d] = 1
			out = append(out, o)
		}
	}
	return out
}

func child(q, off grid.IntVect, dim int) grid.IntVect {
	var p grid.IntVect
	for d := 0; d < dim; d++ {
		p[d] = 2*q[d] + off[d]
	}
	return p
}

// restrict sets every coarse cell to the mean of its fine children.
func restrict(coarse, fine *grid.Field, dim int) {
	offs := offsets(dim, -1)
	w := 1 / float64(len(offs))
	coarse.ForEach(func(q grid.IntVect) {
		sum := 0.0
		for _, o := range offs {
			sum += fine.At(child(q, o, dim))
		}
		coarse.Set(q, sum*w)
	})
}

// restrictFaces sets every coarse face normal to dir to the mean of the
// fine faces it covers.
func restrictFaces(coarse, fine *grid.Field, dir, dim int) {
	offs := offsets(dim, dir)
	w := 1 / float64(len(offs))
	coarse.ForEach(func(q grid.IntVect) {
		sum := 0.0
		for _, o := range offs {
			sum += fine.At(child(q, o, dim))
		}
		coarse.Set(q, sum*w)
	})
}

// restrictGhostLayer averages the ghost layer outside one face of fine onto
// the same face of coarse.
func restrictGhostLayer(coarse, fine *grid.Field, d int, high bool, dim int) {
	offs := offsets(dim, d)
	w := 1 / float64(len(offs))
	nf := fine.Size()
	coarse.ForEachBoundaryCell(d, high, func(ghost, _ grid.IntVect) {
		sum := 0.0
		for _, o := range offs {
			p := child(ghost, o, dim)
			if high {
				p[d] = nf[d]
			} else {
				p[d] = -1
			}
			sum += fine.At(p)
		}
		coarse.Set(ghost, sum*w)
	})
}

// prolongAdd adds the piecewise-constant interpolation of coarse to fine.
func prolongAdd(fine, coarse *grid.Field, dim int) {
	fine.ForEach(func(p grid.IntVect) {
		var q grid.IntVect
		for d := 0; d < dim; d++ {
			q[d] = p[d] / 2
		}
		fine.Set(p, fine.At(p)+coarse.At(q))
	})
}

// addInterior sets x += e on the interior.
func addInterior(x, e *grid.Field) {
	x.ForEach(func(p grid.IntVect) {
		x.Set(p, x.At(p)+e.At(p))
	})
}
