package grid

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
)

// Field is a scalar defined on cells (or on the faces normal to one
// direction) of a Geometry, stored flattened with the x index running
// fastest.
type Field struct {
	n      IntVect // points per dimension, excluding ghosts
	ng     IntVect // ghost layers per dimension
	ext    IntVect // n + 2*ng
	normal int     // face direction, or -1 for cell-centred data

	Data []float64
}

// NewField allocates a cell-centred field with nghost ghost layers in
// every active dimension.
func NewField(g *Geometry, nghost int) *Field {
	var ng IntVect
	for d := 0; d < g.Dim; d++ {
		ng[d] = nghost
	}
	return newField(g.NCell, ng, -1)
}

// NewFaceField allocates a field living on the faces normal to dir, with no
// ghost layer. Face i in direction dir is the low face of cell i.
func NewFaceField(g *Geometry, dir int) *Field {
	n := g.NCell
	n[dir]++
	return newField(n, IntVect{}, dir)
}

func newField(n, ng IntVect, normal int) *Field {
	f := &Field{n: n, ng: ng, normal: normal}
	size := 1
	for d := 0; d < MaxDim; d++ {
		f.ext[d] = n[d] + 2*ng[d]
		size *= f.ext[d]
	}
	f.Data = make([]float64, size)
	return f
}

// Size returns the number of interior points per dimension.
func (f *Field) Size() IntVect { return f.n }

// NGhost returns the ghost depth per dimension.
func (f *Field) NGhost() IntVect { return f.ng }

// Normal returns the face direction of a face field, or -1.
func (f *Field) Normal() int { return f.normal }

// Index flattens p, which may lie in the ghost region.
func (f *Field) Index(p IntVect) int {
	return ((p[2]+f.ng[2])*f.ext[1]+(p[1]+f.ng[1]))*f.ext[0] + p[0] + f.ng[0]
}

// At returns the value at p.
func (f *Field) At(p IntVect) float64 { return f.Data[f.Index(p)] }

// Set stores v at p.
func (f *Field) Set(p IntVect, v float64) { f.Data[f.Index(p)] = v }

// SetVal sets every point, ghosts included, to v.
func (f *Field) SetVal(v float64) {
	for i := range f.Data {
		f.Data[i] = v
	}
}

// SameShape reports whether f and o have identical layouts.
func (f *Field) SameShape(o *Field) bool {
	return f.n == o.n && f.ng == o.ng && f.normal == o.normal
}

// SameInterior reports whether f and o cover the same interior points,
// regardless of ghost depth.
func (f *Field) SameInterior(o *Field) bool {
	return f.n == o.n && f.normal == o.normal
}

// Clone returns a deep copy of f.
func (f *Field) Clone() *Field {
	c := *f
	c.Data = make([]float64, len(f.Data))
	copy(c.Data, f.Data)
	return &c
}

// CopyInterior copies the interior values of src into f. Ghost cells of f
// are left untouched.
func (f *Field) CopyInterior(src *Field) error {
	if !f.SameInterior(src) {
		return fmt.Errorf("copy %v into %v: %w", src.n, f.n, ErrShapeMismatch)
	}
	f.ForEach(func(p IntVect) {
		f.Data[f.Index(p)] = src.Data[src.Index(p)]
	})
	return nil
}

// ForEach visits every interior point with x fastest.
func (f *Field) ForEach(fn func(p IntVect)) {
	var p IntVect
	for p[2] = 0; p[2] < f.n[2]; p[2]++ {
		for p[1] = 0; p[1] < f.n[1]; p[1]++ {
			for p[0] = 0; p[0] < f.n[0]; p[0]++ {
				fn(p)
			}
		}
	}
}

// ForEachBoundaryCell visits the ghost cells just outside the low (high =
// false) or high face of dimension d, together with the adjacent interior
// cell. Only interior positions in the other dimensions are visited.
func (f *Field) ForEachBoundaryCell(d int, high bool, fn func(ghost, adj IntVect)) {
	lo := IntVect{}
	hi := f.n
	if high {
		lo[d] = f.n[d] - 1
	} else {
		hi[d] = 1
	}
	var p IntVect
	for p[2] = lo[2]; p[2] < hi[2]; p[2]++ {
		for p[1] = lo[1]; p[1] < hi[1]; p[1]++ {
			for p[0] = lo[0]; p[0] < hi[0]; p[0]++ {
				g := p
				if high {
					g[d]++
				} else {
					g[d]--
				}
				fn(g, p)
			}
		}
	}
}

// FillBoundary fills the ghost layers of periodic dimensions with the
// wrapped interior values. Dimensions are processed in order over the full
// extent of the others, so edge and corner ghosts are filled too.
func (f *Field) FillBoundary(periodic [MaxDim]bool) {
	for d := 0; d < MaxDim; d++ {
		if !periodic[d] || f.ng[d] == 0 {
			continue
		}
		var lo, hi IntVect
		for e := 0; e < MaxDim; e++ {
			lo[e], hi[e] = -f.ng[e], f.n[e]+f.ng[e]
		}
		lo[d], hi[d] = 0, 1
		var p IntVect
		for p[2] = lo[2]; p[2] < hi[2]; p[2]++ {
			for p[1] = lo[1]; p[1] < hi[1]; p[1]++ {
				for p[0] = lo[0]; p[0] < hi[0]; p[0]++ {
					for k := 1; k <= f.ng[d]; k++ {
						glo, ghi, ilo, ihi := p, p, p, p
						glo[d] = -k
						ihi[d] = f.n[d] - k
						ghi[d] = f.n[d] - 1 + k
						ilo[d] = k - 1
						f.Set(glo, f.At(ihi))
						f.Set(ghi, f.At(ilo))
					}
				}
			}
		}
	}
}

// Interior gathers the interior values into a new slice in ForEach order.
func (f *Field) Interior() []float64 {
	out := make([]float64, 0, f.n[0]*f.n[1]*f.n[2])
	f.ForEach(func(p IntVect) {
		out = append(out, f.Data[f.Index(p)])
	})
	return out
}

// SetInterior scatters v, in ForEach order, into the interior of f.
func (f *Field) SetInterior(v []float64) error {
	if len(v) != f.n[0]*f.n[1]*f.n[2] {
		return fmt.Errorf("scatter %d values into %v: %w", len(v), f.n, ErrShapeMismatch)
	}
	i := 0
	f.ForEach(func(p IntVect) {
		f.Data[f.Index(p)] = v[i]
		i++
	})
	return nil
}

// Stats summarises the interior of a field.
type Stats struct {
	Min, Max, Mean float64
}

// Stats returns the minimum, maximum and mean of the interior values.
func (f *Field) Stats() Stats {
	v := f.Interior()
	return Stats{
		Min:  floats.Min(v),
		Max:  floats.Max(v),
		Mean: floats.Sum(v) / float64(len(v)),
	}
}

// NamedField pairs a field with the name it is written out under.
type NamedField struct {
	Name  string
	Field *Field
}
