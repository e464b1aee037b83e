package grid

// Shape decides which cells an embedded boundary removes from the domain.
type Shape interface {
	Inside(x RealVect) bool
}

// Sphere is a ball (disc in 2D) of covered cells.
type Sphere struct {
	Center RealVect
	Radius float64
}

// Inside reports whether x lies within the sphere.
func (s Sphere) Inside(x RealVect) bool {
	r2 := 0.0
	for d := 0; d < MaxDim; d++ {
		dx := x[d] - s.Center[d]
		r2 += dx * dx
	}
	return r2 <= s.Radius*s.Radius
}

// Box is an axis-aligned block of covered cells.
type Box struct {
	Lo, Hi RealVect
}

// Inside reports whether x lies within the box. Inactive dimensions are
// ignored when Lo and Hi are both zero there.
func (b Box) Inside(x RealVect) bool {
	for d := 0; d < MaxDim; d++ {
		if b.Lo[d] == 0 && b.Hi[d] == 0 {
			continue
		}
		if x[d] < b.Lo[d] || x[d] > b.Hi[d] {
			return false
		}
	}
	return true
}

// EmbeddedBoundary marks cells exterior to the computational domain. Cells
// are either fully covered or regular; the surface between them carries a
// Dirichlet value.
type EmbeddedBoundary struct {
	// Covered holds 1 on covered cells and 0 elsewhere, ghosts included.
	Covered *Field
	// SurfaceSoln holds the Dirichlet value imposed on the surface next to
	// each covered cell.
	SurfaceSoln *Field
}

// NewEmbeddedBoundary covers every cell of g whose centre lies inside shape
// and imposes value on the resulting surface.
func NewEmbeddedBoundary(g *Geometry, shape Shape, value float64) *EmbeddedBoundary {
	eb := &EmbeddedBoundary{
		Covered:     NewField(g, 1),
		SurfaceSoln: NewField(g, 1),
	}
	eb.Covered.ForEach(func(p IntVect) {
		if shape.Inside(g.CellCenter(p)) {
			eb.Covered.Set(p, 1)
			eb.SurfaceSoln.Set(p, value)
		}
	})
	return eb
}

// IsCovered reports whether cell p is outside the computational domain.
// Ghost cells are never covered.
func (eb *EmbeddedBoundary) IsCovered(p IntVect) bool {
	return eb.Covered.At(p) > 0.5
}

// NumCovered counts the covered interior cells.
func (eb *EmbeddedBoundary) NumCovered() int {
	n := 0
	eb.Covered.ForEach(func(p IntVect) {
		if eb.IsCovered(p) {
			n++
		}
	})
	return n
}

// VolumeFraction returns 0 on covered cells and 1 on regular ones, the
// form plot output expects.
func (eb *EmbeddedBoundary) VolumeFraction(g *Geometry) *Field {
	vf := NewField(g, 0)
	vf.ForEach(func(p IntVect) {
		vf.Set(p, 1-eb.Covered.At(p))
	})
	return vf
}
