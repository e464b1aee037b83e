package grid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newGeom(t *testing.T, n ...int) *Geometry {
	lo := make([]float64, len(n))
	hi := make([]float64, len(n))
	per := make([]bool, len(n))
	for d := range n {
		hi[d] = 1
	}
	g, err := NewGeometry(len(n), n, lo, hi, per)
	require.NoError(t, err)
	return g
}

func TestNewGeometry(t *testing.T) {
	g := newGeom(t, 4, 8)
	assert.Equal(t, IntVect{4, 8, 1}, g.NCell)
	assert.Equal(t, 0.25, g.CellSize(0))
	assert.Equal(t, 0.125, g.CellSize(1))
	assert.Equal(t, 32, g.NumCells())
	assert.Equal(t, RealVect{0.125, 0.0625, 0}, g.CellCenter(IntVect{}))
	assert.Equal(t, IntVect{2, 4, 0}, g.Center())

	_, err := NewGeometry(1, []int{4}, []float64{0}, []float64{1}, []bool{false})
	assert.ErrorIs(t, err, ErrInvalidGeometry)
	_, err = NewGeometry(2, []int{4, 0}, []float64{0, 0}, []float64{1, 1}, []bool{false, false})
	assert.ErrorIs(t, err, ErrInvalidGeometry)
	_, err = NewGeometry(2, []int{4, 4}, []float64{0, 1}, []float64{1, 1}, []bool{false, false})
	assert.ErrorIs(t, err, ErrInvalidGeometry)
	_, err = NewGeometry(2, []int{4, 4}, []float64{0}, []float64{1, 1}, []bool{false, false})
	assert.ErrorIs(t, err, ErrInvalidGeometry)
}

func TestCoarsen(t *testing.T) {
	g := newGeom(t, 8, 4)
	require.True(t, g.CanCoarsen())
	c := g.Coarsen()
	assert.Equal(t, IntVect{4, 2, 1}, c.NCell)
	assert.Equal(t, 0.25, c.CellSize(0))
	assert.False(t, c.CanCoarsen())
	assert.False(t, newGeom(t, 6, 5).CanCoarsen())
}

func TestFieldLayout(t *testing.T) {
	g := newGeom(t, 3, 2)
	f := NewField(g, 1)
	assert.Len(t, f.Data, 5*4)
	assert.Equal(t, IntVect{1, 1, 0}, f.NGhost())
	assert.Equal(t, -1, f.Normal())

	f.Set(IntVect{-1, -1, 0}, 7)
	assert.Equal(t, 7.0, f.Data[0])
	f.Set(IntVect{0, 0, 0}, 3)
	assert.Equal(t, 3.0, f.Data[6])

	face := NewFaceField(g, 0)
	assert.Equal(t, IntVect{4, 2, 1}, face.Size())
	assert.Equal(t, 0, face.Normal())
	assert.Len(t, face.Data, 8)
}

func TestForEachOrder(t *testing.T) {
	g := newGeom(t, 2, 2)
	f := NewField(g, 1)
	var seen []IntVect
	f.ForEach(func(p IntVect) { seen = append(seen, p) })
	assert.Equal(t, []IntVect{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}, {1, 1, 0}}, seen)
}

func TestForEachBoundaryCell(t *testing.T) {
	g := newGeom(t, 3, 2)
	f := NewField(g, 1)

	var ghosts, adjs []IntVect
	f.ForEachBoundaryCell(0, true, func(ghost, adj IntVect) {
		ghosts = append(ghosts, ghost)
		adjs = append(adjs, adj)
	})
	assert.Equal(t, []IntVect{{3, 0, 0}, {3, 1, 0}}, ghosts)
	assert.Equal(t, []IntVect{{2, 0, 0}, {2, 1, 0}}, adjs)

	ghosts = nil
	f.ForEachBoundaryCell(1, false, func(ghost, _ IntVect) { ghosts = append(ghosts, ghost) })
	assert.Equal(t, []IntVect{{0, -1, 0}, {1, -1, 0}, {2, -1, 0}}, ghosts)
}

func TestFillBoundaryPeriodic(t *testing.T) {
	g := newGeom(t, 3, 2)
	f := NewField(g, 1)
	f.ForEach(func(p IntVect) { f.Set(p, float64(10*p[1]+p[0])) })

	f.FillBoundary([MaxDim]bool{true, true})
	assert.Equal(t, 2.0, f.At(IntVect{-1, 0, 0}))
	assert.Equal(t, 0.0, f.At(IntVect{3, 0, 0}))
	assert.Equal(t, 11.0, f.At(IntVect{1, -1, 0}))
	assert.Equal(t, 1.0, f.At(IntVect{1, 2, 0}))
	// corners wrap in both dimensions
	assert.Equal(t, 12.0, f.At(IntVect{-1, -1, 0}))
	assert.Equal(t, 0.0, f.At(IntVect{3, 2, 0}))
}

func TestFillBoundaryOnlyPeriodicDims(t *testing.T) {
	g := newGeom(t, 3, 2)
	f := NewField(g, 1)
	f.SetVal(-5)
	f.ForEach(func(p IntVect) { f.Set(p, 1) })

	f.FillBoundary([MaxDim]bool{true, false})
	assert.Equal(t, 1.0, f.At(IntVect{-1, 0, 0}))
	assert.Equal(t, -5.0, f.At(IntVect{0, -1, 0}))
}

func TestCopyInterior(t *testing.T) {
	g := newGeom(t, 2, 2)
	src := NewField(g, 0)
	src.SetVal(4)
	dst := NewField(g, 1)
	dst.SetVal(-1)

	require.NoError(t, dst.CopyInterior(src))
	assert.Equal(t, 4.0, dst.At(IntVect{1, 1, 0}))
	assert.Equal(t, -1.0, dst.At(IntVect{-1, 0, 0}))

	other := NewField(newGeom(t, 4, 2), 1)
	assert.ErrorIs(t, other.CopyInterior(src), ErrShapeMismatch)
	assert.ErrorIs(t, other.SetInterior([]float64{1}), ErrShapeMismatch)
}

func TestCloneIsDeep(t *testing.T) {
	f := NewField(newGeom(t, 2, 2), 1)
	c := f.Clone()
	c.SetVal(1)
	assert.Equal(t, 0.0, f.At(IntVect{}))
	assert.True(t, f.SameShape(c))
}

func TestStats(t *testing.T) {
	g := newGeom(t, 2, 2)
	f := NewField(g, 1)
	f.SetVal(100)
	require.NoError(t, f.SetInterior([]float64{1, 2, 3, 6}))
	assert.Equal(t, Stats{Min: 1, Max: 6, Mean: 3}, f.Stats())
}

func TestEmbeddedBoundary(t *testing.T) {
	g := newGeom(t, 4, 4)
	eb := NewEmbeddedBoundary(g, Sphere{Center: RealVect{0.5, 0.5}, Radius: 0.3}, 2)

	assert.Equal(t, 4, eb.NumCovered())
	assert.True(t, eb.IsCovered(IntVect{1, 1, 0}))
	assert.False(t, eb.IsCovered(IntVect{0, 0, 0}))
	assert.False(t, eb.IsCovered(IntVect{-1, 1, 0}))
	assert.Equal(t, 2.0, eb.SurfaceSoln.At(IntVect{2, 2, 0}))

	vf := eb.VolumeFraction(g)
	assert.Equal(t, 0.0, vf.At(IntVect{1, 2, 0}))
	assert.Equal(t, 1.0, vf.At(IntVect{3, 3, 0}))

	box := NewEmbeddedBoundary(g, Box{Lo: RealVect{0, 0}, Hi: RealVect{0.5, 0.3}}, 0)
	assert.Equal(t, 2, box.NumCovered())
}
