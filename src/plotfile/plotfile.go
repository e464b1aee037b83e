// Package plotfile writes simulation snapshots and run diagnostics: one
// plt%05d directory per snapshot, a SQLite step history, and a probe time
// series at the domain centre.
package plotfile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/mohammadijoo/MagnonDiffusion_GO/src/grid"
)

// ErrNoComponents is returned when a snapshot has nothing to write.
var ErrNoComponents = errors.New("plotfile has no components")

// Component is one named field of a snapshot.
type Component = grid.NamedField

// Writer persists a snapshot of the named fields at step and time.
type Writer interface {
	Write(step int, time float64, fields []Component) error
}

// Name is the directory name of the snapshot at step.
func Name(step int) string {
	return fmt.Sprintf("plt%05d", step)
}

// Dir writes snapshots as directories under Root. Each holds a Header file
// and one CSV per component with the cell-centre coordinates and value.
type Dir struct {
	Root string
	// PNG adds a heatmap of the first component.
	PNG bool

	geom   *grid.Geometry
	logger *zap.Logger
}

// NewDir returns a snapshot writer for fields on g.
func NewDir(root string, g *grid.Geometry, png bool, logger *zap.Logger) *Dir {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dir{Root: root, PNG: png, geom: g, logger: logger}
}

var axes = [grid.MaxDim]string{"x", "y", "z"}

// Write creates Root/plt<step> and fills it.
func (w *Dir) Write(step int, time float64, fields []Component) error {
	if len(fields) == 0 {
		return ErrNoComponents
	}
	dir := filepath.Join(w.Root, Name(step))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("cannot create plotfile directory: %w", err)
	}

	if err := w.writeHeader(dir, step, time, fields); err != nil {
		return err
	}

	coords := w.coordinates()
	header := append([]string{}, axes[:w.geom.Dim]...)
	for _, c := range fields {
		if c.Field.Size() != w.geom.NCell {
			return fmt.Errorf("component %s: %w", c.Name, grid.ErrShapeMismatch)
		}
		cols := append(append([][]float64{}, coords...), c.Field.Interior())
		name := filepath.Join(dir, c.Name+".csv")
		if err := writeCSV(name, append(header, c.Name), cols); err != nil {
			return fmt.Errorf("component %s: %w", c.Name, err)
		}
	}

	if w.PNG {
		first := fields[0]
		png := filepath.Join(dir, first.Name+".png")
		title := fmt.Sprintf("%s, step %d, t = %.4g", first.Name, step, time)
		if err := heatmapPNG(first.Field, w.geom, title, png); err != nil {
			return fmt.Errorf("cannot save heatmap: %w", err)
		}
	}

	w.logger.Info("saved snapshot",
		zap.String("path", dir),
		zap.Int("step", step),
		zap.Float64("time", time))
	return nil
}

func (w *Dir) writeHeader(dir string, step int, time float64, fields []Component) error {
	var b strings.Builder
	fmt.Fprintln(&b, "MagnonDiffusion-plotfile-1")
	fmt.Fprintln(&b, len(fields))
	for _, c := range fields {
		fmt.Fprintln(&b, c.Name)
	}
	fmt.Fprintln(&b, w.geom.Dim)
	fmt.Fprintf(&b, "%.17g\n", time)
	fmt.Fprintln(&b, step)
	g := w.geom
	fmt.Fprintln(&b, joinFloats(g.ProbLo[:g.Dim]))
	fmt.Fprintln(&b, joinFloats(g.ProbHi[:g.Dim]))
	n := make([]string, g.Dim)
	for d := range n {
		n[d] = fmt.Sprint(g.NCell[d])
	}
	fmt.Fprintln(&b, strings.Join(n, " "))

	if err := os.WriteFile(filepath.Join(dir, "Header"), []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("cannot write plotfile header: %w", err)
	}
	return nil
}

// coordinates lists the cell-centre coordinates of every cell in field
// order, one slice per dimension.
func (w *Dir) coordinates() [][]float64 {
	g := w.geom
	cols := make([][]float64, g.Dim)
	for d := range cols {
		cols[d] = make([]float64, 0, g.NumCells())
	}
	grid.NewField(g, 0).ForEach(func(p grid.IntVect) {
		x := g.CellCenter(p)
		for d := range cols {
			cols[d] = append(cols[d], x[d])
		}
	})
	return cols
}

func joinFloats(v []float64) string {
	s := make([]string, len(v))
	for i, x := range v {
		s[i] = fmt.Sprintf("%.17g", x)
	}
	return strings.Join(s, " ")
}
