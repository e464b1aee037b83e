package plotfile

import (
	"fmt"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/mohammadijoo/MagnonDiffusion_GO/src/grid"
)

// Probe samples the field at the cell closest to the domain centre.
type Probe struct {
	geom   *grid.Geometry
	cell   grid.IntVect
	times  []float64
	values []float64
	logger *zap.Logger
}

// NewProbe returns a probe at the centre cell of g.
func NewProbe(g *grid.Geometry, logger *zap.Logger) *Probe {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Probe{geom: g, cell: g.Center(), logger: logger}
}

// Cell is the sampled cell.
func (p *Probe) Cell() grid.IntVect { return p.cell }

// Record appends the value of phi at the probe cell.
func (p *Probe) Record(time float64, phi *grid.Field) {
	p.times = append(p.times, time)
	p.values = append(p.values, phi.At(p.cell))
}

// Series returns the recorded times and values.
func (p *Probe) Series() (times, values []float64) { return p.times, p.values }

// Finish writes probe_log.csv and center_point_vs_time.png, plus
// centerline_final.png with phi along x through the probe cell.
func (p *Probe) Finish(dir string, phi *grid.Field) error {
	csvName := filepath.Join(dir, "probe_log.csv")
	if err := writeCSV(csvName, []string{"t", "phi_center"}, [][]float64{p.times, p.values}); err != nil {
		return err
	}

	if len(p.times) > 0 {
		name := filepath.Join(dir, "center_point_vs_time.png")
		if err := linePlot("Magnon Density at Domain Center vs Time", "time", "phi(center)",
			p.times, p.values, name); err != nil {
			return fmt.Errorf("cannot save probe plot: %w", err)
		}
	}

	n := p.geom.NCell[0]
	x := make([]float64, n)
	line := make([]float64, n)
	for i := 0; i < n; i++ {
		c := p.cell
		c[0] = i
		x[i] = p.geom.CellCenter(c)[0]
		line[i] = phi.At(c)
	}
	name := filepath.Join(dir, "centerline_final.png")
	if err := linePlot("Final Centerline Magnon Density", "x", "phi", x, line, name); err != nil {
		return fmt.Errorf("cannot save centerline plot: %w", err)
	}

	p.logger.Info("saved probe", zap.String("path", csvName), zap.Int("samples", len(p.times)))
	return nil
}
