package plotfile

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette/moreland"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"github.com/mohammadijoo/MagnonDiffusion_GO/src/grid"
)

// writeCSV saves equal-length columns to a CSV file with a header row.
func writeCSV(filename string, header []string, cols [][]float64) error {
	if len(header) != len(cols) {
		return fmt.Errorf("CSV write error: %d headers for %d columns", len(header), len(cols))
	}
	for _, c := range cols[1:] {
		if len(c) != len(cols[0]) {
			return fmt.Errorf("CSV write error: column sizes do not match")
		}
	}

	if err := os.MkdirAll(filepath.Dir(filename), 0o755); err != nil {
		return fmt.Errorf("CSV write error: cannot create directory: %w", err)
	}

	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("CSV write error: cannot open file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return fmt.Errorf("CSV write error: cannot write header: %w", err)
	}

	row := make([]string, len(cols))
	for k := range cols[0] {
		for c := range cols {
			row[c] = fmt.Sprintf("%.15g", cols[c][k])
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("CSV write error: cannot write row: %w", err)
		}
	}
	w.Flush()
	return w.Error()
}

// limitedTicker returns a tick generator with at most maxLabels labels
// formatted with labelFmt.
func limitedTicker(maxLabels int, labelFmt string) plot.Ticker {
	if maxLabels < 2 {
		maxLabels = 2
	}
	return plot.TickerFunc(func(min, max float64) []plot.Tick {
		if math.IsNaN(min) || math.IsNaN(max) || math.IsInf(min, 0) || math.IsInf(max, 0) {
			return nil
		}
		if min == max {
			return []plot.Tick{{Value: min, Label: fmt.Sprintf(labelFmt, min)}}
		}
		step := (max - min) / float64(maxLabels-1)

		ticks := make([]plot.Tick, 0, maxLabels)
		for i := 0; i < maxLabels; i++ {
			v := min + float64(i)*step
			ticks = append(ticks, plot.Tick{Value: v, Label: fmt.Sprintf(labelFmt, v)})
		}
		return ticks
	})
}

// stylePlot applies large fonts, thick axes and at most 10 tick labels per
// axis.
func stylePlot(p *plot.Plot) {
	p.Title.TextStyle.Font.Size = vg.Points(22)
	p.Title.Padding = vg.Points(12)

	p.X.Label.TextStyle.Font.Size = vg.Points(18)
	p.Y.Label.TextStyle.Font.Size = vg.Points(18)
	p.X.Label.Padding = vg.Points(10)
	p.Y.Label.Padding = vg.Points(10)

	p.X.LineStyle.Width = vg.Points(2.2)
	p.Y.LineStyle.Width = vg.Points(2.2)
	p.X.Padding = vg.Points(20)
	p.Y.Padding = vg.Points(20)

	p.X.Tick.LineStyle.Width = vg.Points(2.0)
	p.Y.Tick.LineStyle.Width = vg.Points(2.0)
	p.X.Tick.Length = vg.Points(8)
	p.Y.Tick.Length = vg.Points(8)

	p.X.Tick.Label.Font.Size = vg.Points(14)
	p.Y.Tick.Label.Font.Size = vg.Points(14)

	p.X.Tick.Marker = limitedTicker(10, "%.2f")
	p.Y.Tick.Marker = limitedTicker(10, "%.3g")
}

// savePlotPNG renders p on a 300 DPI canvas of widthIn x heightIn inches.
func savePlotPNG(p *plot.Plot, widthIn, heightIn float64, filename string) error {
	if err := os.MkdirAll(filepath.Dir(filename), 0o755); err != nil {
		return fmt.Errorf("cannot create directory: %w", err)
	}

	c := vgimg.NewWith(
		vgimg.UseWH(vg.Length(widthIn)*vg.Inch, vg.Length(heightIn)*vg.Inch),
		vgimg.UseDPI(300),
	)
	p.Draw(draw.New(c))

	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("cannot create png: %w", err)
	}
	defer f.Close()

	bw := bufio.NewWriter(f)
	png := vgimg.PngCanvas{Canvas: c}
	if _, err := png.WriteTo(bw); err != nil {
		return fmt.Errorf("cannot write png: %w", err)
	}
	return bw.Flush()
}

// linePlot saves a single styled line through (x, y).
func linePlot(title, xLabel, yLabel string, x, y []float64, filename string) error {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = xLabel
	p.Y.Label.Text = yLabel
	stylePlot(p)

	pts := make(plotter.XYs, len(x))
	for i := range x {
		pts[i].X = x[i]
		pts[i].Y = y[i]
	}
	line, err := plotter.NewLine(pts)
	if err != nil {
		return fmt.Errorf("cannot create line plot: %w", err)
	}
	line.LineStyle.Width = vg.Points(3.0)
	p.Add(line)

	return savePlotPNG(p, 8.0, 6.0, filename)
}

// sliceGrid exposes the x-y plane k of a cell-centred field as a
// plotter.GridXYZ located at the cell centres.
type sliceGrid struct {
	f *grid.Field
	g *grid.Geometry
	k int
}

func newSliceGrid(f *grid.Field, g *grid.Geometry) sliceGrid {
	return sliceGrid{f: f, g: g, k: g.Center()[2]}
}

func (s sliceGrid) Dims() (c, r int) { return s.g.NCell[0], s.g.NCell[1] }
func (s sliceGrid) Z(c, r int) float64 {
	return s.f.At(grid.IntVect{c, r, s.k})
}
func (s sliceGrid) X(c int) float64 { return s.g.CellCenter(grid.IntVect{c, 0, 0})[0] }
func (s sliceGrid) Y(r int) float64 { return s.g.CellCenter(grid.IntVect{0, r, 0})[1] }

// heatmapPNG saves a Kindlmann heatmap of the x-y plane of f (the middle
// plane in 3D).
func heatmapPNG(f *grid.Field, g *grid.Geometry, title, filename string) error {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "x"
	p.Y.Label.Text = "y"
	stylePlot(p)

	pal := moreland.Kindlmann().Palette(255)
	hm := plotter.NewHeatMap(newSliceGrid(f, g), pal)
	if hm.Max == hm.Min {
		hm.Max = hm.Min + 1
	}
	p.Add(hm)

	return savePlotPNG(p, 8.0, 6.5, filename)
}
