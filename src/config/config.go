// Package config holds the run parameters of a magnon diffusion simulation.
// A Config is loaded once before the time loop and is read-only afterwards.
package config

import (
	"errors"
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/mohammadijoo/MagnonDiffusion_GO/src/bc"
	"github.com/mohammadijoo/MagnonDiffusion_GO/src/grid"
)

// ErrInvalid marks a configuration that cannot be run.
var ErrInvalid = errors.New("invalid configuration")

// Config holds all run parameters.
type Config struct {
	// Geometry
	NCell  []int     `yaml:"n_cell"`
	ProbLo []float64 `yaml:"prob_lo"`
	ProbHi []float64 `yaml:"prob_hi"`

	// Time stepping
	NSteps  int     `yaml:"nsteps"`
	PlotInt int     `yaml:"plot_int"`
	Dt      float64 `yaml:"dt"`

	// Magnon diffusion parameters
	DConst float64 `yaml:"D_const"`
	TauP   float64 `yaml:"tau_p"`

	// SpinRelaxLen is written to output only; the operator does not use it.
	SpinRelaxLen float64 `yaml:"spin_relax_len"`

	// InitialPhi is the uniform initial value of the field.
	InitialPhi float64 `yaml:"initial_phi"`

	Boundary Boundary         `yaml:"bc"`
	EB       EmbeddedBoundary `yaml:"embedded_boundary"`
	Solver   Solver           `yaml:"solver"`
	Output   Output           `yaml:"output"`
	Logging  Logging          `yaml:"logging"`
}

// Boundary is the per-face boundary specification. For Robin faces the
// condition is a*phi + b*dphi/dn = f; Dirichlet faces use phi = f and
// Neumann faces dphi/dn = f, with n the outward normal.
type Boundary struct {
	Lo  []bc.Code `yaml:"lo"`
	Hi  []bc.Code `yaml:"hi"`
	LoF []float64 `yaml:"lo_f"`
	HiF []float64 `yaml:"hi_f"`
	LoA []float64 `yaml:"lo_a"`
	HiA []float64 `yaml:"hi_a"`
	LoB []float64 `yaml:"lo_b"`
	HiB []float64 `yaml:"hi_b"`
}

// EmbeddedBoundary selects the cut-cell solve path.
type EmbeddedBoundary struct {
	Enabled bool `yaml:"enabled"`
	// Shape is "sphere" or "box".
	Shape        string    `yaml:"shape"`
	Center       []float64 `yaml:"center"`
	Radius       float64   `yaml:"radius"`
	BoxLo        []float64 `yaml:"box_lo"`
	BoxHi        []float64 `yaml:"box_hi"`
	SurfaceValue float64   `yaml:"surface_value"`
}

// Solver configures the linear-solve engine. Tolerances and iteration caps
// of the implicit step are fixed and not configurable.
type Solver struct {
	// Name selects a registered solver ("mlmg" or "cg").
	Name          string  `yaml:"name"`
	BottomTol     float64 `yaml:"bottom_tol"`
	BottomMaxIter int     `yaml:"bottom_max_iter"`
	PreSmooth     int     `yaml:"pre_smooth"`
	PostSmooth    int     `yaml:"post_smooth"`
}

// Output configures the plot and history writers.
type Output struct {
	Dir string `yaml:"dir"`
	// PNG adds a heatmap snapshot to every plotfile.
	PNG bool `yaml:"png"`
	// History is the path (without extension) of the SQLite step history.
	// Empty disables it.
	History string `yaml:"history"`
	// Probe records the value at the domain centre every step.
	Probe bool `yaml:"probe"`
}

// Logging configures the zap logger.
type Logging struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// Default returns the parameters of a small 2D run with Dirichlet walls.
func Default() *Config {
	return &Config{
		NCell:        []int{32, 32},
		ProbLo:       []float64{0, 0},
		ProbHi:       []float64{1, 1},
		NSteps:       10,
		PlotInt:      0,
		Dt:           1e-3,
		DConst:       1,
		TauP:         1,
		SpinRelaxLen: 1,
		Boundary: Boundary{
			Lo:  []bc.Code{bc.ExtDir, bc.ExtDir},
			Hi:  []bc.Code{bc.ExtDir, bc.ExtDir},
			LoF: []float64{0, 0},
			HiF: []float64{0, 0},
		},
		EB: EmbeddedBoundary{
			Shape: "sphere",
		},
		Solver: Solver{
			Name:          "mlmg",
			BottomTol:     1e-4,
			BottomMaxIter: 200,
			PreSmooth:     2,
			PostSmooth:    2,
		},
		Output: Output{
			Dir: ".",
		},
		Logging: Logging{
			Level: "info",
		},
	}
}

// Load reads a YAML file over the defaults. A missing file yields the
// defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return cfg, nil
}

// Dim is the number of spatial dimensions, taken from n_cell.
func (c *Config) Dim() int { return len(c.NCell) }

// Geometry builds the domain described by the config. Periodicity comes
// from the boundary codes.
func (c *Config) Geometry() (*grid.Geometry, error) {
	set, err := bc.Classify(c.Dim(), c.Boundary.Lo, c.Boundary.Hi)
	if err != nil {
		return nil, err
	}
	periodic := set.Periodicity()
	g, err := grid.NewGeometry(c.Dim(), c.NCell, c.ProbLo, c.ProbHi, periodic[:c.Dim()])
	if err != nil {
		return nil, err
	}
	if c.EB.Enabled {
		shape, err := c.EB.shape(c.Dim())
		if err != nil {
			return nil, err
		}
		g.EB = grid.NewEmbeddedBoundary(g, shape, c.EB.SurfaceValue)
	}
	return g, nil
}

func (e EmbeddedBoundary) shape(dim int) (grid.Shape, error) {
	switch e.Shape {
	case "sphere", "":
		if len(e.Center) != dim {
			return nil, fmt.Errorf("%w: embedded_boundary.center needs %d entries", ErrInvalid, dim)
		}
		s := grid.Sphere{Radius: e.Radius}
		copy(s.Center[:], e.Center)
		return s, nil
	case "box":
		if len(e.BoxLo) != dim || len(e.BoxHi) != dim {
			return nil, fmt.Errorf("%w: embedded_boundary.box_lo/box_hi need %d entries", ErrInvalid, dim)
		}
		var b grid.Box
		copy(b.Lo[:], e.BoxLo)
		copy(b.Hi[:], e.BoxHi)
		return b, nil
	}
	return nil, fmt.Errorf("%w: unknown embedded_boundary.shape %q", ErrInvalid, e.Shape)
}

// value returns entry d of v, or 0 when v is shorter.
func value(v []float64, d int) float64 {
	if d < len(v) {
		return v[d]
	}
	return 0
}

// F is the boundary right-hand side of face (d, side).
func (b *Boundary) F(d int, side bc.Side) float64 {
	if side == bc.Hi {
		return value(b.HiF, d)
	}
	return value(b.LoF, d)
}

// A is the Robin coefficient multiplying phi on face (d, side).
func (b *Boundary) A(d int, side bc.Side) float64 {
	if side == bc.Hi {
		return value(b.HiA, d)
	}
	return value(b.LoA, d)
}

// B is the Robin coefficient multiplying dphi/dn on face (d, side).
func (b *Boundary) B(d int, side bc.Side) float64 {
	if side == bc.Hi {
		return value(b.HiB, d)
	}
	return value(b.LoB, d)
}

// Validate checks every parameter the run depends on.
func (c *Config) Validate() error {
	dim := c.Dim()
	if dim < 2 || dim > grid.MaxDim {
		return fmt.Errorf("%w: n_cell must have 2 or 3 entries, got %d", ErrInvalid, dim)
	}
	if len(c.ProbLo) != dim || len(c.ProbHi) != dim {
		return fmt.Errorf("%w: prob_lo and prob_hi need %d entries", ErrInvalid, dim)
	}
	if c.NSteps < 0 {
		return fmt.Errorf("%w: nsteps must be >= 0", ErrInvalid)
	}
	if !(c.Dt > 0) || math.IsInf(c.Dt, 0) {
		return fmt.Errorf("%w: dt must be positive and finite", ErrInvalid)
	}
	if c.DConst < 0 || math.IsNaN(c.DConst) {
		return fmt.Errorf("%w: D_const must be >= 0", ErrInvalid)
	}
	if !(c.TauP > 0) {
		return fmt.Errorf("%w: tau_p must be positive", ErrInvalid)
	}

	set, err := bc.Classify(dim, c.Boundary.Lo, c.Boundary.Hi)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if err := set.Validate(set.Periodicity()); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}

	g, err := c.Geometry()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	for d := 0; d < dim; d++ {
		for _, side := range []bc.Side{bc.Lo, bc.Hi} {
			if set.Kind(d, side) != bc.Robin {
				continue
			}
			a, b := c.Boundary.A(d, side), c.Boundary.B(d, side)
			if a/2+b/g.CellSize(d) == 0 {
				return fmt.Errorf("%w: Robin face %d %s has a/2 + b/dx = 0", ErrInvalid, d, side)
			}
		}
	}
	if c.EB.Enabled && g.EB.NumCovered() == g.NumCells() {
		return fmt.Errorf("%w: embedded boundary covers the whole domain", ErrInvalid)
	}
	return nil
}
