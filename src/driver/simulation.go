// Package driver sets up a magnon diffusion run and advances it through
// the configured number of implicit steps.
package driver

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/mohammadijoo/MagnonDiffusion_GO/src/bc"
	"github.com/mohammadijoo/MagnonDiffusion_GO/src/config"
	"github.com/mohammadijoo/MagnonDiffusion_GO/src/fill"
	"github.com/mohammadijoo/MagnonDiffusion_GO/src/grid"
	"github.com/mohammadijoo/MagnonDiffusion_GO/src/linsolve"
	"github.com/mohammadijoo/MagnonDiffusion_GO/src/plotfile"
	"github.com/mohammadijoo/MagnonDiffusion_GO/src/step"
)

// Simulation owns the state of a run: both field generations, the Robin
// coefficient fields and the stepper.
type Simulation struct {
	Config *config.Config
	Geom   *grid.Geometry
	BC     bc.Set

	Robin        *fill.RobinCoefs
	SpinRelaxLen *grid.Field

	Old *grid.Field
	New *grid.Field

	Stepper step.Stepper
}

// NewSimulation allocates the fields of cfg, initialises phi and the Robin
// coefficients, and selects the linear solver and stepper. cfg must have
// passed Validate.
func NewSimulation(cfg *config.Config, logger *zap.Logger) (*Simulation, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	geom, err := cfg.Geometry()
	if err != nil {
		return nil, err
	}
	set, err := bc.Classify(geom.Dim, cfg.Boundary.Lo, cfg.Boundary.Hi)
	if err != nil {
		return nil, err
	}

	sim := &Simulation{
		Config:       cfg,
		Geom:         geom,
		BC:           set,
		Robin:        fill.NewRobinCoefs(geom),
		SpinRelaxLen: grid.NewField(geom, 1),
		Old:          grid.NewField(geom, 1),
		New:          grid.NewField(geom, 1),
	}
	fill.InitRobinCoefs(sim.Robin, set, &cfg.Boundary)
	sim.SpinRelaxLen.SetVal(cfg.SpinRelaxLen)
	sim.Old.SetVal(cfg.InitialPhi)
	sim.New.SetVal(cfg.InitialPhi)

	solver, err := linsolve.New(cfg.Solver.Name, linsolve.Settings{
		BottomTol:     cfg.Solver.BottomTol,
		BottomMaxIter: cfg.Solver.BottomMaxIter,
		PreSmooth:     cfg.Solver.PreSmooth,
		PostSmooth:    cfg.Solver.PostSmooth,
	}, logger.Named(cfg.Solver.Name))
	if err != nil {
		return nil, err
	}
	sim.Stepper, err = step.New(cfg, geom, sim.Robin, solver, logger.Named("step"))
	if err != nil {
		return nil, fmt.Errorf("cannot create stepper: %w", err)
	}

	logger.Info("simulation initialised",
		zap.Int("dim", geom.Dim),
		zap.Ints("n_cell", cfg.NCell),
		zap.Stringer("bc", set),
		zap.String("solver", cfg.Solver.Name),
		zap.Bool("embedded_boundary", geom.EB != nil))
	return sim, nil
}

// diagnostics is implemented by steppers that keep auxiliary fields.
type diagnostics interface {
	Diagnostics() []grid.NamedField
}

// Components lists the fields of a snapshot: phi, the Robin coefficients
// (copied onto the cells next to each Robin face), the spin relaxation
// length, then any stepper diagnostics and, with an embedded boundary, the
// volume fraction.
func (s *Simulation) Components() []plotfile.Component {
	ra, rb, rf := s.Robin.Plot(s.BC)
	out := []plotfile.Component{
		{Name: "phi", Field: s.New},
		{Name: "robin_a", Field: ra},
		{Name: "robin_b", Field: rb},
		{Name: "robin_f", Field: rf},
		{Name: "spin_relax_len", Field: s.SpinRelaxLen},
	}
	if d, ok := s.Stepper.(diagnostics); ok {
		out = append(out, d.Diagnostics()...)
	}
	if s.Geom.EB != nil {
		out = append(out, plotfile.Component{Name: "vfrac", Field: s.Geom.EB.VolumeFraction(s.Geom)})
	}
	return out
}
