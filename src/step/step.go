// Package step advances the magnon density through one backward-Euler
// step,
//
//	((1 + dt/tau_p) - div(dt*D_const grad)) phi_new = phi_old,
//
// by building the reaction-diffusion operator and handing it to a linear
// solver.
package step

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/mohammadijoo/MagnonDiffusion_GO/src/bc"
	"github.com/mohammadijoo/MagnonDiffusion_GO/src/coef"
	"github.com/mohammadijoo/MagnonDiffusion_GO/src/config"
	"github.com/mohammadijoo/MagnonDiffusion_GO/src/fill"
	"github.com/mohammadijoo/MagnonDiffusion_GO/src/grid"
	"github.com/mohammadijoo/MagnonDiffusion_GO/src/linsolve"
)

// Solve settings of every implicit step.
const (
	TolRel        = 1e-10
	TolAbs        = 0.0
	MaxIter       = 100
	MaxFmgIter    = 0
	Verbose       = 2
	BottomVerbose = 0
	MaxOrder      = 2

	// Scalars multiplying A and div(B grad).
	AScalar = 1.0
	BScalar = 1.0
)

// SolveOptions are the linear-solve options every step uses.
var SolveOptions = linsolve.Options{
	TolRel:        TolRel,
	TolAbs:        TolAbs,
	MaxIter:       MaxIter,
	MaxFmgIter:    MaxFmgIter,
	Verbose:       Verbose,
	BottomVerbose: BottomVerbose,
}

// Outcome describes the solves of one step.
type Outcome struct {
	Solve linsolve.Result
	// EB is set when the cut-cell solve ran.
	EB *linsolve.Result
}

// Iterations is the iteration count of the solve that produced phi_new.
func (r Outcome) Iterations() int {
	if r.EB != nil {
		return r.EB.Iterations
	}
	return r.Solve.Iterations
}

// Residual is the final residual of the solve that produced phi_new.
func (r Outcome) Residual() float64 {
	if r.EB != nil {
		return r.EB.FinalResidual
	}
	return r.Solve.FinalResidual
}

// Stepper advances old to new by one implicit step. old is lent for the
// duration of the call; its ghost cells are overwritten. new holds the
// initial guess on entry and the solution on return.
type Stepper interface {
	Advance(ctx context.Context, old, new *grid.Field) (Outcome, error)
}

// Cartesian solves on the full rectangular domain.
type Cartesian struct {
	cfg     *config.Config
	geom    *grid.Geometry
	robin   *fill.RobinCoefs
	scratch *fill.RobinCoefs
	solver  linsolve.Solver
	logger  *zap.Logger
}

// NewCartesian returns the Cartesian stepper. robin holds the Robin
// coefficient fields initialised before the loop; it is only read.
func NewCartesian(
	cfg *config.Config,
	geom *grid.Geometry,
	robin *fill.RobinCoefs,
	solver linsolve.Solver,
	logger *zap.Logger,
) *Cartesian {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cartesian{
		cfg:     cfg,
		geom:    geom,
		robin:   robin,
		scratch: fill.NewRobinCoefs(geom),
		solver:  solver,
		logger:  logger,
	}
}

// problem is the assembled system of one step.
type problem struct {
	set    bc.Set
	coefs  *coef.Coefficients
	op     *linsolve.ABecLaplacian
	robins []*grid.Field
}

// prepare classifies the boundaries, fills the ghost cells of old and
// assembles the Cartesian operator.
func (c *Cartesian) prepare(old *grid.Field) (*problem, error) {
	set, err := bc.Classify(c.geom.Dim, c.cfg.Boundary.Lo, c.cfg.Boundary.Hi)
	if err != nil {
		return nil, err
	}
	if err := set.Validate(c.geom.Periodic); err != nil {
		return nil, err
	}
	if set.AnyRobin && c.robin == nil {
		return nil, fmt.Errorf("robin boundary without Robin coefficients: %w", grid.ErrShapeMismatch)
	}

	fill.Ghosts(old, c.geom, set, &c.cfg.Boundary, c.robin, c.scratch)

	pb := &problem{
		set:   set,
		coefs: coef.Build(coef.ParamsFrom(c.cfg), c.geom),
	}
	if set.AnyRobin {
		pb.robins = []*grid.Field{c.scratch.A, c.scratch.B, c.scratch.F}
	}
	pb.op = linsolve.NewABecLaplacian(c.geom)
	pb.configure(pb.op, old)

	params := coef.ParamsFrom(c.cfg)
	c.logger.Debug("assembled implicit operator",
		zap.Stringer("bc", set),
		zap.Bool("robin", set.AnyRobin),
		zap.Float64("acoef", params.Reaction()),
		zap.Float64("bcoef", params.Diffusion()))
	return pb, nil
}

func (pb *problem) configure(op *linsolve.ABecLaplacian, old *grid.Field) {
	op.SetMaxOrder(MaxOrder)
	op.SetDomainBC(pb.set.Lo, pb.set.Hi)
	op.SetLevelBC(old, pb.robins...)
	op.SetScalars(AScalar, BScalar)
	op.SetACoeffs(pb.coefs.ACoef)
	op.SetBCoeffs(pb.coefs.BCoef)
}

// Advance runs one implicit step.
func (c *Cartesian) Advance(ctx context.Context, old, new *grid.Field) (Outcome, error) {
	pb, err := c.prepare(old)
	if err != nil {
		return Outcome{}, err
	}
	res, err := c.solver.Solve(ctx, pb.op, new, old, SolveOptions)
	return Outcome{Solve: res}, err
}

// Embedded runs the Cartesian solve and an independent cut-cell solve with
// the same coefficients and boundary data. The cut-cell solution becomes
// phi_new; the Cartesian one is kept as a diagnostic.
type Embedded struct {
	*Cartesian
	cartesian *grid.Field
}

// NewEmbedded wraps a Cartesian stepper whose geometry has an embedded
// boundary.
func NewEmbedded(c *Cartesian) (*Embedded, error) {
	if c.geom.EB == nil {
		return nil, fmt.Errorf("%w: embedded stepper needs an embedded boundary", grid.ErrInvalidGeometry)
	}
	return &Embedded{Cartesian: c, cartesian: grid.NewField(c.geom, 1)}, nil
}

// Advance runs both solves, each starting from old.
func (e *Embedded) Advance(ctx context.Context, old, new *grid.Field) (Outcome, error) {
	pb, err := e.prepare(old)
	if err != nil {
		return Outcome{}, err
	}

	if err := e.cartesian.CopyInterior(old); err != nil {
		return Outcome{}, err
	}
	res, err := e.solver.Solve(ctx, pb.op, e.cartesian, old, SolveOptions)
	if err != nil {
		return Outcome{Solve: res}, err
	}

	ebOp, err := linsolve.NewEBABecLaplacian(e.geom)
	if err != nil {
		return Outcome{Solve: res}, err
	}
	pb.configure(ebOp, old)
	ebOp.SetEBDirichlet(e.geom.EB.SurfaceSoln, pb.coefs.CCBCoef)

	if err := new.CopyInterior(old); err != nil {
		return Outcome{Solve: res}, err
	}
	ebRes, err := e.solver.Solve(ctx, ebOp, new, old, SolveOptions)
	report := Outcome{Solve: res, EB: &ebRes}
	if err != nil {
		return report, fmt.Errorf("embedded solve: %w", err)
	}
	return report, nil
}

// Diagnostics returns the Cartesian solution of the last step.
func (e *Embedded) Diagnostics() []grid.NamedField {
	return []grid.NamedField{{Name: "phi_cartesian", Field: e.cartesian}}
}

// New selects the stepper for cfg: embedded when the config enables an
// embedded boundary, Cartesian otherwise.
func New(
	cfg *config.Config,
	geom *grid.Geometry,
	robin *fill.RobinCoefs,
	solver linsolve.Solver,
	logger *zap.Logger,
) (Stepper, error) {
	c := NewCartesian(cfg, geom, robin, solver, logger)
	if !cfg.EB.Enabled {
		return c, nil
	}
	return NewEmbedded(c)
}
