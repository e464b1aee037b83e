// Package linsolve solves the linear systems of the implicit step,
//
//	(alpha*A - beta*div(B grad)) x = rhs,
//
// on a single uniform level. Solvers are looked up by name, so the step
// code depends only on the Solver interface.
package linsolve

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"

	"github.com/mohammadijoo/MagnonDiffusion_GO/src/grid"
)

// ErrNotConverged is returned when a solve does not reach its tolerance
// within the iteration budget.
var ErrNotConverged = errors.New("linsolve: solve did not converge")

// ErrUnknownSolver is returned by New for an unregistered name.
var ErrUnknownSolver = errors.New("linsolve: unknown solver")

// Operator is a linear operator on the cell-centred fields of one
// geometry.
type Operator interface {
	Geometry() *grid.Geometry

	// Validate checks that every coefficient and boundary input has been
	// supplied with the right shape.
	Validate() error

	// Apply sets out = L(x) on the interior. Boundary data are ignored when
	// homogeneous is set. The ghost cells of x are overwritten.
	Apply(out, x *grid.Field, homogeneous bool)

	// Diagonal returns the diagonal of the homogeneous operator.
	Diagonal() *grid.Field

	// Smooth runs one red-black Gauss-Seidel sweep on the homogeneous
	// system L(x) = rhs.
	Smooth(x, rhs *grid.Field)

	// Coarsen returns the homogeneous operator on the next coarser grid, or
	// false when the grid cannot be coarsened.
	Coarsen() (Operator, bool)
}

// Options bound one solve.
type Options struct {
	TolRel float64
	TolAbs float64
	// MaxIter caps the outer iterations.
	MaxIter int
	// MaxFmgIter is the number of leading F-cycles; 0 means V-cycles only.
	MaxFmgIter int
	// Verbose 1 logs the outcome, 2 every iteration.
	Verbose       int
	BottomVerbose int
}

// Result reports how a solve went.
type Result struct {
	Iterations      int
	InitialResidual float64
	FinalResidual   float64
	Converged       bool
}

// Solver solves L(x) = rhs to a tolerance within an iteration budget. x
// holds the initial guess on entry and the solution on return. A solve
// that exhausts its budget returns an error wrapping ErrNotConverged
// together with the last Result.
type Solver interface {
	Solve(ctx context.Context, op Operator, x, rhs *grid.Field, opts Options) (Result, error)
}

// Settings tune a solver's internals.
type Settings struct {
	BottomTol     float64
	BottomMaxIter int
	PreSmooth     int
	PostSmooth    int
}

// DefaultSettings are used for zero fields of Settings.
var DefaultSettings = Settings{
	BottomTol:     1e-4,
	BottomMaxIter: 200,
	PreSmooth:     2,
	PostSmooth:    2,
}

func (s Settings) withDefaults() Settings {
	if s.BottomTol <= 0 {
		s.BottomTol = DefaultSettings.BottomTol
	}
	if s.BottomMaxIter <= 0 {
		s.BottomMaxIter = DefaultSettings.BottomMaxIter
	}
	if s.PreSmooth <= 0 {
		s.PreSmooth = DefaultSettings.PreSmooth
	}
	if s.PostSmooth <= 0 {
		s.PostSmooth = DefaultSettings.PostSmooth
	}
	return s
}

// allocators holds all available solvers.
var allocators = map[string]func(s Settings, logger *zap.Logger) Solver{}

// Register makes a solver available under name.
func Register(name string, alloc func(s Settings, logger *zap.Logger) Solver) {
	allocators[name] = alloc
}

// Names lists the registered solvers.
func Names() []string {
	names := make([]string, 0, len(allocators))
	for n := range allocators {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// New returns the solver registered under name.
func New(name string, s Settings, logger *zap.Logger) (Solver, error) {
	alloc, ok := allocators[name]
	if !ok {
		return nil, fmt.Errorf("%w %q (have %v)", ErrUnknownSolver, name, Names())
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return alloc(s.withDefaults(), logger), nil
}

func init() {
	Register("mlmg", func(s Settings, logger *zap.Logger) Solver { return NewMLMG(s, logger) })
	Register("cg", func(s Settings, logger *zap.Logger) Solver { return NewCG(logger) })
}

// checkFields verifies x and rhs against the operator geometry.
func checkFields(op Operator, x, rhs *grid.Field) error {
	g := op.Geometry()
	if x.Size() != g.NCell || rhs.Size() != g.NCell {
		return fmt.Errorf("solution %v / rhs %v on a %v grid: %w",
			x.Size(), rhs.Size(), g.NCell, grid.ErrShapeMismatch)
	}
	for d := 0; d < g.Dim; d++ {
		if x.NGhost()[d] < 1 {
			return fmt.Errorf("solution needs one ghost layer: %w", grid.ErrShapeMismatch)
		}
	}
	return nil
}

// residual sets res = rhs - L(x) and returns its max norm.
func residual(op Operator, res, x, rhs *grid.Field, homogeneous bool) float64 {
	op.Apply(res, x, homogeneous)
	res.ForEach(func(p grid.IntVect) {
		res.Set(p, rhs.At(p)-res.At(p))
	})
	return norm(res)
}

func norm(f *grid.Field) float64 {
	return floats.Norm(f.Interior(), math.Inf(1))
}

// machEps is the spacing of float64 values at 1.
const machEps = 0x1p-52

// roundoffFactor scales machEps to the rounding noise of one stencil
// evaluation.
const roundoffFactor = 64

// roundoff is the smallest residual max norm that can be resolved for a
// solution of size xNorm and a right-hand side of size rhsNorm. Near a
// steady state the initial residual shrinks with every step, and a purely
// relative target eventually falls below it.
func roundoff(op Operator, xNorm, rhsNorm float64) float64 {
	dmax := floats.Norm(op.Diagonal().Interior(), math.Inf(1))
	return roundoffFactor * machEps * (rhsNorm + dmax*xNorm)
}

// target is max(TolAbs, TolRel*r0), floored at floor.
func target(opts Options, r0, floor float64) float64 {
	return math.Max(floor, math.Max(opts.TolAbs, opts.TolRel*r0))
}
