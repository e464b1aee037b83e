package linsolve

import (
	"context"
	"fmt"
	"math"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"

	"github.com/mohammadijoo/MagnonDiffusion_GO/src/grid"
)

// CG is a Jacobi-preconditioned conjugate gradient solver. It also serves
// as the bottom solver of MLMG.
type CG struct {
	logger *zap.Logger
}

// NewCG returns a CG solver.
func NewCG(logger *zap.Logger) *CG {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CG{logger: logger}
}

// Solve runs preconditioned CG on L(x) = rhs.
func (s *CG) Solve(
	ctx context.Context,
	op Operator,
	x, rhs *grid.Field,
	opts Options,
) (Result, error) {
	if err := op.Validate(); err != nil {
		return Result{}, err
	}
	if err := checkFields(op, x, rhs); err != nil {
		return Result{}, err
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	res := pcg(op, x, rhs, false, opts.TolRel, opts.TolAbs, opts.MaxIter, func(iter int, rn, r0 float64) {
		if opts.Verbose >= 2 {
			s.logger.Debug("cg iteration",
				zap.Int("iteration", iter),
				zap.Float64("residual", rn),
				zap.Float64("relative", rn/r0))
		}
	})
	if opts.Verbose >= 1 {
		s.logger.Info("cg finished",
			zap.Bool("converged", res.Converged),
			zap.Int("iterations", res.Iterations),
			zap.Float64("residual", res.FinalResidual))
	}
	if !res.Converged {
		return res, fmt.Errorf("%w: cg residual %g after %d iterations (initial %g)",
			ErrNotConverged, res.FinalResidual, res.Iterations, res.InitialResidual)
	}
	return res, nil
}

// pcg solves L(x) = rhs in place, starting from x. It stops at
// max(tolAbs, tolRel*|r0|), or at the rounding floor of the current
// iterate, or after maxIter iterations, whichever comes first, and never
// errors.
func pcg(
	op Operator,
	x, rhs *grid.Field,
	homogeneous bool,
	tolRel, tolAbs float64,
	maxIter int,
	report func(iter int, rn, r0 float64),
) Result {
	g := op.Geometry()
	work := grid.NewField(g, 1)

	r0 := residual(op, work, x, rhs, homogeneous)
	result := Result{InitialResidual: r0, FinalResidual: r0}
	rhsNorm := norm(rhs)
	goal := target(Options{TolRel: tolRel, TolAbs: tolAbs}, r0, roundoff(op, norm(x), rhsNorm))
	if r0 <= goal {
		result.Converged = true
		return result
	}

	r := work.Interior()
	diag := op.Diagonal().Interior()
	z := make([]float64, len(r))
	floats.DivTo(z, r, diag)
	p := make([]float64, len(r))
	copy(p, z)
	rz := floats.Dot(r, z)
	xv := x.Interior()

	pf := grid.NewField(g, 1)
	qf := grid.NewField(g, 0)
	for iter := 1; iter <= maxIter; iter++ {
		_ = pf.SetInterior(p)
		op.Apply(qf, pf, true)
		q := qf.Interior()

		pq := floats.Dot(p, q)
		if pq <= 0 || math.IsNaN(pq) {
			break
		}
		alpha := rz / pq
		floats.AddScaled(xv, alpha, p)
		floats.AddScaled(r, -alpha, q)

		rn := floats.Norm(r, math.Inf(1))
		result.Iterations = iter
		result.FinalResidual = rn
		if report != nil {
			report(iter, rn, r0)
		}
		if rn <= goal || rn <= roundoff(op, floats.Norm(xv, math.Inf(1)), rhsNorm) {
			result.Converged = true
			break
		}

		floats.DivTo(z, r, diag)
		rzNew := floats.Dot(r, z)
		beta := rzNew / rz
		rz = rzNew
		floats.Scale(beta, p)
		floats.Add(p, z)
	}
	_ = x.SetInterior(xv)
	return result
}
