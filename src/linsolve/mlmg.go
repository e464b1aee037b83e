package linsolve

import (
	"context"
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/mohammadijoo/MagnonDiffusion_GO/src/grid"
)

// maxLevels bounds the multigrid hierarchy depth.
const maxLevels = 20

// MLMG is a geometric multigrid solver: residual-correction V-cycles (after
// an optional number of F-cycles) with red-black Gauss-Seidel smoothing,
// cell averaging for restriction, piecewise-constant prolongation and
// preconditioned CG on the coarsest grid.
type MLMG struct {
	settings Settings
	logger   *zap.Logger
}

// NewMLMG returns a multigrid solver.
func NewMLMG(s Settings, logger *zap.Logger) *MLMG {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MLMG{settings: s.withDefaults(), logger: logger}
}

type level struct {
	op   Operator
	e    *grid.Field // correction
	r    *grid.Field // right-hand side of the correction equation
	work *grid.Field
}

type cycle struct {
	s             *MLMG
	levels        []*level
	bottomVerbose int
}

// Solve runs multigrid cycles until the residual max norm falls below
// max(TolAbs, TolRel*initial residual).
func (s *MLMG) Solve(
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

	c := &cycle{s: s, bottomVerbose: opts.BottomVerbose}
	for cur := op; ; {
		g := cur.Geometry()
		c.levels = append(c.levels, &level{
			op:   cur,
			e:    grid.NewField(g, 1),
			r:    grid.NewField(g, 0),
			work: grid.NewField(g, 0),
		})
		if len(c.levels) == maxLevels {
			break
		}
		next, ok := cur.Coarsen()
		if !ok {
			break
		}
		cur = next
	}

	top := c.levels[0]
	r0 := residual(op, top.r, x, rhs, false)
	result := Result{InitialResidual: r0, FinalResidual: r0}
	rhsNorm := norm(rhs)
	goal := target(opts, r0, roundoff(op, norm(x), rhsNorm))
	if r0 <= goal {
		result.Converged = true
		return result, nil
	}

	for iter := 1; iter <= opts.MaxIter; iter++ {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		top.e.SetVal(0)
		if iter <= opts.MaxFmgIter {
			c.fcycle(0)
		} else {
			c.vcycle(0)
		}
		addInterior(x, top.e)

		rn := residual(op, top.r, x, rhs, false)
		result.Iterations = iter
		result.FinalResidual = rn
		if opts.Verbose >= 2 {
			s.logger.Debug("mlmg iteration",
				zap.Int("iteration", iter),
				zap.Float64("residual", rn),
				zap.Float64("relative", rn/r0))
		}
		if rn <= math.Max(goal, roundoff(op, norm(x), rhsNorm)) {
			result.Converged = true
			break
		}
	}

	if opts.Verbose >= 1 {
		s.logger.Info("mlmg finished",
			zap.Bool("converged", result.Converged),
			zap.Int("iterations", result.Iterations),
			zap.Int("levels", len(c.levels)),
			zap.Float64("residual", result.FinalResidual))
	}
	if !result.Converged {
		return result, fmt.Errorf("%w: mlmg residual %g after %d iterations (target %g)",
			ErrNotConverged, result.FinalResidual, result.Iterations, goal)
	}
	return result, nil
}

// restrictResidual computes the residual of level l and restricts it onto
// the right-hand side of level l+1, whose correction is reset.
func (c *cycle) restrictResidual(l int) {
	lv, next := c.levels[l], c.levels[l+1]
	residual(lv.op, lv.work, lv.e, lv.r, true)
	restrict(next.r, lv.work, lv.op.Geometry().Dim)
	next.e.SetVal(0)
}

func (c *cycle) smooth(l, n int) {
	lv := c.levels[l]
	for i := 0; i < n; i++ {
		lv.op.Smooth(lv.e, lv.r)
	}
}

func (c *cycle) vcycle(l int) {
	if l == len(c.levels)-1 {
		c.bottom(l)
		return
	}
	c.smooth(l, c.s.settings.PreSmooth)
	c.restrictResidual(l)
	c.vcycle(l + 1)
	lv := c.levels[l]
	prolongAdd(lv.e, c.levels[l+1].e, lv.op.Geometry().Dim)
	c.smooth(l, c.s.settings.PostSmooth)
}

func (c *cycle) fcycle(l int) {
	if l == len(c.levels)-1 {
		c.bottom(l)
		return
	}
	c.smooth(l, c.s.settings.PreSmooth)
	c.restrictResidual(l)
	c.fcycle(l + 1)
	c.vcycle(l + 1)
	lv := c.levels[l]
	prolongAdd(lv.e, c.levels[l+1].e, lv.op.Geometry().Dim)
	c.smooth(l, c.s.settings.PostSmooth)
}

func (c *cycle) bottom(l int) {
	lv := c.levels[l]
	set := c.s.settings
	c.smooth(l, set.PreSmooth)
	res := pcg(lv.op, lv.e, lv.r, true, set.BottomTol, 0, set.BottomMaxIter, nil)
	if c.bottomVerbose > 0 {
		c.s.logger.Debug("mlmg bottom solve",
			zap.Int("level", l),
			zap.Int("iterations", res.Iterations),
			zap.Bool("converged", res.Converged),
			zap.Float64("residual", res.FinalResidual))
	}
	c.smooth(l, set.PostSmooth)
}
