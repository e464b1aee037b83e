// Package coef builds the coefficient fields of the implicit
// reaction-diffusion operator (alpha*A - beta*div(B grad)).
package coef

import (
	"github.com/mohammadijoo/MagnonDiffusion_GO/src/config"
	"github.com/mohammadijoo/MagnonDiffusion_GO/src/grid"
)

// Params are the physical inputs of one step.
type Params struct {
	Dt     float64
	DConst float64
	TauP   float64
}

// ParamsFrom reads the step parameters from a config.
func ParamsFrom(cfg *config.Config) Params {
	return Params{Dt: cfg.Dt, DConst: cfg.DConst, TauP: cfg.TauP}
}

// Reaction is 1 + dt/tau_p, the implicit linear decay term. An infinite
// tau_p gives 1.
func (p Params) Reaction() float64 {
	return 1 + p.Dt/p.TauP
}

// Diffusion is dt*D_const, the implicit diffusion term.
func (p Params) Diffusion() float64 {
	return p.Dt * p.DConst
}

// Coefficients are the operator fields of one step.
type Coefficients struct {
	// ACoef is cell-centred.
	ACoef *grid.Field
	// BCoef[d] lives on the faces normal to d; unused dimensions are nil.
	BCoef [grid.MaxDim]*grid.Field
	// CCBCoef is BCoef averaged onto cell centres, used for the flux
	// through an embedded surface.
	CCBCoef *grid.Field
}

// Build derives the coefficient fields for the current step. Both
// coefficients are uniform; calling Build twice with the same Params gives
// bit-identical fields.
func Build(p Params, g *grid.Geometry) *Coefficients {
	c := &Coefficients{
		ACoef:   grid.NewField(g, 0),
		CCBCoef: grid.NewField(g, 0),
	}
	c.ACoef.SetVal(p.Reaction())
	for d := 0; d < g.Dim; d++ {
		c.BCoef[d] = grid.NewFaceField(g, d)
		c.BCoef[d].SetVal(p.Diffusion())
	}
	AverageFaceToCellCenters(c.BCoef, c.CCBCoef, g.Dim)
	return c
}

// AverageFaceToCellCenters sets every cell of cc to the arithmetic mean of
// the 2*dim face values bounding it. The sum runs in a fixed order.
func AverageFaceToCellCenters(faces [grid.MaxDim]*grid.Field, cc *grid.Field, dim int) {
	cc.ForEach(func(p grid.IntVect) {
		sum := 0.0
		for d := 0; d < dim; d++ {
			hi := p
			hi[d]++
			sum += faces[d].At(p) + faces[d].At(hi)
		}
		cc.Set(p, sum/float64(2*dim))
	})
}
