package step

import (
	"context"
	"errors"
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	gomock "go.uber.org/mock/gomock"
	"gonum.org/v1/gonum/mat"

	"github.com/mohammadijoo/MagnonDiffusion_GO/src/bc"
	"github.com/mohammadijoo/MagnonDiffusion_GO/src/config"
	"github.com/mohammadijoo/MagnonDiffusion_GO/src/fill"
	"github.com/mohammadijoo/MagnonDiffusion_GO/src/grid"
	"github.com/mohammadijoo/MagnonDiffusion_GO/src/linsolve"
)

func squareConfig(n int) *config.Config {
	cfg := config.Default()
	cfg.NCell = []int{n, n}
	cfg.Dt, cfg.DConst, cfg.TauP = 0.1, 2, 0.5
	return cfg
}

func mustGeometry(cfg *config.Config) *grid.Geometry {
	g, err := cfg.Geometry()
	Expect(err).NotTo(HaveOccurred())
	return g
}

func robinCoefs(cfg *config.Config, g *grid.Geometry) *fill.RobinCoefs {
	set, err := bc.Classify(cfg.Dim(), cfg.Boundary.Lo, cfg.Boundary.Hi)
	Expect(err).NotTo(HaveOccurred())
	r := fill.NewRobinCoefs(g)
	fill.InitRobinCoefs(r, set, &cfg.Boundary)
	return r
}

func uniform(g *grid.Geometry, v float64) *grid.Field {
	f := grid.NewField(g, 1)
	f.SetVal(v)
	return f
}

func interiorsMatch(a, b *grid.Field, tol float64) {
	av, bv := a.Interior(), b.Interior()
	Expect(av).To(HaveLen(len(bv)))
	for i := range av {
		Expect(av[i]).To(BeNumerically("~", bv[i], tol), "cell %d", i)
	}
}

func mean(f *grid.Field) float64 {
	return f.Stats().Mean
}

var _ = Describe("Cartesian", func() {
	var (
		mockController *gomock.Controller
		solver         *MockSolver
		cfg            *config.Config
		geom           *grid.Geometry
		old, newPhi    *grid.Field
	)

	BeforeEach(func() {
		mockController = gomock.NewController(GinkgoT())
		solver = NewMockSolver(mockController)
		cfg = squareConfig(8)
		geom = mustGeometry(cfg)
		old = uniform(geom, 1)
		newPhi = uniform(geom, 1)
	})

	AfterEach(func() {
		mockController.Finish()
	})

	It("should assemble the operator and solve with the fixed options", func() {
		solver.EXPECT().
			Solve(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), SolveOptions).
			DoAndReturn(func(
				_ context.Context,
				op linsolve.Operator,
				x, rhs *grid.Field,
				_ linsolve.Options,
			) (linsolve.Result, error) {
				Expect(x).To(BeIdenticalTo(newPhi))
				Expect(rhs).To(BeIdenticalTo(old))

				abec, ok := op.(*linsolve.ABecLaplacian)
				Expect(ok).To(BeTrue())
				Expect(abec.IsEmbedded()).To(BeFalse())
				Expect(abec.HasRobinData()).To(BeFalse())

				alpha, beta := abec.Scalars()
				Expect(alpha).To(Equal(1.0))
				Expect(beta).To(Equal(1.0))
				for _, v := range abec.ACoeffs().Interior() {
					Expect(v).To(BeNumerically("~", 1.2, 1e-15))
				}
				b := abec.BCoeffs()
				for d := 0; d < 2; d++ {
					for _, v := range b[d].Interior() {
						Expect(v).To(BeNumerically("~", 0.2, 1e-15))
					}
				}
				Expect(b[2]).To(BeNil())

				lo, hi := abec.DomainBC()
				Expect(lo[0]).To(Equal(bc.Dirichlet))
				Expect(hi[1]).To(Equal(bc.Dirichlet))
				return linsolve.Result{Iterations: 3, FinalResidual: 1e-11, Converged: true}, nil
			})

		s := NewCartesian(cfg, geom, nil, solver, nil)
		report, err := s.Advance(context.Background(), old, newPhi)

		Expect(err).NotTo(HaveOccurred())
		Expect(report.Iterations()).To(Equal(3))
		Expect(report.Residual()).To(Equal(1e-11))
		Expect(report.EB).To(BeNil())
	})

	It("should fill the ghost cells of old before solving", func() {
		solver.EXPECT().
			Solve(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			Return(linsolve.Result{Converged: true}, nil)

		s := NewCartesian(cfg, geom, nil, solver, nil)
		_, err := s.Advance(context.Background(), old, newPhi)

		Expect(err).NotTo(HaveOccurred())
		Expect(old.At(grid.IntVect{-1, 0, 0})).To(Equal(-1.0))
		Expect(old.At(grid.IntVect{3, 8, 0})).To(Equal(-1.0))
	})

	It("should hand Robin data to the operator", func() {
		cfg.Boundary.Lo = []bc.Code{bc.RobinBC, bc.ExtDir}
		cfg.Boundary.LoA = []float64{1, 0}
		cfg.Boundary.LoB = []float64{0.5, 0}
		cfg.Boundary.LoF = []float64{2, 0}
		robin := robinCoefs(cfg, geom)

		solver.EXPECT().
			Solve(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), SolveOptions).
			DoAndReturn(func(
				_ context.Context,
				op linsolve.Operator,
				_, _ *grid.Field,
				_ linsolve.Options,
			) (linsolve.Result, error) {
				abec := op.(*linsolve.ABecLaplacian)
				Expect(abec.HasRobinData()).To(BeTrue())
				lo, _ := abec.DomainBC()
				Expect(lo[0]).To(Equal(bc.Robin))
				Expect(abec.Validate()).To(Succeed())
				return linsolve.Result{Converged: true}, nil
			})

		s := NewCartesian(cfg, geom, robin, solver, nil)
		_, err := s.Advance(context.Background(), old, newPhi)
		Expect(err).NotTo(HaveOccurred())
	})

	It("should fail before solving on an invalid boundary code", func() {
		cfg.Boundary.Lo = []bc.Code{bc.ExtDir, 5}

		s := NewCartesian(cfg, geom, nil, solver, nil)
		_, err := s.Advance(context.Background(), old, newPhi)

		Expect(err).To(MatchError(bc.ErrInvalidCode))
	})

	It("should fail before solving when Robin coefficients are missing", func() {
		cfg.Boundary.Hi = []bc.Code{bc.ExtDir, bc.RobinBC}
		cfg.Boundary.HiA = []float64{0, 1}

		s := NewCartesian(cfg, geom, nil, solver, nil)
		_, err := s.Advance(context.Background(), old, newPhi)

		Expect(err).To(MatchError(grid.ErrShapeMismatch))
	})

	It("should propagate a solver failure", func() {
		failure := errors.Join(linsolve.ErrNotConverged, errors.New("residual 1e-3"))
		solver.EXPECT().
			Solve(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			Return(linsolve.Result{Iterations: MaxIter, FinalResidual: 1e-3}, failure)

		s := NewCartesian(cfg, geom, nil, solver, nil)
		report, err := s.Advance(context.Background(), old, newPhi)

		Expect(err).To(MatchError(linsolve.ErrNotConverged))
		Expect(report.Iterations()).To(Equal(MaxIter))
	})
})

var _ = Describe("Embedded", func() {
	var (
		mockController *gomock.Controller
		solver         *MockSolver
		cfg            *config.Config
		geom           *grid.Geometry
		old, newPhi    *grid.Field
	)

	BeforeEach(func() {
		mockController = gomock.NewController(GinkgoT())
		solver = NewMockSolver(mockController)
		cfg = squareConfig(16)
		cfg.EB = config.EmbeddedBoundary{
			Enabled: true,
			Shape:   "sphere",
			Center:  []float64{0.5, 0.5},
			Radius:  0.2,
		}
		geom = mustGeometry(cfg)
		old = uniform(geom, 1)
		newPhi = uniform(geom, 0)
	})

	AfterEach(func() {
		mockController.Finish()
	})

	It("should run the Cartesian solve and then the cut-cell solve", func() {
		var cartesian *grid.Field
		gomock.InOrder(
			solver.EXPECT().
				Solve(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), SolveOptions).
				DoAndReturn(func(
					_ context.Context,
					op linsolve.Operator,
					x, rhs *grid.Field,
					_ linsolve.Options,
				) (linsolve.Result, error) {
					Expect(op.(*linsolve.ABecLaplacian).IsEmbedded()).To(BeFalse())
					Expect(x).NotTo(BeIdenticalTo(newPhi))
					Expect(rhs).To(BeIdenticalTo(old))
					interiorsMatch(x, old, 0)
					cartesian = x
					return linsolve.Result{Iterations: 4, Converged: true}, nil
				}),
			solver.EXPECT().
				Solve(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), SolveOptions).
				DoAndReturn(func(
					_ context.Context,
					op linsolve.Operator,
					x, rhs *grid.Field,
					_ linsolve.Options,
				) (linsolve.Result, error) {
					abec := op.(*linsolve.ABecLaplacian)
					Expect(abec.IsEmbedded()).To(BeTrue())
					Expect(abec.Validate()).To(Succeed())
					Expect(x).To(BeIdenticalTo(newPhi))
					Expect(rhs).To(BeIdenticalTo(old))
					interiorsMatch(x, old, 0)
					return linsolve.Result{Iterations: 7, FinalResidual: 1e-12, Converged: true}, nil
				}),
		)

		s, err := NewEmbedded(NewCartesian(cfg, geom, nil, solver, nil))
		Expect(err).NotTo(HaveOccurred())
		report, err := s.Advance(context.Background(), old, newPhi)

		Expect(err).NotTo(HaveOccurred())
		Expect(report.Solve.Iterations).To(Equal(4))
		Expect(report.EB).NotTo(BeNil())
		Expect(report.Iterations()).To(Equal(7))
		Expect(report.Residual()).To(Equal(1e-12))

		diag := s.Diagnostics()
		Expect(diag).To(HaveLen(1))
		Expect(diag[0].Name).To(Equal("phi_cartesian"))
		Expect(diag[0].Field).To(BeIdenticalTo(cartesian))
	})

	It("should skip the cut-cell solve when the Cartesian solve fails", func() {
		solver.EXPECT().
			Solve(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			Return(linsolve.Result{}, context.Canceled)

		s, err := NewEmbedded(NewCartesian(cfg, geom, nil, solver, nil))
		Expect(err).NotTo(HaveOccurred())
		report, err := s.Advance(context.Background(), old, newPhi)

		Expect(err).To(MatchError(context.Canceled))
		Expect(report.EB).To(BeNil())
	})

	It("should need an embedded boundary", func() {
		plain := squareConfig(8)
		_, err := NewEmbedded(NewCartesian(plain, mustGeometry(plain), nil, solver, nil))
		Expect(err).To(MatchError(grid.ErrInvalidGeometry))
	})

	It("should be selected by New when the boundary is enabled", func() {
		s, err := New(cfg, geom, nil, solver, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(s).To(BeAssignableToTypeOf(&Embedded{}))

		plain := squareConfig(8)
		s, err = New(plain, mustGeometry(plain), nil, solver, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(s).To(BeAssignableToTypeOf(&Cartesian{}))
	})
})

var _ = Describe("Implicit step", func() {
	var solver linsolve.Solver

	BeforeEach(func() {
		var err error
		solver, err = linsolve.New("mlmg", linsolve.Settings{}, nil)
		Expect(err).NotTo(HaveOccurred())
	})

	advance := func(cfg *config.Config, robin *fill.RobinCoefs, old *grid.Field) *grid.Field {
		g := mustGeometry(cfg)
		s, err := New(cfg, g, robin, solver, nil)
		Expect(err).NotTo(HaveOccurred())
		next := old.Clone()
		_, err = s.Advance(context.Background(), old, next)
		Expect(err).NotTo(HaveOccurred())
		return next
	}

	It("should conserve the total on a periodic domain without relaxation", func() {
		cfg := squareConfig(16)
		cfg.Dt, cfg.DConst, cfg.TauP = 0.01, 1, math.Inf(1)
		cfg.Boundary.Lo = []bc.Code{bc.IntDir, bc.IntDir}
		cfg.Boundary.Hi = []bc.Code{bc.IntDir, bc.IntDir}
		g := mustGeometry(cfg)

		old := grid.NewField(g, 1)
		old.ForEach(func(p grid.IntVect) {
			x := g.CellCenter(p)
			old.Set(p, 1+math.Sin(2*math.Pi*x[0])*math.Cos(2*math.Pi*x[1]))
		})
		before := mean(old)

		next := advance(cfg, nil, old)

		Expect(mean(next)).To(BeNumerically("~", before, 1e-9))
		Expect(next.Stats().Max).To(BeNumerically("<", old.Stats().Max))
	})

	It("should keep a Dirichlet steady state", func() {
		cfg := squareConfig(16)
		cfg.TauP = math.Inf(1)
		cfg.Boundary.LoF = []float64{2, 2}
		cfg.Boundary.HiF = []float64{2, 2}
		g := mustGeometry(cfg)

		next := advance(cfg, nil, uniform(g, 2))
		interiorsMatch(next, uniform(g, 2), 1e-12)
	})

	It("should relax to the Dirichlet value over a long step", func() {
		cfg := squareConfig(16)
		cfg.Dt, cfg.DConst, cfg.TauP = 1e4, 1, math.Inf(1)
		cfg.Boundary.LoF = []float64{2, 2}
		cfg.Boundary.HiF = []float64{2, 2}
		g := mustGeometry(cfg)

		next := advance(cfg, nil, uniform(g, 0))
		interiorsMatch(next, uniform(g, 2), 1e-4)
	})

	It("should treat Robin (1, 0, f) as Dirichlet f", func() {
		robinCfg := squareConfig(16)
		robinCfg.Boundary.Lo = []bc.Code{bc.RobinBC, bc.ExtDir}
		robinCfg.Boundary.LoA = []float64{1, 0}
		robinCfg.Boundary.LoB = []float64{0, 0}
		robinCfg.Boundary.LoF = []float64{3, 0}
		g := mustGeometry(robinCfg)

		dirCfg := squareConfig(16)
		dirCfg.Boundary.LoF = []float64{3, 0}

		got := advance(robinCfg, robinCoefs(robinCfg, g), uniform(g, 1))
		want := advance(dirCfg, nil, uniform(g, 1))
		interiorsMatch(got, want, 1e-9)
	})

	It("should treat Robin (0, 1, f) as Neumann f", func() {
		robinCfg := squareConfig(16)
		robinCfg.Boundary.Hi = []bc.Code{bc.ExtDir, bc.RobinBC}
		robinCfg.Boundary.HiA = []float64{0, 0}
		robinCfg.Boundary.HiB = []float64{0, 1}
		robinCfg.Boundary.HiF = []float64{0, 0.5}
		g := mustGeometry(robinCfg)

		neuCfg := squareConfig(16)
		neuCfg.Boundary.Hi = []bc.Code{bc.ExtDir, bc.FOExtrap}
		neuCfg.Boundary.HiF = []float64{0, 0.5}

		got := advance(robinCfg, robinCoefs(robinCfg, g), uniform(g, 1))
		want := advance(neuCfg, nil, uniform(g, 1))
		interiorsMatch(got, want, 1e-9)
	})

	It("should match a dense solve of the same system", func() {
		const n = 8
		cfg := squareConfig(n)
		cfg.Dt, cfg.DConst, cfg.TauP = 1, 1, 1
		g := mustGeometry(cfg)

		next := advance(cfg, nil, uniform(g, 1))

		// Cell-centred Dirichlet 0 walls mirror the neighbour with
		// opposite sign, adding one extra coupling per wall face.
		h2 := g.CellSize(0) * g.CellSize(0)
		k := cfg.Dt * cfg.DConst / h2
		a := mat.NewDense(n*n, n*n, nil)
		rhs := mat.NewVecDense(n*n, nil)
		for j := 0; j < n; j++ {
			for i := 0; i < n; i++ {
				row := i + n*j
				diag := 1 + cfg.Dt/cfg.TauP
				for _, nb := range [][2]int{{i - 1, j}, {i + 1, j}, {i, j - 1}, {i, j + 1}} {
					if nb[0] < 0 || nb[0] >= n || nb[1] < 0 || nb[1] >= n {
						diag += 2 * k
						continue
					}
					diag += k
					a.Set(row, nb[0]+n*nb[1], -k)
				}
				a.Set(row, row, diag)
				rhs.SetVec(row, 1)
			}
		}
		var want mat.VecDense
		Expect(want.SolveVec(a, rhs)).To(Succeed())

		got := next.Interior()
		for i := range got {
			Expect(got[i]).To(BeNumerically("~", want.AtVec(i), 1e-7), "cell %d", i)
			Expect(got[i]).To(BeNumerically(">", 0))
			Expect(got[i]).To(BeNumerically("<", 0.5))
		}
	})

	It("should keep covered cells and record the Cartesian solution", func() {
		cfg := squareConfig(16)
		cfg.EB = config.EmbeddedBoundary{
			Enabled: true,
			Shape:   "sphere",
			Center:  []float64{0.5, 0.5},
			Radius:  0.2,
		}
		g := mustGeometry(cfg)
		s, err := New(cfg, g, nil, solver, nil)
		Expect(err).NotTo(HaveOccurred())

		old := uniform(g, 1)
		next := uniform(g, 1)
		report, err := s.Advance(context.Background(), old, next)
		Expect(err).NotTo(HaveOccurred())
		Expect(report.EB).NotTo(BeNil())

		next.ForEach(func(p grid.IntVect) {
			if g.EB.IsCovered(p) {
				Expect(next.At(p)).To(BeNumerically("~", 1, 1e-9))
			} else {
				Expect(next.At(p)).To(BeNumerically("<", 1))
			}
		})

		plain := squareConfig(16)
		want := advance(plain, nil, uniform(g, 1))
		interiorsMatch(s.(*Embedded).Diagnostics()[0].Field, want, 1e-10)
	})
})
