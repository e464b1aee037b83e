package driver

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/shirou/gopsutil/process"
	"go.uber.org/zap"

	"github.com/mohammadijoo/MagnonDiffusion_GO/src/config"
	"github.com/mohammadijoo/MagnonDiffusion_GO/src/plotfile"
)

// Recorder stores the record of a completed step.
type Recorder interface {
	Record(e plotfile.Entry) error
}

// Summary describes a finished run.
type Summary struct {
	Steps      int
	Time       float64
	Iterations int
	Elapsed    time.Duration
}

// Controller runs the fixed-length time loop of a Simulation.
type Controller struct {
	sim   *Simulation
	clock Clock

	plotInt int
	plot    plotfile.Writer
	history Recorder
	probe   *plotfile.Probe
	outDir  string
	closers []func() error

	logger *zap.Logger
}

// NewController returns a controller at step 0 with no outputs attached.
func NewController(sim *Simulation, logger *zap.Logger) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Controller{
		sim:     sim,
		clock:   NewClock(sim.Config.Dt, sim.Config.NSteps),
		plotInt: sim.Config.PlotInt,
		outDir:  sim.Config.Output.Dir,
		logger:  logger,
	}
}

// SetPlotWriter sets the snapshot writer used every plot_int steps.
func (c *Controller) SetPlotWriter(w plotfile.Writer) { c.plot = w }

// SetHistory sets the per-step recorder.
func (c *Controller) SetHistory(r Recorder) { c.history = r }

// SetProbe sets the centre probe, finished into the output directory at
// the end of the run.
func (c *Controller) SetProbe(p *plotfile.Probe) { c.probe = p }

// Clock returns the current clock.
func (c *Controller) Clock() Clock { return c.clock }

// Attach creates the outputs requested by out.
func (c *Controller) Attach(out config.Output) error {
	c.outDir = out.Dir
	if err := os.MkdirAll(out.Dir, 0o755); err != nil {
		return fmt.Errorf("cannot create output dir: %w", err)
	}
	if c.plotInt > 0 {
		c.plot = plotfile.NewDir(out.Dir, c.sim.Geom, out.PNG, c.logger.Named("plotfile"))
	}
	if out.History != "" {
		path := out.History
		if !filepath.IsAbs(path) {
			path = filepath.Join(out.Dir, path)
		}
		h := plotfile.NewHistory(path)
		if err := h.Init(); err != nil {
			return err
		}
		c.history = h
		c.closers = append(c.closers, h.Close)
		c.logger.Info("recording history", zap.String("path", h.Path()), zap.String("run_id", h.RunID()))
	}
	if out.Probe {
		c.probe = plotfile.NewProbe(c.sim.Geom, c.logger.Named("probe"))
	}
	return nil
}

// Close releases the outputs opened by Attach.
func (c *Controller) Close() error {
	var first error
	for _, fn := range c.closers {
		if err := fn(); err != nil && first == nil {
			first = err
		}
	}
	c.closers = nil
	return first
}

func (c *Controller) writePlot() error {
	if c.plot == nil || c.plotInt <= 0 {
		return nil
	}
	return c.plot.Write(c.clock.Step, c.clock.Time, c.sim.Components())
}

// Run takes exactly NSteps implicit steps. A snapshot is written before
// the first step and after every step divisible by plot_int when plot_int
// is positive. Any error aborts the run.
func (c *Controller) Run(ctx context.Context) (Summary, error) {
	start := time.Now()
	sim := c.sim
	sum := Summary{}

	if err := c.writePlot(); err != nil {
		return sum, &StepError{Step: c.clock.Step, Time: c.clock.Time, Err: err}
	}
	if c.probe != nil {
		c.probe.Record(c.clock.Time, sim.New)
	}

	for !c.clock.Done() {
		n, t := c.clock.Step+1, c.clock.Time
		if err := sim.Old.CopyInterior(sim.New); err != nil {
			return sum, &StepError{Step: n, Time: t, Err: err}
		}

		report, err := sim.Stepper.Advance(ctx, sim.Old, sim.New)
		if err != nil {
			return sum, &StepError{Step: n, Time: t, Err: err}
		}
		c.clock.Tick()
		sum.Steps = c.clock.Step
		sum.Time = c.clock.Time
		sum.Iterations += report.Iterations()

		c.logger.Info("advanced step",
			zap.Int("step", n),
			zap.Float64("time", c.clock.Time),
			zap.Int("iterations", report.Iterations()),
			zap.Float64("residual", report.Residual()))

		if c.history != nil {
			st := sim.New.Stats()
			err := c.history.Record(plotfile.Entry{
				Step:       n,
				Time:       c.clock.Time,
				Min:        st.Min,
				Max:        st.Max,
				Mean:       st.Mean,
				Iterations: report.Iterations(),
				Residual:   report.Residual(),
			})
			if err != nil {
				return sum, &StepError{Step: n, Time: c.clock.Time, Err: err}
			}
		}
		if c.probe != nil {
			c.probe.Record(c.clock.Time, sim.New)
		}
		if c.plotInt > 0 && n%c.plotInt == 0 {
			if err := c.writePlot(); err != nil {
				return sum, &StepError{Step: n, Time: c.clock.Time, Err: err}
			}
		}
	}

	if c.probe != nil {
		if err := c.probe.Finish(c.outDir, sim.New); err != nil {
			return sum, err
		}
	}

	sum.Elapsed = time.Since(start)
	c.logSummary(sum)
	return sum, nil
}

func (c *Controller) logSummary(sum Summary) {
	fields := []zap.Field{
		zap.Int("steps", sum.Steps),
		zap.Float64("time", sum.Time),
		zap.Int("iterations", sum.Iterations),
		zap.Duration("run_time", sum.Elapsed),
	}
	if p, err := process.NewProcess(int32(os.Getpid())); err == nil {
		if mem, err := p.MemoryInfo(); err == nil {
			fields = append(fields, zap.Uint64("rss_bytes", mem.RSS))
		}
		if cpu, err := p.CPUPercent(); err == nil {
			fields = append(fields, zap.Float64("cpu_percent", cpu))
		}
	}
	c.logger.Info("run finished", fields...)
}
