package driver

import "fmt"

// Clock counts completed steps and the elapsed simulated time.
type Clock struct {
	Step   int
	Time   float64
	Dt     float64
	NSteps int
}

// NewClock starts at step 0, time 0.
func NewClock(dt float64, nsteps int) Clock {
	return Clock{Dt: dt, NSteps: nsteps}
}

// Done reports whether all steps have been taken.
func (c Clock) Done() bool { return c.Step >= c.NSteps }

// Tick advances the clock by one step.
func (c *Clock) Tick() {
	c.Step++
	c.Time += c.Dt
}

// StepError reports a failure while taking step Step from time Time.
type StepError struct {
	Step int
	Time float64
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %d (t = %g): %v", e.Step, e.Time, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }
