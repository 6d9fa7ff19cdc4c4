package integrators

import (
	"context"

	"github.com/san-kum/phaselab/internal/dynamo"
	"golang.org/x/sync/errgroup"
)

// DefaultOffset separates neighbouring ensemble members.
const DefaultOffset = 0.01

// Ensemble integrates count trajectories whose initial conditions are
// x0 + i*offset in every component. Each member gets its own stepper.
type Ensemble struct {
	newStepper func() dynamo.Integrator
	count      int
	offset     float64
}

func NewEnsemble(newStepper func() dynamo.Integrator, count int, offset float64) *Ensemble {
	return &Ensemble{newStepper: newStepper, count: count, offset: offset}
}

// InitialStates returns the member initial conditions.
func (e *Ensemble) InitialStates(x0 dynamo.State) []dynamo.State {
	out := make([]dynamo.State, e.count)
	for i := range out {
		x := x0.Clone()
		for k := range x {
			x[k] += float64(i) * e.offset
		}
		out[i] = x
	}
	return out
}

// Run integrates every member in parallel. Results are in member order. The
// first error cancels the remaining members.
func (e *Ensemble) Run(ctx context.Context, f dynamo.Flow, x0 dynamo.State, dt float64, steps int) ([]*dynamo.Trajectory, error) {
	if e.count < 1 {
		return nil, dynamo.Invalid("count", "must be at least 1, got %d", e.count)
	}
	if err := dynamo.CheckDim("initial_state", x0, f.StateDim()); err != nil {
		return nil, err
	}

	results := make([]*dynamo.Trajectory, e.count)
	g, gctx := errgroup.WithContext(ctx)
	for i, xi := range e.InitialStates(x0) {
		g.Go(func() error {
			tr, err := Integrate(gctx, e.newStepper(), f, xi, dt, steps)
			results[i] = tr
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}
