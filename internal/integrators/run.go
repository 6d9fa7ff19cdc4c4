package integrators

import (
	"context"
	"math"

	"github.com/san-kum/phaselab/internal/dynamo"
)

// checkEvery is how many steps run between context checks.
const checkEvery = 256

// Steps returns floor(total/dt), the number of fixed steps covering total.
func Steps(total, dt float64) (int, error) {
	if !(dt > 0) || math.IsInf(dt, 0) {
		return 0, dynamo.Invalid("dt", "must be positive, got %g", dt)
	}
	if !(total > 0) || math.IsInf(total, 0) {
		return 0, dynamo.Invalid("total_time", "must be positive, got %g", total)
	}
	// total/dt lands just below an integer for spans like 0.3/0.1; the 1e-9
	// guard absorbs that representation error and nothing larger.
	n := int(math.Floor(total/dt + 1e-9))
	if n < 1 {
		return 0, dynamo.Invalid("total_time", "shorter than one step (dt=%g)", dt)
	}
	return n, nil
}

// Integrate advances x0 by steps fixed steps of size dt and records steps+1
// samples. Divergent states are recorded as they are. On cancellation the
// samples so far are returned marked Partial together with a
// *dynamo.CancellationError.
func Integrate(ctx context.Context, integ dynamo.Integrator, f dynamo.Flow, x0 dynamo.State, dt float64, steps int, metrics ...dynamo.Metric) (*dynamo.Trajectory, error) {
	if err := dynamo.CheckDim("initial_state", x0, f.StateDim()); err != nil {
		return nil, err
	}
	if !(dt > 0) {
		return nil, dynamo.Invalid("dt", "must be positive, got %g", dt)
	}
	if steps < 1 {
		return nil, dynamo.Invalid("steps", "must be at least 1, got %d", steps)
	}

	for _, m := range metrics {
		m.Reset()
	}

	tr := dynamo.NewTrajectory(steps + 1)
	x := x0.Clone()
	record(tr, metrics, x, 0)

	for i := 0; i < steps; i++ {
		if i%checkEvery == 0 {
			if err := dynamo.Canceled(ctx, "integrate", i, steps); err != nil {
				tr.Partial = true
				return tr, err
			}
		}
		t := float64(i) * dt
		x = integ.Step(f, x, t, dt)
		record(tr, metrics, x, float64(i+1)*dt)
	}

	return tr, nil
}

// Iterate applies m to x0 skip times without recording, then records the
// current state and steps further iterates. Times hold iteration indices.
func Iterate(ctx context.Context, m dynamo.Map, x0 dynamo.State, steps, skip int, metrics ...dynamo.Metric) (*dynamo.Trajectory, error) {
	if err := dynamo.CheckDim("initial_state", x0, m.StateDim()); err != nil {
		return nil, err
	}
	if steps < 0 {
		return nil, dynamo.Invalid("steps", "must not be negative, got %d", steps)
	}
	if skip < 0 {
		return nil, dynamo.Invalid("transient", "must not be negative, got %d", skip)
	}

	for _, mt := range metrics {
		mt.Reset()
	}

	x := x0.Clone()
	for i := 0; i < skip; i++ {
		if i%checkEvery == 0 {
			if err := dynamo.Canceled(ctx, "iterate", i, skip+steps); err != nil {
				return nil, err
			}
		}
		x = m.Next(x)
	}

	tr := dynamo.NewTrajectory(steps + 1)
	record(tr, metrics, x, float64(skip))
	for i := 0; i < steps; i++ {
		if i%checkEvery == 0 {
			if err := dynamo.Canceled(ctx, "iterate", skip+i, skip+steps); err != nil {
				tr.Partial = true
				return tr, err
			}
		}
		x = m.Next(x)
		record(tr, metrics, x, float64(skip+i+1))
	}
	return tr, nil
}

func record(tr *dynamo.Trajectory, metrics []dynamo.Metric, x dynamo.State, t float64) {
	tr.Append(x, t)
	for _, m := range metrics {
		m.Observe(x, t)
	}
}
