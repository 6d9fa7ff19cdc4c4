package integrators

import "github.com/san-kum/phaselab/internal/dynamo"

// Classical fourth-order Runge-Kutta tableau: stage s evaluates the field
// at t + rk4Nodes[s]*dt from the previous stage's slope.
var (
	rk4Nodes   = [4]float64{0, 0.5, 0.5, 1}
	rk4Weights = [4]float64{1, 2, 2, 1}
)

// RK4 reuses its stage buffers between steps; one RK4 must not be shared
// between goroutines.
type RK4 struct {
	k   [4]dynamo.State
	tmp dynamo.State
}

func NewRK4() *RK4 { return &RK4{} }

func (r *RK4) Step(f dynamo.Flow, x dynamo.State, t, dt float64) dynamo.State {
	out := make(dynamo.State, len(x))
	r.StepInto(out, f, x, t, dt)
	return out
}

// StepInto writes the step from x into dst. dst may alias x.
func (r *RK4) StepInto(dst dynamo.State, f dynamo.Flow, x dynamo.State, t, dt float64) {
	n := len(x)
	if len(r.tmp) != n {
		for s := range r.k {
			r.k[s] = make(dynamo.State, n)
		}
		r.tmp = make(dynamo.State, n)
	}

	copy(r.k[0], f.Derive(x, t))
	for s := 1; s < len(r.k); s++ {
		h := rk4Nodes[s] * dt
		for i := range x {
			r.tmp[i] = x[i] + h*r.k[s-1][i]
		}
		copy(r.k[s], f.Derive(r.tmp, t+h))
	}

	for i := range x {
		var sum float64
		for s, w := range rk4Weights {
			sum += w * r.k[s][i]
		}
		dst[i] = x[i] + dt/6*sum
	}
}
