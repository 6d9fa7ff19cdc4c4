package physics

import (
	"github.com/san-kum/phaselab/internal/dynamo"
	"gonum.org/v1/gonum/mat"
)

type Rossler struct{ A, B, C float64 }

func NewRossler() *Rossler       { return &Rossler{0.2, 0.2, 5.7} }
func (r *Rossler) StateDim() int { return 3 }

// Derive calculates the Rossler attractor derivatives.
func (r *Rossler) Derive(s dynamo.State, _ float64) dynamo.State {
	return dynamo.State{-s[1] - s[2], s[0] + r.A*s[1], r.B + s[2]*(s[0]-r.C)}
}

func (r *Rossler) Jacobian(s dynamo.State) *mat.Dense {
	return mat.NewDense(3, 3, []float64{
		0, -1, -1,
		1, r.A, 0,
		s[2], 0, s[0] - r.C,
	})
}

func (r *Rossler) DefaultState() dynamo.State { return dynamo.State{1.0, 1.0, 1.0} }
func (r *Rossler) GetParams() dynamo.Params {
	return dynamo.Params{"a": r.A, "b": r.B, "c": r.C}
}
func (r *Rossler) SetParam(n string, v float64) {
	switch n {
	case "a":
		r.A = v
	case "b":
		r.B = v
	case "c":
		r.C = v
	}
}
