package physics

import (
	"math"

	"github.com/san-kum/phaselab/internal/dynamo"
	"gonum.org/v1/gonum/mat"
)

// Thomas is Thomas' cyclically symmetric attractor.
type Thomas struct{ B float64 }

func NewThomas() *Thomas        { return &Thomas{0.208186} }
func (t *Thomas) StateDim() int { return 3 }

func (t *Thomas) Derive(s dynamo.State, _ float64) dynamo.State {
	return dynamo.State{math.Sin(s[1]) - t.B*s[0], math.Sin(s[2]) - t.B*s[1], math.Sin(s[0]) - t.B*s[2]}
}

func (t *Thomas) Jacobian(s dynamo.State) *mat.Dense {
	return mat.NewDense(3, 3, []float64{
		-t.B, math.Cos(s[1]), 0,
		0, -t.B, math.Cos(s[2]),
		math.Cos(s[0]), 0, -t.B,
	})
}

func (t *Thomas) DefaultState() dynamo.State { return dynamo.State{0.1, 0, 0} }
func (t *Thomas) GetParams() dynamo.Params   { return dynamo.Params{"b": t.B} }
func (t *Thomas) SetParam(n string, v float64) {
	if n == "b" {
		t.B = v
	}
}
