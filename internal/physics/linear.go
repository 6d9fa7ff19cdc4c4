package physics

import (
	"github.com/san-kum/phaselab/internal/dynamo"
	"gonum.org/v1/gonum/mat"
)

// Linear is the planar system dx/dt = A x.
type Linear struct{ A [2][2]float64 }

func NewLinear(a11, a12, a21, a22 float64) *Linear {
	return &Linear{A: [2][2]float64{{a11, a12}, {a21, a22}}}
}

// NewHarmonic returns the unit harmonic oscillator [[0,1],[-1,0]].
func NewHarmonic() *Linear { return NewLinear(0, 1, -1, 0) }

func (l *Linear) StateDim() int { return 2 }

func (l *Linear) Derive(s dynamo.State, _ float64) dynamo.State {
	return dynamo.State{l.A[0][0]*s[0] + l.A[0][1]*s[1], l.A[1][0]*s[0] + l.A[1][1]*s[1]}
}

func (l *Linear) Jacobian(_ dynamo.State) *mat.Dense { return l.Matrix() }

func (l *Linear) Matrix() *mat.Dense {
	return mat.NewDense(2, 2, []float64{l.A[0][0], l.A[0][1], l.A[1][0], l.A[1][1]})
}

func (l *Linear) DefaultState() dynamo.State { return dynamo.State{1.0, 0.0} }
func (l *Linear) GetParams() dynamo.Params {
	return dynamo.Params{"a11": l.A[0][0], "a12": l.A[0][1], "a21": l.A[1][0], "a22": l.A[1][1]}
}
func (l *Linear) SetParam(n string, v float64) {
	switch n {
	case "a11":
		l.A[0][0] = v
	case "a12":
		l.A[0][1] = v
	case "a21":
		l.A[1][0] = v
	case "a22":
		l.A[1][1] = v
	}
}
