package physics

import (
	"github.com/san-kum/phaselab/internal/dynamo"
	"gonum.org/v1/gonum/mat"
)

type Lorenz struct{ Sigma, Rho, Beta float64 }

func NewLorenz() *Lorenz        { return &Lorenz{10.0, 28.0, 8.0 / 3.0} }
func (l *Lorenz) StateDim() int { return 3 }

// Derive calculates the Lorenz attractor derivatives.
func (l *Lorenz) Derive(s dynamo.State, _ float64) dynamo.State {
	return dynamo.State{l.Sigma * (s[1] - s[0]), s[0]*(l.Rho-s[2]) - s[1], s[0]*s[1] - l.Beta*s[2]}
}

func (l *Lorenz) Jacobian(s dynamo.State) *mat.Dense {
	return mat.NewDense(3, 3, []float64{
		-l.Sigma, l.Sigma, 0,
		l.Rho - s[2], -1, -s[0],
		s[1], s[0], -l.Beta,
	})
}

func (l *Lorenz) DefaultState() dynamo.State { return dynamo.State{1.0, 1.0, 1.0} }
func (l *Lorenz) GetParams() dynamo.Params {
	return dynamo.Params{"sigma": l.Sigma, "rho": l.Rho, "beta": l.Beta}
}
func (l *Lorenz) SetParam(n string, v float64) {
	switch n {
	case "sigma":
		l.Sigma = v
	case "rho":
		l.Rho = v
	case "beta":
		l.Beta = v
	}
}
