package maps

import (
	"github.com/san-kum/phaselab/internal/dynamo"
	"gonum.org/v1/gonum/mat"
)

// Scalar is a one-dimensional map with an analytic derivative.
type Scalar interface {
	dynamo.Map
	Apply(x float64) float64
	Deriv(x float64) float64
}

// FixedPointer is implemented by maps whose fixed points have a closed form.
type FixedPointer interface {
	FixedPoints() []dynamo.State
}

func next1(s Scalar, x dynamo.State) dynamo.State { return dynamo.State{s.Apply(x[0])} }

func jac1(s Scalar, x dynamo.State) *mat.Dense {
	return mat.NewDense(1, 1, []float64{s.Deriv(x[0])})
}
