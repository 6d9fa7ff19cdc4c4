package maps

import (
	"math"

	"github.com/san-kum/phaselab/internal/dynamo"
	"gonum.org/v1/gonum/mat"
)

// Logistic is x -> r x (1 - x).
type Logistic struct{ R float64 }

func NewLogistic() *Logistic                           { return &Logistic{3.5} }
func (l *Logistic) StateDim() int                      { return 1 }
func (l *Logistic) Apply(x float64) float64            { return l.R * x * (1 - x) }
func (l *Logistic) Deriv(x float64) float64            { return l.R * (1 - 2*x) }
func (l *Logistic) Next(x dynamo.State) dynamo.State   { return next1(l, x) }
func (l *Logistic) Jacobian(x dynamo.State) *mat.Dense { return jac1(l, x) }
func (l *Logistic) DefaultState() dynamo.State         { return dynamo.State{0.5} }
func (l *Logistic) GetParams() dynamo.Params           { return dynamo.Params{"r": l.R} }
func (l *Logistic) SetParam(n string, v float64) {
	if n == "r" {
		l.R = v
	}
}

func (l *Logistic) FixedPoints() []dynamo.State {
	fps := []dynamo.State{{0}}
	if l.R != 0 && l.R != 1 {
		fps = append(fps, dynamo.State{1 - 1/l.R})
	}
	return fps
}

// Tent is x -> mu min(x, 1 - x). The state is not clipped to [0, 1].
type Tent struct{ Mu float64 }

func NewTent() *Tent                               { return &Tent{2.0} }
func (t *Tent) StateDim() int                      { return 1 }
func (t *Tent) Apply(x float64) float64            { return t.Mu * math.Min(x, 1-x) }
func (t *Tent) Next(x dynamo.State) dynamo.State   { return next1(t, x) }
func (t *Tent) Jacobian(x dynamo.State) *mat.Dense { return jac1(t, x) }
func (t *Tent) DefaultState() dynamo.State         { return dynamo.State{0.3} }
func (t *Tent) GetParams() dynamo.Params           { return dynamo.Params{"mu": t.Mu} }
func (t *Tent) SetParam(n string, v float64) {
	if n == "mu" {
		t.Mu = v
	}
}

// Deriv uses the left branch at the kink x = 1/2.
func (t *Tent) Deriv(x float64) float64 {
	if x <= 0.5 {
		return t.Mu
	}
	return -t.Mu
}

func (t *Tent) FixedPoints() []dynamo.State {
	fps := []dynamo.State{{0}}
	// the right branch mu(1-x) = x crosses the diagonal above 1/2 only for mu > 1
	if t.Mu > 1 {
		fps = append(fps, dynamo.State{t.Mu / (1 + t.Mu)})
	}
	return fps
}

// Sine is x -> r sin(pi x). Its non-trivial fixed points have no closed
// form and are found numerically by the analysis package.
type Sine struct{ R float64 }

func NewSine() *Sine                               { return &Sine{1.0} }
func (s *Sine) StateDim() int                      { return 1 }
func (s *Sine) Apply(x float64) float64            { return s.R * math.Sin(math.Pi*x) }
func (s *Sine) Deriv(x float64) float64            { return s.R * math.Pi * math.Cos(math.Pi*x) }
func (s *Sine) Next(x dynamo.State) dynamo.State   { return next1(s, x) }
func (s *Sine) Jacobian(x dynamo.State) *mat.Dense { return jac1(s, x) }
func (s *Sine) DefaultState() dynamo.State         { return dynamo.State{0.5} }
func (s *Sine) GetParams() dynamo.Params           { return dynamo.Params{"r": s.R} }
func (s *Sine) SetParam(n string, v float64) {
	if n == "r" {
		s.R = v
	}
}

// Linear1D is x -> a x + b.
type Linear1D struct{ A, B float64 }

func NewLinear1D() *Linear1D                           { return &Linear1D{0.8, 0.1} }
func (l *Linear1D) StateDim() int                      { return 1 }
func (l *Linear1D) Apply(x float64) float64            { return l.A*x + l.B }
func (l *Linear1D) Deriv(float64) float64              { return l.A }
func (l *Linear1D) Next(x dynamo.State) dynamo.State   { return next1(l, x) }
func (l *Linear1D) Jacobian(x dynamo.State) *mat.Dense { return jac1(l, x) }
func (l *Linear1D) DefaultState() dynamo.State         { return dynamo.State{0.5} }
func (l *Linear1D) GetParams() dynamo.Params           { return dynamo.Params{"a": l.A, "b": l.B} }
func (l *Linear1D) SetParam(n string, v float64) {
	switch n {
	case "a":
		l.A = v
	case "b":
		l.B = v
	}
}

// FixedPoints is empty for a = 1: either no fixed point (b != 0) or every
// point is fixed (b = 0), and the latter reports only the origin.
func (l *Linear1D) FixedPoints() []dynamo.State {
	if l.A == 1 {
		if l.B == 0 {
			return []dynamo.State{{0}}
		}
		return nil
	}
	return []dynamo.State{{l.B / (1 - l.A)}}
}
