package maps

import (
	"math"

	"github.com/san-kum/phaselab/internal/dynamo"
	"gonum.org/v1/gonum/mat"
)

// Henon is (x, y) -> (1 - a x^2 + y, b x).
type Henon struct{ A, B float64 }

func NewHenon() *Henon          { return &Henon{1.4, 0.3} }
func (h *Henon) StateDim() int { return 2 }

func (h *Henon) Next(s dynamo.State) dynamo.State {
	return dynamo.State{1 - h.A*s[0]*s[0] + s[1], h.B * s[0]}
}

func (h *Henon) Jacobian(s dynamo.State) *mat.Dense {
	return mat.NewDense(2, 2, []float64{-2 * h.A * s[0], 1, h.B, 0})
}

// FixedPoints solves a x^2 + (1-b) x - 1 = 0 with y = b x.
func (h *Henon) FixedPoints() []dynamo.State {
	if h.A == 0 {
		if h.B == 1 {
			return nil
		}
		x := 1 / (1 - h.B)
		return []dynamo.State{{x, h.B * x}}
	}
	p := 1 - h.B
	disc := p*p + 4*h.A
	if disc < 0 {
		return nil
	}
	sq := math.Sqrt(disc)
	x1 := (-p + sq) / (2 * h.A)
	x2 := (-p - sq) / (2 * h.A)
	if disc == 0 {
		return []dynamo.State{{x1, h.B * x1}}
	}
	return []dynamo.State{{x1, h.B * x1}, {x2, h.B * x2}}
}

func (h *Henon) DefaultState() dynamo.State { return dynamo.State{0.1, 0.1} }
func (h *Henon) GetParams() dynamo.Params   { return dynamo.Params{"a": h.A, "b": h.B} }
func (h *Henon) SetParam(n string, v float64) {
	switch n {
	case "a":
		h.A = v
	case "b":
		h.B = v
	}
}

// Linear2D is x -> A x.
type Linear2D struct{ A [2][2]float64 }

func NewLinear2D() *Linear2D      { return &Linear2D{A: [2][2]float64{{0.8, 0.2}, {0.1, 0.9}}} }
func (l *Linear2D) StateDim() int { return 2 }

func (l *Linear2D) Next(s dynamo.State) dynamo.State {
	return dynamo.State{l.A[0][0]*s[0] + l.A[0][1]*s[1], l.A[1][0]*s[0] + l.A[1][1]*s[1]}
}

func (l *Linear2D) Jacobian(dynamo.State) *mat.Dense {
	return mat.NewDense(2, 2, []float64{l.A[0][0], l.A[0][1], l.A[1][0], l.A[1][1]})
}

// FixedPoints reports the origin. When I - A is singular the fixed set is a
// line through it; the origin stands in for it.
func (l *Linear2D) FixedPoints() []dynamo.State { return []dynamo.State{{0, 0}} }

func (l *Linear2D) DefaultState() dynamo.State { return dynamo.State{0.1, 0.1} }
func (l *Linear2D) GetParams() dynamo.Params {
	return dynamo.Params{"a11": l.A[0][0], "a12": l.A[0][1], "a21": l.A[1][0], "a22": l.A[1][1]}
}
func (l *Linear2D) SetParam(n string, v float64) {
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

// Rotation is x -> r R(theta) x.
type Rotation struct{ Theta, R float64 }

func NewRotation() *Rotation      { return &Rotation{0.3, 0.95} }
func (r *Rotation) StateDim() int { return 2 }

func (r *Rotation) Next(s dynamo.State) dynamo.State {
	sin, cos := math.Sincos(r.Theta)
	return dynamo.State{r.R * (cos*s[0] - sin*s[1]), r.R * (sin*s[0] + cos*s[1])}
}

func (r *Rotation) Jacobian(dynamo.State) *mat.Dense {
	sin, cos := math.Sincos(r.Theta)
	return mat.NewDense(2, 2, []float64{r.R * cos, -r.R * sin, r.R * sin, r.R * cos})
}

func (r *Rotation) FixedPoints() []dynamo.State { return []dynamo.State{{0, 0}} }

func (r *Rotation) DefaultState() dynamo.State { return dynamo.State{1, 0} }
func (r *Rotation) GetParams() dynamo.Params   { return dynamo.Params{"theta": r.Theta, "r": r.R} }
func (r *Rotation) SetParam(n string, v float64) {
	switch n {
	case "theta":
		r.Theta = v
	case "r":
		r.R = v
	}
}
