package physics

import (
	"math"

	"github.com/san-kum/phaselab/internal/dynamo"
	"gonum.org/v1/gonum/mat"
)

// Chua is Chua's circuit with the piecewise-linear diode characteristic
// f(x) = m1*x + (m0-m1)/2 * (|x+1| - |x-1|).
type Chua struct{ Alpha, Beta, M0, M1 float64 }

func NewChua() *Chua          { return &Chua{15.6, 28.0, -1.143, -0.714} }
func (c *Chua) StateDim() int { return 3 }

func (c *Chua) diode(x float64) float64 {
	return c.M1*x + 0.5*(c.M0-c.M1)*(math.Abs(x+1)-math.Abs(x-1))
}

// slope of the diode characteristic; the outer slope is used on the breakpoints
func (c *Chua) diodeSlope(x float64) float64 {
	if math.Abs(x) < 1 {
		return c.M0
	}
	return c.M1
}

func (c *Chua) Derive(s dynamo.State, _ float64) dynamo.State {
	return dynamo.State{c.Alpha * (s[1] - s[0] - c.diode(s[0])), s[0] - s[1] + s[2], -c.Beta * s[1]}
}

func (c *Chua) Jacobian(s dynamo.State) *mat.Dense {
	return mat.NewDense(3, 3, []float64{
		-c.Alpha * (1 + c.diodeSlope(s[0])), c.Alpha, 0,
		1, -1, 1,
		0, -c.Beta, 0,
	})
}

func (c *Chua) DefaultState() dynamo.State { return dynamo.State{0.1, 0.1, 0.1} }
func (c *Chua) GetParams() dynamo.Params {
	return dynamo.Params{"alpha": c.Alpha, "beta": c.Beta, "m0": c.M0, "m1": c.M1}
}
func (c *Chua) SetParam(n string, v float64) {
	switch n {
	case "alpha":
		c.Alpha = v
	case "beta":
		c.Beta = v
	case "m0":
		c.M0 = v
	case "m1":
		c.M1 = v
	}
}
