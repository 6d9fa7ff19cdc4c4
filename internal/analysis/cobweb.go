package analysis

import (
	"fmt"
	"math"

	"github.com/san-kum/phaselab/internal/dynamo"
	"github.com/san-kum/phaselab/internal/maps"
	"gonum.org/v1/gonum/floats"
)

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type CobwebPlot struct {
	Curve    []Point `json:"map_function_curve"`
	Identity []Point `json:"identity_line"`
	Path     []Point `json:"cobweb_path"`
	X0       float64 `json:"x0"`
	Steps    int     `json:"n_steps"`
	Diverged bool    `json:"diverged,omitempty"`
}

// CurveSamples is the resolution of the map curve in a cobweb plot.
const CurveSamples = 200

// Cobweb builds the staircase (x0,x0), (x0,x1), (x1,x1), (x1,x2), ... for a
// one-dimensional map, together with the map curve and the diagonal over
// [0,1] widened to cover the orbit. The path stops once the orbit diverges.
func Cobweb(m maps.Scalar, x0 float64, steps int) (*CobwebPlot, error) {
	if steps < 1 {
		return nil, dynamo.Invalid("n_steps", "must be at least 1, got %d", steps)
	}
	if !isFinite(x0) {
		return nil, dynamo.Invalid("initial_state", "must be finite")
	}

	c := &CobwebPlot{X0: x0, Path: make([]Point, 0, 2*steps+1)}
	c.Path = append(c.Path, Point{x0, x0})
	lo, hi := math.Min(0, x0), math.Max(1, x0)
	x := x0
	for i := 0; i < steps; i++ {
		y := m.Apply(x)
		if !isFinite(y) || math.Abs(y) > dynamo.DivergenceThreshold {
			c.Diverged = true
			break
		}
		c.Path = append(c.Path, Point{x, y}, Point{y, y})
		lo, hi = math.Min(lo, y), math.Max(hi, y)
		x = y
		c.Steps++
	}

	xs := make([]float64, CurveSamples)
	floats.Span(xs, lo, hi)
	c.Curve = make([]Point, 0, CurveSamples)
	for _, v := range xs {
		if y := m.Apply(v); isFinite(y) {
			c.Curve = append(c.Curve, Point{v, y})
		}
	}
	c.Identity = []Point{{lo, lo}, {hi, hi}}
	return c, nil
}

type ReturnMap struct {
	XN         []float64 `json:"x_n"`
	XNDelay    []float64 `json:"x_n_plus_delay"`
	Delay      int       `json:"delay"`
	Total      int       `json:"total_points"`
	Trimmed    bool      `json:"trimmed,omitempty"`
	Diverged   bool      `json:"diverged"`
	DivergedAt int       `json:"diverged_at"`
	Message    string    `json:"message,omitempty"`
}

const (
	convergenceThreshold = 1e-6
	convergenceWindow    = 30
)

// ReturnMapOf pairs x_n with x_{n+delay} along the first component of tr,
// up to the first divergent sample. With trim set, a one-dimensional orbit
// is cut where it has settled (a window of convergenceWindow samples
// moving less than convergenceThreshold), keeping at least
// min(0.8*steps, 150) samples and never fewer than delay+1.
//
// An orbit that diverges before delay+1 samples gives an empty pair set
// with Diverged set.
func ReturnMapOf(tr *dynamo.Trajectory, delay int, trim bool, steps int) (*ReturnMap, error) {
	if delay < 1 {
		return nil, dynamo.Invalid("delay", "must be at least 1, got %d", delay)
	}
	if delay > steps {
		return nil, dynamo.Invalid("delay", "must not exceed n_steps (%d), got %d", steps, delay)
	}
	n := tr.FiniteLen()
	if tr.Diverged && tr.DivergedAt < n {
		n = tr.DivergedAt
	}
	xs := tr.Component(0)[:n]
	oneD := tr.Len() > 0 && len(tr.States[0]) == 1

	rm := &ReturnMap{Delay: delay, Diverged: tr.Diverged, DivergedAt: tr.DivergedAt}
	if trim && oneD && !tr.Diverged {
		if k := max(settledLength(xs, steps), delay+1); k < len(xs) {
			xs = xs[:k]
			rm.Trimmed = true
		}
	}
	if len(xs) < delay+1 {
		rm.XN, rm.XNDelay = []float64{}, []float64{}
		rm.Message = fmt.Sprintf("orbit diverged after %d samples, fewer than delay+1 = %d", len(xs), delay+1)
		return rm, nil
	}
	rm.XN = xs[:len(xs)-delay]
	rm.XNDelay = xs[delay:]
	rm.Total = len(rm.XN)
	return rm, nil
}

func settledLength(xs []float64, steps int) int {
	minKeep := int(float64(steps) * 0.8)
	if minKeep > 150 {
		minKeep = 150
	}
	for i := 0; i+convergenceWindow < len(xs); i++ {
		if i+1 < minKeep {
			continue
		}
		settled := true
		for j := i; j < i+convergenceWindow-1; j++ {
			if math.Abs(xs[j+1]-xs[j]) >= convergenceThreshold {
				settled = false
				break
			}
		}
		if settled {
			return i + 1
		}
	}
	return len(xs)
}
