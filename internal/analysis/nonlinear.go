package analysis

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/san-kum/phaselab/internal/dynamo"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// PlanarField is a two-dimensional flow with a Jacobian, such as an
// expression-defined system.
type PlanarField interface {
	dynamo.Flow
	dynamo.Linearizable
}

// Equilibrium is a zero of a planar field classified by its linearization.
// Hyperbolic is false for centers and degenerate points, where the
// linearization does not decide the nonlinear behaviour.
type Equilibrium struct {
	Point          [2]float64     `json:"point"`
	Formatted      string         `json:"formatted"`
	Jacobian       [2][2]float64  `json:"jacobian"`
	Eigenvalues    [2]Complex     `json:"eigenvalues"`
	Classification Classification `json:"type"`
	Hyperbolic     bool           `json:"hyperbolic"`
}

// EquilibriumBound discards roots farther out than this in either
// coordinate.
const EquilibriumBound = 100

// equilibriumGuesses spreads Newton starts over [-r, r]^2 on a 9x9 grid,
// after the unit points.
func equilibriumGuesses(r float64) []dynamo.State {
	guesses := []dynamo.State{
		{0, 0}, {1, 0}, {-1, 0}, {0, 1}, {0, -1},
		{1, 1}, {-1, -1}, {1, -1}, {-1, 1},
	}
	axis := make([]float64, 9)
	floats.Span(axis, -r, r)
	for _, y := range axis {
		for _, x := range axis {
			guesses = append(guesses, dynamo.State{x, y})
		}
	}
	return guesses
}

// Equilibria finds the zeros of f by multi-start Newton iteration over
// [-r, r]^2 and classifies each through AnalyzeLinear of its Jacobian.
// Points are sorted by x, then y.
func Equilibria(ctx context.Context, f PlanarField, r float64) ([]Equilibrium, error) {
	if !(r > 0) || math.IsInf(r, 0) {
		return nil, dynamo.Invalid("view_range", "must be positive, got %g", r)
	}
	if err := dynamo.Canceled(ctx, "equilibria", 0, 1); err != nil {
		return nil, err
	}
	residual := func(x dynamo.State) dynamo.State { return f.Derive(x, 0) }
	jacobian := func(x dynamo.State) mat.Matrix { return f.Jacobian(x) }
	roots := newtonRoots(residual, jacobian, equilibriumGuesses(r))

	out := make([]Equilibrium, 0, len(roots))
	for _, p := range roots {
		if math.Abs(p[0]) >= EquilibriumBound || math.Abs(p[1]) >= EquilibriumBound {
			continue
		}
		out = append(out, ClassifyEquilibrium(f, p))
	}
	sortEquilibria(out)
	return out, nil
}

// ClassifyEquilibrium linearizes f at p.
func ClassifyEquilibrium(f dynamo.Linearizable, p dynamo.State) Equilibrium {
	j := f.Jacobian(p)
	a := [2][2]float64{{j.At(0, 0), j.At(0, 1)}, {j.At(1, 0), j.At(1, 1)}}
	la := AnalyzeLinear(a)
	// snap -0 and root-finding noise for display
	x, y := clean(p[0]), clean(p[1])
	return Equilibrium{
		Point:          [2]float64{x, y},
		Formatted:      fmt.Sprintf("(%.3f, %.3f)", x, y),
		Jacobian:       a,
		Eigenvalues:    la.Eigenvalues,
		Classification: la.Classification,
		Hyperbolic:     la.Classification != Center && la.Classification != Degenerate,
	}
}

func clean(v float64) float64 {
	if math.Abs(v) < 1e-12 {
		return 0
	}
	return v
}

func sortEquilibria(eqs []Equilibrium) {
	sort.Slice(eqs, func(i, k int) bool {
		a, b := eqs[i].Point, eqs[k].Point
		if a[0] != b[0] {
			return a[0] < b[0]
		}
		return a[1] < b[1]
	})
}

// NonlinearPortrait is the vector field of a planar system on a grid with
// its nullclines, equilibria and sample trajectories.
type NonlinearPortrait struct {
	Field []Arrow `json:"vector_field"`
	// XNullcline holds points where dx/dt = 0, YNullcline where dy/dt = 0,
	// found by linear interpolation along grid edges.
	XNullcline   []Point            `json:"x_nullcline"`
	YNullcline   []Point            `json:"y_nullcline"`
	Equilibria   []Equilibrium      `json:"equilibria"`
	Trajectories []*PhasePortrait2D `json:"trajectories"`
}

func NonlinearPhasePortrait(ctx context.Context, f PlanarField, opts PortraitOptions) (*NonlinearPortrait, error) {
	steps, err := opts.check()
	if err != nil {
		return nil, err
	}
	out := &NonlinearPortrait{Field: sampleField(f, opts)}

	xs, ys := opts.axes()
	u := make([]float64, len(out.Field))
	v := make([]float64, len(out.Field))
	for i, a := range out.Field {
		d := f.Derive(dynamo.State{a.X, a.Y}, 0)
		u[i], v[i] = d[0], d[1]
	}
	out.XNullcline = zeroContour(xs, ys, u)
	out.YNullcline = zeroContour(xs, ys, v)

	r := math.Max(
		math.Max(math.Abs(opts.XRange[0]), math.Abs(opts.XRange[1])),
		math.Max(math.Abs(opts.YRange[0]), math.Abs(opts.YRange[1])),
	)
	eqs, err := Equilibria(ctx, f, r)
	if err != nil {
		return nil, err
	}
	for _, e := range eqs {
		if e.Point[0] >= opts.XRange[0] && e.Point[0] <= opts.XRange[1] &&
			e.Point[1] >= opts.YRange[0] && e.Point[1] <= opts.YRange[1] {
			out.Equilibria = append(out.Equilibria, e)
		}
	}

	out.Trajectories, err = seedTrajectories(ctx, f, opts, steps)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// zeroContour returns the points where a grid function, stored row by row
// from ys[0], changes sign along a horizontal or vertical edge, plus nodes
// where it is exactly zero.
func zeroContour(xs, ys, vals []float64) []Point {
	nx := len(xs)
	at := func(i, j int) float64 { return vals[j*nx+i] }
	var out []Point
	for j := range ys {
		for i := range xs {
			f := at(i, j)
			if f == 0 {
				out = append(out, Point{xs[i], ys[j]})
				continue
			}
			if i+1 < nx {
				if g := at(i+1, j); f*g < 0 {
					out = append(out, Point{xs[i] + (xs[i+1]-xs[i])*f/(f-g), ys[j]})
				}
			}
			if j+1 < len(ys) {
				if g := at(i, j+1); f*g < 0 {
					out = append(out, Point{xs[i], ys[j] + (ys[j+1]-ys[j])*f/(f-g)})
				}
			}
		}
	}
	return out
}
