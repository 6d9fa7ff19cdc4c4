package analysis

import (
	"context"
	"math"

	"github.com/san-kum/phaselab/internal/dynamo"
	"github.com/san-kum/phaselab/internal/integrators"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// PhasePortrait2D is the projection of a trajectory onto two coordinates.
type PhasePortrait2D struct {
	XIndex int       `json:"x_index"`
	YIndex int       `json:"y_index"`
	X      []float64 `json:"x"`
	Y      []float64 `json:"y"`
}

// Project returns the finite prefix of tr projected on coordinates xIdx, yIdx.
func Project(tr *dynamo.Trajectory, xIdx, yIdx int) (*PhasePortrait2D, error) {
	if tr.Len() == 0 {
		return &PhasePortrait2D{XIndex: xIdx, YIndex: yIdx}, nil
	}
	dim := len(tr.States[0])
	if xIdx < 0 || yIdx < 0 || xIdx >= dim || yIdx >= dim {
		return nil, dynamo.Invalid("axes", "indices %d,%d out of range for dimension %d", xIdx, yIdx, dim)
	}
	n := tr.FiniteLen()
	return &PhasePortrait2D{
		XIndex: xIdx,
		YIndex: yIdx,
		X:      tr.Component(xIdx)[:n],
		Y:      tr.Component(yIdx)[:n],
	}, nil
}

// Arrow is one sample of a planar vector field.
type Arrow struct {
	X  float64 `json:"x"`
	Y  float64 `json:"y"`
	DX float64 `json:"dx"`
	DY float64 `json:"dy"`
}

// LinearPortrait is the vector field of dx/dt = A x on a grid plus sample
// trajectories from seed points.
type LinearPortrait struct {
	Field        []Arrow            `json:"vector_field"`
	Trajectories []*PhasePortrait2D `json:"trajectories"`
	Analysis     *LinearAnalysis    `json:"analysis"`
}

type PortraitOptions struct {
	XRange [2]float64 `json:"x_range"`
	YRange [2]float64 `json:"y_range"`
	Grid   int        `json:"grid_size"`
	// Seeds are trajectory starting points; nil places eight on a circle.
	Seeds    [][2]float64 `json:"seeds,omitempty"`
	Dt       float64      `json:"dt"`
	Duration float64      `json:"duration"`
}

func DefaultPortraitOptions() PortraitOptions {
	return PortraitOptions{XRange: [2]float64{-3.5, 3.5}, YRange: [2]float64{-3.5, 3.5}, Grid: 20, Dt: 0.02, Duration: 10}
}

func LinearPhasePortrait(ctx context.Context, f dynamo.Flow, a [2][2]float64, opts PortraitOptions) (*LinearPortrait, error) {
	steps, err := opts.check()
	if err != nil {
		return nil, err
	}
	lp := &LinearPortrait{Field: sampleField(f, opts), Analysis: AnalyzeLinear(a)}
	lp.Trajectories, err = seedTrajectories(ctx, f, opts, steps)
	if err != nil {
		return nil, err
	}
	return lp, nil
}

// check validates the grid and window and returns the per-seed step count.
func (o PortraitOptions) check() (int, error) {
	if o.Grid < 2 {
		return 0, dynamo.Invalid("grid_size", "must be at least 2, got %d", o.Grid)
	}
	if !(o.XRange[0] < o.XRange[1]) || !(o.YRange[0] < o.YRange[1]) {
		return 0, dynamo.Invalid("x_range", "ranges must be increasing")
	}
	return integrators.Steps(o.Duration, o.Dt)
}

func (o PortraitOptions) axes() ([]float64, []float64) {
	xs := make([]float64, o.Grid)
	ys := make([]float64, o.Grid)
	floats.Span(xs, o.XRange[0], o.XRange[1])
	floats.Span(ys, o.YRange[0], o.YRange[1])
	return xs, ys
}

// sampleField evaluates f on the grid, row by row from the bottom. Non-finite
// components are reported as zero.
func sampleField(f dynamo.Flow, opts PortraitOptions) []Arrow {
	xs, ys := opts.axes()
	out := make([]Arrow, 0, len(xs)*len(ys))
	for _, y := range ys {
		for _, x := range xs {
			d := f.Derive(dynamo.State{x, y}, 0)
			out = append(out, Arrow{x, y, finiteOr0(d[0]), finiteOr0(d[1])})
		}
	}
	return out
}

func finiteOr0(v float64) float64 {
	if isFinite(v) {
		return v
	}
	return 0
}

// seedTrajectories integrates from each seed, or from eight points on a
// circle inside the window when no seeds are given.
func seedTrajectories(ctx context.Context, f dynamo.Flow, opts PortraitOptions, steps int) ([]*PhasePortrait2D, error) {
	seeds := opts.Seeds
	if seeds == nil {
		r := 0.8 * math.Min(opts.XRange[1]-opts.XRange[0], opts.YRange[1]-opts.YRange[0]) / 2
		cx := (opts.XRange[0] + opts.XRange[1]) / 2
		cy := (opts.YRange[0] + opts.YRange[1]) / 2
		for k := 0; k < 8; k++ {
			s, c := math.Sincos(float64(k) * math.Pi / 4)
			seeds = append(seeds, [2]float64{cx + r*c, cy + r*s})
		}
	}
	out := make([]*PhasePortrait2D, 0, len(seeds))
	for _, s := range seeds {
		tr, err := integrators.Integrate(ctx, integrators.NewRK4(), f, dynamo.State{s[0], s[1]}, opts.Dt, steps)
		if err != nil {
			return nil, err
		}
		pp, _ := Project(tr, 0, 1)
		out = append(out, pp)
	}
	return out, nil
}

// TailVariance is the variance of the last n values, used to tell a
// settled orbit from a wandering one.
func TailVariance(values []float64, n int) float64 {
	if n > len(values) {
		n = len(values)
	}
	if n < 2 {
		return 0
	}
	return stat.Variance(values[len(values)-n:], nil)
}
