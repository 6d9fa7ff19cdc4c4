package analysis

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/san-kum/phaselab/internal/dynamo"
)

// BifurcationPoint holds the post-transient samples for one parameter value.
type BifurcationPoint struct {
	Param  float64   `json:"parameter"`
	Values []float64 `json:"points"`
	// Diverged is set when the orbit left the divergence threshold; Values
	// then holds only the samples before that.
	Diverged bool `json:"diverged,omitempty"`
}

type BifurcationOptions struct {
	Param     string  `json:"param_name"`
	Min       float64 `json:"param_min"`
	Max       float64 `json:"param_max"`
	Steps     int     `json:"param_steps"`
	Transient int     `json:"transient"`
	Samples   int     `json:"samples"`
	// KeepPartial returns the completed parameter values alongside the
	// cancellation error instead of discarding them.
	KeepPartial bool `json:"keep_partial"`
}

type BifurcationDataset struct {
	Param   string             `json:"param_name"`
	Min     float64            `json:"param_min"`
	Max     float64            `json:"param_max"`
	Swapped bool               `json:"swapped"`
	Points  []BifurcationPoint `json:"data"`
	Partial bool               `json:"partial,omitempty"`
}

// MapBuilder returns a fresh map with the swept parameter set to v.
type MapBuilder func(v float64) dynamo.Map

// Bifurcation evaluates steps+1 evenly spaced parameter values in
// [Min, Max]. For each it restarts from x0, iterates Transient times and
// records the first component of the next Samples states. A reversed range
// is swapped and reported; a zero-width range is rejected. Parameter
// values are processed in parallel and assembled in order.
func Bifurcation(ctx context.Context, build MapBuilder, x0 dynamo.State, opts BifurcationOptions) (*BifurcationDataset, error) {
	lo, hi, swapped, err := checkRange(opts.Min, opts.Max, opts.Steps)
	if err != nil {
		return nil, err
	}
	if opts.Transient < 0 {
		return nil, dynamo.Invalid("transient", "must not be negative, got %d", opts.Transient)
	}
	if opts.Samples < 1 {
		return nil, dynamo.Invalid("samples", "must be at least 1, got %d", opts.Samples)
	}
	if err := dynamo.CheckDim("initial_state", x0, build(lo).StateDim()); err != nil {
		return nil, err
	}

	n := opts.Steps + 1
	points := make([]BifurcationPoint, n)
	filled := make([]bool, n)
	var completed atomic.Int64

	err = dynamo.ParallelFor(ctx, n, 8, func(ctx context.Context, start, end int) error {
		for i := start; i < end; i++ {
			if err := dynamo.Canceled(ctx, "bifurcation", int(completed.Load()), n); err != nil {
				return err
			}
			v := lo + float64(i)*(hi-lo)/float64(opts.Steps)
			points[i] = orbitSamples(build(v), x0, v, opts.Transient, opts.Samples)
			filled[i] = true
			completed.Add(1)
		}
		return nil
	})

	ds := &BifurcationDataset{Param: opts.Param, Min: lo, Max: hi, Swapped: swapped}
	if err != nil {
		var ce *dynamo.CancellationError
		if errors.As(err, &ce) {
			ce.Completed = int(completed.Load())
		}
		if !opts.KeepPartial {
			return nil, err
		}
		ds.Partial = true
		for i := range points {
			if filled[i] {
				ds.Points = append(ds.Points, points[i])
			}
		}
		return ds, err
	}
	ds.Points = points
	return ds, nil
}

func orbitSamples(m dynamo.Map, x0 dynamo.State, v float64, transient, samples int) BifurcationPoint {
	p := BifurcationPoint{Param: v, Values: make([]float64, 0, samples)}
	x := x0.Clone()
	for i := 0; i < transient; i++ {
		x = m.Next(x)
	}
	for i := 0; i < samples; i++ {
		x = m.Next(x)
		if x.Diverged() {
			p.Diverged = true
			break
		}
		p.Values = append(p.Values, x[0])
	}
	return p
}
