package engine

import (
	"context"
	"time"

	"github.com/san-kum/phaselab/internal/analysis"
	"github.com/san-kum/phaselab/internal/dynamo"
	"github.com/san-kum/phaselab/internal/systems"
)

func toArray(m [][]float64) [2][2]float64 {
	return [2][2]float64{{m[0][0], m[0][1]}, {m[1][0], m[1][1]}}
}

// linearSystem resolves a validated 2x2 matrix into the linear flow.
func (e *Engine) linearSystem(m [][]float64) (*systems.System, error) {
	sys, err := e.registry.Resolve(systems.Spec{Kind: string(systems.Linear), Matrix: m})
	if err != nil {
		return nil, err
	}
	if err := analysis.CheckLinear(toArray(m)); err != nil {
		return nil, err
	}
	return sys, nil
}

// AnalyzeSystem classifies dx/dt = A x.
func (e *Engine) AnalyzeSystem(ctx context.Context, req AnalyzeSystemRequest) (res *analysis.LinearAnalysis, err error) {
	defer e.observe("analyze_system", time.Now(), &err)
	if err := e.check(req); err != nil {
		return nil, err
	}
	sys, err := e.linearSystem(req.Matrix)
	if err != nil {
		return nil, err
	}
	a, err := sys.Matrix()
	if err != nil {
		return nil, err
	}
	return analysis.AnalyzeLinear(a), nil
}

// PhasePortrait samples the vector field of a linear system on a grid and
// integrates sample trajectories from the seed points.
func (e *Engine) PhasePortrait(ctx context.Context, req PhasePortraitRequest) (res *analysis.LinearPortrait, err error) {
	defer e.observe("phase_portrait", time.Now(), &err)
	if err := e.check(req); err != nil {
		return nil, err
	}
	sys, err := e.linearSystem(req.Matrix)
	if err != nil {
		return nil, err
	}
	opts := analysis.DefaultPortraitOptions()
	if len(req.XRange) == 2 {
		opts.XRange = [2]float64{req.XRange[0], req.XRange[1]}
	}
	if len(req.YRange) == 2 {
		opts.YRange = [2]float64{req.YRange[0], req.YRange[1]}
	}
	if req.GridSize > 0 {
		opts.Grid = req.GridSize
	}
	if req.Dt > 0 {
		opts.Dt = req.Dt
	}
	if req.Duration > 0 {
		opts.Duration = req.Duration
	}
	for _, s := range req.Seeds {
		if !dynamo.State(s).IsValid() {
			return nil, dynamo.Invalid("initial_points", "must be finite")
		}
		opts.Seeds = append(opts.Seeds, [2]float64{s[0], s[1]})
	}
	if opts.Duration/opts.Dt > maxSamples {
		return nil, dynamo.Invalid("duration", "too many steps at dt=%g", opts.Dt)
	}
	return analysis.LinearPhasePortrait(ctx, sys.Flow(), toArray(req.Matrix), opts)
}

// LinearSweep varies one matrix entry and reports how the eigenvalues and
// the classification change.
func (e *Engine) LinearSweep(ctx context.Context, req LinearSweepRequest) (res *analysis.LinearSweep, err error) {
	defer e.observe("linear_sweep", time.Now(), &err)
	if err := e.check(req); err != nil {
		return nil, err
	}
	if _, err := e.linearSystem(req.Matrix); err != nil {
		return nil, err
	}
	entry := req.Entry
	if entry == "" {
		entry = "a11"
	}
	lo, hi := -2.0, 2.0
	if len(req.ParamRange) == 2 {
		lo, hi = req.ParamRange[0], req.ParamRange[1]
	}
	steps := req.ParamSteps
	if steps == 0 {
		steps = e.defaults.Bifurcation.Steps
	}
	return analysis.SweepLinear(ctx, toArray(req.Matrix), entry, lo, hi, steps)
}
