package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/san-kum/phaselab/internal/analysis"
	"github.com/san-kum/phaselab/internal/dynamo"
	"github.com/san-kum/phaselab/internal/integrators"
	"github.com/san-kum/phaselab/internal/maps"
	"github.com/san-kum/phaselab/internal/metrics"
	"github.com/san-kum/phaselab/internal/systems"
)

// maxIterations bounds the total map evaluations of one bifurcation scan.
const maxIterations = 500_000_000

func (e *Engine) discreteSystem(in SystemInput, op string) (*systems.System, error) {
	sys, err := e.resolve(in, systems.Logistic)
	if err != nil {
		return nil, err
	}
	if err := requireFamily(sys, op, systems.FamilyDiscrete); err != nil {
		return nil, err
	}
	return sys, nil
}

type DiscreteAnalysis struct {
	Kind           systems.Kind               `json:"map_type"`
	Params         dynamo.Params              `json:"parameters"`
	Dimension      int                        `json:"dimension"`
	FixedPoints    [][]float64                `json:"fixed_points"`
	Stability      []analysis.FixedPoint      `json:"stability_analysis"`
	PeriodicOrbits []analysis.PeriodicOrbit   `json:"periodic_orbits"`
	Lyapunov       *analysis.LyapunovSpectrum `json:"lyapunov_analysis"`
	Features       systems.Features           `json:"features"`
}

// AnalyzeDiscreteSystem finds the fixed points of a map and classifies
// them, searches one-dimensional maps for cycles up to max_period, and
// estimates the Lyapunov spectrum along the orbit of x0.
func (e *Engine) AnalyzeDiscreteSystem(ctx context.Context, req DiscreteAnalysisRequest) (res *DiscreteAnalysis, err error) {
	defer e.observe("analyze_discrete_system", time.Now(), &err)
	if err := e.check(req); err != nil {
		return nil, err
	}
	sys, err := e.discreteSystem(req.SystemInput, "analyze_discrete_system")
	if err != nil {
		return nil, err
	}
	x0, err := sys.InitialState("x0", req.X0)
	if err != nil {
		return nil, err
	}
	search := e.defaults.Discrete
	if req.MaxPeriod > 0 {
		search.MaxPeriod = req.MaxPeriod
	}

	m := sys.Map()
	fps, err := analysis.FixedPoints(m, search)
	if err != nil {
		return nil, err
	}
	res = &DiscreteAnalysis{
		Kind:           sys.Kind(),
		Params:         sys.Params,
		Dimension:      sys.Dim(),
		FixedPoints:    make([][]float64, 0, len(fps)),
		Stability:      make([]analysis.FixedPoint, 0, len(fps)),
		PeriodicOrbits: []analysis.PeriodicOrbit{},
		Features:       sys.Model.Features,
	}
	for _, fp := range fps {
		res.FixedPoints = append(res.FixedPoints, fp)
		res.Stability = append(res.Stability, analysis.ClassifyFixedPoint(sys.Linearizable(), fp))
	}
	if s, ok := m.(maps.Scalar); ok {
		orbits, err := analysis.PeriodicOrbits(ctx, s, search)
		if err != nil {
			return nil, err
		}
		res.PeriodicOrbits = append(res.PeriodicOrbits, orbits...)
	}
	res.Lyapunov, err = analysis.MapSpectrum(ctx, m, sys.Linearizable(), x0, e.defaults.Lyapunov.MapOptions)
	if err != nil {
		return nil, err
	}
	return res, nil
}

type BifurcationResult struct {
	Kind      systems.Kind `json:"map_type"`
	Transient int          `json:"transient"`
	Samples   int          `json:"samples"`
	Message   string       `json:"message,omitempty"`
	*analysis.BifurcationDataset
}

// GenerateBifurcationDiagram scans one map parameter. Name, range and
// orbit lengths default to the map's own sweep. With keep_partial a
// canceled scan returns the completed parameter values together with the
// cancellation error.
func (e *Engine) GenerateBifurcationDiagram(ctx context.Context, req BifurcationRequest) (res *BifurcationResult, err error) {
	defer e.observe("generate_bifurcation_diagram", time.Now(), &err)
	if err := e.check(req); err != nil {
		return nil, err
	}
	sys, err := e.discreteSystem(req.SystemInput, "generate_bifurcation_diagram")
	if err != nil {
		return nil, err
	}
	x0, err := sys.InitialState("x0", req.X0)
	if err != nil {
		return nil, err
	}

	sweep := sys.Model.Sweep
	name := req.ParamName
	if name == "" {
		name = sys.Model.Params[0].Name
		if sweep != nil {
			name = sweep.Param
		}
	}
	if !sys.Model.HasParam(name) {
		return nil, dynamo.Invalid("param_name", "%s has no parameter %s", sys.Kind(), name)
	}

	opts := analysis.BifurcationOptions{
		Param:       name,
		Steps:       e.defaults.Bifurcation.Steps,
		Transient:   e.defaults.Bifurcation.Transient,
		Samples:     e.defaults.Bifurcation.Samples,
		KeepPartial: req.KeepPartial,
	}
	if sweep != nil && sweep.Param == name {
		opts.Min, opts.Max = sweep.Min, sweep.Max
		opts.Transient, opts.Samples = sweep.Transient, sweep.Samples
	} else {
		for _, ps := range sys.Model.Params {
			if ps.Name == name {
				opts.Min, opts.Max = ps.Min, ps.Max
			}
		}
	}
	if len(req.ParamRange) == 2 {
		opts.Min, opts.Max = req.ParamRange[0], req.ParamRange[1]
	}
	if req.ParamSteps > 0 {
		opts.Steps = req.ParamSteps
	}
	if req.Transient > 0 {
		opts.Transient = req.Transient
	}
	if req.Samples > 0 {
		opts.Samples = req.Samples
	}
	if cost := (opts.Steps + 1) * (opts.Transient + opts.Samples); cost > maxIterations {
		return nil, dynamo.Invalid("param_steps", "scan needs %d iterations, limit is %d", cost, maxIterations)
	}

	build := func(v float64) dynamo.Map {
		s, _ := sys.WithParam(name, v)
		return s.Map()
	}
	ds, err := analysis.Bifurcation(ctx, build, x0, opts)
	if ds == nil {
		return nil, err
	}
	res = &BifurcationResult{Kind: sys.Kind(), Transient: opts.Transient, Samples: opts.Samples, BifurcationDataset: ds}
	if ds.Swapped {
		res.Message = fmt.Sprintf("param_range was reversed; scanned [%g, %g]", ds.Min, ds.Max)
	}
	diverged := 0
	for _, p := range ds.Points {
		if p.Diverged {
			diverged++
		}
	}
	metrics.DivergedRuns.WithLabelValues(string(sys.Kind())).Add(float64(diverged))
	return res, err
}

type CobwebResult struct {
	Kind systems.Kind `json:"map_type"`
	*analysis.CobwebPlot
}

// GenerateCobwebPlot builds the cobweb staircase of a one-dimensional map.
func (e *Engine) GenerateCobwebPlot(ctx context.Context, req CobwebRequest) (res *CobwebResult, err error) {
	defer e.observe("generate_cobweb_plot", time.Now(), &err)
	if err := e.check(req); err != nil {
		return nil, err
	}
	sys, err := e.discreteSystem(req.SystemInput, "generate_cobweb_plot")
	if err != nil {
		return nil, err
	}
	s, ok := sys.Map().(maps.Scalar)
	if !ok {
		return nil, errDim("cobweb", sys, "one-dimensional")
	}
	x0, err := sys.InitialState("x0", req.X0)
	if err != nil {
		return nil, err
	}
	steps := req.NSteps
	if steps == 0 {
		steps = e.defaults.Map.CobwebSteps
	}
	cw, err := analysis.Cobweb(s, x0[0], steps)
	if err != nil {
		return nil, err
	}
	return &CobwebResult{Kind: sys.Kind(), CobwebPlot: cw}, nil
}

type ReturnMapResult struct {
	Kind systems.Kind `json:"map_type"`
	*analysis.ReturnMap
}

// GenerateReturnMap pairs x_n with x_{n+delay} along the first component
// of an orbit.
func (e *Engine) GenerateReturnMap(ctx context.Context, req ReturnMapRequest) (res *ReturnMapResult, err error) {
	defer e.observe("generate_return_map", time.Now(), &err)
	if err := e.check(req); err != nil {
		return nil, err
	}
	sys, err := e.discreteSystem(req.SystemInput, "generate_return_map")
	if err != nil {
		return nil, err
	}
	x0, err := sys.InitialState("x0", req.X0)
	if err != nil {
		return nil, err
	}
	steps := req.NSteps
	if steps == 0 {
		steps = e.defaults.Map.ReturnMapSteps
	}
	delay := req.Delay
	if delay == 0 {
		delay = 1
	}
	if delay > steps {
		return nil, dynamo.Invalid("delay", "must not exceed n_steps (%d), got %d", steps, delay)
	}
	trim := req.Trim == nil || *req.Trim

	tr, err := integrators.Iterate(ctx, sys.Map(), x0, steps, 0)
	if err != nil {
		return nil, err
	}
	rm, err := analysis.ReturnMapOf(tr, delay, trim, steps)
	if err != nil {
		return nil, err
	}
	return &ReturnMapResult{Kind: sys.Kind(), ReturnMap: rm}, nil
}

type DiscretePortraitResult struct {
	Kind     systems.Kind `json:"map_type"`
	Diverged bool         `json:"diverged"`
	*analysis.PhasePortrait2D
}

// DiscretePhasePortrait iterates a planar map and returns its orbit.
func (e *Engine) DiscretePhasePortrait(ctx context.Context, req DiscretePortraitRequest) (res *DiscretePortraitResult, err error) {
	defer e.observe("discrete_phase_portrait", time.Now(), &err)
	if err := e.check(req); err != nil {
		return nil, err
	}
	sys, err := e.resolve(req.SystemInput, systems.Henon)
	if err != nil {
		return nil, err
	}
	if err := requireFamily(sys, "discrete_phase_portrait", systems.FamilyDiscrete); err != nil {
		return nil, err
	}
	if sys.Dim() != 2 {
		return nil, errDim("discrete phase portrait", sys, "two-dimensional")
	}
	x0, err := sys.InitialState("x0", req.X0)
	if err != nil {
		return nil, err
	}
	steps := req.NSteps
	if steps == 0 {
		steps = e.defaults.Map.ReturnMapSteps
	}
	tr, err := integrators.Iterate(ctx, sys.Map(), x0, steps, 0)
	if err != nil {
		return nil, err
	}
	pp, err := analysis.Project(tr, 0, 1)
	if err != nil {
		return nil, err
	}
	return &DiscretePortraitResult{Kind: sys.Kind(), Diverged: tr.Diverged, PhasePortrait2D: pp}, nil
}
