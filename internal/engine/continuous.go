package engine

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/san-kum/phaselab/internal/analysis"
	"github.com/san-kum/phaselab/internal/dynamo"
	"github.com/san-kum/phaselab/internal/integrators"
	"github.com/san-kum/phaselab/internal/metrics"
	"github.com/san-kum/phaselab/internal/systems"
)

// maxSamples bounds a single trajectory so one request cannot allocate
// without limit.
const maxSamples = 2_000_000

// convergenceWindow and convergenceVariance decide whether a map orbit has
// settled.
const (
	convergenceWindow   = 10
	convergenceVariance = 1e-6
)

// TrajectoryView is a serialisable trajectory. Samples past the first
// non-finite one are left out; Diverged and DivergedAt still describe the
// full run.
type TrajectoryView struct {
	Times           []float64   `json:"t"`
	States          [][]float64 `json:"states"`
	InitialState    []float64   `json:"initial_state"`
	Samples         int         `json:"samples"`
	Diverged        bool        `json:"diverged"`
	DivergedAt      int         `json:"diverged_at"`
	BoundedFraction float64     `json:"bounded_fraction"`
	Extent          float64     `json:"extent"`
	Converged       *bool       `json:"converged,omitempty"`

	Raw *dynamo.Trajectory `json:"-"`
}

type TrajectoryResult struct {
	Kind       systems.Kind     `json:"system_type"`
	Family     systems.Family   `json:"family"`
	Params     dynamo.Params    `json:"parameters"`
	Dt         float64          `json:"dt,omitempty"`
	Steps      int              `json:"n_steps"`
	Scale      float64          `json:"scale,omitempty"`
	Trajectory TrajectoryView   `json:"trajectory"`
	Ensemble   []TrajectoryView `json:"trajectories,omitempty"`
}

func newView(tr *dynamo.Trajectory, div *metrics.Divergence, ext *metrics.Extent) TrajectoryView {
	n := tr.FiniteLen()
	v := TrajectoryView{
		Times:           tr.Times[:n],
		States:          tr.Points()[:n],
		Samples:         tr.Len(),
		Diverged:        tr.Diverged,
		DivergedAt:      tr.DivergedAt,
		BoundedFraction: div.Value(),
		Extent:          ext.Value(),
		Raw:             tr,
	}
	if tr.Len() > 0 {
		v.InitialState = tr.States[0]
	}
	return v
}

// replay feeds an already recorded trajectory through fresh observers.
func replay(tr *dynamo.Trajectory) (*metrics.Divergence, *metrics.Extent) {
	div := metrics.NewDivergence(dynamo.DivergenceThreshold)
	ext := metrics.NewExtent()
	for i, x := range tr.States {
		div.Observe(x, tr.Times[i])
		ext.Observe(x, tr.Times[i])
	}
	return div, ext
}

func settled(tr *dynamo.Trajectory) bool {
	if tr.Diverged || tr.Len() < convergenceWindow {
		return false
	}
	for i := range tr.States[0] {
		if analysis.TailVariance(tr.Component(i), convergenceWindow) >= convergenceVariance {
			return false
		}
	}
	return true
}

func newStepper() dynamo.Integrator { return integrators.NewRK4() }

func (e *Engine) dtOr(dt float64) float64 {
	if dt > 0 {
		return dt
	}
	return e.defaults.Dt
}

// span returns the start time and the length of a [t0, t1] request field.
func (e *Engine) span(ts []float64) (float64, float64, error) {
	if len(ts) == 0 {
		return 0, e.defaults.TotalTime, nil
	}
	if math.IsNaN(ts[0]) || math.IsInf(ts[0], 0) || math.IsInf(ts[1], 0) || !(ts[1] > ts[0]) {
		return 0, 0, dynamo.Invalid("t_span", "end must be after start, got [%g, %g]", ts[0], ts[1])
	}
	return ts[0], ts[1] - ts[0], nil
}

// flowSteps validates a time span and step and returns the step count.
func (e *Engine) flowSteps(ts []float64, dt float64) (t0 float64, steps int, err error) {
	t0, total, err := e.span(ts)
	if err != nil {
		return 0, 0, err
	}
	steps, err = integrators.Steps(total, dt)
	if err != nil {
		return 0, 0, err
	}
	if steps > maxSamples {
		return 0, 0, dynamo.Invalid("t_span", "needs %d steps at dt=%g, limit is %d", steps, dt, maxSamples)
	}
	return t0, steps, nil
}

func shift(tr *dynamo.Trajectory, t0 float64) {
	if t0 == 0 || tr == nil {
		return
	}
	for i := range tr.Times {
		tr.Times[i] += t0
	}
}

// GenerateTrajectory integrates a flow over t_span with step dt, optionally
// as an ensemble of offset initial conditions, or iterates a map n_steps
// times after discarding transient iterates.
func (e *Engine) GenerateTrajectory(ctx context.Context, req TrajectoryRequest) (res *TrajectoryResult, err error) {
	defer e.observe("generate_trajectory", time.Now(), &err)
	if err := e.check(req); err != nil {
		return nil, err
	}
	sys, err := e.resolve(req.SystemInput, systems.Lorenz)
	if err != nil {
		return nil, err
	}
	x0, err := sys.InitialState("initial_conditions", req.initial())
	if err != nil {
		return nil, err
	}
	res = &TrajectoryResult{Kind: sys.Kind(), Family: sys.Model.Family, Params: sys.Params, Scale: sys.Model.Scale}

	if sys.Discrete() {
		if req.NumTrajectories > 1 {
			return nil, dynamo.Invalid("num_trajectories", "ensembles apply to flows only")
		}
		steps := req.NSteps
		if steps == 0 {
			steps = e.defaults.Map.Steps
		}
		div, ext := metrics.NewDivergence(dynamo.DivergenceThreshold), metrics.NewExtent()
		tr, err := integrators.Iterate(ctx, sys.Map(), x0, steps, req.Transient, div, ext)
		if err != nil {
			return nil, err
		}
		res.Steps = steps
		res.Trajectory = newView(tr, div, ext)
		ok := settled(tr)
		res.Trajectory.Converged = &ok
		e.countDivergence(sys, res.Trajectory)
		return res, nil
	}

	dt := e.dtOr(req.Dt)
	t0, steps, err := e.flowSteps(req.TSpan, dt)
	if err != nil {
		return nil, err
	}
	count := max(1, req.NumTrajectories)
	if count*(steps+1) > maxSamples {
		return nil, dynamo.Invalid("num_trajectories", "%d trajectories of %d samples exceed the limit of %d", count, steps+1, maxSamples)
	}
	offset := req.Offset
	if offset == 0 {
		offset = e.defaults.Ensemble.Offset
	}
	trs, err := integrators.NewEnsemble(newStepper, count, offset).Run(ctx, sys.Flow(), x0, dt, steps)
	if err != nil {
		return nil, err
	}

	res.Dt, res.Steps = dt, steps
	for _, tr := range trs {
		shift(tr, t0)
		div, ext := replay(tr)
		v := newView(tr, div, ext)
		e.countDivergence(sys, v)
		res.Ensemble = append(res.Ensemble, v)
	}
	res.Trajectory = res.Ensemble[0]
	if count == 1 {
		res.Ensemble = nil
	}
	return res, nil
}

func (e *Engine) countDivergence(sys *systems.System, v TrajectoryView) {
	if v.Diverged {
		metrics.DivergedRuns.WithLabelValues(string(sys.Kind())).Inc()
	}
}

type PoincareResult struct {
	Kind             systems.Kind            `json:"system_type"`
	Plane            string                  `json:"section_plane"`
	Value            float64                 `json:"section_value"`
	Intersections    []analysis.SectionPoint `json:"intersections"`
	Count            int                     `json:"count"`
	Trajectories     int                     `json:"trajectories"`
	TrajectoryPoints int                     `json:"trajectory_points"`
	Diverged         bool                    `json:"diverged"`
	Message          string                  `json:"message"`
}

// PoincareSection integrates an ensemble of the flow and pools the
// crossings of the section plane. Plane and value default to the system's
// own section.
func (e *Engine) PoincareSection(ctx context.Context, req PoincareRequest) (res *PoincareResult, err error) {
	defer e.observe("poincare_section", time.Now(), &err)
	if err := e.check(req); err != nil {
		return nil, err
	}
	sys, err := e.resolve(req.SystemInput, systems.Lorenz)
	if err != nil {
		return nil, err
	}
	if err := requireFamily(sys, "poincare_section", systems.FamilyContinuous, systems.FamilyLinear); err != nil {
		return nil, err
	}
	x0, err := sys.InitialState("initial_conditions", req.InitialConditions)
	if err != nil {
		return nil, err
	}

	plane, value := "x", 0.0
	if s := sys.Model.Section; s != nil {
		plane, value = s.Plane, s.Value
	}
	if req.SectionPlane != "" {
		plane = req.SectionPlane
	}
	if req.SectionValue != nil {
		value = *req.SectionValue
	}
	cross, _, _, err := analysis.PlaneAxes(plane)
	if err != nil {
		return nil, err
	}
	if cross >= sys.Dim() {
		return nil, dynamo.Invalid("section_plane", "%s has no %s axis", sys.Kind(), plane)
	}
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return nil, dynamo.Invalid("section_value", "must be finite")
	}

	dt := e.dtOr(req.Dt)
	t0, steps, err := e.flowSteps(req.TSpan, dt)
	if err != nil {
		return nil, err
	}
	count := req.NumTrajectories
	if count == 0 {
		count = e.defaults.Ensemble.Count
	}
	offset := req.Offset
	if offset == 0 {
		offset = e.defaults.Ensemble.Offset
	}
	if count*(steps+1) > maxSamples {
		return nil, dynamo.Invalid("num_trajectories", "%d trajectories of %d samples exceed the limit of %d", count, steps+1, maxSamples)
	}

	trs, err := integrators.NewEnsemble(newStepper, count, offset).Run(ctx, sys.Flow(), x0, dt, steps)
	if err != nil {
		return nil, err
	}
	res = &PoincareResult{Kind: sys.Kind(), Plane: plane, Value: value, Trajectories: count}
	for _, tr := range trs {
		shift(tr, t0)
		res.TrajectoryPoints += tr.Len()
		res.Diverged = res.Diverged || tr.Diverged
	}
	res.Intersections, err = analysis.PoincareSection(trs, plane, value)
	if err != nil {
		return nil, err
	}
	res.Count = len(res.Intersections)
	if res.Count == 0 {
		res.Message = fmt.Sprintf("no crossings of %s = %g; try a value inside the attractor", plane, value)
	} else {
		res.Message = fmt.Sprintf("found %d crossings of %s = %g", res.Count, plane, value)
	}
	return res, nil
}

type LyapunovResult struct {
	Kind    systems.Kind `json:"system_type"`
	Options any          `json:"options"`
	*analysis.LyapunovSpectrum
}

// CalculateLyapunov estimates the exponent spectrum. Flows use the
// variational method by default or the two-trajectory separation method;
// maps average the log growth of their Jacobian along one orbit.
func (e *Engine) CalculateLyapunov(ctx context.Context, req LyapunovRequest) (res *LyapunovResult, err error) {
	defer e.observe("calculate_lyapunov", time.Now(), &err)
	if err := e.check(req); err != nil {
		return nil, err
	}
	sys, err := e.resolve(req.SystemInput, systems.Lorenz)
	if err != nil {
		return nil, err
	}
	x0, err := sys.InitialState("initial_conditions", first(req.InitialConditions, req.X0))
	if err != nil {
		return nil, err
	}
	res = &LyapunovResult{Kind: sys.Kind()}

	if sys.Discrete() {
		opts := e.defaults.Lyapunov.MapOptions
		if req.NSteps > 0 {
			opts.Steps = req.NSteps
		}
		if req.Transient > 0 {
			opts.Transient = int(req.Transient)
		}
		res.Options = opts
		res.LyapunovSpectrum, err = analysis.MapSpectrum(ctx, sys.Map(), sys.Linearizable(), x0, opts)
		if err != nil {
			return nil, err
		}
		return res, nil
	}

	opts := e.defaults.Lyapunov.LyapunovOptions
	if req.Dt > 0 {
		opts.Dt = req.Dt
	}
	if req.Duration > 0 {
		opts.Duration = req.Duration
	}
	if req.Transient > 0 {
		opts.Transient = req.Transient
	}
	if req.RenormEvery > 0 {
		opts.RenormEvery = req.RenormEvery
	}
	if n := (opts.Transient + opts.Duration) / opts.Dt; n > maxSamples*10 {
		return nil, dynamo.Invalid("duration", "needs %.0f steps, limit is %d", n, maxSamples*10)
	}
	res.Options = opts

	switch req.Method {
	case "separation":
		res.LyapunovSpectrum, err = analysis.SeparationExponent(ctx, sys.Flow(), x0, opts)
	default:
		lf, ok := sys.Linearizable().(linearizedFlow)
		if !ok {
			return nil, dynamo.Invalid("method", "%s has no Jacobian", sys.Kind())
		}
		res.LyapunovSpectrum, err = analysis.FlowSpectrum(ctx, lf, x0, opts)
	}
	if err != nil {
		return nil, err
	}
	return res, nil
}

type linearizedFlow interface {
	dynamo.Flow
	dynamo.Linearizable
}

type FractalResult struct {
	Kind      systems.Kind `json:"system_type"`
	Generated int          `json:"trajectory_points"`
	Discarded int          `json:"transient_points"`
	*analysis.FractalEstimate
}

// fractalMapSteps is the default orbit length for map point clouds.
const fractalMapSteps = 5000

// FractalDimension generates an attractor point cloud, drops its transient
// and estimates box-counting and correlation dimensions.
func (e *Engine) FractalDimension(ctx context.Context, req FractalRequest) (res *FractalResult, err error) {
	defer e.observe("fractal_dimension", time.Now(), &err)
	if err := e.check(req); err != nil {
		return nil, err
	}
	sys, err := e.resolve(req.SystemInput, systems.Lorenz)
	if err != nil {
		return nil, err
	}
	x0, err := sys.InitialState("initial_conditions", first(req.InitialConditions, req.X0))
	if err != nil {
		return nil, err
	}
	opts := e.defaults.Fractal
	if req.MaxPoints > 0 {
		opts.MaxPoints = req.MaxPoints
	}
	if req.CorrelationSamples > 0 {
		opts.CorrelationSamples = req.CorrelationSamples
	}

	var tr *dynamo.Trajectory
	skip := 0
	if sys.Discrete() {
		steps := req.NSteps
		if steps == 0 {
			steps = fractalMapSteps
		}
		transient := int(req.Transient)
		if req.Transient == 0 {
			transient = e.defaults.Lyapunov.MapOptions.Transient
		}
		tr, err = integrators.Iterate(ctx, sys.Map(), x0, steps, transient)
	} else {
		dt := e.dtOr(req.Dt)
		var steps int
		_, steps, err = e.flowSteps(req.TSpan, dt)
		if err != nil {
			return nil, err
		}
		// Without an explicit transient the first tenth of the run is dropped.
		skip = steps / 10
		if req.Transient > 0 {
			skip = int(req.Transient / dt)
		}
		if skip >= steps {
			return nil, dynamo.Invalid("transient", "covers the whole run")
		}
		tr, err = integrators.Integrate(ctx, newStepper(), sys.Flow(), x0, dt, steps)
	}
	if err != nil {
		return nil, err
	}

	cloud := tr.Points()[skip:]
	res = &FractalResult{Kind: sys.Kind(), Generated: tr.Len(), Discarded: skip}
	res.FractalEstimate, err = analysis.FractalDimension(ctx, cloud, opts)
	if err != nil {
		return nil, err
	}
	return res, nil
}

type SpectrumResult struct {
	Kind      systems.Kind `json:"system_type"`
	Component int          `json:"component"`
	*analysis.PowerSpectrum
}

// Spectrum computes the power spectrum of one component of a trajectory.
// Map spectra use a unit sample spacing.
func (e *Engine) Spectrum(ctx context.Context, req SpectrumRequest) (res *SpectrumResult, err error) {
	defer e.observe("spectrum", time.Now(), &err)
	if err := e.check(req); err != nil {
		return nil, err
	}
	sys, err := e.resolve(req.SystemInput, systems.Lorenz)
	if err != nil {
		return nil, err
	}
	if req.Component >= sys.Dim() {
		return nil, dynamo.Invalid("component", "%s has %d components", sys.Kind(), sys.Dim())
	}
	x0, err := sys.InitialState("initial_conditions", first(req.InitialConditions, req.X0))
	if err != nil {
		return nil, err
	}

	var tr *dynamo.Trajectory
	spacing := 1.0
	if sys.Discrete() {
		steps := req.NSteps
		if steps == 0 {
			steps = e.defaults.Map.ReturnMapSteps
		}
		tr, err = integrators.Iterate(ctx, sys.Map(), x0, steps, e.defaults.Lyapunov.MapOptions.Transient)
	} else {
		spacing = e.dtOr(req.Dt)
		var steps int
		_, steps, err = e.flowSteps(req.TSpan, spacing)
		if err != nil {
			return nil, err
		}
		tr, err = integrators.Integrate(ctx, newStepper(), sys.Flow(), x0, spacing, steps)
	}
	if err != nil {
		return nil, err
	}
	series := tr.Component(req.Component)[:tr.FiniteLen()]
	res = &SpectrumResult{Kind: sys.Kind(), Component: req.Component}
	res.PowerSpectrum, err = analysis.Power(series, spacing)
	if err != nil {
		return nil, err
	}
	return res, nil
}
