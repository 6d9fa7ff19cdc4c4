package engine

import (
	"context"
	"time"

	"github.com/san-kum/phaselab/internal/analysis"
	"github.com/san-kum/phaselab/internal/dynamo"
	"github.com/san-kum/phaselab/internal/integrators"
	"github.com/san-kum/phaselab/internal/physics"
)

const defaultViewRange = 5.0

// NonlinearInput is a planar system written as two expressions in x and y.
type NonlinearInput struct {
	DxDt string `json:"dx_dt" validate:"required,max=512"`
	DyDt string `json:"dy_dt" validate:"required,max=512"`
}

func (in NonlinearInput) planar() (*physics.Planar, error) {
	return physics.NewPlanar(in.DxDt, in.DyDt)
}

type Equations struct {
	DxDt string `json:"dx_dt"`
	DyDt string `json:"dy_dt"`
}

func (in NonlinearInput) equations() Equations { return Equations(in) }

type NonlinearAnalysisRequest struct {
	NonlinearInput
	ViewRange float64 `json:"view_range,omitempty" validate:"omitempty,gt=0,lte=1000"`
}

type NonlinearPortraitRequest struct {
	NonlinearInput
	ViewRange float64     `json:"view_range,omitempty" validate:"omitempty,gt=0,lte=1000"`
	GridSize  int         `json:"grid_size,omitempty" validate:"omitempty,min=2,max=200"`
	Seeds     [][]float64 `json:"initial_points,omitempty" validate:"omitempty,max=64,dive,len=2"`
	Dt        float64     `json:"dt,omitempty" validate:"omitempty,gt=0"`
	Duration  float64     `json:"duration,omitempty" validate:"omitempty,gt=0"`
}

type NonlinearTrajectoryRequest struct {
	NonlinearInput
	InitialPoint []float64 `json:"initial_point,omitempty" validate:"omitempty,len=2"`
	TSpan        []float64 `json:"t_span,omitempty" validate:"omitempty,len=2"`
	Dt           float64   `json:"dt,omitempty" validate:"omitempty,gt=0"`
}

type NonlinearAnalysisResult struct {
	Equations  Equations              `json:"equations"`
	Equilibria []analysis.Equilibrium `json:"equilibrium_points"`
	Message    string                 `json:"message,omitempty"`
}

type NonlinearPortraitResult struct {
	Equations Equations `json:"equations"`
	*analysis.NonlinearPortrait
}

type NonlinearTrajectoryResult struct {
	Equations  Equations      `json:"equations"`
	Dt         float64        `json:"dt"`
	Steps      int            `json:"n_steps"`
	Trajectory TrajectoryView `json:"trajectory"`
}

// AnalyzeNonlinear locates and classifies the equilibria of a planar
// system inside [-view_range, view_range]^2.
func (e *Engine) AnalyzeNonlinear(ctx context.Context, req NonlinearAnalysisRequest) (res *NonlinearAnalysisResult, err error) {
	defer e.observe("analyze_nonlinear", time.Now(), &err)
	if err := e.check(req); err != nil {
		return nil, err
	}
	f, err := req.planar()
	if err != nil {
		return nil, err
	}
	r := req.ViewRange
	if r == 0 {
		r = defaultViewRange
	}
	eqs, err := analysis.Equilibria(ctx, f, r)
	if err != nil {
		return nil, err
	}
	res = &NonlinearAnalysisResult{Equations: req.equations(), Equilibria: eqs}
	if len(eqs) == 0 {
		res.Message = "no equilibrium points found in the search region"
	}
	return res, nil
}

// NonlinearPortrait samples the field of a planar system on a square window
// with its nullclines, equilibria and sample trajectories.
func (e *Engine) NonlinearPortrait(ctx context.Context, req NonlinearPortraitRequest) (res *NonlinearPortraitResult, err error) {
	defer e.observe("nonlinear_portrait", time.Now(), &err)
	if err := e.check(req); err != nil {
		return nil, err
	}
	f, err := req.planar()
	if err != nil {
		return nil, err
	}
	opts := analysis.DefaultPortraitOptions()
	r := req.ViewRange
	if r == 0 {
		r = defaultViewRange
	}
	opts.XRange, opts.YRange = [2]float64{-r, r}, [2]float64{-r, r}
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
	p, err := analysis.NonlinearPhasePortrait(ctx, f, opts)
	if err != nil {
		return nil, err
	}
	return &NonlinearPortraitResult{Equations: req.equations(), NonlinearPortrait: p}, nil
}

// NonlinearTrajectory integrates a planar system from one initial point.
func (e *Engine) NonlinearTrajectory(ctx context.Context, req NonlinearTrajectoryRequest) (res *NonlinearTrajectoryResult, err error) {
	defer e.observe("nonlinear_trajectory", time.Now(), &err)
	if err := e.check(req); err != nil {
		return nil, err
	}
	f, err := req.planar()
	if err != nil {
		return nil, err
	}
	x0 := dynamo.State{1, 1}
	if req.InitialPoint != nil {
		x0 = dynamo.State(req.InitialPoint).Clone()
	}
	if !x0.IsValid() {
		return nil, dynamo.Invalid("initial_point", "must be finite")
	}
	span := req.TSpan
	if span == nil {
		span = []float64{0, 20}
	}
	dt := req.Dt
	if dt == 0 {
		dt = 0.01
	}
	t0, steps, err := e.flowSteps(span, dt)
	if err != nil {
		return nil, err
	}
	tr, err := integrators.Integrate(ctx, newStepper(), f, x0, dt, steps)
	if err != nil {
		return nil, err
	}
	shift(tr, t0)
	div, ext := replay(tr)
	return &NonlinearTrajectoryResult{
		Equations:  req.equations(),
		Dt:         dt,
		Steps:      steps,
		Trajectory: newView(tr, div, ext),
	}, nil
}

// Derivation spells out the eigenvalue and stability analysis of a linear
// system step by step.
func (e *Engine) Derivation(ctx context.Context, req AnalyzeSystemRequest) (res *analysis.Derivation, err error) {
	defer e.observe("derivation", time.Now(), &err)
	if err := e.check(req); err != nil {
		return nil, err
	}
	if _, err := e.linearSystem(req.Matrix); err != nil {
		return nil, err
	}
	return analysis.Derive(analysis.AnalyzeLinear(toArray(req.Matrix))), nil
}
