package engine

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/san-kum/phaselab/internal/dynamo"
	"github.com/san-kum/phaselab/internal/systems"
)

// Vector is a state given either as a JSON number or as an array.
type Vector []float64

func (v *Vector) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case bytes.Equal(b, []byte("null")):
		*v = nil
		return nil
	case len(b) > 0 && b[0] == '[':
		var xs []float64
		if err := json.Unmarshal(b, &xs); err != nil {
			return err
		}
		*v = xs
		return nil
	}
	var x float64
	if err := json.Unmarshal(b, &x); err != nil {
		return fmt.Errorf("state must be a number or an array of numbers: %w", err)
	}
	*v = Vector{x}
	return nil
}

// first returns the first non-empty vector.
func first(vs ...Vector) []float64 {
	for _, v := range vs {
		if len(v) > 0 {
			return v
		}
	}
	return nil
}

// SystemInput names the system of a request. map_type takes precedence
// over system_type; a bare matrix selects the linear system.
type SystemInput struct {
	SystemType string        `json:"system_type,omitempty"`
	MapType    string        `json:"map_type,omitempty"`
	Matrix     [][]float64   `json:"matrix,omitempty" validate:"omitempty,len=2,dive,len=2"`
	Parameters dynamo.Params `json:"parameters,omitempty"`
	Dimension  int           `json:"dimension,omitempty" validate:"omitempty,oneof=1 2 3"`
}

func (in SystemInput) Spec(fallback systems.Kind) systems.Spec {
	kind := in.MapType
	if kind == "" {
		kind = in.SystemType
	}
	if kind == "" && in.Matrix != nil {
		kind = string(systems.Linear)
	}
	if kind == "" {
		kind = string(fallback)
	}
	return systems.Spec{Kind: kind, Params: in.Parameters, Matrix: in.Matrix, Dimension: in.Dimension}
}

type AnalyzeSystemRequest struct {
	Matrix [][]float64 `json:"matrix" validate:"required,len=2,dive,len=2"`
}

type PhasePortraitRequest struct {
	Matrix   [][]float64 `json:"matrix" validate:"required,len=2,dive,len=2"`
	XRange   []float64   `json:"x_range,omitempty" validate:"omitempty,len=2"`
	YRange   []float64   `json:"y_range,omitempty" validate:"omitempty,len=2"`
	GridSize int         `json:"grid_size,omitempty" validate:"omitempty,min=2,max=200"`
	Seeds    [][]float64 `json:"initial_points,omitempty" validate:"omitempty,max=64,dive,len=2"`
	Dt       float64     `json:"dt,omitempty" validate:"omitempty,gt=0"`
	Duration float64     `json:"duration,omitempty" validate:"omitempty,gt=0"`
}

type LinearSweepRequest struct {
	Matrix     [][]float64 `json:"matrix" validate:"required,len=2,dive,len=2"`
	Entry      string      `json:"param_name,omitempty" validate:"omitempty,oneof=a11 a12 a21 a22"`
	ParamRange []float64   `json:"param_range,omitempty" validate:"omitempty,len=2"`
	ParamSteps int         `json:"param_steps,omitempty" validate:"omitempty,min=1,max=100000"`
}

// TrajectoryRequest covers flows (t_span, dt) and maps (n_steps). The
// initial state may be given under any of the three historical names.
type TrajectoryRequest struct {
	SystemInput
	InitialConditions Vector    `json:"initial_conditions,omitempty" validate:"omitempty,max=3"`
	X0                Vector    `json:"x0,omitempty" validate:"omitempty,max=3"`
	InitialPoint      Vector    `json:"initial_point,omitempty" validate:"omitempty,max=3"`
	TSpan             []float64 `json:"t_span,omitempty" validate:"omitempty,len=2"`
	Dt                float64   `json:"dt,omitempty" validate:"omitempty,gt=0"`
	NSteps            int       `json:"n_steps,omitempty" validate:"omitempty,min=1,max=1000000"`
	Transient         int       `json:"transient,omitempty" validate:"omitempty,min=0,max=1000000"`
	NumTrajectories   int       `json:"num_trajectories,omitempty" validate:"omitempty,min=1,max=64"`
	Offset            float64   `json:"offset,omitempty"`
}

func (r TrajectoryRequest) initial() []float64 { return first(r.InitialConditions, r.X0, r.InitialPoint) }

type PoincareRequest struct {
	SystemInput
	InitialConditions Vector    `json:"initial_conditions,omitempty" validate:"omitempty,max=3"`
	TSpan             []float64 `json:"t_span,omitempty" validate:"omitempty,len=2"`
	Dt                float64   `json:"dt,omitempty" validate:"omitempty,gt=0"`
	SectionPlane      string    `json:"section_plane,omitempty" validate:"omitempty,oneof=x y z"`
	SectionValue      *float64  `json:"section_value,omitempty"`
	NumTrajectories   int       `json:"num_trajectories,omitempty" validate:"omitempty,min=1,max=64"`
	Offset            float64   `json:"offset,omitempty"`
}

type LyapunovRequest struct {
	SystemInput
	InitialConditions Vector  `json:"initial_conditions,omitempty" validate:"omitempty,max=3"`
	X0                Vector  `json:"x0,omitempty" validate:"omitempty,max=3"`
	Method            string  `json:"method,omitempty" validate:"omitempty,oneof=variational separation"`
	Dt                float64 `json:"dt,omitempty" validate:"omitempty,gt=0"`
	Duration          float64 `json:"duration,omitempty" validate:"omitempty,gt=0"`
	Transient         float64 `json:"transient,omitempty" validate:"omitempty,min=0"`
	RenormEvery       int     `json:"renorm_every,omitempty" validate:"omitempty,min=1"`
	NSteps            int     `json:"n_steps,omitempty" validate:"omitempty,min=1,max=10000000"`
}

type FractalRequest struct {
	SystemInput
	InitialConditions  Vector    `json:"initial_conditions,omitempty" validate:"omitempty,max=3"`
	X0                 Vector    `json:"x0,omitempty" validate:"omitempty,max=3"`
	TSpan              []float64 `json:"t_span,omitempty" validate:"omitempty,len=2"`
	Dt                 float64   `json:"dt,omitempty" validate:"omitempty,gt=0"`
	Transient          float64   `json:"transient,omitempty" validate:"omitempty,min=0"`
	NSteps             int       `json:"n_steps,omitempty" validate:"omitempty,min=2,max=1000000"`
	MaxPoints          int       `json:"max_points,omitempty" validate:"omitempty,min=2"`
	CorrelationSamples int       `json:"correlation_samples,omitempty" validate:"omitempty,min=2,max=20000"`
}

type DiscreteAnalysisRequest struct {
	SystemInput
	X0        Vector `json:"x0,omitempty" validate:"omitempty,max=2"`
	MaxPeriod int    `json:"max_period,omitempty" validate:"omitempty,min=1,max=16"`
}

type BifurcationRequest struct {
	SystemInput
	X0          Vector    `json:"x0,omitempty" validate:"omitempty,max=2"`
	ParamName   string    `json:"param_name,omitempty"`
	ParamRange  []float64 `json:"param_range,omitempty" validate:"omitempty,len=2"`
	ParamSteps  int       `json:"param_steps,omitempty" validate:"omitempty,min=1,max=100000"`
	Transient   int       `json:"transient,omitempty" validate:"omitempty,min=0,max=1000000"`
	Samples     int       `json:"samples,omitempty" validate:"omitempty,min=1,max=10000"`
	KeepPartial bool      `json:"keep_partial,omitempty"`
}

type CobwebRequest struct {
	SystemInput
	X0     Vector `json:"x0,omitempty" validate:"omitempty,max=1"`
	NSteps int    `json:"n_steps,omitempty" validate:"omitempty,min=1,max=10000"`
}

type ReturnMapRequest struct {
	SystemInput
	X0     Vector `json:"x0,omitempty" validate:"omitempty,max=2"`
	NSteps int    `json:"n_steps,omitempty" validate:"omitempty,min=1,max=1000000"`
	Delay  int    `json:"delay,omitempty" validate:"omitempty,min=1,max=1000"`
	// Trim cuts a settled one-dimensional orbit; it defaults to true.
	Trim *bool `json:"trim,omitempty"`
}

type DiscretePortraitRequest struct {
	SystemInput
	X0     Vector `json:"x0,omitempty" validate:"omitempty,max=2"`
	NSteps int    `json:"n_steps,omitempty" validate:"omitempty,min=1,max=1000000"`
}

type SpectrumRequest struct {
	SystemInput
	InitialConditions Vector    `json:"initial_conditions,omitempty" validate:"omitempty,max=3"`
	X0                Vector    `json:"x0,omitempty" validate:"omitempty,max=3"`
	TSpan             []float64 `json:"t_span,omitempty" validate:"omitempty,len=2"`
	Dt                float64   `json:"dt,omitempty" validate:"omitempty,gt=0"`
	NSteps            int       `json:"n_steps,omitempty" validate:"omitempty,min=4,max=1000000"`
	Component         int       `json:"component,omitempty" validate:"omitempty,min=0,max=2"`
}
