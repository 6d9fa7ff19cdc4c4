package systems

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/san-kum/phaselab/internal/dynamo"
)

// Spec identifies a system to analyse. Linear systems carry Matrix; every
// other kind carries Params. An empty Params selects the model defaults; a
// non-empty Params must name exactly the model's parameters.
type Spec struct {
	Kind      string        `json:"kind" yaml:"kind" validate:"required"`
	Params    dynamo.Params `json:"params,omitempty" yaml:"params,omitempty"`
	Matrix    [][]float64   `json:"matrix,omitempty" yaml:"matrix,omitempty"`
	Dimension int           `json:"dimension,omitempty" yaml:"dimension,omitempty" validate:"omitempty,oneof=1 2 3"`
}

// System is a resolved Spec: a model plus one concrete parameter set.
type System struct {
	Model  *Model
	Params dynamo.Params

	flow flowModel
	m    mapModel
}

// Resolve validates spec and builds its system.
func (r *Registry) Resolve(spec Spec) (*System, error) {
	model, err := r.Get(spec.Kind)
	if err != nil {
		return nil, err
	}
	if spec.Dimension != 0 && spec.Dimension != model.Dim {
		return nil, &dynamo.ValidationError{
			Field:   "dimension",
			Reason:  fmt.Sprintf("%s has dimension %d, got %d", model.Kind, model.Dim, spec.Dimension),
			Wrapped: dynamo.ErrDimensionMismatch,
		}
	}

	params := spec.Params
	if spec.Matrix != nil && model.Kind != Linear {
		return nil, dynamo.Invalid("matrix", "matrix is only accepted for the linear system, not %s", model.Kind)
	}
	if spec.Matrix != nil {
		if len(params) > 0 {
			return nil, dynamo.Invalid("matrix", "give either matrix or params, not both")
		}
		params, err = matrixParams(spec.Matrix)
		if err != nil {
			return nil, err
		}
	}
	if len(params) == 0 {
		params = model.DefaultParams()
	}
	if err := model.CheckParams(params); err != nil {
		return nil, err
	}
	return model.Build(params), nil
}

// CheckParams requires params to contain exactly the model's parameter
// names, each finite.
func (m *Model) CheckParams(params dynamo.Params) error {
	var missing, unknown []string
	for _, ps := range m.Params {
		if _, ok := params[ps.Name]; !ok {
			missing = append(missing, ps.Name)
		}
	}
	for _, name := range params.Keys() {
		if !m.HasParam(name) {
			unknown = append(unknown, name)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return dynamo.Invalid("params", "%s is missing %s", m.Kind, strings.Join(missing, ", "))
	}
	if len(unknown) > 0 {
		return dynamo.Invalid("params", "%s has no parameter %s", m.Kind, strings.Join(unknown, ", "))
	}
	for _, name := range params.Keys() {
		if v := params[name]; math.IsNaN(v) || math.IsInf(v, 0) {
			return dynamo.Invalid("params."+name, "must be finite")
		}
	}
	return nil
}

// Build constructs a system from an already validated parameter set.
func (m *Model) Build(params dynamo.Params) *System {
	s := &System{Model: m, Params: params.Clone()}
	var setter paramSetter
	if m.newFlow != nil {
		s.flow = m.newFlow()
		setter = s.flow
	} else {
		s.m = m.newMap()
		setter = s.m
	}
	for name, v := range params {
		setter.SetParam(name, v)
	}
	return s
}

func matrixParams(a [][]float64) (dynamo.Params, error) {
	if len(a) != 2 || len(a[0]) != 2 || len(a[1]) != 2 {
		return nil, &dynamo.ValidationError{Field: "matrix", Reason: "must be 2x2", Wrapped: dynamo.ErrDimensionMismatch}
	}
	return dynamo.Params{"a11": a[0][0], "a12": a[0][1], "a21": a[1][0], "a22": a[1][1]}, nil
}

func (s *System) Kind() Kind     { return s.Model.Kind }
func (s *System) Dim() int       { return s.Model.Dim }
func (s *System) Discrete() bool { return s.Model.Discrete() }

// Flow returns the vector field, or nil for a map.
func (s *System) Flow() dynamo.Flow {
	if s.flow == nil {
		return nil
	}
	return s.flow
}

// Map returns the map, or nil for a flow.
func (s *System) Map() dynamo.Map {
	if s.m == nil {
		return nil
	}
	return s.m
}

// Linearizable returns the Jacobian provider of the underlying system.
func (s *System) Linearizable() dynamo.Linearizable {
	if s.flow != nil {
		return s.flow
	}
	return s.m
}

// WithParam returns a fresh system with one parameter overridden.
func (s *System) WithParam(name string, v float64) (*System, error) {
	if !s.Model.HasParam(name) {
		return nil, dynamo.Invalid("param_name", "%s has no parameter %s", s.Model.Kind, name)
	}
	return s.Model.Build(s.Params.With(name, v)), nil
}

// InitialState returns x0, or the model default when x0 is empty, after
// checking its dimension.
func (s *System) InitialState(field string, x0 []float64) (dynamo.State, error) {
	if len(x0) == 0 {
		return s.Model.InitialState.Clone(), nil
	}
	x := dynamo.State(x0).Clone()
	if err := dynamo.CheckDim(field, x, s.Model.Dim); err != nil {
		return nil, err
	}
	return x, nil
}

// Matrix returns the 2x2 matrix of a linear system or map.
func (s *System) Matrix() ([2][2]float64, error) {
	switch s.Model.Kind {
	case Linear, Linear2D:
		p := s.Params
		return [2][2]float64{{p["a11"], p["a12"]}, {p["a21"], p["a22"]}}, nil
	}
	return [2][2]float64{}, dynamo.Invalid("kind", "%s is not a linear system", s.Model.Kind)
}
