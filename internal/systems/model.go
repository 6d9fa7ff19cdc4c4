package systems

import (
	"github.com/san-kum/phaselab/internal/dynamo"
)

type Kind string

const (
	Linear   Kind = "linear"
	Lorenz   Kind = "lorenz"
	Rossler  Kind = "rossler"
	Chua     Kind = "chua"
	Thomas   Kind = "thomas"
	Logistic Kind = "logistic"
	Henon    Kind = "henon"
	Tent     Kind = "tent"
	Sine     Kind = "sine"
	Linear1D Kind = "linear_1d"
	Linear2D Kind = "linear_2d"
	Rotation Kind = "rotation_2d"
)

type Family string

const (
	FamilyLinear     Family = "linear"
	FamilyContinuous Family = "continuous"
	FamilyDiscrete   Family = "discrete"
)

// ParamSpec describes one named parameter and its slider range.
type ParamSpec struct {
	Name    string  `json:"name" yaml:"name"`
	Default float64 `json:"default" yaml:"default"`
	Min     float64 `json:"min" yaml:"min"`
	Max     float64 `json:"max" yaml:"max"`
	Step    float64 `json:"step" yaml:"step"`
}

// Section is the default Poincaré plane of an attractor.
type Section struct {
	Plane string  `json:"plane"`
	Value float64 `json:"value"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Step  float64 `json:"step"`
}

// Sweep is the default bifurcation scan of a map.
type Sweep struct {
	Param     string  `json:"param"`
	Min       float64 `json:"min"`
	Max       float64 `json:"max"`
	Transient int     `json:"transient"`
	Samples   int     `json:"samples"`
}

// Features lists the analyses that are meaningful for a map.
type Features struct {
	Cobweb      bool `json:"cobweb"`
	Bifurcation bool `json:"bifurcation"`
	ReturnMap   bool `json:"return_map"`
	Lyapunov    bool `json:"lyapunov"`
}

// Model is the static description of one system kind.
type Model struct {
	Kind         Kind         `json:"kind"`
	Family       Family       `json:"family"`
	Dim          int          `json:"dimension"`
	Description  string       `json:"description"`
	Params       []ParamSpec  `json:"params"`
	InitialState dynamo.State `json:"initial_state"`
	Scale        float64      `json:"scale,omitempty"`
	Section      *Section     `json:"poincare,omitempty"`
	Sweep        *Sweep       `json:"bifurcation,omitempty"`
	Features     Features     `json:"features"`

	newFlow func() flowModel
	newMap  func() mapModel
}

type paramSetter interface {
	SetParam(name string, v float64)
}

type flowModel interface {
	dynamo.Flow
	dynamo.Linearizable
	paramSetter
}

type mapModel interface {
	dynamo.Map
	dynamo.Linearizable
	paramSetter
}

func (m *Model) Discrete() bool { return m.Family == FamilyDiscrete }

// DefaultParams returns a fresh copy of the default parameter set.
func (m *Model) DefaultParams() dynamo.Params {
	p := make(dynamo.Params, len(m.Params))
	for _, ps := range m.Params {
		p[ps.Name] = ps.Default
	}
	return p
}

// HasParam reports whether name belongs to the model's parameter schema.
func (m *Model) HasParam(name string) bool {
	for _, ps := range m.Params {
		if ps.Name == name {
			return true
		}
	}
	return false
}

func (m *Model) ParamNames() []string {
	names := make([]string, len(m.Params))
	for i, ps := range m.Params {
		names[i] = ps.Name
	}
	return names
}
