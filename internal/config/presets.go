package config

import (
	"sort"

	"github.com/san-kum/phaselab/internal/dynamo"
)

// Preset is a named parameter set for one system.
type Preset struct {
	Description  string        `yaml:"description" json:"description"`
	Params       dynamo.Params `yaml:"params" json:"params"`
	InitialState []float64     `yaml:"initial_state,omitempty" json:"initial_state,omitempty"`
}

var Presets = map[string]map[string]*Preset{
	"lorenz": {
		"classic":  {Description: "butterfly attractor", Params: dynamo.Params{"sigma": 10, "rho": 28, "beta": 8.0 / 3.0}, InitialState: []float64{1, 1, 1}},
		"periodic": {Description: "stable limit cycle", Params: dynamo.Params{"sigma": 10, "rho": 160, "beta": 8.0 / 3.0}, InitialState: []float64{1, 1, 1}},
		"fixed":    {Description: "decays to a convection fixed point", Params: dynamo.Params{"sigma": 10, "rho": 14, "beta": 8.0 / 3.0}, InitialState: []float64{1, 1, 1}},
	},
	"rossler": {
		"classic": {Description: "single-band spiral", Params: dynamo.Params{"a": 0.2, "b": 0.2, "c": 5.7}, InitialState: []float64{1, 1, 1}},
		"funnel":  {Description: "funnel attractor", Params: dynamo.Params{"a": 0.3, "b": 0.1, "c": 9}, InitialState: []float64{1, 1, 1}},
	},
	"chua": {
		"double_scroll": {Description: "double scroll", Params: dynamo.Params{"alpha": 15.6, "beta": 28, "m0": -1.143, "m1": -0.714}, InitialState: []float64{0.1, 0.1, 0.1}},
	},
	"thomas": {
		"classic": {Description: "chaotic labyrinth", Params: dynamo.Params{"b": 0.208186}, InitialState: []float64{0.1, 0, 0}},
		"cycle":   {Description: "periodic orbit", Params: dynamo.Params{"b": 0.3}, InitialState: []float64{0.1, 0, 0}},
	},
	"logistic": {
		"stable":  {Description: "single attracting fixed point", Params: dynamo.Params{"r": 2.5}, InitialState: []float64{0.5}},
		"period2": {Description: "period-2 cycle", Params: dynamo.Params{"r": 3.2}, InitialState: []float64{0.5}},
		"period4": {Description: "period-4 cycle", Params: dynamo.Params{"r": 3.5}, InitialState: []float64{0.5}},
		"chaos":   {Description: "fully developed chaos", Params: dynamo.Params{"r": 3.9}, InitialState: []float64{0.5}},
	},
	"henon": {
		"classic": {Description: "strange attractor", Params: dynamo.Params{"a": 1.4, "b": 0.3}, InitialState: []float64{0.1, 0.1}},
		"stable":  {Description: "attracting fixed point", Params: dynamo.Params{"a": 0.3, "b": 0.3}, InitialState: []float64{0.1, 0.1}},
	},
	"tent": {
		"chaos":  {Description: "full tent", Params: dynamo.Params{"mu": 2}, InitialState: []float64{0.3}},
		"stable": {Description: "decays to zero", Params: dynamo.Params{"mu": 0.8}, InitialState: []float64{0.3}},
	},
	"sine": {
		"chaos": {Description: "full sine map", Params: dynamo.Params{"r": 1}, InitialState: []float64{0.5}},
	},
	"rotation_2d": {
		"spiral": {Description: "contracting rotation", Params: dynamo.Params{"theta": 0.3, "r": 0.95}, InitialState: []float64{1, 0}},
		"circle": {Description: "pure rotation", Params: dynamo.Params{"theta": 0.3, "r": 1}, InitialState: []float64{1, 0}},
	},
	"linear": {
		"center": {Description: "harmonic oscillator", Params: dynamo.Params{"a11": 0, "a12": 1, "a21": -1, "a22": 0}},
		"saddle": {Description: "hyperbolic saddle", Params: dynamo.Params{"a11": 1, "a12": 0, "a21": 0, "a22": -1}},
		"spiral": {Description: "stable focus", Params: dynamo.Params{"a11": -0.5, "a12": 1, "a21": -1, "a22": -0.5}},
	},
}

func GetPreset(system, preset string) *Preset {
	systemPresets, ok := Presets[system]
	if !ok {
		return nil
	}
	p, ok := systemPresets[preset]
	if !ok {
		return nil
	}
	return p
}

// ListPresets returns the preset names of system in sorted order.
func ListPresets(system string) []string {
	systemPresets, ok := Presets[system]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(systemPresets))
	for name := range systemPresets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
