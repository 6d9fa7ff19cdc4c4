package systems

import (
	"sort"

	"github.com/san-kum/phaselab/internal/dynamo"
	"github.com/san-kum/phaselab/internal/maps"
	"github.com/san-kum/phaselab/internal/physics"
)

type Registry struct {
	models map[Kind]*Model
}

func NewRegistry() *Registry {
	r := &Registry{models: make(map[Kind]*Model)}

	r.add(&Model{
		Kind: Linear, Family: FamilyLinear, Dim: 2,
		Description:  "planar linear system dx/dt = A x",
		Params:       []ParamSpec{{"a11", 0, -5, 5, 0.1}, {"a12", 1, -5, 5, 0.1}, {"a21", -1, -5, 5, 0.1}, {"a22", 0, -5, 5, 0.1}},
		InitialState: dynamo.State{1, 0},
		newFlow:      func() flowModel { return physics.NewHarmonic() },
	})

	r.add(&Model{
		Kind: Lorenz, Family: FamilyContinuous, Dim: 3,
		Description:  "Lorenz convection model",
		Params:       []ParamSpec{{"sigma", 10, 5, 20, 0.1}, {"rho", 28, 10, 50, 0.1}, {"beta", 8.0 / 3.0, 1, 5, 0.1}},
		InitialState: dynamo.State{1, 1, 1},
		Scale:        0.5,
		Section:      &Section{"z", 27, 0, 50, 0.5},
		newFlow:      func() flowModel { return physics.NewLorenz() },
	})
	r.add(&Model{
		Kind: Rossler, Family: FamilyContinuous, Dim: 3,
		Description:  "Rössler spiral attractor",
		Params:       []ParamSpec{{"a", 0.2, 0.1, 0.5, 0.01}, {"b", 0.2, 0.1, 0.5, 0.01}, {"c", 5.7, 3, 10, 0.1}},
		InitialState: dynamo.State{1, 1, 1},
		Scale:        0.1,
		Section:      &Section{"z", 0, -5, 5, 0.2},
		newFlow:      func() flowModel { return physics.NewRossler() },
	})
	r.add(&Model{
		Kind: Chua, Family: FamilyContinuous, Dim: 3,
		Description:  "Chua's circuit, double scroll",
		Params:       []ParamSpec{{"alpha", 15.6, 10, 20, 0.1}, {"beta", 28, 20, 35, 0.1}, {"m0", -1.143, -2, 0, 0.001}, {"m1", -0.714, -1, 0, 0.001}},
		InitialState: dynamo.State{0.1, 0.1, 0.1},
		Scale:        0.5,
		Section:      &Section{"x", 0, -5, 5, 0.2},
		newFlow:      func() flowModel { return physics.NewChua() },
	})
	r.add(&Model{
		Kind: Thomas, Family: FamilyContinuous, Dim: 3,
		Description:  "Thomas cyclically symmetric attractor",
		Params:       []ParamSpec{{"b", 0.208186, 0.1, 0.3, 0.001}},
		InitialState: dynamo.State{0.1, 0, 0},
		Scale:        0.3,
		Section:      &Section{"x", 0, -2, 2, 0.1},
		newFlow:      func() flowModel { return physics.NewThomas() },
	})

	all := Features{Cobweb: true, Bifurcation: true, ReturnMap: true, Lyapunov: true}
	r.add(&Model{
		Kind: Logistic, Family: FamilyDiscrete, Dim: 1,
		Description:  "logistic map r x (1 - x)",
		Params:       []ParamSpec{{"r", 3.5, 0, 4, 0.01}},
		InitialState: dynamo.State{0.5},
		Sweep:        &Sweep{"r", 2.5, 4.0, 100, 50},
		Features:     all,
		newMap:       func() mapModel { return maps.NewLogistic() },
	})
	r.add(&Model{
		Kind: Henon, Family: FamilyDiscrete, Dim: 2,
		Description:  "Hénon map (1 - a x^2 + y, b x)",
		Params:       []ParamSpec{{"a", 1.4, 0.8, 1.4, 0.01}, {"b", 0.3, 0, 1, 0.01}},
		InitialState: dynamo.State{0.1, 0.1},
		Sweep:        &Sweep{"a", 0.8, 1.4, 200, 100},
		Features:     Features{Bifurcation: true, ReturnMap: true, Lyapunov: true},
		newMap:       func() mapModel { return maps.NewHenon() },
	})
	r.add(&Model{
		Kind: Tent, Family: FamilyDiscrete, Dim: 1,
		Description:  "tent map mu min(x, 1 - x)",
		Params:       []ParamSpec{{"mu", 2, 0, 2, 0.01}},
		InitialState: dynamo.State{0.3},
		Sweep:        &Sweep{"mu", 0, 2, 100, 50},
		Features:     all,
		newMap:       func() mapModel { return maps.NewTent() },
	})
	r.add(&Model{
		Kind: Sine, Family: FamilyDiscrete, Dim: 1,
		Description:  "sine map r sin(pi x)",
		Params:       []ParamSpec{{"r", 1, 0, 1, 0.01}},
		InitialState: dynamo.State{0.5},
		Sweep:        &Sweep{"r", 0, 1, 100, 50},
		Features:     all,
		newMap:       func() mapModel { return maps.NewSine() },
	})
	r.add(&Model{
		Kind: Linear1D, Family: FamilyDiscrete, Dim: 1,
		Description:  "affine map a x + b",
		Params:       []ParamSpec{{"a", 0.8, -3, 3, 0.01}, {"b", 0.1, -2, 2, 0.01}},
		InitialState: dynamo.State{0.5},
		Features:     Features{Cobweb: true, ReturnMap: true, Lyapunov: true},
		newMap:       func() mapModel { return maps.NewLinear1D() },
	})
	r.add(&Model{
		Kind: Linear2D, Family: FamilyDiscrete, Dim: 2,
		Description:  "planar linear map A x",
		Params:       []ParamSpec{{"a11", 0.8, -2, 2, 0.01}, {"a12", 0.2, -2, 2, 0.01}, {"a21", 0.1, -2, 2, 0.01}, {"a22", 0.9, -2, 2, 0.01}},
		InitialState: dynamo.State{0.1, 0.1},
		Features:     Features{ReturnMap: true, Lyapunov: true},
		newMap:       func() mapModel { return maps.NewLinear2D() },
	})
	r.add(&Model{
		Kind: Rotation, Family: FamilyDiscrete, Dim: 2,
		Description:  "scaled rotation r R(theta) x",
		Params:       []ParamSpec{{"theta", 0.3, 0, 6.28318, 0.01}, {"r", 0.95, 0.1, 1.5, 0.01}},
		InitialState: dynamo.State{1, 0},
		Features:     Features{ReturnMap: true, Lyapunov: true},
		newMap:       func() mapModel { return maps.NewRotation() },
	})

	return r
}

func (r *Registry) add(m *Model) { r.models[m.Kind] = m }

// Get returns the model for kind or a ValidationError naming the field "kind".
func (r *Registry) Get(kind string) (*Model, error) {
	m, ok := r.models[Kind(kind)]
	if !ok {
		return nil, dynamo.Invalid("kind", "unknown system: %s", kind)
	}
	return m, nil
}

// List returns every kind in sorted order.
func (r *Registry) List() []string {
	names := make([]string, 0, len(r.models))
	for k := range r.models {
		names = append(names, string(k))
	}
	sort.Strings(names)
	return names
}

// ListFamily returns the kinds of one family in sorted order.
func (r *Registry) ListFamily(f Family) []string {
	var names []string
	for k, m := range r.models {
		if m.Family == f {
			names = append(names, string(k))
		}
	}
	sort.Strings(names)
	return names
}
