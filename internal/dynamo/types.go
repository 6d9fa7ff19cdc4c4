package dynamo

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
)

// DivergenceThreshold is the component magnitude past which a state is
// reported as diverged. Integration is never clamped at this value.
const DivergenceThreshold = 1e6

type State []float64

func (s State) Clone() State {
	c := make(State, len(s))
	copy(c, s)
	return c
}

func (s State) IsValid() bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Diverged reports whether any component is non-finite or larger in
// magnitude than DivergenceThreshold.
func (s State) Diverged() bool {
	return !s.IsValid() || s.MaxAbs() > DivergenceThreshold
}

func (s State) Norm() float64 {
	sum := 0.0
	for _, v := range s {
		sum += v * v
	}
	return math.Sqrt(sum)
}

func (s State) MaxAbs() float64 {
	m := 0.0
	for _, v := range s {
		if a := math.Abs(v); a > m {
			m = a
		}
	}
	return m
}

func (s State) Add(other State) State {
	result := make(State, len(s))
	for i := range s {
		if i < len(other) {
			result[i] = s[i] + other[i]
		} else {
			result[i] = s[i]
		}
	}
	return result
}

func (s State) Scale(factor float64) State {
	result := make(State, len(s))
	for i := range s {
		result[i] = s[i] * factor
	}
	return result
}

func (s State) Sub(other State) State {
	result := make(State, len(s))
	for i := range s {
		if i < len(other) {
			result[i] = s[i] - other[i]
		} else {
			result[i] = s[i]
		}
	}
	return result
}

// Params holds named real parameters of a system.
type Params map[string]float64

func (p Params) Clone() Params {
	c := make(Params, len(p))
	for k, v := range p {
		c[k] = v
	}
	return c
}

// With returns a copy of p with name set to value.
func (p Params) With(name string, value float64) Params {
	c := p.Clone()
	c[name] = value
	return c
}

// Keys returns the parameter names in sorted order.
func (p Params) Keys() []string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Flow is a continuous-time system dx/dt = f(x, t).
type Flow interface {
	Derive(x State, t float64) State
	StateDim() int
}

// Map is a discrete-time system x[n+1] = f(x[n]).
type Map interface {
	Next(x State) State
	StateDim() int
}

// Linearizable systems expose the Jacobian of their right-hand side
// (flows) or of the map itself (maps) at a point.
type Linearizable interface {
	Jacobian(x State) *mat.Dense
}

type Integrator interface {
	Step(f Flow, x State, t float64, dt float64) State
}

// Metric accumulates a scalar summary over the samples of a run.
type Metric interface {
	Name() string
	Observe(x State, t float64)
	Value() float64
	Reset()
}

// Trajectory is an ordered run of samples. Times is non-decreasing; for
// maps it holds the iteration index.
type Trajectory struct {
	States []State
	Times  []float64

	// Diverged is set when some sample exceeded DivergenceThreshold or
	// became non-finite. DivergedAt is the index of the first such sample,
	// or -1.
	Diverged   bool
	DivergedAt int

	// Partial marks a run cut short by cancellation.
	Partial bool
}

func NewTrajectory(capacity int) *Trajectory {
	return &Trajectory{
		States:     make([]State, 0, capacity),
		Times:      make([]float64, 0, capacity),
		DivergedAt: -1,
	}
}

// Append records a sample and updates the divergence flag.
func (tr *Trajectory) Append(x State, t float64) {
	if !tr.Diverged && x.Diverged() {
		tr.Diverged = true
		tr.DivergedAt = len(tr.States)
	}
	tr.States = append(tr.States, x)
	tr.Times = append(tr.Times, t)
}

func (tr *Trajectory) Len() int { return len(tr.States) }

// Component returns the i-th coordinate of every sample.
func (tr *Trajectory) Component(i int) []float64 {
	out := make([]float64, len(tr.States))
	for k, s := range tr.States {
		if i < len(s) {
			out[k] = s[i]
		}
	}
	return out
}

// Points returns the samples as plain slices.
func (tr *Trajectory) Points() [][]float64 {
	out := make([][]float64, len(tr.States))
	for i, s := range tr.States {
		out[i] = s
	}
	return out
}

// Last returns the final sample, or nil for an empty trajectory.
func (tr *Trajectory) Last() State {
	if len(tr.States) == 0 {
		return nil
	}
	return tr.States[len(tr.States)-1]
}

// Sample is one trajectory sample in its serialized form.
type Sample struct {
	State []float64 `json:"state"`
	Time  float64   `json:"t"`
}

func (tr *Trajectory) Samples() []Sample {
	out := make([]Sample, len(tr.States))
	for i := range tr.States {
		out[i] = Sample{State: tr.States[i], Time: tr.Times[i]}
	}
	return out
}

// FiniteLen returns the number of leading samples whose components are all
// finite. JSON cannot carry NaN or Inf, so serializers stop there.
func (tr *Trajectory) FiniteLen() int {
	for i, s := range tr.States {
		if !s.IsValid() {
			return i
		}
	}
	return len(tr.States)
}
