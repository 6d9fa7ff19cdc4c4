package metrics

import (
	"math"

	"github.com/san-kum/phaselab/internal/dynamo"
)

// Extent records the per-component bounding box of the finite samples.
type Extent struct {
	Min, Max []float64
	samples  int
}

func NewExtent() *Extent { return &Extent{} }

func (e *Extent) Name() string { return "extent" }

func (e *Extent) Observe(x dynamo.State, _ float64) {
	if !x.IsValid() {
		return
	}
	if e.Min == nil {
		e.Min = x.Clone()
		e.Max = x.Clone()
	}
	for i, v := range x {
		e.Min[i] = math.Min(e.Min[i], v)
		e.Max[i] = math.Max(e.Max[i], v)
	}
	e.samples++
}

// Value is the largest side of the bounding box.
func (e *Extent) Value() float64 {
	w := 0.0
	for i := range e.Min {
		w = math.Max(w, e.Max[i]-e.Min[i])
	}
	return w
}

func (e *Extent) Reset() {
	e.Min, e.Max = nil, nil
	e.samples = 0
}
