package metrics

import (
	"math"
	"testing"

	"github.com/san-kum/phaselab/internal/dynamo"
)

func TestDivergence(t *testing.T) {
	m := NewDivergence(10)

	m.Observe(dynamo.State{1, 2}, 0)
	m.Observe(dynamo.State{11, 0}, 1)
	m.Observe(dynamo.State{math.NaN(), 0}, 2)
	m.Observe(dynamo.State{0, 0}, 3)

	if !m.Diverged() || m.FirstAt() != 1 {
		t.Errorf("expected first violation at 1, got %d", m.FirstAt())
	}
	if math.Abs(m.Value()-0.5) > 1e-12 {
		t.Errorf("expected bounded fraction 0.5, got %f", m.Value())
	}

	m.Reset()
	if m.Diverged() || m.FirstAt() != -1 || m.Value() != 1.0 {
		t.Error("reset did not clear state")
	}
}

func TestExtent(t *testing.T) {
	e := NewExtent()
	e.Observe(dynamo.State{0, 1}, 0)
	e.Observe(dynamo.State{-2, 3}, 1)
	e.Observe(dynamo.State{math.Inf(1), 0}, 2)

	if e.Min[0] != -2 || e.Max[1] != 3 {
		t.Errorf("unexpected box %v %v", e.Min, e.Max)
	}
	if e.Value() != 2 {
		t.Errorf("expected width 2, got %f", e.Value())
	}
}
