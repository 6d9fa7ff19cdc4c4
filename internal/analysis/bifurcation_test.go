package analysis

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/san-kum/phaselab/internal/dynamo"
	"github.com/san-kum/phaselab/internal/maps"
)

func logisticAt(r float64) dynamo.Map { return &maps.Logistic{R: r} }

func TestBifurcationLogistic(t *testing.T) {
	ds, err := Bifurcation(context.Background(), logisticAt, dynamo.State{0.5}, BifurcationOptions{
		Param: "r", Min: 2.8, Max: 3.9, Steps: 110, Transient: 500, Samples: 64,
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(ds.Points) != 111 || ds.Swapped {
		t.Fatalf("expected 111 ordered points, got %d (swapped=%v)", len(ds.Points), ds.Swapped)
	}
	for i := 1; i < len(ds.Points); i++ {
		if ds.Points[i].Param <= ds.Points[i-1].Param {
			t.Fatalf("parameters out of order at %d", i)
		}
	}
	first := ds.Points[0]
	if math.Abs(first.Param-2.8) > 1e-12 || len(first.Values) != 64 {
		t.Fatalf("unexpected first point %+v", first)
	}
	for _, v := range first.Values {
		if math.Abs(v-(1-1/2.8)) > 1e-6 {
			t.Errorf("r=2.8 should sit on its fixed point, got %v", v)
			break
		}
	}
	if last := ds.Points[len(ds.Points)-1]; math.Abs(last.Param-3.9) > 1e-12 {
		t.Errorf("last parameter %v, want 3.9", last.Param)
	}
}

func TestBifurcationSwappedRange(t *testing.T) {
	ds, err := Bifurcation(context.Background(), logisticAt, dynamo.State{0.5}, BifurcationOptions{
		Param: "r", Min: 3.9, Max: 2.8, Steps: 10, Transient: 10, Samples: 4,
	})
	if err != nil {
		t.Fatal(err)
	}
	if !ds.Swapped || ds.Min != 2.8 || ds.Max != 3.9 {
		t.Errorf("expected swapped range, got %+v", ds)
	}
}

func TestBifurcationValidation(t *testing.T) {
	tests := []BifurcationOptions{
		{Param: "r", Min: 3, Max: 3, Steps: 10, Samples: 4},
		{Param: "r", Min: 2, Max: 3, Steps: 0, Samples: 4},
		{Param: "r", Min: 2, Max: 3, Steps: 10, Samples: 0},
		{Param: "r", Min: 2, Max: 3, Steps: 10, Samples: 4, Transient: -1},
		{Param: "r", Min: math.Inf(-1), Max: 3, Steps: 10, Samples: 4},
	}
	for i, opts := range tests {
		if _, err := Bifurcation(context.Background(), logisticAt, dynamo.State{0.5}, opts); !errors.Is(err, dynamo.ErrValidation) {
			t.Errorf("case %d: expected validation error, got %v", i, err)
		}
	}
	if _, err := Bifurcation(context.Background(), logisticAt, dynamo.State{0.5, 1}, BifurcationOptions{Min: 2, Max: 3, Steps: 2, Samples: 1}); !errors.Is(err, dynamo.ErrDimensionMismatch) {
		t.Errorf("wrong state dimension: got %v", err)
	}
}

func TestBifurcationDivergence(t *testing.T) {
	ds, err := Bifurcation(context.Background(), logisticAt, dynamo.State{0.5}, BifurcationOptions{
		Param: "r", Min: 4.5, Max: 5, Steps: 2, Transient: 0, Samples: 50,
	})
	if err != nil {
		t.Fatal(err)
	}
	for _, p := range ds.Points {
		if !p.Diverged {
			t.Errorf("r=%v should diverge", p.Param)
		}
		for _, v := range p.Values {
			if math.IsNaN(v) || math.Abs(v) > dynamo.DivergenceThreshold {
				t.Errorf("divergent sample %v recorded", v)
			}
		}
	}
}

func TestBifurcationCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	opts := BifurcationOptions{Param: "r", Min: 2.8, Max: 4, Steps: 100, Transient: 100, Samples: 10}

	ds, err := Bifurcation(ctx, logisticAt, dynamo.State{0.5}, opts)
	if !errors.Is(err, dynamo.ErrCanceled) || ds != nil {
		t.Errorf("expected cancellation without data, got %v, %v", ds, err)
	}

	opts.KeepPartial = true
	ds, err = Bifurcation(ctx, logisticAt, dynamo.State{0.5}, opts)
	if !errors.Is(err, dynamo.ErrCanceled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
	if ds == nil || !ds.Partial || len(ds.Points) > 101 {
		t.Errorf("expected a partial dataset, got %+v", ds)
	}
}
