package analysis

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/san-kum/phaselab/internal/dynamo"
	"github.com/san-kum/phaselab/internal/integrators"
	"github.com/san-kum/phaselab/internal/physics"
)

func TestPoincareHarmonic(t *testing.T) {
	tr, err := integrators.Integrate(context.Background(), integrators.NewRK4(), physics.NewHarmonic(), dynamo.State{1, 0}, 0.01, 2000)
	if err != nil {
		t.Fatal(err)
	}
	pts, err := PoincareSection([]*dynamo.Trajectory{tr}, "x", 0)
	if err != nil {
		t.Fatal(err)
	}
	// x = cos t crosses zero at pi/2 + k pi
	if len(pts) != 6 {
		t.Fatalf("expected 6 crossings in [0,20], got %d", len(pts))
	}
	for k, p := range pts {
		if math.Abs(math.Abs(p.X)-1) > 1e-3 {
			t.Errorf("crossing %d: |y| = %v, want 1", k, math.Abs(p.X))
		}
		if p.Y != 0 {
			t.Errorf("missing coordinate should be 0, got %v", p.Y)
		}
		want := math.Pi/2 + float64(k)*math.Pi
		if math.Abs(p.T-want) > 1e-3 {
			t.Errorf("crossing %d at t=%v, want %v", k, p.T, want)
		}
	}
}

func TestPoincareTouchIsNotCrossing(t *testing.T) {
	tr := dynamo.NewTrajectory(4)
	tr.Append(dynamo.State{1, 0, -1}, 0)
	tr.Append(dynamo.State{2, 0, 0}, 1)
	tr.Append(dynamo.State{3, 0, -1}, 2)
	tr.Append(dynamo.State{4, 0, 1}, 3)
	pts, err := PoincareSection([]*dynamo.Trajectory{tr}, "z", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(pts) != 1 {
		t.Fatalf("expected only the strict crossing, got %+v", pts)
	}
	if math.Abs(pts[0].X-3.5) > 1e-12 || math.Abs(pts[0].T-2.5) > 1e-12 {
		t.Errorf("interpolation wrong: %+v", pts[0])
	}
}

func TestPoincarePooling(t *testing.T) {
	a := dynamo.NewTrajectory(2)
	a.Append(dynamo.State{0, -1, 0}, 0)
	a.Append(dynamo.State{0, 1, 0}, 1)
	b := dynamo.NewTrajectory(2)
	b.Append(dynamo.State{5, 1, 7}, 0)
	b.Append(dynamo.State{5, -1, 7}, 1)
	pts, err := PoincareSection([]*dynamo.Trajectory{a, nil, b}, "y", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(pts) != 2 || pts[1].X != 5 || pts[1].Y != 7 {
		t.Errorf("unexpected pooled section %+v", pts)
	}
}

func TestPoincareValidation(t *testing.T) {
	tr := dynamo.NewTrajectory(1)
	tr.Append(dynamo.State{0, 0}, 0)
	if _, err := PoincareSection([]*dynamo.Trajectory{tr}, "w", 0); !errors.Is(err, dynamo.ErrValidation) {
		t.Errorf("unknown plane: got %v", err)
	}
	if _, err := PoincareSection([]*dynamo.Trajectory{tr}, "z", 0); !errors.Is(err, dynamo.ErrValidation) {
		t.Errorf("z plane on planar trajectory: got %v", err)
	}
	if _, err := PoincareSection([]*dynamo.Trajectory{tr}, "x", math.NaN()); !errors.Is(err, dynamo.ErrValidation) {
		t.Errorf("NaN value: got %v", err)
	}
	pts, err := PoincareSection([]*dynamo.Trajectory{tr}, "x", 10)
	if err != nil || pts == nil || len(pts) != 0 {
		t.Errorf("no crossings should be an empty result, got %v, %v", pts, err)
	}
}
