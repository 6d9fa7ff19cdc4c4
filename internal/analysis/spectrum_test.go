package analysis

import (
	"context"
	"math"
	"testing"

	"github.com/san-kum/phaselab/internal/dynamo"
	"github.com/san-kum/phaselab/internal/physics"
)

func TestPowerPeak(t *testing.T) {
	const dt = 0.01
	series := make([]float64, 1000)
	for i := range series {
		series[i] = 3 + math.Sin(2*math.Pi*5*float64(i)*dt)
	}
	ps, err := Power(series, dt)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(ps.Peak-5) > 1e-9 {
		t.Errorf("peak at %v Hz, want 5", ps.Peak)
	}
	if len(ps.Power) != 501 || ps.Power[0] > 1e-9 {
		t.Errorf("unexpected spectrum: %d bins, dc %v", len(ps.Power), ps.Power[0])
	}
	if _, err := Power([]float64{1, 2, math.NaN(), 4}, 1); err == nil {
		t.Error("expected an error for NaN samples")
	}
}

func TestLinearPhasePortrait(t *testing.T) {
	lp, err := LinearPhasePortrait(context.Background(), physics.NewHarmonic(), [2][2]float64{{0, 1}, {-1, 0}}, DefaultPortraitOptions())
	if err != nil {
		t.Fatal(err)
	}
	if len(lp.Field) != 400 || len(lp.Trajectories) != 8 {
		t.Fatalf("got %d arrows and %d trajectories", len(lp.Field), len(lp.Trajectories))
	}
	if lp.Analysis.Classification != Center {
		t.Errorf("harmonic oscillator classified as %s", lp.Analysis.Classification)
	}
	for _, pp := range lp.Trajectories {
		if len(pp.X) != 501 {
			t.Errorf("expected 501 samples, got %d", len(pp.X))
		}
	}
}

func TestProject(t *testing.T) {
	tr := dynamo.NewTrajectory(3)
	tr.Append(dynamo.State{1, 2, 3}, 0)
	tr.Append(dynamo.State{4, 5, 6}, 1)
	tr.Append(dynamo.State{math.Inf(1), 0, 0}, 2)
	pp, err := Project(tr, 0, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(pp.X) != 2 || pp.Y[1] != 6 {
		t.Errorf("unexpected projection %+v", pp)
	}
	if _, err := Project(tr, 0, 3); err == nil {
		t.Error("expected an error for an out-of-range axis")
	}
}

func TestTailVariance(t *testing.T) {
	if v := TailVariance([]float64{9, 9, 1, 1, 1}, 3); v != 0 {
		t.Errorf("constant tail variance %v", v)
	}
	if v := TailVariance([]float64{1}, 10); v != 0 {
		t.Errorf("single value variance %v", v)
	}
	if v := TailVariance([]float64{0, 2}, 2); v != 2 {
		t.Errorf("variance %v, want 2", v)
	}
}
