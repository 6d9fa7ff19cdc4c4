package analysis

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/san-kum/phaselab/internal/dynamo"
	"github.com/san-kum/phaselab/internal/integrators"
	"github.com/san-kum/phaselab/internal/maps"
)

func TestCobwebPath(t *testing.T) {
	m := &maps.Logistic{R: 2.5}
	c, err := Cobweb(m, 0.2, 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(c.Path) != 7 || c.Steps != 3 {
		t.Fatalf("expected 7 path points, got %d", len(c.Path))
	}
	if c.Path[0] != (Point{0.2, 0.2}) {
		t.Errorf("path should start on the diagonal, got %+v", c.Path[0])
	}
	x1 := m.Apply(0.2)
	if c.Path[1] != (Point{0.2, x1}) || c.Path[2] != (Point{x1, x1}) {
		t.Errorf("unexpected staircase %+v", c.Path[:3])
	}
	if len(c.Curve) != CurveSamples {
		t.Errorf("expected %d curve samples, got %d", CurveSamples, len(c.Curve))
	}
	if c.Identity[0] != (Point{0, 0}) || c.Identity[1] != (Point{1, 1}) {
		t.Errorf("identity line %+v", c.Identity)
	}
}

func TestCobwebDivergence(t *testing.T) {
	c, err := Cobweb(&maps.Logistic{R: 5}, 0.5, 20)
	if err != nil {
		t.Fatal(err)
	}
	if !c.Diverged || c.Steps >= 20 || len(c.Path) != 2*c.Steps+1 {
		t.Errorf("expected a truncated path, got steps=%d len=%d", c.Steps, len(c.Path))
	}
	if _, err := Cobweb(&maps.Logistic{R: 3}, 0.5, 0); !errors.Is(err, dynamo.ErrValidation) {
		t.Errorf("zero steps: got %v", err)
	}
}

func TestReturnMapTrimming(t *testing.T) {
	settled, err := integrators.Iterate(context.Background(), &maps.Logistic{R: 2.5}, dynamo.State{0.3}, 500, 0)
	if err != nil {
		t.Fatal(err)
	}
	rm, err := ReturnMapOf(settled, 1, true, 500)
	if err != nil {
		t.Fatal(err)
	}
	if !rm.Trimmed || rm.Total < 149 || rm.Total >= 500 {
		t.Errorf("expected a trimmed map of at least 149 pairs, got %d (trimmed=%v)", rm.Total, rm.Trimmed)
	}

	chaotic, err := integrators.Iterate(context.Background(), &maps.Logistic{R: 3.9}, dynamo.State{0.3}, 500, 0)
	if err != nil {
		t.Fatal(err)
	}
	rm, err = ReturnMapOf(chaotic, 2, true, 500)
	if err != nil {
		t.Fatal(err)
	}
	if rm.Trimmed || rm.Total != 499 {
		t.Errorf("chaotic orbit should not be trimmed, got %d", rm.Total)
	}
	for i := range rm.XN {
		if math.Abs(rm.XNDelay[i]-chaotic.States[i+2][0]) > 0 {
			t.Fatalf("pair %d is not delayed by 2", i)
		}
	}

	if _, err := ReturnMapOf(chaotic, 0, false, 500); !errors.Is(err, dynamo.ErrValidation) {
		t.Errorf("zero delay: got %v", err)
	}
	if _, err := ReturnMapOf(chaotic, 1000, false, 500); !errors.Is(err, dynamo.ErrValidation) {
		t.Errorf("delay longer than the orbit: got %v", err)
	}
}

func TestReturnMapOfDivergentOrbit(t *testing.T) {
	tr, err := integrators.Iterate(context.Background(), &maps.Logistic{R: 10}, dynamo.State{0.5}, 200, 0)
	if err != nil {
		t.Fatal(err)
	}
	rm, err := ReturnMapOf(tr, 20, true, 200)
	if err != nil {
		t.Fatalf("divergence must not be an error: %v", err)
	}
	if !rm.Diverged || rm.DivergedAt < 0 || rm.DivergedAt >= 21 {
		t.Errorf("expected an early divergence flag, got diverged=%v at=%d", rm.Diverged, rm.DivergedAt)
	}
	if rm.Total != 0 || len(rm.XN) != 0 || rm.Message == "" {
		t.Errorf("expected an empty pair set with a message, got %d pairs", rm.Total)
	}

	rm, err = ReturnMapOf(tr, 1, false, 200)
	if err != nil {
		t.Fatal(err)
	}
	if rm.Total != rm.DivergedAt-1 {
		t.Errorf("pairs should stop before the divergent sample, got %d (diverged at %d)", rm.Total, rm.DivergedAt)
	}
}

func TestReturnMapTrimKeepsDelay(t *testing.T) {
	settled, err := integrators.Iterate(context.Background(), &maps.Logistic{R: 2.5}, dynamo.State{0.3}, 1000, 0)
	if err != nil {
		t.Fatal(err)
	}
	rm, err := ReturnMapOf(settled, 400, true, 1000)
	if err != nil {
		t.Fatal(err)
	}
	if rm.Total < 1 {
		t.Errorf("trimming left no pairs for delay 400")
	}
}
