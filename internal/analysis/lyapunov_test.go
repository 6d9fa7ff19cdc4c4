package analysis

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/san-kum/phaselab/internal/dynamo"
	"github.com/san-kum/phaselab/internal/maps"
	"github.com/san-kum/phaselab/internal/physics"
)

func TestLorenzSpectrum(t *testing.T) {
	if testing.Short() {
		t.Skip("long integration")
	}
	l := physics.NewLorenz()
	s, err := FlowSpectrum(context.Background(), l, l.DefaultState(), DefaultLyapunovOptions())
	if err != nil {
		t.Fatal(err)
	}
	if len(s.Exponents) != 3 {
		t.Fatalf("expected 3 exponents, got %v", s.Exponents)
	}
	if s.Largest < 0.5 || s.Largest > 1.3 {
		t.Errorf("largest exponent %v outside (0.5, 1.3)", s.Largest)
	}
	// volume contraction is -(sigma + 1 + beta)
	if want := -(10 + 1 + 8.0/3); math.Abs(s.Sum-want) > 0.3 {
		t.Errorf("sum %v, want %v", s.Sum, want)
	}
	if !s.Chaotic || s.Method != MethodVariational {
		t.Errorf("unexpected %+v", s)
	}
	for i := 1; i < len(s.Exponents); i++ {
		if s.Exponents[i] > s.Exponents[i-1] {
			t.Errorf("exponents not sorted: %v", s.Exponents)
		}
	}
}

func TestLorenzSeparation(t *testing.T) {
	if testing.Short() {
		t.Skip("long integration")
	}
	l := physics.NewLorenz()
	s, err := SeparationExponent(context.Background(), l, l.DefaultState(), DefaultLyapunovOptions())
	if err != nil {
		t.Fatal(err)
	}
	if s.Largest < 0.5 || s.Largest > 1.3 {
		t.Errorf("largest exponent %v outside (0.5, 1.3)", s.Largest)
	}
}

func TestHarmonicSpectrumIsZero(t *testing.T) {
	opts := DefaultLyapunovOptions()
	opts.Duration = 50
	s, err := FlowSpectrum(context.Background(), physics.NewHarmonic(), dynamo.State{1, 0}, opts)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range s.Exponents {
		if math.Abs(e) > 0.01 {
			t.Errorf("expected zero exponents, got %v", s.Exponents)
		}
	}
	if s.Chaotic {
		t.Error("harmonic oscillator is not chaotic")
	}
}

func TestLogisticExponent(t *testing.T) {
	s, err := MapSpectrum(context.Background(), &maps.Logistic{R: 4}, &maps.Logistic{R: 4}, dynamo.State{0.3}, MapOptions{Transient: 100, Steps: 20000})
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(s.Largest-math.Ln2) > 0.05 {
		t.Errorf("largest %v, want ln 2", s.Largest)
	}
	if s.Method != MethodDerivative || !s.Chaotic {
		t.Errorf("unexpected %+v", s)
	}

	s, err = MapSpectrum(context.Background(), &maps.Logistic{R: 2.5}, &maps.Logistic{R: 2.5}, dynamo.State{0.3}, DefaultMapOptions())
	if err != nil {
		t.Fatal(err)
	}
	// converges to 1 - 1/r where |f'| = |2 - r|
	if math.Abs(s.Largest-math.Log(0.5)) > 0.01 || s.Chaotic {
		t.Errorf("largest %v, want ln 0.5", s.Largest)
	}
}

func TestHenonSpectrum(t *testing.T) {
	h := maps.NewHenon()
	s, err := MapSpectrum(context.Background(), h, h, h.DefaultState(), DefaultMapOptions())
	if err != nil {
		t.Fatal(err)
	}
	if s.Largest <= 0 || s.Method != MethodQR {
		t.Errorf("unexpected %+v", s)
	}
	// |det J| = b everywhere
	if math.Abs(s.Sum-math.Log(0.3)) > 1e-9 {
		t.Errorf("sum %v, want ln 0.3", s.Sum)
	}
}

func TestMapSpectrumDivergence(t *testing.T) {
	m := &maps.Logistic{R: 5}
	s, err := MapSpectrum(context.Background(), m, m, dynamo.State{0.5}, DefaultMapOptions())
	if err != nil {
		t.Fatal(err)
	}
	if !s.Quality.Diverged || s.Quality.Converged || len(s.Quality.Warnings) == 0 {
		t.Errorf("expected a diverged estimate, got %+v", s.Quality)
	}
}

func TestShortMapRunNotConverged(t *testing.T) {
	m := &maps.Logistic{R: 3.2}
	s, err := MapSpectrum(context.Background(), m, m, dynamo.State{0.3}, MapOptions{Transient: 10, Steps: 100})
	if err != nil {
		t.Fatal(err)
	}
	if s.Quality.Converged {
		t.Error("100 iterations should not count as converged")
	}
}

func TestLyapunovValidation(t *testing.T) {
	l := physics.NewLorenz()
	opts := DefaultLyapunovOptions()
	opts.Dt = 0
	if _, err := FlowSpectrum(context.Background(), l, l.DefaultState(), opts); !errors.Is(err, dynamo.ErrValidation) {
		t.Errorf("dt=0: got %v", err)
	}
	if _, err := FlowSpectrum(context.Background(), l, dynamo.State{1, 2}, DefaultLyapunovOptions()); !errors.Is(err, dynamo.ErrDimensionMismatch) {
		t.Errorf("short state: got %v", err)
	}
	m := maps.NewLogistic()
	if _, err := MapSpectrum(context.Background(), m, m, dynamo.State{0.3}, MapOptions{Steps: 0}); !errors.Is(err, dynamo.ErrValidation) {
		t.Errorf("zero steps: got %v", err)
	}
}

func TestLyapunovCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	l := physics.NewLorenz()
	_, err := FlowSpectrum(ctx, l, l.DefaultState(), DefaultLyapunovOptions())
	if !errors.Is(err, dynamo.ErrCanceled) || !errors.Is(err, context.Canceled) {
		t.Errorf("expected cancellation, got %v", err)
	}
}
