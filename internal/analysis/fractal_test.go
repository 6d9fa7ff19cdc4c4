package analysis

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/san-kum/phaselab/internal/dynamo"
)

func TestFractalLine(t *testing.T) {
	cloud := make([][]float64, 2000)
	for i := range cloud {
		v := float64(i) / float64(len(cloud)-1)
		cloud[i] = []float64{v, v}
	}
	est, err := FractalDimension(context.Background(), cloud, DefaultFractalOptions())
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(est.BoxDimension-1) > 0.1 {
		t.Errorf("box dimension %v, want 1", est.BoxDimension)
	}
	if math.Abs(est.CorrelationDimension-1) > 0.1 {
		t.Errorf("correlation dimension %v, want 1", est.CorrelationDimension)
	}
}

func TestFractalSquare(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	cloud := make([][]float64, 5000)
	for i := range cloud {
		cloud[i] = []float64{rng.Float64(), rng.Float64()}
	}
	est, err := FractalDimension(context.Background(), cloud, DefaultFractalOptions())
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(est.BoxDimension-2) > 0.15 {
		t.Errorf("box dimension %v, want 2", est.BoxDimension)
	}
	for i := 1; i < len(est.BoxFit); i++ {
		if est.BoxFit[i].LogScale <= est.BoxFit[i-1].LogScale {
			t.Errorf("box scales not increasing: %+v", est.BoxFit)
		}
	}
	if last := est.BoxFit[len(est.BoxFit)-1]; math.Exp(last.LogMeasure) > 5000/4+0.5 && len(est.BoxFit) > 2 {
		t.Errorf("saturated level kept in fit: %+v", last)
	}
}

func TestFractalDegenerate(t *testing.T) {
	_, err := FractalDimension(context.Background(), [][]float64{{1, 1}}, DefaultFractalOptions())
	if !errors.Is(err, dynamo.ErrDegenerate) {
		t.Errorf("single point: got %v", err)
	}
	same := [][]float64{{1, 2}, {1, 2}, {1, 2}}
	_, err = FractalDimension(context.Background(), same, DefaultFractalOptions())
	if !errors.Is(err, dynamo.ErrDegenerate) || !errors.Is(err, dynamo.ErrValidation) {
		t.Errorf("identical points: got %v", err)
	}
	_, err = FractalDimension(context.Background(), [][]float64{{1, 2}, {1}}, DefaultFractalOptions())
	if !errors.Is(err, dynamo.ErrDimensionMismatch) {
		t.Errorf("mixed dimensions: got %v", err)
	}
}

func TestFractalDropsNonFinite(t *testing.T) {
	cloud := [][]float64{{0, 0}, {math.NaN(), 1}, {1, 1}, {0.5, 0.2}}
	est, err := FractalDimension(context.Background(), cloud, DefaultFractalOptions())
	if err != nil {
		t.Fatal(err)
	}
	if !est.Quality.Diverged || est.Quality.Converged {
		t.Errorf("expected a flagged estimate, got %+v", est.Quality)
	}
}
