package analysis

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/san-kum/phaselab/internal/dynamo"
)

func TestClassifyLinear(t *testing.T) {
	tests := []struct {
		name string
		a    [2][2]float64
		want Classification
	}{
		{"saddle", [2][2]float64{{1, 0}, {0, -1}}, Saddle},
		{"stable node", [2][2]float64{{-1, 0}, {0, -2}}, StableNode},
		{"stable focus", [2][2]float64{{-0.1, 1}, {-1, -0.1}}, StableFocus},
		{"unstable node", [2][2]float64{{2, 0}, {0, 3}}, UnstableNode},
		{"unstable focus", [2][2]float64{{0.1, 1}, {-1, 0.1}}, UnstableFocus},
		{"center", [2][2]float64{{0, 1}, {-1, 0}}, Center},
		{"degenerate", [2][2]float64{{1, 2}, {2, 4}}, Degenerate},
		{"zero", [2][2]float64{}, Degenerate},
		{"repeated stable", [2][2]float64{{-1, 1}, {0, -1}}, StableNode},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := AnalyzeLinear(tt.a).Classification; got != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestAnalyzeLinearHugeEntries(t *testing.T) {
	a := [2][2]float64{{1e200, 0}, {0, 1e200}}
	la := AnalyzeLinear(a)
	if la.Classification != UnstableNode {
		t.Errorf("got %s, want %s", la.Classification, UnstableNode)
	}
	for _, ev := range la.Eigenvalues {
		if math.IsNaN(ev.Re) || math.IsNaN(ev.Im) || math.Abs(ev.Re-1e200) > 1e186 || ev.Im != 0 {
			t.Errorf("expected eigenvalue 1e200, got %+v", ev)
		}
	}

	err := CheckLinear(a)
	if !errors.Is(err, dynamo.ErrValidation) {
		t.Fatalf("expected a validation error, got %v", err)
	}
	var ve *dynamo.ValidationError
	if !errors.As(err, &ve) || ve.Field != "matrix" {
		t.Errorf("expected field matrix, got %v", err)
	}

	if err := CheckLinear([2][2]float64{{math.NaN(), 0}, {0, 1}}); !errors.Is(err, dynamo.ErrValidation) {
		t.Errorf("NaN entry: got %v", err)
	}
	if err := CheckLinear([2][2]float64{{1e100, 1}, {-1, 1e100}}); err != nil {
		t.Errorf("representable invariants should pass: %v", err)
	}
}

func TestLinearTotality(t *testing.T) {
	valid := map[Classification]bool{
		StableNode: true, StableFocus: true, UnstableNode: true, UnstableFocus: true,
		Saddle: true, Center: true, Degenerate: true,
	}
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 2000; i++ {
		var a [2][2]float64
		for r := 0; r < 2; r++ {
			for c := 0; c < 2; c++ {
				a[r][c] = rng.NormFloat64() * 3
				if rng.Intn(6) == 0 {
					a[r][c] = 0
				}
			}
		}
		la := AnalyzeLinear(a)
		if !valid[la.Classification] {
			t.Fatalf("%v: invalid class %q", a, la.Classification)
		}
		l1 := complex(la.Eigenvalues[0].Re, la.Eigenvalues[0].Im)
		l2 := complex(la.Eigenvalues[1].Re, la.Eigenvalues[1].Im)
		scale := 1 + math.Abs(la.Trace) + math.Abs(la.Det)
		if s := l1 + l2; math.Abs(real(s)-la.Trace) > 1e-9*scale || math.Abs(imag(s)) > 1e-9*scale {
			t.Fatalf("%v: eigenvalue sum %v != trace %v", a, s, la.Trace)
		}
		if p := l1 * l2; math.Abs(real(p)-la.Det) > 1e-9*scale*scale || math.Abs(imag(p)) > 1e-9*scale*scale {
			t.Fatalf("%v: eigenvalue product %v != det %v", a, p, la.Det)
		}
	}
}

func TestEigenvectors(t *testing.T) {
	for _, a := range [][2][2]float64{
		{{2, 1}, {1, 2}},
		{{0, 1}, {-1, 0}},
		{{3, 0}, {4, -1}},
		{{1, 0}, {0, 1}},
		{{2, 0}, {0, 5}},
	} {
		la := AnalyzeLinear(a)
		for k := 0; k < 2; k++ {
			l := complex(la.Eigenvalues[k].Re, la.Eigenvalues[k].Im)
			v0 := complex(la.Eigenvectors[k][0].Re, la.Eigenvectors[k][0].Im)
			v1 := complex(la.Eigenvectors[k][1].Re, la.Eigenvectors[k][1].Im)
			r0 := complex(a[0][0], 0)*v0 + complex(a[0][1], 0)*v1 - l*v0
			r1 := complex(a[1][0], 0)*v0 + complex(a[1][1], 0)*v1 - l*v1
			if abs(r0) > 1e-9 || abs(r1) > 1e-9 {
				t.Errorf("%v: (A - l I) v = (%v, %v) for eigenpair %d", a, r0, r1, k)
			}
		}
	}
}

func abs(c complex128) float64 { return math.Hypot(real(c), imag(c)) }

func TestQuadraticLyapunov(t *testing.T) {
	stable := AnalyzeLinear([2][2]float64{{-1, 2}, {-2, -1}})
	if !stable.Lyapunov.Solvable || !stable.Lyapunov.PositiveDefinite || !stable.Stable {
		t.Errorf("expected positive definite P for a stable focus, got %+v", stable.Lyapunov)
	}
	// A^T P + P A = -I
	a, p := stable.Matrix, stable.Lyapunov.P
	for i := 0; i < 2; i++ {
		for j := 0; j < 2; j++ {
			v := 0.0
			for k := 0; k < 2; k++ {
				v += a[k][i]*p[k][j] + p[i][k]*a[k][j]
			}
			want := 0.0
			if i == j {
				want = -1
			}
			if math.Abs(v-want) > 1e-9 {
				t.Errorf("residual (%d,%d) = %g, want %g", i, j, v, want)
			}
		}
	}

	unstable := AnalyzeLinear([2][2]float64{{1, 0}, {0, 2}})
	if unstable.Lyapunov.PositiveDefinite {
		t.Error("unstable system must not have a positive definite P")
	}
	center := AnalyzeLinear([2][2]float64{{0, 1}, {-1, 0}})
	if center.Lyapunov.Solvable {
		t.Error("center has no solution of the Lyapunov equation")
	}
}

func TestSweepLinear(t *testing.T) {
	sw, err := SweepLinear(context.Background(), [2][2]float64{{0, 1}, {-1, 0}}, "a11", 1, -1, 4)
	if err != nil {
		t.Fatal(err)
	}
	if !sw.Swapped || sw.Min != -1 || sw.Max != 1 || len(sw.Points) != 5 {
		t.Fatalf("unexpected sweep %+v", sw)
	}
	// det = 1 throughout, so the trace sign decides stability
	if sw.Points[0].Classification != StableFocus || sw.Points[4].Classification != UnstableFocus {
		t.Errorf("unexpected ends: %s, %s", sw.Points[0].Classification, sw.Points[4].Classification)
	}
	if _, err := SweepLinear(context.Background(), [2][2]float64{}, "a33", 0, 1, 4); err == nil {
		t.Error("expected error for unknown entry")
	}
}
