package analysis

import (
	"context"
	"errors"
	"math"
	"math/cmplx"

	"github.com/san-kum/phaselab/internal/dynamo"
	"gonum.org/v1/gonum/mat"
)

type Classification string

const (
	StableNode    Classification = "stable_node"
	StableFocus   Classification = "stable_focus"
	UnstableNode  Classification = "unstable_node"
	UnstableFocus Classification = "unstable_focus"
	Saddle        Classification = "saddle"
	Center        Classification = "center"
	Degenerate    Classification = "degenerate"
)

// Complex is a JSON-friendly complex number.
type Complex struct {
	Re float64 `json:"re"`
	Im float64 `json:"im"`
}

func toComplex(c complex128) Complex { return Complex{real(c), imag(c)} }

// QuadraticLyapunov is the solution P of A^T P + P A = -I. V(x) = x^T P x
// proves asymptotic stability when P is positive definite.
type QuadraticLyapunov struct {
	P                [2][2]float64 `json:"p"`
	Solvable         bool          `json:"solvable"`
	PositiveDefinite bool          `json:"positive_definite"`
}

type LinearAnalysis struct {
	Matrix         [2][2]float64     `json:"matrix"`
	Trace          float64           `json:"trace"`
	Det            float64           `json:"determinant"`
	Discriminant   float64           `json:"discriminant"`
	Eigenvalues    [2]Complex        `json:"eigenvalues"`
	Eigenvectors   [2][2]Complex     `json:"eigenvectors"`
	Classification Classification    `json:"classification"`
	Stable         bool              `json:"asymptotically_stable"`
	CharPoly       [3]float64        `json:"characteristic_polynomial"`
	Lyapunov       QuadraticLyapunov `json:"lyapunov_function"`
}

// AnalyzeLinear computes the spectrum and classification of dx/dt = A x.
// When the invariants overflow, the class and eigenvalues come from A
// scaled by its largest entry; CheckLinear reports such matrices.
func AnalyzeLinear(a [2][2]float64) *LinearAnalysis {
	tr, det, disc := invariants(a)
	class := Classify(tr, det, disc)
	l1, l2 := eigenvalues(tr, disc)
	if !isFinite(tr) || !isFinite(det) || !isFinite(disc) {
		if s := maxAbs(a); s > 0 && isFinite(s) {
			var b [2][2]float64
			for i := range a {
				for j := range a[i] {
					b[i][j] = a[i][j] / s
				}
			}
			str, sdet, sdisc := invariants(b)
			class = Classify(str, sdet, sdisc)
			l1, l2 = eigenvalues(str, sdisc)
			l1 *= complex(s, 0)
			l2 *= complex(s, 0)
		}
	}

	res := &LinearAnalysis{
		Matrix:         a,
		Trace:          tr,
		Det:            det,
		Discriminant:   disc,
		Eigenvalues:    [2]Complex{toComplex(l1), toComplex(l2)},
		Classification: class,
		Stable:         class == StableNode || class == StableFocus,
		CharPoly:       [3]float64{1, -tr, det},
		Lyapunov:       solveLyapunov(a),
	}
	res.Eigenvectors[0] = eigenvector(a, l1, 0)
	res.Eigenvectors[1] = eigenvector(a, l2, 1)
	return res
}

// CheckLinear rejects matrices with non-finite entries or whose trace,
// determinant or discriminant overflow.
func CheckLinear(a [2][2]float64) error {
	for i := range a {
		for j := range a[i] {
			if !isFinite(a[i][j]) {
				return dynamo.Invalid("matrix", "entry a%d%d must be finite", i+1, j+1)
			}
		}
	}
	tr, det, disc := invariants(a)
	if !isFinite(tr) || !isFinite(det) || !isFinite(disc) {
		return dynamo.Invalid("matrix", "entries too large: trace, determinant or discriminant overflows (max |a| = %g)", maxAbs(a))
	}
	return nil
}

func invariants(a [2][2]float64) (tr, det, disc float64) {
	tr = a[0][0] + a[1][1]
	det = a[0][0]*a[1][1] - a[0][1]*a[1][0]
	return tr, det, tr*tr - 4*det
}

func eigenvalues(tr, disc float64) (complex128, complex128) {
	if disc >= 0 {
		sq := math.Sqrt(disc)
		return complex((tr+sq)/2, 0), complex((tr-sq)/2, 0)
	}
	im := math.Sqrt(-disc) / 2
	return complex(tr/2, im), complex(tr/2, -im)
}

func maxAbs(a [2][2]float64) float64 {
	return math.Max(math.Max(math.Abs(a[0][0]), math.Abs(a[0][1])), math.Max(math.Abs(a[1][0]), math.Abs(a[1][1])))
}

// Classify applies the planar trace-determinant rules in a fixed order so
// that every matrix gets exactly one class.
func Classify(trace, det, disc float64) Classification {
	switch {
	case det < 0:
		return Saddle
	case det > 0 && trace < 0:
		if disc >= 0 {
			return StableNode
		}
		return StableFocus
	case det > 0 && trace > 0:
		if disc >= 0 {
			return UnstableNode
		}
		return UnstableFocus
	case det > 0 && trace == 0:
		return Center
	default:
		return Degenerate
	}
}

// eigenvector returns a unit eigenvector for lambda. For a multiple of the
// identity every vector is an eigenvector and the basis vector idx is used.
func eigenvector(a [2][2]float64, lambda complex128, idx int) [2]Complex {
	var v0, v1 complex128
	switch {
	case a[0][1] != 0:
		v0, v1 = complex(a[0][1], 0), lambda-complex(a[0][0], 0)
	case a[1][0] != 0:
		v0, v1 = lambda-complex(a[1][1], 0), complex(a[1][0], 0)
	case a[0][0] == a[1][1]:
		if idx == 0 {
			v0, v1 = 1, 0
		} else {
			v0, v1 = 0, 1
		}
	case lambda == complex(a[0][0], 0):
		v0, v1 = 1, 0
	default:
		v0, v1 = 0, 1
	}
	n := math.Sqrt(real(v0*cmplx.Conj(v0)) + real(v1*cmplx.Conj(v1)))
	if n == 0 {
		return [2]Complex{}
	}
	return [2]Complex{toComplex(v0 / complex(n, 0)), toComplex(v1 / complex(n, 0))}
}

// solveLyapunov solves A^T P + P A = -I for symmetric P = [[p q] [q r]]:
//
//	2a p + 2c q         = -1
//	b p + (a+d) q + c r =  0
//	2b q + 2d r         = -1
func solveLyapunov(a [2][2]float64) QuadraticLyapunov {
	A, b, c, d := a[0][0], a[0][1], a[1][0], a[1][1]
	// the system's determinant is 4 tr(A) det(A); it vanishes whenever two
	// eigenvalues sum to zero
	scale := math.Max(1, math.Max(math.Max(math.Abs(A), math.Abs(b)), math.Max(math.Abs(c), math.Abs(d))))
	if math.Abs(4*(A+d)*(A*d-b*c)) < 1e-12*scale*scale*scale {
		return QuadraticLyapunov{}
	}
	m := mat.NewDense(3, 3, []float64{
		2 * A, 2 * c, 0,
		b, A + d, c,
		0, 2 * b, 2 * d,
	})
	rhs := mat.NewVecDense(3, []float64{-1, 0, -1})

	var sol mat.VecDense
	if err := sol.SolveVec(m, rhs); err != nil {
		// an ill-conditioned solve still yields a usable P
		var cond mat.Condition
		if !errors.As(err, &cond) || math.IsInf(float64(cond), 0) {
			return QuadraticLyapunov{}
		}
	}
	p, q, r := sol.AtVec(0), sol.AtVec(1), sol.AtVec(2)
	if math.IsNaN(p+q+r) || math.IsInf(p+q+r, 0) {
		return QuadraticLyapunov{}
	}

	var chol mat.Cholesky
	pd := chol.Factorize(mat.NewSymDense(2, []float64{p, q, q, r}))
	return QuadraticLyapunov{
		P:                [2][2]float64{{p, q}, {q, r}},
		Solvable:         true,
		PositiveDefinite: pd,
	}
}

// LinearSweepPoint is the spectrum of the matrix at one entry value.
type LinearSweepPoint struct {
	Value          float64        `json:"value"`
	Eigenvalues    [2]Complex     `json:"eigenvalues"`
	Classification Classification `json:"classification"`
}

type LinearSweep struct {
	Entry   string             `json:"entry"`
	Min     float64            `json:"min"`
	Max     float64            `json:"max"`
	Swapped bool               `json:"swapped"`
	Points  []LinearSweepPoint `json:"points"`
}

var matrixEntries = map[string][2]int{"a11": {0, 0}, "a12": {0, 1}, "a21": {1, 0}, "a22": {1, 1}}

// SweepLinear varies one matrix entry over steps+1 evenly spaced values and
// reports the eigenvalues and class at each.
func SweepLinear(ctx context.Context, a [2][2]float64, entry string, lo, hi float64, steps int) (*LinearSweep, error) {
	pos, ok := matrixEntries[entry]
	if !ok {
		return nil, dynamo.Invalid("param_name", "unknown matrix entry %q", entry)
	}
	lo, hi, swapped, err := checkRange(lo, hi, steps)
	if err != nil {
		return nil, err
	}

	out := &LinearSweep{Entry: entry, Min: lo, Max: hi, Swapped: swapped, Points: make([]LinearSweepPoint, 0, steps+1)}
	for i := 0; i <= steps; i++ {
		if err := dynamo.Canceled(ctx, "linear sweep", i, steps+1); err != nil {
			return nil, err
		}
		v := lo + float64(i)*(hi-lo)/float64(steps)
		m := a
		m[pos[0]][pos[1]] = v
		if err := CheckLinear(m); err != nil {
			return nil, err
		}
		la := AnalyzeLinear(m)
		out.Points = append(out.Points, LinearSweepPoint{Value: v, Eigenvalues: la.Eigenvalues, Classification: la.Classification})
	}
	return out, nil
}

// checkRange validates a parameter range and orders it.
func checkRange(lo, hi float64, steps int) (float64, float64, bool, error) {
	if math.IsNaN(lo) || math.IsNaN(hi) || math.IsInf(lo, 0) || math.IsInf(hi, 0) {
		return 0, 0, false, dynamo.Invalid("param_range", "bounds must be finite")
	}
	if lo == hi {
		return 0, 0, false, dynamo.Invalid("param_range", "zero-width range [%g, %g]", lo, hi)
	}
	if steps < 1 {
		return 0, 0, false, dynamo.Invalid("param_steps", "must be at least 1, got %d", steps)
	}
	if lo > hi {
		return hi, lo, true, nil
	}
	return lo, hi, false, nil
}
