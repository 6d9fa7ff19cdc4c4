package analysis

import (
	"context"
	"math"
	"math/cmplx"
	"sort"

	"github.com/san-kum/phaselab/internal/dynamo"
	"github.com/san-kum/phaselab/internal/maps"
	"gonum.org/v1/gonum/mat"
)

type Stability string

const (
	Stable   Stability = "stable"
	Unstable Stability = "unstable"
	Neutral  Stability = "neutral"
)

// NeutralTolerance is how close to 1 a multiplier magnitude must be to be
// called neutral.
const NeutralTolerance = 1e-9

// rootTolerance bounds the residual of an accepted fixed or periodic point
// and the distance under which two points are the same.
const rootTolerance = 1e-6

func stabilityOf(magnitude float64) Stability {
	switch {
	case math.Abs(magnitude-1) <= NeutralTolerance:
		return Neutral
	case magnitude < 1:
		return Stable
	default:
		return Unstable
	}
}

// Search is the grid used to bracket fixed points and periodic orbits of
// one-dimensional maps.
type Search struct {
	Min         float64 `json:"min" yaml:"search_min"`
	Max         float64 `json:"max" yaml:"search_max"`
	Points      int     `json:"points" yaml:"search_points"`
	OrbitPoints int     `json:"orbit_points" yaml:"orbit_points"`
	MaxPeriod   int     `json:"max_period" yaml:"max_period"`
}

func DefaultSearch() Search {
	return Search{Min: -2, Max: 2, Points: 100, OrbitPoints: 400, MaxPeriod: 10}
}

func (s Search) validate() error {
	if !(s.Min < s.Max) {
		return dynamo.Invalid("search", "min %g must be below max %g", s.Min, s.Max)
	}
	if s.Points < 2 || s.OrbitPoints < 2 {
		return dynamo.Invalid("search", "need at least 2 grid points")
	}
	if s.MaxPeriod < 1 {
		return dynamo.Invalid("search", "max period must be at least 1")
	}
	return nil
}

type FixedPoint struct {
	Point          dynamo.State `json:"point"`
	Multiplier     float64      `json:"multiplier"`
	Jacobian       [][]float64  `json:"jacobian,omitempty"`
	Eigenvalues    []Complex    `json:"eigenvalues,omitempty"`
	SpectralRadius float64      `json:"spectral_radius"`
	Stability      Stability    `json:"stability"`
}

type PeriodicOrbit struct {
	Period     int       `json:"period"`
	Points     []float64 `json:"points"`
	Multiplier float64   `json:"multiplier"`
	Stability  Stability `json:"stability"`
}

// FixedPoints returns the closed-form fixed points of m when it has them;
// otherwise one-dimensional maps are searched on the grid and
// two-dimensional maps with Newton's method from a fixed set of guesses.
func FixedPoints(m dynamo.Map, search Search) ([]dynamo.State, error) {
	if fp, ok := m.(maps.FixedPointer); ok {
		return fp.FixedPoints(), nil
	}
	if err := search.validate(); err != nil {
		return nil, err
	}
	if s, ok := m.(maps.Scalar); ok {
		roots := scalarRoots(func(x float64) float64 { return s.Apply(x) - x }, search.Min, search.Max, search.Points)
		out := make([]dynamo.State, len(roots))
		for i, r := range roots {
			out[i] = dynamo.State{r}
		}
		return out, nil
	}
	if lin, ok := m.(dynamo.Linearizable); ok && m.StateDim() == 2 {
		return newtonFixedPoints(m, lin), nil
	}
	return nil, dynamo.Invalid("kind", "no fixed-point solver for this map")
}

// ClassifyFixedPoint evaluates the local multiplier (1-D) or the spectral
// radius of the Jacobian (2-D) at x.
func ClassifyFixedPoint(lin dynamo.Linearizable, x dynamo.State) FixedPoint {
	j := lin.Jacobian(x)
	r, _ := j.Dims()
	if r == 1 {
		d := j.At(0, 0)
		return FixedPoint{Point: x, Multiplier: d, SpectralRadius: math.Abs(d), Stability: stabilityOf(math.Abs(d))}
	}

	var eig mat.Eigen
	fp := FixedPoint{Point: x, Jacobian: denseRows(j)}
	if !eig.Factorize(j, mat.EigenNone) {
		fp.SpectralRadius = math.NaN()
		fp.Stability = Unstable
		return fp
	}
	for _, v := range eig.Values(nil) {
		fp.Eigenvalues = append(fp.Eigenvalues, toComplex(v))
		fp.SpectralRadius = math.Max(fp.SpectralRadius, cmplx.Abs(v))
	}
	fp.Multiplier = fp.SpectralRadius
	fp.Stability = stabilityOf(fp.SpectralRadius)
	return fp
}

// PeriodicOrbits finds cycles of period 2..MaxPeriod by bracketing roots of
// f^k(x) - x on the search grid. Roots that are also fixed by f^d for a
// divisor d of k belong to a lower period and are skipped, and each cycle
// is reported once.
func PeriodicOrbits(ctx context.Context, s maps.Scalar, search Search) ([]PeriodicOrbit, error) {
	if err := search.validate(); err != nil {
		return nil, err
	}
	var out []PeriodicOrbit
	for k := 2; k <= search.MaxPeriod; k++ {
		if err := dynamo.Canceled(ctx, "periodic orbits", k-2, search.MaxPeriod-1); err != nil {
			return nil, err
		}
		g := func(x float64) float64 { return iterateScalar(s, x, k) - x }
		var found []PeriodicOrbit
		for _, root := range scalarRoots(g, search.Min, search.Max, search.OrbitPoints) {
			if lowerPeriod(s, root, k) || inOrbits(found, root) {
				continue
			}
			found = append(found, cycleAt(s, root, k))
		}
		out = append(out, found...)
	}
	return out, nil
}

func iterateScalar(s maps.Scalar, x float64, k int) float64 {
	for i := 0; i < k; i++ {
		x = s.Apply(x)
	}
	return x
}

func lowerPeriod(s maps.Scalar, x float64, k int) bool {
	for d := 1; d < k; d++ {
		if k%d == 0 && math.Abs(iterateScalar(s, x, d)-x) < rootTolerance {
			return true
		}
	}
	return false
}

func inOrbits(orbits []PeriodicOrbit, x float64) bool {
	for _, o := range orbits {
		for _, p := range o.Points {
			if math.Abs(p-x) < rootTolerance {
				return true
			}
		}
	}
	return false
}

func cycleAt(s maps.Scalar, x float64, k int) PeriodicOrbit {
	o := PeriodicOrbit{Period: k, Points: make([]float64, k), Multiplier: 1}
	for i := 0; i < k; i++ {
		o.Points[i] = x
		o.Multiplier *= s.Deriv(x)
		x = s.Apply(x)
	}
	o.Stability = stabilityOf(math.Abs(o.Multiplier))
	return o
}

// scalarRoots brackets sign changes of g on an evenly spaced grid and
// refines each by bisection. Grid nodes where g vanishes are roots too.
func scalarRoots(g func(float64) float64, lo, hi float64, n int) []float64 {
	var roots []float64
	add := func(r float64) {
		if math.Abs(g(r)) >= rootTolerance {
			return
		}
		for _, e := range roots {
			if math.Abs(e-r) < rootTolerance {
				return
			}
		}
		roots = append(roots, r)
	}

	h := (hi - lo) / float64(n-1)
	x1 := lo
	f1 := g(x1)
	for i := 1; i < n; i++ {
		x2 := lo + float64(i)*h
		f2 := g(x2)
		switch {
		case !isFinite(f1) || !isFinite(f2):
		case f1 == 0:
			add(x1)
		case f1*f2 < 0:
			add(bisect(g, x1, x2, f1))
		}
		x1, f1 = x2, f2
	}
	if f1 == 0 {
		add(x1)
	}
	sort.Float64s(roots)
	return roots
}

func bisect(g func(float64) float64, a, b, fa float64) float64 {
	for i := 0; i < 200 && b-a > 1e-15*math.Max(1, math.Abs(a)); i++ {
		m := 0.5 * (a + b)
		fm := g(m)
		if fm == 0 {
			return m
		}
		if (fa < 0) == (fm < 0) {
			a, fa = m, fm
		} else {
			b = m
		}
	}
	return 0.5 * (a + b)
}

var newtonGuesses = []dynamo.State{
	{0, 0}, {0.1, 0.1}, {-0.1, -0.1}, {0.5, 0.5}, {-0.5, -0.5},
	{1, 0}, {0, 1}, {-1, 0}, {0, -1},
}

// newtonFixedPoints solves f(x) - x = 0 from each guess.
func newtonFixedPoints(m dynamo.Map, lin dynamo.Linearizable) []dynamo.State {
	eye := mat.NewDiagDense(2, []float64{1, 1})
	residual := func(x dynamo.State) dynamo.State { return m.Next(x).Sub(x) }
	jacobian := func(x dynamo.State) mat.Matrix {
		var jm mat.Dense
		jm.Sub(lin.Jacobian(x), eye)
		return &jm
	}
	return newtonRoots(residual, jacobian, newtonGuesses)
}

// newtonRoots runs Newton's method on g from each guess and returns the
// distinct points whose residual is below rootTolerance, in guess order.
func newtonRoots(g func(dynamo.State) dynamo.State, jac func(dynamo.State) mat.Matrix, guesses []dynamo.State) []dynamo.State {
	var out []dynamo.State
	for _, guess := range guesses {
		x := guess.Clone()
		for it := 0; it < 50; it++ {
			res := g(x)
			if !res.IsValid() || res.Norm() < 1e-12 {
				break
			}
			var step mat.VecDense
			if err := step.SolveVec(jac(x), mat.NewVecDense(2, res)); err != nil {
				break
			}
			x = dynamo.State{x[0] - step.AtVec(0), x[1] - step.AtVec(1)}
			if !x.IsValid() {
				break
			}
		}
		if !x.IsValid() {
			continue
		}
		if res := g(x); !res.IsValid() || res.Norm() >= rootTolerance {
			continue
		}
		dup := false
		for _, e := range out {
			if e.Sub(x).Norm() < rootTolerance {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, x)
		}
	}
	return out
}

func denseRows(m mat.Matrix) [][]float64 {
	r, c := m.Dims()
	rows := make([][]float64, r)
	for i := range rows {
		rows[i] = make([]float64, c)
		for j := range rows[i] {
			rows[i][j] = m.At(i, j)
		}
	}
	return rows
}

func isFinite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }
