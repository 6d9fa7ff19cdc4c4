package analysis

import (
	"context"
	"math"
	"sort"

	"github.com/san-kum/phaselab/internal/dynamo"
	"github.com/san-kum/phaselab/internal/integrators"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

const (
	MethodVariational = "variational"
	MethodSeparation  = "separation"
	MethodDerivative  = "derivative"
	MethodQR          = "qr"
)

// LyapunovOptions are the discretisation choices of a flow estimate.
// They are reported back with every result.
type LyapunovOptions struct {
	Dt          float64 `json:"dt" yaml:"dt"`
	Transient   float64 `json:"transient" yaml:"transient"`
	Duration    float64 `json:"duration" yaml:"duration"`
	RenormEvery int     `json:"renorm_every" yaml:"renorm_every"`
	// Perturbation is the initial separation of the separation method.
	Perturbation float64 `json:"perturbation,omitempty" yaml:"perturbation"`
}

func DefaultLyapunovOptions() LyapunovOptions {
	return LyapunovOptions{Dt: 0.01, Transient: 10, Duration: 100, RenormEvery: 10, Perturbation: 1e-8}
}

func (o LyapunovOptions) validate() error {
	if !(o.Dt > 0) {
		return dynamo.Invalid("dt", "must be positive, got %g", o.Dt)
	}
	if o.Transient < 0 {
		return dynamo.Invalid("transient", "must not be negative, got %g", o.Transient)
	}
	if !(o.Duration >= o.Dt) {
		return dynamo.Invalid("duration", "must cover at least one step, got %g", o.Duration)
	}
	if o.RenormEvery < 1 {
		return dynamo.Invalid("renorm_every", "must be at least 1, got %d", o.RenormEvery)
	}
	return nil
}

// MapOptions are the orbit lengths of a map estimate.
type MapOptions struct {
	Transient int `json:"transient" yaml:"map_transient"`
	Steps     int `json:"steps" yaml:"map_steps"`
}

func DefaultMapOptions() MapOptions { return MapOptions{Transient: 100, Steps: 1000} }

// LyapunovSpectrum is an ordered (largest first) list of exponents.
type LyapunovSpectrum struct {
	Exponents []float64 `json:"exponents"`
	Sum       float64   `json:"sum"`
	Largest   float64   `json:"largest"`
	Chaotic   bool      `json:"is_chaotic"`
	Method    string    `json:"method"`
	// Elapsed is the averaging time (flows) or number of iterations (maps).
	Elapsed float64 `json:"elapsed"`
	Quality Quality `json:"quality"`
}

func newSpectrum(exps []float64, method string, elapsed float64, q Quality) *LyapunovSpectrum {
	sort.Sort(sort.Reverse(sort.Float64Slice(exps)))
	s := &LyapunovSpectrum{Exponents: exps, Method: method, Elapsed: elapsed, Quality: q}
	s.Sum = floats.Sum(exps)
	if len(exps) > 0 {
		s.Largest = exps[0]
	}
	s.Chaotic = s.Largest > 0
	return s
}

type linearizedFlow interface {
	dynamo.Flow
	dynamo.Linearizable
}

// tangentFlow integrates the state together with n tangent vectors stored
// column-major after it: s = [x, q_0, q_1, ...], dq_i/dt = J(x) q_i.
type tangentFlow struct {
	f linearizedFlow
	n int
}

func (tf tangentFlow) StateDim() int { return tf.n * (tf.n + 1) }

func (tf tangentFlow) Derive(s dynamo.State, t float64) dynamo.State {
	n := tf.n
	x := s[:n]
	out := make(dynamo.State, len(s))
	copy(out, tf.f.Derive(x, t))
	j := tf.f.Jacobian(x)
	for c := 0; c < n; c++ {
		q := mat.NewVecDense(n, s[n+c*n:n+(c+1)*n])
		dq := mat.NewVecDense(n, out[n+c*n:n+(c+1)*n])
		dq.MulVec(j, q)
	}
	return out
}

// FlowSpectrum estimates the full spectrum of a flow with the variational
// method: after the transient the state is integrated together with an
// orthonormal tangent frame, the frame is re-orthonormalised by
// Gram-Schmidt every RenormEvery steps, and exponent i is the accumulated
// log growth of direction i divided by the elapsed time.
func FlowSpectrum(ctx context.Context, f linearizedFlow, x0 dynamo.State, opts LyapunovOptions) (*LyapunovSpectrum, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	n := f.StateDim()
	if err := dynamo.CheckDim("initial_state", x0, n); err != nil {
		return nil, err
	}

	var q Quality
	rk := integrators.NewRK4()
	x := x0.Clone()
	transientSteps := int(math.Floor(opts.Transient/opts.Dt + 1e-9))
	for i := 0; i < transientSteps; i++ {
		if i%256 == 0 {
			if err := dynamo.Canceled(ctx, "lyapunov transient", i, transientSteps); err != nil {
				return nil, err
			}
		}
		x = rk.Step(f, x, float64(i)*opts.Dt, opts.Dt)
		if x.Diverged() {
			q.Diverged = true
			q.warn("state diverged during the transient at t=%.4g; the estimate is unreliable", float64(i+1)*opts.Dt)
			return newSpectrum(make([]float64, n), MethodVariational, 0, q), nil
		}
	}

	tf := tangentFlow{f: f, n: n}
	s := make(dynamo.State, tf.StateDim())
	copy(s, x)
	for c := 0; c < n; c++ {
		s[n+c*n+c] = 1
	}

	steps := int(math.Floor(opts.Duration/opts.Dt + 1e-9))
	sums := make([]float64, n)
	var half []float64
	elapsed := 0.0
	t := opts.Transient
	for i := 1; i <= steps; i++ {
		s = rk.Step(tf, s, t, opts.Dt)
		t += opts.Dt
		if i%opts.RenormEvery != 0 && i != steps {
			continue
		}
		if err := dynamo.Canceled(ctx, "lyapunov", i, steps); err != nil {
			return nil, err
		}
		if dynamo.State(s[:n]).Diverged() {
			q.Diverged = true
			q.warn("state diverged at t=%.4g; averaging stopped early", t)
			break
		}
		norms := gramSchmidt(s[n:], n)
		for k, v := range norms {
			sums[k] += math.Log(v)
		}
		elapsed = float64(i) * opts.Dt
		if half == nil && i >= steps/2 {
			half = make([]float64, n)
			for k := range sums {
				half[k] = sums[k] / elapsed
			}
		}
	}

	exps := make([]float64, n)
	if elapsed > 0 {
		for k := range sums {
			exps[k] = sums[k] / elapsed
		}
	}
	assessConvergence(&q, half, exps, elapsed < opts.Duration/2)
	return newSpectrum(exps, MethodVariational, elapsed, q), nil
}

// gramSchmidt orthonormalises the n column vectors stored back to back in
// v (modified Gram-Schmidt) and returns their norms before normalisation.
func gramSchmidt(v []float64, n int) []float64 {
	norms := make([]float64, n)
	for c := 0; c < n; c++ {
		col := v[c*n : (c+1)*n]
		for p := 0; p < c; p++ {
			prev := v[p*n : (p+1)*n]
			floats.AddScaled(col, -floats.Dot(col, prev), prev)
		}
		nrm := floats.Norm(col, 2)
		if nrm == 0 || !isFinite(nrm) {
			nrm = math.SmallestNonzeroFloat64
		} else {
			floats.Scale(1/nrm, col)
		}
		norms[c] = nrm
	}
	return norms
}

func assessConvergence(q *Quality, half, final []float64, short bool) {
	q.Converged = !q.Diverged && !short
	if short {
		q.warn("averaging window is shorter than half the requested duration")
	}
	if half == nil || len(final) == 0 || q.Diverged {
		q.Converged = false
		return
	}
	drift := math.Abs(final[0] - half[0])
	if drift > 0.05*math.Max(1, math.Abs(final[0])) {
		q.Converged = false
		q.warn("largest exponent still drifting (%.3g between half and full run); increase the duration", drift)
	}
}

// SeparationExponent estimates the largest exponent by following a
// reference and a perturbed trajectory, rescaling their separation back to
// the initial distance every RenormEvery steps.
func SeparationExponent(ctx context.Context, f dynamo.Flow, x0 dynamo.State, opts LyapunovOptions) (*LyapunovSpectrum, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	if err := dynamo.CheckDim("initial_state", x0, f.StateDim()); err != nil {
		return nil, err
	}
	d0 := opts.Perturbation
	if !(d0 > 0) {
		d0 = DefaultLyapunovOptions().Perturbation
	}

	var q Quality
	integ, integp := integrators.NewRK4(), integrators.NewRK4()
	x := x0.Clone()
	transientSteps := int(math.Floor(opts.Transient/opts.Dt + 1e-9))
	for i := 0; i < transientSteps; i++ {
		if i%256 == 0 {
			if err := dynamo.Canceled(ctx, "lyapunov transient", i, transientSteps); err != nil {
				return nil, err
			}
		}
		x = integ.Step(f, x, float64(i)*opts.Dt, opts.Dt)
	}
	if x.Diverged() {
		q.Diverged = true
		q.warn("state diverged during the transient; the estimate is unreliable")
		return newSpectrum([]float64{0}, MethodSeparation, 0, q), nil
	}

	xp := x.Clone()
	xp[0] += d0

	steps := int(math.Floor(opts.Duration/opts.Dt + 1e-9))
	sumLog := 0.0
	elapsed := 0.0
	var half []float64
	t := opts.Transient
	for i := 1; i <= steps; i++ {
		x = integ.Step(f, x, t, opts.Dt)
		xp = integp.Step(f, xp, t, opts.Dt)
		t += opts.Dt
		if i%opts.RenormEvery != 0 && i != steps {
			continue
		}
		if err := dynamo.Canceled(ctx, "lyapunov", i, steps); err != nil {
			return nil, err
		}
		if x.Diverged() || xp.Diverged() {
			q.Diverged = true
			q.warn("state diverged at t=%.4g; averaging stopped early", t)
			break
		}

		sep := xp.Sub(x).Norm()
		if sep == 0 {
			sep = math.SmallestNonzeroFloat64
		}
		sumLog += math.Log(sep / d0)
		elapsed = float64(i) * opts.Dt

		// Renormalize to keep the pair in the linear regime
		scale := d0 / sep
		for k := range xp {
			xp[k] = x[k] + (xp[k]-x[k])*scale
		}
		if half == nil && i >= steps/2 {
			half = []float64{sumLog / elapsed}
		}
	}

	exp := 0.0
	if elapsed > 0 {
		exp = sumLog / elapsed
	}
	assessConvergence(&q, half, []float64{exp}, elapsed < opts.Duration/2)
	return newSpectrum([]float64{exp}, MethodSeparation, elapsed, q), nil
}

// minDerivative keeps ln|f'| finite at superstable points.
const minDerivative = 1e-300

// MapSpectrum estimates the exponents of a map along one orbit. For
// one-dimensional maps it averages ln|f'(x_n)|; for two-dimensional maps
// it propagates an orthonormal frame with the Jacobian and re-orthonormalises
// it by QR decomposition every iteration.
func MapSpectrum(ctx context.Context, m dynamo.Map, lin dynamo.Linearizable, x0 dynamo.State, opts MapOptions) (*LyapunovSpectrum, error) {
	n := m.StateDim()
	if err := dynamo.CheckDim("initial_state", x0, n); err != nil {
		return nil, err
	}
	if opts.Steps < 1 {
		return nil, dynamo.Invalid("steps", "must be at least 1, got %d", opts.Steps)
	}
	if opts.Transient < 0 {
		return nil, dynamo.Invalid("transient", "must not be negative, got %d", opts.Transient)
	}

	var q Quality
	x := x0.Clone()
	for i := 0; i < opts.Transient; i++ {
		if i%256 == 0 {
			if err := dynamo.Canceled(ctx, "lyapunov transient", i, opts.Transient); err != nil {
				return nil, err
			}
		}
		x = m.Next(x)
		if x.Diverged() {
			q.Diverged = true
			q.warn("orbit diverged during the transient at iteration %d; the estimate is unreliable", i+1)
			return newSpectrum(make([]float64, n), methodForDim(n), 0, q), nil
		}
	}

	sums := make([]float64, n)
	w := mat.NewDense(n, n, nil)
	for k := 0; k < n; k++ {
		w.Set(k, k, 1)
	}
	var half []float64
	done := 0
	for i := 0; i < opts.Steps; i++ {
		if i%256 == 0 {
			if err := dynamo.Canceled(ctx, "lyapunov", i, opts.Steps); err != nil {
				return nil, err
			}
		}
		j := lin.Jacobian(x)
		if n == 1 {
			sums[0] += math.Log(math.Max(math.Abs(j.At(0, 0)), minDerivative))
		} else {
			var jw mat.Dense
			jw.Mul(j, w)
			var qr mat.QR
			qr.Factorize(&jw)
			var r mat.Dense
			qr.RTo(&r)
			qr.QTo(w)
			for k := 0; k < n; k++ {
				sums[k] += math.Log(math.Max(math.Abs(r.At(k, k)), minDerivative))
			}
		}
		x = m.Next(x)
		done = i + 1
		if x.Diverged() {
			q.Diverged = true
			q.warn("orbit diverged at iteration %d; averaging stopped early", opts.Transient+done)
			break
		}
		if half == nil && done >= opts.Steps/2 && done > 0 {
			half = make([]float64, n)
			for k := range sums {
				half[k] = sums[k] / float64(done)
			}
		}
	}

	exps := make([]float64, n)
	for k := range sums {
		exps[k] = sums[k] / float64(done)
	}
	if opts.Steps < 500 {
		q.warn("only %d iterations averaged", opts.Steps)
	}
	sorted := append([]float64(nil), exps...)
	sort.Sort(sort.Reverse(sort.Float64Slice(sorted)))
	if half != nil {
		sort.Sort(sort.Reverse(sort.Float64Slice(half)))
	}
	assessConvergence(&q, half, sorted, done < opts.Steps/2)
	if opts.Steps < 500 {
		q.Converged = false
	}
	return newSpectrum(exps, methodForDim(n), float64(done), q), nil
}

func methodForDim(n int) string {
	if n == 1 {
		return MethodDerivative
	}
	return MethodQR
}
