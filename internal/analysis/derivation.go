package analysis

import "fmt"

// Derivation is a worked, step-by-step account of AnalyzeLinear for one
// matrix, meant for display next to the numeric result.
type Derivation struct {
	Polynomial     PolynomialSteps `json:"characteristic_polynomial"`
	Eigenvalues    EigenvalueSteps `json:"eigenvalue_calculation"`
	Stability      StabilitySteps  `json:"stability_analysis"`
	Classification ClassSummary    `json:"phase_portrait_classification"`
	Lyapunov       LyapunovSteps   `json:"lyapunov_analysis"`
}

type PolynomialSteps struct {
	Steps        []string   `json:"steps"`
	Coefficients [3]float64 `json:"polynomial_coeffs"`
	Discriminant float64    `json:"discriminant"`
}

type EigenvalueSteps struct {
	Steps       []string   `json:"steps"`
	Eigenvalues [2]Complex `json:"eigenvalues"`
}

type StabilitySteps struct {
	Trace        float64 `json:"trace"`
	Det          float64 `json:"determinant"`
	Discriminant float64 `json:"discriminant"`
	Condition    string  `json:"stability_condition"`
	Reasoning    string  `json:"reasoning"`
}

type ClassSummary struct {
	Type        Classification `json:"type"`
	Description string         `json:"description"`
	Properties  []string       `json:"mathematical_properties"`
}

type LyapunovSteps struct {
	P          *[2][2]float64 `json:"quadratic_form"`
	Function   string         `json:"lyapunov_function,omitempty"`
	Conclusion string         `json:"stability_conclusion"`
}

type classText struct {
	condition, reasoning, description string
	properties                        []string
}

var classTexts = map[Classification]classText{
	Saddle: {
		"det(A) < 0", "one positive and one negative real eigenvalue",
		"stable along one eigendirection, unstable along the other",
		[]string{"λ1 > 0 > λ2", "stable and unstable manifolds exist", "hyperbolic equilibrium"},
	},
	StableNode: {
		"det(A) > 0, tr(A) < 0, Δ ≥ 0", "two negative real eigenvalues",
		"every trajectory converges to the origin",
		[]string{"λ1, λ2 < 0 (real)", "the origin is globally asymptotically stable", "trajectories approach along eigendirections"},
	},
	StableFocus: {
		"det(A) > 0, tr(A) < 0, Δ < 0", "complex eigenvalues with negative real part",
		"trajectories spiral into the origin",
		[]string{"λ = α ± βi, α < 0", "spiralling convergence", "the origin is asymptotically stable"},
	},
	UnstableNode: {
		"det(A) > 0, tr(A) > 0, Δ ≥ 0", "two positive real eigenvalues",
		"every trajectory leaves the origin",
		[]string{"λ1, λ2 > 0 (real)", "the origin is unstable", "trajectories leave along eigendirections"},
	},
	UnstableFocus: {
		"det(A) > 0, tr(A) > 0, Δ < 0", "complex eigenvalues with positive real part",
		"trajectories spiral away from the origin",
		[]string{"λ = α ± βi, α > 0", "spiralling divergence", "the origin is unstable"},
	},
	Center: {
		"det(A) > 0, tr(A) = 0", "purely imaginary eigenvalues",
		"trajectories are closed ellipses around the origin",
		[]string{"λ = ±βi", "periodic motion", "Lyapunov stable, not asymptotically stable"},
	},
	Degenerate: {
		"det(A) = 0", "at least one zero eigenvalue",
		"a line of equilibria or a non-isolated origin",
		[]string{"det(A) = 0", "the origin is not an isolated equilibrium"},
	},
}

// Derive writes out the characteristic polynomial, the eigenvalue formula,
// the trace-determinant test and the quadratic Lyapunov function of la.
func Derive(la *LinearAnalysis) *Derivation {
	a := la.Matrix
	tr, det, disc := la.Trace, la.Det, la.Discriminant
	d := &Derivation{}

	d.Polynomial = PolynomialSteps{
		Steps: []string{
			"characteristic polynomial: det(A - λI) = 0",
			fmt.Sprintf("det([%.3f - λ, %.3f; %.3f, %.3f - λ]) = 0", a[0][0], a[0][1], a[1][0], a[1][1]),
			fmt.Sprintf("(%.3f - λ)(%.3f - λ) - (%.3f)(%.3f) = 0", a[0][0], a[1][1], a[0][1], a[1][0]),
			fmt.Sprintf("λ² - (%.3f)λ + (%.3f) = 0", tr, det),
			fmt.Sprintf("discriminant Δ = (%.3f)² - 4(%.3f) = %.3f", tr, det, disc),
		},
		Coefficients: la.CharPoly,
		Discriminant: disc,
	}

	l1, l2 := la.Eigenvalues[0], la.Eigenvalues[1]
	d.Eigenvalues.Eigenvalues = la.Eigenvalues
	if disc >= 0 {
		d.Eigenvalues.Steps = []string{
			"quadratic formula: λ = (tr(A) ± √Δ) / 2",
			fmt.Sprintf("λ1 = (%.3f + √%.3f) / 2 = %.4f", tr, disc, l1.Re),
			fmt.Sprintf("λ2 = (%.3f - √%.3f) / 2 = %.4f", tr, disc, l2.Re),
		}
	} else {
		d.Eigenvalues.Steps = []string{
			"complex eigenvalues: λ = (tr(A) ± i√|Δ|) / 2",
			fmt.Sprintf("real part α = %.4f", l1.Re),
			fmt.Sprintf("imaginary part β = ±%.4f", l1.Im),
			fmt.Sprintf("λ1,2 = %.4f ± %.4fi", l1.Re, l1.Im),
		}
	}

	text := classTexts[la.Classification]
	d.Stability = StabilitySteps{
		Trace:        tr,
		Det:          det,
		Discriminant: disc,
		Condition:    fmt.Sprintf("%s → %s", text.condition, la.Classification),
		Reasoning:    text.reasoning,
	}
	d.Classification = ClassSummary{Type: la.Classification, Description: text.description, Properties: text.properties}

	switch ly := la.Lyapunov; {
	case ly.Solvable && ly.PositiveDefinite:
		p := ly.P
		d.Lyapunov = LyapunovSteps{
			P:          &p,
			Function:   fmt.Sprintf("V(x) = x^T P x, P = [[%.4f, %.4f], [%.4f, %.4f]]", p[0][0], p[0][1], p[1][0], p[1][1]),
			Conclusion: "A^T P + P A = -I has a positive definite solution; the origin is asymptotically stable",
		}
	case ly.Solvable:
		d.Lyapunov.Conclusion = "A^T P + P A = -I has no positive definite solution; no quadratic Lyapunov function exists"
	default:
		d.Lyapunov.Conclusion = "A^T P + P A = -I is singular: an eigenvalue is zero or two eigenvalues sum to zero"
	}
	return d
}
