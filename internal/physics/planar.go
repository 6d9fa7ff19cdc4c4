package physics

import (
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/san-kum/phaselab/internal/dynamo"
	"gonum.org/v1/gonum/mat"
)

// Planar is the autonomous field dx/dt = f(x, y), dy/dt = g(x, y) given as
// expressions. It evaluates through one reused environment and is not safe
// for concurrent use; build one per goroutine.
type Planar struct {
	DxDt, DyDt string

	progs   [2]*vm.Program
	env     map[string]any
	machine vm.VM
}

var (
	digitBefore = regexp.MustCompile(`(\d)\s*([xy(])`)
	parenBefore = regexp.MustCompile(`\)\s*([xy(\d])`)
	varBefore   = regexp.MustCompile(`\b([xy])\s*\(`)
	varPair     = regexp.MustCompile(`\b([xy])\s*([xy])\b`)
)

// normalize accepts the usual hand-written forms: 2x, 3(x+1), (x+1)y,
// x(y-1), xy and π.
func normalize(src string) string {
	s := strings.ReplaceAll(strings.TrimSpace(src), "π", "(pi)")
	s = digitBefore.ReplaceAllString(s, "$1*$2")
	s = parenBefore.ReplaceAllString(s, ")*$1")
	s = varBefore.ReplaceAllString(s, "$1*(")
	s = varPair.ReplaceAllString(s, "$1*$2")
	return s
}

func unary(name string, fn func(float64) float64) expr.Option {
	return expr.Function(name, func(args ...any) (any, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("%s takes one argument, got %d", name, len(args))
		}
		v, ok := toFloat(args[0])
		if !ok {
			return nil, fmt.Errorf("%s: argument is not a number", name)
		}
		return fn(v), nil
	})
}

var functions = []expr.Option{
	unary("sin", math.Sin),
	unary("cos", math.Cos),
	unary("tan", math.Tan),
	unary("atan", math.Atan),
	unary("sinh", math.Sinh),
	unary("cosh", math.Cosh),
	unary("tanh", math.Tanh),
	unary("exp", math.Exp),
	unary("log", math.Log),
	unary("sqrt", math.Sqrt),
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	}
	return 0, false
}

// NewPlanar compiles both right-hand sides. The only free names are x, y,
// pi and e.
func NewPlanar(dxdt, dydt string) (*Planar, error) {
	p := &Planar{
		DxDt: dxdt,
		DyDt: dydt,
		env:  map[string]any{"x": 0.0, "y": 0.0, "pi": math.Pi, "e": math.E},
	}
	for i, src := range [2]struct{ field, text string }{{"dx_dt", dxdt}, {"dy_dt", dydt}} {
		if strings.TrimSpace(src.text) == "" {
			return nil, dynamo.Invalid(src.field, "expression is empty")
		}
		opts := append([]expr.Option{expr.Env(p.env)}, functions...)
		prog, err := expr.Compile(normalize(src.text), opts...)
		if err != nil {
			return nil, dynamo.Invalid(src.field, "cannot parse %q: %v", src.text, err)
		}
		p.progs[i] = prog
		if _, err := p.eval(prog, 0.5, 0.25); err != nil {
			return nil, dynamo.Invalid(src.field, "%q does not evaluate to a number: %v", src.text, err)
		}
	}
	return p, nil
}

func (p *Planar) eval(prog *vm.Program, x, y float64) (float64, error) {
	p.env["x"], p.env["y"] = x, y
	out, err := p.machine.Run(prog, p.env)
	if err != nil {
		return 0, err
	}
	v, ok := toFloat(out)
	if !ok {
		return 0, fmt.Errorf("result is %T", out)
	}
	return v, nil
}

// Eval returns the field at (x, y). Points where an expression fails to
// evaluate give NaN.
func (p *Planar) Eval(x, y float64) (float64, float64) {
	u, err := p.eval(p.progs[0], x, y)
	if err != nil {
		u = math.NaN()
	}
	v, err := p.eval(p.progs[1], x, y)
	if err != nil {
		v = math.NaN()
	}
	return u, v
}

func (p *Planar) StateDim() int { return 2 }

func (p *Planar) Derive(s dynamo.State, _ float64) dynamo.State {
	u, v := p.Eval(s[0], s[1])
	return dynamo.State{u, v}
}

// Jacobian is the central-difference Jacobian with a step scaled to |x|.
func (p *Planar) Jacobian(s dynamo.State) *mat.Dense {
	j := mat.NewDense(2, 2, nil)
	for c := 0; c < 2; c++ {
		h := 1e-6 * math.Max(1, math.Abs(s[c]))
		xp, xm := s.Clone(), s.Clone()
		xp[c] += h
		xm[c] -= h
		fp, gp := p.Eval(xp[0], xp[1])
		fm, gm := p.Eval(xm[0], xm[1])
		j.Set(0, c, (fp-fm)/(2*h))
		j.Set(1, c, (gp-gm)/(2*h))
	}
	return j
}
