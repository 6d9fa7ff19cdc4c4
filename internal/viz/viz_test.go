package viz

import (
	"math"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/san-kum/phaselab/internal/analysis"
	"github.com/san-kum/phaselab/internal/dynamo"
	"github.com/san-kum/phaselab/internal/maps"
	"github.com/san-kum/phaselab/internal/systems"
)

func TestCanvasSet(t *testing.T) {
	c := NewCanvas(2, 1)
	c.Set(0, 0)
	c.Set(3, 3)
	c.Set(-1, 0)
	c.Set(4, 0)
	if c.Grid[0][0] != blank|0x1 || c.Grid[0][1] != blank|0x80 {
		t.Errorf("unexpected cells %U %U", c.Grid[0][0], c.Grid[0][1])
	}
	c.Clear()
	if strings.TrimSpace(c.String()) != string([]rune{blank, blank}) {
		t.Errorf("clear left dots: %q", c.String())
	}
}

func TestCanvasLine(t *testing.T) {
	c := NewCanvas(4, 1)
	c.DrawLine(0, 0, 7, 0)
	for col := 0; col < 4; col++ {
		if c.Grid[0][col] != blank|0x1|0x8 {
			t.Errorf("column %d not filled: %U", col, c.Grid[0][col])
		}
	}
}

func TestToDots(t *testing.T) {
	c := NewCanvas(10, 5)
	b := Bounds{0, 1, 0, 1}
	x, y, ok := c.ToDots(b, 0, 0)
	if !ok || x != 0 || y != 19 {
		t.Errorf("origin maps to %d,%d", x, y)
	}
	x, y, ok = c.ToDots(b, 1, 1)
	if !ok || x != 19 || y != 0 {
		t.Errorf("corner maps to %d,%d", x, y)
	}
	if _, _, ok := c.ToDots(b, 2, 0); ok {
		t.Error("point outside bounds accepted")
	}
}

func TestFitBounds(t *testing.T) {
	b := FitBounds([]float64{0, 10, math.Inf(1)}, []float64{5, 5, 0})
	if b.MinX >= 0 || b.MaxX <= 10 {
		t.Errorf("x not padded: %+v", b)
	}
	if b.MinY != 4.5 || b.MaxY != 5.5 {
		t.Errorf("flat y not widened: %+v", b)
	}
}

func TestPlots(t *testing.T) {
	p := NewPlot(40, 10)
	if out := p.Phase("phase", []float64{0, 1, 2}, []float64{0, 1, 0}); !strings.Contains(out, "phase") {
		t.Error("phase plot missing title")
	}
	if out := p.Section("section", nil); !strings.Contains(out, "no crossings") {
		t.Errorf("empty section: %q", out)
	}
	cw, err := analysis.Cobweb(&maps.Logistic{R: 2.8}, 0.2, 10)
	if err != nil {
		t.Fatal(err)
	}
	if out := p.Cobweb(cw); !strings.Contains(out, "cobweb") {
		t.Error("cobweb plot missing title")
	}
	ds := &analysis.BifurcationDataset{Param: "r", Partial: true, Points: []analysis.BifurcationPoint{{Param: 3, Values: []float64{0.6, 0.7}}}}
	if out := p.Bifurcation(ds); !strings.Contains(out, "partial") {
		t.Error("partial scan not labelled")
	}
	if out := p.Series("x", []float64{1, 2, 3, 2, 1}); out == "" {
		t.Error("empty series chart")
	}
	if out := p.Scatter("orbit", []float64{0, 1}, []float64{1, 0}); !strings.Contains(out, "orbit") {
		t.Error("scatter plot missing title")
	}
	lp := &analysis.LinearPortrait{
		Trajectories: []*analysis.PhasePortrait2D{{X: []float64{1, 0, -1}, Y: []float64{0, 1, 0}}},
		Analysis:     &analysis.LinearAnalysis{Classification: analysis.Center},
	}
	if out := p.Portrait(lp); !strings.Contains(out, "center") {
		t.Errorf("portrait not labelled: %q", out)
	}
}

func TestWriteSVG(t *testing.T) {
	var sb strings.Builder
	xs := []float64{0, 1, math.NaN(), 2, 3}
	ys := []float64{0, 1, 0, 1, 0}
	if err := WriteSVG(&sb, xs, ys, DefaultSVGOptions()); err != nil {
		t.Fatal(err)
	}
	out := sb.String()
	if !strings.HasPrefix(out, "<?xml") || !strings.HasSuffix(out, "</svg>\n") {
		t.Errorf("not an svg document: %q", out)
	}
	if strings.Count(out, " M") != 2 {
		t.Errorf("expected the path to restart after the NaN sample: %q", out)
	}

	sb.Reset()
	opts := DefaultSVGOptions()
	opts.Points = true
	if err := WriteSVG(&sb, xs, ys, opts); err != nil {
		t.Fatal(err)
	}
	if n := strings.Count(sb.String(), "<circle"); n != 4 {
		t.Errorf("expected 4 dots, got %d", n)
	}

	if err := WriteSVG(&sb, xs, ys, SVGOptions{}); err == nil {
		t.Error("expected error for zero size")
	}
}

func liveFor(t *testing.T, kind systems.Kind) *Live {
	t.Helper()
	sys, err := systems.NewRegistry().Resolve(systems.Spec{Kind: string(kind)})
	if err != nil {
		t.Fatal(err)
	}
	return NewLive(sys, sys.Model.InitialState, LiveOptions{Dt: 0.01, StepsPerTick: 5})
}

func TestLiveSteps(t *testing.T) {
	m := liveFor(t, systems.Lorenz)
	m.Update(TickMsg(time.Now()))
	if len(m.history) != 5 || m.t < 0.049 {
		t.Fatalf("expected 5 steps, got %d (t=%v)", len(m.history), m.t)
	}
	if m.View() == "" {
		t.Error("empty view")
	}

	m.Update(tea.KeyMsg{Type: tea.KeySpace})
	m.Update(TickMsg(time.Now()))
	if len(m.history) != 5 {
		t.Error("paused model advanced")
	}

	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'r'}})
	if m.t != 0 || len(m.trail) != 0 || !m.running {
		t.Error("reset did not restore the start")
	}
}

func TestLiveNudgeParam(t *testing.T) {
	m := liveFor(t, systems.Logistic)
	before := m.sys.Params["r"]
	m.Update(tea.KeyMsg{Type: tea.KeyUp})
	spec := m.sys.Model.Params[0]
	if got := m.sys.Params["r"]; got != before+spec.Step && got != spec.Max {
		t.Errorf("r moved from %v to %v", before, got)
	}
	if m.initial.Params["r"] != before {
		t.Error("nudging changed the initial system")
	}
}

func TestLiveDivergence(t *testing.T) {
	m := liveFor(t, systems.Logistic)
	m.state = dynamo.State{5}
	for i := 0; i < 3 && !m.diverged; i++ {
		m.Update(TickMsg(time.Now()))
	}
	if !m.diverged || m.running || !strings.Contains(m.status, "diverged") {
		t.Errorf("divergence not reported: %+v", m.status)
	}
}

func TestNonlinearPortraitListsEquilibria(t *testing.T) {
	p := NewPlot(40, 10)
	np := &analysis.NonlinearPortrait{
		Field:        []analysis.Arrow{{X: -1, Y: -1}, {X: 1, Y: 1}},
		XNullcline:   []analysis.Point{{X: -1, Y: 0}, {X: 1, Y: 0}},
		Trajectories: []*analysis.PhasePortrait2D{{X: []float64{0.5, 0, -0.5}, Y: []float64{0, 0.5, 0}}},
		Equilibria:   []analysis.Equilibrium{{Formatted: "(0.000, 0.000)", Classification: analysis.Saddle}},
	}
	out := p.NonlinearPortrait(np)
	if !strings.Contains(out, "(0.000, 0.000) saddle") {
		t.Errorf("equilibrium missing: %q", out)
	}
}
