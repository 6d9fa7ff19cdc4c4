package viz

import (
	"fmt"
	"strings"

	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/phaselab/internal/analysis"
)

// Plot renders analysis results as terminal text. Width and Height are in
// character cells.
type Plot struct {
	Width, Height int
	Theme         Theme
}

func NewPlot(w, h int) *Plot {
	if w < 10 {
		w = 10
	}
	if h < 4 {
		h = 4
	}
	return &Plot{Width: w, Height: h, Theme: Themes[0]}
}

func (p *Plot) frame(title string, c *Canvas, b Bounds) string {
	st := p.Theme.Styles()
	var sb strings.Builder
	sb.WriteString(st.Title.Render(title))
	sb.WriteByte('\n')
	sb.WriteString(st.Plot.Render(c.String()))
	sb.WriteString(st.Label.UnsetWidth().Render(fmt.Sprintf("x [%.3g, %.3g]  y [%.3g, %.3g]", b.MinX, b.MaxX, b.MinY, b.MaxY)))
	sb.WriteByte('\n')
	return sb.String()
}

// Phase draws a two-coordinate projection as a connected curve.
func (p *Plot) Phase(title string, xs, ys []float64) string {
	c := NewCanvas(p.Width, p.Height)
	b := FitBounds(xs, ys)
	c.Axes(b)
	c.Polyline(b, xs, ys)
	return p.frame(title, c, b)
}

// Scatter plots unconnected points, as for map orbits.
func (p *Plot) Scatter(title string, xs, ys []float64) string {
	c := NewCanvas(p.Width, p.Height)
	b := FitBounds(xs, ys)
	c.Scatter(b, xs, ys)
	return p.frame(title, c, b)
}

// Portrait overlays the sample trajectories of a linear phase portrait.
func (p *Plot) Portrait(lp *analysis.LinearPortrait) string {
	var xs, ys []float64
	for _, tr := range lp.Trajectories {
		xs = append(xs, tr.X...)
		ys = append(ys, tr.Y...)
	}
	c := NewCanvas(p.Width, p.Height)
	b := FitBounds(xs, ys)
	c.Axes(b)
	for _, tr := range lp.Trajectories {
		c.Polyline(b, tr.X, tr.Y)
	}
	title := "phase portrait"
	if lp.Analysis != nil {
		title += ": " + string(lp.Analysis.Classification)
	}
	return p.frame(title, c, b)
}

// NonlinearPortrait draws nullcline points and trajectories clipped to the
// sampled grid. Equilibria are listed under the chart.
func (p *Plot) NonlinearPortrait(np *analysis.NonlinearPortrait) string {
	xs := make([]float64, len(np.Field))
	ys := make([]float64, len(np.Field))
	for i, a := range np.Field {
		xs[i], ys[i] = a.X, a.Y
	}
	c := NewCanvas(p.Width, p.Height)
	b := FitBounds(xs, ys)
	c.Axes(b)
	for _, line := range [][]analysis.Point{np.XNullcline, np.YNullcline} {
		px, py := pointsXY(line)
		c.Scatter(b, px, py)
	}
	for _, tr := range np.Trajectories {
		c.Polyline(b, tr.X, tr.Y)
	}
	var sb strings.Builder
	sb.WriteString(p.frame("nonlinear phase portrait", c, b))
	for _, e := range np.Equilibria {
		fmt.Fprintf(&sb, "%s %s\n", e.Formatted, e.Classification)
	}
	return sb.String()
}

// Section draws Poincaré section points.
func (p *Plot) Section(title string, pts []analysis.SectionPoint) string {
	if len(pts) == 0 {
		return p.Theme.Styles().Title.Render(title) + "\nno crossings\n"
	}
	xs, ys := make([]float64, len(pts)), make([]float64, len(pts))
	for i, pt := range pts {
		xs[i], ys[i] = pt.X, pt.Y
	}
	c := NewCanvas(p.Width, p.Height)
	b := FitBounds(xs, ys)
	c.Scatter(b, xs, ys)
	return p.frame(title, c, b)
}

// Bifurcation draws every sampled value against its parameter.
func (p *Plot) Bifurcation(ds *analysis.BifurcationDataset) string {
	var xs, ys []float64
	for _, pt := range ds.Points {
		for _, v := range pt.Values {
			xs = append(xs, pt.Param)
			ys = append(ys, v)
		}
	}
	c := NewCanvas(p.Width, p.Height)
	b := FitBounds(xs, ys)
	c.Scatter(b, xs, ys)
	title := "bifurcation in " + ds.Param
	if ds.Partial {
		title += " (partial)"
	}
	return p.frame(title, c, b)
}

// Cobweb draws the map curve, the diagonal and the staircase.
func (p *Plot) Cobweb(cw *analysis.CobwebPlot) string {
	cx, cy := pointsXY(cw.Curve)
	px, py := pointsXY(cw.Path)
	b := FitBounds(append(cx, px...), append(cy, py...))
	c := NewCanvas(p.Width, p.Height)
	c.Polyline(b, cx, cy)
	ix, iy := pointsXY(cw.Identity)
	c.Polyline(b, ix, iy)
	c.Polyline(b, px, py)
	return p.frame(fmt.Sprintf("cobweb from x0=%.4g, %d steps", cw.X0, cw.Steps), c, b)
}

// ReturnMap scatters x_n against x_{n+delay}.
func (p *Plot) ReturnMap(rm *analysis.ReturnMap) string {
	c := NewCanvas(p.Width, p.Height)
	b := FitBounds(rm.XN, rm.XNDelay)
	c.Scatter(b, rm.XN, rm.XNDelay)
	return p.frame(fmt.Sprintf("return map, delay %d", rm.Delay), c, b)
}

// Series is a line chart of one component.
func (p *Plot) Series(caption string, values []float64) string {
	if len(values) < 2 {
		return caption + ": not enough samples\n"
	}
	clean := make([]float64, 0, len(values))
	for _, v := range values {
		if !finite(v) {
			break
		}
		clean = append(clean, v)
	}
	if len(clean) < 2 {
		return caption + ": diverged\n"
	}
	chart := asciigraph.Plot(clean,
		asciigraph.Height(p.Height),
		asciigraph.Width(p.Width*2),
		asciigraph.Caption(caption))
	return p.Theme.Styles().Plot.Render(chart) + "\n"
}

func pointsXY(pts []analysis.Point) ([]float64, []float64) {
	xs, ys := make([]float64, len(pts)), make([]float64, len(pts))
	for i, pt := range pts {
		xs[i], ys[i] = pt.X, pt.Y
	}
	return xs, ys
}
