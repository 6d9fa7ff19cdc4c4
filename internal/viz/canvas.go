package viz

import (
	"math"
	"strings"
)

// Braille cells are 2x4 dots:
//
//	1 4
//	2 5
//	3 6
//	7 8
var pixelMap = [4][2]rune{
	{0x1, 0x8},
	{0x2, 0x10},
	{0x4, 0x20},
	{0x40, 0x80},
}

const blank = 0x2800

// Canvas is a grid of braille cells. Dot coordinates run from (0,0) at the
// top left to (2*Width-1, 4*Height-1).
type Canvas struct {
	Width, Height int
	Grid          [][]rune
}

func NewCanvas(w, h int) *Canvas {
	c := &Canvas{Width: w, Height: h, Grid: make([][]rune, h)}
	for i := range c.Grid {
		c.Grid[i] = make([]rune, w)
	}
	c.Clear()
	return c
}

// Dots returns the canvas size in dots.
func (c *Canvas) Dots() (int, int) { return c.Width * 2, c.Height * 4 }

func (c *Canvas) Set(x, y int) {
	if x < 0 || y < 0 {
		return
	}
	col, row := x/2, y/4
	if col >= c.Width || row >= c.Height {
		return
	}
	c.Grid[row][col] |= pixelMap[y%4][x%2]
}

func (c *Canvas) Clear() {
	for i := range c.Grid {
		for j := range c.Grid[i] {
			c.Grid[i][j] = blank
		}
	}
}

// DrawLine draws a line with Bresenham's algorithm.
func (c *Canvas) DrawLine(x0, y0, x1, y1 int) {
	dx, dy := absInt(x1-x0), absInt(y1-y0)
	sx, sy := -1, -1
	if x0 < x1 {
		sx = 1
	}
	if y0 < y1 {
		sy = 1
	}
	err := dx - dy
	for {
		c.Set(x0, y0)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * err
		if e2 > -dy {
			err -= dy
			x0 += sx
		}
		if e2 < dx {
			err += dx
			y0 += sy
		}
	}
}

func (c *Canvas) String() string {
	var b strings.Builder
	for _, row := range c.Grid {
		b.WriteString(string(row))
		b.WriteByte('\n')
	}
	return b.String()
}

// Bounds is a world-coordinate window mapped onto a canvas.
type Bounds struct {
	MinX, MaxX, MinY, MaxY float64
}

// FitBounds returns the bounding box of the finite points padded by 5% on
// each side. Flat extents are widened to one unit.
func FitBounds(xs, ys []float64) Bounds {
	b := Bounds{math.Inf(1), math.Inf(-1), math.Inf(1), math.Inf(-1)}
	for i := range xs {
		if i >= len(ys) || !finite(xs[i]) || !finite(ys[i]) {
			continue
		}
		b.MinX, b.MaxX = math.Min(b.MinX, xs[i]), math.Max(b.MaxX, xs[i])
		b.MinY, b.MaxY = math.Min(b.MinY, ys[i]), math.Max(b.MaxY, ys[i])
	}
	if math.IsInf(b.MinX, 1) {
		return Bounds{-1, 1, -1, 1}
	}
	b.MinX, b.MaxX = pad(b.MinX, b.MaxX)
	b.MinY, b.MaxY = pad(b.MinY, b.MaxY)
	return b
}

func pad(lo, hi float64) (float64, float64) {
	r := hi - lo
	if r == 0 {
		return lo - 0.5, hi + 0.5
	}
	return lo - 0.05*r, hi + 0.05*r
}

// ToDots maps a world point to dot coordinates; ok is false outside b.
func (c *Canvas) ToDots(b Bounds, x, y float64) (int, int, bool) {
	if !finite(x) || !finite(y) || x < b.MinX || x > b.MaxX || y < b.MinY || y > b.MaxY {
		return 0, 0, false
	}
	w, h := c.Dots()
	px := int((x - b.MinX) / (b.MaxX - b.MinX) * float64(w-1))
	py := h - 1 - int((y-b.MinY)/(b.MaxY-b.MinY)*float64(h-1))
	return px, py, true
}

// Scatter plots every point that falls inside b.
func (c *Canvas) Scatter(b Bounds, xs, ys []float64) {
	for i := range xs {
		if i >= len(ys) {
			return
		}
		if px, py, ok := c.ToDots(b, xs[i], ys[i]); ok {
			c.Set(px, py)
		}
	}
}

// Polyline joins consecutive points inside b.
func (c *Canvas) Polyline(b Bounds, xs, ys []float64) {
	havePrev := false
	var lx, ly int
	for i := range xs {
		if i >= len(ys) {
			return
		}
		px, py, ok := c.ToDots(b, xs[i], ys[i])
		if !ok {
			havePrev = false
			continue
		}
		if havePrev {
			c.DrawLine(lx, ly, px, py)
		} else {
			c.Set(px, py)
		}
		lx, ly, havePrev = px, py, true
	}
}

// Axes draws dotted x and y axes where they cross b.
func (c *Canvas) Axes(b Bounds) {
	w, h := c.Dots()
	if b.MinY <= 0 && b.MaxY >= 0 {
		_, y0, _ := c.ToDots(b, b.MinX, 0)
		for x := 0; x < w; x += 2 {
			c.Set(x, y0)
		}
	}
	if b.MinX <= 0 && b.MaxX >= 0 {
		x0, _, _ := c.ToDots(b, 0, b.MinY)
		for y := 0; y < h; y += 2 {
			c.Set(x0, y)
		}
	}
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
