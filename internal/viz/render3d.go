package viz

import (
	"math"
	"sort"
)

type Vec3 struct{ X, Y, Z float64 }

// Camera orbits the origin at distance Dist and projects with perspective.
type Camera struct {
	RotX, RotY, RotZ float64
	Dist             float64
	Zoom             float64
}

func NewCamera() *Camera { return &Camera{Dist: 5, Zoom: 1} }

func (c *Camera) ZoomIn()  { c.Zoom = math.Min(10, c.Zoom*1.2) }
func (c *Camera) ZoomOut() { c.Zoom = math.Max(0.1, c.Zoom/1.2) }

func (c *Camera) rotate(p Vec3) Vec3 {
	cx, sx := math.Cos(c.RotX), math.Sin(c.RotX)
	p.Y, p.Z = p.Y*cx-p.Z*sx, p.Y*sx+p.Z*cx
	cy, sy := math.Cos(c.RotY), math.Sin(c.RotY)
	p.X, p.Z = p.X*cy+p.Z*sy, -p.X*sy+p.Z*cy
	cz, sz := math.Cos(c.RotZ), math.Sin(c.RotZ)
	p.X, p.Y = p.X*cz-p.Y*sz, p.X*sz+p.Y*cz
	return p
}

// Project maps p to dot coordinates on a w x h dot grid. The returned depth
// is larger for points nearer the camera.
func (c *Camera) Project(p Vec3, w, h int) (int, int, float64, bool) {
	r := c.rotate(p)
	r = Vec3{r.X * c.Zoom, r.Y * c.Zoom, r.Z * c.Zoom}
	if r.Z >= c.Dist-0.1 {
		return 0, 0, 0, false
	}
	persp := c.Dist / (c.Dist - r.Z)
	unit := math.Min(float64(w), float64(h)) / 3
	sx := int(r.X*persp*unit) + w/2
	sy := int(-r.Y*persp*unit) + h/2
	return sx, sy, r.Z, sx >= 0 && sx < w && sy >= 0 && sy < h
}

type segment struct{ a, b Vec3 }

// Wireframe is a set of 3D segments; a point is a zero-length segment.
type Wireframe struct{ segs []segment }

func (w *Wireframe) AddEdge(a, b Vec3) { w.segs = append(w.segs, segment{a, b}) }
func (w *Wireframe) AddPoint(p Vec3)   { w.segs = append(w.segs, segment{p, p}) }

// Render3D draws w back to front.
func Render3D(c *Canvas, w *Wireframe, cam *Camera) {
	dw, dh := c.Dots()
	type projected struct {
		x1, y1, x2, y2 int
		depth          float64
	}
	out := make([]projected, 0, len(w.segs))
	for _, s := range w.segs {
		x1, y1, d1, ok1 := cam.Project(s.a, dw, dh)
		x2, y2, d2, ok2 := cam.Project(s.b, dw, dh)
		if ok1 || ok2 {
			out = append(out, projected{x1, y1, x2, y2, (d1 + d2) / 2})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].depth < out[j].depth })
	for _, e := range out {
		c.DrawLine(e.x1, e.y1, e.x2, e.y2)
	}
}
