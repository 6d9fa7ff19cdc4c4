package viz

import (
	"bufio"
	"fmt"
	"io"
)

// SVGOptions size and colour an SVG projection.
type SVGOptions struct {
	Width, Height int
	Stroke        string
	// Points draws one dot per sample instead of a connected path, as
	// suits map orbits and section points.
	Points bool
}

func DefaultSVGOptions() SVGOptions {
	return SVGOptions{Width: 800, Height: 600, Stroke: "#00ff88"}
}

// WriteSVG renders the finite (xs[i], ys[i]) pairs in the window fitted
// by FitBounds. A path is broken at non-finite samples.
func WriteSVG(w io.Writer, xs, ys []float64, opts SVGOptions) error {
	if opts.Width <= 0 || opts.Height <= 0 {
		return fmt.Errorf("svg: invalid size %dx%d", opts.Width, opts.Height)
	}
	b := FitBounds(xs, ys)
	width, height := float64(opts.Width), float64(opts.Height)
	project := func(x, y float64) (float64, float64) {
		return (x - b.MinX) / (b.MaxX - b.MinX) * width,
			height - (y-b.MinY)/(b.MaxY-b.MinY)*height
	}

	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
`, opts.Width, opts.Height, opts.Width, opts.Height)

	n := min(len(xs), len(ys))
	if opts.Points {
		fmt.Fprintf(bw, "<g fill=\"%s\">\n", opts.Stroke)
		for i := 0; i < n; i++ {
			if !finite(xs[i]) || !finite(ys[i]) {
				continue
			}
			px, py := project(xs[i], ys[i])
			fmt.Fprintf(bw, "<circle cx=\"%.1f\" cy=\"%.1f\" r=\"1\"/>\n", px, py)
		}
		bw.WriteString("</g>\n")
	} else {
		fmt.Fprintf(bw, `<path fill="none" stroke="%s" stroke-width="1.5" d="`, opts.Stroke)
		pen := false
		for i := 0; i < n; i++ {
			if !finite(xs[i]) || !finite(ys[i]) {
				pen = false
				continue
			}
			px, py := project(xs[i], ys[i])
			if pen {
				fmt.Fprintf(bw, " L%.1f,%.1f", px, py)
			} else {
				fmt.Fprintf(bw, " M%.1f,%.1f", px, py)
				pen = true
			}
		}
		bw.WriteString("\"/>\n")
	}

	bw.WriteString("</svg>\n")
	return bw.Flush()
}
