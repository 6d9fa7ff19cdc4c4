package analysis

import (
	"context"
	"math"
	"sort"

	"github.com/san-kum/phaselab/internal/dynamo"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

type FractalOptions struct {
	// MaxPoints caps the cloud used for box counting; larger clouds are
	// thinned by a fixed stride.
	MaxPoints int `json:"max_points" yaml:"max_points"`
	// CorrelationSamples caps the points entering the pairwise sum.
	CorrelationSamples int `json:"correlation_samples" yaml:"correlation_samples"`
	BoxLevels          int `json:"box_levels" yaml:"box_levels"`
}

func DefaultFractalOptions() FractalOptions {
	return FractalOptions{MaxPoints: 20000, CorrelationSamples: 1000, BoxLevels: 10}
}

// FitPoint is one (log scale, log measure) sample of a regression.
type FitPoint struct {
	LogScale   float64 `json:"log_scale"`
	LogMeasure float64 `json:"log_measure"`
}

type FractalEstimate struct {
	BoxDimension         float64    `json:"box_dimension"`
	CorrelationDimension float64    `json:"correlation_dimension"`
	BoxFit               []FitPoint `json:"box_fit"`
	CorrelationFit       []FitPoint `json:"correlation_fit"`
	Points               int        `json:"points"`
	Quality              Quality    `json:"quality"`
}

// FractalDimension estimates the box-counting and correlation dimensions
// of a point cloud. Non-finite points are dropped. Clouds with fewer than
// two distinct points are rejected.
func FractalDimension(ctx context.Context, cloud [][]float64, opts FractalOptions) (*FractalEstimate, error) {
	if opts.MaxPoints < 2 || opts.CorrelationSamples < 2 || opts.BoxLevels < 2 {
		return nil, dynamo.Invalid("fractal", "max_points, correlation_samples and box_levels must be at least 2")
	}

	var q Quality
	pts := make([][]float64, 0, len(cloud))
	for _, p := range cloud {
		if dynamo.State(p).IsValid() {
			pts = append(pts, p)
		}
	}
	if dropped := len(cloud) - len(pts); dropped > 0 {
		q.Diverged = true
		q.warn("%d non-finite points dropped", dropped)
	}
	if len(pts) < 2 {
		return nil, &dynamo.ValidationError{Field: "points", Reason: "need at least 2 finite points", Wrapped: dynamo.ErrDegenerate}
	}
	dim := len(pts[0])
	if dim < 1 || dim > 3 {
		return nil, dynamo.Invalid("points", "dimension must be 1, 2 or 3, got %d", dim)
	}
	for _, p := range pts {
		if len(p) != dim {
			return nil, &dynamo.ValidationError{Field: "points", Reason: "points of mixed dimension", Wrapped: dynamo.ErrDimensionMismatch}
		}
	}

	lo, hi := bounds(pts)
	side := 0.0
	for i := range lo {
		side = math.Max(side, hi[i]-lo[i])
	}
	if side == 0 {
		return nil, &dynamo.ValidationError{Field: "points", Reason: "all points are identical", Wrapped: dynamo.ErrDegenerate}
	}

	boxPts := thin(pts, opts.MaxPoints)
	est := &FractalEstimate{Points: len(boxPts)}
	if len(boxPts) < 500 {
		q.warn("only %d points; estimates are coarse", len(boxPts))
	}

	var err error
	est.BoxFit, err = boxCounts(ctx, boxPts, lo, side, opts.BoxLevels)
	if err != nil {
		return nil, err
	}
	if len(est.BoxFit) < 3 {
		q.warn("only %d unsaturated box sizes", len(est.BoxFit))
	}
	est.BoxDimension = slope(est.BoxFit)

	est.CorrelationFit, err = correlationSums(ctx, thin(pts, opts.CorrelationSamples))
	if err != nil {
		return nil, err
	}
	if len(est.CorrelationFit) < 3 {
		q.warn("correlation sum has only %d usable radii", len(est.CorrelationFit))
	}
	est.CorrelationDimension = slope(est.CorrelationFit)

	q.Converged = len(q.Warnings) == 0
	est.Quality = q
	return est, nil
}

func bounds(pts [][]float64) (lo, hi []float64) {
	dim := len(pts[0])
	lo, hi = make([]float64, dim), make([]float64, dim)
	col := make([]float64, len(pts))
	for d := 0; d < dim; d++ {
		for i, p := range pts {
			col[i] = p[d]
		}
		lo[d], hi[d] = floats.Min(col), floats.Max(col)
	}
	return lo, hi
}

// thin keeps at most limit points, taken at a fixed stride.
func thin(pts [][]float64, limit int) [][]float64 {
	if len(pts) <= limit {
		return pts
	}
	out := make([][]float64, limit)
	for i := range out {
		out[i] = pts[i*len(pts)/limit]
	}
	return out
}

type cell [3]int

// boxCounts counts occupied cells of side side/2^k for k = 1..levels over
// the cube anchored at lo. Levels where the count exceeds a quarter of the
// points are saturated by sampling and left out of the fit.
func boxCounts(ctx context.Context, pts [][]float64, lo []float64, side float64, levels int) ([]FitPoint, error) {
	var fit []FitPoint
	limit := len(pts) / 4
	for k := 1; k <= levels; k++ {
		if err := dynamo.Canceled(ctx, "box counting", k-1, levels); err != nil {
			return nil, err
		}
		nCells := 1 << k
		eps := side / float64(nCells)
		occupied := make(map[cell]struct{})
		for _, p := range pts {
			var c cell
			for d := range p {
				idx := int((p[d] - lo[d]) / eps)
				if idx >= nCells {
					idx = nCells - 1
				}
				c[d] = idx
			}
			occupied[c] = struct{}{}
		}
		n := len(occupied)
		if n > limit && len(fit) >= 2 {
			break
		}
		fit = append(fit, FitPoint{LogScale: math.Log(1 / eps), LogMeasure: math.Log(float64(n))})
	}
	return fit, nil
}

const correlationRadii = 12

// correlationSums evaluates C(r), the fraction of point pairs closer than
// r, on radii log-spaced between the 1% and 20% quantiles of the pair
// distances.
func correlationSums(ctx context.Context, pts [][]float64) ([]FitPoint, error) {
	n := len(pts)
	dists := make([]float64, 0, n*(n-1)/2)
	for i := 0; i < n; i++ {
		if i%64 == 0 {
			if err := dynamo.Canceled(ctx, "correlation sum", i, n); err != nil {
				return nil, err
			}
		}
		for j := i + 1; j < n; j++ {
			dists = append(dists, floats.Distance(pts[i], pts[j], 2))
		}
	}
	sort.Float64s(dists)

	rMin := stat.Quantile(0.01, stat.Empirical, dists, nil)
	rMax := stat.Quantile(0.2, stat.Empirical, dists, nil)
	if rMin <= 0 {
		// duplicate points; start at the smallest positive distance
		k := sort.SearchFloat64s(dists, math.SmallestNonzeroFloat64)
		if k == len(dists) {
			return nil, nil
		}
		rMin = dists[k]
	}
	if rMax <= rMin {
		rMax = dists[len(dists)-1]
	}
	if rMax <= rMin {
		return nil, nil
	}

	total := float64(len(dists))
	radii := make([]float64, correlationRadii)
	floats.LogSpan(radii, rMin, rMax)
	var fit []FitPoint
	for _, r := range radii {
		c := float64(sort.SearchFloat64s(dists, r)) / total
		if c <= 0 {
			continue
		}
		fit = append(fit, FitPoint{LogScale: math.Log(r), LogMeasure: math.Log(c)})
	}
	return fit, nil
}

// slope is the least-squares slope of LogMeasure against LogScale.
func slope(fit []FitPoint) float64 {
	if len(fit) < 2 {
		return 0
	}
	xs := make([]float64, len(fit))
	ys := make([]float64, len(fit))
	for i, f := range fit {
		xs[i], ys[i] = f.LogScale, f.LogMeasure
	}
	_, beta := stat.LinearRegression(xs, ys, nil, false)
	return beta
}
