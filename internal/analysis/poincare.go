package analysis

import (
	"github.com/san-kum/phaselab/internal/dynamo"
)

// SectionPoint is one transversal crossing projected onto the section.
// X and Y follow the plane convention of PlaneAxes; T is the interpolated
// crossing time.
type SectionPoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	T float64 `json:"t"`
}

// PlaneAxes maps a section plane name to the crossing axis and the two
// reported axes: z reports (x, y), y reports (x, z), x reports (y, z).
func PlaneAxes(plane string) (cross, a, b int, err error) {
	switch plane {
	case "z":
		return 2, 0, 1, nil
	case "y":
		return 1, 0, 2, nil
	case "x":
		return 0, 1, 2, nil
	}
	return 0, 0, 0, dynamo.Invalid("section_plane", "must be x, y or z, got %q", plane)
}

// PoincareSection pools the crossings of every trajectory through the
// plane axis = value. A crossing needs a strict sign change between
// consecutive samples; samples lying exactly on the plane do not count.
// For planar trajectories the missing coordinate is reported as 0. An
// empty result with a nil error means there were no crossings.
func PoincareSection(trs []*dynamo.Trajectory, plane string, value float64) ([]SectionPoint, error) {
	cross, a, b, err := PlaneAxes(plane)
	if err != nil {
		return nil, err
	}
	if !isFinite(value) {
		return nil, dynamo.Invalid("section_value", "must be finite")
	}
	points := []SectionPoint{}
	for _, tr := range trs {
		if tr == nil || tr.Len() == 0 {
			continue
		}
		dim := len(tr.States[0])
		if cross >= dim {
			return nil, dynamo.Invalid("section_plane", "plane %s needs a %d-dimensional trajectory", plane, cross+1)
		}
		for i := 1; i < tr.Len(); i++ {
			prev, curr := tr.States[i-1], tr.States[i]
			dp, dc := prev[cross]-value, curr[cross]-value
			if !(dp*dc < 0) {
				continue
			}
			s := (value - prev[cross]) / (curr[cross] - prev[cross])
			p := SectionPoint{
				X: component(prev, curr, a, s),
				Y: component(prev, curr, b, s),
				T: tr.Times[i-1] + s*(tr.Times[i]-tr.Times[i-1]),
			}
			if isFinite(p.X) && isFinite(p.Y) {
				points = append(points, p)
			}
		}
	}
	return points, nil
}

func component(prev, curr dynamo.State, i int, s float64) float64 {
	if i >= len(prev) {
		return 0
	}
	return prev[i] + s*(curr[i]-prev[i])
}
