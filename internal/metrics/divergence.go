package metrics

import (
	"github.com/san-kum/phaselab/internal/dynamo"
)

// Divergence tracks the fraction of samples that stay within a magnitude
// threshold and the index of the first one that does not.
type Divergence struct {
	name       string
	threshold  float64
	violations int
	samples    int
	first      int
}

func NewDivergence(threshold float64) *Divergence {
	return &Divergence{
		name:      "divergence",
		threshold: threshold,
		first:     -1,
	}
}

func (d *Divergence) Name() string {
	return d.name
}

func (d *Divergence) Observe(x dynamo.State, _ float64) {
	if !x.IsValid() || x.MaxAbs() > d.threshold {
		d.violations++
		if d.first < 0 {
			d.first = d.samples
		}
	}
	d.samples++
}

// Value is the bounded fraction of the samples seen so far.
func (d *Divergence) Value() float64 {
	if d.samples == 0 {
		return 1.0
	}
	return 1.0 - float64(d.violations)/float64(d.samples)
}

func (d *Divergence) Diverged() bool { return d.violations > 0 }

// FirstAt is the sample index of the first violation, or -1.
func (d *Divergence) FirstAt() int { return d.first }

func (d *Divergence) Reset() {
	d.violations = 0
	d.samples = 0
	d.first = -1
}
