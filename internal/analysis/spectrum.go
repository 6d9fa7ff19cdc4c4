package analysis

import (
	"math/cmplx"

	"github.com/san-kum/phaselab/internal/dynamo"
	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

type PowerSpectrum struct {
	Frequencies []float64 `json:"frequencies"`
	Power       []float64 `json:"power"`
	// Peak is the frequency with the most power, excluding zero.
	Peak float64 `json:"peak_frequency"`
}

// Power computes the one-sided power spectrum of a uniformly sampled
// series after removing its mean. dt is the sample spacing (1 for maps).
func Power(series []float64, dt float64) (*PowerSpectrum, error) {
	if len(series) < 4 {
		return nil, dynamo.Invalid("series", "need at least 4 samples, got %d", len(series))
	}
	if !(dt > 0) {
		return nil, dynamo.Invalid("dt", "must be positive, got %g", dt)
	}
	if !dynamo.State(series).IsValid() {
		return nil, dynamo.Invalid("series", "contains non-finite samples")
	}

	n := len(series)
	centered := make([]float64, n)
	copy(centered, series)
	floats.AddConst(-stat.Mean(series, nil), centered)

	fft := fourier.NewFFT(n)
	coeffs := fft.Coefficients(nil, centered)

	ps := &PowerSpectrum{
		Frequencies: make([]float64, len(coeffs)),
		Power:       make([]float64, len(coeffs)),
	}
	best := 0.0
	for i, c := range coeffs {
		ps.Frequencies[i] = fft.Freq(i) / dt
		a := cmplx.Abs(c)
		ps.Power[i] = a * a / float64(n)
		if i > 0 && ps.Power[i] > best {
			best = ps.Power[i]
			ps.Peak = ps.Frequencies[i]
		}
	}
	return ps, nil
}
