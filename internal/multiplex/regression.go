package multiplex

import (
	"errors"
	"math"
)

// ErrShapeMismatch indicates peptide intensity series of unequal length.
var ErrShapeMismatch = errors.New("mzmultiplex: peptide intensity series differ in length")

// LinearRegressionWithoutIntercept fits y = m*x through the origin by
// least squares.
type LinearRegressionWithoutIntercept struct {
	sumXX float64
	sumXY float64
	n     int
}

// Add records one observation.
func (r *LinearRegressionWithoutIntercept) Add(x, y float64) {
	r.sumXX += x * x
	r.sumXY += x * y
	r.n++
}

// Slope returns the fitted slope, or NaN when fewer than two
// observations were added.
func (r *LinearRegressionWithoutIntercept) Slope() float64 {
	if r.n < 2 {
		return math.NaN()
	}
	return r.sumXY / r.sumXX
}

// PeptideIntensities derives one intensity per peptide from parallel
// intensity series. profile holds one series per peptide; entries may
// be NaN where no signal was found. Pairwise ratios relative to the
// lightest peptide come from a regression through the origin, which
// suppresses disproportionate noise at low intensities.
//
// With two peptides the summed intensities are corrected onto the
// regression line. With more peptides the lightest sum is kept and the
// others follow from the ratios. A ratio based on fewer than two valid
// pairs yields NaN intensities for that peptide.
func PeptideIntensities(profile [][]float64) ([]float64, error) {
	n := len(profile)
	if n == 0 {
		return nil, nil
	}
	for p := 1; p < n; p++ {
		if len(profile[p]) != len(profile[0]) {
			return nil, ErrShapeMismatch
		}
	}

	if n == 1 {
		var sum float64
		for _, v := range profile[0] {
			if !math.IsNaN(v) {
				sum += v
			}
		}
		return []float64{sum}, nil
	}

	// the light sum covers all valid light points; partner sums and
	// ratios cover only the points valid in both series
	ratios := make([]float64, n)
	sums := make([]float64, n)
	ratios[0] = 1
	for _, v := range profile[0] {
		if !math.IsNaN(v) {
			sums[0] += v
		}
	}
	for p := 1; p < n; p++ {
		var reg LinearRegressionWithoutIntercept
		for i := range profile[0] {
			x, y := profile[0][i], profile[p][i]
			if math.IsNaN(x) || math.IsNaN(y) {
				continue
			}
			reg.Add(x, y)
			sums[p] += y
		}
		ratios[p] = reg.Slope()
	}

	out := make([]float64, n)
	if n == 2 {
		r := ratios[1]
		if math.IsNaN(r) {
			return []float64{math.NaN(), math.NaN()}, nil
		}
		// project the summed intensities onto the regression line
		out[0] = (sums[0] + r*sums[1]) / (1 + r*r)
		out[1] = r * out[0]
		return out, nil
	}

	out[0] = sums[0]
	for p := 1; p < n; p++ {
		out[p] = ratios[p] * sums[0]
	}
	return out, nil
}
