package multiplex

import (
	"math"
	"sort"
	"sync"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"

	"github.com/524D/mzmultiplex/internal/mzml"
	"github.com/524D/mzmultiplex/internal/peakpick"
)

// Number of profile samples taken across a peak when computing
// peptide similarity correlations.
const similaritySamples = 7

// A shoulder peak one isotope spacing below a monoisotopic position
// vetoes the candidate when it exceeds this fraction of the
// monoisotopic intensity.
const shoulderFraction = 0.5

// FilterParams control which peak candidates are accepted as multiplet
// data points.
type FilterParams struct {
	// IsotopesPerPeptideMin isotopes must be present per peptide,
	// at most IsotopesPerPeptideMax are collected.
	IsotopesPerPeptideMin int
	IsotopesPerPeptideMax int
	// Peaks below IntensityCutoff are ignored.
	IntensityCutoff float64
	// MzTolerance is the maximum deviation of a picked peak from its
	// expected position, in ppm if MzTolerancePPM is set, in Da
	// otherwise.
	MzTolerance    float64
	MzTolerancePPM bool
	// PeptideSimilarity is the minimum Pearson correlation between the
	// profile intensities of the lightest peptide and each partner.
	PeptideSimilarity float64
	// AveragineSimilarity scales the acceptance band around the
	// theoretic isotope distribution.
	AveragineSimilarity float64
	// AllowMissingPeaks waives at most one required isotope per
	// peptide. The monoisotopic peak is never waived.
	AllowMissingPeaks bool
}

// FilterResultPoint is one accepted multiplet data point. Intensities
// and MzShifts are indexed peptide*IsotopesPerPeptideMax+isotope;
// absent isotopes hold NaN. Profile holds one series of spline
// resampled intensities per peptide, similaritySamples values per
// isotope, taken across the width of the candidate peak.
type FilterResultPoint struct {
	SpectrumIndex int
	RetentionTime float64
	Mz            float64
	MzShifts      []float64
	Intensities   []float64
	Profile       [][]float64
}

// Filtering scans picked spectra for peak groups matching multiplet
// patterns.
type Filtering struct {
	params   FilterParams
	patterns []PeakPattern
	spectra  []mzml.Spectrum
	picked   []peakpick.Picked
	profiles []SplineProfile
	log      *zap.Logger
}

// NewFiltering prepares a filtering run over MS1 profile spectra and
// their picked counterparts. Spline profiles are fitted up front and
// shared by all patterns.
func NewFiltering(params FilterParams, patterns []PeakPattern, spectra []mzml.Spectrum, picked []peakpick.Picked, log *zap.Logger) *Filtering {
	f := &Filtering{
		params:   params,
		patterns: patterns,
		spectra:  spectra,
		picked:   picked,
		log:      log,
	}
	f.profiles = make([]SplineProfile, len(spectra))
	for i := range spectra {
		f.profiles[i] = NewSplineProfile(spectra[i], picked[i])
	}
	return f
}

// Run filters all spectra against all patterns. Patterns are processed
// concurrently; the result is indexed by pattern ID so the outcome does
// not depend on scheduling.
func (f *Filtering) Run() [][]FilterResultPoint {
	results := make([][]FilterResultPoint, len(f.patterns))
	var wg sync.WaitGroup
	for i := range f.patterns {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = f.filterPattern(f.patterns[i])
		}(i)
	}
	wg.Wait()
	for i := range f.patterns {
		f.log.Debug("pattern filtered",
			zap.Int("pattern", i),
			zap.Int("charge", f.patterns[i].Charge),
			zap.Int("points", len(results[i])))
	}
	return results
}

func (f *Filtering) filterPattern(pattern PeakPattern) []FilterResultPoint {
	var points []FilterResultPoint
	for s := range f.picked {
		peaks := f.picked[s].Peaks
		for i := range peaks {
			if peaks[i].Intens < f.params.IntensityCutoff {
				continue
			}
			p, ok := f.filterCandidate(pattern, s, peaks[i].Mz, i)
			if ok {
				points = append(points, p)
			}
		}
	}
	return points
}

// filterCandidate treats the picked peak at index cand in spectrum s as
// the monoisotopic peak of the lightest peptide and checks the full
// pattern around it.
func (f *Filtering) filterCandidate(pattern PeakPattern, s int, mz float64, cand int) (FilterResultPoint, bool) {
	peaks := f.picked[s].Peaks
	n := pattern.Peptides()
	maxIso := f.params.IsotopesPerPeptideMax

	matched := make([]int, n*maxIso)
	for p := 0; p < n; p++ {
		missing := 0
		for k := 0; k < maxIso; k++ {
			target := mz + pattern.MzShiftAt(p, k)
			j := findPeak(peaks, target, f.tolerance(target))
			if j >= 0 && peaks[j].Intens < f.params.IntensityCutoff {
				j = -1
			}
			matched[p*maxIso+k] = j
			if j >= 0 || k >= f.params.IsotopesPerPeptideMin {
				continue
			}
			// required isotope absent
			if k == 0 || !f.params.AllowMissingPeaks {
				return FilterResultPoint{}, false
			}
			missing++
			if missing > 1 {
				return FilterResultPoint{}, false
			}
		}
		// a signal one isotope spacing below the monoisotopic
		// position means the candidate sits inside an envelope
		shoulder := mz + pattern.MzShiftAt(p, 0) - isotopeMassDiff/float64(pattern.Charge)
		j := findPeak(peaks, shoulder, f.tolerance(shoulder))
		if j >= 0 && peaks[j].Intens > shoulderFraction*peaks[matched[p*maxIso]].Intens {
			return FilterResultPoint{}, false
		}
	}

	profile := f.profileIntensities(pattern, s, mz, cand, matched)
	if profile == nil {
		return FilterResultPoint{}, false
	}
	if !f.checkPeptideSimilarity(profile) {
		return FilterResultPoint{}, false
	}
	if !f.checkAveragineSimilarity(pattern, mz, peaks, matched) {
		return FilterResultPoint{}, false
	}

	point := FilterResultPoint{
		SpectrumIndex: s,
		RetentionTime: f.picked[s].RetentionTime,
		Mz:            mz,
		MzShifts:      make([]float64, n*maxIso),
		Intensities:   make([]float64, n*maxIso),
		Profile:       profile,
	}
	for idx, j := range matched {
		if j < 0 {
			point.MzShifts[idx] = math.NaN()
			point.Intensities[idx] = math.NaN()
			continue
		}
		point.MzShifts[idx] = peaks[j].Mz - mz
		point.Intensities[idx] = peaks[j].Intens
	}
	return point, true
}

// profileIntensities resamples the spline profile of spectrum s around
// every expected peak position. Absent isotopes and positions outside
// the fitted profile hold NaN. Returns nil when the candidate peak has
// no usable width.
func (f *Filtering) profileIntensities(pattern PeakPattern, s int, mz float64, cand int, matched []int) [][]float64 {
	maxIso := f.params.IsotopesPerPeptideMax
	b := f.picked[s].Boundaries[cand]
	width := b.MzMax - b.MzMin
	if width <= 0 {
		return nil
	}

	out := make([][]float64, pattern.Peptides())
	for p := range out {
		xs := make([]float64, 0, maxIso*similaritySamples)
		for k := 0; k < maxIso; k++ {
			if matched[p*maxIso+k] < 0 {
				for j := 0; j < similaritySamples; j++ {
					xs = append(xs, math.NaN())
				}
				continue
			}
			center := mz + pattern.MzShiftAt(p, k)
			for j := 0; j < similaritySamples; j++ {
				offset := -width/2 + width*float64(j)/float64(similaritySamples-1)
				xs = append(xs, f.profiles[s].Eval(center+offset))
			}
		}
		out[p] = xs
	}
	return out
}

// checkPeptideSimilarity requires the resampled intensity series of
// each peptide to correlate with that of the lightest one.
func (f *Filtering) checkPeptideSimilarity(profile [][]float64) bool {
	light := profile[0]
	for p := 1; p < len(profile); p++ {
		other := profile[p]
		var xs, ys []float64
		for i := range light {
			if math.IsNaN(light[i]) || math.IsNaN(other[i]) {
				continue
			}
			xs = append(xs, light[i])
			ys = append(ys, other[i])
		}
		if len(xs) < 2 {
			return false
		}
		if stat.Correlation(xs, ys, nil) < f.params.PeptideSimilarity {
			return false
		}
	}
	return true
}

// checkAveragineSimilarity compares the observed isotope intensities of
// each peptide, normalized to its monoisotopic peak, against the
// averagine distribution for the candidate mass.
func (f *Filtering) checkAveragineSimilarity(pattern PeakPattern, mz float64, peaks []mzml.Peak, matched []int) bool {
	maxIso := f.params.IsotopesPerPeptideMax
	mass := mz*float64(pattern.Charge) - float64(pattern.Charge)*massProton
	theo := averagineEnvelope(mass, maxIso)
	s := f.params.AveragineSimilarity
	for p := 0; p < pattern.Peptides(); p++ {
		mono := peaks[matched[p*maxIso]].Intens
		for k := 1; k < maxIso; k++ {
			j := matched[p*maxIso+k]
			if j < 0 {
				continue
			}
			obs := peaks[j].Intens / mono
			if obs < theo[k]*s || obs > theo[k]/s {
				return false
			}
		}
	}
	return true
}

func (f *Filtering) tolerance(mz float64) float64 {
	if f.params.MzTolerancePPM {
		return mz * f.params.MzTolerance * 1e-6
	}
	return f.params.MzTolerance
}

// findPeak returns the index of the peak closest to mz within tol, or
// -1 if no peak qualifies.
func findPeak(peaks []mzml.Peak, mz float64, tol float64) int {
	i := sort.Search(len(peaks), func(i int) bool { return peaks[i].Mz >= mz })
	best := -1
	bestDiff := tol
	if i < len(peaks) {
		if d := peaks[i].Mz - mz; d <= bestDiff {
			best = i
			bestDiff = d
		}
	}
	if i > 0 {
		if d := mz - peaks[i-1].Mz; d <= bestDiff {
			best = i - 1
		}
	}
	return best
}
