package multiplex

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/interp"

	"github.com/524D/mzmultiplex/internal/mzml"
	"github.com/524D/mzmultiplex/internal/peakpick"
)

// SplineProfile is a spline view of one profile spectrum. It consists of
// one spline package per picked peak, fitted to the profile data points
// between the peak's boundaries. Intensities at arbitrary m/z positions
// inside a package can be interpolated; positions outside every package
// evaluate to NaN.
type SplineProfile struct {
	packages []splinePackage
}

type splinePackage struct {
	mzMin, mzMax float64
	spline       interp.NaturalCubic
}

// NewSplineProfile fits spline packages for all picked peaks of a
// spectrum. Peaks whose boundaries span fewer than three profile points
// are skipped.
func NewSplineProfile(profile mzml.Spectrum, picked peakpick.Picked) SplineProfile {
	var sp SplineProfile
	raw := profile.Peaks
	for _, b := range picked.Boundaries {
		lo := sort.Search(len(raw), func(i int) bool { return raw[i].Mz >= b.MzMin })
		hi := sort.Search(len(raw), func(i int) bool { return raw[i].Mz > b.MzMax })
		if hi-lo < 3 {
			continue
		}
		xs := make([]float64, 0, hi-lo)
		ys := make([]float64, 0, hi-lo)
		for i := lo; i < hi; i++ {
			// spline fitting needs strictly increasing abscissae
			if len(xs) > 0 && raw[i].Mz <= xs[len(xs)-1] {
				continue
			}
			xs = append(xs, raw[i].Mz)
			ys = append(ys, raw[i].Intens)
		}
		if len(xs) < 3 {
			continue
		}
		var pkg splinePackage
		pkg.mzMin = xs[0]
		pkg.mzMax = xs[len(xs)-1]
		if err := pkg.spline.Fit(xs, ys); err != nil {
			continue
		}
		sp.packages = append(sp.packages, pkg)
	}
	return sp
}

// Eval interpolates the profile intensity at mz, or NaN if mz lies
// outside all spline packages
func (s SplineProfile) Eval(mz float64) float64 {
	// packages are ordered by m/z, find the first one ending at or after mz
	i := sort.Search(len(s.packages), func(i int) bool { return s.packages[i].mzMax >= mz })
	if i == len(s.packages) || s.packages[i].mzMin > mz {
		return math.NaN()
	}
	return s.packages[i].spline.Predict(mz)
}
