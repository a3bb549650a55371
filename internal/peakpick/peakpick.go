// Package peakpick converts profile spectra into centroided spectra.
//
// Each detected peak comes with its left/right m/z boundary in the
// profile data, so that downstream code can re-sample the raw signal
// around the centroid.
package peakpick

import (
	"github.com/524D/mzmultiplex/internal/mzml"
)

// PeakBoundary describes the extent of a picked peak in the profile data
type PeakBoundary struct {
	MzMin float64
	MzMax float64
}

// Picked is a centroided spectrum. Peaks and Boundaries run in parallel
// and are ordered by m/z.
type Picked struct {
	Index         int
	RetentionTime float64
	Peaks         []mzml.Peak
	Boundaries    []PeakBoundary
}

// Picker holds the peak picking parameters
type Picker struct {
	// MinIntensity is the minimum apex intensity for a profile maximum
	// to be reported as a peak
	MinIntensity float64
}

// Pick centroids a single profile spectrum.
// A peak is a local maximum above MinIntensity; its boundaries are the
// local minima (or the signal edges) on either side. The centroid m/z is
// the intensity-weighted average of the profile points between the
// boundaries, the centroid intensity is the apex intensity.
func (p Picker) Pick(spec mzml.Spectrum) Picked {
	out := Picked{
		Index:         spec.Index,
		RetentionTime: spec.RetentionTime,
	}
	raw := spec.Peaks
	for i := 1; i < len(raw)-1; i++ {
		if raw[i].Intens < p.MinIntensity {
			continue
		}
		if !(raw[i].Intens >= raw[i-1].Intens && raw[i].Intens > raw[i+1].Intens) {
			continue
		}
		// Walk down both flanks to the enclosing minima
		left := i
		for left > 0 && raw[left-1].Intens < raw[left].Intens && raw[left-1].Intens > 0 {
			left--
		}
		right := i
		for right < len(raw)-1 && raw[right+1].Intens < raw[right].Intens && raw[right+1].Intens > 0 {
			right++
		}
		var sumI, sumMzI float64
		for j := left; j <= right; j++ {
			sumI += raw[j].Intens
			sumMzI += raw[j].Mz * raw[j].Intens
		}
		if sumI <= 0 {
			continue
		}
		out.Peaks = append(out.Peaks, mzml.Peak{
			Mz:     sumMzI / sumI,
			Intens: raw[i].Intens,
		})
		out.Boundaries = append(out.Boundaries, PeakBoundary{
			MzMin: raw[left].Mz,
			MzMax: raw[right].Mz,
		})
		// Skip to the right flank, the points up to there belong to
		// the current peak
		i = right
	}
	return out
}

// PickAll centroids a set of profile spectra, preserving their order
func (p Picker) PickAll(specs []mzml.Spectrum) []Picked {
	picked := make([]Picked, len(specs))
	for i, spec := range specs {
		picked[i] = p.Pick(spec)
	}
	return picked
}
