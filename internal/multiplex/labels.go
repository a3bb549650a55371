// Package multiplex implements detection and quantitation of co-eluting,
// mass-shifted peptide signal groups ("multiplets") in LC-MS data.
//
// The pipeline enumerates the mass-shift patterns implied by an isotopic
// labelling scheme, scans picked MS1 spectra for data points whose
// neighbourhood matches one of the patterns, groups matching points into
// clusters in the retention-time/m-z plane and derives corrected peptide
// intensities and ratios per cluster.
package multiplex

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// LabelTable maps label names to their mass shifts in Da.
// It is built once at startup and treated as immutable.
type LabelTable map[string]float64

// DefaultLabelTable returns the built-in label masses
// (unimod references in the comments).
func DefaultLabelTable() LabelTable {
	return LabelTable{
		"Arg6":      6.0201290268,  // Label:13C(6), unimod #188
		"Arg10":     10.008268600,  // Label:13C(6)15N(4), unimod #267
		"Lys4":      4.0251069836,  // Label:2H(4), unimod #481
		"Lys6":      6.0201290268,  // Label:13C(6), unimod #188
		"Lys8":      8.0141988132,  // Label:13C(6)15N(2), unimod #259
		"Dimethyl0": 28.031300,     // Dimethyl, unimod #36
		"Dimethyl4": 32.056407,     // Dimethyl:2H(4), unimod #199
		"Dimethyl6": 34.063117,     // Dimethyl:2H(4)13C(2), unimod #510
		"Dimethyl8": 36.075670,     // Dimethyl:2H(6)13C(2), unimod #330
		"ICPL0":     105.021464,    // ICPL, unimod #365
		"ICPL4":     109.046571,    // ICPL:2H(4), unimod #687
		"ICPL6":     111.041593,    // ICPL:13C(6), unimod #364
		"ICPL10":    115.066700,    // ICPL:13C(6)2H(4), unimod #866
	}
}

// LabelNames returns the names in a label table, sorted
func LabelNames(table LabelTable) []string {
	names := make([]string, 0, len(table))
	for name := range table {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

var (
	// ErrUnknownLabel means the label configuration references a label
	// name that is not in the label table
	ErrUnknownLabel = errors.New("multiplex: unknown label")
	// ErrConflictingLabelFamily means the label configuration mixes
	// incompatible labelling families, or cannot be parsed
	ErrConflictingLabelFamily = errors.New("multiplex: conflicting label families")
)

// SampleLabels holds, per sample, the list of label names applied to it.
// Samples are ordered lightest to heaviest. Unlabelled samples (empty
// bracket groups) are not listed; the lightest peptide is implicit.
type SampleLabels [][]string

// String renders the configuration back into bracket notation,
// used for result metadata.
func (s SampleLabels) String() string {
	var b strings.Builder
	for _, labels := range s {
		b.WriteString("[" + strings.Join(labels, ",") + "]")
	}
	return b.String()
}

// ParseLabelConfig splits a label configuration string like
// "[][Lys8,Arg10]" or "[Dimethyl0][Dimethyl4][Dimethyl8]" into per-sample
// label lists. Any of "[](){}" separates samples, any of ",;: " separates
// labels within a sample. Empty sample groups are dropped.
func ParseLabelConfig(config string) SampleLabels {
	var samples SampleLabels
	for _, group := range strings.FieldsFunc(config, func(r rune) bool {
		return strings.ContainsRune("[](){}", r)
	}) {
		labels := strings.FieldsFunc(group, func(r rune) bool {
			return strings.ContainsRune(",;: ", r)
		})
		if len(labels) > 0 {
			samples = append(samples, labels)
		}
	}
	return samples
}

// The labelling families we can handle
type labelFamily int

const (
	familyNone    labelFamily = iota // no labelling, singlet detection
	familySILAC                      // residue-specific labels (Arg/Lys)
	familyUniform                    // whole-peptide labels (Dimethyl, ICPL)
)

// residueOf returns the amino acid a residue-specific label applies to,
// or "" for whole-peptide labels
func residueOf(label string) string {
	for _, r := range []string{"Arg", "Lys"} {
		if strings.HasPrefix(label, r) {
			return r
		}
	}
	return ""
}

// classifyLabels determines the labelling family of a configuration and
// verifies that every referenced label is known.
func classifyLabels(samples SampleLabels, table LabelTable) (labelFamily, error) {
	if len(samples) == 0 {
		return familyNone, nil
	}
	silac := false
	uniform := false
	for _, labels := range samples {
		for _, label := range labels {
			if _, ok := table[label]; !ok {
				return familyNone, fmt.Errorf("%w: %s", ErrUnknownLabel, label)
			}
			if residueOf(label) != "" {
				silac = true
			} else {
				uniform = true
			}
		}
	}
	if silac && uniform {
		return familyNone, fmt.Errorf("%w: both residue-specific and whole-peptide labels referenced",
			ErrConflictingLabelFamily)
	}
	if silac {
		return familySILAC, nil
	}
	return familyUniform, nil
}

// generateSinglet covers the unlabelled case: one pattern, one peptide
func generateSinglet(SampleLabels, LabelTable, int) []MassPattern {
	return []MassPattern{{Shifts: []float64{0}}}
}

// generateUniform covers whole-peptide labels (Dimethyl, ICPL). Each
// sample is labelled exactly once per cleavage site, so each missed
// cleavage multiplies the shift.
func generateUniform(samples SampleLabels, table LabelTable, missedCleavages int) []MassPattern {
	var list []MassPattern
	for mc := 0; mc <= missedCleavages; mc++ {
		shifts := make([]float64, 0, len(samples))
		for _, labels := range samples {
			shifts = append(shifts,
				float64(mc+1)*(table[labels[0]]-table[samples[0][0]]))
		}
		list = append(list, MassPattern{Shifts: shifts})
	}
	return list
}

// generateSILAC covers residue-specific labels. For every combination of
// per-residue counts (each bounded by missedCleavages+1, their sum too) the
// total shift of a sample is the sum over its labelled residues. A sample
// shift is only included when every residue implied by the counts carries a
// label in that sample; otherwise the combination is physically
// inconsistent for that sample and skipped. The first (unlabelled) sample
// is implicit.
func generateSILAC(samples SampleLabels, table LabelTable, missedCleavages int) []MassPattern {
	// Deterministic residue order: the residues that occur in the
	// configuration, sorted.
	residueSet := make(map[string]bool)
	for _, labels := range samples {
		for _, label := range labels {
			residueSet[residueOf(label)] = true
		}
	}
	residues := make([]string, 0, len(residueSet))
	for r := range residueSet {
		residues = append(residues, r)
	}
	sort.Strings(residues)

	var list []MassPattern
	counts := make([]int, len(residues))
	var walk func(pos, total int)
	walk = func(pos, total int) {
		if pos == len(residues) {
			shifts := []float64{0}
			for _, labels := range samples {
				shift := 0.0
				ok := true
				for ri, residue := range residues {
					if counts[ri] == 0 {
						continue
					}
					labelled := false
					for _, label := range labels {
						if residueOf(label) == residue {
							shift += float64(counts[ri]) * table[label]
							labelled = true
						}
					}
					if !labelled {
						ok = false
					}
				}
				if ok && shift != 0 {
					shifts = append(shifts, shift)
				}
			}
			if len(shifts) > 1 {
				list = append(list, MassPattern{Shifts: shifts})
			}
			return
		}
		for n := 0; n+total <= missedCleavages+1; n++ {
			counts[pos] = n
			walk(pos+1, total+n)
		}
		counts[pos] = 0
	}
	walk(0, 0)
	return list
}
