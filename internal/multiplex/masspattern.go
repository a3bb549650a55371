package multiplex

// MassPattern is an ordered list of mass shifts in Da, one per peptide in
// the multiplet, lightest first. The first shift is always 0.
// Knock-out patterns are derived sub-patterns that describe the case
// where one or more of the heavier multiplet members are absent.
type MassPattern struct {
	Shifts   []float64
	KnockOut bool
}

// Size returns the number of peptides in the multiplet
func (m MassPattern) Size() int {
	return len(m.Shifts)
}

// GenerateMassPatterns enumerates the mass-shift patterns implied by a
// label configuration string and a missed-cleavage bound. When knockOut
// is set and the multiplet order is 2, 3 or 4, the derived sub-patterns
// are appended after the base patterns, a single singlet pattern last.
// The order of the returned list matters: downstream matching prefers
// earlier patterns, so the more likely low-missed-cleavage patterns come
// first.
func GenerateMassPatterns(config string, table LabelTable, missedCleavages int, knockOut bool) ([]MassPattern, error) {
	samples := ParseLabelConfig(config)
	family, err := classifyLabels(samples, table)
	if err != nil {
		return nil, err
	}

	var generate func(SampleLabels, LabelTable, int) []MassPattern
	switch family {
	case familySILAC:
		generate = generateSILAC
	case familyUniform:
		generate = generateUniform
	default:
		generate = generateSinglet
	}
	list := generate(samples, table, missedCleavages)
	if len(list) == 0 {
		return nil, ErrConflictingLabelFamily
	}

	if knockOut {
		list = expandKnockOut(list)
	}
	return list, nil
}

// knockOutPattern builds a derived pattern from pairwise differences of
// retained base shifts, re-based so the lightest retained shift is 0
func knockOutPattern(shifts ...float64) MassPattern {
	p := MassPattern{Shifts: make([]float64, 0, len(shifts)+1), KnockOut: true}
	p.Shifts = append(p.Shifts, 0)
	p.Shifts = append(p.Shifts, shifts...)
	return p
}

// expandKnockOut generates all mass patterns that can occur due to the
// absence of one or more of the heavier peptides (e.g. for a quadruplet
// experiment, the triplets, doublets and the singlet that might be
// present instead). Only multiplet orders 2 to 4 are expanded.
func expandKnockOut(list []MassPattern) []MassPattern {
	n := list[0].Size() // n=2 for doublets, n=3 for triplets ...
	m := len(list)
	switch n {
	case 4:
		for i := 0; i < m; i++ {
			s := list[i].Shifts
			list = append(list,
				knockOutPattern(s[2]-s[1], s[3]-s[1]),
				knockOutPattern(s[2]-s[0], s[3]-s[0]),
				knockOutPattern(s[1]-s[0], s[2]-s[0]),
				knockOutPattern(s[1]),
				knockOutPattern(s[2]),
				knockOutPattern(s[3]),
				knockOutPattern(s[2]-s[1]),
				knockOutPattern(s[3]-s[1]),
				knockOutPattern(s[3]-s[2]),
			)
		}
		list = append(list, MassPattern{Shifts: []float64{0}, KnockOut: true})
	case 3:
		for i := 0; i < m; i++ {
			s := list[i].Shifts
			list = append(list,
				knockOutPattern(s[1]),
				knockOutPattern(s[2]-s[1]),
				knockOutPattern(s[2]),
			)
		}
		list = append(list, MassPattern{Shifts: []float64{0}, KnockOut: true})
	case 2:
		list = append(list, MassPattern{Shifts: []float64{0}, KnockOut: true})
	}
	return list
}
