package multiplex

// Mass difference between successive isotopes (C13 - C12)
const isotopeMassDiff = 1.003355

const massProton = 1.007276466879

// PeakPattern combines a mass pattern with a charge state and an
// isotopes-per-peptide bound into a fully specified expected m/z pattern.
// Immutable once constructed.
type PeakPattern struct {
	Charge      int
	MaxIsotopes int
	MassPattern MassPattern
	ID          int
}

// Peptides returns the number of peptides in the multiplet
func (p PeakPattern) Peptides() int {
	return p.MassPattern.Size()
}

// MzShiftAt returns the expected m/z offset of isotope k of peptide p,
// relative to the monoisotopic peak of the lightest peptide
func (p PeakPattern) MzShiftAt(peptide, k int) float64 {
	return (p.MassPattern.Shifts[peptide] + float64(k)*isotopeMassDiff) / float64(p.Charge)
}

// GeneratePeakPatterns constructs one PeakPattern per charge state and
// mass pattern. Charge states are iterated from high to low: a true
// lower-charge pattern can be mistaken for a higher-charge one but not
// vice versa, so higher charges must be tried first. Mass patterns are
// iterated in generation order, so the more likely low-missed-cleavage
// patterns are tried first within each charge.
func GeneratePeakPatterns(chargeMin, chargeMax, maxIsotopes int, massPatterns []MassPattern) []PeakPattern {
	list := make([]PeakPattern, 0, (chargeMax-chargeMin+1)*len(massPatterns))
	for c := chargeMax; c >= chargeMin; c-- {
		for _, mp := range massPatterns {
			list = append(list, PeakPattern{
				Charge:      c,
				MaxIsotopes: maxIsotopes,
				MassPattern: mp,
				ID:          len(list),
			})
		}
	}
	return list
}
