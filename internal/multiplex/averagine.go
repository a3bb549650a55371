package multiplex

import "math"

// Averagine models the isotope envelope of an "average" peptide of a
// given mass. The elemental composition is the classic averagine
// building block (Senko et al. 1995): C4.9384 H7.7583 N1.3577 O1.4773
// S0.0417 per 111.1254 Da.
//
// The envelope is computed by convolving the per-element isotope
// distributions, truncated at the number of isotopes of interest.

const averagineMass = 111.1254

var averagineComposition = []struct {
	atomsPerUnit float64
	// isotope abundance distribution per atom, index = neutron count
	isotopes []float64
}{
	{4.9384, []float64{0.9893, 0.0107}},                      // C
	{7.7583, []float64{0.999885, 0.000115}},                  // H
	{1.3577, []float64{0.99632, 0.00368}},                    // N
	{1.4773, []float64{0.99757, 0.00038, 0.00205}},           // O
	{0.0417, []float64{0.9493, 0.0076, 0.0429, 0.0, 0.0002}}, // S
}

// averagineEnvelope returns the theoretical isotope envelope of an
// average peptide of the given (uncharged, monoisotopic) mass, truncated
// to n isotopes and normalized so the monoisotopic entry is 1.
func averagineEnvelope(mass float64, n int) []float64 {
	env := make([]float64, n)
	env[0] = 1
	for _, elem := range averagineComposition {
		atoms := int(math.Round(elem.atomsPerUnit * mass / averagineMass))
		env = convolve(env, elementDistribution(atoms, elem.isotopes, n), n)
	}
	// normalize to the monoisotopic peak
	if env[0] > 0 {
		mono := env[0]
		for i := range env {
			env[i] /= mono
		}
	}
	return env
}

// elementDistribution computes the isotope distribution of `atoms` atoms
// of one element by repeated self-convolution of the per-atom
// distribution, truncated to n entries
func elementDistribution(atoms int, perAtom []float64, n int) []float64 {
	result := make([]float64, n)
	result[0] = 1
	// binary exponentiation keeps this cheap for hundreds of atoms
	base := make([]float64, n)
	copy(base, perAtom[:min(len(perAtom), n)])
	for atoms > 0 {
		if atoms&1 == 1 {
			result = convolve(result, base, n)
		}
		base = convolve(base, base, n)
		atoms >>= 1
	}
	return result
}

func convolve(a, b []float64, n int) []float64 {
	out := make([]float64, n)
	for i := 0; i < n && i < len(a); i++ {
		if a[i] == 0 {
			continue
		}
		for j := 0; j+i < n && j < len(b); j++ {
			out[i+j] += a[i] * b[j]
		}
	}
	return out
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
