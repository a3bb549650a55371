package multiplex

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeneratePeakPatterns(t *testing.T) {
	mass := []MassPattern{
		{Shifts: []float64{0, 8.0141988132}},
		{Shifts: []float64{0, 16.0283976264}},
	}
	list := GeneratePeakPatterns(1, 4, 5, mass)
	require.Len(t, list, 8)

	// higher charges are matched first, mass patterns in generation
	// order within each charge
	wantCharges := []int{4, 4, 3, 3, 2, 2, 1, 1}
	for i, p := range list {
		assert.Equal(t, wantCharges[i], p.Charge, "pattern %d", i)
		assert.Equal(t, i, p.ID)
		assert.Equal(t, 5, p.MaxIsotopes)
	}
	assert.InDelta(t, 8.0141988132, list[0].MassPattern.Shifts[1], 1e-9)
	assert.InDelta(t, 16.0283976264, list[1].MassPattern.Shifts[1], 1e-9)
}

func TestMzShiftAt(t *testing.T) {
	p := PeakPattern{
		Charge:      2,
		MaxIsotopes: 4,
		MassPattern: MassPattern{Shifts: []float64{0, 8.0141988132}},
	}
	assert.Zero(t, p.MzShiftAt(0, 0))
	assert.InDelta(t, isotopeMassDiff/2, p.MzShiftAt(0, 1), 1e-12)
	assert.InDelta(t, 8.0141988132/2, p.MzShiftAt(1, 0), 1e-12)
	assert.InDelta(t, (8.0141988132+3*isotopeMassDiff)/2, p.MzShiftAt(1, 3), 1e-12)
	assert.Equal(t, 2, p.Peptides())
}
