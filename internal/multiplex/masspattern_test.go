package multiplex

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateMassPatternsSILACDoublet(t *testing.T) {
	table := DefaultLabelTable()

	list, err := GenerateMassPatterns("[][Lys8]", table, 0, false)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Len(t, list[0].Shifts, 2)
	assert.Zero(t, list[0].Shifts[0])
	assert.InDelta(t, 8.0141988132, list[0].Shifts[1], 1e-9)
	assert.False(t, list[0].KnockOut)
}

func TestGenerateMassPatternsSILACMissedCleavages(t *testing.T) {
	table := DefaultLabelTable()

	// per residue up to missedCleavages+1 label incorporations,
	// bounded in total as well
	list, err := GenerateMassPatterns("[][Lys8,Arg10]", table, 1, false)
	require.NoError(t, err)
	require.Len(t, list, 5)

	want := [][]float64{
		{0, 8.0141988132},
		{0, 16.0283976264},
		{0, 10.008268600},
		{0, 18.0224674132},
		{0, 20.016537200},
	}
	for i, shifts := range want {
		require.Len(t, list[i].Shifts, len(shifts), "pattern %d", i)
		for j, s := range shifts {
			assert.InDelta(t, s, list[i].Shifts[j], 1e-9, "pattern %d shift %d", i, j)
		}
	}
}

func TestGenerateMassPatternsSILACSkipsUnlabelledResidue(t *testing.T) {
	table := DefaultLabelTable()

	// the heavy sample carries no Arg label, so combinations that
	// require a labelled Arg are dropped for it
	list, err := GenerateMassPatterns("[][Lys8]", table, 1, false)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.InDelta(t, 8.0141988132, list[0].Shifts[1], 1e-9)
	assert.InDelta(t, 16.0283976264, list[1].Shifts[1], 1e-9)
}

func TestGenerateMassPatternsUniform(t *testing.T) {
	table := DefaultLabelTable()

	list, err := GenerateMassPatterns("[Dimethyl0][Dimethyl4][Dimethyl8]", table, 1, false)
	require.NoError(t, err)
	require.Len(t, list, 2)

	// one label per cleavage site, so shifts scale with the number of
	// missed cleavages
	assert.InDelta(t, 4.025107, list[0].Shifts[1], 1e-6)
	assert.InDelta(t, 8.044370, list[0].Shifts[2], 1e-6)
	assert.InDelta(t, 2*4.025107, list[1].Shifts[1], 1e-6)
	assert.InDelta(t, 2*8.044370, list[1].Shifts[2], 1e-6)
	for _, p := range list {
		assert.Zero(t, p.Shifts[0])
	}
}

func TestGenerateMassPatternsSinglet(t *testing.T) {
	list, err := GenerateMassPatterns("[]", DefaultLabelTable(), 2, false)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, []float64{0}, list[0].Shifts)
}

func TestGenerateMassPatternsUnknownLabel(t *testing.T) {
	_, err := GenerateMassPatterns("[][Foo8]", DefaultLabelTable(), 0, false)
	assert.ErrorIs(t, err, ErrUnknownLabel)
}

func TestKnockOutExpansion(t *testing.T) {
	table := DefaultLabelTable()

	// quadruplet: 9 sub-patterns per base plus the trailing singlet
	list, err := GenerateMassPatterns("[Dimethyl0][Dimethyl4][Dimethyl6][Dimethyl8]", table, 0, true)
	require.NoError(t, err)
	assert.Len(t, list, 11)

	// triplet: 3 sub-patterns per base plus the singlet
	list, err = GenerateMassPatterns("[Dimethyl0][Dimethyl4][Dimethyl8]", table, 0, true)
	require.NoError(t, err)
	assert.Len(t, list, 5)

	// doublet: only the singlet is added
	list, err = GenerateMassPatterns("[][Lys8]", table, 0, true)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.False(t, list[0].KnockOut)
	assert.True(t, list[1].KnockOut)
	assert.Equal(t, []float64{0}, list[1].Shifts)

	// every derived pattern is re-based to a leading zero
	list, err = GenerateMassPatterns("[Dimethyl0][Dimethyl4][Dimethyl6][Dimethyl8]", table, 0, true)
	require.NoError(t, err)
	for i, p := range list {
		assert.Zero(t, p.Shifts[0], "pattern %d", i)
	}
}
