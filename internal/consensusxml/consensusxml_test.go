package consensusxml

import (
	"bytes"
	"encoding/xml"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/524D/mzmultiplex/internal/multiplex"
)

func testRecords() []multiplex.ConsensusRecord {
	return []multiplex.ConsensusRecord{
		{
			ID:            "abc",
			Mz:            500.0075,
			RetentionTime: 107.5,
			Intensity:     450,
			Quality:       0.5,
			Charge:        2,
			Points:        2,
			Features: []multiplex.FeatureHandle{
				{ID: "f0", Sample: 0, Mz: 500.0075, RetentionTime: 107.5, Intensity: 600, Charge: 2},
				{ID: "f1", Sample: 1, Mz: 504.0146, RetentionTime: 107.5, Intensity: 300, Charge: 2},
			},
		},
	}
}

func testParams() Params {
	return Params{
		InputFile:    "sample.mzML",
		Labels:       multiplex.ParseLabelConfig("[][Lys8]"),
		SampleCounts: map[int]int{0: 1, 1: 1},
		Software:     "mzmultiplex",
		Version:      "1.0.0",
	}
}

func TestWriteConsensus(t *testing.T) {
	var buf bytes.Buffer
	err := WriteConsensus(&buf, testRecords(), testParams())
	require.NoError(t, err)
	out := buf.String()

	assert.True(t, strings.HasPrefix(out, xml.Header))
	assert.Contains(t, out, `experiment_type="multiplex"`)
	assert.Contains(t, out, `<map id="0" name="sample.mzML" label="" size="1">`)
	assert.Contains(t, out, `<map id="1" name="sample.mzML" label="Lys8" size="1">`)

	// the document round-trips through the same model
	var doc consensusDoc
	require.NoError(t, xml.Unmarshal(buf.Bytes(), &doc))
	require.Len(t, doc.ElementList.Elements, 1)
	ce := doc.ElementList.Elements[0]
	assert.Equal(t, "e_abc", ce.ID)
	assert.Equal(t, 2, ce.Charge)
	assert.InDelta(t, 0.5, ce.Quality, 1e-12)
	assert.InDelta(t, 500.0075, ce.Centroid.Mz, 1e-9)
	require.Len(t, ce.GroupedList.Elements, 2)
	assert.Equal(t, 1, ce.GroupedList.Elements[1].Map)
	assert.InDelta(t, 300, ce.GroupedList.Elements[1].It, 1e-9)
}

func TestWriteFeatures(t *testing.T) {
	var buf bytes.Buffer
	err := WriteFeatures(&buf, testRecords(), testParams())
	require.NoError(t, err)
	out := buf.String()

	assert.Contains(t, out, `<featureList count="2">`)
	assert.Contains(t, out, `<position dim="0">107.5</position>`)
	assert.Contains(t, out, `<position dim="1">504.0146</position>`)
	assert.Contains(t, out, `<charge>2</charge>`)

	var doc featureMap
	require.NoError(t, xml.Unmarshal(buf.Bytes(), &doc))
	require.Len(t, doc.FeatureList.Features, 2)
	assert.Equal(t, "f_f1", doc.FeatureList.Features[1].ID)
	assert.InDelta(t, 300, doc.FeatureList.Features[1].Intensity, 1e-9)
}

func TestSampleLabel(t *testing.T) {
	labels := multiplex.ParseLabelConfig("[][Lys8,Arg10]")
	assert.Equal(t, "", sampleLabel(labels, 0))
	assert.Equal(t, "Lys8,Arg10", sampleLabel(labels, 1))
	assert.Equal(t, "", sampleLabel(labels, 2))
}
