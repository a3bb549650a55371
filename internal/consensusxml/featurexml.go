package consensusxml

import (
	"encoding/xml"
	"fmt"
	"io"
	"strconv"

	"github.com/524D/mzmultiplex/internal/multiplex"
)

type featureMap struct {
	XMLName     xml.Name    `xml:"featureMap"`
	Version     string      `xml:"version,attr"`
	FeatureList featureList `xml:"featureList"`
}

type featureList struct {
	Count    int       `xml:"count,attr"`
	Features []feature `xml:"feature"`
}

type feature struct {
	ID             string     `xml:"id,attr"`
	Positions      []position `xml:"position"`
	Intensity      float64    `xml:"intensity"`
	Qualities      []quality  `xml:"quality"`
	OverallQuality float64    `xml:"overallquality"`
	Charge         int        `xml:"charge"`
}

// encoding/xml only emits chardata for string kinds, so the numeric
// element contents are preformatted
type position struct {
	Dim   int    `xml:"dim,attr"`
	Value string `xml:",chardata"`
}

type quality struct {
	Dim   int    `xml:"dim,attr"`
	Value string `xml:",chardata"`
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// WriteFeatures writes the individual sample features of all records as
// a featureXML document. Dimension 0 is retention time, dimension 1 m/z.
func WriteFeatures(w io.Writer, records []multiplex.ConsensusRecord, p Params) error {
	doc := featureMap{Version: "1.9"}
	for _, rec := range records {
		for _, fh := range rec.Features {
			doc.FeatureList.Features = append(doc.FeatureList.Features, feature{
				ID: "f_" + fh.ID,
				Positions: []position{
					{Dim: 0, Value: num(fh.RetentionTime)},
					{Dim: 1, Value: num(fh.Mz)},
				},
				Intensity: fh.Intensity,
				Qualities: []quality{
					{Dim: 0, Value: "0"},
					{Dim: 1, Value: "0"},
				},
				OverallQuality: rec.Quality,
				Charge:         fh.Charge,
			})
		}
	}
	doc.FeatureList.Count = len(doc.FeatureList.Features)

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(&doc); err != nil {
		return fmt.Errorf("consensusxml: encode: %w", err)
	}
	return enc.Flush()
}
