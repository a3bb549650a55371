// Package consensusxml writes quantitation results in the consensusXML
// and featureXML formats, so that downstream proteomics tools can pick
// them up.
package consensusxml

import (
	"encoding/xml"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/524D/mzmultiplex/internal/multiplex"
)

// Params holds the metadata that accompanies the quantitation results
type Params struct {
	// InputFile is the name of the raw data file the results come from
	InputFile string
	// Labels is the per-sample label configuration
	Labels multiplex.SampleLabels
	// SampleCounts is the number of features per sample slot
	SampleCounts map[int]int
	// Software name and version for the dataProcessing record
	Software string
	Version  string
}

type consensusDoc struct {
	XMLName        xml.Name       `xml:"consensusXML"`
	Version        string         `xml:"version,attr"`
	ExperimentType string         `xml:"experiment_type,attr"`
	DataProcessing dataProcessing `xml:"dataProcessing"`
	MapList        mapList        `xml:"mapList"`
	ElementList    elementList    `xml:"consensusElementList"`
}

type dataProcessing struct {
	CompletionTime string           `xml:"completion_time,attr"`
	Software       software         `xml:"software"`
	Action         processingAction `xml:"processingAction"`
}

type software struct {
	Name    string `xml:"name,attr"`
	Version string `xml:"version,attr"`
}

type processingAction struct {
	Name string `xml:"name,attr"`
}

type mapList struct {
	Count int       `xml:"count,attr"`
	Maps  []mapInfo `xml:"map"`
}

type mapInfo struct {
	ID    int    `xml:"id,attr"`
	Name  string `xml:"name,attr"`
	Label string `xml:"label,attr"`
	Size  int    `xml:"size,attr"`
}

type elementList struct {
	Count    int                `xml:"count,attr"`
	Elements []consensusElement `xml:"consensusElement"`
}

type consensusElement struct {
	ID          string         `xml:"id,attr"`
	Quality     float64        `xml:"quality,attr"`
	Charge      int            `xml:"charge,attr"`
	Centroid    centroid       `xml:"centroid"`
	GroupedList groupedElement `xml:"groupedElementList"`
}

type centroid struct {
	RT float64 `xml:"rt,attr"`
	Mz float64 `xml:"mz,attr"`
	It float64 `xml:"it,attr"`
}

type groupedElement struct {
	Elements []element `xml:"element"`
}

type element struct {
	ID     string  `xml:"id,attr"`
	Map    int     `xml:"map,attr"`
	RT     float64 `xml:"rt,attr"`
	Mz     float64 `xml:"mz,attr"`
	It     float64 `xml:"it,attr"`
	Charge int     `xml:"charge,attr"`
}

// sampleLabel renders the label of sample slot p. Slot 0 is the
// (implicitly unlabelled) lightest sample.
func sampleLabel(labels multiplex.SampleLabels, p int) string {
	if p == 0 || p > len(labels) {
		return ""
	}
	return strings.Join(labels[p-1], ",")
}

// sampleCount determines how many sample slots the records cover
func sampleCount(records []multiplex.ConsensusRecord, labels multiplex.SampleLabels) int {
	n := len(labels) + 1
	for _, rec := range records {
		if len(rec.Features) > n {
			n = len(rec.Features)
		}
	}
	return n
}

// WriteConsensus writes the records as a consensusXML document
func WriteConsensus(w io.Writer, records []multiplex.ConsensusRecord, p Params) error {
	doc := consensusDoc{
		Version:        "1.7",
		ExperimentType: "multiplex",
		DataProcessing: dataProcessing{
			CompletionTime: time.Now().Format("2006-01-02T15:04:05"),
			Software:       software{Name: p.Software, Version: p.Version},
			Action:         processingAction{Name: "Quantitation"},
		},
	}

	n := sampleCount(records, p.Labels)
	doc.MapList.Count = n
	for i := 0; i < n; i++ {
		doc.MapList.Maps = append(doc.MapList.Maps, mapInfo{
			ID:    i,
			Name:  p.InputFile,
			Label: sampleLabel(p.Labels, i),
			Size:  p.SampleCounts[i],
		})
	}

	doc.ElementList.Count = len(records)
	for _, rec := range records {
		ce := consensusElement{
			ID:      "e_" + rec.ID,
			Quality: rec.Quality,
			Charge:  rec.Charge,
			Centroid: centroid{
				RT: rec.RetentionTime,
				Mz: rec.Mz,
				It: rec.Intensity,
			},
		}
		for _, fh := range rec.Features {
			ce.GroupedList.Elements = append(ce.GroupedList.Elements, element{
				ID:     "f_" + fh.ID,
				Map:    fh.Sample,
				RT:     fh.RetentionTime,
				Mz:     fh.Mz,
				It:     fh.Intensity,
				Charge: fh.Charge,
			})
		}
		doc.ElementList.Elements = append(doc.ElementList.Elements, ce)
	}

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
