package multiplex

import (
	"math"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// FeatureHandle is the contribution of one sample to a consensus
// record. Its position is the centroid of that sample's own
// monoisotopic peaks.
type FeatureHandle struct {
	ID            string
	Sample        int
	Mz            float64
	RetentionTime float64
	Intensity     float64
	Charge        int
}

// ConsensusRecord is one quantified multiplet. Its position is the
// intensity weighted centroid of the lightest peptide's monoisotopic
// peaks; Quality grows with the number of supporting data points.
type ConsensusRecord struct {
	ID            string
	Mz            float64
	RetentionTime float64
	Intensity     float64
	Quality       float64
	Charge        int
	Points        int
	Features      []FeatureHandle
}

// Assembler turns clusters of filter result points into consensus
// records.
type Assembler struct {
	maxIsotopes int
	counts      map[int]int
	log         *zap.Logger
}

func NewAssembler(maxIsotopes int, log *zap.Logger) *Assembler {
	return &Assembler{
		maxIsotopes: maxIsotopes,
		counts:      make(map[int]int),
		log:         log,
	}
}

// SampleCounts reports how many features were assembled per sample
// slot so far.
func (a *Assembler) SampleCounts() map[int]int {
	out := make(map[int]int, len(a.counts))
	for k, v := range a.counts {
		out[k] = v
	}
	return out
}

// Assemble builds one consensus record per cluster of the given
// pattern.
func (a *Assembler) Assemble(pattern PeakPattern, points []FilterResultPoint, clusters []Cluster) ([]ConsensusRecord, error) {
	records := make([]ConsensusRecord, 0, len(clusters))
	for _, cluster := range clusters {
		rec, err := a.assembleCluster(pattern, points, cluster)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

func (a *Assembler) assembleCluster(pattern PeakPattern, points []FilterResultPoint, cluster Cluster) (ConsensusRecord, error) {
	if len(cluster.Points) == 0 {
		// ClusterPoints never emits empty clusters
		panic("mzmultiplex: empty cluster")
	}
	n := pattern.Peptides()
	maxIso := a.maxIsotopes

	profile := make([][]float64, n)
	for p := range profile {
		profile[p] = make([]float64, 0, len(cluster.Points)*maxIso*similaritySamples)
	}
	for _, idx := range cluster.Points {
		for p := 0; p < n; p++ {
			profile[p] = append(profile[p], points[idx].Profile[p]...)
		}
	}
	corrected, err := PeptideIntensities(profile)
	if err != nil {
		return ConsensusRecord{}, err
	}

	// per peptide centroids weighted by the monoisotopic intensity
	mzCentroid := make([]float64, n)
	rtCentroid := make([]float64, n)
	for p := 0; p < n; p++ {
		var mzSum, rtSum, wSum float64
		for _, idx := range cluster.Points {
			w := points[idx].Intensities[p*maxIso]
			if math.IsNaN(w) {
				continue
			}
			mzSum += w * (points[idx].Mz + points[idx].MzShifts[p*maxIso])
			rtSum += w * points[idx].RetentionTime
			wSum += w
		}
		mzCentroid[p] = mzSum / wSum
		rtCentroid[p] = rtSum / wSum
	}

	rec := ConsensusRecord{
		ID:            uuid.NewString(),
		Mz:            mzCentroid[0],
		RetentionTime: rtCentroid[0],
		Charge:        pattern.Charge,
		Points:        len(cluster.Points),
		Quality:       1 - 1/float64(len(cluster.Points)),
	}
	var intensSum float64
	for p := 0; p < n; p++ {
		rec.Features = append(rec.Features, FeatureHandle{
			ID:            uuid.NewString(),
			Sample:        p,
			Mz:            mzCentroid[p],
			RetentionTime: rtCentroid[p],
			Intensity:     corrected[p],
			Charge:        pattern.Charge,
		})
		a.counts[p]++
		intensSum += corrected[p]
	}
	rec.Intensity = intensSum / float64(n)

	a.log.Debug("cluster assembled",
		zap.Float64("rt", rec.RetentionTime),
		zap.Float64("mz", rec.Mz),
		zap.Int("points", rec.Points))
	return rec, nil
}
