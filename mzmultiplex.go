// Copyright 2026 Rob Marissen.
// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"time"

	flag "github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/524D/mzmultiplex/internal/consensusxml"
	"github.com/524D/mzmultiplex/internal/featuredb"
	"github.com/524D/mzmultiplex/internal/multiplex"
	"github.com/524D/mzmultiplex/internal/mzml"
	"github.com/524D/mzmultiplex/internal/peakpick"
)

// Program name and version, written to the result metadata
const progName = "mzMultiplex"

var progVersion = `Unknown`

const (
	infoDefault = iota
	infoSilent
	infoVerbose
)

var ErrRangeSpec = errors.New("invalid range specification")

// Command line parameters
type params struct {
	mzMLFilename        *string
	consensusFilename   *string  // filename for consensusXML output
	featureFilename     *string  // filename for featureXML output
	dbFilename          *string  // filename of SQLite results database
	clustersFilename    *string  // filename for cluster debug CSV
	paramFilename       *string  // filename of parameter file
	labels              *string  // label configuration, e.g. "[][Lys8]"
	missedCleavages     *int     // maximum number of missed cleavages
	knockOut            *bool    // also search for partial multiplets
	charge              *string  // charge range
	minCharge           int      // min charge of multiplets
	maxCharge           int      // max charge of multiplets
	isotopes            *string  // isotopes per peptide range
	minIsotopes         int      // min isotopes each peptide must show
	maxIsotopes         int      // max isotopes collected per peptide
	intensityCutoff     *float64 // minimum peak intensity
	mzTolerance         *float64 // m/z matching tolerance
	mzUnit              *string  // unit of mzTolerance, "ppm" or "Da"
	rtTypical           *float64 // typical elution time span
	rtMin               *float64 // minimum elution time span of a cluster
	mzWindow            *float64 // m/z width of a cluster
	peptideSimilarity   *float64 // min profile correlation between peptides
	averagineSimilarity *float64 // acceptance factor for isotope envelopes
	args                []string // additional values passed on the command line
	verbosity           int      // verbosity of progress messages (infoDefault...)
	missingPeaks        *bool    // tolerate one absent isotope per peptide
}

// Parse string like "-12:6" into 2 values, -12 and 6
// Parameters min and max are the "default" min/max values,
// when a value is not specified (e.g. "-12:"), the default is assigned
func parseIntRange(r string, min int, max int) (int, int, error) {
	re := regexp.MustCompile(`\s*(\-?\d*):(\-?\d*)`)
	m := re.FindStringSubmatch(r)
	minOut := min
	maxOut := max
	if len(m) >= 2 && m[1] != "" {
		minOut, _ = strconv.Atoi(m[1])
		if minOut < min {
			minOut = min
		}
	}
	if len(m) >= 3 && m[2] != "" {
		maxOut, _ = strconv.Atoi(m[2])
		if maxOut > max {
			maxOut = max
		}
	}
	var err error
	if minOut > maxOut {
		err = ErrRangeSpec
		minOut = maxOut
	}
	return minOut, maxOut, err
}

// Parse string like "-12.01e1:+6" into 2 values, -120.1 and 6.0
// Parameters min and max are the "default" min/max values,
// when a value is not specified (e.g. "-12.01e1:"), the default is assigned
func parseFloat64Range(r string, min float64, max float64) (
	float64, float64, error) {
	re := regexp.MustCompile(`\s*([-+]?[0-9]*\.?[0-9]*([eE][-+]?[0-9]+)?):([-+]?[0-9]*\.?[0-9]*([eE][-+]?[0-9]+)?)`)
	m := re.FindStringSubmatch(r)
	minOut := min
	maxOut := max
	if len(m) >= 2 && m[1] != "" {
		minOut, _ = strconv.ParseFloat(m[1], 64)
		if minOut < min {
			minOut = min
		}
	}
	if len(m) >= 4 && m[3] != "" {
		maxOut, _ = strconv.ParseFloat(m[3], 64)
		if maxOut > max {
			maxOut = max
		}
	}
	var err error
	if minOut > maxOut {
		err = ErrRangeSpec
		minOut = maxOut
	}
	return minOut, maxOut, err
}

func newLogger(verbosity int) *zap.Logger {
	cfg := zap.NewDevelopmentConfig()
	switch verbosity {
	case infoSilent:
		cfg.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	case infoVerbose:
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	default:
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	logger, err := cfg.Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "can't initialize logging: %v\n", err)
		os.Exit(1)
	}
	return logger
}

// applyParamFile overlays defaults from a parameter file (JSON, YAML or
// TOML, determined by extension). Values given on the command line win.
// The key "labeltable" may hold extra label names with their mass
// shifts, extending the build-in table.
func applyParamFile(path string, table multiplex.LabelTable) error {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("read parameter file: %w", err)
	}
	var flagErr error
	flag.VisitAll(func(fl *flag.Flag) {
		if fl.Changed || !v.IsSet(fl.Name) {
			return
		}
		if err := fl.Value.Set(v.GetString(fl.Name)); err != nil && flagErr == nil {
			flagErr = fmt.Errorf("parameter %s: %w", fl.Name, err)
		}
	})
	if flagErr != nil {
		return flagErr
	}
	for name, mass := range v.GetStringMapString("labeltable") {
		m, err := strconv.ParseFloat(mass, 64)
		if err != nil {
			return fmt.Errorf("labeltable entry %s: %w", name, err)
		}
		table[name] = m
	}
	return nil
}

func sanitizeParams(par *params) {
	exeName := filepath.Base(os.Args[0])

	if len(par.args) != 1 {
		fmt.Fprintf(os.Stderr, `Last argument must be name of mzML file.
Type %s --help for usage
`, exeName)
		os.Exit(2)
	}

	fn := par.args[0]
	par.mzMLFilename = &fn
	var extension = filepath.Ext(fn)
	var startName = fn[0 : len(fn)-len(extension)]

	if *par.consensusFilename == "" {
		*par.consensusFilename = startName + ".consensusXML"
	}

	var err error
	par.minCharge, par.maxCharge, err = parseIntRange(*par.charge, 1, 10)
	if err != nil {
		fmt.Fprintf(os.Stderr, `Invalid charge range.
Type %s --help for usage
`, exeName)
		os.Exit(2)
	}
	par.minIsotopes, par.maxIsotopes, err = parseIntRange(*par.isotopes, 1, 10)
	if err != nil {
		fmt.Fprintf(os.Stderr, `Invalid isotope range.
Type %s --help for usage
`, exeName)
		os.Exit(2)
	}
	if *par.mzUnit != "ppm" && *par.mzUnit != "Da" {
		fmt.Fprintf(os.Stderr, `Invalid m/z tolerance unit %q, must be "ppm" or "Da".
Type %s --help for usage
`, *par.mzUnit, exeName)
		os.Exit(2)
	}
}

func usage() {
	exeName := filepath.Base(os.Args[0])
	fmt.Fprintf(os.Stderr,
		`USAGE:
  %s [options] <mzMLfile>

  This program detects groups of peptides in profile LC-MS data that
  co-elute with fixed mass offsets, as produced by isotopic labelling
  (SILAC, dimethyl, ICPL), and reports their intensities and ratios in
  consensusXML format.

OPTIONS:
`, exeName)
	flag.PrintDefaults()
	fmt.Fprintf(os.Stderr,
		`
BUILD-IN LABELS:
  The following labels can be referenced in the --labels option, with
  their mass shifts:
`)
	for _, name := range multiplex.LabelNames(multiplex.DefaultLabelTable()) {
		fmt.Fprintf(os.Stderr, "     %s (%f)\n", name, multiplex.DefaultLabelTable()[name])
	}
	fmt.Fprintf(os.Stderr,
		`
USAGE EXAMPLES:
  %s --labels "[][Lys8,Arg10]" yeast.mzML
    Detect SILAC light/heavy pairs in yeast.mzML and write the result to
    yeast.consensusXML.

  %s --labels "[Dimethyl0][Dimethyl4][Dimethyl8]" --mztol 10 --mzunit ppm sample.mzML
    Detect dimethyl triplets with a 10 ppm matching tolerance.

NOTES:
    The input must contain profile (not centroided) MS1 spectra.
`, exeName, exeName)
}

func main() {
	var par params

	par.labels = flag.String("labels",
		"[][Lys8]",
		"label `configuration`"+`, one bracket group per sample, lightest first.
An empty group denotes an unlabelled sample. Example: "[][Lys4,Arg6][Lys8,Arg10]"`)
	par.missedCleavages = flag.Int("missed",
		0,
		`maximum number of missed cleavages to consider`)
	par.knockOut = flag.Bool("knockout", false,
		`also search for partial multiplets, e.g. the singlets and doublets
that remain when some samples lack a peptide`)
	par.charge = flag.String("charge",
		"1:4",
		"charge `range` of multiplets")
	par.isotopes = flag.String("isotopes",
		"3:6",
		"`range` of isotopic peaks per peptide: the minimum each peptide"+`
must show, and the maximum used for quantitation`)
	par.intensityCutoff = flag.Float64("cutoff",
		1000.0,
		`minimum peak intensity`)
	par.mzTolerance = flag.Float64("mztol",
		6.0,
		`m/z tolerance for matching peaks to expected positions`)
	par.mzUnit = flag.String("mzunit",
		"ppm",
		"`unit` of --mztol, \"ppm\" or \"Da\"")
	par.peptideSimilarity = flag.Float64("pepsim",
		0.7,
		`minimum correlation between the profile intensities of peptides
in a multiplet`)
	par.averagineSimilarity = flag.Float64("avgsim",
		0.75,
		`acceptance factor for the deviation of observed isotope envelopes
from the averagine model (0..1, higher is stricter)`)
	par.missingPeaks = flag.Bool("missing", false,
		`tolerate one absent isotopic peak per peptide (the monoisotopic
peak must always be present)`)
	par.rtTypical = flag.Float64("rttypical",
		40.0,
		`typical elution time span (s), used to link data points into clusters`)
	par.rtMin = flag.Float64("rtmin",
		2.0,
		`minimum elution time span (s) of a cluster`)
	par.mzWindow = flag.Float64("mzwindow",
		0.05,
		`m/z width (Th) of a cluster`)
	par.consensusFilename = flag.String("o",
		"",
		"`filename` of consensusXML output (default: input with extension .consensusXML)")
	par.featureFilename = flag.String("features",
		"",
		"`filename` for featureXML output of the individual sample features")
	par.dbFilename = flag.String("db",
		"",
		"`filename` of a SQLite database to store the results in")
	par.clustersFilename = flag.String("clusters",
		"",
		"`filename` for a CSV dump of the clustered data points")
	par.paramFilename = flag.String("params",
		"",
		"`filename`"+` of a parameter file (JSON/YAML/TOML). Options given on
the command line take precedence. The key "labeltable" may define
additional labels (name: mass shift).`)
	version := flag.Bool("version", false,
		`Show software version`)
	verbose := flag.Bool("verbose", false,
		`Print more verbose progress information`)
	quiet := flag.Bool("quiet", false,
		`Don't print any output except for errors`)
	flag.Usage = usage
	flag.Parse()
	if *version {
		fmt.Fprintf(os.Stderr, "%s version %s\n", progName, progVersion)
		return
	}
	if *verbose {
		par.verbosity = infoVerbose
	}
	if *quiet {
		par.verbosity = infoSilent
	}
	par.args = flag.Args()

	logger := newLogger(par.verbosity)
	defer logger.Sync()

	table := multiplex.DefaultLabelTable()
	if *par.paramFilename != "" {
		if err := applyParamFile(*par.paramFilename, table); err != nil {
			logger.Fatal("parameter file", zap.Error(err))
		}
	}
	sanitizeParams(&par)

	if err := doMultiplex(par, table, logger); err != nil {
		logger.Fatal("multiplet detection failed", zap.Error(err))
	}
}

func doMultiplex(par params, table multiplex.LabelTable, logger *zap.Logger) error {
	start := time.Now()
	massPatterns, err := multiplex.GenerateMassPatterns(*par.labels, table,
		*par.missedCleavages, *par.knockOut)
	if err != nil {
		return err
	}
	patterns := multiplex.GeneratePeakPatterns(par.minCharge, par.maxCharge,
		par.maxIsotopes, massPatterns)
	logger.Info("patterns generated",
		zap.String("labels", *par.labels),
		zap.Int("massPatterns", len(massPatterns)),
		zap.Int("peakPatterns", len(patterns)))

	results, err := runFiltering(par, patterns, logger)
	if err != nil {
		return err
	}

	clusterParams := multiplex.ClusterParams{
		RTTypical: *par.rtTypical,
		MzTypical: *par.mzWindow,
		RTMinimum: *par.rtMin,
	}
	asm := multiplex.NewAssembler(par.maxIsotopes, logger)
	var records []multiplex.ConsensusRecord
	var clustersOut [][]multiplex.Cluster
	points := 0
	for i, pattern := range patterns {
		clusters := multiplex.ClusterPoints(results[i], clusterParams)
		recs, err := asm.Assemble(pattern, results[i], clusters)
		if err != nil {
			return err
		}
		records = append(records, recs...)
		clustersOut = append(clustersOut, clusters)
		points += len(results[i])
		if *par.clustersFilename == "" {
			// filter points of this pattern are no longer needed
			results[i] = nil
		}
	}
	logger.Info("multiplets assembled",
		zap.Int("dataPoints", points),
		zap.Int("consensusRecords", len(records)),
		zap.Duration("elapsed", time.Since(start)))

	if *par.clustersFilename != "" {
		if err := writeClustersCSV(*par.clustersFilename, results, clustersOut); err != nil {
			return err
		}
	}

	xmlParams := consensusxml.Params{
		InputFile:    filepath.Base(*par.mzMLFilename),
		Labels:       multiplex.ParseLabelConfig(*par.labels),
		SampleCounts: asm.SampleCounts(),
		Software:     progName,
		Version:      progVersion,
	}
	out, err := os.Create(*par.consensusFilename)
	if err != nil {
		return err
	}
	defer out.Close()
	if err := consensusxml.WriteConsensus(out, records, xmlParams); err != nil {
		return err
	}
	logger.Info("consensusXML written", zap.String("file", *par.consensusFilename))

	if *par.featureFilename != "" {
		ff, err := os.Create(*par.featureFilename)
		if err != nil {
			return err
		}
		defer ff.Close()
		if err := consensusxml.WriteFeatures(ff, records, xmlParams); err != nil {
			return err
		}
		logger.Info("featureXML written", zap.String("file", *par.featureFilename))
	}

	if *par.dbFilename != "" {
		if err := storeRecords(*par.dbFilename, *par.mzMLFilename, records); err != nil {
			return err
		}
		logger.Info("results stored", zap.String("db", *par.dbFilename))
	}
	return nil
}

// runFiltering loads the MS1 spectra, centroids them and filters them
// against the patterns. The raw spectra go out of scope when it
// returns, only the filter results are kept in memory afterwards.
func runFiltering(par params, patterns []multiplex.PeakPattern, logger *zap.Logger) ([][]multiplex.FilterResultPoint, error) {
	f, err := os.Open(*par.mzMLFilename)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	mz, err := mzml.Read(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", *par.mzMLFilename, err)
	}
	spectra, err := mz.MS1Spectra()
	if err != nil {
		return nil, err
	}
	if len(spectra) == 0 {
		return nil, errors.New("no MS1 spectra in input")
	}
	centroided := 0
	for _, s := range spectra {
		if s.Centroided {
			centroided++
		}
	}
	if centroided > 0 {
		return nil, fmt.Errorf("%d of %d MS1 spectra are centroided, profile data required",
			centroided, len(spectra))
	}
	logger.Info("spectra loaded", zap.Int("ms1", len(spectra)))

	picker := peakpick.Picker{MinIntensity: *par.intensityCutoff}
	picked := picker.PickAll(spectra)

	filterParams := multiplex.FilterParams{
		IsotopesPerPeptideMin: par.minIsotopes,
		IsotopesPerPeptideMax: par.maxIsotopes,
		IntensityCutoff:       *par.intensityCutoff,
		MzTolerance:           *par.mzTolerance,
		MzTolerancePPM:        *par.mzUnit == "ppm",
		PeptideSimilarity:     *par.peptideSimilarity,
		AveragineSimilarity:   *par.averagineSimilarity,
		AllowMissingPeaks:     *par.missingPeaks,
	}
	filtering := multiplex.NewFiltering(filterParams, patterns, spectra, picked, logger)
	return filtering.Run(), nil
}

// writeClustersCSV dumps all clustered data points, mainly useful for
// inspecting clustering behavior on real data
func writeClustersCSV(fn string, results [][]multiplex.FilterResultPoint, clusters [][]multiplex.Cluster) error {
	f, err := os.Create(fn)
	if err != nil {
		return err
	}
	defer f.Close()
	w := csv.NewWriter(f)
	defer w.Flush()
	if err := w.Write([]string{"pattern", "cluster", "spectrum", "rt", "mz"}); err != nil {
		return err
	}
	for pat := range clusters {
		for c, cluster := range clusters[pat] {
			for _, i := range cluster.Points {
				p := results[pat][i]
				rec := []string{
					strconv.Itoa(pat),
					strconv.Itoa(c),
					strconv.Itoa(p.SpectrumIndex),
					strconv.FormatFloat(p.RetentionTime, 'f', 3, 64),
					strconv.FormatFloat(p.Mz, 'f', 5, 64),
				}
				if err := w.Write(rec); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func storeRecords(dbFile, input string, records []multiplex.ConsensusRecord) error {
	db, err := featuredb.Open(dbFile)
	if err != nil {
		return err
	}
	defer db.Close()
	return db.Store(context.Background(), filepath.Base(input), records)
}
