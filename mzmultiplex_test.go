package main

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/524D/mzmultiplex/internal/multiplex"
)

func TestParseIntRange(t *testing.T) {
	// Test case 1: Valid input range
	min, max, err := parseIntRange("2:4", 1, 10)
	if err != nil {
		t.Errorf("Expected no error, got: %v", err)
	}
	if min != 2 {
		t.Errorf("Expected min to be 2, got: %d", min)
	}
	if max != 4 {
		t.Errorf("Expected max to be 4, got: %d", max)
	}

	// Test case 2: Empty input range
	min, max, err = parseIntRange("", 1, 10)
	if err != nil {
		t.Errorf("Expected no error, got: %v", err)
	}
	if min != 1 {
		t.Errorf("Expected min to be 1, got: %d", min)
	}
	if max != 10 {
		t.Errorf("Expected max to be 10, got: %d", max)
	}

	// Test case 3: Inverted range
	_, _, err = parseIntRange("5:2", 1, 10)
	if !errors.Is(err, ErrRangeSpec) {
		t.Errorf("Expected error: %v, got: %v", ErrRangeSpec, err)
	}

	// Test case 4: Out of range values are clamped
	min, max, err = parseIntRange("0:100", 1, 10)
	if err != nil {
		t.Errorf("Expected no error, got: %v", err)
	}
	if min != 1 {
		t.Errorf("Expected min to be 1, got: %d", min)
	}
	if max != 10 {
		t.Errorf("Expected max to be 10, got: %d", max)
	}
}

func TestParseFloat64Range(t *testing.T) {
	// Test case 1: Valid input range
	min, max, err := parseFloat64Range("0.5:1.5", 0.0, 2.0)
	if err != nil {
		t.Errorf("Expected no error, got: %v", err)
	}
	if min != 0.5 {
		t.Errorf("Expected min to be 0.5, got: %f", min)
	}
	if max != 1.5 {
		t.Errorf("Expected max to be 1.5, got: %f", max)
	}

	// Test case 2: Invalid input range
	min, max, err = parseFloat64Range("2.5:1.5", 0.0, 2.0)
	if err == nil {
		t.Errorf("Expected error, got nil")
	}
	if !errors.Is(err, ErrRangeSpec) {
		t.Errorf("Expected error: %v, got: %v", ErrRangeSpec, err)
	}
	if min != 1.5 {
		t.Errorf("Expected min to be 1.5, got: %f", min)
	}
	if max != 1.5 {
		t.Errorf("Expected max to be 1.5, got: %f", max)
	}

	// Test case 3: Only max specified
	min, max, err = parseFloat64Range(":1.5", 0.0, 2.0)
	if err != nil {
		t.Errorf("Expected no error, got: %v", err)
	}
	if min != 0.0 {
		t.Errorf("Expected min to be 0.0, got: %f", min)
	}
	if max != 1.5 {
		t.Errorf("Expected max to be 1.5, got: %f", max)
	}

	// Test case 4: Exponents in numbers
	min, max, err = parseFloat64Range("-2.0e10:3.0e10", -1000000000000.0, 1000000000000.0)
	if err != nil {
		t.Errorf("Expected no error, got: %v", err)
	}
	if min != -2.0e10 {
		t.Errorf("Expected min to be -2.0e10, got: %f", min)
	}
	if max != 3.0e10 {
		t.Errorf("Expected max to be 3.0e10, got: %f", max)
	}
}

func TestApplyParamFileLabelTable(t *testing.T) {
	dir := t.TempDir()
	fn := filepath.Join(dir, "params.yaml")
	content := []byte("labeltable:\n  Leu7: 7.0170\n  Lys8: 8.0500\n")
	if err := os.WriteFile(fn, content, 0644); err != nil {
		t.Fatalf("Error writing parameter file: %v", err)
	}

	table := multiplex.DefaultLabelTable()
	if err := applyParamFile(fn, table); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if math.Abs(table["Leu7"]-7.0170) > 1e-9 {
		t.Errorf("Expected Leu7 to be added to the label table, got: %f", table["Leu7"])
	}
	// existing entries can be overridden
	if math.Abs(table["Lys8"]-8.0500) > 1e-9 {
		t.Errorf("Expected Lys8 to be overridden, got: %f", table["Lys8"])
	}
}

func TestApplyParamFileMissing(t *testing.T) {
	if err := applyParamFile(filepath.Join(t.TempDir(), "nope.yaml"), multiplex.DefaultLabelTable()); err == nil {
		t.Errorf("Expected error for missing parameter file, got nil")
	}
}

func TestWriteClustersCSV(t *testing.T) {
	fn := filepath.Join(t.TempDir(), "clusters.csv")
	results := [][]multiplex.FilterResultPoint{
		{
			{SpectrumIndex: 3, RetentionTime: 100.5, Mz: 500.12345},
			{SpectrumIndex: 4, RetentionTime: 110.5, Mz: 500.12385},
		},
	}
	clusters := [][]multiplex.Cluster{
		{{Points: []int{0, 1}}},
	}
	if err := writeClustersCSV(fn, results, clusters); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	data, err := os.ReadFile(fn)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	want := "pattern,cluster,spectrum,rt,mz\n" +
		"0,0,3,100.500,500.12345\n" +
		"0,0,4,110.500,500.12385\n"
	if string(data) != want {
		t.Errorf("Unexpected CSV contents, got:\n%s", string(data))
	}
}
