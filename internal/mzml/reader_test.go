package mzml

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// A minimal mzML document with one MS1 profile spectrum (uncompressed
// 64-bit arrays) and one MS2 spectrum (zlib compressed 64-bit arrays).
// The MS1 retention time is given in minutes on purpose.
const testDoc = `<?xml version="1.0" encoding="utf-8"?>
<mzML xmlns="http://psi.hupo.org/ms/mzml" version="1.1.0">
  <run id="testrun">
    <spectrumList count="2">
      <spectrum index="0" id="scan=1" defaultArrayLength="3">
        <cvParam accession="MS:1000511" name="ms level" value="1"/>
        <scanList count="1">
          <scan>
            <cvParam accession="MS:1000016" name="scan start time" value="2.0" unitAccession="UO:0000031"/>
          </scan>
        </scanList>
        <binaryDataArrayList count="2">
          <binaryDataArray encodedLength="32">
            <cvParam accession="MS:1000523" name="64-bit float"/>
            <cvParam accession="MS:1000576" name="no compression"/>
            <cvParam accession="MS:1000514" name="m/z array"/>
            <binary>AAAAAAAAWUAAAAAAACBZQAAAAAAAQFlA</binary>
          </binaryDataArray>
          <binaryDataArray encodedLength="32">
            <cvParam accession="MS:1000523" name="64-bit float"/>
            <cvParam accession="MS:1000576" name="no compression"/>
            <cvParam accession="MS:1000515" name="intensity array"/>
            <binary>AAAAAABAj0AAAAAAAECfQAAAAAAAcJdA</binary>
          </binaryDataArray>
        </binaryDataArrayList>
      </spectrum>
      <spectrum index="1" id="scan=2" defaultArrayLength="2">
        <cvParam accession="MS:1000511" name="ms level" value="2"/>
        <cvParam accession="MS:1000127" name="centroid spectrum"/>
        <scanList count="1">
          <scan>
            <cvParam accession="MS:1000016" name="scan start time" value="125.0" unitAccession="UO:0000010"/>
          </scan>
        </scanList>
        <binaryDataArrayList count="2">
          <binaryDataArray encodedLength="28">
            <cvParam accession="MS:1000523" name="64-bit float"/>
            <cvParam accession="MS:1000574" name="zlib compression"/>
            <cvParam accession="MS:1000514" name="m/z array"/>
            <binary>eJxjYAACjkwHEMWgkekAAAhMAYM=</binary>
          </binaryDataArray>
          <binaryDataArray encodedLength="28">
            <cvParam accession="MS:1000523" name="64-bit float"/>
            <cvParam accession="MS:1000574" name="zlib compression"/>
            <cvParam accession="MS:1000515" name="intensity array"/>
            <binary>eJxjYAABTwcwdSDIAQAITgHc</binary>
          </binaryDataArray>
        </binaryDataArrayList>
      </spectrum>
    </spectrumList>
  </run>
</mzML>
`

func readTestDoc(t *testing.T) MzML {
	t.Helper()
	f, err := Read(strings.NewReader(testDoc))
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	return f
}

func TestReadScan(t *testing.T) {
	f := readTestDoc(t)
	if f.NumSpecs() != 2 {
		t.Fatalf("NumSpecs: got %d, want 2", f.NumSpecs())
	}

	peaks, err := f.ReadScan(0)
	if err != nil {
		t.Fatalf("ReadScan(0): %v", err)
	}
	want := []Peak{{100.0, 1000.0}, {100.5, 2000.0}, {101.0, 1500.0}}
	if diff := cmp.Diff(want, peaks); diff != "" {
		t.Errorf("ReadScan(0) mismatch (-want +got):\n%s", diff)
	}

	// Second scan is zlib compressed
	peaks, err = f.ReadScan(1)
	if err != nil {
		t.Fatalf("ReadScan(1): %v", err)
	}
	want = []Peak{{200.25, 50.0}, {201.25, 75.0}}
	if diff := cmp.Diff(want, peaks); diff != "" {
		t.Errorf("ReadScan(1) mismatch (-want +got):\n%s", diff)
	}

	if _, err = f.ReadScan(2); err != ErrInvalidScanIndex {
		t.Errorf("ReadScan(2): expected ErrInvalidScanIndex, got %v", err)
	}
}

func TestScanMetadata(t *testing.T) {
	f := readTestDoc(t)

	rt, err := f.RetentionTime(0)
	if err != nil {
		t.Fatalf("RetentionTime(0): %v", err)
	}
	// 2 minutes, must be converted to seconds
	if rt != 120.0 {
		t.Errorf("RetentionTime(0): got %f, want 120.0", rt)
	}

	msLevel, err := f.MSLevel(1)
	if err != nil {
		t.Fatalf("MSLevel(1): %v", err)
	}
	if msLevel != 2 {
		t.Errorf("MSLevel(1): got %d, want 2", msLevel)
	}

	centroid, err := f.Centroid(0)
	if err != nil || centroid {
		t.Errorf("Centroid(0): got %v/%v, want false/nil", centroid, err)
	}
	centroid, err = f.Centroid(1)
	if err != nil || !centroid {
		t.Errorf("Centroid(1): got %v/%v, want true/nil", centroid, err)
	}

	idx, err := f.ScanIndex("scan=2")
	if err != nil || idx != 1 {
		t.Errorf("ScanIndex: got %d/%v, want 1/nil", idx, err)
	}
	id, err := f.ScanID(0)
	if err != nil || id != "scan=1" {
		t.Errorf("ScanID: got %s/%v, want scan=1/nil", id, err)
	}
}

func TestMS1Spectra(t *testing.T) {
	f := readTestDoc(t)
	specs, err := f.MS1Spectra()
	if err != nil {
		t.Fatalf("MS1Spectra: %v", err)
	}
	if len(specs) != 1 {
		t.Fatalf("MS1Spectra: got %d spectra, want 1", len(specs))
	}
	s := specs[0]
	if s.MSLevel != 1 || s.RetentionTime != 120.0 || s.Centroided {
		t.Errorf("MS1Spectra: unexpected metadata %+v", s)
	}
	if len(s.Peaks) != 3 || s.Peaks[0].Mz != 100.0 {
		t.Errorf("MS1Spectra: unexpected peaks %+v", s.Peaks)
	}
}
