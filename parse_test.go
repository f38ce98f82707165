package parrec

import (
	"errors"
	"strings"
	"testing"
)

const egDefLine = "0.00000   1.29035  4.28404e-003  1070  1860  0.00   0.00   0.00    0.000    0.000    0.000  6.000  2.000 0 1 0 2  3.750  3.750  30.00    0.00     0.00    0.00   1   90.00     0    0    0     0   0.00   1   1  T1  -  0.000  0.000  0.000  1"

const egPAR = `# === DATA DESCRIPTION FILE ===============================================
#
# CAUTION - Investigational device.
# Limited by Federal Law to investigational use.
#
# Dataset name: phantom
#
# CLEAR version : image export tool     V4.2
#
# === GENERAL INFORMATION ========================================================
#
.    Patient name                       :   PHANTOM
.    Examination name                   :   QA
.    Protocol name                      :   T1 SENSE
.    Examination date/time              :   2016.01.01 / 10:00:00
.    Series Type                        :   Image   MRSERIES
.    Acquisition nr                     :   2
.    Reconstruction nr                  :   1
.    Scan Duration [sec]                :   12
.    Max. number of cardiac phases      :   1
.    Max. number of echoes              :   1
.    Max. number of slices/locations    :   2
.    Max. number of dynamics            :   2
.    Max. number of mixes               :   1
.    Patient position                   :   Head First Supine
.    Preparation direction              :   Anterior-Posterior
.    Technique                          :   T1TFE
.    Scan resolution  (x, y)            :   64  64
.    Scan mode                          :   MS
.    Repetition time [ms]               :   2000.0
.    FOV (ap,fh,rl) [mm]                :   240.000  16.000  240.000
.    Water Fat shift [pixels]           :   0.953
.    Angulation midslice(ap,fh,rl)[degr]:   0.000  0.000  0.000
.    Off Centre midslice(ap,fh,rl) [mm] :   0.000  0.000  0.000
.    Flow compensation <0=no 1=yes> ?   :   0
.    Presaturation     <0=no 1=yes> ?   :   0
.    Phase encoding velocity [cm/sec]   :   0.000000  0.000000  0.000000
.    MTC               <0=no 1=yes> ?   :   0
.    SPIR              <0=no 1=yes> ?   :   0
.    EPI factor        <0,1=no EPI>     :   1
.    Dynamic scan      <0=no 1=yes> ?   :   1
.    Diffusion         <0=no 1=yes> ?   :   0
.    Diffusion echo time [ms]           :   0.0000
.    Max. number of diffusion values    :   1
.    Max. number of gradient orients    :   1
.    Number of label types   <0=no ASL> :   0
#
# === PIXEL VALUES =============================================================
#
  1   1    1  1 0 2     0  16    100   64  64 ` + egDefLine + `
  2   1    1  1 0 2     1  16    100   64  64 ` + egDefLine + `
  1   1    2  1 0 2     2  16    100   64  64 ` + egDefLine + `
  2   1    2  1 0 2     3  16    100   64  64 ` + egDefLine + `

# === END OF DATA DESCRIPTION FILE ===============================================
`

func TestParseHeader(t *testing.T) {
	var info GeneralInfo
	var defs []ImageDef
	var err error
	warnings := countWarnings(t, func() {
		info, defs, err = ParseHeader(strings.NewReader(egPAR))
	})
	if err != nil {
		t.Fatal(err)
	}
	if warnings != 0 {
		t.Errorf("warnings = %d for a supported version", warnings)
	}

	if info.PatientName != "PHANTOM" || info.ProtocolName != "T1 SENSE" {
		t.Errorf("names: %+v", info)
	}
	if info.MaxSlices != 2 || info.MaxDynamics != 2 || info.MaxEchoes != 1 {
		t.Errorf("maxima: %+v", info)
	}
	if info.ScanResolution != [2]int{64, 64} {
		t.Errorf("scan resolution = %v", info.ScanResolution)
	}
	if info.FOV != [3]float64{240, 16, 240} {
		t.Errorf("fov = %v", info.FOV)
	}
	if len(info.RepetitionTimes) != 1 || info.RepetitionTimes[0] != 2000 {
		t.Errorf("repetition times = %v", info.RepetitionTimes)
	}

	if len(defs) != 4 {
		t.Fatalf("got %d image definitions", len(defs))
	}
	d := defs[2]
	if d.SliceNumber != 1 || d.DynamicScanNumber != 2 || d.IndexInREC != 2 {
		t.Errorf("defs[2] = %+v", d)
	}
	if d.PixelSize != 16 || d.ReconResolution != [2]int{64, 64} {
		t.Errorf("defs[2] = %+v", d)
	}
	if d.RescaleSlope != 1.29035 || d.ScaleSlope != 4.28404e-3 {
		t.Errorf("scaling: %+v", d)
	}
	if d.SliceThickness != 6 || d.SliceGap != 2 || d.SliceOrientation != OrientTransverse {
		t.Errorf("geometry: %+v", d)
	}
	if d.PixelSpacing != [2]float64{3.75, 3.75} || d.EchoTime != 30 {
		t.Errorf("spacing: %+v", d)
	}
	if d.ContrastType != "T1" || d.DiffusionAnisotropyType != "-" {
		t.Errorf("strings: %+v", d)
	}
}

func TestParseUnsupportedVersionWarns(t *testing.T) {
	text := strings.Replace(egPAR, "V4.2", "V3", 1)
	warnings := countWarnings(t, func() {
		if _, _, err := ParseHeader(strings.NewReader(text)); err != nil {
			t.Errorf("unsupported version must not abort parsing: %v", err)
		}
	})
	if warnings != 1 {
		t.Errorf("warnings = %d, want 1", warnings)
	}
}

func TestParseUnknownKey(t *testing.T) {
	text := strings.Replace(egPAR,
		".    Scan mode                          :   MS",
		".    Bogus entry                        :   1", 1)
	if _, _, err := ParseHeader(strings.NewReader(text)); !errors.Is(err, ErrUnknownField) {
		t.Errorf("err = %v, want ErrUnknownField", err)
	}
}

func TestParseAliasSpellings(t *testing.T) {
	text := strings.Replace(egPAR, "Repetition time [ms]  ", "Repetition time [msec]", 1)
	text = strings.Replace(text, "Series Type     ", "Series_data_type", 1)
	info, _, err := ParseHeader(strings.NewReader(text))
	if err != nil {
		t.Fatal(err)
	}
	if len(info.RepetitionTimes) != 1 || info.RepetitionTimes[0] != 2000 {
		t.Errorf("repetition times = %v", info.RepetitionTimes)
	}
	if info.SeriesType != "Image   MRSERIES" {
		t.Errorf("series type = %q", info.SeriesType)
	}
}

func TestHeaderTextRoundTrip(t *testing.T) {
	h, err := NewHeaderFromReader(strings.NewReader(egPAR), Options{})
	if err != nil {
		t.Fatal(err)
	}
	raw := h.RawText()
	if len(raw) == 0 {
		t.Fatal("no raw text retained")
	}

	h2, err := NewHeaderFromBlob(raw, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if h2.Info.MaxSlices != h.Info.MaxSlices || h2.Info.PatientName != h.Info.PatientName ||
		h2.Info.FOV != h.Info.FOV {
		t.Error("round-tripped general info differs")
	}
	if len(h2.ImageDefs) != len(h.ImageDefs) {
		t.Fatalf("round-tripped %d image definitions, want %d", len(h2.ImageDefs), len(h.ImageDefs))
	}
	for i := range h.ImageDefs {
		if h2.ImageDefs[i] != h.ImageDefs[i] {
			t.Fatalf("round-tripped def %d differs", i)
		}
	}
	if string(h2.RawText()) != string(raw) {
		t.Error("raw text not preserved across round trip")
	}
}
