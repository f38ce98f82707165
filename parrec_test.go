package parrec

import (
	"bytes"
	"log"
	"os"
	"strings"
	"testing"
)

// egInfo and egDefs build a synthetic single-echo EPI series, modeled
// on a 64x64 phantom acquisition: nSlices slice locations repeated over
// nDynamics dynamic scans.
func egInfo(nSlices, nDynamics int) GeneralInfo {
	dyn := 0
	if nDynamics > 1 {
		dyn = 1
	}
	return GeneralInfo{
		ProtocolName:     "phantom EPI",
		SeriesType:       "Image   MRSERIES",
		MaxCardiacPhases: 1,
		MaxEchoes:        1,
		MaxSlices:        nSlices,
		MaxDynamics:      nDynamics,
		MaxMixes:         1,
		ScanResolution:   [2]int{64, 64},
		RepetitionTimes:  []float64{2000},
		FOV:              [3]float64{240, 32, 240},
		DynScan:          dyn,
	}
}

func egDef(slice, dynamic int) ImageDef {
	return ImageDef{
		SliceNumber:               slice,
		EchoNumber:                1,
		DynamicScanNumber:         dynamic,
		CardiacPhaseNumber:        1,
		PixelSize:                 16,
		ScanPercentage:            100,
		ReconResolution:           [2]int{64, 64},
		RescaleSlope:              1.29035,
		ScaleSlope:                0.0042840,
		SliceThickness:            6,
		SliceGap:                  2,
		SliceOrientation:          OrientTransverse,
		PixelSpacing:              [2]float64{3.75, 3.75},
		NumberOfAverages:          1,
		ImageFlipAngle:            90,
		DiffusionBValueNumber:     1,
		GradientOrientationNumber: 1,
		LabelType:                 1,
	}
}

func egDefs(nSlices, nDynamics int) []ImageDef {
	var defs []ImageDef
	for d := 1; d <= nDynamics; d++ {
		for s := 1; s <= nSlices; s++ {
			def := egDef(s, d)
			def.IndexInREC = len(defs)
			defs = append(defs, def)
		}
	}
	return defs
}

// countWarnings runs f with log output captured and returns the number
// of warnings it logged.
func countWarnings(t *testing.T, f func()) int {
	t.Helper()
	var buf bytes.Buffer
	log.SetOutput(&buf)
	defer log.SetOutput(os.Stderr)
	f()
	return strings.Count(buf.String(), "Warning:")
}

func mustHeader(t *testing.T, info GeneralInfo, defs []ImageDef, opts Options) *Header {
	t.Helper()
	h, err := NewHeader(info, defs, opts)
	if err != nil {
		t.Fatalf("NewHeader: %v", err)
	}
	return h
}

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
