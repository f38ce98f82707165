package parrec

import (
	"fmt"
	"strconv"
	"strings"
)

// PAR header versions this package claims to understand.
var supportedVersions = map[string]bool{"V4.2": true}

// GeneralInfo holds the "general information" section of a PAR header.
// Fields left at their zero value were absent from the header text.
type GeneralInfo struct {
	PatientName      string
	ExamName         string
	ProtocolName     string
	ExamDate         string
	SeriesType       string
	AcqNr            int
	ReconNr          int
	ScanDuration     float64
	MaxCardiacPhases int
	MaxEchoes        int
	MaxSlices        int
	MaxDynamics      int
	MaxMixes         int
	PatientPosition  string
	PrepDirection    string
	Technique        string
	ScanResolution   [2]int
	ScanMode         string
	// RepetitionTimes usually has one entry; dual-TR acquisitions have
	// two.
	RepetitionTimes []float64
	// FOV, Angulation and OffCenter are in (ap, fh, rl) order.
	FOV               [3]float64
	WaterFatShift     float64
	Angulation        [3]float64
	OffCenter         [3]float64
	FlowCompensation  int
	Presaturation     int
	PhaseEncVelocity  [3]float64
	MTC               int
	SPIR              int
	EPIFactor         int
	DynScan           int
	Diffusion         int
	DiffusionEchoTime float64
	MaxDiffusionBVals int
	MaxGradientOrient int
	LabelTypes        int
}

// Copy returns an independently owned copy of the general information.
func (g GeneralInfo) Copy() GeneralInfo {
	out := g
	out.RepetitionTimes = append([]float64(nil), g.RepetitionTimes...)
	return out
}

// generalFields maps the key text of each ". key : value" line onto a
// setter that parses the value into its GeneralInfo field.
var generalFields = map[string]func(*GeneralInfo, string) error{
	"Patient name":                        func(g *GeneralInfo, v string) error { g.PatientName = v; return nil },
	"Examination name":                    func(g *GeneralInfo, v string) error { g.ExamName = v; return nil },
	"Protocol name":                       func(g *GeneralInfo, v string) error { g.ProtocolName = v; return nil },
	"Examination date/time":               func(g *GeneralInfo, v string) error { g.ExamDate = v; return nil },
	"Series Type":                         func(g *GeneralInfo, v string) error { g.SeriesType = v; return nil },
	"Acquisition nr":                      func(g *GeneralInfo, v string) error { return setInt(&g.AcqNr, v) },
	"Reconstruction nr":                   func(g *GeneralInfo, v string) error { return setInt(&g.ReconNr, v) },
	"Scan Duration [sec]":                 func(g *GeneralInfo, v string) error { return setFloat(&g.ScanDuration, v) },
	"Max. number of cardiac phases":       func(g *GeneralInfo, v string) error { return setInt(&g.MaxCardiacPhases, v) },
	"Max. number of echoes":               func(g *GeneralInfo, v string) error { return setInt(&g.MaxEchoes, v) },
	"Max. number of slices/locations":     func(g *GeneralInfo, v string) error { return setInt(&g.MaxSlices, v) },
	"Max. number of dynamics":             func(g *GeneralInfo, v string) error { return setInt(&g.MaxDynamics, v) },
	"Max. number of mixes":                func(g *GeneralInfo, v string) error { return setInt(&g.MaxMixes, v) },
	"Patient position":                    func(g *GeneralInfo, v string) error { g.PatientPosition = v; return nil },
	"Preparation direction":               func(g *GeneralInfo, v string) error { g.PrepDirection = v; return nil },
	"Technique":                           func(g *GeneralInfo, v string) error { g.Technique = v; return nil },
	"Scan resolution  (x, y)":             func(g *GeneralInfo, v string) error { return setInt2(&g.ScanResolution, v) },
	"Scan mode":                           func(g *GeneralInfo, v string) error { g.ScanMode = v; return nil },
	"Repetition time [ms]":                func(g *GeneralInfo, v string) error { return setFloats(&g.RepetitionTimes, v) },
	"FOV (ap,fh,rl) [mm]":                 func(g *GeneralInfo, v string) error { return setFloat3(&g.FOV, v) },
	"Water Fat shift [pixels]":            func(g *GeneralInfo, v string) error { return setFloat(&g.WaterFatShift, v) },
	"Angulation midslice(ap,fh,rl)[degr]": func(g *GeneralInfo, v string) error { return setFloat3(&g.Angulation, v) },
	"Off Centre midslice(ap,fh,rl) [mm]":  func(g *GeneralInfo, v string) error { return setFloat3(&g.OffCenter, v) },
	"Flow compensation <0=no 1=yes> ?":    func(g *GeneralInfo, v string) error { return setInt(&g.FlowCompensation, v) },
	"Presaturation     <0=no 1=yes> ?":    func(g *GeneralInfo, v string) error { return setInt(&g.Presaturation, v) },
	"Phase encoding velocity [cm/sec]":    func(g *GeneralInfo, v string) error { return setFloat3(&g.PhaseEncVelocity, v) },
	"MTC               <0=no 1=yes> ?":    func(g *GeneralInfo, v string) error { return setInt(&g.MTC, v) },
	"SPIR              <0=no 1=yes> ?":    func(g *GeneralInfo, v string) error { return setInt(&g.SPIR, v) },
	"EPI factor        <0,1=no EPI>":      func(g *GeneralInfo, v string) error { return setInt(&g.EPIFactor, v) },
	"Dynamic scan      <0=no 1=yes> ?":    func(g *GeneralInfo, v string) error { return setInt(&g.DynScan, v) },
	"Diffusion         <0=no 1=yes> ?":    func(g *GeneralInfo, v string) error { return setInt(&g.Diffusion, v) },
	"Diffusion echo time [ms]":            func(g *GeneralInfo, v string) error { return setFloat(&g.DiffusionEchoTime, v) },
	"Max. number of diffusion values":     func(g *GeneralInfo, v string) error { return setInt(&g.MaxDiffusionBVals, v) },
	"Max. number of gradient orients":     func(g *GeneralInfo, v string) error { return setInt(&g.MaxGradientOrient, v) },
	"Number of label types   <0=no ASL>":  func(g *GeneralInfo, v string) error { return setInt(&g.LabelTypes, v) },
}

// generalFieldAliases maps variant key spellings seen in the wild onto
// the canonical spelling used in generalFields.
var generalFieldAliases = map[string]string{
	"Series_data_type":                    "Series Type",
	"Patient Position":                    "Patient position",
	"Repetition time [msec]":              "Repetition time [ms]",
	"Diffusion echo time [msec]":          "Diffusion echo time [ms]",
	"Max. number of diffusion values   <0=no diffusion>": "Max. number of diffusion values",
	"Max. number of gradient orients   <0=no diffusion>": "Max. number of gradient orients",
}

// setGeneralField resolves aliases and applies the value for one general
// information line. Unknown keys are an error.
func setGeneralField(g *GeneralInfo, key, value string) error {
	canonical := key
	if alias, ok := generalFieldAliases[key]; ok {
		canonical = alias
	}
	set, ok := generalFields[canonical]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownField, key)
	}
	if err := set(g, value); err != nil {
		return fmt.Errorf("parsing %q: %v", key, err)
	}
	return nil
}

func setInt(dst *int, v string) error {
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return err
	}
	*dst = n
	return nil
}

func setFloat(dst *float64, v string) error {
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return err
	}
	*dst = f
	return nil
}

func setFloats(dst *[]float64, v string) error {
	fields := strings.Fields(v)
	out := make([]float64, 0, len(fields))
	for _, field := range fields {
		f, err := strconv.ParseFloat(field, 64)
		if err != nil {
			return err
		}
		out = append(out, f)
	}
	*dst = out
	return nil
}

func setFloat3(dst *[3]float64, v string) error {
	fields := strings.Fields(v)
	if len(fields) != 3 {
		return fmt.Errorf("expected 3 values, got %d", len(fields))
	}
	for i, field := range fields {
		f, err := strconv.ParseFloat(field, 64)
		if err != nil {
			return err
		}
		dst[i] = f
	}
	return nil
}

func setInt2(dst *[2]int, v string) error {
	fields := strings.Fields(v)
	if len(fields) != 2 {
		return fmt.Errorf("expected 2 values, got %d", len(fields))
	}
	for i, field := range fields {
		n, err := strconv.Atoi(field)
		if err != nil {
			return err
		}
		dst[i] = n
	}
	return nil
}
