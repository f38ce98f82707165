package parrec

import (
	"fmt"
	"strconv"
)

// Slice orientation codes used in the image definition lines.
const (
	OrientTransverse = 1
	OrientSagittal   = 2
	OrientCoronal    = 3
)

// ImageDef is one image definition line of a PAR header: the metadata
// for a single acquired 2D slice. Field order matches the on-disk
// column order.
type ImageDef struct {
	SliceNumber               int
	EchoNumber                int
	DynamicScanNumber         int
	CardiacPhaseNumber        int
	ImageTypeMR               int
	ScanningSequence          int
	IndexInREC                int
	PixelSize                 int
	ScanPercentage            int
	ReconResolution           [2]int
	RescaleIntercept          float64
	RescaleSlope              float64
	ScaleSlope                float64
	WindowCenter              float64
	WindowWidth               float64
	ImageAngulation           [3]float64
	ImageOffcentre            [3]float64
	SliceThickness            float64
	SliceGap                  float64
	DisplayOrientation        int
	SliceOrientation          int
	FMRIStatusIndication      int
	ImageTypeEdEs             int
	PixelSpacing              [2]float64
	EchoTime                  float64
	DynScanBeginTime          float64
	TriggerTime               float64
	DiffusionBFactor          float64
	NumberOfAverages          int
	ImageFlipAngle            float64
	CardiacFrequency          int
	MinRRInterval             int
	MaxRRInterval             int
	TurboFactor               int
	InversionDelay            float64
	DiffusionBValueNumber     int
	GradientOrientationNumber int
	ContrastType              string
	DiffusionAnisotropyType   string
	// Diffusion is the raw gradient direction in acquisition axis
	// order.
	Diffusion [3]float64
	LabelType int
}

// imageDefColumn describes one column of the image definition schema: a
// name for error messages, the number of whitespace tokens it consumes,
// and a decoder that stores those tokens into an ImageDef.
type imageDefColumn struct {
	name   string
	tokens int
	decode func(*ImageDef, []string) error
}

func intCol(name string, dst func(*ImageDef) *int) imageDefColumn {
	return imageDefColumn{name, 1, func(d *ImageDef, toks []string) error {
		n, err := strconv.Atoi(toks[0])
		if err != nil {
			return err
		}
		*dst(d) = n
		return nil
	}}
}

func floatCol(name string, dst func(*ImageDef) *float64) imageDefColumn {
	return imageDefColumn{name, 1, func(d *ImageDef, toks []string) error {
		f, err := strconv.ParseFloat(toks[0], 64)
		if err != nil {
			return err
		}
		*dst(d) = f
		return nil
	}}
}

func stringCol(name string, dst func(*ImageDef) *string) imageDefColumn {
	return imageDefColumn{name, 1, func(d *ImageDef, toks []string) error {
		*dst(d) = toks[0]
		return nil
	}}
}

func int2Col(name string, dst func(*ImageDef) *[2]int) imageDefColumn {
	return imageDefColumn{name, 2, func(d *ImageDef, toks []string) error {
		for i, tok := range toks {
			n, err := strconv.Atoi(tok)
			if err != nil {
				return err
			}
			dst(d)[i] = n
		}
		return nil
	}}
}

func float2Col(name string, dst func(*ImageDef) *[2]float64) imageDefColumn {
	return imageDefColumn{name, 2, func(d *ImageDef, toks []string) error {
		for i, tok := range toks {
			f, err := strconv.ParseFloat(tok, 64)
			if err != nil {
				return err
			}
			dst(d)[i] = f
		}
		return nil
	}}
}

func float3Col(name string, dst func(*ImageDef) *[3]float64) imageDefColumn {
	return imageDefColumn{name, 3, func(d *ImageDef, toks []string) error {
		for i, tok := range toks {
			f, err := strconv.ParseFloat(tok, 64)
			if err != nil {
				return err
			}
			dst(d)[i] = f
		}
		return nil
	}}
}

// imageDefSchema is the fixed column order of an image definition line.
var imageDefSchema = []imageDefColumn{
	intCol("slice number", func(d *ImageDef) *int { return &d.SliceNumber }),
	intCol("echo number", func(d *ImageDef) *int { return &d.EchoNumber }),
	intCol("dynamic scan number", func(d *ImageDef) *int { return &d.DynamicScanNumber }),
	intCol("cardiac phase number", func(d *ImageDef) *int { return &d.CardiacPhaseNumber }),
	intCol("image_type_mr", func(d *ImageDef) *int { return &d.ImageTypeMR }),
	intCol("scanning sequence", func(d *ImageDef) *int { return &d.ScanningSequence }),
	intCol("index in REC file", func(d *ImageDef) *int { return &d.IndexInREC }),
	intCol("image pixel size", func(d *ImageDef) *int { return &d.PixelSize }),
	intCol("scan percentage", func(d *ImageDef) *int { return &d.ScanPercentage }),
	int2Col("recon resolution", func(d *ImageDef) *[2]int { return &d.ReconResolution }),
	floatCol("rescale intercept", func(d *ImageDef) *float64 { return &d.RescaleIntercept }),
	floatCol("rescale slope", func(d *ImageDef) *float64 { return &d.RescaleSlope }),
	floatCol("scale slope", func(d *ImageDef) *float64 { return &d.ScaleSlope }),
	floatCol("window center", func(d *ImageDef) *float64 { return &d.WindowCenter }),
	floatCol("window width", func(d *ImageDef) *float64 { return &d.WindowWidth }),
	float3Col("image angulation", func(d *ImageDef) *[3]float64 { return &d.ImageAngulation }),
	float3Col("image offcentre", func(d *ImageDef) *[3]float64 { return &d.ImageOffcentre }),
	floatCol("slice thickness", func(d *ImageDef) *float64 { return &d.SliceThickness }),
	floatCol("slice gap", func(d *ImageDef) *float64 { return &d.SliceGap }),
	intCol("image_display_orientation", func(d *ImageDef) *int { return &d.DisplayOrientation }),
	intCol("slice orientation", func(d *ImageDef) *int { return &d.SliceOrientation }),
	intCol("fmri_status_indication", func(d *ImageDef) *int { return &d.FMRIStatusIndication }),
	intCol("image_type_ed_es", func(d *ImageDef) *int { return &d.ImageTypeEdEs }),
	float2Col("pixel spacing", func(d *ImageDef) *[2]float64 { return &d.PixelSpacing }),
	floatCol("echo_time", func(d *ImageDef) *float64 { return &d.EchoTime }),
	floatCol("dyn_scan_begin_time", func(d *ImageDef) *float64 { return &d.DynScanBeginTime }),
	floatCol("trigger_time", func(d *ImageDef) *float64 { return &d.TriggerTime }),
	floatCol("diffusion_b_factor", func(d *ImageDef) *float64 { return &d.DiffusionBFactor }),
	intCol("number of averages", func(d *ImageDef) *int { return &d.NumberOfAverages }),
	floatCol("image_flip_angle", func(d *ImageDef) *float64 { return &d.ImageFlipAngle }),
	intCol("cardiac frequency", func(d *ImageDef) *int { return &d.CardiacFrequency }),
	intCol("minimum RR-interval", func(d *ImageDef) *int { return &d.MinRRInterval }),
	intCol("maximum RR-interval", func(d *ImageDef) *int { return &d.MaxRRInterval }),
	intCol("TURBO factor", func(d *ImageDef) *int { return &d.TurboFactor }),
	floatCol("Inversion delay", func(d *ImageDef) *float64 { return &d.InversionDelay }),
	intCol("diffusion b value number", func(d *ImageDef) *int { return &d.DiffusionBValueNumber }),
	intCol("gradient orientation number", func(d *ImageDef) *int { return &d.GradientOrientationNumber }),
	stringCol("contrast type", func(d *ImageDef) *string { return &d.ContrastType }),
	stringCol("diffusion anisotropy type", func(d *ImageDef) *string { return &d.DiffusionAnisotropyType }),
	float3Col("diffusion", func(d *ImageDef) *[3]float64 { return &d.Diffusion }),
	intCol("label type", func(d *ImageDef) *int { return &d.LabelType }),
}

// parseImageDef decodes one image definition line that has already been
// split into whitespace tokens.
func parseImageDef(tokens []string) (ImageDef, error) {
	var def ImageDef
	pos := 0
	for _, col := range imageDefSchema {
		if pos+col.tokens > len(tokens) {
			return def, fmt.Errorf("image definition line too short: %d tokens, need %q at offset %d", len(tokens), col.name, pos)
		}
		if err := col.decode(&def, tokens[pos:pos+col.tokens]); err != nil {
			return def, fmt.Errorf("column %q: %v", col.name, err)
		}
		pos += col.tokens
	}
	return def, nil
}

// uniformInt returns the single value that get takes across all defs,
// or an ErrNonUniformField error if it varies.
func uniformInt(defs []ImageDef, name string, get func(ImageDef) int) (int, error) {
	if len(defs) == 0 {
		return 0, fmt.Errorf("%w: %s: no image definitions", ErrNonUniformField, name)
	}
	v := get(defs[0])
	for _, d := range defs[1:] {
		if got := get(d); got != v {
			return 0, fmt.Errorf("%w: %s (%d vs %d)", ErrNonUniformField, name, v, got)
		}
	}
	return v, nil
}

// uniformFloat is uniformInt for float64 columns.
func uniformFloat(defs []ImageDef, name string, get func(ImageDef) float64) (float64, error) {
	if len(defs) == 0 {
		return 0, fmt.Errorf("%w: %s: no image definitions", ErrNonUniformField, name)
	}
	v := get(defs[0])
	for _, d := range defs[1:] {
		if got := get(d); got != v {
			return 0, fmt.Errorf("%w: %s (%g vs %g)", ErrNonUniformField, name, v, got)
		}
	}
	return v, nil
}

// uniformInt2 checks a two-element integer column for a single unique
// combination of values.
func uniformInt2(defs []ImageDef, name string, get func(ImageDef) [2]int) ([2]int, error) {
	if len(defs) == 0 {
		return [2]int{}, fmt.Errorf("%w: %s: no image definitions", ErrNonUniformField, name)
	}
	v := get(defs[0])
	for _, d := range defs[1:] {
		if got := get(d); got != v {
			return [2]int{}, fmt.Errorf("%w: %s (%v vs %v)", ErrNonUniformField, name, v, got)
		}
	}
	return v, nil
}

// uniformFloat2 is uniformInt2 for float columns.
func uniformFloat2(defs []ImageDef, name string, get func(ImageDef) [2]float64) ([2]float64, error) {
	if len(defs) == 0 {
		return [2]float64{}, fmt.Errorf("%w: %s: no image definitions", ErrNonUniformField, name)
	}
	v := get(defs[0])
	for _, d := range defs[1:] {
		if got := get(d); got != v {
			return [2]float64{}, fmt.Errorf("%w: %s (%v vs %v)", ErrNonUniformField, name, v, got)
		}
	}
	return v, nil
}

// uniformFloat3 is uniformInt2 for three-element float columns.
func uniformFloat3(defs []ImageDef, name string, get func(ImageDef) [3]float64) ([3]float64, error) {
	if len(defs) == 0 {
		return [3]float64{}, fmt.Errorf("%w: %s: no image definitions", ErrNonUniformField, name)
	}
	v := get(defs[0])
	for _, d := range defs[1:] {
		if got := get(d); got != v {
			return [3]float64{}, fmt.Errorf("%w: %s (%v vs %v)", ErrNonUniformField, name, v, got)
		}
	}
	return v, nil
}
