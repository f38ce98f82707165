package parrec

import (
	"bytes"
	"fmt"
	"io"
	"log"
	"strings"

	"gonum.org/v1/gonum/mat"
)

// Scaling conventions for converting stored pixel values to displayed
// or floating point values.
const (
	ScalingDV = "dv" // display value: rescale slope and intercept as stored
	ScalingFP = "fp" // floating point: derived from the scale slope
)

// Options configures Header construction.
type Options struct {
	// PermitTruncated allows an acquisition whose final volume is
	// incomplete: the short volume is dropped with a warning instead of
	// failing construction.
	PermitTruncated bool
	// StrictSort ignores file order when grouping slices into volumes
	// and sorts deterministically on the volume-defining fields.
	StrictSort bool
	// DefaultScaling selects the scaling convention used when none is
	// given explicitly; ScalingDV when empty.
	DefaultScaling string
}

// Header is a parsed PAR header: the general information, the image
// definition table, and lazily computed geometry derived from them.
// Derived values are computed at most once per Header and cached for
// its lifetime; concurrent use of one Header is safe only for the pure
// query methods, and only after a first call has populated the caches.
type Header struct {
	Info            GeneralInfo
	ImageDefs       []ImageDef
	PermitTruncated bool
	StrictSort      bool
	DefaultScaling  string

	bits     int
	rawText  []byte
	recSlabs []int

	sliceOrientation string
	sortedIndices    []int
	affines          map[string]*mat.Dense
}

// NewHeader builds and validates a Header from parsed general
// information and image definitions. Both inputs are copied; the Header
// never aliases the caller's data.
func NewHeader(info GeneralInfo, defs []ImageDef, opts Options) (*Header, error) {
	scaling := opts.DefaultScaling
	if scaling == "" {
		scaling = ScalingDV
	}
	if scaling != ScalingDV && scaling != ScalingFP {
		return nil, fmt.Errorf("unknown scaling method %q", scaling)
	}

	h := &Header{
		Info:            info.Copy(),
		ImageDefs:       append([]ImageDef(nil), defs...),
		PermitTruncated: opts.PermitTruncated,
		StrictSort:      opts.StrictSort,
		DefaultScaling:  scaling,
		recSlabs:        make([]int, len(defs)),
	}
	for i := range h.recSlabs {
		h.recSlabs[i] = i
	}

	if err := h.validate(); err != nil {
		return nil, err
	}
	return h, nil
}

// NewHeaderFromReader parses a PAR header from r and builds a Header.
// The exact header text is retained for round-tripping; see RawText.
func NewHeaderFromReader(r io.Reader, opts Options) (*Header, error) {
	info, defs, raw, err := parseHeaderText(r)
	if err != nil {
		return nil, err
	}
	h, err := NewHeader(info, defs, opts)
	if err != nil {
		return nil, err
	}
	h.rawText = raw
	return h, nil
}

// NewHeaderFromBlob rebuilds a Header from text previously captured
// with RawText, e.g. after round-tripping through another container
// format's metadata extension.
func NewHeaderFromBlob(blob []byte, opts Options) (*Header, error) {
	return NewHeaderFromReader(bytes.NewReader(blob), opts)
}

// RawText returns a copy of the exact header text this Header was
// parsed from, or nil if it was built directly from parsed structures.
func (h *Header) RawText() []byte {
	return append([]byte(nil), h.rawText...)
}

// Copy returns a deep copy. The copy owns its own general information
// and image definition table and recomputes derived state on demand.
func (h *Header) Copy() *Header {
	out := &Header{
		Info:            h.Info.Copy(),
		ImageDefs:       append([]ImageDef(nil), h.ImageDefs...),
		PermitTruncated: h.PermitTruncated,
		StrictSort:      h.StrictSort,
		DefaultScaling:  h.DefaultScaling,
		bits:            h.bits,
		rawText:         append([]byte(nil), h.rawText...),
		recSlabs:        append([]int(nil), h.recSlabs...),
	}
	return out
}

// validate enforces the structural invariants at construction time, and
// under PermitTruncated recovers from an incomplete final volume by
// shrinking the image definition table.
func (h *Header) validate() error {
	if len(h.ImageDefs) == 0 {
		return fmt.Errorf("%w: no image definitions", ErrInconsistentHeader)
	}

	bits, err := uniformInt(h.ImageDefs, "image pixel size", func(d ImageDef) int { return d.PixelSize })
	if err != nil {
		return err
	}
	if bits != 8 && bits != 16 {
		return fmt.Errorf("%w: %d bits per pixel", ErrPixelDepth, bits)
	}
	h.bits = bits

	sliceNos := h.sliceNumbers()
	full, err := VolIsFull(sliceNos, h.Info.MaxSlices, 1)
	if err != nil {
		return err
	}

	problems := h.countMismatches()
	truncated := false
	for _, f := range full {
		if !f {
			truncated = true
			break
		}
	}

	if truncated || len(problems) > 0 {
		if !h.PermitTruncated {
			msg := strings.Join(problems, "; ")
			if truncated {
				if msg != "" {
					msg += "; "
				}
				msg += "one or more partial volumes"
			}
			return fmt.Errorf("%w: %s", ErrInconsistentHeader, msg)
		}
		if truncated {
			if err := h.dropFinalVolume(full); err != nil {
				return err
			}
		}
		// Exactly one warning per construction that was inconsistent.
		log.Printf("Warning: truncated or inconsistent PAR header (%s); continuing with %d image definitions",
			strings.Join(append(problems, fmt.Sprintf("truncated=%v", truncated)), "; "), len(h.ImageDefs))
	}

	// Whole-series fields must be uniform across the (possibly
	// shrunken) table.
	if _, err := uniformInt2(h.ImageDefs, "recon resolution", func(d ImageDef) [2]int { return d.ReconResolution }); err != nil {
		return err
	}
	if _, err := uniformFloat2(h.ImageDefs, "pixel spacing", func(d ImageDef) [2]float64 { return d.PixelSpacing }); err != nil {
		return err
	}
	if _, err := uniformFloat(h.ImageDefs, "slice thickness", func(d ImageDef) float64 { return d.SliceThickness }); err != nil {
		return err
	}
	if _, err := uniformFloat(h.ImageDefs, "slice gap", func(d ImageDef) float64 { return d.SliceGap }); err != nil {
		return err
	}
	if _, err := uniformFloat3(h.ImageDefs, "image angulation", func(d ImageDef) [3]float64 { return d.ImageAngulation }); err != nil {
		return err
	}
	if _, err := h.orientation(); err != nil {
		return err
	}
	return nil
}

func (h *Header) sliceNumbers() []int {
	out := make([]int, len(h.ImageDefs))
	for i, d := range h.ImageDefs {
		out[i] = d.SliceNumber
	}
	return out
}

// countMismatches compares the distinct counts of the volume-defining
// fields against the declared maxima.
func (h *Header) countMismatches() []string {
	var out []string
	for _, chk := range []struct {
		name string
		get  func(ImageDef) int
		want int
	}{
		{"slices", func(d ImageDef) int { return d.SliceNumber }, h.Info.MaxSlices},
		{"echoes", func(d ImageDef) int { return d.EchoNumber }, h.Info.MaxEchoes},
		{"dynamics", func(d ImageDef) int { return d.DynamicScanNumber }, h.Info.MaxDynamics},
		{"diffusion b values", func(d ImageDef) int { return d.DiffusionBValueNumber }, h.Info.MaxDiffusionBVals},
		{"gradient orients", func(d ImageDef) int { return d.GradientOrientationNumber }, h.Info.MaxGradientOrient},
	} {
		if chk.want == 0 {
			continue
		}
		distinct := make(map[int]bool)
		for _, d := range h.ImageDefs {
			distinct[chk.get(d)] = true
		}
		if len(distinct) != chk.want {
			out = append(out, fmt.Sprintf("found %d %s but header claims %d", len(distinct), chk.name, chk.want))
		}
	}
	return out
}

// dropFinalVolume removes the rows of an incomplete final volume. If
// any volume other than the last is incomplete, or the table is still
// short after dropping, the truncation cannot be explained by an
// aborted scan and construction fails even in permissive mode.
func (h *Header) dropFinalVolume(full []bool) error {
	sliceNos := h.sliceNumbers()
	vols := VolNumbers(sliceNos)
	maxVol := 0
	for _, v := range vols {
		if v > maxVol {
			maxVol = v
		}
	}
	for i, f := range full {
		if !f && vols[i] != maxVol {
			return fmt.Errorf("%w: incomplete volume %d is not the final volume", ErrInconsistentHeader, vols[i])
		}
	}

	keptDefs := make([]ImageDef, 0, len(h.ImageDefs))
	keptSlabs := make([]int, 0, len(h.recSlabs))
	for i, f := range full {
		if f {
			keptDefs = append(keptDefs, h.ImageDefs[i])
			keptSlabs = append(keptSlabs, h.recSlabs[i])
		}
	}
	h.ImageDefs = keptDefs
	h.recSlabs = keptSlabs

	// The shrunken table must now be fully consistent.
	full, err := VolIsFull(h.sliceNumbers(), h.Info.MaxSlices, 1)
	if err != nil {
		return err
	}
	for _, f := range full {
		if !f {
			return fmt.Errorf("%w: table still inconsistent after dropping final volume", ErrInconsistentHeader)
		}
	}
	distinct := make(map[int]bool)
	for _, d := range h.ImageDefs {
		distinct[d.SliceNumber] = true
	}
	if len(distinct) != h.Info.MaxSlices {
		return fmt.Errorf("%w: found %d slices after truncation but header claims %d", ErrInconsistentHeader, len(distinct), h.Info.MaxSlices)
	}
	return nil
}

func (h *Header) orientation() (string, error) {
	code, err := uniformInt(h.ImageDefs, "slice orientation", func(d ImageDef) int { return d.SliceOrientation })
	if err != nil {
		return "", err
	}
	switch code {
	case OrientTransverse:
		return "transverse", nil
	case OrientSagittal:
		return "sagittal", nil
	case OrientCoronal:
		return "coronal", nil
	}
	return "", fmt.Errorf("%w: code %d", ErrUnknownOrientation, code)
}

// SliceOrientation returns transverse, sagittal, or coronal. The value
// is fixed per series; it is computed once and cached.
func (h *Header) SliceOrientation() (string, error) {
	if h.sliceOrientation != "" {
		return h.sliceOrientation, nil
	}
	o, err := h.orientation()
	if err != nil {
		return "", err
	}
	h.sliceOrientation = o
	return o, nil
}

// BitDepth returns the bits per stored pixel, always 8 or 16.
func (h *Header) BitDepth() int { return h.bits }

// DataOffset returns the byte offset of pixel data in the REC blob,
// which the format fixes at zero.
func (h *Header) DataOffset() int64 { return 0 }

// NSlices returns the number of distinct slice locations.
func (h *Header) NSlices() int {
	distinct := make(map[int]bool)
	for _, d := range h.ImageDefs {
		distinct[d.SliceNumber] = true
	}
	return len(distinct)
}

// NVols returns the number of complete volumes in the table.
func (h *Header) NVols() int {
	vols := VolNumbers(h.sliceNumbers())
	distinct := make(map[int]bool)
	for _, v := range vols {
		distinct[v] = true
	}
	return len(distinct)
}

// DataShape returns the logical shape of the reconstructed data:
// (inplane X, inplane Y, slices) for a single volume, with the volume
// count appended as a fourth dimension when more than one volume is
// present.
func (h *Header) DataShape() ([]int, error) {
	res, err := uniformInt2(h.ImageDefs, "recon resolution", func(d ImageDef) [2]int { return d.ReconResolution })
	if err != nil {
		return nil, err
	}
	shape := []int{res[0], res[1], h.NSlices()}
	if n := h.NVols(); n > 1 {
		shape = append(shape, n)
	}
	return shape, nil
}

// VoxelSize returns the spatial extent of one voxel: in-plane spacing
// and slice thickness, without the inter-slice gap.
func (h *Header) VoxelSize() ([3]float64, error) {
	spacing, err := uniformFloat2(h.ImageDefs, "pixel spacing", func(d ImageDef) [2]float64 { return d.PixelSpacing })
	if err != nil {
		return [3]float64{}, err
	}
	thickness, err := uniformFloat(h.ImageDefs, "slice thickness", func(d ImageDef) float64 { return d.SliceThickness })
	if err != nil {
		return [3]float64{}, err
	}
	return [3]float64{spacing[0], spacing[1], thickness}, nil
}

// Zooms returns the per-axis sampling of the data: in-plane spacing,
// slice thickness plus inter-slice gap, and, for 4D data, the
// repetition time in seconds. Dual-TR acquisitions use the first TR and
// warn once.
func (h *Header) Zooms() ([]float64, error) {
	voxel, err := h.VoxelSize()
	if err != nil {
		return nil, err
	}
	gap, err := uniformFloat(h.ImageDefs, "slice gap", func(d ImageDef) float64 { return d.SliceGap })
	if err != nil {
		return nil, err
	}
	zooms := []float64{voxel[0], voxel[1], voxel[2] + gap}
	if h.NVols() > 1 {
		tr := 1.0
		if len(h.Info.RepetitionTimes) > 0 {
			if len(h.Info.RepetitionTimes) > 1 {
				log.Printf("Warning: multiple repetition times %v; using the first", h.Info.RepetitionTimes)
			}
			tr = h.Info.RepetitionTimes[0] / 1000
		}
		zooms = append(zooms, tr)
	}
	return zooms, nil
}

// RECSlab maps a row of ImageDefs to its 2D slab index in the on-disk
// REC blob. The two differ once a truncated header has dropped rows:
// the blob keeps its original layout.
func (h *Header) RECSlab(row int) int { return h.recSlabs[row] }
