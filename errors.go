package parrec

import "errors"

// Error kinds surfaced by this package. Callers can test for them with
// errors.Is; the wrapped message carries the specifics.
var (
	// ErrUnknownField means a general-information key was found in
	// neither its canonical nor any alias spelling.
	ErrUnknownField = errors.New("unrecognized header field")

	// ErrNonUniformField means a field that must hold one value for the
	// whole series varies across the slice table.
	ErrNonUniformField = errors.New("field varies across image definitions")

	// ErrInconsistentHeader means slice or volume counts disagree with
	// the declared maxima in the general information.
	ErrInconsistentHeader = errors.New("header inconsistency")

	// ErrSliceOutOfRange means a slice number below the declared
	// minimum was seen while checking volume completeness.
	ErrSliceOutOfRange = errors.New("slice number out of range")

	// ErrPixelDepth means the per-slice bit depth is not 8 or 16.
	ErrPixelDepth = errors.New("unsupported pixel depth")

	// ErrUnknownOrientation means the slice orientation code is not
	// transverse, sagittal, or coronal.
	ErrUnknownOrientation = errors.New("unknown slice orientation")

	// ErrGeometry means the two rotation composition methods disagreed,
	// which indicates an internal error rather than bad input.
	ErrGeometry = errors.New("rotation composition mismatch")
)
