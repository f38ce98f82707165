package parrec

import "fmt"

// DataScaling returns the intensity scaling pair for each slice, in
// sorted-slice order, so that display = raw*slope + intercept. An empty
// method uses the Header's default.
//
// The two conventions derive from the three stored scale parameters
// (RS: rescale slope, RI: rescale intercept, SS: scale slope):
//
//	dv: DV = PV * RS + RI
//	fp: FP = DV / (RS * SS) = PV/SS + RI/(RS*SS)
func (h *Header) DataScaling(method string) (slopes, intercepts []float64, err error) {
	if method == "" {
		method = h.DefaultScaling
	}
	sorted, err := h.SortedSliceIndices()
	if err != nil {
		return nil, nil, err
	}

	slopes = make([]float64, len(sorted))
	intercepts = make([]float64, len(sorted))
	for i, row := range sorted {
		slopes[i], intercepts[i], err = scalePair(h.ImageDefs[row], method)
		if err != nil {
			return nil, nil, err
		}
	}
	return slopes, intercepts, nil
}

func scalePair(d ImageDef, method string) (slope, intercept float64, err error) {
	switch method {
	case ScalingDV:
		return d.RescaleSlope, d.RescaleIntercept, nil
	case ScalingFP:
		return 1 / d.ScaleSlope, d.RescaleIntercept / (d.RescaleSlope * d.ScaleSlope), nil
	}
	return 0, 0, fmt.Errorf("unknown scaling method %q", method)
}

// SlopeIntercept collapses the default scaling to a single pair, which
// is only possible when the scaling does not vary across slices; use
// DataScaling when it does.
func (h *Header) SlopeIntercept() (slope, intercept float64, err error) {
	slopes, intercepts, err := h.DataScaling("")
	if err != nil {
		return 0, 0, err
	}
	for i := range slopes {
		if slopes[i] != slopes[0] || intercepts[i] != intercepts[0] {
			return 0, 0, fmt.Errorf("%w: scaling", ErrNonUniformField)
		}
	}
	return slopes[0], intercepts[0], nil
}
