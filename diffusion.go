package parrec

import "fmt"

// BValsBVecs extracts one b value and one b vector per volume from a
// diffusion acquisition, with the b vector axes permuted from the
// stored (ap, fh, rl) order into the acquisition's (x, y, z)
// convention. Both results are nil for non-diffusion acquisitions, and
// for post-processed series (e.g. ADC maps) whose per-slice gradient
// fields are all zero even though the global diffusion flag is set.
func (h *Header) BValsBVecs() (bvals []float64, bvecs [][3]float64, err error) {
	if h.Info.Diffusion == 0 {
		return nil, nil, nil
	}
	sorted, err := h.SortedSliceIndices()
	if err != nil {
		return nil, nil, err
	}
	nSlices := h.NSlices()
	if nSlices == 0 {
		return nil, nil, nil
	}
	nVols := len(sorted) / nSlices

	// Every slice of a volume carries the volume's diffusion fields, so
	// the first slice of each volume is representative; anything else
	// in the group disagreeing is corruption.
	anyDirection := false
	for v := 0; v < nVols; v++ {
		group := sorted[v*nSlices : (v+1)*nSlices]
		first := h.ImageDefs[group[0]]
		for _, row := range group[1:] {
			d := h.ImageDefs[row]
			if d.DiffusionBFactor != first.DiffusionBFactor || d.Diffusion != first.Diffusion {
				return nil, nil, fmt.Errorf("%w: diffusion parameters vary within volume %d", ErrInconsistentHeader, v)
			}
		}
		bvals = append(bvals, first.DiffusionBFactor)
		bvecs = append(bvecs, [3]float64{first.Diffusion[2], first.Diffusion[0], first.Diffusion[1]})
		if first.Diffusion != [3]float64{} {
			anyDirection = true
		}
	}
	if !anyDirection {
		// No directional data despite the global flag.
		return nil, nil, nil
	}
	return bvals, bvecs, nil
}

// QVectors returns the per-volume q vectors, the b vectors scaled by
// their b values, or nil when no directional data is present.
func (h *Header) QVectors() ([][3]float64, error) {
	bvals, bvecs, err := h.BValsBVecs()
	if err != nil || bvecs == nil {
		return nil, err
	}
	out := make([][3]float64, len(bvecs))
	for i, v := range bvecs {
		for j := range v {
			out[i][j] = bvals[i] * v[j]
		}
	}
	return out, nil
}
