package parrec

import (
	"fmt"
	"sort"
)

// VolNumbers assigns a 0-based volume number to each entry of a slice
// number sequence. The volume number of an entry is the count of prior
// occurrences of that same slice number, so repeats signal a new volume
// without requiring the sequence to be sorted or contiguous.
//
// For example, [1, 3, 0, 0, 4] yields [0, 0, 0, 1, 0]: the second 0
// starts volume 1, while the following 4, never seen before, still
// belongs to volume 0.
func VolNumbers(sliceNos []int) []int {
	counts := make(map[int]int, len(sliceNos))
	out := make([]int, len(sliceNos))
	for i, n := range sliceNos {
		out[i] = counts[n]
		counts[n]++
	}
	return out
}

// VolIsFull reports, per entry of sliceNos, whether the volume that
// entry belongs to (per VolNumbers) contains every slice number in
// [sliceMin, sliceMin+sliceCount). Slice numbers above that range are
// tolerated; any slice number below sliceMin is corruption and returns
// an ErrSliceOutOfRange error.
func VolIsFull(sliceNos []int, sliceCount, sliceMin int) ([]bool, error) {
	for _, n := range sliceNos {
		if n < sliceMin {
			return nil, fmt.Errorf("%w: slice number %d below minimum %d", ErrSliceOutOfRange, n, sliceMin)
		}
	}

	vols := VolNumbers(sliceNos)
	seen := make(map[int]map[int]bool)
	for i, v := range vols {
		if seen[v] == nil {
			seen[v] = make(map[int]bool)
		}
		seen[v][sliceNos[i]] = true
	}

	full := make(map[int]bool, len(seen))
	for v, slices := range seen {
		ok := true
		for n := sliceMin; n < sliceMin+sliceCount; n++ {
			if !slices[n] {
				ok = false
				break
			}
		}
		full[v] = ok
	}

	out := make([]bool, len(sliceNos))
	for i, v := range vols {
		out[i] = full[v]
	}
	return out, nil
}

// volumeKeys lists the fields whose distinct combinations partition
// slices into volumes, in precedence order: when strict sorting, the
// first varying key here varies slowest across the emitted volumes, and
// VolumeLabels reports varying keys in this same order.
var volumeKeys = []struct {
	name string
	get  func(ImageDef) int
}{
	{"echo number", func(d ImageDef) int { return d.EchoNumber }},
	{"image_type_mr", func(d ImageDef) int { return d.ImageTypeMR }},
	{"diffusion b value number", func(d ImageDef) int { return d.DiffusionBValueNumber }},
	{"gradient orientation number", func(d ImageDef) int { return d.GradientOrientationNumber }},
	{"label type", func(d ImageDef) int { return d.LabelType }},
	{"dynamic scan number", func(d ImageDef) int { return d.DynamicScanNumber }},
}

// varyingVolumeKeys returns the indices into volumeKeys of the keys
// that take more than one distinct value across the table.
func varyingVolumeKeys(defs []ImageDef) []int {
	var out []int
	for i, key := range volumeKeys {
		distinct := make(map[int]bool)
		for _, d := range defs {
			distinct[key.get(d)] = true
			if len(distinct) > 1 {
				out = append(out, i)
				break
			}
		}
	}
	return out
}

// SortedSliceIndices returns the permutation of image definition rows
// that orders them volume by volume, slices ascending within each
// volume. The result indexes both ImageDefs and, through RECSlab, the
// on-disk pixel blob. It is computed once per Header and cached.
//
// Without strict sorting the file order defines volume membership, via
// the prior-occurrence count of each slice number. With strict sorting
// the file order is ignored: rows are stably sorted on the
// volume-defining fields that actually vary, in volumeKeys precedence
// order, with slice number as the innermost key, so any permutation of
// the input rows produces the same volume grouping.
func (h *Header) SortedSliceIndices() ([]int, error) {
	if h.sortedIndices != nil {
		return h.sortedIndices, nil
	}

	idx := make([]int, len(h.ImageDefs))
	for i := range idx {
		idx[i] = i
	}

	if h.StrictSort {
		varying := varyingVolumeKeys(h.ImageDefs)
		sort.SliceStable(idx, func(a, b int) bool {
			da, db := h.ImageDefs[idx[a]], h.ImageDefs[idx[b]]
			for _, k := range varying {
				va, vb := volumeKeys[k].get(da), volumeKeys[k].get(db)
				if va != vb {
					return va < vb
				}
			}
			return da.SliceNumber < db.SliceNumber
		})
	}

	// Group the (possibly re-sorted) rows into volumes by occurrence
	// count, and move any incomplete volume to the end.
	sliceNos := make([]int, len(idx))
	for i, j := range idx {
		sliceNos[i] = h.ImageDefs[j].SliceNumber
	}
	vols := VolNumbers(sliceNos)
	full, err := VolIsFull(sliceNos, h.Info.MaxSlices, 1)
	if err != nil {
		return nil, err
	}

	order := make([]int, len(idx))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		if full[order[a]] != full[order[b]] {
			return full[order[a]]
		}
		if vols[order[a]] != vols[order[b]] {
			return vols[order[a]] < vols[order[b]]
		}
		return sliceNos[order[a]] < sliceNos[order[b]]
	})

	out := make([]int, len(idx))
	for i, o := range order {
		out[i] = idx[o]
	}
	h.sortedIndices = out
	return out, nil
}

// VolumeLabel carries, for one volume-defining field that varies across
// the table, its value for each volume in emitted volume order.
type VolumeLabel struct {
	Name   string
	Values []int
}

// VolumeLabels returns one label per volume-defining field with more
// than one distinct value, in volumeKeys precedence order. The labels
// attach acquisition semantics to the fourth and higher dimensions of
// the reconstructed data.
func (h *Header) VolumeLabels() ([]VolumeLabel, error) {
	sorted, err := h.SortedSliceIndices()
	if err != nil {
		return nil, err
	}
	if len(sorted) == 0 {
		return nil, nil
	}

	minSlice := h.ImageDefs[sorted[0]].SliceNumber
	for _, i := range sorted {
		if n := h.ImageDefs[i].SliceNumber; n < minSlice {
			minSlice = n
		}
	}

	// One representative row per volume: the row holding the lowest
	// slice number, in emitted volume order.
	var reps []int
	for _, i := range sorted {
		if h.ImageDefs[i].SliceNumber == minSlice {
			reps = append(reps, i)
		}
	}

	var out []VolumeLabel
	for _, k := range varyingVolumeKeys(h.ImageDefs) {
		label := VolumeLabel{Name: volumeKeys[k].name}
		for _, i := range reps {
			label.Values = append(label.Values, volumeKeys[k].get(h.ImageDefs[i]))
		}
		out = append(out, label)
	}
	return out, nil
}
