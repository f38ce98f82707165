package parrec

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/carbocation/pfx"
)

// REC reads the binary pixel blob paired with a Header. The blob is a
// bare sequence of 2D slabs, one per image definition line of the
// untruncated header, little-endian, 8 or 16 bits per pixel, starting
// at the Header's data offset.
type REC struct {
	hdr *Header
	r   io.ReaderAt
}

// NewREC binds a Header to the ReaderAt holding its pixel blob.
func NewREC(hdr *Header, r io.ReaderAt) *REC {
	return &REC{hdr: hdr, r: r}
}

// SlabPixels returns the number of pixels in one 2D slab.
func (rec *REC) SlabPixels() (int, error) {
	res, err := uniformInt2(rec.hdr.ImageDefs, "recon resolution", func(d ImageDef) [2]int { return d.ReconResolution })
	if err != nil {
		return 0, err
	}
	return res[0] * res[1], nil
}

// RawRow reads the unscaled slab for one row of the image definition
// table. Truncated headers keep addressing the untruncated blob
// correctly through the Header's row-to-slab mapping.
func (rec *REC) RawRow(row int) ([]int, error) {
	n, err := rec.SlabPixels()
	if err != nil {
		return nil, err
	}
	bytesPerPixel := rec.hdr.BitDepth() / 8
	buf := make([]byte, n*bytesPerPixel)
	offset := rec.hdr.DataOffset() + int64(rec.hdr.RECSlab(row))*int64(len(buf))
	if _, err := rec.r.ReadAt(buf, offset); err != nil {
		return nil, pfx.Err(fmt.Errorf("reading REC slab %d: %s", rec.hdr.RECSlab(row), err))
	}

	out := make([]int, n)
	if bytesPerPixel == 1 {
		for i, b := range buf {
			out[i] = int(b)
		}
		return out, nil
	}
	for i := range out {
		out[i] = int(binary.LittleEndian.Uint16(buf[2*i:]))
	}
	return out, nil
}

// ScaledRow reads the slab for one table row and applies the given
// scaling convention, the Header's default when empty.
func (rec *REC) ScaledRow(row int, method string) ([]float64, error) {
	if method == "" {
		method = rec.hdr.DefaultScaling
	}
	slope, intercept, err := scalePair(rec.hdr.ImageDefs[row], method)
	if err != nil {
		return nil, err
	}
	raw, err := rec.RawRow(row)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(raw))
	for i, v := range raw {
		out[i] = float64(v)*slope + intercept
	}
	return out, nil
}

// ScaledVolume reads all slices of one volume, in ascending slice
// order, applying the given scaling convention.
func (rec *REC) ScaledVolume(vol int, method string) ([][]float64, error) {
	sorted, err := rec.hdr.SortedSliceIndices()
	if err != nil {
		return nil, err
	}
	nSlices := rec.hdr.NSlices()
	if vol < 0 || (vol+1)*nSlices > len(sorted) {
		return nil, fmt.Errorf("volume %d out of range", vol)
	}
	out := make([][]float64, nSlices)
	for i, row := range sorted[vol*nSlices : (vol+1)*nSlices] {
		out[i], err = rec.ScaledRow(row, method)
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}
