package parrec

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Transform origins for Affine.
const (
	OriginScanner = "scanner" // relative to the scanner iso center
	OriginFOV     = "fov"     // relative to the center of the field of view
)

// rotX, rotY, rotZ build the elementary rotations about the first,
// second, and third axis.
func rotX(a float64) *mat.Dense {
	c, s := math.Cos(a), math.Sin(a)
	return mat.NewDense(3, 3, []float64{
		1, 0, 0,
		0, c, -s,
		0, s, c,
	})
}

func rotY(a float64) *mat.Dense {
	c, s := math.Cos(a), math.Sin(a)
	return mat.NewDense(3, 3, []float64{
		c, 0, s,
		0, 1, 0,
		-s, 0, c,
	})
}

func rotZ(a float64) *mat.Dense {
	c, s := math.Cos(a), math.Sin(a)
	return mat.NewDense(3, 3, []float64{
		c, -s, 0,
		s, c, 0,
		0, 0, 1,
	})
}

// dataAxisRemap holds, per slice orientation, the fixed permutation and
// sign matrix from acquisition axes to (x, y, z) data axes, and the
// permutation applied to the (ap, fh, rl) field-of-view vector so it
// lines up with the data axes.
var dataAxisRemap = map[string]struct {
	remap   []float64
	fovPerm [3]int
}{
	// in-plane: RL, AP; slices: FH
	"transverse": {[]float64{
		-1, 0, 0,
		0, -1, 0,
		0, 0, 1,
	}, [3]int{2, 0, 1}},
	// in-plane: AP, FH; slices: RL
	"sagittal": {[]float64{
		0, 0, 1,
		-1, 0, 0,
		0, -1, 0,
	}, [3]int{0, 1, 2}},
	// in-plane: RL, FH; slices: AP
	"coronal": {[]float64{
		-1, 0, 0,
		0, 0, -1,
		0, -1, 0,
	}, [3]int{2, 1, 0}},
}

// Affine computes the 4x4 transform from voxel indices to scanner
// coordinates for the given origin, OriginScanner when empty. The
// result is computed once per origin and cached.
//
// Only the global angulation and off-center settings are considered;
// per-slice angulation deviations are ignored. The rotation block of
// the result is orthonormal up to the voxel scaling.
func (h *Header) Affine(origin string) (*mat.Dense, error) {
	if origin == "" {
		origin = OriginScanner
	}
	if origin != OriginScanner && origin != OriginFOV {
		return nil, fmt.Errorf("unknown affine origin %q", origin)
	}
	if aff, ok := h.affines[origin]; ok {
		return aff, nil
	}

	// The header records degrees in (ap, fh, rl) order; we rotate back
	// from what the scanner applied.
	var ang [3]float64
	for i, deg := range h.Info.Angulation {
		ang[i] = -deg * math.Pi / 180
	}
	ap, fh, rl := ang[0], ang[1], ang[2]

	// Compose the elementary rotations both ways the format has been
	// decoded historically. They must agree; a mismatch means the
	// angulation handling itself is broken, not the input.
	var explicit, euler mat.Dense
	explicit.Mul(rotX(rl), rotY(ap))
	explicit.Mul(&explicit, rotZ(fh))
	euler.Mul(rotZ(fh), rotY(ap))
	euler.Mul(&euler, rotX(rl))
	if !mat.EqualApprox(&explicit, &euler, 1e-9) {
		return nil, fmt.Errorf("%w: explicit product and Euler composition differ for angulation %v",
			ErrGeometry, h.Info.Angulation)
	}

	orientation, err := h.SliceOrientation()
	if err != nil {
		return nil, err
	}
	remap := dataAxisRemap[orientation]

	var rot mat.Dense
	rot.Mul(&euler, mat.NewDense(3, 3, remap.remap))

	voxel, err := h.VoxelSize()
	if err != nil {
		return nil, err
	}
	zooms, err := h.Zooms()
	if err != nil {
		return nil, err
	}

	var fov [3]float64
	for i, j := range remap.fovPerm {
		fov[i] = h.Info.FOV[j]
	}

	// Voxel-space origin maps to the corner of the field of view, so
	// the translation walks back half the FOV and forward half a voxel
	// per axis, rotated into scanner space.
	offset := mat.NewVecDense(3, []float64{
		voxel[0]/2 - fov[0]/2,
		voxel[1]/2 - fov[1]/2,
		voxel[2]/2 - fov[2]/2,
	})
	var translation mat.VecDense
	translation.MulVec(&rot, offset)

	var scaled mat.Dense
	scaled.Mul(&rot, mat.NewDiagDense(3, zooms[:3]))

	aff := mat.NewDense(4, 4, nil)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			aff.Set(i, j, scaled.At(i, j))
		}
		aff.Set(i, 3, translation.AtVec(i))
	}
	aff.Set(3, 3, 1)

	if origin == OriginScanner {
		// Off-center is stored in (ap, fh, rl); reorder to (rl, ap, fh)
		// and flip into the same handedness as the data axes.
		oc := h.Info.OffCenter
		aff.Set(0, 3, aff.At(0, 3)-oc[2])
		aff.Set(1, 3, aff.At(1, 3)-oc[0])
	}

	if h.affines == nil {
		h.affines = make(map[string]*mat.Dense)
	}
	h.affines[origin] = aff
	return aff, nil
}
