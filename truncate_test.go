package parrec

import (
	"errors"
	"testing"
)

func TestTruncatedConstruction(t *testing.T) {
	info := egInfo(9, 3)
	defs := egDefs(9, 3)

	// Dropping the final record leaves the last volume one slice short.
	short := defs[:len(defs)-1]

	if _, err := NewHeader(info, short, Options{}); !errors.Is(err, ErrInconsistentHeader) {
		t.Fatalf("err = %v, want ErrInconsistentHeader", err)
	}

	var h *Header
	var err error
	warnings := countWarnings(t, func() {
		h, err = NewHeader(info, short, Options{PermitTruncated: true})
	})
	if err != nil {
		t.Fatal(err)
	}
	if warnings != 1 {
		t.Errorf("warnings = %d, want exactly 1", warnings)
	}

	// The short volume is gone entirely.
	if len(h.ImageDefs) != 18 {
		t.Errorf("kept %d image definitions, want 18", len(h.ImageDefs))
	}
	shape, err := h.DataShape()
	if err != nil {
		t.Fatal(err)
	}
	if !equalInts(shape, []int{64, 64, 9, 2}) {
		t.Errorf("shape = %v", shape)
	}

	sorted, err := h.SortedSliceIndices()
	if err != nil {
		t.Fatal(err)
	}
	if len(sorted) != 18 {
		t.Errorf("sorted indices = %v", sorted)
	}

	// The on-disk blob keeps the untruncated layout.
	for row := range h.ImageDefs {
		if h.RECSlab(row) != row {
			t.Errorf("RECSlab(%d) = %d", row, h.RECSlab(row))
			break
		}
	}
}

func TestTruncationToSingleVolume(t *testing.T) {
	info := egInfo(9, 2)
	defs := egDefs(9, 2)[:17]

	var h *Header
	var err error
	warnings := countWarnings(t, func() {
		h, err = NewHeader(info, defs, Options{PermitTruncated: true})
	})
	if err != nil {
		t.Fatal(err)
	}
	if warnings != 1 {
		t.Errorf("warnings = %d, want 1", warnings)
	}

	// Down to one volume, so the shape is 3D again.
	shape, err := h.DataShape()
	if err != nil {
		t.Fatal(err)
	}
	if !equalInts(shape, []int{64, 64, 9}) {
		t.Errorf("shape = %v", shape)
	}
}

func TestNonFinalTruncationFails(t *testing.T) {
	// Slice numbers [1 2 3 1 1]: volume 1 holds only slice 1 and is not
	// the final volume, so this is not an aborted scan.
	info := egInfo(3, 1)
	info.MaxDynamics = 0
	var defs []ImageDef
	for _, s := range []int{1, 2, 3, 1, 1} {
		defs = append(defs, egDef(s, 1))
	}

	for _, permit := range []bool{false, true} {
		if _, err := NewHeader(info, defs, Options{PermitTruncated: permit}); !errors.Is(err, ErrInconsistentHeader) {
			t.Errorf("permit=%v: err = %v, want ErrInconsistentHeader", permit, err)
		}
	}
}

func TestPermissiveCountMismatchWarnsOnly(t *testing.T) {
	// A post-processed series can declare more gradient orientations
	// than the table holds without any volume being short; permissive
	// construction warns and keeps all rows.
	info := egInfo(9, 1)
	info.MaxGradientOrient = 2
	defs := egDefs(9, 1)

	if _, err := NewHeader(info, defs, Options{}); !errors.Is(err, ErrInconsistentHeader) {
		t.Fatalf("err = %v, want ErrInconsistentHeader", err)
	}

	var h *Header
	var err error
	warnings := countWarnings(t, func() {
		h, err = NewHeader(info, defs, Options{PermitTruncated: true})
	})
	if err != nil {
		t.Fatal(err)
	}
	if warnings != 1 {
		t.Errorf("warnings = %d, want 1", warnings)
	}
	if len(h.ImageDefs) != 9 {
		t.Errorf("kept %d image definitions, want all 9", len(h.ImageDefs))
	}
}
