package parrec

import (
	"errors"
	"math"
	"testing"
)

func TestDataScalingDV(t *testing.T) {
	defs := egDefs(3, 2)
	for i := range defs {
		defs[i].RescaleIntercept = 10
	}
	h := mustHeader(t, egInfo(3, 2), defs, Options{})

	slopes, intercepts, err := h.DataScaling(ScalingDV)
	if err != nil {
		t.Fatal(err)
	}
	if len(slopes) != 6 || len(intercepts) != 6 {
		t.Fatalf("got %d slopes, %d intercepts, want 6 each", len(slopes), len(intercepts))
	}
	for i := range slopes {
		if slopes[i] != 1.29035 || intercepts[i] != 10 {
			t.Errorf("slice %d: (%g, %g), want (1.29035, 10)", i, slopes[i], intercepts[i])
		}
	}
}

func TestDataScalingFP(t *testing.T) {
	defs := egDefs(3, 1)
	for i := range defs {
		defs[i].RescaleIntercept = 10
	}
	h := mustHeader(t, egInfo(3, 1), defs, Options{})

	slopes, intercepts, err := h.DataScaling(ScalingFP)
	if err != nil {
		t.Fatal(err)
	}
	wantSlope := 1 / 0.0042840
	wantIntercept := 10 / (1.29035 * 0.0042840)
	for i := range slopes {
		if math.Abs(slopes[i]-wantSlope) > 1e-9 || math.Abs(intercepts[i]-wantIntercept) > 1e-9 {
			t.Errorf("slice %d: (%g, %g), want (%g, %g)", i, slopes[i], intercepts[i], wantSlope, wantIntercept)
		}
	}
}

func TestDataScalingDefaultMethod(t *testing.T) {
	h := mustHeader(t, egInfo(3, 1), egDefs(3, 1), Options{DefaultScaling: ScalingFP})
	slopes, _, err := h.DataScaling("")
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(slopes[0]-1/0.0042840) > 1e-9 {
		t.Errorf("default scaling did not use fp: slope = %g", slopes[0])
	}
}

func TestDataScalingUnknownMethod(t *testing.T) {
	h := mustHeader(t, egInfo(3, 1), egDefs(3, 1), Options{})
	if _, _, err := h.DataScaling("pct"); err == nil {
		t.Error("expected error for unknown method")
	}
}

func TestSlopeIntercept(t *testing.T) {
	h := mustHeader(t, egInfo(3, 2), egDefs(3, 2), Options{})
	slope, intercept, err := h.SlopeIntercept()
	if err != nil {
		t.Fatal(err)
	}
	if slope != 1.29035 || intercept != 0 {
		t.Errorf("got (%g, %g), want (1.29035, 0)", slope, intercept)
	}
}

func TestSlopeInterceptVarying(t *testing.T) {
	// A per-volume rescale, as some scanners write for derived series,
	// cannot be collapsed to one pair but stays addressable per slice.
	defs := egDefs(3, 2)
	for i := 3; i < 6; i++ {
		defs[i].RescaleSlope = 2.5
	}
	h := mustHeader(t, egInfo(3, 2), defs, Options{})

	if _, _, err := h.SlopeIntercept(); !errors.Is(err, ErrNonUniformField) {
		t.Errorf("err = %v, want ErrNonUniformField", err)
	}

	slopes, _, err := h.DataScaling(ScalingDV)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		if slopes[i] != 1.29035 {
			t.Errorf("volume 0 slice %d: slope = %g, want 1.29035", i, slopes[i])
		}
	}
	for i := 3; i < 6; i++ {
		if slopes[i] != 2.5 {
			t.Errorf("volume 1 slice %d: slope = %g, want 2.5", i, slopes[i])
		}
	}
}
