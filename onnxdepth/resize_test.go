package onnxdepth

import (
	"math"
	"testing"
)

func TestWorkingSizeMultiplesOf14(t *testing.T) {
	cases := []struct {
		srcW, srcH int
	}{
		{1920, 1080},
		{728, 308},
		{100, 100},
		{37, 1000},
	}
	for _, c := range cases {
		w, h := workingSize(c.srcW, c.srcH, 518)
		if w%14 != 0 || h%14 != 0 {
			t.Errorf("workingSize(%d,%d) = %dx%d; want multiples of 14", c.srcW, c.srcH, w, h)
		}
		if w < 14 || h < 14 {
			t.Errorf("workingSize(%d,%d) = %dx%d; want at least one patch", c.srcW, c.srcH, w, h)
		}
	}
}

func TestWorkingSizeSquare(t *testing.T) {
	w, h := workingSize(518, 518, 518)
	if w != 518 || h != 518 {
		t.Errorf("workingSize(518,518) = %dx%d; want 518x518 (518 = 37*14)", w, h)
	}
}

func TestWorkingSizeLongSideNearTarget(t *testing.T) {
	w, h := workingSize(1920, 1080, 518)
	if w < 504 || w > 532 {
		t.Errorf("long side %d not near target 518", w)
	}
	if h >= w {
		t.Errorf("aspect not preserved: %dx%d for a landscape source", w, h)
	}
}

func TestBilinearResizeIdentity(t *testing.T) {
	src := []float32{1, 2, 3, 4}
	out := bilinearResize(src, 2, 2, 2, 2)
	for i := range src {
		if out[i] != src[i] {
			t.Fatalf("identity resize changed data: %v -> %v", src, out)
		}
	}
	// Identity must copy, not alias.
	out[0] = 99
	if src[0] == 99 {
		t.Error("identity resize aliases the source slice")
	}
}

func TestBilinearResizeUpscale(t *testing.T) {
	// A 2x1 gradient upscaled to 3x1 should interpolate the midpoint.
	src := []float32{0, 10}
	out := bilinearResize(src, 2, 1, 3, 1)
	want := []float32{0, 5, 10}
	for i := range want {
		if math.Abs(float64(out[i]-want[i])) > 1e-5 {
			t.Errorf("out[%d] = %v; want %v", i, out[i], want[i])
		}
	}
}

func TestBilinearResizeConstant(t *testing.T) {
	src := make([]float32, 16)
	for i := range src {
		src[i] = 7.5
	}
	out := bilinearResize(src, 4, 4, 9, 5)
	for i, v := range out {
		if math.Abs(float64(v-7.5)) > 1e-5 {
			t.Fatalf("out[%d] = %v; constant plane should stay constant", i, v)
		}
	}
}
