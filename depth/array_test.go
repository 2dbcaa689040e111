package depth

import (
	"testing"
)

// TestFromShapeSingleFrame verifies a 2-D shape gains a frame dimension.
func TestFromShapeSingleFrame(t *testing.T) {
	a, err := FromShape([]int{2, 3}, make([]float32, 6))
	if err != nil {
		t.Fatalf("FromShape: %v", err)
	}
	if a.Frames != 1 || a.Height != 2 || a.Width != 3 {
		t.Fatalf("got %dx%dx%d; want 1x2x3", a.Frames, a.Height, a.Width)
	}
}

// TestFromShapeFrameAxisHeuristic verifies that when the last dimension
// is the smallest, the data is treated as (H, W, F) and transposed.
func TestFromShapeFrameAxisHeuristic(t *testing.T) {
	// 4x5 image, 2 frames stored interleaved (H, W, F).
	h, w, f := 4, 5, 2
	data := make([]float32, h*w*f)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			for i := 0; i < f; i++ {
				data[(y*w+x)*f+i] = float32(i*1000 + y*w + x)
			}
		}
	}
	a, err := FromShape([]int{h, w, f}, data)
	if err != nil {
		t.Fatalf("FromShape: %v", err)
	}
	if a.Frames != f || a.Height != h || a.Width != w {
		t.Fatalf("got %dx%dx%d; want %dx%dx%d", a.Frames, a.Height, a.Width, f, h, w)
	}
	for i := 0; i < f; i++ {
		frame := a.Frame(i)
		for j := range frame {
			if frame[j] != float32(i*1000+j) {
				t.Fatalf("frame %d index %d = %v; want %v", i, j, frame[j], i*1000+j)
			}
		}
	}
}

// TestFromShapeFrameMajor verifies the common (F, H, W) layout passes
// through untouched.
func TestFromShapeFrameMajor(t *testing.T) {
	data := make([]float32, 3*10*20)
	a, err := FromShape([]int{3, 10, 20}, data)
	if err != nil {
		t.Fatalf("FromShape: %v", err)
	}
	if a.Frames != 3 || a.Height != 10 || a.Width != 20 {
		t.Fatalf("got %dx%dx%d; want 3x10x20", a.Frames, a.Height, a.Width)
	}
}

// TestFromShapeRejectsBadInput covers shape mismatches and rank errors.
func TestFromShapeRejectsBadInput(t *testing.T) {
	if _, err := FromShape([]int{2, 2}, make([]float32, 5)); err == nil {
		t.Error("expected error for data/shape mismatch")
	}
	if _, err := FromShape([]int{2, 2, 2, 2}, make([]float32, 16)); err == nil {
		t.Error("expected error for 4-D shape")
	}
}

// TestConcat verifies frame-axis concatenation and size checking.
func TestConcat(t *testing.T) {
	a := Constant(2, 2, 2, 1)
	b := Constant(3, 2, 2, 2)
	out, err := Concat(a, b)
	if err != nil {
		t.Fatalf("Concat: %v", err)
	}
	if out.Frames != 5 {
		t.Fatalf("concat frames = %d; want 5", out.Frames)
	}
	if out.Frame(0)[0] != 1 || out.Frame(4)[0] != 2 {
		t.Error("concatenated data out of order")
	}

	c := Constant(1, 3, 3, 0)
	if _, err := Concat(a, c); err == nil {
		t.Error("expected error for mismatched frame sizes")
	}
}

// TestMinMaxEmpty verifies empty arrays report 0 instead of panicking.
func TestMinMaxEmpty(t *testing.T) {
	a := New(0, 2, 2)
	if got := a.Min(); got != 0 {
		t.Errorf("empty Min = %v; want 0", got)
	}
	if got := a.Max(); got != 0 {
		t.Errorf("empty Max = %v; want 0", got)
	}
}
