package depth

import (
	"bytes"
	"testing"
)

func sequentialNormalized(frames, h, w int) *Normalized {
	n := NewNormalized(frames, h, w)
	for i := 0; i < frames; i++ {
		f := n.Frame(i)
		for j := range f {
			f[j] = uint8(i)
		}
	}
	return n
}

// TestReconcilePad verifies 10 frames padded to 15: frames 10-14 equal
// frame 9 bit for bit.
func TestReconcilePad(t *testing.T) {
	n := sequentialNormalized(10, 2, 3)
	out := Reconcile(n, 15)

	if out.Frames != 15 {
		t.Fatalf("output frames = %d; want 15", out.Frames)
	}
	for i := 0; i < 10; i++ {
		if !bytes.Equal(out.Frame(i), n.Frame(i)) {
			t.Fatalf("frame %d changed during padding", i)
		}
	}
	last := n.Frame(9)
	for i := 10; i < 15; i++ {
		if !bytes.Equal(out.Frame(i), last) {
			t.Fatalf("padded frame %d does not equal last source frame", i)
		}
	}
}

// TestReconcileDownsample verifies 10 frames to 5 selects indices
// [0,2,4,6,9] per floor(linspace(0,9,5)).
func TestReconcileDownsample(t *testing.T) {
	idx := ResampleIndices(10, 5)
	want := []int{0, 2, 4, 6, 9}
	for i := range want {
		if idx[i] != want[i] {
			t.Fatalf("indices = %v; want %v", idx, want)
		}
	}

	n := sequentialNormalized(10, 1, 1)
	out := Reconcile(n, 5)
	if out.Frames != 5 {
		t.Fatalf("output frames = %d; want 5", out.Frames)
	}
	for i, src := range want {
		if out.Frame(i)[0] != uint8(src) {
			t.Errorf("frame %d holds source %d; want %d", i, out.Frame(i)[0], src)
		}
	}
}

// TestReconcileNoop verifies equal counts return the input unchanged.
func TestReconcileNoop(t *testing.T) {
	n := sequentialNormalized(4, 2, 2)
	out := Reconcile(n, 4)
	if out != n {
		t.Fatal("T==N should be a no-op returning the same array")
	}
}

// TestReconcileSingleTarget verifies T=1 keeps the first frame.
func TestReconcileSingleTarget(t *testing.T) {
	n := sequentialNormalized(7, 1, 1)
	out := Reconcile(n, 1)
	if out.Frames != 1 || out.Frame(0)[0] != 0 {
		t.Fatalf("got %d frames, first value %d; want 1 frame of value 0", out.Frames, out.Frame(0)[0])
	}
}
