package depth

import (
	"fmt"
)

// Array is a stack of single-channel float32 depth frames stored
// contiguously in frame-major order. All frames share one width/height.
type Array struct {
	Frames int
	Height int
	Width  int
	Data   []float32
}

// New allocates a zero-filled array with the given dimensions.
func New(frames, height, width int) *Array {
	return &Array{
		Frames: frames,
		Height: height,
		Width:  width,
		Data:   make([]float32, frames*height*width),
	}
}

// FromShape wraps raw data loaded from an archive into an Array.
// A 2-D shape is treated as a single frame. For a 3-D shape where the
// last dimension is smaller than both others, the data is assumed to be
// stored (H, W, F) and is transposed to (F, H, W); otherwise the first
// dimension is the frame axis.
func FromShape(shape []int, data []float32) (*Array, error) {
	switch len(shape) {
	case 2:
		if shape[0]*shape[1] != len(data) {
			return nil, fmt.Errorf("shape %v does not match %d values", shape, len(data))
		}
		return &Array{Frames: 1, Height: shape[0], Width: shape[1], Data: data}, nil
	case 3:
		if shape[0]*shape[1]*shape[2] != len(data) {
			return nil, fmt.Errorf("shape %v does not match %d values", shape, len(data))
		}
		if shape[2] < shape[0] && shape[2] < shape[1] {
			return transposeHWF(shape, data), nil
		}
		return &Array{Frames: shape[0], Height: shape[1], Width: shape[2], Data: data}, nil
	default:
		return nil, fmt.Errorf("unsupported depth array shape: %v", shape)
	}
}

// transposeHWF converts (H, W, F) ordered data into frame-major order.
func transposeHWF(shape []int, data []float32) *Array {
	h, w, f := shape[0], shape[1], shape[2]
	out := New(f, h, w)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			base := (y*w + x) * f
			for i := 0; i < f; i++ {
				out.Data[i*h*w+y*w+x] = data[base+i]
			}
		}
	}
	return out
}

// Frame returns the i-th frame as a slice view into the backing data.
func (a *Array) Frame(i int) []float32 {
	n := a.Height * a.Width
	return a.Data[i*n : (i+1)*n]
}

// Clone returns a deep copy.
func (a *Array) Clone() *Array {
	out := &Array{Frames: a.Frames, Height: a.Height, Width: a.Width}
	out.Data = make([]float32, len(a.Data))
	copy(out.Data, a.Data)
	return out
}

// Min returns the smallest value in the array, or 0 when empty.
func (a *Array) Min() float32 {
	if len(a.Data) == 0 {
		return 0
	}
	v := a.Data[0]
	for _, x := range a.Data {
		if x < v {
			v = x
		}
	}
	return v
}

// Max returns the largest value in the array, or 0 when empty.
func (a *Array) Max() float32 {
	if len(a.Data) == 0 {
		return 0
	}
	v := a.Data[0]
	for _, x := range a.Data {
		if x > v {
			v = x
		}
	}
	return v
}

// Concat joins arrays along the frame axis. All inputs must share the
// same frame dimensions.
func Concat(arrays ...*Array) (*Array, error) {
	if len(arrays) == 0 {
		return nil, fmt.Errorf("no arrays to concatenate")
	}
	h, w := arrays[0].Height, arrays[0].Width
	total := 0
	for _, a := range arrays {
		if a.Height != h || a.Width != w {
			return nil, fmt.Errorf("frame size mismatch: %dx%d vs %dx%d", a.Width, a.Height, w, h)
		}
		total += a.Frames
	}
	out := New(total, h, w)
	off := 0
	for _, a := range arrays {
		copy(out.Data[off:], a.Data)
		off += len(a.Data)
	}
	return out, nil
}

// Constant builds an array where every sample holds the same value.
func Constant(frames, height, width int, value float32) *Array {
	a := New(frames, height, width)
	for i := range a.Data {
		a.Data[i] = value
	}
	return a
}
