package depth

import (
	"fmt"
	"math"
)

// PostProcessing holds the transform-stage parameters. It is passed by
// value to each call rather than read from package globals, so two runs
// with different settings cannot interfere.
type PostProcessing struct {
	BlurSigma float64 `json:"blur_sigma"`
	LogBase   float64 `json:"log_base"`
	Sharpen   float64 `json:"sharpen"`
}

// DefaultPostProcessing mirrors the production pipeline defaults.
func DefaultPostProcessing() PostProcessing {
	return PostProcessing{
		BlurSigma: 5.0,
		LogBase:   4.0,
		Sharpen:   0.0,
	}
}

// gaussianKernel returns a normalized 1-D kernel with radius ceil(3*sigma).
func gaussianKernel(sigma float64) []float64 {
	radius := int(math.Ceil(3 * sigma))
	if radius < 1 {
		radius = 1
	}
	k := make([]float64, 2*radius+1)
	sum := 0.0
	for i := -radius; i <= radius; i++ {
		v := math.Exp(-float64(i*i) / (2 * sigma * sigma))
		k[i+radius] = v
		sum += v
	}
	for i := range k {
		k[i] /= sum
	}
	return k
}

// GaussianBlur applies an isotropic separable Gaussian blur to one frame.
// Edges are clamp-extended. Sigma <= 0 returns a copy of the input.
func GaussianBlur(frame []float32, width, height int, sigma float64) []float32 {
	out := make([]float32, len(frame))
	if sigma <= 0 {
		copy(out, frame)
		return out
	}
	k := gaussianKernel(sigma)
	radius := len(k) / 2

	// Horizontal pass.
	tmp := make([]float32, len(frame))
	for y := 0; y < height; y++ {
		row := frame[y*width : (y+1)*width]
		for x := 0; x < width; x++ {
			acc := 0.0
			for i := -radius; i <= radius; i++ {
				sx := x + i
				if sx < 0 {
					sx = 0
				} else if sx >= width {
					sx = width - 1
				}
				acc += k[i+radius] * float64(row[sx])
			}
			tmp[y*width+x] = float32(acc)
		}
	}

	// Vertical pass.
	for x := 0; x < width; x++ {
		for y := 0; y < height; y++ {
			acc := 0.0
			for i := -radius; i <= radius; i++ {
				sy := y + i
				if sy < 0 {
					sy = 0
				} else if sy >= height {
					sy = height - 1
				}
				acc += k[i+radius] * float64(tmp[sy*width+x])
			}
			out[y*width+x] = float32(acc)
		}
	}
	return out
}

// TransformFrame blurs one frame, compresses it with log_b(x+1), and
// optionally blends back the unblurred log signal with weight Sharpen.
// Input depth is assumed non-negative; the +1 offset is the only guard.
func TransformFrame(frame []float32, width, height int, cfg PostProcessing) ([]float32, error) {
	if len(frame) != width*height {
		return nil, fmt.Errorf("frame has %d values, want %dx%d", len(frame), width, height)
	}
	base := cfg.LogBase
	if base <= 0 {
		base = math.E
	}
	invLn := 1.0 / math.Log(base)

	blurred := GaussianBlur(frame, width, height, cfg.BlurSigma)
	out := make([]float32, len(frame))
	if cfg.Sharpen == 0 {
		for i, v := range blurred {
			out[i] = float32(math.Log1p(float64(v)) * invLn)
		}
		return out, nil
	}
	s := cfg.Sharpen
	for i := range out {
		lb := math.Log1p(float64(blurred[i])) * invLn
		lo := math.Log1p(float64(frame[i])) * invLn
		out[i] = float32(s*lo + (1-s)*lb)
	}
	return out, nil
}

// Transform applies TransformFrame to every frame of the array,
// producing a new array of the same shape.
func Transform(a *Array, cfg PostProcessing) (*Array, error) {
	out := New(a.Frames, a.Height, a.Width)
	for i := 0; i < a.Frames; i++ {
		f, err := TransformFrame(a.Frame(i), a.Width, a.Height, cfg)
		if err != nil {
			return nil, fmt.Errorf("frame %d: %w", i, err)
		}
		copy(out.Frame(i), f)
	}
	return out, nil
}
