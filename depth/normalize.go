package depth

import (
	"fmt"
	"math"
	"sort"
)

// rangeEpsilon guards division by zero for flat or empty scenes.
const rangeEpsilon = 1e-6

// screenDistPercentile is the percentile used as the "typical foreground
// distance" proxy for a scene.
const screenDistPercentile = 35.0

// Normalized is a stack of single-channel 8-bit frames, the product of
// scene-relative normalization. Written once, never mutated.
type Normalized struct {
	Frames int
	Height int
	Width  int
	Data   []uint8
}

// NewNormalized allocates a zero-filled 8-bit frame stack.
func NewNormalized(frames, height, width int) *Normalized {
	return &Normalized{
		Frames: frames,
		Height: height,
		Width:  width,
		Data:   make([]uint8, frames*height*width),
	}
}

// Frame returns the i-th frame as a slice view.
func (n *Normalized) Frame(i int) []uint8 {
	sz := n.Height * n.Width
	return n.Data[i*sz : (i+1)*sz]
}

// SceneStats records per-scene depth statistics.
type SceneStats struct {
	Min        float64
	Max        float64
	ScreenDist float64
}

// sentinelStats is substituted for degenerate/empty scene ranges.
func sentinelStats() SceneStats {
	return SceneStats{Min: 0, Max: 1, ScreenDist: 0.35}
}

// sceneRange resolves scene i's [start, end) frame range from the
// boundary list, clamped to the array.
func sceneRange(starts []int, i, total int) (int, int) {
	start := starts[i]
	end := total
	if i+1 < len(starts) {
		end = starts[i+1]
	}
	if start < 0 {
		start = 0
	}
	if start > total {
		start = total
	}
	if end > total {
		end = total
	}
	return start, end
}

// NormalizeByScene maps each scene's value range independently onto
// [0,255]. Boundaries are scene start frame indices; the final boundary
// is implicitly the total frame count. With fewer than two boundaries
// the whole array is treated as one scene (global min/max). Degenerate
// scene ranges are skipped: their output stays zero and their stats
// default to sentinels.
func NormalizeByScene(a *Array, starts []int) (*Normalized, []SceneStats) {
	if len(starts) < 2 {
		starts = []int{0}
	}
	out := NewNormalized(a.Frames, a.Height, a.Width)
	stats := make([]SceneStats, len(starts))

	fsz := a.Height * a.Width
	for i := range starts {
		start, end := sceneRange(starts, i, a.Frames)
		if start >= end {
			stats[i] = sentinelStats()
			continue
		}
		data := a.Data[start*fsz : end*fsz]
		pMin, pMax := minMax(data)
		stats[i] = SceneStats{
			Min:        float64(pMin),
			Max:        float64(pMax),
			ScreenDist: sceneScreenDist(a, start, end),
		}
		rng := float64(pMax) - float64(pMin)
		if rng < rangeEpsilon {
			rng = rangeEpsilon
		}
		dst := out.Data[start*fsz : end*fsz]
		for j, v := range data {
			n := (float64(v) - float64(pMin)) / rng * 255.0
			if n < 0 {
				n = 0
			} else if n > 255 {
				n = 255
			}
			dst[j] = uint8(n)
		}
	}
	return out, stats
}

// StatsByScene computes per-scene statistics without producing a
// normalized array. Used to persist metadata independently of video
// re-encoding.
func StatsByScene(a *Array, starts []int) []SceneStats {
	if len(starts) < 2 {
		starts = []int{0}
	}
	fsz := a.Height * a.Width
	stats := make([]SceneStats, len(starts))
	for i := range starts {
		start, end := sceneRange(starts, i, a.Frames)
		if start >= end {
			stats[i] = sentinelStats()
			continue
		}
		pMin, pMax := minMax(a.Data[start*fsz : end*fsz])
		stats[i] = SceneStats{
			Min:        float64(pMin),
			Max:        float64(pMax),
			ScreenDist: sceneScreenDist(a, start, end),
		}
	}
	return stats
}

// sceneScreenDist is the 35th percentile of the scene's middle frame.
func sceneScreenDist(a *Array, start, end int) float64 {
	mid := start + (end-start)/2
	if mid >= end {
		mid = end - 1
	}
	return Percentile(a.Frame(mid), screenDistPercentile)
}

// Percentile computes the p-th percentile (0..100) with linear
// interpolation between ranks, matching numpy's default method.
func Percentile(values []float32, p float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	sorted := make([]float32, len(values))
	copy(sorted, values)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	if p <= 0 {
		return float64(sorted[0])
	}
	if p >= 100 {
		return float64(sorted[len(sorted)-1])
	}
	rank := p / 100.0 * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	hi := lo + 1
	if hi >= len(sorted) {
		return float64(sorted[lo])
	}
	frac := rank - float64(lo)
	return float64(sorted[lo]) + frac*(float64(sorted[hi])-float64(sorted[lo]))
}

func minMax(data []float32) (float32, float32) {
	mn, mx := data[0], data[0]
	for _, v := range data {
		if v < mn {
			mn = v
		}
		if v > mx {
			mx = v
		}
	}
	return mn, mx
}

// BoundariesToFrames converts scene start timestamps (seconds) to frame
// indices using floor(ts*fps), clamped to [0, total]. Timestamps must be
// strictly increasing.
func BoundariesToFrames(timestamps []float64, fps float64, total int) ([]int, error) {
	starts := make([]int, len(timestamps))
	for i, ts := range timestamps {
		if i > 0 && ts <= timestamps[i-1] {
			return nil, fmt.Errorf("scene timestamps not strictly increasing at index %d: %v", i, ts)
		}
		f := int(math.Floor(ts * fps))
		if f < 0 {
			f = 0
		}
		if f > total {
			f = total
		}
		starts[i] = f
	}
	return starts, nil
}
