package depth

// ResampleIndices selects target evenly spaced source indices via
// floor(linspace(0, n-1, target)). For target < n this is nearest-style
// downsampling and may duplicate or drop frames non-uniformly depending
// on the ratio.
func ResampleIndices(n, target int) []int {
	idx := make([]int, target)
	if target == 1 {
		idx[0] = 0
		return idx
	}
	step := float64(n-1) / float64(target-1)
	for i := 0; i < target; i++ {
		idx[i] = int(float64(i) * step)
	}
	return idx
}

// Reconcile adjusts the frame count to exactly target so the depth video
// matches an independently encoded reference. Extra frames hold the last
// frame; a shorter target resamples with ResampleIndices; equal counts
// return the input unchanged.
func Reconcile(n *Normalized, target int) *Normalized {
	if target == n.Frames || target <= 0 {
		return n
	}
	out := NewNormalized(target, n.Height, n.Width)
	if target > n.Frames {
		copy(out.Data, n.Data)
		last := n.Frame(n.Frames - 1)
		for i := n.Frames; i < target; i++ {
			copy(out.Frame(i), last)
		}
		return out
	}
	for i, src := range ResampleIndices(n.Frames, target) {
		copy(out.Frame(i), n.Frame(src))
	}
	return out
}
