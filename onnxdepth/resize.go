package onnxdepth

// workingSize computes the model input dimensions for a source image:
// the long side is scaled to target and both sides are rounded to the
// nearest multiple of 14, the patch size of the depth models we run.
func workingSize(srcW, srcH, target int) (int, int) {
	const patch = 14
	if target <= 0 {
		target = 518
	}
	long := srcW
	if srcH > long {
		long = srcH
	}
	scale := float64(target) / float64(long)

	round := func(v float64) int {
		n := int(v/patch + 0.5)
		if n < 1 {
			n = 1
		}
		return n * patch
	}
	return round(float64(srcW) * scale), round(float64(srcH) * scale)
}

// bilinearResize resamples a single-channel float32 plane from srcW×srcH
// to dstW×dstH. Used to bring the model's working-size output back to
// the source frame size.
func bilinearResize(src []float32, srcW, srcH, dstW, dstH int) []float32 {
	if srcW == dstW && srcH == dstH {
		out := make([]float32, len(src))
		copy(out, src)
		return out
	}
	out := make([]float32, dstW*dstH)
	xRatio := float64(srcW-1) / float64(maxInt(dstW-1, 1))
	yRatio := float64(srcH-1) / float64(maxInt(dstH-1, 1))

	for y := 0; y < dstH; y++ {
		sy := float64(y) * yRatio
		y0 := int(sy)
		y1 := y0 + 1
		if y1 >= srcH {
			y1 = srcH - 1
		}
		fy := float32(sy - float64(y0))

		for x := 0; x < dstW; x++ {
			sx := float64(x) * xRatio
			x0 := int(sx)
			x1 := x0 + 1
			if x1 >= srcW {
				x1 = srcW - 1
			}
			fx := float32(sx - float64(x0))

			top := src[y0*srcW+x0]*(1-fx) + src[y0*srcW+x1]*fx
			bot := src[y1*srcW+x0]*(1-fx) + src[y1*srcW+x1]*fx
			out[y*dstW+x] = top*(1-fy) + bot*fy
		}
	}
	return out
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
