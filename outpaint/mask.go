package outpaint

import (
	"image"
	"image/color"
)

// MaskFromAlpha derives a fill mask from the alpha channel. Pixels
// whose alpha is below the threshold (the transparent margin) become
// white, everything else black.
func MaskFromAlpha(img image.Image, threshold uint8) *image.Gray {
	b := img.Bounds()
	mask := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			_, _, _, a := img.At(x, y).RGBA()
			if uint8(a>>8) < threshold {
				mask.SetGray(x-b.Min.X, y-b.Min.Y, color.Gray{Y: 255})
			}
		}
	}
	return mask
}

// Dilate grows the white region of a binary mask with a square kernel
// of the given size. Sizes below 2 return the mask unchanged.
func Dilate(mask *image.Gray, size int) *image.Gray {
	if size < 2 {
		return mask
	}
	r := size / 2
	b := mask.Bounds()
	w, h := b.Dx(), b.Dy()
	out := image.NewGray(b)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var v uint8
			for dy := -r; dy <= r && v == 0; dy++ {
				yy := y + dy
				if yy < 0 || yy >= h {
					continue
				}
				for dx := -r; dx <= r; dx++ {
					xx := x + dx
					if xx < 0 || xx >= w {
						continue
					}
					if mask.GrayAt(xx, yy).Y > 0 {
						v = 255
						break
					}
				}
			}
			out.SetGray(x, y, color.Gray{Y: v})
		}
	}
	return out
}

// Feather softens mask edges with a separable box blur of the given
// kernel size. Sizes below 2 return the mask unchanged.
func Feather(mask *image.Gray, size int) *image.Gray {
	if size < 2 {
		return mask
	}
	r := size / 2
	b := mask.Bounds()
	w, h := b.Dx(), b.Dy()

	// Horizontal pass.
	tmp := make([]float64, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			sum, n := 0.0, 0
			for dx := -r; dx <= r; dx++ {
				xx := x + dx
				if xx < 0 || xx >= w {
					continue
				}
				sum += float64(mask.GrayAt(xx, y).Y)
				n++
			}
			tmp[y*w+x] = sum / float64(n)
		}
	}

	// Vertical pass.
	out := image.NewGray(b)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			sum, n := 0.0, 0
			for dy := -r; dy <= r; dy++ {
				yy := y + dy
				if yy < 0 || yy >= h {
					continue
				}
				sum += tmp[yy*w+x]
				n++
			}
			out.SetGray(x, y, color.Gray{Y: uint8(sum/float64(n) + 0.5)})
		}
	}
	return out
}

// BuildMask runs the full mask derivation: alpha threshold, dilate,
// then feather.
func BuildMask(img image.Image) *image.Gray {
	mask := MaskFromAlpha(img, AlphaThreshold)
	mask = Dilate(mask, DilateSize)
	return Feather(mask, FeatherSize)
}

// Binarize snaps a feathered mask back to 0/255 at the given cutoff.
// The video infill request wants hard masks.
func Binarize(mask *image.Gray, cutoff uint8) *image.Gray {
	b := mask.Bounds()
	out := image.NewGray(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if mask.GrayAt(x, y).Y > cutoff {
				out.SetGray(x, y, color.Gray{Y: 255})
			}
		}
	}
	return out
}
