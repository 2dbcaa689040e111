// Package outpaint expands video frames beyond their original borders
// and drives an external diffusion server to fill the new regions. The
// first frame is expanded with a transparent margin and filled as a
// still image; the remaining frames are infilled as a video, guided by
// the filled first frame.
package outpaint

import (
	"image"
	"image/color"
	"image/draw"

	"github.com/nfnt/resize"
)

// Fixed expansion and inference parameters.
const (
	ExpandPercent = 0.15
	MaxWidth      = 1024
	MaxHeight     = 1024

	DefaultPrompt = "fill the missing regions realistically"

	FillSteps    = 40
	FillGuidance = 12.0
	Seed         = 42

	AlphaThreshold = 128
	DilateSize     = 7
	FeatherSize    = 5
	MaxSeqLength   = 512

	VideoSteps    = 50
	VideoGuidance = 6.0
	DefaultFPS    = 24
)

// ExpandWithAlpha pads the frame on every side by expandPercent of the
// corresponding dimension. The original pixels keep full alpha; the
// margin is fully transparent so the fill mask can be derived from it.
func ExpandWithAlpha(frame image.Image, expandPercent float64) *image.NRGBA {
	b := frame.Bounds()
	w, h := b.Dx(), b.Dy()

	expandW := int(float64(w) * expandPercent)
	expandH := int(float64(h) * expandPercent)
	newW := w + 2*expandW
	newH := h + 2*expandH

	out := image.NewNRGBA(image.Rect(0, 0, newW, newH))
	inner := image.Rect(expandW, expandH, expandW+w, expandH+h)
	draw.Draw(out, inner, frame, b.Min, draw.Src)

	// Force the original region opaque regardless of source alpha.
	for y := inner.Min.Y; y < inner.Max.Y; y++ {
		for x := inner.Min.X; x < inner.Max.X; x++ {
			i := out.PixOffset(x, y)
			out.Pix[i+3] = 255
		}
	}
	return out
}

// ResizeToMax scales the image down to fit within maxW x maxH,
// preserving aspect ratio. Images already within bounds pass through.
func ResizeToMax(img image.Image, maxW, maxH int) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= maxW && h <= maxH {
		return img
	}

	scaleW := float64(maxW) / float64(w)
	scaleH := float64(maxH) / float64(h)
	scale := scaleW
	if scaleH < scale {
		scale = scaleH
	}
	newW := int(float64(w) * scale)
	newH := int(float64(h) * scale)
	return resize.Resize(uint(newW), uint(newH), img, resize.Lanczos3)
}

// ExpandToMatch scales the frame to fit within targetW x targetH
// preserving aspect ratio, then centers it on a black canvas of the
// target size. Used to bring original frames up to the filled first
// frame's resolution before video infill.
func ExpandToMatch(frame image.Image, targetW, targetH int) *image.RGBA {
	b := frame.Bounds()
	w, h := b.Dx(), b.Dy()

	scaleW := float64(targetW) / float64(w)
	scaleH := float64(targetH) / float64(h)
	scale := scaleW
	if scaleH < scale {
		scale = scaleH
	}
	newW := int(float64(w) * scale)
	newH := int(float64(h) * scale)

	scaled := resize.Resize(uint(newW), uint(newH), frame, resize.Lanczos3)

	out := image.NewRGBA(image.Rect(0, 0, targetW, targetH))
	draw.Draw(out, out.Bounds(), image.NewUniform(color.Black), image.Point{}, draw.Src)
	padW := (targetW - newW) / 2
	padH := (targetH - newH) / 2
	dst := image.Rect(padW, padH, padW+newW, padH+newH)
	draw.Draw(out, dst, scaled, scaled.Bounds().Min, draw.Src)
	return out
}
