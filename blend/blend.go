// Package blend composites pairs of images: plain weighted blending,
// and direction-aware blending driven by a surface-normal map's Z
// channel.
package blend

import (
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	"image/png"
	"math"
	"os"

	resize "github.com/nfnt/resize"
	_ "golang.org/x/image/webp"
)

// loadRGB decodes an image file into an RGBA buffer.
func loadRGB(path string) (*image.RGBA, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return toRGBA(img), nil
}

func toRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok {
		return rgba
	}
	b := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			rgba.Set(x, y, img.At(b.Min.X+x, b.Min.Y+y))
		}
	}
	return rgba
}

// matchSize returns img resized to w×h with Lanczos resampling, or img
// unchanged when it already matches.
func matchSize(img *image.RGBA, w, h int) *image.RGBA {
	b := img.Bounds()
	if b.Dx() == w && b.Dy() == h {
		return img
	}
	return toRGBA(resize.Resize(uint(w), uint(h), img, resize.Lanczos3))
}

func clampByte(v float64) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}

// Weighted blends two images as w1*img1 + w2*img2, clipped to [0,255].
// The second image is resized to the first's dimensions when they
// differ.
func Weighted(img1, img2 *image.RGBA, w1, w2 float64) *image.RGBA {
	b := img1.Bounds()
	width, height := b.Dx(), b.Dy()
	img2 = matchSize(img2, width, height)

	out := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			c1 := img1.RGBAAt(x, y)
			c2 := img2.RGBAAt(x, y)
			out.SetRGBA(x, y, color.RGBA{
				R: clampByte(w1*float64(c1.R) + w2*float64(c2.R)),
				G: clampByte(w1*float64(c1.G) + w2*float64(c2.G)),
				B: clampByte(w1*float64(c1.B) + w2*float64(c2.B)),
				A: 255,
			})
		}
	}
	return out
}

// ByNormalDirection composites an original image with its normal map.
// The normal map's blue channel encodes the Z component: pixels facing
// the camera (high Z) keep the original, pixels perpendicular to it
// (low Z) take the normal map color. strength != 1 reshapes the factor
// as factor^(1/strength), so strength > 1 exposes more of the normal
// map.
func ByNormalDirection(original, normalMap *image.RGBA, strength float64) *image.RGBA {
	b := original.Bounds()
	width, height := b.Dx(), b.Dy()
	normalMap = matchSize(normalMap, width, height)

	out := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			co := original.RGBAAt(x, y)
			cn := normalMap.RGBAAt(x, y)

			factor := float64(cn.B) / 255.0
			if strength != 1.0 && strength > 0 {
				factor = math.Pow(factor, 1.0/strength)
			}

			out.SetRGBA(x, y, color.RGBA{
				R: clampByte(factor*float64(co.R) + (1-factor)*float64(cn.R)),
				G: clampByte(factor*float64(co.G) + (1-factor)*float64(cn.G)),
				B: clampByte(factor*float64(co.B) + (1-factor)*float64(cn.B)),
				A: 255,
			})
		}
	}
	return out
}

// WeightedFile blends two image files and writes the result as PNG.
func WeightedFile(img1Path, img2Path, outPath string, w1, w2 float64) error {
	img1, err := loadRGB(img1Path)
	if err != nil {
		return err
	}
	img2, err := loadRGB(img2Path)
	if err != nil {
		return err
	}
	return savePNG(outPath, Weighted(img1, img2, w1, w2))
}

// ByNormalDirectionFile blends an image file with a normal-map file and
// writes the result as PNG.
func ByNormalDirectionFile(originalPath, normalPath, outPath string, strength float64) error {
	original, err := loadRGB(originalPath)
	if err != nil {
		return err
	}
	normalMap, err := loadRGB(normalPath)
	if err != nil {
		return err
	}
	return savePNG(outPath, ByNormalDirection(original, normalMap, strength))
}

func savePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	return nil
}
