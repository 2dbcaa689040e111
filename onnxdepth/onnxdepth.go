//go:build cgo
// +build cgo

// Package onnxdepth drives monocular depth and surface-normal ONNX
// models through ONNX Runtime. It handles image decode, the
// multiple-of-14 working-size resize the models expect, mean/std
// normalization, and resampling the prediction back to source size.
package onnxdepth

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"strings"
	"sync"

	resize "github.com/nfnt/resize"
	ort "github.com/yalue/onnxruntime_go"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"github.com/True3DLabs/VDA-inpainting/depth"
)

// Options configures how the estimator runs.
type Options struct {
	// Path to the onnxruntime shared library (.dll/.so/.dylib). If empty, the
	// environment variable ONNXRUNTIME_SHARED_LIBRARY_PATH will be respected.
	ORTSharedLibraryPath string

	// Input and output tensor names in the model graph.
	InputName  string
	OutputName string

	// InputSize is the target long-side length for the working resize.
	InputSize int

	NormalizeMeanRGB   [3]float32
	NormalizeStddevRGB [3]float32

	// Interpolation filter name: "bicubic", "bilinear", "nearest", or "catmullrom".
	Interpolation string

	// OutputChannels is 1 for depth models, 3 for surface-normal models.
	OutputChannels int
}

// DefaultOptions returns the configuration for Depth-Anything-style
// models (ImageNet normalization, 518px working size).
func DefaultOptions() Options {
	return Options{
		InputName:          "pixel_values",
		OutputName:         "predicted_depth",
		InputSize:          518,
		NormalizeMeanRGB:   [3]float32{0.485, 0.456, 0.406},
		NormalizeStddevRGB: [3]float32{0.229, 0.224, 0.225},
		Interpolation:      "bicubic",
		OutputChannels:     1,
	}
}

// NormalOptions returns the configuration for a surface-normal model
// sharing the Depth-Anything preprocessing.
func NormalOptions() Options {
	opts := DefaultOptions()
	opts.OutputName = "normals"
	opts.OutputChannels = 3
	return opts
}

var ortInit sync.Once

func initRuntime(libPath string) error {
	var err error
	ortInit.Do(func() {
		if libPath != "" {
			ort.SetSharedLibraryPath(libPath)
		} else if p := os.Getenv("ONNXRUNTIME_SHARED_LIBRARY_PATH"); p != "" {
			ort.SetSharedLibraryPath(p)
		}
		err = ort.InitializeEnvironment()
	})
	return err
}

// Estimator runs one loaded model over many frames.
type Estimator struct {
	session *ort.DynamicAdvancedSession
	opts    Options
}

// NewEstimator loads the model at modelPath.
func NewEstimator(modelPath string, opts Options) (*Estimator, error) {
	if opts.InputName == "" || opts.OutputName == "" {
		return nil, errors.New("input and output names must be provided")
	}
	if opts.OutputChannels != 1 && opts.OutputChannels != 3 {
		return nil, fmt.Errorf("unsupported output channel count %d", opts.OutputChannels)
	}
	if err := initRuntime(opts.ORTSharedLibraryPath); err != nil {
		return nil, fmt.Errorf("failed to initialize onnxruntime: %w", err)
	}

	session, err := ort.NewDynamicAdvancedSession(
		modelPath,
		[]string{opts.InputName},
		[]string{opts.OutputName},
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load model %s: %w", modelPath, err)
	}
	return &Estimator{session: session, opts: opts}, nil
}

// Close releases the model session.
func (e *Estimator) Close() {
	if e.session != nil {
		e.session.Destroy()
		e.session = nil
	}
}

// DepthFrame runs the model on one image file and returns a 1-frame
// depth array at the source resolution.
func (e *Estimator) DepthFrame(imagePath string) (*depth.Array, error) {
	if e.opts.OutputChannels != 1 {
		return nil, errors.New("estimator is configured for normal maps, not depth")
	}
	planes, srcW, srcH, err := e.run(imagePath)
	if err != nil {
		return nil, err
	}
	d := depth.New(1, srcH, srcW)
	copy(d.Data, planes[0])
	return d, nil
}

// NormalFrame runs a surface-normal model on one image file and returns
// the three channel planes (x, y, z) at source resolution.
func (e *Estimator) NormalFrame(imagePath string) ([][]float32, int, int, error) {
	if e.opts.OutputChannels != 3 {
		return nil, 0, 0, errors.New("estimator is configured for depth, not normal maps")
	}
	planes, srcW, srcH, err := e.run(imagePath)
	if err != nil {
		return nil, 0, 0, err
	}
	return planes, srcW, srcH, nil
}

// run executes the model over one image and returns per-channel planes
// resampled back to the source size.
func (e *Estimator) run(imagePath string) ([][]float32, int, int, error) {
	tensor, srcW, srcH, workW, workH, err := loadImageTensor(imagePath, e.opts)
	if err != nil {
		return nil, 0, 0, err
	}
	defer tensor.Destroy()

	outputs := []ort.Value{nil}
	if err := e.session.Run([]ort.Value{tensor}, outputs); err != nil {
		return nil, 0, 0, fmt.Errorf("inference failed for %s: %w", imagePath, err)
	}
	out, ok := outputs[0].(*ort.Tensor[float32])
	if !ok {
		return nil, 0, 0, fmt.Errorf("unexpected output tensor type for %s", imagePath)
	}
	defer out.Destroy()

	raw := out.GetData()
	channels := e.opts.OutputChannels
	plane := workW * workH
	if len(raw) != channels*plane {
		return nil, 0, 0, fmt.Errorf("unexpected output size %d for %dx%dx%d prediction",
			len(raw), channels, workH, workW)
	}

	planes := make([][]float32, channels)
	for c := 0; c < channels; c++ {
		planes[c] = bilinearResize(raw[c*plane:(c+1)*plane], workW, workH, srcW, srcH)
	}
	return planes, srcW, srcH, nil
}

// loadImageTensor decodes, resizes, and normalizes an image into an
// NCHW float32 tensor at the model's working size.
func loadImageTensor(path string, opts Options) (*ort.Tensor[float32], int, int, int, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, 0, 0, 0, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, 0, 0, 0, 0, fmt.Errorf("failed to decode %s: %w", path, err)
	}

	b := img.Bounds()
	srcW, srcH := b.Dx(), b.Dy()
	workW, workH := workingSize(srcW, srcH, opts.InputSize)

	// Resize to working size with the chosen resampling.
	var dst image.Image
	if strings.EqualFold(strings.TrimSpace(opts.Interpolation), "bicubic") {
		dst = resize.Resize(uint(workW), uint(workH), img, resize.Bicubic)
	} else {
		rgba := image.NewRGBA(image.Rect(0, 0, workW, workH))
		scaler := chooseScaler(opts.Interpolation)
		scaler.Scale(rgba, rgba.Bounds(), img, b, draw.Src, nil)
		dst = rgba
	}

	stdR := opts.NormalizeStddevRGB[0]
	stdG := opts.NormalizeStddevRGB[1]
	stdB := opts.NormalizeStddevRGB[2]
	if stdR == 0 {
		stdR = 1
	}
	if stdG == 0 {
		stdG = 1
	}
	if stdB == 0 {
		stdB = 1
	}

	numPixels := workW * workH
	data := make([]float32, 3*numPixels)
	rOff := 0
	gOff := numPixels
	bOff := 2 * numPixels
	idx := 0
	for y := 0; y < workH; y++ {
		for x := 0; x < workW; x++ {
			c := color.RGBAModel.Convert(dst.At(x, y)).(color.RGBA)
			r := float32(c.R) / 255.0
			g := float32(c.G) / 255.0
			bl := float32(c.B) / 255.0
			data[rOff+idx] = (r - opts.NormalizeMeanRGB[0]) / stdR
			data[gOff+idx] = (g - opts.NormalizeMeanRGB[1]) / stdG
			data[bOff+idx] = (bl - opts.NormalizeMeanRGB[2]) / stdB
			idx++
		}
	}

	shape := ort.NewShape(1, 3, int64(workH), int64(workW))
	tensor, err := ort.NewTensor(shape, data)
	if err != nil {
		return nil, 0, 0, 0, 0, err
	}
	return tensor, srcW, srcH, workW, workH, nil
}

func chooseScaler(name string) draw.Scaler {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "bilinear":
		return draw.BiLinear
	case "nearest":
		return draw.NearestNeighbor
	case "catmullrom", "bicubic":
		fallthrough
	default:
		return draw.CatmullRom
	}
}
