//go:build !cgo
// +build !cgo

// Package onnxdepth drives monocular depth and surface-normal ONNX
// models through ONNX Runtime. This is a stub file for non-CGO builds
// where ONNX Runtime is not available.
package onnxdepth

import (
	"errors"

	"github.com/True3DLabs/VDA-inpainting/depth"
)

// ErrCGORequired is returned when depth inference is attempted without CGO support.
var ErrCGORequired = errors.New("onnxdepth requires CGO support; rebuild with CGO_ENABLED=1")

// Options configures how the estimator runs.
type Options struct {
	ORTSharedLibraryPath string
	InputName            string
	OutputName           string
	InputSize            int
	NormalizeMeanRGB     [3]float32
	NormalizeStddevRGB   [3]float32
	Interpolation        string
	OutputChannels       int
}

// DefaultOptions returns default Options.
func DefaultOptions() Options {
	return Options{OutputChannels: 1}
}

// NormalOptions returns Options for surface-normal models.
func NormalOptions() Options {
	return Options{OutputChannels: 3}
}

// Estimator runs one loaded model over many frames.
type Estimator struct{}

// NewEstimator returns an error indicating CGO is required.
func NewEstimator(modelPath string, opts Options) (*Estimator, error) {
	return nil, ErrCGORequired
}

// Close is a no-op in non-CGO builds.
func (e *Estimator) Close() {}

// DepthFrame returns an error indicating CGO is required.
func (e *Estimator) DepthFrame(imagePath string) (*depth.Array, error) {
	return nil, ErrCGORequired
}

// NormalFrame returns an error indicating CGO is required.
func (e *Estimator) NormalFrame(imagePath string) ([][]float32, int, int, error) {
	return nil, 0, 0, ErrCGORequired
}
