// depthinfer runs an ONNX monocular depth (or surface normal) model
// over a directory of extracted frames and writes the stacked result
// as an npz archive.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/True3DLabs/VDA-inpainting/onnxdepth"
)

func main() {
	var (
		modelPath  string
		framesDir  string
		outPath    string
		ortLibPath string
		inputName  string
		outputName string
		inputSize  int
		interp     string
		normals    bool
	)

	flag.StringVar(&modelPath, "model", "", "Path to ONNX depth model file")
	flag.StringVar(&framesDir, "frames", "", "Directory of frame_NNNNNN.png frames")
	flag.StringVar(&outPath, "out", "depth_results.npz", "Output npz path")
	flag.StringVar(&ortLibPath, "ort", "", "Path to onnxruntime shared library (optional)")
	flag.StringVar(&inputName, "input", "", "Model input tensor name (default from model type)")
	flag.StringVar(&outputName, "output", "", "Model output tensor name (default from model type)")
	flag.IntVar(&inputSize, "size", 0, "Working resize long-side length (default 518)")
	flag.StringVar(&interp, "interp", "", "Interpolation: bicubic|bilinear|nearest|catmullrom")
	flag.BoolVar(&normals, "normals", false, "Run a surface-normal model instead of depth")
	flag.Parse()

	if modelPath == "" || framesDir == "" {
		fmt.Fprintln(os.Stderr, "Error: --model and --frames are required")
		flag.Usage()
		os.Exit(2)
	}

	opts := onnxdepth.DefaultOptions()
	if normals {
		opts = onnxdepth.NormalOptions()
	}
	if ortLibPath != "" {
		opts.ORTSharedLibraryPath = ortLibPath
	}
	if inputName != "" {
		opts.InputName = inputName
	}
	if outputName != "" {
		opts.OutputName = outputName
	}
	if inputSize > 0 {
		opts.InputSize = inputSize
	}
	if interp != "" {
		opts.Interpolation = interp
	}

	if err := onnxdepth.EstimateToArchive(modelPath, framesDir, outPath, opts); err != nil {
		log.Fatalf("Depth inference failed: %v", err)
	}
	log.Printf("Wrote %s", outPath)
}
