// blendimg blends two images: a plain weighted average, or a
// normal-direction blend that keeps the original where surfaces face
// the camera and mixes in the normal map elsewhere.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/True3DLabs/VDA-inpainting/blend"
)

func main() {
	var (
		img1Path string
		img2Path string
		outPath  string
		mode     string
		w1       float64
		w2       float64
		strength float64
	)

	flag.StringVar(&img1Path, "a", "", "First input image (the original for normal mode)")
	flag.StringVar(&img2Path, "b", "", "Second input image (the normal map for normal mode)")
	flag.StringVar(&outPath, "out", "blended.png", "Output PNG path")
	flag.StringVar(&mode, "mode", "weighted", "Blend mode: weighted|normal")
	flag.Float64Var(&w1, "w1", 0.5, "Weight of the first image (weighted mode)")
	flag.Float64Var(&w2, "w2", 0.5, "Weight of the second image (weighted mode)")
	flag.Float64Var(&strength, "strength", 1.0, "Normal-direction blend strength (normal mode)")
	flag.Parse()

	if img1Path == "" || img2Path == "" {
		fmt.Fprintln(os.Stderr, "Error: --a and --b are required")
		flag.Usage()
		os.Exit(2)
	}

	var err error
	switch mode {
	case "weighted":
		err = blend.WeightedFile(img1Path, img2Path, outPath, w1, w2)
	case "normal":
		err = blend.ByNormalDirectionFile(img1Path, img2Path, outPath, strength)
	default:
		log.Fatalf("Unknown blend mode %q (want weighted or normal)", mode)
	}
	if err != nil {
		log.Fatalf("Blend failed: %v", err)
	}
	log.Printf("Wrote %s", outPath)
}
