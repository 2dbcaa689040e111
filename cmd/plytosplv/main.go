// plytosplv converts a sequence of PLY point-cloud frames into a
// streamable voxel video (.splv). All frames are quantized against a
// shared cubic bounding box so the volume does not swim between frames.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"

	"github.com/True3DLabs/VDA-inpainting/splv"
)

func main() {
	var (
		inDir   string
		outPath string
		width   int
		height  int
		depth   int
		fps     float64
	)

	flag.StringVar(&inDir, "in", "", "Directory of .ply frames (sorted by name)")
	flag.StringVar(&outPath, "out", "output.splv", "Output splv path")
	flag.IntVar(&width, "width", 256, "Voxel grid width")
	flag.IntVar(&height, "height", 256, "Voxel grid height")
	flag.IntVar(&depth, "depth", 256, "Voxel grid depth")
	flag.Float64Var(&fps, "fps", 24, "Playback framerate")
	flag.Parse()

	if inDir == "" {
		fmt.Fprintln(os.Stderr, "Error: --in is required")
		flag.Usage()
		os.Exit(2)
	}

	matches, err := filepath.Glob(filepath.Join(inDir, "*.ply"))
	if err != nil {
		log.Fatalf("Failed to list %s: %v", inDir, err)
	}
	if len(matches) == 0 {
		log.Fatalf("No .ply files found in %s", inDir)
	}
	sort.Strings(matches)

	bounds, err := splv.WorldBounds(matches)
	if err != nil {
		log.Fatalf("Failed to compute world bounds: %v", err)
	}
	bounds = bounds.Cubic()

	enc, err := splv.NewEncoder(outPath, width, height, depth, fps)
	if err != nil {
		log.Fatalf("Failed to create encoder: %v", err)
	}

	for i, path := range matches {
		points, err := splv.LoadPLY(path)
		if err != nil {
			log.Fatalf("Failed to read %s: %v", path, err)
		}
		frame := splv.QuantizePoints(points, bounds, width, height, depth)
		if err := enc.Encode(frame); err != nil {
			log.Fatalf("Failed to encode frame %d: %v", i+1, err)
		}
		log.Printf("Frame %d/%d: %d points -> %d voxels", i+1, len(matches), len(points), frame.Len())
	}

	if err := enc.Finish(); err != nil {
		log.Fatalf("Failed to finish %s: %v", outPath, err)
	}
	log.Printf("Wrote %s (%d frames)", outPath, len(matches))
}
