// depthstats reports per-frame or per-scene depth ranges from an npz
// archive as CSV, for checking normalization behavior across scene
// boundaries.
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/True3DLabs/VDA-inpainting/depth"
	"github.com/True3DLabs/VDA-inpainting/npz"
	"github.com/True3DLabs/VDA-inpainting/scenes"
)

func loadDepth(npzPath, key string) (*depth.Array, error) {
	archive, err := npz.Load(npzPath)
	if err != nil {
		return nil, err
	}
	entry, err := archive.Get(key)
	if err != nil {
		return nil, err
	}
	values, err := entry.Float32()
	if err != nil {
		return nil, err
	}
	return depth.FromShape(entry.Shape, values)
}

func main() {
	var (
		npzPath  string
		metaPath string
		key      string
		outPath  string
		perFrame bool
	)

	flag.StringVar(&npzPath, "npz", "", "Path to depth npz archive")
	flag.StringVar(&metaPath, "metadata", "", "metadata.json with scene timestamps (enables per-scene rows)")
	flag.StringVar(&key, "key", "depth", "Array name inside the archive")
	flag.StringVar(&outPath, "out", "", "Output CSV path (default stdout)")
	flag.BoolVar(&perFrame, "per-frame", false, "Emit one row per frame instead of per scene")
	flag.Parse()

	if npzPath == "" {
		fmt.Fprintln(os.Stderr, "Error: --npz is required")
		flag.Usage()
		os.Exit(2)
	}

	d, err := loadDepth(npzPath, key)
	if err != nil {
		log.Fatalf("Failed to load %s: %v", npzPath, err)
	}

	out := os.Stdout
	if outPath != "" {
		f, err := os.Create(outPath)
		if err != nil {
			log.Fatalf("Failed to create %s: %v", outPath, err)
		}
		defer f.Close()
		out = f
	}
	w := csv.NewWriter(out)
	defer w.Flush()

	if perFrame {
		w.Write([]string{"frame", "min_depth", "max_depth"})
		for i := 0; i < d.Frames; i++ {
			frame := d.Frame(i)
			min, max := frame[0], frame[0]
			for _, v := range frame {
				if v < min {
					min = v
				}
				if v > max {
					max = v
				}
			}
			w.Write([]string{
				strconv.Itoa(i),
				strconv.FormatFloat(float64(min), 'f', 4, 64),
				strconv.FormatFloat(float64(max), 'f', 4, 64),
			})
		}
		return
	}

	var starts []int
	if metaPath != "" {
		meta, err := scenes.LoadMetadata(metaPath)
		if err != nil {
			log.Fatalf("Failed to load metadata: %v", err)
		}
		starts, err = meta.BoundaryFrames(d.Frames)
		if err != nil {
			log.Fatalf("Cannot derive scene boundaries: %v", err)
		}
	}

	stats := depth.StatsByScene(d, starts)
	w.Write([]string{"scene", "min_depth", "max_depth", "screen_dist"})
	for i, s := range stats {
		w.Write([]string{
			strconv.Itoa(i + 1),
			strconv.FormatFloat(s.Min, 'f', 4, 64),
			strconv.FormatFloat(s.Max, 'f', 4, 64),
			strconv.FormatFloat(s.ScreenDist, 'f', 4, 64),
		})
	}
}
