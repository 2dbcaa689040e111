// createdepthnpz concatenates per-scene depth archives from a run
// directory into a single depth.npz, substituting placeholder frames
// for scenes with no estimation output, and refreshes the per-scene
// statistics in metadata.json.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/True3DLabs/VDA-inpainting/scenes"
	"github.com/True3DLabs/VDA-inpainting/video"
)

func main() {
	var (
		runDir     string
		sceneCount int
		skipStats  bool
	)

	flag.StringVar(&runDir, "run", "", "Run directory containing scenes/ and metadata.json")
	flag.IntVar(&sceneCount, "scenes", 0, "Scene count override (default from metadata)")
	flag.BoolVar(&skipStats, "skip-stats", false, "Skip the metadata statistics refresh")
	flag.Parse()

	if runDir == "" {
		fmt.Fprintln(os.Stderr, "Error: --run is required")
		flag.Usage()
		os.Exit(2)
	}

	count := sceneCount
	if count == 0 {
		meta, err := scenes.LoadMetadata(filepath.Join(runDir, "metadata.json"))
		if err != nil {
			log.Fatalf("Failed to load metadata: %v", err)
		}
		count = meta.ResolveSceneCount()
	}
	if count == 0 {
		log.Fatalf("No scenes found; pass --scenes or run scenesplit first")
	}

	ctx := context.Background()
	counter := func(videoPath string) (int, error) {
		return video.CountFrames(ctx, videoPath)
	}

	parts := scenes.CollectParts(runDir, count, counter)
	for _, p := range parts {
		log.Printf("Scene %d: %s %s", p.Index, p.Status, p.Reason)
	}

	d, conf, err := scenes.Aggregate(parts)
	if err != nil {
		log.Fatalf("Aggregation failed: %v", err)
	}

	npzPath := filepath.Join(runDir, "depth.npz")
	if err := scenes.WriteArchive(npzPath, d, conf); err != nil {
		log.Fatalf("Failed to write %s: %v", npzPath, err)
	}
	log.Printf("Wrote %s (%d frames, %dx%d)", npzPath, d.Frames, d.Width, d.Height)

	if !skipStats {
		if err := scenes.UpdateDepthStats(runDir); err != nil {
			log.Fatalf("Failed to update depth stats: %v", err)
		}
	}
}
