// scenesplit splits a video into scenes, extracts each scene's frames,
// and writes the run's metadata.json.
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
		videoPath string
		outDir    string
		threshold float64
		noFrames  bool
	)

	flag.StringVar(&videoPath, "video", "", "Path to the input video")
	flag.StringVar(&outDir, "out", "", "Output run directory (default: video name without extension)")
	flag.Float64Var(&threshold, "threshold", video.DefaultSceneThreshold, "Scene cut detection threshold (0..1)")
	flag.BoolVar(&noFrames, "no-frames", false, "Skip per-scene frame extraction")
	flag.Parse()

	if videoPath == "" {
		fmt.Fprintln(os.Stderr, "Error: --video is required")
		flag.Usage()
		os.Exit(2)
	}
	if outDir == "" {
		base := filepath.Base(videoPath)
		outDir = base[:len(base)-len(filepath.Ext(base))]
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		log.Fatalf("Failed to create %s: %v", outDir, err)
	}

	ctx := context.Background()

	info, err := video.Probe(ctx, videoPath)
	if err != nil {
		log.Fatalf("Probe failed: %v", err)
	}
	log.Printf("Input: %dx%d, %.3f fps, %.2fs", info.Width, info.Height, info.FPS, info.Duration)

	starts, err := video.DetectSceneTimestamps(ctx, videoPath, threshold)
	if err != nil {
		log.Fatalf("Scene detection failed: %v", err)
	}
	log.Printf("Detected %d scenes", len(starts))

	scenesDir := filepath.Join(outDir, "scenes")
	sceneFiles, err := video.SplitScenes(videoPath, scenesDir, starts, info.Duration)
	if err != nil {
		log.Fatalf("Scene split failed: %v", err)
	}

	if !noFrames {
		for i, scenePath := range sceneFiles {
			framesDir := filepath.Join(filepath.Dir(scenePath), "frames")
			if err := video.ExtractFrames(scenePath, framesDir); err != nil {
				log.Fatalf("Frame extraction failed for scene %d: %v", i+1, err)
			}
			log.Printf("Extracted frames for scene %d/%d", i+1, len(sceneFiles))
		}
	}

	meta := &scenes.Metadata{
		SceneTimestamps: starts,
		FPS:             info.FPS,
		SceneCount:      len(sceneFiles),
	}
	metaPath := filepath.Join(outDir, "metadata.json")
	if err := meta.Save(metaPath); err != nil {
		log.Fatalf("Failed to write %s: %v", metaPath, err)
	}
	log.Printf("Wrote %s", metaPath)
}
