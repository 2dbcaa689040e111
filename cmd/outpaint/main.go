// outpaint expands a video's canvas through the diffusion server:
// frames are extracted, the first frame is outpainted with transparent
// margins, and the expanded margins are infilled across the whole clip.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/True3DLabs/VDA-inpainting/outpaint"
	"github.com/True3DLabs/VDA-inpainting/video"
)

func main() {
	var (
		videoPath string
		outDir    string
		serverURL string
		fps       float64
	)

	flag.StringVar(&videoPath, "video", "", "Path to the input video")
	flag.StringVar(&outDir, "out", "", "Output directory (default: <video name>_outpaint)")
	flag.StringVar(&serverURL, "server", "http://localhost:8500", "Diffusion server base URL")
	flag.Float64Var(&fps, "fps", 0, "Output framerate (default: probed from the input)")
	flag.Parse()

	if videoPath == "" {
		fmt.Fprintln(os.Stderr, "Error: --video is required")
		flag.Usage()
		os.Exit(2)
	}
	if outDir == "" {
		base := filepath.Base(videoPath)
		outDir = base[:len(base)-len(filepath.Ext(base))] + "_outpaint"
	}

	ctx := context.Background()

	framesDir := filepath.Join(outDir, "frames")
	if err := os.MkdirAll(framesDir, 0o755); err != nil {
		log.Fatalf("Failed to create %s: %v", framesDir, err)
	}
	if err := video.ExtractFrames(videoPath, framesDir); err != nil {
		log.Fatalf("Frame extraction failed: %v", err)
	}

	if fps <= 0 {
		if info, err := video.Probe(ctx, videoPath); err == nil {
			fps = info.FPS
		} else {
			log.Printf("Probe failed, using default fps: %v", err)
		}
	}

	client := outpaint.NewClient(serverURL)
	res, err := outpaint.ProcessVideo(ctx, client, outDir, fps)
	if err != nil {
		log.Fatalf("Outpainting failed: %v", err)
	}

	log.Printf("Expanded first frame: %s", res.ExpandedInitFrame)
	log.Printf("Outpainted video: %s", res.OutputVideo)
}
