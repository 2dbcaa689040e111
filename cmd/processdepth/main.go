// processdepth turns a run's concatenated depth archive into the
// deliverable grayscale depth video: per-frame blur and log transform,
// per-scene normalization, frame-count reconciliation against the
// reference color video, and libx264 encoding.
package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"

	"github.com/True3DLabs/VDA-inpainting/depth"
	"github.com/True3DLabs/VDA-inpainting/npz"
	"github.com/True3DLabs/VDA-inpainting/scenes"
	"github.com/True3DLabs/VDA-inpainting/video"
)

// dumpPTS writes the reference video's packet timestamps to a CSV for
// diagnosing depth/color frame-count disagreements.
func dumpPTS(ctx context.Context, videoPath, outPath string) error {
	pts, timebase, err := video.PTS(ctx, videoPath)
	if err != nil {
		return err
	}
	f, err := os.Create(outPath)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()
	if err := w.Write([]string{"index", "pts"}); err != nil {
		return err
	}
	for i, v := range pts {
		if err := w.Write([]string{strconv.Itoa(i), strconv.FormatInt(v, 10)}); err != nil {
			return err
		}
	}
	log.Printf("Wrote %s (%d packets, timebase %s)", outPath, len(pts), timebase)
	return nil
}

func main() {
	var (
		runDir    string
		refVideo  string
		outPath   string
		blurSigma float64
		logBase   float64
		sharpen   float64
		ptsCSV    string
	)

	flag.StringVar(&runDir, "run", "", "Run directory containing depth.npz and metadata.json")
	flag.StringVar(&refVideo, "video", "", "Reference color video for fps/frame-count reconciliation")
	flag.StringVar(&outPath, "out", "", "Output video path (default <run>/processed_depth.mp4)")
	flag.Float64Var(&blurSigma, "blur", 5.0, "Gaussian blur sigma")
	flag.Float64Var(&logBase, "log-base", 4.0, "Log transform base")
	flag.Float64Var(&sharpen, "sharpen", 0.0, "Sharpen factor (0..1)")
	flag.StringVar(&ptsCSV, "pts-csv", "", "Also dump the reference video's packet PTS values to this CSV")
	flag.Parse()

	if runDir == "" || refVideo == "" {
		fmt.Fprintln(os.Stderr, "Error: --run and --video are required")
		flag.Usage()
		os.Exit(2)
	}
	if outPath == "" {
		outPath = filepath.Join(runDir, "processed_depth.mp4")
	}

	metaPath := filepath.Join(runDir, "metadata.json")
	meta, err := scenes.LoadMetadata(metaPath)
	if err != nil {
		log.Fatalf("Failed to load metadata: %v", err)
	}

	npzPath := filepath.Join(runDir, "depth.npz")
	archive, err := npz.Load(npzPath)
	if err != nil {
		log.Fatalf("Failed to load %s: %v", npzPath, err)
	}
	entry, err := archive.Get("depth")
	if err != nil {
		log.Fatalf("Depth archive has no depth array: %v", err)
	}
	values, err := entry.Float32()
	if err != nil {
		log.Fatalf("Failed to decode depth array: %v", err)
	}
	d, err := depth.FromShape(entry.Shape, values)
	if err != nil {
		log.Fatalf("Bad depth array shape: %v", err)
	}
	log.Printf("Loaded depth array: %d frames, %dx%d", d.Frames, d.Width, d.Height)

	starts, err := meta.BoundaryFrames(d.Frames)
	if err != nil {
		log.Fatalf("Cannot derive scene boundaries: %v", err)
	}

	pp := depth.PostProcessing{BlurSigma: blurSigma, LogBase: logBase, Sharpen: sharpen}
	transformed, err := depth.Transform(d, pp)
	if err != nil {
		log.Fatalf("Depth transform failed: %v", err)
	}
	normalized, stats := depth.NormalizeByScene(transformed, starts)

	ctx := context.Background()
	target, err := video.CountFrames(ctx, refVideo)
	if err != nil {
		log.Fatalf("Failed to count reference frames: %v", err)
	}
	if ptsCSV != "" {
		if err := dumpPTS(ctx, refVideo, ptsCSV); err != nil {
			log.Fatalf("PTS dump failed: %v", err)
		}
	}
	if target != normalized.Frames {
		log.Printf("Resampling %d depth frames to %d video frames", normalized.Frames, target)
		normalized = depth.Reconcile(normalized, target)
	}

	info, err := video.Probe(ctx, refVideo)
	if err != nil {
		log.Fatalf("Probe failed: %v", err)
	}
	fps := meta.FPS
	if fps <= 0 {
		fps = info.FPS
	}

	err = video.EncodeGray(normalized, outPath, video.EncodeGrayOptions{
		FPS:      fps,
		Duration: info.Duration,
	})
	if err != nil {
		log.Fatalf("Depth video encode failed: %v", err)
	}
	log.Printf("Wrote %s (%d frames at %.3f fps)", outPath, normalized.Frames, fps)

	scenes.RecordProcessedStats(meta, stats, pp)
	if err := meta.Save(metaPath); err != nil {
		log.Fatalf("Failed to update metadata: %v", err)
	}
}
