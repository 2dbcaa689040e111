package tasks

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/True3DLabs/VDA-inpainting/appconfig"
	"github.com/True3DLabs/VDA-inpainting/depth"
	"github.com/True3DLabs/VDA-inpainting/jobqueue"
	"github.com/True3DLabs/VDA-inpainting/npz"
	"github.com/True3DLabs/VDA-inpainting/scenes"
	"github.com/True3DLabs/VDA-inpainting/video"
)

// postProcessingFor prefers parameters already recorded in the run's
// metadata over the configured defaults, so a re-run reproduces the
// earlier transform.
func postProcessingFor(meta *scenes.Metadata) depth.PostProcessing {
	if meta.PostProcessing != nil {
		return *meta.PostProcessing
	}
	cfg := appconfig.Get()
	return depth.PostProcessing{
		BlurSigma: cfg.PostProcessing.BlurSigma,
		LogBase:   cfg.PostProcessing.LogBase,
		Sharpen:   cfg.PostProcessing.SharpenFactor,
	}
}

// depthProcessTask turns the run's concatenated depth archive into the
// deliverable grayscale depth video: blur and log transform each frame,
// normalize per scene, resample to the color video's exact frame count,
// and encode with the color video's fps and duration.
func depthProcessTask(j *jobqueue.Job, q *jobqueue.Queue, mu *sync.Mutex) error {
	ctx := j.Ctx
	runDir := RunDir(j.Input)

	meta, err := scenes.LoadMetadata(MetadataPath(runDir))
	if err != nil {
		q.PushJobStdout(j.ID, fmt.Sprintf("Failed to load run metadata: %v", err))
		q.ErrorJob(j.ID)
		return err
	}

	npzPath := filepath.Join(runDir, "depth.npz")
	archive, err := npz.Load(npzPath)
	if err != nil {
		q.PushJobStdout(j.ID, fmt.Sprintf("Failed to load %s: %v", npzPath, err))
		q.ErrorJob(j.ID)
		return err
	}
	entry, err := archive.Get("depth")
	if err != nil {
		q.PushJobStdout(j.ID, fmt.Sprintf("Depth archive has no depth array: %v", err))
		q.ErrorJob(j.ID)
		return err
	}
	values, err := entry.Float32()
	if err != nil {
		q.PushJobStdout(j.ID, fmt.Sprintf("Failed to decode depth array: %v", err))
		q.ErrorJob(j.ID)
		return err
	}
	d, err := depth.FromShape(entry.Shape, values)
	if err != nil {
		q.PushJobStdout(j.ID, fmt.Sprintf("Bad depth array shape: %v", err))
		q.ErrorJob(j.ID)
		return err
	}
	q.PushJobStdout(j.ID, fmt.Sprintf("Loaded depth array: %d frames, %dx%d", d.Frames, d.Width, d.Height))

	starts, err := meta.BoundaryFrames(d.Frames)
	if err != nil {
		q.PushJobStdout(j.ID, fmt.Sprintf("Cannot derive scene boundaries: %v", err))
		q.ErrorJob(j.ID)
		return err
	}

	pp := postProcessingFor(meta)
	q.PushJobStdout(j.ID, fmt.Sprintf("Transform: blur sigma %.1f, log base %.1f, sharpen %.1f",
		pp.BlurSigma, pp.LogBase, pp.Sharpen))
	transformed, err := depth.Transform(d, pp)
	if err != nil {
		q.PushJobStdout(j.ID, fmt.Sprintf("Depth transform failed: %v", err))
		q.ErrorJob(j.ID)
		return err
	}

	normalized, stats := depth.NormalizeByScene(transformed, starts)

	target, err := video.CountFrames(ctx, j.Input)
	if err != nil {
		q.PushJobStdout(j.ID, fmt.Sprintf("Failed to count input frames: %v", err))
		q.ErrorJob(j.ID)
		return err
	}
	if target != normalized.Frames {
		q.PushJobStdout(j.ID, fmt.Sprintf("Resampling %d depth frames to %d video frames", normalized.Frames, target))
		normalized = depth.Reconcile(normalized, target)
	}

	info, err := video.Probe(ctx, j.Input)
	if err != nil {
		q.PushJobStdout(j.ID, fmt.Sprintf("Probe failed: %v", err))
		q.ErrorJob(j.ID)
		return err
	}
	fps := meta.FPS
	if fps <= 0 {
		fps = info.FPS
	}

	outPath := filepath.Join(runDir, "processed_depth.mp4")
	err = video.EncodeGray(normalized, outPath, video.EncodeGrayOptions{
		FPS:      fps,
		Duration: info.Duration,
	})
	if err != nil {
		q.PushJobStdout(j.ID, fmt.Sprintf("Depth video encode failed: %v", err))
		q.ErrorJob(j.ID)
		return err
	}
	q.PushJobStdout(j.ID, fmt.Sprintf("Wrote %s (%d frames at %.3f fps)", outPath, normalized.Frames, fps))

	scenes.RecordProcessedStats(meta, stats, pp)
	if err := meta.Save(MetadataPath(runDir)); err != nil {
		q.PushJobStdout(j.ID, fmt.Sprintf("Failed to update metadata: %v", err))
		q.ErrorJob(j.ID)
		return err
	}

	q.CompleteJob(j.ID)
	return nil
}
