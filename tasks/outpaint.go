package tasks

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/True3DLabs/VDA-inpainting/appconfig"
	"github.com/True3DLabs/VDA-inpainting/deps"
	"github.com/True3DLabs/VDA-inpainting/jobqueue"
	"github.com/True3DLabs/VDA-inpainting/outpaint"
	"github.com/True3DLabs/VDA-inpainting/video"
)

// diffusionBaseURL prefers the configured server, then the managed
// diffusion dependency's recorded address.
func diffusionBaseURL() string {
	if u := appconfig.Get().DiffusionBaseURL; u != "" {
		return u
	}
	return deps.DiffusionURL()
}

// outpaintTask expands the input video's canvas through the diffusion
// server: extracts frames, outpaints the first frame, and infills the
// expanded margins across the whole clip. Outputs land under
// <run>/outpaint/.
func outpaintTask(j *jobqueue.Job, q *jobqueue.Queue, mu *sync.Mutex) error {
	ctx := j.Ctx
	runDir := RunDir(j.Input)
	outDir := filepath.Join(runDir, "outpaint")

	framesDir := filepath.Join(outDir, "frames")
	if err := os.MkdirAll(framesDir, 0o755); err != nil {
		q.ErrorJob(j.ID)
		return err
	}

	q.PushJobStdout(j.ID, "Extracting frames for outpainting")
	if err := video.ExtractFrames(j.Input, framesDir); err != nil {
		q.PushJobStdout(j.ID, fmt.Sprintf("Frame extraction failed: %v", err))
		q.ErrorJob(j.ID)
		return err
	}

	fps := 0.0
	if info, err := video.Probe(ctx, j.Input); err == nil {
		fps = info.FPS
	} else {
		q.PushJobStdout(j.ID, fmt.Sprintf("Probe failed, using default fps: %v", err))
	}

	client := outpaint.NewClient(diffusionBaseURL())
	q.PushJobStdout(j.ID, fmt.Sprintf("Outpainting via diffusion server at %s", diffusionBaseURL()))

	res, err := outpaint.ProcessVideo(ctx, client, outDir, fps)
	if err != nil {
		q.PushJobStdout(j.ID, fmt.Sprintf("Outpainting failed: %v", err))
		q.ErrorJob(j.ID)
		return err
	}

	q.PushJobStdout(j.ID, fmt.Sprintf("Expanded first frame: %s", res.ExpandedInitFrame))
	q.PushJobStdout(j.ID, fmt.Sprintf("Outpainted video: %s", res.OutputVideo))
	q.CompleteJob(j.ID)
	return nil
}
