package tasks

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/True3DLabs/VDA-inpainting/jobqueue"
	"github.com/True3DLabs/VDA-inpainting/scenes"
	"github.com/True3DLabs/VDA-inpainting/video"
)

// depthConcatTask stitches the per-scene depth archives into one run
// level depth.npz, substituting placeholder frames for scenes whose
// estimation output is missing, then refreshes the per-scene stats in
// metadata.json.
func depthConcatTask(j *jobqueue.Job, q *jobqueue.Queue, mu *sync.Mutex) error {
	ctx := j.Ctx
	runDir := RunDir(j.Input)

	meta, err := scenes.LoadMetadata(MetadataPath(runDir))
	if err != nil {
		q.PushJobStdout(j.ID, fmt.Sprintf("Failed to load run metadata: %v", err))
		q.ErrorJob(j.ID)
		return err
	}
	count := meta.ResolveSceneCount()
	if count == 0 {
		err := fmt.Errorf("no scenes recorded in %s", MetadataPath(runDir))
		q.PushJobStdout(j.ID, err.Error())
		q.ErrorJob(j.ID)
		return err
	}

	counter := func(videoPath string) (int, error) {
		return video.CountFrames(ctx, videoPath)
	}

	parts := scenes.CollectParts(runDir, count, counter)
	for _, p := range parts {
		q.PushJobStdout(j.ID, fmt.Sprintf("Scene %d: %s %s", p.Index, p.Status, p.Reason))
	}

	d, conf, err := scenes.Aggregate(parts)
	if err != nil {
		q.PushJobStdout(j.ID, fmt.Sprintf("Aggregation failed: %v", err))
		q.ErrorJob(j.ID)
		return err
	}

	npzPath := filepath.Join(runDir, "depth.npz")
	if err := scenes.WriteArchive(npzPath, d, conf); err != nil {
		q.PushJobStdout(j.ID, fmt.Sprintf("Failed to write %s: %v", npzPath, err))
		q.ErrorJob(j.ID)
		return err
	}
	q.PushJobStdout(j.ID, fmt.Sprintf("Wrote %s (%d frames, %dx%d)", npzPath, d.Frames, d.Width, d.Height))

	if err := scenes.UpdateDepthStats(runDir); err != nil {
		q.PushJobStdout(j.ID, fmt.Sprintf("Failed to update depth stats: %v", err))
		q.ErrorJob(j.ID)
		return err
	}

	q.CompleteJob(j.ID)
	return nil
}
