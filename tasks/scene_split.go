package tasks

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/True3DLabs/VDA-inpainting/appconfig"
	"github.com/True3DLabs/VDA-inpainting/jobqueue"
	"github.com/True3DLabs/VDA-inpainting/scenes"
	"github.com/True3DLabs/VDA-inpainting/video"
)

// sceneSplitTask detects scene cuts in the input video, splits it into
// per-scene clips under <run>/scenes/scene_NNN/, extracts each scene's
// frames, and records timestamps and fps in the run metadata.
func sceneSplitTask(j *jobqueue.Job, q *jobqueue.Queue, mu *sync.Mutex) error {
	ctx := j.Ctx
	videoPath := j.Input
	if _, err := os.Stat(videoPath); err != nil {
		q.PushJobStdout(j.ID, fmt.Sprintf("Input video not found: %s", videoPath))
		q.ErrorJob(j.ID)
		return err
	}

	runDir := RunDir(videoPath)
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		q.ErrorJob(j.ID)
		return err
	}

	info, err := video.Probe(ctx, videoPath)
	if err != nil {
		q.PushJobStdout(j.ID, fmt.Sprintf("Probe failed: %v", err))
		q.ErrorJob(j.ID)
		return err
	}
	q.PushJobStdout(j.ID, fmt.Sprintf("Input: %dx%d, %.3f fps, %.2fs",
		info.Width, info.Height, info.FPS, info.Duration))

	threshold := appconfig.Get().SceneThreshold
	if threshold <= 0 {
		threshold = video.DefaultSceneThreshold
	}
	starts, err := video.DetectSceneTimestamps(ctx, videoPath, threshold)
	if err != nil {
		q.PushJobStdout(j.ID, fmt.Sprintf("Scene detection failed: %v", err))
		q.ErrorJob(j.ID)
		return err
	}
	q.PushJobStdout(j.ID, fmt.Sprintf("Detected %d scenes", len(starts)))

	scenesDir := filepath.Join(runDir, "scenes")
	sceneFiles, err := video.SplitScenes(videoPath, scenesDir, starts, info.Duration)
	if err != nil {
		q.PushJobStdout(j.ID, fmt.Sprintf("Scene split failed: %v", err))
		q.ErrorJob(j.ID)
		return err
	}

	for i, scenePath := range sceneFiles {
		select {
		case <-ctx.Done():
			q.PushJobStdout(j.ID, "Task was canceled")
			_ = q.CancelJob(j.ID)
			return ctx.Err()
		default:
		}
		framesDir := filepath.Join(filepath.Dir(scenePath), "frames")
		if err := video.ExtractFrames(scenePath, framesDir); err != nil {
			q.PushJobStdout(j.ID, fmt.Sprintf("Frame extraction failed for scene %d: %v", i+1, err))
			q.ErrorJob(j.ID)
			return err
		}
		q.PushJobStdout(j.ID, fmt.Sprintf("Extracted frames for scene %d/%d", i+1, len(sceneFiles)))
	}

	meta := &scenes.Metadata{
		SceneTimestamps: starts,
		FPS:             info.FPS,
		SceneCount:      len(sceneFiles),
	}
	if err := meta.Save(MetadataPath(runDir)); err != nil {
		q.PushJobStdout(j.ID, fmt.Sprintf("Failed to write metadata: %v", err))
		q.ErrorJob(j.ID)
		return err
	}

	q.PushJobStdout(j.ID, fmt.Sprintf("Scene split complete: %d scenes in %s", len(sceneFiles), scenesDir))
	q.CompleteJob(j.ID)
	return nil
}
