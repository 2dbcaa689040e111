package tasks

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/True3DLabs/VDA-inpainting/appconfig"
	"github.com/True3DLabs/VDA-inpainting/deps"
	"github.com/True3DLabs/VDA-inpainting/jobqueue"
	"github.com/True3DLabs/VDA-inpainting/onnxdepth"
	"github.com/True3DLabs/VDA-inpainting/scenes"
)

// estimatorOptions builds inference options from config, falling back
// to the managed onnxruntime install when no library path is set.
func estimatorOptions() onnxdepth.Options {
	cfg := appconfig.Get()
	opts := onnxdepth.DefaultOptions()
	if cfg.DepthModel.InputSize > 0 {
		opts.InputSize = cfg.DepthModel.InputSize
	}
	if cfg.DepthModel.ORTSharedLibraryPath != "" {
		opts.ORTSharedLibraryPath = cfg.DepthModel.ORTSharedLibraryPath
	} else {
		opts.ORTSharedLibraryPath = deps.GetOnnxRuntimePath()
	}
	return opts
}

// depthModelPath prefers the configured model, then the managed
// download.
func depthModelPath() string {
	if p := appconfig.Get().DepthModel.ModelPath; p != "" {
		return p
	}
	return deps.GetDepthModelPath()
}

// depthInferTask runs ONNX depth estimation over every scene's
// extracted frames, writing each scene's depth archive next to its
// clip. The run directory is derived from the input video path.
func depthInferTask(j *jobqueue.Job, q *jobqueue.Queue, mu *sync.Mutex) error {
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

	modelPath := depthModelPath()
	if _, err := os.Stat(modelPath); err != nil {
		q.PushJobStdout(j.ID, fmt.Sprintf("Depth model not found at %s; run the download-dependency task first", modelPath))
		q.ErrorJob(j.ID)
		return err
	}
	opts := estimatorOptions()

	for i := 1; i <= count; i++ {
		select {
		case <-ctx.Done():
			q.PushJobStdout(j.ID, "Task was canceled")
			_ = q.CancelJob(j.ID)
			return ctx.Err()
		default:
		}

		sceneDir := filepath.Join(runDir, "scenes", scenes.SceneDirName(i))
		framesDir := filepath.Join(sceneDir, "frames")
		npzPath := filepath.Join(sceneDir, "depth_results.npz")

		q.PushJobStdout(j.ID, fmt.Sprintf("Estimating depth for scene %d/%d", i, count))
		if err := onnxdepth.EstimateToArchive(modelPath, framesDir, npzPath, opts); err != nil {
			q.PushJobStdout(j.ID, fmt.Sprintf("Depth inference failed for scene %d: %v", i, err))
			q.ErrorJob(j.ID)
			return err
		}
	}

	q.PushJobStdout(j.ID, fmt.Sprintf("Depth inference complete for %d scenes", count))
	q.CompleteJob(j.ID)
	return nil
}
