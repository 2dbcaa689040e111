// Package tasks holds the pipeline stages the job runners execute.
// Each stage works on one video's run directory under the configured
// work dir and reports progress through the job's captured stdout.
package tasks

import (
	"path/filepath"
	"strings"
	"sync"

	"github.com/True3DLabs/VDA-inpainting/appconfig"
	"github.com/True3DLabs/VDA-inpainting/jobqueue"
)

// Task represents a runnable unit bound to the jobqueue.
type Task struct {
	ID   string                                                        `json:"id"`
	Name string                                                        `json:"name"`
	Fn   func(j *jobqueue.Job, q *jobqueue.Queue, r *sync.Mutex) error `json:"-"`
}

type TaskMap map[string]Task

var tasks = make(TaskMap)

func init() {
	// Register built-in tasks
	RegisterTask("wait", "Wait", waitFn)
	RegisterTask("scene-split", "Split Video Into Scenes", sceneSplitTask)
	RegisterTask("depth-infer", "Estimate Scene Depth (ONNX)", depthInferTask)
	RegisterTask("depth-concat", "Concatenate Scene Depth", depthConcatTask)
	RegisterTask("depth-process", "Process Depth Video", depthProcessTask)
	RegisterTask("depth-stats", "Depth Statistics", depthStatsTask)
	RegisterTask("outpaint", "Outpaint Video", outpaintTask)
	RegisterTask("export", "Export Bundle", exportTask)
}

func RegisterTask(id, name string, fn func(j *jobqueue.Job, q *jobqueue.Queue, mu *sync.Mutex) error) {
	tasks[id] = Task{
		ID:   id,
		Name: name,
		Fn:   fn,
	}
}

func GetTasks() TaskMap {
	return tasks
}

// RunDir returns the per-video output directory for an input video
// path: <workDir>/<video name without extension>.
func RunDir(videoPath string) string {
	base := filepath.Base(videoPath)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(appconfig.Get().WorkDir, stem)
}

// MetadataPath returns the run's metadata.json location.
func MetadataPath(runDir string) string {
	return filepath.Join(runDir, "metadata.json")
}
