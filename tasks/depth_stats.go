package tasks

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/True3DLabs/VDA-inpainting/depth"
	"github.com/True3DLabs/VDA-inpainting/jobqueue"
	"github.com/True3DLabs/VDA-inpainting/npz"
	"github.com/True3DLabs/VDA-inpainting/scenes"
)

// depthStatsTask computes per-scene min, max, and screen distance from
// the run's concatenated depth archive and writes them to
// depth_stats.csv for inspection alongside the metadata.
func depthStatsTask(j *jobqueue.Job, q *jobqueue.Queue, mu *sync.Mutex) error {
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

	starts, err := meta.BoundaryFrames(d.Frames)
	if err != nil {
		q.PushJobStdout(j.ID, fmt.Sprintf("Cannot derive scene boundaries: %v", err))
		q.ErrorJob(j.ID)
		return err
	}

	stats := depth.StatsByScene(d, starts)

	outPath := filepath.Join(runDir, "depth_stats.csv")
	f, err := os.Create(outPath)
	if err != nil {
		q.PushJobStdout(j.ID, fmt.Sprintf("Failed to create %s: %v", outPath, err))
		q.ErrorJob(j.ID)
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"scene", "min_depth", "max_depth", "screen_dist"}); err != nil {
		q.ErrorJob(j.ID)
		return err
	}
	for i, s := range stats {
		row := []string{
			strconv.Itoa(i + 1),
			strconv.FormatFloat(s.Min, 'f', 4, 64),
			strconv.FormatFloat(s.Max, 'f', 4, 64),
			strconv.FormatFloat(s.ScreenDist, 'f', 4, 64),
		}
		if err := w.Write(row); err != nil {
			q.ErrorJob(j.ID)
			return err
		}
		q.PushJobStdout(j.ID, fmt.Sprintf("Scene %d: min=%.2f max=%.2f screen=%.2f", i+1, s.Min, s.Max, s.ScreenDist))
	}
	w.Flush()
	if err := w.Error(); err != nil {
		q.PushJobStdout(j.ID, fmt.Sprintf("Failed to write %s: %v", outPath, err))
		q.ErrorJob(j.ID)
		return err
	}

	q.PushJobStdout(j.ID, fmt.Sprintf("Wrote %s (%d scenes)", outPath, len(stats)))
	q.CompleteJob(j.ID)
	return nil
}
