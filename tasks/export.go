package tasks

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/True3DLabs/VDA-inpainting/appconfig"
	"github.com/True3DLabs/VDA-inpainting/export"
	"github.com/True3DLabs/VDA-inpainting/jobqueue"
)

// copyFile copies src to dst, creating dst's directory if needed.
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Sync()
}

// exportTask assembles the run's deliverables into bundle.zip and,
// when an S3 bucket is configured, uploads the bundle. The input color
// video is copied into the run directory as rgb.mp4 if a previous
// stage has not placed one there.
func exportTask(j *jobqueue.Job, q *jobqueue.Queue, mu *sync.Mutex) error {
	ctx := j.Ctx
	runDir := RunDir(j.Input)

	rgbPath := filepath.Join(runDir, export.BundleColorVideo)
	if _, err := os.Stat(rgbPath); os.IsNotExist(err) {
		q.PushJobStdout(j.ID, fmt.Sprintf("Copying input video to %s", rgbPath))
		if err := copyFile(j.Input, rgbPath); err != nil {
			q.PushJobStdout(j.ID, fmt.Sprintf("Failed to copy color video: %v", err))
			q.ErrorJob(j.ID)
			return err
		}
	}

	bundlePath := filepath.Join(runDir, "bundle.zip")
	if err := export.Bundle(runDir, bundlePath); err != nil {
		q.PushJobStdout(j.ID, fmt.Sprintf("Bundling failed: %v", err))
		q.ErrorJob(j.ID)
		return err
	}
	q.PushJobStdout(j.ID, fmt.Sprintf("Wrote bundle: %s", bundlePath))

	s3cfg := appconfig.Get().S3
	if s3cfg.Bucket == "" {
		q.PushJobStdout(j.ID, "No S3 bucket configured, skipping upload")
		q.CompleteJob(j.ID)
		return nil
	}

	uploader, err := export.NewUploader(ctx, s3cfg)
	if err != nil {
		q.PushJobStdout(j.ID, fmt.Sprintf("S3 setup failed: %v", err))
		q.ErrorJob(j.ID)
		return err
	}
	progress := func(p export.Progress) {
		if p.Message != "" {
			q.PushJobStdout(j.ID, p.Message)
		}
	}
	uri, err := uploader.Upload(ctx, bundlePath, progress)
	if err != nil {
		q.PushJobStdout(j.ID, fmt.Sprintf("S3 upload failed: %v", err))
		q.ErrorJob(j.ID)
		return err
	}

	q.PushJobStdout(j.ID, fmt.Sprintf("Uploaded bundle to %s", uri))
	q.CompleteJob(j.ID)
	return nil
}
