// vdapipe runs the full video-to-depth pipeline for one input video:
// scene split, per-scene depth estimation, concatenation, depth post
// processing, statistics, and export bundling, with optional
// outpainting. Stages run as dependent jobs on the persistent queue so
// an interrupted run resumes where it stopped.
package main

import (
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "modernc.org/sqlite"

	"github.com/True3DLabs/VDA-inpainting/appconfig"
	"github.com/True3DLabs/VDA-inpainting/jobqueue"
	"github.com/True3DLabs/VDA-inpainting/runners"
	_ "github.com/True3DLabs/VDA-inpainting/tasks"
)

func main() {
	var (
		videoPath   string
		dbPath      string
		workDir     string
		doOutpaint  bool
		skipExport  bool
		gpuLimit    int
		pollSeconds int
	)

	flag.StringVar(&videoPath, "video", "", "Path to the input video")
	flag.StringVar(&dbPath, "db", "", "Job database path (default from config)")
	flag.StringVar(&workDir, "workdir", "", "Output root directory (default from config)")
	flag.BoolVar(&doOutpaint, "outpaint", false, "Also run diffusion outpainting on the input video")
	flag.BoolVar(&skipExport, "skip-export", false, "Skip the final bundle/upload stage")
	flag.IntVar(&gpuLimit, "gpu-limit", 1, "Max concurrent GPU-lane jobs")
	flag.IntVar(&pollSeconds, "poll", 2, "Progress poll interval in seconds")
	flag.Parse()

	if videoPath == "" {
		fmt.Fprintln(os.Stderr, "Error: --video is required")
		flag.Usage()
		os.Exit(2)
	}
	if _, err := os.Stat(videoPath); err != nil {
		log.Fatalf("Input video not found: %v", err)
	}

	cfg, cfgPath, err := appconfig.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	log.Printf("Config: %s", cfgPath)
	if workDir != "" {
		cfg.WorkDir = workDir
	}
	if dbPath != "" {
		cfg.DBPath = dbPath
	}
	appconfig.Set(cfg)

	db, err := sql.Open("sqlite", cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to open job database %s: %v", cfg.DBPath, err)
	}
	defer db.Close()

	queue := jobqueue.NewQueueWithDB(db)
	queue.SetLaneLimit(jobqueue.LaneGPU, gpuLimit)

	r := runners.New(queue)
	defer r.Shutdown()

	// Build the stage chain leaf-first: each workflow node depends on
	// its children completing.
	wf := jobqueue.Workflow{Command: "scene-split", Input: videoPath}
	for _, stage := range []string{"depth-infer", "depth-concat", "depth-process", "depth-stats"} {
		wf = jobqueue.Workflow{
			Command:  stage,
			Input:    videoPath,
			Children: []jobqueue.Workflow{wf},
		}
	}
	if !skipExport {
		wf = jobqueue.Workflow{
			Command:  "export",
			Input:    videoPath,
			Children: []jobqueue.Workflow{wf},
		}
	}

	finalID, err := queue.AddWorkflow(wf)
	if err != nil {
		log.Fatalf("Failed to queue pipeline: %v", err)
	}

	watchIDs := []string{finalID}
	if doOutpaint {
		id, err := queue.AddJob("outpaint", nil, videoPath, nil)
		if err != nil {
			log.Fatalf("Failed to queue outpaint job: %v", err)
		}
		watchIDs = append(watchIDs, id)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	ticker := time.NewTicker(time.Duration(pollSeconds) * time.Second)
	defer ticker.Stop()

	printed := map[string]int{}
	for {
		select {
		case <-sigCh:
			log.Println("Interrupted, shutting down")
			r.Shutdown()
			os.Exit(1)
		case <-ticker.C:
			done := 0
			for _, job := range queue.GetJobs() {
				// Stream each job's captured stdout as it grows.
				for _, line := range job.Stdout[printed[job.ID]:] {
					log.Printf("[%s] %s", job.Command, line)
				}
				printed[job.ID] = len(job.Stdout)
			}
			for _, id := range watchIDs {
				job := queue.GetJob(id)
				if job == nil {
					log.Fatalf("Job %s disappeared from the queue", id)
				}
				switch job.State {
				case jobqueue.StateCompleted:
					done++
				case jobqueue.StateError, jobqueue.StateCancelled:
					log.Fatalf("Pipeline stage %s finished in state %v", job.Command, job.State)
				}
			}
			if done == len(watchIDs) {
				log.Println("Pipeline complete")
				return
			}
		}
	}
}
