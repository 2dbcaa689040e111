package runners

import (
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/True3DLabs/VDA-inpainting/jobqueue"
	"github.com/True3DLabs/VDA-inpainting/tasks"
	_ "modernc.org/sqlite"
)

func setupTestQueue(t *testing.T) *jobqueue.Queue {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open in-memory database: %v", err)
	}

	return jobqueue.NewQueueWithDB(db)
}

// TestNewRunners verifies runner creation
func TestNewRunners(t *testing.T) {
	q := setupTestQueue(t)

	r := New(q)
	if r == nil {
		t.Fatal("New() returned nil")
	}

	// Verify fields are initialized
	if r.queue != q {
		t.Error("Runners queue not set correctly")
	}
	if r.ctx == nil {
		t.Error("Runners context is nil")
	}
	if r.cancel == nil {
		t.Error("Runners cancel function is nil")
	}

	// Clean up
	r.Shutdown()
}

// TestRunnersShutdown verifies graceful shutdown
func TestRunnersShutdown(t *testing.T) {
	q := setupTestQueue(t)
	r := New(q)

	// Start shutdown
	done := make(chan struct{})
	go func() {
		r.Shutdown()
		close(done)
	}()

	// Should complete quickly
	select {
	case <-done:
		// Success
	case <-time.After(2 * time.Second):
		t.Error("Shutdown did not complete in time")
	}
}

// TestRunnersDoubleShutdown ensures shutdown can be called multiple times safely
func TestRunnersDoubleShutdown(t *testing.T) {
	q := setupTestQueue(t)
	r := New(q)

	// First shutdown
	r.Shutdown()

	// Second shutdown should not panic
	defer func() {
		if recover() != nil {
			t.Error("Double shutdown caused panic")
		}
	}()
	r.Shutdown()
}

// TestRunnersProcessWaitTask tests that the wait task works correctly
func TestRunnersProcessWaitTask(t *testing.T) {
	q := setupTestQueue(t)
	r := New(q)
	defer r.Shutdown()

	// Add a wait job (this task is registered in tasks/wait.go)
	id, _ := q.AddJob("wait", []string{"1"}, "", nil)

	// Signal that a job is available
	q.Signal <- id

	// Wait for job to complete
	timeout := time.After(10 * time.Second)
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-timeout:
			job := q.GetJob(id)
			t.Fatalf("Job did not complete in time; state = %v", job.State)
		case <-ticker.C:
			job := q.GetJob(id)
			if job.State == jobqueue.StateCompleted {
				// Success
				return
			}
			if job.State == jobqueue.StateError {
				t.Fatalf("Job errored unexpectedly")
			}
		}
	}
}

// TestRunnersUnknownTask tests handling of unknown task commands
func TestRunnersUnknownTask(t *testing.T) {
	q := setupTestQueue(t)
	r := New(q)
	defer r.Shutdown()

	// Add a job with unknown command
	id, _ := q.AddJob("this-task-does-not-exist", nil, "", nil)

	// Trigger job processing
	q.Signal <- id

	// Wait for job to be processed
	timeout := time.After(2 * time.Second)
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-timeout:
			t.Fatal("Job was not processed in time")
		case <-ticker.C:
			job := q.GetJob(id)
			if job.State == jobqueue.StateError {
				// Verify error message in stdout
				if len(job.Stdout) > 0 {
					found := false
					for _, line := range job.Stdout {
						if line == "Task not found: this-task-does-not-exist" {
							found = true
							break
						}
					}
					if !found {
						t.Logf("Expected 'Task not found' message in stdout; got %v", job.Stdout)
					}
				}
				return
			}
		}
	}
}

// TestRunnersSequentialJobs tests that queued jobs all get processed
func TestRunnersSequentialJobs(t *testing.T) {
	q := setupTestQueue(t)
	r := New(q)
	defer r.Shutdown()

	ids := []string{}
	for i := 0; i < 3; i++ {
		id, _ := q.AddJob("wait", []string{"1"}, "", nil)
		ids = append(ids, id)
	}

	// Signal all jobs
	for _, id := range ids {
		q.Signal <- id
	}

	// Wait for all jobs to complete
	timeout := time.After(30 * time.Second)
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-timeout:
			t.Fatal("Jobs did not complete in time")
		case <-ticker.C:
			allComplete := true
			for _, id := range ids {
				job := q.GetJob(id)
				if job.State != jobqueue.StateCompleted {
					allComplete = false
					break
				}
			}
			if allComplete {
				return
			}
		}
	}
}

// TestRunnersWithDependencies tests job dependency handling
func TestRunnersWithDependencies(t *testing.T) {
	q := setupTestQueue(t)
	r := New(q)
	defer r.Shutdown()

	// Add parent and child jobs
	parentID, _ := q.AddJob("wait", []string{"1"}, "", nil)
	childID, _ := q.AddJob("wait", []string{"1"}, "", []string{parentID})

	// Signal parent
	q.Signal <- parentID

	// Wait for parent to complete
	timeout := time.After(10 * time.Second)
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	parentComplete := false
	for !parentComplete {
		select {
		case <-timeout:
			t.Fatal("Parent job did not complete in time")
		case <-ticker.C:
			job := q.GetJob(parentID)
			if job.State == jobqueue.StateCompleted {
				parentComplete = true
			}
		}
	}

	// Now child should become eligible
	// Signal to check for jobs again
	r.CheckForJobs()

	// Wait for child to complete
	timeout = time.After(10 * time.Second)
	for {
		select {
		case <-timeout:
			child := q.GetJob(childID)
			t.Fatalf("Child job did not complete in time; state = %v", child.State)
		case <-ticker.C:
			child := q.GetJob(childID)
			if child.State == jobqueue.StateCompleted {
				return
			}
		}
	}
}

// TestRunnersClaimsUpToLaneLimit verifies one check starts every job
// the lane limits allow, not just the first claimable one.
func TestRunnersClaimsUpToLaneLimit(t *testing.T) {
	q := setupTestQueue(t)
	q.SetLaneLimit(jobqueue.LaneCPU, 2)

	started := make(chan string, 2)
	release := make(chan struct{})
	tasks.RegisterTask("hold", "Hold", func(j *jobqueue.Job, q *jobqueue.Queue, mu *sync.Mutex) error {
		started <- j.ID
		<-release
		q.CompleteJob(j.ID)
		return nil
	})

	r := New(q)
	defer r.Shutdown()
	defer close(release)

	if _, err := q.AddJob("hold", nil, "", nil); err != nil {
		t.Fatal(err)
	}
	if _, err := q.AddJob("hold", nil, "", nil); err != nil {
		t.Fatal(err)
	}

	r.CheckForJobs()

	for i := 0; i < 2; i++ {
		select {
		case <-started:
		case <-time.After(2 * time.Second):
			t.Fatalf("only %d of 2 jobs started; check should claim up to the lane limit", i)
		}
	}
}
