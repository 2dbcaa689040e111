package jobqueue

import (
	"database/sql"
	"testing"

	_ "modernc.org/sqlite"
)

func setupTestQueue(t *testing.T) *Queue {
	// Use in-memory database
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open in-memory database: %v", err)
	}

	q := NewQueueWithDB(db)
	return q
}

func TestLaneFor(t *testing.T) {
	tests := []struct {
		command  string
		expected string
	}{
		{"depth-infer", LaneGPU},
		{"outpaint", LaneGPU},
		{"scene-split", LaneCPU},
		{"depth-process", LaneCPU},
		{"export", LaneCPU},
		{"wait", LaneCPU},
	}

	for _, tt := range tests {
		got := LaneFor(tt.command)
		if got != tt.expected {
			t.Errorf("LaneFor(%q) = %q; want %q", tt.command, got, tt.expected)
		}
	}
}

func TestLaneAssignment(t *testing.T) {
	q := setupTestQueue(t)
	defer q.Db.Close()

	id1, _ := q.AddJob("depth-infer", nil, "/videos/a.mp4", nil)
	job1 := q.GetJob(id1)
	if job1.Lane != LaneGPU {
		t.Errorf("Job lane = %q; want %q", job1.Lane, LaneGPU)
	}

	id2, _ := q.AddJob("scene-split", nil, "/videos/a.mp4", nil)
	job2 := q.GetJob(id2)
	if job2.Lane != LaneCPU {
		t.Errorf("Job lane = %q; want %q", job2.Lane, LaneCPU)
	}
}

func TestLaneConcurrencyLimits(t *testing.T) {
	q := setupTestQueue(t)
	defer q.Db.Close()

	// Default limit is 1 for every lane

	// Two GPU jobs and one CPU job
	idG1, _ := q.AddJob("depth-infer", nil, "/videos/a.mp4", nil)
	idG2, _ := q.AddJob("depth-infer", nil, "/videos/b.mp4", nil)
	idC1, _ := q.AddJob("scene-split", nil, "/videos/c.mp4", nil)

	// Claim first GPU job
	job, err := q.ClaimJob()
	if err != nil {
		t.Fatalf("ClaimJob failed: %v", err)
	}
	if job == nil {
		t.Fatal("Expected job, got nil")
	}
	if job.ID != idG1 {
		t.Errorf("Expected job %s, got %s", idG1, job.ID)
	}

	// Next claim skips the second GPU job (lane full) and picks the CPU job.
	job, err = q.ClaimJob()
	if err != nil {
		t.Fatalf("ClaimJob failed: %v", err)
	}
	if job == nil {
		t.Fatal("Expected CPU job, got nil")
	}
	if job.ID != idC1 {
		t.Errorf("Expected job %s (cpu lane), got %s (lane %s)", idC1, job.ID, job.Lane)
	}

	// Nothing left to claim: the second GPU job is blocked.
	job, err = q.ClaimJob()
	if err != nil {
		t.Fatalf("ClaimJob failed: %v", err)
	}
	if job != nil {
		t.Errorf("Expected nil (GPU lane full), got job %s", job.ID)
	}

	// Complete the first GPU job
	q.CompleteJob(idG1)

	// Now the second GPU job should be claimable
	job, err = q.ClaimJob()
	if err != nil {
		t.Fatalf("ClaimJob failed: %v", err)
	}
	if job == nil {
		t.Fatal("Expected second GPU job, got nil")
	}
	if job.ID != idG2 {
		t.Errorf("Expected job %s, got %s", idG2, job.ID)
	}
}

func TestRaisedLaneLimit(t *testing.T) {
	q := setupTestQueue(t)
	defer q.Db.Close()

	q.SetLaneLimit(LaneCPU, 2)

	idC1, _ := q.AddJob("scene-split", nil, "/videos/a.mp4", nil)
	idC2, _ := q.AddJob("depth-process", nil, "/videos/b.mp4", nil)

	job, _ := q.ClaimJob()
	if job == nil || job.ID != idC1 {
		t.Fatalf("Expected first CPU job, got %v", job)
	}

	// With limit 2 both CPU jobs run at once.
	job, _ = q.ClaimJob()
	if job == nil || job.ID != idC2 {
		t.Fatalf("Expected second CPU job, got %v", job)
	}
}

func TestErrorReleasesLane(t *testing.T) {
	q := setupTestQueue(t)
	defer q.Db.Close()

	id1, _ := q.AddJob("depth-infer", nil, "/videos/a.mp4", nil)
	id2, _ := q.AddJob("depth-infer", nil, "/videos/b.mp4", nil)

	job, _ := q.ClaimJob() // Claim 1
	if job.ID != id1 {
		t.Fatal("Expected 1")
	}

	// Error 1
	q.ErrorJob(id1)

	// Claim 2 should succeed
	job, _ = q.ClaimJob()
	if job == nil || job.ID != id2 {
		t.Errorf("Expected 2, got %v", job)
	}
}

func TestCancelReleasesLane(t *testing.T) {
	q := setupTestQueue(t)
	defer q.Db.Close()

	id1, _ := q.AddJob("depth-infer", nil, "/videos/a.mp4", nil)
	id2, _ := q.AddJob("depth-infer", nil, "/videos/b.mp4", nil)

	job, _ := q.ClaimJob() // Claim 1
	if job.ID != id1 {
		t.Fatal("Expected 1")
	}

	// Cancel 1 (must be in progress to release the lane slot)
	q.CancelJob(id1)

	// Claim 2 should succeed
	job, _ = q.ClaimJob()
	if job == nil || job.ID != id2 {
		t.Errorf("Expected 2, got %v", job)
	}
}

func TestRemoveReleasesLane(t *testing.T) {
	q := setupTestQueue(t)
	defer q.Db.Close()

	id1, _ := q.AddJob("depth-infer", nil, "/videos/a.mp4", nil)
	id2, _ := q.AddJob("depth-infer", nil, "/videos/b.mp4", nil)

	job, _ := q.ClaimJob() // Claim 1
	if job.ID != id1 {
		t.Fatal("Expected 1")
	}

	// Remove 1 while running
	q.RemoveJob(id1)

	// Claim 2 should succeed
	job, _ = q.ClaimJob()
	if job == nil || job.ID != id2 {
		t.Errorf("Expected 2, got %v", job)
	}
}
