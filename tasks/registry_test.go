package tasks

import (
	"path/filepath"
	"sync"
	"testing"

	"github.com/True3DLabs/VDA-inpainting/jobqueue"
)

// TestGetTasks verifies that built-in tasks are registered
func TestGetTasks(t *testing.T) {
	taskMap := GetTasks()

	if taskMap == nil {
		t.Fatal("GetTasks() returned nil")
	}

	// Verify expected built-in tasks exist
	expectedTasks := []struct {
		id   string
		name string
	}{
		{"wait", "Wait"},
		{"scene-split", "Split Video Into Scenes"},
		{"depth-infer", "Estimate Scene Depth (ONNX)"},
		{"depth-concat", "Concatenate Scene Depth"},
		{"depth-process", "Process Depth Video"},
		{"depth-stats", "Depth Statistics"},
		{"outpaint", "Outpaint Video"},
		{"export", "Export Bundle"},
		{"download-dependency", "Download Dependency"},
	}

	for _, expected := range expectedTasks {
		task, exists := taskMap[expected.id]
		if !exists {
			t.Errorf("Task %q not registered", expected.id)
			continue
		}
		if task.ID != expected.id {
			t.Errorf("Task %q has ID %q; want %q", expected.id, task.ID, expected.id)
		}
		if task.Name != expected.name {
			t.Errorf("Task %q has Name %q; want %q", expected.id, task.Name, expected.name)
		}
		if task.Fn == nil {
			t.Errorf("Task %q has nil Fn", expected.id)
		}
	}
}

// TestRegisterTask tests registering a new task
func TestRegisterTask(t *testing.T) {
	// Save original tasks and restore after test
	originalTasks := make(TaskMap)
	for k, v := range tasks {
		originalTasks[k] = v
	}
	defer func() {
		tasks = originalTasks
	}()

	// Register a custom task
	customFn := func(j *jobqueue.Job, q *jobqueue.Queue, mu *sync.Mutex) error {
		return nil
	}

	RegisterTask("custom-task", "Custom Task Name", customFn)

	taskMap := GetTasks()
	task, exists := taskMap["custom-task"]
	if !exists {
		t.Fatal("Custom task was not registered")
	}
	if task.ID != "custom-task" {
		t.Errorf("Task ID = %q; want %q", task.ID, "custom-task")
	}
	if task.Name != "Custom Task Name" {
		t.Errorf("Task Name = %q; want %q", task.Name, "Custom Task Name")
	}
	if task.Fn == nil {
		t.Error("Task Fn is nil")
	}
}

// TestRegisterTaskOverwrite tests that registering with same ID overwrites
func TestRegisterTaskOverwrite(t *testing.T) {
	// Save original tasks and restore after test
	originalTasks := make(TaskMap)
	for k, v := range tasks {
		originalTasks[k] = v
	}
	defer func() {
		tasks = originalTasks
	}()

	// Register first version
	RegisterTask("overwrite-test", "First Version", func(j *jobqueue.Job, q *jobqueue.Queue, mu *sync.Mutex) error {
		return nil
	})

	// Overwrite with second version
	RegisterTask("overwrite-test", "Second Version", func(j *jobqueue.Job, q *jobqueue.Queue, mu *sync.Mutex) error {
		return nil
	})

	taskMap := GetTasks()
	task := taskMap["overwrite-test"]
	if task.Name != "Second Version" {
		t.Errorf("Task should be overwritten; got Name = %q", task.Name)
	}
}

// TestTaskMapType verifies TaskMap type behavior
func TestTaskMapType(t *testing.T) {
	taskMap := GetTasks()

	// Test iteration
	count := 0
	for id, task := range taskMap {
		if id == "" {
			t.Error("Task ID should not be empty")
		}
		if task.ID != id {
			t.Errorf("Task ID mismatch: map key = %q, task.ID = %q", id, task.ID)
		}
		count++
	}

	if count == 0 {
		t.Error("No tasks in task map")
	}
}

// TestRunDir verifies the per-video run directory derivation
func TestRunDir(t *testing.T) {
	got := RunDir(filepath.Join("some", "dir", "clip.mp4"))
	if filepath.Base(got) != "clip" {
		t.Errorf("RunDir base = %q; want %q", filepath.Base(got), "clip")
	}
}

// TestMetadataPath verifies the metadata sidecar location
func TestMetadataPath(t *testing.T) {
	got := MetadataPath(filepath.Join("work", "clip"))
	want := filepath.Join("work", "clip", "metadata.json")
	if got != want {
		t.Errorf("MetadataPath = %q; want %q", got, want)
	}
}
