// Package runners drives the pipeline: it listens for queue signals,
// claims runnable jobs, and executes the registered task for each.
// Concurrency is bounded by the queue's resource lanes, so one wakeup
// may start a CPU stage and a GPU stage side by side but never two
// jobs on the same lane past its limit.
package runners

import (
	"context"
	"sync"

	"github.com/True3DLabs/VDA-inpainting/jobqueue"
	"github.com/True3DLabs/VDA-inpainting/tasks"
)

// Runners executes claimed jobs until shut down.
type Runners struct {
	queue  *jobqueue.Queue
	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New starts a runner pool over the queue and begins listening for
// job signals.
func New(queue *jobqueue.Queue) *Runners {
	ctx, cancel := context.WithCancel(context.Background())
	r := &Runners{
		queue:  queue,
		ctx:    ctx,
		cancel: cancel,
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		for {
			select {
			case <-r.ctx.Done():
				return
			case <-r.queue.Signal:
				r.CheckForJobs()
			}
		}
	}()

	return r
}

// Shutdown stops the signal listener. Jobs already started keep their
// own contexts and finish or cancel independently.
func (r *Runners) Shutdown() {
	r.cancel()
	r.wg.Wait()
}

// CheckForJobs claims every job the queue's lane limits allow and
// starts each one. Safe to call from any goroutine.
func (r *Runners) CheckForJobs() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.drainClaimable()
}

// drainClaimable starts claimable jobs until the queue has none left.
// The lane limits inside ClaimJob are the only capacity control.
// Callers must hold r.mu.
func (r *Runners) drainClaimable() {
	for {
		job, err := r.queue.ClaimJob()
		if err != nil || job == nil {
			return
		}
		r.execute(job)
	}
}

// execute runs one claimed job in its own goroutine and re-checks the
// queue when it finishes, since completion may have unblocked a
// dependent job or freed a lane.
func (r *Runners) execute(j *jobqueue.Job) {
	go func() {
		defer func() {
			r.mu.Lock()
			r.drainClaimable()
			r.mu.Unlock()
		}()

		task, ok := tasks.GetTasks()[j.Command]
		if !ok {
			r.queue.PushJobStdout(j.ID, "Task not found: "+j.Command)
			r.queue.ErrorJob(j.ID)
			return
		}
		if err := task.Fn(j, r.queue, &r.mu); err != nil {
			// A task that failed because its context was canceled
			// finalizes as cancelled, not errored.
			select {
			case <-j.Ctx.Done():
				_ = r.queue.CancelJob(j.ID)
			default:
				_ = r.queue.ErrorJob(j.ID)
			}
		}
	}()
}
