package tasks

import (
	"strconv"
	"sync"
	"time"

	"github.com/True3DLabs/VDA-inpainting/jobqueue"
)

// waitFn sleeps for the number of seconds in Arguments[0] (default 5),
// checking for cancellation each second. Used as a spacer stage and in
// runner tests.
func waitFn(j *jobqueue.Job, q *jobqueue.Queue, mu *sync.Mutex) error {
	ctx := j.Ctx
	seconds := 5
	if len(j.Arguments) > 0 {
		if n, err := strconv.Atoi(j.Arguments[0]); err == nil && n > 0 {
			seconds = n
		}
	}
	for i := 0; i < seconds; i++ {
		select {
		case <-ctx.Done():
			q.PushJobStdout(j.ID, "Task was canceled")
			_ = q.CancelJob(j.ID)
			return ctx.Err()
		case <-time.After(1 * time.Second):
			q.PushJobStdout(j.ID, "Waiting in task...")
		}
	}
	q.CompleteJob(j.ID)
	return nil
}
