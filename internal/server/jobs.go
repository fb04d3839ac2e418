package server

import (
	"context"
	"os"
	"sync"
	"sync/atomic"

	"github.com/smallbiznis/pqio/internal/importer"
)

const maxFinishedJobs = 100

// trackedJob follows one background import and owns its upload directory.
type trackedJob struct {
	job      *importer.Job
	format   string
	files    int
	progress atomic.Int64
	cancel   context.CancelFunc
}

func (t *trackedJob) finished() bool {
	select {
	case <-t.job.Done():
		return true
	default:
		return false
	}
}

type jobRegistry struct {
	mu    sync.Mutex
	jobs  map[string]*trackedJob
	order []string
}

func newJobRegistry() *jobRegistry {
	return &jobRegistry{jobs: map[string]*trackedJob{}}
}

// track drains the job's progress and removes dir once the batch ends.
func (r *jobRegistry) track(job *importer.Job, format string, files int, dir string, cancel context.CancelFunc) *trackedJob {
	t := &trackedJob{job: job, format: format, files: files, cancel: cancel}

	r.mu.Lock()
	r.jobs[job.BatchID] = t
	r.order = append(r.order, job.BatchID)
	r.evictLocked()
	r.mu.Unlock()

	go func() {
		for p := range job.Progress() {
			t.progress.Store(int64(p))
		}
		<-job.Done()
		cancel()
		_ = os.RemoveAll(dir)
	}()
	return t
}

func (r *jobRegistry) get(batchID string) (*trackedJob, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.jobs[batchID]
	return t, ok
}

func (r *jobRegistry) cancelAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.jobs {
		t.cancel()
	}
}

// evictLocked forgets the oldest finished jobs beyond maxFinishedJobs.
func (r *jobRegistry) evictLocked() {
	if len(r.order) <= maxFinishedJobs {
		return
	}
	kept := r.order[:0]
	excess := len(r.order) - maxFinishedJobs
	for _, id := range r.order {
		if excess > 0 && r.jobs[id].finished() {
			delete(r.jobs, id)
			excess--
			continue
		}
		kept = append(kept, id)
	}
	r.order = kept
}
