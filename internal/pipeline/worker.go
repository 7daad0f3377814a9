package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"runtime/debug"
	"sync"

	"github.com/Karmadibsa/VibeSlicer/internal/types"
)

// WorkerPool runs preparation jobs concurrently. Renders do not go through
// the pool: they are triggered explicitly against a session and serialized
// there.
type WorkerPool struct {
	jobQueue    chan *Job
	workerCount int
	orch        *Orchestrator
	sessions    *Sessions
	notify      Notifier

	mu   sync.RWMutex
	jobs map[string]*Job
}

// NewWorkerPool creates a pool feeding completed sessions into the registry.
func NewWorkerPool(workerCount int, orch *Orchestrator, sessions *Sessions, notify Notifier) *WorkerPool {
	return &WorkerPool{
		jobQueue:    make(chan *Job, 100),
		workerCount: workerCount,
		orch:        orch,
		sessions:    sessions,
		notify:      notify,
		jobs:        make(map[string]*Job),
	}
}

// Start initializes all workers.
func (wp *WorkerPool) Start() {
	log.Printf("Starting worker pool with %d workers", wp.workerCount)
	for i := 0; i < wp.workerCount; i++ {
		go wp.worker(i)
	}
}

// Enqueue adds a job to the queue.
func (wp *WorkerPool) Enqueue(job *Job) {
	wp.mu.Lock()
	wp.jobs[job.ID] = job
	wp.mu.Unlock()

	wp.jobQueue <- job
	log.Printf("Job %s enqueued (name: %s)", job.ID, job.Name)
	emit(wp.notify, Event{JobID: job.ID, Status: types.StatusQueued})
}

// Get returns a tracked job by id, or nil.
func (wp *WorkerPool) Get(jobID string) *Job {
	wp.mu.RLock()
	defer wp.mu.RUnlock()
	return wp.jobs[jobID]
}

// Cancel requests cancellation of a queued or running job.
func (wp *WorkerPool) Cancel(jobID string) bool {
	job := wp.Get(jobID)
	if job == nil {
		return false
	}
	job.Cancel()
	return true
}

func (wp *WorkerPool) worker(id int) {
	log.Printf("Worker %d started", id)

	for job := range wp.jobQueue {
		func() {
			defer func() {
				if r := recover(); r != nil {
					log.Printf("Worker %d: PANIC processing job %s: %v\n%s",
						id, job.ID, r, string(debug.Stack()))
					job.setStatus(types.StatusFailed, fmt.Errorf("worker panic: %v", r))
					emit(wp.notify, Event{JobID: job.ID, Status: types.StatusFailed,
						Message: fmt.Sprintf("worker panic: %v", r)})
				}
			}()

			wp.processJob(id, job)
		}()
	}
}

func (wp *WorkerPool) processJob(workerID int, job *Job) {
	log.Printf("Worker %d: Processing job %s", workerID, job.ID)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	job.bindCancel(cancel)
	job.setStatus(types.StatusProcessing, nil)

	sess, err := wp.orch.Prepare(ctx, job.ID, job.Name, job.SourcePath, wp.notify)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			log.Printf("Worker %d: Job %s cancelled", workerID, job.ID)
			job.setStatus(types.StatusCancelled, err)
			emit(wp.notify, Event{JobID: job.ID, Status: types.StatusCancelled})
			return
		}
		log.Printf("Worker %d: Job %s failed in %s stage: %v",
			workerID, job.ID, types.StageOf(err), err)
		job.setStatus(types.StatusFailed, err)
		emit(wp.notify, Event{JobID: job.ID, Stage: types.StageOf(err),
			Status: types.StatusFailed, Message: err.Error()})
		return
	}

	wp.sessions.Put(sess)
	job.setStatus(types.StatusCompleted, nil)
	log.Printf("Worker %d: Job %s ready for editing (%d segments)",
		workerID, job.ID, len(sess.Timeline.Segments()))
	emit(wp.notify, Event{JobID: job.ID, Status: types.StatusCompleted})
}
