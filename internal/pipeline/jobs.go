package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/Karmadibsa/VibeSlicer/internal/types"
)

// Job represents one source file moving through the preparation pipeline:
// sanitize, segment, transcribe. A completed job leaves behind an editable
// session; rendering is a separate, explicitly triggered step.
type Job struct {
	ID         string
	Name       string
	SourcePath string
	CreatedAt  time.Time

	mu     sync.Mutex
	status string
	err    error
	cancel context.CancelFunc
}

// NewJob creates a queued job for the given source file.
func NewJob(id, name, sourcePath string) *Job {
	return &Job{
		ID:         id,
		Name:       name,
		SourcePath: sourcePath,
		CreatedAt:  time.Now(),
		status:     types.StatusQueued,
	}
}

// Status returns the job's current status and terminal error, if any.
func (j *Job) Status() (string, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.status, j.err
}

func (j *Job) setStatus(status string, err error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.status = status
	j.err = err
}

func (j *Job) bindCancel(cancel context.CancelFunc) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.cancel = cancel
}

// Cancel requests cooperative cancellation. The running stage notices via its
// context; partial scratch artifacts are cleaned up by the worker.
func (j *Job) Cancel() {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.cancel != nil {
		j.cancel()
	}
}

// Event is a progress notification emitted as a job advances. Stage-level
// events carry only the stage tag; transcription additionally reports
// per-segment counts.
type Event struct {
	JobID   string `json:"job_id"`
	Stage   string `json:"stage,omitempty"`
	Status  string `json:"status"`
	Done    int    `json:"done,omitempty"`
	Total   int    `json:"total,omitempty"`
	Message string `json:"message,omitempty"`
}

// Notifier receives pipeline events. It must not block: slow consumers drop
// or buffer on their side.
type Notifier func(Event)
