package pipeline

import (
	"context"
	"testing"

	"github.com/Karmadibsa/VibeSlicer/internal/types"
)

func TestSessionsRegistry(t *testing.T) {
	reg := NewSessions()
	if got := reg.Get("missing"); got != nil {
		t.Errorf("Get on empty registry = %v, want nil", got)
	}

	reg.Put(&Session{ProjectID: "p1"})
	reg.Put(&Session{ProjectID: "p2"})
	if got := reg.Get("p1"); got == nil || got.ProjectID != "p1" {
		t.Errorf("Get(p1) = %v", got)
	}
	if ids := reg.IDs(); len(ids) != 2 {
		t.Errorf("IDs() = %v, want 2 entries", ids)
	}

	// Re-registering the same project replaces the session.
	reg.Put(&Session{ProjectID: "p1", Name: "second"})
	if got := reg.Get("p1"); got.Name != "second" {
		t.Errorf("Put did not replace: %+v", got)
	}

	reg.Delete("p1")
	if got := reg.Get("p1"); got != nil {
		t.Errorf("Get after Delete = %v, want nil", got)
	}
}

func TestJobStatusLifecycle(t *testing.T) {
	job := NewJob("j1", "demo", "/in/demo.mp4")
	if status, err := job.Status(); status != types.StatusQueued || err != nil {
		t.Errorf("new job status = %q, %v", status, err)
	}

	job.setStatus(types.StatusProcessing, nil)
	if status, _ := job.Status(); status != types.StatusProcessing {
		t.Errorf("status = %q, want %q", status, types.StatusProcessing)
	}
}

func TestJobCancelPropagates(t *testing.T) {
	job := NewJob("j1", "demo", "/in/demo.mp4")

	// Cancel before bind is a no-op, not a panic.
	job.Cancel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	job.bindCancel(cancel)
	job.Cancel()

	select {
	case <-ctx.Done():
	default:
		t.Error("context not cancelled after job.Cancel")
	}
}
