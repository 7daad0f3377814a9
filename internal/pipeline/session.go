package pipeline

import (
	"sync"

	"github.com/Karmadibsa/VibeSlicer/internal/media"
	"github.com/Karmadibsa/VibeSlicer/internal/timeline"
	"github.com/Karmadibsa/VibeSlicer/internal/transcription"
)

// Session is the editable state a completed preparation job leaves behind:
// the canonical media and its timeline. Edits go through the timeline's own
// transactions; renderMu additionally serializes renders per session, so two
// render requests for the same project never race over scratch files.
type Session struct {
	ProjectID string
	Name      string
	Media     *media.CanonicalMedia
	Timeline  *timeline.Timeline
	Warnings  []transcription.Warning

	renderMu sync.Mutex
}

// Sessions is the in-memory registry of live editing sessions, keyed by
// project id.
type Sessions struct {
	mu sync.RWMutex
	m  map[string]*Session
}

// NewSessions creates an empty registry.
func NewSessions() *Sessions {
	return &Sessions{m: make(map[string]*Session)}
}

// Put registers a session, replacing any previous one for the same project.
func (s *Sessions) Put(sess *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[sess.ProjectID] = sess
}

// Get returns the session for a project, or nil.
func (s *Sessions) Get(projectID string) *Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.m[projectID]
}

// Delete removes a session.
func (s *Sessions) Delete(projectID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, projectID)
}

// IDs lists the registered project ids.
func (s *Sessions) IDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.m))
	for id := range s.m {
		out = append(out, id)
	}
	return out
}
