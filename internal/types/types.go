package types

import "errors"

// Job status constants
const (
	StatusQueued     = "QUEUED"
	StatusProcessing = "PROCESSING"
	StatusCompleted  = "COMPLETED"
	StatusFailed     = "FAILED"
	StatusCancelled  = "CANCELLED"
)

// Pipeline stage tags carried by StageError
const (
	StageSanitize   = "sanitize"
	StageSegment    = "segment"
	StageTranscribe = "transcribe"
	StageRender     = "render"
)

// Timeline validation errors. These are returned synchronously to the
// caller and never mutate the timeline.
var (
	ErrInvalidSplitPoint = errors.New("split point at or outside segment bounds")
	ErrInvalidRange      = errors.New("invalid segment range")
	ErrUnknownSegment    = errors.New("unknown segment id")
	ErrNotAdjacent       = errors.New("segments are not adjacent or differ in kind")
	ErrNoActiveSegments  = errors.New("timeline has no active segments")
)

// StageError ties a pipeline failure to the stage that produced it. Fatal
// per-file errors abort only that file's pipeline in a batch run.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return e.Stage + ": " + e.Err.Error()
}

func (e *StageError) Unwrap() error { return e.Err }

// NewStageError wraps err with the stage it failed in.
func NewStageError(stage string, err error) *StageError {
	return &StageError{Stage: stage, Err: err}
}

// StageOf reports the stage tag of err, or "" if err carries none.
func StageOf(err error) string {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage
	}
	return ""
}
