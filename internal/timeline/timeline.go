package timeline

import (
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/Karmadibsa/VibeSlicer/internal/segment"
	"github.com/Karmadibsa/VibeSlicer/internal/types"
)

// Timeline is the authoritative, mutable, ordered segment sequence for one
// source file. Every edit is a transaction behind a single-writer mutex and
// re-establishes the coverage invariant: segments tile [0, durationFrames)
// with no gaps and no overlaps. Reads hand out snapshot copies, so the UI or
// HTTP layer can render the list between transactions without locking out
// edits.
type Timeline struct {
	mu             sync.RWMutex
	fps            int
	durationFrames int64
	segs           []segment.Segment
}

// New builds a timeline over the given segments, validating coverage.
func New(fps int, durationFrames int64, segs []segment.Segment) (*Timeline, error) {
	tl := &Timeline{fps: fps, durationFrames: durationFrames, segs: append([]segment.Segment(nil), segs...)}
	if err := tl.validate(); err != nil {
		return nil, err
	}
	return tl, nil
}

// FPS returns the canonical frame rate the boundaries are expressed in.
func (t *Timeline) FPS() int { return t.fps }

// DurationFrames returns the total span covered by the timeline.
func (t *Timeline) DurationFrames() int64 { return t.durationFrames }

// DurationSeconds returns the covered span in seconds.
func (t *Timeline) DurationSeconds() float64 {
	return float64(t.durationFrames) / float64(t.fps)
}

// Segments returns an ordered snapshot copy of the segment sequence.
func (t *Timeline) Segments() []segment.Segment {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]segment.Segment, len(t.segs))
	copy(out, t.segs)
	return out
}

// Get returns a copy of one segment by id.
func (t *Timeline) Get(id string) (segment.Segment, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	i := t.indexOf(id)
	if i < 0 {
		return segment.Segment{}, types.ErrUnknownSegment
	}
	return t.segs[i], nil
}

// Toggle flips the active flag of one segment. Toggling twice restores the
// original state.
func (t *Timeline) Toggle(id string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	i := t.indexOf(id)
	if i < 0 {
		return types.ErrUnknownSegment
	}
	t.segs[i].Active = !t.segs[i].Active
	return nil
}

// ToggleRange flips active for all segments between idA and idB inclusive,
// in index order. The pair may be given in either order. A range with an
// unknown endpoint is rejected with ErrInvalidRange and no state change.
func (t *Timeline) ToggleRange(idA, idB string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	a, b := t.indexOf(idA), t.indexOf(idB)
	if a < 0 || b < 0 {
		return types.ErrInvalidRange
	}
	if a > b {
		a, b = b, a
	}
	for i := a; i <= b; i++ {
		t.segs[i].Active = !t.segs[i].Active
	}
	return nil
}

// Split replaces the segment with two adjacent segments sharing its kind and
// active state, with the boundary at atSeconds rounded to the nearest frame.
// The original keeps its id and text; the new right half gets a fresh id and
// empty text, pending re-transcription or manual entry. Returns the new
// segment's id.
func (t *Timeline) Split(id string, atSeconds float64) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	i := t.indexOf(id)
	if i < 0 {
		return "", types.ErrUnknownSegment
	}
	s := t.segs[i]
	atFrame := int64(math.Round(atSeconds * float64(t.fps)))
	if atFrame <= s.StartFrame || atFrame >= s.EndFrame {
		return "", types.ErrInvalidSplitPoint
	}

	right := segment.Segment{
		ID:         uuid.New().String(),
		StartFrame: atFrame,
		EndFrame:   s.EndFrame,
		Kind:       s.Kind,
		Active:     s.Active,
	}
	t.segs[i].EndFrame = atFrame

	t.segs = append(t.segs, segment.Segment{})
	copy(t.segs[i+2:], t.segs[i+1:])
	t.segs[i+1] = right
	return right.ID, nil
}

// SetText replaces the transcribed text of a speech segment. Silence carries
// no text, so the call is a no-op there.
func (t *Timeline) SetText(id, text string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	i := t.indexOf(id)
	if i < 0 {
		return types.ErrUnknownSegment
	}
	if t.segs[i].Kind != segment.KindSpeech {
		return nil
	}
	t.segs[i].Text = text
	return nil
}

// Merge combines two adjacent segments of equal kind into the left one,
// concatenating their text. The left segment's id survives.
func (t *Timeline) Merge(idA, idB string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	a, b := t.indexOf(idA), t.indexOf(idB)
	if a < 0 || b < 0 {
		return types.ErrUnknownSegment
	}
	if a > b {
		a, b = b, a
	}
	if b != a+1 || t.segs[a].Kind != t.segs[b].Kind {
		return types.ErrNotAdjacent
	}

	t.segs[a].EndFrame = t.segs[b].EndFrame
	t.segs[a].Text = joinText(t.segs[a].Text, t.segs[b].Text)
	t.segs = append(t.segs[:b], t.segs[b+1:]...)
	return nil
}

// Validate re-checks the coverage invariant. Exposed for tests and for the
// store after loading persisted segments.
func (t *Timeline) Validate() error {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.validate()
}

func (t *Timeline) validate() error {
	if len(t.segs) == 0 {
		return fmt.Errorf("timeline has no segments")
	}
	if t.segs[0].StartFrame != 0 {
		return fmt.Errorf("coverage broken: first segment starts at frame %d", t.segs[0].StartFrame)
	}
	for i, s := range t.segs {
		if s.StartFrame >= s.EndFrame {
			return fmt.Errorf("coverage broken: segment %d span [%d,%d) is empty", i, s.StartFrame, s.EndFrame)
		}
		if i > 0 && s.StartFrame != t.segs[i-1].EndFrame {
			return fmt.Errorf("coverage broken: segment %d starts at %d, previous ends at %d",
				i, s.StartFrame, t.segs[i-1].EndFrame)
		}
	}
	if last := t.segs[len(t.segs)-1].EndFrame; last != t.durationFrames {
		return fmt.Errorf("coverage broken: last segment ends at %d, duration is %d", last, t.durationFrames)
	}
	return nil
}

func (t *Timeline) indexOf(id string) int {
	for i := range t.segs {
		if t.segs[i].ID == id {
			return i
		}
	}
	return -1
}

func joinText(a, b string) string {
	a, b = strings.TrimSpace(a), strings.TrimSpace(b)
	switch {
	case a == "":
		return b
	case b == "":
		return a
	default:
		return a + " " + b
	}
}
