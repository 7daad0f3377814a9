package timeline

import (
	"github.com/Karmadibsa/VibeSlicer/internal/segment"
	"github.com/Karmadibsa/VibeSlicer/internal/types"
)

// Entry maps one active segment from source time to output time.
type Entry struct {
	Segment          segment.Segment
	OutputStartFrame int64
	OutputEndFrame   int64
}

// Plan is the derived, read-only view computed at render time: the ordered
// active segments with their cumulative output-time offsets. Subtitle cues
// and music cue points are translated through it from source time to output
// time.
type Plan struct {
	FPS     int
	Entries []Entry
}

// Window is an interval in output-time seconds.
type Window struct {
	Start float64
	End   float64
}

// BuildPlan computes the render plan from the timeline's current state. A
// timeline with no active segments cannot be rendered and is rejected here,
// before any external process runs.
func BuildPlan(tl *Timeline) (*Plan, error) {
	plan := &Plan{FPS: tl.FPS()}
	var cursor int64
	for _, s := range tl.Segments() {
		if !s.Active {
			continue
		}
		plan.Entries = append(plan.Entries, Entry{
			Segment:          s,
			OutputStartFrame: cursor,
			OutputEndFrame:   cursor + s.Frames(),
		})
		cursor += s.Frames()
	}
	if len(plan.Entries) == 0 {
		return nil, types.NewStageError(types.StageRender, types.ErrNoActiveSegments)
	}
	return plan, nil
}

// OutputDurationFrames is the total length of the rendered output.
func (p *Plan) OutputDurationFrames() int64 {
	if len(p.Entries) == 0 {
		return 0
	}
	return p.Entries[len(p.Entries)-1].OutputEndFrame
}

// OutputDurationSeconds is the rendered length in seconds.
func (p *Plan) OutputDurationSeconds() float64 {
	return float64(p.OutputDurationFrames()) / float64(p.FPS)
}

// SpeechWindows returns the output-time intervals that originate from
// speech-classified segments, with adjacent windows coalesced. Music ducking
// is driven by these, not by re-detecting silence on the final mix: gaps cut
// from the output no longer exist there, so only the original classification
// can say where speech survives.
func (p *Plan) SpeechWindows() []Window {
	var out []Window
	for _, e := range p.Entries {
		if e.Segment.Kind != segment.KindSpeech {
			continue
		}
		start := float64(e.OutputStartFrame) / float64(p.FPS)
		end := float64(e.OutputEndFrame) / float64(p.FPS)
		if n := len(out); n > 0 && out[n-1].End == start {
			out[n-1].End = end
			continue
		}
		out = append(out, Window{Start: start, End: end})
	}
	return out
}
