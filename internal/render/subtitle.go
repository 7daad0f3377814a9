package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/Karmadibsa/VibeSlicer/internal/segment"
	"github.com/Karmadibsa/VibeSlicer/internal/timeline"
)

// Cue is one subtitle with output-time boundaries in seconds.
type Cue struct {
	Start float64
	End   float64
	Text  string
}

// BuildCues emits a cue for every active speech segment with non-empty text.
// Cue boundaries are the segment's output-time offsets from the render plan,
// not its source time: the cut removes time before and between kept
// segments, and the cues must land where the speech lands in the output.
// offset shifts every cue (used when an intro is prepended).
func BuildCues(plan *timeline.Plan, offset float64) []Cue {
	var cues []Cue
	for _, e := range plan.Entries {
		if e.Segment.Kind != segment.KindSpeech {
			continue
		}
		text := strings.TrimSpace(e.Segment.Text)
		if text == "" {
			continue
		}
		cues = append(cues, Cue{
			Start: float64(e.OutputStartFrame)/float64(plan.FPS) + offset,
			End:   float64(e.OutputEndFrame)/float64(plan.FPS) + offset,
			Text:  text,
		})
	}
	return cues
}

// WriteSRT writes the cues as a SubRip file.
func WriteSRT(w io.Writer, cues []Cue) error {
	for i, c := range cues {
		_, err := fmt.Fprintf(w, "%d\n%s --> %s\n%s\n\n",
			i+1, srtTimestamp(c.Start), srtTimestamp(c.End), c.Text)
		if err != nil {
			return err
		}
	}
	return nil
}

// srtTimestamp formats seconds as HH:MM:SS,mmm.
func srtTimestamp(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	millis := int64(seconds*1000 + 0.5)
	h := millis / 3600000
	m := millis % 3600000 / 60000
	s := millis % 60000 / 1000
	ms := millis % 1000
	return fmt.Sprintf("%02d:%02d:%02d,%03d", h, m, s, ms)
}
