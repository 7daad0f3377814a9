package segment

import (
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/Karmadibsa/VibeSlicer/internal/types"
)

// Build classifies the canonical timeline into an ordered, gap-free sequence
// of speech and silence segments from raw detected silence spans.
//
// Rules:
//   - a silence span shorter than opts.MinSilence stays speech (breath pause);
//   - surviving silences are shrunk inward by opts.Padding on each side that
//     borders speech, the freed time going to the neighboring speech; a side
//     touching the start or end of the file is left alone, so leading and
//     trailing silence never grows a speech sliver at the edge;
//   - a silence that padding would consume entirely is absorbed into speech;
//   - speech defaults to active, silence to inactive.
//
// The result always covers [0, durationFrames) exactly. A file with no
// detected silence yields one active speech segment; a file that is silent
// throughout yields one inactive silence segment.
func Build(spans []Span, durationFrames int64, fps int, opts Options) ([]Segment, error) {
	if durationFrames <= 0 {
		return nil, types.NewStageError(types.StageSegment,
			fmt.Errorf("canonical media has no duration"))
	}
	duration := float64(durationFrames) / float64(fps)

	silences := normalizeSpans(spans, duration)

	// Promote to Silence only when long enough, then shave the padding from
	// sides bordering speech. A span the shave would consume entirely
	// disappears into the surrounding speech.
	// Detector timestamps are floats; within half a frame of an edge counts
	// as touching it, matching the rounding in frameAt.
	eps := 0.5 / float64(fps)
	padded := silences[:0]
	for _, s := range silences {
		if s.Duration() < opts.MinSilence {
			continue
		}
		start, end := s.Start, s.End
		if start > eps {
			start += opts.Padding
		}
		if end < duration-eps {
			end -= opts.Padding
		}
		if end <= start {
			continue
		}
		padded = append(padded, Span{Start: start, End: end})
	}

	// Frame-align and build the alternating coverage.
	var segs []Segment
	cursor := int64(0)
	for _, s := range padded {
		startF := frameAt(s.Start, fps, durationFrames)
		endF := frameAt(s.End, fps, durationFrames)
		if endF <= startF || startF < cursor {
			continue
		}
		if startF > cursor {
			segs = append(segs, newSegment(cursor, startF, KindSpeech))
		}
		segs = append(segs, newSegment(startF, endF, KindSilence))
		cursor = endF
	}
	if cursor < durationFrames {
		segs = append(segs, newSegment(cursor, durationFrames, KindSpeech))
	}

	if len(segs) == 0 {
		// Silence span consumed the whole file.
		segs = append(segs, newSegment(0, durationFrames, KindSilence))
	}
	return segs, nil
}

func newSegment(start, end int64, kind Kind) Segment {
	return Segment{
		ID:         uuid.New().String(),
		StartFrame: start,
		EndFrame:   end,
		Kind:       kind,
		Active:     kind == KindSpeech,
	}
}

// normalizeSpans closes open-ended spans at the media duration, clamps to
// [0, duration], drops degenerate spans and merges overlaps.
func normalizeSpans(spans []Span, duration float64) []Span {
	out := make([]Span, 0, len(spans))
	for _, s := range spans {
		if s.End < 0 {
			s.End = duration
		}
		if s.Start < 0 {
			s.Start = 0
		}
		if s.End > duration {
			s.End = duration
		}
		if s.End <= s.Start {
			continue
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start < out[j].Start })

	merged := out[:0]
	for _, s := range out {
		if n := len(merged); n > 0 && s.Start <= merged[n-1].End {
			if s.End > merged[n-1].End {
				merged[n-1].End = s.End
			}
			continue
		}
		merged = append(merged, s)
	}
	return merged
}

func frameAt(seconds float64, fps int, max int64) int64 {
	f := int64(seconds*float64(fps) + 0.5)
	if f < 0 {
		f = 0
	}
	if f > max {
		f = max
	}
	return f
}
